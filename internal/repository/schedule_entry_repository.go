package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/turma-scheduler/internal/models"
	"github.com/noah-isme/turma-scheduler/pkg/database"
)

// Unique index names that reject double bookings.
const (
	ConstraintTeacherHour = "uq_schedule_entries_teacher_hour"
	ConstraintRoomHour    = "uq_schedule_entries_room_hour"
	ConstraintCohortHour  = "uq_schedule_entries_cohort_hour"
)

// Postgres renders timestamptz key values with an hour or hour:minute offset.
var violatedHourLayouts = []string{"2006-01-02 15:04:05-07", "2006-01-02 15:04:05-07:00"}

const scheduleEntryColumns = "id, cohort_id, module_id, teacher_id, room_id, hour_ts, created_at, updated_at"

var occupancyColumns = map[models.ResourceKind]string{
	models.ResourceTeacher: "teacher_id",
	models.ResourceRoom:    "room_id",
	models.ResourceCohort:  "cohort_id",
}

// ResourceForConstraint maps a unique index name back to the resource it protects.
func ResourceForConstraint(constraint string) (models.ResourceKind, bool) {
	switch constraint {
	case ConstraintTeacherHour:
		return models.ResourceTeacher, true
	case ConstraintRoomHour:
		return models.ResourceRoom, true
	case ConstraintCohortHour:
		return models.ResourceCohort, true
	default:
		return "", false
	}
}

// ViolatedHour returns the hour_ts value of the key a unique index rejected.
func ViolatedHour(err error) (time.Time, bool) {
	key, ok := database.ViolatedKey(err)
	if !ok {
		return time.Time{}, false
	}
	raw, ok := key["hour_ts"]
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range violatedHourLayouts {
		if hour, parseErr := time.Parse(layout, raw); parseErr == nil {
			return hour.UTC(), true
		}
	}
	return time.Time{}, false
}

// ScheduleEntryRepository provides persistence for committed class hours.
type ScheduleEntryRepository struct {
	db *sqlx.DB
}

// NewScheduleEntryRepository creates a new schedule entry repository.
func NewScheduleEntryRepository(db *sqlx.DB) *ScheduleEntryRepository {
	return &ScheduleEntryRepository{db: db}
}

// FindByID loads an entry by id. sql.ErrNoRows is returned untouched.
func (r *ScheduleEntryRepository) FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_entries WHERE id = $1", scheduleEntryColumns)
	var entry models.ScheduleEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindOccupying returns entries holding the teacher, the room or the cohort at any hour in [from, to].
func (r *ScheduleEntryRepository) FindOccupying(ctx context.Context, teacherID, roomID, cohortID string, from, to time.Time) ([]models.ScheduleEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_entries WHERE (teacher_id = $1 OR room_id = $2 OR cohort_id = $3) AND hour_ts >= $4 AND hour_ts <= $5 ORDER BY hour_ts ASC", scheduleEntryColumns)
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, teacherID, roomID, cohortID, from, to); err != nil {
		return nil, fmt.Errorf("find occupying schedule entries: %w", err)
	}
	return entries, nil
}

// ListTeachersBusy returns the subset of teacherIDs holding any entry in [from, to).
func (r *ScheduleEntryRepository) ListTeachersBusy(ctx context.Context, teacherIDs []string, from, to time.Time) ([]string, error) {
	if len(teacherIDs) == 0 {
		return []string{}, nil
	}
	query, args, err := sqlx.In(`SELECT DISTINCT teacher_id FROM schedule_entries WHERE teacher_id IN (?) AND hour_ts >= ? AND hour_ts < ?`, teacherIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("build busy teachers query: %w", err)
	}
	query = r.db.Rebind(query)
	busy := make([]string, 0)
	if err := r.db.SelectContext(ctx, &busy, query, args...); err != nil {
		return nil, fmt.Errorf("list busy teachers: %w", err)
	}
	return busy, nil
}

// IsOccupied reports whether the resource already holds an entry at hour.
func (r *ScheduleEntryRepository) IsOccupied(ctx context.Context, kind models.ResourceKind, id string, hour time.Time) (bool, error) {
	column, ok := occupancyColumns[kind]
	if !ok {
		return false, fmt.Errorf("unknown resource kind %q", kind)
	}
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM schedule_entries WHERE %s = $1 AND hour_ts = $2)", column)
	var occupied bool
	if err := r.db.GetContext(ctx, &occupied, query, id, hour); err != nil {
		return false, fmt.Errorf("check %s occupancy: %w", strings.ToLower(string(kind)), err)
	}
	return occupied, nil
}

// BulkCreateWithTx inserts entries using an existing transaction.
func (r *ScheduleEntryRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, entries []models.ScheduleEntry) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	now := time.Now().UTC()
	for i := range entries {
		payload := entries[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now

		if _, err := sqlx.NamedExecContext(ctx, tx, `INSERT INTO schedule_entries (id, cohort_id, module_id, teacher_id, room_id, hour_ts, created_at, updated_at) VALUES (:id, :cohort_id, :module_id, :teacher_id, :room_id, :hour_ts, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("insert schedule entry: %w", err)
		}
		entries[i] = payload
	}
	return nil
}

// UpdateWithTx overwrites an entry in place.
func (r *ScheduleEntryRepository) UpdateWithTx(ctx context.Context, tx *sqlx.Tx, entry *models.ScheduleEntry) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedule_entries SET teacher_id = :teacher_id, room_id = :room_id, hour_ts = :hour_ts, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, tx, query, entry)
	if err != nil {
		return fmt.Errorf("update schedule entry: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete hard-deletes an entry. sql.ErrNoRows is returned when nothing was removed.
func (r *ScheduleEntryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedule_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete schedule entry rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func entryFilterClause(filter models.ScheduleEntryFilter) (string, []interface{}) {
	conditions := []string{"e.hour_ts >= $1", "e.hour_ts < $2"}
	args := []interface{}{filter.Start, filter.End}

	optional := []struct {
		column string
		value  string
	}{
		{"e.cohort_id", filter.CohortID},
		{"e.teacher_id", filter.TeacherID},
		{"e.module_id", filter.ModuleID},
		{"e.room_id", filter.RoomID},
	}
	for _, opt := range optional {
		if opt.value == "" {
			continue
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", opt.column, len(args)+1))
		args = append(args, opt.value)
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// List returns entries in [filter.Start, filter.End) joined with display names.
func (r *ScheduleEntryRepository) List(ctx context.Context, filter models.ScheduleEntryFilter) ([]models.ScheduleEntryDetail, error) {
	where, args := entryFilterClause(filter)
	query := `SELECT e.id, e.cohort_id, e.module_id, e.teacher_id, e.room_id, e.hour_ts, e.created_at, e.updated_at,
		m.name AS module_name, t.full_name AS teacher_name, r.name AS room_name, COALESCE(co.name, '') AS course_name
		FROM schedule_entries e
		JOIN curriculum_modules m ON m.id = e.module_id
		JOIN teachers t ON t.id = e.teacher_id
		JOIN rooms r ON r.id = e.room_id
		JOIN cohorts c ON c.id = e.cohort_id
		LEFT JOIN courses co ON co.id = c.course_id
		` + where + `
		ORDER BY e.hour_ts ASC, e.cohort_id ASC, e.id ASC`
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.PageSize, (page-1)*filter.PageSize)
	}

	entries := make([]models.ScheduleEntryDetail, 0)
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule entries: %w", err)
	}
	return entries, nil
}

// Count returns how many entries match the filter, ignoring paging.
func (r *ScheduleEntryRepository) Count(ctx context.Context, filter models.ScheduleEntryFilter) (int, error) {
	where, args := entryFilterClause(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM schedule_entries e "+where, args...); err != nil {
		return 0, fmt.Errorf("count schedule entries: %w", err)
	}
	return total, nil
}
