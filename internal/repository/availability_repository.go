package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/turma-scheduler/internal/models"
)

// AvailabilityRepository persists per-hour teacher availability.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// Upsert creates the slot or overwrites the flag of the existing (teacher, hour) slot.
func (r *AvailabilityRepository) Upsert(ctx context.Context, slot *models.TeacherAvailabilitySlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	slot.UpdatedAt = time.Now().UTC()

	const query = `INSERT INTO teacher_availability (id, teacher_id, hour_ts, available, updated_at)
		VALUES (:id, :teacher_id, :hour_ts, :available, :updated_at)
		ON CONFLICT (teacher_id, hour_ts) DO UPDATE
		SET available = EXCLUDED.available,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("upsert teacher availability: %w", err)
	}
	return nil
}

// StreamRange visits stored slots with hour in [start, end) in ascending order.
// Iteration stops early, without error, when visit returns false.
func (r *AvailabilityRepository) StreamRange(ctx context.Context, teacherID string, start, end time.Time, visit func(models.TeacherAvailabilitySlot) bool) error {
	const query = `SELECT id, teacher_id, hour_ts, available, updated_at FROM teacher_availability WHERE teacher_id = $1 AND hour_ts >= $2 AND hour_ts < $3 ORDER BY hour_ts ASC`
	rows, err := r.db.QueryxContext(ctx, query, teacherID, start, end)
	if err != nil {
		return fmt.Errorf("query teacher availability: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var slot models.TeacherAvailabilitySlot
		if err := rows.StructScan(&slot); err != nil {
			return fmt.Errorf("scan teacher availability: %w", err)
		}
		if !visit(slot) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate teacher availability: %w", err)
	}
	return nil
}

// QueryRange collects every stored slot in [start, end).
func (r *AvailabilityRepository) QueryRange(ctx context.Context, teacherID string, start, end time.Time) ([]models.TeacherAvailabilitySlot, error) {
	slots := make([]models.TeacherAvailabilitySlot, 0)
	err := r.StreamRange(ctx, teacherID, start, end, func(slot models.TeacherAvailabilitySlot) bool {
		slots = append(slots, slot)
		return true
	})
	if err != nil {
		return nil, err
	}
	return slots, nil
}
