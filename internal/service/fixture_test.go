package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/turma-scheduler/internal/models"
	"github.com/noah-isme/turma-scheduler/internal/repository"
	"github.com/noah-isme/turma-scheduler/pkg/config"
)

var day = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

func at(hour int) time.Time {
	return day.Add(time.Duration(hour) * time.Hour)
}

func stamp(hour int) string {
	return at(hour).Format(HourLayout)
}

func testWindow() *SchedulingWindow {
	return NewSchedulingWindow(config.SchedulingConfig{Timezone: "UTC", OpenHour: 8, CloseHour: 22, MaxBookingHours: 14})
}

type plannedModule struct {
	moduleID string
	name     string
	tier     int
	target   int
}

// memoryStore is an in-memory stand-in for every repository the services depend on.
// Inserts are all-or-nothing and enforce the same unique keys as the database.
type memoryStore struct {
	mu             sync.Mutex
	availability   map[string]map[int64]bool
	entries        []models.ScheduleEntry
	plans          map[string][]plannedModule
	qualifications []models.QualifiedTeacher
	teachers       map[string]models.Teacher
	rooms          map[string]models.Room
	cohorts        map[string]models.Cohort

	streamed  int
	insertErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		availability: map[string]map[int64]bool{},
		plans:        map[string][]plannedModule{},
		teachers:     map[string]models.Teacher{},
		rooms:        map[string]models.Room{},
		cohorts:      map[string]models.Cohort{},
	}
}

func (m *memoryStore) addTeacher(id, name string, modules ...string) {
	m.teachers[id] = models.Teacher{ID: id, FullName: name, Active: true}
	for _, moduleID := range modules {
		m.qualifications = append(m.qualifications, models.QualifiedTeacher{TeacherID: id, TeacherName: name, ModuleID: moduleID})
	}
}

func (m *memoryStore) setAvailable(teacherID string, from, to int, available bool) {
	for h := from; h < to; h++ {
		_ = m.Upsert(context.Background(), &models.TeacherAvailabilitySlot{TeacherID: teacherID, Hour: at(h), Available: available})
	}
}

func (m *memoryStore) entryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Upsert implements availabilityRepository.
func (m *memoryStore) Upsert(ctx context.Context, slot *models.TeacherAvailabilitySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.availability[slot.TeacherID] == nil {
		m.availability[slot.TeacherID] = map[int64]bool{}
	}
	m.availability[slot.TeacherID][slot.Hour.Unix()] = slot.Available
	return nil
}

func (m *memoryStore) StreamRange(ctx context.Context, teacherID string, start, end time.Time, visit func(models.TeacherAvailabilitySlot) bool) error {
	m.mu.Lock()
	keys := make([]int64, 0)
	for k := range m.availability[teacherID] {
		if k >= start.Unix() && k < end.Unix() {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	slots := make([]models.TeacherAvailabilitySlot, 0, len(keys))
	for _, k := range keys {
		slots = append(slots, models.TeacherAvailabilitySlot{TeacherID: teacherID, Hour: time.Unix(k, 0).UTC(), Available: m.availability[teacherID][k]})
	}
	m.mu.Unlock()

	for _, slot := range slots {
		m.mu.Lock()
		m.streamed++
		m.mu.Unlock()
		if !visit(slot) {
			return nil
		}
	}
	return nil
}

func (m *memoryStore) QueryRange(ctx context.Context, teacherID string, start, end time.Time) ([]models.TeacherAvailabilitySlot, error) {
	out := make([]models.TeacherAvailabilitySlot, 0)
	err := m.StreamRange(ctx, teacherID, start, end, func(slot models.TeacherAvailabilitySlot) bool {
		out = append(out, slot)
		return true
	})
	return out, err
}

// FindByID implements scheduleEntryRepository.
func (m *memoryStore) FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			found := e
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStore) FindOccupying(ctx context.Context, teacherID, roomID, cohortID string, from, to time.Time) ([]models.ScheduleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ScheduleEntry, 0)
	for _, e := range m.entries {
		if e.Hour.Before(from) || e.Hour.After(to) {
			continue
		}
		if e.TeacherID == teacherID || e.RoomID == roomID || e.CohortID == cohortID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryStore) IsOccupied(ctx context.Context, kind models.ResourceKind, id string, hour time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if !e.Hour.Equal(hour) {
			continue
		}
		switch kind {
		case models.ResourceTeacher:
			if e.TeacherID == id {
				return true, nil
			}
		case models.ResourceRoom:
			if e.RoomID == id {
				return true, nil
			}
		case models.ResourceCohort:
			if e.CohortID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *memoryStore) ListTeachersBusy(ctx context.Context, teacherIDs []string, from, to time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range teacherIDs {
		wanted[id] = true
	}
	seen := map[string]bool{}
	out := make([]string, 0)
	for _, e := range m.entries {
		if wanted[e.TeacherID] && !seen[e.TeacherID] && !e.Hour.Before(from) && e.Hour.Before(to) {
			seen[e.TeacherID] = true
			out = append(out, e.TeacherID)
		}
	}
	return out, nil
}

func (m *memoryStore) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, entries []models.ScheduleEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	staged := append([]models.ScheduleEntry(nil), m.entries...)
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		if violation := violates(staged, entries[i], ""); violation != nil {
			return fmt.Errorf("insert schedule entry: %w", violation)
		}
		staged = append(staged, entries[i])
	}
	m.entries = staged
	return nil
}

func (m *memoryStore) UpdateWithTx(ctx context.Context, tx *sqlx.Tx, entry *models.ScheduleEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID != entry.ID {
			continue
		}
		if violation := violates(m.entries, *entry, entry.ID); violation != nil {
			return fmt.Errorf("update schedule entry: %w", violation)
		}
		m.entries[i] = *entry
		return nil
	}
	return sql.ErrNoRows
}

func (m *memoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memoryStore) List(ctx context.Context, filter models.ScheduleEntryFilter) ([]models.ScheduleEntryDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ScheduleEntryDetail, 0)
	for _, e := range m.entries {
		if e.Hour.Before(filter.Start) || !e.Hour.Before(filter.End) {
			continue
		}
		if (filter.CohortID != "" && e.CohortID != filter.CohortID) ||
			(filter.TeacherID != "" && e.TeacherID != filter.TeacherID) ||
			(filter.ModuleID != "" && e.ModuleID != filter.ModuleID) ||
			(filter.RoomID != "" && e.RoomID != filter.RoomID) {
			continue
		}
		out = append(out, models.ScheduleEntryDetail{
			ScheduleEntry: e,
			TeacherName:   m.teachers[e.TeacherID].FullName,
			RoomName:      m.rooms[e.RoomID].Name,
			CourseName:    m.cohorts[e.CohortID].CourseName,
			ModuleName:    m.moduleName(e.CohortID, e.ModuleID),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Hour.Equal(out[j].Hour) {
			return out[i].Hour.Before(out[j].Hour)
		}
		return out[i].ID < out[j].ID
	})
	if filter.PageSize > 0 {
		from := (filter.Page - 1) * filter.PageSize
		if from < 0 {
			from = 0
		}
		if from > len(out) {
			from = len(out)
		}
		to := from + filter.PageSize
		if to > len(out) {
			to = len(out)
		}
		out = out[from:to]
	}
	return out, nil
}

func (m *memoryStore) Count(ctx context.Context, filter models.ScheduleEntryFilter) (int, error) {
	filter.Page, filter.PageSize = 0, 0
	all, err := m.List(ctx, filter)
	return len(all), err
}

func (m *memoryStore) moduleName(cohortID, moduleID string) string {
	for _, p := range m.plans[cohortID] {
		if p.moduleID == moduleID {
			return p.name
		}
	}
	return ""
}

// ListPlanProgress implements progressRepository.
func (m *memoryStore) ListPlanProgress(ctx context.Context, cohortID string, now time.Time) ([]models.ModuleProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ModuleProgress, 0)
	for _, p := range m.plans[cohortID] {
		progress := models.ModuleProgress{CohortID: cohortID, ModuleID: p.moduleID, ModuleName: p.name, TierIndex: p.tier, TargetDuration: p.target}
		for _, e := range m.entries {
			if e.CohortID == cohortID && e.ModuleID == p.moduleID {
				progress.TotalScheduled++
				if !e.Hour.After(now) {
					progress.HoursTaught++
				}
			}
		}
		out = append(out, progress)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TierIndex < out[j].TierIndex })
	return out, nil
}

func (m *memoryStore) GetProgress(ctx context.Context, cohortID, moduleID string, now time.Time) (*models.ModuleProgress, error) {
	all, _ := m.ListPlanProgress(ctx, cohortID, now)
	for _, p := range all {
		if p.ModuleID == moduleID {
			found := p
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

// ListByModules implements qualificationRepository.
func (m *memoryStore) ListByModules(ctx context.Context, moduleIDs []string) ([]models.QualifiedTeacher, error) {
	wanted := map[string]bool{}
	for _, id := range moduleIDs {
		wanted[id] = true
	}
	out := make([]models.QualifiedTeacher, 0)
	for _, q := range m.qualifications {
		if wanted[q.ModuleID] && m.teachers[q.TeacherID].Active {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memoryStore) IsQualified(ctx context.Context, teacherID, moduleID string) (bool, error) {
	for _, q := range m.qualifications {
		if q.TeacherID == teacherID && q.ModuleID == moduleID {
			return true, nil
		}
	}
	return false, nil
}

// FindTeacher implements catalogRepository.
func (m *memoryStore) FindTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	t, ok := m.teachers[id]
	if !ok || !t.Active {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

func (m *memoryStore) FindRoom(ctx context.Context, id string) (*models.Room, error) {
	r, ok := m.rooms[id]
	if !ok || r.Deleted {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (m *memoryStore) FindCohort(ctx context.Context, id string) (*models.Cohort, error) {
	c, ok := m.cohorts[id]
	if !ok || c.Deleted {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

// violates mirrors the unique indexes of schedule_entries and returns the error Postgres would raise.
func violates(existing []models.ScheduleEntry, candidate models.ScheduleEntry, ignoreID string) *pq.Error {
	for _, e := range existing {
		if e.ID == ignoreID || !e.Hour.Equal(candidate.Hour) {
			continue
		}
		var constraint, column, value string
		switch {
		case e.TeacherID == candidate.TeacherID:
			constraint, column, value = repository.ConstraintTeacherHour, "teacher_id", e.TeacherID
		case e.RoomID == candidate.RoomID:
			constraint, column, value = repository.ConstraintRoomHour, "room_id", e.RoomID
		case e.CohortID == candidate.CohortID:
			constraint, column, value = repository.ConstraintCohortHour, "cohort_id", e.CohortID
		default:
			continue
		}
		return &pq.Error{
			Code:       "23505",
			Constraint: constraint,
			Detail:     fmt.Sprintf("Key (%s, hour_ts)=(%s, %s) already exists.", column, value, e.Hour.UTC().Format("2006-01-02 15:04:05-07")),
		}
	}
	return nil
}

// hidingOccupancy hides one stored entry from validation reads to simulate a writer in another process.
type hidingOccupancy struct {
	*memoryStore
	hiddenID string
}

func (h hidingOccupancy) FindOccupying(ctx context.Context, teacherID, roomID, cohortID string, from, to time.Time) ([]models.ScheduleEntry, error) {
	all, err := h.memoryStore.FindOccupying(ctx, teacherID, roomID, cohortID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]models.ScheduleEntry, 0, len(all))
	for _, e := range all {
		if e.ID != h.hiddenID {
			out = append(out, e)
		}
	}
	return out, nil
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// schedulingFixture wires the real scheduling services over a memoryStore.
type schedulingFixture struct {
	store        *memoryStore
	window       *SchedulingWindow
	availability *AvailabilityService
	progress     *ProgressService
	conflicts    *ConflictChecker
	tiers        *TierGate
	suggestions  *SuggestionService
	bookings     *BookingService
	mock         sqlmock.Sqlmock
}

// newSchedulingFixture seeds cohort-1 with a completed tier 0 (module m-1) and tier 1 modules m-5 and m-6.
func newSchedulingFixture(t *testing.T) *schedulingFixture {
	t.Helper()
	store := newMemoryStore()
	store.cohorts["cohort-1"] = models.Cohort{ID: "cohort-1", CourseID: "course-1", CourseName: "IT Technician"}
	store.cohorts["cohort-2"] = models.Cohort{ID: "cohort-2", CourseID: "course-1", CourseName: "IT Technician"}
	store.rooms["room-3"] = models.Room{ID: "room-3", Name: "Lab 3", HasPCs: true}
	store.rooms["room-4"] = models.Room{ID: "room-4", Name: "Lab 4", HasPCs: true}
	store.plans["cohort-1"] = []plannedModule{
		{moduleID: "m-1", name: "Hardware Basics", tier: 0, target: 2},
		{moduleID: "m-5", name: "Networks", tier: 1, target: 20},
		{moduleID: "m-6", name: "Operating Systems", tier: 1, target: 10},
		{moduleID: "m-9", name: "Capstone", tier: 2, target: 8},
	}
	store.plans["cohort-2"] = []plannedModule{
		{moduleID: "m-5", name: "Networks", tier: 0, target: 20},
	}
	store.addTeacher("teacher-t", "Tomas", "m-1", "m-5", "m-6")
	store.addTeacher("teacher-u", "Ursula", "m-5")
	store.entries = append(store.entries,
		models.ScheduleEntry{ID: "past-1", CohortID: "cohort-1", ModuleID: "m-1", TeacherID: "teacher-t", RoomID: "room-3", Hour: time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC)},
		models.ScheduleEntry{ID: "past-2", CohortID: "cohort-1", ModuleID: "m-1", TeacherID: "teacher-t", RoomID: "room-3", Hour: time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)},
	)

	window := testWindow()
	tx, mock := newTxProviderMock(t)
	availability := NewAvailabilityService(store, nil, 0, window, nil, nil)
	progress := NewProgressService(store, nil, 0, nil, nil)
	progress.now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }
	conflicts := NewConflictChecker(store, availability, window, nil)
	tiers := NewTierGate(progress)
	suggestions := NewSuggestionService(progress, store, store, availability, window, nil, nil, nil)
	bookings := NewBookingService(BookingDeps{
		Entries:        store,
		Catalog:        store,
		Qualifications: store,
		Conflicts:      conflicts,
		Tiers:          tiers,
		Progress:       progress,
		Tx:             tx,
		Window:         window,
	}, nil, nil)

	return &schedulingFixture{
		store:        store,
		window:       window,
		availability: availability,
		progress:     progress,
		conflicts:    conflicts,
		tiers:        tiers,
		suggestions:  suggestions,
		bookings:     bookings,
		mock:         mock,
	}
}

func (f *schedulingFixture) expectCommit() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

func (f *schedulingFixture) expectRollback() {
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
}
