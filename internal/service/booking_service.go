package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/turma-scheduler/internal/dto"
	"github.com/noah-isme/turma-scheduler/internal/models"
	"github.com/noah-isme/turma-scheduler/internal/repository"
	"github.com/noah-isme/turma-scheduler/pkg/database"
	appErrors "github.com/noah-isme/turma-scheduler/pkg/errors"
)

const defaultBookingPageSize = 50

type scheduleEntryRepository interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error)
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, entries []models.ScheduleEntry) error
	UpdateWithTx(ctx context.Context, tx *sqlx.Tx, entry *models.ScheduleEntry) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.ScheduleEntryFilter) ([]models.ScheduleEntryDetail, error)
	Count(ctx context.Context, filter models.ScheduleEntryFilter) (int, error)
}

type catalogRepository interface {
	FindTeacher(ctx context.Context, id string) (*models.Teacher, error)
	FindRoom(ctx context.Context, id string) (*models.Room, error)
	FindCohort(ctx context.Context, id string) (*models.Cohort, error)
}

type qualificationChecker interface {
	IsQualified(ctx context.Context, teacherID, moduleID string) (bool, error)
}

type windowChecker interface {
	CheckWindow(ctx context.Context, check WindowCheck) error
}

type tierChecker interface {
	Check(ctx context.Context, cohortID, moduleID string) error
}

type progressInvalidator interface {
	InvalidateCohort(ctx context.Context, cohortID string)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// BookingService validates and commits schedule entries.
// Mutations are serialised by one mutex held from validation through commit.
type BookingService struct {
	entries        scheduleEntryRepository
	catalog        catalogRepository
	qualifications qualificationChecker
	conflicts      windowChecker
	tiers          tierChecker
	progress       progressInvalidator
	tx             txProvider
	window         *SchedulingWindow
	metrics        *MetricsService
	validator      *validator.Validate
	logger         *zap.Logger

	mu sync.Mutex
}

// BookingDeps groups the collaborators of a BookingService.
type BookingDeps struct {
	Entries        scheduleEntryRepository
	Catalog        catalogRepository
	Qualifications qualificationChecker
	Conflicts      windowChecker
	Tiers          tierChecker
	Progress       progressInvalidator
	Tx             txProvider
	Window         *SchedulingWindow
	Metrics        *MetricsService
}

// NewBookingService constructs a BookingService.
func NewBookingService(deps BookingDeps, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		entries:        deps.Entries,
		catalog:        deps.Catalog,
		qualifications: deps.Qualifications,
		conflicts:      deps.Conflicts,
		tiers:          deps.Tiers,
		progress:       deps.Progress,
		tx:             deps.Tx,
		window:         deps.Window,
		metrics:        deps.Metrics,
		validator:      validate,
		logger:         logger,
	}
}

// Create reserves teacher, room and cohort for every hour in [start, end). Either every hour is
// committed or none is.
func (s *BookingService) Create(ctx context.Context, req dto.CreateBookingRequest) (result *dto.BookingResult, err error) {
	hoursBooked := 0
	defer func() { s.metrics.RecordBooking("create", outcomeOf(err), hoursBooked) }()

	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	start, end, err := s.window.ParseRange(req.Start, req.End)
	if err != nil {
		return nil, err
	}
	if err = s.window.CheckSpan(start, end); err != nil {
		return nil, err
	}
	hours, err := s.window.Hours(start, end)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.ensureResources(ctx, req.CohortID, req.TeacherID, req.RoomID); err != nil {
		return nil, err
	}
	if err = s.ensureQualified(ctx, req.TeacherID, req.ModuleID); err != nil {
		return nil, err
	}
	if err = s.tiers.Check(ctx, req.CohortID, req.ModuleID); err != nil {
		return nil, err
	}
	check := WindowCheck{TeacherID: req.TeacherID, RoomID: req.RoomID, CohortID: req.CohortID, Hours: hours}
	if err = s.conflicts.CheckWindow(ctx, check); err != nil {
		return nil, err
	}

	entries := make([]models.ScheduleEntry, 0, len(hours))
	for _, hour := range hours {
		entries = append(entries, models.ScheduleEntry{
			CohortID:  req.CohortID,
			ModuleID:  req.ModuleID,
			TeacherID: req.TeacherID,
			RoomID:    req.RoomID,
			Hour:      hour,
		})
	}

	if err = s.commit(ctx, "booking_create", func(tx *sqlx.Tx) error {
		return s.entries.BulkCreateWithTx(ctx, tx, entries)
	}); err != nil {
		return nil, s.resolveCommitError(ctx, err, check)
	}
	hoursBooked = len(entries)
	s.progress.InvalidateCohort(ctx, req.CohortID)

	s.logger.Info("booking created",
		zap.String("cohort_id", req.CohortID),
		zap.String("module_id", req.ModuleID),
		zap.String("teacher_id", req.TeacherID),
		zap.String("room_id", req.RoomID),
		zap.Time("start", start),
		zap.Int("hours", len(entries)),
	)
	return &dto.BookingResult{Entries: s.toEntries(entries)}, nil
}

// Update moves a single entry to another teacher, room or hour, re-running every check
// while ignoring the entry itself.
func (s *BookingService) Update(ctx context.Context, id string, req dto.UpdateBookingRequest) (result *dto.BookingResult, err error) {
	defer func() { s.metrics.RecordBooking("update", outcomeOf(err), 0) }()

	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.entries.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, persistenceError(err, "failed to load booking")
	}

	updated, err := s.applyUpdate(*existing, req)
	if err != nil {
		return nil, err
	}
	hours := []time.Time{updated.Hour}
	if err = s.window.CheckOperating(hours); err != nil {
		return nil, err
	}
	if err = s.ensureResources(ctx, updated.CohortID, updated.TeacherID, updated.RoomID); err != nil {
		return nil, err
	}
	if err = s.ensureQualified(ctx, updated.TeacherID, updated.ModuleID); err != nil {
		return nil, err
	}
	if err = s.tiers.Check(ctx, updated.CohortID, updated.ModuleID); err != nil {
		return nil, err
	}
	check := WindowCheck{
		TeacherID:      updated.TeacherID,
		RoomID:         updated.RoomID,
		CohortID:       updated.CohortID,
		Hours:          hours,
		ExcludeEntryID: updated.ID,
	}
	if err = s.conflicts.CheckWindow(ctx, check); err != nil {
		return nil, err
	}

	if err = s.commit(ctx, "booking_update", func(tx *sqlx.Tx) error {
		return s.entries.UpdateWithTx(ctx, tx, &updated)
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, s.resolveCommitError(ctx, err, check)
	}
	s.progress.InvalidateCohort(ctx, updated.CohortID)

	s.logger.Info("booking updated",
		zap.String("entry_id", updated.ID),
		zap.String("teacher_id", updated.TeacherID),
		zap.String("room_id", updated.RoomID),
		zap.Time("hour", updated.Hour),
	)
	return &dto.BookingResult{Entries: s.toEntries([]models.ScheduleEntry{updated})}, nil
}

// Delete hard-deletes an entry.
func (s *BookingService) Delete(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.RecordBooking("delete", outcomeOf(err), 0) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.entries.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return persistenceError(err, "failed to load booking")
	}
	if err = s.entries.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return persistenceError(err, "failed to delete booking")
	}
	s.progress.InvalidateCohort(ctx, existing.CohortID)

	s.logger.Info("booking deleted", zap.String("entry_id", id), zap.String("cohort_id", existing.CohortID))
	return nil
}

// List returns every committed hour in the query window with display names.
func (s *BookingService) List(ctx context.Context, query dto.BookingQuery) ([]dto.BookingEntry, error) {
	filter, err := s.entryFilter(query)
	if err != nil {
		return nil, err
	}
	details, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, persistenceError(err, "failed to list bookings")
	}
	return s.toDetailedEntries(details), nil
}

// ListPage returns one page of committed hours and the pagination of the whole listing.
func (s *BookingService) ListPage(ctx context.Context, query dto.BookingQuery) ([]dto.BookingEntry, *models.Pagination, error) {
	filter, err := s.entryFilter(query)
	if err != nil {
		return nil, nil, err
	}
	filter.Page = query.Page
	if filter.Page < 1 {
		filter.Page = 1
	}
	filter.PageSize = query.PageSize
	if filter.PageSize <= 0 {
		filter.PageSize = defaultBookingPageSize
	}

	details, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, nil, persistenceError(err, "failed to list bookings")
	}
	total, err := s.entries.Count(ctx, filter)
	if err != nil {
		return nil, nil, persistenceError(err, "failed to count bookings")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return s.toDetailedEntries(details), pagination, nil
}

func (s *BookingService) entryFilter(query dto.BookingQuery) (models.ScheduleEntryFilter, error) {
	if err := s.validator.Struct(query); err != nil {
		return models.ScheduleEntryFilter{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking query")
	}
	start, end, err := s.window.ParseRange(query.Start, query.End)
	if err != nil {
		return models.ScheduleEntryFilter{}, err
	}
	return models.ScheduleEntryFilter{
		Start:     start,
		End:       end,
		CohortID:  query.CohortID,
		TeacherID: query.TeacherID,
		ModuleID:  query.ModuleID,
		RoomID:    query.RoomID,
	}, nil
}

func (s *BookingService) toDetailedEntries(details []models.ScheduleEntryDetail) []dto.BookingEntry {
	result := make([]dto.BookingEntry, 0, len(details))
	for _, d := range details {
		entry := s.toEntry(d.ScheduleEntry)
		entry.CourseName = d.CourseName
		entry.ModuleName = d.ModuleName
		entry.TeacherName = d.TeacherName
		entry.RoomName = d.RoomName
		result = append(result, entry)
	}
	return result
}

func (s *BookingService) applyUpdate(entry models.ScheduleEntry, req dto.UpdateBookingRequest) (models.ScheduleEntry, error) {
	if req.CohortID != nil && *req.CohortID != entry.CohortID {
		return entry, validationReason(ReasonImmutableField, "cohortId of a booking cannot be changed")
	}
	if req.ModuleID != nil && *req.ModuleID != entry.ModuleID {
		return entry, validationReason(ReasonImmutableField, "moduleId of a booking cannot be changed")
	}
	if req.TeacherID != nil {
		entry.TeacherID = *req.TeacherID
	}
	if req.RoomID != nil {
		entry.RoomID = *req.RoomID
	}
	if req.Start != nil {
		hour, err := s.window.ParseHour(*req.Start)
		if err != nil {
			return entry, err
		}
		entry.Hour = hour
	}
	if req.End != nil {
		end, err := s.window.ParseHour(*req.End)
		if err != nil {
			return entry, err
		}
		if !end.Equal(entry.Hour.Add(time.Hour)) {
			return entry, validationReason(ReasonInvalidWindow, "a booking entry covers exactly one hour; end must be start plus one hour")
		}
	}
	return entry, nil
}

func (s *BookingService) ensureResources(ctx context.Context, cohortID, teacherID, roomID string) error {
	if _, err := s.catalog.FindCohort(ctx, cohortID); err != nil {
		return notFoundOr(err, "cohort not found", "failed to load cohort")
	}
	if _, err := s.catalog.FindTeacher(ctx, teacherID); err != nil {
		return notFoundOr(err, "teacher not found", "failed to load teacher")
	}
	if _, err := s.catalog.FindRoom(ctx, roomID); err != nil {
		return notFoundOr(err, "room not found", "failed to load room")
	}
	return nil
}

func (s *BookingService) ensureQualified(ctx context.Context, teacherID, moduleID string) error {
	ok, err := s.qualifications.IsQualified(ctx, teacherID, moduleID)
	if err != nil {
		return persistenceError(err, "failed to check teacher qualification")
	}
	if !ok {
		return validationReason(ReasonTeacherNotQualified, fmt.Sprintf("teacher %s is not qualified for module %s", teacherID, moduleID))
	}
	return nil
}

func (s *BookingService) commit(ctx context.Context, label string, write func(tx *sqlx.Tx) error) (err error) {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	started := time.Now()
	defer func() { s.metrics.ObserveDBQuery(label, time.Since(started)) }()

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = write(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// resolveCommitError turns a unique index violation raised by a concurrent writer back into a Conflict.
func (s *BookingService) resolveCommitError(ctx context.Context, err error, check WindowCheck) error {
	constraint, ok := database.UniqueViolation(err)
	if !ok {
		s.logger.Error("booking commit failed", zap.Error(err))
		return persistenceError(err, "failed to store booking")
	}
	if recheck := s.conflicts.CheckWindow(ctx, check); recheck != nil {
		return recheck
	}
	kind, known := repository.ResourceForConstraint(constraint)
	if !known {
		s.logger.Error("unexpected unique violation", zap.String("constraint", constraint), zap.Error(err))
		return persistenceError(err, "failed to store booking")
	}
	hour := sortedHours(check.Hours)[0]
	if collided, found := repository.ViolatedHour(err); found && containsHour(check.Hours, collided) {
		hour = collided
	}
	return conflictError(&models.BookingConflictError{Resource: kind, Hour: hour.In(s.window.Location())})
}

func containsHour(hours []time.Time, hour time.Time) bool {
	for _, h := range hours {
		if h.Equal(hour) {
			return true
		}
	}
	return false
}

func (s *BookingService) toEntries(entries []models.ScheduleEntry) []dto.BookingEntry {
	out := make([]dto.BookingEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, s.toEntry(e))
	}
	return out
}

func (s *BookingService) toEntry(e models.ScheduleEntry) dto.BookingEntry {
	return dto.BookingEntry{
		ID:        e.ID,
		CohortID:  e.CohortID,
		ModuleID:  e.ModuleID,
		TeacherID: e.TeacherID,
		RoomID:    e.RoomID,
		Hour:      s.window.Format(e.Hour),
	}
}

func notFoundOr(err error, notFound, failure string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return persistenceError(err, failure)
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	switch appErrors.FromError(err).Code {
	case appErrors.ErrConflict.Code:
		return OutcomeConflict
	case appErrors.ErrTierViolation.Code:
		return OutcomeTierViolation
	case appErrors.ErrOutOfHours.Code:
		return OutcomeOutOfHours
	case appErrors.ErrValidation.Code, appErrors.ErrNotFound.Code:
		return OutcomeRejected
	default:
		return OutcomeError
	}
}
