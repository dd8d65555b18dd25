package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/turma-scheduler/internal/dto"
	"github.com/noah-isme/turma-scheduler/internal/models"
	appErrors "github.com/noah-isme/turma-scheduler/pkg/errors"
)

type availabilityRepository interface {
	Upsert(ctx context.Context, slot *models.TeacherAvailabilitySlot) error
	StreamRange(ctx context.Context, teacherID string, start, end time.Time, visit func(models.TeacherAvailabilitySlot) bool) error
	QueryRange(ctx context.Context, teacherID string, start, end time.Time) ([]models.TeacherAvailabilitySlot, error)
}

// AvailabilityService records and answers per-hour teacher availability.
// Hours without a stored slot are unknown and count as unavailable.
type AvailabilityService struct {
	repo      availabilityRepository
	cache     *CacheService
	cacheTTL  time.Duration
	window    *SchedulingWindow
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs the service. cache may be nil.
func NewAvailabilityService(repo availabilityRepository, cache *CacheService, cacheTTL time.Duration, window *SchedulingWindow, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, cache: cache, cacheTTL: cacheTTL, window: window, validator: validate, logger: logger}
}

// SetAvailable upserts one slot. Repeating the call with the same input is a no-op.
func (s *AvailabilityService) SetAvailable(ctx context.Context, req dto.SetAvailabilityRequest) (*dto.AvailabilitySlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	hour, err := s.window.ParseHour(req.Hour)
	if err != nil {
		return nil, err
	}

	slot := &models.TeacherAvailabilitySlot{TeacherID: req.TeacherID, Hour: hour, Available: *req.Available}
	if err := s.repo.Upsert(ctx, slot); err != nil {
		return nil, persistenceError(err, "failed to store availability")
	}
	_ = s.cache.Invalidate(ctx, availabilityCachePattern(req.TeacherID))

	s.logger.Debug("availability set",
		zap.String("teacher_id", req.TeacherID),
		zap.Time("hour", hour),
		zap.Bool("available", slot.Available),
	)
	return &dto.AvailabilitySlot{Hour: s.window.Format(hour), Available: slot.Available}, nil
}

// QueryRange lists stored slots in [start, end) from the database.
func (s *AvailabilityService) QueryRange(ctx context.Context, query dto.AvailabilityQuery) ([]dto.AvailabilitySlot, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}
	start, end, err := s.window.ParseRange(query.Start, query.End)
	if err != nil {
		return nil, err
	}

	result := make([]dto.AvailabilitySlot, 0)
	err = s.repo.StreamRange(ctx, query.TeacherID, start, end, func(slot models.TeacherAvailabilitySlot) bool {
		result = append(result, dto.AvailabilitySlot{Hour: s.window.Format(slot.Hour), Available: slot.Available})
		return true
	})
	if err != nil {
		return nil, persistenceError(err, "failed to read availability")
	}
	return result, nil
}

// AllAvailable reports whether every hour has a stored available slot.
func (s *AvailabilityService) AllAvailable(ctx context.Context, teacherID string, hours []time.Time) (bool, error) {
	_, found, err := s.FirstUnavailable(ctx, teacherID, hours)
	if err != nil {
		return false, err
	}
	return !found, nil
}

// FirstUnavailable returns the earliest hour that is unknown or marked unavailable.
// The slot stream is abandoned as soon as that hour is known.
func (s *AvailabilityService) FirstUnavailable(ctx context.Context, teacherID string, hours []time.Time) (time.Time, bool, error) {
	if len(hours) == 0 {
		return time.Time{}, false, nil
	}
	ordered := sortedHours(hours)
	from, to := ordered[0], ordered[len(ordered)-1].Add(time.Hour)

	next := 0
	var missing time.Time
	found := false
	err := s.repo.StreamRange(ctx, teacherID, from, to, func(slot models.TeacherAvailabilitySlot) bool {
		missing, found, next = scanSlot(ordered, next, slot)
		return !found && next < len(ordered)
	})
	if err != nil {
		return time.Time{}, false, persistenceError(err, "failed to read availability")
	}
	if !found && next < len(ordered) {
		return ordered[next], true, nil
	}
	return missing, found, nil
}

// CachedAllAvailable answers AllAvailable from cached slot lists when possible.
// The second return value reports whether the cache served the lookup.
func (s *AvailabilityService) CachedAllAvailable(ctx context.Context, teacherID string, hours []time.Time) (bool, bool, error) {
	if !s.cache.Enabled() || len(hours) == 0 {
		ok, err := s.AllAvailable(ctx, teacherID, hours)
		return ok, false, err
	}
	ordered := sortedHours(hours)
	from, to := ordered[0], ordered[len(ordered)-1].Add(time.Hour)
	key := availabilityCacheKey(teacherID, from, to)

	var slots []models.TeacherAvailabilitySlot
	hit, err := s.cache.Get(ctx, key, &slots)
	if err != nil || !hit {
		slots, err = s.repo.QueryRange(ctx, teacherID, from, to)
		if err != nil {
			return false, false, persistenceError(err, "failed to read availability")
		}
		_ = s.cache.Set(ctx, key, slots, s.cacheTTL)
		hit = false
	}

	next := 0
	for _, slot := range slots {
		var found bool
		_, found, next = scanSlot(ordered, next, slot)
		if found {
			return false, hit, nil
		}
		if next == len(ordered) {
			break
		}
	}
	return next == len(ordered), hit, nil
}

// scanSlot advances through ordered hours with the next ascending slot.
// It reports the first hour proven unavailable, either explicitly or because the slot skipped past it.
func scanSlot(ordered []time.Time, next int, slot models.TeacherAvailabilitySlot) (time.Time, bool, int) {
	if next < len(ordered) && ordered[next].Before(slot.Hour) {
		return ordered[next], true, next
	}
	if next < len(ordered) && ordered[next].Equal(slot.Hour) {
		if !slot.Available {
			return ordered[next], true, next
		}
		next++
	}
	return time.Time{}, false, next
}
