package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/turma-scheduler/internal/models"
	appErrors "github.com/noah-isme/turma-scheduler/pkg/errors"
)

type occupancyRepository interface {
	IsOccupied(ctx context.Context, kind models.ResourceKind, id string, hour time.Time) (bool, error)
	FindOccupying(ctx context.Context, teacherID, roomID, cohortID string, from, to time.Time) ([]models.ScheduleEntry, error)
}

type availabilityLookup interface {
	FirstUnavailable(ctx context.Context, teacherID string, hours []time.Time) (time.Time, bool, error)
}

// WindowCheck describes the resources a booking wants to hold for a set of hours.
type WindowCheck struct {
	TeacherID      string
	RoomID         string
	CohortID       string
	Hours          []time.Time
	ExcludeEntryID string
}

// ConflictChecker answers whether teachers, rooms and cohorts are free at given hours.
type ConflictChecker struct {
	entries      occupancyRepository
	availability availabilityLookup
	window       *SchedulingWindow
	logger       *zap.Logger
}

// NewConflictChecker constructs a ConflictChecker.
func NewConflictChecker(entries occupancyRepository, availability availabilityLookup, window *SchedulingWindow, logger *zap.Logger) *ConflictChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictChecker{entries: entries, availability: availability, window: window, logger: logger}
}

// IsFree reports whether no entry holds the resource at hour.
func (c *ConflictChecker) IsFree(ctx context.Context, kind models.ResourceKind, id string, hour time.Time) (bool, error) {
	occupied, err := c.entries.IsOccupied(ctx, kind, id, hour)
	if err != nil {
		return false, persistenceError(err, "failed to check occupancy")
	}
	return !occupied, nil
}

// CheckWindow returns nil when every hour can be booked. Otherwise it returns OutOfHours or the
// first Conflict found scanning hours ascending and, per hour, cohort, teacher, room then availability.
func (c *ConflictChecker) CheckWindow(ctx context.Context, check WindowCheck) error {
	if len(check.Hours) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "booking window is empty")
	}
	hours := sortedHours(check.Hours)
	if err := c.window.CheckOperating(hours); err != nil {
		return err
	}

	occupying, err := c.entries.FindOccupying(ctx, check.TeacherID, check.RoomID, check.CohortID, hours[0], hours[len(hours)-1])
	if err != nil {
		return persistenceError(err, "failed to check occupancy")
	}
	unavailableAt, unavailable, err := c.availability.FirstUnavailable(ctx, check.TeacherID, hours)
	if err != nil {
		return err
	}

	held := make(map[models.ResourceKind]map[int64]string, 3)
	for _, kind := range []models.ResourceKind{models.ResourceCohort, models.ResourceTeacher, models.ResourceRoom} {
		held[kind] = make(map[int64]string)
	}
	for _, entry := range occupying {
		if entry.ID == check.ExcludeEntryID {
			continue
		}
		at := entry.Hour.Unix()
		if entry.CohortID == check.CohortID {
			held[models.ResourceCohort][at] = entry.ID
		}
		if entry.TeacherID == check.TeacherID {
			held[models.ResourceTeacher][at] = entry.ID
		}
		if entry.RoomID == check.RoomID {
			held[models.ResourceRoom][at] = entry.ID
		}
	}

	for _, hour := range hours {
		for _, kind := range []models.ResourceKind{models.ResourceCohort, models.ResourceTeacher, models.ResourceRoom} {
			if entryID, ok := held[kind][hour.Unix()]; ok {
				return c.conflict(kind, hour, entryID, false)
			}
		}
		if unavailable && unavailableAt.Equal(hour) {
			return c.conflict(models.ResourceTeacher, hour, "", true)
		}
	}
	return nil
}

func (c *ConflictChecker) conflict(kind models.ResourceKind, hour time.Time, entryID string, unavailable bool) error {
	c.logger.Debug("booking conflict",
		zap.String("resource", string(kind)),
		zap.Time("hour", hour),
		zap.String("conflict_entry_id", entryID),
		zap.Bool("unavailable", unavailable),
	)
	return conflictError(&models.BookingConflictError{
		Resource:        kind,
		Hour:            hour.In(c.window.Location()),
		ConflictEntryID: entryID,
		Unavailable:     unavailable,
	})
}
