package models

import (
	"fmt"
	"time"
)

// ResourceKind names the dimension a booking can collide on.
type ResourceKind string

const (
	ResourceTeacher ResourceKind = "TEACHER"
	ResourceRoom    ResourceKind = "ROOM"
	ResourceCohort  ResourceKind = "COHORT"
)

// NoTier is returned when every tier of a cohort plan is fully taught.
const NoTier = -1

// ModuleProgress is the (target, scheduled, taught) triple of one cohort/module pair.
type ModuleProgress struct {
	CohortID       string `db:"cohort_id" json:"cohortId"`
	ModuleID       string `db:"module_id" json:"moduleId"`
	ModuleName     string `db:"module_name" json:"moduleName"`
	TierIndex      int    `db:"tier_index" json:"tierIndex"`
	TargetDuration int    `db:"target_duration" json:"targetDuration"`
	TotalScheduled int    `db:"total_scheduled" json:"totalScheduled"`
	HoursTaught    int    `db:"hours_taught" json:"hoursTaught"`
}

// RemainingToSchedule may be negative when a module is over-booked.
func (p ModuleProgress) RemainingToSchedule() int {
	return p.TargetDuration - p.TotalScheduled
}

// RemainingToTeach may be negative when more hours were taught than planned.
func (p ModuleProgress) RemainingToTeach() int {
	return p.TargetDuration - p.HoursTaught
}

// Complete reports whether all target hours have been taught.
func (p ModuleProgress) Complete() bool {
	return p.HoursTaught >= p.TargetDuration
}

// BookingConflictError reports the first occupied resource/hour of a requested window.
type BookingConflictError struct {
	Resource        ResourceKind `json:"resource"`
	Hour            time.Time    `json:"hour"`
	ConflictEntryID string       `json:"conflictEntryId,omitempty"`
	Unavailable     bool         `json:"unavailable,omitempty"`
}

// Error implements the error interface.
func (e *BookingConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Unavailable {
		return fmt.Sprintf("teacher not available at %s", e.Hour.Format(time.RFC3339))
	}
	return fmt.Sprintf("%s already occupied at %s", e.Resource, e.Hour.Format(time.RFC3339))
}

// TierViolationError reports a module requested ahead of the cohort's current tier.
type TierViolationError struct {
	ModuleID     string `json:"moduleId"`
	ModuleTier   int    `json:"moduleTier"`
	RequiredTier int    `json:"requiredTier"`
}

// Error implements the error interface.
func (e *TierViolationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.RequiredTier == NoTier {
		return fmt.Sprintf("module %s cannot be scheduled: every tier is complete", e.ModuleID)
	}
	return fmt.Sprintf("module %s is in tier %d but tier %d is not complete", e.ModuleID, e.ModuleTier, e.RequiredTier)
}
