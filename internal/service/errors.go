package service

import (
	"github.com/noah-isme/turma-scheduler/internal/models"
	appErrors "github.com/noah-isme/turma-scheduler/pkg/errors"
)

// Validation reasons surfaced in error details.
const (
	ReasonModuleNotInPlan     = "MODULE_NOT_IN_PLAN"
	ReasonTeacherNotQualified = "TEACHER_NOT_QUALIFIED"
	ReasonImmutableField      = "IMMUTABLE_FIELD"
	ReasonInvalidWindow       = "INVALID_WINDOW"
	ReasonUnsupportedFormat   = "UNSUPPORTED_FORMAT"
)

func validationReason(reason, message string) *appErrors.Error {
	err := appErrors.Clone(appErrors.ErrValidation, message)
	err.Details = map[string]string{"reason": reason}
	return err
}

func conflictError(conflict *models.BookingConflictError) *appErrors.Error {
	return appErrors.WithDetails(appErrors.ErrConflict, conflict.Error(), conflict)
}

func tierViolationError(violation *models.TierViolationError) *appErrors.Error {
	return appErrors.WithDetails(appErrors.ErrTierViolation, violation.Error(), violation)
}

func persistenceError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, message)
}
