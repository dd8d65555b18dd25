package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/turma-scheduler/internal/models"
	appErrors "github.com/noah-isme/turma-scheduler/pkg/errors"
)

type cohortProgressReader interface {
	CohortProgress(ctx context.Context, cohortID string) ([]models.ModuleProgress, error)
}

// LowestIncompleteTier returns the smallest tier holding a module with hoursTaught below target,
// or models.NoTier when every planned module is fully taught.
func LowestIncompleteTier(progress []models.ModuleProgress) int {
	lowest := models.NoTier
	for _, p := range progress {
		if p.Complete() {
			continue
		}
		if lowest == models.NoTier || p.TierIndex < lowest {
			lowest = p.TierIndex
		}
	}
	return lowest
}

// TierGate decides which modules of a cohort plan may currently be booked.
type TierGate struct {
	progress cohortProgressReader
}

// NewTierGate constructs a TierGate reading fresh progress.
func NewTierGate(progress cohortProgressReader) *TierGate {
	return &TierGate{progress: progress}
}

// LowestIncompleteTier loads the cohort plan and returns its current tier.
func (g *TierGate) LowestIncompleteTier(ctx context.Context, cohortID string) (int, error) {
	progress, err := g.progress.CohortProgress(ctx, cohortID)
	if err != nil {
		return models.NoTier, err
	}
	return LowestIncompleteTier(progress), nil
}

// IsBookable reports whether the module sits in the cohort's lowest incomplete tier.
func (g *TierGate) IsBookable(ctx context.Context, cohortID, moduleID string) (bool, error) {
	err := g.Check(ctx, cohortID, moduleID)
	if err == nil {
		return true, nil
	}
	var violation *models.TierViolationError
	if errors.As(err, &violation) || errors.Is(err, appErrors.ErrValidation) {
		return false, nil
	}
	return false, err
}

// Check returns a ValidationError when the module is not planned for the cohort
// and a TierViolation when its tier is not the current one.
func (g *TierGate) Check(ctx context.Context, cohortID, moduleID string) error {
	progress, err := g.progress.CohortProgress(ctx, cohortID)
	if err != nil {
		return err
	}

	var module *models.ModuleProgress
	for i := range progress {
		if progress[i].ModuleID == moduleID {
			module = &progress[i]
			break
		}
	}
	if module == nil {
		return validationReason(ReasonModuleNotInPlan, fmt.Sprintf("module %s is not part of the cohort plan", moduleID))
	}

	required := LowestIncompleteTier(progress)
	if module.TierIndex != required {
		return tierViolationError(&models.TierViolationError{
			ModuleID:     moduleID,
			ModuleTier:   module.TierIndex,
			RequiredTier: required,
		})
	}
	return nil
}
