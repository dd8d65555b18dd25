package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/turma-scheduler/internal/dto"
	"github.com/noah-isme/turma-scheduler/internal/models"
	appErrors "github.com/noah-isme/turma-scheduler/pkg/errors"
)

type progressRepository interface {
	ListPlanProgress(ctx context.Context, cohortID string, now time.Time) ([]models.ModuleProgress, error)
	GetProgress(ctx context.Context, cohortID, moduleID string, now time.Time) (*models.ModuleProgress, error)
}

// ProgressService tracks target, scheduled and taught hours per cohort module.
type ProgressService struct {
	repo      progressRepository
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewProgressService constructs the service. cache may be nil.
func NewProgressService(repo progressRepository, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ProgressService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger, now: time.Now}
}

// GetProgress returns the counters of a single planned module.
func (s *ProgressService) GetProgress(ctx context.Context, cohortID, moduleID string) (*models.ModuleProgress, error) {
	progress, err := s.repo.GetProgress(ctx, cohortID, moduleID, s.now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module is not part of the cohort plan")
		}
		return nil, persistenceError(err, "failed to load module progress")
	}
	return progress, nil
}

// CohortProgress returns fresh counters for every undeleted module of the cohort plan.
func (s *ProgressService) CohortProgress(ctx context.Context, cohortID string) ([]models.ModuleProgress, error) {
	progress, err := s.repo.ListPlanProgress(ctx, cohortID, s.now().UTC())
	if err != nil {
		return nil, persistenceError(err, "failed to load cohort progress")
	}
	return progress, nil
}

// CachedCohortProgress serves CohortProgress from cache when enabled. The boolean reports a cache hit.
func (s *ProgressService) CachedCohortProgress(ctx context.Context, cohortID string) ([]models.ModuleProgress, bool, error) {
	key := progressCacheKey(cohortID)
	var cached []models.ModuleProgress
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}

	progress, err := s.CohortProgress(ctx, cohortID)
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Set(ctx, key, progress, s.cacheTTL)
	return progress, false, nil
}

// InvalidateCohort drops the cached progress of a cohort after a booking write.
func (s *ProgressService) InvalidateCohort(ctx context.Context, cohortID string) {
	if err := s.cache.Delete(ctx, progressCacheKey(cohortID)); err != nil {
		s.logger.Warn("progress cache invalidation failed", zap.String("cohort_id", cohortID), zap.Error(err))
	}
}

// Report builds the progress response for a cohort, optionally narrowed to one module.
func (s *ProgressService) Report(ctx context.Context, query dto.ProgressQuery) (*dto.CohortProgress, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid progress query")
	}

	all, err := s.CohortProgress(ctx, query.CohortID)
	if err != nil {
		return nil, err
	}
	report := &dto.CohortProgress{CohortID: query.CohortID, Modules: make([]dto.ModuleProgress, 0, len(all))}
	if tier := LowestIncompleteTier(all); tier != models.NoTier {
		report.CurrentTier = &tier
	}

	for _, p := range all {
		if query.ModuleID != "" && p.ModuleID != query.ModuleID {
			continue
		}
		report.Modules = append(report.Modules, toProgressDTO(p))
	}
	if query.ModuleID != "" && len(report.Modules) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "module is not part of the cohort plan")
	}
	return report, nil
}

func toProgressDTO(p models.ModuleProgress) dto.ModuleProgress {
	return dto.ModuleProgress{
		ModuleID:            p.ModuleID,
		ModuleName:          p.ModuleName,
		TierIndex:           p.TierIndex,
		TargetDuration:      p.TargetDuration,
		TotalScheduled:      p.TotalScheduled,
		HoursTaught:         p.HoursTaught,
		RemainingToSchedule: p.RemainingToSchedule(),
		RemainingToTeach:    p.RemainingToTeach(),
	}
}
