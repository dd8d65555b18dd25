package service

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/turma-scheduler/internal/dto"
	"github.com/noah-isme/turma-scheduler/internal/models"
	appErrors "github.com/noah-isme/turma-scheduler/pkg/errors"
)

type cachedProgressReader interface {
	CachedCohortProgress(ctx context.Context, cohortID string) ([]models.ModuleProgress, bool, error)
}

type qualificationRepository interface {
	ListByModules(ctx context.Context, moduleIDs []string) ([]models.QualifiedTeacher, error)
}

type busyTeacherRepository interface {
	ListTeachersBusy(ctx context.Context, teacherIDs []string, from, to time.Time) ([]string, error)
}

type cachedAvailabilityReader interface {
	CachedAllAvailable(ctx context.Context, teacherID string, hours []time.Time) (bool, bool, error)
}

// SuggestionService ranks (teacher, module) pairs able to fill a cohort window.
// Results are advisory; bookings re-validate everything.
type SuggestionService struct {
	progress       cachedProgressReader
	qualifications qualificationRepository
	entries        busyTeacherRepository
	availability   cachedAvailabilityReader
	window         *SchedulingWindow
	metrics        *MetricsService
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewSuggestionService constructs a SuggestionService.
func NewSuggestionService(
	progress cachedProgressReader,
	qualifications qualificationRepository,
	entries busyTeacherRepository,
	availability cachedAvailabilityReader,
	window *SchedulingWindow,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *SuggestionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestionService{
		progress:       progress,
		qualifications: qualifications,
		entries:        entries,
		availability:   availability,
		window:         window,
		metrics:        metrics,
		validator:      validate,
		logger:         logger,
	}
}

// Suggest returns candidates for [start, end). The boolean reports whether every read was served from cache.
func (s *SuggestionService) Suggest(ctx context.Context, query dto.SuggestionQuery) ([]dto.Suggestion, bool, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid suggestion query")
	}
	start, end, err := s.window.ParseRange(query.Start, query.End)
	if err != nil {
		return nil, false, err
	}
	if err := s.window.CheckSpan(start, end); err != nil {
		return nil, false, err
	}
	hours, err := s.window.Hours(start, end)
	if err != nil {
		return nil, false, err
	}

	progress, cacheHit, err := s.progress.CachedCohortProgress(ctx, query.CohortID)
	if err != nil {
		return nil, false, err
	}
	tier := LowestIncompleteTier(progress)
	if tier == models.NoTier {
		s.metrics.ObserveSuggestions(0)
		return []dto.Suggestion{}, cacheHit, nil
	}

	modules := make(map[string]models.ModuleProgress)
	moduleIDs := make([]string, 0)
	for _, p := range progress {
		if p.TierIndex == tier && p.RemainingToSchedule() > 0 {
			modules[p.ModuleID] = p
			moduleIDs = append(moduleIDs, p.ModuleID)
		}
	}
	if len(moduleIDs) == 0 {
		s.metrics.ObserveSuggestions(0)
		return []dto.Suggestion{}, cacheHit, nil
	}

	qualified, err := s.qualifications.ListByModules(ctx, moduleIDs)
	if err != nil {
		return nil, false, persistenceError(err, "failed to load qualified teachers")
	}

	teacherIDs := uniqueTeacherIDs(qualified)
	busyIDs, err := s.entries.ListTeachersBusy(ctx, teacherIDs, start, end)
	if err != nil {
		return nil, false, persistenceError(err, "failed to check teacher occupancy")
	}
	busy := make(map[string]struct{}, len(busyIDs))
	for _, id := range busyIDs {
		busy[id] = struct{}{}
	}

	eligible := make(map[string]bool, len(teacherIDs))
	for _, teacherID := range teacherIDs {
		if _, taken := busy[teacherID]; taken {
			eligible[teacherID] = false
			continue
		}
		ok, hit, err := s.availability.CachedAllAvailable(ctx, teacherID, hours)
		if err != nil {
			return nil, false, err
		}
		cacheHit = cacheHit && hit
		eligible[teacherID] = ok
	}

	suggestions := make([]dto.Suggestion, 0)
	for _, q := range qualified {
		if !eligible[q.TeacherID] {
			continue
		}
		module := modules[q.ModuleID]
		suggestions = append(suggestions, dto.Suggestion{
			TeacherID:           q.TeacherID,
			TeacherName:         q.TeacherName,
			ModuleID:            module.ModuleID,
			ModuleName:          module.ModuleName,
			TierIndex:           module.TierIndex,
			HoursCompleted:      module.HoursTaught,
			TotalDuration:       module.TargetDuration,
			RemainingToSchedule: module.RemainingToSchedule(),
		})
	}
	rankSuggestions(suggestions)

	s.metrics.ObserveSuggestions(len(suggestions))
	s.logger.Debug("suggestions computed",
		zap.String("cohort_id", query.CohortID),
		zap.Int("tier", tier),
		zap.Int("candidates", len(suggestions)),
		zap.Bool("cache_hit", cacheHit),
	)
	return suggestions, cacheHit, nil
}

// rankSuggestions orders by tier, then most hours still to schedule, then teacher name.
// Module name and ids break the remaining ties.
func rankSuggestions(items []dto.Suggestion) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.TierIndex != b.TierIndex {
			return a.TierIndex < b.TierIndex
		}
		if a.RemainingToSchedule != b.RemainingToSchedule {
			return a.RemainingToSchedule > b.RemainingToSchedule
		}
		if a.TeacherName != b.TeacherName {
			return a.TeacherName < b.TeacherName
		}
		if a.ModuleName != b.ModuleName {
			return a.ModuleName < b.ModuleName
		}
		if a.TeacherID != b.TeacherID {
			return a.TeacherID < b.TeacherID
		}
		return a.ModuleID < b.ModuleID
	})
}

func uniqueTeacherIDs(qualified []models.QualifiedTeacher) []string {
	seen := make(map[string]struct{}, len(qualified))
	ids := make([]string, 0, len(qualified))
	for _, q := range qualified {
		if _, ok := seen[q.TeacherID]; ok {
			continue
		}
		seen[q.TeacherID] = struct{}{}
		ids = append(ids, q.TeacherID)
	}
	return ids
}
