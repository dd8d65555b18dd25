package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/turma-scheduler/internal/models"
)

const planProgressQuery = `SELECT p.cohort_id, p.module_id, m.name AS module_name, p.tier_index,
	m.target_duration_hours AS target_duration,
	COUNT(e.id) AS total_scheduled,
	COUNT(e.id) FILTER (WHERE e.hour_ts <= $2) AS hours_taught
	FROM cohort_module_plans p
	JOIN curriculum_modules m ON m.id = p.module_id AND m.deleted = FALSE
	LEFT JOIN schedule_entries e ON e.cohort_id = p.cohort_id AND e.module_id = p.module_id
	WHERE p.cohort_id = $1 AND p.deleted = FALSE`

// CurriculumRepository reads cohort plans and aggregates their scheduled and taught hours.
type CurriculumRepository struct {
	db *sqlx.DB
}

// NewCurriculumRepository constructs a CurriculumRepository.
func NewCurriculumRepository(db *sqlx.DB) *CurriculumRepository {
	return &CurriculumRepository{db: db}
}

// ListPlanProgress returns one progress row per undeleted plan row, ordered by tier then module name.
// Entries with hour <= now count as taught.
func (r *CurriculumRepository) ListPlanProgress(ctx context.Context, cohortID string, now time.Time) ([]models.ModuleProgress, error) {
	query := planProgressQuery + `
	GROUP BY p.cohort_id, p.module_id, m.name, p.tier_index, m.target_duration_hours
	ORDER BY p.tier_index ASC, m.name ASC`
	progress := make([]models.ModuleProgress, 0)
	if err := r.db.SelectContext(ctx, &progress, query, cohortID, now); err != nil {
		return nil, fmt.Errorf("list plan progress: %w", err)
	}
	return progress, nil
}

// GetProgress returns the progress of a single planned module. sql.ErrNoRows means the module is not in the plan.
func (r *CurriculumRepository) GetProgress(ctx context.Context, cohortID, moduleID string, now time.Time) (*models.ModuleProgress, error) {
	query := planProgressQuery + ` AND p.module_id = $3
	GROUP BY p.cohort_id, p.module_id, m.name, p.tier_index, m.target_duration_hours`
	var progress models.ModuleProgress
	if err := r.db.GetContext(ctx, &progress, query, cohortID, now, moduleID); err != nil {
		return nil, err
	}
	return &progress, nil
}
