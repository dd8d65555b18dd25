package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/turma-scheduler/internal/models"
)

// QualificationRepository reads which teachers may teach which modules.
type QualificationRepository struct {
	db *sqlx.DB
}

// NewQualificationRepository constructs a QualificationRepository.
func NewQualificationRepository(db *sqlx.DB) *QualificationRepository {
	return &QualificationRepository{db: db}
}

// ListByModules returns active teachers qualified for any of moduleIDs, names joined.
func (r *QualificationRepository) ListByModules(ctx context.Context, moduleIDs []string) ([]models.QualifiedTeacher, error) {
	if len(moduleIDs) == 0 {
		return []models.QualifiedTeacher{}, nil
	}
	query, args, err := sqlx.In(`SELECT q.teacher_id, t.full_name AS teacher_name, q.module_id
		FROM teacher_qualifications q
		JOIN teachers t ON t.id = q.teacher_id AND t.active = TRUE
		WHERE q.module_id IN (?)
		ORDER BY t.full_name ASC, q.module_id ASC`, moduleIDs)
	if err != nil {
		return nil, fmt.Errorf("build qualification query: %w", err)
	}
	query = r.db.Rebind(query)

	qualified := make([]models.QualifiedTeacher, 0)
	if err := r.db.SelectContext(ctx, &qualified, query, args...); err != nil {
		return nil, fmt.Errorf("list qualified teachers: %w", err)
	}
	return qualified, nil
}

// IsQualified reports whether the teacher holds a qualification for the module.
func (r *QualificationRepository) IsQualified(ctx context.Context, teacherID, moduleID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM teacher_qualifications WHERE teacher_id = $1 AND module_id = $2)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, teacherID, moduleID); err != nil {
		return false, fmt.Errorf("check teacher qualification: %w", err)
	}
	return ok, nil
}
