package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/turma-scheduler/internal/models"
)

// CatalogRepository reads the roster and catalog rows owned by other services.
// Deleted or inactive rows are filtered out and surface as sql.ErrNoRows.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs a CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindTeacher fetches an active teacher by ID.
func (r *CatalogRepository) FindTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, full_name, active FROM teachers WHERE id = $1 AND active = TRUE`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindRoom fetches an undeleted room by ID.
func (r *CatalogRepository) FindRoom(ctx context.Context, id string) (*models.Room, error) {
	const query = `SELECT id, name, has_pcs, has_workshop, deleted FROM rooms WHERE id = $1 AND deleted = FALSE`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// FindCohort fetches an undeleted cohort with its course name.
func (r *CatalogRepository) FindCohort(ctx context.Context, id string) (*models.Cohort, error) {
	const query = `SELECT c.id, c.course_id, COALESCE(co.name, '') AS course_name, c.date_start, c.date_end, c.deleted
		FROM cohorts c
		LEFT JOIN courses co ON co.id = c.course_id
		WHERE c.id = $1 AND c.deleted = FALSE`
	var cohort models.Cohort
	if err := r.db.GetContext(ctx, &cohort, query, id); err != nil {
		return nil, err
	}
	return &cohort, nil
}
