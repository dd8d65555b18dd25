package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRepositoryFindTeacher(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, active FROM teachers WHERE id = $1 AND active = TRUE")).
		WithArgs("teacher-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "active"}).AddRow("teacher-1", "Ana", true))

	teacher, err := repo.FindTeacher(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", teacher.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryDeletedRoomIsNotFound(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectQuery("FROM rooms WHERE id = \\$1 AND deleted = FALSE").
		WithArgs("room-gone").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindRoom(context.Background(), "room-gone")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryFindCohort(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM cohorts c LEFT JOIN courses co .* WHERE c.id = \\$1 AND c.deleted = FALSE").
		WithArgs("cohort-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "course_name", "date_start", "date_end", "deleted"}).
			AddRow("cohort-1", "course-1", "IT Technician", start, start.AddDate(0, 6, 0), false))

	cohort, err := repo.FindCohort(context.Background(), "cohort-1")
	require.NoError(t, err)
	assert.Equal(t, "IT Technician", cohort.CourseName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
