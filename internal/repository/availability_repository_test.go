package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/turma-scheduler/internal/models"
)

const availabilitySelect = "SELECT id, teacher_id, hour_ts, available, updated_at FROM teacher_availability WHERE teacher_id = $1 AND hour_ts >= $2 AND hour_ts < $3 ORDER BY hour_ts ASC"

func newSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

func TestAvailabilityRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)
	hour := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO teacher_availability .* ON CONFLICT \\(teacher_id, hour_ts\\) DO UPDATE").
		WithArgs(sqlmock.AnyArg(), "teacher-1", hour, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	slot := &models.TeacherAvailabilitySlot{TeacherID: "teacher-1", Hour: hour, Available: true}
	require.NoError(t, repo.Upsert(context.Background(), slot))
	assert.NotEmpty(t, slot.ID)
	assert.False(t, slot.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryQueryRange(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)
	start := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)

	rows := sqlmock.NewRows([]string{"id", "teacher_id", "hour_ts", "available", "updated_at"}).
		AddRow("a-1", "teacher-1", start, true, start).
		AddRow("a-2", "teacher-1", start.Add(time.Hour), false, start)
	mock.ExpectQuery(regexp.QuoteMeta(availabilitySelect)).
		WithArgs("teacher-1", start, end).
		WillReturnRows(rows)

	slots, err := repo.QueryRange(context.Background(), "teacher-1", start, end)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.True(t, slots[0].Available)
	assert.False(t, slots[1].Available)
	assert.Equal(t, start.Add(time.Hour), slots[1].Hour)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryStreamStopsEarly(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)
	start := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)

	rows := sqlmock.NewRows([]string{"id", "teacher_id", "hour_ts", "available", "updated_at"}).
		AddRow("a-1", "teacher-1", start, false, start).
		AddRow("a-2", "teacher-1", start.Add(time.Hour), true, start)
	mock.ExpectQuery(regexp.QuoteMeta(availabilitySelect)).
		WithArgs("teacher-1", start, end).
		WillReturnRows(rows)

	visited := 0
	err := repo.StreamRange(context.Background(), "teacher-1", start, end, func(slot models.TeacherAvailabilitySlot) bool {
		visited++
		return slot.Available
	})
	require.NoError(t, err)
	assert.Equal(t, 1, visited)
	assert.NoError(t, mock.ExpectationsWereMet())
}
