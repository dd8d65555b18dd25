package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/turma-scheduler/internal/dto"
	"github.com/noah-isme/turma-scheduler/internal/models"
	appErrors "github.com/noah-isme/turma-scheduler/pkg/errors"
)

func suggestionQuery(cohortID string, from, to int) dto.SuggestionQuery {
	return dto.SuggestionQuery{CohortID: cohortID, Start: stamp(from), End: stamp(to)}
}

func pairs(items []dto.Suggestion) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		out = append(out, s.TeacherID+"/"+s.ModuleID)
	}
	return out
}

func TestSuggestRanksLowestIncompleteTier(t *testing.T) {
	f := newSchedulingFixture(t)
	f.store.setAvailable("teacher-t", 9, 11, true)
	f.store.setAvailable("teacher-u", 9, 11, true)

	items, hit, err := f.suggestions.Suggest(context.Background(), suggestionQuery("cohort-1", 9, 11))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"teacher-t/m-5", "teacher-u/m-5", "teacher-t/m-6"}, pairs(items))

	first := items[0]
	assert.Equal(t, "Tomas", first.TeacherName)
	assert.Equal(t, "Networks", first.ModuleName)
	assert.Equal(t, 1, first.TierIndex)
	assert.Equal(t, 0, first.HoursCompleted)
	assert.Equal(t, 20, first.TotalDuration)
	assert.Equal(t, 20, first.RemainingToSchedule)
	for _, item := range items {
		assert.Equal(t, 1, item.TierIndex)
	}
}

func TestSuggestExcludesUnavailableAndBusyTeachers(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()
	f.store.setAvailable("teacher-t", 9, 11, true)
	f.store.setAvailable("teacher-u", 9, 10, true)

	items, _, err := f.suggestions.Suggest(ctx, suggestionQuery("cohort-1", 9, 11))
	require.NoError(t, err)
	assert.Equal(t, []string{"teacher-t/m-5", "teacher-t/m-6"}, pairs(items))

	f.store.entries = append(f.store.entries, models.ScheduleEntry{ID: "busy", CohortID: "cohort-2", ModuleID: "m-5", TeacherID: "teacher-t", RoomID: "room-4", Hour: at(10)})
	items, _, err = f.suggestions.Suggest(ctx, suggestionQuery("cohort-1", 9, 11))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSuggestSkipsModulesWithNothingLeftToSchedule(t *testing.T) {
	f := newSchedulingFixture(t)
	f.store.setAvailable("teacher-t", 9, 11, true)
	f.store.plans["cohort-1"][2].target = 2
	f.store.entries = append(f.store.entries,
		models.ScheduleEntry{ID: "os-1", CohortID: "cohort-1", ModuleID: "m-6", TeacherID: "teacher-t", RoomID: "room-3", Hour: time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC)},
		models.ScheduleEntry{ID: "os-2", CohortID: "cohort-1", ModuleID: "m-6", TeacherID: "teacher-t", RoomID: "room-3", Hour: time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC)},
	)

	items, _, err := f.suggestions.Suggest(context.Background(), suggestionQuery("cohort-1", 9, 11))
	require.NoError(t, err)
	assert.Equal(t, []string{"teacher-t/m-5"}, pairs(items))
}

func TestSuggestEmptyWhenPlanComplete(t *testing.T) {
	f := newSchedulingFixture(t)
	f.store.setAvailable("teacher-t", 9, 11, true)
	f.store.plans["cohort-2"][0].target = 0

	items, _, err := f.suggestions.Suggest(context.Background(), suggestionQuery("cohort-2", 9, 11))
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	items, _, err = f.suggestions.Suggest(context.Background(), suggestionQuery("cohort-unknown", 9, 11))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSuggestRejectsBadWindows(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()

	_, _, err := f.suggestions.Suggest(ctx, suggestionQuery("cohort-1", 7, 9))
	requireCode(t, err, appErrors.ErrOutOfHours)

	_, _, err = f.suggestions.Suggest(ctx, suggestionQuery("cohort-1", 7, 23))
	requireCode(t, err, appErrors.ErrOutOfHours)

	_, _, err = f.suggestions.Suggest(ctx, suggestionQuery("cohort-1", 11, 9))
	requireCode(t, err, appErrors.ErrValidation)

	_, _, err = f.suggestions.Suggest(ctx, dto.SuggestionQuery{Start: stamp(9), End: stamp(11)})
	requireCode(t, err, appErrors.ErrValidation)
}

func TestSuggestCacheHitsAndInvalidation(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()
	f.store.setAvailable("teacher-t", 9, 11, true)
	f.store.setAvailable("teacher-u", 9, 11, true)

	cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	progress := NewProgressService(f.store, cache, time.Minute, nil, nil)
	progress.now = f.progress.now
	availability := NewAvailabilityService(f.store, cache, time.Minute, f.window, nil, nil)
	metrics := NewMetricsService()
	svc := NewSuggestionService(progress, f.store, f.store, availability, f.window, metrics, nil, nil)

	items, hit, err := svc.Suggest(ctx, suggestionQuery("cohort-1", 9, 11))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, items, 3)

	items, hit, err = svc.Suggest(ctx, suggestionQuery("cohort-1", 9, 11))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, items, 3)

	unavailable := false
	_, err = availability.SetAvailable(ctx, dto.SetAvailabilityRequest{TeacherID: "teacher-u", Hour: stamp(10), Available: &unavailable})
	require.NoError(t, err)

	items, hit, err = svc.Suggest(ctx, suggestionQuery("cohort-1", 9, 11))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"teacher-t/m-5", "teacher-t/m-6"}, pairs(items))

	progress.InvalidateCohort(ctx, "cohort-1")
	_, hit, err = svc.Suggest(ctx, suggestionQuery("cohort-1", 9, 11))
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRankSuggestions(t *testing.T) {
	items := []dto.Suggestion{
		{TeacherID: "t2", TeacherName: "Bea", ModuleID: "m1", ModuleName: "Alpha", TierIndex: 1, RemainingToSchedule: 5},
		{TeacherID: "t1", TeacherName: "Ana", ModuleID: "m2", ModuleName: "Beta", TierIndex: 1, RemainingToSchedule: 5},
		{TeacherID: "t1", TeacherName: "Ana", ModuleID: "m1", ModuleName: "Alpha", TierIndex: 1, RemainingToSchedule: 5},
		{TeacherID: "t3", TeacherName: "Caio", ModuleID: "m3", ModuleName: "Gamma", TierIndex: 1, RemainingToSchedule: 9},
		{TeacherID: "t0", TeacherName: "Ana", ModuleID: "m1", ModuleName: "Alpha", TierIndex: 1, RemainingToSchedule: 5},
	}

	rankSuggestions(items)

	assert.Equal(t, []string{"t3/m3", "t0/m1", "t1/m1", "t1/m2", "t2/m1"}, pairs(items))
}
