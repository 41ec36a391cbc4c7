// Package storetest holds the behaviour every domain.Repository must share.
// Store packages call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
)

// Factory returns a fresh, empty repository for one subtest.
type Factory func(t *testing.T) domain.Repository

// Run executes the contract suite against repositories built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("DuplicateNameRejected", func(t *testing.T) { testDuplicateName(t, newRepo(t)) })
	t.Run("OwnerScoping", func(t *testing.T) { testOwnerScoping(t, newRepo(t)) })
	t.Run("GetOrCreateIdempotent", func(t *testing.T) { testGetOrCreate(t, newRepo(t)) })
	t.Run("MissingActivityWritesNothing", func(t *testing.T) { testMissingActivity(t, newRepo(t)) })
	t.Run("FailedMutationWritesNothing", func(t *testing.T) { testFailedMutation(t, newRepo(t)) })
	t.Run("MutateLogAccumulates", func(t *testing.T) { testMutate(t, newRepo(t)) })
	t.Run("AggregateForPeriod", func(t *testing.T) { testAggregate(t, newRepo(t)) })
	t.Run("LogsForPeriodOrdered", func(t *testing.T) { testLogsForPeriod(t, newRepo(t)) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, newRepo(t)) })
}

const owner int64 = 4242

func day(raw string) time.Time {
	parsed, err := domain.ParseDay(raw)
	if err != nil {
		panic(err)
	}
	return parsed
}

func mustCreate(t *testing.T, repo domain.Repository, ownerID int64, name string, activityType domain.ActivityType) domain.Activity {
	t.Helper()
	candidate, err := domain.NewActivity(ownerID, name, activityType)
	require.NoError(t, err)
	created, err := repo.CreateActivity(context.Background(), candidate)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	return created
}

func noop(domain.Activity, *domain.ActivityLog) error {
	return nil
}

func testDuplicateName(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	svc := domain.NewService(repo)

	_, err := svc.CreateActivity(ctx, owner, "Reading", domain.ActivityTypeTime)
	require.NoError(t, err)

	_, err = svc.CreateActivity(ctx, owner, "Reading", domain.ActivityTypeCheckbox)
	require.ErrorIs(t, err, domain.ErrDuplicateName)

	candidate, err := domain.NewActivity(owner, "Reading", domain.ActivityTypeTime)
	require.NoError(t, err)
	_, err = repo.CreateActivity(ctx, candidate)
	require.ErrorIs(t, err, domain.ErrDuplicateName)

	activities, err := repo.ListActivities(ctx, owner)
	require.NoError(t, err)
	require.Len(t, activities, 1)

	_, err = svc.CreateActivity(ctx, owner, "reading", domain.ActivityTypeTime)
	require.NoError(t, err, "names are case-sensitive")
}

func testOwnerScoping(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	mine := mustCreate(t, repo, owner, "Run", domain.ActivityTypeCheckbox)
	theirs := mustCreate(t, repo, owner+1, "Run", domain.ActivityTypeCheckbox)
	require.NotEqual(t, mine.ID, theirs.ID)

	got, err := repo.GetActivity(ctx, owner+1, mine.ID)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = repo.GetActivity(ctx, owner, mine.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Run", got.Name)
	require.Equal(t, domain.ActivityTypeCheckbox, got.Type)

	_, _, err = repo.GetOrCreateLog(ctx, owner+1, mine.ID, day("2024-01-01"))
	require.ErrorIs(t, err, domain.ErrActivityNotFound)

	require.ErrorIs(t, repo.DeleteActivity(ctx, owner+1, mine.ID), domain.ErrActivityNotFound)
}

func testGetOrCreate(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	checkbox := mustCreate(t, repo, owner, "Meditate", domain.ActivityTypeCheckbox)
	timed := mustCreate(t, repo, owner, "Guitar", domain.ActivityTypeTime)
	date := day("2024-03-10")

	_, first, err := repo.GetOrCreateLog(ctx, owner, checkbox.ID, date)
	require.NoError(t, err)
	_, second, err := repo.GetOrCreateLog(ctx, owner, checkbox.ID, date)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.NotNil(t, first.ValueBool)
	require.False(t, *first.ValueBool)
	require.Nil(t, first.ValueMinutes)
	require.True(t, first.Date.Equal(date))

	_, timedLog, err := repo.GetOrCreateLog(ctx, owner, timed.ID, date)
	require.NoError(t, err)
	require.NotNil(t, timedLog.ValueMinutes)
	require.Equal(t, 0, *timedLog.ValueMinutes)
	require.Nil(t, timedLog.ValueBool)

	logs, err := repo.LogsForDay(ctx, owner, date)
	require.NoError(t, err)
	require.Len(t, logs, 2)
}

func testMissingActivity(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	date := day("2024-03-10")

	_, _, err := repo.GetOrCreateLog(ctx, owner, 99999, date)
	require.ErrorIs(t, err, domain.ErrActivityNotFound)

	_, _, err = repo.MutateLog(ctx, owner, 99999, date, noop)
	require.ErrorIs(t, err, domain.ErrActivityNotFound)

	logs, err := repo.LogsForPeriod(ctx, owner, day("2024-01-01"), day("2024-12-31"))
	require.NoError(t, err)
	require.Empty(t, logs)
}

func testFailedMutation(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	timed := mustCreate(t, repo, owner, "Piano", domain.ActivityTypeTime)
	date := day("2024-05-01")

	_, _, err := repo.MutateLog(ctx, owner, timed.ID, date, func(_ domain.Activity, log *domain.ActivityLog) error {
		return log.AddMinutes(-5)
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	logs, err := repo.LogsForDay(ctx, owner, date)
	require.NoError(t, err)
	require.Empty(t, logs)

	_, _, err = repo.MutateLog(ctx, owner, timed.ID, date, func(_ domain.Activity, log *domain.ActivityLog) error {
		return log.AddMinutes(domain.MaxMinutes)
	})
	require.NoError(t, err)
	_, _, err = repo.MutateLog(ctx, owner, timed.ID, date, func(_ domain.Activity, log *domain.ActivityLog) error {
		return log.AddMinutes(1)
	})
	require.ErrorIs(t, err, domain.ErrMinutesLimit)

	logs, err = repo.LogsForDay(ctx, owner, date)
	require.NoError(t, err)
	require.Equal(t, domain.MaxMinutes, logs[timed.ID].Minutes())
}

func testMutate(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	checkbox := mustCreate(t, repo, owner, "Stretch", domain.ActivityTypeCheckbox)
	timed := mustCreate(t, repo, owner, "Study", domain.ActivityTypeTime)
	date := day("2024-05-02")

	for i := 0; i < 3; i++ {
		_, _, err := repo.MutateLog(ctx, owner, checkbox.ID, date, func(_ domain.Activity, log *domain.ActivityLog) error {
			log.Toggle()
			return nil
		})
		require.NoError(t, err)
	}
	for _, minutes := range []int{15, 0, 30} {
		_, _, err := repo.MutateLog(ctx, owner, timed.ID, date, func(_ domain.Activity, log *domain.ActivityLog) error {
			return log.AddMinutes(minutes)
		})
		require.NoError(t, err)
	}

	logs, err := repo.LogsForDay(ctx, owner, date)
	require.NoError(t, err)
	require.True(t, logs[checkbox.ID].Checked())
	require.Equal(t, 45, logs[timed.ID].Minutes())
}

func testAggregate(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	checkbox := mustCreate(t, repo, owner, "Workout", domain.ActivityTypeCheckbox)
	timed := mustCreate(t, repo, owner, "Reading", domain.ActivityTypeTime)
	mustCreate(t, repo, owner, "Unused", domain.ActivityTypeTime)

	start := day("2024-01-01")
	for i := 0; i < 7; i++ {
		date := start.AddDate(0, 0, i)
		checked := i == 0 || i == 3 || i == 6
		_, _, err := repo.MutateLog(ctx, owner, checkbox.ID, date, func(_ domain.Activity, log *domain.ActivityLog) error {
			if checked {
				log.Toggle()
			}
			return nil
		})
		require.NoError(t, err)
	}
	for i, minutes := range []int{10, 0, 5} {
		date := start.AddDate(0, 0, i)
		_, _, err := repo.MutateLog(ctx, owner, timed.ID, date, func(_ domain.Activity, log *domain.ActivityLog) error {
			return log.AddMinutes(minutes)
		})
		require.NoError(t, err)
	}
	// Outside the range and owned by someone else: both must be ignored.
	_, _, err := repo.MutateLog(ctx, owner, timed.ID, day("2024-01-08"), func(_ domain.Activity, log *domain.ActivityLog) error {
		return log.AddMinutes(100)
	})
	require.NoError(t, err)
	other := mustCreate(t, repo, owner+1, "Reading", domain.ActivityTypeTime)
	_, _, err = repo.MutateLog(ctx, owner+1, other.ID, start, func(_ domain.Activity, log *domain.ActivityLog) error {
		return log.AddMinutes(7)
	})
	require.NoError(t, err)

	totals, err := repo.AggregateForPeriod(ctx, owner, start, day("2024-01-07"))
	require.NoError(t, err)
	require.Len(t, totals, 2)

	require.Equal(t, checkbox.ID, totals[0].ActivityID)
	require.Equal(t, "Workout", totals[0].ActivityName)
	require.Equal(t, domain.ActivityTypeCheckbox, totals[0].ActivityType)
	require.Equal(t, 3, totals[0].TotalTrueDays)
	require.Equal(t, 0, totals[0].TotalMinutes)

	require.Equal(t, timed.ID, totals[1].ActivityID)
	require.Equal(t, 15, totals[1].TotalMinutes)
	require.Equal(t, 0, totals[1].TotalTrueDays)
}

func testLogsForPeriod(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	a := mustCreate(t, repo, owner, "A", domain.ActivityTypeTime)
	b := mustCreate(t, repo, owner, "B", domain.ActivityTypeCheckbox)

	_, _, err := repo.GetOrCreateLog(ctx, owner, b.ID, day("2024-02-02"))
	require.NoError(t, err)
	_, _, err = repo.GetOrCreateLog(ctx, owner, a.ID, day("2024-02-02"))
	require.NoError(t, err)
	_, _, err = repo.GetOrCreateLog(ctx, owner, b.ID, day("2024-02-01"))
	require.NoError(t, err)

	logs, err := repo.LogsForPeriod(ctx, owner, day("2024-02-01"), day("2024-02-02"))
	require.NoError(t, err)
	require.Len(t, logs, 3)
	require.Equal(t, b.ID, logs[0].ActivityID)
	require.True(t, logs[0].Date.Equal(day("2024-02-01")))
	require.Equal(t, a.ID, logs[1].ActivityID)
	require.Equal(t, b.ID, logs[2].ActivityID)
}

func testDeleteCascades(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	keep := mustCreate(t, repo, owner, "Keep", domain.ActivityTypeCheckbox)
	drop := mustCreate(t, repo, owner, "Drop", domain.ActivityTypeTime)
	date := day("2024-06-01")

	_, _, err := repo.GetOrCreateLog(ctx, owner, keep.ID, date)
	require.NoError(t, err)
	_, _, err = repo.GetOrCreateLog(ctx, owner, drop.ID, date)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteActivity(ctx, owner, drop.ID))
	require.ErrorIs(t, repo.DeleteActivity(ctx, owner, drop.ID), domain.ErrActivityNotFound)

	logs, err := repo.LogsForDay(ctx, owner, date)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	_, ok := logs[keep.ID]
	require.True(t, ok)

	activities, err := repo.ListActivities(ctx, owner)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	require.Equal(t, keep.ID, activities[0].ID)
}
