package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
	"github.com/IvanSitnikov1/tracker-bot/internal/persistence/memory"
)

const owner int64 = 11

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newEngine(t *testing.T) (*Engine, *domain.Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)}
	svc := domain.NewService(memory.NewRepository())
	return NewEngine(svc, WithClock(clock.Now)), svc, clock
}

func create(t *testing.T, svc *domain.Service, name string, activityType domain.ActivityType) domain.Activity {
	t.Helper()
	activity, err := svc.CreateActivity(context.Background(), owner, name, activityType)
	require.NoError(t, err)
	return *activity
}

func TestTimerRoundTrip(t *testing.T) {
	ctx := context.Background()
	engine, svc, clock := newEngine(t)
	guitar := create(t, svc, "Guitar", domain.ActivityTypeTime)
	timers := TimerRegistry{}

	require.False(t, timers.Running(guitar.ID))

	result, err := engine.Track(ctx, owner, guitar.ID, timers)
	require.NoError(t, err)
	require.Equal(t, ActionTimerStarted, result.Action)
	require.True(t, timers.Running(guitar.ID))
	require.Equal(t, 0, result.Log.Minutes())

	clock.Advance(10*time.Minute + 20*time.Second)
	result, err = engine.Track(ctx, owner, guitar.ID, timers)
	require.NoError(t, err)
	require.Equal(t, ActionTimerStopped, result.Action)
	require.Equal(t, 10, result.Minutes)
	require.Equal(t, 10, result.Log.Minutes())
	require.False(t, timers.Running(guitar.ID))

	logs, err := svc.LogsForDay(ctx, owner, engine.Today())
	require.NoError(t, err)
	require.Equal(t, 10, logs[guitar.ID].Minutes())
}

func TestSecondStopStartsNewTimer(t *testing.T) {
	ctx := context.Background()
	engine, svc, clock := newEngine(t)
	guitar := create(t, svc, "Guitar", domain.ActivityTypeTime)
	timers := TimerRegistry{}

	_, err := engine.Track(ctx, owner, guitar.ID, timers)
	require.NoError(t, err)
	clock.Advance(5 * time.Minute)
	_, err = engine.Track(ctx, owner, guitar.ID, timers)
	require.NoError(t, err)

	result, err := engine.Track(ctx, owner, guitar.ID, timers)
	require.NoError(t, err)
	require.Equal(t, ActionTimerStarted, result.Action)
	require.True(t, timers.Running(guitar.ID))
	require.Equal(t, 5, result.Log.Minutes(), "starting never changes the persisted total")
}

func TestTimersAreIndependent(t *testing.T) {
	ctx := context.Background()
	engine, svc, clock := newEngine(t)
	a := create(t, svc, "A", domain.ActivityTypeTime)
	b := create(t, svc, "B", domain.ActivityTypeTime)
	timers := TimerRegistry{}

	_, err := engine.Track(ctx, owner, a.ID, timers)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = engine.Track(ctx, owner, b.ID, timers)
	require.NoError(t, err)
	startedB, _ := timers.StartedAt(b.ID)

	clock.Advance(2 * time.Minute)
	result, err := engine.Track(ctx, owner, a.ID, timers)
	require.NoError(t, err)
	require.Equal(t, 3, result.Minutes)
	require.False(t, timers.Running(a.ID))

	stillB, ok := timers.StartedAt(b.ID)
	require.True(t, ok)
	require.True(t, stillB.Equal(startedB))
}

func TestCheckboxToggle(t *testing.T) {
	ctx := context.Background()
	engine, svc, _ := newEngine(t)
	run := create(t, svc, "Run", domain.ActivityTypeCheckbox)
	timers := TimerRegistry{}

	result, err := engine.Track(ctx, owner, run.ID, timers)
	require.NoError(t, err)
	require.Equal(t, ActionToggled, result.Action)
	require.True(t, result.Log.Checked())
	require.Empty(t, timers)

	result, err = engine.Track(ctx, owner, run.ID, timers)
	require.NoError(t, err)
	require.False(t, result.Log.Checked())
}

func TestTrackUnknownActivity(t *testing.T) {
	engine, _, _ := newEngine(t)
	timers := TimerRegistry{}

	_, err := engine.Track(context.Background(), owner, 404, timers)
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
	require.Empty(t, timers)

	_, err = engine.Track(context.Background(), owner, 404, nil)
	require.ErrorIs(t, err, ErrNoRegistry)
}

func TestAddMinutes(t *testing.T) {
	ctx := context.Background()
	engine, svc, _ := newEngine(t)
	guitar := create(t, svc, "Guitar", domain.ActivityTypeTime)
	run := create(t, svc, "Run", domain.ActivityTypeCheckbox)

	result, err := engine.AddMinutes(ctx, owner, guitar.ID, 25)
	require.NoError(t, err)
	require.Equal(t, 25, result.Log.Minutes())
	result, err = engine.AddMinutes(ctx, owner, guitar.ID, 5)
	require.NoError(t, err)
	require.Equal(t, 30, result.Log.Minutes())

	_, err = engine.AddMinutes(ctx, owner, guitar.ID, -1)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = engine.AddMinutes(ctx, owner, run.ID, 5)
	require.ErrorIs(t, err, domain.ErrTypeMismatch)

	_, err = engine.AddMinutes(ctx, owner, guitar.ID, domain.MaxMinutes)
	require.ErrorIs(t, err, domain.ErrMinutesLimit)
	result, err = engine.AddMinutes(ctx, owner, guitar.ID, 0)
	require.NoError(t, err)
	require.Equal(t, 30, result.Log.Minutes())
}

type failingLogs struct {
	LogService
	activity domain.Activity
}

func (f failingLogs) GetActivity(ctx context.Context, ownerID, activityID int64) (*domain.Activity, error) {
	return &f.activity, nil
}

func (f failingLogs) UpdateLog(ctx context.Context, ownerID, activityID int64, date time.Time, mutate domain.LogMutation) (domain.Activity, domain.ActivityLog, error) {
	return domain.Activity{}, domain.ActivityLog{}, errors.New("commit failed")
}

func TestStopKeepsTimerWhenCommitFails(t *testing.T) {
	activity := domain.Activity{ID: 9, OwnerID: owner, Name: "Piano", Type: domain.ActivityTypeTime}
	started := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	engine := NewEngine(failingLogs{activity: activity}, WithClock(func() time.Time { return started.Add(time.Hour) }))
	timers := TimerRegistry{activity.ID: started}

	_, err := engine.Track(context.Background(), owner, activity.ID, timers)
	require.Error(t, err)

	at, ok := timers.StartedAt(activity.ID)
	require.True(t, ok)
	require.True(t, at.Equal(started))
}

func TestElapsedMinutesRoundsHalfToEven(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := map[time.Duration]int{
		0:                 0,
		29 * time.Second:  0,
		30 * time.Second:  0,
		31 * time.Second:  1,
		90 * time.Second:  2,
		150 * time.Second: 2,
		-time.Minute:      0,
	}
	for d, want := range cases {
		require.Equal(t, want, ElapsedMinutes(start, start.Add(d)), d.String())
	}
}

func TestTodayUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	now := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	engine := NewEngine(nil, WithClock(func() time.Time { return now }), WithLocation(loc))
	require.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), engine.Today())
}

func TestLoadView(t *testing.T) {
	ctx := context.Background()
	engine, svc, _ := newEngine(t)
	run := create(t, svc, "Run", domain.ActivityTypeCheckbox)
	guitar := create(t, svc, "Guitar", domain.ActivityTypeTime)
	timers := TimerRegistry{}

	_, err := engine.Track(ctx, owner, run.ID, timers)
	require.NoError(t, err)
	_, err = engine.Track(ctx, owner, guitar.ID, timers)
	require.NoError(t, err)

	view, err := engine.LoadView(ctx, owner, timers)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	require.Equal(t, StateChecked, view.Items[0].State)
	require.Equal(t, StateRunning, view.Items[1].State)
}
