package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/IvanSitnikov1/tracker-bot/internal/tracking"
	"github.com/IvanSitnikov1/tracker-bot/internal/wizard"
)

func sampleState() State {
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	state := State{Timers: tracking.TimerRegistry{7: time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC)}}
	state.Wizard.StartDateRange(wizard.PurposeExport)
	state.Wizard.StartDate = &start
	state.Wizard.Step = wizard.StepPickingEnd
	return state
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	empty, err := store.Load(ctx, "1:1")
	require.NoError(t, err)
	require.NotNil(t, empty.Timers)
	require.True(t, empty.Empty())

	want := sampleState()
	require.NoError(t, store.Save(ctx, "1:1", want))

	got, err := store.Load(ctx, "1:1")
	require.NoError(t, err)
	require.True(t, got.Timers[7].Equal(want.Timers[7]))
	require.Equal(t, wizard.StepPickingEnd, got.Wizard.Step)
	require.True(t, got.Wizard.StartDate.Equal(*want.Wizard.StartDate))

	other, err := store.Load(ctx, "2:2")
	require.NoError(t, err)
	require.True(t, other.Empty())
}

func TestMemoryStoreLoadReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "s", sampleState()))

	loaded, err := store.Load(ctx, "s")
	require.NoError(t, err)
	delete(loaded.Timers, 7)

	again, err := store.Load(ctx, "s")
	require.NoError(t, err)
	require.True(t, again.Timers.Running(7))
}

func TestMemoryStoreSavingEmptyStateDeletes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "s", sampleState()))
	require.Equal(t, 1, store.Len())

	require.NoError(t, store.Save(ctx, "s", State{}))
	require.Equal(t, 0, store.Len())
}

type stubRedis struct {
	values map[string]string
	ttl    time.Duration
	getErr error
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if s.getErr != nil {
		return redis.NewStringResult("", s.getErr)
	}
	value, ok := s.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (s *stubRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	s.values[key] = string(value.([]byte))
	s.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := s.values[key]; ok {
			delete(s.values, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := &stubRedis{values: map[string]string{}}
	store := NewRedisStore(client, 24*time.Hour)

	require.NoError(t, store.Save(ctx, "10:20", sampleState()))
	require.Contains(t, client.values, "tracker:session:10:20")
	require.Equal(t, 24*time.Hour, client.ttl)

	got, err := store.Load(ctx, "10:20")
	require.NoError(t, err)
	require.True(t, got.Timers.Running(7))
	require.Equal(t, wizard.FlowDateRange, got.Wizard.Flow)

	missing, err := store.Load(ctx, "nobody")
	require.NoError(t, err)
	require.True(t, missing.Empty())

	require.NoError(t, store.Save(ctx, "10:20", State{}))
	require.NotContains(t, client.values, "tracker:session:10:20")
}

func TestRedisStoreSurfacesErrors(t *testing.T) {
	client := &stubRedis{values: map[string]string{}, getErr: errors.New("connection refused")}
	store := NewRedisStore(client, 0)

	_, err := store.Load(context.Background(), "s")
	require.Error(t, err)
}

func TestRedisStoreRejectsCorruptBlob(t *testing.T) {
	client := &stubRedis{values: map[string]string{"tracker:session:s": "{not json"}}
	store := NewRedisStore(client, 0)

	_, err := store.Load(context.Background(), "s")
	require.Error(t, err)
}
