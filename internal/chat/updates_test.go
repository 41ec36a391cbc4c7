package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IvanSitnikov1/tracker-bot/internal/bot"
	"github.com/IvanSitnikov1/tracker-bot/internal/observability"
)

func TestDecodeUpdate(t *testing.T) {
	t.Run("command", func(t *testing.T) {
		ev, ok := DecodeUpdate(Update{Message: &Message{MessageID: 4, From: &User{ID: 2}, Chat: &Chat{ID: 3}, Text: "/start"}})
		require.True(t, ok)
		require.Equal(t, bot.KindCommand, ev.Kind)
		require.Equal(t, "3:2", ev.SessionID)
		require.Equal(t, int64(2), ev.OwnerID)
		require.Equal(t, int64(3), ev.ChatID)
		require.Equal(t, int64(4), ev.MessageID)
	})

	t.Run("text", func(t *testing.T) {
		ev, ok := DecodeUpdate(Update{Message: &Message{From: &User{ID: 2}, Chat: &Chat{ID: 3}, Text: "Reading"}})
		require.True(t, ok)
		require.Equal(t, bot.KindText, ev.Kind)
		require.Equal(t, "Reading", ev.Text)
	})

	t.Run("callback", func(t *testing.T) {
		ev, ok := DecodeUpdate(Update{CallbackQuery: &CallbackQuery{
			ID:      "cb1",
			From:    &User{ID: 2},
			Message: &Message{MessageID: 10, Chat: &Chat{ID: 3}},
			Data:    "activity:track:5",
		}})
		require.True(t, ok)
		require.Equal(t, bot.KindCallback, ev.Kind)
		require.Equal(t, "cb1", ev.CallbackID)
		require.Equal(t, "activity:track:5", ev.CallbackData)
		require.Equal(t, int64(10), ev.MessageID)
	})

	t.Run("ignored", func(t *testing.T) {
		for _, update := range []Update{
			{},
			{Message: &Message{Chat: &Chat{ID: 3}, Text: "no sender"}},
			{Message: &Message{From: &User{ID: 2, IsBot: true}, Chat: &Chat{ID: 3}, Text: "hi"}},
			{Message: &Message{From: &User{ID: 2}, Chat: &Chat{ID: 3}}},
			{CallbackQuery: &CallbackQuery{ID: "x", From: &User{ID: 2}}},
			{CallbackQuery: &CallbackQuery{ID: "y", Message: &Message{Chat: &Chat{ID: 3}}}},
			{Message: &Message{From: &User{ID: 2}, Text: "no chat"}},
		} {
			_, ok := DecodeUpdate(update)
			require.False(t, ok)
		}
	})
}

type scriptedUpdater struct {
	mu      sync.Mutex
	batches [][]Update
	offsets []int
	cancel  context.CancelFunc
}

func (s *scriptedUpdater) GetUpdates(ctx context.Context, offset int, _ time.Duration) ([]Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offsets = append(s.offsets, offset)
	if len(s.batches) == 0 {
		s.cancel()
		return nil, ctx.Err()
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	if batch == nil {
		return nil, errors.New("network down")
	}
	return batch, nil
}

type recordingHandler struct {
	events []bot.Event
	fail   bool
}

func (h *recordingHandler) Handle(_ context.Context, ev bot.Event) error {
	h.events = append(h.events, ev)
	if h.fail {
		return errors.New("boom")
	}
	return nil
}

func TestPollerAdvancesOffset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updater := &scriptedUpdater{cancel: cancel, batches: [][]Update{
		{
			{UpdateID: 10, Message: &Message{From: &User{ID: 1}, Chat: &Chat{ID: 1}, Text: "/start"}},
			{UpdateID: 11},
		},
		nil,
		{
			{UpdateID: 12, Message: &Message{From: &User{ID: 1}, Chat: &Chat{ID: 1}, Text: "hi"}},
		},
	}}
	handler := &recordingHandler{fail: true}

	poller := NewPoller(updater, handler, WithBackoff(time.Millisecond), WithPollerLogger(observability.Discard()))
	require.NoError(t, poller.Run(ctx))

	require.Len(t, handler.events, 2)
	require.Equal(t, []int{0, 12, 12, 13}, updater.offsets)
}
