package chat

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/IvanSitnikov1/tracker-bot/internal/bot"
	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
)

// SessionID keys per-user state within one chat.
func SessionID(chatID, userID int64) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(userID, 10)
}

// DecodeUpdate converts an update into a router event. Updates the tracker
// does not handle, such as edits or messages from bots, report false.
func DecodeUpdate(update Update) (bot.Event, bool) {
	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
			return bot.Event{}, false
		}
		return bot.Event{
			SessionID:    SessionID(cq.Message.Chat.ID, cq.From.ID),
			OwnerID:      cq.From.ID,
			ChatID:       cq.Message.Chat.ID,
			MessageID:    int64(cq.Message.MessageID),
			Kind:         bot.KindCallback,
			CallbackID:   cq.ID,
			CallbackData: cq.Data,
		}, true
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.From.IsBot || msg.Chat == nil || msg.Text == "" {
			return bot.Event{}, false
		}
		kind := bot.KindText
		if strings.HasPrefix(msg.Text, "/") {
			kind = bot.KindCommand
		}
		return bot.Event{
			SessionID: SessionID(msg.Chat.ID, msg.From.ID),
			OwnerID:   msg.From.ID,
			ChatID:    msg.Chat.ID,
			MessageID: int64(msg.MessageID),
			Kind:      kind,
			Text:      msg.Text,
		}, true
	}
	return bot.Event{}, false
}

// Handler consumes decoded events.
type Handler interface {
	Handle(ctx context.Context, ev bot.Event) error
}

// Updater is the long-poll side of the Bot API.
type Updater interface {
	GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]Update, error)
}

// Poller long-polls getUpdates and feeds each event to the handler in order.
type Poller struct {
	updates Updater
	handler Handler
	logger  *log.Logger
	timeout time.Duration
	backoff time.Duration
	offset  int
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollTimeout sets the long-poll window.
func WithPollTimeout(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithBackoff sets the pause after a failed poll.
func WithBackoff(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.backoff = d
		}
	}
}

// WithPollerLogger sets the logger.
func WithPollerLogger(logger *log.Logger) PollerOption {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPoller constructs a Poller.
func NewPoller(updates Updater, handler Handler, opts ...PollerOption) *Poller {
	p := &Poller{
		updates: updates,
		handler: handler,
		logger:  log.Default(),
		timeout: 50 * time.Second,
		backoff: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	for {
		if err := p.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Warn("poll failed", "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.backoff):
			}
		}
	}
}

// poll fetches one batch and advances the offset past every update in it,
// including those the handler rejected.
func (p *Poller) poll(ctx context.Context) error {
	updates, err := p.updates.GetUpdates(ctx, p.offset, p.timeout)
	if err != nil {
		return err
	}
	for _, update := range updates {
		if update.UpdateID >= p.offset {
			p.offset = update.UpdateID + 1
		}
		ev, ok := DecodeUpdate(update)
		if !ok {
			continue
		}
		if err := p.handler.Handle(ctx, ev); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			if domain.IsUserError(err) {
				p.logger.Warn("handle update", "update_id", update.UpdateID, "err", err)
				continue
			}
			p.logger.Error("handle update", "update_id", update.UpdateID, "err", err)
		}
	}
	return nil
}
