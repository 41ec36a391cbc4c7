package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IvanSitnikov1/tracker-bot/internal/chat"
)

// UpdateHandler feeds chat updates read from Kafka into the bot router.
type UpdateHandler struct {
	router chat.Handler
}

// NewUpdateHandler constructs an UpdateHandler.
func NewUpdateHandler(router chat.Handler) *UpdateHandler {
	return &UpdateHandler{router: router}
}

// Handle decodes one update and routes it. Updates the bot ignores are
// treated as handled.
func (h *UpdateHandler) Handle(ctx context.Context, msg Message) error {
	var update chat.Update
	if err := json.Unmarshal(msg.Payload, &update); err != nil {
		return fmt.Errorf("decode update: %w", err)
	}
	ev, ok := chat.DecodeUpdate(update)
	if !ok {
		return nil
	}
	return h.router.Handle(ctx, ev)
}
