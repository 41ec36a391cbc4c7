package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/IvanSitnikov1/tracker-bot/internal/chat"
	"github.com/IvanSitnikov1/tracker-bot/internal/observability"
)

const (
	webhookPrefix     = "/bot/"
	secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateBytes    = 1 << 20
)

// Webhook receives Bot API updates pushed to POST /bot/<secret>.
type Webhook struct {
	router chat.Handler
	secret string
	logger *log.Logger
}

// NewWebhook constructs a Webhook. The secret is both the path suffix and the
// expected secret-token header value.
func NewWebhook(router chat.Handler, secret string, logger *log.Logger) *Webhook {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Webhook{router: router, secret: secret, logger: logger}
}

// Register mounts the webhook on the mux.
func (wh *Webhook) Register(mux *http.ServeMux) {
	mux.Handle(webhookPrefix+wh.secret, wh)
}

// ServeHTTP answers 200 for every decodable update, including ones the router
// failed on, so the API does not redeliver them.
func (wh *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if token := r.Header.Get(secretTokenHeader); token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(wh.secret)) != 1 {
		observability.RecordInbound("webhook", "rejected")
		writeError(w, http.StatusUnauthorized, "unauthorized", "secret token mismatch")
		return
	}

	var update chat.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUpdateBytes)).Decode(&update); err != nil {
		observability.RecordInbound("webhook", "malformed")
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse update")
		return
	}

	ev, ok := chat.DecodeUpdate(update)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	if err := wh.router.Handle(context.WithoutCancel(r.Context()), ev); err != nil {
		wh.logger.Error("webhook update failed", "update_id", update.UpdateID, "session", ev.SessionID, "err", err)
	}
	w.WriteHeader(http.StatusOK)
}
