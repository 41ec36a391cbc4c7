package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/IvanSitnikov1/tracker-bot/internal/bot"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

var allowedUpdates = []string{"message", "callback_query"}

// APIError is a non-OK Bot API response.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// Client calls the Bot API for one bot token.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewClient constructs a Client. An empty baseURL uses DefaultAPIURL.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = 70 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + "/bot%s/%s",
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// contextDoer binds each SDK request to the caller's context. Transport
// errors drop the request URL, which carries the token.
type contextDoer struct {
	ctx    context.Context
	client *http.Client
}

func (d contextDoer) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.client.Do(req.WithContext(d.ctx))
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, fmt.Errorf("telegram %s: %w", path.Base(req.URL.Path), urlErr.Err)
		}
		return nil, err
	}
	return resp, nil
}

// api returns an SDK handle scoped to ctx. The handle skips getMe.
func (c *Client) api(ctx context.Context) *tgbotapi.BotAPI {
	api := &tgbotapi.BotAPI{
		Token:  c.token,
		Client: contextDoer{ctx: ctx, client: c.httpClient},
		Buffer: 100,
	}
	api.SetAPIEndpoint(c.endpoint)
	return api
}

func apiError(method string, err error) error {
	if err == nil {
		return nil
	}
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return &APIError{Method: method, Code: tgErr.Code, Description: tgErr.Message}
	}
	return err
}

func (c *Client) request(ctx context.Context, method string, cfg tgbotapi.Chattable) error {
	_, err := c.api(ctx).Request(cfg)
	return apiError(method, err)
}

func notModified(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "message is not modified")
}

func inlineMarkup(kb *bot.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if kb == nil {
		return nil
	}
	markup := &tgbotapi.InlineKeyboardMarkup{InlineKeyboard: make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))}
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}
	return markup
}

func menuMarkup(menu *bot.MenuKeyboard) tgbotapi.ReplyKeyboardMarkup {
	markup := tgbotapi.ReplyKeyboardMarkup{ResizeKeyboard: true}
	for _, row := range menu.Rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, text := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(text))
		}
		markup.Keyboard = append(markup.Keyboard, buttons)
	}
	return markup
}

func parseMode(reply bot.Reply) string {
	if reply.HTML {
		return tgbotapi.ModeHTML
	}
	return ""
}

// SendMessage implements bot.Transport.
func (c *Client) SendMessage(ctx context.Context, chatID int64, reply bot.Reply) (int64, error) {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	msg.ParseMode = parseMode(reply)
	switch {
	case reply.Inline != nil:
		msg.ReplyMarkup = inlineMarkup(reply.Inline)
	case reply.Menu != nil:
		msg.ReplyMarkup = menuMarkup(reply.Menu)
	}

	sent, err := c.api(ctx).Send(msg)
	if err != nil {
		return 0, apiError("sendMessage", err)
	}
	return int64(sent.MessageID), nil
}

// EditMessage implements bot.Transport. Edits that change nothing succeed.
func (c *Client) EditMessage(ctx context.Context, chatID, messageID int64, reply bot.Reply) error {
	base := tgbotapi.BaseEdit{ChatID: chatID, MessageID: int(messageID), ReplyMarkup: inlineMarkup(reply.Inline)}

	var err error
	if reply.Text == "" {
		err = c.request(ctx, "editMessageReplyMarkup", tgbotapi.EditMessageReplyMarkupConfig{BaseEdit: base})
	} else {
		err = c.request(ctx, "editMessageText", tgbotapi.EditMessageTextConfig{
			BaseEdit:  base,
			Text:      reply.Text,
			ParseMode: parseMode(reply),
		})
	}
	if notModified(err) {
		return nil
	}
	return err
}

// DeleteMessage implements bot.Transport.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	return c.request(ctx, "deleteMessage", tgbotapi.NewDeleteMessage(chatID, int(messageID)))
}

// AnswerCallback implements bot.Transport.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	cfg := tgbotapi.NewCallback(callbackID, text)
	cfg.ShowAlert = alert && text != ""
	return c.request(ctx, "answerCallbackQuery", cfg)
}

// SendDocument implements bot.Transport with a multipart upload.
func (c *Client) SendDocument(ctx context.Context, chatID int64, doc bot.Document) error {
	upload := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: doc.Filename, Bytes: doc.Content})
	_, err := c.api(ctx).Send(upload)
	return apiError("sendDocument", err)
}

// GetUpdates long-polls for updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]Update, error) {
	cfg := tgbotapi.NewUpdate(offset)
	cfg.Timeout = int(timeout.Seconds())
	cfg.AllowedUpdates = allowedUpdates

	updates, err := c.api(ctx).GetUpdates(cfg)
	if err != nil {
		return nil, apiError("getUpdates", err)
	}
	return updates, nil
}

// SetWebhook registers the public webhook URL with an optional secret token.
func (c *Client) SetWebhook(ctx context.Context, webhookURL, secretToken string) error {
	params := tgbotapi.Params{}
	params["url"] = webhookURL
	params.AddNonEmpty("secret_token", secretToken)
	if err := params.AddInterface("allowed_updates", allowedUpdates); err != nil {
		return err
	}
	_, err := c.api(ctx).MakeRequest("setWebhook", params)
	return apiError("setWebhook", err)
}

// DeleteWebhook switches the bot back to getUpdates delivery.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.request(ctx, "deleteWebhook", tgbotapi.DeleteWebhookConfig{})
}

var _ bot.Transport = (*Client)(nil)
