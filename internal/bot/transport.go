// Package bot routes inbound chat events to the tracking engine, the wizard
// flows, stats and export, and renders the replies.
package bot

import "context"

// Kind classifies an inbound event.
type Kind string

const (
	KindCommand  Kind = "command"
	KindText     Kind = "text"
	KindCallback Kind = "callback"
)

// Event is one inbound message or button press, already decoded by a chat adapter.
type Event struct {
	SessionID    string
	OwnerID      int64
	ChatID       int64
	MessageID    int64
	Kind         Kind
	Text         string
	CallbackID   string
	CallbackData string
}

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Keyboard is an inline keyboard attached to a message.
type Keyboard struct {
	Rows [][]Button
}

// MenuKeyboard is a persistent reply keyboard of plain-text buttons.
type MenuKeyboard struct {
	Rows [][]string
}

// Reply is an outbound message body.
type Reply struct {
	Text   string
	HTML   bool
	Inline *Keyboard
	Menu   *MenuKeyboard
}

// Document is a file artifact sent to the chat.
type Document struct {
	Filename string
	Content  []byte
}

// Transport is the outbound side of a chat adapter.
type Transport interface {
	// SendMessage posts a new message and returns its id.
	SendMessage(ctx context.Context, chatID int64, reply Reply) (int64, error)
	// EditMessage rewrites a message. An empty Text edits only the inline keyboard.
	EditMessage(ctx context.Context, chatID, messageID int64, reply Reply) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	SendDocument(ctx context.Context, chatID int64, doc Document) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}
