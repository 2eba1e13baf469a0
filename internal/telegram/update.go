package telegram

import (
	"context"
	"strconv"

	"mediarelay/internal/relay"
)

// Update is one inbound Bot API update. Only the fields the relay consumes
// are decoded.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message is an inbound chat message.
type Message struct {
	MessageID int    `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
	Caption   string `json:"caption,omitempty"`
}

// CallbackQuery is a press of an inline button.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// User is a Telegram account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// Chat is the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

// Handler consumes relay events. *relay.Service satisfies it.
type Handler interface {
	HandleText(ctx context.Context, msg relay.TextMessage) error
	HandleCallback(ctx context.Context, cb relay.CallbackAction) error
}

// TextMessage converts a text update. ok is false for other update kinds.
func (u Update) TextMessage() (relay.TextMessage, bool) {
	m := u.Message
	if m == nil {
		return relay.TextMessage{}, false
	}
	text := m.Text
	if text == "" {
		text = m.Caption
	}
	if text == "" {
		return relay.TextMessage{}, false
	}
	owner := m.Chat.ID
	if m.From != nil {
		owner = m.From.ID
	}
	return relay.TextMessage{OwnerID: owner, ChatID: m.Chat.ID, MessageID: m.MessageID, Text: text}, true
}

// CallbackAction converts a callback update. ok is false for other update kinds.
func (u Update) CallbackAction() (relay.CallbackAction, bool) {
	q := u.CallbackQuery
	if q == nil {
		return relay.CallbackAction{}, false
	}
	cb := relay.CallbackAction{OwnerID: q.From.ID, ChatID: q.From.ID, CallbackID: q.ID, Data: q.Data}
	if q.Message != nil {
		cb.ChatID = q.Message.Chat.ID
		cb.MessageID = q.Message.MessageID
	}
	return cb, true
}

// RequestID is a correlation id for log lines about this update.
func (u Update) RequestID() string {
	return "update-" + strconv.FormatInt(u.UpdateID, 10)
}

// Dispatch routes u to h. Updates the relay does not consume are ignored.
func Dispatch(ctx context.Context, h Handler, u Update) error {
	if cb, ok := u.CallbackAction(); ok {
		return h.HandleCallback(ctx, cb)
	}
	if msg, ok := u.TextMessage(); ok {
		return h.HandleText(ctx, msg)
	}
	return nil
}
