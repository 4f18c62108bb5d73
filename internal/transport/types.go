package transport

import "context"

// ChatTarget addresses a chat (and optionally a forum topic thread).
type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

func (t ChatTarget) IsZero() bool { return t.ChatID == 0 }

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Field is one labeled value of a rich notification.
type Field struct {
	Name   string
	Value  string
	URL    string // optional: render Value as a link
	Inline bool
}

// Notification is a rich, platform-neutral message: a title, an optional
// description, a field list and an optional image.
type Notification struct {
	Title       string
	Description string
	Fields      []Field
	// ImageURL is attached as a photo when the platform supports it.
	ImageURL string
	// Kind is a short label used in logs and history (e.g. "shop.section").
	Kind string
}

// Command is a chat command handler. It returns the reply text (HTML).
type Command func(ctx context.Context) string

type Adapter interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// Resolve turns a configured chat reference (numeric id or @username)
	// into a target the adapter can send to.
	Resolve(ctx context.Context, ref string, threadID int) (ChatTarget, error)

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	SendNotification(ctx context.Context, to ChatTarget, n Notification) (MessageRef, error)

	// HandleCommand registers /name. description shows in the client's
	// command menu.
	HandleCommand(name, description string, fn Command)
}
