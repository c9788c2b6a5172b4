package session

import "context"

// Mode selects between sending a new message and editing the one the button
// belongs to.
type Mode int

const (
	ModeNew Mode = iota
	ModeEdit
)

// Format selects the text parse mode.
type Format int

const (
	FormatMarkdown Format = iota
	FormatPlain
)

// Button is either a navigation button (Action) or a link (URL).
type Button struct {
	Label  string
	Action Action
	URL    string
}

// Render is one outbound message.
type Render struct {
	Text     string
	Keyboard [][]Button
	Mode     Mode
	Format   Format
}

// Sink delivers renders to the user.
type Sink interface {
	Render(ctx context.Context, r Render) error
}

// Notifier is implemented by sinks that can show a typing indicator while the
// AI backend is working.
type Notifier interface {
	Typing(ctx context.Context) error
}
