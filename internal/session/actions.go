package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAction is returned by ParseAction for tags outside the closed set.
var ErrUnknownAction = errors.New("session: unknown action")

// Action is a button tag.
type Action string

const (
	ActionMain          Action = "main"
	ActionSocial        Action = "social"
	ActionAI            Action = "ai"
	ActionGeminiOptions Action = "gemini_options"
	ActionGeminiChat    Action = "gemini_chat"
	ActionEndChat       Action = "end_chat"
)

// Actions lists every supported button tag.
var Actions = []Action{
	ActionMain,
	ActionSocial,
	ActionAI,
	ActionGeminiOptions,
	ActionGeminiChat,
	ActionEndChat,
}

// ParseAction validates a raw callback tag.
func ParseAction(tag string) (Action, error) {
	a := Action(strings.TrimSpace(tag))
	switch a {
	case ActionMain, ActionSocial, ActionAI, ActionGeminiOptions, ActionGeminiChat, ActionEndChat:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, tag)
}

// Screen is a render target. Screens are never persisted.
type Screen string

const (
	ScreenMain             Screen = "main"
	ScreenSocial           Screen = "social"
	ScreenAITools          Screen = "ai_tools"
	ScreenGeminiOptions    Screen = "gemini_options"
	ScreenGeminiChatActive Screen = "gemini_chat_active"
)

// Screens lists every screen.
var Screens = []Screen{
	ScreenMain,
	ScreenSocial,
	ScreenAITools,
	ScreenGeminiOptions,
	ScreenGeminiChatActive,
}

// EventKind enumerates inbound events.
type EventKind int

const (
	EventStart EventKind = iota + 1
	EventStop
	EventHelp
	EventHistory
	EventStats
	EventButton
	EventMessage
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventStop:
		return "stop"
	case EventHelp:
		return "help"
	case EventHistory:
		return "history"
	case EventStats:
		return "stats"
	case EventButton:
		return "button"
	case EventMessage:
		return "message"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// User identifies the sender of an event.
type User struct {
	ID        int64
	Username  string
	FirstName string
}

// Event is one inbound interaction. Tag is set for buttons, Text for messages.
type Event struct {
	Kind EventKind
	User User
	Tag  string
	Text string
}
