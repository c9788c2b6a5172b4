// Package session drives the per-user menu and AI chat state machine. It only
// talks to the outside world through the stores, the AI generator and a Sink.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/m3rciful/relaybot/core/logger"
	"github.com/m3rciful/relaybot/core/telegram/format"
	"github.com/m3rciful/relaybot/internal/ai"
	"github.com/m3rciful/relaybot/internal/conversations"
	"github.com/m3rciful/relaybot/internal/users"
)

// UserRegistry is the subset of users.Registry used by the controller.
type UserRegistry interface {
	RecordUsage(ctx context.Context, id int64, defaults users.Profile) (users.Profile, error)
	Stats(ctx context.Context) users.Stats
}

// ConversationStore is the subset of conversations.Store used by the controller.
type ConversationStore interface {
	Get(ctx context.Context, id int64) conversations.State
	Reset(ctx context.Context, id int64) (conversations.State, error)
	Activate(ctx context.Context, id int64) error
	Deactivate(ctx context.Context, id int64) error
	Append(ctx context.Context, id int64, ex conversations.Exchange) (conversations.State, error)
}

// Generator is the AI backend.
type Generator interface {
	Configured() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

// Controller interprets events. It keeps no state of its own.
type Controller struct {
	users      UserRegistry
	convs      ConversationStore
	ai         Generator
	chunkLimit int
}

// NewController wires the controller.
func NewController(reg UserRegistry, convs ConversationStore, gen Generator) *Controller {
	return &Controller{
		users:      reg,
		convs:      convs,
		ai:         gen,
		chunkLimit: format.MessageLimit,
	}
}

// Handle processes one event. Failures and panics are turned into a generic
// apology for this user only; the error is returned for logging.
func (c *Controller) Handle(ctx context.Context, ev Event, sink Sink) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "session", "session.panic",
				slog.String("kind", ev.Kind.String()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("session: panic while handling %s: %v", ev.Kind, r)
			c.apologize(ctx, sink)
		}
	}()

	switch ev.Kind {
	case EventStart:
		err = c.start(ctx, ev, sink)
	case EventStop:
		err = c.stop(ctx, ev, ModeNew, sink)
	case EventHelp:
		err = sink.Render(ctx, Render{Text: textHelp})
	case EventHistory:
		err = c.history(ctx, ev, sink)
	case EventStats:
		err = c.stats(ctx, sink)
	case EventButton:
		err = c.button(ctx, ev, sink)
	case EventMessage:
		err = c.message(ctx, ev, sink)
	default:
		err = fmt.Errorf("session: unsupported event kind %s", ev.Kind)
	}
	if err != nil {
		logger.Error(ctx, "session", "session.failed",
			slog.String("kind", ev.Kind.String()),
			slog.String("err", err.Error()),
		)
		c.apologize(ctx, sink)
	}
	return err
}

func (c *Controller) apologize(ctx context.Context, sink Sink) {
	if rerr := sink.Render(ctx, Render{Text: textFailure, Format: FormatPlain}); rerr != nil {
		logger.Warn(ctx, "session", "session.apology_failed", slog.String("err", rerr.Error()))
	}
}

func (c *Controller) start(ctx context.Context, ev Event, sink Sink) error {
	profile, err := c.users.RecordUsage(ctx, ev.User.ID, users.Profile{
		Username:  ev.User.Username,
		FirstName: ev.User.FirstName,
	})
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}

	st, err := c.convs.Reset(ctx, ev.User.ID)
	if err != nil {
		return fmt.Errorf("reset conversation: %w", err)
	}

	logger.Info(ctx, "session", "session.start",
		slog.Int("usage_count", profile.UsageCount),
		slog.Int("history_len", len(st.History)),
	)
	return c.show(ctx, ScreenMain, ModeNew, sink)
}

func (c *Controller) stop(ctx context.Context, ev Event, mode Mode, sink Sink) error {
	if err := c.convs.Deactivate(ctx, ev.User.ID); err != nil {
		return fmt.Errorf("deactivate: %w", err)
	}
	logger.Info(ctx, "session", "session.chat_end", slog.Bool("active", false))
	return sink.Render(ctx, Render{Text: textChatEnded, Keyboard: mainMenuButton(), Mode: mode})
}

func (c *Controller) show(ctx context.Context, s Screen, mode Mode, sink Sink) error {
	r, err := layout(s)
	if err != nil {
		return err
	}
	r.Mode = mode
	logger.Debug(ctx, "session", "session.render", slog.String("screen", string(s)))
	return sink.Render(ctx, r)
}

func (c *Controller) button(ctx context.Context, ev Event, sink Sink) error {
	action, err := ParseAction(ev.Tag)
	if err != nil {
		logger.Warn(ctx, "session", "session.unknown_action", slog.String("action", ev.Tag))
		return sink.Render(ctx, Render{Text: textUnsupported, Mode: ModeNew})
	}

	switch action {
	case ActionMain, ActionSocial, ActionAI, ActionGeminiOptions:
		screen, _ := navigation(action)
		return c.show(ctx, screen, ModeEdit, sink)
	case ActionGeminiChat:
		if c.ai == nil || !c.ai.Configured() {
			logger.Warn(ctx, "session", "session.ai_unavailable", slog.String("action", string(action)))
			return sink.Render(ctx, Render{
				Text:     textNotConfigured,
				Keyboard: [][]Button{back(ActionGeminiOptions)},
				Mode:     ModeEdit,
			})
		}
		if err := c.convs.Activate(ctx, ev.User.ID); err != nil {
			return fmt.Errorf("activate: %w", err)
		}
		logger.Info(ctx, "session", "session.chat_start", slog.Bool("active", true))
		return c.show(ctx, ScreenGeminiChatActive, ModeEdit, sink)
	case ActionEndChat:
		return c.stop(ctx, ev, ModeEdit, sink)
	}
	return fmt.Errorf("session: action %q has no handler", action)
}

func (c *Controller) message(ctx context.Context, ev Event, sink Sink) error {
	st := c.convs.Get(ctx, ev.User.ID)
	if !st.Active {
		return sink.Render(ctx, Render{Text: textInactiveHint})
	}

	if c.ai == nil || !c.ai.Configured() {
		return sink.Render(ctx, Render{Text: textNotConfigured, Format: FormatPlain})
	}
	if n, ok := sink.(Notifier); ok {
		if terr := n.Typing(ctx); terr != nil {
			logger.Debug(ctx, "session", "session.typing_failed", slog.String("err", terr.Error()))
		}
	}

	start := time.Now()
	answer, err := c.ai.Generate(ctx, ev.Text)
	if err != nil {
		diag := err.Error()
		var aerr *ai.Error
		if errors.As(err, &aerr) {
			diag = aerr.Diagnostic()
		}
		logger.Warn(ctx, "session", "session.ai_failed",
			slog.String("err_code", string(ai.KindOf(err))),
			slog.String("err", err.Error()),
		)
		return sink.Render(ctx, Render{Text: textAIFailure(diag), Format: FormatPlain})
	}

	_, err = c.convs.Append(ctx, ev.User.ID, conversations.Exchange{User: ev.Text, Assistant: answer})
	switch {
	case errors.Is(err, conversations.ErrInactive):
		// The chat was closed while the backend was answering.
		logger.Info(ctx, "session", "session.append_skipped", slog.Bool("active", false))
	case err != nil:
		return fmt.Errorf("append exchange: %w", err)
	}

	chunks := format.Chunk(answer, c.chunkLimit)
	logger.Info(ctx, "session", "session.answer",
		slog.Int("prompt_len", len([]rune(ev.Text))),
		slog.Int("answer_len", len([]rune(answer))),
		slog.Int("chunks", len(chunks)),
		slog.Duration("duration", logger.Took(start)),
	)
	for _, chunk := range chunks {
		if err := sink.Render(ctx, Render{Text: chunk, Format: FormatPlain}); err != nil {
			return fmt.Errorf("render answer: %w", err)
		}
	}
	return nil
}

func (c *Controller) history(ctx context.Context, ev Event, sink Sink) error {
	st := c.convs.Get(ctx, ev.User.ID)
	if len(st.History) == 0 {
		return sink.Render(ctx, Render{Text: textHistoryEmpty, Format: FormatPlain})
	}
	items := st.History
	if len(items) > historyLimit {
		items = items[len(items)-historyLimit:]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*Last %d of %d exchanges:*\n", len(items), len(st.History))
	for i, ex := range items {
		fmt.Fprintf(&b, "\n%d.", i+1)
		if !ex.At.IsZero() {
			fmt.Fprintf(&b, " _%s_", humanize.Time(ex.At))
		}
		fmt.Fprintf(&b, "\n*You:* %s\n*Gemini:* %s\n",
			format.EscapeMD(preview(ex.User)), format.EscapeMD(preview(ex.Assistant)))
	}
	for _, chunk := range format.Chunk(b.String(), c.chunkLimit) {
		if err := sink.Render(ctx, Render{Text: chunk, Format: FormatMarkdown}); err != nil {
			return err
		}
	}
	return nil
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	const limit = 200
	if r := []rune(s); len(r) > limit {
		return string(r[:limit]) + "…"
	}
	return s
}

func (c *Controller) stats(ctx context.Context, sink Sink) error {
	s := c.users.Stats(ctx)
	text := fmt.Sprintf("Users: %s\nTotal /start: %s", humanize.Comma(int64(s.Users)), humanize.Comma(int64(s.TotalUsage)))
	return sink.Render(ctx, Render{Text: text, Format: FormatPlain})
}
