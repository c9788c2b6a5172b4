// Package telegrambot adapts Telebot updates to session events and session
// renders to Telegram messages.
package telegrambot

import (
	"context"
	"errors"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/relaybot/core/logger"
	tg "github.com/m3rciful/relaybot/core/telegram"
	"github.com/m3rciful/relaybot/core/telegram/callbacks"
	"github.com/m3rciful/relaybot/core/telegram/commands"
	"github.com/m3rciful/relaybot/core/telegram/helpers"
	"github.com/m3rciful/relaybot/core/telegram/router"
	"github.com/m3rciful/relaybot/internal/session"
)

// EventHandler is implemented by session.Controller.
type EventHandler interface {
	Handle(ctx context.Context, ev session.Event, sink session.Sink) error
}

// Bot binds a session handler to Telegram.
type Bot struct {
	handler EventHandler
	adminID int64
}

// New creates the adapter. adminID gates /stats; 0 leaves it open.
func New(handler EventHandler, adminID int64) *Bot {
	return &Bot{handler: handler, adminID: adminID}
}

// Register wires commands, the menu callback and the text fallback.
func (b *Bot) Register(reg *tg.Registry) error {
	errs := []error{
		reg.RegisterCommand("/start", commands.Command{
			Handler:     b.on(session.EventStart),
			Description: "Open the main menu",
			Aliases:     []string{"/menu"},
		}),
		reg.RegisterCommand("/stop", commands.Command{
			Handler:     b.on(session.EventStop),
			Description: "End the Gemini chat",
		}),
		reg.RegisterCommand("/help", commands.Command{
			Handler:     b.on(session.EventHelp),
			Description: "Show available commands",
		}),
		reg.RegisterCommand("/history", commands.Command{
			Handler:     b.on(session.EventHistory),
			Description: "Show your last Gemini questions",
		}),
		reg.RegisterCommand("/stats", commands.Command{
			Handler:     b.on(session.EventStats),
			Description: "Usage statistics",
			AdminOnly:   true,
			Hidden:      true,
		}),
		reg.RegisterCallback(menuKey, b.onButton),
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	reg.SetCallbackNotFound(b.UnknownCallback())
	reg.SetTextFallback(b.onText)
	return nil
}

// Routes builds every Telebot route for reg.
func (b *Bot) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       b.adminID,
		OnAdminReject: b.rejectAdmin,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		NotFound: b.UnknownCallback(),
	}))
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{
		UnknownText:     b.UnknownText(),
		UnknownDocument: b.UnknownDocument(),
		AdminID:         b.adminID,
		OnAdminReject:   b.rejectAdmin,
	})...)
	return routes
}

func (b *Bot) on(kind session.EventKind) tele.HandlerFunc {
	return func(c tele.Context) error {
		return b.dispatch(c, session.Event{Kind: kind})
	}
}

func (b *Bot) onButton(c tele.Context) error {
	return b.dispatch(c, session.Event{Kind: session.EventButton, Tag: callbacks.CallbackPayload(c)})
}

func (b *Bot) onText(c tele.Context) error {
	return b.dispatch(c, session.Event{Kind: session.EventMessage, Text: c.Text()})
}

func (b *Bot) dispatch(c tele.Context, ev session.Event) error {
	ctx := helpers.BuildContext(c)
	if u := c.Sender(); u != nil {
		ev.User = session.User{ID: u.ID, Username: u.Username, FirstName: u.FirstName}
	}
	if ev.User.ID == 0 {
		logger.Warn(ctx, "tg", "update.no_sender", slog.String("kind", ev.Kind.String()))
		return nil
	}
	return b.handler.Handle(ctx, ev, &teleSink{c: c})
}

func (b *Bot) rejectAdmin(c tele.Context) error {
	return helpers.SendText(c, "This command is available to the administrator only.")
}

// UnknownText handles text no route claimed.
func (b *Bot) UnknownText() tele.HandlerFunc {
	return b.onText
}

// UnknownDocument answers documents and other non-text messages.
func (b *Bot) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return helpers.SendText(c, "I can only read text messages.")
	}
}

// UnknownCallback handles callbacks with an unregistered key. Stale buttons from older
// keyboards reach the controller as unknown actions.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return b.dispatch(c, session.Event{Kind: session.EventButton, Tag: callbacks.CallbackKey(c)})
	}
}
