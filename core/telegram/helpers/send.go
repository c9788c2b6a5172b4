package helpers

import (
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/m3rciful/relaybot/core/logger"
	"github.com/m3rciful/relaybot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// queueWait bounds how long a reply waits for room on a saturated chat shard.
// Waiting keeps the reply behind the ones already queued for that chat.
var queueWait = 2 * time.Second

// SetDispatcher installs the asynchronous sender used by Reply. nil makes
// replies synchronous.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// Message is one outbound reply.
type Message struct {
	Text      string
	ParseMode tele.ParseMode
	Markup    *tele.ReplyMarkup
	// Edit replaces the message a callback belongs to, or sends a new one
	// when there is nothing to edit.
	Edit bool
}

func (m Message) action() (string, string) {
	action, endpoint := "send", "sendMessage"
	if m.Edit {
		action, endpoint = "edit_or_send", "editMessageText"
	}
	if m.ParseMode == tele.ModeDefault {
		return action + ".text", endpoint
	}
	return action + "." + strings.ToLower(string(m.ParseMode)), endpoint
}

// Reply queues m for the current chat and counts it for the handler summary.
func Reply(c tele.Context, m Message) error {
	opts := &tele.SendOptions{ParseMode: m.ParseMode, ReplyMarkup: m.Markup}
	countResponse(c, m.Markup)
	action, endpoint := m.action()
	return enqueue(c, action, endpoint, func() error {
		if m.Edit {
			return c.EditOrSend(m.Text, opts)
		}
		return c.Send(m.Text, opts)
	})
}

// SendText sends plain text to the current chat.
func SendText(c tele.Context, text string) error {
	return Reply(c, Message{Text: text})
}

// enqueue hands run to the dispatcher, waiting up to queueWait for room. A
// queue that stays full, or a closed one, degrades to a synchronous call so
// the reply is not lost; that call may overtake replies still queued for the
// same chat.
func enqueue(c tele.Context, action, endpoint string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.EnqueueWait(ctx, action, endpoint, run, queueWait)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}
