package telegrambot

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/relaybot/core/telegram/helpers"
	"github.com/m3rciful/relaybot/core/telegram/keyboard"
	"github.com/m3rciful/relaybot/internal/session"
)

// menuKey is the callback unique shared by all navigation buttons; the action
// travels in the payload.
const menuKey = "menu"

// teleSink renders controller output into the current Telegram chat.
type teleSink struct {
	c tele.Context
}

var (
	_ session.Sink     = (*teleSink)(nil)
	_ session.Notifier = (*teleSink)(nil)
)

func (s *teleSink) Render(_ context.Context, r session.Render) error {
	m := helpers.Message{
		Text:   r.Text,
		Markup: buildMarkup(r.Keyboard),
		Edit:   r.Mode == session.ModeEdit && s.c.Callback() != nil,
	}
	if r.Format == session.FormatMarkdown {
		m.ParseMode = tele.ModeMarkdown
	}
	return helpers.Reply(s.c, m)
}

func (s *teleSink) Typing(context.Context) error {
	return s.c.Notify(tele.Typing)
}

func buildMarkup(rows [][]session.Button) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]keyboard.InlineBtn, 0, len(rows))
	for _, row := range rows {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			r = append(r, keyboard.InlineBtn{
				Text:   b.Label,
				Unique: menuKey,
				Data:   string(b.Action),
				URL:    b.URL,
			})
		}
		out = append(out, r)
	}
	return keyboard.InlineButtonsRows(out...)
}
