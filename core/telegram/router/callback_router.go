package router

import (
	"log/slog"

	tg "github.com/m3rciful/relaybot/core/telegram"
	"github.com/m3rciful/relaybot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	// NotFound runs when the registry has no handler and no fallback of its own.
	NotFound tele.HandlerFunc
}

// CallbackRoute answers every callback query and dispatches it by unique key.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler: wrap(func(c tele.Context) error {
			if c.Callback() == nil {
				return nil
			}
			key := callbacks.CallbackKey(c)
			s := begin("callback."+key, slog.String("cb_key", key))

			// Stop the client spinner before any slow work.
			_ = c.Respond()

			if h, ok := reg.GetCallback(key); ok && h != nil {
				return s.run(c, h)
			}
			s.with(slog.String("reason", "not_found"))
			fallback := reg.CallbackNotFound()
			if fallback == nil {
				fallback = opts.NotFound
			}
			if fallback == nil {
				return s.skip(c)
			}
			return s.run(c, fallback)
		}),
	}
}
