package middleware

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/relaybot/core/logger"
	tghelpers "github.com/m3rciful/relaybot/core/telegram/helpers"
)

// AdminOptions configures AdminOnlyMiddleware. A zero AdminID leaves the
// guarded handlers open.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

func fromAdmin(c tele.Context, adminID int64) bool {
	if adminID == 0 {
		return true
	}
	u := c.Sender()
	return u != nil && u.ID == adminID
}

// AdminOnlyMiddleware passes updates from the configured admin and hands every
// other sender to OnReject, or drops them silently when it is nil.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if fromAdmin(c, opts.AdminID) {
				return next(c)
			}
			logger.Info(tghelpers.BuildContext(c), "tg", "access.denied",
				slog.Bool("notified", opts.OnReject != nil),
			)
			if opts.OnReject == nil {
				return nil
			}
			return opts.OnReject(c)
		}
	}
}
