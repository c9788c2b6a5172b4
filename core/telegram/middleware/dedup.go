package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/relaybot/core/logger"
	tghelpers "github.com/m3rciful/relaybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// DefaultDedupWindow is how long processed update IDs are remembered.
const DefaultDedupWindow = 10 * time.Minute

// updateWindow is a short-lived set of update IDs.
type updateWindow struct {
	mu        sync.Mutex
	seen      map[int]time.Time
	keep      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newUpdateWindow(keep time.Duration) *updateWindow {
	return &updateWindow{
		seen: make(map[int]time.Time),
		keep: keep,
		now:  time.Now,
	}
}

// seenBefore records id and reports whether it was already present.
func (w *updateWindow) seenBefore(id int) bool {
	now := w.now()
	w.mu.Lock()
	defer w.mu.Unlock()
	if now.Sub(w.lastSweep) > w.keep/10 {
		for k, ts := range w.seen {
			if now.Sub(ts) > w.keep {
				delete(w.seen, k)
			}
		}
		w.lastSweep = now
	}
	if ts, ok := w.seen[id]; ok && now.Sub(ts) <= w.keep {
		return true
	}
	w.seen[id] = now
	return false
}

func (w *updateWindow) size() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}

// DedupOptions configures DedupMiddleware.
type DedupOptions struct {
	// Window is how long an update ID is remembered; 0 -> DefaultDedupWindow.
	Window time.Duration
}

// DedupMiddleware drops updates whose update_id was already processed within
// the window. Telegram redelivers updates after webhook timeouts and restarts.
func DedupMiddleware(opts DedupOptions) tele.MiddlewareFunc {
	window := opts.Window
	if window == 0 {
		window = DefaultDedupWindow
	}
	if window < 0 {
		return func(next tele.HandlerFunc) tele.HandlerFunc { return next }
	}
	recent := newUpdateWindow(window)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			id := c.Update().ID
			if id == 0 || !recent.seenBefore(id) {
				return next(c)
			}
			ctx := tghelpers.BuildContext(c)
			logger.Info(ctx, "tg", "update.duplicate",
				slog.String("status", "skip"),
				slog.Int("update_id", id),
				slog.Int("dropped", 1),
			)
			return nil
		}
	}
}
