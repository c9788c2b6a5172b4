package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/relaybot/core/config"
	"github.com/m3rciful/relaybot/core/telegram/middleware"
)

// DefaultMiddlewares is the global chain, outermost first: panic recovery,
// redelivery dedup, the receipt log and the reply counters.
func DefaultMiddlewares(cfg *coreconfig.Config) []Middleware {
	var window time.Duration
	if cfg != nil {
		window = time.Duration(cfg.Telegram.DedupWindowSeconds) * time.Second
	}
	return []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "dedup", Use: middleware.DedupMiddleware(middleware.DedupOptions{Window: window})},
		{Name: "logger", Use: middleware.LoggerMiddleware},
		{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	}
}
