package logger

import (
	"log/slog"
	"strings"
)

// levelNames maps accepted spellings to the names written in log lines.
var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// outcomes lists the values accepted for the outcome key; anything else is
// dropped from the record.
var outcomes = map[string]bool{
	"ok":           true,
	"fail":         true,
	"cancelled":    true,
	"rate_limited": true,
}

func normalizeLevel(level string) string {
	if level == "" {
		return slog.LevelInfo.String()
	}
	if name, ok := levelNames[strings.ToLower(level)]; ok {
		return name
	}
	return strings.ToUpper(level)
}

// normalizeStatus lowercases status; "canceled" is folded into "cancelled".
func normalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "canceled" {
		return "cancelled"
	}
	return status
}

func normalizeOutcome(outcome string) (string, bool) {
	outcome = normalizeStatus(outcome)
	return outcome, outcomes[outcome]
}

// defaultKeyOrder fixes where well-known keys appear in a line. Keys missing
// from the list follow in alphabetical order.
var defaultKeyOrder = []string{
	// envelope
	"ts", "level", "component", "event", "status",
	// correlation
	"rid", "rid_full", "ts_unix_nano", "update_id", "user_id", "chat_id", "chat_type",
	// routing
	"handler", "operation", "op", "cb_key", "outcome", "duration_ms", "messages", "kb",
	"count", "payload", "username",
	// lifecycle
	"mode", "listen", "public_url", "http_code", "db", "host", "port",
	// menu and relay
	"action", "screen", "active", "doc", "backend", "model", "variant",
	"prompt_len", "answer_len", "chunks", "history_len", "usage_count",
	// failures
	"err", "err_code", "cause", "retryable", "attempts", "backoff_ms", "rate_limited",
	// sampling
	"collapsed", "repeats", "dropped",
}
