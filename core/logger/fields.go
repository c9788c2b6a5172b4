package logger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// fields is one log line before encoding.
type fields map[string]any

// add flattens attr under prefix and stores the normalized values.
func (f fields) add(prefix string, attr slog.Attr) {
	key := attr.Key
	switch {
	case key == "":
		key = prefix
	case prefix != "":
		key = prefix + "." + key
	}
	val := attr.Value.Resolve()
	if val.Kind() == slog.KindGroup {
		for _, child := range val.Group() {
			f.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, v, ok := normalizeValue(key, val); ok {
		f[k] = v
	}
}

func (f fields) str(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (f fields) setDefault(key string, val any, present bool) {
	if !present {
		return
	}
	if _, ok := f[key]; !ok {
		f[key] = val
	}
}

// fromContext copies update metadata carried by ctx. Explicit attrs win.
func (f fields) fromContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	rid := RIDFrom(ctx)
	f.setDefault("rid", rid, rid != "")
	uid := UserIDFrom(ctx)
	f.setDefault("user_id", uid, uid != 0)
	upd := UpdateIDFrom(ctx)
	f.setDefault("update_id", upd, upd != 0)
	cid := ChatIDFrom(ctx)
	f.setDefault("chat_id", cid, cid != 0)
	handler := HandlerFrom(ctx)
	f.setDefault("handler", handler, handler != "")
}

// finish fills event and component, compacts the rid and normalizes the
// enumerated keys. Empty values are dropped.
func (f fields) finish(message string, keepFullRID bool) {
	if rid := f.str("rid"); rid != "" {
		if compact := CompactRID(rid); compact != "" && compact != rid {
			if keepFullRID {
				f.setDefault("rid_full", rid, true)
			}
			f["rid"] = compact
		}
	}
	if f.str("event") == "" {
		f["event"] = message
		if message == "" {
			f["event"] = "unknown"
		}
	}
	if f.str("component") == "" {
		f["component"] = "app"
	}

	f["level"] = normalizeLevel(f.str("level"))
	if s := f.str("status"); s != "" {
		f["status"] = normalizeStatus(s)
	}
	if o := f.str("outcome"); o != "" {
		if normalized, ok := normalizeOutcome(o); ok {
			f["outcome"] = normalized
		} else {
			delete(f, "outcome")
		}
	}

	for k, v := range f {
		if v == nil {
			delete(f, k)
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			delete(f, k)
		}
	}
}

// durationKey renames duration attributes so the unit is part of the key.
func durationKey(key string) string {
	if key == "duration" {
		return "duration_ms"
	}
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

// cleanString trims s and masks credentials that may hide in error text.
func cleanString(s string) string {
	return RedactToken(strings.TrimSpace(s))
}

func normalizeValue(key string, val slog.Value) (string, any, bool) {
	switch val.Kind() {
	case slog.KindString:
		return key, cleanString(val.String()), true
	case slog.KindBool:
		return key, val.Bool(), true
	case slog.KindInt64:
		return key, val.Int64(), true
	case slog.KindUint64:
		if u := val.Uint64(); u > math.MaxInt64 {
			return key, u, true
		}
		return key, int64(val.Uint64()), true
	case slog.KindFloat64:
		return key, val.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(val.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, val.Time().UTC().Format(time.RFC3339Nano), true
	}

	switch x := val.Any().(type) {
	case nil:
		return "", nil, false
	case error:
		return key, cleanString(x.Error()), true
	case time.Duration:
		return durationKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, cleanString(x.String()), true
	default:
		return key, cleanString(fmt.Sprint(x)), true
	}
}
