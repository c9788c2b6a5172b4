package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	buf *bytes.Buffer
	aw  *asyncWriter
	log *slog.Logger
}

func newCapture(t *testing.T, format logFormat, component string) *capture {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]output{{w: buf, min: slog.LevelDebug}}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	return &capture{buf: buf, aw: aw, log: slog.New(h).With("component", component)}
}

func (c *capture) line(t *testing.T) string {
	t.Helper()
	require.NoError(t, c.aw.Flush())
	require.NoError(t, c.aw.Close())
	line := strings.TrimSpace(c.buf.String())
	require.NotEmpty(t, line, "expected a log line")
	return line
}

func assertInOrder(t *testing.T, line string, parts []string) {
	t.Helper()
	pos := -1
	for _, p := range parts {
		idx := strings.Index(line, p)
		require.Greater(t, idx, pos, "%q out of order in %s", p, line)
		pos = idx
	}
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	c := newCapture(t, formatKV, "session")
	ctx := WithUpdateMeta(WithRID(Background(), "rid-123"), 42, 7, 9)
	LogEvent(ctx, c.log, slog.LevelInfo, "session.handle",
		slog.String("status", "ok"),
		slog.String("action", "gemini_chat"),
	)

	tokens := strings.Split(c.line(t), " ")
	expected := []string{"ts=", "level=INFO", "component=session", "event=session.handle", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	require.GreaterOrEqual(t, len(tokens), len(expected))
	for i, prefix := range expected {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	c := newCapture(t, formatJSON, "ai")
	ctx := WithRID(Background(), "rid-json")
	LogEvent(ctx, c.log, slog.LevelError, "ai.generate",
		slog.String("status", "error"),
		slog.String("err", "boom"),
		slog.String("err_code", "ai_transport"),
	)
	line := c.line(t)
	require.True(t, strings.HasPrefix(line, "{"), line)
	assertInOrder(t, line, []string{`{"ts":`, `"level":"ERROR"`, `"component":"ai"`, `"event":"ai.generate"`, `"status":"error"`, `"rid":"rid-json"`, `"err":"boom"`, `"err_code":"ai_transport"`})
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	c := newCapture(t, formatKV, "app")
	LogEvent(WithRID(Background(), "123:456:789"), c.log, slog.LevelInfo, "rid.test")
	line := c.line(t)
	assert.Contains(t, line, "rid="+CompactRID("123:456:789"))
	assert.NotContains(t, line, "rid_full=")
}

func TestStructuredHandlerCompactRIDJSON(t *testing.T) {
	c := newCapture(t, formatJSON, "app")
	LogEvent(WithRID(Background(), "12:34:56"), c.log, slog.LevelInfo, "rid.test")
	line := c.line(t)
	assert.Contains(t, line, `"rid":"`+CompactRID("12:34:56")+`"`)
	assert.Contains(t, line, `"rid_full":"12:34:56"`)
	assert.Contains(t, line, `"ts_unix_nano"`)
}

func TestStructuredHandlerRedactsSecrets(t *testing.T) {
	c := newCapture(t, formatKV, "tg")
	key := "AIza" + strings.Repeat("x", 35)
	LogEvent(Background(), c.log, slog.LevelWarn, "bot.error",
		slog.Any("err", errors.New(`Post "https://api.telegram.org/bot123:ABC-def/getUpdates": timeout`)),
		slog.String("url", "https://example.test/?key="+key),
	)
	line := c.line(t)
	assert.NotContains(t, line, "123:ABC-def")
	assert.NotContains(t, line, key)
	assert.Contains(t, line, "bot<redacted>")
}

func TestStructuredHandlerDurationKeys(t *testing.T) {
	c := newCapture(t, formatKV, "db")
	LogEvent(Background(), c.log, slog.LevelInfo, "db.connect",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Duration("startup_duration", 2*time.Second),
		slog.Any("backoff_ms", 250*time.Millisecond),
	)
	line := c.line(t)
	assert.Contains(t, line, "duration_ms=2")
	assert.Contains(t, line, "startup_duration_ms=2000")
	assert.Contains(t, line, "backoff_ms=250")
}

func TestWriterLevelFilter(t *testing.T) {
	all, errs := &bytes.Buffer{}, &bytes.Buffer{}
	aw := newAsyncWriter([]output{
		{w: all, min: slog.LevelDebug},
		{w: errs, min: slog.LevelWarn},
	}, 0)
	require.NoError(t, aw.Write(slog.LevelInfo, []byte("info\n")))
	require.NoError(t, aw.Write(slog.LevelError, []byte("error\n")))
	require.NoError(t, aw.Close())

	assert.Equal(t, "info\nerror\n", all.String())
	assert.Equal(t, "error\n", errs.String())
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(2, 5)
	var got []bool
	for range 10 {
		got = append(got, s.Allow())
	}
	assert.Equal(t, []bool{true, true, false, false, false, true, true, false, false, false}, got)

	s.Set(0, 0)
	assert.True(t, s.Allow())

	n, d := parseRatioSpec("1/50")
	assert.Equal(t, [2]int{1, 50}, [2]int{n, d})
	n, d = parseRatioSpec("10")
	assert.Equal(t, [2]int{1, 10}, [2]int{n, d})
	n, d = parseRatioSpec("x/y")
	assert.Equal(t, [2]int{0, 0}, [2]int{n, d})
}

func TestContextHelpers(t *testing.T) {
	assert.Equal(t, "rid", RIDFrom(WithRID(Background(), "rid")))
	ctx := WithHandler(WithUpdateMeta(Background(), 5, 6, -7), "start")
	assert.Equal(t, 5, UpdateIDFrom(ctx))
	assert.Equal(t, int64(6), UserIDFrom(ctx))
	assert.Equal(t, int64(-7), ChatIDFrom(ctx))
	assert.Equal(t, "start", HandlerFrom(ctx))
	assert.Empty(t, HandlerFrom(Background()))

	assert.Equal(t, "5.-7.6", CompactRID(BuildRID(5, -7, 6)))
	assert.Equal(t, "not-a-rid", CompactRID("not-a-rid"))
	assert.Equal(t, "a\tb", Sanitize("a\u0000\tb\u200b"))
	assert.Equal(t, "héll", SanitizeLimit("héllo", 4))
}

func TestStructuredHandlerGroupsFlatten(t *testing.T) {
	c := newCapture(t, formatKV, "health")
	lg := c.log.With("before", 1).WithGroup("http").With("code", 200)
	lg.LogAttrs(Background(), slog.LevelInfo, "health.request",
		slog.Group("req", slog.String("path", "/x")),
	)
	line := c.line(t)
	assert.Contains(t, line, "before=1")
	assert.Contains(t, line, "http.code=200")
	assert.Contains(t, line, "http.req.path=/x")
	assert.Contains(t, line, "event=health.request")
}
