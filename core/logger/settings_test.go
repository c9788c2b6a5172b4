package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/relaybot/core/config"
)

func TestResolveSettingsDefaults(t *testing.T) {
	s := resolveSettings(nil)
	assert.Equal(t, formatJSON, s.format)
	assert.Equal(t, slog.LevelInfo, s.level)
	assert.Equal(t, defaultKeyOrder, s.keyOrder)
	assert.Equal(t, defaultSampleNum, s.sampleNum)
	assert.Equal(t, defaultSampleDen, s.sampleDen)
}

func TestResolveSettingsFromConfig(t *testing.T) {
	cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{
		Level:       "WARNING",
		Profile:     "Dev",
		KeysOrder:   "ts, level ,,event",
		DebugSample: "2/10",
	}}
	s := resolveSettings(cfg)
	assert.Equal(t, slog.LevelWarn, s.level)
	assert.Equal(t, "dev", s.profile)
	assert.Equal(t, formatKV, s.format, "dev profile defaults to kv")
	assert.Equal(t, []string{"ts", "level", "event"}, s.keyOrder)
	assert.Equal(t, 2, s.sampleNum)
	assert.Equal(t, 10, s.sampleDen)

	cfg.Logging.Format = "json"
	assert.Equal(t, formatJSON, resolveSettings(cfg).format)
}

func TestParseSample(t *testing.T) {
	cases := map[string][2]int{
		"":      {defaultSampleNum, defaultSampleDen},
		"off":   {0, 0},
		"0":     {0, 0},
		"20":    {1, 20},
		"3/4":   {3, 4},
		"x/y":   {defaultSampleNum, defaultSampleDen},
		"-1/10": {defaultSampleNum, defaultSampleDen},
	}
	for in, want := range cases {
		num, den := parseSample(in)
		assert.Equal(t, want, [2]int{num, den}, in)
	}
}

func TestOpenOutputsCreatesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	outputs, closers := openOutputs(settings{dir: dir, botFile: "bot.log", errorsFile: "errors.log"})
	t.Cleanup(func() {
		for _, c := range closers {
			_ = c.Close()
		}
	})
	require.Len(t, outputs, 3)
	assert.Equal(t, slog.LevelWarn, outputs[2].min)
	for _, name := range []string{"bot.log", "errors.log"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	outputs, closers = openOutputs(settings{})
	assert.Len(t, outputs, 1)
	assert.Empty(t, closers)
}

func TestRedactToken(t *testing.T) {
	in := `Post "https://api.telegram.org/bot123:ABC-def/getMe" and /v1beta/models/x:generateContent?key=secret&alt=json`
	out := RedactToken(in)
	assert.NotContains(t, out, "123:ABC-def")
	assert.NotContains(t, out, "secret")
	assert.Contains(t, out, "bot<redacted>")
	assert.Contains(t, out, "key=<redacted>&alt=json")
	assert.Equal(t, "plain text", RedactToken("plain text"))
}

func TestSummarizeStrings(t *testing.T) {
	s, cut := SummarizeStrings([]string{"a", "b", "c"}, 2)
	assert.Equal(t, "a, b", s)
	assert.True(t, cut)
	s, cut = SummarizeStrings([]string{"a"}, 2)
	assert.Equal(t, "a", s)
	assert.False(t, cut)
}
