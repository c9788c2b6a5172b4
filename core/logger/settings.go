package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	coreconfig "github.com/m3rciful/relaybot/core/config"
)

const (
	defaultSampleNum = 1
	defaultSampleDen = 50
	writerBufferSize = 64 * 1024
)

// settings is the resolved logging section.
type settings struct {
	format     logFormat
	keyOrder   []string
	level      slog.Level
	sampleNum  int
	sampleDen  int
	profile    string
	dir        string
	botFile    string
	errorsFile string
}

func resolveSettings(cfg *coreconfig.Config) settings {
	s := settings{
		format:    formatJSON,
		keyOrder:  append([]string(nil), defaultKeyOrder...),
		level:     slog.LevelInfo,
		sampleNum: defaultSampleNum,
		sampleDen: defaultSampleDen,
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	s.profile = parseProfile(lc.Profile)
	s.format = parseFormat(lc.Format, s.profile)
	if order := parseKeyOrder(lc.KeysOrder); len(order) > 0 {
		s.keyOrder = order
	}
	s.level = parseLevel(lc.Level)
	s.sampleNum, s.sampleDen = parseSample(lc.DebugSample)
	s.dir = strings.TrimSpace(lc.Dir)
	s.botFile = strings.TrimSpace(lc.BotFile)
	s.errorsFile = strings.TrimSpace(lc.ErrorsFile)
	return s
}

func parseProfile(raw string) string {
	if p := strings.ToLower(strings.TrimSpace(raw)); p != "" {
		return p
	}
	return "prod"
}

// parseFormat honours an explicit format; otherwise debug and dev profiles
// get the human readable key=value form.
func parseFormat(raw, profile string) logFormat {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	if profile == "debug" || profile == "dev" {
		return formatKV
	}
	return formatJSON
}

func parseKeyOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var order []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			order = append(order, p)
		}
	}
	return order
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// parseSample reads the debug sampling ratio. "off" or "0" lets every debug
// event through; anything unparsable keeps the default.
func parseSample(raw string) (int, int) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return defaultSampleNum, defaultSampleDen
	case "off", "0", "all":
		return 0, 0
	}
	num, den := parseRatioSpec(raw)
	if num <= 0 || den <= 0 {
		return defaultSampleNum, defaultSampleDen
	}
	return num, den
}

// openOutputs returns stdout plus the optional bot and errors files under
// the log directory. Files that cannot be opened are reported on stderr and
// skipped.
func openOutputs(s settings) ([]output, []io.Closer) {
	outputs := []output{{w: os.Stdout, min: slog.LevelDebug}}
	if s.dir == "" {
		return outputs, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "logger: create dir %s: %v\n", s.dir, err)
		return outputs, nil
	}

	var closers []io.Closer
	for _, f := range []struct {
		name string
		min  slog.Level
	}{
		{s.botFile, slog.LevelDebug},
		{s.errorsFile, slog.LevelWarn},
	} {
		if f.name == "" {
			continue
		}
		path := filepath.Join(s.dir, f.name)
		fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logger: open %s: %v\n", path, err)
			continue
		}
		outputs = append(outputs, output{w: fh, min: f.min})
		closers = append(closers, fh)
	}
	return outputs, closers
}
