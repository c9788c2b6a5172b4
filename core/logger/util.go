package logger

import (
	"regexp"
	"strings"
	"time"
)

// Took is the rounded time elapsed since start.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds d to whole milliseconds; negative durations become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins at most limit values and reports whether some were
// left out.
func SummarizeStrings(values []string, limit int) (string, bool) {
	if limit <= 0 {
		return "", len(values) > 0
	}
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	return strings.Join(values[:limit], ", "), true
}

var secretPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`), "bot<redacted>"},
	{regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`), "<redacted>"},
	{regexp.MustCompile(`([?&]key=)[^&\s"]+`), "${1}<redacted>"},
}

// RedactToken masks Telegram bot tokens and Gemini API keys, including keys
// passed as a "key" query parameter.
func RedactToken(s string) string {
	if !strings.Contains(s, "bot") && !strings.Contains(s, "AIza") && !strings.Contains(s, "key=") {
		return s
	}
	for _, p := range secretPatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}
