package ai

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failed Generate call.
type Kind string

const (
	// KindConfig means no API key is configured; no request was made.
	KindConfig Kind = "ai_not_configured"
	// KindAllVariantsFailed means every model variant failed and the REST
	// fallback is disabled.
	KindAllVariantsFailed Kind = "ai_all_variants_failed"
	// KindTransport means the REST fallback failed on the network or returned a
	// non-2xx status.
	KindTransport Kind = "ai_transport"
	// KindMalformed means the REST fallback answered with a payload that holds
	// no usable text.
	KindMalformed Kind = "ai_malformed_response"
)

// ErrNotConfigured is wrapped by KindConfig errors.
var ErrNotConfigured = errors.New("ai: api key not configured")

var (
	errEmptyText  = errors.New("empty text in response")
	errNoVariants = errors.New("no model variants configured")
)

// Attempt records one failed try.
type Attempt struct {
	Name string
	Err  error
}

// Error is returned by Client.Generate.
type Error struct {
	Kind     Kind
	Attempts []Attempt
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("ai: ")
	b.WriteString(string(e.Kind))
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if n := len(e.Attempts); n > 0 {
		fmt.Fprintf(&b, " (%d attempts)", n)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Code reports the kind for log summaries.
func (e *Error) Code() string { return string(e.Kind) }

// Diagnostic is a short single-line description safe to show to users.
func (e *Error) Diagnostic() string {
	msg := string(e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	msg = strings.Join(strings.Fields(msg), " ")
	const limit = 160
	if r := []rune(msg); len(r) > limit {
		msg = string(r[:limit]) + "…"
	}
	return msg
}

// KindOf extracts the kind from err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// kindError tags a REST failure with its final classification.
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }

func transportErr(format string, args ...any) error {
	return &kindError{kind: KindTransport, err: fmt.Errorf(format, args...)}
}

func malformedErr(format string, args ...any) error {
	return &kindError{kind: KindMalformed, err: fmt.Errorf(format, args...)}
}
