// Package ai relays single-turn prompts to Google Gemini. Model variants are
// tried in order through the genai SDK, then a plain REST call is made as the
// last resort.
package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/relaybot/core/logger"
)

const (
	DefaultBaseURL         = "https://generativelanguage.googleapis.com/v1beta"
	DefaultFallbackModel   = "gemini-1.5-flash"
	DefaultVariantTimeout  = 60 * time.Second
	DefaultFallbackTimeout = 30 * time.Second
)

// DefaultModels is the variant order used when none is configured.
var DefaultModels = []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro"}

// Config holds AI backend settings.
type Config struct {
	APIKey              string        `yaml:"api_key" envconfig:"GEMINI_API_KEY"`
	Models              []string      `yaml:"models" envconfig:"GEMINI_MODELS"`
	FallbackModel       string        `yaml:"fallback_model" envconfig:"GEMINI_FALLBACK_MODEL"`
	BaseURL             string        `yaml:"base_url" envconfig:"GEMINI_BASE_URL"`
	VariantTimeout      time.Duration `yaml:"variant_timeout" envconfig:"GEMINI_VARIANT_TIMEOUT"`
	FallbackTimeout     time.Duration `yaml:"fallback_timeout" envconfig:"GEMINI_FALLBACK_TIMEOUT"`
	DisableRESTFallback bool          `yaml:"disable_rest_fallback" envconfig:"GEMINI_DISABLE_REST_FALLBACK"`
}

// WithDefaults fills zero values.
func (c Config) WithDefaults() Config {
	c.APIKey = strings.TrimSpace(c.APIKey)
	if len(c.Models) == 0 {
		c.Models = append([]string(nil), DefaultModels...)
	}
	if c.FallbackModel == "" {
		c.FallbackModel = DefaultFallbackModel
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.VariantTimeout <= 0 {
		c.VariantTimeout = DefaultVariantTimeout
	}
	if c.FallbackTimeout <= 0 {
		c.FallbackTimeout = DefaultFallbackTimeout
	}
	return c
}

// Client is safe for concurrent use and keeps no per-call state.
type Client struct {
	cfg  Config
	gen  ContentGenerator
	http *http.Client
}

// New builds a client. Without an API key the client is returned unconfigured
// and every Generate call fails with KindConfig.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.WithDefaults()
	if cfg.APIKey == "" {
		return NewWithGenerator(cfg, nil), nil
	}
	gen, err := NewGenAIGenerator(ctx, cfg.APIKey)
	if err != nil {
		return nil, err
	}
	return NewWithGenerator(cfg, gen), nil
}

// NewWithGenerator builds a client around an existing variant generator.
func NewWithGenerator(cfg Config, gen ContentGenerator) *Client {
	cfg = cfg.WithDefaults()
	return &Client{
		cfg:  cfg,
		gen:  gen,
		http: &http.Client{Timeout: cfg.FallbackTimeout},
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// Generate returns the answer text for prompt, verbatim.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", &Error{Kind: KindConfig, Err: ErrNotConfigured}
	}

	start := time.Now()
	text, winner, failed := firstSuccess(ctx, c.attempts(prompt), func(a Attempt) {
		logger.Warn(ctx, "ai", "ai.attempt",
			slog.String("variant", a.Name),
			slog.String("status", "error"),
			slog.String("err", a.Err.Error()),
		)
	})
	if winner != "" {
		logger.Info(ctx, "ai", "ai.generate",
			slog.String("status", "ok"),
			slog.String("variant", winner),
			slog.Int("prompt_len", len([]rune(prompt))),
			slog.Int("answer_len", len([]rune(text))),
			slog.Duration("duration", logger.Took(start)),
		)
		return text, nil
	}

	err := c.classify(failed)
	logger.Error(ctx, "ai", "ai.generate",
		slog.String("status", "error"),
		slog.String("err_code", err.Code()),
		slog.String("err", err.Error()),
		slog.Duration("duration", logger.Took(start)),
	)
	return "", err
}

func (c *Client) attempts(prompt string) []attempt[string] {
	list := make([]attempt[string], 0, len(c.cfg.Models)+1)
	if c.gen != nil {
		for _, model := range c.cfg.Models {
			model := model
			list = append(list, attempt[string]{
				name: "genai:" + model,
				run: func(ctx context.Context) (string, error) {
					ctx, cancel := context.WithTimeout(ctx, c.cfg.VariantTimeout)
					defer cancel()
					text, err := c.gen.GenerateText(ctx, model, prompt)
					if err == nil && text == "" {
						err = errEmptyText
					}
					return text, err
				},
			})
		}
	}
	if !c.cfg.DisableRESTFallback {
		model := c.cfg.FallbackModel
		list = append(list, attempt[string]{
			name: "rest:" + model,
			run: func(ctx context.Context) (string, error) {
				ctx, cancel := context.WithTimeout(ctx, c.cfg.FallbackTimeout)
				defer cancel()
				return c.restGenerate(ctx, model, prompt)
			},
		})
	}
	return list
}

func (c *Client) classify(failed []Attempt) *Error {
	if len(failed) == 0 {
		return &Error{Kind: KindAllVariantsFailed, Err: errNoVariants}
	}
	last := failed[len(failed)-1]
	out := &Error{Kind: KindAllVariantsFailed, Attempts: failed, Err: last.Err}
	if c.cfg.DisableRESTFallback {
		return out
	}
	var ke *kindError
	if errors.As(last.Err, &ke) {
		out.Kind = ke.kind
	} else {
		out.Kind = KindTransport
	}
	return out
}
