// Package health serves the liveness probe used by container platforms.
package health

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/relaybot/core/logger"
)

const (
	defaultListen   = ":8080"
	shutdownTimeout = 5 * time.Second
)

// Config controls the probe listener. PORT (as set by most PaaS runtimes)
// wins over Listen.
type Config struct {
	Listen   string `yaml:"listen" envconfig:"HEALTH_LISTEN"`
	Port     string `yaml:"-" envconfig:"PORT"`
	Disabled bool   `yaml:"disabled" envconfig:"HEALTH_DISABLED"`
}

// Address returns the resolved listen address.
func (c Config) Address() string {
	if p := strings.TrimSpace(c.Port); p != "" {
		return net.JoinHostPort("", p)
	}
	if l := strings.TrimSpace(c.Listen); l != "" {
		return l
	}
	return defaultListen
}

// Handler answers 200 OK to GET on any path.
func Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/*", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return r
}

// Server is the probe HTTP server.
type Server struct {
	srv *http.Server
}

// NewServer prepares the server without listening.
func NewServer(cfg Config) *Server {
	return &Server{srv: &http.Server{
		Addr:              cfg.Address(),
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Addr returns the configured address.
func (s *Server) Addr() string { return s.srv.Addr }

// Run listens until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
	}()
	logger.Info(ctx, "health", "health.listen", slog.String("listen", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info(ctx, "health", "health.stopped")
	return nil
}
