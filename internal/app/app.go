// Package app wires configuration, storage, the AI client and the Telegram
// adapter into a runnable bot.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/relaybot/core/bootstrap"
	"github.com/m3rciful/relaybot/core/cmd"
	coredatabase "github.com/m3rciful/relaybot/core/database"
	"github.com/m3rciful/relaybot/core/logger"
	coretelegram "github.com/m3rciful/relaybot/core/telegram"
	"github.com/m3rciful/relaybot/internal/ai"
	"github.com/m3rciful/relaybot/internal/conversations"
	"github.com/m3rciful/relaybot/internal/health"
	"github.com/m3rciful/relaybot/internal/session"
	"github.com/m3rciful/relaybot/internal/telegrambot"
	"github.com/m3rciful/relaybot/internal/users"
)

// App holds the wired services.
type App struct {
	cfg  *Config
	boot *bootstrap.Result

	Users         *users.Registry
	Conversations *conversations.Store
	AI            *ai.Client
	Controller    *session.Controller
	Bot           *telegrambot.Bot

	registry *coretelegram.Registry
	health   *health.Server
}

// Options override infrastructure hooks, mostly for tests.
type Options struct {
	Bootstrap func(bootstrap.Options) (*bootstrap.Result, error)
	Generator ai.ContentGenerator
}

// New runs the bootstrap pipeline and wires every service.
func New(ctx context.Context, cfg *Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	boot := opts.Bootstrap
	if boot == nil {
		boot = bootstrap.Run
	}
	res, err := boot(bootstrap.Options{
		Config:     &cfg.Config,
		Driver:     databaseDriver(cfg.Storage.Backend),
		Database:   cfg.Database,
		SQLitePath: cfg.Storage.SQLitePath,
	})
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, boot: res}
	if err := a.wire(ctx, opts); err != nil {
		_ = res.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, opts Options) error {
	backend, err := openBackend(ctx, a.cfg, a.boot)
	if err != nil {
		return err
	}
	a.Users = users.NewRegistry(backend)
	a.Conversations = conversations.NewStore(backend)

	if opts.Generator != nil {
		a.AI = ai.NewWithGenerator(a.cfg.AI, opts.Generator)
	} else {
		a.AI, err = ai.New(ctx, a.cfg.AI)
		if err != nil {
			return fmt.Errorf("app: ai client: %w", err)
		}
	}
	if !a.AI.Configured() {
		logger.Warn(ctx, "ai", "ai.not_configured",
			slog.String("hint", "set GEMINI_API_KEY to enable the Gemini chat"),
		)
	}

	a.Controller = session.NewController(a.Users, a.Conversations, a.AI)
	a.Bot = telegrambot.New(a.Controller, a.cfg.Telegram.AdminID)
	a.registry = coretelegram.NewRegistry()
	if err := a.Bot.Register(a.registry); err != nil {
		return fmt.Errorf("app: register handlers: %w", err)
	}
	if !a.cfg.Health.Disabled {
		a.health = health.NewServer(a.cfg.Health)
	}
	return nil
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    a.registry,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config),
		Routes:      a.Bot.Routes(a.registry),
	}, nil
}

// BackgroundTasks implements cmd.BackgroundApp.
func (a *App) BackgroundTasks() []cmd.Task {
	if a.health == nil {
		return nil
	}
	return []cmd.Task{{Name: "health", Run: a.health.Run}}
}

// Close releases the database handle.
func (a *App) Close() error {
	return a.boot.Close()
}

// Migrate applies Postgres migrations without starting the bot.
func Migrate(cfg *Config) error {
	if cfg.Storage.Backend != BackendPostgres {
		return fmt.Errorf("app: migrations apply to the postgres backend, storage.backend is %q", cfg.Storage.Backend)
	}
	if err := logger.InitLogger(&cfg.Config); err != nil {
		return err
	}
	return coredatabase.RunMigrations(cfg.Database)
}

var (
	_ cmd.ConfigCarrier = (*Config)(nil)
	_ cmd.TelegramApp   = (*App)(nil)
	_ cmd.BackgroundApp = (*App)(nil)
)
