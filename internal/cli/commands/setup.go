// Package commands implements the leapdplyr subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdplyr/internal/config"
	"github.com/leapstack-labs/leapdplyr/internal/history"
	"github.com/leapstack-labs/leapdplyr/internal/logging"
	"github.com/leapstack-labs/leapdplyr/pkg/accept"
	"github.com/leapstack-labs/leapdplyr/pkg/dplyr"
	"github.com/leapstack-labs/leapdplyr/pkg/host"
	"github.com/leapstack-labs/leapdplyr/pkg/session"

	// Hosts register themselves on import.
	_ "github.com/leapstack-labs/leapdplyr/pkg/host/duckdb"
	_ "github.com/leapstack-labs/leapdplyr/pkg/host/postgres"
)

type (
	configKey struct{}
	loggerKey struct{}
)

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetConfig retrieves the config from ctx, falling back to the defaults.
func GetConfig(ctx context.Context) *config.Config {
	if ctx != nil {
		if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
			return c
		}
	}
	cfg, err := config.Load("", nil)
	if err != nil {
		cfg = &config.Config{}
	}
	return cfg
}

// GetLogger retrieves the logger from ctx.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}

// CommandContext bundles what a command needs to run queries.
type CommandContext struct {
	Cfg       *config.Config
	Logger    *slog.Logger
	Host      host.Host
	Engine    *dplyr.Engine
	Extension *accept.Extension
	Sessions  *session.Manager
	// Session is the default session opened from Sessions.
	Session *session.Session
	// History is nil when history is disabled or could not be opened.
	History *history.Store
}

// NewCommandContext creates a CommandContext. When connect is false the host
// is created but never connected, which is enough for transpiling.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command, connect bool) (*CommandContext, func(), error) {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)
	logger := GetLogger(ctx)

	h, err := host.New(cfg.HostConfig(), logging.Category(logger, logging.CategoryGeneral))
	if err != nil {
		return nil, nil, err
	}
	if connect {
		if err := h.Connect(ctx, cfg.HostConfig()); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to %s: %w", h.Name(), err)
		}
	}

	mode, _ := accept.ParseMode(cfg.Mode)
	engine := dplyr.New()
	ext, err := accept.New(accept.Config{
		Host:    h,
		Engine:  engine,
		Options: cfg.Options(),
		Mode:    mode,
		Logger:  logger,
	})
	if err != nil {
		_ = h.Close()
		return nil, nil, err
	}

	sessions := session.NewManager(engine, cfg.Cache.Size, cfg.CacheTTL())
	cc := &CommandContext{
		Cfg:       cfg,
		Logger:    logger,
		Host:      h,
		Engine:    engine,
		Extension: ext,
		Sessions:  sessions,
		Session:   sessions.Open(),
	}

	if connect && cfg.History.Path != "" {
		store, err := history.Open(ctx, cfg.History.Path)
		if err != nil {
			logger.Warn("history disabled", "path", cfg.History.Path, "error", err)
		} else {
			cc.History = store
		}
	}

	cleanup := func() {
		if cc.History != nil {
			_ = cc.History.Close()
		}
		_ = h.Close()
	}
	return cc, cleanup, nil
}

// NewSession opens a fresh session sharing the context's engine and cache settings.
// Callers release it with CloseSession.
func (c *CommandContext) NewSession() *session.Session {
	return c.Sessions.Open()
}

// CloseSession drops sess and its cached compiles.
func (c *CommandContext) CloseSession(sess *session.Session) {
	if err := c.Sessions.Close(sess.ID); err != nil {
		c.Logger.Debug("close session", "error", err)
	}
}
