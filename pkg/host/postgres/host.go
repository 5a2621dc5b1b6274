// Package postgres provides the PostgreSQL host engine.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/leapdplyr/pkg/host"
)

// Name is the registered host name.
const Name = "postgres"

// Params holds PostgreSQL-specific configuration from host.Config.Params.
type Params struct {
	// SearchPath is applied to every connection when set.
	SearchPath string `mapstructure:"search_path"`
	// ApplicationName is reported to the server.
	ApplicationName string `mapstructure:"application_name"`
	// StatementTimeoutMS bounds each statement on the server side.
	StatementTimeoutMS int `mapstructure:"statement_timeout_ms"`
}

// ParseParams decodes raw host params.
func ParseParams(raw map[string]any) (*Params, error) {
	p := &Params{ApplicationName: "leapdplyr"}
	if len(raw) == 0 {
		return p, nil
	}
	if err := mapstructure.WeakDecode(raw, p); err != nil {
		return nil, fmt.Errorf("invalid postgres params: %w", err)
	}
	return p, nil
}

// Host implements host.Host for PostgreSQL.
type Host struct {
	host.BaseSQLHost
}

// New creates a new PostgreSQL host.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Host{BaseSQLHost: host.BaseSQLHost{Logger: logger}}
}

// Name returns "postgres".
func (h *Host) Name() string {
	return Name
}

// Connect establishes a connection to PostgreSQL.
func (h *Host) Connect(ctx context.Context, cfg host.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	h.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	connConfig, err := pgx.ParseConfig(buildDSN(cfg, params))
	if err != nil {
		return fmt.Errorf("invalid postgres connection settings: %w", err)
	}

	db := stdlib.OpenDB(*connConfig)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	h.DB = db
	h.Cfg = cfg
	return nil
}

// buildDSN constructs a key=value PostgreSQL connection string.
func buildDSN(cfg host.Config, p *Params) string {
	hostname := cfg.Host
	if hostname == "" {
		hostname = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	parts := []string{
		fmt.Sprintf("host=%s", hostname),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("dbname=%s", cfg.Database),
		fmt.Sprintf("sslmode=%s", sslmode),
	}
	if cfg.Username != "" {
		parts = append(parts, fmt.Sprintf("user=%s", cfg.Username))
	}
	if cfg.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", cfg.Password))
	}
	if p.ApplicationName != "" {
		parts = append(parts, fmt.Sprintf("application_name=%s", p.ApplicationName))
	}
	if p.SearchPath != "" {
		parts = append(parts, fmt.Sprintf("search_path=%s", p.SearchPath))
	}
	if p.StatementTimeoutMS > 0 {
		parts = append(parts, fmt.Sprintf("statement_timeout=%d", p.StatementTimeoutMS))
	}
	return strings.Join(parts, " ")
}

var _ host.Host = (*Host)(nil)
