// Package duckdb provides the DuckDB host engine.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapdplyr/pkg/host"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Name is the registered host name.
const Name = "duckdb"

// Host implements host.Host for DuckDB.
type Host struct {
	host.BaseSQLHost
}

// New creates a new DuckDB host.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Host{BaseSQLHost: host.BaseSQLHost{Logger: logger}}
}

// Name returns "duckdb".
func (h *Host) Name() string {
	return Name
}

// Connect opens DuckDB at cfg.Path, or in memory when the path is empty.
func (h *Host) Connect(ctx context.Context, cfg host.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	h.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	h.DB = db
	h.Cfg = cfg

	if err := h.apply(ctx, params); err != nil {
		_ = db.Close()
		h.DB = nil
		return err
	}
	return nil
}

func (h *Host) apply(ctx context.Context, p *Params) error {
	for _, ext := range p.Extensions {
		if err := h.Exec(ctx, fmt.Sprintf("INSTALL %s; LOAD %s", ext, ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}
	for _, name := range sortedKeys(p.Settings) {
		if err := h.Exec(ctx, fmt.Sprintf("SET %s = '%s'", name, escape(p.Settings[name]))); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", name, err)
		}
	}
	for _, table := range sortedKeys(p.Tables) {
		if err := h.LoadCSV(ctx, table, p.Tables[table]); err != nil {
			return err
		}
	}
	return nil
}

// LoadCSV creates or replaces a table from a CSV file with an inferred schema.
func (h *Host) LoadCSV(ctx context.Context, tableName, filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	query := fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto('%s', header=true)",
		tableName, escape(absPath),
	)
	if err := h.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to load CSV into %s: %w", tableName, err)
	}
	return nil
}

func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ host.Host = (*Host)(nil)
