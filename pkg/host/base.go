package host

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapdplyr/pkg/core"
)

// ProbeAlias is the alias given to the wrapped query in a schema probe.
const ProbeAlias = "dplyr_subquery"

// ErrNotConnected is returned when a host is used before Connect.
var ErrNotConnected = errors.New("database connection not established")

// ProbeSQL wraps query so that it returns no rows.
func ProbeSQL(query string) string {
	return "SELECT * FROM (" + query + ") AS " + ProbeAlias + " LIMIT 0"
}

// BaseSQLHost provides the database/sql parts of a Host.
// Embed it in concrete hosts, which then only implement Connect and Name.
type BaseSQLHost struct {
	DB     *sql.DB
	Cfg    core.HostConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLHost) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Exec runs a statement that doesn't return rows.
func (b *BaseSQLHost) Exec(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	_, err := b.DB.ExecContext(ctx, sqlStr)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Prepare asks the engine to parse sqlStr and discards the statement.
func (b *BaseSQLHost) Prepare(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	stmt, err := b.DB.PrepareContext(ctx, sqlStr)
	if err != nil {
		return fmt.Errorf("failed to parse generated SQL: %w", err)
	}
	return stmt.Close()
}

// Probe runs sqlStr wrapped in a LIMIT 0 subquery and reads the column types.
func (b *BaseSQLHost) Probe(ctx context.Context, sqlStr string) (*core.Schema, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	rows, err := b.DB.QueryContext(ctx, ProbeSQL(sqlStr))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	schema, err := SchemaOf(rows)
	if err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schema, nil
}

// Query runs a statement that returns rows.
func (b *BaseSQLHost) Query(ctx context.Context, sqlStr string) (*core.Rows, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLHost) IsConnected() bool {
	return b.DB != nil
}

// SchemaOf reads the output columns of rows.
func SchemaOf(rows *sql.Rows) (*core.Schema, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}
	schema := &core.Schema{Columns: make([]core.Column, len(types))}
	for i, ct := range types {
		nullable, ok := ct.Nullable()
		schema.Columns[i] = core.Column{
			Name:     ct.Name(),
			Type:     ct.DatabaseTypeName(),
			Nullable: nullable || !ok,
			Position: i + 1,
		}
	}
	return schema, nil
}
