// Package host is the boundary to the query engine that parses, probes and
// executes the SQL produced from pipeline fragments.
//
// Concrete hosts live in pkg/host subdirectories and register themselves by
// name on import:
//
//	import _ "github.com/leapstack-labs/leapdplyr/pkg/host/duckdb"
package host

import (
	"context"

	"github.com/leapstack-labs/leapdplyr/pkg/core"
)

// Type aliases for the shared host types defined in pkg/core.
type (
	// Config is an alias for core.HostConfig.
	Config = core.HostConfig

	// Schema is an alias for core.Schema.
	Schema = core.Schema

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)

// Host is a connected query engine.
type Host interface {
	// Connect opens the connection described by cfg.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection.
	Close() error

	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, sql string) error

	// Prepare parses sql with the engine's own statement parser without running it.
	Prepare(ctx context.Context, sql string) error

	// Probe infers the output schema of a query without materializing rows.
	Probe(ctx context.Context, sql string) (*Schema, error)

	// Query runs sql and returns forward-only rows. The caller closes them.
	Query(ctx context.Context, sql string) (*Rows, error)

	// Name returns the registered host name.
	Name() string
}
