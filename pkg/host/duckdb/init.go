package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/leapdplyr/pkg/host"
)

func init() {
	host.Register(Name, func(logger *slog.Logger) host.Host { return New(logger) })
}
