// Package logging builds the slog loggers used by the command line.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LevelTrace is below debug and enables per-fragment records.
const LevelTrace = slog.LevelDebug - 4

// Log categories attached to records with the "category" attribute.
const (
	CategoryGeneral       = "general"
	CategoryParser        = "parser"
	CategoryTranspiler    = "transpiler"
	CategoryCache         = "cache"
	CategoryErrorHandling = "error_handling"
	CategoryPerformance   = "performance"
)

// Format selects the handler.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseLevel maps a configured level name onto a slog level.
// "warn" and "warning" are both accepted.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return slog.LevelError, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (expected error, warning, info, debug or trace)", s)
	}
}

// LevelName is the inverse of ParseLevel.
func LevelName(l slog.Level) string {
	switch {
	case l <= LevelTrace:
		return "trace"
	case l <= slog.LevelDebug:
		return "debug"
	case l <= slog.LevelInfo:
		return "info"
	case l <= slog.LevelWarn:
		return "warning"
	default:
		return "error"
	}
}

// New creates a logger writing to w. A nil writer yields a discard logger.
func New(w io.Writer, level slog.Level, format Format) *slog.Logger {
	if w == nil {
		return slog.New(slog.DiscardHandler)
	}
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Category returns a child logger whose records carry category=name.
func Category(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return logger.With("category", name)
}

// replaceLevel prints LevelTrace as TRACE instead of DEBUG-4.
func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if l, ok := a.Value.Any().(slog.Level); ok && l <= LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}
