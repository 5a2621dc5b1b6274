// Package testutil provides loggers for package tests.
package testutil

import (
	"log/slog"
	"testing"

	"github.com/leapstack-labs/leapdplyr/internal/logging"
)

// NewTestLogger returns a trace-level logger that writes to t.Log, so
// per-fragment records show up on failure or with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return logging.New(testWriter{t}, logging.LevelTrace, logging.FormatText)
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
