package core

import (
	"fmt"
	"time"
)

// Limits enforced on every transpile call.
const (
	// MaxInputLength is the hard ceiling for Options.MaxInputLength (1 MiB).
	MaxInputLength = 1024 * 1024
	// MaxProcessingTime is the hard ceiling for Options.MaxProcessingTime.
	MaxProcessingTime = 30 * time.Second
)

// Options control a single transpile call.
type Options struct {
	// StrictMode makes the transpiler reject constructs it would otherwise tolerate.
	StrictMode bool
	// PreserveComments keeps source comments in the generated SQL.
	PreserveComments bool
	// Debug enables verbose diagnostics and performance records.
	Debug bool
	// MaxInputLength is the maximum fragment size in bytes.
	MaxInputLength int
	// MaxProcessingTime is the post-hoc wall-clock budget for one transpile call.
	MaxProcessingTime time.Duration
}

// DefaultOptions returns options with the default limits.
func DefaultOptions() Options {
	return Options{
		MaxInputLength:    MaxInputLength,
		MaxProcessingTime: MaxProcessingTime,
	}
}

// Normalize fills zero limits with defaults and clamps them to the ceilings.
func (o Options) Normalize() Options {
	if o.MaxInputLength <= 0 || o.MaxInputLength > MaxInputLength {
		o.MaxInputLength = MaxInputLength
	}
	if o.MaxProcessingTime <= 0 || o.MaxProcessingTime > MaxProcessingTime {
		o.MaxProcessingTime = MaxProcessingTime
	}
	return o
}

// Validate checks the limits without modifying them.
func (o Options) Validate() error {
	if o.MaxInputLength <= 0 {
		return Errorf(KindInternalError, "max_input_length cannot be zero")
	}
	if o.MaxInputLength > MaxInputLength {
		return Errorf(KindInternalError, "max_input_length %d exceeds maximum %d", o.MaxInputLength, MaxInputLength)
	}
	if o.MaxProcessingTime > MaxProcessingTime {
		return Errorf(KindInternalError, "max_processing_time %s exceeds maximum %s", o.MaxProcessingTime, MaxProcessingTime)
	}
	return nil
}

// String renders the options for debug logging.
func (o Options) String() string {
	return fmt.Sprintf("strict=%t comments=%t debug=%t max_input=%d max_time=%s",
		o.StrictMode, o.PreserveComments, o.Debug, o.MaxInputLength, o.MaxProcessingTime)
}

// FragmentContext travels with a fragment through transpilation so
// diagnostics can quote the offending input.
type FragmentContext struct {
	// Code is the fragment text exactly as it was sent to the transpiler.
	Code string
	// Table is the leading table-name hint, or empty.
	Table string
	// Elapsed is the time spent in the transpiler.
	Elapsed time.Duration
}
