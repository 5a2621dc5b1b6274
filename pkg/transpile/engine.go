// Package transpile is the boundary to the external pipeline-to-SQL compiler.
//
// An Engine is called once per fragment through an Invoker, which times the
// call, applies the post-hoc processing-time budget and turns every failure
// into an Outcome that carries an engine Code. The invoker never panics.
package transpile

import (
	"fmt"

	"github.com/leapstack-labs/leapdplyr/pkg/core"
)

// Code is the numeric result code reported by an engine. Zero is success.
type Code int

// Engine result codes.
const (
	CodeOK            Code = 0
	CodeNullPointer   Code = -1
	CodeInvalidUTF8   Code = -2
	CodeInputTooLarge Code = -3
	CodeTimeout       Code = -4
	CodeSyntax        Code = -5
	CodeUnsupported   Code = -6
	CodeInternal      Code = -7
	CodePanic         Code = -8
	// CodeEmptyOutput is produced by the Invoker when an engine reports
	// success without any SQL.
	CodeEmptyOutput Code = -9
)

// String returns the short name of the code, e.g. "E-SYNTAX".
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "SUCCESS"
	case CodeNullPointer:
		return "E-NULL-POINTER"
	case CodeInvalidUTF8:
		return "E-INVALID-UTF8"
	case CodeInputTooLarge:
		return "E-INPUT-TOO-LARGE"
	case CodeTimeout:
		return "E-TIMEOUT"
	case CodeSyntax:
		return "E-SYNTAX"
	case CodeUnsupported:
		return "E-UNSUPPORTED"
	case CodeInternal:
		return "E-INTERNAL"
	case CodePanic:
		return "E-PANIC"
	case CodeEmptyOutput:
		return "E-EMPTY-OUTPUT"
	default:
		return "E-UNKNOWN"
	}
}

// Kind maps the code into the error taxonomy.
func (c Code) Kind() core.Kind {
	switch c {
	case CodeNullPointer, CodeInvalidUTF8:
		return core.KindNullOrMalformedInput
	case CodeInputTooLarge:
		return core.KindInputTooLarge
	case CodeTimeout:
		return core.KindTimeout
	case CodeSyntax:
		return core.KindSyntaxError
	case CodeUnsupported:
		return core.KindUnsupportedOperation
	default:
		return core.KindInternalError
	}
}

// Engine compiles one pipeline fragment to SQL.
//
// Implementations must be safe for concurrent use. Failures should be
// returned as *EngineError; any other error is treated as CodeInternal.
type Engine interface {
	Compile(code string, opts core.Options) (string, error)
}

// EngineError is a failure reported by an Engine.
type EngineError struct {
	Code    Code
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf creates an EngineError.
func Errorf(code Code, format string, args ...any) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Versioned is implemented by engines that report a version string.
type Versioned interface {
	Version() string
}

// StatsProvider is implemented by engines that cache results.
type StatsProvider interface {
	Stats() CacheStats
}

// Clearer is implemented by engines whose cache can be dropped.
type Clearer interface {
	Clear()
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(code string, opts core.Options) (string, error)

// Compile calls f.
func (f EngineFunc) Compile(code string, opts core.Options) (string, error) {
	return f(code, opts)
}
