package dplyr

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/leapdplyr/pkg/core"
	"github.com/leapstack-labs/leapdplyr/pkg/transpile"
)

// Version is the version reported by the built-in engine.
const Version = "0.3.0"

// Engine is the built-in transpile.Engine. It is stateless and safe for
// concurrent use.
type Engine struct{}

// New creates the built-in engine.
func New() *Engine {
	return &Engine{}
}

// Version implements transpile.Versioned.
func (*Engine) Version() string {
	return Version
}

// Compile implements transpile.Engine.
func (*Engine) Compile(code string, opts core.Options) (string, error) {
	opts = opts.Normalize()
	switch {
	case strings.TrimSpace(code) == "":
		return "", transpile.Errorf(transpile.CodeNullPointer, "Input code is empty")
	case !utf8.ValidString(code):
		return "", transpile.Errorf(transpile.CodeInvalidUTF8, "Input code is not valid UTF-8")
	case len(code) > opts.MaxInputLength:
		return "", transpile.Errorf(transpile.CodeInputTooLarge,
			"Input size %d bytes exceeds limit of %d bytes", len(code), opts.MaxInputLength)
	}

	pipeline, err := Parse(code)
	if err != nil {
		return "", transpile.Errorf(transpile.CodeSyntax, "%s", err)
	}

	sql, err := Generate(pipeline, GenerateOptions{
		Strict:           opts.StrictMode,
		PreserveComments: opts.PreserveComments,
	})
	if err != nil {
		var unsupported *UnsupportedError
		if errors.As(err, &unsupported) {
			return "", transpile.Errorf(transpile.CodeUnsupported, "%s", err)
		}
		return "", transpile.Errorf(transpile.CodeInternal, "%s", err)
	}
	return sql, nil
}
