// Package diag renders user-facing diagnostics for rejected pipeline queries.
package diag

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/leapstack-labs/leapdplyr/pkg/core"
)

// MaxEchoLength caps the echoed fragment, including the ellipsis.
const MaxEchoLength = 200

const (
	recoverableTrailer = "This error is recoverable. You can try again with corrected input."
	fatalTrailer       = "This is a fatal error. Please check your system configuration."
	debugHint          = "Enable debug mode with DPLYR_DEBUG=1 for more details"
)

// Limits are the configured values quoted by the resource-limit suggestions.
type Limits struct {
	MaxInputLength    int
	MaxProcessingTime time.Duration
}

// LimitsFrom takes the limits from transpile options.
func LimitsFrom(opts core.Options) Limits {
	opts = opts.Normalize()
	return Limits{MaxInputLength: opts.MaxInputLength, MaxProcessingTime: opts.MaxProcessingTime}
}

// DefaultLimits returns the default limits.
func DefaultLimits() Limits {
	return LimitsFrom(core.DefaultOptions())
}

// Format renders a diagnostic for kind. It never fails: a panic while
// formatting degrades to a generic internal-error message.
func Format(kind core.Kind, raw, fragment string, lim Limits) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("[%s] DPLYR error handling failed: %v", core.KindInternalError, r)
		}
	}()
	return formatFn(kind, raw, fragment, lim)
}

var formatFn = format

func format(kind core.Kind, raw, fragment string, lim Limits) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(kind.String())
	b.WriteString("] ")
	b.WriteString(raw)

	if kind == core.KindSyntaxError || kind == core.KindUnsupportedOperation {
		b.WriteString("\n\nInput code: '")
		b.WriteString(Truncate(fragment))
		b.WriteString("'\n\nSuggestions:")
		for _, s := range Suggestions(kind, lim) {
			b.WriteString("\n  - ")
			b.WriteString(s)
		}
	}

	b.WriteString("\n\n")
	if kind.Recoverable() {
		b.WriteString(recoverableTrailer)
	} else {
		b.WriteString(fatalTrailer)
	}
	return b.String()
}

// Truncate shortens code to at most MaxEchoLength bytes, marking the cut with "...".
// The cut never splits a UTF-8 sequence.
func Truncate(code string) string {
	if len(code) <= MaxEchoLength {
		return code
	}
	n := MaxEchoLength - 3
	for n > 0 && !utf8.RuneStart(code[n]) {
		n--
	}
	return code[:n] + "..."
}

// Suggestions returns the remediation bullets for kind. The debug-mode hint is always last.
func Suggestions(kind core.Kind, lim Limits) []string {
	var s []string
	switch kind {
	case core.KindSyntaxError:
		s = []string{
			"Check dplyr function syntax (select, filter, mutate, etc.)",
			"Ensure proper use of pipe operator (%>%)",
			"Verify column names and function arguments",
			"Check for balanced parentheses and quotes",
		}
	case core.KindUnsupportedOperation:
		s = []string{
			"Use supported dplyr functions: select, filter, mutate, arrange, summarise, group_by",
			"Check if the operation is supported in DuckDB dialect",
			"Consider breaking complex operations into simpler steps",
		}
	case core.KindInputTooLarge:
		s = []string{
			"Reduce the length of your dplyr code",
			"Break complex pipelines into multiple steps",
			"Current limit: " + strconv.Itoa(lim.MaxInputLength) + " characters",
		}
	case core.KindTimeout:
		s = []string{
			"Simplify your dplyr pipeline",
			"Avoid deeply nested operations",
			"Current timeout: " + strconv.FormatInt(lim.MaxProcessingTime.Milliseconds(), 10) + "ms",
		}
	default:
		s = []string{
			"Check the dplyr documentation for correct syntax",
			"Try a simpler version of your pipeline first",
		}
	}
	return append(s, debugHint)
}

// NewError builds a classified error whose Error() is the formatted diagnostic.
func NewError(kind core.Kind, raw, fragment string, lim Limits) *core.Error {
	return &core.Error{
		Kind:       kind,
		Message:    raw,
		Fragment:   fragment,
		Diagnostic: Format(kind, raw, fragment, lim),
	}
}

// Wrap formats err as a diagnostic, keeping it as the cause.
// Errors without a kind are reported as internal errors.
func Wrap(err error, fragment string, lim Limits) *core.Error {
	if err == nil {
		return nil
	}
	kind := core.KindOf(err)
	raw := err.Error()
	if ce, ok := err.(*core.Error); ok {
		if ce.Diagnostic != "" {
			return ce
		}
		raw = ce.Message
		if fragment == "" {
			fragment = ce.Fragment
		}
	}
	e := NewError(kind, raw, fragment, lim)
	e.Err = err
	return e
}
