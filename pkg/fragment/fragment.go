// Package fragment locates pipeline fragments in query text and splices the
// transpiled SQL back in their place.
package fragment

import (
	"context"
	"strings"

	"github.com/leapstack-labs/leapdplyr/pkg/core"
	"github.com/leapstack-labs/leapdplyr/pkg/marker"
)

// ChainOperator links successive pipeline operations.
const ChainOperator = "%>%"

// Error messages surfaced to the user.
const (
	msgUnterminated = "Unterminated embedded dplyr segment: expected '|)'"
	msgEmpty        = "Embedded dplyr segment cannot be empty"
	msgNoChain      = "Embedded dplyr segment must contain a %>% pipeline"
	msgNoTable      = "DPLYR pipeline must start with a table name"
	msgLeftover     = "Unprocessed %>% pipeline remains. Wrap pipelines with (| ... |) or provide a pure pipeline statement."
)

// ValidateFunc screens a fragment before it is transpiled.
// A non-nil error stops replacement and is returned unchanged.
type ValidateFunc func(code string) error

// TranspileFunc turns a validated fragment into SQL.
type TranspileFunc func(ctx context.Context, frag core.FragmentContext) (string, error)

// Replacer rewrites every embedded fragment in a query to an inline subquery.
// It holds no state of its own; all effects go through Validate and Transpile.
type Replacer struct {
	Validate  ValidateFunc
	Transpile TranspileFunc
}

// HasChain reports whether s contains the chain operator.
func HasChain(s string) bool {
	return strings.Contains(s, ChainOperator)
}

// StripTrailingSemicolons trims s and removes trailing ';' until stable.
func StripTrailingSemicolons(s string) string {
	s = strings.TrimSpace(s)
	for strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	}
	return s
}

// LeadingTableName returns the identifier before the first chain operator.
// It returns "" unless every byte is an ASCII letter, digit, '_' or '.'.
func LeadingTableName(code string) string {
	prefix := code
	if i := strings.Index(code, ChainOperator); i >= 0 {
		prefix = code[:i]
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}
	for i := 0; i < len(prefix); i++ {
		if !isTableByte(prefix[i]) {
			return ""
		}
	}
	return prefix
}

func isTableByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '.'
}

// Prepare cleans a whole-statement fragment and extracts its table hint.
func Prepare(code string) (core.FragmentContext, error) {
	code = StripTrailingSemicolons(code)
	if code == "" {
		return core.FragmentContext{}, core.Errorf(core.KindNullOrMalformedInput, "DPLYR pipeline cannot be empty")
	}
	table := LeadingTableName(code)
	if table == "" {
		return core.FragmentContext{Code: code}, &core.Error{Kind: core.KindNullOrMalformedInput, Message: msgNoTable, Fragment: code}
	}
	return core.FragmentContext{Code: code, Table: table}, nil
}

// prepareEmbedded applies the embedded-only checks before Prepare.
func prepareEmbedded(content string) (core.FragmentContext, error) {
	code := StripTrailingSemicolons(content)
	if code == "" {
		return core.FragmentContext{}, core.Errorf(core.KindNullOrMalformedInput, msgEmpty)
	}
	if !HasChain(code) {
		return core.FragmentContext{Code: code}, &core.Error{Kind: core.KindNullOrMalformedInput, Message: msgNoChain, Fragment: code}
	}
	return Prepare(code)
}

// Replace resolves every (| ... |) segment in query to "(" + sql + ")".
// Text outside markers is copied verbatim; input without markers is returned unchanged.
func (r *Replacer) Replace(ctx context.Context, query string) (string, error) {
	var out strings.Builder
	out.Grow(len(query))

	cursor := 0
	for cursor < len(query) {
		seg, ok, err := marker.Next(query, cursor)
		if err != nil {
			return "", &core.Error{Kind: core.KindNullOrMalformedInput, Message: msgUnterminated, Fragment: query[seg.MarkerStart:], Err: err}
		}
		if !ok {
			out.WriteString(query[cursor:])
			break
		}

		out.WriteString(query[cursor:seg.MarkerStart])

		sql, err := r.resolve(ctx, seg.Content)
		if err != nil {
			return "", err
		}

		out.WriteByte('(')
		out.WriteString(sql)
		out.WriteByte(')')

		cursor = seg.MarkerEnd + 1
	}

	return out.String(), nil
}

// Resolve runs a whole-statement fragment through the same checks as an
// embedded one, minus the chain-operator requirement.
func (r *Replacer) Resolve(ctx context.Context, code string) (string, error) {
	frag, err := Prepare(code)
	if err != nil {
		return "", err
	}
	return r.transpile(ctx, frag)
}

func (r *Replacer) resolve(ctx context.Context, content string) (string, error) {
	frag, err := prepareEmbedded(content)
	if err != nil {
		return "", err
	}
	return r.transpile(ctx, frag)
}

func (r *Replacer) transpile(ctx context.Context, frag core.FragmentContext) (string, error) {
	if r.Validate != nil {
		if err := r.Validate(frag.Code); err != nil {
			return "", err
		}
	}
	if r.Transpile == nil {
		return "", core.Errorf(core.KindInternalError, "no transpiler configured")
	}
	return r.Transpile(ctx, frag)
}

// CheckLeftover rejects SQL that still contains the chain operator after replacement.
func CheckLeftover(sql string) error {
	if HasChain(sql) {
		return &core.Error{Kind: core.KindNullOrMalformedInput, Message: msgLeftover, Fragment: sql}
	}
	return nil
}
