package accept

import (
	"context"
	"strings"

	"github.com/leapstack-labs/leapdplyr/pkg/core"
	"github.com/leapstack-labs/leapdplyr/pkg/diag"
	"github.com/leapstack-labs/leapdplyr/pkg/fragment"
	"github.com/leapstack-labs/leapdplyr/pkg/host"
	"github.com/leapstack-labs/leapdplyr/pkg/session"
)

// Result is a fully materialized query result.
type Result struct {
	Columns []string
	Types   []string
	Rows    [][]any
	// SQL is the statement the host executed.
	SQL string
	// Pipeline reports whether the text went through the transpiler.
	Pipeline bool
}

func newResult(cur *Cursor, sql string, pipeline bool) *Result {
	return &Result{
		Columns:  cur.Schema().Names(),
		Types:    cur.Schema().Types(),
		Rows:     cur.All(),
		SQL:      sql,
		Pipeline: pipeline,
	}
}

// Run takes text through every stage. Text that is not pipeline syntax is
// handed to the host unchanged.
func (x *Extension) Run(ctx context.Context, sess *session.Session, text string) (*Result, error) {
	q := x.Begin(sess, text)
	defer x.End(q)

	if err := x.Parse(ctx, q); err != nil {
		return nil, err
	}
	if q.State() == StateUnrecognized {
		return x.native(ctx, text)
	}
	if _, err := x.Plan(ctx, q); err != nil {
		return nil, err
	}
	if _, err := x.Bind(ctx, q); err != nil {
		return nil, err
	}
	cur, err := x.Execute(ctx, q)
	if err != nil {
		return nil, err
	}
	return newResult(cur, q.SQL(), true), nil
}

// Transpile returns the SQL that Run would execute for text without
// touching the host. Text that is not pipeline syntax is returned as is.
func (x *Extension) Transpile(ctx context.Context, sess *session.Session, text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if !fragment.HasChain(trimmed) {
		return text, nil
	}
	if sess == nil {
		sess = x.Begin(nil, text).Session
	}
	sql, err := x.resolve(ctx, sess, trimmed)
	if err != nil {
		return "", diag.Wrap(err, "", x.limits())
	}
	return sql, nil
}

// CallDplyr is the dplyr(<pipeline>) table function.
func (x *Extension) CallDplyr(ctx context.Context, sess *session.Session, code string) (*Result, error) {
	if strings.TrimSpace(code) == "" {
		return nil, diag.NewError(core.KindNullOrMalformedInput,
			"dplyr() requires a non-empty query string", "", x.limits())
	}
	if sess == nil {
		sess = x.Begin(nil, code).Session
	}

	replacer := fragment.Replacer{Validate: x.validate, Transpile: x.invoker(sess).Transpile}
	sql, err := replacer.Resolve(ctx, code)
	if err != nil {
		return nil, diag.Wrap(err, "", x.limits())
	}
	return x.call(ctx, "dplyr", sql)
}

// CallDplyrQuery is the dplyr_query(<sql>) table function.
func (x *Extension) CallDplyrQuery(ctx context.Context, sql string) (*Result, error) {
	sql = fragment.StripTrailingSemicolons(sql)
	if sql == "" {
		return nil, diag.NewError(core.KindNullOrMalformedInput,
			QueryFunction+"() requires a non-empty SQL string", "", x.limits())
	}
	return x.call(ctx, QueryFunction, sql)
}

func (x *Extension) call(ctx context.Context, fn, sql string) (*Result, error) {
	schema, err := x.probe(ctx, fn, sql)
	if err != nil {
		return nil, diag.Wrap(err, sql, x.limits())
	}
	coll, err := x.materialize(ctx, sql)
	if err != nil {
		return nil, diag.Wrap(err, sql, x.limits())
	}
	return newResult(newCursor(schema, coll, nil), sql, fn == "dplyr"), nil
}

// native runs text on the host as ordinary SQL.
func (x *Extension) native(ctx context.Context, text string) (*Result, error) {
	rows, err := x.host.Query(ctx, text)
	if err != nil {
		return nil, err
	}
	schema, err := host.SchemaOf(rows.Rows)
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	coll, err := collect(rows)
	if err != nil {
		return nil, err
	}
	return newResult(newCursor(schema, coll, nil), text, false), nil
}
