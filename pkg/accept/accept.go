// Package accept runs pipeline text through the parse, plan, bind and
// execute stages against a host engine.
//
// Each stage is an explicit call on a Query handle. The only state shared
// between stages lives in the query's session under StateKey: Parse stores
// the generated statement there and Bind takes it back out. End clears it
// unconditionally and must run when the query finishes, whatever the outcome.
package accept

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapdplyr/pkg/core"
	"github.com/leapstack-labs/leapdplyr/pkg/diag"
	"github.com/leapstack-labs/leapdplyr/pkg/fragment"
	"github.com/leapstack-labs/leapdplyr/pkg/guard"
	"github.com/leapstack-labs/leapdplyr/pkg/host"
	"github.com/leapstack-labs/leapdplyr/pkg/marker"
	"github.com/leapstack-labs/leapdplyr/pkg/session"
	"github.com/leapstack-labs/leapdplyr/pkg/transpile"
)

// StateKey is the session key holding the parsed Statement.
const StateKey = "dplyr"

// QueryFunction is the table function a planned pipeline is executed through.
const QueryFunction = "dplyr_query"

// Mode selects how pipeline text is recognized.
type Mode int

const (
	// ModeChain treats any statement containing the chain operator as a pipeline.
	ModeChain Mode = iota
	// ModeKeyword is the "DPLYR '...'" prefix form. It is not supported.
	ModeKeyword
)

func (m Mode) String() string {
	switch m {
	case ModeChain:
		return "chain"
	case ModeKeyword:
		return "keyword"
	default:
		return "unknown"
	}
}

// ParseMode converts a configuration value to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "chain":
		return ModeChain, true
	case "keyword":
		return ModeKeyword, true
	default:
		return ModeChain, false
	}
}

// ErrKeywordMode is returned by New for ModeKeyword.
var ErrKeywordMode = errors.New("keyword entry point is disabled; use chain mode")

// Statement is the artifact Parse hands to Plan and Bind.
type Statement struct {
	QueryID string
	SQL     string
}

// TableFunction describes the call a planned query is executed through.
type TableFunction struct {
	Name string
	Args []string
}

// Config configures an Extension.
type Config struct {
	Host host.Host
	// Engine is used by sessions that carry no engine of their own.
	Engine    transpile.Engine
	Options   core.Options
	Validator *guard.Validator
	Mode      Mode
	Logger    *slog.Logger
}

// Extension drives queries through the acceptance protocol.
type Extension struct {
	host      host.Host
	engine    transpile.Engine
	opts      core.Options
	validator *guard.Validator
	logger    *slog.Logger
}

// New validates cfg and creates an Extension.
func New(cfg Config) (*Extension, error) {
	if cfg.Host == nil {
		return nil, errors.New("accept: host is required")
	}
	if cfg.Mode == ModeKeyword {
		return nil, ErrKeywordMode
	}
	if cfg.Mode != ModeChain {
		return nil, errors.New("accept: unknown mode")
	}

	opts := cfg.Options
	if opts.MaxInputLength == 0 {
		opts.MaxInputLength = core.MaxInputLength
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.Normalize()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	validator := cfg.Validator
	if validator == nil {
		validator = guard.New(logger)
	}

	return &Extension{
		host:      cfg.Host,
		engine:    cfg.Engine,
		opts:      opts,
		validator: validator,
		logger:    logger,
	}, nil
}

// Host returns the host engine.
func (x *Extension) Host() host.Host {
	return x.host
}

// Options returns the normalized transpile options.
func (x *Extension) Options() core.Options {
	return x.opts
}

// Query is one statement moving through the protocol.
type Query struct {
	ID      string
	Session *session.Session
	Text    string
	Started time.Time

	state  State
	err    error
	sql    string
	fn     *TableFunction
	schema *host.Schema
}

// State returns the current protocol state.
func (q *Query) State() State {
	return q.state
}

// Err returns the error that rejected the query, if any.
func (q *Query) Err() error {
	return q.err
}

// SQL returns the generated SQL once the query has parsed.
func (q *Query) SQL() string {
	return q.sql
}

// Schema returns the inferred schema once the query is bound.
func (q *Query) Schema() *host.Schema {
	return q.schema
}

// Begin starts a query on sess. A nil session gets a private one.
func (x *Extension) Begin(sess *session.Session, text string) *Query {
	if sess == nil {
		sess = session.New(x.engine, transpile.DefaultCacheSize, transpile.DefaultCacheTTL)
	}
	return &Query{
		ID:      uuid.NewString(),
		Session: sess,
		Text:    text,
		Started: time.Now(),
	}
}

// Parse decides whether q is pipeline text and, if so, transpiles it and
// checks the result with the host parser. Text that is not a pipeline
// leaves q Unrecognized and returns nil.
func (x *Extension) Parse(ctx context.Context, q *Query) error {
	if err := x.expect(q, StateParsed); err != nil {
		return err
	}

	text := strings.TrimSpace(q.Text)
	if !fragment.HasChain(text) {
		return nil
	}

	sql, err := x.resolve(ctx, q.Session, text)
	if err != nil {
		return x.reject(q, err, "")
	}

	head := strings.ToUpper(strings.TrimSpace(sql))
	if !strings.HasPrefix(head, "SELECT") && !strings.HasPrefix(head, "WITH") {
		return x.reject(q, core.Errorf(core.KindUnsupportedOperation,
			"DPLYR generated a non-SELECT statement; only SELECT is supported"), text)
	}

	if err := x.host.Prepare(ctx, sql); err != nil {
		return x.reject(q, &core.Error{Kind: core.KindSyntaxError, Message: err.Error(), Err: err}, sql)
	}

	q.Session.Set(StateKey, &Statement{QueryID: q.ID, SQL: sql})
	q.sql = sql
	q.state = StateParsed
	x.logger.Debug("pipeline parsed",
		slog.String("category", "parser"),
		slog.String("query_id", q.ID),
		slog.String("sql", sql))
	return nil
}

// Plan reads back the parsed statement and describes the table function
// that executes it.
func (x *Extension) Plan(_ context.Context, q *Query) (*TableFunction, error) {
	if err := x.expect(q, StatePlanned); err != nil {
		return nil, err
	}

	v, ok := q.Session.Get(StateKey)
	st, isStmt := v.(*Statement)
	if !ok || !isStmt || st.QueryID != q.ID {
		return nil, x.reject(q, core.Errorf(core.KindProtocolError,
			"DPLYR plan called without parse data"), q.Text)
	}

	q.fn = &TableFunction{Name: QueryFunction, Args: []string{st.SQL}}
	q.state = StatePlanned
	return q.fn, nil
}

// Bind consumes the parsed statement and infers the output schema with a
// zero-row probe. A statement left by another query is discarded.
func (x *Extension) Bind(ctx context.Context, q *Query) (*host.Schema, error) {
	if err := x.expect(q, StateBound); err != nil {
		return nil, err
	}

	v, ok := q.Session.Take(StateKey)
	st, isStmt := v.(*Statement)
	switch {
	case !ok || !isStmt:
		return nil, x.reject(q, core.Errorf(core.KindProtocolError,
			"DPLYR bind called without parse data"), q.Text)
	case st.QueryID != q.ID:
		x.logger.Warn("discarding pipeline state of another query",
			slog.String("category", "error_handling"),
			slog.String("query_id", q.ID),
			slog.String("owner", st.QueryID))
		return nil, x.reject(q, core.Errorf(core.KindProtocolError,
			"DPLYR pipeline state belongs to another query"), q.Text)
	}

	schema, err := x.probe(ctx, QueryFunction, st.SQL)
	if err != nil {
		return nil, x.reject(q, err, st.SQL)
	}

	q.schema = schema
	q.state = StateBound
	return schema, nil
}

// Execute runs the bound statement and returns a cursor over the fully
// fetched result. The query is Done once the cursor is exhausted.
func (x *Extension) Execute(ctx context.Context, q *Query) (*Cursor, error) {
	if err := x.expect(q, StateExecuting); err != nil {
		return nil, err
	}

	coll, err := x.materialize(ctx, q.fn.Args[0])
	if err != nil {
		q.err = diag.Wrap(err, q.sql, x.limits())
		return nil, q.err
	}

	q.state = StateExecuting
	return newCursor(q.schema, coll, func() { q.state = StateDone }), nil
}

// End clears the session's pipeline state. It is safe to call more than once.
func (x *Extension) End(q *Query) {
	if q == nil || q.Session == nil {
		return
	}
	q.Session.Delete(StateKey)
	x.logger.Debug("query ended",
		slog.String("category", "general"),
		slog.String("query_id", q.ID),
		slog.String("state", q.state.String()),
		slog.Duration("elapsed", time.Since(q.Started)))
}

// expect checks that q may move to next. Out-of-order calls reject the
// query when the protocol allows it.
func (x *Extension) expect(q *Query, next State) error {
	if q.state.CanTransition(next) {
		return nil
	}
	err := core.Errorf(core.KindProtocolError, "cannot move query from %s to %s", q.state, next)
	if q.state.CanTransition(StateRejected) {
		return x.reject(q, err, q.Text)
	}
	return diag.Wrap(err, q.Text, x.limits())
}

// reject moves q to Rejected with a formatted diagnostic. An empty code
// echoes the fragment carried by err.
func (x *Extension) reject(q *Query, err error, code string) error {
	e := diag.Wrap(err, code, x.limits())
	q.err = e
	q.state = StateRejected
	x.logger.Info("query rejected",
		slog.String("category", e.Kind.Category()),
		slog.String("query_id", q.ID),
		slog.String("kind", e.Kind.String()),
		slog.String("message", e.Message))
	return e
}

// resolve transpiles trimmed pipeline text. Text with embedding markers has
// each segment replaced in place; anything else is one whole statement.
func (x *Extension) resolve(ctx context.Context, sess *session.Session, text string) (string, error) {
	replacer := fragment.Replacer{
		Validate:  x.validate,
		Transpile: x.invoker(sess).Transpile,
	}
	if !marker.Contains(text) {
		return replacer.Resolve(ctx, text)
	}
	sql, err := replacer.Replace(ctx, text)
	if err != nil {
		return "", err
	}
	if err := fragment.CheckLeftover(sql); err != nil {
		return "", err
	}
	return sql, nil
}

func (x *Extension) validate(code string) error {
	rej := x.validator.Validate(code).Rejection
	if rej == nil {
		return nil
	}
	return &core.Error{Kind: core.KindSecurityRejected, Message: rej.Detail, Fragment: code, Err: rej}
}

func (x *Extension) invoker(sess *session.Session) *transpile.Invoker {
	engine := x.engine
	if sess != nil {
		if e := sess.Engine(); e != nil {
			engine = e
		}
	}
	return transpile.NewInvoker(engine, x.opts, x.logger)
}

// probe infers the schema of sql. fn names the table function in errors.
func (x *Extension) probe(ctx context.Context, fn, sql string) (*host.Schema, error) {
	schema, err := x.host.Probe(ctx, sql)
	if err != nil {
		return nil, &core.Error{
			Kind:    core.KindNullOrMalformedInput,
			Message: fn + "() schema inference failed: " + err.Error(),
			Err:     err,
		}
	}
	return schema, nil
}

func (x *Extension) materialize(ctx context.Context, sql string) (*Collection, error) {
	rows, err := x.host.Query(ctx, sql)
	if err != nil {
		return nil, &core.Error{Kind: core.KindInternalError, Message: "dplyr() failed to execute: " + err.Error(), Err: err}
	}
	coll, err := collect(rows)
	if err != nil {
		return nil, &core.Error{Kind: core.KindInternalError, Message: "dplyr() failed to execute: " + err.Error(), Err: err}
	}
	return coll, nil
}

func (x *Extension) limits() diag.Limits {
	return diag.LimitsFrom(x.opts)
}
