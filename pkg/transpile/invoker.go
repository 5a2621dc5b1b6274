package transpile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapdplyr/pkg/core"
)

// Outcome is the result of one Invoke call.
type Outcome struct {
	SQL     string
	Code    Code
	Message string
	Elapsed time.Duration
}

// OK reports whether the call produced usable SQL.
func (o Outcome) OK() bool {
	return o.Code == CodeOK
}

// Err returns the outcome as a classified error, or nil on success.
func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}
	return &core.Error{Kind: o.Code.Kind(), Message: o.Message}
}

// Invoker calls an Engine with a fixed set of options.
type Invoker struct {
	Engine  Engine
	Options core.Options
	Logger  *slog.Logger
	// Now is the clock used to time calls. Defaults to time.Now.
	Now func() time.Time
}

// NewInvoker creates an Invoker with normalized options.
func NewInvoker(engine Engine, opts core.Options, logger *slog.Logger) *Invoker {
	return &Invoker{Engine: engine, Options: opts.Normalize(), Logger: logger}
}

// Invoke compiles code once.
//
// The processing-time budget is checked after the engine returns: a call
// that ran too long is a timeout even if it succeeded.
func (inv *Invoker) Invoke(code string) Outcome {
	opts := inv.Options.Normalize()
	now := inv.now()

	start := now()
	sql, err := inv.compile(code, opts)
	elapsed := now().Sub(start)

	inv.logPerformance(len(code), elapsed, opts.Debug)

	out := Outcome{Elapsed: elapsed}
	switch {
	case elapsed > opts.MaxProcessingTime:
		out.Code = CodeTimeout
		out.Message = fmt.Sprintf("Processing time %dms exceeded limit of %dms",
			elapsed.Milliseconds(), opts.MaxProcessingTime.Milliseconds())
	case err != nil:
		var ee *EngineError
		if errors.As(err, &ee) {
			out.Code = ee.Code
			out.Message = ee.Message
		} else {
			out.Code = CodeInternal
			out.Message = err.Error()
		}
	case sql == "":
		out.Code = CodeEmptyOutput
		out.Message = "Transpiler returned empty SQL"
	default:
		out.SQL = sql
	}
	return out
}

// Transpile adapts Invoke to the fragment replacer's callback signature.
func (inv *Invoker) Transpile(_ context.Context, frag core.FragmentContext) (string, error) {
	out := inv.Invoke(frag.Code)
	if !out.OK() {
		return "", &core.Error{Kind: out.Code.Kind(), Message: out.Message, Fragment: frag.Code}
	}
	return out.SQL, nil
}

// Version returns the engine version, or "unknown".
func (inv *Invoker) Version() string {
	if v, ok := inv.Engine.(Versioned); ok {
		return v.Version()
	}
	return "unknown"
}

func (inv *Invoker) compile(code string, opts core.Options) (sql string, err error) {
	if inv.Engine == nil {
		return "", Errorf(CodeInternal, "no transpiler engine configured")
	}
	defer func() {
		if r := recover(); r != nil {
			sql = ""
			err = Errorf(CodePanic, "transpiler panicked: %v", r)
		}
	}()
	return inv.Engine.Compile(code, opts)
}

func (inv *Invoker) logPerformance(inputLen int, elapsed time.Duration, debug bool) {
	logger := inv.logger()
	level := slog.LevelDebug
	if debug {
		level = slog.LevelInfo
	}
	if !logger.Enabled(context.Background(), level) {
		return
	}
	logger.Log(context.Background(), level, "transpile finished",
		slog.String("category", "performance"),
		slog.String("operation", "transpilation"),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
		slog.Int("input_len", inputLen))
}

func (inv *Invoker) logger() *slog.Logger {
	if inv.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return inv.Logger
}

func (inv *Invoker) now() func() time.Time {
	if inv.Now == nil {
		return time.Now
	}
	return inv.Now
}
