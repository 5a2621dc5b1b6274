package transpile

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/leapstack-labs/leapdplyr/internal/testutil"
	"github.com/leapstack-labs/leapdplyr/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock returns a clock that advances by step on every call.
func stepClock(step time.Duration) func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now := t
		t = t.Add(step)
		return now
	}
}

func TestInvoke(t *testing.T) {
	tests := []struct {
		name    string
		engine  EngineFunc
		code    Code
		sql     string
		message string
	}{
		{
			name:   "success",
			engine: func(string, core.Options) (string, error) { return "SELECT x FROM t", nil },
			code:   CodeOK,
			sql:    "SELECT x FROM t",
		},
		{
			name: "engine error keeps code and message",
			engine: func(string, core.Options) (string, error) {
				return "", Errorf(CodeSyntax, "unexpected ')' at position 12")
			},
			code:    CodeSyntax,
			message: "unexpected ')' at position 12",
		},
		{
			name:    "plain error is internal",
			engine:  func(string, core.Options) (string, error) { return "", errors.New("out of memory") },
			code:    CodeInternal,
			message: "out of memory",
		},
		{
			name:    "empty output",
			engine:  func(string, core.Options) (string, error) { return "", nil },
			code:    CodeEmptyOutput,
			message: "Transpiler returned empty SQL",
		},
		{
			name:   "panic is recovered",
			engine: func(string, core.Options) (string, error) { panic("boom") },
			code:   CodePanic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := NewInvoker(tt.engine, core.DefaultOptions(), testutil.NewTestLogger(t))

			out := inv.Invoke("t %>% select(x)")
			assert.Equal(t, tt.code, out.Code)
			assert.Equal(t, tt.sql, out.SQL)
			if tt.message != "" {
				assert.Equal(t, tt.message, out.Message)
			}
			assert.Equal(t, tt.code == CodeOK, out.OK())
		})
	}
}

func TestInvoke_TimeoutDiscardsSuccess(t *testing.T) {
	opts := core.DefaultOptions()
	opts.MaxProcessingTime = time.Second
	inv := NewInvoker(EngineFunc(func(string, core.Options) (string, error) {
		return "SELECT 1", nil
	}), opts, nil)
	inv.Now = stepClock(1500 * time.Millisecond)

	out := inv.Invoke("t %>% select(x)")
	assert.Equal(t, CodeTimeout, out.Code)
	assert.Empty(t, out.SQL)
	assert.Equal(t, 1500*time.Millisecond, out.Elapsed)
	assert.Contains(t, out.Message, "exceeded limit of 1000ms")
	assert.Equal(t, core.KindTimeout, core.KindOf(out.Err()))
}

func TestInvoke_WithinBudget(t *testing.T) {
	opts := core.DefaultOptions()
	opts.MaxProcessingTime = time.Second
	inv := NewInvoker(EngineFunc(func(string, core.Options) (string, error) {
		return "SELECT 1", nil
	}), opts, nil)
	inv.Now = stepClock(time.Second)

	out := inv.Invoke("x")
	assert.True(t, out.OK(), "elapsed equal to the limit is allowed")
}

func TestInvoke_NilEngine(t *testing.T) {
	var inv Invoker
	out := inv.Invoke("t %>% select(x)")
	assert.Equal(t, CodeInternal, out.Code)
}

func TestInvoke_PassesOptions(t *testing.T) {
	var got core.Options
	opts := core.Options{StrictMode: true, PreserveComments: true}
	inv := NewInvoker(EngineFunc(func(_ string, o core.Options) (string, error) {
		got = o
		return "SELECT 1", nil
	}), opts, nil)

	inv.Invoke("x")
	assert.True(t, got.StrictMode)
	assert.True(t, got.PreserveComments)
	assert.Equal(t, core.MaxInputLength, got.MaxInputLength)
	assert.Equal(t, core.MaxProcessingTime, got.MaxProcessingTime)
}

func TestInvoke_PerformanceRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	engine := EngineFunc(func(string, core.Options) (string, error) { return "SELECT 1", nil })

	inv := NewInvoker(engine, core.DefaultOptions(), logger)
	inv.Invoke("abc")
	assert.Empty(t, buf.String(), "debug record is filtered at info level")

	opts := core.DefaultOptions()
	opts.Debug = true
	inv = NewInvoker(engine, opts, logger)
	inv.Invoke("abc")
	assert.Contains(t, buf.String(), "category=performance")
	assert.Contains(t, buf.String(), "operation=transpilation")
	assert.Contains(t, buf.String(), "input_len=3")
}

func TestInvoker_Transpile(t *testing.T) {
	inv := NewInvoker(EngineFunc(func(string, core.Options) (string, error) {
		return "", Errorf(CodeUnsupported, "pivot_wider is not supported")
	}), core.DefaultOptions(), nil)

	_, err := inv.Transpile(t.Context(), core.FragmentContext{Code: "t %>% pivot_wider()"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnsupported)

	var ce *core.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "t %>% pivot_wider()", ce.Fragment)
}

func TestCode_Kind(t *testing.T) {
	tests := []struct {
		code Code
		kind core.Kind
	}{
		{CodeNullPointer, core.KindNullOrMalformedInput},
		{CodeInvalidUTF8, core.KindNullOrMalformedInput},
		{CodeInputTooLarge, core.KindInputTooLarge},
		{CodeTimeout, core.KindTimeout},
		{CodeSyntax, core.KindSyntaxError},
		{CodeUnsupported, core.KindUnsupportedOperation},
		{CodeInternal, core.KindInternalError},
		{CodePanic, core.KindInternalError},
		{CodeEmptyOutput, core.KindInternalError},
		{Code(-42), core.KindInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.code.Kind())
		})
	}
}

func TestInvoker_Version(t *testing.T) {
	inv := NewInvoker(EngineFunc(func(string, core.Options) (string, error) { return "", nil }), core.Options{}, nil)
	assert.Equal(t, "unknown", inv.Version())
}
