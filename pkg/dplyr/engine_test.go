package dplyr_test

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/leapdplyr/pkg/core"
	"github.com/leapstack-labs/leapdplyr/pkg/dplyr"
	"github.com/leapstack-labs/leapdplyr/pkg/transpile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Compile(t *testing.T) {
	sql, err := dplyr.New().Compile("mtcars %>% filter(mpg > 20) %>% select(mpg, cyl)", core.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "SELECT mpg, cyl FROM mtcars WHERE mpg > 20", sql)
}

func TestEngine_Codes(t *testing.T) {
	tests := []struct {
		name string
		code string
		opts core.Options
		want transpile.Code
	}{
		{"empty", "", core.Options{}, transpile.CodeNullPointer},
		{"blank", " \n\t", core.Options{}, transpile.CodeNullPointer},
		{"invalid utf8", "t %>% filter(x == '\xff')", core.Options{}, transpile.CodeInvalidUTF8},
		{"too large", "t %>% head(" + strings.Repeat("1", 40) + ")", core.Options{MaxInputLength: 20}, transpile.CodeInputTooLarge},
		{"syntax", "t %>% filter(", core.Options{}, transpile.CodeSyntax},
		{"unsupported verb", "t %>% pivot_wider(x)", core.Options{}, transpile.CodeUnsupported},
		{"strict function", "t %>% mutate(y = foo(x))", core.Options{StrictMode: true}, transpile.CodeUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dplyr.New().Compile(tt.code, tt.opts)
			require.Error(t, err)

			var engineErr *transpile.EngineError
			require.ErrorAs(t, err, &engineErr)
			assert.Equal(t, tt.want, engineErr.Code)
			assert.NotEmpty(t, engineErr.Message)
		})
	}
}

func TestEngine_SyntaxMessageCarriesPosition(t *testing.T) {
	_, err := dplyr.New().Compile("t %>% filter(x >)", core.Options{})

	var engineErr *transpile.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, "unexpected ')', expected expression at line 1, column 17", engineErr.Message)
}

func TestEngine_WithInvoker(t *testing.T) {
	inv := transpile.NewInvoker(dplyr.New(), core.Options{}, nil)

	out := inv.Invoke("t %>% select(x)")
	require.True(t, out.OK())
	assert.Equal(t, "SELECT x FROM t", out.SQL)
	assert.Equal(t, dplyr.Version, inv.Version())

	out = inv.Invoke("t %>% nope()")
	assert.Equal(t, transpile.CodeUnsupported, out.Code)
	require.Error(t, out.Err())
}

func TestEngine_Concurrent(t *testing.T) {
	e := dplyr.New()
	done := make(chan string, 16)
	for i := 0; i < 16; i++ {
		go func() {
			sql, _ := e.Compile("t %>% group_by(g) %>% summarise(n = n())", core.Options{})
			done <- sql
		}()
	}
	for i := 0; i < 16; i++ {
		assert.Equal(t, "SELECT g, count(*) AS n FROM t GROUP BY g", <-done)
	}
}
