package guard

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/leapdplyr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const valid = "orders %>% filter(amount >= 10 & status == \"paid\") %>% select(id, amount)"

func TestValidate_Accepts(t *testing.T) {
	v := New(testutil.NewTestLogger(t))

	verdict := v.Validate(valid)
	assert.True(t, verdict.Accepted())
	assert.NoError(t, verdict.Err())
	assert.Empty(t, verdict.Observations)
}

func TestValidate_Idempotent(t *testing.T) {
	v := New(testutil.NewTestLogger(t))
	inputs := []string{
		valid,
		"t %>% select(x)\x01",
		strings.Repeat("(", 51),
		"t %>% mutate(y = system(\"ls\"))",
		"t %>% mutate(y = paste(a, b))",
	}
	for _, in := range inputs {
		assert.Equal(t, v.Validate(in), v.Validate(in), in)
	}
}

func TestCheckCharacters(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		rejectAt int
		observed int
	}{
		{name: "tab newline cr allowed", code: "t\t%>%\nselect(x)\r", rejectAt: -1},
		{name: "nul rejected", code: "t %>%\x00 select(x)", rejectAt: 5},
		{name: "escape rejected", code: "\x1b[31m", rejectAt: 0},
		{name: "utf8 lead byte is not observed", code: "é", rejectAt: -1},
		{name: "utf8 trailing byte before ascii is observed", code: "t %>% filter(name == \"é\")", rejectAt: -1, observed: 1},
		{name: "lone high byte observed", code: "ab\xffc", rejectAt: -1, observed: 1},
		{name: "high byte at end not observed", code: "abc\xff", rejectAt: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rej, obs := CheckCharacters(tt.code, DefaultLimits())
			if tt.rejectAt < 0 {
				assert.Nil(t, rej)
			} else {
				require.NotNil(t, rej)
				assert.Equal(t, ControlCharacter, rej.Kind)
				assert.Equal(t, tt.rejectAt, rej.Position)
			}
			assert.Len(t, obs, tt.observed)
		})
	}
}

func TestCheckNesting_Boundary(t *testing.T) {
	lim := DefaultLimits()

	rej, _ := CheckNesting(strings.Repeat("(", 50), lim)
	assert.Nil(t, rej, "exactly 50 unmatched openers is accepted")

	rej, _ = CheckNesting(strings.Repeat("(", 51), lim)
	require.NotNil(t, rej)
	assert.Equal(t, ExcessiveNesting, rej.Kind)
	assert.Equal(t, 50, rej.Position)

	mixed := strings.Repeat("[", 20) + strings.Repeat("{", 20) + strings.Repeat("(", 11)
	rej, _ = CheckNesting(mixed, lim)
	require.NotNil(t, rej, "bracket kinds share one counter")
}

// Known gap: surplus closers drive the depth negative, which later openers
// then have to climb back out of. Kept as-is rather than treated as an error.
func TestCheckNesting_NegativeDepthTolerated(t *testing.T) {
	lim := DefaultLimits()

	rej, _ := CheckNesting(strings.Repeat(")", 200), lim)
	assert.Nil(t, rej)

	rej, _ = CheckNesting(strings.Repeat(")", 10)+strings.Repeat("(", 60), lim)
	assert.Nil(t, rej, "60 openers after 10 stray closers peak at depth 50")

	rej, _ = CheckNesting("(]", lim)
	assert.Nil(t, rej, "mismatched kinds are not detected")
}

func TestCheckRepetition_Boundary(t *testing.T) {
	lim := DefaultLimits()
	chain := func(n int) string {
		return "t" + strings.Repeat(" %>% select(x)", n)
	}

	rej, _ := CheckRepetition(chain(100), lim)
	assert.Nil(t, rej, "exactly 100 chain operators is accepted")

	rej, _ = CheckRepetition(chain(101), lim)
	require.NotNil(t, rej)
	assert.Equal(t, ExcessiveRepetition, rej.Kind)
	assert.Equal(t, "%>%", rej.Pattern)
	assert.Contains(t, rej.Detail, "101 times")
}

func TestCheckRepetition_NonOverlapping(t *testing.T) {
	lim := Limits{MaxRepetitions: 2}.withDefaults()

	// "====" is two non-overlapping "==", not three
	rej, _ := CheckRepetition("a ==== b", lim)
	assert.Nil(t, rej)

	rej, _ = CheckRepetition("a ====== b", lim)
	require.NotNil(t, rej)
	assert.Equal(t, "==", rej.Pattern)
}

func TestCheckResources(t *testing.T) {
	lim := DefaultLimits()

	rej, obs := CheckResources("t %>% mutate(s = paste0(a, b))", lim)
	assert.Nil(t, rej, "resource patterns only warn")
	require.Len(t, obs, 1)
	assert.Equal(t, "paste0(", obs[0].Pattern)

	// length runs from the opening delimiter to the closing one, exclusive
	long := "t %>% filter(s == \"" + strings.Repeat("a", 9999) + "\")"
	rej, _ = CheckResources(long, lim)
	assert.Nil(t, rej)

	tooLong := "t %>% filter(s == '" + strings.Repeat("a", 10000) + "')"
	rej, _ = CheckResources(tooLong, lim)
	require.NotNil(t, rej)
	assert.Equal(t, ExcessiveStringLiteral, rej.Kind)
}

func TestCheckResources_EscapedDelimiter(t *testing.T) {
	lim := Limits{MaxStringLiteral: 10}.withDefaults()

	// the escaped quote keeps the literal open, so it spans past the limit
	code := `t %>% filter(s == "ab\"cdefghijkl")`
	rej, _ := CheckResources(code, lim)
	require.NotNil(t, rej)
	assert.Equal(t, ExcessiveStringLiteral, rej.Kind)

	// other delimiter inside a literal does not close it
	rej, _ = CheckResources(`t %>% filter(s == "it's")`, lim)
	assert.Nil(t, rej)
}

func TestCheckAdvanced(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		rejected bool
		pattern  string
		observed int
	}{
		{name: "system call", code: "t %>% mutate(y = system(\"rm -rf /\"))", rejected: true, pattern: "system("},
		{name: "system inside valid chain", code: "t %>% select(x) %>% filter(system(1) > 0) %>% arrange(x)", rejected: true, pattern: "system("},
		{name: "dyn.load matches load first", code: "t %>% mutate(z = dyn.load(\"x.so\"))", rejected: true, pattern: "load("},
		{name: "internal call", code: "t %>% mutate(z = .Call(\"f\"))", rejected: true, pattern: ".Call("},
		{name: "load is fatal even though it is also a filesystem pattern", code: "t %>% mutate(z = load(\"f\"))", rejected: true, pattern: "load("},
		{name: "filesystem only warns", code: "t %>% mutate(p = file.path(a, b))", observed: 1},
		{name: "clean", code: valid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rej, obs := CheckAdvanced(tt.code, DefaultLimits())
			if tt.rejected {
				require.NotNil(t, rej)
				assert.Equal(t, SuspiciousPattern, rej.Kind)
				assert.Equal(t, tt.pattern, rej.Pattern)
				return
			}
			assert.Nil(t, rej)
			assert.Len(t, obs, tt.observed)
		})
	}
}

func TestValidate_FailFastOrder(t *testing.T) {
	v := New(testutil.NewTestLogger(t))

	// control character wins over the injection pattern that follows it
	verdict := v.Validate("t %>% mutate(y = system(1))\x02")
	require.False(t, verdict.Accepted())
	assert.Equal(t, ControlCharacter, verdict.Rejection.Kind)

	// earlier observations are kept when a later check rejects
	verdict = v.Validate("t %>% mutate(a = rep(1, 3), b = eval(x))")
	require.False(t, verdict.Accepted())
	assert.Equal(t, SuspiciousPattern, verdict.Rejection.Kind)
	require.NotEmpty(t, verdict.Observations)
	assert.Equal(t, ResourcePattern, verdict.Observations[0].Kind)
}

func TestValidate_ZeroValue(t *testing.T) {
	var v Validator
	assert.True(t, v.Validate(valid).Accepted())
	assert.False(t, v.Validate(strings.Repeat("{", 51)).Accepted())
}
