package marker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindStart(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		from         int
		wantOK       bool
		markerStart  int
		contentStart int
	}{
		{name: "adjacent", text: "SELECT * FROM (| t |)", wantOK: true, markerStart: 14, contentStart: 16},
		{name: "whitespace between", text: "( \n\t| x |)", wantOK: true, markerStart: 0, contentStart: 5},
		{name: "plain subquery", text: "SELECT * FROM (SELECT 1)", wantOK: false},
		{name: "pipe later in parens", text: "(a | b)", wantOK: false},
		{name: "from skips earlier marker", text: "(| a |) (| b |)", from: 1, wantOK: true, markerStart: 8, contentStart: 10},
		{name: "from past end", text: "(| a |)", from: 50, wantOK: false},
		{name: "trailing open paren", text: "x (", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms, cs, ok := FindStart(tt.text, tt.from)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.markerStart, ms)
				assert.Equal(t, tt.contentStart, cs)
			}
		})
	}
}

func TestFindEnd(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantOK     bool
		contentEnd int
		markerEnd  int
	}{
		{name: "adjacent", text: "abc|)", wantOK: true, contentEnd: 3, markerEnd: 4},
		{name: "whitespace between", text: "abc|  )", wantOK: true, contentEnd: 3, markerEnd: 6},
		{name: "or operator is not a closer", text: "a | b", wantOK: false},
		{name: "first pipe not closing", text: "a | b |)", wantOK: true, contentEnd: 6, markerEnd: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce, me, ok := FindEnd(tt.text, 0)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.contentEnd, ce)
				assert.Equal(t, tt.markerEnd, me)
				assert.Equal(t, byte('|'), tt.text[ce])
				assert.Equal(t, byte(')'), tt.text[me])
			}
		})
	}
}

func TestNext_RoundTrip(t *testing.T) {
	inners := []string{
		"",
		" t %>% select(x) ",
		"t %>% filter(a | b)",
		"orders %>% filter(amount > 10) %>% arrange(desc(amount))",
		"weird ( | nested",
	}
	prefixes := []string{"", "SELECT * FROM ", "WITH a AS (SELECT 1) SELECT * FROM a JOIN "}
	suffixes := []string{"", " AS sub", " WHERE 1 = 1;"}

	for _, inner := range inners {
		require.NotContains(t, inner, "|)")
		for _, prefix := range prefixes {
			for _, suffix := range suffixes {
				// prefixes contain no start marker, so the first segment is ours
				text := prefix + "(|" + inner + "|)" + suffix
				seg, ok, err := Next(text, 0)
				require.NoError(t, err, text)
				require.True(t, ok, text)
				assert.Equal(t, inner, seg.Content, text)
				assert.Equal(t, len(prefix), seg.MarkerStart)
				assert.Less(t, seg.MarkerStart, seg.ContentStart)
				assert.LessOrEqual(t, seg.ContentStart, seg.ContentEnd)
				assert.Less(t, seg.ContentEnd, seg.MarkerEnd)
				assert.Equal(t, suffix, text[seg.MarkerEnd+1:])
			}
		}
	}
}

func TestNext_Unterminated(t *testing.T) {
	seg, ok, err := Next("SELECT * FROM (| t %>% select(x)", 0)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrUnterminated)
	assert.Equal(t, 14, seg.MarkerStart)
}

func TestNext_NoMarker(t *testing.T) {
	_, ok, err := Next("SELECT 1", 0)
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("x (|y|)"))
	assert.False(t, Contains(strings.Repeat("(", 10)))
}
