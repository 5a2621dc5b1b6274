package dplyr_test

import (
	"testing"

	"github.com/leapstack-labs/leapdplyr/pkg/dplyr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generate(t *testing.T, code string, opts dplyr.GenerateOptions) (string, error) {
	t.Helper()
	p, err := dplyr.Parse(code)
	require.NoError(t, err)
	return dplyr.Generate(p, opts)
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		// ---------- single verbs ----------
		{"select", "t %>% select(x)", "SELECT x FROM t"},
		{"select alias", "t %>% select(a = x)", "SELECT x AS a FROM t"},
		{"select drop", "t %>% select(-x, -y)", "SELECT * EXCLUDE (x, y) FROM t"},
		{"select everything", "t %>% select(everything())", "SELECT * FROM t"},
		{"filter", "t %>% filter(x > 1)", "SELECT * FROM t WHERE x > 1"},
		{"filter several", "t %>% filter(x > 1, y == 'a')", "SELECT * FROM t WHERE x > 1 AND y = 'a'"},
		{"filter in", "t %>% filter(x %in% c(1, 2, 3))", "SELECT * FROM t WHERE x IN (1, 2, 3)"},
		{"filter not na", "t %>% filter(!is.na(x))", "SELECT * FROM t WHERE NOT (x IS NULL)"},
		{"filter between", "t %>% filter(between(x, 1, 5))", "SELECT * FROM t WHERE (x BETWEEN 1 AND 5)"},
		{"filter ne", "t %>% filter(x != 2)", "SELECT * FROM t WHERE x <> 2"},
		{"mutate new column", "t %>% mutate(y = x * 2)", "SELECT *, x * 2 AS y FROM t"},
		{"mutate overwrite", "t %>% mutate(x = x + 1)", "SELECT * REPLACE (x + 1 AS x) FROM t"},
		{"rename", "t %>% rename(new = old)", "SELECT * EXCLUDE (old), old AS new FROM t"},
		{"arrange", "t %>% arrange(desc(x), y)", "SELECT * FROM t ORDER BY x DESC, y"},
		{"distinct", "t %>% distinct(x)", "SELECT DISTINCT x FROM t"},
		{"distinct all", "t %>% distinct()", "SELECT DISTINCT * FROM t"},
		{"head", "t %>% head(5)", "SELECT * FROM t LIMIT 5"},
		{"head default", "t %>% head()", "SELECT * FROM t LIMIT 6"},
		{"slice_head", "t %>% slice_head(n = 2)", "SELECT * FROM t LIMIT 2"},
		{"count", "t %>% count(g, sort = TRUE)", "SELECT g, count(*) AS n FROM t GROUP BY g ORDER BY n DESC"},
		{"count named", "t %>% count(name = 'rows')", "SELECT count(*) AS rows FROM t"},
		{
			"group and summarise",
			"t %>% group_by(g) %>% summarise(total = sum(x, na.rm = TRUE), n = n())",
			"SELECT g, sum(x) AS total, count(*) AS n FROM t GROUP BY g",
		},
		{"summarise ungrouped", "t %>% summarise(m = mean(x))", "SELECT avg(x) AS m FROM t"},
		{"ungroup", "t %>% group_by(g) %>% ungroup() %>% summarise(n = n())", "SELECT count(*) AS n FROM t"},

		// ---------- expressions ----------
		{"power", "t %>% mutate(p = x ^ 2)", "SELECT *, power(x, 2) AS p FROM t"},
		{"modulo", "t %>% mutate(r = x %% 2)", "SELECT *, x % 2 AS r FROM t"},
		{"grouping kept", "t %>% mutate(y = (a + b) * c)", "SELECT *, (a + b) * c AS y FROM t"},
		{"right operand grouped", "t %>% mutate(y = a - (b - c))", "SELECT *, a - (b - c) AS y FROM t"},
		{"redundant parens dropped", "t %>% mutate(y = (a * b) + c)", "SELECT *, a * b + c AS y FROM t"},
		{"or inside and", "t %>% filter((a | b) & c)", "SELECT * FROM t WHERE (a OR b) AND c"},
		{"negation", "t %>% mutate(y = -(a + b))", "SELECT *, -(a + b) AS y FROM t"},
		{"double negation", "t %>% mutate(y = - -a)", "SELECT *, -(-a) AS y FROM t"},
		{"ifelse", "t %>% mutate(s = ifelse(x > 0, 'pos', 'neg'))", "SELECT *, CASE WHEN x > 0 THEN 'pos' ELSE 'neg' END AS s FROM t"},
		{"cast", "t %>% mutate(s = as.character(x))", "SELECT *, CAST(x AS VARCHAR) AS s FROM t"},
		{"paste", "t %>% mutate(s = paste(a, b, sep = '-'))", "SELECT *, concat_ws('-', a, b) AS s FROM t"},
		{"round digits", "t %>% mutate(r = round(x, digits = 2))", "SELECT *, round(x, 2) AS r FROM t"},
		{"literals", `t %>% mutate(a = TRUE, b = NA, c = "it's")`, "SELECT *, TRUE AS a, NULL AS b, 'it''s' AS c FROM t"},
		{"pass-through function", "t %>% mutate(y = greatest(a, b))", "SELECT *, greatest(a, b) AS y FROM t"},

		// ---------- quoting ----------
		{"qualified source", "db.sales %>% select(x)", "SELECT x FROM db.sales"},
		{"mixed case column", "t %>% select(`Order`)", `SELECT "Order" FROM t`},
		{"reserved word column", "t %>% select(group)", `SELECT "group" FROM t`},

		// ---------- composition ----------
		{"select then select", "t %>% select(x, y) %>% select(y)", "SELECT y FROM t"},
		{"select then filter", "t %>% select(x, y) %>% filter(x > 1)", "SELECT x, y FROM t WHERE x > 1"},
		{
			"filter on computed column",
			"t %>% mutate(y = x * 2) %>% filter(y > 10)",
			"SELECT * FROM (SELECT *, x * 2 AS y FROM t) AS q1 WHERE y > 10",
		},
		{
			"filter after limit",
			"t %>% head(10) %>% filter(x > 1)",
			"SELECT * FROM (SELECT * FROM t LIMIT 10) AS q1 WHERE x > 1",
		},
		{
			"ordering moves outward",
			"t %>% arrange(x) %>% mutate(y = x + 1) %>% filter(y > 2)",
			"SELECT * FROM (SELECT *, x + 1 AS y FROM t) AS q1 WHERE y > 2 ORDER BY x",
		},
		{
			"summarise after select",
			"t %>% select(g, x) %>% group_by(g) %>% summarise(m = mean(x))",
			"SELECT g, avg(x) AS m FROM (SELECT g, x FROM t) AS q1 GROUP BY g",
		},
		{
			"filter after summarise",
			"t %>% group_by(g) %>% summarise(n = n()) %>% filter(n > 5)",
			"SELECT * FROM (SELECT g, count(*) AS n FROM t GROUP BY g) AS q1 WHERE n > 5",
		},
		{
			"arrange after head",
			"t %>% head(3) %>% arrange(x)",
			"SELECT * FROM (SELECT * FROM t LIMIT 3) AS q1 ORDER BY x",
		},
		{"smallest limit wins", "t %>% head(10) %>% head(3) %>% head(7)", "SELECT * FROM t LIMIT 3"},
		{
			"mutate chain",
			"t %>% mutate(y = x + 1) %>% mutate(z = y * 2)",
			"SELECT *, y * 2 AS z FROM (SELECT *, x + 1 AS y FROM t) AS q1",
		},
		{
			"nested wraps are numbered",
			"t %>% head(5) %>% filter(x > 1) %>% head(2) %>% filter(y > 1)",
			"SELECT * FROM (SELECT * FROM (SELECT * FROM t LIMIT 5) AS q1 WHERE x > 1 LIMIT 2) AS q2 WHERE y > 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := generate(t, tt.code, dplyr.GenerateOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerate_Unsupported(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		message string
	}{
		{"unknown verb", "t %>% pivot_longer(x)", `unsupported operation "pivot_longer"`},
		{"dotted unknown function", "t %>% mutate(y = str.pad(x))", `unsupported function "str.pad"`},
		{"filter assignment", "t %>% filter(x = 1)", "filter() arguments must be conditions; use == for comparison"},
		{"unnamed mutate", "t %>% mutate(x + 1)", "mutate() arguments must be named (name = expression)"},
		{"drop every column", "t %>% select(x) %>% select(-x)", "select() removed every column"},
		{"empty select", "t %>% select()", "select() needs at least one column"},
		{"bare c", "t %>% mutate(y = c(1, 2))", "c() is only supported on the right-hand side of %in%"},
		{"desc outside arrange", "t %>% mutate(y = desc(x))", "desc() is only supported inside arrange()"},
		{"in without c", "t %>% filter(x %in% y)", "%in% needs c(...) on its right-hand side"},
		{"bad head", "t %>% head(1.5)", "head() n must be a non-negative integer"},
		{"wrong arity", "t %>% mutate(y = abs(a, b))", "abs() takes 1 argument(s), got 2"},
		{"unknown named argument", "t %>% mutate(y = mean(x, trim = 0.1))", "mean() has no argument trim"},
		{"empty summarise", "t %>% summarise()", "summarise() needs at least one aggregation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := generate(t, tt.code, dplyr.GenerateOptions{})
			require.Error(t, err)

			var unsupported *dplyr.UnsupportedError
			require.ErrorAs(t, err, &unsupported)
			assert.Equal(t, tt.message, unsupported.Message)
		})
	}
}

func TestGenerate_StrictMode(t *testing.T) {
	code := "t %>% mutate(y = greatest(a, b))"

	_, err := generate(t, code, dplyr.GenerateOptions{Strict: true})
	var unsupported *dplyr.UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, `unsupported function "greatest"`, unsupported.Message)

	// known functions are unaffected
	got, err := generate(t, "t %>% mutate(y = abs(a))", dplyr.GenerateOptions{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, "SELECT *, abs(a) AS y FROM t", got)
}

func TestGenerate_PreserveComments(t *testing.T) {
	code := "t %>% select(x) # keep x\n# ends */ here"

	got, err := generate(t, code, dplyr.GenerateOptions{PreserveComments: true})
	require.NoError(t, err)
	assert.Equal(t, "SELECT x FROM t /* keep x */ /* ends * / here */", got)

	got, err = generate(t, code, dplyr.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT x FROM t", got)
}
