package dplyr

import (
	"fmt"
	"strings"
)

// callRenderer renders a call. args are the rendered arguments, aligned with c.Args.
type callRenderer func(c *Call, args []string) (string, error)

// functions maps R function names to SQL.
var functions = map[string]callRenderer{
	"n":          fixedArity(0, func([]string) string { return "count(*)" }),
	"n_distinct": minArity(1, func(a []string) string { return "count(DISTINCT " + join(a) + ")" }),
	"mean":       rename("avg", 1),
	"sum":        rename("sum", 1),
	"min":        rename("min", 1),
	"max":        rename("max", 1),
	"median":     rename("median", 1),
	"sd":         rename("stddev_samp", 1),
	"var":        rename("var_samp", 1),
	"first":      rename("first", 1),
	"last":       rename("last", 1),
	"abs":        rename("abs", 1),
	"sqrt":       rename("sqrt", 1),
	"exp":        rename("exp", 1),
	"log":        rename("ln", 1),
	"log10":      rename("log10", 1),
	"log2":       rename("log2", 1),
	"floor":      rename("floor", 1),
	"ceiling":    rename("ceil", 1),
	"round":      roundCall,
	"tolower":    rename("lower", 1),
	"toupper":    rename("upper", 1),
	"nchar":      rename("length", 1),
	"trimws":     rename("trim", 1),
	"coalesce":   variadic("coalesce"),
	"paste0":     variadic("concat"),
	"paste":      pasteCall,
	"is.na":      fixedArity(1, func(a []string) string { return "(" + a[0] + " IS NULL)" }),
	"ifelse":     ifElse,
	"if_else":    ifElse,
	"between": fixedArity(3, func(a []string) string {
		return "(" + a[0] + " BETWEEN " + a[1] + " AND " + a[2] + ")"
	}),
	"as.integer":   cast("INTEGER"),
	"as.numeric":   cast("DOUBLE"),
	"as.double":    cast("DOUBLE"),
	"as.character": cast("VARCHAR"),
	"as.logical":   cast("BOOLEAN"),
	"as.Date":      cast("DATE"),
}

// ignoredNamedArgs are accepted for R compatibility and dropped.
var ignoredNamedArgs = map[string]bool{"na.rm": true}

// positional returns the unnamed arguments. Named arguments other than
// ignoredNamedArgs and allowed are rejected.
func positional(c *Call, args []string, allowed ...string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i, a := range c.Args {
		switch {
		case a.Name == "":
			out = append(out, args[i])
		case ignoredNamedArgs[a.Name]:
		case contains(allowed, a.Name):
		default:
			return nil, &UnsupportedError{Pos: a.Pos, Message: fmt.Sprintf(errBadArguments, c.Name, "has no argument "+a.Name)}
		}
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func join(args []string) string {
	return strings.Join(args, ", ")
}

func arityError(c *Call, want string) error {
	return &UnsupportedError{Pos: c.Pos, Message: fmt.Sprintf(errBadArguments, c.Name, want)}
}

func fixedArity(n int, render func([]string) string) callRenderer {
	return func(c *Call, args []string) (string, error) {
		pos, err := positional(c, args)
		if err != nil {
			return "", err
		}
		if len(pos) != n {
			return "", arityError(c, fmt.Sprintf("takes %d argument(s), got %d", n, len(pos)))
		}
		return render(pos), nil
	}
}

func minArity(n int, render func([]string) string) callRenderer {
	return func(c *Call, args []string) (string, error) {
		pos, err := positional(c, args)
		if err != nil {
			return "", err
		}
		if len(pos) < n {
			return "", arityError(c, fmt.Sprintf("takes at least %d argument(s)", n))
		}
		return render(pos), nil
	}
}

func rename(sqlName string, n int) callRenderer {
	return fixedArity(n, func(a []string) string { return sqlName + "(" + join(a) + ")" })
}

func variadic(sqlName string) callRenderer {
	return minArity(1, func(a []string) string { return sqlName + "(" + join(a) + ")" })
}

func cast(sqlType string) callRenderer {
	return fixedArity(1, func(a []string) string { return "CAST(" + a[0] + " AS " + sqlType + ")" })
}

func roundCall(c *Call, args []string) (string, error) {
	pos, err := positional(c, args, "digits")
	if err != nil {
		return "", err
	}
	for i, a := range c.Args {
		if a.Name == "digits" {
			pos = append(pos, args[i])
		}
	}
	if len(pos) < 1 || len(pos) > 2 {
		return "", arityError(c, "takes 1 or 2 arguments")
	}
	return "round(" + join(pos) + ")", nil
}

func ifElse(c *Call, args []string) (string, error) {
	pos, err := positional(c, args)
	if err != nil {
		return "", err
	}
	if len(pos) != 3 {
		return "", arityError(c, "takes 3 arguments (condition, true, false)")
	}
	return "CASE WHEN " + pos[0] + " THEN " + pos[1] + " ELSE " + pos[2] + " END", nil
}

// pasteCall renders paste(..., sep = " ") as concat_ws.
func pasteCall(c *Call, args []string) (string, error) {
	pos, err := positional(c, args, "sep")
	if err != nil {
		return "", err
	}
	if len(pos) < 1 {
		return "", arityError(c, "takes at least 1 argument")
	}
	sep := QuoteString(" ")
	for i, a := range c.Args {
		if a.Name == "sep" {
			sep = args[i]
		}
	}
	return "concat_ws(" + sep + ", " + join(pos) + ")", nil
}
