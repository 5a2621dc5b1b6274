package dplyr

import "strings"

var reservedWords = map[string]bool{
	"all": true, "and": true, "any": true, "as": true, "asc": true, "between": true,
	"by": true, "case": true, "cast": true, "check": true, "column": true, "create": true,
	"cross": true, "default": true, "desc": true, "distinct": true, "do": true, "else": true,
	"end": true, "except": true, "false": true, "fetch": true, "for": true, "from": true,
	"full": true, "group": true, "having": true, "in": true, "inner": true, "intersect": true,
	"into": true, "is": true, "join": true, "left": true, "like": true, "limit": true,
	"natural": true, "not": true, "null": true, "offset": true, "on": true, "or": true,
	"order": true, "outer": true, "primary": true, "qualify": true, "references": true,
	"right": true, "select": true, "table": true, "then": true, "to": true, "true": true,
	"union": true, "unique": true, "user": true, "using": true, "when": true, "where": true,
	"window": true, "with": true,
}

// QuoteIdent returns name as a SQL identifier, quoted only when needed.
func QuoteIdent(name string) string {
	if isPlainIdent(name) && !reservedWords[name] {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteQualified quotes each dot-separated part of a table reference.
func QuoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}

// QuoteString returns s as a SQL string literal.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func isPlainIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
