package dplyr

import "fmt"

// TokenType identifies a lexical token.
type TokenType int

//nolint:revive // TOKEN_* names follow the SQL parser's token conventions
const (
	TOKEN_ILLEGAL TokenType = iota
	TOKEN_EOF

	TOKEN_IDENT
	TOKEN_NUMBER
	TOKEN_STRING

	TOKEN_PIPE   // %>%
	TOKEN_IN     // %in%
	TOKEN_MOD    // %%
	TOKEN_ASSIGN // =
	TOKEN_EQ     // ==
	TOKEN_NE     // !=
	TOKEN_LT
	TOKEN_LE
	TOKEN_GT
	TOKEN_GE
	TOKEN_AND // & &&
	TOKEN_OR  // | ||
	TOKEN_NOT // !
	TOKEN_PLUS
	TOKEN_MINUS
	TOKEN_STAR
	TOKEN_SLASH
	TOKEN_CARET
	TOKEN_COMMA
	TOKEN_LPAREN
	TOKEN_RPAREN
)

var tokenNames = map[TokenType]string{
	TOKEN_ILLEGAL: "ILLEGAL",
	TOKEN_EOF:     "end of input",
	TOKEN_IDENT:   "identifier",
	TOKEN_NUMBER:  "number",
	TOKEN_STRING:  "string",
	TOKEN_PIPE:    "%>%",
	TOKEN_IN:      "%in%",
	TOKEN_MOD:     "%%",
	TOKEN_ASSIGN:  "=",
	TOKEN_EQ:      "==",
	TOKEN_NE:      "!=",
	TOKEN_LT:      "<",
	TOKEN_LE:      "<=",
	TOKEN_GT:      ">",
	TOKEN_GE:      ">=",
	TOKEN_AND:     "&",
	TOKEN_OR:      "|",
	TOKEN_NOT:     "!",
	TOKEN_PLUS:    "+",
	TOKEN_MINUS:   "-",
	TOKEN_STAR:    "*",
	TOKEN_SLASH:   "/",
	TOKEN_CARET:   "^",
	TOKEN_COMMA:   ",",
	TOKEN_LPAREN:  "(",
	TOKEN_RPAREN:  ")",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Position is a location in the source fragment.
type Position struct {
	Line   int // 1-based
	Column int // 1-based
	Offset int // 0-based byte offset
}

// Token is a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

func (t Token) describe() string {
	switch t.Type {
	case TOKEN_EOF:
		return "end of input"
	case TOKEN_IDENT, TOKEN_NUMBER:
		return fmt.Sprintf("%s %q", t.Type, t.Literal)
	case TOKEN_STRING:
		return "string literal"
	default:
		return fmt.Sprintf("'%s'", t.Literal)
	}
}
