package dplyr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(input string) []Token {
	l := NewLexer(input)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TOKEN_EOF || tok.Type == TOKEN_ILLEGAL {
			return toks
		}
	}
}

func tokenTypes(toks []Token) []TokenType {
	types := make([]TokenType, len(toks))
	for i, t := range toks {
		types[i] = t.Type
	}
	return types
}

func TestLexer_Operators(t *testing.T) {
	tests := []struct {
		input string
		want  []TokenType
	}{
		{"%>%", []TokenType{TOKEN_PIPE, TOKEN_EOF}},
		{"%in%", []TokenType{TOKEN_IN, TOKEN_EOF}},
		{"%%", []TokenType{TOKEN_MOD, TOKEN_EOF}},
		{"== = != !", []TokenType{TOKEN_EQ, TOKEN_ASSIGN, TOKEN_NE, TOKEN_NOT, TOKEN_EOF}},
		{"< <= > >=", []TokenType{TOKEN_LT, TOKEN_LE, TOKEN_GT, TOKEN_GE, TOKEN_EOF}},
		{"& && | ||", []TokenType{TOKEN_AND, TOKEN_AND, TOKEN_OR, TOKEN_OR, TOKEN_EOF}},
		{"+ - * / ^ , ( )", []TokenType{
			TOKEN_PLUS, TOKEN_MINUS, TOKEN_STAR, TOKEN_SLASH, TOKEN_CARET,
			TOKEN_COMMA, TOKEN_LPAREN, TOKEN_RPAREN, TOKEN_EOF,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenTypes(lexAll(tt.input)))
		})
	}
}

func TestLexer_Literals(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		typ     TokenType
		literal string
	}{
		{"integer", "42", TOKEN_NUMBER, "42"},
		{"integer suffix", "42L", TOKEN_NUMBER, "42"},
		{"fraction", "3.14", TOKEN_NUMBER, "3.14"},
		{"leading dot", ".5", TOKEN_NUMBER, ".5"},
		{"exponent", "1e-3", TOKEN_NUMBER, "1e-3"},
		{"single quoted", `'it\'s'`, TOKEN_STRING, "it's"},
		{"double quoted", `"a\tb"`, TOKEN_STRING, "a\tb"},
		{"dotted identifier", "is.na", TOKEN_IDENT, "is.na"},
		{"backtick identifier", "`Order Date`", TOKEN_IDENT, "Order Date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := lexAll(tt.input)
			require.Len(t, toks, 2)
			assert.Equal(t, tt.typ, toks[0].Type)
			assert.Equal(t, tt.literal, toks[0].Literal)
		})
	}
}

func TestLexer_Illegal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		literal string
	}{
		{"unterminated string", `'abc`, "unterminated string"},
		{"unterminated backtick", "`abc", "unterminated identifier"},
		{"empty backtick", "``", "empty identifier"},
		{"lone percent", "%x", "%"},
		{"stray character", "@", "@"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := lexAll(tt.input)
			last := toks[len(toks)-1]
			assert.Equal(t, TOKEN_ILLEGAL, last.Type)
			assert.Equal(t, tt.literal, last.Literal)
		})
	}
}

func TestLexer_PositionsAndComments(t *testing.T) {
	l := NewLexer("t # source\n  %>% head()")
	toks := []Token{l.NextToken(), l.NextToken(), l.NextToken()}

	assert.Equal(t, Position{Line: 1, Column: 1, Offset: 0}, toks[0].Pos)
	assert.Equal(t, TOKEN_PIPE, toks[1].Type)
	assert.Equal(t, Position{Line: 2, Column: 3, Offset: 13}, toks[1].Pos)
	assert.Equal(t, "head", toks[2].Literal)
	assert.Equal(t, []string{"source"}, l.Comments)
}
