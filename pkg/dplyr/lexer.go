package dplyr

import "strings"

// Lexer tokenizes pipeline code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char, 0 at end of input
	line    int
	col     int

	// Comments collected during lexing, without the leading '#'.
	Comments []string
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.pos > 0 && l.pos <= len(l.input) && l.input[l.pos-1] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) currentPos() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.pos}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	if l.atEOF() {
		return Token{Type: TOKEN_EOF, Pos: pos}
	}

	single := func(t TokenType) Token {
		tok := Token{Type: t, Literal: string(l.ch), Pos: pos}
		l.readChar()
		return tok
	}
	double := func(t TokenType) Token {
		lit := l.input[l.pos : l.pos+2]
		l.readChar()
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos}
	}

	switch l.ch {
	case '%':
		return l.readPercentOperator(pos)
	case '=':
		if l.peekChar() == '=' {
			return double(TOKEN_EQ)
		}
		return single(TOKEN_ASSIGN)
	case '!':
		if l.peekChar() == '=' {
			return double(TOKEN_NE)
		}
		return single(TOKEN_NOT)
	case '<':
		if l.peekChar() == '=' {
			return double(TOKEN_LE)
		}
		return single(TOKEN_LT)
	case '>':
		if l.peekChar() == '=' {
			return double(TOKEN_GE)
		}
		return single(TOKEN_GT)
	case '&':
		if l.peekChar() == '&' {
			return double(TOKEN_AND)
		}
		return single(TOKEN_AND)
	case '|':
		if l.peekChar() == '|' {
			return double(TOKEN_OR)
		}
		return single(TOKEN_OR)
	case '+':
		return single(TOKEN_PLUS)
	case '-':
		return single(TOKEN_MINUS)
	case '*':
		return single(TOKEN_STAR)
	case '/':
		return single(TOKEN_SLASH)
	case '^':
		return single(TOKEN_CARET)
	case ',':
		return single(TOKEN_COMMA)
	case '(':
		return single(TOKEN_LPAREN)
	case ')':
		return single(TOKEN_RPAREN)
	case '\'', '"':
		return l.readString(pos)
	case '`':
		return l.readBacktick(pos)
	}

	switch {
	case l.ch == '.' && isDigit(l.peekChar()):
		return l.readNumber(pos)
	case isIdentStart(l.ch):
		start := l.pos
		for !l.atEOF() && isIdentChar(l.ch) {
			l.readChar()
		}
		return Token{Type: TOKEN_IDENT, Literal: l.input[start:l.pos], Pos: pos}
	case isDigit(l.ch):
		return l.readNumber(pos)
	default:
		return single(TOKEN_ILLEGAL)
	}
}

// readPercentOperator reads %>%, %in% or %%.
func (l *Lexer) readPercentOperator(pos Position) Token {
	rest := l.input[l.pos:]
	var t TokenType
	var lit string
	switch {
	case strings.HasPrefix(rest, "%>%"):
		t, lit = TOKEN_PIPE, "%>%"
	case strings.HasPrefix(rest, "%in%"):
		t, lit = TOKEN_IN, "%in%"
	case strings.HasPrefix(rest, "%%"):
		t, lit = TOKEN_MOD, "%%"
	default:
		l.readChar()
		return Token{Type: TOKEN_ILLEGAL, Literal: "%", Pos: pos}
	}
	for range lit {
		l.readChar()
	}
	return Token{Type: t, Literal: lit, Pos: pos}
}

// readString reads a quoted string. Backslash escapes the next byte.
// An unterminated string yields an ILLEGAL token.
func (l *Lexer) readString(pos Position) Token {
	quote := l.ch
	l.readChar()
	var b strings.Builder
	for {
		if l.atEOF() {
			return Token{Type: TOKEN_ILLEGAL, Literal: "unterminated string", Pos: pos}
		}
		if l.ch == quote {
			l.readChar()
			return Token{Type: TOKEN_STRING, Literal: b.String(), Pos: pos}
		}
		if l.ch == '\\' && l.readPos < len(l.input) {
			l.readChar()
			switch l.ch {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(l.ch)
			}
			l.readChar()
			continue
		}
		b.WriteByte(l.ch)
		l.readChar()
	}
}

// readBacktick reads a `quoted identifier`.
func (l *Lexer) readBacktick(pos Position) Token {
	l.readChar()
	start := l.pos
	for !l.atEOF() && l.ch != '`' {
		l.readChar()
	}
	if l.atEOF() {
		return Token{Type: TOKEN_ILLEGAL, Literal: "unterminated identifier", Pos: pos}
	}
	name := l.input[start:l.pos]
	l.readChar()
	if name == "" {
		return Token{Type: TOKEN_ILLEGAL, Literal: "empty identifier", Pos: pos}
	}
	return Token{Type: TOKEN_IDENT, Literal: name, Pos: pos}
}

// readNumber reads digits with an optional fraction and exponent.
// An R integer suffix 'L' is dropped.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	lit := l.input[start:l.pos]
	if l.ch == 'L' {
		l.readChar()
	}
	return Token{Type: TOKEN_NUMBER, Literal: lit, Pos: pos}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEOF() {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '#':
			l.readChar()
			start := l.pos
			for !l.atEOF() && l.ch != '\n' {
				l.readChar()
			}
			if text := strings.TrimSpace(l.input[start:l.pos]); text != "" {
				l.Comments = append(l.Comments, text)
			}
		default:
			return
		}
	}
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '.' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
