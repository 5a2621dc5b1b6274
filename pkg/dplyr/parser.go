// Package dplyr is a transpiler from dplyr-style pipelines to DuckDB SQL.
//
// # Grammar
//
//	pipeline → IDENT { "%>%" call } EOF
//	call     → IDENT "(" [ arg { "," arg } ] ")"
//	arg      → [ IDENT "=" ] expr
//	expr     → Pratt-parsed operators over primary
//	primary  → NUMBER | STRING | IDENT | call | "(" expr ")"
//
// Parsing is purely syntactic; verb and function names are checked by the
// generator, which reports unknown names as unsupported rather than as
// syntax errors.
package dplyr

import "fmt"

// Operator precedence, lowest first.
const (
	precNone = iota
	precOr
	precAnd
	precNot
	precComparison
	precAddition
	precMultiply
	precPower
	precUnary
)

// Parser parses a pipeline fragment.
type Parser struct {
	lexer *Lexer
	token Token
	peek  Token
	err   error
}

// NewParser creates a parser over code.
func NewParser(code string) *Parser {
	p := &Parser{lexer: NewLexer(code)}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses code into a Pipeline.
func Parse(code string) (*Pipeline, error) {
	p := NewParser(code)
	pipe := p.parsePipeline()
	if p.err != nil {
		return nil, p.err
	}
	pipe.Comments = p.lexer.Comments
	return pipe, nil
}

// ---------- Token Helpers ----------

func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) check(t TokenType) bool {
	return p.token.Type == t
}

func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

func (p *Parser) expect(t TokenType, what string) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.fail(p.token.Pos, errUnexpectedToken, p.token.describe(), what)
	return false
}

// fail records the first error only.
func (p *Parser) fail(pos Position, format string, args ...any) {
	if p.err != nil {
		return
	}
	if p.token.Type == TOKEN_ILLEGAL {
		p.err = &SyntaxError{Pos: p.token.Pos, Message: illegalMessage(p.token)}
		return
	}
	p.err = &SyntaxError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func illegalMessage(t Token) string {
	if len(t.Literal) == 1 {
		return fmt.Sprintf("unexpected character %q", t.Literal)
	}
	return t.Literal
}

// ---------- Pipeline ----------

func (p *Parser) parsePipeline() *Pipeline {
	pipe := &Pipeline{}
	if !p.check(TOKEN_IDENT) {
		p.fail(p.token.Pos, errUnexpectedToken, p.token.describe(), "table name")
		return pipe
	}
	pipe.Source = p.token.Literal
	p.nextToken()

	for p.err == nil && p.match(TOKEN_PIPE) {
		if !p.check(TOKEN_IDENT) {
			p.fail(p.token.Pos, errUnexpectedToken, p.token.describe(), "operation name after %>%")
			return pipe
		}
		if p.peek.Type != TOKEN_LPAREN {
			p.nextToken()
			p.fail(p.token.Pos, errUnexpectedToken, p.token.describe(), "'('")
			return pipe
		}
		call := p.parseCall()
		if call != nil {
			pipe.Verbs = append(pipe.Verbs, call)
		}
	}

	if p.err == nil && !p.check(TOKEN_EOF) {
		p.fail(p.token.Pos, errUnexpectedToken, p.token.describe(), "%>% or end of input")
	}
	return pipe
}

// parseCall parses IDENT "(" args ")". The current token is the name.
func (p *Parser) parseCall() *Call {
	call := &Call{Name: p.token.Literal, Pos: p.token.Pos}
	p.nextToken() // name
	p.nextToken() // (

	if p.match(TOKEN_RPAREN) {
		return call
	}
	for p.err == nil {
		arg := Arg{Pos: p.token.Pos}
		if p.check(TOKEN_IDENT) && p.peek.Type == TOKEN_ASSIGN {
			arg.Name = p.token.Literal
			p.nextToken()
			p.nextToken()
		}
		arg.Value = p.parseExpression()
		if arg.Value == nil {
			return nil
		}
		call.Args = append(call.Args, arg)

		if p.match(TOKEN_COMMA) {
			continue
		}
		p.expect(TOKEN_RPAREN, "',' or ')'")
		break
	}
	if p.err != nil {
		return nil
	}
	return call
}

// ---------- Expressions ----------

func (p *Parser) parseExpression() Expr {
	return p.parseExpressionWithPrecedence(precOr)
}

func (p *Parser) parseExpressionWithPrecedence(minPrec int) Expr {
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}
	for p.err == nil {
		prec := infixPrecedence(p.token.Type)
		if prec == precNone || prec < minPrec {
			break
		}
		op := p.token
		p.nextToken()

		next := prec + 1
		if op.Type == TOKEN_CARET {
			next = prec // right associative
		}
		right := p.parseExpressionWithPrecedence(next)
		if right == nil {
			return nil
		}
		left = &BinaryExpr{Left: left, Op: op.Type, Right: right, Pos: op.Pos}
	}
	return left
}

func (p *Parser) parsePrefixExpr() Expr {
	switch p.token.Type {
	case TOKEN_NOT:
		pos := p.token.Pos
		p.nextToken()
		e := p.parseExpressionWithPrecedence(precNot)
		if e == nil {
			return nil
		}
		return &UnaryExpr{Op: TOKEN_NOT, Expr: e, Pos: pos}
	case TOKEN_MINUS, TOKEN_PLUS:
		op := p.token
		p.nextToken()
		e := p.parseExpressionWithPrecedence(precUnary)
		if e == nil {
			return nil
		}
		return &UnaryExpr{Op: op.Type, Expr: e, Pos: op.Pos}
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() Expr {
	tok := p.token
	switch tok.Type {
	case TOKEN_NUMBER:
		p.nextToken()
		return &NumberLit{Value: tok.Literal, Pos: tok.Pos}
	case TOKEN_STRING:
		p.nextToken()
		return &StringLit{Value: tok.Literal, Pos: tok.Pos}
	case TOKEN_IDENT:
		if p.peek.Type == TOKEN_LPAREN {
			return p.parseCall()
		}
		p.nextToken()
		switch tok.Literal {
		case "TRUE", "T":
			return &BoolLit{Value: true, Pos: tok.Pos}
		case "FALSE", "F":
			return &BoolLit{Value: false, Pos: tok.Pos}
		case "NA", "NULL", "NA_integer_", "NA_real_", "NA_character_":
			return &NullLit{Pos: tok.Pos}
		}
		return &Ident{Name: tok.Literal, Pos: tok.Pos}
	case TOKEN_LPAREN:
		p.nextToken()
		e := p.parseExpression()
		if e == nil {
			return nil
		}
		if !p.expect(TOKEN_RPAREN, "')'") {
			return nil
		}
		return e
	default:
		p.fail(tok.Pos, errUnexpectedToken, tok.describe(), "expression")
		return nil
	}
}

func infixPrecedence(t TokenType) int {
	switch t {
	case TOKEN_OR:
		return precOr
	case TOKEN_AND:
		return precAnd
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_LE, TOKEN_GT, TOKEN_GE, TOKEN_IN:
		return precComparison
	case TOKEN_PLUS, TOKEN_MINUS:
		return precAddition
	case TOKEN_STAR, TOKEN_SLASH, TOKEN_MOD:
		return precMultiply
	case TOKEN_CARET:
		return precPower
	default:
		return precNone
	}
}
