package dplyr

// Pipeline is a parsed fragment: a source table followed by verb calls.
type Pipeline struct {
	Source   string
	Verbs    []*Call
	Comments []string
}

// Expr is a pipeline expression.
type Expr interface {
	exprNode()
	Position() Position
}

// Ident is a column or table reference.
type Ident struct {
	Name string
	Pos  Position
}

// NumberLit is a numeric literal kept in source form.
type NumberLit struct {
	Value string
	Pos   Position
}

// StringLit is a string literal with escapes resolved.
type StringLit struct {
	Value string
	Pos   Position
}

// BoolLit is TRUE or FALSE.
type BoolLit struct {
	Value bool
	Pos   Position
}

// NullLit is NA or NULL.
type NullLit struct {
	Pos Position
}

// UnaryExpr is a prefix operator applied to an operand.
type UnaryExpr struct {
	Op   TokenType
	Expr Expr
	Pos  Position
}

// BinaryExpr is an infix operator.
type BinaryExpr struct {
	Left  Expr
	Op    TokenType
	Right Expr
	Pos   Position
}

// Call is a function or verb call. Named arguments carry their name.
type Call struct {
	Name string
	Args []Arg
	Pos  Position
}

// Arg is one call argument, optionally named (name = value).
type Arg struct {
	Name  string
	Value Expr
	Pos   Position
}

func (*Ident) exprNode()      {}
func (*NumberLit) exprNode()  {}
func (*StringLit) exprNode()  {}
func (*BoolLit) exprNode()    {}
func (*NullLit) exprNode()    {}
func (*UnaryExpr) exprNode()  {}
func (*BinaryExpr) exprNode() {}
func (*Call) exprNode()       {}

// Position returns the source position of the node.
func (e *Ident) Position() Position      { return e.Pos }
func (e *NumberLit) Position() Position  { return e.Pos }
func (e *StringLit) Position() Position  { return e.Pos }
func (e *BoolLit) Position() Position    { return e.Pos }
func (e *NullLit) Position() Position    { return e.Pos }
func (e *UnaryExpr) Position() Position  { return e.Pos }
func (e *BinaryExpr) Position() Position { return e.Pos }
func (e *Call) Position() Position       { return e.Pos }

// Walk calls fn for e and every sub-expression, depth first.
func Walk(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch n := e.(type) {
	case *UnaryExpr:
		Walk(n.Expr, fn)
	case *BinaryExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Call:
		for _, a := range n.Args {
			Walk(a.Value, fn)
		}
	}
}

// References returns the column names referenced by e.
func References(e Expr) []string {
	var names []string
	Walk(e, func(n Expr) {
		if id, ok := n.(*Ident); ok {
			names = append(names, id.Name)
		}
	})
	return names
}
