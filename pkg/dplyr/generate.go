package dplyr

import (
	"fmt"
	"strconv"
	"strings"
)

// GenerateOptions control SQL generation.
type GenerateOptions struct {
	// Strict rejects function calls with no known SQL translation instead
	// of passing them through.
	Strict bool
	// PreserveComments appends source comments as block comments.
	PreserveComments bool
}

// column is one explicit output column of a block.
type column struct {
	name string
	expr string
	// computed is false only for a source column passed through unchanged.
	computed bool
}

func plainColumn(name string) column {
	return column{name: name, expr: QuoteIdent(name)}
}

func (c column) sql() string {
	if !c.computed {
		return c.expr
	}
	return c.expr + " AS " + QuoteIdent(c.name)
}

type orderTerm struct {
	sql  string
	refs []string
}

// block is one SELECT under construction. Verbs extend the current block
// while that keeps the pipeline's meaning, and wrap it in a subquery
// otherwise.
type block struct {
	from string

	star    bool
	exclude []string
	replace []column
	cols    []column

	where      []string
	groupBy    []string
	orderBy    []orderTerm
	distinct   bool
	limit      int
	aggregated bool

	// groups from group_by, applied by the next summarise
	groups []string
}

func newBlock(from string) *block {
	return &block{from: from, star: true, limit: -1}
}

// projected reports whether the select list differs from a bare "*".
func (b *block) projected() bool {
	return !b.star || len(b.exclude) > 0 || len(b.replace) > 0 || len(b.cols) > 0
}

func (b *block) findCol(name string) int {
	for i, c := range b.cols {
		if c.name == name {
			return i
		}
	}
	return -1
}

func (b *block) findReplace(name string) int {
	for i, c := range b.replace {
		if c.name == name {
			return i
		}
	}
	return -1
}

func (b *block) excluded(name string) bool {
	return contains(b.exclude, name)
}

// lookup resolves an output column by name. Under "*" any name that is
// not excluded is assumed to be a source column.
func (b *block) lookup(name string) (column, bool) {
	if i := b.findCol(name); i >= 0 {
		return b.cols[i], true
	}
	if i := b.findReplace(name); i >= 0 {
		return b.replace[i], true
	}
	if b.star && !b.excluded(name) {
		return plainColumn(name), true
	}
	return column{}, false
}

func (b *block) computedNames() map[string]bool {
	names := make(map[string]bool)
	for _, c := range b.cols {
		if c.computed {
			names[c.name] = true
		}
	}
	for _, c := range b.replace {
		names[c.name] = true
	}
	return names
}

func (b *block) selectList() string {
	var parts []string
	if b.star {
		s := "*"
		if len(b.exclude) > 0 {
			quoted := make([]string, len(b.exclude))
			for i, n := range b.exclude {
				quoted[i] = QuoteIdent(n)
			}
			s += " EXCLUDE (" + join(quoted) + ")"
		}
		if len(b.replace) > 0 {
			repl := make([]string, len(b.replace))
			for i, c := range b.replace {
				repl[i] = c.expr + " AS " + QuoteIdent(c.name)
			}
			s += " REPLACE (" + join(repl) + ")"
		}
		parts = append(parts, s)
	}
	for _, c := range b.cols {
		parts = append(parts, c.sql())
	}
	return join(parts)
}

func (b *block) sql() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(b.selectList())
	sb.WriteString(" FROM ")
	sb.WriteString(b.from)
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}
	if len(b.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(join(b.groupBy))
	}
	if len(b.orderBy) > 0 {
		terms := make([]string, len(b.orderBy))
		for i, t := range b.orderBy {
			terms[i] = t.sql
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(join(terms))
	}
	if b.limit >= 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(b.limit))
	}
	return sb.String()
}

type generator struct {
	opts GenerateOptions
	b    *block
	n    int
}

// Generate renders a parsed pipeline as a single DuckDB SELECT statement.
func Generate(p *Pipeline, opts GenerateOptions) (string, error) {
	g := &generator{opts: opts, b: newBlock(QuoteQualified(p.Source))}
	for _, v := range p.Verbs {
		if err := g.apply(v); err != nil {
			return "", err
		}
	}
	sql := g.b.sql()
	if opts.PreserveComments {
		for _, c := range p.Comments {
			sql += " /* " + strings.ReplaceAll(c, "*/", "* /") + " */"
		}
	}
	return sql, nil
}

// wrap turns the current block into a subquery of a fresh block. Ordering
// moves outward when every term can still be resolved there.
func (g *generator) wrap() {
	inner := g.b
	g.n++
	var orderBy []orderTerm
	if inner.limit < 0 && len(inner.orderBy) > 0 && inner.orderVisible() {
		orderBy = inner.orderBy
		inner.orderBy = nil
	}

	outer := newBlock("(" + inner.sql() + ") AS q" + strconv.Itoa(g.n))
	outer.groups, inner.groups = inner.groups, nil
	outer.orderBy = orderBy
	g.b = outer
}

func (b *block) orderVisible() bool {
	for _, t := range b.orderBy {
		for _, r := range t.refs {
			if _, ok := b.lookup(r); !ok {
				return false
			}
		}
	}
	return true
}

func (g *generator) refsComputed(e Expr) bool {
	computed := g.b.computedNames()
	for _, r := range References(e) {
		if computed[r] {
			return true
		}
	}
	return false
}

func unsupported(pos Position, format string, args ...any) error {
	return &UnsupportedError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (g *generator) apply(c *Call) error {
	switch c.Name {
	case "select":
		return g.selectVerb(c)
	case "filter":
		return g.filterVerb(c)
	case "mutate":
		return g.mutateVerb(c)
	case "rename":
		return g.renameVerb(c)
	case "arrange":
		return g.arrangeVerb(c)
	case "group_by":
		return g.groupByVerb(c)
	case "ungroup":
		g.b.groups = nil
		return nil
	case "summarise", "summarize":
		return g.summariseVerb(c, nil)
	case "count":
		return g.countVerb(c)
	case "distinct":
		return g.distinctVerb(c)
	case "head", "slice_head":
		return g.headVerb(c)
	default:
		return unsupported(c.Pos, errUnknownVerb, c.Name)
	}
}

// ---------- select ----------

type selection struct {
	src  string
	name string
}

func (g *generator) selectVerb(c *Call) error {
	var keep []selection
	var drop []string
	everything := false

	for _, a := range c.Args {
		switch v := a.Value.(type) {
		case *Ident:
			name := v.Name
			if a.Name != "" {
				name = a.Name
			}
			keep = append(keep, selection{src: v.Name, name: name})
		case *UnaryExpr:
			id, ok := v.Expr.(*Ident)
			if v.Op != TOKEN_MINUS || !ok || a.Name != "" {
				return unsupported(a.Pos, errBadArguments, c.Name, "arguments must be column names")
			}
			drop = append(drop, id.Name)
		case *Call:
			if v.Name != "everything" || len(v.Args) > 0 {
				return unsupported(a.Pos, errBadArguments, c.Name, "does not support "+v.Name+"()")
			}
			everything = true
		default:
			return unsupported(a.Pos, errBadArguments, c.Name, "arguments must be column names")
		}
	}

	switch {
	case len(keep) == 0 && len(drop) == 0 && !everything:
		return unsupported(c.Pos, errBadArguments, c.Name, "needs at least one column")
	case everything && len(keep) > 0:
		return unsupported(c.Pos, errBadArguments, c.Name, "cannot combine everything() with named columns")
	case len(keep) == 0:
		return g.dropColumns(c, drop)
	}
	return g.keepColumns(keep)
}

func (g *generator) keepColumns(keep []selection) error {
	if g.b.distinct {
		g.wrap()
	}
	cols := make([]column, 0, len(keep))
	for _, s := range keep {
		col, ok := g.b.lookup(s.src)
		if !ok {
			g.wrap()
			return g.keepColumns(keep)
		}
		if s.name != col.name {
			col.name = s.name
			col.computed = true
		}
		cols = append(cols, col)
	}
	g.b.star = false
	g.b.exclude = nil
	g.b.replace = nil
	g.b.cols = cols
	return nil
}

func (g *generator) dropColumns(c *Call, drop []string) error {
	if g.b.distinct {
		g.wrap()
	}
	b := g.b
	for _, name := range drop {
		if i := b.findCol(name); i >= 0 {
			b.cols = append(b.cols[:i], b.cols[i+1:]...)
			continue
		}
		if i := b.findReplace(name); i >= 0 {
			b.replace = append(b.replace[:i], b.replace[i+1:]...)
		}
		if !b.star {
			return unsupported(c.Pos, errBadArguments, c.Name, fmt.Sprintf("cannot drop unknown column %q", name))
		}
		if !b.excluded(name) {
			b.exclude = append(b.exclude, name)
		}
	}
	if !b.star && len(b.cols) == 0 {
		return unsupported(c.Pos, errBadArguments, c.Name, "removed every column")
	}
	return nil
}

// ---------- filter ----------

func (g *generator) filterVerb(c *Call) error {
	if len(c.Args) == 0 {
		return unsupported(c.Pos, errBadArguments, c.Name, "needs at least one condition")
	}
	for _, a := range c.Args {
		if a.Name != "" {
			return unsupported(a.Pos, errBadArguments, c.Name, "arguments must be conditions; use == for comparison")
		}
	}

	b := g.b
	needsWrap := b.limit >= 0 || b.distinct || b.aggregated
	for _, a := range c.Args {
		needsWrap = needsWrap || g.refsComputed(a.Value)
	}
	if needsWrap {
		g.wrap()
	}

	for _, a := range c.Args {
		cond, err := g.expr(a.Value, precAnd)
		if err != nil {
			return err
		}
		g.b.where = append(g.b.where, cond)
	}
	return nil
}

// ---------- mutate ----------

func (g *generator) mutateVerb(c *Call) error {
	if len(c.Args) == 0 {
		return nil
	}
	if b := g.b; b.limit >= 0 || b.distinct || b.aggregated {
		g.wrap()
	}

	for _, a := range c.Args {
		if a.Name == "" {
			return unsupported(a.Pos, errBadArguments, c.Name, "arguments must be named (name = expression)")
		}
		if g.refsComputed(a.Value) {
			g.wrap()
		}
		sql, err := g.expr(a.Value, precOr)
		if err != nil {
			return err
		}

		b := g.b
		col := column{name: a.Name, expr: sql, computed: sql != QuoteIdent(a.Name)}
		i, j := b.findCol(a.Name), b.findReplace(a.Name)
		switch {
		case i >= 0:
			b.cols[i] = col
		case j >= 0:
			col.computed = true
			b.replace[j] = col
		case b.star && b.excluded(a.Name):
			b.cols = append(b.cols, col)
		case b.star && contains(References(a.Value), a.Name):
			// the name is a source column; overwrite it in place
			col.computed = true
			b.replace = append(b.replace, col)
		default:
			b.cols = append(b.cols, col)
		}
	}
	return nil
}

// ---------- rename ----------

func (g *generator) renameVerb(c *Call) error {
	for _, a := range c.Args {
		id, ok := a.Value.(*Ident)
		if a.Name == "" || !ok {
			return unsupported(a.Pos, errBadArguments, c.Name, "arguments must be new_name = old_name")
		}
		if g.b.findReplace(id.Name) >= 0 {
			g.wrap()
		}

		b := g.b
		switch i := b.findCol(id.Name); {
		case i >= 0:
			b.cols[i].name = a.Name
			b.cols[i].computed = b.cols[i].expr != QuoteIdent(a.Name)
		case b.star && !b.excluded(id.Name):
			b.exclude = append(b.exclude, id.Name)
			b.cols = append(b.cols, column{name: a.Name, expr: QuoteIdent(id.Name), computed: true})
		default:
			return unsupported(a.Pos, errBadArguments, c.Name, fmt.Sprintf("cannot rename unknown column %q", id.Name))
		}
	}
	return nil
}

// ---------- arrange ----------

func (g *generator) arrangeVerb(c *Call) error {
	if len(c.Args) == 0 {
		return nil
	}
	if g.b.limit >= 0 {
		g.wrap()
	}

	terms := make([]orderTerm, 0, len(c.Args))
	for _, a := range c.Args {
		if a.Name != "" {
			return unsupported(a.Pos, errBadArguments, c.Name, "arguments must not be named")
		}
		e := a.Value
		suffix := ""
		if call, ok := e.(*Call); ok && call.Name == "desc" {
			if len(call.Args) != 1 || call.Args[0].Name != "" {
				return unsupported(call.Pos, errBadArguments, "desc", "takes 1 argument")
			}
			e = call.Args[0].Value
			suffix = " DESC"
		}
		sql, err := g.expr(e, precOr)
		if err != nil {
			return err
		}
		terms = append(terms, orderTerm{sql: sql + suffix, refs: References(e)})
	}
	g.b.orderBy = terms
	return nil
}

// ---------- group_by / summarise / count ----------

func (g *generator) groupNames(c *Call) ([]string, error) {
	names := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		id, ok := a.Value.(*Ident)
		if a.Name != "" || !ok {
			return nil, unsupported(a.Pos, errBadArguments, c.Name, "arguments must be column names")
		}
		names = append(names, id.Name)
	}
	return names, nil
}

func (g *generator) groupByVerb(c *Call) error {
	names, err := g.groupNames(c)
	if err != nil {
		return err
	}
	g.b.groups = names
	return nil
}

// summariseVerb aggregates by the pending groups. extra are appended after
// the named aggregations.
func (g *generator) summariseVerb(c *Call, extra []column) error {
	if len(c.Args) == 0 && len(extra) == 0 {
		return unsupported(c.Pos, errBadArguments, c.Name, "needs at least one aggregation")
	}
	if b := g.b; b.projected() || b.limit >= 0 || b.distinct || b.aggregated {
		g.wrap()
	}

	b := g.b
	cols := make([]column, 0, len(b.groups)+len(c.Args)+len(extra))
	groupBy := make([]string, 0, len(b.groups))
	for _, name := range b.groups {
		cols = append(cols, plainColumn(name))
		groupBy = append(groupBy, QuoteIdent(name))
	}
	for _, a := range c.Args {
		sql, err := g.expr(a.Value, precOr)
		if err != nil {
			return err
		}
		name := a.Name
		if name == "" {
			name = sql
		}
		cols = append(cols, column{name: name, expr: sql, computed: true})
	}
	cols = append(cols, extra...)

	b.star = false
	b.cols = cols
	b.groupBy = groupBy
	b.aggregated = true
	b.groups = nil
	b.orderBy = nil
	return nil
}

func (g *generator) countVerb(c *Call) error {
	name := "n"
	sortDesc := false
	var groupArgs []Arg
	for _, a := range c.Args {
		switch a.Name {
		case "":
			groupArgs = append(groupArgs, a)
		case "sort":
			v, ok := a.Value.(*BoolLit)
			if !ok {
				return unsupported(a.Pos, errBadArguments, c.Name, "sort must be TRUE or FALSE")
			}
			sortDesc = v.Value
		case "name":
			v, ok := a.Value.(*StringLit)
			if !ok {
				return unsupported(a.Pos, errBadArguments, c.Name, "name must be a string")
			}
			name = v.Value
		default:
			return unsupported(a.Pos, errBadArguments, c.Name, "has no argument "+a.Name)
		}
	}

	groups, err := g.groupNames(&Call{Name: c.Name, Args: groupArgs, Pos: c.Pos})
	if err != nil {
		return err
	}
	g.b.groups = append(g.b.groups, groups...)

	if err := g.summariseVerb(&Call{Name: c.Name, Pos: c.Pos}, []column{{name: name, expr: "count(*)", computed: true}}); err != nil {
		return err
	}
	if sortDesc {
		g.b.orderBy = []orderTerm{{sql: QuoteIdent(name) + " DESC", refs: []string{name}}}
	}
	return nil
}

// ---------- distinct / head ----------

func (g *generator) distinctVerb(c *Call) error {
	if g.b.limit >= 0 {
		g.wrap()
	}
	if len(c.Args) > 0 {
		var keep []selection
		for _, a := range c.Args {
			id, ok := a.Value.(*Ident)
			if a.Name != "" || !ok {
				return unsupported(a.Pos, errBadArguments, c.Name, "arguments must be column names")
			}
			keep = append(keep, selection{src: id.Name, name: id.Name})
		}
		if err := g.keepColumns(keep); err != nil {
			return err
		}
	}
	g.b.distinct = true
	return nil
}

func (g *generator) headVerb(c *Call) error {
	n := 6
	if c.Name == "slice_head" {
		n = 1
	}
	if len(c.Args) > 1 {
		return unsupported(c.Pos, errBadArguments, c.Name, "takes at most 1 argument")
	}
	if len(c.Args) == 1 {
		a := c.Args[0]
		lit, ok := a.Value.(*NumberLit)
		if (a.Name != "" && a.Name != "n") || !ok {
			return unsupported(a.Pos, errBadArguments, c.Name, "n must be a non-negative integer")
		}
		v, err := strconv.Atoi(lit.Value)
		if err != nil || v < 0 {
			return unsupported(a.Pos, errBadArguments, c.Name, "n must be a non-negative integer")
		}
		n = v
	}
	if g.b.limit < 0 || n < g.b.limit {
		g.b.limit = n
	}
	return nil
}

// ---------- expressions ----------

func (g *generator) expr(e Expr, parent int) (string, error) {
	switch n := e.(type) {
	case *Ident:
		return QuoteIdent(n.Name), nil
	case *NumberLit:
		return n.Value, nil
	case *StringLit:
		return QuoteString(n.Value), nil
	case *BoolLit:
		if n.Value {
			return "TRUE", nil
		}
		return "FALSE", nil
	case *NullLit:
		return "NULL", nil
	case *UnaryExpr:
		return g.unary(n, parent)
	case *BinaryExpr:
		return g.binary(n, parent)
	case *Call:
		return g.call(n)
	default:
		return "", unsupported(e.Position(), "unsupported expression")
	}
}

func parenIf(s string, cond bool) string {
	if cond {
		return "(" + s + ")"
	}
	return s
}

func (g *generator) unary(n *UnaryExpr, parent int) (string, error) {
	switch n.Op {
	case TOKEN_NOT:
		inner, err := g.expr(n.Expr, precNot)
		if err != nil {
			return "", err
		}
		return parenIf("NOT "+inner, precNot < parent), nil
	default:
		inner, err := g.expr(n.Expr, precUnary)
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(inner, "-") || strings.HasPrefix(inner, "+") {
			inner = "(" + inner + ")"
		}
		if n.Op == TOKEN_PLUS {
			return inner, nil
		}
		return "-" + inner, nil
	}
}

var binaryOps = map[TokenType]string{
	TOKEN_OR:    "OR",
	TOKEN_AND:   "AND",
	TOKEN_EQ:    "=",
	TOKEN_NE:    "<>",
	TOKEN_LT:    "<",
	TOKEN_LE:    "<=",
	TOKEN_GT:    ">",
	TOKEN_GE:    ">=",
	TOKEN_PLUS:  "+",
	TOKEN_MINUS: "-",
	TOKEN_STAR:  "*",
	TOKEN_SLASH: "/",
	TOKEN_MOD:   "%",
}

func (g *generator) binary(n *BinaryExpr, parent int) (string, error) {
	prec := infixPrecedence(n.Op)
	switch n.Op {
	case TOKEN_IN:
		return g.in(n, prec, parent)
	case TOKEN_CARET:
		left, err := g.expr(n.Left, precOr)
		if err != nil {
			return "", err
		}
		right, err := g.expr(n.Right, precOr)
		if err != nil {
			return "", err
		}
		return "power(" + left + ", " + right + ")", nil
	}

	op, ok := binaryOps[n.Op]
	if !ok {
		return "", unsupported(n.Pos, "unsupported operator %s", n.Op)
	}
	left, err := g.expr(n.Left, prec)
	if err != nil {
		return "", err
	}
	right, err := g.expr(n.Right, prec+1)
	if err != nil {
		return "", err
	}
	return parenIf(left+" "+op+" "+right, prec < parent), nil
}

func (g *generator) in(n *BinaryExpr, prec, parent int) (string, error) {
	set, ok := n.Right.(*Call)
	if !ok || set.Name != "c" {
		return "", unsupported(n.Pos, "%%in%% needs c(...) on its right-hand side")
	}
	if len(set.Args) == 0 {
		return "", unsupported(set.Pos, errBadArguments, "c", "needs at least one value")
	}
	left, err := g.expr(n.Left, prec+1)
	if err != nil {
		return "", err
	}
	items := make([]string, len(set.Args))
	for i, a := range set.Args {
		if items[i], err = g.expr(a.Value, precOr); err != nil {
			return "", err
		}
	}
	return parenIf(left+" IN ("+join(items)+")", prec < parent), nil
}

func (g *generator) call(c *Call) (string, error) {
	switch c.Name {
	case "c":
		return "", unsupported(c.Pos, "c() is only supported on the right-hand side of %%in%%")
	case "desc":
		return "", unsupported(c.Pos, "desc() is only supported inside arrange()")
	}

	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		s, err := g.expr(a.Value, precOr)
		if err != nil {
			return "", err
		}
		args[i] = s
	}

	if render, ok := functions[c.Name]; ok {
		return render(c, args)
	}

	name := strings.ToLower(c.Name)
	if g.opts.Strict || !isPlainIdent(name) {
		return "", unsupported(c.Pos, errUnknownFunction, c.Name)
	}
	pos, err := positional(c, args)
	if err != nil {
		return "", err
	}
	return name + "(" + join(pos) + ")", nil
}
