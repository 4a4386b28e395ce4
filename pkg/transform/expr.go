package transform

import (
	"strings"

	"github.com/leapstack-labs/redshift-lineage/pkg/ast"
	"github.com/leapstack-labs/redshift-lineage/pkg/cst"
	"github.com/leapstack-labs/redshift-lineage/pkg/token"
)

// Operator tables of the levels that fold with a fixed operator set.
var (
	orOps  = map[token.TokenType]ast.BinaryOp{token.OR: ast.OpOr}
	andOps = map[token.TokenType]ast.BinaryOp{token.AND: ast.OpAnd}
	addOps = map[token.TokenType]ast.BinaryOp{
		token.PLUS:  ast.OpAdd,
		token.MINUS: ast.OpSubtract,
	}
	mulOps = map[token.TokenType]ast.BinaryOp{
		token.STAR:    ast.OpMultiply,
		token.SLASH:   ast.OpDivide,
		token.PERCENT: ast.OpModulo,
	}
	caretOps   = map[token.TokenType]ast.BinaryOp{token.CARET: ast.OpCaret}
	compareOps = map[token.TokenType]ast.BinaryOp{
		token.EQ: ast.OpEquals,
		token.NE: ast.OpNotEquals,
		token.LT: ast.OpLess,
		token.LE: ast.OpLessEqual,
		token.GT: ast.OpGreater,
		token.GE: ast.OpGreaterEqual,
	}
)

// shiftOps are the custom operator spellings with a reserved meaning.
var shiftOps = map[string]ast.BinaryOp{
	"<<": ast.OpShiftLeft,
	">>": ast.OpShiftRight,
}

// exprChild converts the first rule child of n.
func (t *Transformer) exprChild(n *cst.Node, construct string) ast.Expr {
	rules := n.Rules()
	if len(rules) == 0 {
		t.fail(n, construct, "missing expression")
		return nil
	}
	return t.expr(rules[0])
}

// exprList converts the expressions of an ExprList node.
func (t *Transformer) exprList(n *cst.Node) []ast.Expr {
	if n == nil {
		return nil
	}
	var out []ast.Expr
	for _, c := range n.Rules() {
		out = append(out, t.expr(c))
	}
	return out
}

// expr converts one level of the precedence ladder or a primary.
func (t *Transformer) expr(n *cst.Node) ast.Expr {
	if t.failed() {
		return nil
	}
	switch n.Rule {
	case cst.RuleAExprOr:
		return t.foldBinary(n, orOps)
	case cst.RuleAExprAnd:
		return t.foldBinary(n, andOps)
	case cst.RuleAExprBetween:
		return t.between(n)
	case cst.RuleAExprIn:
		return t.in(n)
	case cst.RuleAExprUnaryNot:
		return t.unaryPrefix(n, cst.RuleAExprUnaryNot)
	case cst.RuleAExprIsNull:
		return t.isNull(n)
	case cst.RuleAExprIsNot:
		return t.isNot(n)
	case cst.RuleAExprCompare:
		return t.compare(n)
	case cst.RuleAExprLike:
		return t.like(n)
	case cst.RuleAExprQualOp:
		return t.qualOp(n)
	case cst.RuleAExprUnaryQualOp:
		return t.unaryQualOp(n)
	case cst.RuleAExprAdd:
		return t.foldBinary(n, addOps)
	case cst.RuleAExprMul:
		return t.foldBinary(n, mulOps)
	case cst.RuleAExprCaret:
		return t.foldBinary(n, caretOps)
	case cst.RuleAExprUnarySign:
		return t.unaryPrefix(n, cst.RuleAExprUnarySign)
	case cst.RuleAExprAtTimeZone:
		return t.atTimeZone(n)
	case cst.RuleAExprCollate:
		return t.collate(n)
	case cst.RuleAExprTypecast:
		return t.typecast(n)
	}
	return t.primary(n)
}

// single returns the only rule child of a level that applied no operator.
func (t *Transformer) single(n *cst.Node) (ast.Expr, bool) {
	if len(n.Children) != 1 {
		return nil, false
	}
	if n.Children[0].IsTerminal() {
		t.fail(n, "expression", "unexpected token %q", n.Children[0].Token.Raw)
		return nil, true
	}
	return t.expr(n.Children[0]), true
}

// foldBinary folds operand (op operand)* to the left using ops. Any other
// operator token is a grammar mismatch.
func (t *Transformer) foldBinary(n *cst.Node, ops map[token.TokenType]ast.BinaryOp) ast.Expr {
	if e, ok := t.single(n); ok {
		return e
	}
	var (
		left ast.Expr
		op   *cst.Node
	)
	for _, c := range n.Children {
		if c.IsTerminal() {
			if op != nil || left == nil {
				t.fail(c, "operator", "unexpected token %q", c.Token.Raw)
				return nil
			}
			op = c
			continue
		}
		right := t.expr(c)
		if right == nil {
			return nil
		}
		if left == nil {
			left = right
			continue
		}
		code, ok := ops[op.Token.Type]
		if !ok {
			t.fail(op, "operator", "unknown operator %q", op.Token.Raw)
			return nil
		}
		left = &ast.BinaryExpr{NodeInfo: cover(left, right), Left: left, Op: code, Right: right}
		op = nil
	}
	if op != nil {
		t.fail(op, "operator", "missing right operand of %q", op.Token.Raw)
		return nil
	}
	return left
}

// unaryPrefix handles NOT and sign levels: op level | next.
func (t *Transformer) unaryPrefix(n *cst.Node, self cst.Rule) ast.Expr {
	if e, ok := t.single(n); ok {
		return e
	}
	if len(n.Children) != 2 || !n.Children[0].IsTerminal() || n.Children[1].Rule != self {
		t.fail(n, "unary expression", "unexpected shape %s", n)
		return nil
	}
	var op ast.UnaryOp
	switch tok := n.Children[0].Token; tok.Type {
	case token.NOT:
		op = ast.OpNot
	case token.MINUS:
		op = ast.OpMinus
	case token.PLUS:
		op = ast.OpPlus
	default:
		t.fail(n.Children[0], "operator", "unknown prefix operator %q", tok.Raw)
		return nil
	}
	operand := t.expr(n.Children[1])
	if operand == nil {
		return nil
	}
	return &ast.UnaryExpr{NodeInfo: info(n), Op: op, Expr: operand}
}

func (t *Transformer) between(n *cst.Node) ast.Expr {
	if e, ok := t.single(n); ok {
		return e
	}
	ops := n.Rules()
	if len(ops) != 3 || !n.Has(token.BETWEEN) {
		t.fail(n, "between expression", "expected three operands")
		return nil
	}
	return &ast.BetweenExpr{
		NodeInfo:  info(n),
		Target:    t.expr(ops[0]),
		Lower:     t.expr(ops[1]),
		Upper:     t.expr(ops[2]),
		Not:       n.Has(token.NOT),
		Symmetric: n.Has(token.SYMMETRIC),
	}
}

func (t *Transformer) in(n *cst.Node) ast.Expr {
	if e, ok := t.single(n); ok {
		return e
	}
	ops := n.Rules()
	if len(ops) != 2 || !n.Has(token.IN) {
		t.fail(n, "in expression", "expected a target and a source")
		return nil
	}
	in := &ast.InExpr{NodeInfo: info(n), Target: t.expr(ops[0]), Not: n.Has(token.NOT)}
	switch src := ops[1]; src.Rule {
	case cst.RuleSelectWithParens:
		in.Source = &ast.InSelect{NodeInfo: info(src), Select: t.selectWithParens(src)}
	case cst.RuleInList:
		in.Source = &ast.InValues{NodeInfo: info(src), Values: t.exprList(src.Child(cst.RuleExprList))}
	default:
		t.fail(src, "in source", "unexpected rule %s", src.Rule)
		return nil
	}
	return in
}

// isNull applies postfix ISNULL / NOTNULL in order.
func (t *Transformer) isNull(n *cst.Node) ast.Expr {
	if e, ok := t.single(n); ok {
		return e
	}
	operand := t.expr(n.Children[0])
	for _, c := range n.Children[1:] {
		if operand == nil {
			return nil
		}
		var op ast.UnaryOp
		switch c.Token.Type {
		case token.ISNULL:
			op = ast.OpIsNull
		case token.NOTNULL:
			op = ast.OpIsNotNull
		default:
			t.fail(c, "operator", "unknown postfix operator %q", c.Token.Raw)
			return nil
		}
		operand = &ast.UnaryExpr{NodeInfo: ast.At(operand.Span().Cover(c.Span())), Op: op, Expr: operand}
	}
	return operand
}

// isNot applies IS [NOT] tests left to right.
func (t *Transformer) isNot(n *cst.Node) ast.Expr {
	if e, ok := t.single(n); ok {
		return e
	}
	left := t.expr(n.Children[0])
	kids := n.Children[1:]
	for len(kids) > 0 && left != nil {
		if !kids[0].Is(token.IS) || len(kids) < 2 {
			t.fail(kids[0], "is expression", "expected IS")
			return nil
		}
		kids = kids[1:]
		not := kids[0].Is(token.NOT)
		if not {
			kids = kids[1:]
		}
		if len(kids) == 0 {
			t.fail(n, "is expression", "missing test after IS")
			return nil
		}
		test := kids[0]
		kids = kids[1:]
		if test.Is(token.DISTINCT) {
			if len(kids) < 2 || !kids[0].Is(token.FROM) || kids[1].IsTerminal() {
				t.fail(test, "is expression", "malformed DISTINCT FROM")
				return nil
			}
			right := t.expr(kids[1])
			if right == nil {
				return nil
			}
			kids = kids[2:]
			op := ast.OpDistinctFrom
			if not {
				op = ast.OpNotDistinctFrom
			}
			left = &ast.BinaryExpr{NodeInfo: cover(left, right), Left: left, Op: op, Right: right}
			continue
		}
		op, ok := isTest(test.Token.Type, not)
		if !ok {
			t.fail(test, "is expression", "unknown test %q", test.Token.Raw)
			return nil
		}
		left = &ast.UnaryExpr{NodeInfo: ast.At(left.Span().Cover(test.Span())), Op: op, Expr: left}
	}
	return left
}

func isTest(tt token.TokenType, not bool) (ast.UnaryOp, bool) {
	var op ast.UnaryOp
	switch tt {
	case token.NULL:
		op = ast.OpIsNull
	case token.TRUE:
		op = ast.OpIsTrue
	case token.FALSE:
		op = ast.OpIsFalse
	case token.UNKNOWN:
		op = ast.OpIsUnknown
	default:
		return 0, false
	}
	if not {
		// Each negated test directly follows its positive form.
		op++
	}
	return op, true
}

// compare handles a single, non-chaining comparison.
func (t *Transformer) compare(n *cst.Node) ast.Expr {
	if e, ok := t.single(n); ok {
		return e
	}
	if len(n.Children) != 3 || !n.Children[1].IsTerminal() {
		t.fail(n, "comparison", "unexpected shape %s", n)
		return nil
	}
	opTok := n.Children[1]
	op, ok := compareOps[opTok.Token.Type]
	if !ok {
		t.fail(opTok, "operator", "unknown comparison operator %q", opTok.Token.Raw)
		return nil
	}
	left := t.expr(n.Children[0])
	var right ast.Expr
	if rhs := n.Children[2]; rhs.Rule == cst.RuleSubqueryQuantifier {
		right = t.quantified(rhs)
	} else {
		right = t.expr(rhs)
	}
	if left == nil || right == nil {
		return nil
	}
	return &ast.BinaryExpr{NodeInfo: info(n), Left: left, Op: op, Right: right}
}

func (t *Transformer) quantified(n *cst.Node) ast.Expr {
	q := &ast.QuantifiedExpr{NodeInfo: info(n)}
	switch n.Children[0].Token.Type {
	case token.ANY:
		q.Quantifier = ast.QuantAny
	case token.ALL:
		q.Quantifier = ast.QuantAll
	case token.SOME:
		q.Quantifier = ast.QuantSome
	default:
		t.fail(n, "quantifier", "unknown quantifier %q", n.Children[0].Token.Raw)
		return nil
	}
	if swp := n.Child(cst.RuleSelectWithParens); swp != nil {
		q.Select = t.selectWithParens(swp)
	} else {
		q.Expr = t.exprChild(n, "quantifier")
	}
	return q
}

func (t *Transformer) like(n *cst.Node) ast.Expr {
	if e, ok := t.single(n); ok {
		return e
	}
	ops := n.Rules()
	if len(ops) < 2 || len(ops) > 3 {
		t.fail(n, "like expression", "unexpected shape %s", n)
		return nil
	}
	l := &ast.LikeExpr{
		NodeInfo: info(n),
		Target:   t.expr(ops[0]),
		Pattern:  t.expr(ops[1]),
		Not:      n.Has(token.NOT),
	}
	switch {
	case n.Has(token.LIKE):
		l.Op = ast.OpLike
	case n.Has(token.ILIKE):
		l.Op = ast.OpILike
	case n.Has(token.SIMILAR):
		l.Op = ast.OpSimilarTo
	default:
		t.fail(n, "like expression", "unknown pattern operator in %q", n.Text)
		return nil
	}
	if len(ops) == 3 {
		l.Escape = t.expr(ops[2])
	}
	return l
}

// qualOp folds custom and OPERATOR(...) operators to the left, keeping
// their names.
func (t *Transformer) qualOp(n *cst.Node) ast.Expr {
	if e, ok := t.single(n); ok {
		return e
	}
	var (
		left ast.Expr
		op   string
	)
	for _, c := range n.Children {
		if c.Rule == cst.RuleQualOp {
			op = qualOpName(c)
			continue
		}
		right := t.expr(c)
		if right == nil {
			return nil
		}
		if left == nil {
			left = right
			continue
		}
		b := &ast.BinaryExpr{NodeInfo: cover(left, right), Left: left, Op: ast.OpQualified, OpName: op, Right: right}
		if code, ok := shiftOps[op]; ok {
			b.Op, b.OpName = code, ""
		}
		left = b
	}
	return left
}

func (t *Transformer) unaryQualOp(n *cst.Node) ast.Expr {
	if e, ok := t.single(n); ok {
		return e
	}
	if len(n.Children) != 2 || n.Children[0].Rule != cst.RuleQualOp {
		t.fail(n, "prefix operator", "unexpected shape %s", n)
		return nil
	}
	operand := t.expr(n.Children[1])
	if operand == nil {
		return nil
	}
	return &ast.UnaryExpr{
		NodeInfo: info(n),
		Op:       ast.OpPrefixQualified,
		OpName:   qualOpName(n.Children[0]),
		Expr:     operand,
	}
}

// qualOpName renders a QualOp node: the symbol, or OPERATOR(schema.op).
func qualOpName(n *cst.Node) string {
	var b strings.Builder
	for _, c := range n.Children {
		b.WriteString(c.Token.Raw)
	}
	return b.String()
}

func (t *Transformer) atTimeZone(n *cst.Node) ast.Expr {
	if e, ok := t.single(n); ok {
		return e
	}
	var left ast.Expr
	for _, c := range n.Children {
		if c.IsTerminal() {
			switch c.Token.Type {
			case token.AT, token.TIME, token.ZONE:
				continue
			}
			t.fail(c, "operator", "unexpected token %q", c.Token.Raw)
			return nil
		}
		right := t.expr(c)
		if right == nil {
			return nil
		}
		if left == nil {
			left = right
			continue
		}
		left = &ast.BinaryExpr{NodeInfo: cover(left, right), Left: left, Op: ast.OpAtTimeZone, Right: right}
	}
	return left
}

func (t *Transformer) collate(n *cst.Node) ast.Expr {
	if e, ok := t.single(n); ok {
		return e
	}
	name := n.Child(cst.RuleAnyName)
	if name == nil || !n.Has(token.COLLATE) {
		t.fail(n, "collate expression", "missing collation")
		return nil
	}
	operand := t.expr(n.Children[0])
	if operand == nil {
		return nil
	}
	return &ast.CollateExpr{NodeInfo: info(n), Expr: operand, Collation: name.Text}
}

// typecast nests one CastExpr per :: in source order.
func (t *Transformer) typecast(n *cst.Node) ast.Expr {
	if e, ok := t.single(n); ok {
		return e
	}
	operand := t.expr(n.Children[0])
	for _, c := range n.Children[1:] {
		if operand == nil {
			return nil
		}
		switch {
		case c.Is(token.TYPECAST):
		case c.Rule == cst.RuleTypename:
			operand = &ast.CastExpr{NodeInfo: ast.At(operand.Span().Cover(c.Span())), Expr: operand, Type: c.Text}
		default:
			t.fail(c, "type cast", "unexpected %s", c)
			return nil
		}
	}
	return operand
}
