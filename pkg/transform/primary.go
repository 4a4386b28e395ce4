package transform

import (
	"github.com/leapstack-labs/redshift-lineage/pkg/ast"
	"github.com/leapstack-labs/redshift-lineage/pkg/cst"
	"github.com/leapstack-labs/redshift-lineage/pkg/token"
)

func (t *Transformer) primary(n *cst.Node) ast.Expr {
	switch n.Rule {
	case cst.RuleColumnRef:
		return t.columnRef(n)
	case cst.RuleConstant:
		return t.constant(n)
	case cst.RuleTypedConstant:
		typ := n.Child(cst.RuleTypename)
		str := n.Term(token.STRING)
		if typ == nil || str == nil {
			t.fail(n, "typed literal", "expected a type name and a string")
			return nil
		}
		return &ast.Constant{NodeInfo: info(n), Kind: ast.ConstTyped, Text: str.Token.Raw, TypeName: typ.Text}
	case cst.RuleParam:
		return &ast.Constant{NodeInfo: info(n), Kind: ast.ConstParam, Text: n.Text}
	case cst.RuleParenExpr:
		return t.exprChild(n, "parenthesized expression")
	case cst.RuleImplicitRow:
		row := &ast.RowExpr{NodeInfo: info(n)}
		for _, c := range n.Rules() {
			row.Exprs = append(row.Exprs, t.expr(c))
		}
		return row
	case cst.RuleSelectExpr:
		return t.selectExpr(n)
	case cst.RuleExistsExpr:
		swp := t.child(n, cst.RuleSelectWithParens, "exists")
		if swp == nil {
			return nil
		}
		return &ast.ExistsExpr{NodeInfo: info(n), Select: t.selectWithParens(swp)}
	case cst.RuleCaseExpr:
		return t.caseExpr(n)
	case cst.RuleFuncCall:
		return t.funcCall(n)
	case cst.RuleCastFunc:
		typ := t.child(n, cst.RuleTypename, "cast")
		if typ == nil {
			return nil
		}
		return &ast.CastExpr{NodeInfo: info(n), Expr: t.exprChild(n, "cast"), Type: typ.Text}
	case cst.RuleCommonFuncCall:
		call := &ast.CommonFuncCall{NodeInfo: info(n), Text: n.Text}
		for _, c := range n.Rules() {
			call.Args = append(call.Args, t.expr(c))
		}
		return call
	}
	t.fail(n, "expression", "unexpected rule %s", n.Rule)
	return nil
}

func (t *Transformer) constant(n *cst.Node) ast.Expr {
	c := &ast.Constant{NodeInfo: info(n), Text: n.Text}
	switch n.Children[0].Token.Type {
	case token.NUMBER:
		c.Kind = ast.ConstNumber
	case token.STRING:
		c.Kind = ast.ConstString
	case token.TRUE, token.FALSE:
		c.Kind = ast.ConstBool
	case token.NULL:
		c.Kind = ast.ConstNull
	case token.DEFAULT:
		c.Kind = ast.ConstDefault
	default:
		t.fail(n, "constant", "unknown literal %q", n.Text)
		return nil
	}
	return c
}

func (t *Transformer) columnRef(n *cst.Node) ast.Expr {
	ref := &ast.ColumnRef{NodeInfo: info(n)}
	for _, c := range n.Children {
		switch {
		case c.Rule == cst.RuleIndirection:
			_, subs := t.indirection(c)
			ref.Subscripts = append(ref.Subscripts, subs...)
		case c.Is(token.DOT):
		case c.Is(token.STAR):
			ref.Star = true
		default:
			ref.Names = append(ref.Names, t.ident(c.Token))
		}
	}
	return ref
}

// indirection splits an Indirection node into field names and subscript
// expressions.
func (t *Transformer) indirection(n *cst.Node) (fields []string, subs []ast.Expr) {
	for i, c := range n.Children {
		switch {
		case !c.IsTerminal():
			subs = append(subs, t.expr(c))
		case c.Is(token.DOT), c.Is(token.LBRACKET), c.Is(token.RBRACKET), c.Is(token.COLON):
		case i > 0 && n.Children[i-1].Is(token.DOT):
			fields = append(fields, t.ident(c.Token))
		}
	}
	return fields, subs
}

func (t *Transformer) selectExpr(n *cst.Node) ast.Expr {
	swp := t.child(n, cst.RuleSelectWithParens, "scalar subquery")
	if swp == nil {
		return nil
	}
	s := &ast.SelectExpr{NodeInfo: info(n), Select: t.selectWithParens(swp)}
	if ind := n.Child(cst.RuleIndirection); ind != nil {
		s.Fields, s.Subscripts = t.indirection(ind)
	}
	return s
}

func (t *Transformer) caseExpr(n *cst.Node) ast.Expr {
	c := &ast.CaseExpr{NodeInfo: info(n)}
	for _, k := range n.Rules() {
		switch k.Rule {
		case cst.RuleWhenClause:
			parts := k.Rules()
			if len(parts) != 2 {
				t.fail(k, "when clause", "expected a condition and a result")
				return nil
			}
			c.Whens = append(c.Whens, &ast.WhenClause{
				NodeInfo:  info(k),
				Condition: t.expr(parts[0]),
				Result:    t.expr(parts[1]),
			})
		case cst.RuleElseClause:
			c.Else = t.exprChild(k, "else clause")
		default:
			if len(c.Whens) > 0 || c.Subject != nil {
				t.fail(k, "case expression", "unexpected rule %s", k.Rule)
				return nil
			}
			c.Subject = t.expr(k)
		}
	}
	if len(c.Whens) == 0 {
		t.fail(n, "case expression", "missing WHEN")
		return nil
	}
	return c
}

func (t *Transformer) funcCall(n *cst.Node) ast.Expr {
	name := t.child(n, cst.RuleFuncName, "function call")
	args := t.child(n, cst.RuleFuncArgs, "function call")
	if name == nil || args == nil {
		return nil
	}
	f := &ast.FuncCall{
		NodeInfo: info(n),
		Name:     t.qualifiedName(name),
		All:      args.Has(token.ALL),
		Distinct: args.Has(token.DISTINCT),
		Star:     args.Has(token.STAR),
		Args:     t.exprList(args.Child(cst.RuleExprList)),
	}
	if sc := args.Child(cst.RuleSortClause); sc != nil {
		f.OrderBy = t.sortClause(sc)
	}
	for _, nt := range append(args.ChildrenOf(cst.RuleNullTreatment), n.ChildrenOf(cst.RuleNullTreatment)...) {
		if nt.Has(token.IGNORE) {
			f.NullTreatment = ast.IgnoreNulls
		} else {
			f.NullTreatment = ast.RespectNulls
		}
	}
	if wg := n.Child(cst.RuleWithinGroup); wg != nil {
		if sc := t.child(wg, cst.RuleSortClause, "within group"); sc != nil {
			f.WithinGroup = t.sortClause(sc)
		}
	}
	if filter := n.Child(cst.RuleFilterClause); filter != nil {
		f.Filter = t.exprChild(filter, "filter clause")
	}
	if over := n.Child(cst.RuleOverClause); over != nil {
		if spec := over.Child(cst.RuleWindowSpec); spec != nil {
			f.Over = t.windowSpec(spec)
		} else {
			last := over.Children[len(over.Children)-1]
			f.Over = &ast.OverWindowName{NodeInfo: info(over), Name: t.ident(last.Token)}
		}
	}
	return f
}
