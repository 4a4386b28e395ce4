package transform

import (
	"github.com/leapstack-labs/redshift-lineage/pkg/ast"
	"github.com/leapstack-labs/redshift-lineage/pkg/cst"
	"github.com/leapstack-labs/redshift-lineage/pkg/token"
)

// ---------- Select Clauses ----------

// selectClause folds UNION/EXCEPT/MINUS chains to the left.
func (t *Transformer) selectClause(n *cst.Node) ast.SelectClause {
	return t.foldSetOps(n, cst.RuleSimpleSelectIntersect, t.intersectTerm)
}

// intersectTerm folds INTERSECT chains, which bind tighter.
func (t *Transformer) intersectTerm(n *cst.Node) ast.SelectClause {
	return t.foldSetOps(n, -1, t.selectPrimary)
}

// foldSetOps folds operand (SetOperator operand)* into CombineSelect nodes.
// operand is the rule of the operands, or -1 for any rule.
func (t *Transformer) foldSetOps(n *cst.Node, operand cst.Rule, next func(*cst.Node) ast.SelectClause) ast.SelectClause {
	var (
		left ast.SelectClause
		op   *cst.Node
	)
	for _, c := range n.Rules() {
		if c.Rule == cst.RuleSetOperator {
			op = c
			continue
		}
		if operand >= 0 && c.Rule != operand {
			t.fail(c, "set operation", "unexpected rule %s", c.Rule)
			return nil
		}
		right := next(c)
		if right == nil {
			return nil
		}
		if left == nil {
			left = right
			continue
		}
		if op == nil {
			t.fail(n, "set operation", "missing set operator")
			return nil
		}
		combined := &ast.CombineSelect{NodeInfo: cover(left, right), Left: left, Right: right}
		if !t.setOperator(op, combined) {
			return nil
		}
		left, op = combined, nil
	}
	if left == nil {
		t.fail(n, "set operation", "missing operand")
	}
	return left
}

func (t *Transformer) setOperator(n *cst.Node, c *ast.CombineSelect) bool {
	switch n.Children[0].Token.Type {
	case token.UNION:
		c.Op = ast.SetOpUnion
	case token.EXCEPT, token.SETMINUS:
		c.Op = ast.SetOpExcept
	case token.INTERSECT:
		c.Op = ast.SetOpIntersect
	default:
		t.fail(n, "set operator", "unknown operator %q", n.Children[0].Token.Raw)
		return false
	}
	switch {
	case n.Has(token.ALL):
		c.Modifier = ast.SetModifierAll
	case n.Has(token.DISTINCT):
		c.Modifier = ast.SetModifierDistinct
	}
	return true
}

func (t *Transformer) selectPrimary(n *cst.Node) ast.SelectClause {
	switch n.Rule {
	case cst.RuleSimpleSelect:
		return t.coreSelect(n)
	case cst.RuleValuesClause:
		return t.valuesClause(n)
	case cst.RuleSelectWithParens:
		sel := t.selectWithParens(n)
		if sel == nil {
			return nil
		}
		return &ast.NestedSelect{NodeInfo: info(n), Select: sel}
	}
	t.fail(n, "select clause", "unexpected rule %s", n.Rule)
	return nil
}

func (t *Transformer) coreSelect(n *cst.Node) *ast.CoreSelect {
	s := &ast.CoreSelect{NodeInfo: info(n), Distinct: n.Has(token.DISTINCT)}
	if s.Distinct && n.Has(token.ON) {
		s.DistinctOn = t.exprList(n.Child(cst.RuleExprList))
	}
	if top := n.Child(cst.RuleTopClause); top != nil {
		if num := top.Term(token.NUMBER); num != nil {
			s.Top = &ast.Constant{NodeInfo: info(num), Kind: ast.ConstNumber, Text: num.Token.Raw}
		} else {
			s.Top = t.exprChild(top, "top clause")
		}
	}
	if targets := t.child(n, cst.RuleTargetList, "select"); targets != nil {
		for _, c := range targets.Rules() {
			s.Targets = append(s.Targets, t.target(c))
		}
	}
	if into := n.Child(cst.RuleIntoClause); into != nil {
		s.Into = &ast.IntoClause{
			NodeInfo:  info(into),
			Temporary: into.Has(token.TEMP) || into.Has(token.TEMPORARY),
		}
		if name := t.child(into, cst.RuleQualifiedName, "into clause"); name != nil {
			s.Into.Name = t.qualifiedName(name)
		}
	}
	if from := n.Child(cst.RuleFromClause); from != nil {
		s.From = t.from(from)
	}
	if where := n.Child(cst.RuleWhereClause); where != nil {
		s.Where = t.exprChild(where, "where clause")
	}
	if group := n.Child(cst.RuleGroupClause); group != nil {
		for _, c := range group.Rules() {
			s.GroupBy = append(s.GroupBy, t.expr(c))
		}
	}
	if having := n.Child(cst.RuleHavingClause); having != nil {
		s.Having = t.exprChild(having, "having clause")
	}
	if qualify := n.Child(cst.RuleQualifyClause); qualify != nil {
		s.Qualify = t.exprChild(qualify, "qualify clause")
	}
	if windows := n.Child(cst.RuleWindowClause); windows != nil {
		for _, w := range windows.ChildrenOf(cst.RuleWindowDefinition) {
			def := &ast.WindowDef{NodeInfo: info(w), Name: t.ident(w.Children[0].Token)}
			if spec := t.child(w, cst.RuleWindowSpec, "window definition"); spec != nil {
				def.Spec = t.windowSpec(spec)
			}
			s.Windows = append(s.Windows, def)
		}
	}
	return s
}

func (t *Transformer) target(n *cst.Node) ast.Target {
	switch n.Rule {
	case cst.RuleTargetStar:
		star := &ast.StarTarget{NodeInfo: info(n)}
		for _, c := range n.Children {
			if !c.Is(token.DOT) && !c.Is(token.STAR) {
				star.Qualifier = append(star.Qualifier, t.ident(c.Token))
			}
		}
		return star
	case cst.RuleTargetLabel:
		tgt := &ast.ExprTarget{NodeInfo: info(n), Expr: t.exprChild(n, "target")}
		if last := n.Children[len(n.Children)-1]; last.IsTerminal() && !last.Is(token.AS) {
			tgt.Alias = t.ident(last.Token)
		}
		return tgt
	}
	t.fail(n, "target", "unexpected rule %s", n.Rule)
	return nil
}

func (t *Transformer) valuesClause(n *cst.Node) *ast.ValuesClause {
	v := &ast.ValuesClause{NodeInfo: info(n)}
	for _, row := range n.ChildrenOf(cst.RuleValuesRow) {
		v.Rows = append(v.Rows, t.exprList(row.Child(cst.RuleExprList)))
	}
	return v
}

// ---------- Ordering and Windows ----------

func (t *Transformer) sortClause(n *cst.Node) *ast.SortClause {
	s := &ast.SortClause{NodeInfo: info(n)}
	for _, c := range n.ChildrenOf(cst.RuleSortBy) {
		item := &ast.SortBy{NodeInfo: info(c), Expr: t.exprChild(c, "sort item")}
		switch {
		case c.Has(token.ASC):
			item.Order = ast.SortAsc
		case c.Has(token.DESC):
			item.Order = ast.SortDesc
		}
		switch {
		case c.Has(token.FIRST):
			item.Nulls = ast.NullsFirst
		case c.Has(token.LAST):
			item.Nulls = ast.NullsLast
		}
		s.Items = append(s.Items, item)
	}
	return s
}

func (t *Transformer) windowSpec(n *cst.Node) *ast.WindowSpec {
	w := &ast.WindowSpec{NodeInfo: info(n)}
	if len(n.Children) > 1 {
		if c := n.Children[1]; c.IsTerminal() && !c.Is(token.RPAREN) {
			w.Name = t.ident(c.Token)
		}
	}
	if part := n.Child(cst.RulePartitionClause); part != nil {
		w.PartitionBy = t.exprList(part.Child(cst.RuleExprList))
	}
	if sc := n.Child(cst.RuleSortClause); sc != nil {
		w.OrderBy = t.sortClause(sc)
	}
	if frame := n.Child(cst.RuleFrameClause); frame != nil {
		w.Frame = &ast.FrameClause{NodeInfo: info(frame), Text: frame.Text}
	}
	return w
}

// ---------- FROM ----------

func (t *Transformer) from(n *cst.Node) *ast.From {
	f := &ast.From{NodeInfo: info(n)}
	for _, ref := range n.ChildrenOf(cst.RuleTableRef) {
		f.Elements = append(f.Elements, t.fromElement(ref))
	}
	return f
}

// fromElement converts a TableRef node: its primary item and any joins.
func (t *Transformer) fromElement(n *cst.Node) *ast.FromElement {
	el := &ast.FromElement{NodeInfo: info(n)}
	rules := n.Rules()
	if len(rules) == 0 {
		t.fail(n, "from item", "missing table reference")
		return el
	}

	primary := rules[0]
	span := primary.Span()
	if a := n.Child(cst.RuleAliasClause); a != nil {
		span = span.Cover(a.Span())
	}
	alias := t.alias(n)

	switch primary.Rule {
	case cst.RuleRelationExpr:
		ref := &ast.TableRef{NodeInfo: ast.At(span), Alias: alias}
		if name := t.child(primary, cst.RuleQualifiedName, "relation"); name != nil {
			ref.Name = t.qualifiedName(name)
		}
		el.Source = ref
	case cst.RuleSelectWithParens:
		el.Source = &ast.SubQuery{NodeInfo: ast.At(span), Select: t.selectWithParens(primary), Alias: alias}
	case cst.RuleNestedTableRef:
		inner := t.child(primary, cst.RuleTableRef, "parenthesized join")
		if inner == nil {
			return el
		}
		el.Source = &ast.NamedFrom{NodeInfo: ast.At(span), From: t.fromElement(inner), Alias: alias}
	default:
		t.fail(primary, "from item", "unexpected rule %s", primary.Rule)
		return el
	}

	for _, c := range rules[1:] {
		switch c.Rule {
		case cst.RuleAliasClause:
		case cst.RuleCrossJoin, cst.RuleNaturalJoin, cst.RuleQualifiedJoin:
			if j := t.join(c); j != nil {
				el.Joins = append(el.Joins, j)
			}
		default:
			t.fail(c, "join", "unexpected rule %s", c.Rule)
		}
	}
	return el
}

func (t *Transformer) join(n *cst.Node) ast.Join {
	to := t.child(n, cst.RuleTableRef, "join")
	if to == nil {
		return nil
	}
	if n.Rule == cst.RuleCrossJoin {
		return &ast.CrossJoin{NodeInfo: info(n), To: t.fromElement(to)}
	}

	j := &ast.QualifiedJoin{
		NodeInfo: info(n),
		Natural:  n.Rule == cst.RuleNaturalJoin,
		To:       t.fromElement(to),
	}
	if jt := n.Child(cst.RuleJoinType); jt != nil {
		switch jt.Children[0].Token.Type {
		case token.INNER:
			j.Type = ast.JoinInner
		case token.LEFT:
			j.Type = ast.JoinLeft
		case token.RIGHT:
			j.Type = ast.JoinRight
		case token.FULL:
			j.Type = ast.JoinFull
		default:
			t.fail(jt, "join type", "unknown join type %q", jt.Text)
			return nil
		}
		j.Outer = jt.Has(token.OUTER)
	}

	switch {
	case n.Child(cst.RuleJoinOn) != nil:
		on := n.Child(cst.RuleJoinOn)
		j.Condition = &ast.JoinOn{NodeInfo: info(on), Expr: t.exprChild(on, "join condition")}
	case n.Child(cst.RuleJoinUsing) != nil:
		using := n.Child(cst.RuleJoinUsing)
		j.Condition = &ast.JoinUsing{NodeInfo: info(using), Columns: t.nameList(using.Child(cst.RuleNameList))}
	case !j.Natural:
		t.fail(n, "join", "missing join condition")
		return nil
	}
	return j
}
