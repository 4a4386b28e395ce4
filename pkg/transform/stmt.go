package transform

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/redshift-lineage/pkg/ast"
	"github.com/leapstack-labs/redshift-lineage/pkg/cst"
	"github.com/leapstack-labs/redshift-lineage/pkg/token"
)

func (t *Transformer) statement(n *cst.Node) ast.Stmt {
	if n == nil {
		t.fail(n, "statement", "missing statement body")
		return nil
	}
	switch n.Rule {
	case cst.RuleSelectStmt:
		return t.selectStmt(n)
	case cst.RuleInsertStmt:
		return t.insertStmt(n)
	case cst.RuleDeleteStmt:
		return t.deleteStmt(n)
	case cst.RuleCreateTableAsStmt:
		return t.createTableAsStmt(n)
	case cst.RuleCreateViewStmt:
		return t.createViewStmt(n)
	case cst.RuleCreateTableStmt:
		return t.createTableStmt(n)
	case cst.RuleAlterRenameStmt:
		return t.alterRenameStmt(n)
	case cst.RuleDropStmt:
		return t.dropStmt(n)
	case cst.RuleOtherStmt:
		t.skip(n, fmt.Sprintf("unsupported statement %s", strings.ToUpper(n.Start.Raw)))
		return nil
	}
	t.fail(n, "statement", "unexpected rule %s", n.Rule)
	return nil
}

// ---------- SELECT ----------

func (t *Transformer) selectStmt(n *cst.Node) *ast.SelectStmt {
	s := &ast.SelectStmt{NodeInfo: info(n)}
	if w := n.Child(cst.RuleWithClause); w != nil {
		s.With = t.withClause(w)
	}
	if body := t.child(n, cst.RuleSelectClause, "select statement"); body != nil {
		s.Body = t.selectClause(body)
	}
	if sc := n.Child(cst.RuleSortClause); sc != nil {
		s.OrderBy = t.sortClause(sc)
	}
	if l := n.Child(cst.RuleLimitClause); l != nil && !l.Has(token.ALL) {
		s.Limit = t.exprChild(l, "limit clause")
	}
	if o := n.Child(cst.RuleOffsetClause); o != nil {
		s.Offset = t.exprChild(o, "offset clause")
	}
	return s
}

// selectWithParens unwraps any number of parentheses around a query.
// The unwrapping is a loop so deep nesting does not grow the stack.
func (t *Transformer) selectWithParens(n *cst.Node) *ast.SelectStmt {
	for n != nil && n.Rule == cst.RuleSelectWithParens {
		inner := n.Child(cst.RuleSelectWithParens)
		if inner == nil {
			break
		}
		n = inner
	}
	if n == nil || n.Rule != cst.RuleSelectWithParens {
		t.fail(n, "parenthesized query", "expected a parenthesized query")
		return nil
	}
	sel := t.child(n, cst.RuleSelectStmt, "parenthesized query")
	if sel == nil {
		return nil
	}
	return t.selectStmt(sel)
}

func (t *Transformer) withClause(n *cst.Node) *ast.WithClause {
	w := &ast.WithClause{NodeInfo: info(n), Recursive: n.Has(token.RECURSIVE)}
	for _, c := range n.ChildrenOf(cst.RuleCommonTableExpr) {
		cte := &ast.CTE{NodeInfo: info(c), Columns: t.columnList(c)}
		if len(c.Children) == 0 || !c.Children[0].IsTerminal() {
			t.fail(c, "common table expression", "missing name")
			continue
		}
		cte.Name = t.ident(c.Children[0].Token)
		if swp := t.child(c, cst.RuleSelectWithParens, "common table expression"); swp != nil {
			cte.Select = t.selectWithParens(swp)
		}
		w.CTEs = append(w.CTEs, cte)
	}
	return w
}

// ---------- INSERT / DELETE ----------

func (t *Transformer) insertStmt(n *cst.Node) *ast.InsertStmt {
	s := &ast.InsertStmt{NodeInfo: info(n)}
	if w := n.Child(cst.RuleWithClause); w != nil {
		s.With = t.withClause(w)
	}

	target := t.child(n, cst.RuleInsertTarget, "insert statement")
	if target == nil {
		return nil
	}
	s.Target = &ast.InsertTarget{NodeInfo: info(target), Columns: t.columnList(n)}
	if name := t.child(target, cst.RuleQualifiedName, "insert target"); name != nil {
		s.Target.Name = t.qualifiedName(name)
	}
	if target.Has(token.AS) {
		last := target.Children[len(target.Children)-1]
		s.Target.Alias = t.ident(last.Token)
	}

	if def := n.Term(token.DEFAULT); def != nil {
		s.DefaultValues = true
		span := def.Span().Cover(n.Stop.Span())
		s.Select = &ast.SelectStmt{
			NodeInfo: ast.At(span),
			Body:     &ast.ValuesClause{NodeInfo: ast.At(span)},
		}
		return s
	}
	if sel := t.child(n, cst.RuleSelectStmt, "insert statement"); sel != nil {
		s.Select = t.selectStmt(sel)
	}
	return s
}

func (t *Transformer) deleteStmt(n *cst.Node) *ast.DeleteStmt {
	s := &ast.DeleteStmt{NodeInfo: info(n)}
	if w := n.Child(cst.RuleWithClause); w != nil {
		s.With = t.withClause(w)
	}
	target := t.child(n, cst.RuleDeleteTarget, "delete statement")
	if target == nil {
		return nil
	}
	s.Table = &ast.TableRef{NodeInfo: info(target), Alias: t.alias(target)}
	if name := t.child(target, cst.RuleQualifiedName, "delete target"); name != nil {
		s.Table.Name = t.qualifiedName(name)
	}
	if using := n.Child(cst.RuleDeleteUsing); using != nil {
		for _, ref := range using.ChildrenOf(cst.RuleTableRef) {
			s.Using = append(s.Using, t.fromElement(ref))
		}
	}
	if where := n.Child(cst.RuleWhereClause); where != nil {
		s.Where = t.exprChild(where, "where clause")
	}
	return s
}

// ---------- DDL ----------

func (t *Transformer) createTableAsStmt(n *cst.Node) *ast.CreateTableAsStmt {
	s := &ast.CreateTableAsStmt{
		NodeInfo:    info(n),
		Temporary:   n.Has(token.TEMP) || n.Has(token.TEMPORARY),
		IfNotExists: n.Has(token.IF),
		Columns:     t.columnList(n),
	}
	if name := t.child(n, cst.RuleQualifiedName, "create table as"); name != nil {
		s.Name = t.qualifiedName(name)
	}
	if attrs := n.Child(cst.RuleTableAttributes); attrs != nil {
		s.Attributes = attrs.Text
	}
	if sel := t.child(n, cst.RuleSelectStmt, "create table as"); sel != nil {
		s.Select = t.selectStmt(sel)
	}
	return s
}

func (t *Transformer) createViewStmt(n *cst.Node) *ast.CreateViewStmt {
	s := &ast.CreateViewStmt{
		NodeInfo:     info(n),
		OrReplace:    n.Has(token.REPLACE),
		Materialized: n.Has(token.MATERIALIZED),
		Columns:      t.columnList(n),
	}
	if name := t.child(n, cst.RuleQualifiedName, "create view"); name != nil {
		s.Name = t.qualifiedName(name)
	}
	var opts []string
	for _, o := range n.ChildrenOf(cst.RuleViewOptions) {
		opts = append(opts, o.Text)
	}
	s.Options = strings.Join(opts, " ")
	if sel := t.child(n, cst.RuleSelectStmt, "create view"); sel != nil {
		s.Select = t.selectStmt(sel)
	}
	return s
}

func (t *Transformer) createTableStmt(n *cst.Node) *ast.CreateTableStmt {
	s := &ast.CreateTableStmt{
		NodeInfo:    info(n),
		Temporary:   n.Has(token.TEMP) || n.Has(token.TEMPORARY),
		IfNotExists: n.Has(token.IF),
	}
	if name := t.child(n, cst.RuleQualifiedName, "create table"); name != nil {
		s.Name = t.qualifiedName(name)
	}
	if defs := t.child(n, cst.RuleColumnDefinitions, "create table"); defs != nil {
		s.Definitions = defs.Text
	}
	if attrs := n.Child(cst.RuleTableAttributes); attrs != nil {
		s.Attributes = attrs.Text
	}
	return s
}

func (t *Transformer) alterRenameStmt(n *cst.Node) *ast.AlterRenameStmt {
	s := &ast.AlterRenameStmt{NodeInfo: info(n)}
	if name := t.child(n, cst.RuleQualifiedName, "alter table"); name != nil {
		s.Name = t.qualifiedName(name)
	}
	last := n.Children[len(n.Children)-1]
	if !last.IsTerminal() || last.Is(token.TO) {
		t.fail(n, "alter table", "missing new table name")
		return nil
	}
	s.NewName = t.ident(last.Token)
	return s
}

func (t *Transformer) dropStmt(n *cst.Node) *ast.DropStmt {
	s := &ast.DropStmt{NodeInfo: info(n), IfExists: n.Has(token.IF)}
	switch {
	case n.Has(token.MATERIALIZED):
		s.Kind = ast.DropMaterializedView
	case n.Has(token.VIEW):
		s.Kind = ast.DropView
	case n.Has(token.TABLE):
		s.Kind = ast.DropTable
	default:
		t.fail(n, "drop statement", "missing object kind")
		return nil
	}
	switch {
	case n.Has(token.CASCADE):
		s.Behavior = ast.DropCascade
	case n.Has(token.RESTRICT):
		s.Behavior = ast.DropRestrict
	}
	for _, name := range n.ChildrenOf(cst.RuleQualifiedName) {
		s.Names = append(s.Names, t.qualifiedName(name))
	}
	return s
}
