package ast_test

import (
	"testing"

	"github.com/leapstack-labs/redshift-lineage/pkg/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selectFrom(table string) *ast.SelectStmt {
	return &ast.SelectStmt{
		Body: &ast.CoreSelect{
			Targets: []ast.Target{&ast.StarTarget{}},
			From: &ast.From{Elements: []*ast.FromElement{
				{Source: &ast.TableRef{Name: table}},
			}},
		},
	}
}

// SELECT a FROM t1 WHERE a IN (SELECT * FROM t2)
//   AND EXISTS (SELECT * FROM t3) AND b > (SELECT * FROM t4)
func nestedQuery() *ast.SelectStmt {
	col := func(name string) *ast.ColumnRef { return &ast.ColumnRef{Names: []string{name}} }
	where := &ast.BinaryExpr{
		Op: ast.OpAnd,
		Left: &ast.BinaryExpr{
			Op: ast.OpAnd,
			Left: &ast.InExpr{
				Target: col("a"),
				Source: &ast.InSelect{Select: selectFrom("t2")},
			},
			Right: &ast.ExistsExpr{Select: selectFrom("t3")},
		},
		Right: &ast.BinaryExpr{
			Op:    ast.OpGreater,
			Left:  col("b"),
			Right: &ast.SelectExpr{Select: selectFrom("t4")},
		},
	}
	return &ast.SelectStmt{
		Body: &ast.CoreSelect{
			Targets: []ast.Target{&ast.ExprTarget{Expr: col("a")}},
			From: &ast.From{Elements: []*ast.FromElement{
				{Source: &ast.TableRef{Name: "t1"}},
			}},
			Where: where,
		},
	}
}

func tableNames(n ast.Node) []string {
	var names []string
	ast.Inspect(n, func(node ast.Node) bool {
		if t, ok := node.(*ast.TableRef); ok {
			names = append(names, t.Name)
		}
		return true
	})
	return names
}

func TestInspectReachesNestedStatements(t *testing.T) {
	assert.Equal(t, []string{"t1", "t2", "t3", "t4"}, tableNames(nestedQuery()))
}

func TestInspectPrune(t *testing.T) {
	var names []string
	ast.Inspect(nestedQuery(), func(node ast.Node) bool {
		switch n := node.(type) {
		case *ast.ExistsExpr, *ast.InSelect:
			return false
		case *ast.TableRef:
			names = append(names, n.Name)
		}
		return true
	})
	assert.Equal(t, []string{"t1", "t4"}, names)
}

func TestInspectCallsNilAfterChildren(t *testing.T) {
	depth, maxDepth := 0, 0
	ast.Inspect(nestedQuery(), func(node ast.Node) bool {
		if node == nil {
			depth--
			return false
		}
		depth++
		if depth > maxDepth {
			maxDepth = depth
		}
		return true
	})
	assert.Equal(t, 0, depth)
	assert.Greater(t, maxDepth, 5)
}

func TestWalkStructuralOrder(t *testing.T) {
	// (a - b) BETWEEN c AND d
	expr := &ast.BetweenExpr{
		Target: &ast.BinaryExpr{
			Op:    ast.OpSubtract,
			Left:  &ast.ColumnRef{Names: []string{"a"}},
			Right: &ast.ColumnRef{Names: []string{"b"}},
		},
		Lower: &ast.ColumnRef{Names: []string{"c"}},
		Upper: &ast.ColumnRef{Names: []string{"d"}},
	}

	var cols []string
	ast.Walk(&ast.BaseVisitor{
		ColumnRef: func(c *ast.ColumnRef) { cols = append(cols, c.Names[0]) },
	}, expr)
	assert.Equal(t, []string{"a", "b", "c", "d"}, cols)
}

func TestWalkStatementChildren(t *testing.T) {
	stmt := &ast.InsertStmt{
		With: &ast.WithClause{CTEs: []*ast.CTE{{Name: "c", Select: selectFrom("base")}}},
		Target: &ast.InsertTarget{Name: "dst"},
		Select: selectFrom("c"),
	}
	assert.Equal(t, []string{"base", "c"}, tableNames(stmt))

	del := &ast.DeleteStmt{
		Table: &ast.TableRef{Name: "users"},
		Using: []*ast.FromElement{{Source: &ast.TableRef{Name: "banned"}}},
		Where: &ast.ExistsExpr{Select: selectFrom("audit")},
	}
	assert.Equal(t, []string{"users", "banned", "audit"}, tableNames(del))
}

func TestWalkJoinsAndFunctionParts(t *testing.T) {
	joined := &ast.FromElement{
		Source: &ast.NamedFrom{From: &ast.FromElement{
			Source: &ast.TableRef{Name: "a"},
			Joins: []ast.Join{&ast.CrossJoin{To: &ast.FromElement{Source: &ast.TableRef{Name: "b"}}}},
		}},
		Joins: []ast.Join{&ast.QualifiedJoin{
			Type: ast.JoinLeft,
			To:   &ast.FromElement{Source: &ast.SubQuery{Select: selectFrom("c"), Alias: "s"}},
			Condition: &ast.JoinOn{Expr: &ast.ExistsExpr{Select: selectFrom("d")}},
		}},
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, tableNames(joined))

	call := &ast.FuncCall{
		Name:   "sum",
		Args:   []ast.Expr{&ast.ColumnRef{Names: []string{"x"}}},
		Filter: &ast.InExpr{Target: &ast.ColumnRef{Names: []string{"y"}}, Source: &ast.InSelect{Select: selectFrom("f")}},
		Over: &ast.WindowSpec{
			PartitionBy: []ast.Expr{&ast.SelectExpr{Select: selectFrom("w")}},
			Frame:       &ast.FrameClause{Text: "ROWS UNBOUNDED PRECEDING"},
		},
	}
	assert.Equal(t, []string{"f", "w"}, tableNames(call))
}

func TestBaseVisitorCallbacks(t *testing.T) {
	var stmts, subs, exists, ins, scalars int
	v := &ast.BaseVisitor{
		SelectStmt: func(*ast.SelectStmt) { stmts++ },
		SubQuery:   func(*ast.SubQuery) { subs++ },
		ExistsExpr: func(*ast.ExistsExpr) { exists++ },
		InSelect:   func(*ast.InSelect) { ins++ },
		SelectExpr: func(*ast.SelectExpr) { scalars++ },
	}
	ast.Walk(v, nestedQuery())
	assert.Equal(t, 4, stmts)
	assert.Equal(t, 0, subs)
	assert.Equal(t, 1, exists)
	assert.Equal(t, 1, ins)
	assert.Equal(t, 1, scalars)
}

func TestBaseVisitorEnterPrunes(t *testing.T) {
	var tables []string
	v := &ast.BaseVisitor{
		Enter: func(n ast.Node) bool {
			_, nested := n.(*ast.SelectExpr)
			return !nested
		},
		TableRef: func(r *ast.TableRef) { tables = append(tables, r.Name) },
	}
	ast.Walk(v, nestedQuery())
	require.Len(t, tables, 3)
	assert.NotContains(t, tables, "t4")
}

func TestOperatorStrings(t *testing.T) {
	assert.Equal(t, "AND", ast.OpAnd.String())
	assert.Equal(t, "IS NOT DISTINCT FROM", ast.OpNotDistinctFrom.String())
	assert.Equal(t, "IS NOT NULL", ast.OpIsNotNull.String())
	assert.Equal(t, "?", ast.BinaryOp(999).String())
}
