package ast

// Visitor visits nodes during Walk. If Visit returns a non-nil visitor w,
// Walk visits each child of node with w, followed by a call of
// w.Visit(nil).
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses an AST depth-first. It calls v.Visit(node) and then
// walks the children of node in source order, including every statement
// nested inside expressions.
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}

	switch n := node.(type) {
	// Statements
	case *SelectStmt:
		if n.With != nil {
			Walk(v, n.With)
		}
		if n.Body != nil {
			Walk(v, n.Body)
		}
		if n.OrderBy != nil {
			Walk(v, n.OrderBy)
		}
		walkExpr(v, n.Limit)
		walkExpr(v, n.Offset)

	case *WithClause:
		for _, cte := range n.CTEs {
			Walk(v, cte)
		}

	case *CTE:
		if n.Select != nil {
			Walk(v, n.Select)
		}

	case *InsertStmt:
		if n.With != nil {
			Walk(v, n.With)
		}
		if n.Target != nil {
			Walk(v, n.Target)
		}
		if n.Select != nil {
			Walk(v, n.Select)
		}

	case *DeleteStmt:
		if n.With != nil {
			Walk(v, n.With)
		}
		if n.Table != nil {
			Walk(v, n.Table)
		}
		for _, el := range n.Using {
			Walk(v, el)
		}
		walkExpr(v, n.Where)

	case *CreateTableAsStmt:
		if n.Select != nil {
			Walk(v, n.Select)
		}

	case *CreateViewStmt:
		if n.Select != nil {
			Walk(v, n.Select)
		}

	case *InsertTarget, *CreateTableStmt, *AlterRenameStmt, *DropStmt:
		// leaves

	// Select clauses
	case *CoreSelect:
		walkExprs(v, n.DistinctOn)
		walkExpr(v, n.Top)
		for _, t := range n.Targets {
			Walk(v, t)
		}
		if n.Into != nil {
			Walk(v, n.Into)
		}
		if n.From != nil {
			Walk(v, n.From)
		}
		walkExpr(v, n.Where)
		walkExprs(v, n.GroupBy)
		walkExpr(v, n.Having)
		walkExpr(v, n.Qualify)
		for _, w := range n.Windows {
			Walk(v, w)
		}

	case *CombineSelect:
		Walk(v, n.Left)
		Walk(v, n.Right)

	case *ValuesClause:
		for _, row := range n.Rows {
			walkExprs(v, row)
		}

	case *NestedSelect:
		Walk(v, n.Select)

	case *IntoClause, *StarTarget:
		// leaves

	case *ExprTarget:
		walkExpr(v, n.Expr)

	case *SortClause:
		for _, item := range n.Items {
			Walk(v, item)
		}

	case *SortBy:
		walkExpr(v, n.Expr)

	case *WindowDef:
		if n.Spec != nil {
			Walk(v, n.Spec)
		}

	// FROM
	case *From:
		for _, el := range n.Elements {
			Walk(v, el)
		}

	case *FromElement:
		Walk(v, n.Source)
		for _, j := range n.Joins {
			Walk(v, j)
		}

	case *TableRef:
		// leaf

	case *SubQuery:
		Walk(v, n.Select)

	case *NamedFrom:
		Walk(v, n.From)

	case *CrossJoin:
		Walk(v, n.To)

	case *QualifiedJoin:
		Walk(v, n.To)
		if n.Condition != nil {
			Walk(v, n.Condition)
		}

	case *JoinOn:
		walkExpr(v, n.Expr)

	case *JoinUsing:
		// leaf

	// Expressions
	case *BinaryExpr:
		Walk(v, n.Left)
		Walk(v, n.Right)

	case *UnaryExpr:
		Walk(v, n.Expr)

	case *BetweenExpr:
		Walk(v, n.Target)
		Walk(v, n.Lower)
		Walk(v, n.Upper)

	case *InExpr:
		Walk(v, n.Target)
		Walk(v, n.Source)

	case *InValues:
		walkExprs(v, n.Values)

	case *InSelect:
		Walk(v, n.Select)

	case *LikeExpr:
		Walk(v, n.Target)
		Walk(v, n.Pattern)
		walkExpr(v, n.Escape)

	case *QuantifiedExpr:
		if n.Select != nil {
			Walk(v, n.Select)
		}
		walkExpr(v, n.Expr)

	case *CollateExpr:
		Walk(v, n.Expr)

	case *CastExpr:
		Walk(v, n.Expr)

	case *ExistsExpr:
		Walk(v, n.Select)

	case *SelectExpr:
		Walk(v, n.Select)
		walkExprs(v, n.Subscripts)

	case *ColumnRef:
		walkExprs(v, n.Subscripts)

	case *Constant:
		// leaf

	case *CommonFuncCall:
		walkExprs(v, n.Args)

	case *RowExpr:
		walkExprs(v, n.Exprs)

	case *CaseExpr:
		walkExpr(v, n.Subject)
		for _, w := range n.Whens {
			Walk(v, w)
		}
		walkExpr(v, n.Else)

	case *WhenClause:
		Walk(v, n.Condition)
		Walk(v, n.Result)

	case *FuncCall:
		walkExprs(v, n.Args)
		if n.OrderBy != nil {
			Walk(v, n.OrderBy)
		}
		if n.WithinGroup != nil {
			Walk(v, n.WithinGroup)
		}
		walkExpr(v, n.Filter)
		if n.Over != nil {
			Walk(v, n.Over)
		}

	// Windows
	case *OverWindowName, *FrameClause:
		// leaves

	case *WindowSpec:
		walkExprs(v, n.PartitionBy)
		if n.OrderBy != nil {
			Walk(v, n.OrderBy)
		}
		if n.Frame != nil {
			Walk(v, n.Frame)
		}
	}

	v.Visit(nil)
}

func walkExpr(v Visitor, e Expr) {
	if e != nil {
		Walk(v, e)
	}
}

func walkExprs(v Visitor, list []Expr) {
	for _, e := range list {
		walkExpr(v, e)
	}
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}

// Inspect traverses an AST depth-first, calling f for each node. If f
// returns false, the children of that node are skipped. After the
// children, f is called with nil.
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}

// BaseVisitor is a Visitor driven by a sparse table of callbacks. Unset
// callbacks do nothing, so callers fill in only the node kinds they care
// about. Enter runs first for every node; returning false skips the
// node's children.
type BaseVisitor struct {
	Enter      func(Node) bool
	SelectStmt func(*SelectStmt)
	TableRef   func(*TableRef)
	SubQuery   func(*SubQuery)
	ColumnRef  func(*ColumnRef)
	FuncCall   func(*FuncCall)
	ExistsExpr func(*ExistsExpr)
	InSelect   func(*InSelect)
	SelectExpr func(*SelectExpr)
}

// Visit implements Visitor.
func (b *BaseVisitor) Visit(node Node) Visitor {
	if node == nil {
		return nil
	}
	if b.Enter != nil && !b.Enter(node) {
		return nil
	}
	switch n := node.(type) {
	case *SelectStmt:
		if b.SelectStmt != nil {
			b.SelectStmt(n)
		}
	case *TableRef:
		if b.TableRef != nil {
			b.TableRef(n)
		}
	case *SubQuery:
		if b.SubQuery != nil {
			b.SubQuery(n)
		}
	case *ColumnRef:
		if b.ColumnRef != nil {
			b.ColumnRef(n)
		}
	case *FuncCall:
		if b.FuncCall != nil {
			b.FuncCall(n)
		}
	case *ExistsExpr:
		if b.ExistsExpr != nil {
			b.ExistsExpr(n)
		}
	case *InSelect:
		if b.InSelect != nil {
			b.InSelect(n)
		}
	case *SelectExpr:
		if b.SelectExpr != nil {
			b.SelectExpr(n)
		}
	}
	return b
}
