package ast

// ---------- Select Clauses ----------

// CoreSelect is a single SELECT ... FROM ... WHERE ... block.
type CoreSelect struct {
	NodeInfo
	Distinct   bool
	DistinctOn []Expr
	Top        Expr // nil without TOP
	Targets    []Target
	Into       *IntoClause
	From       *From
	Where      Expr
	GroupBy    []Expr
	Having     Expr
	Qualify    Expr
	Windows    []*WindowDef
}

// IntoClause is the SELECT ... INTO target.
type IntoClause struct {
	NodeInfo
	Name      string
	Temporary bool
}

// SetOp is a set operator.
type SetOp string

// SetOp constants. MINUS is read as EXCEPT.
const (
	SetOpUnion     SetOp = "UNION"
	SetOpExcept    SetOp = "EXCEPT"
	SetOpIntersect SetOp = "INTERSECT"
)

// SetModifier is the optional ALL or DISTINCT of a set operator.
type SetModifier string

// SetModifier constants.
const (
	SetModifierNone     SetModifier = ""
	SetModifierAll      SetModifier = "ALL"
	SetModifierDistinct SetModifier = "DISTINCT"
)

// CombineSelect is left op right. Chains fold to the left.
type CombineSelect struct {
	NodeInfo
	Op       SetOp
	Modifier SetModifier
	Left     SelectClause
	Right    SelectClause
}

// ValuesClause is VALUES (row), (row), ... .
type ValuesClause struct {
	NodeInfo
	Rows [][]Expr
}

// NestedSelect is a parenthesized statement used as a select clause.
type NestedSelect struct {
	NodeInfo
	Select *SelectStmt
}

func (*CoreSelect) selectClauseNode()    {}
func (*CombineSelect) selectClauseNode() {}
func (*ValuesClause) selectClauseNode()  {}
func (*NestedSelect) selectClauseNode()  {}

// ---------- Targets ----------

// StarTarget is * or qualifier.*.
type StarTarget struct {
	NodeInfo
	Qualifier []string
}

// ExprTarget is expression [AS alias].
type ExprTarget struct {
	NodeInfo
	Expr  Expr
	Alias string
}

func (*StarTarget) targetNode() {}
func (*ExprTarget) targetNode() {}

// ---------- Ordering and Windows ----------

// SortOrder is ASC or DESC; empty means unspecified.
type SortOrder string

// SortOrder constants.
const (
	SortDefault SortOrder = ""
	SortAsc     SortOrder = "ASC"
	SortDesc    SortOrder = "DESC"
)

// NullsOrder is NULLS FIRST or NULLS LAST; empty means unspecified.
type NullsOrder string

// NullsOrder constants.
const (
	NullsDefault NullsOrder = ""
	NullsFirst   NullsOrder = "FIRST"
	NullsLast    NullsOrder = "LAST"
)

// SortClause is an ORDER BY list.
type SortClause struct {
	NodeInfo
	Items []*SortBy
}

// SortBy is one ORDER BY item.
type SortBy struct {
	NodeInfo
	Expr  Expr
	Order SortOrder
	Nulls NullsOrder
}

// WindowDef is a named window of the WINDOW clause.
type WindowDef struct {
	NodeInfo
	Name string
	Spec *WindowSpec
}

// ---------- FROM ----------

// From is a FROM clause: comma-separated elements.
type From struct {
	NodeInfo
	Elements []*FromElement
}

// FromElement is a base item followed by joins, applied left to right.
type FromElement struct {
	NodeInfo
	Source SimpleFrom
	Joins  []Join
}

// TableRef is a table or view name.
type TableRef struct {
	NodeInfo
	Name  string // fully qualified as written, e.g. schema.table
	Alias string
}

// SubQuery is a parenthesized query in FROM.
type SubQuery struct {
	NodeInfo
	Select *SelectStmt
	Alias  string
}

// NamedFrom is a parenthesized FROM element, usually a join tree.
type NamedFrom struct {
	NodeInfo
	From  *FromElement
	Alias string
}

func (*TableRef) simpleFromNode()  {}
func (*SubQuery) simpleFromNode()  {}
func (*NamedFrom) simpleFromNode() {}

// AliasName implements SimpleFrom.
func (t *TableRef) AliasName() string { return t.Alias }

// AliasName implements SimpleFrom.
func (s *SubQuery) AliasName() string { return s.Alias }

// AliasName implements SimpleFrom.
func (n *NamedFrom) AliasName() string { return n.Alias }

// JoinType is the type of a qualified join; empty means a bare JOIN.
type JoinType string

// JoinType constants.
const (
	JoinDefault JoinType = ""
	JoinInner   JoinType = "INNER"
	JoinLeft    JoinType = "LEFT"
	JoinRight   JoinType = "RIGHT"
	JoinFull    JoinType = "FULL"
)

// CrossJoin is CROSS JOIN element.
type CrossJoin struct {
	NodeInfo
	To *FromElement
}

// QualifiedJoin is [NATURAL] [type [OUTER]] JOIN element [condition].
// Condition is nil only for natural joins.
type QualifiedJoin struct {
	NodeInfo
	Type      JoinType
	Outer     bool
	Natural   bool
	To        *FromElement
	Condition JoinCondition
}

func (*CrossJoin) joinNode()     {}
func (*QualifiedJoin) joinNode() {}

// JoinTo implements Join.
func (j *CrossJoin) JoinTo() *FromElement { return j.To }

// JoinTo implements Join.
func (j *QualifiedJoin) JoinTo() *FromElement { return j.To }

// JoinOn is ON expression.
type JoinOn struct {
	NodeInfo
	Expr Expr
}

// JoinUsing is USING (columns).
type JoinUsing struct {
	NodeInfo
	Columns []string
}

func (*JoinOn) joinConditionNode()    {}
func (*JoinUsing) joinConditionNode() {}
