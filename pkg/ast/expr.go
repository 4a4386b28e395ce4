package ast

// ---------- Operators ----------

// BinaryOp is the operator of a BinaryExpr.
type BinaryOp int

// BinaryOp constants. OpQualified marks a custom or schema-qualified
// operator whose text is kept in BinaryExpr.OpName.
const (
	OpAdd BinaryOp = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpAnd
	OpOr
	OpEquals
	OpNotEquals
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpShiftLeft
	OpShiftRight
	OpDistinctFrom
	OpNotDistinctFrom
	OpCaret
	OpAtTimeZone
	OpQualified
)

var binaryOpNames = [...]string{
	OpAdd:             "+",
	OpSubtract:        "-",
	OpMultiply:        "*",
	OpDivide:          "/",
	OpModulo:          "%",
	OpAnd:             "AND",
	OpOr:              "OR",
	OpEquals:          "=",
	OpNotEquals:       "<>",
	OpLess:            "<",
	OpLessEqual:       "<=",
	OpGreater:         ">",
	OpGreaterEqual:    ">=",
	OpShiftLeft:       "<<",
	OpShiftRight:      ">>",
	OpDistinctFrom:    "IS DISTINCT FROM",
	OpNotDistinctFrom: "IS NOT DISTINCT FROM",
	OpCaret:           "^",
	OpAtTimeZone:      "AT TIME ZONE",
	OpQualified:       "OPERATOR",
}

func (o BinaryOp) String() string {
	if int(o) < len(binaryOpNames) {
		return binaryOpNames[o]
	}
	return "?"
}

// UnaryOp is the operator of a UnaryExpr.
type UnaryOp int

// UnaryOp constants.
const (
	OpNot UnaryOp = iota
	OpIsNull
	OpIsNotNull
	OpIsTrue
	OpIsNotTrue
	OpIsFalse
	OpIsNotFalse
	OpIsUnknown
	OpIsNotUnknown
	OpMinus
	OpPlus
	OpPrefixQualified
)

var unaryOpNames = [...]string{
	OpNot:             "NOT",
	OpIsNull:          "IS NULL",
	OpIsNotNull:       "IS NOT NULL",
	OpIsTrue:          "IS TRUE",
	OpIsNotTrue:       "IS NOT TRUE",
	OpIsFalse:         "IS FALSE",
	OpIsNotFalse:      "IS NOT FALSE",
	OpIsUnknown:       "IS UNKNOWN",
	OpIsNotUnknown:    "IS NOT UNKNOWN",
	OpMinus:           "-",
	OpPlus:            "+",
	OpPrefixQualified: "OPERATOR",
}

func (o UnaryOp) String() string {
	if int(o) < len(unaryOpNames) {
		return unaryOpNames[o]
	}
	return "?"
}

// LikeOp is LIKE, ILIKE or SIMILAR TO.
type LikeOp string

// LikeOp constants.
const (
	OpLike      LikeOp = "LIKE"
	OpILike     LikeOp = "ILIKE"
	OpSimilarTo LikeOp = "SIMILAR TO"
)

// Quantifier is ANY, ALL or SOME in front of a subquery.
type Quantifier string

// Quantifier constants.
const (
	QuantAny  Quantifier = "ANY"
	QuantAll  Quantifier = "ALL"
	QuantSome Quantifier = "SOME"
)

// ConstKind classifies a Constant; the value itself stays raw text.
type ConstKind int

// ConstKind constants.
const (
	ConstNumber ConstKind = iota
	ConstString
	ConstBool
	ConstNull
	ConstDefault
	ConstTyped
	ConstParam
)

// NullTreatment is IGNORE NULLS or RESPECT NULLS.
type NullTreatment string

// NullTreatment constants.
const (
	NullsUnspecified NullTreatment = ""
	IgnoreNulls      NullTreatment = "IGNORE NULLS"
	RespectNulls     NullTreatment = "RESPECT NULLS"
)

// ---------- Expressions ----------

// BinaryExpr is left op right.
type BinaryExpr struct {
	NodeInfo
	Left   Expr
	Op     BinaryOp
	OpName string // operator text when Op is OpQualified
	Right  Expr
}

// UnaryExpr is a prefix or postfix operator applied to one operand.
type UnaryExpr struct {
	NodeInfo
	Op     UnaryOp
	OpName string // operator text when Op is OpPrefixQualified
	Expr   Expr
}

// BetweenExpr is target [NOT] BETWEEN [SYMMETRIC] lower AND upper.
type BetweenExpr struct {
	NodeInfo
	Target    Expr
	Lower     Expr
	Upper     Expr
	Not       bool
	Symmetric bool
}

// InExpr is target [NOT] IN source.
type InExpr struct {
	NodeInfo
	Target Expr
	Source InSource
	Not    bool
}

// InValues is an explicit IN list.
type InValues struct {
	NodeInfo
	Values []Expr
}

// InSelect is IN (query).
type InSelect struct {
	NodeInfo
	Select *SelectStmt
}

func (*InValues) inSourceNode() {}
func (*InSelect) inSourceNode() {}

// LikeExpr is target [NOT] LIKE|ILIKE|SIMILAR TO pattern [ESCAPE escape].
type LikeExpr struct {
	NodeInfo
	Target  Expr
	Pattern Expr
	Op      LikeOp
	Not     bool
	Escape  Expr
}

// QuantifiedExpr is ANY|ALL|SOME (query) or (array expression), the right
// side of a comparison. Exactly one of Select and Expr is set.
type QuantifiedExpr struct {
	NodeInfo
	Quantifier Quantifier
	Select     *SelectStmt
	Expr       Expr
}

// CollateExpr is expr COLLATE collation.
type CollateExpr struct {
	NodeInfo
	Expr      Expr
	Collation string
}

// CastExpr is expr::type or CAST(expr AS type).
type CastExpr struct {
	NodeInfo
	Expr Expr
	Type string
}

// ExistsExpr is EXISTS (query).
type ExistsExpr struct {
	NodeInfo
	Select *SelectStmt
}

// SelectExpr is a scalar subquery, optionally followed by field access.
type SelectExpr struct {
	NodeInfo
	Select     *SelectStmt
	Fields     []string
	Subscripts []Expr
}

// ColumnRef is a possibly qualified column name such as schema.table.col.
type ColumnRef struct {
	NodeInfo
	Names      []string
	Star       bool // trailing .*
	Subscripts []Expr
}

// Constant is a literal kept as raw source text.
type Constant struct {
	NodeInfo
	Kind     ConstKind
	Text     string
	TypeName string // for typed literals such as DATE '2024-01-01'
}

// RowExpr is an implicit row constructor (a, b, ...).
type RowExpr struct {
	NodeInfo
	Exprs []Expr
}

// CaseExpr is CASE [subject] WHEN ... THEN ... [ELSE ...] END.
type CaseExpr struct {
	NodeInfo
	Subject Expr
	Whens   []*WhenClause
	Else    Expr
}

// WhenClause is one WHEN condition THEN result.
type WhenClause struct {
	NodeInfo
	Condition Expr
	Result    Expr
}

// FuncCall is a function call, including aggregates and window functions.
type FuncCall struct {
	NodeInfo
	Name          string
	Args          []Expr
	All           bool
	Distinct      bool
	Star          bool
	NullTreatment NullTreatment
	OrderBy       *SortClause // ORDER BY inside the argument list
	WithinGroup   *SortClause
	Filter        Expr
	Over          OverClause
}

// CommonFuncCall is a built-in with special syntax (EXTRACT, POSITION,
// SUBSTRING, TRIM, niladic functions) kept as raw text plus the
// sub-expressions it contains.
type CommonFuncCall struct {
	NodeInfo
	Text string
	Args []Expr
}

func (*BinaryExpr) exprNode()     {}
func (*UnaryExpr) exprNode()      {}
func (*BetweenExpr) exprNode()    {}
func (*InExpr) exprNode()         {}
func (*LikeExpr) exprNode()       {}
func (*QuantifiedExpr) exprNode() {}
func (*CollateExpr) exprNode()    {}
func (*CastExpr) exprNode()       {}
func (*ExistsExpr) exprNode()     {}
func (*SelectExpr) exprNode()     {}
func (*ColumnRef) exprNode()      {}
func (*Constant) exprNode()       {}
func (*RowExpr) exprNode()        {}
func (*CaseExpr) exprNode()       {}
func (*FuncCall) exprNode()       {}
func (*CommonFuncCall) exprNode() {}

// ---------- Windows ----------

// OverWindowName is OVER name.
type OverWindowName struct {
	NodeInfo
	Name string
}

// WindowSpec is OVER ([name] [PARTITION BY ...] [ORDER BY ...] [frame]).
type WindowSpec struct {
	NodeInfo
	Name        string
	PartitionBy []Expr
	OrderBy     *SortClause
	Frame       *FrameClause
}

// FrameClause is a window frame kept as raw text.
type FrameClause struct {
	NodeInfo
	Text string
}

func (*OverWindowName) overClauseNode() {}
func (*WindowSpec) overClauseNode()     {}
