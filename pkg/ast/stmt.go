package ast

// ---------- Statements ----------

// SelectStmt is a full query with its own WITH clause.
type SelectStmt struct {
	NodeInfo
	With    *WithClause // nil without WITH
	Body    SelectClause
	OrderBy *SortClause // nil without ORDER BY
	Limit   Expr        // nil without LIMIT or for LIMIT ALL
	Offset  Expr
}

// WithClause is an ordered list of common table expressions.
type WithClause struct {
	NodeInfo
	Recursive bool
	CTEs      []*CTE
}

// CTE is a named query of a WITH clause.
type CTE struct {
	NodeInfo
	Name    string
	Columns []string
	Select  *SelectStmt
}

// InsertStmt is INSERT INTO ... SELECT/VALUES.
type InsertStmt struct {
	NodeInfo
	With   *WithClause
	Target *InsertTarget
	// Select is the inserted query. For DEFAULT VALUES it is a query whose
	// body is an empty ValuesClause.
	Select        *SelectStmt
	DefaultValues bool
}

// InsertTarget is the table written by INSERT.
type InsertTarget struct {
	NodeInfo
	Name    string
	Alias   string
	Columns []string
}

// DeleteStmt is DELETE FROM ... [USING ...] [WHERE ...].
type DeleteStmt struct {
	NodeInfo
	With  *WithClause
	Table *TableRef
	Using []*FromElement
	Where Expr
}

// CreateTableAsStmt is CREATE TABLE ... AS query.
type CreateTableAsStmt struct {
	NodeInfo
	Name        string
	Temporary   bool
	IfNotExists bool
	Columns     []string
	Attributes  string // raw table attributes (DISTKEY, SORTKEY, ...)
	Select      *SelectStmt
}

// CreateViewStmt is CREATE [OR REPLACE] [MATERIALIZED] VIEW ... AS query.
type CreateViewStmt struct {
	NodeInfo
	Name         string
	OrReplace    bool
	Materialized bool
	Columns      []string
	Options      string // raw options before AS and after the query
	Select       *SelectStmt
}

// CreateTableStmt is CREATE TABLE with column definitions. The definitions
// are kept as raw text.
type CreateTableStmt struct {
	NodeInfo
	Name        string
	Temporary   bool
	IfNotExists bool
	Definitions string
	Attributes  string
}

// AlterRenameStmt is ALTER TABLE name RENAME TO new_name.
type AlterRenameStmt struct {
	NodeInfo
	Name    string
	NewName string // bare name, without schema
}

// DropKind is the kind of object dropped.
type DropKind string

// DropKind constants.
const (
	DropTable            DropKind = "TABLE"
	DropView             DropKind = "VIEW"
	DropMaterializedView DropKind = "MATERIALIZED VIEW"
)

// DropBehavior is CASCADE or RESTRICT.
type DropBehavior string

// DropBehavior constants.
const (
	DropDefault  DropBehavior = ""
	DropCascade  DropBehavior = "CASCADE"
	DropRestrict DropBehavior = "RESTRICT"
)

// DropStmt is DROP TABLE|VIEW ... .
type DropStmt struct {
	NodeInfo
	Kind     DropKind
	Names    []string
	IfExists bool
	Behavior DropBehavior
}

func (*SelectStmt) stmtNode()        {}
func (*InsertStmt) stmtNode()        {}
func (*DeleteStmt) stmtNode()        {}
func (*CreateTableAsStmt) stmtNode() {}
func (*CreateViewStmt) stmtNode()    {}
func (*CreateTableStmt) stmtNode()   {}
func (*AlterRenameStmt) stmtNode()   {}
func (*DropStmt) stmtNode()          {}
