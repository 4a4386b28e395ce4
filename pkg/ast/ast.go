// Package ast defines the typed syntax tree built from a Redshift parse tree.
//
// Variant families (statements, select clauses, FROM items, joins, targets,
// expressions, IN sources and OVER clauses) are closed sets: each is an
// interface with an unexported marker method, and consumers switch over
// the concrete types exhaustively. Every node owns its children and records
// the source range it was built from.
package ast

import "github.com/leapstack-labs/redshift-lineage/pkg/token"

// Node is the base interface for all AST nodes.
type Node interface {
	// Pos returns the position of the first character of the node.
	Pos() token.Position
	// End returns the position of the character immediately after the node.
	End() token.Position
	// Span returns the source range of the node.
	Span() token.Span
}

// NodeInfo carries the source range of a node. Embed it to implement Node.
type NodeInfo struct {
	Loc token.Span
}

// Pos implements Node.
func (n NodeInfo) Pos() token.Position { return n.Loc.Start }

// End implements Node.
func (n NodeInfo) End() token.Position { return n.Loc.End }

// Span implements Node.
func (n NodeInfo) Span() token.Span { return n.Loc }

// At returns a NodeInfo covering span.
func At(span token.Span) NodeInfo {
	return NodeInfo{Loc: span}
}

// Stmt is a top-level statement.
type Stmt interface {
	Node
	stmtNode()
}

// SelectClause is the body of a query: a core SELECT, a set operation,
// a VALUES list or a parenthesized statement.
type SelectClause interface {
	Node
	selectClauseNode()
}

// Target is an item of a SELECT target list.
type Target interface {
	Node
	targetNode()
}

// SimpleFrom is the base item of a FROM element.
type SimpleFrom interface {
	Node
	simpleFromNode()
	// AliasName returns the alias, or "" if none was given.
	AliasName() string
}

// Join is a join applied to the preceding FROM item.
type Join interface {
	Node
	joinNode()
	// JoinTo returns the joined element.
	JoinTo() *FromElement
}

// JoinCondition is the ON or USING part of a qualified join.
type JoinCondition interface {
	Node
	joinConditionNode()
}

// Expr is a scalar expression.
type Expr interface {
	Node
	exprNode()
}

// InSource is the right-hand side of IN.
type InSource interface {
	Node
	inSourceNode()
}

// OverClause is the window of a window function call.
type OverClause interface {
	Node
	overClauseNode()
}
