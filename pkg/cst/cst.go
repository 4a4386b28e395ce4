// Package cst defines the concrete parse tree produced by package parser.
//
// A tree is made of rule nodes and terminal (token) nodes. Every rule node
// records which grammar rule produced it, its children in source order, the
// first and last token it covers and the raw source text of that range.
// The tree is untyped. Consumers discriminate shapes by Rule and reach
// named sub-rules through Child and ChildrenOf.
package cst

import (
	"strings"

	"github.com/leapstack-labs/redshift-lineage/pkg/token"
)

// Node is a node of the concrete parse tree.
type Node struct {
	Rule     Rule
	Token    token.Token // leaf token; only set when Rule == Terminal
	Children []*Node
	Start    token.Token // first token covered by the node
	Stop     token.Token // last token covered by the node
	Text     string      // raw source text from Start to Stop
}

// NewTerminal wraps a token in a leaf node.
func NewTerminal(tok token.Token) *Node {
	return &Node{
		Rule:  Terminal,
		Token: tok,
		Start: tok,
		Stop:  tok,
		Text:  tok.Raw,
	}
}

// IsTerminal reports whether n is a leaf token node.
func (n *Node) IsTerminal() bool {
	return n != nil && n.Rule == Terminal
}

// Is reports whether n is a terminal of token type t.
func (n *Node) Is(t token.TokenType) bool {
	return n.IsTerminal() && n.Token.Type == t
}

// Child returns the first child produced by rule r, or nil.
func (n *Node) Child(r Rule) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Rule == r {
			return c
		}
	}
	return nil
}

// ChildrenOf returns all children produced by rule r, in order.
func (n *Node) ChildrenOf(r Rule) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Rule == r {
			out = append(out, c)
		}
	}
	return out
}

// Term returns the first terminal child of token type t, or nil.
func (n *Node) Term(t token.TokenType) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Is(t) {
			return c
		}
	}
	return nil
}

// Has reports whether n has a terminal child of token type t.
func (n *Node) Has(t token.TokenType) bool {
	return n.Term(t) != nil
}

// Rules returns the non-terminal children of n.
func (n *Node) Rules() []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if !c.IsTerminal() {
			out = append(out, c)
		}
	}
	return out
}

// Span returns the source range covered by the node.
func (n *Node) Span() token.Span {
	return token.Span{Start: n.Start.Pos, End: n.Stop.EndPos}
}

// String renders the tree as an S-expression, mainly for tests and
// debugging: (Rule child...) for rules and the raw text for tokens.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	if n == nil {
		b.WriteString("<nil>")
		return
	}
	if n.IsTerminal() {
		b.WriteString(n.Token.Raw)
		return
	}
	b.WriteByte('(')
	b.WriteString(n.Rule.String())
	for _, c := range n.Children {
		b.WriteByte(' ')
		c.write(b)
	}
	b.WriteByte(')')
}
