// Package transform converts the concrete parse tree produced by package
// parser into the typed syntax tree of package ast.
//
// Expressions arrive as one parse node per precedence level with their
// operators left as tokens; the transformer folds each level into left
// associative Binary and Unary nodes. Statements the grammar only swallows
// are reported as diagnostics and skipped. Any shape the transformer does
// not expect is a fatal *Error and no tree is returned.
package transform

import (
	"fmt"
	"log/slog"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/redshift-lineage/pkg/ast"
	"github.com/leapstack-labs/redshift-lineage/pkg/cst"
	"github.com/leapstack-labs/redshift-lineage/pkg/parser"
	"github.com/leapstack-labs/redshift-lineage/pkg/token"
)

// Options configures a Transformer.
type Options struct {
	// NormalizeIdentifiers lower-cases unquoted identifiers. Quoted
	// identifiers are always kept as written.
	NormalizeIdentifiers bool
	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger
}

// Result is the outcome of transforming a script.
type Result struct {
	// Statements holds the supported statements in source order.
	Statements []ast.Stmt
	// Diagnostics lists the statements that were skipped.
	Diagnostics []Diagnostic
}

// Transformer converts parse trees into ASTs. A Transformer is not safe
// for concurrent use.
type Transformer struct {
	normalize bool
	caser     cases.Caser
	logger    *slog.Logger
	diags     []Diagnostic
	errors    []error
}

// New creates a Transformer.
func New(opts Options) *Transformer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Transformer{
		normalize: opts.NormalizeIdentifiers,
		caser:     cases.Lower(language.Und),
		logger:    logger,
	}
}

// Transform converts a parsed script.
func Transform(root *cst.Node, opts Options) (*Result, error) {
	return New(opts).Script(root)
}

// ParseScript parses sql and converts the result.
func ParseScript(sql string, opts Options) (*Result, error) {
	root, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}
	return Transform(root, opts)
}

// Script converts every statement of a Root node. Unsupported statements
// are skipped with a diagnostic; the first fatal error aborts the whole
// script.
func (t *Transformer) Script(root *cst.Node) (*Result, error) {
	if root == nil || root.Rule != cst.RuleRoot {
		return nil, t.mismatch(root, "script", "expected a script root")
	}
	res := &Result{}
	for _, n := range root.ChildrenOf(cst.RuleStmt) {
		stmt, err := t.Statement(n)
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			res.Statements = append(res.Statements, stmt)
		}
	}
	res.Diagnostics = t.Diagnostics()
	return res, nil
}

// Statement converts one Stmt node (or a bare statement body). It returns
// nil and records a diagnostic when the statement is not supported.
func (t *Transformer) Statement(n *cst.Node) (ast.Stmt, error) {
	if n != nil && n.Rule == cst.RuleStmt {
		rules := n.Rules()
		if len(rules) != 1 {
			return nil, t.mismatch(n, "statement", "expected exactly one statement body")
		}
		n = rules[0]
	}
	nerr := len(t.errors)
	stmt := t.statement(n)
	if len(t.errors) > nerr {
		return nil, t.errors[nerr]
	}
	return stmt, nil
}

// Diagnostics returns the diagnostics recorded so far.
func (t *Transformer) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), t.diags...)
}

// ---------- Failure Helpers ----------

// fail records a fatal error at n.
func (t *Transformer) fail(n *cst.Node, construct, format string, args ...any) {
	var span token.Span
	if n != nil {
		span = n.Span()
	}
	err := &Error{Span: span, Construct: construct, Message: fmt.Sprintf(format, args...)}
	t.logger.Debug("grammar mismatch", slog.String("construct", construct), slog.String("error", err.Message))
	t.errors = append(t.errors, err)
}

// mismatch records a fatal error and returns it.
func (t *Transformer) mismatch(n *cst.Node, construct, msg string) error {
	t.fail(n, construct, "%s", msg)
	return t.errors[len(t.errors)-1]
}

// failed reports whether a fatal error has been recorded.
func (t *Transformer) failed() bool {
	return len(t.errors) > 0
}

// skip records a diagnostic for an unsupported statement.
func (t *Transformer) skip(n *cst.Node, msg string) {
	d := Diagnostic{Severity: SeverityWarning, Span: n.Span(), Message: msg}
	t.logger.Debug("skipping statement", slog.Int("line", d.Span.Start.Line), slog.String("reason", msg))
	t.diags = append(t.diags, d)
}

// ---------- Node Helpers ----------

// child returns the first child of rule r, recording an error if absent.
func (t *Transformer) child(n *cst.Node, r cst.Rule, construct string) *cst.Node {
	c := n.Child(r)
	if c == nil {
		t.fail(n, construct, "missing %s", r)
	}
	return c
}

// ident returns an identifier token's text, folded when normalization is on.
func (t *Transformer) ident(tok token.Token) string {
	if t.normalize && !tok.Quoted {
		return t.caser.String(tok.Raw)
	}
	return tok.Raw
}

// qualifiedName joins the name parts of n with dots, keeping quotes.
func (t *Transformer) qualifiedName(n *cst.Node) string {
	var out []byte
	for _, c := range n.Children {
		if !c.IsTerminal() {
			continue
		}
		if c.Is(token.DOT) {
			out = append(out, '.')
			continue
		}
		out = append(out, t.ident(c.Token)...)
	}
	return string(out)
}

// nameList returns the identifiers of a NameList node.
func (t *Transformer) nameList(n *cst.Node) []string {
	if n == nil {
		return nil
	}
	var names []string
	for _, c := range n.Children {
		if c.IsTerminal() && !c.Is(token.COMMA) {
			names = append(names, t.ident(c.Token))
		}
	}
	return names
}

// columnList returns the names of an optional ColumnList child of n.
func (t *Transformer) columnList(n *cst.Node) []string {
	return t.nameList(n.Child(cst.RuleColumnList).Child(cst.RuleNameList))
}

// alias returns the alias of an optional AliasClause child of n.
func (t *Transformer) alias(n *cst.Node) string {
	a := n.Child(cst.RuleAliasClause)
	if a == nil {
		return ""
	}
	for _, c := range a.Children {
		if c.IsTerminal() && !c.Is(token.AS) {
			return t.ident(c.Token)
		}
	}
	return ""
}

// info returns the NodeInfo covering n.
func info(n *cst.Node) ast.NodeInfo {
	return ast.At(n.Span())
}

// cover returns a NodeInfo from the start of a to the end of b.
func cover(a, b ast.Node) ast.NodeInfo {
	return ast.At(a.Span().Cover(b.Span()))
}
