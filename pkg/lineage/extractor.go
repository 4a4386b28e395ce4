package lineage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/redshift-lineage/pkg/ast"
)

// Extractor computes table lineage from statements. It holds no state
// between calls and is safe for concurrent use.
type Extractor struct {
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Script folds the lineage of every statement into one record. Sinks and
// sources of all statements are merged, so per-statement detail is lost;
// the attached position covers the earliest start to the latest stop.
func (e *Extractor) Script(stmts []ast.Stmt) Info {
	if len(stmts) == 0 {
		return NewEmpty()
	}
	out := NewEmpty()
	var pos *SourcePosition
	for _, stmt := range stmts {
		out = MergeAll(out, e.Statement(stmt))
		if stmt != nil {
			pos = MergeSourcePositions(pos, PositionOf(stmt))
		}
	}
	return out.WithContext(Context{PositionInSource: pos})
}

// Statement returns the lineage of a single statement with its source
// position attached. Statements that move no data yield an empty record.
func (e *Extractor) Statement(stmt ast.Stmt) Info {
	var info Info
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		info = e.selectStmt(s)
	case *ast.InsertStmt:
		info = e.insert(s)
	case *ast.DeleteStmt:
		info = e.delete(s)
	case *ast.CreateTableAsStmt:
		info = e.createAs(s.Name, s.Select)
	case *ast.CreateViewStmt:
		info = e.createAs(s.Name, s.Select)
	case *ast.AlterRenameStmt:
		info = renameLineage(s)
	case nil:
		return NewEmpty()
	default:
		info = NewEmpty()
	}

	e.logger.Debug("statement lineage",
		"type", strings.TrimPrefix(fmt.Sprintf("%T", stmt), "*ast."),
		"sinks", len(info.Lineage),
		"sources", len(info.Sources))

	if pos := PositionOf(stmt); pos != nil {
		return info.WithContext(Context{PositionInSource: pos})
	}
	return info
}

func (e *Extractor) selectStmt(s *ast.SelectStmt) Info {
	if s == nil {
		return NewEmpty()
	}
	ctes := e.with(s.With)
	return ResolvedTransitive(e.selectClause(s.Body), ctes.Lineage)
}

// with resolves CTEs in declaration order. Each CTE body is resolved
// against the CTEs before it, so the returned map holds only base tables.
func (e *Extractor) with(w *ast.WithClause) Info {
	resolved := NewEmpty()
	if w == nil {
		return resolved
	}
	for _, cte := range w.CTEs {
		sub := ResolvedTransitive(e.selectStmt(cte.Select), resolved.Lineage)
		named := Info{
			Lineage: map[string]Set{cte.Name: sub.Sources},
			Sources: sub.Sources,
		}
		resolved = MergeAll(MergeAll(resolved, named), sub)
	}
	return resolved
}

func (e *Extractor) selectClause(c ast.SelectClause) Info {
	switch c := c.(type) {
	case *ast.CoreSelect:
		return e.coreSelect(c)
	case *ast.CombineSelect:
		return MergeAll(e.selectClause(c.Left), e.selectClause(c.Right))
	case *ast.ValuesClause:
		return NewEmpty()
	case *ast.NestedSelect:
		return e.selectStmt(c.Select)
	}
	return NewEmpty()
}

func (e *Extractor) coreSelect(c *ast.CoreSelect) Info {
	result := e.from(c.From)

	targets := Set{}
	for _, t := range c.Targets {
		if et, ok := t.(*ast.ExprTarget); ok {
			targets.AddAll(e.exprSources(et.Expr))
		}
	}
	clauses := Set{}
	for _, x := range []ast.Expr{c.Where, c.Having, c.Qualify} {
		if x != nil {
			clauses.AddAll(e.exprSources(x))
		}
	}
	if len(targets) > 0 {
		result = MergeAll(result, Info{Sources: targets})
	}
	if len(clauses) > 0 {
		result = MergeAll(result, Info{Sources: clauses})
	}

	if c.Into != nil {
		into := Info{Lineage: map[string]Set{c.Into.Name: result.Sources}}
		result = MergeAll(result, into)
	}
	return result
}

// from unions the base item and every joined item of each FROM element.
// Join conditions are not inspected.
func (e *Extractor) from(f *ast.From) Info {
	out := NewEmpty()
	if f == nil {
		return out
	}
	for _, el := range f.Elements {
		out = MergeAll(out, e.fromElement(el))
	}
	return out
}

func (e *Extractor) fromElement(el *ast.FromElement) Info {
	if el == nil {
		return NewEmpty()
	}
	out := e.simpleFrom(el.Source)
	for _, j := range el.Joins {
		out = MergeAll(out, e.fromElement(j.JoinTo()))
	}
	return out
}

func (e *Extractor) simpleFrom(s ast.SimpleFrom) Info {
	switch s := s.(type) {
	case *ast.TableRef:
		return Info{Lineage: map[string]Set{}, Sources: NewSet(s.Name)}
	case *ast.SubQuery:
		// Sinks written inside the subquery (SELECT INTO) do not escape it.
		return Info{Lineage: map[string]Set{}, Sources: e.selectStmt(s.Select).Sources}
	case *ast.NamedFrom:
		return e.fromElement(s.From)
	}
	return NewEmpty()
}

func (e *Extractor) insert(s *ast.InsertStmt) Info {
	sl := e.selectStmt(s.Select)
	raw := Info{
		Lineage: map[string]Set{s.Target.Name: sl.Sources},
		Sources: sl.Sources,
	}
	ctes := e.with(s.With)
	return MergeOnlyLineage(ResolvedTransitive(raw, ctes.Lineage), sl)
}

func (e *Extractor) delete(s *ast.DeleteStmt) Info {
	sources := Set{}
	for _, el := range s.Using {
		sources.AddAll(e.fromElement(el).Sources)
	}
	if s.Where != nil {
		sources.AddAll(e.exprSources(s.Where))
	}
	raw := Info{
		Lineage: map[string]Set{s.Table.Name: sources},
		Sources: sources,
	}
	ctes := e.with(s.With)
	return ResolvedTransitive(raw, ctes.Lineage)
}

func (e *Extractor) createAs(name string, sel *ast.SelectStmt) Info {
	sl := e.selectStmt(sel)
	created := Info{
		Lineage: map[string]Set{name: sl.Sources},
		Sources: sl.Sources,
	}
	return MergeOnlyLineage(created, sl)
}

// renameLineage maps the renamed table to its old name. The new name
// keeps the old schema prefix.
func renameLineage(s *ast.AlterRenameStmt) Info {
	newName := s.NewName
	if i := strings.LastIndexByte(s.Name, '.'); i >= 0 {
		newName = s.Name[:i] + "." + s.NewName
	}
	return Info{
		Lineage: map[string]Set{newName: NewSet(s.Name)},
		Sources: NewSet(s.Name),
	}
}

// exprSources collects the tables an expression reads. Every nested
// statement (scalar subquery, EXISTS, IN, ANY/ALL) contributes the
// sources of its own lineage, so its CTEs are resolved first.
func (e *Extractor) exprSources(x ast.Expr) Set {
	out := Set{}
	v := &ast.BaseVisitor{
		Enter: func(n ast.Node) bool {
			if sel, ok := n.(*ast.SelectStmt); ok {
				out.AddAll(e.selectStmt(sel).Sources)
				return false
			}
			return true
		},
		TableRef: func(t *ast.TableRef) { out.Add(t.Name) },
	}
	ast.Walk(v, x)
	return out
}
