// Package lineage computes table-level lineage from Redshift statements.
//
// An Info records which tables each written table (a sink) reads from,
// together with the flat set of every table the statement reads. Infos
// are values: every operation returns a new Info and never modifies its
// arguments.
package lineage

import (
	"sort"

	"github.com/leapstack-labs/redshift-lineage/pkg/ast"
)

// Set is a set of table names.
type Set map[string]struct{}

// NewSet returns a set holding names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Add adds name to s.
func (s Set) Add(name string) {
	s[name] = struct{}{}
}

// AddAll adds every name of o to s.
func (s Set) AddAll(o Set) {
	for n := range o {
		s[n] = struct{}{}
	}
}

// Contains reports whether name is in s.
func (s Set) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Union returns a new set with the names of s and o.
func (s Set) Union(o Set) Set {
	out := make(Set, len(s)+len(o))
	out.AddAll(s)
	out.AddAll(o)
	return out
}

// Clone returns a copy of s. A nil set clones to an empty one.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	out.AddAll(s)
	return out
}

// Sorted returns the names in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// TextPosition is a point in the input. Line is 1-based and
// PositionInLine is the 0-based character offset within the line.
type TextPosition struct {
	Line           int `json:"line" yaml:"line"`
	PositionInLine int `json:"positionInLine" yaml:"positionInLine"`
}

// Compare orders positions by line, then by position in line.
func (p TextPosition) Compare(o TextPosition) int {
	switch {
	case p.Line < o.Line:
		return -1
	case p.Line > o.Line:
		return 1
	case p.PositionInLine < o.PositionInLine:
		return -1
	case p.PositionInLine > o.PositionInLine:
		return 1
	}
	return 0
}

// SourcePosition is the range of a statement in its input. Stop points
// just past the last character.
type SourcePosition struct {
	Start TextPosition `json:"start" yaml:"start"`
	Stop  TextPosition `json:"stop" yaml:"stop"`
}

// Context tells where a lineage record came from.
type Context struct {
	SourceName       *string         `json:"sourceName" yaml:"sourceName"`
	PositionInSource *SourcePosition `json:"positionInSource" yaml:"positionInSource"`
}

// Info is the lineage of one statement or of a whole script.
type Info struct {
	// Lineage maps each sink to the tables that feed it. A sink may map
	// to an empty set, e.g. an INSERT of literal VALUES.
	Lineage map[string]Set
	// Sources holds every table read.
	Sources Set
	// Context is nil until a position or source name is attached.
	Context *Context
}

// NewEmpty returns an Info with no sinks and no sources.
func NewEmpty() Info {
	return Info{Lineage: map[string]Set{}, Sources: Set{}}
}

// NewInfo returns an Info with the given sinks and sources. The arguments
// are copied.
func NewInfo(lineage map[string]Set, sources Set) Info {
	return Info{Lineage: mergeLineage(lineage, nil), Sources: sources.Clone()}
}

// Sinks returns the sink names in lexical order.
func (i Info) Sinks() []string {
	out := make([]string, 0, len(i.Lineage))
	for k := range i.Lineage {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IsEmpty reports whether i has neither sinks nor sources.
func (i Info) IsEmpty() bool {
	return len(i.Lineage) == 0 && len(i.Sources) == 0
}

// WithContext returns a copy of i carrying ctx.
func (i Info) WithContext(ctx Context) Info {
	i.Context = &ctx
	return i
}

// WithSourceName returns a copy of i whose context names the input it was
// read from. The position, if any, is kept.
func (i Info) WithSourceName(name string) Info {
	ctx := Context{SourceName: &name}
	if i.Context != nil {
		ctx.PositionInSource = i.Context.PositionInSource
	}
	return i.WithContext(ctx)
}

// Position returns the attached source position, or nil.
func (i Info) Position() *SourcePosition {
	if i.Context == nil {
		return nil
	}
	return i.Context.PositionInSource
}

func mergeLineage(a, b map[string]Set) map[string]Set {
	out := make(map[string]Set, len(a)+len(b))
	for k, v := range a {
		out[k] = v.Clone()
	}
	for k, v := range b {
		if cur, ok := out[k]; ok {
			cur.AddAll(v)
		} else {
			out[k] = v.Clone()
		}
	}
	return out
}

// MergeAll unions the sink maps and the source sets of a and b. The
// result keeps a's context.
func MergeAll(a, b Info) Info {
	return Info{
		Lineage: mergeLineage(a.Lineage, b.Lineage),
		Sources: a.Sources.Union(b.Sources),
		Context: a.Context,
	}
}

// MergeOnlyLineage unions the sink maps of a and b but keeps only a's
// sources and context.
func MergeOnlyLineage(a, b Info) Info {
	return Info{
		Lineage: mergeLineage(a.Lineage, b.Lineage),
		Sources: a.Sources.Clone(),
		Context: a.Context,
	}
}

func resolveSources(sources Set, resolved map[string]Set) Set {
	out := make(Set, len(sources))
	for n := range sources {
		if sub, ok := resolved[n]; ok {
			out.AddAll(sub)
			continue
		}
		out.Add(n)
	}
	return out
}

// ResolvedTransitive replaces every source name of i found in resolved,
// both in the sink map and in the flat set, with the names it maps to.
// Names missing from resolved are base tables and stay as they are. It
// performs a single hop; chains resolve because each map entry is
// itself already resolved.
func ResolvedTransitive(i Info, resolved map[string]Set) Info {
	out := Info{
		Lineage: make(map[string]Set, len(i.Lineage)),
		Sources: resolveSources(i.Sources, resolved),
	}
	for sink, sources := range i.Lineage {
		out.Lineage[sink] = resolveSources(sources, resolved)
	}
	return out
}

// MergeSourcePositions returns the range covering both a and b. A nil
// argument yields the other one.
func MergeSourcePositions(a, b *SourcePosition) *SourcePosition {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := *a
	if b.Start.Compare(out.Start) < 0 {
		out.Start = b.Start
	}
	if b.Stop.Compare(out.Stop) > 0 {
		out.Stop = b.Stop
	}
	return &out
}

// PositionOf returns the source range of node, or nil when the node has
// no valid span.
func PositionOf(node ast.Node) *SourcePosition {
	if node == nil {
		return nil
	}
	span := node.Span()
	if !span.IsValid() {
		return nil
	}
	return &SourcePosition{
		Start: TextPosition{Line: span.Start.Line, PositionInLine: span.Start.Column - 1},
		Stop:  TextPosition{Line: span.End.Line, PositionInLine: span.End.Column - 1},
	}
}
