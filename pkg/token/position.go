package token

// Position is a point in the source text.
type Position struct {
	Line   int // 1-based
	Column int // 1-based, in runes
	Offset int // 0-based byte offset
}

// IsValid reports whether p was set by the lexer.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Before reports whether p comes strictly before q in the source.
func (p Position) Before(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Column < q.Column
}

// Span is a range of source text. End points just past the last rune.
type Span struct {
	Start Position
	End   Position
}

// IsValid reports whether both ends of s are set.
func (s Span) IsValid() bool {
	return s.Start.IsValid() && s.End.IsValid()
}

// Cover returns the smallest span containing both s and o. An invalid
// span yields the other one.
func (s Span) Cover(o Span) Span {
	if !s.IsValid() {
		return o
	}
	if !o.IsValid() {
		return s
	}
	out := s
	if o.Start.Before(out.Start) {
		out.Start = o.Start
	}
	if out.End.Before(o.End) {
		out.End = o.End
	}
	return out
}
