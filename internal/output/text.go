package output

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/redshift-lineage/pkg/lineage/report"
)

// WriteText writes a human-readable listing of rep.
func WriteText(r *Renderer, rep *report.Report) error {
	s := r.Styles()
	for i, st := range rep.Statements {
		if i > 0 {
			r.Println("")
		}
		r.Println(s.Header.Render(fmt.Sprintf("Statement %d", i+1)) + location(st))

		width := 0
		for _, sink := range st.Lineage {
			width = max(width, len(sink.Target.Name))
		}
		for _, sink := range st.Lineage {
			pad := strings.Repeat(" ", width-len(sink.Target.Name))
			r.Printf("  %s%s <- %s\n", s.Target.Render(sink.Target.Name), pad, styledRefs(s, sink.Sources))
		}
		if len(st.Lineage) == 0 {
			r.Println(s.Muted.Render("  (no tables written)"))
		}
		r.Printf("  %s %s\n", s.Bold.Render("reads:"), styledRefs(s, st.Sources))
	}
	return nil
}

func location(st report.Entry) string {
	if st.Context == nil {
		return ""
	}
	var parts []string
	if st.Context.SourceName != nil {
		parts = append(parts, *st.Context.SourceName)
	}
	if p := st.Context.PositionInSource; p != nil {
		parts = append(parts, fmt.Sprintf("%d:%d-%d:%d",
			p.Start.Line, p.Start.PositionInLine, p.Stop.Line, p.Stop.PositionInLine))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  (" + strings.Join(parts, " ") + ")"
}

func styledRefs(s Styles, refs []report.Reference) string {
	if len(refs) == 0 {
		return s.Muted.Render("-")
	}
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = s.Source.Render(ref.Name)
	}
	return strings.Join(names, ", ")
}
