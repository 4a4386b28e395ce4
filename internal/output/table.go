package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/redshift-lineage/pkg/lineage/report"
)

// WriteTable writes one row per sink. An entry that writes nothing gets a
// single row listing what it reads.
func WriteTable(w io.Writer, rep *report.Report) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Target", "Sources"})

	for i, st := range rep.Statements {
		if len(st.Lineage) == 0 {
			t.AppendRow(table.Row{i + 1, "", joinRefs(st.Sources)})
			continue
		}
		for _, sink := range st.Lineage {
			t.AppendRow(table.Row{i + 1, sink.Target.Name, joinRefs(sink.Sources)})
		}
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func joinRefs(refs []report.Reference) string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
	}
	return strings.Join(names, ", ")
}
