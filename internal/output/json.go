package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/leapstack-labs/redshift-lineage/pkg/lineage"
	"github.com/leapstack-labs/redshift-lineage/pkg/lineage/report"
)

type simpleTable struct {
	Name string `json:"name"`
}

type simpleEntry struct {
	Outputs        []simpleTable           `json:"outputs"`
	Inputs         []simpleTable           `json:"inputs"`
	SourcePosition *lineage.SourcePosition `json:"sourcePosition"`
}

type simpleReport struct {
	Lineage []simpleEntry `json:"lineage"`
}

// WriteJSON writes the simple JSON format: per entry, the written tables
// as outputs and every table feeding them as inputs.
func WriteJSON(w io.Writer, rep *report.Report) error {
	out := simpleReport{Lineage: make([]simpleEntry, 0, len(rep.Statements))}
	for _, st := range rep.Statements {
		e := simpleEntry{Outputs: []simpleTable{}, Inputs: []simpleTable{}}
		inputs := lineage.Set{}
		for _, sink := range st.Lineage {
			e.Outputs = append(e.Outputs, simpleTable{Name: sink.Target.Name})
			for _, src := range sink.Sources {
				inputs.Add(src.Name)
			}
		}
		for _, name := range inputs.Sorted() {
			e.Inputs = append(e.Inputs, simpleTable{Name: name})
		}
		if st.Context != nil {
			e.SourcePosition = st.Context.PositionInSource
		}
		out.Lineage = append(out.Lineage, e)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}
