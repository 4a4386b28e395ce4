package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/redshift-lineage/pkg/lineage/report"
)

// WriteYAML writes the report model as YAML.
func WriteYAML(w io.Writer, rep *report.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}
