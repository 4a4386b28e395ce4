// Package output writes lineage reports in the supported formats.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/redshift-lineage/pkg/lineage/report"
)

// Format names an output format.
type Format string

// Output formats.
const (
	FormatJSON        Format = "json"
	FormatYAML        Format = "yaml"
	FormatOpenLineage Format = "openlineage"
	FormatTable       Format = "table"
	FormatText        Format = "text"
)

// Formats returns every supported format, default first.
func Formats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatOpenLineage, FormatTable, FormatText}
}

// FormatNames returns the supported format names.
func FormatNames() []string {
	out := make([]string, 0, len(Formats()))
	for _, f := range Formats() {
		out = append(out, string(f))
	}
	return out
}

// ParseFormat resolves a format name, ignoring case.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format %q (expected one of %s)", name, strings.Join(FormatNames(), ", "))
}

// Options configures Write.
type Options struct {
	OpenLineage OpenLineageOptions
	// Renderer styles the text format. Nil renders plain text to the
	// writer passed to Write.
	Renderer *Renderer
}

// Write encodes rep to w in format f.
func Write(w io.Writer, f Format, rep *report.Report, opts Options) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, rep)
	case FormatYAML:
		return WriteYAML(w, rep)
	case FormatOpenLineage:
		return NewEmitter(opts.OpenLineage).Write(w, rep)
	case FormatTable:
		return WriteTable(w, rep)
	case FormatText:
		r := opts.Renderer
		if r == nil {
			r = NewRendererWithTTY(w, io.Discard, false)
		}
		return WriteText(r, rep)
	}
	return fmt.Errorf("unsupported output format %q", f)
}
