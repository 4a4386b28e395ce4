// Package report turns lineage records into the report model shared by
// every output format, and runs the parse, transform and extract
// pipeline over a script.
package report

import (
	"fmt"
	"log/slog"
	"path"

	"github.com/leapstack-labs/redshift-lineage/pkg/lineage"
	"github.com/leapstack-labs/redshift-lineage/pkg/transform"
)

// Reference names a table.
type Reference struct {
	Name string `json:"name" yaml:"name"`
}

// Sink is a written table and the tables that feed it.
type Sink struct {
	Target  Reference   `json:"target" yaml:"target"`
	Sources []Reference `json:"sources" yaml:"sources"`
}

// Entry is the lineage of one statement, or of a whole script in
// aggregate mode.
type Entry struct {
	Lineage []Sink           `json:"lineage" yaml:"lineage"`
	Sources []Reference      `json:"sources" yaml:"sources"`
	Context *lineage.Context `json:"context" yaml:"context"`
}

// Report is an ordered list of entries.
type Report struct {
	Statements []Entry `json:"statements" yaml:"statements"`
}

// Options configures Extract.
type Options struct {
	// SplitStatements emits one entry per statement instead of one
	// aggregate entry.
	SplitStatements bool
	// SourceName is recorded in every entry's context. Empty means the
	// script has no name, e.g. it was read from stdin.
	SourceName string
	// NormalizeIdentifiers lower-cases unquoted identifiers.
	NormalizeIdentifiers bool
	// Exclude drops tables whose name matches any of these path.Match
	// patterns.
	Exclude []string
	Logger  *slog.Logger
}

// Result is the outcome of Extract.
type Result struct {
	Report *Report
	// Infos holds the records the report was built from, in report order.
	Infos []lineage.Info
	// Diagnostics lists statements that were skipped.
	Diagnostics []transform.Diagnostic
}

// Extract parses sql and computes its lineage report. Parse and
// transform errors abort the whole script.
func Extract(sql string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := ValidatePatterns(opts.Exclude); err != nil {
		return nil, err
	}

	res, err := transform.ParseScript(sql, transform.Options{
		NormalizeIdentifiers: opts.NormalizeIdentifiers,
		Logger:               logger,
	})
	if err != nil {
		return nil, err
	}
	for _, d := range res.Diagnostics {
		logger.Warn("skipped statement", "source", opts.SourceName, "diagnostic", d.String())
	}

	ex := lineage.NewExtractor(lineage.WithLogger(logger))
	var infos []lineage.Info
	if opts.SplitStatements {
		for _, stmt := range res.Statements {
			infos = append(infos, ex.Statement(stmt))
		}
	} else {
		infos = []lineage.Info{ex.Script(res.Statements)}
	}
	for i := range infos {
		infos[i] = Exclude(infos[i], opts.Exclude)
		if opts.SourceName != "" {
			infos[i] = infos[i].WithSourceName(opts.SourceName)
		}
	}

	return &Result{
		Report:      FromInfos(infos),
		Infos:       infos,
		Diagnostics: res.Diagnostics,
	}, nil
}

// FromInfos builds a report with one entry per record. Sinks and
// sources are sorted by name.
func FromInfos(infos []lineage.Info) *Report {
	r := &Report{Statements: make([]Entry, 0, len(infos))}
	for _, info := range infos {
		e := Entry{
			Lineage: make([]Sink, 0, len(info.Lineage)),
			Sources: refs(info.Sources),
			Context: info.Context,
		}
		for _, name := range info.Sinks() {
			e.Lineage = append(e.Lineage, Sink{
				Target:  Reference{Name: name},
				Sources: refs(info.Lineage[name]),
			})
		}
		r.Statements = append(r.Statements, e)
	}
	return r
}

func refs(s lineage.Set) []Reference {
	names := s.Sorted()
	out := make([]Reference, len(names))
	for i, n := range names {
		out[i] = Reference{Name: n}
	}
	return out
}

// ValidatePatterns reports the first malformed exclude pattern.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
	}
	return nil
}

// Exclude returns info without the tables matching any pattern, as
// sinks or as sources. Patterns must be valid.
func Exclude(info lineage.Info, patterns []string) lineage.Info {
	if len(patterns) == 0 {
		return info
	}
	keep := func(s lineage.Set) lineage.Set {
		out := lineage.Set{}
		for n := range s {
			if !excluded(n, patterns) {
				out.Add(n)
			}
		}
		return out
	}
	out := lineage.Info{
		Lineage: map[string]lineage.Set{},
		Sources: keep(info.Sources),
		Context: info.Context,
	}
	for sink, sources := range info.Lineage {
		if !excluded(sink, patterns) {
			out.Lineage[sink] = keep(sources)
		}
	}
	return out
}

func excluded(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}
