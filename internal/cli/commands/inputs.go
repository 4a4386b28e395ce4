package commands

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/redshift-lineage/internal/cli/config"
	"github.com/leapstack-labs/redshift-lineage/pkg/lineage"
	"github.com/leapstack-labs/redshift-lineage/pkg/lineage/report"
)

// stdinName is the source name used when storing stdin runs.
const stdinName = "stdin"

// input is one script to extract.
type input struct {
	// Name is the path the script was read from, empty for stdin.
	Name string
	SQL  string
}

func (in input) storeName() string {
	if in.Name == "" {
		return stdinName
	}
	return in.Name
}

// expandPaths replaces every directory with the .sql files below it,
// sorted by path.
func expandPaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".sql") {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

// readInputs reads every path, or stdin when there are none.
func readInputs(stdin io.Reader, paths []string) ([]input, error) {
	if len(paths) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return []input{{SQL: string(data)}}, nil
	}
	files, err := expandPaths(paths)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	out := make([]input, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		out = append(out, input{Name: f, SQL: string(data)})
	}
	return out, nil
}

// extractOptions builds per-input extraction options from the config.
func extractOptions(cc *CommandContext, name string) report.Options {
	return report.Options{
		SplitStatements:      cc.Cfg.SplitStatements,
		SourceName:           name,
		NormalizeIdentifiers: cc.Cfg.NormalizeIdentifiers,
		Exclude:              cc.Cfg.Exclude,
		Logger:               cc.Logger.With("source", name),
	}
}

// extractInputs extracts every input with up to cfg.Concurrency workers.
// Results keep input order. The first failure cancels the rest.
func extractInputs(ctx context.Context, cc *CommandContext, inputs []input) ([]*report.Result, error) {
	results := make([]*report.Result, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cc.Cfg.Concurrency, 1))
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := report.Extract(in.SQL, extractOptions(cc, in.Name))
			if err != nil {
				if in.Name == "" {
					return err
				}
				return fmt.Errorf("%s: %w", in.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func collectInfos(results []*report.Result) []lineage.Info {
	var out []lineage.Info
	for _, r := range results {
		out = append(out, r.Infos...)
	}
	return out
}

// splitConfig returns a copy of cfg with per-statement records forced on, for
// consumers that need one record per statement.
func splitConfig(cfg *config.Config) *config.Config {
	c := *cfg
	c.SplitStatements = true
	return &c
}
