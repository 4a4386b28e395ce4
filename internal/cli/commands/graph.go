package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/redshift-lineage/internal/graph"
	"github.com/leapstack-labs/redshift-lineage/pkg/lineage"
)

// GraphOptions holds options for the graph command.
type GraphOptions struct {
	Inputs     []string
	Upstream   bool
	Downstream bool
	Depth      int
	JSON       bool
}

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	opts := &GraphOptions{}

	cmd := &cobra.Command{
		Use:   "graph [table]",
		Short: "Show the table dependency graph",
		Long: `Build a table graph from SQL scripts or from the lineage store and show it.

Without a table, every table is listed by level: level 0 holds tables
built from nothing else in the graph, and each further level is built
from the levels before it. With a table, the tables it is built from
(upstream) and the tables built from it (downstream) are listed.

Scripts are given with --input. Without --input the newest run of every
source in the store is used.`,
		Example: `  # Levels of every table written by the scripts in sql/
  redshift-lineage graph --input sql/

  # What feeds a table, two hops deep
  redshift-lineage graph analytics.daily_sales --input sql/ --downstream=false --depth 2

  # Use the lineage store, output JSON
  redshift-lineage graph analytics.daily_sales --store lineage.db --json`,
		Args: UsageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := ""
			if len(args) == 1 {
				table = args[0]
			}
			return runGraph(cmd, table, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Inputs, "input", nil, "SQL files or directories to build the graph from")
	cmd.Flags().BoolVar(&opts.Upstream, "upstream", true, "Include upstream tables")
	cmd.Flags().BoolVar(&opts.Downstream, "downstream", true, "Include downstream tables")
	cmd.Flags().IntVar(&opts.Depth, "depth", 0, "Max traversal depth (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")
	cmd.Flags().String("store", "", "SQLite lineage store to read runs from")
	cmd.Flags().StringSlice("exclude", nil, "Drop tables matching these glob patterns")
	cmd.Flags().Bool("normalize-identifiers", false, "Lower-case unquoted identifiers")

	return cmd
}

func runGraph(cmd *cobra.Command, tableName string, opts *GraphOptions) error {
	cc := NewCommandContext(cmd)
	if opts.Depth < 0 {
		return UsageError(fmt.Errorf("invalid depth %d", opts.Depth))
	}

	infos, err := graphInfos(cmd, cc, opts.Inputs)
	if err != nil {
		return err
	}
	g := graph.FromInfos(infos)

	if tableName == "" {
		return showGraph(cc, g, opts.JSON)
	}
	if _, ok := g.Node(tableName); !ok {
		return failure(fmt.Errorf("table not found: %s", tableName))
	}
	return showReach(cc, g, tableName, opts)
}

func graphInfos(cmd *cobra.Command, cc *CommandContext, inputs []string) ([]lineage.Info, error) {
	ctx := cmd.Context()
	if len(inputs) > 0 {
		read, err := readInputs(cmd.InOrStdin(), inputs)
		if err != nil {
			return nil, failure(err)
		}
		split := &CommandContext{Cfg: splitConfig(cc.Cfg), Logger: cc.Logger, Renderer: cc.Renderer}
		results, err := extractInputs(ctx, split, read)
		if err != nil {
			return nil, failure(err)
		}
		return collectInfos(results), nil
	}

	st, err := cc.RequireStore(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()
	infos, err := st.LatestInfos(ctx)
	if err != nil {
		return nil, failure(err)
	}
	return infos, nil
}

type graphEdge struct {
	Source string `json:"source"`
	Sink   string `json:"sink"`
}

type graphJSON struct {
	Levels         [][]string  `json:"levels,omitempty"`
	Cycle          []string    `json:"cycle,omitempty"`
	Edges          []graphEdge `json:"edges"`
	SelfReferences []string    `json:"selfReferences"`
}

func showGraph(cc *CommandContext, g *graph.Graph, asJSON bool) error {
	levels, levelErr := g.Levels()
	_, cycle := g.HasCycle()

	if asJSON {
		out := graphJSON{Levels: levels, Cycle: cycle, Edges: []graphEdge{}, SelfReferences: g.SelfReferences()}
		for _, n := range g.Nodes() {
			for _, child := range g.Children(n.Name) {
				out.Edges = append(out.Edges, graphEdge{Source: n.Name, Sink: child})
			}
		}
		if out.SelfReferences == nil {
			out.SelfReferences = []string{}
		}
		enc := json.NewEncoder(cc.Renderer.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	s := cc.Renderer.Styles()
	cc.Renderer.Println(s.Header.Render(fmt.Sprintf("Tables (%d tables, %d edges)", g.NodeCount(), g.EdgeCount())))

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	if levelErr != nil {
		cc.Renderer.Warnf("cycle detected: %s\n", strings.Join(cycle, " -> "))
		t.AppendHeader(table.Row{"Table", "Built from"})
		for _, n := range g.Nodes() {
			t.AppendRow(table.Row{n.Name, strings.Join(g.Parents(n.Name), ", ")})
		}
	} else {
		t.AppendHeader(table.Row{"Level", "Table", "Built from"})
		for i, level := range levels {
			for _, name := range level {
				t.AppendRow(table.Row{i, name, strings.Join(g.Parents(name), ", ")})
			}
		}
	}
	cc.Renderer.Println(t.Render())

	if refs := g.SelfReferences(); len(refs) > 0 {
		cc.Renderer.Println(s.Muted.Render("self-referencing: " + strings.Join(refs, ", ")))
	}
	return nil
}

type reachJSON struct {
	Table      string   `json:"table"`
	Depth      int      `json:"depth"`
	Upstream   []string `json:"upstream,omitempty"`
	Downstream []string `json:"downstream,omitempty"`
}

func showReach(cc *CommandContext, g *graph.Graph, name string, opts *GraphOptions) error {
	var up, down []string
	if opts.Upstream {
		up = orEmpty(g.Upstream(name, opts.Depth))
	}
	if opts.Downstream {
		down = orEmpty(g.Downstream(name, opts.Depth))
	}

	if opts.JSON {
		enc := json.NewEncoder(cc.Renderer.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(reachJSON{Table: name, Depth: opts.Depth, Upstream: up, Downstream: down})
	}

	s := cc.Renderer.Styles()
	cc.Renderer.Printf("Lineage for: %s\n\n", s.Target.Render(name))

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Direction", "Table"})
	for _, n := range up {
		t.AppendRow(table.Row{"upstream", n})
	}
	for _, n := range down {
		t.AppendRow(table.Row{"downstream", n})
	}
	cc.Renderer.Println(t.Render())
	cc.Renderer.Printf("%d upstream, %d downstream\n", len(up), len(down))
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
