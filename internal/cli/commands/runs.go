package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/redshift-lineage/pkg/lineage/report"
)

// NewRunsCommand creates the runs command and its subcommands.
func NewRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List and manage runs in the lineage store",
		Example: `  # List stored runs
  redshift-lineage runs --store lineage.db

  # Show the report of a run as YAML
  redshift-lineage runs show 3f1c... --store lineage.db -f yaml

  # Delete a run
  redshift-lineage runs delete 3f1c... --store lineage.db`,
		Args: UsageArgs(cobra.NoArgs),
		RunE: runListRuns,
	}
	cmd.PersistentFlags().String("store", "", "SQLite lineage store")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the report of a stored run",
		Args:  UsageArgs(cobra.ExactArgs(1)),
		RunE:  runShowRun,
	}
	addOutputFlags(show)

	del := &cobra.Command{
		Use:     "delete <run-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a stored run",
		Args:    UsageArgs(cobra.ExactArgs(1)),
		RunE:    runDeleteRun,
	}

	cmd.AddCommand(show, del)
	return cmd
}

func runListRuns(cmd *cobra.Command, _ []string) error {
	cc := NewCommandContext(cmd)
	st, err := cc.RequireStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	runs, err := st.Runs(cmd.Context())
	if err != nil {
		return failure(err)
	}
	if len(runs) == 0 {
		cc.Renderer.Println("No runs stored.")
		return nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Source", "Created", "Records"})
	for _, r := range runs {
		t.AppendRow(table.Row{r.ID, r.SourceName, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Records})
	}
	cc.Renderer.Println(t.Render())
	return nil
}

func runShowRun(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)
	st, err := cc.RequireStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if _, err := st.Run(cmd.Context(), args[0]); err != nil {
		return failure(err)
	}
	infos, err := st.LoadRun(cmd.Context(), args[0])
	if err != nil {
		return failure(err)
	}
	return writeReport(cc, "", report.FromInfos(infos))
}

func runDeleteRun(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)
	st, err := cc.RequireStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.DeleteRun(cmd.Context(), args[0]); err != nil {
		return failure(err)
	}
	cc.Renderer.Printf("Deleted run %s\n", args[0])
	return nil
}
