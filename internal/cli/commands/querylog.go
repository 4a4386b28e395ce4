package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/redshift-lineage/internal/querylog"
	"github.com/leapstack-labs/redshift-lineage/pkg/lineage/report"
)

// QueryLogOptions holds options for the querylog command.
type QueryLogOptions struct {
	Since   time.Duration
	Limit   int
	OutFile string
}

// NewQueryLogCommand creates the querylog command.
func NewQueryLogCommand() *cobra.Command {
	opts := &QueryLogOptions{}

	cmd := &cobra.Command{
		Use:   "querylog",
		Short: "Extract lineage from statements executed on a Redshift cluster",
		Long: `Read successful statements from the cluster's SYS_QUERY_HISTORY and
SYS_QUERY_TEXT views and extract the lineage of each one.

Every record is tagged with the source name query:<id>. Statements that
fail to parse are reported as warnings and skipped. The password is read
from the redshift.password config key or REDLIN_REDSHIFT__PASSWORD.`,
		Example: `  # Lineage of the last day of statements
  redshift-lineage querylog --host etl.abc123.eu-west-1.redshift.amazonaws.com --database dev --user awsuser

  # Last hour, at most 500 statements, stored for later graphing
  redshift-lineage querylog --since 1h --limit 500 --store lineage.db`,
		Args: UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQueryLog(cmd, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.Since, "since", 24*time.Hour, "Read statements started within this window (0 = all)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Keep only the newest N statements (0 = unlimited)")
	cmd.Flags().StringVar(&opts.OutFile, "out-file", "", "Output file (default: stdout)")
	cmd.Flags().String("host", "", "Cluster endpoint")
	cmd.Flags().Int("port", 0, "Cluster port (default 5439)")
	cmd.Flags().String("database", "", "Database name")
	cmd.Flags().String("user", "", "Database user")
	cmd.Flags().String("sslmode", "", "SSL mode (default require)")
	cmd.Flags().String("store", "", "SQLite lineage store to record the run in")
	addExtractFlags(cmd)
	addOutputFlags(cmd)

	return cmd
}

func runQueryLog(cmd *cobra.Command, opts *QueryLogOptions) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	if opts.Since < 0 || opts.Limit < 0 {
		return UsageError(errors.New("--since and --limit must not be negative"))
	}
	qlCfg := cc.Cfg.QueryLogConfig()
	if qlCfg.Host == "" || qlCfg.Database == "" {
		return UsageError(errors.New("redshift host and database are required (--host, --database)"))
	}

	client, err := querylog.Connect(ctx, qlCfg, cc.Logger)
	if err != nil {
		return failure(err)
	}
	defer func() { _ = client.Close() }()

	filter := querylog.Filter{Limit: opts.Limit}
	if opts.Since > 0 {
		filter.Since = time.Now().Add(-opts.Since)
	}
	queries, err := client.Queries(ctx, filter)
	if err != nil {
		return failure(err)
	}

	base := extractOptions(cc, "")
	base.Logger = cc.Logger
	infos, failures, err := querylog.Extract(ctx, queries, base, cc.Cfg.Concurrency)
	if err != nil {
		return failure(err)
	}
	for _, f := range failures {
		cc.Renderer.Warnf("skipped %v\n", f)
	}
	cc.Logger.Info("extracted query log", "queries", len(queries), "failed", len(failures))

	st, err := cc.OpenStore(ctx)
	if err != nil {
		return failure(err)
	}
	if st != nil {
		defer func() { _ = st.Close() }()
		run, err := st.SaveRun(ctx, fmt.Sprintf("redshift://%s/%s", qlCfg.Host, qlCfg.Database), infos)
		if err != nil {
			return failure(fmt.Errorf("failed to store lineage: %w", err))
		}
		cc.Logger.Info("stored lineage run", "run", run.ID, "records", run.Records)
	}

	if err := writeReport(cc, opts.OutFile, report.FromInfos(infos)); err != nil {
		return err
	}
	if len(queries) > 0 && len(failures) == len(queries) {
		return failure(errors.New("no statement could be analysed"))
	}
	return nil
}
