package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/redshift-lineage/internal/server"
	"github.com/leapstack-labs/redshift-lineage/pkg/lineage/report"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Watch []string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve lineage extraction over HTTP",
		Long: `Start an HTTP service that extracts lineage from posted SQL.

Endpoints:
  POST   /v1/lineage                    extract lineage ({"sql", "splitStatements", "sourceName"})
  GET    /v1/runs                       list stored runs
  GET    /v1/runs/{id}                  report of a stored run
  DELETE /v1/runs/{id}                  delete a stored run
  GET    /v1/tables/{name}/upstream     tables a table is built from
  GET    /v1/tables/{name}/downstream   tables built from a table
  GET    /v1/events                     server-sent events for stored runs
  GET    /healthz                       liveness

The run, table and event endpoints need a lineage store (--store).
Reports default to JSON; pass ?format=yaml|openlineage|table|text for others.`,
		Example: `  # Serve on the default address
  redshift-lineage serve

  # Store runs and keep a directory of scripts up to date
  redshift-lineage serve --addr :9090 --store lineage.db --watch sql/`,
		Args: UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default :8080)")
	cmd.Flags().String("store", "", "SQLite lineage store")
	cmd.Flags().StringSliceVar(&opts.Watch, "watch", nil, "Store runs for SQL files under these paths as they change")
	cmd.Flags().StringSlice("exclude", nil, "Drop tables matching these glob patterns")
	cmd.Flags().Bool("normalize-identifiers", false, "Lower-case unquoted identifiers")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	var srvCfg server.Config
	if len(opts.Watch) > 0 {
		st, err := cc.RequireStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		srvCfg.Store = st
	} else {
		st, err := cc.OpenStore(ctx)
		if err != nil {
			return failure(err)
		}
		if st != nil {
			defer func() { _ = st.Close() }()
			srvCfg.Store = st
		}
	}

	srvCfg.Addr = cc.Cfg.Server.Addr
	srvCfg.Defaults = report.Options{
		NormalizeIdentifiers: cc.Cfg.NormalizeIdentifiers,
		Exclude:              cc.Cfg.Exclude,
	}
	srvCfg.OpenLineage = cc.Cfg.OpenLineageOptions()
	srvCfg.WatchPaths = opts.Watch
	srvCfg.Logger = cc.Logger

	cc.Renderer.Printf("Serving lineage on %s\n", srvCfg.Addr)
	if err := server.New(srvCfg).Serve(ctx); err != nil {
		return failure(err)
	}
	return nil
}
