// Package cli provides the command-line interface for redshift-lineage.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/redshift-lineage/internal/cli/commands"
	"github.com/leapstack-labs/redshift-lineage/internal/cli/config"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// ExitError carries the process exit code for an error.
type ExitError = commands.ExitError

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "redshift-lineage",
		Short: "Table-level lineage for Redshift SQL",
		Long: `redshift-lineage reads Redshift SQL scripts and reports, for every
statement, which tables it writes and which tables those are built from.

Common table expressions are resolved to the base tables they read, so
the reported lineage only names real tables. Results can be written as
JSON, YAML, OpenLineage events, or a table, stored in a SQLite lineage
store, and explored as a table graph.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return commands.UsageError(err)
			}
			logger := config.NewLogger(cfg, cmd.ErrOrStderr())

			ctx := config.WithConfig(cmd.Context(), cfg)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			if file := config.GetConfigFileUsed(); file != "" {
				logger.Debug("using config file", "path", file)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return commands.UsageError(err)
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./redshift-lineage.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit, BuildDate))
	rootCmd.AddCommand(commands.NewExtractCommand())
	rootCmd.AddCommand(commands.NewGraphCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewQueryLogCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return commands.ExitOK
	}
	if errors.Is(err, pflag.ErrHelp) {
		return commands.ExitOK
	}
	_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)

	code := commands.ExitCode(err)
	var ee *ExitError
	if !errors.As(err, &ee) && isUsage(err) {
		code = commands.ExitUsage
	}
	return code
}

// isUsage reports errors cobra raises before a command runs.
func isUsage(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "invalid argument", "required flag"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}

// Execute runs the root command against the process streams and
// returns the exit code. SIGINT and SIGTERM cancel the command context.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for redshift-lineage.

To load completions:

Bash:
  $ source <(redshift-lineage completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ redshift-lineage completion bash > /etc/bash_completion.d/redshift-lineage
  # macOS:
  $ redshift-lineage completion bash > $(brew --prefix)/etc/bash_completion.d/redshift-lineage

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ redshift-lineage completion zsh > "${fpath[1]}/_redshift-lineage"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ redshift-lineage completion fish | source

  # To load completions for each session, execute once:
  $ redshift-lineage completion fish > ~/.config/fish/completions/redshift-lineage.fish

PowerShell:
  PS> redshift-lineage completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> redshift-lineage completion powershell > redshift-lineage.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  commands.UsageArgs(cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs)),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
