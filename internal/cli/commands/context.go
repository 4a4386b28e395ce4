package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/redshift-lineage/internal/cli/config"
	"github.com/leapstack-labs/redshift-lineage/internal/output"
	"github.com/leapstack-labs/redshift-lineage/internal/state"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// UsageError marks err as a usage or configuration problem.
func UsageError(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

func failure(err error) error {
	return &ExitError{Code: ExitFailure, Err: err}
}

// ExitCode returns the exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFailure
}

// UsageArgs wraps an argument validator so its errors exit with
// ExitUsage.
func UsageArgs(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := v(cmd, args); err != nil {
			return UsageError(err)
		}
		return nil
	}
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext builds a CommandContext from the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	return &CommandContext{
		Cfg:      config.FromContext(cmd.Context()),
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr()),
	}
}

// OpenStore opens the configured lineage store. It returns nil when no
// store is configured.
func (c *CommandContext) OpenStore(ctx context.Context) (*state.Store, error) {
	path := c.Cfg.Store.Path
	if path == "" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return state.Open(ctx, path, state.WithLogger(c.Logger))
}

// RequireStore opens the configured store or fails with a usage error.
func (c *CommandContext) RequireStore(ctx context.Context) (*state.Store, error) {
	st, err := c.OpenStore(ctx)
	if err != nil {
		return nil, failure(err)
	}
	if st == nil {
		return nil, UsageError(errors.New("no lineage store configured (use --store or store.path)"))
	}
	return st, nil
}
