package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/redshift-lineage/internal/cli/config"
	"github.com/leapstack-labs/redshift-lineage/internal/output"
	"github.com/leapstack-labs/redshift-lineage/internal/testutil"
)

func testContext(t *testing.T, cfg *config.Config) *CommandContext {
	t.Helper()
	var out, errOut bytes.Buffer
	return &CommandContext{
		Cfg:      cfg,
		Logger:   testutil.NewTestLogger(t),
		Renderer: output.NewRendererWithTTY(&out, &errOut, false),
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitFailure},
		{"usage", UsageError(errors.New("bad flag")), ExitUsage},
		{"wrapped usage", fmt.Errorf("ctx: %w", UsageError(errors.New("bad"))), ExitUsage},
		{"failure", failure(errors.New("x")), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExpandPaths(t *testing.T) {
	dir, _ := testutil.WriteScripts(t, map[string]string{
		"b/two.sql":   "select 2",
		"a/one.SQL":   "select 1",
		"a/notes.txt": "not sql",
	})
	single := testutil.WriteScript(t, t.TempDir(), "single.sql", "select 3")

	got, err := expandPaths([]string{single, dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		single,
		filepath.Join(dir, "a", "one.SQL"),
		filepath.Join(dir, "b", "two.sql"),
	}, got)

	_, err = expandPaths([]string{filepath.Join(dir, "missing.sql")})
	assert.Error(t, err)
}

func TestReadInputsStdin(t *testing.T) {
	inputs, err := readInputs(strings.NewReader("select 1"), nil)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "select 1", inputs[0].SQL)
	assert.Equal(t, stdinName, inputs[0].storeName())
}

func TestExtractInputsKeepsOrder(t *testing.T) {
	_, paths := testutil.WriteScripts(t, map[string]string{
		"1.sql": "create table a as select * from src_a;",
		"2.sql": "create table b as select * from src_b;",
		"3.sql": "create table c as select * from src_c;",
	})
	inputs, err := readInputs(nil, paths)
	require.NoError(t, err)

	cfg := config.FromContext(context.Background())
	cfg.Concurrency = 2
	results, err := extractInputs(context.Background(), testContext(t, cfg), inputs)
	require.NoError(t, err)

	infos := collectInfos(results)
	require.Len(t, infos, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, []string{want}, infos[i].Sinks())
		require.NotNil(t, infos[i].Context.SourceName)
		assert.Equal(t, paths[i], *infos[i].Context.SourceName)
	}
}

func TestExtractInputsNamesFailingFile(t *testing.T) {
	_, paths := testutil.WriteScripts(t, map[string]string{
		"good.sql": "select 1",
		"bad.sql":  "select 'open",
	})
	inputs, err := readInputs(nil, paths)
	require.NoError(t, err)

	_, err = extractInputs(context.Background(), testContext(t, config.FromContext(context.Background())), inputs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.sql")
}

func TestSplitConfig(t *testing.T) {
	cfg := config.FromContext(context.Background())
	split := splitConfig(cfg)
	assert.True(t, split.SplitStatements)
	assert.False(t, cfg.SplitStatements)
}

func TestRequireStoreWithoutPath(t *testing.T) {
	cc := testContext(t, config.FromContext(context.Background()))
	_, err := cc.RequireStore(context.Background())
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCode(err))
}
