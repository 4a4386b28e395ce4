package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/redshift-lineage/internal/output"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("out-format", "", "")
	fs.Bool("split-statements", false, "")
	fs.StringSlice("exclude", nil, "")
	fs.String("store", "", "")
	fs.String("addr", "", "")
	fs.Bool("verbose", false, "")
	return fs
}

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.OutFormat)
	assert.Equal(t, output.FormatJSON, cfg.Format())
	assert.False(t, cfg.SplitStatements)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, output.DefaultNamespace, cfg.OpenLineage.Namespace)
	assert.Equal(t, 5439, cfg.Redshift.Port)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Store.Path)
	assert.Empty(t, cfg.Exclude)
	assert.Empty(t, GetConfigFileUsed())
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "redshift-lineage.yaml"), []byte(`
out_format: yaml
split_statements: true
exclude: [tmp_*]
openlineage:
  namespace: redshift://prod.eu-west-1:5439
redshift:
  host: prod.example.com
  user: etl
  password: ${REDLIN_TEST_PASSWORD}
store:
  path: from-file.db
`), 0o600))

	t.Setenv("REDLIN_OUT_FORMAT", "table")
	t.Setenv("REDLIN_STORE__PATH", "from-env.db")
	t.Setenv("REDLIN_TEST_PASSWORD", "s3cret")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--out-format", "openlineage"}))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)

	assert.Equal(t, "redshift-lineage.yaml", GetConfigFileUsed())
	assert.Equal(t, "openlineage", cfg.OutFormat, "flag beats env and file")
	assert.Equal(t, "from-env.db", cfg.Store.Path, "env beats file")
	assert.True(t, cfg.SplitStatements, "file beats defaults")
	assert.Equal(t, []string{"tmp_*"}, cfg.Exclude)
	assert.Equal(t, "redshift://prod.eu-west-1:5439", cfg.OpenLineage.Namespace)
	assert.Equal(t, "redshift-lineage", cfg.OpenLineage.JobNamespace)

	ql := cfg.QueryLogConfig()
	assert.Equal(t, "prod.example.com", ql.Host)
	assert.Equal(t, "etl", ql.Username)
	assert.Equal(t, "s3cret", ql.Password)
	assert.Equal(t, 5439, ql.Port)
}

func TestLoadConfigFlagKeys(t *testing.T) {
	chdir(t, t.TempDir())

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--store", "flag.db", "--addr", ":9999", "--exclude", "a_*,b_*"}))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)
	assert.Equal(t, "flag.db", cfg.Store.Path)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, []string{"a_*", "b_*"}, cfg.Exclude)
}

func TestLoadConfigCommaSeparatedEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("REDLIN_EXCLUDE", "tmp_*, stg_*")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"tmp_*", "stg_*"}, cfg.Exclude)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, dir string) string
		errMsg string
	}{
		{
			name: "missing explicit file",
			setup: func(_ *testing.T, dir string) string {
				return filepath.Join(dir, "nope.yaml")
			},
			errMsg: "error reading config file",
		},
		{
			name: "unknown format",
			setup: func(t *testing.T, _ string) string {
				t.Setenv("REDLIN_OUT_FORMAT", "xml")
				return ""
			},
			errMsg: "unsupported output format",
		},
		{
			name: "bad log format",
			setup: func(t *testing.T, _ string) string {
				t.Setenv("REDLIN_LOG_FORMAT", "logfmt")
				return ""
			},
			errMsg: "unsupported log format",
		},
		{
			name: "bad exclude pattern",
			setup: func(t *testing.T, _ string) string {
				t.Setenv("REDLIN_EXCLUDE", "[")
				return ""
			},
			errMsg: "invalid exclude pattern",
		},
		{
			name: "bad concurrency",
			setup: func(t *testing.T, _ string) string {
				t.Setenv("REDLIN_CONCURRENCY", "0")
				return ""
			},
			errMsg: "concurrency must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			chdir(t, dir)
			cfgFile := tt.setup(t, dir)

			_, err := LoadConfig(cfgFile, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	quiet := NewLogger(&Config{LogFormat: "text"}, &buf)
	quiet.Info("hidden")
	quiet.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	verbose := NewLogger(&Config{LogFormat: "json", Verbose: true}, &buf)
	verbose.Debug("details", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"details"`)
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	var buf bytes.Buffer
	l := NewLogger(&Config{LogFormat: "text"}, &buf)
	ctx := WithLogger(context.Background(), l)
	assert.Same(t, l, GetLogger(ctx))
}

func TestFromContext(t *testing.T) {
	def := FromContext(context.Background())
	assert.Equal(t, "json", def.OutFormat)
	assert.NoError(t, def.Validate())

	cfg := &Config{OutFormat: "yaml"}
	assert.Same(t, cfg, FromContext(WithConfig(context.Background(), cfg)))
}
