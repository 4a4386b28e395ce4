package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/redshift-lineage/internal/cli"
	"github.com/leapstack-labs/redshift-lineage/internal/state"
	"github.com/leapstack-labs/redshift-lineage/internal/testutil"
)

const script = `
create table t1 as select * from src;
insert into t2 select * from t1;
`

type jsonReport struct {
	Lineage []struct {
		Outputs []struct {
			Name string `json:"name"`
		} `json:"outputs"`
		Inputs []struct {
			Name string `json:"name"`
		} `json:"inputs"`
	} `json:"lineage"`
}

func run(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = cli.Run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func names(refs []struct {
	Name string `json:"name"`
}) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Name)
	}
	return out
}

func TestExtractStdin(t *testing.T) {
	code, stdout, stderr := run(t, script, "extract")
	require.Equal(t, 0, code, stderr)

	var rep jsonReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	require.Len(t, rep.Lineage, 1)
	assert.ElementsMatch(t, []string{"t1", "t2"}, names(rep.Lineage[0].Outputs))
	assert.ElementsMatch(t, []string{"src", "t1"}, names(rep.Lineage[0].Inputs))
}

func TestExtractSplitYAML(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteScript(t, dir, "etl.sql", script)

	code, stdout, stderr := run(t, "", "extract", "--split-statements", "-f", "yaml", path)
	require.Equal(t, 0, code, stderr)

	var rep struct {
		Statements []struct {
			Lineage []struct {
				Target struct {
					Name string `yaml:"name"`
				} `yaml:"target"`
			} `yaml:"lineage"`
			Context struct {
				SourceName string `yaml:"sourceName"`
			} `yaml:"context"`
		} `yaml:"statements"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &rep))
	require.Len(t, rep.Statements, 2)
	assert.Equal(t, "t1", rep.Statements[0].Lineage[0].Target.Name)
	assert.Equal(t, "t2", rep.Statements[1].Lineage[0].Target.Name)
	assert.Equal(t, path, rep.Statements[1].Context.SourceName)
}

func TestExtractOutFile(t *testing.T) {
	dir := t.TempDir()
	outFile := filepath.Join(dir, "out.json")

	code, stdout, stderr := run(t, script, "extract", "--out-file", outFile)
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var rep jsonReport
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Len(t, rep.Lineage, 1)
}

func TestExtractExcludeFromEnv(t *testing.T) {
	t.Setenv("REDLIN_EXCLUDE", "src")

	code, stdout, stderr := run(t, script, "extract")
	require.Equal(t, 0, code, stderr)
	assert.NotContains(t, stdout, `"src"`)
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		stdin    string
		args     []string
		wantCode int
		wantErr  string
	}{
		{
			name:     "parse error",
			stdin:    "select 'unterminated",
			args:     []string{"extract"},
			wantCode: 1,
			wantErr:  "Error:",
		},
		{
			name:     "unknown flag",
			args:     []string{"extract", "--no-such-flag"},
			wantCode: 2,
			wantErr:  "unknown flag",
		},
		{
			name:     "bad format",
			args:     []string{"extract", "-f", "xml"},
			wantCode: 2,
			wantErr:  "xml",
		},
		{
			name:     "missing input file",
			args:     []string{"extract", "no/such/file.sql"},
			wantCode: 1,
		},
		{
			name:     "watch without files",
			args:     []string{"extract", "--watch"},
			wantCode: 2,
			wantErr:  "--watch",
		},
		{
			name:     "runs without store",
			args:     []string{"runs"},
			wantCode: 2,
			wantErr:  "no lineage store",
		},
		{
			name:     "too many args",
			args:     []string{"graph", "a", "b"},
			wantCode: 2,
		},
		{
			name:     "unknown command",
			args:     []string{"nope"},
			wantCode: 2,
			wantErr:  "unknown command",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := run(t, tt.stdin, tt.args...)
			assert.Equal(t, tt.wantCode, code, stderr)
			if tt.wantErr != "" {
				assert.Contains(t, stderr, tt.wantErr)
			}
		})
	}
}

func TestGraphFromInputs(t *testing.T) {
	dir, _ := testutil.WriteScripts(t, map[string]string{
		"a/load.sql":  "create table stage as select * from raw;",
		"b/build.sql": "insert into mart select * from stage;",
	})

	code, stdout, stderr := run(t, "", "graph", "--json", "--input", dir)
	require.Equal(t, 0, code, stderr)

	var g struct {
		Levels [][]string `json:"levels"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &g))
	assert.Equal(t, [][]string{{"raw"}, {"stage"}, {"mart"}}, g.Levels)

	t.Run("upstream", func(t *testing.T) {
		code, stdout, stderr := run(t, "", "graph", "mart", "--downstream=false", "--json", "--input", dir)
		require.Equal(t, 0, code, stderr)
		assert.Contains(t, stdout, "raw")
		assert.Contains(t, stdout, "stage")
	})

	t.Run("unknown table", func(t *testing.T) {
		code, _, stderr := run(t, "", "graph", "nope", "--input", dir)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "table not found")
	})
}

func TestRunsLifecycle(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "lineage.db")
	sqlPath := testutil.WriteScript(t, dir, "etl.sql", script)

	code, _, stderr := run(t, "", "extract", "--store", dbPath, sqlPath)
	require.Equal(t, 0, code, stderr)

	st, err := state.Open(context.Background(), dbPath)
	require.NoError(t, err)
	runs, err := st.Runs(context.Background())
	require.NoError(t, err)
	require.NoError(t, st.Close())
	require.Len(t, runs, 1)
	id := runs[0].ID

	code, stdout, stderr := run(t, "", "runs", "--store", dbPath)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, id)
	assert.Contains(t, stdout, sqlPath)

	code, stdout, stderr = run(t, "", "runs", "show", id, "--store", dbPath, "-f", "text")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "t2")
	assert.Contains(t, stdout, "src")

	code, stdout, stderr = run(t, "", "graph", "--json", "--store", dbPath)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `"t2"`)

	code, stdout, stderr = run(t, "", "runs", "rm", id, "--store", dbPath)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Deleted run")

	code, _, stderr = run(t, "", "runs", "show", id, "--store", dbPath)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "run not found")
}

func TestVersion(t *testing.T) {
	code, stdout, _ := run(t, "", "version")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "redshift-lineage v"+cli.Version)
}

func TestCompletion(t *testing.T) {
	code, stdout, _ := run(t, "", "completion", "bash")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "redshift-lineage")

	code, _, _ = run(t, "", "completion", "tcsh")
	assert.Equal(t, 2, code)
}
