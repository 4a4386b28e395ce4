package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteScript writes sql to dir/name, creating parent directories, and
// returns the full path.
func WriteScript(t testing.TB, dir, name, sql string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(sql), 0o600))
	return path
}

// WriteScripts writes every name/sql pair below a new temporary
// directory and returns the directory and the written paths in name order.
func WriteScripts(t testing.TB, scripts map[string]string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, WriteScript(t, dir, name, scripts[name]))
	}
	return dir, paths
}
