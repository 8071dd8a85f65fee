package toolexec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.go"), []byte("package main\n\nfunc main() {}\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ground-truth.json"), []byte(`{"secret":true}`), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "x"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "x", "ignored.go"), []byte("package x"), 0644))
	return root
}

func TestReadRejectsOracleFile(t *testing.T) {
	root := setupProject(t)
	exec, err := New(root)
	require.NoError(t, err)

	res := exec.Read("ground-truth.json")
	require.False(t, res.Success)
	require.Contains(t, res.Error, "access denied")
}

func TestReadRejectsOutsideRoot(t *testing.T) {
	root := setupProject(t)
	exec, err := New(root)
	require.NoError(t, err)

	res := exec.Read("../outside.txt")
	require.False(t, res.Success)
	require.Contains(t, res.Error, "outside project root")
}

func TestReadRejectsDirectory(t *testing.T) {
	root := setupProject(t)
	exec, err := New(root)
	require.NoError(t, err)

	res := exec.Read("src")
	require.False(t, res.Success)
}

func TestGlobIgnoresNodeModules(t *testing.T) {
	root := setupProject(t)
	exec, err := New(root)
	require.NoError(t, err)

	res := exec.Glob("*.go")
	require.True(t, res.Success)
	require.NotContains(t, res.Output, "node_modules")
	require.Contains(t, res.Output, filepath.Join("src", "main.go"))
}

func TestGrepCaseInsensitive(t *testing.T) {
	root := setupProject(t)
	exec, err := New(root)
	require.NoError(t, err)

	res := exec.Grep("FUNC MAIN", "")
	require.True(t, res.Success)
	require.Contains(t, res.Output, "main.go")
}

func TestReadTruncatesLargeFiles(t *testing.T) {
	root := t.TempDir()
	big := make([]byte, readFileCap+1024)
	for i := range big {
		big[i] = 'a'
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), big, 0644))

	exec, err := New(root)
	require.NoError(t, err)
	res := exec.Read("big.txt")
	require.True(t, res.Success)
	require.Contains(t, res.Output, "truncated")
}
