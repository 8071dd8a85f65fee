package execution

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectProjectKindTypeScript(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "tsconfig.json"), []byte("{}"), 0644))
	require.Equal(t, kindTypeScript, detectProjectKind(root))
}

func TestDetectProjectKindRust(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte("[package]"), 0644))
	require.Equal(t, kindRust, detectProjectKind(root))
}

func TestDetectProjectKindUnknown(t *testing.T) {
	root := t.TempDir()
	require.Equal(t, kindUnknown, detectProjectKind(root))
}

func TestPassFromOutputDetectsTypeScriptError(t *testing.T) {
	require.False(t, passFromOutput("src/index.ts(3,5): error TS2304: Cannot find name 'foo'."))
}

func TestPassFromOutputDetectsRustError(t *testing.T) {
	require.False(t, passFromOutput("error[E0425]: cannot find value `x` in this scope"))
}

func TestPassFromOutputDetectsGenericError(t *testing.T) {
	require.False(t, passFromOutput("build failed\nerror: could not compile package"))
}

func TestPassFromOutputCleanBuildPasses(t *testing.T) {
	require.True(t, passFromOutput("Compiling... done.\n0 problems."))
}

func TestCompileUnknownKindPassesWithoutShellingOut(t *testing.T) {
	root := t.TempDir()
	result := Compile(context.Background(), root)
	require.True(t, result.Passed)
	require.Equal(t, kindUnknown, result.Kind)
	require.Empty(t, result.Output)
}

func TestRunTestsUnknownKindPassesWithoutShellingOut(t *testing.T) {
	root := t.TempDir()
	result := RunTests(context.Background(), root)
	require.True(t, result.Passed)
	require.Equal(t, kindUnknown, result.Kind)
	require.Empty(t, result.Output)
}
