package diffapply

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
)

func TestApplyCreateWritesNewFile(t *testing.T) {
	root := t.TempDir()
	a := New(root)

	created, modified, err := a.Apply([]domain.GeneratedFile{
		{Path: "pkg/new.go", Action: domain.ActionCreate, Content: "package pkg\n"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"pkg/new.go"}, created)
	require.Empty(t, modified)

	data, rerr := os.ReadFile(filepath.Join(root, "pkg/new.go"))
	require.NoError(t, rerr)
	require.Equal(t, "package pkg\n", string(data))
}

func TestApplyEditFailsWithoutWritingOnMissingNeedle(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "existing.go")
	require.NoError(t, os.WriteFile(path, []byte("package existing\n\nfunc A() {}\n"), 0644))

	a := New(root)
	_, _, err := a.Apply([]domain.GeneratedFile{
		{Path: "existing.go", Action: domain.ActionEdit, Edits: []domain.FileEdit{
			{Search: "func NotThere() {}", Replace: "func B() {}"},
		}},
	})
	require.Error(t, err)

	data, rerr := os.ReadFile(path)
	require.NoError(t, rerr)
	require.Equal(t, "package existing\n\nfunc A() {}\n", string(data))
}

func TestApplyEditSequentialReplace(t *testing.T) {
	original := "func A() {}\nfunc A() {}\n"
	edits := []domain.FileEdit{
		{Search: "func A() {}", Replace: "func First() {}"},
		{Search: "func A() {}", Replace: "func Second() {}"},
	}
	out, err := ApplyEdits(original, edits)
	require.Nil(t, err)
	require.Equal(t, "func First() {}\nfunc Second() {}\n", out)
}

func TestApplyRejectsPathOutsideRoot(t *testing.T) {
	root := t.TempDir()
	a := New(root)

	_, _, err := a.Apply([]domain.GeneratedFile{
		{Path: "../escape.go", Action: domain.ActionCreate, Content: "x"},
	})
	require.Error(t, err)
}

func TestPreviewMarksAddedAndRemovedLines(t *testing.T) {
	out := Preview("f.go", "line one\nline two\n", "line one\nline three\n")
	require.Contains(t, out, "-line two")
	require.Contains(t, out, "+line three")
	require.Contains(t, out, " line one")
}
