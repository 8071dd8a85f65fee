package preparation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/toolexec"
)

func TestValidatePackageRejectsEmptyMustReadAndRelatedExamples(t *testing.T) {
	root := t.TempDir()
	exec, err := toolexec.New(root)
	require.NoError(t, err)

	pkg := &domain.ContextPackage{}
	err = validatePackage(pkg, exec)
	require.Error(t, err)
}

func TestValidatePackagePassesWithOnlyRelatedExamples(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "example.go"), []byte("package main\n"), 0644))
	exec, err := toolexec.New(root)
	require.NoError(t, err)

	pkg := &domain.ContextPackage{
		CodeContext: domain.CodeContext{
			RelatedExamples: []domain.FileRef{{Path: "example.go"}},
		},
	}
	err = validatePackage(pkg, exec)
	require.NoError(t, err)
}

func TestValidatePackageDropsUnreadableMustReadThenRejectsIfEmpty(t *testing.T) {
	root := t.TempDir()
	exec, err := toolexec.New(root)
	require.NoError(t, err)

	pkg := &domain.ContextPackage{
		CodeContext: domain.CodeContext{
			MustRead: []domain.FileRef{{Path: "missing.go"}},
		},
	}
	err = validatePackage(pkg, exec)
	require.Error(t, err)
}
