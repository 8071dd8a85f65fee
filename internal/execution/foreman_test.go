package execution

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RidgetopAi/the-forge-sub002/internal/config"
	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/feedback"
	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/pattern"
	"github.com/RidgetopAi/the-forge-sub002/internal/persistence"
	"github.com/RidgetopAi/the-forge-sub002/internal/statemachine"
	"github.com/RidgetopAi/the-forge-sub002/internal/toolexec"
)

// emptyClient always answers with neither a tool call nor usable text, so
// code generation exhausts its one retry and reports EMPTY_FILES_AFTER_RETRY
// without ever reaching the compile step.
type emptyClient struct{}

func (emptyClient) Call(ctx context.Context, req llm.CallRequest) (llm.CallResponse, error) {
	return llm.CallResponse{Text: "I have nothing to submit."}, nil
}

func setupExecProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "internal", "auth"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "internal", "auth", "login.go"), []byte("package auth\n\nfunc Login() {}\n"), 0644))
	return root
}

func newTestForeman(t *testing.T, client llm.ProviderClient) (*Foreman, *statemachine.Machine) {
	t.Helper()
	root := setupExecProject(t)
	exec, err := toolexec.New(root)
	require.NoError(t, err)

	clients := map[llm.Tier]llm.ProviderClient{
		llm.TierOpus:       client,
		llm.TierSonnet:     client,
		llm.TierHaikuClass: client,
	}
	router, err := llm.NewRouter(*config.Default(), clients)
	require.NoError(t, err)

	store, err := persistence.Open("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tracker := pattern.New(store)
	fbRouter := feedback.New(router, tracker)
	foreman := New(router, exec, fbRouter, tracker, store, nil)

	task := &domain.Task{
		ID:         "t1",
		RawRequest: "fix the login bug",
		State:      domain.StatePrepared,
		Classification: &domain.Classification{
			ProjectType: domain.ProjectBugfix,
			Scope:       domain.ScopeSmall,
			Department:  domain.DepartmentPreparation,
			Confidence:  0.9,
		},
	}
	mach := statemachine.New(task, nil)
	require.NoError(t, mach.SetContextPackage(domain.ContextPackage{
		ID:          "pkg1",
		ProjectType: domain.ProjectBugfix,
		Task: domain.TaskDescription{
			Description: "fix the login bug",
		},
		CodeContext: domain.CodeContext{
			MustRead: []domain.FileRef{{Path: "internal/auth/login.go", Reason: "entry point", Priority: domain.PriorityHigh}},
		},
	}))
	return foreman, mach
}

func TestExecuteFailsWhenContextPackageMissing(t *testing.T) {
	foreman, _ := newTestForeman(t, emptyClient{})
	task := &domain.Task{ID: "t2", State: domain.StatePrepared}
	mach := statemachine.New(task, nil)

	_, err := foreman.Execute(context.Background(), mach)
	require.Error(t, err)
}

func TestExecuteBlocksOnEmptyFilesAfterRetry(t *testing.T) {
	foreman, mach := newTestForeman(t, emptyClient{})

	result, err := foreman.Execute(context.Background(), mach)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.NotNil(t, result.StructuredFailure)
	require.Equal(t, domain.PhaseCodeGeneration, result.StructuredFailure.Phase)
	require.Equal(t, "EMPTY_FILES_AFTER_RETRY", result.StructuredFailure.Code)
	require.Equal(t, domain.StateBlocked, mach.State())
}
