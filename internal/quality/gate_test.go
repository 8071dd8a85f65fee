package quality

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/statemachine"
	"github.com/RidgetopAi/the-forge-sub002/internal/toolexec"
)

func setupQualityProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "login.go"), []byte("package auth\n\nfunc Login() {}\n"), 0644))
	return root
}

func reviewingMachine(t *testing.T, er domain.ExecutionResult, pkg *domain.ContextPackage) *statemachine.Machine {
	t.Helper()
	task := &domain.Task{
		ID:             "t1",
		State:          domain.StatePrepared,
		ContextPackage: pkg,
	}
	mach := statemachine.New(task, nil)
	require.NoError(t, mach.Transition(domain.StateExecuting, "test", "start"))
	require.NoError(t, mach.SetExecutionResult(er))
	require.NoError(t, mach.Transition(domain.StateReviewing, "test", "done"))
	return mach
}

func TestEvaluateApprovesCleanChange(t *testing.T) {
	root := setupQualityProject(t)
	exec, err := toolexec.New(root)
	require.NoError(t, err)

	er := domain.ExecutionResult{CompilationPassed: true, FilesCreated: []string{"login.go"}}
	mach := reviewingMachine(t, er, &domain.ContextPackage{})

	gate := New(exec)
	result, err := gate.Evaluate(context.Background(), mach)
	require.NoError(t, err)
	require.Equal(t, domain.RecommendApprove, result.Recommendation)
	require.Equal(t, domain.StateCompleted, mach.State())
}

func TestEvaluateRejectsFailedCompilation(t *testing.T) {
	root := setupQualityProject(t)
	exec, err := toolexec.New(root)
	require.NoError(t, err)

	er := domain.ExecutionResult{CompilationPassed: false, FilesCreated: []string{"login.go"}}
	mach := reviewingMachine(t, er, &domain.ContextPackage{})

	gate := New(exec)
	result, err := gate.Evaluate(context.Background(), mach)
	require.NoError(t, err)
	require.Equal(t, domain.RecommendReject, result.Recommendation)
	require.Equal(t, domain.StateBlocked, mach.State())
}

func TestEvaluateHumanReviewOnAdvisoryFailureOnly(t *testing.T) {
	root := setupQualityProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "scratch.go"), []byte("package auth\n\n// TODO: clean this up\nfunc Scratch() {}\n"), 0644))
	exec, err := toolexec.New(root)
	require.NoError(t, err)

	er := domain.ExecutionResult{CompilationPassed: true, FilesCreated: []string{"scratch.go"}}
	mach := reviewingMachine(t, er, &domain.ContextPackage{})

	gate := New(exec)
	result, err := gate.Evaluate(context.Background(), mach)
	require.NoError(t, err)
	require.Equal(t, domain.RecommendHumanReview, result.Recommendation)
	require.Equal(t, domain.StateCompleted, mach.State())
}

func TestEvaluateMissingExecutionResultErrors(t *testing.T) {
	root := setupQualityProject(t)
	exec, err := toolexec.New(root)
	require.NoError(t, err)

	task := &domain.Task{ID: "t2", State: domain.StateReviewing}
	mach := statemachine.New(task, nil)

	gate := New(exec)
	_, err = gate.Evaluate(context.Background(), mach)
	require.Error(t, err)
}
