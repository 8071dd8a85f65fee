package preparation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RidgetopAi/the-forge-sub002/internal/config"
	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/pattern"
	"github.com/RidgetopAi/the-forge-sub002/internal/persistence"
	"github.com/RidgetopAi/the-forge-sub002/internal/statemachine"
	"github.com/RidgetopAi/the-forge-sub002/internal/toolexec"
)

// stubClient always submits a fixed, worker-agnostic result so the three
// explore workers the Foreman drives (FileDiscovery, DependencyMapper,
// PatternExtraction) each terminate in one turn.
type stubClient struct{}

func (stubClient) Call(ctx context.Context, req llm.CallRequest) (llm.CallResponse, error) {
	return llm.CallResponse{
		ToolCalls: []llm.ToolCall{{
			Name: toolexec.SubmitResultToolName,
			Input: map[string]any{
				"relevantFiles":        []any{},
				"suggestedNewFiles":    []any{},
				"entryPoints":          []any{},
				"externalDependencies": []any{},
				"dependencies":         []any{},
				"circularDependencies": []any{},
				"patterns":             []any{},
				"antiPatterns":         []any{},
				"conventions": map[string]any{
					"naming": "camelCase",
				},
				"confidence": float64(70),
			},
		}},
	}, nil
}

func setupProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "internal", "auth"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "internal", "auth", "login.go"), []byte("package auth\n\nfunc Login() {}\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# demo\n"), 0644))
	return root
}

func newTestForeman(t *testing.T) (*Foreman, *persistence.Store) {
	t.Helper()
	root := setupProject(t)
	exec, err := toolexec.New(root)
	require.NoError(t, err)

	clients := map[llm.Tier]llm.ProviderClient{
		llm.TierOpus:       stubClient{},
		llm.TierSonnet:     stubClient{},
		llm.TierHaikuClass: stubClient{},
	}
	router, err := llm.NewRouter(*config.Default(), clients)
	require.NoError(t, err)

	store, err := persistence.Open("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tracker := pattern.New(store)
	return New(router, exec, tracker, store), store
}

func classifiedMachine(task *domain.Task) *statemachine.Machine {
	mach := statemachine.New(task, nil)
	_ = mach.SetClassification(domain.Classification{
		ProjectType: domain.ProjectFeature,
		Scope:       domain.ScopeMedium,
		Department:  domain.DepartmentPreparation,
		Confidence:  0.8,
	})
	task.State = domain.StateClassified
	return mach
}

func TestPrepareProducesValidContextPackage(t *testing.T) {
	f, _ := newTestForeman(t)
	task := &domain.Task{ID: "t1", RawRequest: "fix the login bug in auth/login.go", State: domain.StateClassified}
	mach := classifiedMachine(task)

	pkg, err := f.Prepare(context.Background(), mach)
	require.NoError(t, err)
	require.NotNil(t, pkg)
	require.Equal(t, domain.StatePrepared, mach.State())
	require.NotEmpty(t, pkg.Task.AcceptanceCriteria)
}

func TestPrepareDocumentationRequestOmitsCompileCriterion(t *testing.T) {
	f, _ := newTestForeman(t)
	task := &domain.Task{ID: "t2", RawRequest: "update the readme documentation", State: domain.StateClassified}
	mach := classifiedMachine(task)

	pkg, err := f.Prepare(context.Background(), mach)
	require.NoError(t, err)
	for _, c := range pkg.Task.AcceptanceCriteria {
		require.NotContains(t, c, "compiles")
	}
}

func TestPrepareDedupesMustReadAndRelatedExamples(t *testing.T) {
	f, _ := newTestForeman(t)
	task := &domain.Task{ID: "t3", RawRequest: "refactor auth/login.go to clean up login", State: domain.StateClassified}
	mach := classifiedMachine(task)

	pkg, err := f.Prepare(context.Background(), mach)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, r := range pkg.CodeContext.MustRead {
		require.False(t, seen[r.Path], "duplicate mustRead path %s", r.Path)
		seen[r.Path] = true
	}
	for _, r := range pkg.CodeContext.RelatedExamples {
		require.False(t, seen[r.Path], "relatedExamples duplicates mustRead path %s", r.Path)
	}
}

func TestExtractKeywordsFiltersStopwordsAndShortTokens(t *testing.T) {
	kws := extractKeywords("Please add support for dark mode to the UI")
	require.Contains(t, kws, "support")
	require.Contains(t, kws, "dark")
	require.Contains(t, kws, "mode")
	require.NotContains(t, kws, "the")
	require.NotContains(t, kws, "for")
}

func TestDetectContentTypeDocumentation(t *testing.T) {
	ct := detectContentType(nil, []string{"update", "readme", "documentation"})
	require.Equal(t, contentDocumentation, ct)
}
