package validation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RidgetopAi/the-forge-sub002/internal/config"
	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/toolexec"
)

var errBoom = errors.New("boom")

type stubValidationClient struct {
	resp llm.CallResponse
	err  error
}

func (s stubValidationClient) Call(ctx context.Context, req llm.CallRequest) (llm.CallResponse, error) {
	return s.resp, s.err
}

func newTestBuilder(t *testing.T, client llm.ProviderClient) (*Builder, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "login.go"), []byte("package auth\n\nfunc Login() {}\n"), 0644))

	exec, err := toolexec.New(root)
	require.NoError(t, err)

	clients := map[llm.Tier]llm.ProviderClient{
		llm.TierOpus:       client,
		llm.TierSonnet:     client,
		llm.TierHaikuClass: client,
	}
	router, err := llm.NewRouter(*config.Default(), clients)
	require.NoError(t, err)

	return New(router, exec), root
}

func TestValidateUsesProposedChecks(t *testing.T) {
	client := stubValidationClient{resp: llm.CallResponse{
		ToolCalls: []llm.ToolCall{{
			Name: submitValidationToolsTool.Name,
			Input: map[string]any{
				"tools": []any{
					map[string]any{"name": "login exported", "kind": "file_contains", "path": "login.go", "expectedSubstring": "func Login"},
				},
			},
		}},
	}}
	builder, _ := newTestBuilder(t, client)

	summary := builder.Validate(context.Background(), domain.ContextPackage{}, []string{"login.go"})
	require.Equal(t, 1, summary.TotalTools)
	require.True(t, summary.OverallPassed)
	require.Equal(t, 1, summary.Passed)
}

func TestValidateFailingCheckDegradesOverallPassed(t *testing.T) {
	client := stubValidationClient{resp: llm.CallResponse{
		ToolCalls: []llm.ToolCall{{
			Name: submitValidationToolsTool.Name,
			Input: map[string]any{
				"tools": []any{
					map[string]any{"name": "has logout", "kind": "file_contains", "path": "login.go", "expectedSubstring": "func Logout"},
				},
			},
		}},
	}}
	builder, _ := newTestBuilder(t, client)

	summary := builder.Validate(context.Background(), domain.ContextPackage{}, []string{"login.go"})
	require.False(t, summary.OverallPassed)
	require.Equal(t, 0, summary.Passed)
}

func TestValidateFallsBackToFileExistsOnLLMFailure(t *testing.T) {
	failingClient := stubValidationClient{resp: llm.CallResponse{}, err: errBoom}
	builder, _ := newTestBuilder(t, failingClient)

	summary := builder.Validate(context.Background(), domain.ContextPackage{}, []string{"login.go"})
	require.Equal(t, 1, summary.TotalTools)
	require.True(t, summary.OverallPassed)
}

func TestValidateNeverReturnsErrorOnUnknownPath(t *testing.T) {
	builder, _ := newTestBuilder(t, stubValidationClient{err: errBoom})
	summary := builder.Validate(context.Background(), domain.ContextPackage{}, []string{"missing.go"})
	require.False(t, summary.OverallPassed)
	require.Equal(t, 1, summary.TotalTools)
}
