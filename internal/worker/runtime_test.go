package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RidgetopAi/the-forge-sub002/internal/config"
	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/toolexec"
)

type scriptedClient struct {
	responses []llm.CallResponse
	i         int
}

func (s *scriptedClient) Call(ctx context.Context, req llm.CallRequest) (llm.CallResponse, error) {
	r := s.responses[s.i]
	if s.i < len(s.responses)-1 {
		s.i++
	}
	return r, nil
}

func newTestRouter(t *testing.T, client llm.ProviderClient) *llm.Router {
	t.Helper()
	clients := map[llm.Tier]llm.ProviderClient{
		llm.TierOpus:       client,
		llm.TierSonnet:     client,
		llm.TierHaikuClass: client,
	}
	r, err := llm.NewRouter(*config.Default(), clients)
	require.NoError(t, err)
	return r
}

func fileDiscoverySchema() Schema {
	return Schema{Fields: []Field{
		{Name: "relevantFiles", Type: TypeArray, Required: true},
		{Name: "suggestedNewFiles", Type: TypeArray},
		ConfidenceField(),
	}}
}

func TestExecuteSingleTurnReturnsValidatedResult(t *testing.T) {
	client := &scriptedClient{responses: []llm.CallResponse{{
		ToolCalls: []llm.ToolCall{{Name: toolexec.SubmitResultToolName, Input: map[string]any{
			"findings": []any{}, "confidence": float64(80),
		}}},
	}}}
	router := newTestRouter(t, client)

	w := &Worker{
		Operation:  llm.OpWebResearch,
		CanExplore: false,
		Schema: Schema{Fields: []Field{
			{Name: "findings", Type: TypeArray, Required: true},
			ConfidenceField(),
		}},
		SystemPrompt: "you research",
		BuildPrompt:  func(ExecuteRequest) string { return "go" },
	}

	res := w.Execute(context.Background(), router, nil, ExecuteRequest{Task: domain.Task{ID: "t1"}})
	require.True(t, res.Success)
	require.Equal(t, float64(80), res.Confidence)
}

func TestExecuteSchemaViolationFails(t *testing.T) {
	client := &scriptedClient{responses: []llm.CallResponse{{
		ToolCalls: []llm.ToolCall{{Name: toolexec.SubmitResultToolName, Input: map[string]any{}}},
	}}}
	router := newTestRouter(t, client)

	w := &Worker{
		Operation: llm.OpWebResearch,
		Schema: Schema{Fields: []Field{
			{Name: "findings", Type: TypeArray, Required: true},
		}},
		BuildPrompt: func(ExecuteRequest) string { return "go" },
	}

	res := w.Execute(context.Background(), router, nil, ExecuteRequest{})
	require.False(t, res.Success)
	require.Contains(t, res.Error, "schema invalid")
}

func TestExecuteExplorationLoopsThenSubmits(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0644))
	exec, err := toolexec.New(root)
	require.NoError(t, err)

	client := &scriptedClient{responses: []llm.CallResponse{
		{ToolCalls: []llm.ToolCall{{Name: "glob", Input: map[string]any{"pattern": "*.go"}}}},
		{ToolCalls: []llm.ToolCall{{Name: toolexec.SubmitResultToolName, Input: map[string]any{
			"relevantFiles": []any{map[string]any{"path": "main.go"}}, "confidence": float64(60),
		}}}},
	}}
	router := newTestRouter(t, client)

	w := &Worker{
		Operation:    llm.OpFileDiscovery,
		CanExplore:   true,
		MaxTurns:     5,
		Schema:       fileDiscoverySchema(),
		SystemPrompt: "discover files",
		BuildPrompt:  func(ExecuteRequest) string { return "find files" },
	}

	res := w.Execute(context.Background(), router, exec, ExecuteRequest{ProjectRoot: root})
	require.True(t, res.Success)
	require.Equal(t, 1, res.Metrics.ExplorationToolCalls)
	require.Equal(t, 2, res.Metrics.Turns)
}

func TestExecuteExplorationMaxTurnsExceeded(t *testing.T) {
	root := t.TempDir()
	exec, err := toolexec.New(root)
	require.NoError(t, err)

	client := &scriptedClient{responses: []llm.CallResponse{
		{ToolCalls: []llm.ToolCall{{Name: "glob", Input: map[string]any{"pattern": "*.go"}}}},
	}}
	router := newTestRouter(t, client)

	w := &Worker{
		Operation:    llm.OpFileDiscovery,
		CanExplore:   true,
		MaxTurns:     2,
		Schema:       fileDiscoverySchema(),
		BuildPrompt:  func(ExecuteRequest) string { return "find files" },
	}

	res := w.Execute(context.Background(), router, exec, ExecuteRequest{ProjectRoot: root})
	require.False(t, res.Success)
}

func TestExecuteExplorationNoToolCallsFails(t *testing.T) {
	root := t.TempDir()
	exec, err := toolexec.New(root)
	require.NoError(t, err)

	client := &scriptedClient{responses: []llm.CallResponse{{}}}
	router := newTestRouter(t, client)

	w := &Worker{
		Operation:   llm.OpFileDiscovery,
		CanExplore:  true,
		MaxTurns:    3,
		Schema:      fileDiscoverySchema(),
		BuildPrompt: func(ExecuteRequest) string { return "find files" },
	}

	res := w.Execute(context.Background(), router, exec, ExecuteRequest{ProjectRoot: root})
	require.False(t, res.Success)
	require.Contains(t, res.Error, "no tool calls")
}
