package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
	"github.com/RidgetopAi/the-forge-sub002/internal/toolexec"
)

// PromptBuilder renders the user prompt for one worker invocation.
type PromptBuilder func(req ExecuteRequest) string

// Worker is parameterized per spec.md §4.4: an operation, a result schema,
// an exploration flag, a turn cap, a system prompt, and a prompt builder.
type Worker struct {
	Operation    llm.Operation
	Schema       Schema
	CanExplore   bool
	MaxTurns     int
	SystemPrompt string
	BuildPrompt  PromptBuilder
}

// ExecuteRequest is the Worker Runtime's call contract input.
type ExecuteRequest struct {
	Task              domain.Task
	ProjectRoot       string
	Context           *domain.ContextPackage
	AdditionalContext string
}

// Metrics aggregates router usage across every turn of one execute call.
type Metrics struct {
	InputTokens         int
	OutputTokens        int
	CostUSD             float64
	LatencyMs           int64
	Turns               int
	ExplorationToolCalls int
}

// Result is the outcome of one worker execution.
type Result struct {
	Success    bool
	Data       map[string]any
	Confidence float64
	Error      string
	ToolCalls  []domain.ToolCallRecord
	Metrics    Metrics
}

const submitResultDescription = "Submit the final structured result for this task."

func (w *Worker) submitResultTool() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        toolexec.SubmitResultToolName,
		Description: submitResultDescription,
		InputSchema: w.Schema.ToolInputSchema(),
	}
}

var explorationTools = []llm.ToolDefinition{
	{Name: "glob", Description: "List project files matching a glob pattern.", InputSchema: map[string]any{
		"type":       "object",
		"properties": map[string]any{"pattern": map[string]any{"type": "string"}},
		"required":   []string{"pattern"},
	}},
	{Name: "read", Description: "Read a file's contents.", InputSchema: map[string]any{
		"type":       "object",
		"properties": map[string]any{"path": map[string]any{"type": "string"}},
		"required":   []string{"path"},
	}},
	{Name: "grep", Description: "Search file contents for a pattern.", InputSchema: map[string]any{
		"type":       "object",
		"properties": map[string]any{"pattern": map[string]any{"type": "string"}, "path": map[string]any{"type": "string"}},
		"required":   []string{"pattern"},
	}},
}

// Execute runs the worker per spec.md §4.4: a single forced-tool router
// call when CanExplore is false, or a bounded multi-turn explore loop
// otherwise.
func (w *Worker) Execute(ctx context.Context, router *llm.Router, exec *toolexec.Executor, req ExecuteRequest) Result {
	log := logging.Get(logging.CategoryWorker)
	log.Debugw("worker execute start", "operation", w.Operation, "explore", w.CanExplore, "task_id", req.Task.ID)

	if !w.CanExplore {
		return w.executeSingleTurn(ctx, router, req)
	}
	return w.executeExploration(ctx, router, exec, req)
}

func (w *Worker) executeSingleTurn(ctx context.Context, router *llm.Router, req ExecuteRequest) Result {
	resp, err := router.Call(ctx, llm.CallRequest{
		Operation:    w.Operation,
		SystemPrompt: w.SystemPrompt,
		UserPrompt:   w.BuildPrompt(req),
		Tools:        []llm.ToolDefinition{w.submitResultTool()},
		ToolChoice:   llm.ToolChoice{Type: llm.ToolChoiceTool, Name: toolexec.SubmitResultToolName},
		MaxTokens:    4096,
	})
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	metrics := Metrics{InputTokens: resp.InputTokens, OutputTokens: resp.OutputTokens, CostUSD: resp.CostUSD, LatencyMs: resp.LatencyMs, Turns: 1}
	return w.finalize(resp.ToolCalls, metrics, nil)
}

func (w *Worker) executeExploration(ctx context.Context, router *llm.Router, exec *toolexec.Executor, req ExecuteRequest) Result {
	var transcript strings.Builder
	var records []domain.ToolCallRecord
	metrics := Metrics{}

	maxTurns := w.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 1
	}

	for turn := 1; turn <= maxTurns; turn++ {
		tools := append(append([]llm.ToolDefinition{}, explorationTools...), w.submitResultTool())
		choice := llm.ToolChoice{Type: llm.ToolChoiceAuto}
		if turn == maxTurns {
			choice = llm.ToolChoice{Type: llm.ToolChoiceTool, Name: toolexec.SubmitResultToolName}
		}

		userPrompt := w.BuildPrompt(req)
		if transcript.Len() > 0 {
			userPrompt += "\n\nPrevious tool results:\n" + transcript.String()
		}

		resp, err := router.Call(ctx, llm.CallRequest{
			Operation:    w.Operation,
			SystemPrompt: w.SystemPrompt,
			UserPrompt:   userPrompt,
			Tools:        tools,
			ToolChoice:   choice,
			MaxTokens:    4096,
		})
		if err != nil {
			return Result{Success: false, Error: err.Error(), Metrics: metrics}
		}

		metrics.Turns = turn
		metrics.InputTokens += resp.InputTokens
		metrics.OutputTokens += resp.OutputTokens
		metrics.CostUSD += resp.CostUSD
		metrics.LatencyMs += resp.LatencyMs

		if len(resp.ToolCalls) == 0 {
			return Result{Success: false, Error: "worker returned no tool calls", Metrics: metrics}
		}

		var submitCalls []llm.ToolCall
		var explorationCalls []llm.ToolCall
		for _, tc := range resp.ToolCalls {
			if tc.Name == toolexec.SubmitResultToolName {
				submitCalls = append(submitCalls, tc)
			} else {
				explorationCalls = append(explorationCalls, tc)
			}
		}

		if len(submitCalls) > 0 {
			return w.finalize(submitCalls, metrics, records)
		}

		for _, tc := range explorationCalls {
			metrics.ExplorationToolCalls++
			output := runExplorationTool(exec, tc)
			records = append(records, domain.ToolCallRecord{Name: tc.Name, Input: tc.Input, Output: output.Output, Success: output.Success})
			fmt.Fprintf(&transcript, "%s(%v) -> %s\n", tc.Name, tc.Input, output.Output)
		}
	}

	return Result{Success: false, Error: fmt.Sprintf("max turns (%d) exceeded without submit_result", maxTurns), Metrics: metrics}
}

func runExplorationTool(exec *toolexec.Executor, tc llm.ToolCall) toolexec.Result {
	switch tc.Name {
	case "glob":
		pattern, _ := tc.Input["pattern"].(string)
		return exec.Glob(pattern)
	case "read":
		path, _ := tc.Input["path"].(string)
		return exec.Read(path)
	case "grep":
		pattern, _ := tc.Input["pattern"].(string)
		path, _ := tc.Input["path"].(string)
		return exec.Grep(pattern, path)
	default:
		return toolexec.Result{Success: false, Error: "unknown tool " + tc.Name}
	}
}

func (w *Worker) finalize(submitCalls []llm.ToolCall, metrics Metrics, records []domain.ToolCallRecord) Result {
	if len(submitCalls) == 0 {
		return Result{Success: false, Error: "no submit_result call present", Metrics: metrics, ToolCalls: records}
	}

	data := submitCalls[0].Input
	if data == nil {
		data = map[string]any{}
	}
	if err := Validate(w.Schema, data); err != nil {
		return Result{Success: false, Error: err.Error(), Metrics: metrics, ToolCalls: records}
	}

	confidence, _ := asFloat(data["confidence"])
	return Result{Success: true, Data: data, Confidence: confidence, Metrics: metrics, ToolCalls: records}
}

// MarshalData renders a Result's Data back to JSON. No package in this
// module calls it.
func MarshalData(data map[string]any) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
