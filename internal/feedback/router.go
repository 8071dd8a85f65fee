package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
	"github.com/RidgetopAi/the-forge-sub002/internal/pattern"
)

const defaultMaxAutoRetries = 3

var errNoSubmitResult = errors.New("feedback: stuck-point response contained no usable submit_result")

// stuckPointTool is the submit_result shape expected of the opus-tier
// fallback for unknown errors (spec.md §4.7: "expect a JSON
// {action, reason, suggestedFix?}").
var stuckPointTool = llm.ToolDefinition{
	Name:        "submit_result",
	Description: "Submit the resolved action for this stuck point.",
	InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action":       map[string]any{"type": "string", "enum": []string{"retry", "escalate", "human_sync"}},
			"reason":       map[string]any{"type": "string"},
			"suggestedFix": map[string]any{"type": "string"},
		},
		"required": []string{"action", "reason"},
	},
}

// Router is the Feedback Router (C7): categorizes an error, then decides
// retry/escalate/human_sync, recording pattern outcomes as it goes.
type Router struct {
	llmRouter *llm.Router
	tracker   *pattern.Tracker

	mu             sync.Mutex
	maxAutoRetries int
}

// New builds a Feedback Router bound to an LLM router (for the opus-tier
// stuck-point fallback) and the process-wide Pattern Tracker.
func New(llmRouter *llm.Router, tracker *pattern.Tracker) *Router {
	return &Router{llmRouter: llmRouter, tracker: tracker, maxAutoRetries: defaultMaxAutoRetries}
}

// MaxAutoRetries returns the current retry ceiling.
func (r *Router) MaxAutoRetries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxAutoRetries
}

// SetMaxAutoRetries updates the retry ceiling at runtime.
func (r *Router) SetMaxAutoRetries(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxAutoRetries = n
}

// RouteError classifies ec.Message (unless ec.Category is already set) and
// decides the resulting FeedbackAction per spec.md §4.7's decider.
func (r *Router) RouteError(ctx context.Context, ec domain.ErrorContext) domain.FeedbackAction {
	log := logging.Get(logging.CategoryPersistence)

	if ec.PreviousAttempts >= r.MaxAutoRetries() {
		action := domain.FeedbackAction{Action: domain.ActionEscalate, Reason: "max auto-retries exceeded"}
		if ec.PatternID != "" {
			r.tracker.RecordFailure(ctx, ec.PatternID, nil)
			action.PatternToUpdate = ec.PatternID
		}
		return action
	}

	category := ec.Category
	if category == "" {
		category = string(CategorizeError(ec.Message))
	}

	switch Category(category) {
	case CategoryTypeError:
		return domain.FeedbackAction{Action: domain.ActionRetry, Reason: "type error", SuggestedFix: suggestTypeErrorFix(ec.Message)}
	case CategoryDependencyError:
		return domain.FeedbackAction{Action: domain.ActionRetry, Reason: "dependency error", SuggestedFix: suggestDependencyFix(ec.Message)}
	case CategoryCompilationError:
		return domain.FeedbackAction{Action: domain.ActionRetry, Reason: "compilation error", SuggestedFix: "Check syntax around the reported location"}
	case CategoryTestFailure:
		return domain.FeedbackAction{Action: domain.ActionRetry, Reason: "Test failed"}
	case CategoryLintError:
		return domain.FeedbackAction{Action: domain.ActionRetry, Reason: "lint error", SuggestedFix: "autofix"}
	case CategoryTimeout:
		return domain.FeedbackAction{Action: domain.ActionEscalate, Reason: "timeout (likely loop)"}
	case CategoryRuntimeError:
		if ec.PreviousAttempts == 0 {
			return domain.FeedbackAction{Action: domain.ActionRetry, Reason: "runtime error, first attempt"}
		}
		return domain.FeedbackAction{Action: domain.ActionEscalate, Reason: "runtime error persisted past first attempt"}
	default:
		action, err := r.resolveStuckPoint(ctx, ec)
		if err != nil {
			log.Warnw("stuck-point resolution failed, falling back to human_sync", "error", err)
			return domain.FeedbackAction{Action: domain.ActionHumanSync, Reason: "unrecognized error and stuck-point resolution failed"}
		}
		return action
	}
}

type stuckPointResult struct {
	Action       string `json:"action"`
	Reason       string `json:"reason"`
	SuggestedFix string `json:"suggestedFix"`
}

// resolveStuckPoint invokes the opus tier for an unknown error category.
// On a non-JSON or unparseable response, the caller falls back to
// human_sync per spec.md §4.7.
func (r *Router) resolveStuckPoint(ctx context.Context, ec domain.ErrorContext) (domain.FeedbackAction, error) {
	prompt := "An error could not be classified by deterministic rules. Decide the right course of action.\n\n" +
		"Error message:\n" + ec.Message + "\n\n" +
		"Previous attempts: " + strconv.Itoa(ec.PreviousAttempts)
	if ec.File != "" {
		prompt += "\nFile: " + ec.File
	}

	resp, err := r.llmRouter.CallTier(ctx, llm.TierOpus, llm.CallRequest{
		Operation:  llm.OpResolveStuckPoint,
		UserPrompt: prompt,
		Tools:      []llm.ToolDefinition{stuckPointTool},
		ToolChoice: llm.ToolChoice{Type: llm.ToolChoiceTool, Name: "submit_result"},
		MaxTokens:  1024,
	})
	if err != nil {
		return domain.FeedbackAction{}, err
	}

	var raw map[string]any
	for _, tc := range resp.ToolCalls {
		if tc.Name == "submit_result" {
			raw = tc.Input
			break
		}
	}
	if raw == nil {
		return domain.FeedbackAction{}, errNoSubmitResult
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return domain.FeedbackAction{}, err
	}
	var parsed stuckPointResult
	if err := json.Unmarshal(data, &parsed); err != nil {
		return domain.FeedbackAction{}, err
	}
	if parsed.Action == "" || parsed.Reason == "" {
		return domain.FeedbackAction{}, errNoSubmitResult
	}

	kind := domain.FeedbackActionKind(strings.TrimSpace(parsed.Action))
	if kind != domain.ActionRetry && kind != domain.ActionEscalate && kind != domain.ActionHumanSync {
		return domain.FeedbackAction{}, errNoSubmitResult
	}

	return domain.FeedbackAction{Action: kind, Reason: parsed.Reason, SuggestedFix: parsed.SuggestedFix}, nil
}

// RecordPatternSuccess is the hook callers invoke on any successful
// resolution tied to a pattern (spec.md §4.7).
func (r *Router) RecordPatternSuccess(ctx context.Context, patternID string, contexts []string) {
	if patternID == "" {
		return
	}
	r.tracker.RecordSuccess(ctx, patternID, contexts)
}
