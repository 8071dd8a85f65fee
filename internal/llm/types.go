// Package llm implements the Tier Router (C2): it maps a logical operation
// to one of three tiers, issues a normalized tool-use call against whatever
// provider that tier is bound to, and accumulates cost. Grounded on the
// teacher's internal/perception package (client_types.go's per-provider
// request/response shapes, client_tool_helpers.go's tool-call normalization)
// generalized from "one active provider selected at boot" to "three tiers,
// each independently bound, callable concurrently".
package llm

import (
	"context"

	"github.com/RidgetopAi/the-forge-sub002/internal/config"
)

// Tier is one of the three LLM abstraction levels (spec.md §4.2). It is the
// same closed set as config.TierName; the alias keeps the router's public
// API from forcing every caller to import config just to name a tier.
type Tier = config.TierName

const (
	TierOpus       = config.TierOpus
	TierSonnet     = config.TierSonnet
	TierHaikuClass = config.TierHaikuClass
)

// Operation is a closed set of logical operation names the rest of the
// pipeline calls by name; the router alone knows which tier each maps to.
type Operation string

const (
	OpClassifyTask         Operation = "classify_task"
	OpForemanSynthesis     Operation = "foreman_synthesis"
	OpFileDiscovery        Operation = "file_discovery"
	OpPatternExtraction    Operation = "pattern_extraction"
	OpDependencyMapping    Operation = "dependency_mapping"
	OpConstraintIdentify   Operation = "constraint_identification"
	OpWebResearch          Operation = "web_research"
	OpDocumentationReading Operation = "documentation_reading"
	OpCodeGeneration       Operation = "code_generation"
	OpCodeRepair           Operation = "code_repair"
	OpResolveStuckPoint    Operation = "resolve_stuck_point"
	OpValidationToolGen    Operation = "validation_tool_generation"
	OpQualityReview        Operation = "quality_review"
	OpLearningRetrieval    Operation = "learning_retrieval"
)

// defaultOperationTiers is the closed mapping from logical operation to
// tier, per spec.md §4.2 ("~14 names").
var defaultOperationTiers = map[Operation]Tier{
	OpClassifyTask:         TierHaikuClass,
	OpForemanSynthesis:     TierSonnet,
	OpFileDiscovery:        TierHaikuClass,
	OpPatternExtraction:    TierHaikuClass,
	OpDependencyMapping:    TierHaikuClass,
	OpConstraintIdentify:   TierHaikuClass,
	OpWebResearch:          TierHaikuClass,
	OpDocumentationReading: TierHaikuClass,
	OpCodeGeneration:       TierSonnet,
	OpCodeRepair:           TierSonnet,
	OpResolveStuckPoint:    TierOpus,
	OpValidationToolGen:    TierSonnet,
	OpQualityReview:        TierSonnet,
	OpLearningRetrieval:    TierHaikuClass,
}

// ToolChoiceType selects how the provider is told to use tools.
type ToolChoiceType string

const (
	ToolChoiceAuto ToolChoiceType = "auto"
	ToolChoiceAny  ToolChoiceType = "any"
	ToolChoiceTool ToolChoiceType = "tool"
)

// ToolChoice mirrors the provider-agnostic shape spec.md §4.2 requires:
// {type:'tool', name:X} must be honored by the adapter.
type ToolChoice struct {
	Type ToolChoiceType
	Name string
}

// ToolDefinition is a provider-agnostic tool schema.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ToolCall is the provider-independent shape every adapter normalizes its
// native tool-call payload into.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

// CallRequest is the router's public call signature.
type CallRequest struct {
	Operation    Operation
	SystemPrompt string
	UserPrompt   string
	Tools        []ToolDefinition
	ToolChoice   ToolChoice
	MaxTokens    int
	Temperature  float64
}

// CallResponse is what every router call returns.
type CallResponse struct {
	Text         string
	ToolCalls    []ToolCall
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	LatencyMs    int64
	Tier         Tier
	Model        string
}

// ProviderClient is the minimal interface a tier's backing provider must
// implement. Each concrete client normalizes its native tool-use envelope
// into CallResponse.ToolCalls.
type ProviderClient interface {
	Call(ctx context.Context, req CallRequest) (CallResponse, error)
}
