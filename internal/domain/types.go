// Package domain holds the shared data model that flows between every
// department: Task, Classification, ContextPackage, ExecutionResult and the
// smaller value types each component produces or consumes. None of these
// types own behavior beyond simple invariant checks — the departments in
// internal/plant, internal/preparation, internal/execution and
// internal/quality are what manipulate them.
package domain

import "time"

// TaskState is the canonical lifecycle state of a Task.
type TaskState string

const (
	StateIntake     TaskState = "intake"
	StateClassified TaskState = "classified"
	StatePreparing  TaskState = "preparing"
	StatePrepared   TaskState = "prepared"
	StateExecuting  TaskState = "executing"
	StateReviewing  TaskState = "reviewing"
	StateCompleted  TaskState = "completed"
	StateBlocked    TaskState = "blocked"
	StateFailed     TaskState = "failed"
)

// ProjectType classifies the kind of change being requested.
type ProjectType string

const (
	ProjectFeature    ProjectType = "feature"
	ProjectBugfix     ProjectType = "bugfix"
	ProjectGreenfield ProjectType = "greenfield"
	ProjectRefactor   ProjectType = "refactor"
	ProjectResearch   ProjectType = "research"
)

// Scope is the estimated size of a change.
type Scope string

const (
	ScopeSmall  Scope = "small"
	ScopeMedium Scope = "medium"
	ScopeLarge  Scope = "large"
)

// Department is the coarse pipeline stage a classified task routes to.
type Department string

const (
	DepartmentPreparation Department = "preparation"
	DepartmentRAndD       Department = "r_and_d"
)

// Priority tags a file's importance within a prioritized selection.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Classification is the outcome of the Plant Manager's intake step.
type Classification struct {
	ProjectType ProjectType
	Scope       Scope
	Department  Department
	Confidence  float64
}

// NeedsHumanSync reports whether this classification's confidence is too
// low to proceed without a human decision (spec.md §3: confidence < 0.5).
func (c Classification) NeedsHumanSync() bool {
	return c.Confidence < 0.5
}

// StateTransition records one edge taken by the Task State Machine.
type StateTransition struct {
	From      TaskState
	To        TaskState
	ActorID   string
	Reason    string
	Timestamp time.Time
}

// Task is the unit of work carried through the pipeline.
type Task struct {
	ID              string
	RawRequest      string
	State           TaskState
	Classification  *Classification
	ContextPackage  *ContextPackage
	ExecutionResult *ExecutionResult
	QualityResult   *QualityResult
	Escalation      *Escalation
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StateHistory    []StateTransition
}

// Escalation records a blocked task's human-sync request.
type Escalation struct {
	From            TaskState
	Reason          string
	SuggestedOptions []string
	Timestamp       time.Time
}

// FileRef is a prioritized reference to a file, with the reason it was
// selected — the common currency of discovery workers and the packer.
type FileRef struct {
	Path     string
	Reason   string
	Priority Priority
}

// TaskScope narrows a ContextPackage's description of what is and is not
// in scope for the change.
type TaskScope struct {
	In  []string
	Out []string
}

// TaskDescription is the task-facing section of a ContextPackage.
type TaskDescription struct {
	Description        string
	AcceptanceCriteria  []string
	Scope               TaskScope
}

// Architecture summarizes the relevant parts of the target project.
type Architecture struct {
	Overview            string
	RelevantComponents  []string
	Dependencies        []string
}

// CodeContext names the files the code generator must read, must not touch,
// and example files worth imitating.
type CodeContext struct {
	MustRead        []FileRef
	MustNotModify   []string
	RelatedExamples []FileRef
}

// Patterns captures conventions discovered in the target project.
type Patterns struct {
	Naming          string
	FileOrganization string
	Testing         string
	ErrorHandling   string
	CodeStyle       []string
}

// Constraints captures hard requirements gathered during preparation.
type Constraints struct {
	Technical []string
	Quality   []string
	Timeline  string
}

// HistoricalContext is what the Learning Retrieval phase found.
type HistoricalContext struct {
	PreviousAttempts []string
	RelatedDecisions []string
}

// HumanSync records ambiguities preparation could not resolve on its own.
type HumanSync struct {
	RequiredBefore []string
	Ambiguities    []string
}

// ContextPackage is the immutable contract between preparation and
// execution. Once built it must satisfy the invariants in spec.md §3:
// MustRead ∪ RelatedExamples path-deduplicated, serialized size bounded,
// MustRead files real/readable, MustRead ∩ MustNotModify = ∅.
type ContextPackage struct {
	ID          string
	ProjectType ProjectType
	PreparedBy  string
	Task        TaskDescription
	Architecture Architecture
	CodeContext CodeContext
	Patterns    Patterns
	Constraints Constraints
	Risks       []string
	History     HistoricalContext
	HumanSyncReq HumanSync
}

// CostBreakdown tracks where execution cost was spent. Total must always
// equal CodeGeneration + SelfHeal exactly (spec.md §8 invariant 7);
// ValidationCost is observational only and excluded from Total.
type CostBreakdown struct {
	CodeGeneration float64
	SelfHeal       float64
	Total          float64
	ValidationCost float64
}

// Phase identifies which stage of execution a StructuredFailure occurred in.
type Phase string

const (
	PhaseCodeGeneration Phase = "code_generation"
	PhaseFileOperation  Phase = "file_operation"
	PhaseCompilation    Phase = "compilation"
	PhaseValidation     Phase = "validation"
	PhaseInfrastructure Phase = "infrastructure"
)

// StructuredFailure is the classified shape of an execution failure.
type StructuredFailure struct {
	Phase         Phase
	Code          string
	Message       string
	SuggestedFix  string
}

// ExecutionResult is the outcome the Execution Foreman (C10) assembles.
type ExecutionResult struct {
	Success                bool
	FilesCreated           []string
	FilesModified          []string
	FilesRead              []string
	CompilationPassed      bool
	CompilationAttempts    int
	CompilationSelfHealed  bool
	ValidationPassed       bool
	ValidationSummary      *ValidationSummary
	Notes                  string
	Error                  string
	StructuredFailure      *StructuredFailure
	CostBreakdown          CostBreakdown
}

// FileEdit is a single surgical search/replace pair. search must occur as a
// literal substring of the file's pre-write content before any write.
type FileEdit struct {
	Search  string
	Replace string
}

// FileAction is what Phase 2 of execution does with one generated file.
type FileAction string

const (
	ActionCreate FileAction = "create"
	ActionModify FileAction = "modify"
	ActionEdit   FileAction = "edit"
)

// GeneratedFile is one entry of a submit_code_changes tool call.
type GeneratedFile struct {
	Path    string
	Action  FileAction
	Content string
	Edits   []FileEdit
}

// PatternScore is the persisted success-rate record for a named pattern.
type PatternScore struct {
	PatternID     string
	Name          string
	SuccessCount  int
	FailureCount  int
	LastUsed      time.Time
	Contexts      []string
}

// SuccessRate implements spec.md §3: successCount/(successCount+failureCount),
// with a zero-use pattern defined to have rate 0.
func (p PatternScore) SuccessRate() float64 {
	total := p.SuccessCount + p.FailureCount
	if total == 0 {
		return 0
	}
	return float64(p.SuccessCount) / float64(total)
}

// ExtractionMethod is how the Context Budget Packer represented a file.
type ExtractionMethod string

const (
	ExtractionFull       ExtractionMethod = "full"
	ExtractionSignatures ExtractionMethod = "signatures"
	ExtractionTruncated  ExtractionMethod = "truncated"
	ExtractionExcluded   ExtractionMethod = "excluded"
)

// BudgetedFile is one packer output entry.
type BudgetedFile struct {
	Path             string
	Content          string
	ExtractionMethod ExtractionMethod
	AllocatedTokens  int
}

// PackSummary totals a packer run.
type PackSummary struct {
	TotalFiles        int
	IncludedFull      int
	IncludedSignatures int
	IncludedTruncated int
	Excluded          int
	TotalTokensUsed   int
	BudgetRemaining   int
}

// ErrorContext is the input to the Feedback Router (C7).
type ErrorContext struct {
	Category         string
	Message          string
	File             string
	Line             int
	StackTrace       string
	PreviousAttempts int
	PatternID        string
	PatternName      string
}

// FeedbackActionKind is the decision the Feedback Router returns.
type FeedbackActionKind string

const (
	ActionRetry      FeedbackActionKind = "retry"
	ActionEscalate   FeedbackActionKind = "escalate"
	ActionHumanSync  FeedbackActionKind = "human_sync"
)

// FeedbackAction is the output of the Feedback Router (C7).
type FeedbackAction struct {
	Action           FeedbackActionKind
	Reason           string
	SuggestedFix     string
	PatternToUpdate  string
}

// ToolCallRecord is one entry in a worker's bounded audit transcript.
type ToolCallRecord struct {
	Name    string
	Input   map[string]any
	Output  string
	Success bool
}

// ValidationSummary is the output of the Validation Tool Builder (C11).
type ValidationSummary struct {
	TotalTools    int
	Passed        int
	Results       []ValidationCheckResult
	OverallPassed bool
}

// ValidationCheckResult is one task-specific acceptance check's outcome.
type ValidationCheckResult struct {
	Name    string
	Passed  bool
	Message string
}

// QualityRecommendation is the Quality Gate's verdict.
type QualityRecommendation string

const (
	RecommendApprove     QualityRecommendation = "approve"
	RecommendHumanReview QualityRecommendation = "human_review"
	RecommendReject      QualityRecommendation = "reject"
)

// QualityResult is the output of the Quality Gate (C12).
type QualityResult struct {
	Recommendation     QualityRecommendation
	RequiredChecks      []ValidationCheckResult
	AdvisoryChecks      []ValidationCheckResult
}
