package execution

import (
	"context"
	"fmt"

	"github.com/RidgetopAi/the-forge-sub002/internal/diffapply"
	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/feedback"
	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
	"github.com/RidgetopAi/the-forge-sub002/internal/pattern"
	"github.com/RidgetopAi/the-forge-sub002/internal/persistence"
	"github.com/RidgetopAi/the-forge-sub002/internal/statemachine"
	"github.com/RidgetopAi/the-forge-sub002/internal/toolexec"
)

// Validator is the Validation Tool Builder's (C11) call contract, as seen
// from execution. Defined here rather than imported so this package doesn't
// have to depend on validation's internals; phase 4 is skipped entirely
// when no Validator is wired.
type Validator interface {
	Validate(ctx context.Context, pkg domain.ContextPackage, writtenPaths []string) domain.ValidationSummary
}

// Foreman is the Execution Foreman (C10): code generation, file operations,
// compilation checking, the self-heal loop, and result assembly.
type Foreman struct {
	router         *llm.Router
	exec           *toolexec.Executor
	feedbackRouter *feedback.Router
	tracker        *pattern.Tracker
	store          *persistence.Store
	validator      Validator
}

// New builds an Execution Foreman. validator may be nil; phase 4 is then
// skipped and ValidationPassed defaults to true.
func New(router *llm.Router, exec *toolexec.Executor, feedbackRouter *feedback.Router, tracker *pattern.Tracker, store *persistence.Store, validator Validator) *Foreman {
	return &Foreman{router: router, exec: exec, feedbackRouter: feedbackRouter, tracker: tracker, store: store, validator: validator}
}

// Execute runs phases 1-4 against mach's prepared ContextPackage and
// transitions the task to reviewing on success or blocked on failure,
// per spec.md §4.10's strict failure precedence: code generation, then
// file operation, then compilation, then validation (validation failures are
// non-fatal and never block the transition).
func (f *Foreman) Execute(ctx context.Context, mach *statemachine.Machine) (domain.ExecutionResult, error) {
	log := logging.Get(logging.CategoryExecution)
	task := mach.Task()
	if task.ContextPackage == nil {
		return domain.ExecutionResult{}, fmt.Errorf("execution: task %s has no context package", task.ID)
	}
	pkg := *task.ContextPackage
	patternID := fmt.Sprintf("exec-%s-%s", pkg.ProjectType, shortID(pkg.ID))

	if err := mach.Transition(domain.StateExecuting, "execution-foreman", "execution started"); err != nil {
		log.Warnw("executing transition failed", "task_id", task.ID, "error", err)
	}

	// Phase 1: Code Generation.
	gen, err := Generate(ctx, f.router, f.exec, pkg)
	cost := domain.CostBreakdown{CodeGeneration: gen.CostUSD}
	if err != nil || gen.Failed {
		code := "CODE_GENERATION_ERROR"
		msg := fmt.Sprintf("code generation failed: %v", err)
		if gen.Failed {
			code = gen.FailureCode
			msg = "code generator returned no files after retry"
		}
		return f.fail(ctx, mach, patternID, domain.PhaseCodeGeneration, code, msg, cost)
	}

	// Phase 2: File Operations.
	applier := diffapply.New(f.exec.ProjectRoot())
	created, modified, aerr := applier.Apply(gen.Files)
	if aerr != nil {
		result := domain.ExecutionResult{
			FilesCreated:  created,
			FilesModified: modified,
			CostBreakdown: finalizeCost(cost),
		}
		return f.failWithResult(ctx, mach, result, patternID, domain.PhaseFileOperation, "FILE_OPERATION_ERROR", aerr.Error())
	}
	written := append(append([]string{}, created...), modified...)

	// Phase 3: Compilation Check.
	compileResult := Compile(ctx, f.exec.ProjectRoot())

	// Phase 3b: Self-Heal Loop.
	heal := selfHealOutcome{FinalCompile: compileResult}
	if !compileResult.Passed {
		heal = selfHeal(ctx, f.router, f.feedbackRouter, f.tracker, f.store, f.exec, patternID, written, compileResult)
		written = append(written, heal.FilesCreated...)
		written = append(written, heal.FilesModified...)
		created = append(created, heal.FilesCreated...)
		modified = append(modified, heal.FilesModified...)
		cost.SelfHeal = heal.CostUSD
	}
	compileResult = heal.FinalCompile

	if !compileResult.Passed {
		result := domain.ExecutionResult{
			FilesCreated:          dedupeStrings(created),
			FilesModified:         dedupeStrings(modified),
			CompilationPassed:     false,
			CompilationAttempts:   heal.Attempts + 1,
			CompilationSelfHealed: heal.Healed,
			CostBreakdown:         finalizeCost(cost),
		}
		return f.failWithResult(ctx, mach, result, patternID, domain.PhaseCompilation, "COMPILATION_FAILED", truncate(compileResult.Output, errorOutputCap))
	}

	// Phase 4: Task-specific Validation (non-fatal).
	var validationSummary *domain.ValidationSummary
	validationPassed := true
	if f.validator != nil {
		vs := f.validator.Validate(ctx, pkg, written)
		validationSummary = &vs
		validationPassed = vs.OverallPassed
	}

	recordOutcome(ctx, f.tracker, patternID, true)

	result := domain.ExecutionResult{
		Success:               true,
		FilesCreated:          dedupeStrings(created),
		FilesModified:         dedupeStrings(modified),
		FilesRead:             readPathsFor(pkg),
		CompilationPassed:     true,
		CompilationAttempts:   heal.Attempts + 1,
		CompilationSelfHealed: heal.Healed,
		ValidationPassed:      validationPassed,
		ValidationSummary:     validationSummary,
		Notes:                 gen.Explanation,
		CostBreakdown:         finalizeCost(cost),
	}

	if err := mach.SetExecutionResult(result); err != nil {
		log.Warnw("set execution result failed", "task_id", task.ID, "error", err)
	}
	if err := mach.Transition(domain.StateReviewing, "execution-foreman", "execution complete"); err != nil {
		log.Warnw("reviewing transition failed", "task_id", task.ID, "error", err)
	}
	return result, nil
}

func (f *Foreman) fail(ctx context.Context, mach *statemachine.Machine, patternID string, phase domain.Phase, code, message string, cost domain.CostBreakdown) (domain.ExecutionResult, error) {
	return f.failWithResult(ctx, mach, domain.ExecutionResult{CostBreakdown: finalizeCost(cost)}, patternID, phase, code, message)
}

func (f *Foreman) failWithResult(ctx context.Context, mach *statemachine.Machine, result domain.ExecutionResult, patternID string, phase domain.Phase, code, message string) (domain.ExecutionResult, error) {
	log := logging.Get(logging.CategoryExecution)
	task := mach.Task()

	result.Success = false
	result.Error = message
	result.StructuredFailure = &domain.StructuredFailure{Phase: phase, Code: code, Message: message}

	recordOutcome(ctx, f.tracker, patternID, false)

	if err := mach.SetExecutionResult(result); err != nil {
		log.Warnw("set execution result failed", "task_id", task.ID, "error", err)
	}
	if err := mach.Transition(domain.StateBlocked, "execution-foreman", message); err != nil {
		log.Warnw("blocked transition failed", "task_id", task.ID, "error", err)
	}
	return result, nil
}

func finalizeCost(c domain.CostBreakdown) domain.CostBreakdown {
	c.Total = c.CodeGeneration + c.SelfHeal
	return c
}

func readPathsFor(pkg domain.ContextPackage) []string {
	paths := make([]string, 0, len(pkg.CodeContext.MustRead))
	for _, r := range pkg.CodeContext.MustRead {
		paths = append(paths, r.Path)
	}
	return paths
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
