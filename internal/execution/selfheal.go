package execution

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/RidgetopAi/the-forge-sub002/internal/diffapply"
	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/feedback"
	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
	"github.com/RidgetopAi/the-forge-sub002/internal/pattern"
	"github.com/RidgetopAi/the-forge-sub002/internal/persistence"
	"github.com/RidgetopAi/the-forge-sub002/internal/toolexec"
)

// defaultSelfHealAttempts bounds phase 3b (spec.md §4.10: "at most 2 repair
// attempts by default").
const defaultSelfHealAttempts = 2

// errorOutputCap truncates compiler output before it's handed to the
// Feedback Router and the repair prompt.
const errorOutputCap = 4000

// selfHealOutcome is phase 3b's result, folded back into the execution
// result assembly.
type selfHealOutcome struct {
	FinalCompile  CompileResult
	Attempts      int
	Healed        bool
	CostUSD       float64
	FilesCreated  []string
	FilesModified []string
}

// selfHeal retries compilation failures by asking the Feedback Router to
// categorize the error, then issuing a repair-mode code generation call
// restricted to the files phase 1/2 already wrote. It never touches a file
// outside that set, and stops as soon as the router returns anything other
// than retry (spec.md §4.10 phase 3b).
func selfHeal(
	ctx context.Context,
	router *llm.Router,
	feedbackRouter *feedback.Router,
	tracker *pattern.Tracker,
	store *persistence.Store,
	exec *toolexec.Executor,
	patternID string,
	writtenPaths []string,
	initial CompileResult,
) selfHealOutcome {
	log := logging.Get(logging.CategoryExecution)
	out := selfHealOutcome{FinalCompile: initial}
	if initial.Passed || len(writtenPaths) == 0 {
		return out
	}

	applier := diffapply.New(exec.ProjectRoot())
	current := initial

	for attempt := 0; attempt < defaultSelfHealAttempts; attempt++ {
		errText := truncateDiagnostics(current.Output)
		category := feedback.CategorizeError(errText)

		action := feedbackRouter.RouteError(ctx, domain.ErrorContext{
			Category:         string(category),
			Message:          errText,
			PreviousAttempts: attempt,
			PatternID:        patternID,
		})
		if action.Action != domain.ActionRetry {
			break
		}

		previousFiles := readBudgetedFiles(exec, writtenPaths)
		outcome, err := Repair(ctx, router, errText, writtenPaths, previousFiles)
		out.CostUSD += outcome.CostUSD
		if err != nil || len(outcome.Files) == 0 {
			log.Warnw("self-heal repair call produced no usable files", "attempt", attempt, "error", err)
			break
		}

		created, modified, aerr := applier.Apply(outcome.Files)
		out.FilesCreated = append(out.FilesCreated, created...)
		out.FilesModified = append(out.FilesModified, modified...)
		if aerr != nil {
			log.Warnw("self-heal apply failed", "attempt", attempt, "error", aerr)
			break
		}

		current = Compile(ctx, exec.ProjectRoot())
		out.Attempts++
		if current.Passed {
			out.Healed = true
			break
		}
	}

	out.FinalCompile = current
	recordOutcome(ctx, tracker, patternID, current.Passed)
	if !current.Passed {
		mineLearnings(ctx, store, patternID, current.Output)
	}
	return out
}

func recordOutcome(ctx context.Context, tracker *pattern.Tracker, patternID string, passed bool) {
	if patternID == "" {
		return
	}
	if passed {
		tracker.RecordSuccess(ctx, patternID, nil)
	} else {
		tracker.RecordFailure(ctx, patternID, nil)
	}
}

// learningTags maps each of the exhaustion-time patterns spec.md §4.10 names
// to a regex that recognizes it in raw compiler output.
var learningTags = []struct {
	tag     string
	pattern *regexp.Regexp
}{
	{"wrong-exported-member", regexp.MustCompile(`(?i)has no exported member`)},
	{"missing-module", regexp.MustCompile(`(?i)cannot find module|no required module provides package|module not found`)},
	{"property-missing-on-type", regexp.MustCompile(`(?i)property '.*' does not exist on type`)},
}

// mineLearnings persists the exhausted compile error as one or more tagged
// context records so a later Learning Retrieval pass (preparation phase 6)
// can surface it for a similar future task. Each recognized pattern gets its
// own record, per spec.md §4.10's "recognize ... and persist each as a
// tagged error record".
func mineLearnings(ctx context.Context, store *persistence.Store, patternID, errorOutput string) {
	if store == nil {
		return
	}
	body := truncate(errorOutput, errorOutputCap)

	matched := false
	for _, lt := range learningTags {
		if !lt.pattern.MatchString(errorOutput) {
			continue
		}
		matched = true
		_, _ = store.StoreContext(ctx,
			fmt.Sprintf("self-heal exhausted for pattern %s: %s", patternID, body),
			persistence.ContextError, []string{patternID, lt.tag})
	}
	if !matched {
		_, _ = store.StoreContext(ctx,
			fmt.Sprintf("self-heal exhausted for pattern %s: %s", patternID, body),
			persistence.ContextError, []string{patternID})
	}
}

func readBudgetedFiles(exec *toolexec.Executor, paths []string) []domain.BudgetedFile {
	files := make([]domain.BudgetedFile, 0, len(paths))
	for _, p := range paths {
		res := exec.Read(p)
		if !res.Success {
			continue
		}
		files = append(files, domain.BudgetedFile{Path: p, Content: res.Output, ExtractionMethod: domain.ExtractionFull})
	}
	return files
}

// maxDiagnosticLines caps the self-heal prompt to the first 10 diagnostics,
// whichever comes first against errorOutputCap's byte cap (spec.md §4.10:
// "truncate errors (first 10 diagnostics or 4 kB)").
const maxDiagnosticLines = 10

func truncateDiagnostics(output string) string {
	lines := strings.Split(output, "\n")
	if len(lines) > maxDiagnosticLines {
		lines = lines[:maxDiagnosticLines]
	}
	return truncate(strings.Join(lines, "\n"), errorOutputCap)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n... (truncated)"
}
