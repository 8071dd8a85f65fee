// Package quality implements the Quality Gate (C12): the post-execution
// advisor that runs required checks (compile, files exist, tests pass if
// present) plus advisory checks (acceptance criteria heuristic match,
// pattern compliance), and recommends approve, human_review, or reject.
//
// Grounded on the teacher's internal/shards/tester/execution.go shell-out
// pattern, reused here via internal/execution.RunTests, and on
// internal/init/scanner.go's simple substring/glob heuristics for the
// advisory pattern-compliance check.
package quality

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/execution"
	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
	"github.com/RidgetopAi/the-forge-sub002/internal/statemachine"
	"github.com/RidgetopAi/the-forge-sub002/internal/toolexec"
)

// testFileMarkers recognizes a file as a test file by naming convention.
var testFileMarkers = []string{"_test.go", ".test.ts", ".spec.ts", "_test.py", "test_"}

// anyUsagePattern and todoPattern are the advisory pattern-compliance markers spec.md
// §4.12 names: "any" usage and lingering TODO/FIXME.
var anyUsagePattern = regexp.MustCompile(`:\s*any\b`)
var todoPattern = regexp.MustCompile(`(?i)TODO|FIXME`)

// Gate is the Quality Gate (C12).
type Gate struct {
	exec *toolexec.Executor
}

// New builds a Quality Gate over exec.
func New(exec *toolexec.Executor) *Gate {
	return &Gate{exec: exec}
}

// Evaluate runs the required and advisory checks against mach's execution
// result and transitions the task to completed (recommendation passes) or
// blocked (reject), per spec.md §4.12.
func (g *Gate) Evaluate(ctx context.Context, mach *statemachine.Machine) (domain.QualityResult, error) {
	log := logging.Get(logging.CategoryQuality)
	task := mach.Task()
	if task.ExecutionResult == nil {
		return domain.QualityResult{}, errNoExecutionResult(task.ID)
	}
	er := *task.ExecutionResult
	written := append(append([]string{}, er.FilesCreated...), er.FilesModified...)

	required := []domain.ValidationCheckResult{
		compileCheck(er),
		filesExistCheck(g.exec, written),
		testsPassCheck(ctx, g.exec, written),
	}
	advisory := []domain.ValidationCheckResult{
		acceptanceCriteriaCheck(g.exec, task, written),
		patternComplianceCheck(g.exec, written),
	}

	requiredPassed := allPassed(required)
	advisoryPassed := allPassed(advisory)

	recommendation := domain.RecommendReject
	switch {
	case requiredPassed && advisoryPassed:
		recommendation = domain.RecommendApprove
	case requiredPassed:
		recommendation = domain.RecommendHumanReview
	}

	result := domain.QualityResult{
		Recommendation: recommendation,
		RequiredChecks: required,
		AdvisoryChecks: advisory,
	}

	if err := mach.SetQualityResult(result); err != nil {
		log.Warnw("set quality result failed", "task_id", task.ID, "error", err)
	}

	to := domain.StateCompleted
	if recommendation == domain.RecommendReject {
		to = domain.StateBlocked
	}
	if err := mach.Transition(to, "quality-gate", string(recommendation)); err != nil {
		log.Warnw("quality gate transition failed", "task_id", task.ID, "to", to, "error", err)
	}
	return result, nil
}

func errNoExecutionResult(taskID string) error {
	return fmt.Errorf("quality: task %s has no execution result", taskID)
}

func compileCheck(er domain.ExecutionResult) domain.ValidationCheckResult {
	if er.CompilationPassed {
		return domain.ValidationCheckResult{Name: "compiles", Passed: true}
	}
	return domain.ValidationCheckResult{Name: "compiles", Passed: false, Message: "compilation did not pass"}
}

func filesExistCheck(exec *toolexec.Executor, written []string) domain.ValidationCheckResult {
	for _, p := range written {
		if !exec.Read(p).Success {
			return domain.ValidationCheckResult{Name: "files exist", Passed: false, Message: "missing: " + p}
		}
	}
	return domain.ValidationCheckResult{Name: "files exist", Passed: true}
}

func testsPassCheck(ctx context.Context, exec *toolexec.Executor, written []string) domain.ValidationCheckResult {
	if !hasTests(written) {
		return domain.ValidationCheckResult{Name: "tests pass", Passed: true, Message: "no tests in this change"}
	}
	result := execution.RunTests(ctx, exec.ProjectRoot())
	return domain.ValidationCheckResult{Name: "tests pass", Passed: result.Passed, Message: truncateMessage(result.Output)}
}

func hasTests(written []string) bool {
	for _, p := range written {
		for _, marker := range testFileMarkers {
			if strings.Contains(p, marker) {
				return true
			}
		}
	}
	return false
}

// acceptanceCriteriaCheck is the heuristic match spec.md §4.12 calls for:
// each criterion's meaningful words are looked for across the written
// files' content, not verified against behavior.
func acceptanceCriteriaCheck(exec *toolexec.Executor, task *domain.Task, written []string) domain.ValidationCheckResult {
	if task.ContextPackage == nil || len(task.ContextPackage.Task.AcceptanceCriteria) == 0 {
		return domain.ValidationCheckResult{Name: "acceptance criteria", Passed: true, Message: "none recorded"}
	}

	var combined strings.Builder
	for _, p := range written {
		res := exec.Read(p)
		if res.Success {
			combined.WriteString(strings.ToLower(res.Output))
		}
	}
	content := combined.String()

	var unmatched []string
	for _, c := range task.ContextPackage.Task.AcceptanceCriteria {
		if !mentionsAny(content, strings.Fields(strings.ToLower(c))) {
			unmatched = append(unmatched, c)
		}
	}
	if len(unmatched) > 0 {
		return domain.ValidationCheckResult{Name: "acceptance criteria", Passed: false, Message: "no textual match for: " + strings.Join(unmatched, "; ")}
	}
	return domain.ValidationCheckResult{Name: "acceptance criteria", Passed: true}
}

func mentionsAny(content string, words []string) bool {
	for _, w := range words {
		if len(w) >= 4 && strings.Contains(content, w) {
			return true
		}
	}
	return false
}

func patternComplianceCheck(exec *toolexec.Executor, written []string) domain.ValidationCheckResult {
	var offenders []string
	for _, p := range written {
		res := exec.Read(p)
		if !res.Success {
			continue
		}
		if anyUsagePattern.MatchString(res.Output) || todoPattern.MatchString(res.Output) {
			offenders = append(offenders, p)
		}
	}
	if len(offenders) > 0 {
		return domain.ValidationCheckResult{Name: "pattern compliance", Passed: false, Message: "any/TODO found in: " + strings.Join(offenders, ", ")}
	}
	return domain.ValidationCheckResult{Name: "pattern compliance", Passed: true}
}

func allPassed(checks []domain.ValidationCheckResult) bool {
	for _, c := range checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

func truncateMessage(s string) string {
	const cap = 500
	if len(s) <= cap {
		return s
	}
	return s[:cap] + "..."
}
