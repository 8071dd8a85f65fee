package preparation

import (
	"context"
	"fmt"
	"strings"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
	"github.com/RidgetopAi/the-forge-sub002/internal/worker"
	"github.com/RidgetopAi/the-forge-sub002/internal/workers"
)

// synthesizePatterns runs phase 4: the PatternExtraction worker inspects
// config and source to emit conventions, blended with any recommended
// patterns the tracker (C6) already has above the success-rate threshold
// for this project type.
func (f *Foreman) synthesizePatterns(ctx context.Context, task *domain.Task, mustRead []domain.FileRef) domain.Patterns {
	w := workers.PatternExtraction()
	var b strings.Builder
	for _, r := range mustRead {
		fmt.Fprintf(&b, "- %s\n", r.Path)
	}

	recommended := f.tracker.GetRecommendedPatterns(ctx, string(task.Classification.ProjectType), 5)
	if len(recommended) > 0 {
		b.WriteString("\nPreviously successful patterns for this project type:\n")
		for _, p := range recommended {
			fmt.Fprintf(&b, "- %s (success rate %.2f)\n", p.Name, p.SuccessRate())
		}
	}

	res := w.Execute(ctx, f.router, f.exec, worker.ExecuteRequest{
		Task:              *task,
		ProjectRoot:       f.exec.ProjectRoot(),
		AdditionalContext: b.String(),
	})
	if !res.Success {
		logging.Get(logging.CategoryWorker).Warnw("pattern extraction worker failed, returning empty patterns", "task_id", task.ID, "error", res.Error)
		return domain.Patterns{}
	}

	conv, _ := res.Data["conventions"].(map[string]any)
	return domain.Patterns{
		Naming:           mapStringField(conv, "naming"),
		FileOrganization: mapStringField(conv, "fileOrganization"),
		Testing:          mapStringField(conv, "testing"),
		ErrorHandling:    mapStringField(conv, "errorHandling"),
		CodeStyle:        stringSliceField(res.Data, "patterns"),
	}
}

func mapStringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	return stringField(m, key)
}

func stringSliceField(data map[string]any, key string) []string {
	raw, ok := data[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// assessRisks produces heuristic risks: zero discovered files, an unusually
// large set of files, or a heavy external-dependency count (spec.md §4.9
// phase 5).
func assessRisks(mustRead []domain.FileRef, arch domain.Architecture) []string {
	var risks []string
	if len(mustRead) == 0 {
		risks = append(risks, "no relevant files were discovered; the change may require creating a new subsystem")
	}
	if len(mustRead) > 25 {
		risks = append(risks, fmt.Sprintf("%d files were flagged relevant; the change may be larger than estimated", len(mustRead)))
	}
	if len(arch.Dependencies) > 15 {
		risks = append(risks, "the affected area has a heavy external dependency surface")
	}
	return risks
}
