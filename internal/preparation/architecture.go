package preparation

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
	"github.com/RidgetopAi/the-forge-sub002/internal/worker"
	"github.com/RidgetopAi/the-forge-sub002/internal/workers"
)

// assembleArchitecture runs phase 3: the DependencyMapper worker reads
// project metadata and emits components/dependencies; file counts per
// top-level directory ground the overview in actual project shape rather
// than only what the LLM reports.
func (f *Foreman) assembleArchitecture(ctx context.Context, task *domain.Task, mustRead []domain.FileRef) domain.Architecture {
	counts := f.countFilesByTopDir()

	w := workers.DependencyMapper()
	var b strings.Builder
	fmt.Fprintf(&b, "Files per top-level directory: %v\n", counts)
	for _, r := range mustRead {
		fmt.Fprintf(&b, "- %s\n", r.Path)
	}
	res := w.Execute(ctx, f.router, f.exec, worker.ExecuteRequest{
		Task:              *task,
		ProjectRoot:       f.exec.ProjectRoot(),
		AdditionalContext: b.String(),
	})

	arch := domain.Architecture{Overview: summarizeTopDirs(counts)}
	if !res.Success {
		logging.Get(logging.CategoryWorker).Warnw("dependency mapper failed, using directory-count overview only", "task_id", task.ID, "error", res.Error)
		return arch
	}

	if eps, ok := res.Data["entryPoints"].([]any); ok {
		for _, e := range eps {
			if m, ok := e.(map[string]any); ok {
				arch.RelevantComponents = append(arch.RelevantComponents, stringField(m, "path"))
			}
		}
	}
	if deps, ok := res.Data["externalDependencies"].([]any); ok {
		for _, d := range deps {
			if m, ok := d.(map[string]any); ok {
				arch.Dependencies = append(arch.Dependencies, stringField(m, "name"))
			}
		}
	}
	return arch
}

// countFilesByTopDir globs the project once and tallies files per top-level
// directory (spec.md §4.9 phase 3: "counts files per top-level directory").
func (f *Foreman) countFilesByTopDir() map[string]int {
	counts := make(map[string]int)
	res := f.exec.Glob("*")
	if !res.Success {
		return counts
	}
	for _, line := range strings.Split(res.Output, "\n") {
		if line == "" {
			continue
		}
		top := strings.SplitN(line, string(filepath.Separator), 2)[0]
		counts[top]++
	}
	return counts
}

func summarizeTopDirs(counts map[string]int) string {
	if len(counts) == 0 {
		return "no source files discovered under the project root"
	}
	var parts []string
	for dir, n := range counts {
		parts = append(parts, fmt.Sprintf("%s(%d)", dir, n))
	}
	return "top-level directories: " + strings.Join(parts, ", ")
}
