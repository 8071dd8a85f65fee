package preparation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/RidgetopAi/the-forge-sub002/internal/contextpack"
	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
	"github.com/RidgetopAi/the-forge-sub002/internal/pattern"
	"github.com/RidgetopAi/the-forge-sub002/internal/persistence"
	"github.com/RidgetopAi/the-forge-sub002/internal/statemachine"
	"github.com/RidgetopAi/the-forge-sub002/internal/toolexec"
	"github.com/RidgetopAi/the-forge-sub002/internal/worker"
	"github.com/RidgetopAi/the-forge-sub002/internal/workers"
)

// maxSerializedBytes is the default ContextPackage size budget (spec.md §3:
// "total serialized size <= configured budget (default ~50 kB of text)").
const maxSerializedBytes = 50 * 1024

// contentType is the detected shape of the requested change, used by
// phase 7 to tailor acceptance criteria (spec.md §4.9 step 7).
type contentType string

const (
	contentDocumentation contentType = "documentation"
	contentTesting       contentType = "testing"
	contentConfiguration contentType = "configuration"
	contentCode          contentType = "code"
)

// Foreman is the Preparation Foreman (C9).
type Foreman struct {
	router  *llm.Router
	exec    *toolexec.Executor
	tracker *pattern.Tracker
	store   *persistence.Store
	packer  *contextpack.Packer
}

// New builds a Preparation Foreman over the given collaborators.
func New(router *llm.Router, exec *toolexec.Executor, tracker *pattern.Tracker, store *persistence.Store) *Foreman {
	return &Foreman{router: router, exec: exec, tracker: tracker, store: store, packer: contextpack.New(exec)}
}

// Prepare runs the 7-phase pipeline against mach's task and assembles a
// ContextPackage, transitioning the task to prepared on success or failed
// on a package-validation error (spec.md §4.9).
func (f *Foreman) Prepare(ctx context.Context, mach *statemachine.Machine) (*domain.ContextPackage, error) {
	log := logging.Get(logging.CategoryPersistence)
	task := mach.Task()
	if task.Classification == nil {
		return nil, fmt.Errorf("preparation: task %s has no classification", task.ID)
	}

	if err := mach.Transition(domain.StatePreparing, "preparation-foreman", "preparation started"); err != nil {
		log.Warnw("preparing transition failed", "task_id", task.ID, "error", err)
	}

	// Phase 2: Architectural Discovery.
	keywords := extractKeywords(task.RawRequest)
	heuristicRefs := discoverFiles(f.exec, task.RawRequest, keywords)

	discoveryResult := f.runFileDiscovery(ctx, task, keywords, heuristicRefs)
	mustRead := mergeFileRefs(heuristicRefs, discoveryResult.relevantFiles)

	// Phase 3: Code Context Assembly.
	arch := f.assembleArchitecture(ctx, task, mustRead)

	// Phase 4: Pattern Synthesis.
	patterns := f.synthesizePatterns(ctx, task, mustRead)

	// Phase 5: Risk Assessment.
	risks := assessRisks(mustRead, arch)

	// Phase 6: Learning Retrieval.
	history := f.retrieveHistory(ctx, task)

	// Phase 7: task-type-aware content generation.
	ctype := detectContentType(mustRead, keywords)
	acceptance, quality := generateAcceptanceCriteria(ctype, task)

	// relatedExamples never repeats a mustRead path (validatePackage rejects
	// any overlap between the two lists).
	inMustRead := make(map[string]bool, len(mustRead))
	for _, r := range mustRead {
		inMustRead[r.Path] = true
	}
	var relatedExamples []domain.FileRef
	for _, r := range topRelatedExamples(mustRead, 5) {
		if !inMustRead[r.Path] {
			relatedExamples = append(relatedExamples, r)
		}
	}

	pkg := domain.ContextPackage{
		ID:          uuid.NewString(),
		ProjectType: task.Classification.ProjectType,
		PreparedBy:  "preparation-foreman",
		Task: domain.TaskDescription{
			Description:        task.RawRequest,
			AcceptanceCriteria: acceptance,
			Scope:              domain.TaskScope{In: keywords},
		},
		Architecture: arch,
		CodeContext: domain.CodeContext{
			MustRead:        dedupeFileRefs(mustRead),
			RelatedExamples: dedupeFileRefs(relatedExamples),
		},
		Patterns: patterns,
		Constraints: domain.Constraints{
			Quality: quality,
		},
		Risks:        risks,
		History:      history,
		HumanSyncReq: domain.HumanSync{},
	}

	if err := validatePackage(&pkg, f.exec); err != nil {
		if terr := mach.Transition(domain.StateFailed, "preparation-foreman", err.Error()); terr != nil {
			log.Warnw("failed transition failed", "task_id", task.ID, "error", terr)
		}
		return nil, err
	}

	if _, err := f.store.StoreContext(ctx,
		fmt.Sprintf("prepared context package %s for task %s", pkg.ID, task.ID),
		persistence.ContextPlanning, []string{task.ID, string(pkg.ProjectType)}); err != nil {
		log.Warnw("context package persist-on-write failed", "task_id", task.ID, "error", err)
	}

	if err := mach.SetContextPackage(pkg); err != nil {
		log.Warnw("set context package failed", "task_id", task.ID, "error", err)
	}
	if err := mach.Transition(domain.StatePrepared, "preparation-foreman", "preparation complete"); err != nil {
		log.Warnw("prepared transition failed", "task_id", task.ID, "error", err)
	}

	return &pkg, nil
}

type fileDiscoveryOutput struct {
	relevantFiles []domain.FileRef
}

// runFileDiscovery invokes the FileDiscovery worker (C5) with
// keywords+request+projectType; S0-S3 output primes AdditionalContext so
// the worker can reason from a head start instead of re-deriving it.
func (f *Foreman) runFileDiscovery(ctx context.Context, task *domain.Task, keywords []string, heuristic []domain.FileRef) fileDiscoveryOutput {
	w := workers.FileDiscovery()
	var b strings.Builder
	fmt.Fprintf(&b, "Keywords: %s\nProject type: %s\nHeuristically discovered candidates:\n", strings.Join(keywords, ", "), task.Classification.ProjectType)
	for _, r := range heuristic {
		fmt.Fprintf(&b, "- %s (%s, %s)\n", r.Path, r.Priority, r.Reason)
	}

	res := w.Execute(ctx, f.router, f.exec, worker.ExecuteRequest{
		Task:              *task,
		ProjectRoot:       f.exec.ProjectRoot(),
		AdditionalContext: b.String(),
	})
	if !res.Success {
		logging.Get(logging.CategoryWorker).Warnw("file discovery worker failed, falling back to heuristic-only", "task_id", task.ID, "error", res.Error)
		return fileDiscoveryOutput{}
	}

	var out fileDiscoveryOutput
	if raw, ok := res.Data["relevantFiles"].([]any); ok {
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out.relevantFiles = append(out.relevantFiles, domain.FileRef{
				Path:     stringField(m, "path"),
				Reason:   stringField(m, "reason"),
				Priority: domain.Priority(stringField(m, "priority")),
			})
		}
	}
	return out
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func mergeFileRefs(a, b []domain.FileRef) []domain.FileRef {
	return append(append([]domain.FileRef{}, a...), b...)
}

func dedupeFileRefs(refs []domain.FileRef) []domain.FileRef {
	seen := make(map[string]bool)
	var out []domain.FileRef
	for _, r := range refs {
		if seen[r.Path] {
			continue
		}
		seen[r.Path] = true
		out = append(out, r)
	}
	return out
}

func topRelatedExamples(refs []domain.FileRef, n int) []domain.FileRef {
	sorted := append([]domain.FileRef{}, refs...)
	rank := map[domain.Priority]int{domain.PriorityHigh: 3, domain.PriorityMedium: 2, domain.PriorityLow: 1}
	sort.SliceStable(sorted, func(i, j int) bool { return rank[sorted[i].Priority] > rank[sorted[j].Priority] })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
