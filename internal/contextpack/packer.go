package contextpack

import (
	"path/filepath"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/toolexec"
)

// priorityWeight gives high-priority files a larger proportional share of
// the budget. Weights are relative, not percentages.
var priorityWeight = map[domain.Priority]int{
	domain.PriorityHigh:   4,
	domain.PriorityMedium: 2,
	domain.PriorityLow:    1,
}

// highPriorityFloor is the minimum token allocation a high-priority file
// receives even when proportional weighting would give it less, per
// spec.md §4.3 ("ensuring every high priority file receives at least a
// minimum floor if it fits").
const highPriorityFloor = 500

// Packer runs the Context Budget Packer (C3) against files readable
// through a toolexec.Executor bound to the project root.
type Packer struct {
	exec *toolexec.Executor
}

// New binds a Packer to an already-constructed Executor so path resolution
// and the oracle-file/outside-root guards are shared with the rest of the
// pipeline's read path.
func New(exec *toolexec.Executor) *Packer {
	return &Packer{exec: exec}
}

// Pack implements the three-stage algorithm of spec.md §4.3: proportional
// budget allocation, then per-file full/signatures/truncated/excluded
// extraction, preserving input order throughout.
func (p *Packer) Pack(inputs []domain.FileRef, budget int) ([]domain.BudgetedFile, domain.PackSummary) {
	if budget < 0 {
		budget = 40000
	}

	allocations := allocate(inputs, budget)

	out := make([]domain.BudgetedFile, len(inputs))
	summary := domain.PackSummary{TotalFiles: len(inputs)}

	for i, ref := range inputs {
		allocated := allocations[i]
		res := p.exec.Read(ref.Path)
		if !res.Success {
			out[i] = domain.BudgetedFile{Path: ref.Path, ExtractionMethod: domain.ExtractionExcluded}
			summary.Excluded++
			continue
		}

		content := res.Output
		full := EstimateTokens(content)

		switch {
		case full <= allocated:
			out[i] = domain.BudgetedFile{Path: ref.Path, Content: content, ExtractionMethod: domain.ExtractionFull, AllocatedTokens: full}
			summary.IncludedFull++
			summary.TotalTokensUsed += full
			continue
		}

		if sig, ok := extractSignaturesFor(ref.Path, content); ok {
			if t := EstimateTokens(sig); t <= allocated {
				out[i] = domain.BudgetedFile{Path: ref.Path, Content: sig, ExtractionMethod: domain.ExtractionSignatures, AllocatedTokens: t}
				summary.IncludedSignatures++
				summary.TotalTokensUsed += t
				continue
			}
		}

		if allocated > 0 {
			truncated := SmartTruncate(content, allocated)
			t := EstimateTokens(truncated)
			out[i] = domain.BudgetedFile{Path: ref.Path, Content: truncated, ExtractionMethod: domain.ExtractionTruncated, AllocatedTokens: t}
			summary.IncludedTruncated++
			summary.TotalTokensUsed += t
			continue
		}

		out[i] = domain.BudgetedFile{Path: ref.Path, ExtractionMethod: domain.ExtractionExcluded}
		summary.Excluded++
	}

	summary.BudgetRemaining = budget - summary.TotalTokensUsed
	if summary.BudgetRemaining < 0 {
		summary.BudgetRemaining = 0
	}
	return out, summary
}

// extractSignaturesFor dispatches to the tree-sitter extractor for a
// recognized extension, falling back to the keyword-line heuristic for
// anything else (SPEC_FULL.md §4.3).
func extractSignaturesFor(path, content string) (string, bool) {
	ext := filepath.Ext(path)
	if sig, ok := ExtractSignatures(path, ext, content); ok {
		return sig, true
	}
	if h := ExtractSignaturesHeuristic(content); h != "" {
		return h, true
	}
	return "", false
}

// allocate distributes budget across inputs proportional to priority
// weight, preserving input order in the returned slice, and guarantees
// every high-priority file at least highPriorityFloor tokens when the
// remaining budget can still cover it.
func allocate(inputs []domain.FileRef, budget int) []int {
	n := len(inputs)
	allocations := make([]int, n)
	if n == 0 {
		return allocations
	}

	totalWeight := 0
	for _, ref := range inputs {
		totalWeight += priorityWeight[ref.Priority]
	}
	if totalWeight == 0 {
		totalWeight = n
	}

	remaining := budget
	for i, ref := range inputs {
		w := priorityWeight[ref.Priority]
		if w == 0 {
			w = 1
		}
		share := budget * w / totalWeight
		if ref.Priority == domain.PriorityHigh && share < highPriorityFloor && remaining >= highPriorityFloor {
			share = highPriorityFloor
		}
		if share > remaining {
			share = remaining
		}
		allocations[i] = share
		remaining -= share
	}
	return allocations
}
