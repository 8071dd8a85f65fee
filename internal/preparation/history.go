package preparation

import (
	"context"
	"fmt"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
	"github.com/RidgetopAi/the-forge-sub002/internal/persistence"
)

// historySearchLimit caps how many previous records phase 6 surfaces, to
// keep HistoricalContext small enough to fit the package size budget.
const historySearchLimit = 5

// retrieveHistory runs phase 6: query the persistence store for previous
// attempts and decisions similar to the current request (spec.md §4.9).
// This is a plain store lookup, not an LLM call — the retrieval itself is
// deterministic; any LLM summarization of what's retrieved happens
// downstream if a caller chooses to invoke OpLearningRetrieval.
func (f *Foreman) retrieveHistory(ctx context.Context, task *domain.Task) domain.HistoricalContext {
	log := logging.Get(logging.CategoryPersistence)
	keywords := extractKeywords(task.RawRequest)

	var attempts, decisions []string
	for i, kw := range keywords {
		if i >= historySearchLimit {
			break
		}
		ids, err := f.store.SearchContext(ctx, kw)
		if err != nil {
			log.Warnw("learning retrieval search failed", "keyword", kw, "error", err)
			continue
		}
		for _, id := range ids {
			rec, err := f.store.GetContextByID(ctx, id)
			if err != nil || rec == nil {
				continue
			}
			switch rec.Type {
			case persistence.ContextDecision:
				decisions = append(decisions, rec.Content)
			case persistence.ContextPlanning, persistence.ContextCompletion, persistence.ContextError:
				attempts = append(attempts, fmt.Sprintf("[%s] %s", rec.Type, rec.Content))
			}
		}
	}

	return domain.HistoricalContext{
		PreviousAttempts: dedupeStrings(attempts, historySearchLimit),
		RelatedDecisions: dedupeStrings(decisions, historySearchLimit),
	}
}

func dedupeStrings(in []string, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) >= limit {
			break
		}
	}
	return out
}
