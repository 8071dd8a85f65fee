// Package pattern implements the Learning / Pattern Tracker (C6): a
// process-wide map of patternId → PatternScore, lazily rehydrated from the
// persistence collaborator on first use, written by the Feedback Router
// (C7) and the Execution Foreman (C10), and read by the Preparation
// Foreman (C9) when recommending conventions to follow.
//
// Grounded on the teacher's internal/store/learning.go / learned_store.go
// pairing (in-memory scored index backed by a SQLite-persisted table,
// loaded once and explicitly reloadable) generalized from the teacher's
// prompt-evolution scoring to spec.md §4.6's successCount/failureCount
// scheme.
package pattern

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
	"github.com/RidgetopAi/the-forge-sub002/internal/persistence"
)

// RecommendThreshold is the minimum success rate a pattern must clear to be
// recommended (spec.md §4.6).
const RecommendThreshold = 0.7

// Tracker is the process-wide pattern tracker. The zero value is not usable;
// construct with New. Safe for concurrent use: one mutex guards both the
// map and the loaded flag, matching spec.md's "single-writer, readers may
// observe any consistent snapshot" shared-resource policy.
type Tracker struct {
	store *persistence.Store

	mu       sync.Mutex
	loaded   bool
	patterns map[string]domain.PatternScore
}

// New builds a Tracker over store. Nothing is read from store until the
// first operation touches the map (lazy load).
func New(store *persistence.Store) *Tracker {
	return &Tracker{store: store, patterns: make(map[string]domain.PatternScore)}
}

// ensureLoaded rehydrates the map from the store exactly once per process
// unless Reload is called. Caller must hold t.mu.
func (t *Tracker) ensureLoaded(ctx context.Context) {
	if t.loaded {
		return
	}
	log := logging.Get(logging.CategoryPersistence)
	scores, err := t.store.LoadPatternScores(ctx)
	if err != nil {
		log.Warnw("pattern tracker lazy load failed, starting empty", "error", err)
	}
	t.patterns = make(map[string]domain.PatternScore, len(scores))
	for _, s := range scores {
		t.patterns[s.PatternID] = s
	}
	t.loaded = true
}

// IsLoaded reports whether the map has been rehydrated yet.
func (t *Tracker) IsLoaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded
}

// Reload clears the in-memory map and re-reads it from the store.
func (t *Tracker) Reload(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loaded = false
	t.ensureLoaded(ctx)
}

// GetPattern returns the named pattern and whether it exists.
func (t *Tracker) GetPattern(ctx context.Context, patternID string) (domain.PatternScore, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureLoaded(ctx)
	p, ok := t.patterns[patternID]
	return p, ok
}

// GetAllPatterns returns a snapshot of every tracked pattern.
func (t *Tracker) GetAllPatterns(ctx context.Context) []domain.PatternScore {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureLoaded(ctx)
	out := make([]domain.PatternScore, 0, len(t.patterns))
	for _, p := range t.patterns {
		out = append(out, p)
	}
	return out
}

// GetRecommendedPatterns returns patterns whose success rate is at or above
// RecommendThreshold and whose Contexts either include context or are empty
// (universal), sorted by success rate descending and capped at limit.
func (t *Tracker) GetRecommendedPatterns(ctx context.Context, scopeCtx string, limit int) []domain.PatternScore {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureLoaded(ctx)

	var candidates []domain.PatternScore
	for _, p := range t.patterns {
		if p.SuccessRate() < RecommendThreshold {
			continue
		}
		if len(p.Contexts) > 0 && !containsContext(p.Contexts, scopeCtx) {
			continue
		}
		candidates = append(candidates, p)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].SuccessRate() > candidates[j].SuccessRate()
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func containsContext(contexts []string, scopeCtx string) bool {
	for _, c := range contexts {
		if c == scopeCtx {
			return true
		}
	}
	return false
}

// RecordSuccess increments a pattern's successCount (creating it if absent,
// defaulting name to patternID), updates lastUsed, and persists
// best-effort: a store failure is logged, not returned, per spec.md's
// persist-on-write policy.
func (t *Tracker) RecordSuccess(ctx context.Context, patternID string, contexts []string) {
	t.upsert(ctx, patternID, contexts, func(p *domain.PatternScore) { p.SuccessCount++ })
}

// RecordFailure is RecordSuccess's mirror, incrementing failureCount.
func (t *Tracker) RecordFailure(ctx context.Context, patternID string, contexts []string) {
	t.upsert(ctx, patternID, contexts, func(p *domain.PatternScore) { p.FailureCount++ })
}

func (t *Tracker) upsert(ctx context.Context, patternID string, contexts []string, mutate func(*domain.PatternScore)) {
	t.mu.Lock()
	t.ensureLoaded(ctx)

	p, ok := t.patterns[patternID]
	if !ok {
		p = domain.PatternScore{PatternID: patternID, Name: patternID}
	}
	if len(contexts) > 0 {
		p.Contexts = mergeContexts(p.Contexts, contexts)
	}
	mutate(&p)
	p.LastUsed = time.Now().UTC()
	t.patterns[patternID] = p
	t.mu.Unlock()

	log := logging.Get(logging.CategoryPersistence)
	if err := t.store.SavePatternScore(ctx, p); err != nil {
		log.Warnw("pattern persist failed", "pattern_id", patternID, "error", err)
	}
}

func mergeContexts(existing, add []string) []string {
	seen := make(map[string]bool, len(existing))
	out := append([]string{}, existing...)
	for _, c := range existing {
		seen[c] = true
	}
	for _, c := range add {
		if !seen[c] {
			out = append(out, c)
			seen[c] = true
		}
	}
	return out
}
