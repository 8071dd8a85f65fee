// Package plant implements the Plant Manager (C8): intake, classification,
// department routing, and blocked-task escalation/resumption.
//
// Grounded on the teacher's internal/core/predicate_corpus.go keyword-
// scoring style (closed vocabulary, per-category score tally, no ML
// classifier) generalized from predicate matching to spec.md §4.8's
// projectType/scope classification.
package plant

import "strings"

// projectTypeKeywords is the small closed vocabulary spec.md §4.8 calls
// for: one keyword set per domain.ProjectType.
var projectTypeKeywords = map[string][]string{
	"bugfix":     {"fix", "bug", "broken", "error", "crash", "regression", "incorrect", "failing"},
	"greenfield": {"new project", "scaffold", "bootstrap", "greenfield", "from scratch", "initialize"},
	"refactor":   {"refactor", "restructure", "clean up", "cleanup", "simplify", "reorganize", "rename"},
	"research":   {"research", "investigate", "explore options", "evaluate", "compare", "feasibility"},
	"feature":    {"add", "implement", "support", "introduce", "build", "create"},
}

// scopeModifiers is the word list spec.md §4.8's "scope derived from
// modifier words" refers to.
var scopeModifiers = map[string][]string{
	"large":  {"entire", "whole", "full", "all", "across the", "system-wide", "rewrite", "migrate"},
	"small":  {"tiny", "small", "quick", "minor", "typo", "one-line", "single"},
}

// classificationResult is the intermediate scoring output before
// confidence normalization.
type classificationResult struct {
	projectType string
	scope       string
	confidence  float64
}

// classify scores rawRequest against the closed vocabularies. Confidence is
// the winning project-type score normalized against total keyword hits
// across all types; zero hits anywhere yields a low-confidence "feature"
// default so callers still get a classification, with needsHumanSync set
// upstream since confidence < 0.5.
func classify(rawRequest string) classificationResult {
	text := strings.ToLower(rawRequest)

	scores := make(map[string]int)
	total := 0
	for pt, keywords := range projectTypeKeywords {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				scores[pt]++
				total++
			}
		}
	}

	best := "feature"
	bestScore := 0
	for pt, score := range scores {
		if score > bestScore {
			best = pt
			bestScore = score
		}
	}

	confidence := 0.4 // below the 0.5 human-sync threshold when nothing matched
	if total > 0 {
		confidence = float64(bestScore) / float64(total)
		if confidence > 1 {
			confidence = 1
		}
		// A single unambiguous match still deserves confident routing even
		// though bestScore/total would otherwise equal 1.0 only when every
		// hit landed in the winning category; keep the raw ratio, per
		// spec.md's plain "keyword-scored" description.
	}

	scope := "medium"
	for s, mods := range scopeModifiers {
		for _, m := range mods {
			if strings.Contains(text, m) {
				scope = s
			}
		}
	}

	return classificationResult{projectType: best, scope: scope, confidence: confidence}
}
