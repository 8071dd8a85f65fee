// Package preparation implements the Preparation Foreman (C9): the ordered
// 7-phase pipeline that turns a classified Task into an immutable
// ContextPackage.
//
// Grounded on the teacher's internal/context/feedback_store.go +
// internal/init/scanner.go pairing (request-keyword extraction feeding a
// multi-strategy file scan, then assembling a structured package) scaled up
// from the teacher's single-purpose project scanner to spec.md §4.9's four
// composed discovery strategies.
package preparation

import (
	"regexp"
	"strings"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/toolexec"
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "to": true,
	"of": true, "in": true, "on": true, "for": true, "with": true, "is": true,
	"it": true, "be": true, "that": true, "this": true, "as": true, "at": true,
	"from": true, "by": true, "into": true, "add": true, "please": true,
}

var codeNoiseWords = map[string]bool{
	"get": true, "set": true, "new": true, "data": true, "value": true,
	"item": true, "list": true, "type": true, "name": true, "test": true,
	"file": true, "code": true, "function": true, "use": true, "make": true,
}

var explicitPathPattern = regexp.MustCompile(`[\w./-]+\.(go|ts|tsx|js|jsx|py|rs|java|rb|md|json|yaml|yml)\b`)
var identifierPattern = regexp.MustCompile(`\b([A-Z][a-zA-Z0-9]*[a-z][A-Za-z0-9]*|[a-z]+[A-Z][a-zA-Z0-9]*)\b`)

// extractKeywords pulls stopword-filtered lowercase keywords out of
// rawRequest (spec.md §4.9 phase 2).
func extractKeywords(rawRequest string) []string {
	fields := strings.FieldsFunc(strings.ToLower(rawRequest), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	var out []string
	seen := make(map[string]bool)
	for _, f := range fields {
		if len(f) < 3 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// meaningfulKeywords filters codeNoiseWords out for S3 content matching.
func meaningfulKeywords(keywords []string) []string {
	var out []string
	for _, k := range keywords {
		if !codeNoiseWords[k] {
			out = append(out, k)
		}
	}
	return out
}

var taskTypeTriggers = map[string][]string{
	"readme_docs":   {"readme", "docs", "documentation", "document"},
	"test_spec":     {"test", "spec", "testing"},
	"config_setup":  {"config", "setup", "configuration", "settings"},
}

// discoverFiles runs S0-S3 against exec, returning a deduplicated set of
// domain.FileRef in no particular order. Priority promotion on overlap: a path
// discovered by more than one strategy keeps its highest-priority match
// (S0 > S1 > S2 > S3).
func discoverFiles(exec *toolexec.Executor, rawRequest string, keywords []string) []domain.FileRef {
	priorityRank := map[domain.Priority]int{domain.PriorityHigh: 3, domain.PriorityMedium: 2, domain.PriorityLow: 1}
	found := make(map[string]domain.FileRef)

	promote := func(path string, reason string, priority domain.Priority) {
		path = strings.TrimSpace(path)
		if path == "" {
			return
		}
		existing, ok := found[path]
		if !ok || priorityRank[priority] > priorityRank[existing.Priority] {
			found[path] = domain.FileRef{Path: path, Reason: reason, Priority: priority}
		}
	}

	// S0: explicit references (literal paths + camelCase/PascalCase identifiers).
	for _, m := range explicitPathPattern.FindAllString(rawRequest, -1) {
		promote(m, "explicit file reference in request", domain.PriorityHigh)
	}
	for _, m := range identifierPattern.FindAllString(rawRequest, -1) {
		res := exec.Grep(m, "")
		if !res.Success {
			continue
		}
		for _, line := range strings.Split(res.Output, "\n") {
			if path := pathFromGrepLine(line); path != "" {
				promote(path, "defines referenced identifier '"+m+"'", domain.PriorityHigh)
			}
		}
	}

	// S1: task-type files via keyword triggers.
	for trigger, words := range taskTypeTriggers {
		if !anyContains(keywords, words) {
			continue
		}
		var pattern string
		switch trigger {
		case "readme_docs":
			pattern = "*.md"
		case "test_spec":
			pattern = "*test*"
		case "config_setup":
			pattern = "*config*"
		}
		res := exec.Glob(pattern)
		if !res.Success {
			continue
		}
		for _, line := range strings.Split(res.Output, "\n") {
			promote(line, "task-type trigger: "+trigger, domain.PriorityMedium)
		}
	}

	// S2: path match - glob for keyword substrings >= 3 chars.
	for _, kw := range keywords {
		if len(kw) < 3 {
			continue
		}
		res := exec.Glob("*" + kw + "*")
		if !res.Success {
			continue
		}
		for _, line := range strings.Split(res.Output, "\n") {
			promote(line, "path matches keyword '"+kw+"'", domain.PriorityMedium)
		}
	}

	// S3: content match on meaningful keywords only.
	for _, kw := range meaningfulKeywords(keywords) {
		res := exec.Grep(kw, "")
		if !res.Success {
			continue
		}
		for _, line := range strings.Split(res.Output, "\n") {
			if path := pathFromGrepLine(line); path != "" {
				promote(path, "content matches keyword '"+kw+"'", domain.PriorityLow)
			}
		}
	}

	var out []domain.FileRef
	for path, ref := range found {
		if shouldExcludeDiscovered(path, ref.Priority == domain.PriorityHigh) {
			continue
		}
		out = append(out, ref)
		_ = path
	}
	return out
}

// pathFromGrepLine extracts the leading "path:" prefix Executor.Grep emits
// (the teacher's grep helper formats matches as "path:lineNo:text").
func pathFromGrepLine(line string) string {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return ""
	}
	return line[:idx]
}

func anyContains(haystack []string, needles []string) bool {
	for _, h := range haystack {
		for _, n := range needles {
			if h == n {
				return true
			}
		}
	}
	return false
}

var nonCodeExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".lock": true, ".sum": true, ".ico": true, ".woff": true, ".woff2": true,
}

// shouldExcludeDiscovered drops directories, dist/ paths, and non-code
// extensions, unless the file was promoted via an explicit reference
// (spec.md §4.9 post-filter).
func shouldExcludeDiscovered(path string, wasExplicit bool) bool {
	if wasExplicit {
		return false
	}
	if path == "" || strings.HasSuffix(path, "/") {
		return true
	}
	if strings.Contains(path, "/dist/") || strings.HasPrefix(path, "dist/") {
		return true
	}
	for ext := range nonCodeExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
