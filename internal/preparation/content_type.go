package preparation

import (
	"strings"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
)

// detectContentType picks the task-type-aware shape phase 7 tailors
// acceptance criteria for (spec.md §4.9 phase 7).
func detectContentType(mustRead []domain.FileRef, keywords []string) contentType {
	if keywordsMention(keywords, "readme", "docs", "documentation", "document") {
		return contentDocumentation
	}
	if allFilesMatch(mustRead, ".md") {
		return contentDocumentation
	}
	if keywordsMention(keywords, "test", "spec", "testing") || allFilesMatch(mustRead, "_test.go", ".test.ts", ".spec.ts") {
		return contentTesting
	}
	if keywordsMention(keywords, "config", "configuration", "settings") || allFilesMatch(mustRead, ".yaml", ".yml", ".json", ".toml") {
		return contentConfiguration
	}
	return contentCode
}

func keywordsMention(keywords []string, targets ...string) bool {
	for _, k := range keywords {
		for _, t := range targets {
			if k == t {
				return true
			}
		}
	}
	return false
}

func allFilesMatch(refs []domain.FileRef, suffixes ...string) bool {
	if len(refs) == 0 {
		return false
	}
	for _, r := range refs {
		matched := false
		for _, sfx := range suffixes {
			if strings.HasSuffix(r.Path, sfx) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// generateAcceptanceCriteria produces criteria appropriate to ctype.
// Documentation tasks deliberately omit a "compilation must pass" criterion
// (spec.md §4.9: "documentation tasks do not carry a 'TypeScript compilation
// must pass' criterion").
func generateAcceptanceCriteria(ctype contentType, task *domain.Task) (acceptance []string, quality []string) {
	switch ctype {
	case contentDocumentation:
		return []string{
				"the documentation accurately describes the requested change",
				"no broken internal links or malformed markdown are introduced",
			}, []string{
				"written in clear, concise prose consistent with the rest of the docs",
			}
	case contentTesting:
		return []string{
				"new or updated tests exercise the described behavior",
				"the test suite passes",
			}, []string{
				"tests avoid redundant mechanical marshal/unmarshal-style coverage",
			}
	case contentConfiguration:
		return []string{
				"the configuration change takes effect without requiring unrelated code changes",
				"existing configuration keys remain backward compatible unless the request says otherwise",
			}, []string{
				"follows the project's existing configuration file conventions",
			}
	default:
		return []string{
				"the code compiles successfully",
				"the requested behavior is implemented and observably correct",
			}, []string{
				"follows the project's existing naming and error-handling conventions",
			}
	}
}
