// Package feedback implements the Feedback Router (C7): a deterministic
// error categorizer followed by a tier-aware retry/escalate/human_sync
// decider, with an opus-tier fallback for errors the deterministic rules
// cannot classify.
//
// Grounded on the teacher's internal/shards/tester/detection.go framework/
// category detection style (ordered switch over literal substrings and
// extensions, no ML classifier) generalized to spec.md §4.7's error-message
// categories.
package feedback

import "regexp"

// Category is the closed set of error categories spec.md §4.7 names, plus
// the dependency_error category recovered from original_source (SPEC_FULL.md
// §4.5).
type Category string

const (
	CategoryTypeError        Category = "type_error"
	CategoryDependencyError  Category = "dependency_error"
	CategoryCompilationError Category = "compilation_error"
	CategoryTestFailure      Category = "test_failure"
	CategoryLintError        Category = "lint_error"
	CategoryTimeout          Category = "timeout"
	CategoryRuntimeError     Category = "runtime_error"
	CategoryUnknown          Category = "unknown"
)

var (
	typeErrorPattern       = regexp.MustCompile(`(?i)\bTS\d{3,5}\b|error TS\d|is not assignable to type|has no exported member`)
	dependencyErrorPattern = regexp.MustCompile(`(?i)cannot find module|module not found|no required module provides package|cannot find package|missing go\.sum entry|ModuleNotFoundError|unresolved import`)
	compilationErrorPattern = regexp.MustCompile(`(?i)syntax error|unexpected token|parse error|expected expression|cannot parse|compile error|SyntaxError`)
	testFailurePattern      = regexp.MustCompile(`(?i)\bFAIL\b|\bfailed\b|expected .* (to equal|received)|assertion`)
	lintErrorPattern        = regexp.MustCompile(`(?i)eslint|prettier`)
	timeoutPattern          = regexp.MustCompile(`(?i)timed out|\btimeout\b|ETIMEDOUT|context deadline exceeded`)
	runtimeErrorPattern     = regexp.MustCompile(`(?i)error|exception|nil pointer dereference|null pointer|panic:`)
)

// CategorizeError classifies an error message deterministically. Priority
// order matches spec.md §4.7 with dependency_error recovered from
// original_source inserted between type_error and compilation_error.
func CategorizeError(text string) Category {
	switch {
	case typeErrorPattern.MatchString(text):
		return CategoryTypeError
	case dependencyErrorPattern.MatchString(text):
		return CategoryDependencyError
	case compilationErrorPattern.MatchString(text):
		return CategoryCompilationError
	case testFailurePattern.MatchString(text):
		return CategoryTestFailure
	case lintErrorPattern.MatchString(text):
		return CategoryLintError
	case timeoutPattern.MatchString(text):
		return CategoryTimeout
	case runtimeErrorPattern.MatchString(text):
		return CategoryRuntimeError
	default:
		return CategoryUnknown
	}
}
