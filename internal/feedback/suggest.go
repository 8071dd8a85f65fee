package feedback

import (
	"fmt"
	"regexp"
)

var (
	ts2304Pattern = regexp.MustCompile(`TS2304.*?'([^']+)'`)
	ts2339Pattern = regexp.MustCompile(`TS2339.*?'([^']+)'.*?'([^']+)'`)
	dependencyModulePattern = regexp.MustCompile(`(?i)(?:cannot find module|module not found|cannot find package)\s+['"]([^'"]+)['"]`)
)

// suggestTypeErrorFix mines a targeted fix out of a TypeScript-style
// diagnostic message (spec.md §4.7: "TS2304 -> Import or declare '<name>'",
// "TS2339 -> Property '<X>' missing on '<Y>'"). Falls back to a generic hint
// when the message doesn't match a known diagnostic code.
func suggestTypeErrorFix(message string) string {
	if m := ts2304Pattern.FindStringSubmatch(message); m != nil {
		return fmt.Sprintf("Import or declare '%s'", m[1])
	}
	if m := ts2339Pattern.FindStringSubmatch(message); m != nil {
		return fmt.Sprintf("Property '%s' missing on '%s'", m[1], m[2])
	}
	return "Review the reported type mismatch and correct the declaration or assignment"
}

// suggestDependencyFix mines the missing module/package name out of a
// dependency_error message (SPEC_FULL.md §4.5).
func suggestDependencyFix(message string) string {
	if m := dependencyModulePattern.FindStringSubmatch(message); m != nil {
		return fmt.Sprintf("install or vendor '%s'", m[1])
	}
	return "install or vendor the missing dependency"
}
