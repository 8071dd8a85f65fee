package contextpack

import "strings"

// SmartTruncate keeps roughly maxTokens worth of content, cutting only at
// line boundaries, and appends a closing "}" line for every opening brace
// the kept lines leave unclosed (spec.md §4.3: "don't split
// mid-identifier, keep opening braces with their closers where possible").
func SmartTruncate(content string, maxTokens int) string {
	maxBytes := maxTokens * 4
	if maxBytes <= 0 || len(content) <= maxBytes {
		return content
	}

	lines := strings.Split(content, "\n")
	var kept []string
	used := 0
	for _, line := range lines {
		cost := len(line) + 1
		if used+cost > maxBytes {
			break
		}
		kept = append(kept, line)
		used += cost
	}

	out := strings.Join(kept, "\n")

	depth := 0
	for _, r := range out {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
		}
	}
	for depth > 0 {
		out += "\n}"
		depth--
	}

	return out + "\n... (truncated)"
}
