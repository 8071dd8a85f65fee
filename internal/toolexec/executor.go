// Package toolexec implements the Tool Executor (C1): safe sandboxed
// glob/read/grep against a project root, plus the submit_result pseudo-tool
// that terminates a worker loop. Grounded on the teacher's
// internal/tools/core/file_ops.go and internal/tools/registry.go, adapted
// from a general-purpose file-editing toolset to the read-only exploration
// set spec.md §4.1 calls for (code generation's actual writes happen later,
// in internal/execution, via internal/diffapply).
package toolexec

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	globResultCap = 100
	grepResultCap = 50
	readFileCap   = 100 * 1024 // 100 kB
)

// oracleFileName is the test oracle filename workers must never be able to read.
const oracleFileName = "ground-truth.json"

var ignoredDirs = map[string]bool{
	"node_modules":  true,
	".git":          true,
	"vendor":        true,
	"dist":          true,
	"build":         true,
	"__pycache__":   true,
	"coverage":      true,
	".next":         true,
	"target":        true,
}

// codeExtensions is the fixed set grep() searches over.
var codeExtensions = map[string]bool{
	".go": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".py": true, ".rs": true, ".java": true, ".rb": true, ".md": true,
	".json": true, ".yaml": true, ".yml": true, ".txt": true,
}

// Result is the uniform shape every tool call returns; no exceptions escape
// a call, per spec.md §4.1.
type Result struct {
	Success bool
	Output  string
	Error   string
}

// Executor runs glob/read/grep against one fixed project root.
type Executor struct {
	projectRoot string
}

// New resolves projectRoot to an absolute path and returns an Executor
// bound to it. All subsequent tool calls are sandboxed to this root.
func New(projectRoot string) (*Executor, error) {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}
	return &Executor{projectRoot: abs}, nil
}

// ProjectRoot returns the absolute project root this executor is bound to.
func (e *Executor) ProjectRoot() string {
	return e.projectRoot
}

func (e *Executor) resolve(path string) (string, error) {
	joined := filepath.Join(e.projectRoot, path)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(e.projectRoot, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("outside project root")
	}
	return abs, nil
}

func shouldSkipDir(name string) bool {
	return ignoredDirs[name] || strings.HasPrefix(name, ".")
}

// Glob returns newline-joined relative paths matching pattern, capped at
// globResultCap with a truncation notice appended when exceeded.
func (e *Executor) Glob(pattern string) Result {
	var matches []string
	err := filepath.Walk(e.projectRoot, func(p string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if info.IsDir() {
			if p != e.projectRoot && shouldSkipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(e.projectRoot, p)
		if relErr != nil {
			return nil
		}
		ok, matchErr := filepath.Match(pattern, rel)
		if matchErr == nil && ok {
			matches = append(matches, rel)
			return nil
		}
		// Also match basename, a common glob-tool convenience.
		if ok2, _ := filepath.Match(pattern, filepath.Base(rel)); ok2 {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	sort.Strings(matches)
	truncated := false
	if len(matches) > globResultCap {
		matches = matches[:globResultCap]
		truncated = true
	}
	out := strings.Join(matches, "\n")
	if truncated {
		out += fmt.Sprintf("\n... (truncated, showing first %d matches)", globResultCap)
	}
	return Result{Success: true, Output: out}
}

// Read returns the contents of path, truncating files over readFileCap with
// an explicit notice. Rejects paths outside the project root, directories,
// and the test oracle file.
func (e *Executor) Read(path string) Result {
	if filepath.Base(path) == oracleFileName {
		return Result{Success: false, Error: "access denied: test oracle file"}
	}

	abs, err := e.resolve(path)
	if err != nil {
		return Result{Success: false, Error: "outside project root"}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if info.IsDir() {
		return Result{Success: false, Error: "path is a directory"}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	content := string(data)
	if len(data) > readFileCap {
		content = string(data[:readFileCap]) + fmt.Sprintf("\n... (truncated, file is %d bytes)", len(data))
	}
	return Result{Success: true, Output: content}
}

// GrepMatch is one matching line.
type GrepMatch struct {
	Path string
	Line int
	Text string
}

// Grep searches code/doc files under path (or the whole project root if
// path is empty) for pattern, case-insensitively, capped at grepResultCap
// matches. Binary-unreadable files are skipped silently.
func (e *Executor) Grep(pattern, path string) Result {
	root := e.projectRoot
	if path != "" {
		abs, err := e.resolve(path)
		if err != nil {
			return Result{Success: false, Error: "outside project root"}
		}
		root = abs
	}

	needle := strings.ToLower(pattern)
	var matches []GrepMatch

	err := filepath.Walk(root, func(p string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if len(matches) >= grepResultCap {
			return filepath.SkipAll
		}
		if info.IsDir() {
			if p != root && shouldSkipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !codeExtensions[strings.ToLower(filepath.Ext(p))] {
			return nil
		}

		f, openErr := os.Open(p)
		if openErr != nil {
			return nil
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if !isValidUTF8ish(line) {
				return nil // binary file, skip silently
			}
			if strings.Contains(strings.ToLower(line), needle) {
				rel, _ := filepath.Rel(e.projectRoot, p)
				matches = append(matches, GrepMatch{Path: rel, Line: lineNo, Text: line})
				if len(matches) >= grepResultCap {
					return filepath.SkipAll
				}
			}
		}
		return nil
	})
	if err != nil && err != filepath.SkipAll {
		return Result{Success: false, Error: err.Error()}
	}

	truncated := len(matches) >= grepResultCap
	var b strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&b, "%s:%d: %s\n", m.Path, m.Line, m.Text)
	}
	if truncated {
		fmt.Fprintf(&b, "... (truncated, showing first %d matches)\n", grepResultCap)
	}
	return Result{Success: true, Output: strings.TrimRight(b.String(), "\n")}
}

// isValidUTF8ish is a cheap binary-content heuristic: a NUL byte anywhere
// in the line means we treat the file as binary and stop reading it.
func isValidUTF8ish(s string) bool {
	return !strings.ContainsRune(s, 0)
}
