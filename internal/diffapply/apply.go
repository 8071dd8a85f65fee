// Package diffapply implements the surgical file-editing semantics of
// spec.md §4.10/§6 (submit_code_changes file ops) and a human-readable
// diff preview renderer (Preview). Grounded
// on the teacher's internal/diff/diff.go (sergi/go-diff based hunk
// computation, kept nearly verbatim for preview rendering) and
// internal/tools/core/file_ops.go (write semantics), generalized to the
// spec's create/modify/edit file-action triad.
package diffapply

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/errs"
)

// Applier writes GeneratedFile entries to disk under one project root.
type Applier struct {
	projectRoot string
}

// New binds an Applier to projectRoot (already resolved absolute by the
// caller, typically toolexec.Executor.ProjectRoot()).
func New(projectRoot string) *Applier {
	return &Applier{projectRoot: projectRoot}
}

// Apply performs file ops in order, returning the paths created and
// modified. Per spec.md §4.10, a missing `search` needle aborts only that
// file's edits: the file is left unchanged, the remaining files are still
// applied, and the first such failure is returned at the end. A
// create/modify failure (e.g. unwritable path) aborts the whole batch since
// later edits may depend on earlier creates.
func (a *Applier) Apply(files []domain.GeneratedFile) (created, modified []string, err error) {
	var editFailure error
	for _, f := range files {
		abs, rerr := a.resolve(f.Path)
		if rerr != nil {
			return created, modified, rerr
		}

		switch f.Action {
		case domain.ActionCreate:
			if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
				return created, modified, errs.FileOp(fmt.Sprintf("creating directories for %s", f.Path), err)
			}
			if err := os.WriteFile(abs, []byte(f.Content), 0644); err != nil {
				return created, modified, errs.FileOp(fmt.Sprintf("writing %s", f.Path), err)
			}
			created = append(created, f.Path)

		case domain.ActionModify:
			if err := os.WriteFile(abs, []byte(f.Content), 0644); err != nil {
				return created, modified, errs.FileOp(fmt.Sprintf("writing %s", f.Path), err)
			}
			modified = append(modified, f.Path)

		case domain.ActionEdit:
			original, rerr := os.ReadFile(abs)
			if rerr != nil {
				return created, modified, errs.FileOp(fmt.Sprintf("reading %s for edit", f.Path), rerr)
			}
			updated, editErr := ApplyEdits(string(original), f.Edits)
			if editErr != nil {
				if editFailure == nil {
					editFailure = editErr.WithDetail(f.Path)
				}
				continue
			}
			if err := os.WriteFile(abs, []byte(updated), 0644); err != nil {
				return created, modified, errs.FileOp(fmt.Sprintf("writing %s", f.Path), err)
			}
			modified = append(modified, f.Path)

		default:
			return created, modified, errs.Input(fmt.Sprintf("unknown file action %q for %s", f.Action, f.Path), nil)
		}
	}
	return created, modified, editFailure
}

func (a *Applier) resolve(path string) (string, error) {
	joined := filepath.Join(a.projectRoot, path)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", errs.FileOp("resolving path "+path, err)
	}
	rel, err := filepath.Rel(a.projectRoot, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", errs.FileOp("path outside project root", nil).WithDetail(path)
	}
	return abs, nil
}

// ApplyEdits verifies every edit's search string is present as a literal
// substring in content before any write, then folds each edit's replace
// over the first remaining occurrence in order (spec.md §4.10, §8
// invariant 5). No fuzzy matching, no ellipsis support.
func ApplyEdits(content string, edits []domain.FileEdit) (string, *errs.Error) {
	for _, e := range edits {
		if !strings.Contains(content, e.Search) {
			preview := e.Search
			if len(preview) > 80 {
				preview = preview[:80] + "..."
			}
			return "", errs.Validation("search text not found", nil).WithDetail(preview)
		}
	}

	result := content
	for _, e := range edits {
		result = strings.Replace(result, e.Search, e.Replace, 1)
	}
	return result, nil
}
