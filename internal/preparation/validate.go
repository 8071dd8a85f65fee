package preparation

import (
	"encoding/json"
	"fmt"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/toolexec"
)

// validatePackage enforces the ContextPackage invariants from spec.md §3:
// mustRead/relatedExamples are path-deduplicated, total serialized size is
// bounded, mustRead contains only real/readable files, and mustRead ∩
// mustNotModify = ∅.
func validatePackage(pkg *domain.ContextPackage, exec *toolexec.Executor) error {
	seen := make(map[string]bool)
	for _, r := range pkg.CodeContext.MustRead {
		if seen[r.Path] {
			return fmt.Errorf("preparation: mustRead contains duplicate path %q", r.Path)
		}
		seen[r.Path] = true
	}
	for _, r := range pkg.CodeContext.RelatedExamples {
		if seen[r.Path] {
			return fmt.Errorf("preparation: relatedExamples duplicates a mustRead path %q", r.Path)
		}
	}

	mustNotModify := make(map[string]bool, len(pkg.CodeContext.MustNotModify))
	for _, p := range pkg.CodeContext.MustNotModify {
		mustNotModify[p] = true
	}
	var filteredMustRead []domain.FileRef
	for _, r := range pkg.CodeContext.MustRead {
		if mustNotModify[r.Path] {
			return fmt.Errorf("preparation: mustRead and mustNotModify both contain %q", r.Path)
		}
		res := exec.Read(r.Path)
		if !res.Success {
			continue // drop unreadable files rather than fail the whole package
		}
		filteredMustRead = append(filteredMustRead, r)
	}
	pkg.CodeContext.MustRead = filteredMustRead

	if len(pkg.CodeContext.MustRead) == 0 && len(pkg.CodeContext.RelatedExamples) == 0 {
		return fmt.Errorf("preparation: context package has no mustRead and no relatedExamples")
	}

	data, err := json.Marshal(pkg)
	if err != nil {
		return fmt.Errorf("preparation: context package failed to serialize: %w", err)
	}
	if len(data) > maxSerializedBytes {
		return fmt.Errorf("preparation: context package is %d bytes, exceeding the %d byte budget", len(data), maxSerializedBytes)
	}
	return nil
}
