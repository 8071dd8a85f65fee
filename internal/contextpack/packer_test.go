package contextpack

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/toolexec"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestPackPreservesOrderAndRespectsBudget(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc A() {}\n")
	writeFile(t, root, "b.go", "package b\n\nfunc B() {}\n")

	exec, err := toolexec.New(root)
	require.NoError(t, err)
	p := New(exec)

	inputs := []domain.FileRef{
		{Path: "a.go", Priority: domain.PriorityHigh},
		{Path: "b.go", Priority: domain.PriorityLow},
	}
	out, summary := p.Pack(inputs, 1000)

	require.Len(t, out, 2)
	require.Equal(t, "a.go", out[0].Path)
	require.Equal(t, "b.go", out[1].Path)
	require.LessOrEqual(t, summary.TotalTokensUsed, 1000)
}

func TestPackFullContentWhenWithinBudget(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.go", "package small\n")

	exec, err := toolexec.New(root)
	require.NoError(t, err)
	p := New(exec)

	out, summary := p.Pack([]domain.FileRef{{Path: "small.go", Priority: domain.PriorityHigh}}, 40000)
	require.Equal(t, domain.ExtractionFull, out[0].ExtractionMethod)
	require.Equal(t, 1, summary.IncludedFull)
}

func TestPackExcludesUnreadableFile(t *testing.T) {
	root := t.TempDir()
	exec, err := toolexec.New(root)
	require.NoError(t, err)
	p := New(exec)

	out, summary := p.Pack([]domain.FileRef{{Path: "missing.go", Priority: domain.PriorityMedium}}, 1000)
	require.Equal(t, domain.ExtractionExcluded, out[0].ExtractionMethod)
	require.Equal(t, 1, summary.Excluded)
}

func TestPackSignatureExtractionForLargeGoFile(t *testing.T) {
	root := t.TempDir()
	var body strings.Builder
	body.WriteString("package big\n\n")
	for i := 0; i < 200; i++ {
		body.WriteString("func Noise() {\n\t_ = 1\n\t_ = 2\n\t_ = 3\n}\n\n")
	}
	writeFile(t, root, "big.go", body.String())

	exec, err := toolexec.New(root)
	require.NoError(t, err)
	p := New(exec)

	out, _ := p.Pack([]domain.FileRef{{Path: "big.go", Priority: domain.PriorityLow}}, 200)
	require.Contains(t, []domain.ExtractionMethod{domain.ExtractionSignatures, domain.ExtractionTruncated, domain.ExtractionExcluded}, out[0].ExtractionMethod)
}

func TestHighPriorityFileGetsFloorAllocation(t *testing.T) {
	inputs := []domain.FileRef{
		{Path: "a", Priority: domain.PriorityHigh},
		{Path: "b", Priority: domain.PriorityLow},
		{Path: "c", Priority: domain.PriorityLow},
	}
	allocations := allocate(inputs, 1000)
	require.GreaterOrEqual(t, allocations[0], highPriorityFloor)
}

func TestExtractSignaturesHeuristicKeepsDeclLines(t *testing.T) {
	src := "import foo\nx := 1\nfunc bar() {}\nclass Baz {}\n"
	out := ExtractSignaturesHeuristic(src)
	require.Contains(t, out, "func bar")
	require.Contains(t, out, "class Baz")
	require.NotContains(t, out, "x := 1")
}

func TestSmartTruncateBalancesBraces(t *testing.T) {
	src := "func f() {\n  a()\n  b()\n  c()\n}\n"
	out := SmartTruncate(src, 4)
	require.True(t, strings.HasSuffix(strings.TrimSuffix(out, "\n... (truncated)"), "}"))
}

func TestPackZeroBudgetExcludesEverythingWithZeroTokensUsed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc A() {}\n")

	exec, err := toolexec.New(root)
	require.NoError(t, err)
	p := New(exec)

	out, summary := p.Pack([]domain.FileRef{{Path: "a.go", Priority: domain.PriorityHigh}}, 0)

	require.Len(t, out, 1)
	require.Equal(t, domain.ExtractionExcluded, out[0].ExtractionMethod)
	require.Equal(t, 0, summary.TotalTokensUsed)
	require.Equal(t, 1, summary.Excluded)
}

func TestPackNegativeBudgetFallsBackToDefault(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc A() {}\n")

	exec, err := toolexec.New(root)
	require.NoError(t, err)
	p := New(exec)

	out, summary := p.Pack([]domain.FileRef{{Path: "a.go", Priority: domain.PriorityHigh}}, -1)

	require.Len(t, out, 1)
	require.Equal(t, domain.ExtractionFull, out[0].ExtractionMethod)
	require.Greater(t, summary.TotalTokensUsed, 0)
}
