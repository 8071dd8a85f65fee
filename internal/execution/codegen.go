package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/RidgetopAi/the-forge-sub002/internal/contextpack"
	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/toolexec"
)

// codeGenBudget is the Context Budget Packer allocation for phase 1
// (spec.md §4.10: "run the Context Budget Packer (§4.3) with budget ~40k").
const codeGenBudget = 40000

var submitCodeChangesTool = llm.ToolDefinition{
	Name:        "submit_code_changes",
	Description: "Submit the set of file changes that implement the requested change.",
	InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"files": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"path":    map[string]any{"type": "string"},
						"action":  map[string]any{"type": "string", "enum": []string{"create", "modify", "edit"}},
						"content": map[string]any{"type": "string"},
						"edits": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"search":  map[string]any{"type": "string"},
									"replace": map[string]any{"type": "string"},
								},
							},
						},
					},
					"required": []string{"path"},
				},
			},
			"explanation": map[string]any{"type": "string"},
		},
		"required": []string{"files"},
	},
}

// buildGenerationContext resolves mustRead + top-5 relatedExamples through the
// Context Budget Packer, then applies the override rule: any mustRead file
// whose packer method is signatures or truncated is re-read in full from
// disk, because surgical edits need verbatim search strings (spec.md
// §4.10).
func buildGenerationContext(exec *toolexec.Executor, pkg domain.ContextPackage) []domain.BudgetedFile {
	top5 := pkg.CodeContext.RelatedExamples
	if len(top5) > 5 {
		top5 = top5[:5]
	}
	inputs := append(append([]domain.FileRef{}, pkg.CodeContext.MustRead...), top5...)

	packer := contextpack.New(exec)
	packed, _ := packer.Pack(inputs, codeGenBudget)

	mustReadPaths := make(map[string]bool, len(pkg.CodeContext.MustRead))
	for _, r := range pkg.CodeContext.MustRead {
		mustReadPaths[r.Path] = true
	}

	for i := range packed {
		if !mustReadPaths[packed[i].Path] {
			continue
		}
		if packed[i].ExtractionMethod == domain.ExtractionSignatures || packed[i].ExtractionMethod == domain.ExtractionTruncated {
			res := exec.Read(packed[i].Path)
			if res.Success {
				packed[i].Content = res.Output
				packed[i].ExtractionMethod = domain.ExtractionFull
			}
		}
	}
	return packed
}

func renderContextPrompt(pkg domain.ContextPackage, files []domain.BudgetedFile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n\n", pkg.Task.Description)
	if len(pkg.Task.AcceptanceCriteria) > 0 {
		b.WriteString("Acceptance criteria:\n")
		for _, c := range pkg.Task.AcceptanceCriteria {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	if pkg.Patterns.Naming != "" || pkg.Patterns.ErrorHandling != "" {
		fmt.Fprintf(&b, "\nConventions: naming=%s, errorHandling=%s, testing=%s\n",
			pkg.Patterns.Naming, pkg.Patterns.ErrorHandling, pkg.Patterns.Testing)
	}
	for _, c := range pkg.Constraints.Technical {
		fmt.Fprintf(&b, "Constraint: %s\n", c)
	}
	b.WriteString("\nFiles:\n")
	for _, f := range files {
		fmt.Fprintf(&b, "=== %s (%s) ===\n%s\n\n", f.Path, f.ExtractionMethod, f.Content)
	}
	return b.String()
}

// GenerationOutcome is the result of one code-generation call, after
// normalization.
type GenerationOutcome struct {
	Files       []domain.GeneratedFile
	Explanation string
	CostUSD     float64
	Failed      bool
	FailureCode string
}

const codeGenSystemPrompt = "You are a senior engineer making a surgical change to an existing codebase. " +
	"Use submit_code_changes to report every file you create or modify. Prefer edit over modify when you " +
	"are changing only part of a file; give each edit a unique, verbatim search string."

const repairSystemPrompt = "A previous change failed to compile. Fix only the files listed below using " +
	"submit_code_changes. Do not touch any other file."

// oneCall issues a single tier call with the code-change tool schema forced
// via toolChoice=any, and normalizes its result whether the model used the
// tool or answered in plain text (spec.md §4.10's legacy JSON-in-text
// fallback).
func oneCall(ctx context.Context, router *llm.Router, op llm.Operation, systemPrompt, userPrompt string) (GenerationOutcome, error) {
	resp, err := router.CallTier(ctx, llm.TierSonnet, llm.CallRequest{
		Operation:    op,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Tools:        []llm.ToolDefinition{submitCodeChangesTool},
		ToolChoice:   llm.ToolChoice{Type: llm.ToolChoiceAny},
		MaxTokens:    8192,
	})
	if err != nil {
		return GenerationOutcome{}, err
	}

	for _, tc := range resp.ToolCalls {
		if tc.Name != submitCodeChangesTool.Name {
			continue
		}
		files, explanation := filesFromToolInput(tc.Input)
		return GenerationOutcome{Files: files, Explanation: explanation, CostUSD: resp.CostUSD}, nil
	}

	if files, explanation, ok := parseLegacyJSON(resp.Text); ok {
		return GenerationOutcome{Files: files, Explanation: explanation, CostUSD: resp.CostUSD}, nil
	}
	return GenerationOutcome{CostUSD: resp.CostUSD}, nil
}

// Generate runs phase 1 of execution: build the packed context, issue the
// code-generation call, and retry once on an empty files[] response before
// failing with EMPTY_FILES_AFTER_RETRY (spec.md §4.10).
func Generate(ctx context.Context, router *llm.Router, exec *toolexec.Executor, pkg domain.ContextPackage) (GenerationOutcome, error) {
	packed := buildGenerationContext(exec, pkg)
	prompt := renderContextPrompt(pkg, packed)

	outcome, err := oneCall(ctx, router, llm.OpCodeGeneration, codeGenSystemPrompt, prompt)
	if err != nil {
		return GenerationOutcome{}, err
	}
	if len(outcome.Files) > 0 {
		return outcome, nil
	}

	outcome, err = oneCall(ctx, router, llm.OpCodeGeneration, codeGenSystemPrompt, prompt+"\n\nYour previous response contained no files. Submit the concrete file changes now.")
	if err != nil {
		return GenerationOutcome{}, err
	}
	if len(outcome.Files) == 0 {
		outcome.Failed = true
		outcome.FailureCode = "EMPTY_FILES_AFTER_RETRY"
	}
	return outcome, nil
}

// Repair runs a restricted code-generation call during the self-heal loop:
// the prompt carries the compile error and is scoped to allowedPaths, the
// files previously written by phase 1 (spec.md §4.10's self-heal step).
func Repair(ctx context.Context, router *llm.Router, errorText string, allowedPaths []string, previousFiles []domain.BudgetedFile) (GenerationOutcome, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Compilation failed with:\n%s\n\nFiles you may change:\n", errorText)
	for _, p := range allowedPaths {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	b.WriteString("\nCurrent contents:\n")
	for _, f := range previousFiles {
		fmt.Fprintf(&b, "=== %s ===\n%s\n\n", f.Path, f.Content)
	}

	outcome, err := oneCall(ctx, router, llm.OpCodeRepair, repairSystemPrompt, b.String())
	if err != nil {
		return GenerationOutcome{}, err
	}
	outcome.Files = filterAuthorized(outcome.Files, allowedPaths)
	return outcome, nil
}

func filterAuthorized(files []domain.GeneratedFile, allowedPaths []string) []domain.GeneratedFile {
	allowed := make(map[string]bool, len(allowedPaths))
	for _, p := range allowedPaths {
		allowed[p] = true
	}
	out := make([]domain.GeneratedFile, 0, len(files))
	for _, f := range files {
		if allowed[f.Path] {
			out = append(out, f)
		}
	}
	return out
}

func filesFromToolInput(input map[string]any) ([]domain.GeneratedFile, string) {
	raw, _ := input["files"].([]any)
	files := make([]domain.GeneratedFile, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		edits := editsFromAny(m["edits"])
		files = append(files, domain.GeneratedFile{
			Path:    stringFromAny(m["path"]),
			Action:  normalizeAction(stringFromAny(m["action"]), len(edits) > 0),
			Content: stringFromAny(m["content"]),
			Edits:   edits,
		})
	}
	explanation, _ := input["explanation"].(string)
	return files, explanation
}

func editsFromAny(v any) []domain.FileEdit {
	raw, _ := v.([]any)
	edits := make([]domain.FileEdit, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		edits = append(edits, domain.FileEdit{
			Search:  stringFromAny(m["search"]),
			Replace: stringFromAny(m["replace"]),
		})
	}
	return edits
}

func stringFromAny(v any) string {
	s, _ := v.(string)
	return s
}

// parseLegacyJSON is the fallback extractor for when the model answered in
// plain text instead of using the tool: extract the first fenced JSON block
// (or a bare object), remove trailing commas, then decode. Unescaped
// newlines or quotes inside strings are not repaired; such a block fails to
// decode and the fallback reports no files.
func parseLegacyJSON(text string) ([]domain.GeneratedFile, string, bool) {
	block := extractFencedJSON(text)
	if block == "" {
		return nil, "", false
	}
	repaired := repairJSON(block)

	var payload struct {
		Files []struct {
			Path    string            `json:"path"`
			Action  string            `json:"action"`
			Content string            `json:"content"`
			Edits   []domain.FileEdit `json:"edits"`
		} `json:"files"`
		Explanation string `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		return nil, "", false
	}

	files := make([]domain.GeneratedFile, 0, len(payload.Files))
	for _, f := range payload.Files {
		files = append(files, domain.GeneratedFile{
			Path:    f.Path,
			Action:  normalizeAction(f.Action, len(f.Edits) > 0),
			Content: f.Content,
			Edits:   f.Edits,
		})
	}
	return files, payload.Explanation, true
}

var fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

func extractFencedJSON(text string) string {
	if m := fencedBlockPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") {
		return trimmed
	}
	return ""
}

var trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)

// repairJSON removes trailing commas before a closing "}" or "]". It does
// not escape raw newlines or quotes inside strings.
func repairJSON(s string) string {
	s = trailingCommaPattern.ReplaceAllString(s, "$1")
	return s
}

// normalizeAction applies spec.md §4.10's default/fallthrough rule: action
// defaults to create, unknown values fall through to create (no edits) or
// edit (when edits are present, since only the edit action uses an edit
// list).
func normalizeAction(action string, hasEdits bool) domain.FileAction {
	switch domain.FileAction(action) {
	case domain.ActionCreate, domain.ActionModify, domain.ActionEdit:
		return domain.FileAction(action)
	default:
		if hasEdits {
			return domain.ActionEdit
		}
		return domain.ActionCreate
	}
}
