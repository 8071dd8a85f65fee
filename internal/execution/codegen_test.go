package execution

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
)

func TestNormalizeActionDefaultsToCreate(t *testing.T) {
	require.Equal(t, domain.ActionCreate, normalizeAction("", false))
}

func TestNormalizeActionUnknownWithEditsFallsBackToEdit(t *testing.T) {
	require.Equal(t, domain.ActionEdit, normalizeAction("bogus", true))
}

func TestNormalizeActionPassesThroughKnownValues(t *testing.T) {
	require.Equal(t, domain.ActionModify, normalizeAction("modify", false))
}

func TestParseLegacyJSONExtractsFencedBlock(t *testing.T) {
	text := "Here are the changes:\n```json\n{\"files\":[{\"path\":\"a.go\",\"action\":\"create\",\"content\":\"package a\"}],\"explanation\":\"done\"}\n```\n"
	files, explanation, ok := parseLegacyJSON(text)
	require.True(t, ok)
	require.Equal(t, "done", explanation)
	require.Len(t, files, 1)
	require.Equal(t, "a.go", files[0].Path)
	require.Equal(t, domain.ActionCreate, files[0].Action)
}

func TestParseLegacyJSONRepairsTrailingComma(t *testing.T) {
	text := "{\"files\":[{\"path\":\"a.go\",\"action\":\"create\",\"content\":\"x\"},],\"explanation\":\"ok\"}"
	files, _, ok := parseLegacyJSON(text)
	require.True(t, ok)
	require.Len(t, files, 1)
}

func TestParseLegacyJSONNoJSONReturnsFalse(t *testing.T) {
	_, _, ok := parseLegacyJSON("I couldn't find anything to submit.")
	require.False(t, ok)
}

func TestFilterAuthorizedDropsUnlistedPaths(t *testing.T) {
	files := []domain.GeneratedFile{
		{Path: "a.go", Action: domain.ActionModify},
		{Path: "b.go", Action: domain.ActionModify},
	}
	out := filterAuthorized(files, []string{"a.go"})
	require.Len(t, out, 1)
	require.Equal(t, "a.go", out[0].Path)
}

func TestFilesFromToolInputParsesEditsAndAction(t *testing.T) {
	input := map[string]any{
		"files": []any{
			map[string]any{
				"path":   "a.go",
				"action": "edit",
				"edits": []any{
					map[string]any{"search": "foo", "replace": "bar"},
				},
			},
		},
		"explanation": "patched",
	}
	files, explanation := filesFromToolInput(input)
	require.Equal(t, "patched", explanation)
	require.Len(t, files, 1)
	require.Equal(t, domain.ActionEdit, files[0].Action)
	require.Len(t, files[0].Edits, 1)
	require.Equal(t, "foo", files[0].Edits[0].Search)
}
