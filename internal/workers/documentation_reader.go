package workers

import (
	"fmt"

	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/worker"
)

// DocumentationReader is single-turn: reads pre-fetched documentation
// content (via req.AdditionalContext) and summarizes it.
func DocumentationReader() *worker.Worker {
	return &worker.Worker{
		Operation:  llm.OpDocumentationReading,
		CanExplore: false,
		MaxTurns:   1,
		Schema: worker.Schema{Fields: []worker.Field{
			{Name: "summary", Type: worker.TypeString, Required: true},
			{Name: "relevantSections", Type: worker.TypeArray},
			{Name: "apiReferences", Type: worker.TypeArray},
			{Name: "examples", Type: worker.TypeArray},
			{Name: "warnings", Type: worker.TypeArray},
			worker.ConfidenceField(),
		}},
		SystemPrompt: "You are a documentation summarizer. Summarize the supplied documentation, extracting " +
			"relevant sections, API references, usage examples, and warnings relevant to the development " +
			"request. Call submit_result.",
		BuildPrompt: func(req worker.ExecuteRequest) string {
			return fmt.Sprintf("Development request:\n%s\n\nDocumentation:\n%s",
				req.Task.RawRequest, req.AdditionalContext)
		},
	}
}
