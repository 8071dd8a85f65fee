package workers

import (
	"fmt"

	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/worker"
)

// PatternExtraction explores the codebase to surface naming, organization,
// and error-handling conventions plus anti-patterns to avoid.
func PatternExtraction() *worker.Worker {
	conventions := worker.Schema{Fields: []worker.Field{
		{Name: "naming", Type: worker.TypeString},
		{Name: "fileOrganization", Type: worker.TypeString},
		{Name: "errorHandling", Type: worker.TypeString},
		{Name: "testing", Type: worker.TypeString},
		{Name: "imports", Type: worker.TypeString},
		{Name: "stateManagement", Type: worker.TypeString},
		{Name: "dataFetching", Type: worker.TypeString},
	}}

	return &worker.Worker{
		Operation:  llm.OpPatternExtraction,
		CanExplore: true,
		MaxTurns:   10,
		Schema: worker.Schema{Fields: []worker.Field{
			{Name: "patterns", Type: worker.TypeArray, Required: true},
			{Name: "conventions", Type: worker.TypeObject, Object: &conventions},
			{Name: "antiPatterns", Type: worker.TypeArray},
			worker.ConfidenceField(),
		}},
		SystemPrompt: "You are a codebase convention analyst. Use glob, read, and grep to identify the " +
			"dominant naming, file organization, testing, and error-handling patterns in this project, " +
			"then call submit_result with a summary of conventions and any anti-patterns you observed.",
		BuildPrompt: func(req worker.ExecuteRequest) string {
			return fmt.Sprintf("Development request:\n%s\n\nIdentify the coding conventions this project follows.",
				req.Task.RawRequest)
		},
	}
}
