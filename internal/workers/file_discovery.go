// Package workers binds the Worker Runtime (C4) to the six concrete
// workers of spec.md §4.5. Grounded on the teacher's internal/perception
// understanding_adapter.go (one adapter per concern, each wrapping the same
// underlying LLM call machinery with a task-specific schema and prompt).
package workers

import (
	"fmt"

	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/worker"
)

// FileDiscovery explores the project to find files relevant to a task.
func FileDiscovery() *worker.Worker {
	fileRefSchema := worker.Schema{Fields: []worker.Field{
		{Name: "path", Type: worker.TypeString, Required: true},
		{Name: "reason", Type: worker.TypeString},
		{Name: "priority", Type: worker.TypeString, Enum: []string{"high", "medium", "low"}},
	}}
	suggestedSchema := worker.Schema{Fields: []worker.Field{
		{Name: "path", Type: worker.TypeString, Required: true},
		{Name: "purpose", Type: worker.TypeString},
	}}

	return &worker.Worker{
		Operation:  llm.OpFileDiscovery,
		CanExplore: true,
		MaxTurns:   10,
		Schema: worker.Schema{Fields: []worker.Field{
			{Name: "relevantFiles", Type: worker.TypeArray, Required: true, Items: &fileRefSchema},
			{Name: "suggestedNewFiles", Type: worker.TypeArray, Items: &suggestedSchema},
			worker.ConfidenceField(),
		}},
		SystemPrompt: "You are a code exploration assistant. Use glob, read, and grep to find files " +
			"relevant to the development request below, then call submit_result with the files found " +
			"and any new files you believe need to be created. Be precise: prefer files you have actually " +
			"read over guesses.",
		BuildPrompt: func(req worker.ExecuteRequest) string {
			return fmt.Sprintf("Development request:\n%s\n\nFind the files in this project relevant to implementing it.",
				req.Task.RawRequest)
		},
	}
}
