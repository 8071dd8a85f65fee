package workers

import (
	"fmt"

	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/worker"
)

// WebResearch is single-turn: no tools except submit_result. Reference
// material reaches it only through req.AdditionalContext, filled by the
// caller; the worker itself never reaches the network, keeping the
// single-turn contract intact. No stage in this module fetches web content
// or invokes this worker.
func WebResearch() *worker.Worker {
	finding := worker.Schema{Fields: []worker.Field{
		{Name: "topic", Type: worker.TypeString, Required: true},
		{Name: "content", Type: worker.TypeString, Required: true},
		{Name: "relevance", Type: worker.TypeString, Enum: []string{"high", "med", "low"}},
		{Name: "caveats", Type: worker.TypeString},
	}}
	recommendation := worker.Schema{Fields: []worker.Field{
		{Name: "recommendation", Type: worker.TypeString, Required: true},
		{Name: "rationale", Type: worker.TypeString, Required: true},
		{Name: "tradeoffs", Type: worker.TypeString},
	}}
	unknown := worker.Schema{Fields: []worker.Field{
		{Name: "topic", Type: worker.TypeString, Required: true},
		{Name: "reason", Type: worker.TypeString, Required: true},
		{Name: "suggestedSources", Type: worker.TypeArray},
	}}

	return &worker.Worker{
		Operation:  llm.OpWebResearch,
		CanExplore: false,
		MaxTurns:   1,
		Schema: worker.Schema{Fields: []worker.Field{
			{Name: "findings", Type: worker.TypeArray, Required: true, Items: &finding},
			{Name: "recommendations", Type: worker.TypeArray, Items: &recommendation},
			{Name: "unknowns", Type: worker.TypeArray, Items: &unknown},
			worker.ConfidenceField(),
		}},
		SystemPrompt: "You are a technical research assistant. You will be given pre-fetched reference " +
			"material; ground every finding in it. Call submit_result with findings, recommendations, " +
			"and unknowns you could not resolve from the supplied material.",
		BuildPrompt: func(req worker.ExecuteRequest) string {
			return fmt.Sprintf("Development request:\n%s\n\nPre-fetched reference material:\n%s",
				req.Task.RawRequest, req.AdditionalContext)
		},
	}
}
