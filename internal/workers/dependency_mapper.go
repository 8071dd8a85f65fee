package workers

import (
	"fmt"

	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/worker"
)

// DependencyMapper explores internal and external dependency relationships
// and flags circular dependencies.
func DependencyMapper() *worker.Worker {
	dependency := worker.Schema{Fields: []worker.Field{
		{Name: "from", Type: worker.TypeString, Required: true},
		{Name: "to", Type: worker.TypeString, Required: true},
		{Name: "type", Type: worker.TypeString, Enum: []string{"import", "type", "runtime", "test"}},
		{Name: "imports", Type: worker.TypeArray},
	}}
	external := worker.Schema{Fields: []worker.Field{
		{Name: "name", Type: worker.TypeString, Required: true},
		{Name: "usedBy", Type: worker.TypeArray},
		{Name: "isDev", Type: worker.TypeBoolean},
	}}
	entryPoint := worker.Schema{Fields: []worker.Field{
		{Name: "path", Type: worker.TypeString, Required: true},
		{Name: "type", Type: worker.TypeString},
		{Name: "description", Type: worker.TypeString},
	}}
	cycle := worker.Schema{Fields: []worker.Field{
		{Name: "cycle", Type: worker.TypeArray, Required: true},
		{Name: "severity", Type: worker.TypeString},
	}}

	return &worker.Worker{
		Operation:  llm.OpDependencyMapping,
		CanExplore: true,
		MaxTurns:   10,
		Schema: worker.Schema{Fields: []worker.Field{
			{Name: "dependencies", Type: worker.TypeArray, Required: true, Items: &dependency},
			{Name: "externalDependencies", Type: worker.TypeArray, Items: &external},
			{Name: "entryPoints", Type: worker.TypeArray, Items: &entryPoint},
			{Name: "circularDependencies", Type: worker.TypeArray, Items: &cycle},
			worker.ConfidenceField(),
		}},
		SystemPrompt: "You are a dependency graph analyst. Use glob, read, and grep to map internal module " +
			"dependencies, external package usage, entry points, and any circular dependencies, then call " +
			"submit_result with the graph.",
		BuildPrompt: func(req worker.ExecuteRequest) string {
			return fmt.Sprintf("Development request:\n%s\n\nMap the dependency graph relevant to this change.",
				req.Task.RawRequest)
		},
	}
}
