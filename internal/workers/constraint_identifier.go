package workers

import (
	"fmt"

	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/worker"
)

// ConstraintIdentifier explores the project for type/test/lint/build/API
// constraints, including module-resolution derived constraints (ESM vs
// CommonJS import styles).
func ConstraintIdentifier() *worker.Worker {
	return &worker.Worker{
		Operation:  llm.OpConstraintIdentify,
		CanExplore: true,
		MaxTurns:   8,
		Schema: worker.Schema{Fields: []worker.Field{
			{Name: "typeConstraints", Type: worker.TypeArray, Required: true},
			{Name: "testConstraints", Type: worker.TypeArray, Required: true},
			{Name: "lintConstraints", Type: worker.TypeArray, Required: true},
			{Name: "buildConstraints", Type: worker.TypeArray, Required: true},
			{Name: "apiConstraints", Type: worker.TypeArray, Required: true},
			worker.ConfidenceField(),
		}},
		SystemPrompt: "You are a build-and-type-constraint analyst. Use glob, read, and grep to identify " +
			"type, test, lint, build, and API constraints this change must respect. Inspect package " +
			"manifests (package.json, go.mod, tsconfig.json) for module resolution settings: if the " +
			"project is configured for ESM (\"type\":\"module\" or Node16/NodeNext resolution), emit an " +
			"explicit constraint that relative imports must include file extensions and that CommonJS " +
			"require() is not to be introduced. Then call submit_result.",
		BuildPrompt: func(req worker.ExecuteRequest) string {
			return fmt.Sprintf("Development request:\n%s\n\nIdentify the constraints this project imposes on the change.",
				req.Task.RawRequest)
		},
	}
}
