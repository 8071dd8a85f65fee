package workers

import "github.com/RidgetopAi/the-forge-sub002/internal/worker"

// Name identifies one of the six concrete workers and keys the map All
// returns. The values match the keys of config.WorkerMaxTurns, but each
// worker's MaxTurns is fixed in its constructor and is not read from config.
type Name string

const (
	NameFileDiscovery        Name = "file_discovery"
	NamePatternExtraction    Name = "pattern_extraction"
	NameDependencyMapper     Name = "dependency_mapper"
	NameConstraintIdentifier Name = "constraint_identifier"
	NameWebResearch          Name = "web_research"
	NameDocumentationReader  Name = "documentation_reader"
)

// All returns a fresh set of the six concrete workers (spec.md §4.5),
// keyed by Name. Each call builds new Worker values since Worker carries
// no mutable state.
func All() map[Name]*worker.Worker {
	return map[Name]*worker.Worker{
		NameFileDiscovery:        FileDiscovery(),
		NamePatternExtraction:    PatternExtraction(),
		NameDependencyMapper:     DependencyMapper(),
		NameConstraintIdentifier: ConstraintIdentifier(),
		NameWebResearch:          WebResearch(),
		NameDocumentationReader:  DocumentationReader(),
	}
}
