package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RidgetopAi/the-forge-sub002/internal/config"
	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/execution"
	"github.com/RidgetopAi/the-forge-sub002/internal/feedback"
	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
	"github.com/RidgetopAi/the-forge-sub002/internal/pattern"
	"github.com/RidgetopAi/the-forge-sub002/internal/persistence"
	"github.com/RidgetopAi/the-forge-sub002/internal/plant"
	"github.com/RidgetopAi/the-forge-sub002/internal/preparation"
	"github.com/RidgetopAi/the-forge-sub002/internal/quality"
	"github.com/RidgetopAi/the-forge-sub002/internal/statemachine"
	"github.com/RidgetopAi/the-forge-sub002/internal/stream"
	"github.com/RidgetopAi/the-forge-sub002/internal/toolexec"
	"github.com/RidgetopAi/the-forge-sub002/internal/validation"
)

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Submit a natural-language change request to the pipeline",
	Long: `run takes a plain-English change request, classifies it, gathers
repository context, asks an LLM for file-level edits, applies and compiles
them, self-heals on compile failure, and runs the quality gate.

Example:
  forge run "fix the nil pointer panic in the login handler"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRequest,
}

// pipeline bundles the department constructors a single run needs. Built
// once per invocation from global flags/config, mirroring the teacher's
// practice of assembling its engine set in one place before driving a loop.
type pipeline struct {
	manager    *plant.Manager
	prepForman *preparation.Foreman
	execForman *execution.Foreman
	gate       *quality.Gate
	store      *persistence.Store
}

func buildPipeline(ctx context.Context, root string) (*pipeline, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	anthropicAPIKey := envOr(anthropicKey, "ANTHROPIC_API_KEY")
	geminiAPIKey := envOr(geminiKey, "GEMINI_API_KEY")

	anthropicClient := llm.NewAnthropicClient(anthropicAPIKey, cfg.Tiers[config.TierSonnet].Model)
	geminiClient, err := llm.NewGeminiClient(ctx, geminiAPIKey, cfg.Tiers[config.TierHaikuClass].Model)
	if err != nil {
		return nil, fmt.Errorf("building gemini client: %w", err)
	}
	opusClient := llm.NewAnthropicClient(anthropicAPIKey, cfg.Tiers[config.TierOpus].Model)

	clients := map[llm.Tier]llm.ProviderClient{
		llm.TierOpus:       opusClient,
		llm.TierSonnet:     anthropicClient,
		llm.TierHaikuClass: geminiClient,
	}
	router, err := llm.NewRouter(cfg, clients)
	if err != nil {
		return nil, fmt.Errorf("building router: %w", err)
	}

	exec, err := toolexec.New(root)
	if err != nil {
		return nil, fmt.Errorf("building tool executor: %w", err)
	}

	store, err := persistence.Open(cfg.PersistenceDSN)
	if err != nil {
		return nil, fmt.Errorf("opening persistence store: %w", err)
	}

	tracker := pattern.New(store)
	feedbackRouter := feedback.New(router, tracker)
	emitter := stream.NewEmitter(64)

	validator := validation.New(router, exec)
	execForman := execution.New(router, exec, feedbackRouter, tracker, store, validator)

	return &pipeline{
		manager:    plant.New(store, emitter),
		prepForman: preparation.New(router, exec, tracker, store),
		execForman: execForman,
		gate:       quality.New(exec),
		store:      store,
	}, nil
}

func runRequest(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	root, err := resolveWorkspace()
	if err != nil {
		return fmt.Errorf("resolving workspace: %w", err)
	}

	p, err := buildPipeline(ctx, root)
	if err != nil {
		return err
	}
	defer p.store.Close()

	request := strings.Join(args, " ")
	log := logging.Get(logging.CategoryStateMachine)

	intake := p.manager.Intake(ctx, request)
	mach := intake.Machine
	task := mach.Task()
	fmt.Printf("task %s classified as %s/%s (department=%s, confidence=%.2f)\n",
		task.ID, task.Classification.ProjectType, task.Classification.Scope,
		task.Classification.Department, task.Classification.Confidence)

	if intake.NeedsHumanSync {
		fmt.Println(intake.Explanation)
		esc := p.manager.HandleEscalation(mach, intake.Explanation, []string{"proceed anyway", "clarify request"})
		fmt.Printf("blocked pending human sync: %s\n", esc.Detail)
		return nil
	}

	if err := mach.Transition(domain.StatePreparing, "cli", "starting preparation"); err != nil {
		return fmt.Errorf("transition to preparing: %w", err)
	}

	pkg, err := p.prepForman.Prepare(ctx, mach)
	if err != nil {
		log.Errorw("preparation failed", "task_id", task.ID, "error", err)
		return fmt.Errorf("preparation: %w", err)
	}
	fmt.Printf("context package %s assembled: %d must-read files, %d related examples\n",
		pkg.ID, len(pkg.CodeContext.MustRead), len(pkg.CodeContext.RelatedExamples))

	result, err := p.execForman.Execute(ctx, mach)
	if err != nil {
		log.Errorw("execution failed", "task_id", task.ID, "error", err)
		return fmt.Errorf("execution: %w", err)
	}
	if !result.Success {
		code := ""
		if result.StructuredFailure != nil {
			code = result.StructuredFailure.Code
		}
		fmt.Printf("execution blocked: %s (%s)\n", result.Error, code)
		return nil
	}
	fmt.Printf("execution succeeded: %d created, %d modified, compile attempts=%d, self-healed=%v, cost=$%.4f\n",
		len(result.FilesCreated), len(result.FilesModified), result.CompilationAttempts,
		result.CompilationSelfHealed, result.CostBreakdown.Total)

	qr, err := p.gate.Evaluate(ctx, mach)
	if err != nil {
		log.Errorw("quality gate failed", "task_id", task.ID, "error", err)
		return fmt.Errorf("quality gate: %w", err)
	}
	fmt.Printf("quality gate recommendation: %s (final state: %s)\n", qr.Recommendation, mach.State())
	return nil
}
