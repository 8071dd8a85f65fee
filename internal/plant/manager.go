package plant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
	"github.com/RidgetopAi/the-forge-sub002/internal/persistence"
	"github.com/RidgetopAi/the-forge-sub002/internal/statemachine"
	"github.com/RidgetopAi/the-forge-sub002/internal/stream"
)

// IntakeResult is the outcome of Manager.Intake.
type IntakeResult struct {
	Machine         *statemachine.Machine
	NeedsHumanSync  bool
	Explanation     string
}

// EscalationResult is the outcome of Manager.HandleEscalation.
type EscalationResult struct {
	Action string
	Detail string
}

// Manager is the Plant Manager (C8).
type Manager struct {
	store   *persistence.Store
	emitter *stream.Emitter
}

// New builds a Plant Manager bound to the persistence store (for planning
// records) and the progress emitter.
func New(store *persistence.Store, emitter *stream.Emitter) *Manager {
	return &Manager{store: store, emitter: emitter}
}

// Intake turns a raw request into a classified, stateful Task (spec.md
// §4.8). A confidence below 0.5 sets NeedsHumanSync without blocking task
// creation — the caller decides whether to proceed or pause.
func (m *Manager) Intake(ctx context.Context, rawRequest string) IntakeResult {
	log := logging.Get(logging.CategoryStateMachine)

	task := &domain.Task{
		ID:         uuid.NewString(),
		RawRequest: rawRequest,
		State:      domain.StateIntake,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	mach := statemachine.New(task, m.emitter)

	cr := classify(rawRequest)
	department := domain.DepartmentPreparation
	if cr.projectType == "research" || cr.projectType == "greenfield" {
		department = domain.DepartmentRAndD
	}

	classification := domain.Classification{
		ProjectType: domain.ProjectType(cr.projectType),
		Scope:       domain.Scope(cr.scope),
		Department:  department,
		Confidence:  cr.confidence,
	}
	if err := mach.SetClassification(classification); err != nil {
		log.Warnw("unexpected double classification", "task_id", task.ID, "error", err)
	}
	if err := mach.Transition(domain.StateClassified, "plant-manager", "intake classified"); err != nil {
		log.Warnw("intake transition failed", "task_id", task.ID, "error", err)
	}

	if _, err := m.store.StoreContext(ctx,
		fmt.Sprintf("intake: %s -> %s/%s (confidence %.2f)", rawRequest, classification.ProjectType, classification.Scope, classification.Confidence),
		persistence.ContextPlanning, []string{string(classification.ProjectType), task.ID}); err != nil {
		log.Warnw("planning record persist failed", "task_id", task.ID, "error", err)
	}

	result := IntakeResult{Machine: mach}
	if classification.NeedsHumanSync() {
		result.NeedsHumanSync = true
		result.Explanation = fmt.Sprintf(
			"classification confidence %.2f is below the human-sync threshold (0.5); best guess was %s/%s",
			classification.Confidence, classification.ProjectType, classification.Scope)
	}
	return result
}

// HandleEscalation records an escalation against mach's task, transitions it
// to blocked, and returns the humanSync action the caller surfaces.
func (m *Manager) HandleEscalation(mach *statemachine.Machine, reason string, suggestedOptions []string) EscalationResult {
	from := mach.State()
	mach.SetEscalation(domain.Escalation{
		From:             from,
		Reason:           reason,
		SuggestedOptions: suggestedOptions,
		Timestamp:        time.Now().UTC(),
	})
	if err := mach.Transition(domain.StateBlocked, "plant-manager", reason); err != nil {
		logging.Get(logging.CategoryStateMachine).Warnw("escalation transition failed", "error", err)
	}
	return EscalationResult{Action: "humanSync", Detail: reason}
}

// ResumeTask re-transitions mach's task from blocked to resumeToState,
// honoring the human decision that unblocked it. No-op error if the task
// is not currently blocked.
func (m *Manager) ResumeTask(mach *statemachine.Machine, humanDecision string, resumeToState domain.TaskState) error {
	if mach.State() != domain.StateBlocked {
		return fmt.Errorf("plant: cannot resume task %s: not blocked (state=%s)", mach.Task().ID, mach.State())
	}
	return mach.Transition(resumeToState, "plant-manager", "resumed: "+humanDecision)
}
