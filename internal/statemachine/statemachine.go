// Package statemachine owns every Task state transition (spec.md §4.13).
// It is the only place that mutates Task.State; callers outside this
// package read a Task's state but never assign to it directly, which is
// what makes the "single-writer for task state" rule in spec.md §5
// satisfiable with a plain mutex instead of a full actor mailbox.
package statemachine

import (
	"fmt"
	"sync"
	"time"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
	"github.com/RidgetopAi/the-forge-sub002/internal/stream"
)

// legalEdges is the transition graph from spec.md §3. blocked may return to
// any of the three pre-execution states after a human decision.
var legalEdges = map[domain.TaskState]map[domain.TaskState]bool{
	domain.StateIntake:     {domain.StateClassified: true},
	domain.StateClassified: {domain.StatePreparing: true, domain.StateBlocked: true},
	domain.StatePreparing:  {domain.StatePrepared: true, domain.StateFailed: true, domain.StateBlocked: true},
	domain.StatePrepared:   {domain.StateExecuting: true, domain.StateBlocked: true},
	domain.StateExecuting:  {domain.StateReviewing: true, domain.StateBlocked: true, domain.StateFailed: true},
	domain.StateReviewing:  {domain.StateCompleted: true, domain.StateBlocked: true, domain.StateFailed: true},
	domain.StateBlocked: {
		domain.StateIntake:     true,
		domain.StateClassified: true,
		domain.StatePreparing:  true,
	},
	domain.StateCompleted: {},
	domain.StateFailed:    {},
}

// Machine owns the canonical Task record for one task ID and serializes all
// transitions against it.
type Machine struct {
	mu       sync.Mutex
	task     *domain.Task
	emitter  *stream.Emitter
}

// New creates a Machine that owns task, starting in whatever state the task
// is currently in (normally domain.StateIntake for a freshly created task).
func New(task *domain.Task, emitter *stream.Emitter) *Machine {
	return &Machine{task: task, emitter: emitter}
}

// ErrIllegalTransition is returned when an edge isn't in the legal graph.
type ErrIllegalTransition struct {
	From, To domain.TaskState
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal state transition: %s -> %s", e.From, e.To)
}

// Transition moves the task to `to`, recording {from, to, actorId, reason,
// timestamp} in StateHistory. Rejects any edge not present in legalEdges.
func (m *Machine) Transition(to domain.TaskState, actorID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.task.State
	allowed, ok := legalEdges[from]
	if !ok || !allowed[to] {
		return &ErrIllegalTransition{From: from, To: to}
	}

	now := time.Now()
	m.task.State = to
	m.task.UpdatedAt = now
	m.task.StateHistory = append(m.task.StateHistory, domain.StateTransition{
		From:      from,
		To:        to,
		ActorID:   actorID,
		Reason:    reason,
		Timestamp: now,
	})

	logging.Get(logging.CategoryStateMachine).Debugw("task transitioned",
		"taskId", m.task.ID, "from", from, "to", to, "actor", actorID, "reason", reason)

	if m.emitter != nil {
		m.emitter.Emit(stream.Event{
			TaskID: m.task.ID,
			Phase:  "statemachine",
			Step:   string(to),
			Status: stream.StatusCompleted,
		})
	}
	return nil
}

// State returns the task's current state.
func (m *Machine) State() domain.TaskState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.task.State
}

// History returns a copy of the recorded transitions.
func (m *Machine) History() []domain.StateTransition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.StateTransition, len(m.task.StateHistory))
	copy(out, m.task.StateHistory)
	return out
}

// SetClassification is a set-once field setter: returns an error if the
// task already carries a classification.
func (m *Machine) SetClassification(c domain.Classification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.task.Classification != nil {
		return fmt.Errorf("classification already set for task %s", m.task.ID)
	}
	m.task.Classification = &c
	return nil
}

// SetContextPackage is a set-once field setter.
func (m *Machine) SetContextPackage(p domain.ContextPackage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.task.ContextPackage != nil {
		return fmt.Errorf("context package already set for task %s", m.task.ID)
	}
	m.task.ContextPackage = &p
	return nil
}

// SetExecutionResult is a set-once field setter.
func (m *Machine) SetExecutionResult(r domain.ExecutionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.task.ExecutionResult != nil {
		return fmt.Errorf("execution result already set for task %s", m.task.ID)
	}
	m.task.ExecutionResult = &r
	return nil
}

// SetQualityResult is a set-once field setter.
func (m *Machine) SetQualityResult(r domain.QualityResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.task.QualityResult != nil {
		return fmt.Errorf("quality result already set for task %s", m.task.ID)
	}
	m.task.QualityResult = &r
	return nil
}

// SetEscalation records (or overwrites) the current escalation; unlike the
// other setters this is not set-once, since a task can be escalated,
// resumed, and escalated again.
func (m *Machine) SetEscalation(e domain.Escalation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.task.Escalation = &e
}

// Task returns the underlying task record. Callers must not mutate State
// directly; go through Transition.
func (m *Machine) Task() *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.task
}
