package statemachine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
)

func newTask() *domain.Task {
	return &domain.Task{ID: "t1", State: domain.StateIntake}
}

func TestLegalPath(t *testing.T) {
	m := New(newTask(), nil)

	require.NoError(t, m.Transition(domain.StateClassified, "plant", "intake classified"))
	require.NoError(t, m.Transition(domain.StatePreparing, "preparation", "starting prep"))
	require.NoError(t, m.Transition(domain.StatePrepared, "preparation", "prep done"))
	require.NoError(t, m.Transition(domain.StateExecuting, "execution", "starting exec"))
	require.NoError(t, m.Transition(domain.StateReviewing, "execution", "exec done"))
	require.NoError(t, m.Transition(domain.StateCompleted, "quality", "quality approved"))

	history := m.History()
	require.Len(t, history, 6)
	require.Equal(t, domain.StateIntake, history[0].From)
	require.Equal(t, domain.StateCompleted, m.State())
}

func TestIllegalTransitionRejected(t *testing.T) {
	m := New(newTask(), nil)
	err := m.Transition(domain.StateExecuting, "actor", "skip ahead")
	require.Error(t, err)
	var illegal *ErrIllegalTransition
	require.ErrorAs(t, err, &illegal)
	require.Equal(t, domain.StateIntake, m.State(), "state must not change on rejection")
	require.Empty(t, m.History())
}

func TestBlockedCanReturnToEarlierStates(t *testing.T) {
	m := New(newTask(), nil)
	require.NoError(t, m.Transition(domain.StateClassified, "plant", "classified"))
	require.NoError(t, m.Transition(domain.StateBlocked, "plant", "needs human"))
	require.NoError(t, m.Transition(domain.StatePreparing, "plant", "resumed"))
}

func TestTerminalStatesHaveNoOutEdges(t *testing.T) {
	m := New(newTask(), nil)
	require.NoError(t, m.Transition(domain.StateClassified, "a", ""))
	require.NoError(t, m.Transition(domain.StatePreparing, "a", ""))
	require.NoError(t, m.Transition(domain.StateFailed, "a", "boom"))
	require.Error(t, m.Transition(domain.StateIntake, "a", "retry"))
}

func TestSetOnceFields(t *testing.T) {
	m := New(newTask(), nil)
	require.NoError(t, m.SetClassification(domain.Classification{ProjectType: domain.ProjectFeature, Confidence: 0.9}))
	require.Error(t, m.SetClassification(domain.Classification{ProjectType: domain.ProjectBugfix}))
}
