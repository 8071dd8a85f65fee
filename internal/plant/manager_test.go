package plant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/persistence"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	store, err := persistence.Open("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, nil)
}

func TestIntakeClassifiesBugfixToPreparation(t *testing.T) {
	m := newTestManager(t)
	res := m.Intake(context.Background(), "fix the crash happening on login")
	require.Equal(t, domain.StateClassified, res.Machine.State())
	c := res.Machine.Task().Classification
	require.NotNil(t, c)
	require.Equal(t, domain.ProjectBugfix, c.ProjectType)
	require.Equal(t, domain.DepartmentPreparation, c.Department)
}

func TestIntakeClassifiesResearchToRAndD(t *testing.T) {
	m := newTestManager(t)
	res := m.Intake(context.Background(), "investigate and evaluate options for a new caching layer")
	c := res.Machine.Task().Classification
	require.NotNil(t, c)
	require.Equal(t, domain.ProjectResearch, c.ProjectType)
	require.Equal(t, domain.DepartmentRAndD, c.Department)
}

func TestIntakeLowConfidenceFlagsHumanSync(t *testing.T) {
	m := newTestManager(t)
	res := m.Intake(context.Background(), "asdf qwer zxcv")
	require.True(t, res.NeedsHumanSync)
	require.NotEmpty(t, res.Explanation)
}

func TestIntakeLargeScopeFromModifierWords(t *testing.T) {
	m := newTestManager(t)
	res := m.Intake(context.Background(), "rewrite the entire authentication system")
	require.Equal(t, domain.ScopeLarge, res.Machine.Task().Classification.Scope)
}

func TestHandleEscalationBlocksTask(t *testing.T) {
	m := newTestManager(t)
	res := m.Intake(context.Background(), "add support for dark mode")

	esc := m.HandleEscalation(res.Machine, "ambiguous acceptance criteria", []string{"proceed", "clarify"})
	require.Equal(t, "humanSync", esc.Action)
	require.Equal(t, domain.StateBlocked, res.Machine.State())
}

func TestResumeTaskRequiresBlockedState(t *testing.T) {
	m := newTestManager(t)
	res := m.Intake(context.Background(), "add support for dark mode")

	err := m.ResumeTask(res.Machine, "proceed as planned", domain.StatePreparing)
	require.Error(t, err)

	m.HandleEscalation(res.Machine, "paused", nil)
	err = m.ResumeTask(res.Machine, "proceed as planned", domain.StateClassified)
	require.NoError(t, err)
	require.Equal(t, domain.StateClassified, res.Machine.State())
}
