package feedback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RidgetopAi/the-forge-sub002/internal/config"
	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/llm"
	"github.com/RidgetopAi/the-forge-sub002/internal/pattern"
	"github.com/RidgetopAi/the-forge-sub002/internal/persistence"
)

type fakeClient struct {
	resp llm.CallResponse
	err  error
}

func (f *fakeClient) Call(ctx context.Context, req llm.CallRequest) (llm.CallResponse, error) {
	return f.resp, f.err
}

func newTestRouter(t *testing.T, opusClient llm.ProviderClient) (*Router, *pattern.Tracker) {
	t.Helper()
	store, err := persistence.Open("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	tracker := pattern.New(store)

	clients := map[llm.Tier]llm.ProviderClient{
		llm.TierOpus:       opusClient,
		llm.TierSonnet:     &fakeClient{},
		llm.TierHaikuClass: &fakeClient{},
	}
	lr, err := llm.NewRouter(*config.Default(), clients)
	require.NoError(t, err)

	return New(lr, tracker), tracker
}

func TestRouteErrorExceedsMaxRetriesEscalates(t *testing.T) {
	r, _ := newTestRouter(t, &fakeClient{})
	action := r.RouteError(context.Background(), domain.ErrorContext{
		Message:          "TS2304: Cannot find name 'x'.",
		PreviousAttempts: 3,
		PatternID:        "p1",
	})
	require.Equal(t, domain.ActionEscalate, action.Action)
	require.Equal(t, "p1", action.PatternToUpdate)
}

func TestRouteErrorTypeErrorRetriesWithSuggestedFix(t *testing.T) {
	r, _ := newTestRouter(t, &fakeClient{})
	action := r.RouteError(context.Background(), domain.ErrorContext{Message: "error TS2304: Cannot find name 'Widget'."})
	require.Equal(t, domain.ActionRetry, action.Action)
	require.Equal(t, "Import or declare 'Widget'", action.SuggestedFix)
}

func TestRouteErrorTimeoutEscalates(t *testing.T) {
	r, _ := newTestRouter(t, &fakeClient{})
	action := r.RouteError(context.Background(), domain.ErrorContext{Message: "context deadline exceeded"})
	require.Equal(t, domain.ActionEscalate, action.Action)
}

func TestRouteErrorRuntimeErrorRetriesThenEscalates(t *testing.T) {
	r, _ := newTestRouter(t, &fakeClient{})
	first := r.RouteError(context.Background(), domain.ErrorContext{Message: "TypeError: cannot read properties of null", PreviousAttempts: 0})
	require.Equal(t, domain.ActionRetry, first.Action)

	second := r.RouteError(context.Background(), domain.ErrorContext{Message: "TypeError: cannot read properties of null", PreviousAttempts: 1})
	require.Equal(t, domain.ActionEscalate, second.Action)
}

func TestRouteErrorUnknownFallsBackToOpusStuckPoint(t *testing.T) {
	opus := &fakeClient{resp: llm.CallResponse{
		ToolCalls: []llm.ToolCall{{
			Name: "submit_result",
			Input: map[string]any{
				"action":       "retry",
				"reason":       "looks like a transient infra hiccup",
				"suggestedFix": "retry the same operation",
			},
		}},
	}}
	r, _ := newTestRouter(t, opus)
	action := r.RouteError(context.Background(), domain.ErrorContext{Message: "something bizarre with no recognizable shape"})
	require.Equal(t, domain.ActionRetry, action.Action)
	require.Equal(t, "retry the same operation", action.SuggestedFix)
}

func TestRouteErrorUnknownFallsBackToHumanSyncOnBadJSON(t *testing.T) {
	opus := &fakeClient{resp: llm.CallResponse{Text: "not a tool call"}}
	r, _ := newTestRouter(t, opus)
	action := r.RouteError(context.Background(), domain.ErrorContext{Message: "something bizarre with no recognizable shape"})
	require.Equal(t, domain.ActionHumanSync, action.Action)
}

func TestMaxAutoRetriesGetSet(t *testing.T) {
	r, _ := newTestRouter(t, &fakeClient{})
	require.Equal(t, 3, r.MaxAutoRetries())
	r.SetMaxAutoRetries(5)
	require.Equal(t, 5, r.MaxAutoRetries())
}

func TestRecordPatternSuccessUpdatesTracker(t *testing.T) {
	r, tracker := newTestRouter(t, &fakeClient{})
	r.RecordPatternSuccess(context.Background(), "exec-feature-abc", []string{"feature"})
	p, ok := tracker.GetPattern(context.Background(), "exec-feature-abc")
	require.True(t, ok)
	require.Equal(t, 1, p.SuccessCount)
}
