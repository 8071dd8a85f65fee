package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContextAndGetByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.StoreContext(ctx, "decided to use sqlite for persistence", ContextDecision, []string{"persistence", "sqlite"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := s.GetContextByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "decided to use sqlite for persistence", rec.Content)
	require.Equal(t, ContextDecision, rec.Type)
	require.ElementsMatch(t, []string{"persistence", "sqlite"}, rec.Tags)
}

func TestGetContextByIDMissingReturnsNilNil(t *testing.T) {
	s := openTestStore(t)
	rec, err := s.GetContextByID(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestSearchContextMatchesContentOrTags(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	idA, err := s.StoreContext(ctx, "fixed a compilation error in router.go", ContextError, []string{"router"})
	require.NoError(t, err)
	_, err = s.StoreContext(ctx, "unrelated planning note", ContextPlanning, []string{"scope"})
	require.NoError(t, err)

	ids, err := s.SearchContext(ctx, "router")
	require.NoError(t, err)
	require.Contains(t, ids, idA)
	require.Len(t, ids, 1)
}

func TestPatternScoreSaveAndLoadRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := domain.PatternScore{
		PatternID:    "exec-feature-abc123",
		Name:         "exec-feature-abc123",
		SuccessCount: 3,
		FailureCount: 1,
		LastUsed:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Contexts:     []string{"feature"},
	}
	require.NoError(t, s.SavePatternScore(ctx, p))

	loaded, err := s.LoadPatternScores(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, p.PatternID, loaded[0].PatternID)
	require.Equal(t, p.SuccessCount, loaded[0].SuccessCount)
	require.Equal(t, p.FailureCount, loaded[0].FailureCount)
	require.Equal(t, p.Contexts, loaded[0].Contexts)
	require.WithinDuration(t, p.LastUsed, loaded[0].LastUsed, time.Second)
}

func TestPatternScoreSaveUpserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := domain.PatternScore{PatternID: "p1", Name: "p1", SuccessCount: 1}
	require.NoError(t, s.SavePatternScore(ctx, p))

	p.SuccessCount = 5
	p.FailureCount = 2
	require.NoError(t, s.SavePatternScore(ctx, p))

	loaded, err := s.LoadPatternScores(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, 5, loaded[0].SuccessCount)
	require.Equal(t, 2, loaded[0].FailureCount)
}
