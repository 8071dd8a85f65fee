package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RidgetopAi/the-forge-sub002/internal/persistence"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show learned pattern scores from the persistence store",
	RunE:  runStatus,
}

var historyCmd = &cobra.Command{
	Use:   "history <query>",
	Short: "Search persisted context records (planning, completion, error, decision)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistory,
}

func openStore() (*persistence.Store, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return persistence.Open(cfg.PersistenceDSN)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	scores, err := store.LoadPatternScores(ctx)
	if err != nil {
		return fmt.Errorf("loading pattern scores: %w", err)
	}
	if len(scores) == 0 {
		fmt.Println("no patterns learned yet")
		return nil
	}
	for _, s := range scores {
		fmt.Printf("%-40s successes=%-4d failures=%-4d rate=%.2f\n", s.PatternID, s.SuccessCount, s.FailureCount, s.SuccessRate())
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	query := strings.Join(args, " ")
	ids, err := store.SearchContext(ctx, query)
	if err != nil {
		return fmt.Errorf("searching context: %w", err)
	}
	if len(ids) == 0 {
		fmt.Println("no matching records")
		return nil
	}
	for _, id := range ids {
		rec, err := store.GetContextByID(ctx, id)
		if err != nil || rec == nil {
			continue
		}
		fmt.Printf("[%s] %s (%s) %s\n", rec.CreatedAt.Format("2006-01-02 15:04"), rec.ID, rec.Type, strings.Join(rec.Tags, ","))
		fmt.Printf("  %s\n", rec.Content)
	}
	return nil
}
