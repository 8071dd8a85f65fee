// Package main implements the forge CLI: the command-line entry point that
// drives a request through the pipeline's four core departments (Plant
// Manager, Preparation Foreman, Execution Foreman, Quality Gate) end to end.
//
// This file is the entry point and command registration hub, mirroring the
// teacher's cmd/nerd/main.go convention of one file per concern:
//   - main.go    - entry point, rootCmd, global flags, wiring, init()
//   - cmd_run.go - runCmd, runRequest() pipeline driver
//   - cmd_status.go - statusCmd, historyCmd
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/RidgetopAi/the-forge-sub002/internal/config"
	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
)

var (
	// Global flags
	verbose      bool
	anthropicKey string
	geminiKey    string
	workspace    string
	configPath   string
	timeout      time.Duration
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "the-forge - an agentic code-change pipeline",
	Long: `forge turns a natural-language change request into reviewed, applied
code: it classifies the request, gathers structured repository context,
asks an LLM for file-level edits, applies and compiles them (self-healing
on failure), and runs a quality gate before handing the result back.

Run "forge run <request>" to submit a change request.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Initialize(verbose, false)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&anthropicKey, "anthropic-key", "", "Anthropic API key (or set ANTHROPIC_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&geminiKey, "gemini-key", "", "Gemini API key (or set GEMINI_API_KEY)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Project root to operate on (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to forge.yaml (defaults to compiled-in config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Overall pipeline timeout")

	rootCmd.AddCommand(runCmd, statusCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveWorkspace returns the absolute workspace root, defaulting to the
// current working directory.
func resolveWorkspace() (string, error) {
	if workspace == "" {
		return os.Getwd()
	}
	return filepath.Abs(workspace)
}

// resolveConfig loads configPath layered over config.Default(), falling
// back to the bare defaults when no path was given.
func resolveConfig() (config.Config, error) {
	mgr, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	return mgr.Current(), nil
}

func envOr(flagValue, envVar string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(envVar)
}
