// Package config loads the pipeline's YAML configuration: tier→model
// bindings and pricing, context budget defaults, worker turn caps, and
// self-heal/retry limits. Mirrors the teacher's internal/config package
// convention of one yaml-tagged struct per concern, but adds fsnotify-based
// hot reload: on a change the whole file is re-read over Default() and
// replaces the snapshot Current returns. Values a component copied earlier
// (such as the router's pricing) are not refreshed.
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
)

// TierName is one of the three LLM abstraction levels (spec.md §4.2).
type TierName string

const (
	TierOpus       TierName = "opus"
	TierSonnet     TierName = "sonnet"
	TierHaikuClass TierName = "haiku-class"
)

// Pricing is USD per 1M tokens.
type Pricing struct {
	InputPer1M       float64 `yaml:"input_per_1m"`
	OutputPer1M      float64 `yaml:"output_per_1m"`
	CachedInputPer1M float64 `yaml:"cached_input_per_1m"`
}

// TierBinding maps a tier to its provider+model+pricing triple.
type TierBinding struct {
	Provider string  `yaml:"provider"`
	Model    string  `yaml:"model"`
	Pricing  Pricing `yaml:"pricing"`
}

// Config is the root configuration document.
type Config struct {
	Debug bool `yaml:"debug"`
	Dev   bool `yaml:"dev"`

	Tiers map[TierName]TierBinding `yaml:"tiers"`

	ContextBudgetDefault int `yaml:"context_budget_default"`

	MaxAutoRetries             int `yaml:"max_auto_retries"`
	MaxCompilationFixAttempts  int `yaml:"max_compilation_fix_attempts"`
	MaxConcurrentLLMCalls      int `yaml:"max_concurrent_llm_calls"`

	WorkerMaxTurns map[string]int `yaml:"worker_max_turns"`

	PersistenceDSN string `yaml:"persistence_dsn"`
}

// Default returns the compiled-in fallback configuration (SPEC_FULL.md §4.2).
func Default() *Config {
	return &Config{
		Debug: false,
		Tiers: map[TierName]TierBinding{
			TierOpus: {
				Provider: "anthropic",
				Model:    "claude-opus-4",
				Pricing:  Pricing{InputPer1M: 15, OutputPer1M: 75, CachedInputPer1M: 1.5},
			},
			TierSonnet: {
				Provider: "anthropic",
				Model:    "claude-sonnet-4",
				Pricing:  Pricing{InputPer1M: 3, OutputPer1M: 15, CachedInputPer1M: 0.3},
			},
			TierHaikuClass: {
				Provider: "gemini",
				Model:    "gemini-2.5-flash",
				Pricing:  Pricing{InputPer1M: 0.3, OutputPer1M: 1.2, CachedInputPer1M: 0.075},
			},
		},
		ContextBudgetDefault:      40000,
		MaxAutoRetries:            3,
		MaxCompilationFixAttempts: 2,
		MaxConcurrentLLMCalls:     4,
		WorkerMaxTurns: map[string]int{
			"file_discovery":        10,
			"pattern_extraction":    10,
			"dependency_mapper":     10,
			"constraint_identifier": 8,
			"web_research":          1,
			"documentation_reader":  1,
		},
		PersistenceDSN: "file:forge.db?cache=shared",
	}
}

// Manager owns the current config and watches configPath for changes.
type Manager struct {
	mu         sync.RWMutex
	cfg        *Config
	configPath string
	watcher    *fsnotify.Watcher
}

// Load reads configPath (YAML) layered over Default(); a missing file is
// not an error — the defaults are used and a Manager is still returned so
// watching can start once the file is created.
func Load(configPath string) (*Manager, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err == nil {
			if uerr := yaml.Unmarshal(data, cfg); uerr != nil {
				return nil, fmt.Errorf("parsing config %s: %w", configPath, uerr)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", configPath, err)
		}
	}

	return &Manager{cfg: cfg, configPath: configPath}, nil
}

// Current returns a snapshot of the live config. Safe for concurrent use.
func (m *Manager) Current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.cfg
}

// Watch starts an fsnotify watch on the config file and, on write or create
// events, re-reads the whole file over Default() and replaces the live
// config. It is a no-op if no
// configPath was given to Load. Returns a stop function.
func (m *Manager) Watch() (func(), error) {
	if m.configPath == "" {
		return func() {}, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}
	if err := w.Add(m.configPath); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watching config %s: %w", m.configPath, err)
	}
	m.watcher = w

	log := logging.Get(logging.CategoryPersistence)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case evt, ok := <-w.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := m.reload(); err != nil {
					log.Warnw("config reload failed", "error", err)
				} else {
					log.Infow("config reloaded", "path", m.configPath)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warnw("config watcher error", "error", err)
			case <-done:
				return
			}
		}
	}()

	stop := func() {
		close(done)
		_ = w.Close()
	}
	return stop, nil
}

func (m *Manager) reload() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}
	next := Default()
	if err := yaml.Unmarshal(data, next); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = next
	return nil
}
