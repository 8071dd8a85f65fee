package main

import "testing"

func TestEnvOrPrefersFlagValue(t *testing.T) {
	if got := envOr("explicit", "FORGE_TEST_ENV_OR_UNSET"); got != "explicit" {
		t.Fatalf("expected flag value to win, got %q", got)
	}
}

func TestEnvOrFallsBackToEnv(t *testing.T) {
	t.Setenv("FORGE_TEST_ENV_OR_VAR", "from-env")
	if got := envOr("", "FORGE_TEST_ENV_OR_VAR"); got != "from-env" {
		t.Fatalf("expected env fallback, got %q", got)
	}
}
