package main

import "testing"

func TestEnvOr(t *testing.T) {
	t.Setenv("COLLAB_TEST_KEY", "")
	if got := envOr("COLLAB_TEST_KEY", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}

	t.Setenv("COLLAB_TEST_KEY", "value")
	if got := envOr("COLLAB_TEST_KEY", "fallback"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
}
