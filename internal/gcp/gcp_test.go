package gcp

import "testing"

// TestGetEnvFallback checks set and unset keys.
func TestGetEnvFallback(t *testing.T) {
	t.Setenv("SUBTITLEFLOW_TEST_KEY", "value")
	if got := GetEnv("SUBTITLEFLOW_TEST_KEY", "fallback"); got != "value" {
		t.Fatalf("GetEnv() = %q, want value", got)
	}
	if got := GetEnv("SUBTITLEFLOW_TEST_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("GetEnv() = %q, want fallback", got)
	}
	t.Setenv("SUBTITLEFLOW_TEST_EMPTY", "")
	if got := GetEnv("SUBTITLEFLOW_TEST_EMPTY", "fallback"); got != "fallback" {
		t.Fatalf("GetEnv() on empty = %q, want fallback", got)
	}
}
