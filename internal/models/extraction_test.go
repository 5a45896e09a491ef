package models

import (
	"encoding/json"
	"errors"
	"testing"
)

// TestCanTransition walks the full state table.
func TestCanTransition(t *testing.T) {
	all := []JobStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}
	allowed := map[[2]JobStatus]bool{
		{StatusPending, StatusProcessing}:   true,
		{StatusPending, StatusFailed}:       true,
		{StatusProcessing, StatusCompleted}: true,
		{StatusProcessing, StatusFailed}:    true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]JobStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

// TestProgressViewJSON checks the polling payload field names.
func TestProgressViewJSON(t *testing.T) {
	job := ExtractionJob{ID: "j1", Progress: 42.5, Status: StatusFailed, ErrorMessage: "boom"}

	data, err := json.Marshal(job.View())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":"j1","progress":42.5,"status":"failed","error_message":"boom"}`
	if string(data) != want {
		t.Fatalf("json = %s, want %s", data, want)
	}
}

// TestEngineErrorUnwrap checks errors.Is reaches the engine error.
func TestEngineErrorUnwrap(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := error(&EngineError{Stage: "transcribing", Err: cause})

	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to match cause")
	}
	if err.Error() != "transcribing: quota exceeded" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
