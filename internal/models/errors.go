package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a job, user or artifact does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientCredits rejects an admission; nothing is written.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrInvalidTransition guards the job state machine.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrDispatch means an admitted and paid job could not be queued. The
	// job is already recorded as failed.
	ErrDispatch = errors.New("job dispatch failed")
)

// ValidationError reports bad caller input, such as an unsupported language
// code. Jobs are never created when admission fails validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// EngineError wraps a failure of the transcription or translation engine
// with the pipeline stage it happened in.
type EngineError struct {
	Stage string
	Err   error
}

func (e *EngineError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap exposes the engine's error for errors.Is / errors.As.
func (e *EngineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
