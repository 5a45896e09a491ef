package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/subtitleflow/internal/jobstore"
	"github.com/Lllllllleong/subtitleflow/internal/models"
)

// fakeTranslationEngine upper-cases text. Targets listed in invalid fail
// every call, and texts containing failOn fail translation.
type fakeTranslationEngine struct {
	mu        sync.Mutex
	detected  string
	detectErr error
	invalid   map[string]bool
	failOn    string
	calls     []string
}

func (f *fakeTranslationEngine) Translate(ctx context.Context, text, target string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if f.invalid[target] {
		return "", errors.New("unsupported language " + target)
	}
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return "", errors.New("provider timeout")
	}
	return strings.ToUpper(text), nil
}

func (f *fakeTranslationEngine) Detect(ctx context.Context, text string) (string, error) {
	return f.detected, f.detectErr
}

// translations returns the texts sent for translation, without probes.
func (f *fakeTranslationEngine) translations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c != "test" {
			out = append(out, c)
		}
	}
	return out
}

type fakeTranscriber struct {
	result  Transcription
	err     error
	panicV  any
	gotHint string
	gotPath string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, mediaPath, hint string) (Transcription, error) {
	f.gotPath, f.gotHint = mediaPath, hint
	if f.panicV != nil {
		panic(f.panicV)
	}
	return f.result, f.err
}

type fakeProber struct {
	seconds float64
	err     error
}

func (f fakeProber) Duration(ctx context.Context, path string) (float64, error) {
	return f.seconds, f.err
}

type fakeDispatcher struct {
	tasks []Task
	err   error
}

func (f *fakeDispatcher) Submit(ctx context.Context, task Task) error {
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

// countingStore records progress writes.
type countingStore struct {
	*jobstore.MemoryStore
	progress []float64
}

func (s *countingStore) UpdateProgress(ctx context.Context, id string, progress float64) error {
	s.progress = append(s.progress, progress)
	return s.MemoryStore.UpdateProgress(ctx, id, progress)
}

// startFailingStore rejects the first move to processing with a transient
// store error.
type startFailingStore struct {
	*jobstore.MemoryStore
	failed bool
}

func (s *startFailingStore) UpdateStatus(ctx context.Context, id string, st models.JobStatus, errMsg string) error {
	if st == models.StatusProcessing && !s.failed {
		s.failed = true
		return status.Error(codes.Aborted, "too much contention on these documents")
	}
	return s.MemoryStore.UpdateStatus(ctx, id, st, errMsg)
}
