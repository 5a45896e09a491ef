package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Lllllllleong/subtitleflow/internal/jobstore"
	"github.com/Lllllllleong/subtitleflow/internal/models"
)

func newAdmission(store jobstore.Store, prober DurationProber, dispatcher Dispatcher) *Admission {
	engine := &fakeTranslationEngine{invalid: map[string]bool{"xx": true}}
	return NewAdmission(store, prober, NewTranslator(engine, 0), dispatcher)
}

// TestSubmitAdmitsAndDispatches charges ceil(minutes)+1 and queues the job.
func TestSubmitAdmitsAndDispatches(t *testing.T) {
	ctx := context.Background()
	store := jobstore.NewMemoryStore()
	store.SetBalance("u1", 10)
	dispatcher := &fakeDispatcher{}

	resp, err := newAdmission(store, fakeProber{seconds: 125}, dispatcher).Submit(ctx, SubmitRequest{
		OwnerID:        "u1",
		Filename:       "talk.mp4",
		MediaPath:      "/uploads/talk.mp4",
		TargetLanguage: "pt-BR",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if resp.Cost != 4 || resp.Status != models.StatusPending {
		t.Fatalf("response = %+v", resp)
	}
	if len(dispatcher.tasks) != 1 || dispatcher.tasks[0] != (Task{JobID: resp.JobID, MediaPath: "/uploads/talk.mp4"}) {
		t.Fatalf("tasks = %+v", dispatcher.tasks)
	}
	job, _ := store.Get(ctx, resp.JobID)
	if job.TargetLanguage != "pt" || job.Cost != 4 || job.OwnerID != "u1" {
		t.Fatalf("job = %+v", job)
	}
	if balance, _ := store.Balance(ctx, "u1"); balance != 6 {
		t.Fatalf("balance = %d, want 6", balance)
	}
}

// TestSubmitInsufficientCredits creates nothing.
func TestSubmitInsufficientCredits(t *testing.T) {
	ctx := context.Background()
	store := jobstore.NewMemoryStore()
	store.SetBalance("u1", 3)
	dispatcher := &fakeDispatcher{}

	_, err := newAdmission(store, fakeProber{seconds: 125}, dispatcher).Submit(ctx, SubmitRequest{OwnerID: "u1", Filename: "talk.mp4", MediaPath: "x"})
	if !errors.Is(err, models.ErrInsufficientCredits) {
		t.Fatalf("Submit() error = %v, want ErrInsufficientCredits", err)
	}
	if jobs, _ := store.ListByOwner(ctx, "u1", ""); len(jobs) != 0 {
		t.Fatalf("jobs = %d, want 0", len(jobs))
	}
	if len(dispatcher.tasks) != 0 {
		t.Fatal("nothing should be dispatched")
	}
}

// TestSubmitValidation rejects bad input before any debit.
func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		req    SubmitRequest
		prober fakeProber
	}{
		{"no owner", SubmitRequest{Filename: "a.mp4"}, fakeProber{seconds: 10}},
		{"no file", SubmitRequest{OwnerID: "u1"}, fakeProber{seconds: 10}},
		{"bad language", SubmitRequest{OwnerID: "u1", Filename: "a.mp4", TargetLanguage: "xx"}, fakeProber{seconds: 10}},
		{"unreadable media", SubmitRequest{OwnerID: "u1", Filename: "a.mp4"}, fakeProber{err: errors.New("moov atom not found")}},
	}
	for _, tc := range cases {
		store := jobstore.NewMemoryStore()
		store.SetBalance("u1", 10)

		_, err := newAdmission(store, tc.prober, &fakeDispatcher{}).Submit(ctx, tc.req)
		var vErr *models.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("%s: error = %v, want *ValidationError", tc.name, err)
		}
		if balance, _ := store.Balance(ctx, "u1"); balance != 10 {
			t.Fatalf("%s: balance = %d, want 10", tc.name, balance)
		}
	}
}

// TestSubmitDispatchFailure marks the admitted job failed.
func TestSubmitDispatchFailure(t *testing.T) {
	ctx := context.Background()
	store := jobstore.NewMemoryStore()
	store.SetBalance("u1", 10)

	_, err := newAdmission(store, fakeProber{seconds: 30}, &fakeDispatcher{err: errors.New("pool stopped")}).Submit(ctx, SubmitRequest{OwnerID: "u1", Filename: "a.mp4", MediaPath: "x"})
	if !errors.Is(err, models.ErrDispatch) {
		t.Fatalf("Submit() error = %v, want ErrDispatch", err)
	}
	jobs, _ := store.ListByOwner(ctx, "u1", "")
	if len(jobs) != 1 || jobs[0].Status != models.StatusFailed || jobs[0].ErrorMessage != "dispatch: pool stopped" {
		t.Fatalf("jobs = %+v", jobs)
	}
}
