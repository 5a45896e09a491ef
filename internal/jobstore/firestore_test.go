package jobstore

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"github.com/Lllllllleong/subtitleflow/internal/credits"
	"github.com/Lllllllleong/subtitleflow/internal/models"
)

// newEmulatorStore connects to the Firestore emulator. Each test gets its
// own collections.
func newEmulatorStore(t *testing.T) (*FirestoreStore, *firestore.Client) {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "subtitleflow-test")
	if err != nil {
		t.Fatalf("firestore.NewClient() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })

	suffix := uuid.NewString()
	return NewFirestoreStore(client, "jobs_"+suffix, "users_"+suffix), client
}

func seedBalance(t *testing.T, client *firestore.Client, store *FirestoreStore, userID string, balance int64) {
	t.Helper()
	if _, err := client.Collection(store.usersCollection).Doc(userID).Set(context.Background(), map[string]any{credits.BalanceField: balance}); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
}

// TestFirestoreAdmitConcurrentExactBalance lets only one of two racing
// admissions through when the balance covers exactly one job.
func TestFirestoreAdmitConcurrentExactBalance(t *testing.T) {
	store, client := newEmulatorStore(t)
	ctx := context.Background()
	seedBalance(t, client, store, "u1", 4)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Admit(ctx, AdmitRequest{OwnerID: "u1", OriginalFilename: "a.mp4", Cost: 4})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, models.ErrInsufficientCredits) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d admissions succeeded, want 1", succeeded)
	}
	if balance, err := store.Balance(ctx, "u1"); err != nil || balance != 0 {
		t.Fatalf("Balance() = %d, %v, want 0", balance, err)
	}
}

// TestFirestoreAdmitRejectedWritesNothing checks a failed debit leaves the
// balance and the job collection untouched.
func TestFirestoreAdmitRejectedWritesNothing(t *testing.T) {
	store, client := newEmulatorStore(t)
	ctx := context.Background()
	seedBalance(t, client, store, "u1", 3)

	if _, err := store.Admit(ctx, AdmitRequest{OwnerID: "u1", OriginalFilename: "a.mp4", Cost: 4}); !errors.Is(err, models.ErrInsufficientCredits) {
		t.Fatalf("Admit() error = %v, want ErrInsufficientCredits", err)
	}
	if _, err := store.Admit(ctx, AdmitRequest{OwnerID: "ghost", OriginalFilename: "a.mp4", Cost: 1}); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Admit() for unknown user error = %v, want ErrNotFound", err)
	}
	if balance, _ := store.Balance(ctx, "u1"); balance != 3 {
		t.Fatalf("balance = %d, want 3", balance)
	}
	docs, err := client.Collection(store.jobsCollection).Documents(ctx).GetAll()
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("jobs = %d, want 0", len(docs))
	}
}

// TestFirestoreLifecycle drives a job through the state machine.
func TestFirestoreLifecycle(t *testing.T) {
	store, client := newEmulatorStore(t)
	ctx := context.Background()
	seedBalance(t, client, store, "u1", 10)

	id, err := store.Admit(ctx, AdmitRequest{OwnerID: "u1", OriginalFilename: "a.mp4", Cost: 2})
	if err != nil {
		t.Fatalf("Admit() error = %v", err)
	}
	if err := store.UpdateProgress(ctx, id, 10); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("progress on pending job error = %v, want ErrInvalidTransition", err)
	}
	if err := store.UpdateStatus(ctx, id, models.StatusProcessing, ""); err != nil {
		t.Fatalf("to processing: %v", err)
	}
	for _, p := range []float64{10, 60, 40} {
		if err := store.UpdateProgress(ctx, id, p); err != nil {
			t.Fatalf("UpdateProgress(%v): %v", p, err)
		}
	}
	if err := store.SetLanguage(ctx, id, "fr"); err != nil {
		t.Fatalf("SetLanguage() error = %v", err)
	}

	job, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if job.Progress != 60 || job.TargetLanguage != "fr" || job.Cost != 2 {
		t.Fatalf("job = %+v", job)
	}

	if err := store.Complete(ctx, id, "a.fr.srt"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	job, _ = store.Get(ctx, id)
	if job.Status != models.StatusCompleted || job.Progress != 100 || job.CompletedAt == nil || job.ArtifactFilename != "a.fr.srt" {
		t.Fatalf("completed job = %+v", job)
	}
	if err := store.UpdateStatus(ctx, id, models.StatusFailed, "late"); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("leaving completed error = %v, want ErrInvalidTransition", err)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}
}
