package jobstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/subtitleflow/internal/credits"
	"github.com/Lllllllleong/subtitleflow/internal/models"
)

// FirestoreStore keeps jobs in one collection and user balances in another.
// Every job mutation runs in a transaction so the state machine is checked
// against the committed record.
type FirestoreStore struct {
	client          *firestore.Client
	jobsCollection  string
	usersCollection string
	now             func() time.Time
}

// NewFirestoreStore wires the store to existing collections.
func NewFirestoreStore(client *firestore.Client, jobsCollection, usersCollection string) *FirestoreStore {
	return &FirestoreStore{
		client:          client,
		jobsCollection:  jobsCollection,
		usersCollection: usersCollection,
		now:             time.Now,
	}
}

func (s *FirestoreStore) jobRef(id string) *firestore.DocumentRef {
	return s.client.Collection(s.jobsCollection).Doc(id)
}

func (s *FirestoreStore) userRef(id string) *firestore.DocumentRef {
	return s.client.Collection(s.usersCollection).Doc(id)
}

func (s *FirestoreStore) Balance(ctx context.Context, userID string) (int64, error) {
	snap, err := s.userRef(userID).Get(ctx)
	if err != nil {
		return 0, mapNotFound(err, "user", userID)
	}
	return balanceOf(snap)
}

// TryDebit reads and debits the balance inside one transaction, so two
// concurrent debits cannot both pass against the same stale balance.
func (s *FirestoreStore) TryDebit(ctx context.Context, userID string, cost int64) (bool, error) {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return s.debitTx(tx, userID, cost)
	})
	if err != nil {
		if isInsufficient(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *FirestoreStore) debitTx(tx *firestore.Transaction, userID string, cost int64) error {
	ref := s.userRef(userID)
	snap, err := tx.Get(ref)
	if err != nil {
		return mapNotFound(err, "user", userID)
	}
	balance, err := balanceOf(snap)
	if err != nil {
		return err
	}
	left, err := credits.Debit(balance, cost)
	if err != nil {
		return err
	}
	return tx.Update(ref, []firestore.Update{{Path: credits.BalanceField, Value: left}})
}

func (s *FirestoreStore) Create(ctx context.Context, ownerID, filename, targetLanguage string) (string, error) {
	ref := s.client.Collection(s.jobsCollection).NewDoc()
	if _, err := ref.Create(ctx, newJob(ownerID, filename, targetLanguage, 0, s.now())); err != nil {
		return "", fmt.Errorf("failed to create job document: %w", err)
	}
	return ref.ID, nil
}

// Admit debits the owner and creates the job in the same transaction. A
// rejected debit aborts the transaction before anything is written.
func (s *FirestoreStore) Admit(ctx context.Context, req AdmitRequest) (string, error) {
	ref := s.client.Collection(s.jobsCollection).NewDoc()
	job := newJob(req.OwnerID, req.OriginalFilename, req.TargetLanguage, req.Cost, s.now())

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := s.debitTx(tx, req.OwnerID, req.Cost); err != nil {
			return err
		}
		return tx.Create(ref, job)
	})
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (models.ExtractionJob, error) {
	snap, err := s.jobRef(id).Get(ctx)
	if err != nil {
		return models.ExtractionJob{}, mapNotFound(err, "job", id)
	}
	return decodeJob(snap)
}

func (s *FirestoreStore) ListByOwner(ctx context.Context, ownerID string, st models.JobStatus) ([]models.ExtractionJob, error) {
	q := s.client.Collection(s.jobsCollection).Where("ownerId", "==", ownerID)
	if st != "" {
		q = q.Where("status", "==", string(st))
	}
	it := q.OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer it.Stop()

	jobs := make([]models.ExtractionJob, 0)
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list jobs for %s: %w", ownerID, err)
		}
		job, err := decodeJob(snap)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *FirestoreStore) UpdateProgress(ctx context.Context, id string, progress float64) error {
	return s.mutate(ctx, id, func(job models.ExtractionJob) ([]firestore.Update, error) {
		next, changed, err := applyProgress(job, progress)
		if err != nil || !changed {
			return nil, err
		}
		return []firestore.Update{{Path: "progress", Value: next.Progress}}, nil
	})
}

func (s *FirestoreStore) UpdateStatus(ctx context.Context, id string, st models.JobStatus, errMsg string) error {
	return s.mutate(ctx, id, func(job models.ExtractionJob) ([]firestore.Update, error) {
		next, err := applyStatus(job, st, errMsg)
		if err != nil {
			return nil, err
		}
		return []firestore.Update{
			{Path: "status", Value: string(next.Status)},
			{Path: "errorMessage", Value: next.ErrorMessage},
		}, nil
	})
}

func (s *FirestoreStore) SetLanguage(ctx context.Context, id, language string) error {
	_, err := s.jobRef(id).Update(ctx, []firestore.Update{{Path: "targetLanguage", Value: language}})
	if err != nil {
		return mapNotFound(err, "job", id)
	}
	return nil
}

func (s *FirestoreStore) Complete(ctx context.Context, id, artifactFilename string) error {
	return s.mutate(ctx, id, func(job models.ExtractionJob) ([]firestore.Update, error) {
		next, err := applyComplete(job, artifactFilename, s.now())
		if err != nil {
			return nil, err
		}
		return []firestore.Update{
			{Path: "status", Value: string(next.Status)},
			{Path: "progress", Value: next.Progress},
			{Path: "errorMessage", Value: ""},
			{Path: "artifactFilename", Value: next.ArtifactFilename},
			{Path: "completedAt", Value: *next.CompletedAt},
		}, nil
	})
}

// mutate reads the job and applies the updates fn derives from it in one
// transaction. No updates means nothing to write.
func (s *FirestoreStore) mutate(ctx context.Context, id string, fn func(models.ExtractionJob) ([]firestore.Update, error)) error {
	ref := s.jobRef(id)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return mapNotFound(err, "job", id)
		}
		job, err := decodeJob(snap)
		if err != nil {
			return err
		}
		updates, err := fn(job)
		if err != nil || len(updates) == 0 {
			return err
		}
		return tx.Update(ref, updates)
	})
}

func decodeJob(snap *firestore.DocumentSnapshot) (models.ExtractionJob, error) {
	var job models.ExtractionJob
	if err := snap.DataTo(&job); err != nil {
		return models.ExtractionJob{}, fmt.Errorf("failed to decode job %s: %w", snap.Ref.ID, err)
	}
	job.ID = snap.Ref.ID
	return job, nil
}

func balanceOf(snap *firestore.DocumentSnapshot) (int64, error) {
	raw, err := snap.DataAt(credits.BalanceField)
	if err != nil {
		return 0, fmt.Errorf("user %s has no %s field: %w", snap.Ref.ID, credits.BalanceField, err)
	}
	switch v := raw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("user %s: %s has unexpected type %T", snap.Ref.ID, credits.BalanceField, raw)
	}
}

func mapNotFound(err error, kind, id string) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return fmt.Errorf("failed to read %s %s: %w", kind, id, err)
}
