package jobstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Lllllllleong/subtitleflow/internal/credits"
	"github.com/Lllllllleong/subtitleflow/internal/models"
)

// MemoryStore keeps jobs and balances in process memory. It backs local
// development (STORE_BACKEND=memory) and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	jobs     map[string]models.ExtractionJob
	balances map[string]int64
	now      func() time.Time

	// startingBalance is granted to users seen for the first time.
	startingBalance int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:     map[string]models.ExtractionJob{},
		balances: map[string]int64{},
		now:      time.Now,
	}
}

// SetBalance seeds or overwrites a user's credits.
func (s *MemoryStore) SetBalance(userID string, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = balance
}

// SetStartingBalance grants unknown users credits on first use, so local
// development works without seeding accounts.
func (s *MemoryStore) SetStartingBalance(balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startingBalance = balance
}

func (s *MemoryStore) Balance(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balanceLocked(userID)
}

func (s *MemoryStore) balanceLocked(userID string) (int64, error) {
	balance, ok := s.balances[userID]
	if !ok {
		if s.startingBalance > 0 {
			return s.startingBalance, nil
		}
		return 0, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	return balance, nil
}

func (s *MemoryStore) TryDebit(ctx context.Context, userID string, cost int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.debitLocked(userID, cost); err != nil {
		if isInsufficient(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) debitLocked(userID string, cost int64) error {
	balance, err := s.balanceLocked(userID)
	if err != nil {
		return err
	}
	left, err := credits.Debit(balance, cost)
	if err != nil {
		return err
	}
	s.balances[userID] = left
	return nil
}

func (s *MemoryStore) Create(ctx context.Context, ownerID, filename, targetLanguage string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(newJob(ownerID, filename, targetLanguage, 0, s.now())), nil
}

func (s *MemoryStore) Admit(ctx context.Context, req AdmitRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.debitLocked(req.OwnerID, req.Cost); err != nil {
		return "", err
	}
	return s.insertLocked(newJob(req.OwnerID, req.OriginalFilename, req.TargetLanguage, req.Cost, s.now())), nil
}

func (s *MemoryStore) insertLocked(job models.ExtractionJob) string {
	job.ID = uuid.NewString()
	s.jobs[job.ID] = job
	return job.ID
}

func (s *MemoryStore) Get(ctx context.Context, id string) (models.ExtractionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return models.ExtractionJob{}, fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}
	return copyJob(job), nil
}

func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID string, status models.JobStatus) ([]models.ExtractionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ExtractionJob, 0)
	for _, job := range s.jobs {
		if job.OwnerID != ownerID || (status != "" && job.Status != status) {
			continue
		}
		out = append(out, copyJob(job))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpdateProgress(ctx context.Context, id string, progress float64) error {
	return s.mutate(id, func(job models.ExtractionJob) (models.ExtractionJob, error) {
		next, _, err := applyProgress(job, progress)
		return next, err
	})
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, status models.JobStatus, errMsg string) error {
	return s.mutate(id, func(job models.ExtractionJob) (models.ExtractionJob, error) {
		return applyStatus(job, status, errMsg)
	})
}

func (s *MemoryStore) SetLanguage(ctx context.Context, id, language string) error {
	return s.mutate(id, func(job models.ExtractionJob) (models.ExtractionJob, error) {
		job.TargetLanguage = language
		return job, nil
	})
}

func (s *MemoryStore) Complete(ctx context.Context, id, artifactFilename string) error {
	return s.mutate(id, func(job models.ExtractionJob) (models.ExtractionJob, error) {
		return applyComplete(job, artifactFilename, s.now())
	})
}

// mutate applies fn under the write lock and stores the result only when fn
// succeeds, so a rejected update leaves the record untouched.
func (s *MemoryStore) mutate(id string, fn func(models.ExtractionJob) (models.ExtractionJob, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}
	next, err := fn(copyJob(job))
	if err != nil {
		return err
	}
	s.jobs[id] = next
	return nil
}

func copyJob(job models.ExtractionJob) models.ExtractionJob {
	if job.CompletedAt != nil {
		at := *job.CompletedAt
		job.CompletedAt = &at
	}
	return job
}
