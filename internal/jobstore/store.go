// Package jobstore persists extraction jobs and the credit balances that
// gate their admission.
package jobstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Lllllllleong/subtitleflow/internal/credits"
	"github.com/Lllllllleong/subtitleflow/internal/models"
)

// AdmitRequest describes a job to create once its cost has been paid.
type AdmitRequest struct {
	OwnerID          string
	OriginalFilename string
	TargetLanguage   string
	Cost             int64
}

// Store is the single source of truth for job state. Every mutating call is
// one atomic write of the affected fields; readers never see a partial update.
type Store interface {
	credits.Ledger

	// Create inserts a pending job without touching any balance.
	Create(ctx context.Context, ownerID, filename, targetLanguage string) (string, error)
	// Admit debits the owner and creates the pending job in one transaction.
	Admit(ctx context.Context, req AdmitRequest) (string, error)
	Get(ctx context.Context, id string) (models.ExtractionJob, error)
	// ListByOwner returns the owner's jobs, newest first. An empty status
	// matches every job.
	ListByOwner(ctx context.Context, ownerID string, status models.JobStatus) ([]models.ExtractionJob, error)
	// UpdateProgress raises the progress of a processing job. Lower values
	// are ignored so pollers never see progress go backwards.
	UpdateProgress(ctx context.Context, id string, progress float64) error
	// UpdateStatus moves a job along the state machine. errMsg is recorded
	// only when entering failed.
	UpdateStatus(ctx context.Context, id string, status models.JobStatus, errMsg string) error
	// SetLanguage records the detected language of a job.
	SetLanguage(ctx context.Context, id, language string) error
	// Complete marks a processing job completed with its artifact.
	Complete(ctx context.Context, id, artifactFilename string) error
}

func newJob(ownerID, filename, targetLanguage string, cost int64, now time.Time) models.ExtractionJob {
	if targetLanguage == "" {
		targetLanguage = models.UnknownLanguage
	}
	return models.ExtractionJob{
		OwnerID:          ownerID,
		OriginalFilename: filename,
		TargetLanguage:   targetLanguage,
		Status:           models.StatusPending,
		Cost:             cost,
		CreatedAt:        now.UTC(),
	}
}

// applyProgress returns the job with its new progress and whether anything
// changed.
func applyProgress(job models.ExtractionJob, progress float64) (models.ExtractionJob, bool, error) {
	if job.Status != models.StatusProcessing {
		return job, false, fmt.Errorf("%w: progress update on %s job %s", models.ErrInvalidTransition, job.Status, job.ID)
	}
	if math.IsNaN(progress) {
		return job, false, fmt.Errorf("progress for job %s is NaN", job.ID)
	}
	progress = math.Max(0, math.Min(100, progress))
	if progress <= job.Progress {
		return job, false, nil
	}
	job.Progress = progress
	return job, true, nil
}

func applyStatus(job models.ExtractionJob, status models.JobStatus, errMsg string) (models.ExtractionJob, error) {
	if status == models.StatusCompleted {
		return job, fmt.Errorf("%w: use Complete to finish job %s", models.ErrInvalidTransition, job.ID)
	}
	if !models.CanTransition(job.Status, status) {
		return job, fmt.Errorf("%w: %s -> %s for job %s", models.ErrInvalidTransition, job.Status, status, job.ID)
	}
	job.Status = status
	job.ErrorMessage = ""
	if status == models.StatusFailed {
		job.ErrorMessage = errMsg
	}
	return job, nil
}

func applyComplete(job models.ExtractionJob, artifactFilename string, now time.Time) (models.ExtractionJob, error) {
	if !models.CanTransition(job.Status, models.StatusCompleted) {
		return job, fmt.Errorf("%w: %s -> %s for job %s", models.ErrInvalidTransition, job.Status, models.StatusCompleted, job.ID)
	}
	completedAt := now.UTC()
	job.Status = models.StatusCompleted
	job.Progress = 100
	job.ErrorMessage = ""
	job.ArtifactFilename = artifactFilename
	job.CompletedAt = &completedAt
	return job, nil
}

func isInsufficient(err error) bool {
	return errors.Is(err, models.ErrInsufficientCredits)
}
