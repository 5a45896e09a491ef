package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/subtitleflow/internal/credits"
	"github.com/Lllllllleong/subtitleflow/internal/jobstore"
	"github.com/Lllllllleong/subtitleflow/internal/models"
)

// DurationProber measures media length in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Dispatcher hands admitted jobs to the workers.
type Dispatcher interface {
	Submit(ctx context.Context, task Task) error
}

// SubmitRequest is a staged upload waiting for admission.
type SubmitRequest struct {
	OwnerID string
	// Filename is the stored media name, also used to derive artifact names.
	Filename       string
	MediaPath      string
	TargetLanguage string
}

// Admission prices uploads, debits the owner and queues the job.
type Admission struct {
	store      jobstore.Store
	prober     DurationProber
	translator *Translator
	dispatcher Dispatcher
}

func NewAdmission(store jobstore.Store, prober DurationProber, translator *Translator, dispatcher Dispatcher) *Admission {
	return &Admission{store: store, prober: prober, translator: translator, dispatcher: dispatcher}
}

// Submit admits a job. Validation and credit failures leave no job and no
// debit behind.
func (a *Admission) Submit(ctx context.Context, req SubmitRequest) (models.UploadResponse, error) {
	if strings.TrimSpace(req.OwnerID) == "" {
		return models.UploadResponse{}, &models.ValidationError{Field: "owner", Message: "missing owner id"}
	}
	if strings.TrimSpace(req.Filename) == "" {
		return models.UploadResponse{}, &models.ValidationError{Field: "file", Message: "no file selected"}
	}

	target, err := a.resolveTarget(ctx, req.TargetLanguage)
	if err != nil {
		return models.UploadResponse{}, err
	}

	duration, err := a.prober.Duration(ctx, req.MediaPath)
	if err != nil {
		slog.Warn("Could not probe uploaded media.", "file", req.Filename, "error", err)
		return models.UploadResponse{}, &models.ValidationError{Field: "file", Message: "unreadable media: " + err.Error()}
	}
	cost := credits.ComputeCost(duration)

	id, err := a.store.Admit(ctx, jobstore.AdmitRequest{
		OwnerID:          req.OwnerID,
		OriginalFilename: req.Filename,
		TargetLanguage:   target,
		Cost:             cost,
	})
	if err != nil {
		return models.UploadResponse{}, fmt.Errorf("admit %s: %w", req.Filename, err)
	}
	slog.Info("Job admitted.", "jobId", id, "ownerId", req.OwnerID, "durationSeconds", duration, "cost", cost)

	if err := a.dispatcher.Submit(ctx, Task{JobID: id, MediaPath: req.MediaPath}); err != nil {
		msg := fmt.Sprintf("dispatch: %v", err)
		if uErr := a.store.UpdateStatus(context.WithoutCancel(ctx), id, models.StatusFailed, msg); uErr != nil {
			slog.Error("CRITICAL: failed to mark undispatched job as failed.", "jobId", id, "error", uErr)
		}
		return models.UploadResponse{}, fmt.Errorf("%w: job %s: %w", models.ErrDispatch, id, err)
	}
	return models.UploadResponse{JobID: id, Status: models.StatusPending, Cost: cost}, nil
}

// resolveTarget returns the stored form of the requested language. An empty
// request means no translation.
func (a *Admission) resolveTarget(ctx context.Context, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" || strings.EqualFold(requested, models.UnknownLanguage) {
		return models.UnknownLanguage, nil
	}
	target := NormalizeLanguageCode(requested)
	if !a.translator.ValidateLanguageCode(ctx, target) {
		return "", &models.ValidationError{Field: "target_language", Message: "unsupported target language " + requested}
	}
	return target, nil
}
