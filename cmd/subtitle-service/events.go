package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/subtitleflow/internal/media"
	"github.com/Lllllllleong/subtitleflow/internal/models"
	"github.com/Lllllllleong/subtitleflow/internal/services"
)

// Object metadata keys set by clients uploading straight to the bucket.
const (
	metadataOwner    = "ownerId"
	metadataLanguage = "targetLanguage"
)

// downloadFunc copies gs://bucket/object to a local path.
type downloadFunc func(ctx context.Context, bucket, object, destPath string) error

// bucketAdmitter admits media uploaded directly to the ingest bucket.
type bucketAdmitter struct {
	admission submitter
	download  downloadFunc
	uploadDir string
	now       func() time.Time
}

// handle returns nil for events that can never succeed, so the trigger
// does not retry them; only transient failures are returned.
func (b *bucketAdmitter) handle(ctx context.Context, e cloudevents.Event) error {
	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return nil
	}
	logger := slog.With("bucket", gcsEvent.Bucket, "object", gcsEvent.Name, "eventId", e.ID())

	owner := gcsEvent.Metadata[metadataOwner]
	if owner == "" {
		logger.Warn("Ignoring object without owner metadata.")
		return nil
	}

	name := media.UniqueName(path.Base(gcsEvent.Name), b.now())
	dest := filepath.Join(b.uploadDir, name)
	if err := b.download(ctx, gcsEvent.Bucket, gcsEvent.Name, dest); err != nil {
		return fmt.Errorf("stage gs://%s/%s: %w", gcsEvent.Bucket, gcsEvent.Name, err)
	}

	resp, err := b.admission.Submit(ctx, services.SubmitRequest{
		OwnerID:        owner,
		Filename:       name,
		MediaPath:      dest,
		TargetLanguage: gcsEvent.Metadata[metadataLanguage],
	})
	if err != nil {
		if removeErr := os.Remove(dest); removeErr != nil {
			logger.Warn("Failed to remove rejected media.", "path", dest, "error", removeErr)
		}
		var vErr *models.ValidationError
		if errors.As(err, &vErr) || errors.Is(err, models.ErrInsufficientCredits) || errors.Is(err, models.ErrNotFound) {
			logger.Warn("Bucket upload rejected.", "ownerId", owner, "reason", err)
			return nil
		}
		// The job is paid for and recorded as failed; a redelivery would
		// charge the owner again.
		if errors.Is(err, models.ErrDispatch) {
			logger.Error("Admitted bucket upload could not be queued.", "ownerId", owner, "error", err)
			return nil
		}
		return err
	}
	logger.Info("Bucket upload admitted.", "jobId", resp.JobID, "ownerId", owner, "cost", resp.Cost)
	return nil
}
