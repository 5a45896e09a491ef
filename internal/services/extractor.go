package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/Lllllllleong/subtitleflow/internal/artifacts"
	"github.com/Lllllllleong/subtitleflow/internal/jobstore"
	"github.com/Lllllllleong/subtitleflow/internal/models"
	"github.com/Lllllllleong/subtitleflow/internal/subtitle"
)

// Progress checkpoints. They reflect pipeline stages, not measured work.
const (
	progressStarted     = 5
	progressMediaReady  = 10
	progressTranscribed = 50
	progressWritten     = 95
)

// Task is one unit of work for the extraction pipeline.
type Task struct {
	JobID     string
	MediaPath string
}

// Extractor runs admitted jobs from pending to a terminal state.
type Extractor struct {
	store       jobstore.Store
	transcriber TranscriptionEngine
	translator  *Translator
	artifacts   artifacts.Store
	notifier    Notifier
}

func NewExtractor(store jobstore.Store, transcriber TranscriptionEngine, translator *Translator, artifactStore artifacts.Store, notifier Notifier) *Extractor {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Extractor{
		store:       store,
		transcriber: transcriber,
		translator:  translator,
		artifacts:   artifactStore,
		notifier:    notifier,
	}
}

// Process runs the pipeline for one job. Any failure, including a panic,
// leaves the job failed with the error text and its last progress.
func (e *Extractor) Process(ctx context.Context, task Task) (err error) {
	logger := slog.With("jobId", task.JobID)

	job, err := e.store.Get(ctx, task.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", task.JobID, err)
	}
	logger = logger.With("ownerId", job.OwnerID)

	if err := e.store.UpdateStatus(ctx, job.ID, models.StatusProcessing, ""); err != nil {
		// Jobs that are not pending belong to someone else; leave them alone.
		if errors.Is(err, models.ErrInvalidTransition) {
			return fmt.Errorf("start job %s: %w", job.ID, err)
		}
		return e.handleError(ctx, logger, job.ID, fmt.Errorf("start job: %w", err))
	}
	logger.Info("Starting subtitle extraction.", "file", job.OriginalFilename, "targetLanguage", job.TargetLanguage)

	defer func() {
		if r := recover(); r != nil {
			err = e.handleError(ctx, logger, job.ID, fmt.Errorf("panic: %v", r))
		}
	}()

	artifactName, err := e.run(ctx, logger, job, task.MediaPath)
	if err != nil {
		return e.handleError(ctx, logger, job.ID, err)
	}

	if err := e.store.Complete(ctx, job.ID, artifactName); err != nil {
		return e.handleError(ctx, logger, job.ID, fmt.Errorf("complete job: %w", err))
	}
	logger.Info("Subtitle extraction completed.", "artifact", artifactName)

	notice := models.CompletionNotice{
		JobID:            job.ID,
		OwnerID:          job.OwnerID,
		ArtifactFilename: artifactName,
		TargetLanguage:   job.TargetLanguage,
	}
	if err := e.notifier.Notify(ctx, notice); err != nil {
		logger.Error("Failed to send completion notice.", "error", err)
	}
	return nil
}

func (e *Extractor) run(ctx context.Context, logger *slog.Logger, job models.ExtractionJob, mediaPath string) (string, error) {
	progress := &progressTracker{store: e.store, id: job.ID}
	if err := progress.commit(ctx, progressStarted); err != nil {
		return "", err
	}

	if err := checkMedia(mediaPath); err != nil {
		return "", err
	}
	if err := progress.commit(ctx, progressMediaReady); err != nil {
		return "", err
	}

	transcription, err := e.transcriber.Transcribe(ctx, mediaPath, transcriptionHint(job.TargetLanguage))
	if err != nil {
		return "", &models.EngineError{Stage: "transcribing", Err: err}
	}
	if err := progress.commit(ctx, progressTranscribed); err != nil {
		return "", err
	}
	logger.Info("Transcription finished.", "cues", len(transcription.Cues), "detectedLanguage", transcription.DetectedLanguage)

	detected := ""
	if strings.TrimSpace(transcription.DetectedLanguage) != "" {
		detected = NormalizeLanguageCode(transcription.DetectedLanguage)
	}
	if job.TargetLanguage == models.UnknownLanguage && detected != "" {
		if err := e.store.SetLanguage(ctx, job.ID, detected); err != nil {
			return "", fmt.Errorf("record detected language: %w", err)
		}
	}

	artifactName := artifacts.Name(job.OriginalFilename, "")
	document, err := e.writeCues(ctx, logger, progress, artifactName, transcription.Cues)
	if err != nil {
		return "", err
	}

	if job.TargetLanguage == models.UnknownLanguage {
		return artifactName, nil
	}
	target := NormalizeLanguageCode(job.TargetLanguage)
	if target == detected {
		logger.Info("Transcript already in target language, skipping translation.", "language", target)
		return artifactName, nil
	}
	return e.translate(ctx, logger, job, document, target, artifactName)
}

// writeCues streams the transcript into the artifact and ramps progress from
// the transcribed checkpoint towards progressWritten, one commit per cue.
// Cues that cannot be rendered are logged and skipped; numbering stays
// contiguous.
func (e *Extractor) writeCues(ctx context.Context, logger *slog.Logger, progress *progressTracker, name string, cues []subtitle.Cue) (string, error) {
	// Cancelling writeCtx before Close discards a partially written object.
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := e.artifacts.Create(writeCtx, name)
	if err != nil {
		return "", fmt.Errorf("create artifact %s: %w", name, err)
	}
	abort := func(err error) (string, error) {
		cancel()
		w.Close()
		return "", err
	}

	var document strings.Builder
	out := io.MultiWriter(w, &document)
	written := 0
	for i, cue := range cues {
		if err := cue.Validate(); err != nil {
			logger.Warn("Skipping unusable cue.", "cue", i+1, "error", err)
		} else {
			written++
			if err := subtitle.WriteCue(out, written, cue); err != nil {
				return abort(fmt.Errorf("write artifact %s: %w", name, err))
			}
		}
		step := float64(progressWritten-progressTranscribed) * float64(i+1) / float64(len(cues))
		if err := progress.commit(ctx, progressTranscribed+step); err != nil {
			return abort(err)
		}
	}
	if skipped := len(cues) - written; skipped > 0 {
		logger.Warn("Transcript written with skipped cues.", "skipped", skipped, "written", written)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close artifact %s: %w", name, err)
	}
	if err := progress.commit(ctx, progressWritten); err != nil {
		return "", err
	}
	return document.String(), nil
}

func (e *Extractor) translate(ctx context.Context, logger *slog.Logger, job models.ExtractionJob, document, target, sourceArtifact string) (string, error) {
	cues, err := subtitle.Parse(document)
	if err != nil {
		return "", fmt.Errorf("re-read transcript: %w", err)
	}

	translated, source, err := e.translator.TranslateDocument(ctx, cues, target)
	if err != nil {
		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			return "", err
		}
		return "", &models.EngineError{Stage: "translating", Err: err}
	}
	if source == target {
		logger.Info("Detected transcript language matches target, keeping transcript.", "language", target)
		return sourceArtifact, nil
	}

	content, err := subtitle.Serialize(translated)
	if err != nil {
		return "", fmt.Errorf("serialize translation: %w", err)
	}
	name := artifacts.Name(job.OriginalFilename, target)
	if err := e.artifacts.Put(ctx, name, content); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	logger.Info("Translation written.", "from", source, "to", target, "artifact", name)
	return name, nil
}

// handleError records the failure on the job. The store write uses a
// context that survives cancellation of ctx.
func (e *Extractor) handleError(ctx context.Context, logger *slog.Logger, jobID string, originalErr error) error {
	message := originalErr.Error()
	logger.Error("Subtitle extraction failed.", "error", message)
	if err := e.store.UpdateStatus(context.WithoutCancel(ctx), jobID, models.StatusFailed, message); err != nil {
		logger.Error("CRITICAL: failed to mark job as failed.", "error", err)
	}
	return originalErr
}

func checkMedia(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("media not available: %w", err)
	}
	if info.IsDir() || info.Size() == 0 {
		return fmt.Errorf("media %s is empty", info.Name())
	}
	return nil
}

// progressTracker writes progress to the store, skipping values that would
// not move it forward.
type progressTracker struct {
	store jobstore.Store
	id    string
	last  float64
}

func (p *progressTracker) commit(ctx context.Context, value float64) error {
	value = math.Round(value*100) / 100
	if value <= p.last {
		return nil
	}
	if err := p.store.UpdateProgress(ctx, p.id, value); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	p.last = value
	return nil
}
