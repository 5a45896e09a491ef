package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"

	"github.com/Lllllllleong/subtitleflow/internal/artifacts"
	"github.com/Lllllllleong/subtitleflow/internal/gcp"
	"github.com/Lllllllleong/subtitleflow/internal/jobstore"
	"github.com/Lllllllleong/subtitleflow/internal/languages"
	"github.com/Lllllllleong/subtitleflow/internal/media"
	"github.com/Lllllllleong/subtitleflow/internal/worker"
)

// SubtitleService is the fully wired application used by the functions.
type SubtitleService struct {
	Config    *ServiceConfig
	Store     jobstore.Store
	Artifacts artifacts.Store
	Languages *languages.Catalog
	Admission *Admission
	Pool      *worker.Pool[Task]
	Storage   *storage.Client

	closers []func() error
}

// NewSubtitleService creates every client and starts the worker pool.
func NewSubtitleService(ctx context.Context, config *ServiceConfig) (*SubtitleService, error) {
	svc := &SubtitleService{Config: config}
	if err := svc.init(ctx); err != nil {
		svc.Close()
		return nil, err
	}
	return svc, nil
}

func (s *SubtitleService) init(ctx context.Context) error {
	config := s.Config
	if err := os.MkdirAll(config.UploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	catalog, err := languages.Default()
	if err != nil {
		return fmt.Errorf("failed to load language catalog: %w", err)
	}
	s.Languages = catalog

	switch config.StoreBackend {
	case BackendMemory:
		memStore := jobstore.NewMemoryStore()
		memStore.SetStartingBalance(int64(config.DevCredits))
		s.Store = memStore
	default:
		fsClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, fsClient.Close)
		s.Store = jobstore.NewFirestoreStore(fsClient, config.JobsCollection, config.UsersCollection)
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("storage.NewClient: %w", err)
	}
	s.closers = append(s.closers, storageClient.Close)
	s.Storage = storageClient

	if config.ArtifactBucket != "" {
		s.Artifacts = artifacts.NewGCSStore(storageClient, config.ArtifactBucket)
	} else {
		local, err := artifacts.NewLocalStore(config.UploadDir)
		if err != nil {
			return err
		}
		s.Artifacts = local
	}

	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.Region, gcp.ModelNames{
		Transcriber: config.TranscriberModel,
		Translator:  config.TranslatorModel,
	})
	if err != nil {
		return err
	}
	s.closers = append(s.closers, vertexClient.Close)

	var notifier Notifier = LogNotifier{}
	if config.WorkflowID != "" {
		execClient, err := executions.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("executions.NewClient: %w", err)
		}
		s.closers = append(s.closers, execClient.Close)
		notifier = NewWorkflowNotifier(execClient, config.ProjectID, config.WorkflowLocation, config.WorkflowID)
	}

	translator := NewTranslator(NewVertexTranslationEngine(vertexClient), config.ChunkSize)
	extractor := NewExtractor(s.Store, NewVertexTranscriber(vertexClient), translator, s.Artifacts, notifier)

	s.Pool = worker.New[Task](config.WorkerCount, config.QueueSize, extractor.Process)
	s.Pool.Start(context.Background())
	s.Admission = NewAdmission(s.Store, media.NewProber(config.FFprobePath), translator, s.Pool)

	slog.Info("Subtitle service initialized.", "backend", config.StoreBackend, "workers", config.WorkerCount, "artifactBucket", config.ArtifactBucket)
	return nil
}

// Close drains the worker pool and releases every client.
func (s *SubtitleService) Close() error {
	var errs []error
	if s.Pool != nil {
		errs = append(errs, s.Pool.Stop())
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}
