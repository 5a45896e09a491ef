package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Lllllllleong/subtitleflow/internal/gcp"
)

// Store backends.
const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// ServiceConfig holds all configuration for the subtitle service.
type ServiceConfig struct {
	ProjectID        string
	Region           string
	StoreBackend     string
	JobsCollection   string
	UsersCollection  string
	UploadDir        string
	ArtifactBucket   string
	WorkerCount      int
	QueueSize        int
	ChunkSize        int
	FFprobePath      string
	TranscriberModel string
	TranslatorModel  string
	WorkflowID       string
	WorkflowLocation string
	// DevCredits seeds every user of the memory backend.
	DevCredits       int
	AllowedOrigins   []string
}

// LoadConfig reads the service configuration from the environment.
func LoadConfig() (*ServiceConfig, error) {
	config := &ServiceConfig{
		ProjectID:        gcp.GetEnv("PROJECT_ID", ""),
		Region:           gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		StoreBackend:     gcp.GetEnv("STORE_BACKEND", BackendFirestore),
		JobsCollection:   gcp.GetEnv("JOBS_COLLECTION", "extractions"),
		UsersCollection:  gcp.GetEnv("USERS_COLLECTION", "users"),
		UploadDir:        gcp.GetEnv("UPLOAD_DIR", "uploads"),
		ArtifactBucket:   gcp.GetEnv("ARTIFACT_BUCKET", ""),
		FFprobePath:      gcp.GetEnv("FFPROBE_PATH", "ffprobe"),
		TranscriberModel: gcp.GetEnv("TRANSCRIBER_MODEL", "gemini-1.5-pro"),
		TranslatorModel:  gcp.GetEnv("TRANSLATOR_MODEL", "gemini-1.5-pro"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		AllowedOrigins:   splitList(gcp.GetEnv("ALLOWED_ORIGINS", "")),
	}

	var err error
	if config.WorkerCount, err = envInt("WORKER_COUNT", 2); err != nil {
		return nil, err
	}
	if config.QueueSize, err = envInt("QUEUE_SIZE", 64); err != nil {
		return nil, err
	}
	if config.ChunkSize, err = envInt("TRANSLATION_CHUNK_SIZE", DefaultChunkLength); err != nil {
		return nil, err
	}
	if config.DevCredits, err = envInt("DEV_CREDITS", 0); err != nil {
		return nil, err
	}

	switch config.StoreBackend {
	case BackendFirestore, BackendMemory:
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendFirestore, BackendMemory, config.StoreBackend)
	}
	// Vertex AI is needed by every backend.
	if config.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	return config, nil
}

func envInt(key string, fallback int) (int, error) {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, raw)
	}
	return n, nil
}

// splitList parses a comma separated value, dropping empty items.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
