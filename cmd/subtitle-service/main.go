package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Lllllllleong/subtitleflow/internal/gcp"
	"github.com/Lllllllleong/subtitleflow/internal/services"
)

var (
	service  *services.SubtitleService
	engine   *gin.Engine
	admitter *bucketAdmitter
	once     sync.Once
	initErr  error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	functions.HTTP("SubtitleAPI", serveAPI)
	functions.CloudEvent("AdmitBucketUpload", admitBucketUpload)
}

// main serves the API locally. FUNCTION_TARGET selects the function that
// receives every path; it defaults to the HTTP API.
func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: failed to load .env: %v", err)
	}
	if os.Getenv("FUNCTION_TARGET") == "" {
		os.Setenv("FUNCTION_TARGET", "SubtitleAPI")
	}
	port := gcp.GetEnv("PORT", "8080")

	go func() {
		if err := funcframework.Start(port); err != nil {
			log.Fatalf("funcframework.Start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	if service != nil {
		slog.Info("Shutting down, draining queued jobs.")
		if err := service.Close(); err != nil {
			slog.Error("Shutdown error", "error", err)
		}
	}
}

// setup builds the service once per instance.
func setup() error {
	once.Do(func() {
		config, err := services.LoadConfig()
		if err != nil {
			initErr = err
			return
		}
		service, initErr = services.NewSubtitleService(context.Background(), config)
		if initErr != nil {
			return
		}
		api := &API{
			store:     service.Store,
			artifacts: service.Artifacts,
			catalog:   service.Languages,
			admission: service.Admission,
			uploadDir: config.UploadDir,
			now:       time.Now,
		}
		engine = newEngine(api, config.AllowedOrigins)
		admitter = &bucketAdmitter{
			admission: service.Admission,
			download: func(ctx context.Context, bucket, object, destPath string) error {
				return gcp.DownloadObject(ctx, service.Storage, bucket, object, destPath)
			},
			uploadDir: config.UploadDir,
			now:       time.Now,
		}
	})
	return initErr
}

// serveAPI is the HTTP entry point; routing happens in the gin engine.
func serveAPI(w http.ResponseWriter, r *http.Request) {
	if err := setup(); err != nil {
		slog.Error("Critical error during function initialization", "error", err)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	engine.ServeHTTP(w, r)
}

// admitBucketUpload is the CloudEvent entry point for storage finalize events.
func admitBucketUpload(ctx context.Context, e cloudevents.Event) error {
	if err := setup(); err != nil {
		slog.Error("Critical error during function initialization", "error", err)
		return err
	}
	return admitter.handle(ctx, e)
}
