package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Lllllllleong/subtitleflow/internal/artifacts"
	"github.com/Lllllllleong/subtitleflow/internal/jobstore"
	"github.com/Lllllllleong/subtitleflow/internal/languages"
	"github.com/Lllllllleong/subtitleflow/internal/media"
	"github.com/Lllllllleong/subtitleflow/internal/models"
	"github.com/Lllllllleong/subtitleflow/internal/services"
)

const (
	ownerHeader = "X-Owner-ID"
	ownerKey    = "ownerId"
)

type submitter interface {
	Submit(ctx context.Context, req services.SubmitRequest) (models.UploadResponse, error)
}

// API serves the HTTP surface. Callers are identified by the X-Owner-ID
// header set by the authenticating proxy in front of the function.
type API struct {
	store     jobstore.Store
	artifacts artifacts.Store
	catalog   *languages.Catalog
	admission submitter
	uploadDir string
	now       func() time.Time
}

// jobSummary is one row of the owner's job history.
type jobSummary struct {
	models.ExtractionJob
	LanguageName string `json:"languageName"`
	LanguageFlag string `json:"languageFlag"`
}

func registerRoutes(r *gin.Engine, api *API) {
	r.GET("/api/health", api.handleHealth)
	r.GET("/api/languages", api.handleListLanguages)

	owned := r.Group("/api", requireOwner())
	{
		owned.POST("/uploads", api.handleUpload)
		owned.GET("/progress", api.handleListProgress)
		owned.GET("/progress/:id", api.handleGetProgress)
		owned.GET("/jobs", api.handleListJobs)
		owned.GET("/jobs/:id/subtitles", api.handleDownload)
	}
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) handleListLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, a.catalog.Languages)
}

// handleUpload stages a multipart media upload and admits it as a job.
func (a *API) handleUpload(c *gin.Context) {
	owner := c.GetString(ownerKey)

	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, errors.New("no file part"))
		return
	}
	if header.Filename == "" {
		respondError(c, http.StatusBadRequest, errors.New("no selected file"))
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	name, path, err := media.StageUpload(a.uploadDir, header.Filename, file, a.now())
	if err != nil {
		slog.Error("Failed to stage upload.", "ownerId", owner, "error", err)
		respondError(c, http.StatusInternalServerError, errors.New("failed to save upload"))
		return
	}

	resp, err := a.admission.Submit(c.Request.Context(), services.SubmitRequest{
		OwnerID:        owner,
		Filename:       name,
		MediaPath:      path,
		TargetLanguage: c.PostForm("target_language"),
	})
	if err != nil {
		if removeErr := os.Remove(path); removeErr != nil {
			slog.Warn("Failed to remove rejected upload.", "path", path, "error", removeErr)
		}
		respondAdmissionError(c, owner, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (a *API) handleGetProgress(c *gin.Context) {
	job, ok := a.ownedJob(c, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job.View())
}

// handleListProgress returns the caller's processing jobs.
func (a *API) handleListProgress(c *gin.Context) {
	owner := c.GetString(ownerKey)
	jobs, err := a.store.ListByOwner(c.Request.Context(), owner, models.StatusProcessing)
	if err != nil {
		slog.Error("Failed to list processing jobs.", "ownerId", owner, "error", err)
		respondError(c, http.StatusInternalServerError, errors.New("failed to load progress"))
		return
	}
	entries := make([]models.ProcessingEntry, 0, len(jobs))
	for _, job := range jobs {
		entries = append(entries, models.ProcessingEntry{ID: job.ID, Progress: job.Progress})
	}
	c.JSON(http.StatusOK, entries)
}

// handleListJobs lists the caller's jobs, newest first.
func (a *API) handleListJobs(c *gin.Context) {
	owner := c.GetString(ownerKey)
	jobs, err := a.store.ListByOwner(c.Request.Context(), owner, models.JobStatus(c.Query("status")))
	if err != nil {
		slog.Error("Failed to list jobs.", "ownerId", owner, "error", err)
		respondError(c, http.StatusInternalServerError, errors.New("failed to load jobs"))
		return
	}
	out := make([]jobSummary, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, jobSummary{
			ExtractionJob: job,
			LanguageName:  a.catalog.DisplayName(job.TargetLanguage),
			LanguageFlag:  a.catalog.Flag(job.TargetLanguage),
		})
	}
	c.JSON(http.StatusOK, out)
}

// handleDownload streams a completed job's subtitle file to its owner.
func (a *API) handleDownload(c *gin.Context) {
	job, ok := a.ownedJob(c, c.Param("id"))
	if !ok {
		return
	}
	if job.Status != models.StatusCompleted {
		respondError(c, http.StatusConflict, errors.New("job is "+string(job.Status)))
		return
	}

	rc, err := a.artifacts.Open(c.Request.Context(), job.ArtifactFilename)
	if errors.Is(err, models.ErrNotFound) {
		respondError(c, http.StatusNotFound, errors.New("subtitle file not found"))
		return
	}
	if err != nil {
		slog.Error("Failed to open artifact.", "jobId", job.ID, "artifact", job.ArtifactFilename, "error", err)
		respondError(c, http.StatusInternalServerError, errors.New("failed to read subtitle file"))
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `attachment; filename="`+job.ArtifactFilename+`"`)
	c.Header("Content-Type", "application/x-subrip; charset=utf-8")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		slog.Error("Failed to stream artifact.", "jobId", job.ID, "error", err)
	}
}

// ownedJob hides other users' jobs behind the same 404 as missing ones.
func (a *API) ownedJob(c *gin.Context, id string) (models.ExtractionJob, bool) {
	job, err := a.store.Get(c.Request.Context(), id)
	if errors.Is(err, models.ErrNotFound) || (err == nil && job.OwnerID != c.GetString(ownerKey)) {
		respondError(c, http.StatusNotFound, errors.New("job not found"))
		return models.ExtractionJob{}, false
	}
	if err != nil {
		slog.Error("Failed to load job.", "jobId", id, "error", err)
		respondError(c, http.StatusInternalServerError, errors.New("failed to load job"))
		return models.ExtractionJob{}, false
	}
	return job, true
}

func respondAdmissionError(c *gin.Context, owner string, err error) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondError(c, http.StatusBadRequest, vErr)
	case errors.Is(err, models.ErrInsufficientCredits):
		respondError(c, http.StatusPaymentRequired, models.ErrInsufficientCredits)
	case errors.Is(err, models.ErrNotFound):
		respondError(c, http.StatusForbidden, errors.New("unknown user"))
	case errors.Is(err, models.ErrDispatch):
		slog.Error("Admitted upload could not be queued.", "ownerId", owner, "error", err)
		respondError(c, http.StatusServiceUnavailable, errors.New("job could not be queued"))
	default:
		slog.Error("Admission failed.", "ownerId", owner, "error", err)
		respondError(c, http.StatusInternalServerError, errors.New("failed to admit upload"))
	}
}

func respondError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: err.Error()})
}

func requireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(ownerHeader))
		if owner == "" {
			respondError(c, http.StatusUnauthorized, errors.New("missing "+ownerHeader+" header"))
			return
		}
		c.Set(ownerKey, owner)
		c.Next()
	}
}
