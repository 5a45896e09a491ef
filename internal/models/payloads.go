package models

// These structs define the JSON payloads exchanged with the HTTP functions
// and the storage event that admits bucket uploads.

// UploadResponse is returned once a job has been admitted.
type UploadResponse struct {
	JobID  string    `json:"jobId"`
	Status JobStatus `json:"status"`
	Cost   int64     `json:"cost"`
}

// ProcessingEntry is one row of the owner's in-flight progress list.
type ProcessingEntry struct {
	ID       string  `json:"id"`
	Progress float64 `json:"progress"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// GCSEvent is the payload of a storage object-finalized event. Owner and
// target language travel as object metadata set by the uploader.
type GCSEvent struct {
	Bucket   string            `json:"bucket"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

// CompletionNotice is the argument handed to the completion workflow.
type CompletionNotice struct {
	JobID            string `json:"jobId"`
	OwnerID          string `json:"ownerId"`
	ArtifactFilename string `json:"artifactFilename"`
	TargetLanguage   string `json:"targetLanguage"`
}
