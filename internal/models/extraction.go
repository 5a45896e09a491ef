package models

import "time"

// JobStatus is the lifecycle state of an extraction job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// UnknownLanguage is the sentinel target language meaning "keep whatever is spoken".
const UnknownLanguage = "unknown"

// ExtractionJob is the record for one transcription (and optional
// translation) request. It is stored in Firestore and polled by the UI.
type ExtractionJob struct {
	ID               string     `firestore:"-" json:"id"`
	OwnerID          string     `firestore:"ownerId" json:"ownerId"`
	OriginalFilename string     `firestore:"originalFilename" json:"originalFilename"`
	ArtifactFilename string     `firestore:"artifactFilename" json:"artifactFilename"`
	TargetLanguage   string     `firestore:"targetLanguage" json:"targetLanguage"`
	Status           JobStatus  `firestore:"status" json:"status"`
	Progress         float64    `firestore:"progress" json:"progress"`
	ErrorMessage     string     `firestore:"errorMessage" json:"errorMessage"`
	Cost             int64      `firestore:"cost" json:"cost"`
	CreatedAt        time.Time  `firestore:"createdAt" json:"createdAt"`
	CompletedAt      *time.Time `firestore:"completedAt" json:"completedAt,omitempty"`
}

// IsTerminal reports whether no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition enforces pending -> processing -> {completed, failed}.
// A pending job may also fail directly, e.g. when its media cannot be staged.
// Terminal states have no exits; a retry is always a new job.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// ProgressView is what the polling endpoint returns for a single job.
type ProgressView struct {
	ID           string    `json:"id"`
	Progress     float64   `json:"progress"`
	Status       JobStatus `json:"status"`
	ErrorMessage string    `json:"error_message"`
}

// View projects the job onto its polling representation.
func (j ExtractionJob) View() ProgressView {
	return ProgressView{
		ID:           j.ID,
		Progress:     j.Progress,
		Status:       j.Status,
		ErrorMessage: j.ErrorMessage,
	}
}
