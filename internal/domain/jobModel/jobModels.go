package jobModel

import (
	"context"
	"time"
)

type JobStatus string

// UIStatus is the closed status set the UI renders.
type UIStatus string

// DisplayStatus is the status carried by a ProgressUpdate.
type DisplayStatus string

type TerminalKind string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"

	UIStatusUploading  UIStatus = "uploading"
	UIStatusProcessing UIStatus = "processing"
	UIStatusReady      UIStatus = "ready"
	UIStatusError      UIStatus = "error"

	DisplayIdle       DisplayStatus = "idle"
	DisplayUploading  DisplayStatus = "uploading"
	DisplayProcessing DisplayStatus = "processing"
	DisplayComplete   DisplayStatus = "complete"
	DisplayError      DisplayStatus = "error"

	TerminalCompleted TerminalKind = "completed"
	TerminalFailed    TerminalKind = "failed"
	TerminalTimedOut  TerminalKind = "timed_out"
)

// IsTerminal reports whether the UI status ends a tracking loop.
func (s UIStatus) IsTerminal() bool {
	return s == UIStatusReady || s == UIStatusError
}

// Display converts a UI status into the value the progress view shows.
func (s UIStatus) Display() DisplayStatus {
	switch s {
	case UIStatusUploading:
		return DisplayUploading
	case UIStatusProcessing:
		return DisplayProcessing
	case UIStatusReady:
		return DisplayComplete
	default:
		return DisplayError
	}
}

type Job struct {
	Id            string    `json:"job_id"`
	DocumentId    string    `json:"document_id"`
	Status        JobStatus `json:"status"`
	CreatedTime   time.Time `json:"created_at"`
	StartedTime   time.Time `json:"started_at,omitempty"`
	CompletedTime time.Time `json:"completed_at,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
}

// JobHandle is what the backend returns when asynchronous processing is requested.
type JobHandle struct {
	JobId         string    `json:"job_id"`
	DocumentId    string    `json:"document_id"`
	InitialStatus JobStatus `json:"status"`
	StatusURL     string    `json:"status_url"`
	ChannelURL    string    `json:"websocket_url"`
}

type ProgressSnapshot struct {
	TotalPages           int      `json:"total_pages"`
	ProcessedPages       int      `json:"processed_pages"`
	TotalChunks          int      `json:"total_chunks"`
	ProcessedChunks      int      `json:"processed_chunks"`
	VectorizedChunks     int      `json:"vectorized_chunks"`
	CurrentStage         string   `json:"current_stage"`
	MemoryUsageMB        float64  `json:"memory_usage_mb"`
	ElapsedSeconds       float64  `json:"processing_time_seconds"`
	CompletionPercentage float64  `json:"completion_percentage"`
	EstimatedRemainingS  *float64 `json:"estimated_remaining_seconds,omitempty"`
}

// JobStatusReport is one answer of the job status endpoint.
type JobStatusReport struct {
	JobId        string            `json:"job_id"`
	DocumentId   string            `json:"document_id"`
	Status       string            `json:"status"`
	Progress     *ProgressSnapshot `json:"progress,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// ProgressUpdate is the single value object handed to the UI layer per update.
type ProgressUpdate struct {
	DocumentId string            `json:"document_id"`
	JobId      string            `json:"job_id"`
	Percentage float64           `json:"percentage"`
	Status     DisplayStatus     `json:"status"`
	Message    string            `json:"message,omitempty"`
	Snapshot   *ProgressSnapshot `json:"snapshot,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

type TerminalNotification struct {
	Kind       TerminalKind `json:"kind"`
	JobId      string       `json:"job_id"`
	DocumentId string       `json:"document_id"`
	Message    string       `json:"message,omitempty"`
	At         time.Time    `json:"at"`
}

// StatusFetcher is the GET side of the backend used by the poller.
type StatusFetcher interface {
	GetJobStatus(ctx context.Context, jobId string) (JobStatusReport, error)
}

// ProgressBoard keeps the latest update and terminal notification per document.
type ProgressBoard interface {
	SaveUpdate(ctx context.Context, update ProgressUpdate) error
	SaveTerminal(ctx context.Context, note TerminalNotification) error
	GetProgress(ctx context.Context, documentId string) (ProgressUpdate, *TerminalNotification, bool)
	DeleteProgress(ctx context.Context, documentId string)
}
