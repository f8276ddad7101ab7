package api

import "time"

type ErrorResponse struct {
	Id    string         `json:"id,omitempty" example:"doc_1"`
	Error *OutgoingError `json:"error"`
}

type OutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"unsupported document type"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type UploadResponse struct {
	DocumentId  string `json:"document_id" example:"doc_1"`
	JobId       string `json:"job_id" example:"job_1"`
	Status      string `json:"status" example:"pending"`
	TotalPages  int    `json:"total_pages,omitempty" example:"12"`
	ProgressURL string `json:"progress_url" example:"/documents/doc_1/progress"`
}

type ProgressResponse struct {
	DocumentId string            `json:"document_id" example:"doc_1"`
	JobId      string            `json:"job_id" example:"job_1"`
	Percentage float64           `json:"percentage" example:"40"`
	Status     string            `json:"status" example:"processing"`
	Message    string            `json:"message,omitempty" example:"chunking: 4/10 pages"`
	Stage      string            `json:"current_stage,omitempty" example:"chunking"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Terminal   *TerminalResponse `json:"terminal,omitempty"`
}

type TerminalResponse struct {
	Kind    string    `json:"kind" example:"completed"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

type DocumentResponse struct {
	Id          string    `json:"id" example:"doc_1"`
	Name        string    `json:"filename" example:"report.pdf"`
	Status      string    `json:"status" example:"processed"`
	TotalPages  int       `json:"total_pages" example:"12"`
	ContentType string    `json:"content_type" example:"PDF"`
	SizeBytes   int64     `json:"file_size" example:"20480"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type StopTrackingResponse struct {
	DocumentId string `json:"document_id" example:"doc_1"`
	WasActive  bool   `json:"was_active" example:"true"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
