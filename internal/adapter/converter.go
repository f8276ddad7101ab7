package adapter

import (
	"fmt"

	"github.com/akolanti/DocWatch/internal/api"
	"github.com/akolanti/DocWatch/internal/domain/commonModels"
	"github.com/akolanti/DocWatch/internal/domain/jobModel"
	"github.com/akolanti/DocWatch/internal/ingest"
)

func ToUploadResponse(handle jobModel.JobHandle, pre ingest.Preflight) api.UploadResponse {
	return api.UploadResponse{
		DocumentId:  handle.DocumentId,
		JobId:       handle.JobId,
		Status:      string(handle.InitialStatus),
		TotalPages:  pre.TotalPages,
		ProgressURL: fmt.Sprintf("/documents/%s/progress", handle.DocumentId),
	}
}

func ToProgressResponse(update jobModel.ProgressUpdate, note *jobModel.TerminalNotification) api.ProgressResponse {
	res := api.ProgressResponse{
		DocumentId: update.DocumentId,
		JobId:      update.JobId,
		Percentage: update.Percentage,
		Status:     string(update.Status),
		Message:    update.Message,
		UpdatedAt:  update.UpdatedAt,
	}
	if update.Snapshot != nil {
		res.Stage = update.Snapshot.CurrentStage
	}
	if note != nil {
		res.Terminal = &api.TerminalResponse{
			Kind:    string(note.Kind),
			Message: note.Message,
			At:      note.At,
		}
		if res.JobId == "" {
			res.JobId = note.JobId
		}
	}
	return res
}

// ToIdleProgressResponse describes a document nothing is recorded for.
func ToIdleProgressResponse(documentId string) api.ProgressResponse {
	return api.ProgressResponse{
		DocumentId: documentId,
		Status:     string(jobModel.DisplayIdle),
	}
}

func ToDocumentResponse(doc commonModels.Document) api.DocumentResponse {
	return api.DocumentResponse{
		Id:          doc.Id,
		Name:        doc.Name,
		Status:      doc.Status,
		TotalPages:  doc.TotalPages,
		ContentType: string(doc.ContentType),
		SizeBytes:   doc.SizeBytes,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

func BadRequest(id string, message string, code int) api.ErrorResponse {
	return api.ErrorResponse{
		Id: id,
		Error: &api.OutgoingError{
			Code:    code,
			Message: message,
			Retry:   code == 429 || code >= 500,
		},
	}
}
