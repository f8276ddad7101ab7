package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/akolanti/DocWatch/internal/adapter"
	"github.com/akolanti/DocWatch/internal/adapter/utils"
	"github.com/akolanti/DocWatch/internal/api"
	"github.com/akolanti/DocWatch/internal/apiclient"
	"github.com/akolanti/DocWatch/internal/ingest"
	"github.com/akolanti/DocWatch/internal/job"
)

// HealthHandler godoc
// @Summary      Liveness probe
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Router       /healthz [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

// PostDocumentHandler godoc
// @Summary      Upload a document and start tracking it
// @Description  Receives a file via multipart/form-data, runs preflight, uploads it to the processing backend and starts tracking the processing job.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        document_name  formData  string  false  "Display name of the document"
// @Param        document       formData  file    true   "The PDF, DOCX, RTF or TXT file to upload"
// @Success      202  {object}  api.UploadResponse  "Tracking started"
// @Failure      400  {object}  api.ErrorResponse   "Missing file or rejected by preflight"
// @Failure      413  {object}  api.ErrorResponse   "File too large"
// @Failure      502  {object}  api.ErrorResponse   "Backend refused the upload"
// @Router       /documents [post]
func PostDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(w, r) {
		return
	}
	h := handlerInstance

	deadline := time.Now().Add(h.uploadDeadline)
	rc := http.NewResponseController(w)
	if err := rc.SetReadDeadline(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logRH.Warn("could not extend read deadline", "error", err)
	}
	if err := rc.SetWriteDeadline(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logRH.Warn("could not extend write deadline", "error", err)
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteErrorResponse(w, http.StatusRequestEntityTooLarge, "", "File too large")
			return
		}
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad multipart request")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	tempFilePath, err := saveTemporary(fileReader, fileMetadata.Filename)
	if err != nil {
		logRH.Error("Couldn't store upload", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}
	defer os.Remove(tempFilePath)

	docName := r.FormValue("document_name")
	if docName == "" {
		docName = fileMetadata.Filename
	}

	handle, pre, err := h.service.UploadAndTrack(r.Context(), tempFilePath, docName, noCallbacks)
	if err != nil {
		writeServiceError(w, handle.DocumentId, err)
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToUploadResponse(handle, pre))
}

// GetProgressHandler godoc
// @Summary      Get the processing progress of a document
// @Description  Documents with nothing recorded report status idle.
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.ProgressResponse
// @Router       /documents/{id}/progress [get]
func GetProgressHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(w, r) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	update, note, found := handlerInstance.service.Progress(r.Context(), id)
	if !found {
		writeJsonResponse(w, http.StatusOK, adapter.ToIdleProgressResponse(id))
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToProgressResponse(update, note))
}

// DeleteTrackingHandler godoc
// @Summary      Stop tracking a document
// @Description  Stops following the processing job without a terminal notification. The backend keeps processing.
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.StopTrackingResponse
// @Router       /documents/{id}/tracking [delete]
func DeleteTrackingHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(w, r) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	stopped := handlerInstance.service.StopTracking(r.Context(), id)
	writeJsonResponse(w, http.StatusOK, api.StopTrackingResponse{DocumentId: id, WasActive: stopped})
}

// GetDocumentHandler godoc
// @Summary      Get a document
// @Description  Serves the cached document view, refreshed whenever a tracked job reaches a terminal state.
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DocumentResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /documents/{id} [get]
func GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(w, r) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	doc, err := handlerInstance.service.Document(r.Context(), id)
	if err != nil {
		writeServiceError(w, id, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponse(doc))
}

func writeServiceError(w http.ResponseWriter, id string, err error) {
	var statusErr *apiclient.StatusError
	switch {
	case errors.Is(err, ingest.ErrUnsupportedType), errors.Is(err, ingest.ErrEmptyDocument), errors.Is(err, ingest.ErrUnreadable):
		WriteErrorResponse(w, http.StatusBadRequest, id, err.Error())
	case errors.Is(err, ingest.ErrTooLarge):
		WriteErrorResponse(w, http.StatusRequestEntityTooLarge, id, err.Error())
	case errors.Is(err, job.ErrNotFound):
		WriteErrorResponse(w, http.StatusNotFound, id, "Document not found")
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound:
		WriteErrorResponse(w, http.StatusNotFound, id, "Document not found")
	case errors.As(err, &statusErr):
		WriteErrorResponse(w, http.StatusBadGateway, id, fmt.Sprintf("Backend answered %d", statusErr.StatusCode))
	default:
		logRH.Error("request failed", "id", id, "error", err)
		WriteErrorResponse(w, http.StatusBadGateway, id, "Backend unavailable")
	}
}

func saveTemporary(src io.Reader, filename string) (string, error) {
	targetDir, err := getTargetDirectory()
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(filename))
	tempFilePath := filepath.Join(targetDir, name)
	dst, err := os.Create(tempFilePath)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err = io.Copy(dst, src); err != nil {
		_ = os.Remove(tempFilePath)
		return "", err
	}
	return tempFilePath, nil
}
