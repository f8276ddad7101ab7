package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/akolanti/DocWatch/internal/adapter"
	"github.com/akolanti/DocWatch/internal/orchestrator"
)

// uploads through the service are observed via the progress endpoint
var noCallbacks = orchestrator.Callbacks{}

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "error", err)
	}
}

func validateContext(w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()
	if ctx.Err() != nil {
		logRH.Warn("context error", "traceId", traceOf(ctx), "error", ctx.Err())
		return false
	}
	if handlerInstance == nil {
		logRH.Error("document handler not initialised", "traceId", traceOf(ctx))
		WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Service not ready")
		return false
	}
	return true
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, message string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, message, httpCode))
}

func getTargetDirectory() (string, error) {
	targetDir := filepath.Join(os.TempDir(), "docwatch_uploads")
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return "", err
	}
	return targetDir, nil
}
