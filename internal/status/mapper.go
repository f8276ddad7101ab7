package status

import (
	"strings"

	"github.com/akolanti/DocWatch/internal/domain/jobModel"
	"github.com/akolanti/DocWatch/internal/metrics"
	"github.com/akolanti/DocWatch/pkg/logger_i"
)

// The backend vocabulary is open-ended. New stage names must land somewhere that
// ends a polling loop, so anything not listed here maps to error.
var statusTable = map[string]jobModel.UIStatus{
	"uploaded": jobModel.UIStatusUploading,
	"pending":  jobModel.UIStatusUploading,

	"processing":  jobModel.UIStatusProcessing,
	"chunking":    jobModel.UIStatusProcessing,
	"vectorizing": jobModel.UIStatusProcessing,
	"indexing":    jobModel.UIStatusProcessing,
	"parsing":     jobModel.UIStatusProcessing,

	"processed": jobModel.UIStatusReady,
	"completed": jobModel.UIStatusReady,
	"ready":     jobModel.UIStatusReady,
	"complete":  jobModel.UIStatusReady,

	"cancelled": jobModel.UIStatusError,
	"canceled":  jobModel.UIStatusError,
}

var logger = logger_i.NewLogger("StatusMapper")

// MapStatus classifies a backend status string. It always returns a value.
func MapStatus(raw string) jobModel.UIStatus {
	mapped, known := classify(raw)
	if !known {
		logger.Warn("unknown processing status, failing closed", "status", raw, "mappedTo", mapped)
		metrics.CaptureUnknownStatus()
	}
	return mapped
}

// IsKnown reports whether raw is part of the recognised vocabulary.
func IsKnown(raw string) bool {
	_, known := classify(raw)
	return known
}

func classify(raw string) (jobModel.UIStatus, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if mapped, ok := statusTable[normalized]; ok {
		return mapped, true
	}
	if strings.Contains(normalized, "error") || strings.Contains(normalized, "fail") {
		return jobModel.UIStatusError, true
	}
	return jobModel.UIStatusError, false
}
