package status

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/akolanti/DocWatch/internal/domain/jobModel"
	"github.com/akolanti/DocWatch/pkg/logger_i"
)

func TestMapStatus_KnownValues(t *testing.T) {
	tests := []struct {
		raw      string
		expected jobModel.UIStatus
	}{
		{"uploaded", jobModel.UIStatusUploading},
		{"pending", jobModel.UIStatusUploading},
		{"processing", jobModel.UIStatusProcessing},
		{"chunking", jobModel.UIStatusProcessing},
		{"vectorizing", jobModel.UIStatusProcessing},
		{"INDEXING", jobModel.UIStatusProcessing},
		{"parsing", jobModel.UIStatusProcessing},
		{"processed", jobModel.UIStatusReady},
		{"completed", jobModel.UIStatusReady},
		{"Ready", jobModel.UIStatusReady},
		{"complete", jobModel.UIStatusReady},
		{"error", jobModel.UIStatusError},
		{"failed", jobModel.UIStatusError},
		{"ocr_error", jobModel.UIStatusError},
		{"FAILURE", jobModel.UIStatusError},
		{"cancelled", jobModel.UIStatusError},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := MapStatus(tt.raw); got != tt.expected {
				t.Errorf("MapStatus(%q) = %v; want %v", tt.raw, got, tt.expected)
			}
			if !IsKnown(tt.raw) {
				t.Errorf("IsKnown(%q) = false; want true", tt.raw)
			}
		})
	}
}

func TestMapStatus_UnknownFailsClosed(t *testing.T) {
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	logger = logger_i.NewLogger("StatusMapper")
	t.Cleanup(func() { logger = logger_i.NewLogger("StatusMapper") })

	for _, raw := range []string{"foobar", "", "queued_for_ocr"} {
		buf.Reset()
		if got := MapStatus(raw); got != jobModel.UIStatusError {
			t.Errorf("MapStatus(%q) = %v; want error", raw, got)
		}
		if !strings.Contains(buf.String(), "unknown processing status") {
			t.Errorf("expected a warning for %q, log was %q", raw, buf.String())
		}
		if IsKnown(raw) {
			t.Errorf("IsKnown(%q) = true; want false", raw)
		}
	}
}

func TestMapStatus_KnownValuesDoNotWarn(t *testing.T) {
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	logger = logger_i.NewLogger("StatusMapper")
	t.Cleanup(func() { logger = logger_i.NewLogger("StatusMapper") })

	MapStatus("completed")
	MapStatus("failed")
	if buf.Len() != 0 {
		t.Errorf("expected no log output, got %q", buf.String())
	}
}

func TestMapStatus_AlwaysInClosedSet(t *testing.T) {
	closed := map[jobModel.UIStatus]bool{
		jobModel.UIStatusUploading:  true,
		jobModel.UIStatusProcessing: true,
		jobModel.UIStatusReady:      true,
		jobModel.UIStatusError:      true,
	}
	for _, raw := range []string{"uploaded", "x", "  processing  ", "ERROR", "💥"} {
		if got := MapStatus(raw); !closed[got] {
			t.Errorf("MapStatus(%q) = %q outside the closed set", raw, got)
		}
	}
}
