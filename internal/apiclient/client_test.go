package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/DocWatch/internal/config"
)

func testConfig(baseURL string) config.APIConfig {
	return config.APIConfig{
		BaseURL:        baseURL,
		Token:          "secret",
		RequestTimeout: 2 * time.Second,
		UploadTimeout:  2 * time.Second,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(testConfig(srv.URL + "/api/v1"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c, srv
}

func TestStartProcessing_ResolvesRelativeUrls(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/documents/doc_1/process" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get(config.TRACE_HEADER); got != "trace-1" {
			t.Errorf("trace header = %q", got)
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"job_id":"job_1","status":"pending","status_url":"/api/v1/jobs/job_1","websocket_url":"/ws/jobs/job_1"}`)
	})

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "trace-1")
	handle, err := c.StartProcessing(ctx, "doc_1")
	if err != nil {
		t.Fatalf("StartProcessing failed: %v", err)
	}
	if handle.JobId != "job_1" || handle.DocumentId != "doc_1" {
		t.Errorf("handle = %+v", handle)
	}
	if want := srv.URL + "/api/v1/jobs/job_1"; handle.StatusURL != want {
		t.Errorf("status url = %q, want %q", handle.StatusURL, want)
	}
	if want := "ws" + srv.URL[len("http"):] + "/ws/jobs/job_1"; handle.ChannelURL != want {
		t.Errorf("channel url = %q, want %q", handle.ChannelURL, want)
	}
}

func TestGetDocument_RetriesServerErrors(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"id":"doc_1","filename":"report.pdf","status":"processed"}`)
	})

	doc, err := c.GetDocument(context.Background(), "doc_1")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if doc.Id != "doc_1" || doc.Status != "processed" {
		t.Errorf("doc = %+v", doc)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestListDocuments_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.ListDocuments(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want 503 StatusError", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 1 + 2 retries", calls)
	}
}

func TestGetJobStatus_MakesSingleRequest(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.GetJobStatus(context.Background(), "job_1")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want 503 StatusError", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestStartProcessing_AmbiguousFailureIsNotResent(t *testing.T) {
	for _, code := range []int{http.StatusBadGateway, http.StatusGatewayTimeout, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			var calls int32
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if atomic.AddInt32(&calls, 1) == 1 {
					w.WriteHeader(code)
					return
				}
				w.WriteHeader(http.StatusAccepted)
				_, _ = io.WriteString(w, `{"job_id":"job_2","status":"pending"}`)
			})

			_, err := c.StartProcessing(context.Background(), "doc_1")
			var statusErr *StatusError
			if !errors.As(err, &statusErr) || statusErr.StatusCode != code {
				t.Fatalf("err = %v, want %d StatusError", err, code)
			}
			if calls != 1 {
				t.Errorf("POST sent %d times, want 1", calls)
			}
		})
	}
}

func TestStartProcessing_RetriesWhenBackendAsksToWait(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"job_id":"job_1","status":"pending"}`)
	})

	handle, err := c.StartProcessing(context.Background(), "doc_1")
	if err != nil {
		t.Fatalf("StartProcessing failed: %v", err)
	}
	if handle.JobId != "job_1" || calls != 2 {
		t.Errorf("handle = %+v after %d calls", handle, calls)
	}
}

func TestUploadDocument_RetriesRefusedConnection(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	cfg := testConfig(base)
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(path, []byte("quarterly numbers"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err = c.UploadDocument(context.Background(), path, "")
	var opErr *net.OpError
	if !errors.As(err, &opErr) || opErr.Op != "dial" {
		t.Errorf("err = %v, want a dial error after retries", err)
	}
}

func TestGetDocument_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "document not found", http.StatusNotFound)
	})

	_, err := c.GetDocument(context.Background(), "doc_9")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound || statusErr.Body != "document not found" {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestUploadDocument_SendsMultipart(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm failed: %v", err)
			return
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "doc_1", "filename": header.Filename, "file_size": len(data), "status": "uploaded"})
	})

	path := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(path, []byte("quarterly numbers"), 0o600); err != nil {
		t.Fatal(err)
	}

	doc, err := c.UploadDocument(context.Background(), path, "Q3 report.txt")
	if err != nil {
		t.Fatalf("UploadDocument failed: %v", err)
	}
	if doc.Id != "doc_1" || doc.Name != "Q3 report.txt" || doc.SizeBytes != 17 {
		t.Errorf("doc = %+v", doc)
	}
}

func TestUploadDocument_MissingFileIsNotRetried(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	_, err := c.UploadDocument(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), "")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestDo_HonoursContextCancellation(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	c.maxDelay = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.ListDocuments(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("retry wait ignored the context")
	}
}

func TestNew_RejectsBadBaseUrl(t *testing.T) {
	if _, err := New(config.APIConfig{BaseURL: "ftp://example.com"}); err == nil {
		t.Error("expected an error for a non-http scheme")
	}
}

func TestBackoff_StaysWithinBounds(t *testing.T) {
	c := &Client{baseDelay: 10 * time.Millisecond, maxDelay: 40 * time.Millisecond}
	for attempt := 1; attempt <= 6; attempt++ {
		d := c.backoff(attempt, errors.New("network"))
		if d < 5*time.Millisecond || d > 40*time.Millisecond {
			t.Errorf("attempt %d: delay %v out of bounds", attempt, d)
		}
	}
}
