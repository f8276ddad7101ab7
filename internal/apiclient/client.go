package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/akolanti/DocWatch/internal/config"
	"github.com/akolanti/DocWatch/internal/domain/commonModels"
	"github.com/akolanti/DocWatch/internal/domain/jobModel"
	"github.com/akolanti/DocWatch/internal/metrics"
	"github.com/akolanti/DocWatch/pkg/logger_i"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const maxErrorBody = 4 << 10

// Client talks to the document processing backend.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	uploader   *http.Client
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *logger_i.Logger
}

func New(cfg config.APIConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url %q: scheme must be http or https", cfg.BaseURL)
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL:    base,
		token:      cfg.Token,
		httpClient: NewHTTPClient(cfg.RequestTimeout),
		uploader:   NewHTTPClient(cfg.UploadTimeout),
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay,
		maxDelay:   cfg.RetryMaxDelay,
		logger:     logger_i.NewLogger("BackendClient"),
	}, nil
}

// UploadDocument sends the file as multipart form data.
func (c *Client) UploadDocument(ctx context.Context, path string, name string) (commonModels.Document, error) {
	var doc commonModels.Document
	if name == "" {
		name = filepath.Base(path)
	}
	body := func() (io.Reader, string, error) {
		return multipartBody(path, name)
	}
	err := c.do(ctx, c.uploader, retryUnsent, "upload_document", http.MethodPost, "documents", body, &doc)
	return doc, err
}

// StartProcessing asks the backend to process an uploaded document asynchronously.
func (c *Client) StartProcessing(ctx context.Context, documentId string) (jobModel.JobHandle, error) {
	var handle jobModel.JobHandle
	err := c.do(ctx, c.httpClient, retryUnsent, "start_processing", http.MethodPost, "documents/"+url.PathEscape(documentId)+"/process", nil, &handle)
	if err != nil {
		return handle, err
	}
	if handle.DocumentId == "" {
		handle.DocumentId = documentId
	}
	handle.StatusURL = c.resolve(handle.StatusURL, false)
	handle.ChannelURL = c.resolve(handle.ChannelURL, true)
	return handle, nil
}

// GetJobStatus makes exactly one request. The poller owns the retry schedule.
func (c *Client) GetJobStatus(ctx context.Context, jobId string) (jobModel.JobStatusReport, error) {
	var report jobModel.JobStatusReport
	err := c.do(ctx, c.httpClient, retryNever, "get_job_status", http.MethodGet, "jobs/"+url.PathEscape(jobId), nil, &report)
	return report, err
}

func (c *Client) GetDocument(ctx context.Context, id string) (commonModels.Document, error) {
	var doc commonModels.Document
	err := c.do(ctx, c.httpClient, retryIdempotent, "get_document", http.MethodGet, "documents/"+url.PathEscape(id), nil, &doc)
	return doc, err
}

func (c *Client) ListDocuments(ctx context.Context) ([]commonModels.Document, error) {
	var docs []commonModels.Document
	err := c.do(ctx, c.httpClient, retryIdempotent, "list_documents", http.MethodGet, "documents", nil, &docs)
	return docs, err
}

// resolve turns a backend-relative URL into an absolute one. Channel URLs use ws or wss.
func (c *Client) resolve(raw string, websocket bool) string {
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		c.logger.Warn("backend returned an unparsable url", "url", raw, "error", err)
		return ""
	}
	abs := c.baseURL.ResolveReference(ref)
	if websocket {
		switch abs.Scheme {
		case "http":
			abs.Scheme = "ws"
		case "https":
			abs.Scheme = "wss"
		}
	}
	return abs.String()
}

type bodyFunc func() (io.Reader, string, error)

// retryPolicy decides which failures a call may repeat.
type retryPolicy int

const (
	// retryIdempotent repeats network errors, 429 and 5xx.
	retryIdempotent retryPolicy = iota
	// retryUnsent repeats only failures the backend cannot have acted on: dial errors,
	// and 429 or 503 answers carrying Retry-After.
	retryUnsent
	// retryNever makes a single request.
	retryNever
)

func (p retryPolicy) allows(err error) bool {
	var statusErr *StatusError
	isStatus := errors.As(err, &statusErr)
	switch p {
	case retryNever:
		return false
	case retryUnsent:
		if isStatus {
			return statusErr.retryAfter > 0 &&
				(statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode == http.StatusServiceUnavailable)
		}
		var opErr *net.OpError
		return errors.As(err, &opErr) && opErr.Op == "dial"
	default:
		if isStatus {
			return statusErr.Retryable()
		}
		return true
	}
}

func (c *Client) do(ctx context.Context, client *http.Client, policy retryPolicy, operation string, method string, path string, body bodyFunc, out any) error {
	traceId, ok := ctx.Value(config.TRACE_ID_KEY).(string)
	if !ok || traceId == "" {
		traceId = uuid.NewString()
	}
	log := c.logger.With("operation", operation, "traceId", traceId)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt, lastErr)
			log.Warn("backend call failed, retrying", "attempt", attempt, "delay", delay, "error", lastErr)
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		err := c.attempt(ctx, client, operation, method, path, traceId, body, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var permanent *permanentError
		if errors.As(err, &permanent) {
			return permanent.err
		}
		if !policy.allows(err) {
			return err
		}
		lastErr = err
	}
	log.Error("backend call gave up", "attempts", c.maxRetries+1, "error", lastErr)
	return lastErr
}

func (c *Client) attempt(ctx context.Context, client *http.Client, operation string, method string, path string, traceId string, body bodyFunc, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		var err error
		if reader, contentType, err = body(); err != nil {
			return &permanentError{err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return &permanentError{err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(config.TRACE_HEADER, traceId)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	metrics.CaptureExecutionMetrics(operation, time.Since(start))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       "/" + path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &permanentError{err: fmt.Errorf("decoding %s response: %w", operation, err)}
	}
	return nil
}

// backoff doubles the base delay per attempt, caps it and adds jitter. Retry-After wins when present.
func (c *Client) backoff(attempt int, lastErr error) time.Duration {
	var statusErr *StatusError
	if errors.As(lastErr, &statusErr) && statusErr.retryAfter > 0 {
		return min(statusErr.retryAfter, c.maxDelay)
	}
	delay := c.baseDelay << (attempt - 1)
	if delay <= 0 || delay > c.maxDelay {
		delay = c.maxDelay
	}
	if delay <= 0 {
		return 0
	}
	half := delay / 2
	return half + rand.N(half+1)
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// permanentError marks failures that happen before or after the wire and are not worth retrying.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func multipartBody(path string, name string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err = io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err = w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
