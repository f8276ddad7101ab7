package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/DocWatch/internal/channel"
	"github.com/akolanti/DocWatch/internal/domain/commonModels"
	"github.com/akolanti/DocWatch/internal/domain/jobModel"
	"github.com/akolanti/DocWatch/internal/poller"
	"github.com/akolanti/DocWatch/internal/reconciler"
)

type fakeChannel struct {
	closes int32
}

func (c *fakeChannel) Close() {
	atomic.AddInt32(&c.closes, 1)
}

// fakeOpener runs script on its own goroutine, the way a real channel delivers frames.
type fakeOpener struct {
	mu       sync.Mutex
	channels []*fakeChannel
	script   func(h channel.Handlers)
}

func (o *fakeOpener) Open(ctx context.Context, handle jobModel.JobHandle, h channel.Handlers) channel.Channel {
	c := &fakeChannel{}
	o.mu.Lock()
	o.channels = append(o.channels, c)
	o.mu.Unlock()
	if o.script != nil {
		go o.script(h)
	}
	return c
}

func (o *fakeOpener) closes() int32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	var total int32
	for _, c := range o.channels {
		total += atomic.LoadInt32(&c.closes)
	}
	return total
}

type MockFetcher struct {
	mu             sync.Mutex
	calls          map[string]int
	OnGetJobStatus func(ctx context.Context, call int, jobId string) (jobModel.JobStatusReport, error)
}

func (m *MockFetcher) GetJobStatus(ctx context.Context, jobId string) (jobModel.JobStatusReport, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[jobId]++
	call := m.calls[jobId]
	m.mu.Unlock()
	if m.OnGetJobStatus != nil {
		return m.OnGetJobStatus(ctx, call, jobId)
	}
	return jobModel.JobStatusReport{JobId: jobId, Status: "processing"}, nil
}

func (m *MockFetcher) callsFor(jobId string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[jobId]
}

type MockCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (c *MockCache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, key)
	return nil
}

func (c *MockCache) SetValue(ctx context.Context, key string, value []byte) error { return nil }

func (c *MockCache) GetValue(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (c *MockCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.invalidated...)
}

type recorder struct {
	mu        sync.Mutex
	updates   []jobModel.ProgressUpdate
	terminals []jobModel.TerminalNotification
	done      chan struct{}
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{})}
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnUpdate: func(u jobModel.ProgressUpdate) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.updates = append(r.updates, u)
		},
		OnTerminal: func(n jobModel.TerminalNotification) {
			r.mu.Lock()
			r.terminals = append(r.terminals, n)
			first := len(r.terminals) == 1
			r.mu.Unlock()
			if first {
				close(r.done)
			}
		},
	}
}

func (r *recorder) snapshot() ([]jobModel.ProgressUpdate, []jobModel.TerminalNotification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]jobModel.ProgressUpdate(nil), r.updates...), append([]jobModel.TerminalNotification(nil), r.terminals...)
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for terminal notification")
	}
}

var handle1 = jobModel.JobHandle{JobId: "job_1", DocumentId: "doc_1", ChannelURL: "ws://backend/ws/job_1"}

func fastPolling() Options {
	return Options{Poll: poller.Options{Interval: 5 * time.Millisecond, MaxAttempts: 50}}
}

func TestOrchestrator_StreamedJobCompletes(t *testing.T) {
	opener := &fakeOpener{script: func(h channel.Handlers) {
		h.OnProgress(jobModel.ProgressSnapshot{CompletionPercentage: 40, CurrentStage: "vectorizing"})
		h.OnStatusChange("completed", "")
		h.OnProgress(jobModel.ProgressSnapshot{CompletionPercentage: 60})
	}}
	fetcher := &MockFetcher{}
	cache := &MockCache{}
	o := New(opener, fetcher, reconciler.New(cache, nil), fastPolling())
	defer o.Close()

	rec := newRecorder()
	if err := o.Track(context.Background(), handle1, rec.callbacks()); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	rec.wait(t)
	time.Sleep(30 * time.Millisecond)

	updates, terminals := rec.snapshot()
	if len(terminals) != 1 || terminals[0].Kind != jobModel.TerminalCompleted || terminals[0].JobId != "job_1" {
		t.Fatalf("terminals = %+v", terminals)
	}
	if len(updates) != 2 || updates[0].Percentage != 40 || updates[1].Percentage != 100 || updates[1].Status != jobModel.DisplayComplete {
		t.Errorf("updates = %+v", updates)
	}
	if got := opener.closes(); got != 1 {
		t.Errorf("channel closed %d times, want 1", got)
	}
	if fetcher.callsFor("job_1") != 0 {
		t.Error("streamed job must not be polled")
	}
	keys := cache.keys()
	if len(keys) != 2 || keys[0] != commonModels.DocumentListKey || keys[1] != "document:doc_1" {
		t.Errorf("invalidated keys = %v", keys)
	}
	if _, active := o.Active("doc_1"); active {
		t.Error("document still tracked after terminal")
	}
}

func TestOrchestrator_FallbackPollsUntilFailure(t *testing.T) {
	opener := &fakeOpener{script: func(h channel.Handlers) {
		h.OnError(jobModel.ErrTransport)
	}}
	fetcher := &MockFetcher{
		OnGetJobStatus: func(ctx context.Context, call int, jobId string) (jobModel.JobStatusReport, error) {
			if call <= 3 {
				return jobModel.JobStatusReport{JobId: jobId, Status: "processing"}, nil
			}
			return jobModel.JobStatusReport{JobId: jobId, Status: "failed", ErrorMessage: "OCR engine crashed"}, nil
		},
	}
	cache := &MockCache{}
	o := New(opener, fetcher, reconciler.New(cache, nil), fastPolling())
	defer o.Close()

	rec := newRecorder()
	_ = o.Track(context.Background(), handle1, rec.callbacks())
	rec.wait(t)
	time.Sleep(30 * time.Millisecond)

	updates, terminals := rec.snapshot()
	want := []jobModel.DisplayStatus{jobModel.DisplayProcessing, jobModel.DisplayProcessing, jobModel.DisplayProcessing, jobModel.DisplayError}
	if len(updates) != len(want) {
		t.Fatalf("updates = %+v", updates)
	}
	for i, u := range updates {
		if u.Status != want[i] {
			t.Errorf("update %d status = %v, want %v", i, u.Status, want[i])
		}
	}
	if len(terminals) != 1 || terminals[0].Kind != jobModel.TerminalFailed || terminals[0].Message != "OCR engine crashed" {
		t.Errorf("terminals = %+v", terminals)
	}
	if calls := fetcher.callsFor("job_1"); calls != 4 {
		t.Errorf("poll requests = %d, want 4", calls)
	}
	if got := opener.closes(); got != 1 {
		t.Errorf("channel closed %d times, want 1", got)
	}
	if len(cache.keys()) != 2 {
		t.Errorf("invalidated keys = %v", cache.keys())
	}
}

func TestOrchestrator_StalledStreamFallsBackToPolling(t *testing.T) {
	opener := &fakeOpener{script: func(h channel.Handlers) {
		h.OnProgress(jobModel.ProgressSnapshot{CompletionPercentage: 10, CurrentStage: "parsing"})
	}}
	fetcher := &MockFetcher{
		OnGetJobStatus: func(ctx context.Context, call int, jobId string) (jobModel.JobStatusReport, error) {
			if call < 2 {
				return jobModel.JobStatusReport{JobId: jobId, Status: "indexing"}, nil
			}
			return jobModel.JobStatusReport{JobId: jobId, Status: "completed"}, nil
		},
	}
	opts := fastPolling()
	opts.StreamDeadline = 50 * time.Millisecond
	o := New(opener, fetcher, nil, opts)
	defer o.Close()

	rec := newRecorder()
	start := time.Now()
	_ = o.Track(context.Background(), handle1, rec.callbacks())
	rec.wait(t)

	if elapsed := time.Since(start); elapsed < opts.StreamDeadline {
		t.Errorf("fell back after %s, before the stream deadline", elapsed)
	}
	_, terminals := rec.snapshot()
	if len(terminals) != 1 || terminals[0].Kind != jobModel.TerminalCompleted {
		t.Fatalf("terminals = %+v", terminals)
	}
	if calls := fetcher.callsFor("job_1"); calls != 2 {
		t.Errorf("poll requests = %d, want 2", calls)
	}
	if got := opener.closes(); got != 1 {
		t.Errorf("channel closed %d times, want 1", got)
	}
}

func TestOrchestrator_RacingTerminalsNotifyOnce(t *testing.T) {
	opener := &fakeOpener{script: func(h channel.Handlers) {
		h.OnError(errors.New("connection reset"))
		h.OnStatusChange("completed", "")
		h.OnStatusChange("completed", "")
	}}
	fetcher := &MockFetcher{
		OnGetJobStatus: func(ctx context.Context, call int, jobId string) (jobModel.JobStatusReport, error) {
			return jobModel.JobStatusReport{JobId: jobId, Status: "completed"}, nil
		},
	}
	cache := &MockCache{}
	o := New(opener, fetcher, reconciler.New(cache, nil), fastPolling())
	defer o.Close()

	rec := newRecorder()
	_ = o.Track(context.Background(), handle1, rec.callbacks())
	rec.wait(t)
	time.Sleep(50 * time.Millisecond)

	_, terminals := rec.snapshot()
	if len(terminals) != 1 {
		t.Errorf("got %d terminal notifications, want 1", len(terminals))
	}
	if keys := cache.keys(); len(keys) != 2 {
		t.Errorf("reconciler ran more than once: %v", keys)
	}
}

func TestOrchestrator_SupersedeStopsOldJob(t *testing.T) {
	fetcher := &MockFetcher{}
	o := New(nil, fetcher, nil, fastPolling())
	defer o.Close()

	first := newRecorder()
	_ = o.Track(context.Background(), handle1, first.callbacks())
	deadline := time.Now().Add(3 * time.Second)
	for fetcher.callsFor("job_1") == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	second := newRecorder()
	handle2 := jobModel.JobHandle{JobId: "job_2", DocumentId: "doc_1"}
	if err := o.Track(context.Background(), handle2, second.callbacks()); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	oldCalls := fetcher.callsFor("job_1")
	time.Sleep(50 * time.Millisecond)

	if got := fetcher.callsFor("job_1"); got != oldCalls {
		t.Errorf("superseded job polled again: %d -> %d", oldCalls, got)
	}
	if fetcher.callsFor("job_2") == 0 {
		t.Error("new job was never polled")
	}
	if jobId, _ := o.Active("doc_1"); jobId != "job_2" {
		t.Errorf("active job = %q, want job_2", jobId)
	}
	if _, terminals := first.snapshot(); len(terminals) != 0 {
		t.Errorf("superseded job notified: %+v", terminals)
	}
}

func TestOrchestrator_PollingTimesOut(t *testing.T) {
	fetcher := &MockFetcher{}
	o := New(nil, fetcher, nil, Options{Poll: poller.Options{Interval: 2 * time.Millisecond, MaxAttempts: 3}})
	defer o.Close()

	rec := newRecorder()
	_ = o.Track(context.Background(), handle1, rec.callbacks())
	rec.wait(t)

	updates, terminals := rec.snapshot()
	if len(terminals) != 1 || terminals[0].Kind != jobModel.TerminalTimedOut {
		t.Fatalf("terminals = %+v", terminals)
	}
	if last := updates[len(updates)-1]; last.Status != jobModel.DisplayError {
		t.Errorf("last update = %+v", last)
	}
	if calls := fetcher.callsFor("job_1"); calls != 3 {
		t.Errorf("poll requests = %d, want 3", calls)
	}
}

func TestOrchestrator_StopIsSilent(t *testing.T) {
	opener := &fakeOpener{}
	o := New(opener, &MockFetcher{}, nil, fastPolling())
	defer o.Close()

	rec := newRecorder()
	_ = o.Track(context.Background(), handle1, rec.callbacks())
	time.Sleep(10 * time.Millisecond)

	if !o.Stop("doc_1") {
		t.Fatal("Stop reported nothing tracked")
	}
	if o.Stop("doc_1") {
		t.Error("second Stop should report nothing tracked")
	}
	if got := opener.closes(); got != 1 {
		t.Errorf("channel closed %d times, want 1", got)
	}
	time.Sleep(20 * time.Millisecond)
	if _, terminals := rec.snapshot(); len(terminals) != 0 {
		t.Errorf("stopped job notified: %+v", terminals)
	}
}

func TestOrchestrator_UnknownStatusFailsClosed(t *testing.T) {
	opener := &fakeOpener{script: func(h channel.Handlers) {
		h.OnStatusChange("quantum_entangling", "")
	}}
	o := New(opener, &MockFetcher{}, nil, fastPolling())
	defer o.Close()

	rec := newRecorder()
	_ = o.Track(context.Background(), handle1, rec.callbacks())
	rec.wait(t)

	_, terminals := rec.snapshot()
	if terminals[0].Kind != jobModel.TerminalFailed || !strings.Contains(terminals[0].Message, "quantum_entangling") {
		t.Errorf("terminal = %+v", terminals[0])
	}
}

func TestOrchestrator_RejectsBadInput(t *testing.T) {
	o := New(nil, &MockFetcher{}, nil, fastPolling())

	if err := o.Track(context.Background(), jobModel.JobHandle{JobId: "job_1"}, Callbacks{}); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("got %v, want ErrInvalidHandle", err)
	}
	o.Close()
	if err := o.Track(context.Background(), handle1, Callbacks{}); !errors.Is(err, ErrClosed) {
		t.Errorf("got %v, want ErrClosed", err)
	}
}
