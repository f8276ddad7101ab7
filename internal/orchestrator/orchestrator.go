package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/akolanti/DocWatch/internal/channel"
	"github.com/akolanti/DocWatch/internal/domain/jobModel"
	"github.com/akolanti/DocWatch/internal/metrics"
	"github.com/akolanti/DocWatch/internal/poller"
	"github.com/akolanti/DocWatch/pkg/logger_i"
)

var (
	ErrClosed        = errors.New("orchestrator is closed")
	ErrInvalidHandle = errors.New("job handle needs a job id and a document id")
)

// ChannelOpener opens a push channel for one job. *channel.Dialer implements it.
type ChannelOpener interface {
	Open(ctx context.Context, handle jobModel.JobHandle, h channel.Handlers) channel.Channel
}

// Reconciler is told exactly once per job that a terminal state was reached.
type Reconciler interface {
	Reconcile(ctx context.Context, documentId string, kind jobModel.TerminalKind)
}

// Callbacks run on the tracking goroutine of the job and must not block.
// Calling Stop or Track for the same document from OnUpdate deadlocks.
type Callbacks struct {
	OnUpdate   func(update jobModel.ProgressUpdate)
	OnTerminal func(note jobModel.TerminalNotification)
}

type Options struct {
	Poll poller.Options
	// StreamDeadline moves a job that has no terminal status after this long on the
	// channel over to polling. Zero disables it.
	StreamDeadline time.Duration
}

// Orchestrator is the single source of truth for the processing state of each document.
// It tracks at most one job per document.
type Orchestrator struct {
	opener     ChannelOpener
	fetcher    jobModel.StatusFetcher
	reconciler Reconciler
	opts       Options
	logger     *logger_i.Logger

	mu     sync.Mutex
	tracks map[string]*tracker
	closed bool
}

// New builds an orchestrator. A nil opener disables the push channel and every job is polled.
func New(opener ChannelOpener, fetcher jobModel.StatusFetcher, reconciler Reconciler, opts Options) *Orchestrator {
	return &Orchestrator{
		opener:     opener,
		fetcher:    fetcher,
		reconciler: reconciler,
		opts:       opts,
		logger:     logger_i.NewLogger("ProcessingOrchestrator"),
		tracks:     make(map[string]*tracker),
	}
}

// Track starts following handle. Any job still tracked for the same document is torn
// down first. ctx only contributes values such as the trace id; use Stop to end tracking.
func (o *Orchestrator) Track(ctx context.Context, handle jobModel.JobHandle, cb Callbacks) error {
	if handle.JobId == "" || handle.DocumentId == "" {
		return ErrInvalidHandle
	}
	t := newTracker(o, ctx, handle, cb)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	prior := o.tracks[handle.DocumentId]
	o.tracks[handle.DocumentId] = t
	o.mu.Unlock()

	if prior != nil {
		t.logger.Info("superseding active job", "priorJobId", prior.handle.JobId)
		prior.stop()
	}

	metrics.IncrementActiveTrackers()
	go t.run()
	return nil
}

// Stop ends tracking for documentId without a terminal notification.
// It returns once the channel is closed and the poller stopped.
func (o *Orchestrator) Stop(documentId string) bool {
	o.mu.Lock()
	t, ok := o.tracks[documentId]
	if ok {
		delete(o.tracks, documentId)
	}
	o.mu.Unlock()

	if !ok {
		return false
	}
	t.stop()
	return true
}

// Active returns the job currently tracked for documentId.
func (o *Orchestrator) Active(documentId string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.tracks[documentId]
	if !ok {
		return "", false
	}
	return t.handle.JobId, true
}

// Close tears down every tracked job. Track fails afterwards.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	trackers := make([]*tracker, 0, len(o.tracks))
	for id, t := range o.tracks {
		trackers = append(trackers, t)
		delete(o.tracks, id)
	}
	o.mu.Unlock()

	for _, t := range trackers {
		t.stop()
	}
	o.logger.Info("orchestrator closed", "stoppedTrackers", len(trackers))
}

func (o *Orchestrator) release(t *tracker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.tracks[t.handle.DocumentId] == t {
		delete(o.tracks, t.handle.DocumentId)
	}
}
