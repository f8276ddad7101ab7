package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/DocWatch/internal/channel"
	"github.com/akolanti/DocWatch/internal/domain/jobModel"
	"github.com/akolanti/DocWatch/internal/metrics"
	"github.com/akolanti/DocWatch/internal/poller"
	"github.com/akolanti/DocWatch/pkg/logger_i"
)

const eventBuffer = 64

// tracker owns one job. Only its run goroutine touches the machine, the channel and the poller.
type tracker struct {
	o       *Orchestrator
	handle  jobModel.JobHandle
	cb      Callbacks
	machine *machine
	logger  *logger_i.Logger

	ctx    context.Context
	cancel context.CancelFunc

	events   chan event
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	channel channel.Channel
	poller  *poller.Poller
}

func newTracker(o *Orchestrator, ctx context.Context, handle jobModel.JobHandle, cb Callbacks) *tracker {
	tctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	return &tracker{
		o:       o,
		handle:  handle,
		cb:      cb,
		machine: newMachine(handle),
		logger:  o.logger.WithTrace(ctx).With("jobId", handle.JobId, "documentId", handle.DocumentId),
		ctx:     tctx,
		cancel:  cancel,
		events:  make(chan event, eventBuffer),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (t *tracker) run() {
	defer close(t.done)
	defer metrics.DecrementActiveTrackers()
	defer t.cancel()

	select {
	case <-t.quit:
		return
	default:
	}

	t.machine.begin()
	t.logger.Debug("tracking started", "phase", t.machine.phase)
	t.openChannel()

	var deadline <-chan time.Time
	if d := t.o.opts.StreamDeadline; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-t.quit:
			t.teardown()
			t.logger.Info("tracking stopped", "phase", t.machine.phase)
			return

		case <-deadline:
			deadline = nil
			ev := event{kind: eventChannelFailed, source: sourceChannel, jobId: t.handle.JobId,
				err: fmt.Errorf("%w: %s", jobModel.ErrStreamDeadline, t.o.opts.StreamDeadline)}
			if t.step(ev) {
				return
			}

		case ev := <-t.events:
			if t.step(ev) {
				return
			}
		}
	}
}

// step applies one event and runs its side effects. It reports whether tracking ended.
func (t *tracker) step(ev event) bool {
	before := t.machine.phase
	tr := t.machine.apply(ev)
	if before != t.machine.phase {
		t.logger.Debug("phase changed", "from", before, "to", t.machine.phase)
	}

	if tr.fallback {
		t.fallBackToPolling(ev.err)
	}
	if tr.terminal != nil {
		t.finish(tr)
		return true
	}
	if tr.update != nil && t.cb.OnUpdate != nil {
		t.cb.OnUpdate(*tr.update)
	}
	return false
}

// post hands an event to the run loop. Events arriving after the tracker ended are dropped.
func (t *tracker) post(ev event) {
	ev.jobId = t.handle.JobId
	select {
	case t.events <- ev:
	case <-t.done:
	}
}

func (t *tracker) openChannel() {
	if t.o.opener == nil {
		t.post(event{kind: eventChannelFailed, source: sourceChannel, err: fmt.Errorf("%w: push channel disabled", jobModel.ErrTransport)})
		return
	}
	t.channel = t.o.opener.Open(t.ctx, t.handle, channel.Handlers{
		OnProgress: func(snapshot jobModel.ProgressSnapshot) {
			t.post(event{kind: eventProgress, source: sourceChannel, snapshot: &snapshot})
		},
		OnStatusChange: func(status string, errorMessage string) {
			t.post(event{kind: eventStatusChanged, source: sourceChannel, rawStatus: status, errorMessage: errorMessage})
		},
		OnError: func(err error) {
			t.post(event{kind: eventChannelFailed, source: sourceChannel, err: err})
		},
	})
}

func (t *tracker) fallBackToPolling(reason error) {
	t.logger.Warn("progress channel unavailable, falling back to polling", "reason", reason)
	metrics.CapturePollingFallback()
	t.closeChannel()
	t.poller = poller.New(t.o.fetcher, t.o.opts.Poll)
	t.poller.Start(t.ctx, t.handle.JobId, t.handle.DocumentId, t)
}

// OnPoll implements poller.Sink.
func (t *tracker) OnPoll(result poller.PollResult) {
	t.post(event{
		kind:         eventStatusChanged,
		source:       sourcePoller,
		rawStatus:    result.RawStatus,
		snapshot:     result.Progress,
		errorMessage: result.ErrorMessage,
	})
}

// OnTimeout implements poller.Sink.
func (t *tracker) OnTimeout(jobId string, attempts int) {
	t.post(event{kind: eventPollTimeout, source: sourcePoller, attempts: attempts})
}

func (t *tracker) finish(tr transition) {
	t.teardown()
	t.o.release(t)

	note := *tr.terminal
	if t.o.reconciler != nil {
		t.o.reconciler.Reconcile(t.ctx, note.DocumentId, note.Kind)
	}
	if tr.update != nil && t.cb.OnUpdate != nil {
		t.cb.OnUpdate(*tr.update)
	}
	metrics.CaptureTerminal(string(note.Kind))
	t.logger.Info("job reached terminal state", "kind", note.Kind, "message", note.Message)
	if t.cb.OnTerminal != nil {
		t.cb.OnTerminal(note)
	}
}

// teardown returns once the poller goroutine has exited, draining whatever it posts meanwhile.
func (t *tracker) teardown() {
	t.closeChannel()
	if t.poller == nil {
		return
	}
	t.poller.Stop()
	done := t.poller.Done()
	for {
		select {
		case <-done:
			return
		case <-t.events:
		}
	}
}

func (t *tracker) closeChannel() {
	if t.channel != nil {
		t.channel.Close()
		t.channel = nil
	}
}

// stop asks the run loop to tear down and waits for it.
func (t *tracker) stop() {
	t.stopOnce.Do(func() { close(t.quit) })
	<-t.done
}
