package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/DocWatch/internal/config"
	"github.com/akolanti/DocWatch/internal/domain/jobModel"
	"github.com/akolanti/DocWatch/internal/metrics"
	"github.com/akolanti/DocWatch/internal/status"
	"github.com/akolanti/DocWatch/pkg/logger_i"
)

// PollResult is one status answer after it went through the status mapper.
type PollResult struct {
	JobId        string
	DocumentId   string
	Attempt      int
	RawStatus    string
	Status       jobModel.UIStatus
	Progress     *jobModel.ProgressSnapshot
	ErrorMessage string
}

// Sink receives poll results in request-issue order.
type Sink interface {
	OnPoll(result PollResult)
	OnTimeout(jobId string, attempts int)
}

type Options struct {
	Interval time.Duration
	// MaxAttempts caps the number of requests. Zero means unbounded.
	MaxAttempts int
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{Interval: cfg.Polling.Interval, MaxAttempts: cfg.Polling.MaxAttempts}
}

type Poller struct {
	fetcher jobModel.StatusFetcher
	opts    Options
	logger  *logger_i.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
	done    chan struct{}
}

func New(fetcher jobModel.StatusFetcher, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = config.DefaultPollInterval
	}
	return &Poller{
		fetcher: fetcher,
		opts:    opts,
		logger:  logger_i.NewLogger("JobStatusPoller"),
	}
}

// Start issues the first request immediately, then one per interval. Each request
// is bounded by the interval, so MaxAttempts x Interval caps the time to OnTimeout.
// A poller runs once; calling Start again is a no-op.
func (p *Poller) Start(ctx context.Context, jobId string, documentId string, sink Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil || p.stopped {
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	log := p.logger.WithTrace(ctx).With("jobId", jobId, "documentId", documentId)
	log.Debug("polling started", "interval", p.opts.Interval, "maxAttempts", p.opts.MaxAttempts)
	go p.loop(pollCtx, jobId, documentId, sink, log)
}

// Stop cancels the timer. Safe to call repeatedly and from any goroutine, including the sink.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	if p.cancel != nil {
		p.cancel()
	}
}

// Done is closed once the polling goroutine has exited. Nil before Start.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *Poller) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

func (p *Poller) loop(ctx context.Context, jobId string, documentId string, sink Sink, log *logger_i.Logger) {
	defer close(p.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			log.Debug("polling stopped", "attempts", attempts)
			return
		case <-timer.C:
		}
		if p.isStopped() {
			return
		}

		if p.opts.MaxAttempts > 0 && attempts >= p.opts.MaxAttempts {
			if !p.isStopped() {
				log.Warn("polling attempts exhausted", "attempts", attempts)
				sink.OnTimeout(jobId, attempts)
			}
			return
		}
		attempts++
		started := time.Now()

		report, err := p.poll(ctx, jobId)
		if p.isStopped() || ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Warn("status request failed, will retry", "attempt", attempts, "error", err)
		} else {
			result := PollResult{
				JobId:        jobId,
				DocumentId:   documentId,
				Attempt:      attempts,
				RawStatus:    report.Status,
				Status:       status.MapStatus(report.Status),
				Progress:     report.Progress,
				ErrorMessage: report.ErrorMessage,
			}
			sink.OnPoll(result)
			if result.Status.IsTerminal() {
				log.Debug("terminal status observed, polling done", "status", report.Status)
				return
			}
		}
		timer.Reset(max(p.opts.Interval-time.Since(started), 0))
	}
}

func (p *Poller) poll(ctx context.Context, jobId string) (jobModel.JobStatusReport, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.opts.Interval)
	defer cancel()
	report, err := p.fetcher.GetJobStatus(attemptCtx, jobId)
	if err != nil {
		metrics.CapturePoll("error")
		return report, fmt.Errorf("%w: %v", jobModel.ErrRequest, err)
	}
	metrics.CapturePoll("ok")
	return report, nil
}
