package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/DocWatch/internal/domain/jobModel"
	"github.com/akolanti/DocWatch/internal/status"
)

type phase int

const (
	phaseIdle phase = iota
	phaseAwaitingChannel
	phaseStreaming
	phasePolling
	phaseTerminal
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "Idle"
	case phaseAwaitingChannel:
		return "AwaitingChannel"
	case phaseStreaming:
		return "Streaming"
	case phasePolling:
		return "Polling"
	case phaseTerminal:
		return "Terminal"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type source int

const (
	sourceChannel source = iota
	sourcePoller
)

type eventKind int

const (
	eventProgress eventKind = iota
	eventStatusChanged
	eventChannelFailed
	eventPollTimeout
)

// event is the single stream both the channel and the poller feed.
type event struct {
	kind         eventKind
	source       source
	jobId        string
	snapshot     *jobModel.ProgressSnapshot
	rawStatus    string
	errorMessage string
	err          error
	attempts     int
}

// transition lists the side effects the tracker must run for one event.
type transition struct {
	update   *jobModel.ProgressUpdate
	fallback bool
	terminal *jobModel.TerminalNotification
}

const (
	messageFailed   = "processing failed"
	messageTimedOut = "processing timed out"
)

// machine is the per-job state machine. It does no I/O.
type machine struct {
	jobId      string
	documentId string
	phase      phase
	percentage float64
	snapshot   *jobModel.ProgressSnapshot
	now        func() time.Time
}

func newMachine(handle jobModel.JobHandle) *machine {
	return &machine{
		jobId:      handle.JobId,
		documentId: handle.DocumentId,
		phase:      phaseIdle,
		now:        time.Now,
	}
}

func (m *machine) begin() {
	if m.phase == phaseIdle {
		m.phase = phaseAwaitingChannel
	}
}

func (m *machine) apply(ev event) transition {
	if m.phase == phaseTerminal || m.phase == phaseIdle || ev.jobId != m.jobId {
		return transition{}
	}

	switch ev.kind {
	case eventChannelFailed:
		if m.phase == phaseAwaitingChannel || m.phase == phaseStreaming {
			m.phase = phasePolling
			return transition{fallback: true}
		}
		return transition{}

	case eventProgress:
		m.markStreaming(ev.source)
		m.absorb(ev.snapshot)
		return transition{update: m.update(jobModel.DisplayProcessing, m.stageMessage())}

	case eventStatusChanged:
		m.markStreaming(ev.source)
		m.absorb(ev.snapshot)
		switch mapped := status.MapStatus(ev.rawStatus); mapped {
		case jobModel.UIStatusReady:
			m.percentage = 100
			return m.finish(jobModel.TerminalCompleted, jobModel.DisplayComplete, "")
		case jobModel.UIStatusError:
			return m.finish(jobModel.TerminalFailed, jobModel.DisplayError, failureMessage(ev.rawStatus, ev.errorMessage))
		default:
			return transition{update: m.update(mapped.Display(), m.stageMessage())}
		}

	case eventPollTimeout:
		if m.phase == phasePolling {
			return m.finish(jobModel.TerminalTimedOut, jobModel.DisplayError, messageTimedOut)
		}
	}
	return transition{}
}

// markStreaming records the first channel event. Polling never goes back to streaming.
func (m *machine) markStreaming(src source) {
	if src == sourceChannel && m.phase == phaseAwaitingChannel {
		m.phase = phaseStreaming
	}
}

func (m *machine) absorb(snapshot *jobModel.ProgressSnapshot) {
	if snapshot == nil {
		return
	}
	copied := *snapshot
	m.snapshot = &copied
	m.percentage = clampPercentage(copied.CompletionPercentage)
}

func (m *machine) finish(kind jobModel.TerminalKind, display jobModel.DisplayStatus, message string) transition {
	m.phase = phaseTerminal
	at := m.now()
	update := m.update(display, message)
	update.UpdatedAt = at
	return transition{
		update: update,
		terminal: &jobModel.TerminalNotification{
			Kind:       kind,
			JobId:      m.jobId,
			DocumentId: m.documentId,
			Message:    message,
			At:         at,
		},
	}
}

func (m *machine) update(display jobModel.DisplayStatus, message string) *jobModel.ProgressUpdate {
	return &jobModel.ProgressUpdate{
		DocumentId: m.documentId,
		JobId:      m.jobId,
		Percentage: m.percentage,
		Status:     display,
		Message:    message,
		Snapshot:   m.snapshot,
		UpdatedAt:  m.now(),
	}
}

func (m *machine) stageMessage() string {
	if m.snapshot == nil || m.snapshot.CurrentStage == "" {
		return ""
	}
	if m.snapshot.TotalPages > 0 {
		return fmt.Sprintf("%s: %d/%d pages", m.snapshot.CurrentStage, m.snapshot.ProcessedPages, m.snapshot.TotalPages)
	}
	return m.snapshot.CurrentStage
}

func failureMessage(rawStatus string, backendMessage string) string {
	if backendMessage != "" {
		return backendMessage
	}
	if !status.IsKnown(rawStatus) {
		return fmt.Sprintf("unrecognized processing status %q", rawStatus)
	}
	if normalized := strings.ToLower(strings.TrimSpace(rawStatus)); normalized == string(jobModel.JobStatusCancelled) || normalized == "canceled" {
		return "processing was cancelled"
	}
	return messageFailed
}

func clampPercentage(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
