package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var activeTrackers = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "docwatch_active_trackers",
	Help: "Number of jobs currently tracked",
})

var terminalTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "docwatch_terminal_transitions_total",
	Help: "Terminal transitions labelled by kind",
}, []string{"kind"})

var pollingFallbacks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "docwatch_polling_fallbacks_total",
	Help: "How often a job degraded from the progress channel to polling",
})

var pollRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "docwatch_poll_requests_total",
	Help: "Status poll requests labelled by outcome",
}, []string{"outcome"})

var channelMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "docwatch_channel_messages_total",
	Help: "Progress channel messages labelled by type",
}, []string{"type"})

var unknownStatuses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "docwatch_unknown_status_total",
	Help: "Backend status values that fell through to the fail-closed default",
})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of backend API calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"operation"})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the connection.
func (r *HttpStatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func IncrementActiveTrackers() {
	activeTrackers.Inc()
}

func DecrementActiveTrackers() {
	activeTrackers.Dec()
}

func CaptureTerminal(kind string) {
	terminalTransitions.WithLabelValues(kind).Inc()
}

func CapturePollingFallback() {
	pollingFallbacks.Inc()
}

func CapturePoll(outcome string) {
	pollRequests.WithLabelValues(outcome).Inc()
}

func CaptureChannelMessage(msgType string) {
	channelMessages.WithLabelValues(msgType).Inc()
}

func CaptureUnknownStatus() {
	unknownStatuses.Inc()
}

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
