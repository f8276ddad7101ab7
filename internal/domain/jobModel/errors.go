package jobModel

import "errors"

var (
	// ErrTransport means the progress channel failed to open or died. Triggers the polling fallback.
	ErrTransport = errors.New("progress channel transport failure")
	// ErrProtocol means the channel received a frame it could not accept.
	ErrProtocol = errors.New("progress channel protocol violation")
	// ErrLivenessTimeout means nothing, not even a pong, arrived within the liveness window.
	ErrLivenessTimeout = errors.New("progress channel liveness timeout")
	// ErrStreamDeadline means the channel stayed healthy but never delivered a terminal status in time.
	ErrStreamDeadline = errors.New("progress channel delivered no terminal status in time")
	// ErrRequest is a single failed status request. Logged and swallowed by the poller.
	ErrRequest = errors.New("status request failed")

	ErrBackendFailure  = errors.New("backend reported processing failure")
	ErrTimeoutExceeded = errors.New("processing timed out")
	ErrUnknownStatus   = errors.New("unknown processing status")
)
