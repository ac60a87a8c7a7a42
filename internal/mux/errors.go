package mux

import "errors"

var (
	// ErrTimeout is returned when a request's time budget runs out.
	ErrTimeout = errors.New("request timed out")

	// ErrConnFailed is returned once the reconnection supervisor has given
	// up. The connection stays failed until Connect is called again.
	ErrConnFailed = errors.New("connection failed permanently")

	// ErrConnLost is returned for requests that were in flight when the
	// socket dropped.
	ErrConnLost = errors.New("connection lost")

	// ErrNotConnected is returned by fire-and-forget sends without a live
	// socket.
	ErrNotConnected = errors.New("not connected")

	// ErrSessionClosed is returned to readiness waiters when their session
	// is closed out from under them.
	ErrSessionClosed = errors.New("session closed")
)
