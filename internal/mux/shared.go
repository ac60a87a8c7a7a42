package mux

import "sync"

var (
	sharedMu sync.Mutex
	shared   *Conn
)

// Shared returns the process-wide connection, creating it on first use.
// Later calls ignore opts.
func Shared(opts Options) *Conn {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == nil {
		shared = New(opts)
	}
	return shared
}

// ResetShared disconnects and forgets the shared connection.
func ResetShared() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared != nil {
		shared.Disconnect()
		shared = nil
	}
}
