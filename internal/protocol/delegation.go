package protocol

import "encoding/json"

// Delegation lets one agent session send a message to another and receive
// its response, either blocking (sync) or fire-and-forget (async). The
// backend routes between runners transparently and emits delegate.* events
// back to the originating session.

// DelegateMode says whether the delegating session blocks for the response.
type DelegateMode string

const (
	DelegateSync  DelegateMode = "sync"
	DelegateAsync DelegateMode = "async"
)

// DelegateRequest is the payload of a delegate command.
type DelegateRequest struct {
	TargetSessionID string       `json:"target_session_id"`
	TargetRunnerID  string       `json:"target_runner_id,omitempty"`
	Message         string       `json:"message"`
	Mode            DelegateMode `json:"mode"`
	// SandboxProfile optionally restricts the target session for the
	// duration of this delegation.
	SandboxProfile string `json:"sandbox_profile,omitempty"`
	// TimeoutMS defaults to 300000 on the backend.
	TimeoutMS uint64          `json:"timeout_ms,omitempty"`
	MaxTokens uint64          `json:"max_tokens,omitempty"`
	Context   json.RawMessage `json:"context,omitempty"`
}

// DelegateStarted is emitted once the target session accepted the request.
type DelegateStarted struct {
	RequestID       string       `json:"request_id"`
	TargetSessionID string       `json:"target_session_id"`
	TargetRunnerID  string       `json:"target_runner_id"`
	Mode            DelegateMode `json:"mode"`
}

// DelegateDelta is a streaming text delta from the delegated agent.
type DelegateDelta struct {
	RequestID string `json:"request_id"`
	Delta     string `json:"delta"`
}

// DelegateCompleted carries the target's complete response, attributed via
// the responder's sender identity.
type DelegateCompleted struct {
	RequestID  string  `json:"request_id"`
	Response   Message `json:"response"`
	Responder  Sender  `json:"responder"`
	DurationMS uint64  `json:"duration_ms,omitempty"`
}

// DelegateErrorCode categorizes delegation failures.
type DelegateErrorCode string

const (
	DelegateTargetNotFound    DelegateErrorCode = "target_not_found"
	DelegatePermissionDenied  DelegateErrorCode = "permission_denied"
	DelegateTimeout           DelegateErrorCode = "timeout"
	DelegateTargetError       DelegateErrorCode = "target_error"
	DelegateCancelled         DelegateErrorCode = "cancelled"
	DelegateRunnerUnreachable DelegateErrorCode = "runner_unreachable"
)

// DelegateError reports a failed delegation.
type DelegateError struct {
	RequestID string            `json:"request_id"`
	Error     string            `json:"error"`
	Code      DelegateErrorCode `json:"code"`
}
