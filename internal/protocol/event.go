package protocol

import (
	"encoding/json"
	"fmt"
)

// Agent-channel event names. Events are ephemeral signals for real-time UI
// updates; the current UI state is derivable from the latest event alone.
const (
	// Session lifecycle
	EventSessionCreated   = "session.created"
	EventSessionClosed    = "session.closed"
	EventSessionHeartbeat = "session.heartbeat"

	// Agent state
	EventAgentIdle          = "agent.idle"
	EventAgentWorking       = "agent.working"
	EventAgentError         = "agent.error"
	EventAgentInputNeeded   = "agent.input_needed"
	EventAgentInputResolved = "agent.input_resolved"

	// Streaming
	EventStreamMessageStart  = "stream.message_start"
	EventStreamTextDelta     = "stream.text_delta"
	EventStreamThinkingDelta = "stream.thinking_delta"
	EventStreamToolCallStart = "stream.tool_call_start"
	EventStreamToolCallDelta = "stream.tool_call_delta"
	EventStreamToolCallEnd   = "stream.tool_call_end"
	EventStreamMessageEnd    = "stream.message_end"
	EventStreamDone          = "stream.done"

	// Tool execution
	EventToolStart    = "tool.start"
	EventToolProgress = "tool.progress"
	EventToolEnd      = "tool.end"

	// Auto-recovery
	EventRetryStart   = "retry.start"
	EventRetryEnd     = "retry.end"
	EventCompactStart = "compact.start"
	EventCompactEnd   = "compact.end"

	// Config changes
	EventConfigModelChanged         = "config.model_changed"
	EventConfigThinkingLevelChanged = "config.thinking_level_changed"

	// Notifications and sync
	EventNotify    = "notify"
	EventStatus    = "status"
	EventMessages  = "messages"
	EventPersisted = "persisted"

	// Delegation
	EventDelegateStart = "delegate.start"
	EventDelegateDelta = "delegate.delta"
	EventDelegateEnd   = "delegate.end"
	EventDelegateError = "delegate.error"

	// Command response
	EventResponse = "response"
)

// System-channel event names.
const (
	SystemConnected = "connected"
	SystemError     = "error"
	SystemPing      = "ping"
)

// EventHeader carries the routing fields shared by every inbound frame.
type EventHeader struct {
	Channel   Channel `json:"channel"`
	SessionID string  `json:"session_id,omitempty"`
	Event     string  `json:"event"`
	TS        int64   `json:"ts,omitempty"` // unix ms
	RunnerID  string  `json:"runner_id,omitempty"`
}

// Response answers exactly one command, echoing its id. Its fields are
// flattened onto the frame next to the envelope fields; there is no nested
// "response" object on the wire.
type Response struct {
	EventHeader
	ID      string          `json:"id"`
	Cmd     string          `json:"cmd"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Err converts a failed response into an error.
func (r *Response) Err() error {
	if r.Success {
		return nil
	}
	if r.Error != "" {
		return fmt.Errorf("%s: %s", r.Cmd, r.Error)
	}
	return fmt.Errorf("%s failed", r.Cmd)
}

type SessionCreated struct {
	EventHeader
	Resumed bool   `json:"resumed"`
	Harness string `json:"harness,omitempty"`
}

type SessionClosed struct {
	EventHeader
	Reason string `json:"reason,omitempty"`
}

// ProcessHealth is runner-reported process state, carried by heartbeats.
type ProcessHealth struct {
	Alive    bool    `json:"alive"`
	PID      int     `json:"pid,omitempty"`
	RSSBytes uint64  `json:"rss_bytes,omitempty"`
	CPUPct   float64 `json:"cpu_pct,omitempty"`
	UptimeS  uint64  `json:"uptime_s,omitempty"`
}

type SessionHeartbeat struct {
	EventHeader
	Process ProcessHealth `json:"process"`
}

type AgentIdle struct {
	EventHeader
}

type AgentWorking struct {
	EventHeader
	Phase  AgentPhase `json:"phase"`
	Detail string     `json:"detail,omitempty"`
}

type AgentError struct {
	EventHeader
	Error       string     `json:"error"`
	Recoverable bool       `json:"recoverable"`
	Phase       AgentPhase `json:"phase,omitempty"`
}

type AgentInputNeeded struct {
	EventHeader
	Request InputRequest `json:"request"`
}

type AgentInputResolved struct {
	EventHeader
	RequestID string `json:"request_id"`
}

type StreamMessageStart struct {
	EventHeader
	MessageID string `json:"message_id"`
	Role      Role   `json:"role"`
}

type StreamTextDelta struct {
	EventHeader
	MessageID    string `json:"message_id"`
	Delta        string `json:"delta"`
	ContentIndex int    `json:"content_index"`
}

type StreamThinkingDelta struct {
	EventHeader
	MessageID    string `json:"message_id"`
	Delta        string `json:"delta"`
	ContentIndex int    `json:"content_index"`
}

type StreamToolCallStart struct {
	EventHeader
	MessageID    string `json:"message_id"`
	ToolCallID   string `json:"tool_call_id"`
	Name         string `json:"name"`
	ContentIndex int    `json:"content_index"`
}

type StreamToolCallDelta struct {
	EventHeader
	MessageID    string `json:"message_id"`
	ToolCallID   string `json:"tool_call_id"`
	Delta        string `json:"delta"`
	ContentIndex int    `json:"content_index"`
}

// ToolCallInfo is the finalized tool call included in stream.tool_call_end.
type ToolCallInfo struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

type StreamToolCallEnd struct {
	EventHeader
	MessageID    string       `json:"message_id"`
	ToolCallID   string       `json:"tool_call_id"`
	ToolCall     ToolCallInfo `json:"tool_call"`
	ContentIndex int          `json:"content_index"`
}

type StreamMessageEnd struct {
	EventHeader
	Message Message `json:"message"`
}

type StreamDone struct {
	EventHeader
	Reason StopReason `json:"reason"`
}

type ToolStart struct {
	EventHeader
	ToolCallID string          `json:"tool_call_id"`
	Name       string          `json:"name"`
	Input      json.RawMessage `json:"input,omitempty"`
}

type ToolProgress struct {
	EventHeader
	ToolCallID    string          `json:"tool_call_id"`
	Name          string          `json:"name"`
	PartialOutput json.RawMessage `json:"partial_output"`
}

type ToolEnd struct {
	EventHeader
	ToolCallID string          `json:"tool_call_id"`
	Name       string          `json:"name"`
	Output     json.RawMessage `json:"output"`
	IsError    bool            `json:"is_error"`
	DurationMS uint64          `json:"duration_ms,omitempty"`
}

type RetryStart struct {
	EventHeader
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
	DelayMS     uint64 `json:"delay_ms"`
	Error       string `json:"error"`
}

type RetryEnd struct {
	EventHeader
	Success    bool   `json:"success"`
	Attempt    int    `json:"attempt"`
	FinalError string `json:"final_error,omitempty"`
}

type CompactStart struct {
	EventHeader
	Reason string `json:"reason"` // "threshold" | "overflow"
}

type CompactEnd struct {
	EventHeader
	Success   bool   `json:"success"`
	WillRetry bool   `json:"will_retry"`
	Error     string `json:"error,omitempty"`
}

type ConfigModelChanged struct {
	EventHeader
	Provider string `json:"provider"`
	ModelID  string `json:"model_id"`
}

type ConfigThinkingLevelChanged struct {
	EventHeader
	Level string `json:"level"`
}

// NotifyLevel is the severity of an extension-originated notification.
type NotifyLevel string

const (
	NotifyInfo    NotifyLevel = "info"
	NotifyWarning NotifyLevel = "warning"
	NotifyError   NotifyLevel = "error"
)

type Notify struct {
	EventHeader
	Level   NotifyLevel `json:"level"`
	Message string      `json:"message"`
}

type Status struct {
	EventHeader
	Key  string `json:"key"`
	Text string `json:"text,omitempty"`
}

type Messages struct {
	EventHeader
	Messages []Message `json:"messages"`
}

type Persisted struct {
	EventHeader
	MessageCount uint64 `json:"message_count"`
}

type DelegateStart struct {
	EventHeader
	DelegateStarted
}

type DelegateDeltaEvent struct {
	EventHeader
	DelegateDelta
}

type DelegateEnd struct {
	EventHeader
	DelegateCompleted
}

type DelegateErrorEvent struct {
	EventHeader
	DelegateError
}

// Unknown preserves frames whose event name this client does not recognize,
// so callers can log and move on instead of dropping the bytes.
type Unknown struct {
	EventHeader
	Raw json.RawMessage `json:"-"`
}

// DecodeAgentEvent parses an agent-channel frame into its concrete event
// type. Frames with an unrecognized event name decode to *Unknown.
func DecodeAgentEvent(data []byte) (any, error) {
	var hdr EventHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		return nil, fmt.Errorf("decode event header: %w", err)
	}

	var ev any
	switch hdr.Event {
	case EventSessionCreated:
		ev = &SessionCreated{}
	case EventSessionClosed:
		ev = &SessionClosed{}
	case EventSessionHeartbeat:
		ev = &SessionHeartbeat{}
	case EventAgentIdle:
		ev = &AgentIdle{}
	case EventAgentWorking:
		ev = &AgentWorking{}
	case EventAgentError:
		ev = &AgentError{}
	case EventAgentInputNeeded:
		ev = &AgentInputNeeded{}
	case EventAgentInputResolved:
		ev = &AgentInputResolved{}
	case EventStreamMessageStart:
		ev = &StreamMessageStart{}
	case EventStreamTextDelta:
		ev = &StreamTextDelta{}
	case EventStreamThinkingDelta:
		ev = &StreamThinkingDelta{}
	case EventStreamToolCallStart:
		ev = &StreamToolCallStart{}
	case EventStreamToolCallDelta:
		ev = &StreamToolCallDelta{}
	case EventStreamToolCallEnd:
		ev = &StreamToolCallEnd{}
	case EventStreamMessageEnd:
		ev = &StreamMessageEnd{}
	case EventStreamDone:
		ev = &StreamDone{}
	case EventToolStart:
		ev = &ToolStart{}
	case EventToolProgress:
		ev = &ToolProgress{}
	case EventToolEnd:
		ev = &ToolEnd{}
	case EventRetryStart:
		ev = &RetryStart{}
	case EventRetryEnd:
		ev = &RetryEnd{}
	case EventCompactStart:
		ev = &CompactStart{}
	case EventCompactEnd:
		ev = &CompactEnd{}
	case EventConfigModelChanged:
		ev = &ConfigModelChanged{}
	case EventConfigThinkingLevelChanged:
		ev = &ConfigThinkingLevelChanged{}
	case EventNotify:
		ev = &Notify{}
	case EventStatus:
		ev = &Status{}
	case EventMessages:
		ev = &Messages{}
	case EventPersisted:
		ev = &Persisted{}
	case EventDelegateStart:
		ev = &DelegateStart{}
	case EventDelegateDelta:
		ev = &DelegateDeltaEvent{}
	case EventDelegateEnd:
		ev = &DelegateEnd{}
	case EventDelegateError:
		ev = &DelegateErrorEvent{}
	case EventResponse:
		ev = &Response{}
	default:
		return &Unknown{EventHeader: hdr, Raw: data}, nil
	}

	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", hdr.Event, err)
	}
	return ev, nil
}
