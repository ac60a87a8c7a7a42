package protocol

import "encoding/json"

// Role is a message role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// StopReason says why generation stopped.
type StopReason string

const (
	StopReasonStop    StopReason = "stop"
	StopReasonLength  StopReason = "length"
	StopReasonToolUse StopReason = "tool_use"
	StopReasonError   StopReason = "error"
	StopReasonAborted StopReason = "aborted"
)

// AgentPhase is what the agent is currently doing.
type AgentPhase string

const (
	PhaseGenerating   AgentPhase = "generating"
	PhaseThinking     AgentPhase = "thinking"
	PhaseToolRunning  AgentPhase = "tool_running"
	PhaseCompacting   AgentPhase = "compacting"
	PhaseRetrying     AgentPhase = "retrying"
	PhaseInitializing AgentPhase = "initializing"
)

// Usage is per-message token accounting.
type Usage struct {
	InputTokens      uint64  `json:"input_tokens"`
	OutputTokens     uint64  `json:"output_tokens"`
	CacheReadTokens  uint64  `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens uint64  `json:"cache_write_tokens,omitempty"`
	CostUSD          float64 `json:"cost_usd,omitempty"`
}

// Sender identifies who produced a message. Omitted for plain single-user
// conversations; populated for multi-user workspaces and inlined delegation
// responses.
type Sender struct {
	Type      string `json:"type"` // "user" | "agent" | "external"
	ID        string `json:"id"`
	Name      string `json:"name"`
	RunnerID  string `json:"runner_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Message is the persistent unit of a conversation: an ordered list of
// typed parts plus role and accounting metadata.
type Message struct {
	ID       string  `json:"id"`
	Idx      uint32  `json:"idx"`
	Role     Role    `json:"role"`
	ClientID string  `json:"client_id,omitempty"`
	Sender   *Sender `json:"sender,omitempty"`
	Parts    []Part  `json:"parts"`
	// CreatedAt is unix milliseconds.
	CreatedAt int64 `json:"created_at"`

	// Assistant-specific.
	Model      string     `json:"model,omitempty"`
	Provider   string     `json:"provider,omitempty"`
	StopReason StopReason `json:"stop_reason,omitempty"`
	Usage      *Usage     `json:"usage,omitempty"`

	// Tool-result-specific.
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`

	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Text concatenates the message's text parts.
func (m *Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}

// InputRequest asks the user for input mid-run (select, confirm, free text
// or a permission grant), tagged by `type`.
type InputRequest struct {
	Type      string   `json:"type"` // "select" | "confirm" | "input" | "permission"
	RequestID string   `json:"request_id"`
	Title     string   `json:"title"`
	Message   string   `json:"message,omitempty"`
	Options   []string `json:"options,omitempty"`
	// Placeholder applies to free-text input requests.
	Placeholder string `json:"placeholder,omitempty"`
	Description string `json:"description,omitempty"`
	// Timeout is how long the runner waits for an answer (ms).
	Timeout uint64 `json:"timeout,omitempty"`
}
