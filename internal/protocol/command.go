package protocol

// Agent-channel command names. Every command is answered by exactly one
// response event echoing the command's correlation id.
const (
	// Session lifecycle
	CmdSessionCreate = "session.create"
	CmdSessionClose  = "session.close"
	CmdSessionNew    = "session.new"
	CmdSessionSwitch = "session.switch"

	// Interactive turns
	CmdPrompt        = "prompt"
	CmdSteer         = "steer"
	CmdFollowUp      = "follow_up"
	CmdAbort         = "abort"
	CmdInputResponse = "input_response"

	// Queries
	CmdGetState      = "get_state"
	CmdGetMessages   = "get_messages"
	CmdGetStats      = "get_stats"
	CmdGetModels     = "get_models"
	CmdGetCommands   = "get_commands"
	CmdGetForkPoints = "get_fork_points"
	CmdListSessions  = "list_sessions"

	// Configuration
	CmdSetModel           = "set_model"
	CmdCycleModel         = "cycle_model"
	CmdSetThinkingLevel   = "set_thinking_level"
	CmdCycleThinkingLevel = "cycle_thinking_level"
	CmdSetAutoCompaction  = "set_auto_compaction"
	CmdSetAutoRetry       = "set_auto_retry"
	CmdCompact            = "compact"
	CmdAbortRetry         = "abort_retry"
	CmdSetSessionName     = "set_session_name"

	// Forking
	CmdFork = "fork"

	// Cross-session delegation
	CmdDelegate       = "delegate"
	CmdDelegateCancel = "delegate.cancel"
)

// CommandHeader carries the routing fields shared by every outbound frame.
// Embedding it flattens the fields onto the wire alongside the
// command-specific payload.
type CommandHeader struct {
	Channel   Channel `json:"channel"`
	SessionID string  `json:"session_id,omitempty"`
	Cmd       string  `json:"cmd"`
	// ID is the correlation id. Commands sent fire-and-forget may omit it;
	// the transport assigns one before serialization either way.
	ID string `json:"id,omitempty"`
	// RunnerID targets a specific runner; the backend resolves it if empty.
	RunnerID string `json:"runner_id,omitempty"`
}

// Header lets the transport read and stamp routing fields without knowing
// the concrete command type.
func (h *CommandHeader) Header() *CommandHeader { return h }

// Command is any outbound frame. All command structs embed CommandHeader.
type Command interface {
	Header() *CommandHeader
}

func agentHeader(cmd, sessionID string) CommandHeader {
	return CommandHeader{Channel: ChannelAgent, SessionID: sessionID, Cmd: cmd}
}

// SessionConfig describes how to start (or resume) an agent session. A
// tracked session keeps its config for its whole lifetime so it can be
// resent verbatim after a reconnect.
type SessionConfig struct {
	// Harness names the agent runtime ("pi", "opencode", ...).
	Harness string `json:"harness,omitempty"`
	// Cwd is the working directory for the session.
	Cwd string `json:"cwd,omitempty"`
	// Provider and Model are LLM hints.
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	// ContinueSession resumes from an existing session file.
	ContinueSession string `json:"continue_session,omitempty"`
}

// ImageAttachment is an inline image carried by a prompt.
type ImageAttachment struct {
	Data      string `json:"data"` // base64
	MediaType string `json:"media_type"`
}

type SessionCreate struct {
	CommandHeader
	Config SessionConfig `json:"config"`
}

func NewSessionCreate(sessionID string, cfg SessionConfig) *SessionCreate {
	return &SessionCreate{CommandHeader: agentHeader(CmdSessionCreate, sessionID), Config: cfg}
}

type SessionClose struct {
	CommandHeader
}

func NewSessionClose(sessionID string) *SessionClose {
	return &SessionClose{CommandHeader: agentHeader(CmdSessionClose, sessionID)}
}

type SessionNew struct {
	CommandHeader
	ParentSession string `json:"parent_session,omitempty"`
}

func NewSessionNew(sessionID, parentSession string) *SessionNew {
	return &SessionNew{CommandHeader: agentHeader(CmdSessionNew, sessionID), ParentSession: parentSession}
}

type SessionSwitch struct {
	CommandHeader
	SessionPath string `json:"session_path"`
}

func NewSessionSwitch(sessionID, sessionPath string) *SessionSwitch {
	return &SessionSwitch{CommandHeader: agentHeader(CmdSessionSwitch, sessionID), SessionPath: sessionPath}
}

type Prompt struct {
	CommandHeader
	Message string            `json:"message"`
	Images  []ImageAttachment `json:"images,omitempty"`
	// ClientID lets the frontend reconcile its optimistic copy of the user
	// message with the persisted one.
	ClientID string `json:"client_id,omitempty"`
}

func NewPrompt(sessionID, message string) *Prompt {
	return &Prompt{CommandHeader: agentHeader(CmdPrompt, sessionID), Message: message}
}

type Steer struct {
	CommandHeader
	Message string `json:"message"`
}

func NewSteer(sessionID, message string) *Steer {
	return &Steer{CommandHeader: agentHeader(CmdSteer, sessionID), Message: message}
}

type FollowUp struct {
	CommandHeader
	Message string `json:"message"`
}

func NewFollowUp(sessionID, message string) *FollowUp {
	return &FollowUp{CommandHeader: agentHeader(CmdFollowUp, sessionID), Message: message}
}

type Abort struct {
	CommandHeader
}

func NewAbort(sessionID string) *Abort {
	return &Abort{CommandHeader: agentHeader(CmdAbort, sessionID)}
}

type InputResponse struct {
	CommandHeader
	RequestID string `json:"request_id"`
	Value     string `json:"value,omitempty"`
	Confirmed *bool  `json:"confirmed,omitempty"`
	Cancelled *bool  `json:"cancelled,omitempty"`
}

func NewInputResponse(sessionID, requestID string) *InputResponse {
	return &InputResponse{CommandHeader: agentHeader(CmdInputResponse, sessionID), RequestID: requestID}
}

// Query is any agent command that carries no payload beyond the header
// (get_state, get_messages, abort_retry, cycle_model, ...).
type Query struct {
	CommandHeader
}

func NewQuery(cmd, sessionID string) *Query {
	return &Query{CommandHeader: agentHeader(cmd, sessionID)}
}

type GetModels struct {
	CommandHeader
	Workdir string `json:"workdir,omitempty"`
}

func NewGetModels(sessionID, workdir string) *GetModels {
	return &GetModels{CommandHeader: agentHeader(CmdGetModels, sessionID), Workdir: workdir}
}

type SetModel struct {
	CommandHeader
	Provider string `json:"provider"`
	ModelID  string `json:"model_id"`
}

func NewSetModel(sessionID, provider, modelID string) *SetModel {
	return &SetModel{CommandHeader: agentHeader(CmdSetModel, sessionID), Provider: provider, ModelID: modelID}
}

type SetThinkingLevel struct {
	CommandHeader
	Level string `json:"level"`
}

func NewSetThinkingLevel(sessionID, level string) *SetThinkingLevel {
	return &SetThinkingLevel{CommandHeader: agentHeader(CmdSetThinkingLevel, sessionID), Level: level}
}

type SetToggle struct {
	CommandHeader
	Enabled bool `json:"enabled"`
}

// NewSetToggle builds set_auto_compaction / set_auto_retry commands.
func NewSetToggle(cmd, sessionID string, enabled bool) *SetToggle {
	return &SetToggle{CommandHeader: agentHeader(cmd, sessionID), Enabled: enabled}
}

type Compact struct {
	CommandHeader
	Instructions string `json:"instructions,omitempty"`
}

func NewCompact(sessionID, instructions string) *Compact {
	return &Compact{CommandHeader: agentHeader(CmdCompact, sessionID), Instructions: instructions}
}

type SetSessionName struct {
	CommandHeader
	Name string `json:"name"`
}

func NewSetSessionName(sessionID, name string) *SetSessionName {
	return &SetSessionName{CommandHeader: agentHeader(CmdSetSessionName, sessionID), Name: name}
}

type Fork struct {
	CommandHeader
	EntryID string `json:"entry_id"`
}

func NewFork(sessionID, entryID string) *Fork {
	return &Fork{CommandHeader: agentHeader(CmdFork, sessionID), EntryID: entryID}
}

type Delegate struct {
	CommandHeader
	DelegateRequest
}

func NewDelegate(sessionID string, req DelegateRequest) *Delegate {
	return &Delegate{CommandHeader: agentHeader(CmdDelegate, sessionID), DelegateRequest: req}
}

type DelegateCancel struct {
	CommandHeader
	RequestID string `json:"request_id"`
}

func NewDelegateCancel(sessionID, requestID string) *DelegateCancel {
	return &DelegateCancel{CommandHeader: agentHeader(CmdDelegateCancel, sessionID), RequestID: requestID}
}
