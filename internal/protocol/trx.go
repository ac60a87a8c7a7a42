package protocol

// Trx-channel commands manage the issue tracker attached to a workspace.
const (
	CmdTrxList   = "list"
	CmdTrxCreate = "create"
	CmdTrxUpdate = "update"
	CmdTrxClose  = "close"
	CmdTrxSync   = "sync"

	EventTrxIssues  = "issues"
	EventTrxCreated = "created"
	EventTrxUpdated = "updated"
	EventTrxClosed  = "closed"
	EventTrxSynced  = "synced"
	EventTrxError   = "error"
)

func trxHeader(cmd string) CommandHeader {
	return CommandHeader{Channel: ChannelTrx, Cmd: cmd}
}

// Issue is one tracked issue as exchanged on the trx channel.
type Issue struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Body      string   `json:"body,omitempty"`
	Status    string   `json:"status,omitempty"`
	Priority  string   `json:"priority,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Assignee  string   `json:"assignee,omitempty"`
	CreatedAt int64    `json:"created_at,omitempty"`
	UpdatedAt int64    `json:"updated_at,omitempty"`
}

type TrxList struct {
	CommandHeader
	WorkspacePath string `json:"workspace_path,omitempty"`
	Status        string `json:"status,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

func NewTrxList(workspacePath string) *TrxList {
	return &TrxList{CommandHeader: trxHeader(CmdTrxList), WorkspacePath: workspacePath}
}

// TrxIssueInput is the payload for creating an issue.
type TrxIssueInput struct {
	Title    string   `json:"title"`
	Body     string   `json:"body,omitempty"`
	Priority string   `json:"priority,omitempty"`
	Labels   []string `json:"labels,omitempty"`
	Assignee string   `json:"assignee,omitempty"`
}

type TrxCreate struct {
	CommandHeader
	WorkspacePath string `json:"workspace_path,omitempty"`
	TrxIssueInput
}

func NewTrxCreate(workspacePath string, input TrxIssueInput) *TrxCreate {
	return &TrxCreate{CommandHeader: trxHeader(CmdTrxCreate), WorkspacePath: workspacePath, TrxIssueInput: input}
}

// TrxIssueUpdate carries the mutable fields of an issue; nil means unchanged.
type TrxIssueUpdate struct {
	Title    *string   `json:"title,omitempty"`
	Body     *string   `json:"body,omitempty"`
	Status   *string   `json:"status,omitempty"`
	Priority *string   `json:"priority,omitempty"`
	Labels   *[]string `json:"labels,omitempty"`
	Assignee *string   `json:"assignee,omitempty"`
}

type TrxUpdate struct {
	CommandHeader
	WorkspacePath string `json:"workspace_path,omitempty"`
	IssueID       string `json:"issue_id"`
	TrxIssueUpdate
}

func NewTrxUpdate(workspacePath, issueID string, update TrxIssueUpdate) *TrxUpdate {
	return &TrxUpdate{CommandHeader: trxHeader(CmdTrxUpdate), WorkspacePath: workspacePath, IssueID: issueID, TrxIssueUpdate: update}
}

type TrxClose struct {
	CommandHeader
	WorkspacePath string `json:"workspace_path,omitempty"`
	IssueID       string `json:"issue_id"`
	Reason        string `json:"reason,omitempty"`
}

func NewTrxClose(workspacePath, issueID string) *TrxClose {
	return &TrxClose{CommandHeader: trxHeader(CmdTrxClose), WorkspacePath: workspacePath, IssueID: issueID}
}

type TrxSync struct {
	CommandHeader
	WorkspacePath string `json:"workspace_path,omitempty"`
}

func NewTrxSync(workspacePath string) *TrxSync {
	return &TrxSync{CommandHeader: trxHeader(CmdTrxSync), WorkspacePath: workspacePath}
}

type TrxIssues struct {
	EventHeader
	ID     string  `json:"id,omitempty"`
	Issues []Issue `json:"issues"`
}

// TrxAck acknowledges create/update/close/sync with the affected issue.
type TrxAck struct {
	EventHeader
	ID    string `json:"id,omitempty"`
	Issue *Issue `json:"issue,omitempty"`
}

type TrxError struct {
	EventHeader
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}
