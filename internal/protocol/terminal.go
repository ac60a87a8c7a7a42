package protocol

// Terminal-channel command and event names. A terminal is opened against a
// workspace, addressed by terminal_id afterwards, and streams base64-encoded
// output until exit.
const (
	CmdTermOpen   = "open"
	CmdTermInput  = "input"
	CmdTermResize = "resize"
	CmdTermClose  = "close"

	EventTermOpened = "opened"
	EventTermOutput = "output"
	EventTermExit   = "exit"
	EventTermError  = "error"
)

func termHeader(cmd string) CommandHeader {
	return CommandHeader{Channel: ChannelTerminal, Cmd: cmd}
}

type TermOpen struct {
	CommandHeader
	WorkspacePath string `json:"workspace_path,omitempty"`
	Shell         string `json:"shell,omitempty"`
	Cols          int    `json:"cols,omitempty"`
	Rows          int    `json:"rows,omitempty"`
}

func NewTermOpen(workspacePath string, cols, rows int) *TermOpen {
	return &TermOpen{CommandHeader: termHeader(CmdTermOpen), WorkspacePath: workspacePath, Cols: cols, Rows: rows}
}

type TermInput struct {
	CommandHeader
	TerminalID string `json:"terminal_id"`
	Data       string `json:"data"` // base64
}

func NewTermInput(terminalID, data string) *TermInput {
	return &TermInput{CommandHeader: termHeader(CmdTermInput), TerminalID: terminalID, Data: data}
}

type TermResize struct {
	CommandHeader
	TerminalID string `json:"terminal_id"`
	Cols       int    `json:"cols"`
	Rows       int    `json:"rows"`
}

func NewTermResize(terminalID string, cols, rows int) *TermResize {
	return &TermResize{CommandHeader: termHeader(CmdTermResize), TerminalID: terminalID, Cols: cols, Rows: rows}
}

type TermClose struct {
	CommandHeader
	TerminalID string `json:"terminal_id"`
}

func NewTermClose(terminalID string) *TermClose {
	return &TermClose{CommandHeader: termHeader(CmdTermClose), TerminalID: terminalID}
}

type TermOpened struct {
	EventHeader
	ID         string `json:"id,omitempty"`
	TerminalID string `json:"terminal_id"`
}

type TermOutput struct {
	EventHeader
	TerminalID string `json:"terminal_id"`
	Data       string `json:"data"` // base64
}

type TermExit struct {
	EventHeader
	TerminalID string `json:"terminal_id"`
	ExitCode   int    `json:"exit_code"`
}

type TermError struct {
	EventHeader
	TerminalID string `json:"terminal_id,omitempty"`
	Message    string `json:"message"`
}
