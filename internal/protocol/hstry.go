package protocol

import "encoding/json"

// Hstry-channel commands query the server-side shell history index.
const (
	CmdHstryQuery = "query"

	EventHstryResult = "result"
	EventHstryError  = "error"
)

type HstryQuery struct {
	CommandHeader
	Query   string `json:"query,omitempty"`
	Cwd     string `json:"cwd,omitempty"`
	Session string `json:"session,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

func NewHstryQuery(query string, limit int) *HstryQuery {
	return &HstryQuery{
		CommandHeader: CommandHeader{Channel: ChannelHstry, Cmd: CmdHstryQuery},
		Query:         query,
		Limit:         limit,
	}
}

// HstryEntry is one recorded shell invocation.
type HstryEntry struct {
	Command   string `json:"command"`
	Cwd       string `json:"cwd,omitempty"`
	ExitCode  int    `json:"exit_code,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Session   string `json:"session,omitempty"`
	Duration  int64  `json:"duration,omitempty"`
}

type HstryResult struct {
	EventHeader
	ID      string          `json:"id,omitempty"`
	Entries []HstryEntry    `json:"entries"`
	Total   int             `json:"total,omitempty"`
	Extra   json.RawMessage `json:"extra,omitempty"`
}

type HstryError struct {
	EventHeader
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}
