package protocol

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Part type names. Extension parts use agent-defined "x-..." names.
const (
	PartText       = "text"
	PartThinking   = "thinking"
	PartToolCall   = "tool_call"
	PartToolResult = "tool_result"
	PartFileRef    = "file_ref"
	PartImage      = "image"
	PartAttachment = "attachment"
)

// Part is one content block of a message, tagged by Type. Fields not
// belonging to the given type stay at their zero value and are omitted on
// the wire.
type Part struct {
	Type string `json:"type"`
	ID   string `json:"id"`

	// text / thinking
	Text string `json:"text,omitempty"`

	// tool_call / tool_result
	ToolCallID string          `json:"toolCallId,omitempty"`
	Name       string          `json:"name,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	IsError    bool            `json:"isError,omitempty"`
	Title      string          `json:"title,omitempty"`
	DurationMS uint64          `json:"durationMs,omitempty"`

	// file_ref
	URI   string `json:"uri,omitempty"`
	Label string `json:"label,omitempty"`

	// image / attachment
	URL       string `json:"url,omitempty"`
	Data      string `json:"data,omitempty"` // base64
	MimeType  string `json:"mimeType,omitempty"`
	Alt       string `json:"alt,omitempty"`
	Filename  string `json:"filename,omitempty"`
	SizeBytes uint64 `json:"sizeBytes,omitempty"`

	Meta json.RawMessage `json:"meta,omitempty"`
}

func newPartID() string {
	return "part_" + uuid.NewString()
}

// TextPart builds a text part with a fresh id.
func TextPart(text string) Part {
	return Part{Type: PartText, ID: newPartID(), Text: text}
}

// ThinkingPart builds a thinking part with a fresh id.
func ThinkingPart(text string) Part {
	return Part{Type: PartThinking, ID: newPartID(), Text: text}
}

// ToolCallPart builds a tool_call part with a fresh id.
func ToolCallPart(toolCallID, name string, input json.RawMessage) Part {
	return Part{Type: PartToolCall, ID: newPartID(), ToolCallID: toolCallID, Name: name, Input: input}
}

// ToolResultPart builds a tool_result part with a fresh id.
func ToolResultPart(toolCallID string, output json.RawMessage, isError bool) Part {
	return Part{Type: PartToolResult, ID: newPartID(), ToolCallID: toolCallID, Output: output, IsError: isError}
}
