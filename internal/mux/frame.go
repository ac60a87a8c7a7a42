package mux

import (
	"encoding/json"
	"fmt"

	"github.com/byteowlz/oqto-mux/internal/protocol"
)

// Frame is one parsed inbound message: the envelope fields every channel
// shares plus the raw bytes for typed decoding.
type Frame struct {
	Channel   protocol.Channel
	SessionID string
	Event     string
	Cmd       string
	ID        string
	TS        int64
	RunnerID  string
	Success   *bool
	Error     string
	Raw       json.RawMessage
}

func parseFrame(data []byte) (Frame, error) {
	var env struct {
		Channel   protocol.Channel `json:"channel"`
		SessionID string           `json:"session_id"`
		Event     string           `json:"event"`
		Cmd       string           `json:"cmd"`
		ID        string           `json:"id"`
		TS        int64            `json:"ts"`
		RunnerID  string           `json:"runner_id"`
		Success   *bool            `json:"success"`
		Error     string           `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return Frame{}, fmt.Errorf("parse frame: %w", err)
	}
	if !env.Channel.Valid() {
		return Frame{}, fmt.Errorf("parse frame: unknown channel %q", env.Channel)
	}
	return Frame{
		Channel:   env.Channel,
		SessionID: env.SessionID,
		Event:     env.Event,
		Cmd:       env.Cmd,
		ID:        env.ID,
		TS:        env.TS,
		RunnerID:  env.RunnerID,
		Success:   env.Success,
		Error:     env.Error,
		Raw:       data,
	}, nil
}

// Decode unmarshals the full frame into a typed event struct.
func (f Frame) Decode(v any) error {
	return json.Unmarshal(f.Raw, v)
}

// AgentEvent decodes an agent-channel frame into its concrete event type.
func (f Frame) AgentEvent() (any, error) {
	return protocol.DecodeAgentEvent(f.Raw)
}

// IsResponse reports whether the frame answers a command.
func (f Frame) IsResponse() bool {
	return f.Event == protocol.EventResponse
}

// Response decodes the frame as a command response.
func (f Frame) Response() (*protocol.Response, error) {
	var r protocol.Response
	if err := json.Unmarshal(f.Raw, &r); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &r, nil
}
