package mux

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/byteowlz/oqto-mux/internal/protocol"
)

// AgentPrompt starts a new turn. The prompt is queued if the session is
// not ready yet. A client id is stamped so the UI can reconcile its
// optimistic copy of the message with the persisted one.
func (c *Conn) AgentPrompt(sessionID, message string, images ...protocol.ImageAttachment) error {
	p := protocol.NewPrompt(sessionID, message)
	p.Images = images
	p.ClientID = uuid.NewString()
	return c.sendTurn(p)
}

// AgentSteer injects guidance into the running turn.
func (c *Conn) AgentSteer(sessionID, message string) error {
	return c.sendTurn(protocol.NewSteer(sessionID, message))
}

// AgentFollowUp queues a message to run after the current turn finishes.
func (c *Conn) AgentFollowUp(sessionID, message string) error {
	return c.sendTurn(protocol.NewFollowUp(sessionID, message))
}

// AgentAbort cancels the running turn. Abort is never queued; aborting a
// session that is not up yet is meaningless.
func (c *Conn) AgentAbort(sessionID string) error {
	return c.Send(protocol.NewAbort(sessionID))
}

// AgentRespondInput answers a pending input request.
func (c *Conn) AgentRespondInput(sessionID, requestID, value string, confirmed, cancelled *bool) error {
	ir := protocol.NewInputResponse(sessionID, requestID)
	ir.Value = value
	ir.Confirmed = confirmed
	ir.Cancelled = cancelled
	return c.Send(ir)
}

// AgentState fetches the session's current state payload.
func (c *Conn) AgentState(ctx context.Context, sessionID string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.call(ctx, protocol.NewQuery(protocol.CmdGetState, sessionID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AgentMessages fetches the session transcript.
func (c *Conn) AgentMessages(ctx context.Context, sessionID string) ([]protocol.Message, error) {
	var out struct {
		Messages []protocol.Message `json:"messages"`
	}
	if err := c.call(ctx, protocol.NewQuery(protocol.CmdGetMessages, sessionID), &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// AgentStats fetches token and cost accounting for the session.
func (c *Conn) AgentStats(ctx context.Context, sessionID string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.call(ctx, protocol.NewQuery(protocol.CmdGetStats, sessionID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ModelInfo is one selectable model.
type ModelInfo struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Current  bool   `json:"current,omitempty"`
}

// AgentModels lists the models available to the session's harness.
func (c *Conn) AgentModels(ctx context.Context, sessionID, workdir string) ([]ModelInfo, error) {
	var out struct {
		Models []ModelInfo `json:"models"`
	}
	if err := c.call(ctx, protocol.NewGetModels(sessionID, workdir), &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// AgentCommands lists the slash commands the harness exposes.
func (c *Conn) AgentCommands(ctx context.Context, sessionID string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.call(ctx, protocol.NewQuery(protocol.CmdGetCommands, sessionID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ForkPoint is one user message a session can be forked from.
type ForkPoint struct {
	EntryID string `json:"entry_id"`
	Text    string `json:"text"`
	Idx     uint32 `json:"idx,omitempty"`
}

// AgentForkPoints lists the entries the session can fork from.
func (c *Conn) AgentForkPoints(ctx context.Context, sessionID string) ([]ForkPoint, error) {
	var out struct {
		ForkPoints []ForkPoint `json:"fork_points"`
	}
	if err := c.call(ctx, protocol.NewQuery(protocol.CmdGetForkPoints, sessionID), &out); err != nil {
		return nil, err
	}
	return out.ForkPoints, nil
}

// SessionListing is one row of list_sessions.
type SessionListing struct {
	Path     string `json:"path"`
	Name     string `json:"name,omitempty"`
	Modified int64  `json:"modified,omitempty"`
	Messages int    `json:"messages,omitempty"`
}

// AgentListSessions lists the session files the runner can resume.
func (c *Conn) AgentListSessions(ctx context.Context, sessionID string) ([]SessionListing, error) {
	var out struct {
		Sessions []SessionListing `json:"sessions"`
	}
	if err := c.call(ctx, protocol.NewQuery(protocol.CmdListSessions, sessionID), &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// AgentNewSession rolls the runner over to a fresh session file.
func (c *Conn) AgentNewSession(ctx context.Context, sessionID, parent string) error {
	return c.call(ctx, protocol.NewSessionNew(sessionID, parent), nil)
}

// AgentSwitchSession resumes a different session file in place.
func (c *Conn) AgentSwitchSession(ctx context.Context, sessionID, sessionPath string) error {
	return c.call(ctx, protocol.NewSessionSwitch(sessionID, sessionPath), nil)
}

// AgentSetModel selects a model.
func (c *Conn) AgentSetModel(ctx context.Context, sessionID, provider, modelID string) error {
	return c.call(ctx, protocol.NewSetModel(sessionID, provider, modelID), nil)
}

// AgentCycleModel advances to the next configured model.
func (c *Conn) AgentCycleModel(ctx context.Context, sessionID string) error {
	return c.call(ctx, protocol.NewQuery(protocol.CmdCycleModel, sessionID), nil)
}

// AgentSetThinkingLevel sets the reasoning effort.
func (c *Conn) AgentSetThinkingLevel(ctx context.Context, sessionID, level string) error {
	return c.call(ctx, protocol.NewSetThinkingLevel(sessionID, level), nil)
}

// AgentCycleThinkingLevel advances to the next thinking level.
func (c *Conn) AgentCycleThinkingLevel(ctx context.Context, sessionID string) error {
	return c.call(ctx, protocol.NewQuery(protocol.CmdCycleThinkingLevel, sessionID), nil)
}

// AgentSetAutoCompaction toggles automatic context compaction.
func (c *Conn) AgentSetAutoCompaction(ctx context.Context, sessionID string, enabled bool) error {
	return c.call(ctx, protocol.NewSetToggle(protocol.CmdSetAutoCompaction, sessionID, enabled), nil)
}

// AgentSetAutoRetry toggles automatic retry on transient failures.
func (c *Conn) AgentSetAutoRetry(ctx context.Context, sessionID string, enabled bool) error {
	return c.call(ctx, protocol.NewSetToggle(protocol.CmdSetAutoRetry, sessionID, enabled), nil)
}

// AgentCompact compacts the session context now.
func (c *Conn) AgentCompact(ctx context.Context, sessionID, instructions string) error {
	return c.call(ctx, protocol.NewCompact(sessionID, instructions), nil)
}

// AgentAbortRetry cancels a pending automatic retry.
func (c *Conn) AgentAbortRetry(sessionID string) error {
	return c.Send(protocol.NewQuery(protocol.CmdAbortRetry, sessionID))
}

// AgentSetSessionName renames the session.
func (c *Conn) AgentSetSessionName(ctx context.Context, sessionID, name string) error {
	return c.call(ctx, protocol.NewSetSessionName(sessionID, name), nil)
}

// AgentFork forks the session at an earlier user message. The response
// data carries the new session path.
func (c *Conn) AgentFork(ctx context.Context, sessionID, entryID string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.call(ctx, protocol.NewFork(sessionID, entryID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AgentDelegate hands a task to another session or runner.
func (c *Conn) AgentDelegate(ctx context.Context, sessionID string, req protocol.DelegateRequest) error {
	return c.call(ctx, protocol.NewDelegate(sessionID, req), nil)
}

// AgentDelegateCancel withdraws a delegation.
func (c *Conn) AgentDelegateCancel(ctx context.Context, sessionID, requestID string) error {
	return c.call(ctx, protocol.NewDelegateCancel(sessionID, requestID), nil)
}
