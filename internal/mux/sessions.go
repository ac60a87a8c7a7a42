package mux

import (
	"context"
	"fmt"
	"time"

	"github.com/byteowlz/oqto-mux/internal/protocol"
)

// session is one tracked agent session. Tracking survives reconnects: the
// config is resent as a fresh session.create every time the link comes
// back up.
type session struct {
	id     string
	config protocol.SessionConfig

	// ready flips when the backend confirms the session (session.create
	// response with success, or a session.created event). It resets on
	// every disconnect.
	ready bool

	handlers map[int]Handler

	// queue holds turn commands issued before the session was ready. It
	// flushes in FIFO order the moment the session confirms.
	queue []protocol.Command

	waiters    map[int]chan error
	nextWaiter int
}

type waiterResult struct {
	ch  chan error
	err error
}

// SubscribeAgentSession tracks an agent session and registers a handler
// for its events. The first subscription for a session sends
// session.create (immediately when connected, otherwise on the next
// connect); later subscriptions only add handlers. If the connection is
// idle this kicks off the first dial. The returned function removes the
// handler but keeps the session tracked; use AgentCloseSession to drop it.
func (c *Conn) SubscribeAgentSession(sessionID string, cfg protocol.SessionConfig, h Handler) func() {
	c.mu.Lock()
	sess := c.sessions[sessionID]
	isNew := sess == nil
	if isNew {
		sess = &session{
			id:       sessionID,
			config:   cfg,
			handlers: make(map[int]Handler),
			waiters:  make(map[int]chan error),
		}
		c.sessions[sessionID] = sess
	}
	id := c.nextSub
	c.nextSub++
	if h != nil {
		sess.handlers[id] = h
	}

	var create protocol.Command
	if isNew && c.state == StateConnected && c.sock != nil {
		sc := protocol.NewSessionCreate(sessionID, sess.config)
		sc.ID = c.nextRequestID()
		create = sc
	}
	autoConnect := c.state == StateDisconnected
	c.mu.Unlock()

	if create != nil {
		_ = c.writeCommand(create)
	}
	if autoConnect {
		c.Connect()
	}

	return func() {
		c.mu.Lock()
		if s := c.sessions[sessionID]; s != nil {
			delete(s.handlers, id)
		}
		c.mu.Unlock()
	}
}

// SessionReady reports whether a tracked session is confirmed on the
// current link.
func (c *Conn) SessionReady(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sessions[sessionID]
	return s != nil && s.ready
}

// WaitForSessionReady blocks until the session confirms, fails, or the
// budget runs out. timeout <= 0 uses the connection default.
func (c *Conn) WaitForSessionReady(ctx context.Context, sessionID string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = c.opts.ReadyTimeout
	}

	c.mu.Lock()
	sess := c.sessions[sessionID]
	if sess == nil {
		c.mu.Unlock()
		return fmt.Errorf("session %s not tracked", sessionID)
	}
	if sess.ready {
		c.mu.Unlock()
		return nil
	}
	ch := make(chan error, 1)
	id := sess.nextWaiter
	sess.nextWaiter++
	sess.waiters[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if s := c.sessions[sessionID]; s != nil {
			delete(s.waiters, id)
		}
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// AgentCloseSession stops tracking a session and tells the backend to
// close it. Outstanding readiness waiters fail with ErrSessionClosed.
func (c *Conn) AgentCloseSession(sessionID string) error {
	c.mu.Lock()
	sess := c.sessions[sessionID]
	if sess == nil {
		c.mu.Unlock()
		return nil
	}
	delete(c.sessions, sessionID)
	waiters := make([]chan error, 0, len(sess.waiters))
	for id, ch := range sess.waiters {
		delete(sess.waiters, id)
		waiters = append(waiters, ch)
	}
	var closeCmd protocol.Command
	if c.state == StateConnected && c.sock != nil {
		cc := protocol.NewSessionClose(sessionID)
		cc.ID = c.nextRequestID()
		closeCmd = cc
	}
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- ErrSessionClosed
	}
	if closeCmd != nil {
		return c.writeCommand(closeCmd)
	}
	return nil
}

// trackReadinessLocked inspects an agent frame for session confirmation.
// It returns commands to write (the initial get_state plus the flushed
// queue) and readiness waiters to resolve, both to be handled after the
// mutex is released.
func (c *Conn) trackReadinessLocked(f Frame) ([]protocol.Command, []waiterResult) {
	sess := c.sessions[f.SessionID]
	if sess == nil {
		return nil, nil
	}

	switch {
	case f.IsResponse() && f.Cmd == protocol.CmdSessionCreate:
		if f.Success != nil && *f.Success {
			if !sess.ready {
				return c.markReadyLocked(sess)
			}
			return nil, nil
		}
		// Creation rejected: fail waiters, keep the session tracked so a
		// reconnect can retry.
		msg := f.Error
		if msg == "" {
			msg = "session create failed"
		}
		err := fmt.Errorf("session %s: %s", sess.id, msg)
		out := make([]waiterResult, 0, len(sess.waiters))
		for id, ch := range sess.waiters {
			delete(sess.waiters, id)
			out = append(out, waiterResult{ch: ch, err: err})
		}
		return nil, out

	case f.Event == protocol.EventSessionCreated:
		if !sess.ready {
			return c.markReadyLocked(sess)
		}
	}
	return nil, nil
}

// markReadyLocked flips the session to ready, queues the initial state
// fetch and drains the turn queue in order.
func (c *Conn) markReadyLocked(sess *session) ([]protocol.Command, []waiterResult) {
	sess.ready = true

	gs := protocol.NewQuery(protocol.CmdGetState, sess.id)
	gs.ID = c.nextRequestID()
	writes := make([]protocol.Command, 0, 1+len(sess.queue))
	writes = append(writes, gs)
	writes = append(writes, sess.queue...)
	sess.queue = nil

	waiters := make([]waiterResult, 0, len(sess.waiters))
	for id, ch := range sess.waiters {
		delete(sess.waiters, id)
		waiters = append(waiters, waiterResult{ch: ch})
	}
	return writes, waiters
}

// sendTurn delivers a turn command to a tracked session, queueing it when
// the session is not confirmed on the current link.
func (c *Conn) sendTurn(cmd protocol.Command) error {
	h := cmd.Header()
	c.mu.Lock()
	sess := c.sessions[h.SessionID]
	if sess == nil {
		c.mu.Unlock()
		return fmt.Errorf("session %s not tracked", h.SessionID)
	}
	if h.ID == "" {
		h.ID = c.nextRequestID()
	}
	if c.state != StateConnected || !sess.ready {
		sess.queue = append(sess.queue, cmd)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.writeCommand(cmd)
}
