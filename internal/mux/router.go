package mux

import (
	"github.com/byteowlz/oqto-mux/internal/logger"
	"github.com/byteowlz/oqto-mux/internal/protocol"
)

// SubscribeAll registers a handler for every inbound frame on every
// channel. Returns the unsubscribe function.
func (c *Conn) SubscribeAll(h Handler) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.globalSubs[id] = h
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.globalSubs, id)
		c.mu.Unlock()
	}
}

// Subscribe registers a handler for one channel. Returns the unsubscribe
// function.
func (c *Conn) Subscribe(ch protocol.Channel, h Handler) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	m := c.chanSubs[ch]
	if m == nil {
		m = make(map[int]Handler)
		c.chanSubs[ch] = m
	}
	m[id] = h
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		if m := c.chanSubs[ch]; m != nil {
			delete(m, id)
		}
		c.mu.Unlock()
	}
}

// dispatch routes one inbound frame. It runs on the reader goroutine, so
// handlers observe frames in wire order. Routing order is fixed: session
// readiness bookkeeping, then the correlator, then global, channel and
// session handlers.
func (c *Conn) dispatch(data []byte) {
	f, err := parseFrame(data)
	if err != nil {
		c.parseWarn.Do(func() {
			logger.Warn("dropping unparseable frame", "err", err)
		})
		return
	}

	// Keepalive, nothing to route.
	if f.Channel == protocol.ChannelSystem && f.Event == protocol.SystemPing {
		return
	}

	c.mu.Lock()
	var writes []protocol.Command
	var waiters []waiterResult
	if f.Channel == protocol.ChannelAgent && f.SessionID != "" {
		writes, waiters = c.trackReadinessLocked(f)
	}

	var pendingCh chan reply
	if f.ID != "" {
		if ch, ok := c.pending[f.ID]; ok {
			delete(c.pending, f.ID)
			pendingCh = ch
		}
	}

	globals := make([]Handler, 0, len(c.globalSubs))
	for _, h := range c.globalSubs {
		globals = append(globals, h)
	}
	var chans []Handler
	if m := c.chanSubs[f.Channel]; len(m) > 0 {
		chans = make([]Handler, 0, len(m))
		for _, h := range m {
			chans = append(chans, h)
		}
	}
	var sessHandlers []Handler
	if f.Channel == protocol.ChannelAgent && f.SessionID != "" {
		if s := c.sessions[f.SessionID]; s != nil && len(s.handlers) > 0 {
			sessHandlers = make([]Handler, 0, len(s.handlers))
			for _, h := range s.handlers {
				sessHandlers = append(sessHandlers, h)
			}
		}
	}
	c.mu.Unlock()

	// The flushed queue must reach the wire before readiness waiters wake:
	// a caller unblocked by WaitForSessionReady may send a turn command
	// immediately, and it has to land after anything queued earlier.
	for _, cmd := range writes {
		if err := c.writeCommand(cmd); err != nil {
			logger.Warn("deferred write failed", "cmd", cmd.Header().Cmd, "err", err)
		}
	}
	for _, w := range waiters {
		w.ch <- w.err
	}
	if pendingCh != nil {
		pendingCh <- reply{frame: f}
	}
	for _, h := range globals {
		c.safeCall(h, f)
	}
	for _, h := range chans {
		c.safeCall(h, f)
	}
	for _, h := range sessHandlers {
		c.safeCall(h, f)
	}
}

// safeCall shields dispatch from a panicking handler. One bad subscriber
// must not take down the reader.
func (c *Conn) safeCall(h Handler, f Frame) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panic", "channel", f.Channel, "event", f.Event, "panic", r)
		}
	}()
	h(f)
}
