// Package mux is a multiplexed WebSocket client for the backend's
// /api/ws/mux endpoint. One physical socket carries the agent, files,
// terminal, hstry, trx and system channels; the client reconnects on its
// own, correlates requests with responses and re-establishes agent
// sessions after an outage.
package mux

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/time/rate"

	"github.com/byteowlz/oqto-mux/internal/logger"
	"github.com/byteowlz/oqto-mux/internal/protocol"
)

const (
	defaultDialTimeout    = 15 * time.Second
	defaultRequestTimeout = 30 * time.Second
	defaultReadyTimeout   = 4 * time.Second
	defaultBackoffBase    = time.Second
	defaultBackoffMax     = 30 * time.Second
	defaultMaxReconnects  = 20
	defaultReadLimit      = 16 * 1024 * 1024
	writeTimeout          = 10 * time.Second

	// connectWaitCap bounds how long a request waits for the link to come
	// up, regardless of the request's own budget.
	connectWaitCap = 10 * time.Second
)

// TokenProvider supplies the bearer token for the WebSocket handshake.
// Implementations may refresh the token between dials.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Options configures a Conn. Origin is required; everything else has a
// default.
type Options struct {
	// Origin is the backend's HTTP origin, e.g. "https://oqto.local:8443".
	Origin string
	// Token is a static bearer token. TokenSource takes precedence when
	// both are set.
	Token       string
	TokenSource TokenProvider

	DialTimeout    time.Duration
	RequestTimeout time.Duration
	ReadyTimeout   time.Duration

	BackoffBase          time.Duration
	BackoffMax           time.Duration
	MaxReconnectAttempts int

	ReadLimit int64
}

func (o *Options) applyDefaults() {
	if o.DialTimeout <= 0 {
		o.DialTimeout = defaultDialTimeout
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = defaultRequestTimeout
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = defaultReadyTimeout
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = defaultBackoffBase
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = defaultBackoffMax
	}
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = defaultMaxReconnects
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = defaultReadLimit
	}
}

// Handler receives inbound frames. Handlers run on the reader goroutine,
// in wire order; a slow handler stalls dispatch for the whole connection.
type Handler func(f Frame)

// Conn owns one multiplexed socket. All methods are safe for concurrent
// use.
type Conn struct {
	opts Options

	mu    sync.Mutex
	state State
	sock  *websocket.Conn

	// gen invalidates callbacks from sockets and timers that belong to an
	// abandoned connect cycle. Connect and Disconnect bump it.
	gen            int
	attempt        int
	backoff        *Backoff
	reconnectTimer *time.Timer

	// connectedCh is closed while the link is up and replaced with a fresh
	// channel when it drops. failedCh is closed when the supervisor gives
	// up.
	connectedCh chan struct{}
	failedCh    chan struct{}

	nextSub    int
	stateSubs  map[int]func(State)
	globalSubs map[int]Handler
	chanSubs   map[protocol.Channel]map[int]Handler

	pending    map[string]chan reply
	reqCounter uint64

	sessions map[string]*session

	parseWarn rate.Sometimes
}

// New builds a Conn. It does not dial; call Connect, or let
// SubscribeAgentSession trigger the first dial.
func New(opts Options) *Conn {
	opts.applyDefaults()
	return &Conn{
		opts:        opts,
		backoff:     &Backoff{Base: opts.BackoffBase, Max: opts.BackoffMax, Jitter: 0.2},
		connectedCh: make(chan struct{}),
		failedCh:    make(chan struct{}),
		stateSubs:   make(map[int]func(State)),
		globalSubs:  make(map[int]Handler),
		chanSubs:    make(map[protocol.Channel]map[int]Handler),
		pending:     make(map[string]chan reply),
		sessions:    make(map[string]*session),
		parseWarn:   rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}
}

// State returns the current connection state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnStateChange registers a state listener. The listener is invoked
// immediately with the current state, then on every transition. The
// returned function unsubscribes and is safe to call more than once.
func (c *Conn) OnStateChange(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.stateSubs[id] = fn
	cur := c.state
	c.mu.Unlock()

	fn(cur)
	return func() {
		c.mu.Lock()
		delete(c.stateSubs, id)
		c.mu.Unlock()
	}
}

// setStateLocked updates the state and returns a closure that notifies
// listeners. Call it after releasing the mutex.
func (c *Conn) setStateLocked(s State) func() {
	if c.state == s {
		return func() {}
	}
	c.state = s
	subs := make([]func(State), 0, len(c.stateSubs))
	for _, fn := range c.stateSubs {
		subs = append(subs, fn)
	}
	return func() {
		for _, fn := range subs {
			fn(s)
		}
	}
}

// Connect starts dialing. It is a no-op while a connect cycle is already
// running; calling it from the failed state starts a fresh cycle.
func (c *Conn) Connect() {
	c.mu.Lock()
	switch c.state {
	case StateConnecting, StateConnected, StateReconnecting:
		c.mu.Unlock()
		return
	}
	c.gen++
	gen := c.gen
	c.attempt = 0
	c.backoff.Reset()
	if c.state == StateFailed {
		c.failedCh = make(chan struct{})
	}
	notify := c.setStateLocked(StateConnecting)
	c.mu.Unlock()
	notify()

	go c.dial(gen)
}

// Disconnect tears the connection down and stops the supervisor. Tracked
// sessions stay registered and will be re-created on the next Connect.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	c.gen++
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	sock := c.sock
	c.sock = nil
	c.attempt = 0
	c.backoff.Reset()
	if c.state == StateConnected {
		c.connectedCh = make(chan struct{})
	}
	// A closed failedCh must not leak into the next connect cycle.
	if c.state == StateFailed {
		c.failedCh = make(chan struct{})
	}
	for _, s := range c.sessions {
		s.ready = false
	}
	replies := c.takePendingLocked()
	notify := c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	for _, ch := range replies {
		ch <- reply{err: ErrNotConnected}
	}
	notify()
	if sock != nil {
		sock.Close(websocket.StatusNormalClosure, "client disconnect")
	}
}

// takePendingLocked empties the pending map and returns the reply
// channels, all buffered.
func (c *Conn) takePendingLocked() []chan reply {
	out := make([]chan reply, 0, len(c.pending))
	for id, ch := range c.pending {
		delete(c.pending, id)
		out = append(out, ch)
	}
	return out
}

func (c *Conn) dial(gen int) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.DialTimeout)
	defer cancel()

	u, err := c.wsURL(ctx)
	if err == nil {
		var sock *websocket.Conn
		sock, _, err = websocket.Dial(ctx, u, nil)
		if err == nil {
			sock.SetReadLimit(c.opts.ReadLimit)
			c.attach(gen, sock)
			return
		}
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	notify := c.scheduleReconnectLocked(err)
	c.mu.Unlock()
	notify()
}

// attach installs a freshly dialed socket, re-creates tracked sessions and
// starts the read loop.
func (c *Conn) attach(gen int, sock *websocket.Conn) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		sock.CloseNow()
		return
	}
	c.sock = sock
	c.attempt = 0
	c.backoff.Reset()
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}

	creates := make([]protocol.Command, 0, len(c.sessions))
	for _, s := range c.sessions {
		s.ready = false
		sc := protocol.NewSessionCreate(s.id, s.config)
		sc.ID = c.nextRequestID()
		creates = append(creates, sc)
	}

	notify := c.setStateLocked(StateConnected)
	close(c.connectedCh)
	c.mu.Unlock()
	notify()

	logger.Info("connected", "origin", c.opts.Origin, "sessions", len(creates))
	for _, cmd := range creates {
		if err := c.writeCommand(cmd); err != nil {
			logger.Warn("session re-create failed", "session", cmd.Header().SessionID, "err", err)
		}
	}

	go c.readLoop(gen, sock)
}

func (c *Conn) readLoop(gen int, sock *websocket.Conn) {
	ctx := context.Background()
	for {
		_, data, err := sock.Read(ctx)
		if err != nil {
			c.mu.Lock()
			if gen != c.gen {
				c.mu.Unlock()
				return
			}
			c.sock = nil
			c.connectedCh = make(chan struct{})
			for _, s := range c.sessions {
				s.ready = false
			}
			replies := c.takePendingLocked()
			notify := c.scheduleReconnectLocked(err)
			c.mu.Unlock()

			for _, ch := range replies {
				ch <- reply{err: ErrConnLost}
			}
			notify()
			return
		}
		c.dispatch(data)
	}
}

// scheduleReconnectLocked counts the attempt and either arms the retry
// timer or gives up. Returns the state notification closure.
func (c *Conn) scheduleReconnectLocked(cause error) func() {
	c.attempt++
	if c.attempt > c.opts.MaxReconnectAttempts {
		logger.Error("reconnect attempts exhausted", "attempts", c.attempt-1, "err", cause)
		close(c.failedCh)
		return c.setStateLocked(StateFailed)
	}

	delay := c.backoff.Next()
	logger.Warn("connection lost, retrying", "attempt", c.attempt, "delay", delay, "err", cause)
	gen := c.gen
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.reconnectTimer = nil
		c.mu.Unlock()
		c.dial(gen)
	})
	return c.setStateLocked(StateReconnecting)
}

// WaitConnected blocks until the link is up, the supervisor gives up, or
// ctx expires. It does not start a dial; call Connect first.
func (c *Conn) WaitConnected(ctx context.Context) error {
	return c.waitConnected(ctx)
}

// waitConnected blocks until the link is up, the supervisor gives up, or
// ctx expires.
func (c *Conn) waitConnected(ctx context.Context) error {
	for {
		c.mu.Lock()
		switch c.state {
		case StateConnected:
			c.mu.Unlock()
			return nil
		case StateFailed:
			c.mu.Unlock()
			return ErrConnFailed
		}
		connCh, failCh := c.connectedCh, c.failedCh
		c.mu.Unlock()

		select {
		case <-connCh:
		case <-failCh:
			return ErrConnFailed
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return ErrTimeout
			}
			return ctx.Err()
		}
	}
}

func (c *Conn) wsURL(ctx context.Context) (string, error) {
	u, err := url.Parse(c.opts.Origin)
	if err != nil {
		return "", fmt.Errorf("parse origin: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss", "":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("origin scheme %q not supported", u.Scheme)
	}
	u.Path = "/api/ws/mux"

	token := c.opts.Token
	if c.opts.TokenSource != nil {
		token, err = c.opts.TokenSource.Token(ctx)
		if err != nil {
			return "", fmt.Errorf("token: %w", err)
		}
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Conn) writeCommand(cmd protocol.Command) error {
	c.mu.Lock()
	sock := c.sock
	c.mu.Unlock()
	if sock == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return sock.Write(ctx, websocket.MessageText, data)
}
