package mux

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/byteowlz/oqto-mux/internal/protocol"
)

func newTestServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			t.Logf("accept error: %v", err)
			return
		}
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func readCmd(t *testing.T, ctx context.Context, conn *websocket.Conn) map[string]any {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Logf("server unmarshal: %v", err)
		return nil
	}
	return m
}

func writeFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Logf("server marshal: %v", err)
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Logf("server write: %v", err)
	}
}

func testConn(t *testing.T, srv *httptest.Server) *Conn {
	t.Helper()
	c := New(Options{
		Origin:      srv.URL,
		Token:       "test-token",
		BackoffBase: 10 * time.Millisecond,
		BackoffMax:  50 * time.Millisecond,
	})
	t.Cleanup(c.Disconnect)
	return c
}

func waitState(t *testing.T, c *Conn, want State) {
	t.Helper()
	ch := make(chan State, 16)
	unsub := c.OnStateChange(func(s State) {
		select {
		case ch <- s:
		default:
		}
	})
	defer unsub()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case s := <-ch:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("state never reached %v (now %v)", want, c.State())
		}
	}
}

func TestConnInitialState(t *testing.T) {
	c := New(Options{Origin: "http://localhost:0"})
	if c.State() != StateDisconnected {
		t.Errorf("initial state = %v, want disconnected", c.State())
	}
}

func TestStateString(t *testing.T) {
	pairs := map[State]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateConnected:    "connected",
		StateReconnecting: "reconnecting",
		StateFailed:       "failed",
	}
	for s, want := range pairs {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}

func TestOnStateChangeReplaysCurrent(t *testing.T) {
	c := New(Options{Origin: "http://localhost:0"})
	var got []State
	unsub := c.OnStateChange(func(s State) { got = append(got, s) })
	if len(got) != 1 || got[0] != StateDisconnected {
		t.Fatalf("replay = %v, want [disconnected]", got)
	}
	unsub()
	unsub() // safe to call twice
}

func TestDispatchOrderSwallowsPing(t *testing.T) {
	c := New(Options{Origin: "http://localhost:0"})
	var got []string
	c.SubscribeAll(func(f Frame) { got = append(got, f.Event) })

	frames := []string{
		`{"channel":"system","event":"connected"}`,
		`{"channel":"agent","session_id":"s1","event":"stream.text_delta","delta":"a"}`,
		`{"channel":"system","event":"ping"}`,
		`{"channel":"agent","session_id":"s1","event":"stream.done"}`,
	}
	for _, f := range frames {
		c.dispatch([]byte(f))
	}

	want := []string{"connected", "stream.text_delta", "stream.done"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDispatchDropsUnparseable(t *testing.T) {
	c := New(Options{Origin: "http://localhost:0"})
	called := false
	c.SubscribeAll(func(Frame) { called = true })

	c.dispatch([]byte(`{nope`))
	c.dispatch([]byte(`{"channel":"bogus","event":"x"}`))
	if called {
		t.Error("handler ran for unparseable frame")
	}
}

func TestDispatchChannelFilter(t *testing.T) {
	c := New(Options{Origin: "http://localhost:0"})
	var files, agent int
	c.Subscribe(protocol.ChannelFiles, func(Frame) { files++ })
	c.Subscribe(protocol.ChannelAgent, func(Frame) { agent++ })

	c.dispatch([]byte(`{"channel":"agent","session_id":"s1","event":"agent.idle"}`))
	c.dispatch([]byte(`{"channel":"files","event":"tree_result","path":"/","entries":[]}`))

	if files != 1 || agent != 1 {
		t.Errorf("files = %d, agent = %d, want 1 and 1", files, agent)
	}
}

func TestHandlerPanicIsolation(t *testing.T) {
	c := New(Options{Origin: "http://localhost:0"})
	var calls int
	c.Subscribe(protocol.ChannelAgent, func(Frame) { panic("boom") })
	c.Subscribe(protocol.ChannelAgent, func(Frame) { calls++ })

	c.dispatch([]byte(`{"channel":"agent","session_id":"s1","event":"agent.idle"}`))
	c.dispatch([]byte(`{"channel":"agent","session_id":"s1","event":"agent.working","phase":"generating"}`))

	if calls != 2 {
		t.Errorf("surviving handler ran %d times, want 2", calls)
	}
}

func TestSessionHandlerScopedToSession(t *testing.T) {
	c := New(Options{Origin: "http://127.0.0.1:1"})
	t.Cleanup(c.Disconnect)
	var got []string
	unsub := c.SubscribeAgentSession("s1", protocol.SessionConfig{}, func(f Frame) {
		got = append(got, f.SessionID)
	})
	defer unsub()

	c.dispatch([]byte(`{"channel":"agent","session_id":"s2","event":"agent.idle"}`))
	c.dispatch([]byte(`{"channel":"agent","session_id":"s1","event":"agent.idle"}`))

	if len(got) != 1 || got[0] != "s1" {
		t.Errorf("handler saw sessions %v, want [s1]", got)
	}
}

func TestConnectAndCorrelate(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		for {
			m := readCmd(t, ctx, conn)
			if m == nil {
				return
			}
			id, _ := m["id"].(string)
			if !strings.HasPrefix(id, "req-") {
				t.Errorf("correlation id = %q, want req- prefix", id)
			}
			if m["cmd"] == "get_state" {
				writeFrame(t, ctx, conn, map[string]any{
					"channel":    "agent",
					"session_id": m["session_id"],
					"event":      "response",
					"id":         id,
					"cmd":        "get_state",
					"success":    true,
					"data":       map[string]any{"state": "idle"},
				})
			}
		}
	})

	c := testConn(t, srv)
	c.Connect()
	waitState(t, c, StateConnected)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	state, err := c.AgentState(ctx, "s1")
	if err != nil {
		t.Fatalf("AgentState: %v", err)
	}
	if !strings.Contains(string(state), "idle") {
		t.Errorf("state = %s", state)
	}
}

func TestSessionReadyFlushOrder(t *testing.T) {
	cmds := make(chan string, 16)
	srv := newTestServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		for {
			m := readCmd(t, ctx, conn)
			if m == nil {
				return
			}
			cmd, _ := m["cmd"].(string)
			cmds <- cmd
			if cmd == "session.create" {
				writeFrame(t, ctx, conn, map[string]any{
					"channel":    "agent",
					"session_id": m["session_id"],
					"event":      "response",
					"id":         m["id"],
					"cmd":        "session.create",
					"success":    true,
				})
			}
		}
	})

	c := testConn(t, srv)
	unsub := c.SubscribeAgentSession("s1", protocol.SessionConfig{Harness: "pi"}, nil)
	defer unsub()

	if err := c.AgentPrompt("s1", "hello"); err != nil {
		t.Fatalf("AgentPrompt: %v", err)
	}
	if err := c.WaitForSessionReady(context.Background(), "s1", 3*time.Second); err != nil {
		t.Fatalf("WaitForSessionReady: %v", err)
	}

	want := []string{"session.create", "get_state", "prompt"}
	for i, w := range want {
		select {
		case got := <-cmds:
			if got != w {
				t.Errorf("cmd %d = %q, want %q", i, got, w)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for %q", w)
		}
	}
}

func TestSessionCreateSentOnce(t *testing.T) {
	var creates int32
	srv := newTestServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		for {
			m := readCmd(t, ctx, conn)
			if m == nil {
				return
			}
			if m["cmd"] == "session.create" {
				atomic.AddInt32(&creates, 1)
				writeFrame(t, ctx, conn, map[string]any{
					"channel":    "agent",
					"session_id": m["session_id"],
					"event":      "response",
					"id":         m["id"],
					"cmd":        "session.create",
					"success":    true,
				})
			}
		}
	})

	c := testConn(t, srv)
	unsub1 := c.SubscribeAgentSession("s1", protocol.SessionConfig{}, nil)
	defer unsub1()
	unsub2 := c.SubscribeAgentSession("s1", protocol.SessionConfig{}, nil)
	defer unsub2()

	if err := c.WaitForSessionReady(context.Background(), "s1", 3*time.Second); err != nil {
		t.Fatalf("WaitForSessionReady: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if n := atomic.LoadInt32(&creates); n != 1 {
		t.Errorf("session.create sent %d times, want 1", n)
	}
}

func TestReconnectRecreatesSession(t *testing.T) {
	var mu sync.Mutex
	var ids []string
	var connNum int32
	srv := newTestServer(t, func(conn *websocket.Conn) {
		n := atomic.AddInt32(&connNum, 1)
		ctx := context.Background()
		m := readCmd(t, ctx, conn)
		if m == nil {
			return
		}
		if m["cmd"] != "session.create" {
			t.Errorf("conn %d: first cmd = %v, want session.create", n, m["cmd"])
		}
		id, _ := m["id"].(string)
		mu.Lock()
		ids = append(ids, id)
		mu.Unlock()

		if n == 1 {
			conn.Close(websocket.StatusGoingAway, "restart")
			return
		}
		writeFrame(t, ctx, conn, map[string]any{
			"channel":    "agent",
			"session_id": m["session_id"],
			"event":      "response",
			"id":         id,
			"cmd":        "session.create",
			"success":    true,
		})
		for readCmd(t, ctx, conn) != nil {
		}
	})

	c := testConn(t, srv)
	unsub := c.SubscribeAgentSession("s1", protocol.SessionConfig{Cwd: "/w"}, nil)
	defer unsub()

	if err := c.WaitForSessionReady(context.Background(), "s1", 5*time.Second); err != nil {
		t.Fatalf("WaitForSessionReady: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ids) != 2 {
		t.Fatalf("session.create sent %d times across reconnect, want 2", len(ids))
	}
	if ids[0] == ids[1] {
		t.Errorf("re-create reused correlation id %q", ids[0])
	}
}

func TestSendAndWaitTimeoutClearsPending(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		for readCmd(t, ctx, conn) != nil {
		}
	})

	c := testConn(t, srv)
	c.Connect()
	waitState(t, c, StateConnected)

	_, err := c.SendAndWait(context.Background(), protocol.NewQuery(protocol.CmdGetState, "s1"), 100*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}

	c.mu.Lock()
	n := len(c.pending)
	c.mu.Unlock()
	if n != 0 {
		t.Errorf("pending map holds %d entries after timeout, want 0", n)
	}
}

func TestSendAndWaitWhileDisconnected(t *testing.T) {
	c := New(Options{Origin: "http://127.0.0.1:1", Token: "t"})
	t.Cleanup(c.Disconnect)

	start := time.Now()
	_, err := c.SendAndWait(context.Background(), protocol.NewQuery(protocol.CmdGetState, "s1"), 100*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("request did not fail in bounded time")
	}
}

func TestFailedAfterMaxAttempts(t *testing.T) {
	c := New(Options{
		Origin:               "http://127.0.0.1:1",
		Token:                "t",
		BackoffBase:          time.Millisecond,
		BackoffMax:           2 * time.Millisecond,
		MaxReconnectAttempts: 3,
		DialTimeout:          200 * time.Millisecond,
	})
	t.Cleanup(c.Disconnect)

	c.Connect()
	waitState(t, c, StateFailed)

	_, err := c.SendAndWait(context.Background(), protocol.NewQuery(protocol.CmdGetState, "s1"), time.Second)
	if !errors.Is(err, ErrConnFailed) {
		t.Errorf("err = %v, want ErrConnFailed", err)
	}
}

func TestConnectAfterFailedRestartsCleanly(t *testing.T) {
	c := New(Options{
		Origin:               "http://127.0.0.1:1",
		Token:                "t",
		BackoffBase:          20 * time.Millisecond,
		BackoffMax:           40 * time.Millisecond,
		MaxReconnectAttempts: 2,
		DialTimeout:          200 * time.Millisecond,
	})
	t.Cleanup(c.Disconnect)

	c.Connect()
	waitState(t, c, StateFailed)

	c.Disconnect()
	c.Connect()

	// The fresh cycle is still dialing; it must not report the previous
	// cycle's failure.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	err := c.WaitConnected(ctx)
	cancel()
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("WaitConnected during fresh cycle = %v, want ErrTimeout", err)
	}

	// The restarted supervisor exhausts its attempts again and reports
	// failure normally.
	waitState(t, c, StateFailed)
	if err := c.WaitConnected(context.Background()); !errors.Is(err, ErrConnFailed) {
		t.Errorf("WaitConnected after second give-up = %v, want ErrConnFailed", err)
	}
}

func TestPromptAfterReadyLandsAfterQueue(t *testing.T) {
	msgs := make(chan string, 16)
	srv := newTestServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		for {
			m := readCmd(t, ctx, conn)
			if m == nil {
				return
			}
			switch m["cmd"] {
			case "session.create":
				writeFrame(t, ctx, conn, map[string]any{
					"channel":    "agent",
					"session_id": m["session_id"],
					"event":      "response",
					"id":         m["id"],
					"cmd":        "session.create",
					"success":    true,
				})
			case "prompt":
				msg, _ := m["message"].(string)
				msgs <- msg
			}
		}
	})

	c := testConn(t, srv)
	unsub := c.SubscribeAgentSession("s1", protocol.SessionConfig{}, nil)
	defer unsub()

	if err := c.AgentPrompt("s1", "first"); err != nil {
		t.Fatalf("AgentPrompt: %v", err)
	}
	if err := c.WaitForSessionReady(context.Background(), "s1", 3*time.Second); err != nil {
		t.Fatalf("WaitForSessionReady: %v", err)
	}
	// Unblocking means the queue already hit the wire; this one must
	// arrive after it.
	if err := c.AgentPrompt("s1", "second"); err != nil {
		t.Fatalf("AgentPrompt: %v", err)
	}

	want := []string{"first", "second"}
	for i, w := range want {
		select {
		case got := <-msgs:
			if got != w {
				t.Errorf("prompt %d = %q, want %q", i, got, w)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for prompt %q", w)
		}
	}
}

func TestCloseSessionRejectsWaiters(t *testing.T) {
	c := New(Options{Origin: "http://127.0.0.1:1", Token: "t"})
	t.Cleanup(c.Disconnect)

	unsub := c.SubscribeAgentSession("s1", protocol.SessionConfig{}, nil)
	defer unsub()

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.WaitForSessionReady(context.Background(), "s1", 5*time.Second)
	}()

	// Wait for the waiter to register before closing.
	deadline := time.Now().Add(time.Second)
	for {
		c.mu.Lock()
		s := c.sessions["s1"]
		n := 0
		if s != nil {
			n = len(s.waiters)
		}
		c.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("waiter never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := c.AgentCloseSession("s1"); err != nil {
		t.Fatalf("AgentCloseSession: %v", err)
	}
	select {
	case err := <-errCh:
		if !errors.Is(err, ErrSessionClosed) {
			t.Errorf("waiter err = %v, want ErrSessionClosed", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("waiter never resolved")
	}
}

func TestUnsubscribeKeepsSessionTracked(t *testing.T) {
	c := New(Options{Origin: "http://127.0.0.1:1", Token: "t"})
	t.Cleanup(c.Disconnect)

	unsub := c.SubscribeAgentSession("s1", protocol.SessionConfig{}, func(Frame) {})
	unsub()

	// Still tracked: turn commands queue instead of erroring.
	if err := c.AgentPrompt("s1", "queued"); err != nil {
		t.Errorf("AgentPrompt after unsubscribe: %v", err)
	}

	if err := c.AgentCloseSession("s1"); err != nil {
		t.Fatalf("AgentCloseSession: %v", err)
	}
	if err := c.AgentPrompt("s1", "gone"); err == nil {
		t.Error("AgentPrompt should fail for a closed session")
	}
}

func TestResubscribeAfterClose(t *testing.T) {
	var creates int32
	srv := newTestServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		for {
			m := readCmd(t, ctx, conn)
			if m == nil {
				return
			}
			if m["cmd"] == "session.create" {
				atomic.AddInt32(&creates, 1)
				writeFrame(t, ctx, conn, map[string]any{
					"channel":    "agent",
					"session_id": m["session_id"],
					"event":      "response",
					"id":         m["id"],
					"cmd":        "session.create",
					"success":    true,
				})
			}
		}
	})

	c := testConn(t, srv)
	unsub := c.SubscribeAgentSession("s1", protocol.SessionConfig{}, nil)
	if err := c.WaitForSessionReady(context.Background(), "s1", 3*time.Second); err != nil {
		t.Fatalf("WaitForSessionReady: %v", err)
	}
	unsub()

	// Unsubscribing keeps the session tracked, so subscribing again must
	// not send another create.
	unsub2 := c.SubscribeAgentSession("s1", protocol.SessionConfig{}, nil)
	unsub2()
	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt32(&creates); n != 1 {
		t.Fatalf("session.create sent %d times after re-subscribe, want 1", n)
	}

	// Closing forgets the session; the next subscription starts over with
	// a fresh create.
	if err := c.AgentCloseSession("s1"); err != nil {
		t.Fatalf("AgentCloseSession: %v", err)
	}
	unsub3 := c.SubscribeAgentSession("s1", protocol.SessionConfig{}, nil)
	defer unsub3()
	if err := c.WaitForSessionReady(context.Background(), "s1", 3*time.Second); err != nil {
		t.Fatalf("WaitForSessionReady after close: %v", err)
	}
	if n := atomic.LoadInt32(&creates); n != 2 {
		t.Errorf("session.create sent %d times after close and re-subscribe, want 2", n)
	}
}

func TestPromptUntrackedSession(t *testing.T) {
	c := New(Options{Origin: "http://localhost:0"})
	if err := c.AgentPrompt("nope", "hi"); err == nil {
		t.Error("want error for untracked session")
	}
}

func TestFilesTreeRequest(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		for {
			m := readCmd(t, ctx, conn)
			if m == nil {
				return
			}
			if m["channel"] == "files" && m["cmd"] == "tree" {
				writeFrame(t, ctx, conn, map[string]any{
					"channel": "files",
					"event":   "tree_result",
					"id":      m["id"],
					"path":    m["path"],
					"entries": []map[string]any{
						{"name": "src", "path": "/w/src", "type": "directory"},
					},
				})
			}
		}
	})

	c := testConn(t, srv)
	c.Connect()
	waitState(t, c, StateConnected)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	entries, err := c.FilesTree(ctx, "/w")
	if err != nil {
		t.Fatalf("FilesTree: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "src" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestTokenSentInHandshake(t *testing.T) {
	gotToken := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken <- r.URL.Query().Get("token")
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		ctx := context.Background()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	c := testConn(t, srv)
	c.Connect()
	waitState(t, c, StateConnected)

	select {
	case tok := <-gotToken:
		if tok != "test-token" {
			t.Errorf("token = %q, want test-token", tok)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("handshake never arrived")
	}
}
