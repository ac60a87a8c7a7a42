package mux

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/byteowlz/oqto-mux/internal/protocol"
)

// reply carries either the correlated frame or the reason it will never
// arrive. Reply channels are always buffered so dispatch never blocks on
// an abandoned waiter.
type reply struct {
	frame Frame
	err   error
}

func (c *Conn) nextRequestID() string {
	n := atomic.AddUint64(&c.reqCounter, 1)
	return fmt.Sprintf("req-%d-%d", n, time.Now().UnixMilli())
}

// Send writes a command without waiting for a reply. The correlation id is
// stamped if missing so the backend can still answer.
func (c *Conn) Send(cmd protocol.Command) error {
	h := cmd.Header()
	if h.ID == "" {
		h.ID = c.nextRequestID()
	}
	return c.writeCommand(cmd)
}

// SendAndWait writes a command and blocks until the frame echoing its id
// arrives. timeout <= 0 uses the connection default. Waiting for the link
// to come up is capped separately so a request against a down link fails
// in bounded time even with a generous budget.
func (c *Conn) SendAndWait(ctx context.Context, cmd protocol.Command, timeout time.Duration) (Frame, error) {
	if timeout <= 0 {
		timeout = c.opts.RequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	waitBudget := timeout
	if waitBudget > connectWaitCap {
		waitBudget = connectWaitCap
	}
	waitCtx, waitCancel := context.WithTimeout(ctx, waitBudget)
	err := c.waitConnected(waitCtx)
	waitCancel()
	if err != nil {
		return Frame{}, err
	}

	h := cmd.Header()
	if h.ID == "" {
		h.ID = c.nextRequestID()
	}
	ch := make(chan reply, 1)
	c.mu.Lock()
	c.pending[h.ID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, h.ID)
		c.mu.Unlock()
	}()

	if err := c.writeCommand(cmd); err != nil {
		return Frame{}, err
	}

	select {
	case r := <-ch:
		return r.frame, r.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return Frame{}, ErrTimeout
		}
		return Frame{}, ctx.Err()
	}
}

// call runs an agent-channel request and unpacks the response's data
// payload into out.
func (c *Conn) call(ctx context.Context, cmd protocol.Command, out any) error {
	f, err := c.SendAndWait(ctx, cmd, 0)
	if err != nil {
		return err
	}
	resp, err := f.Response()
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if out != nil && len(resp.Data) > 0 {
		return json.Unmarshal(resp.Data, out)
	}
	return nil
}

// request runs a non-agent channel request whose reply is a typed result
// event rather than a response envelope.
func (c *Conn) request(ctx context.Context, cmd protocol.Command, out any) error {
	f, err := c.SendAndWait(ctx, cmd, 0)
	if err != nil {
		return err
	}
	if f.Event == "error" {
		var e struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = f.Decode(&e)
		msg := e.Message
		if msg == "" {
			msg = e.Error
		}
		if msg == "" {
			msg = "request failed"
		}
		return fmt.Errorf("%s %s: %s", f.Channel, cmd.Header().Cmd, msg)
	}
	if out != nil {
		return f.Decode(out)
	}
	return nil
}
