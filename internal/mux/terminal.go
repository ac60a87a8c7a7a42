package mux

import (
	"context"
	"encoding/base64"

	"github.com/byteowlz/oqto-mux/internal/logger"
	"github.com/byteowlz/oqto-mux/internal/protocol"
)

// Terminal is one remote PTY opened over the terminal channel. Output
// arrives on the handlers the terminal was opened with.
type Terminal struct {
	conn  *Conn
	ID    string
	unsub func()
}

// OpenTerminal opens a PTY in the given workspace. onOutput receives
// decoded output bytes; onExit fires once with the exit code. Both run on
// the reader goroutine.
func (c *Conn) OpenTerminal(ctx context.Context, workspacePath string, cols, rows int, onOutput func([]byte), onExit func(int)) (*Terminal, error) {
	var opened protocol.TermOpened
	if err := c.request(ctx, protocol.NewTermOpen(workspacePath, cols, rows), &opened); err != nil {
		return nil, err
	}

	t := &Terminal{conn: c, ID: opened.TerminalID}
	t.unsub = c.Subscribe(protocol.ChannelTerminal, func(f Frame) {
		switch f.Event {
		case protocol.EventTermOutput:
			var out protocol.TermOutput
			if f.Decode(&out) != nil || out.TerminalID != t.ID {
				return
			}
			raw, err := base64.StdEncoding.DecodeString(out.Data)
			if err != nil {
				logger.Warn("bad terminal output encoding", "terminal", t.ID, "err", err)
				return
			}
			if onOutput != nil {
				onOutput(raw)
			}
		case protocol.EventTermExit:
			var ex protocol.TermExit
			if f.Decode(&ex) != nil || ex.TerminalID != t.ID {
				return
			}
			if onExit != nil {
				onExit(ex.ExitCode)
			}
		}
	})
	return t, nil
}

// Input sends raw bytes to the PTY.
func (t *Terminal) Input(data []byte) error {
	return t.conn.Send(protocol.NewTermInput(t.ID, base64.StdEncoding.EncodeToString(data)))
}

// Resize updates the PTY dimensions.
func (t *Terminal) Resize(cols, rows int) error {
	return t.conn.Send(protocol.NewTermResize(t.ID, cols, rows))
}

// Close tears the PTY down and stops delivering its output.
func (t *Terminal) Close() error {
	t.unsub()
	return t.conn.Send(protocol.NewTermClose(t.ID))
}
