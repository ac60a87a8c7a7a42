package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/byteowlz/oqto-mux/internal/history"
	"github.com/byteowlz/oqto-mux/internal/logger"
	"github.com/byteowlz/oqto-mux/internal/mux"
	"github.com/byteowlz/oqto-mux/internal/protocol"
)

func chatCmd() *cobra.Command {
	var (
		sessionID string
		harness   string
		cwd       string
		provider  string
		model     string
		noJournal bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive agent chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, cfg, closer, err := dial()
			if err != nil {
				return err
			}
			defer closer()

			if sessionID == "" {
				sessionID = "cli-" + uuid.NewString()[:8]
			}
			if cwd == "" {
				if cwd, err = os.Getwd(); err != nil {
					return err
				}
			}

			var journal *history.Store
			if !noJournal {
				path, err := historyStore(cfg)
				if err == nil {
					journal, err = history.Open(path)
				}
				if err != nil {
					logger.Warn("journal disabled", "err", err)
					journal = nil
				} else {
					defer journal.Close()
				}
			}

			idle := make(chan struct{}, 1)
			out := bufio.NewWriter(os.Stdout)
			handler := func(f mux.Frame) {
				if journal != nil && !f.IsResponse() {
					if err := journal.Append(sessionID, f.Event, f.Raw); err != nil {
						logger.Debug("journal append failed", "err", err)
					}
				}
				ev, err := f.AgentEvent()
				if err != nil {
					return
				}
				switch e := ev.(type) {
				case *protocol.StreamTextDelta:
					out.WriteString(e.Delta)
					out.Flush()
				case *protocol.StreamDone:
					out.WriteString("\n")
					out.Flush()
				case *protocol.AgentIdle:
					select {
					case idle <- struct{}{}:
					default:
					}
				case *protocol.AgentError:
					fmt.Fprintf(os.Stderr, "\nagent error: %s\n", e.Error)
					if !e.Recoverable {
						select {
						case idle <- struct{}{}:
						default:
						}
					}
				case *protocol.ToolStart:
					fmt.Fprintf(os.Stderr, "[tool %s]\n", e.Name)
				case *protocol.Notify:
					fmt.Fprintf(os.Stderr, "[%s] %s\n", e.Level, e.Message)
				case *protocol.AgentInputNeeded:
					fmt.Fprintf(os.Stderr, "\ninput needed (%s): %s\n", e.Request.Type, e.Request.Title)
				}
			}

			unsubState := conn.OnStateChange(func(s mux.State) {
				if s == mux.StateReconnecting || s == mux.StateFailed {
					fmt.Fprintf(os.Stderr, "[connection %s]\n", s)
				}
			})
			defer unsubState()

			unsub := conn.SubscribeAgentSession(sessionID, protocol.SessionConfig{
				Harness:  harness,
				Cwd:      cwd,
				Provider: provider,
				Model:    model,
			}, handler)
			defer unsub()

			if err := conn.WaitForSessionReady(cmd.Context(), sessionID, 30*time.Second); err != nil {
				return fmt.Errorf("session %s: %w", sessionID, err)
			}
			fmt.Fprintf(os.Stderr, "session %s ready (%s)\n", sessionID, cwd)

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			fmt.Print("> ")
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				switch {
				case line == "":
					fmt.Print("> ")
					continue
				case line == "/quit", line == "/exit":
					return conn.AgentCloseSession(sessionID)
				case line == "/abort":
					if err := conn.AgentAbort(sessionID); err != nil {
						fmt.Fprintf(os.Stderr, "abort: %v\n", err)
					}
					fmt.Print("> ")
					continue
				case strings.HasPrefix(line, "/steer "):
					if err := conn.AgentSteer(sessionID, strings.TrimPrefix(line, "/steer ")); err != nil {
						fmt.Fprintf(os.Stderr, "steer: %v\n", err)
					}
					continue
				}

				if err := conn.AgentPrompt(sessionID, line); err != nil {
					fmt.Fprintf(os.Stderr, "prompt: %v\n", err)
					fmt.Print("> ")
					continue
				}
				<-idle
				fmt.Print("> ")
			}
			if err := scanner.Err(); err != nil {
				return err
			}
			return conn.AgentCloseSession(sessionID)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session id (default: fresh)")
	cmd.Flags().StringVar(&harness, "harness", "", "Agent harness, e.g. pi")
	cmd.Flags().StringVar(&cwd, "cwd", "", "Working directory (default: current)")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider")
	cmd.Flags().StringVar(&model, "model", "", "Model id")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "Skip the local event journal")
	return cmd
}
