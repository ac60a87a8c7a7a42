package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func termCmd() *cobra.Command {
	var workspace string
	cmd := &cobra.Command{
		Use:   "term",
		Short: "Attach a remote terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, closer, err := dial()
			if err != nil {
				return err
			}
			defer closer()

			fd := int(os.Stdin.Fd())
			if !term.IsTerminal(fd) {
				return fmt.Errorf("stdin is not a terminal")
			}
			cols, rows, err := term.GetSize(fd)
			if err != nil {
				return err
			}

			exited := make(chan int, 1)
			t, err := conn.OpenTerminal(cmd.Context(), workspace, cols, rows,
				func(data []byte) { os.Stdout.Write(data) },
				func(code int) { exited <- code },
			)
			if err != nil {
				return err
			}
			defer t.Close()

			oldState, err := term.MakeRaw(fd)
			if err != nil {
				return err
			}
			defer term.Restore(fd, oldState)

			winch := make(chan os.Signal, 1)
			signal.Notify(winch, syscall.SIGWINCH)
			defer signal.Stop(winch)
			go func() {
				for range winch {
					if c, r, err := term.GetSize(fd); err == nil {
						t.Resize(c, r)
					}
				}
			}()

			// Stdin pump. Ctrl-] detaches.
			readErr := make(chan error, 1)
			go func() {
				buf := make([]byte, 4096)
				for {
					n, err := os.Stdin.Read(buf)
					if n > 0 {
						for _, b := range buf[:n] {
							if b == 0x1d { // Ctrl-]
								readErr <- nil
								return
							}
						}
						if err := t.Input(buf[:n]); err != nil {
							readErr <- err
							return
						}
					}
					if err != nil {
						readErr <- err
						return
					}
				}
			}()

			select {
			case code := <-exited:
				term.Restore(fd, oldState)
				fmt.Fprintf(os.Stderr, "\nterminal exited with code %d\n", code)
				return nil
			case err := <-readErr:
				return err
			}
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace path on the backend")
	return cmd
}
