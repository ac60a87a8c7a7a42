package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/byteowlz/oqto-mux/internal/auth"
	"github.com/byteowlz/oqto-mux/internal/history"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Connection and token status",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, cfg, closer, err := dial()
			if err != nil {
				return err
			}
			defer closer()

			fmt.Printf("origin:     %s\n", cfg.Server.Origin)
			fmt.Printf("connection: %s\n", conn.State())

			tok := cfg.Auth.Token
			if cfg.Auth.TokenFile != "" {
				fmt.Printf("token file: %s\n", cfg.Auth.TokenFile)
			}
			if exp, ok := auth.TokenExpiry(tok); ok {
				remaining := time.Until(exp).Round(time.Second)
				if remaining <= 0 {
					fmt.Printf("token:      EXPIRED %s ago\n", -remaining)
				} else {
					fmt.Printf("token:      valid, expires in %s\n", remaining)
				}
			} else if tok != "" {
				fmt.Println("token:      opaque (no expiry claim)")
			}

			// Round trip through the hstry channel as a liveness probe.
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			if _, err := conn.HistorySearch(ctx, "", 1); err != nil {
				fmt.Printf("backend:    probe failed (%v)\n", err)
			} else {
				fmt.Println("backend:    responding")
			}

			if path, err := historyStore(cfg); err == nil {
				if journal, err := history.Open(path); err == nil {
					defer journal.Close()
					if sessions, err := journal.Sessions(); err == nil {
						fmt.Printf("journal:    %s (%d sessions)\n", path, len(sessions))
					}
				}
			}
			return nil
		},
	}
}
