package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/byteowlz/oqto-mux/internal/history"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Shell history and the local event journal",
	}
	cmd.AddCommand(historySearchCmd(), historyLogCmd(), historyPruneCmd())
	return cmd
}

func historySearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the backend's shell history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, closer, err := dial()
			if err != nil {
				return err
			}
			defer closer()

			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			entries, err := conn.HistorySearch(cmd.Context(), query, limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				ts := ""
				if e.Timestamp > 0 {
					ts = time.UnixMilli(e.Timestamp).Format("2006-01-02 15:04")
				}
				fmt.Printf("%-17s %s\n", ts, e.Command)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Max results")
	return cmd
}

func historyLogCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log [session]",
		Short: "Show the local agent event journal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path, err := historyStore(cfg)
			if err != nil {
				return err
			}
			journal, err := history.Open(path)
			if err != nil {
				return err
			}
			defer journal.Close()

			if len(args) == 0 {
				sessions, err := journal.Sessions()
				if err != nil {
					return err
				}
				for _, s := range sessions {
					fmt.Println(s)
				}
				return nil
			}

			entries, err := journal.Recent(args[0], limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				payload := string(e.Payload)
				if len(payload) > 120 {
					payload = payload[:120] + "..."
				}
				fmt.Printf("%s  %-24s %s\n",
					e.CreatedAt.Format("15:04:05"), e.Event, strings.TrimSpace(payload))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Max entries")
	return cmd
}

func historyPruneCmd() *cobra.Command {
	var keep string
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop old journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d, err := time.ParseDuration(keep)
			if err != nil {
				return fmt.Errorf("parse --keep: %w", err)
			}
			path, err := historyStore(cfg)
			if err != nil {
				return err
			}
			journal, err := history.Open(path)
			if err != nil {
				return err
			}
			defer journal.Close()

			n, err := journal.Prune(time.Now().Add(-d))
			if err != nil {
				return err
			}
			fmt.Printf("pruned %d entries\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&keep, "keep", "720h", "Keep entries newer than this")
	return cmd
}
