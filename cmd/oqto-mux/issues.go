package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/byteowlz/oqto-mux/internal/protocol"
)

func issuesCmd() *cobra.Command {
	var workspace string
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Workspace issue tracker",
	}
	cmd.PersistentFlags().StringVar(&workspace, "workspace", "", "Workspace path on the backend")

	list := &cobra.Command{
		Use:   "list",
		Short: "List issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, closer, err := dial()
			if err != nil {
				return err
			}
			defer closer()

			issues, err := conn.TrxIssues(cmd.Context(), workspace)
			if err != nil {
				return err
			}
			for _, is := range issues {
				status := is.Status
				if status == "" {
					status = "open"
				}
				fmt.Printf("%-10s [%-6s] %s\n", is.ID, status, is.Title)
			}
			return nil
		},
	}

	var body, priority string
	create := &cobra.Command{
		Use:   "create <title>",
		Short: "File an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, closer, err := dial()
			if err != nil {
				return err
			}
			defer closer()

			issue, err := conn.TrxCreateIssue(cmd.Context(), workspace, protocol.TrxIssueInput{
				Title:    args[0],
				Body:     body,
				Priority: priority,
			})
			if err != nil {
				return err
			}
			fmt.Printf("created %s\n", issue.ID)
			return nil
		},
	}
	create.Flags().StringVar(&body, "body", "", "Issue body")
	create.Flags().StringVar(&priority, "priority", "", "Issue priority")

	closeCmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Close an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, closer, err := dial()
			if err != nil {
				return err
			}
			defer closer()
			return conn.TrxCloseIssue(cmd.Context(), workspace, args[0])
		},
	}

	sync := &cobra.Command{
		Use:   "sync",
		Short: "Sync issues with the workspace remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, closer, err := dial()
			if err != nil {
				return err
			}
			defer closer()
			return conn.TrxSync(cmd.Context(), workspace)
		},
	}

	cmd.AddCommand(list, create, closeCmd, sync)
	return cmd
}
