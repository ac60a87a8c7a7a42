package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/byteowlz/oqto-mux/internal/protocol"
)

func filesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Workspace file operations",
	}
	cmd.AddCommand(
		filesTreeCmd(),
		filesLsCmd(),
		filesCatCmd(),
		filesWriteCmd(),
		filesRmCmd(),
		filesMkdirCmd(),
		filesMvCmd(),
		filesCpCmd(),
	)
	return cmd
}

func filesTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <path>",
		Short: "Recursive listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, closer, err := dial()
			if err != nil {
				return err
			}
			defer closer()

			entries, err := conn.FilesTree(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printTree(entries, 0)
			return nil
		},
	}
}

func printTree(nodes []protocol.FileTreeNode, depth int) {
	for _, n := range nodes {
		name := n.Name
		if n.Type == "directory" {
			name += "/"
		}
		fmt.Printf("%s%s\n", strings.Repeat("  ", depth), name)
		printTree(n.Children, depth+1)
	}
}

func filesLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <path>",
		Short: "Flat directory listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, closer, err := dial()
			if err != nil {
				return err
			}
			defer closer()

			entries, err := conn.FilesList(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, e := range entries {
				name := e.Name
				if e.IsDir {
					name += "/"
				}
				fmt.Println(name)
			}
			return nil
		},
	}
}

func filesCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, closer, err := dial()
			if err != nil {
				return err
			}
			defer closer()

			content, err := conn.FilesRead(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Print(content)
			return nil
		},
	}
}

func filesWriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write <path> [file]",
		Short: "Write a file from an argument or stdin",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var content []byte
			var err error
			if len(args) == 2 {
				content, err = os.ReadFile(args[1])
			} else {
				content, err = os.ReadFile("/dev/stdin")
			}
			if err != nil {
				return err
			}

			conn, _, closer, err := dial()
			if err != nil {
				return err
			}
			defer closer()
			return conn.FilesWrite(cmd.Context(), args[0], string(content))
		},
	}
}

func filesRmCmd() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, closer, err := dial()
			if err != nil {
				return err
			}
			defer closer()
			return conn.FilesDelete(cmd.Context(), args[0], recursive)
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Delete directories recursively")
	return cmd
}

func filesMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, closer, err := dial()
			if err != nil {
				return err
			}
			defer closer()
			return conn.FilesMkdir(cmd.Context(), args[0])
		},
	}
}

func filesMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <from> <to>",
		Short: "Move a path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, closer, err := dial()
			if err != nil {
				return err
			}
			defer closer()
			return conn.FilesMove(cmd.Context(), args[0], args[1])
		},
	}
}

func filesCpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cp <from> <to>",
		Short: "Copy a path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, closer, err := dial()
			if err != nil {
				return err
			}
			defer closer()
			return conn.FilesCopy(cmd.Context(), args[0], args[1])
		},
	}
}
