package mux

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/byteowlz/oqto-mux/internal/protocol"
)

// FilesTree fetches a recursive listing rooted at path.
func (c *Conn) FilesTree(ctx context.Context, path string) ([]protocol.FileTreeNode, error) {
	var res protocol.FilesTreeResult
	if err := c.request(ctx, protocol.NewFilesTree(path), &res); err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// FilesRead fetches a file's contents.
func (c *Conn) FilesRead(ctx context.Context, path string) (string, error) {
	var res protocol.FilesReadResult
	if err := c.request(ctx, protocol.NewFilesRead(path), &res); err != nil {
		return "", err
	}
	if res.Truncated {
		return res.Content, fmt.Errorf("read %s: content truncated at %d bytes", path, res.Size)
	}
	return res.Content, nil
}

// FilesWrite replaces a file's contents.
func (c *Conn) FilesWrite(ctx context.Context, path, content string) error {
	var res protocol.FilesOpResult
	if err := c.request(ctx, protocol.NewFilesWrite(path, content), &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("write %s failed", path)
	}
	return nil
}

// FilesList fetches a flat directory listing.
func (c *Conn) FilesList(ctx context.Context, path string) ([]protocol.DirEntry, error) {
	var res protocol.FilesListResult
	if err := c.request(ctx, protocol.NewFilesList(path), &res); err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// FilesStat fetches metadata for one path.
func (c *Conn) FilesStat(ctx context.Context, path string) (json.RawMessage, error) {
	var res protocol.FilesStatResult
	if err := c.request(ctx, protocol.NewFilesStat(path), &res); err != nil {
		return nil, err
	}
	return res.Stat, nil
}

// FilesDelete removes a path.
func (c *Conn) FilesDelete(ctx context.Context, path string, recursive bool) error {
	var res protocol.FilesOpResult
	if err := c.request(ctx, protocol.NewFilesDelete(path, recursive), &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("delete %s failed", path)
	}
	return nil
}

// FilesMkdir creates a directory, parents included.
func (c *Conn) FilesMkdir(ctx context.Context, path string) error {
	var res protocol.FilesOpResult
	if err := c.request(ctx, protocol.NewFilesMkdir(path), &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("create directory %s failed", path)
	}
	return nil
}

// FilesRename renames a path.
func (c *Conn) FilesRename(ctx context.Context, from, to string) error {
	return c.transfer(ctx, protocol.CmdFilesRename, from, to)
}

// FilesCopy copies a path.
func (c *Conn) FilesCopy(ctx context.Context, from, to string) error {
	return c.transfer(ctx, protocol.CmdFilesCopy, from, to)
}

// FilesMove moves a path.
func (c *Conn) FilesMove(ctx context.Context, from, to string) error {
	return c.transfer(ctx, protocol.CmdFilesMove, from, to)
}

func (c *Conn) transfer(ctx context.Context, cmd, from, to string) error {
	var res protocol.FilesTransferResult
	if err := c.request(ctx, protocol.NewFilesTransfer(cmd, from, to), &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%s %s -> %s failed", cmd, from, to)
	}
	return nil
}
