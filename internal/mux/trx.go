package mux

import (
	"context"
	"fmt"

	"github.com/byteowlz/oqto-mux/internal/protocol"
)

// TrxIssues lists a workspace's tracked issues.
func (c *Conn) TrxIssues(ctx context.Context, workspacePath string) ([]protocol.Issue, error) {
	var res protocol.TrxIssues
	if err := c.request(ctx, protocol.NewTrxList(workspacePath), &res); err != nil {
		return nil, err
	}
	return res.Issues, nil
}

// TrxCreateIssue files a new issue and returns it.
func (c *Conn) TrxCreateIssue(ctx context.Context, workspacePath string, input protocol.TrxIssueInput) (*protocol.Issue, error) {
	var res protocol.TrxAck
	if err := c.request(ctx, protocol.NewTrxCreate(workspacePath, input), &res); err != nil {
		return nil, err
	}
	if res.Issue == nil {
		return nil, fmt.Errorf("create issue: backend returned no issue")
	}
	return res.Issue, nil
}

// TrxUpdateIssue applies a partial update to an issue.
func (c *Conn) TrxUpdateIssue(ctx context.Context, workspacePath, issueID string, update protocol.TrxIssueUpdate) (*protocol.Issue, error) {
	var res protocol.TrxAck
	if err := c.request(ctx, protocol.NewTrxUpdate(workspacePath, issueID, update), &res); err != nil {
		return nil, err
	}
	return res.Issue, nil
}

// TrxCloseIssue closes an issue.
func (c *Conn) TrxCloseIssue(ctx context.Context, workspacePath, issueID string) error {
	var res protocol.TrxAck
	return c.request(ctx, protocol.NewTrxClose(workspacePath, issueID), &res)
}

// TrxSync pushes the workspace's issue state to its remote.
func (c *Conn) TrxSync(ctx context.Context, workspacePath string) error {
	var res protocol.TrxAck
	return c.request(ctx, protocol.NewTrxSync(workspacePath), &res)
}
