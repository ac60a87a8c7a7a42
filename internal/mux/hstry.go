package mux

import (
	"context"

	"github.com/byteowlz/oqto-mux/internal/protocol"
)

// HistorySearch queries the backend's shell history index.
func (c *Conn) HistorySearch(ctx context.Context, query string, limit int) ([]protocol.HstryEntry, error) {
	var res protocol.HstryResult
	if err := c.request(ctx, protocol.NewHstryQuery(query, limit), &res); err != nil {
		return nil, err
	}
	return res.Entries, nil
}
