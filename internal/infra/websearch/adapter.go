package websearch

import (
	"context"

	"github.com/wildfireranch/commandcenter/internal/domain/agenttools"
)

// ToolAdapter satisfies agenttools.WebFetcher, translating Client's
// Page into the domain-level WebPage shape the web_fetch tool returns.
type ToolAdapter struct {
	client *Client
}

// NewToolAdapter wraps a Client for use as an agenttools.WebFetcher.
func NewToolAdapter(client *Client) ToolAdapter {
	return ToolAdapter{client: client}
}

func (a ToolAdapter) Fetch(ctx context.Context, url string) (agenttools.WebPage, error) {
	page, err := a.client.Fetch(ctx, url)
	if err != nil {
		return agenttools.WebPage{}, err
	}
	return agenttools.WebPage{URL: page.URL, Title: page.Title, Content: page.Content}, nil
}
