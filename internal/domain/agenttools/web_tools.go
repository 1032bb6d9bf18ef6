package agenttools

import (
	"context"
	"encoding/json"
)

// WebPage is one fetched-and-converted external web page, the result
// shape the Research Agent's web_fetch tool returns.
type WebPage struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// WebFetcher retrieves and converts one external URL, honoring
// robots.txt. Satisfied by *websearch.ToolAdapter, which wraps
// *websearch.Client.
type WebFetcher interface {
	Fetch(ctx context.Context, url string) (WebPage, error)
}

type webFetchArgs struct {
	URL string `json:"url"`
}

// NewWebFetchTool returns the web_fetch(url) tool: fetches an external
// page the knowledge base doesn't cover and returns it as markdown,
// letting the Research Agent cite sources outside the synced document
// tree.
func NewWebFetchTool(fetcher WebFetcher) Tool {
	return Tool{
		Name:        WebFetch,
		Description: "Fetches an external web page and returns its content as markdown, honoring robots.txt.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{"type": "string", "description": "the page to fetch"},
			},
			"required": []string{"url"},
		},
		Invoke: func(ctx context.Context, raw json.RawMessage) Result {
			var args webFetchArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return Fail("invalid arguments: " + err.Error())
			}
			if args.URL == "" {
				return Fail("url cannot be empty")
			}
			page, err := fetcher.Fetch(ctx, args.URL)
			if err != nil {
				return Fail(err.Error())
			}
			return Ok(WebPage{URL: page.URL, Title: page.Title, Content: page.Content})
		},
	}
}
