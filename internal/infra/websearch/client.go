// Package websearch fetches and converts external web pages for the
// Research Agent, honoring robots.txt before every request.
package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/temoto/robotstxt"

	apperrors "github.com/wildfireranch/commandcenter/pkg/errors"
)

const (
	userAgent  = "CommandCenterResearchAgent/1.0"
	maxBodyLen = 1 << 20 // 1 MiB
)

// Page is one fetched-and-converted web page.
type Page struct {
	URL     string
	Title   string
	Content string // markdown
}

// Client fetches URLs for the Research Agent's web_fetch tool, caching
// each host's robots.txt and refusing to fetch paths it disallows.
type Client struct {
	http *http.Client

	mu     sync.Mutex
	robots map[string]*robotstxt.RobotsData
}

// NewClient constructs a Client. timeout<=0 uses 30s.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		robots: make(map[string]*robotstxt.RobotsData),
	}
}

// Fetch retrieves rawURL, rejecting it if robots.txt disallows the
// path for userAgent, and converts an HTML response body to markdown.
func (c *Client) Fetch(ctx context.Context, rawURL string) (Page, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Page{}, apperrors.Wrap("invalid_input", "invalid URL: "+err.Error(), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Page{}, apperrors.Wrap("invalid_input", "only http/https URLs are supported", nil)
	}

	allowed, err := c.allowed(ctx, parsed)
	if err != nil {
		return Page{}, apperrors.Wrap("upstream_error", "robots.txt check failed: "+err.Error(), err)
	}
	if !allowed {
		return Page{}, apperrors.Wrap("invalid_input", fmt.Sprintf("robots.txt disallows fetching %s", rawURL), nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, apperrors.Wrap("internal", "failed to build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html;q=1.0, text/plain;q=0.8, */*;q=0.1")

	resp, err := c.http.Do(req)
	if err != nil {
		return Page{}, apperrors.Wrap("upstream_error", "fetch failed: "+err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Page{}, apperrors.Wrap("upstream_error", fmt.Sprintf("fetch returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyLen))
	if err != nil {
		return Page{}, apperrors.Wrap("upstream_error", "failed to read response body: "+err.Error(), err)
	}

	contentType := resp.Header.Get("Content-Type")
	content := string(body)
	if strings.Contains(contentType, "text/html") {
		if md, err := htmltomarkdown.ConvertString(content); err == nil {
			content = md
		}
	}

	return Page{URL: rawURL, Title: extractTitle(string(body)), Content: content}, nil
}

func (c *Client) allowed(ctx context.Context, parsed *url.URL) (bool, error) {
	host := parsed.Scheme + "://" + parsed.Host
	c.mu.Lock()
	data, cached := c.robots[host]
	c.mu.Unlock()
	if cached {
		return data.TestAgent(parsed.Path, userAgent), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		// No reachable robots.txt: fail open, matching the common
		// crawler convention of allowing fetches when the file is
		// absent or the host is unreachable for it specifically.
		return true, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyLen))
	if err != nil {
		return true, nil
	}
	parsedRobots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return true, nil
	}

	c.mu.Lock()
	c.robots[host] = parsedRobots
	c.mu.Unlock()

	return parsedRobots.TestAgent(parsed.Path, userAgent), nil
}

func extractTitle(html string) string {
	lower := strings.ToLower(html)
	start := strings.Index(lower, "<title>")
	if start == -1 {
		return ""
	}
	start += len("<title>")
	end := strings.Index(lower[start:], "</title>")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(html[start : start+end])
}
