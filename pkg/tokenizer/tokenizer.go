// Package tokenizer provides a single shared token counter so chunking,
// context assembly, and classification budgets all agree on what a
// "token" costs.
package tokenizer

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens for a fixed encoding, falling back to a crude
// whitespace estimate when the encoding table can't be loaded (e.g. no
// network access to fetch the BPE ranks on first use).
type Counter struct {
	enc *tiktoken.Tiktoken
}

// New constructs a Counter using the cl100k_base encoding.
func New() *Counter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &Counter{}
	}
	return &Counter{enc: enc}
}

// Count returns the token length of text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.enc != nil {
		return len(c.enc.Encode(text, nil, nil))
	}
	return len(strings.Fields(text))
}

// Truncate trims text to at most limit tokens, returning the trimmed
// text and whether truncation occurred.
func (c *Counter) Truncate(text string, limit int) (string, bool) {
	if limit <= 0 || text == "" {
		return text, false
	}
	if c.enc != nil {
		ids := c.enc.Encode(text, nil, nil)
		if len(ids) <= limit {
			return text, false
		}
		return c.enc.Decode(ids[:limit]), true
	}
	words := strings.Fields(text)
	if len(words) <= limit {
		return text, false
	}
	return strings.Join(words[:limit], " "), true
}

// TailTokens returns the last limit tokens of text, used to carry
// overlap between adjacent chunks.
func (c *Counter) TailTokens(text string, limit int) string {
	if limit <= 0 || text == "" {
		return ""
	}
	if c.enc != nil {
		ids := c.enc.Encode(text, nil, nil)
		if len(ids) <= limit {
			return text
		}
		return c.enc.Decode(ids[len(ids)-limit:])
	}
	words := strings.Fields(text)
	if len(words) <= limit {
		return text
	}
	return strings.Join(words[len(words)-limit:], " ")
}
