package docsource

import (
	"strings"
	"unicode/utf8"

	"github.com/wildfireranch/commandcenter/internal/domain/docsync"
	"github.com/wildfireranch/commandcenter/pkg/tokenizer"
)

// FixedChunker splits text into roughly even, token-budgeted segments
// with optional tail overlap, adapted from the teacher's
// uploadask/chunker/simple.go (SimpleChunker) to share the module-wide
// pkg/tokenizer.Counter instead of holding its own tiktoken encoder.
type FixedChunker struct {
	MaxTokens int
	Overlap   int
	counter   *tokenizer.Counter
}

// NewFixedChunker constructs a chunker with defaults matching the
// spec's "fixed target (e.g., 512 tokens) with no overlap" guidance
// for Document Sync; other callers may set Overlap > 0.
func NewFixedChunker(maxTokens, overlap int, counter *tokenizer.Counter) *FixedChunker {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	if overlap < 0 {
		overlap = 0
	}
	return &FixedChunker{MaxTokens: maxTokens, Overlap: overlap, counter: counter}
}

func (c *FixedChunker) Chunk(text string) []docsync.ChunkCandidate {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	maxRunes := c.MaxTokens * 5 // guard against token-count inflation on pathological "words"
	parts := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' })

	var (
		current      strings.Builder
		currentRunes int
		index        int
		out          []docsync.ChunkCandidate
	)

	flush := func() {
		content := strings.TrimSpace(current.String())
		if content == "" {
			current.Reset()
			currentRunes = 0
			return
		}
		out = append(out, docsync.ChunkCandidate{Index: index, Text: content, TokenCount: c.counter.Count(content)})
		index++
		current.Reset()
		currentRunes = 0
	}

	for _, part := range parts {
		for _, word := range strings.Fields(part) {
			wordRunes := utf8.RuneCountInString(word)
			if wordRunes > maxRunes {
				for _, piece := range splitLongWord(word, maxRunes) {
					if currentRunes+utf8.RuneCountInString(piece) > maxRunes {
						flush()
					}
					current.WriteString(piece)
					current.WriteString(" ")
					currentRunes += utf8.RuneCountInString(piece) + 1
				}
				continue
			}
			if currentRunes+wordRunes > maxRunes || c.counter.Count(current.String()+word) >= c.MaxTokens {
				flush()
				if c.Overlap > 0 && len(out) > 0 {
					tail := c.counter.TailTokens(out[len(out)-1].Text, c.Overlap) + " "
					current.WriteString(tail)
					currentRunes = utf8.RuneCountInString(tail)
				}
			}
			current.WriteString(word)
			current.WriteString(" ")
			currentRunes += wordRunes + 1
		}
		current.WriteString("\n")
		currentRunes++
	}
	if current.Len() > 0 {
		flush()
	}
	return out
}

func splitLongWord(word string, maxRunes int) []string {
	if maxRunes <= 0 || utf8.RuneCountInString(word) <= maxRunes {
		return []string{word}
	}
	runes := []rune(word)
	var parts []string
	for i := 0; i < len(runes); i += maxRunes {
		end := i + maxRunes
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[i:end]))
	}
	return parts
}

var _ docsync.Chunker = (*FixedChunker)(nil)
