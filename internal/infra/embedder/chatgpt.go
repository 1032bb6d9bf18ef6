// Package embedder adapts LLM embedding providers to docsync.Embedder.
package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wildfireranch/commandcenter/internal/domain/docsync"
	"github.com/wildfireranch/commandcenter/internal/infra/llm/chatgpt"
	"github.com/wildfireranch/commandcenter/pkg/tokenizer"
)

const maxBatchTokens = 200_000 // stay well below provider's request cap

// ChatGPTEmbedder calls an OpenAI-compatible embeddings API, adapted
// from the teacher's uploadask/embedder/chatgpt.go to share
// pkg/tokenizer.Counter instead of a hand-rolled rune-count estimate.
type ChatGPTEmbedder struct {
	client  *chatgpt.Client
	model   string
	counter *tokenizer.Counter
	logger  *slog.Logger
}

// NewChatGPTEmbedder constructs an embedder backed by the ChatGPT client.
func NewChatGPTEmbedder(client *chatgpt.Client, model string, counter *tokenizer.Counter, logger *slog.Logger) *ChatGPTEmbedder {
	return &ChatGPTEmbedder{
		client:  client,
		model:   strings.TrimSpace(model),
		counter: counter,
		logger:  logger.With("component", "embedder.chatgpt"),
	}
}

// Embed requests embeddings for the given texts, batching calls so
// request bodies stay under the provider's token cap.
func (e *ChatGPTEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var (
		out         [][]float32
		batch       []string
		batchTokens int
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		resp, err := e.client.CreateEmbedding(ctx, chatgpt.EmbeddingRequest{Model: e.model, Input: batch})
		if err != nil {
			return fmt.Errorf("create embedding: %w", err)
		}
		for _, item := range resp.Data {
			vec := make([]float32, len(item.Embedding))
			copy(vec, item.Embedding)
			out = append(out, vec)
		}
		if len(resp.Data) != len(batch) {
			e.logger.Warn("embedding result count mismatch", "expected", len(batch), "got", len(resp.Data))
		}
		batch = batch[:0]
		batchTokens = 0
		return nil
	}

	for _, text := range texts {
		tokens := e.counter.Count(text)
		if tokens > maxBatchTokens {
			return nil, fmt.Errorf("text too large for embedding request: estimated tokens=%d", tokens)
		}
		if batchTokens+tokens > maxBatchTokens && len(batch) > 0 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		batch = append(batch, text)
		batchTokens += tokens
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

var _ docsync.Embedder = (*ChatGPTEmbedder)(nil)
