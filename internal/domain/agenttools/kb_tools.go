package agenttools

import (
	"context"
	"encoding/json"

	"github.com/wildfireranch/commandcenter/internal/domain/kb"
)

// Embedder produces the embedding used to run a kb_search query.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Citation is one ranked chunk returned by kb_search, carrying enough
// metadata for a reasoner to cite its source.
type Citation struct {
	Title      string  `json:"title"`
	FolderPath string  `json:"folder_path"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

type kbSearchArgs struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

const defaultKBSearchK = 5

// NewKBSearchTool returns the kb_search(query, k?) tool: embeds query
// and runs a C1 similarity search, rendering hits as citation tuples.
func NewKBSearchTool(svc *kb.Service, embedder Embedder) Tool {
	return Tool{
		Name:        "kb_search",
		Description: "Searches the knowledge base for chunks relevant to query, returning ranked citations.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "search text"},
				"k":     map[string]any{"type": "integer", "description": "number of results to return"},
			},
			"required": []string{"query"},
		},
		Invoke: func(ctx context.Context, raw json.RawMessage) Result {
			var args kbSearchArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return Fail("invalid arguments: " + err.Error())
			}
			if args.Query == "" {
				return Fail("query cannot be empty")
			}
			k := args.K
			if k <= 0 {
				k = defaultKBSearchK
			}
			embedding, err := embedder.Embed(ctx, args.Query)
			if err != nil {
				return Fail("embedding failed: " + err.Error())
			}
			results, err := svc.Search(ctx, embedding, k, kb.ListFilter{})
			if err != nil {
				return Fail("search failed: " + err.Error())
			}
			citations := make([]Citation, 0, len(results))
			for _, r := range results {
				citations = append(citations, Citation{
					Title:      r.Title,
					FolderPath: r.FolderPath,
					Text:       r.Text,
					Similarity: r.Similarity,
				})
			}
			return Ok(citations)
		},
	}
}
