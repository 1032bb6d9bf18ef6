package docsource_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wildfireranch/commandcenter/internal/infra/docsource"
	"github.com/wildfireranch/commandcenter/pkg/tokenizer"
)

func TestFixedChunker_EmptyTextProducesNoChunks(t *testing.T) {
	c := docsource.NewFixedChunker(50, 0, tokenizer.New())
	require.Empty(t, c.Chunk("   "))
}

func TestFixedChunker_SplitsLongTextIntoMultipleBudgetedChunks(t *testing.T) {
	counter := tokenizer.New()
	c := docsource.NewFixedChunker(20, 0, counter)
	text := strings.Repeat("battery inverter solar panel charge controller grid tie ", 20)

	chunks := c.Chunk(text)
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		require.Equal(t, i, chunk.Index)
		require.LessOrEqual(t, chunk.TokenCount, 25) // budget plus small overshoot tolerance
	}
}

func TestFixedChunker_OverlapCarriesTailIntoNextChunk(t *testing.T) {
	counter := tokenizer.New()
	c := docsource.NewFixedChunker(15, 5, counter)
	text := strings.Repeat("alpha bravo charlie delta echo foxtrot golf hotel ", 10)

	chunks := c.Chunk(text)
	require.Greater(t, len(chunks), 1)
	tail := strings.TrimSpace(counter.TailTokens(chunks[0].Text, 5))
	require.True(t, strings.HasPrefix(chunks[1].Text, tail))
}

func TestFixedChunker_SingleShortParagraphYieldsOneChunk(t *testing.T) {
	c := docsource.NewFixedChunker(512, 0, tokenizer.New())
	chunks := c.Chunk("the battery is at eighty percent charge")
	require.Len(t, chunks, 1)
	require.Equal(t, 0, chunks[0].Index)
}
