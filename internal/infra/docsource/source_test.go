package docsource_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wildfireranch/commandcenter/internal/infra/docsource"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLocalSource_EnumerateRespectsIncludeAndExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "system/notes.md", "# Title\n\nbody text")
	writeFile(t, root, "system/ignore.tmp", "skip me")
	writeFile(t, root, "hardware/specs.md", "inverter specs")

	src := docsource.NewLocalSource(root, []string{"**/*.md"}, []string{"**/*.tmp"}, 0, testLogger())
	files, err := src.Enumerate(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "hardware/specs.md", files[0].ExternalID)
	require.Equal(t, "system/notes.md", files[1].ExternalID)
	require.Equal(t, "hardware", files[0].Category)
	require.Equal(t, "system", files[1].Category)
}

func TestLocalSource_FetchConvertsMarkdownToText(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "# Heading\n\nSome **bold** text.")

	src := docsource.NewLocalSource(root, nil, nil, 0, testLogger())
	files, err := src.Enumerate(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)

	text, err := src.Fetch(context.Background(), files[0])
	require.NoError(t, err)
	require.Contains(t, text, "Heading")
	require.Contains(t, text, "Some")
	require.NotContains(t, text, "**")
	require.NotContains(t, text, "#")
}

func TestLocalSource_SkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.md", "fits")
	big := make([]byte, 2*1024*1024)
	writeFile(t, root, "big.md", string(big))

	src := docsource.NewLocalSource(root, nil, nil, 1, testLogger())
	files, err := src.Enumerate(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "small.md", files[0].ExternalID)
}

func TestLocalSource_PreviewSummarizesFolders(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "system/a.md", "a")
	writeFile(t, root, "hardware/b.txt", "b")

	src := docsource.NewLocalSource(root, nil, nil, 0, testLogger())
	preview, err := src.Preview(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, preview.FileCount)
	require.Equal(t, 2, preview.DocLikeCount)
	require.ElementsMatch(t, []string{"system", "hardware"}, preview.Folders)
}
