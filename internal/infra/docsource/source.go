// Package docsource adapts a local knowledge-base directory tree to
// docsync.Source, with a fixed-window chunker and markdown normalizer
// as supporting adapters for the same sync pipeline.
package docsource

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/wildfireranch/commandcenter/internal/domain/docsync"
	apperrors "github.com/wildfireranch/commandcenter/pkg/errors"
)

// categoryFolders maps a source-tree top folder to the category tag
// carried on tier-1 context files, per the spec's split-by-category
// guidance for oversized system context (SYSTEM section budget splits
// along folders such as system/ and hardware/).
var categoryFolders = map[string]string{
	"system":   "system",
	"hardware": "hardware",
	"context":  "system",
	"docs":     "docs",
	"research": "docs",
}

// LocalSource walks a local directory tree, grounded on
// vvoland-cagent's pkg/fsx.CollectFiles glob-matching approach (using
// the same bmatcuk/doublestar/v4 dependency) but adapted to the
// docsync.Source contract: enumerate with stable ordering, fetch with
// markdown-to-text conversion, and preview without fetching content.
type LocalSource struct {
	root         string
	includeGlobs []string
	excludeGlobs []string
	maxFileBytes int64
	logger       *slog.Logger
}

// NewLocalSource constructs a LocalSource rooted at root.
func NewLocalSource(root string, includeGlobs, excludeGlobs []string, maxFileMB int, logger *slog.Logger) *LocalSource {
	if maxFileMB <= 0 {
		maxFileMB = 20
	}
	return &LocalSource{
		root:         filepath.Clean(root),
		includeGlobs: includeGlobs,
		excludeGlobs: excludeGlobs,
		maxFileBytes: int64(maxFileMB) * 1024 * 1024,
		logger:       logger.With("component", "docsource.local"),
	}
}

// Enumerate recursively lists candidate files in deterministic
// (lexical, relative-path) order, skipping excluded and oversized
// files.
func (s *LocalSource) Enumerate(ctx context.Context) ([]docsync.SourceFile, error) {
	var files []docsync.SourceFile

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && s.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.included(rel) || s.excluded(rel) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		if info.Size() > s.maxFileBytes {
			s.logger.Warn("skipping oversized file", "path", rel, "size", info.Size())
			return nil
		}
		folder := filepath.ToSlash(filepath.Dir(rel))
		if folder == "." {
			folder = ""
		}
		files = append(files, docsync.SourceFile{
			ExternalID: rel,
			Title:      strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel)),
			FolderPath: folder,
			Mime:       mimeForExt(filepath.Ext(rel)),
			Category:   categoryFor(folder),
			ModifiedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap("upstream", "failed to walk document source tree", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].ExternalID < files[j].ExternalID })
	return files, nil
}

// Fetch reads a file and converts it to plain text per its mime kind.
func (s *LocalSource) Fetch(_ context.Context, file docsync.SourceFile) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(file.ExternalID))
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.Wrap("upstream", "failed to read document", err)
	}
	if file.Mime == "text/markdown" {
		return markdownToText(raw), nil
	}
	return strings.TrimSpace(string(raw)), nil
}

// Preview summarizes the tree: first-level folders, file count, and a
// doc-like (markdown/text) count, without fetching content.
func (s *LocalSource) Preview(ctx context.Context) (docsync.Preview, error) {
	files, err := s.Enumerate(ctx)
	if err != nil {
		return docsync.Preview{}, err
	}

	folderSet := make(map[string]bool)
	preview := docsync.Preview{FileCount: len(files)}
	for _, f := range files {
		if f.FolderPath != "" {
			top := strings.SplitN(f.FolderPath, "/", 2)[0]
			folderSet[top] = true
		}
		if f.Mime == "text/markdown" || f.Mime == "text/plain" {
			preview.DocLikeCount++
		}
	}
	for folder := range folderSet {
		preview.Folders = append(preview.Folders, folder)
	}
	sort.Strings(preview.Folders)
	return preview, nil
}

func (s *LocalSource) included(rel string) bool {
	if len(s.includeGlobs) == 0 {
		return true
	}
	for _, pattern := range s.includeGlobs {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}

func (s *LocalSource) excluded(rel string) bool {
	for _, pattern := range s.excludeGlobs {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}

func categoryFor(folder string) string {
	top := strings.SplitN(folder, "/", 2)[0]
	return categoryFolders[top]
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}

var _ docsync.Source = (*LocalSource)(nil)
