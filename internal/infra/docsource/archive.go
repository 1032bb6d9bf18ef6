package docsource

import (
	"context"
	"log/slog"

	"github.com/wildfireranch/commandcenter/internal/domain/docsync"
)

// Archive is the subset of blobstore.Store an ArchivingSource needs,
// kept as a local interface so this package never imports minio
// directly.
type Archive interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) error
}

// ArchivingSource decorates a docsync.Source, mirroring every fetched
// document's raw text to object storage once it crosses thresholdBytes
// — the spec's "Drive-sync raw-blob cache" for oversized documents,
// independent of the Vector Store's chunked/embedded copy.
type ArchivingSource struct {
	docsync.Source
	archive        Archive
	thresholdBytes int
	logger         *slog.Logger
}

// NewArchivingSource wraps inner so every Fetch beyond thresholdBytes
// is also archived. thresholdBytes<=0 archives everything.
func NewArchivingSource(inner docsync.Source, archive Archive, thresholdBytes int, logger *slog.Logger) *ArchivingSource {
	return &ArchivingSource{
		Source:         inner,
		archive:        archive,
		thresholdBytes: thresholdBytes,
		logger:         logger.With("component", "docsource.archive"),
	}
}

// Fetch delegates to the wrapped Source, then archives the result when
// it crosses the configured size threshold. Archive failures are
// logged, not propagated — the sync itself must not fail because the
// raw-blob mirror is unavailable.
func (a *ArchivingSource) Fetch(ctx context.Context, file docsync.SourceFile) (string, error) {
	text, err := a.Source.Fetch(ctx, file)
	if err != nil {
		return "", err
	}
	if a.thresholdBytes > 0 && len(text) < a.thresholdBytes {
		return text, nil
	}
	if err := a.archive.Put(ctx, file.ExternalID, []byte(text), file.Mime); err != nil {
		a.logger.Warn("failed to archive oversized document", "error", err, "external_id", file.ExternalID)
	}
	return text, nil
}

var _ docsync.Source = (*ArchivingSource)(nil)
