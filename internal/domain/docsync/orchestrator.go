package docsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/wildfireranch/commandcenter/internal/domain/kb"
	apperrors "github.com/wildfireranch/commandcenter/pkg/errors"
	"github.com/wildfireranch/commandcenter/pkg/tokenizer"
)

// ErrSyncInProgress is returned when Sync is invoked while a run is
// already active, mirroring the "at most one non-terminal SyncRun"
// invariant.
var ErrSyncInProgress = apperrors.Wrap("capacity", "a sync is already in progress", nil)

// Orchestrator coordinates document synchronisation: enumerate,
// fetch/convert, chunk, embed, upsert, and reconcile deletions.
// Grounded on custodia-labs-sercha-cli's SyncOrchestrator (enumerate
// -> normalise -> post-process -> embed -> save -> index pipeline,
// activeSyncs-guard pattern) and the teacher's uploadask.Service
// per-document status transitions and failure isolation.
type Orchestrator struct {
	source   Source
	store    kb.Store
	chunker  Chunker
	embedder Embedder
	runs     RunStore
	counter  *tokenizer.Counter
	maxTokens int
	logger   *slog.Logger

	running atomic.Bool
}

// Config bounds the orchestrator's per-document behavior.
type Config struct {
	MaxTokensPerDocument int
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(source Source, store kb.Store, chunker Chunker, embedder Embedder, runs RunStore, counter *tokenizer.Counter, cfg Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		source:    source,
		store:     store,
		chunker:   chunker,
		embedder:  embedder,
		runs:      runs,
		counter:   counter,
		maxTokens: cfg.MaxTokensPerDocument,
		logger:    logger.With("component", "docsync.orchestrator"),
	}
}

// Preview summarizes the source tree without syncing.
func (o *Orchestrator) Preview(ctx context.Context) (Preview, error) {
	return o.source.Preview(ctx)
}

// Sync runs one synchronisation and streams progress events on the
// returned channel, which is closed after a terminal event. Only one
// sync may be active at a time.
func (o *Orchestrator) Sync(ctx context.Context, mode Mode, trigger string) (<-chan Event, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}

	events := make(chan Event, 16)
	go func() {
		defer o.running.Store(false)
		defer close(events)
		o.run(ctx, mode, trigger, events)
	}()
	return events, nil
}

func (o *Orchestrator) run(ctx context.Context, mode Mode, trigger string, events chan<- Event) {
	events <- Event{Kind: EventStarting}

	runID, err := o.runs.Create(ctx, Run{Kind: mode, Status: RunStatusRunning, StartedAt: time.Now(), Trigger: trigger})
	if err != nil {
		o.logger.Error("failed to record sync run", "error", err)
	}

	events <- Event{Kind: EventScanning}
	files, err := o.source.Enumerate(ctx)
	if err != nil {
		events <- Event{Kind: EventFailed, Error: err.Error()}
		_ = o.runs.Complete(ctx, runID, RunStatusFailed, 0, 0, 0, err.Error())
		return
	}

	seen := make(map[string]bool, len(files))
	processed, updated, failed := 0, 0, 0

	for i, file := range files {
		select {
		case <-ctx.Done():
			_ = o.runs.Complete(ctx, runID, RunStatusPartial, processed, updated, failed, "cancelled")
			events <- Event{Kind: EventFailed, Error: "sync cancelled"}
			return
		default:
		}

		seen[file.ExternalID] = true
		events <- Event{Kind: EventProcessing, Current: i + 1, Total: len(files), CurrentFile: file.Title}

		didUpdate, err := o.processOne(ctx, mode, file)
		if err != nil {
			failed++
			o.logger.Warn("document sync failed", "external_id", file.ExternalID, "error", err)
			continue
		}
		if didUpdate {
			updated++
		}
		processed++
	}

	reconcileFailed := o.reconcileDeletions(ctx, seen)
	failed += reconcileFailed

	status := RunStatusCompleted
	if failed > 0 {
		status = RunStatusPartial
	}
	_ = o.runs.Complete(ctx, runID, status, processed, updated, failed, "")
	events <- Event{Kind: EventCompleted, Processed: processed, Updated: updated, Failed: failed}
}

// processOne fetches, chunks, embeds, and upserts a single file. It
// returns (updated, err); updated is false for incremental syncs that
// skip an unchanged file.
func (o *Orchestrator) processOne(ctx context.Context, mode Mode, file SourceFile) (bool, error) {
	if mode == ModeIncremental {
		docs, err := o.store.ListDocuments(ctx, kb.ListFilter{})
		if err == nil {
			for _, d := range docs {
				if d.ExternalID == file.ExternalID && !file.ModifiedAt.After(d.LastSynced) {
					return false, nil
				}
			}
		}
	}

	text, err := o.source.Fetch(ctx, file)
	if err != nil {
		return false, fmt.Errorf("fetch: %w", err)
	}

	tokenCount := o.counter.Count(text)
	if o.maxTokens > 0 && tokenCount > o.maxTokens {
		return false, fmt.Errorf("document exceeds max token limit: %d > %d", tokenCount, o.maxTokens)
	}

	candidates := o.chunker.Chunk(text)
	if len(candidates) == 0 {
		return false, fmt.Errorf("document produced zero chunks")
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	embeddings, err := o.embedder.Embed(ctx, texts)
	if err != nil {
		return false, fmt.Errorf("embed: %w", err)
	}
	if len(embeddings) != len(candidates) {
		return false, fmt.Errorf("embedding count mismatch: got %d want %d", len(embeddings), len(candidates))
	}

	docID, err := o.store.UpsertDocument(ctx, kb.UpsertDocumentInput{
		ExternalID:    file.ExternalID,
		Title:         file.Title,
		FolderPath:    file.FolderPath,
		Mime:          file.Mime,
		FullText:      text,
		TokenCount:    tokenCount,
		Category:      file.Category,
		IsContextFile: file.Category != "",
	})
	if err != nil {
		return false, fmt.Errorf("upsert document: %w", err)
	}

	chunks := make([]kb.ChunkInput, len(candidates))
	for i, c := range candidates {
		chunks[i] = kb.ChunkInput{Index: c.Index, Text: c.Text, TokenCount: c.TokenCount, Embedding: embeddings[i]}
	}
	if err := o.store.ReplaceChunks(ctx, docID, chunks); err != nil {
		return false, fmt.Errorf("replace chunks: %w", err)
	}
	return true, nil
}

// reconcileDeletions removes any stored document whose external id
// was not present in the current enumeration.
func (o *Orchestrator) reconcileDeletions(ctx context.Context, seen map[string]bool) int {
	docs, err := o.store.ListDocuments(ctx, kb.ListFilter{})
	if err != nil {
		o.logger.Warn("failed to list documents for reconciliation", "error", err)
		return 0
	}
	failed := 0
	for _, d := range docs {
		if seen[d.ExternalID] {
			continue
		}
		if err := o.store.DeleteDocument(ctx, d.ExternalID); err != nil {
			o.logger.Warn("failed to delete stale document", "external_id", d.ExternalID, "error", err)
			failed++
		}
	}
	return failed
}
