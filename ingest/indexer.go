package ingest

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/frauddesk/fraudqa/common/logger"
	"github.com/frauddesk/fraudqa/embedding"
	"github.com/frauddesk/fraudqa/schema"
	"github.com/frauddesk/fraudqa/vectordb"
)

// Indexer splits documents, embeds the chunks and writes them to the
// vector store. Chunk order within a source is preserved so first-indexed
// tie-breaking at query time is stable across rebuilds.
type Indexer struct {
	Embed    embedding.Provider
	Store    vectordb.VectorStoreProvider
	Splitter *Splitter
	// BatchSize bounds how many chunks go to the embedding API per call.
	BatchSize int
}

// NewIndexer builds an indexer with the default splitter bounds.
func NewIndexer(embed embedding.Provider, store vectordb.VectorStoreProvider) *Indexer {
	return &Indexer{
		Embed:     embed,
		Store:     store,
		Splitter:  NewSplitter(0, -1),
		BatchSize: 64,
	}
}

// IndexDocuments splits, embeds and stores all documents. It returns the
// number of chunks written.
func (ix *Indexer) IndexDocuments(ctx context.Context, docs []Document) (int, error) {
	var chunks []schema.DocumentChunk
	for _, doc := range docs {
		for i, text := range ix.Splitter.Split(doc.Content) {
			chunks = append(chunks, schema.DocumentChunk{
				ID:      fmt.Sprintf("%s-p%d-%d", doc.Source, doc.Page, i),
				Content: text,
				Source:  doc.Source,
				Page:    doc.Page,
			})
		}
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	batch := ix.BatchSize
	if batch <= 0 {
		batch = 64
	}
	for lo := 0; lo < len(chunks); lo += batch {
		hi := lo + batch
		if hi > len(chunks) {
			hi = len(chunks)
		}
		part := chunks[lo:hi]

		texts := make([]string, len(part))
		for i, c := range part {
			texts[i] = c.Content
		}
		vectors, err := ix.Embed.GetEmbeddings(ctx, texts)
		if err != nil {
			return lo, fmt.Errorf("embed chunk batch: %w", err)
		}
		if err := ix.Store.AddChunks(ctx, part, vectors); err != nil {
			return lo, fmt.Errorf("store chunk batch: %w", err)
		}
	}

	logger.Infof("ingest: indexed %d chunk(s) from %d document(s)", len(chunks), len(docs))
	return len(chunks), nil
}

// IndexDir indexes every supported file directly under dir.
func (ix *Indexer) IndexDir(ctx context.Context, dir string) (int, error) {
	docs, err := LoadDir(dir)
	if err != nil {
		return 0, err
	}
	return ix.IndexDocuments(ctx, docs)
}

// ReindexFile replaces the indexed chunks of one file with its current
// content. Stale chunks are deleted first so repeated writes to the same
// file never accumulate duplicates.
func (ix *Indexer) ReindexFile(ctx context.Context, path string) (int, error) {
	docs, err := LoadFile(path)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", path, err)
	}
	seen := map[string]bool{}
	for _, doc := range docs {
		if seen[doc.Source] {
			continue
		}
		seen[doc.Source] = true
		if err := ix.Store.DeleteBySource(ctx, doc.Source); err != nil {
			return 0, fmt.Errorf("delete stale chunks for %s: %w", doc.Source, err)
		}
	}
	return ix.IndexDocuments(ctx, docs)
}

// Watch re-indexes files in dir as they are created or modified. It
// blocks until ctx is cancelled or the watcher fails.
func (ix *Indexer) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Infof("ingest: watching %s for document changes", dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if _, err := ix.ReindexFile(ctx, event.Name); err != nil {
				logger.Errorf("ingest: re-index %s: %v", event.Name, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Errorf("ingest: watcher error: %v", err)
		}
	}
}
