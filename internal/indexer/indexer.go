// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package indexer splits corpus documents into overlapping chunks and loads
// them into the vector index. Indexing is not transactional: chunks stored
// before a failure stay stored, since losing a few chunks degrades recall
// rather than correctness.
package indexer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yingkitw/anycli/internal/embed"
	"github.com/yingkitw/anycli/internal/vectorindex"
	"github.com/yingkitw/anycli/pkg/types"
)

// embedConcurrency bounds parallel chunk embedding per document.
const embedConcurrency = 4

// Catalog records which document versions the vector index was built from.
// Implemented by the docstore; nil disables cataloging and incremental skip.
type Catalog interface {
	ModTime(ctx context.Context, docID string) (string, bool, error)
	ChunkCount(ctx context.Context, docID string) (int, error)
	ReplaceDocument(ctx context.Context, doc types.Document, modTime string, chunks []string) error
}

// IndexingError reports a failed document index. Chunks stored before the
// failure are retained.
type IndexingError struct {
	DocID   string
	Indexed int // chunks already in the vector index
	Err     error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("indexing document %s: %v (%d chunks retained)", e.DocID, e.Err, e.Indexed)
}

func (e *IndexingError) Unwrap() error { return e.Err }

// Indexer embeds document chunks and upserts them into a vector index.
type Indexer struct {
	embedder embed.Embedder
	index    *vectorindex.Index
	catalog  Catalog // may be nil
}

// New returns an indexer writing to idx. catalog may be nil.
func New(embedder embed.Embedder, idx *vectorindex.Index, catalog Catalog) *Indexer {
	return &Indexer{embedder: embedder, index: idx, catalog: catalog}
}

// ChunkText splits text into chunks of at most size characters, consecutive
// chunks sharing exactly overlap characters. The final chunk may be shorter
// and is kept whenever non-empty. Counts are in runes, not bytes.
func ChunkText(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", overlap, size)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	stride := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// Index chunks, embeds, and upserts one document. It returns the number of
// chunks stored. Chunk records carry the document's metadata plus "doc" and
// "chunk" keys; record identifiers are docID-seq so re-indexing replaces in
// place. On an embedding failure the chunks embedded so far are still
// stored and an *IndexingError reports the count.
func (ix *Indexer) Index(ctx context.Context, doc types.Document, cfg types.IndexingConfig) (int, error) {
	chunks, err := ChunkText(doc.Content, defaultSize(cfg), defaultOverlap(cfg))
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors := make([][]float32, len(chunks))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			vec, err := ix.embedder.Embed(chunk)
			if err != nil {
				return fmt.Errorf("embedding chunk %d: %w", i, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	embedErr := g.Wait()

	// Store the contiguous prefix of successfully embedded chunks even when
	// a later chunk failed.
	stored := 0
	for i, vec := range vectors {
		if vec == nil {
			break
		}
		rec := vectorindex.Record{
			ID:        chunkID(doc.ID, i),
			Embedding: vec,
			Text:      chunks[i],
			Metadata:  chunkMetadata(doc, i),
		}
		if err := ix.index.Upsert(rec); err != nil {
			return stored, &IndexingError{DocID: doc.ID, Indexed: stored, Err: err}
		}
		stored++
	}

	if embedErr != nil {
		return stored, &IndexingError{DocID: doc.ID, Indexed: stored, Err: embedErr}
	}

	return stored, nil
}

func chunkID(docID string, seq int) string {
	return fmt.Sprintf("%s-%04d", docID, seq)
}

func chunkMetadata(doc types.Document, seq int) map[string]string {
	md := make(map[string]string, len(doc.Metadata)+2)
	for k, v := range doc.Metadata {
		md[k] = v
	}
	md["doc"] = doc.ID
	md["chunk"] = fmt.Sprintf("%d", seq)
	return md
}

// CorpusDoc is a document read from the corpus directory together with its
// file modification time, used for incremental skip.
type CorpusDoc struct {
	types.Document
	ModTime string
}

// IngestSummary holds counts from a corpus indexing run.
type IngestSummary struct {
	Indexed int
	Skipped int
	Failed  int
}

// Total returns the number of documents processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Skipped + s.Failed
}

// IndexAll processes a corpus, skipping documents whose recorded mod time in
// the catalog matches, and writes per-document progress to w. A document that
// fails is reported and counted; the run continues.
func (ix *Indexer) IndexAll(ctx context.Context, docs []CorpusDoc, cfg types.IndexingConfig, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	for _, cd := range docs {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if ix.catalog != nil {
			stored, ok, err := ix.catalog.ModTime(ctx, cd.ID)
			if err != nil {
				return summary, err
			}
			if ok && stored == cd.ModTime {
				fmt.Fprintf(w, "skipped %s\n", cd.ID)
				summary.Skipped++
				continue
			}
		}

		oldCount := 0
		if ix.catalog != nil {
			c, err := ix.catalog.ChunkCount(ctx, cd.ID)
			if err != nil {
				return summary, err
			}
			oldCount = c
		}

		n, err := ix.Index(ctx, cd.Document, cfg)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", cd.ID, err)
			summary.Failed++
			continue
		}

		// A shrunken document leaves stale trailing chunk records behind.
		for seq := n; seq < oldCount; seq++ {
			ix.index.Delete(chunkID(cd.ID, seq))
		}

		if ix.catalog != nil {
			chunks, cerr := ChunkText(cd.Content, defaultSize(cfg), defaultOverlap(cfg))
			if cerr == nil {
				if err := ix.catalog.ReplaceDocument(ctx, cd.Document, cd.ModTime, chunks); err != nil {
					fmt.Fprintf(w, "warning: catalog update for %s failed: %v\n", cd.ID, err)
				}
			}
		}

		fmt.Fprintf(w, "indexed %s (%d chunks)\n", cd.ID, n)
		summary.Indexed++
	}

	fmt.Fprintf(w, "\nindexed: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Skipped, summary.Failed)

	return summary, nil
}

func defaultSize(cfg types.IndexingConfig) int {
	if cfg.ChunkSize <= 0 {
		return 1000
	}
	return cfg.ChunkSize
}

func defaultOverlap(cfg types.IndexingConfig) int {
	if cfg.ChunkSize <= 0 && cfg.ChunkOverlap == 0 {
		return 200
	}
	return cfg.ChunkOverlap
}

// LoadCorpus reads corpus documents from *.yaml files in dir. A missing
// directory is not an error; the corpus is simply empty. A file that fails
// to parse is skipped with a warning on stderr so one bad file does not
// block the rest of the corpus.
func LoadCorpus(dir string) ([]CorpusDoc, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading corpus directory %s: %w", dir, err)
	}

	var docs []CorpusDoc
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not stat %s: %v\n", entry.Name(), err)
			continue
		}

		path := filepath.Join(dir, entry.Name())
		doc, err := loadDocument(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping %s: %v\n", entry.Name(), err)
			continue
		}
		if doc.ID == "" {
			doc.ID = strings.TrimSuffix(entry.Name(), ".yaml")
		}

		docs = append(docs, CorpusDoc{
			Document: doc,
			ModTime:  info.ModTime().UTC().Format(time.RFC3339Nano),
		})
	}
	return docs, nil
}
