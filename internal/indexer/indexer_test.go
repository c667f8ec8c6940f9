// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package indexer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/yingkitw/anycli/internal/embed"
	"github.com/yingkitw/anycli/internal/vectorindex"
	"github.com/yingkitw/anycli/pkg/types"
)

// failAfterEmbedder fails every Embed call after the first n.
type failAfterEmbedder struct {
	mu    sync.Mutex
	dim   int
	limit int
	calls int
}

func (f *failAfterEmbedder) Embed(text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls > f.limit {
		return nil, fmt.Errorf("embedding backend down")
	}
	vec := make([]float32, f.dim)
	vec[0] = 1
	return vec, nil
}

func (f *failAfterEmbedder) Dimension() int { return f.dim }

// memCatalog is an in-memory Catalog for skip tests.
type memCatalog struct {
	modTimes map[string]string
	counts   map[string]int
	replaced []string
}

func newMemCatalog() *memCatalog {
	return &memCatalog{modTimes: make(map[string]string), counts: make(map[string]int)}
}

func (c *memCatalog) ModTime(_ context.Context, docID string) (string, bool, error) {
	mt, ok := c.modTimes[docID]
	return mt, ok, nil
}

func (c *memCatalog) ChunkCount(_ context.Context, docID string) (int, error) {
	return c.counts[docID], nil
}

func (c *memCatalog) ReplaceDocument(_ context.Context, doc types.Document, modTime string, chunks []string) error {
	c.modTimes[doc.ID] = modTime
	c.counts[doc.ID] = len(chunks)
	c.replaced = append(c.replaced, doc.ID)
	return nil
}

// --- ChunkText ---

func TestChunkTextCoversDocument(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		size    int
		overlap int
	}{
		{"exact multiple", 100, 20, 0},
		{"with overlap", 100, 20, 5},
		{"short tail", 103, 20, 5},
		{"single chunk", 10, 100, 20},
		{"heavy overlap", 57, 10, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.Repeat("abcdefghij", (tt.length+9)/10)[:tt.length]
			chunks, err := ChunkText(text, tt.size, tt.overlap)
			if err != nil {
				t.Fatalf("ChunkText: %v", err)
			}

			// Reassemble: each chunk past the first contributes everything
			// after its overlap with the previous chunk.
			var b strings.Builder
			for i, c := range chunks {
				if i == 0 {
					b.WriteString(c)
					continue
				}
				b.WriteString(c[tt.overlap:])
			}
			if b.String() != text {
				t.Fatalf("chunks do not cover the document:\n got %q\nwant %q", b.String(), text)
			}

			for i, c := range chunks {
				if len(c) > tt.size {
					t.Fatalf("chunk %d exceeds size: %d > %d", i, len(c), tt.size)
				}
				if i > 0 && i < len(chunks)-1 && len(c) != tt.size {
					t.Fatalf("interior chunk %d not full size: %d", i, len(c))
				}
			}

			// Consecutive chunks share exactly overlap characters.
			for i := 1; i < len(chunks); i++ {
				prev, cur := chunks[i-1], chunks[i]
				n := tt.overlap
				if len(cur) < n {
					n = len(cur)
				}
				if prev[len(prev)-tt.overlap:][:n] != cur[:n] {
					t.Fatalf("chunk %d does not overlap its predecessor by %d chars", i, tt.overlap)
				}
			}
		})
	}
}

func TestChunkTextValidation(t *testing.T) {
	if _, err := ChunkText("abc", 0, 0); err == nil {
		t.Fatal("zero size must be rejected")
	}
	if _, err := ChunkText("abc", 5, 5); err == nil {
		t.Fatal("overlap == size must be rejected")
	}
	if _, err := ChunkText("abc", 5, -1); err == nil {
		t.Fatal("negative overlap must be rejected")
	}
	chunks, err := ChunkText("", 5, 1)
	if err != nil || chunks != nil {
		t.Fatalf("empty text should produce no chunks, got %v err=%v", chunks, err)
	}
}

func TestChunkTextRuneSafe(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 10)
	chunks, err := ChunkText(text, 16, 4)
	if err != nil {
		t.Fatalf("ChunkText: %v", err)
	}
	if !strings.HasPrefix(text, chunks[0]) {
		t.Fatal("first chunk is not a prefix of the text")
	}
	for i, c := range chunks {
		if len([]rune(c)) > 16 {
			t.Fatalf("chunk %d exceeds 16 runes", i)
		}
	}
}

// --- Index ---

func TestIndexStoresChunksWithMetadata(t *testing.T) {
	ix := vectorindex.New()
	idx := New(embed.NewHashEmbedder(32), ix, nil)

	doc := types.Document{
		ID:      "doc1",
		Title:   "Doc One",
		Content: strings.Repeat("ibmcloud resource groups ", 20),
		Metadata: map[string]string{
			"provider": "ibmcloud",
		},
	}

	n, err := idx.Index(context.Background(), doc, types.IndexingConfig{ChunkSize: 100, ChunkOverlap: 20})
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if n == 0 || ix.Count() != n {
		t.Fatalf("expected %d records in index, count=%d", n, ix.Count())
	}

	e := embed.NewHashEmbedder(32)
	qv, _ := e.Embed("ibmcloud resource groups")
	results, err := ix.Search(qv, types.SearchConfig{TopK: 1})
	if err != nil || len(results) != 1 {
		t.Fatalf("Search: %v results=%d", err, len(results))
	}
	md := results[0].Metadata
	if md["provider"] != "ibmcloud" || md["doc"] != "doc1" || md["chunk"] == "" {
		t.Fatalf("chunk metadata incomplete: %v", md)
	}
}

func TestIndexPartialFailureRetainsChunks(t *testing.T) {
	ix := vectorindex.New()
	emb := &failAfterEmbedder{dim: 8, limit: 2}
	idx := New(emb, ix, nil)

	doc := types.Document{ID: "doc1", Content: strings.Repeat("x", 500)}

	// 5 chunks of 100; the third embed fails.
	n, err := idx.Index(context.Background(), doc, types.IndexingConfig{ChunkSize: 100})
	var indexErr *IndexingError
	if !errors.As(err, &indexErr) {
		t.Fatalf("expected IndexingError, got %v", err)
	}
	if n != indexErr.Indexed {
		t.Fatalf("returned count %d disagrees with error count %d", n, indexErr.Indexed)
	}
	if ix.Count() != n {
		t.Fatalf("partial chunks must stay stored: count=%d stored=%d", ix.Count(), n)
	}
}

// --- IndexAll ---

func TestIndexAllSkipsUnchanged(t *testing.T) {
	ix := vectorindex.New()
	catalog := newMemCatalog()
	idx := New(embed.NewHashEmbedder(16), ix, catalog)

	docs := []CorpusDoc{
		{Document: types.Document{ID: "a", Content: "alpha doc content"}, ModTime: "t1"},
		{Document: types.Document{ID: "b", Content: "beta doc content"}, ModTime: "t1"},
	}
	cfg := types.IndexingConfig{ChunkSize: 100}

	var out bytes.Buffer
	summary, err := idx.IndexAll(context.Background(), docs, cfg, &out)
	if err != nil {
		t.Fatalf("IndexAll: %v", err)
	}
	if summary.Indexed != 2 || summary.Skipped != 0 {
		t.Fatalf("first run: %+v", summary)
	}

	out.Reset()
	summary, err = idx.IndexAll(context.Background(), docs, cfg, &out)
	if err != nil {
		t.Fatalf("IndexAll second run: %v", err)
	}
	if summary.Skipped != 2 || summary.Indexed != 0 {
		t.Fatalf("second run should skip both: %+v", summary)
	}
	if !strings.Contains(out.String(), "skipped a") {
		t.Fatalf("progress output missing skip lines: %q", out.String())
	}

	// Changed mod time re-indexes.
	docs[0].ModTime = "t2"
	summary, err = idx.IndexAll(context.Background(), docs, cfg, &out)
	if err != nil {
		t.Fatalf("IndexAll third run: %v", err)
	}
	if summary.Indexed != 1 || summary.Skipped != 1 {
		t.Fatalf("third run: %+v", summary)
	}
}

func TestIndexAllPrunesStaleChunks(t *testing.T) {
	ix := vectorindex.New()
	catalog := newMemCatalog()
	idx := New(embed.NewHashEmbedder(16), ix, catalog)
	cfg := types.IndexingConfig{ChunkSize: 50}

	long := CorpusDoc{Document: types.Document{ID: "d", Content: strings.Repeat("words and more ", 20)}, ModTime: "t1"}
	var out bytes.Buffer
	if _, err := idx.IndexAll(context.Background(), []CorpusDoc{long}, cfg, &out); err != nil {
		t.Fatalf("IndexAll: %v", err)
	}
	before := ix.Count()

	short := CorpusDoc{Document: types.Document{ID: "d", Content: "words and more"}, ModTime: "t2"}
	if _, err := idx.IndexAll(context.Background(), []CorpusDoc{short}, cfg, &out); err != nil {
		t.Fatalf("IndexAll shrink: %v", err)
	}
	if ix.Count() >= before {
		t.Fatalf("stale chunks not pruned: before=%d after=%d", before, ix.Count())
	}
	if ix.Count() != 1 {
		t.Fatalf("expected exactly 1 chunk after shrink, got %d", ix.Count())
	}
}

func TestSeedDocuments(t *testing.T) {
	docs := SeedDocuments()
	if len(docs) == 0 {
		t.Fatal("seed corpus is empty")
	}
	for _, d := range docs {
		if d.ID == "" || d.Content == "" || d.Metadata["provider"] == "" {
			t.Fatalf("incomplete seed document: %+v", d)
		}
	}
}
