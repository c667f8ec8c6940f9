// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vectorindex stores embedded text records in memory and answers
// cosine-similarity searches over them. Search is a full linear scan: the
// corpus is documentation-scale, and exactness beats approximate indexing at
// that size.
package vectorindex

import (
	"container/heap"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/yingkitw/anycli/pkg/types"
)

// Record is one indexed chunk: identifier, embedding, the source text, and
// string metadata (provider tag, source document, chunk number).
type Record struct {
	ID        string
	Embedding []float32
	Text      string
	Metadata  map[string]string
}

// ScoredRecord is a Record with its similarity to a query attached.
type ScoredRecord struct {
	Record
	Score float64
}

// DimensionError reports an upsert whose embedding width disagrees with the
// index's established dimension.
type DimensionError struct {
	ID   string
	Got  int
	Want int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("record %s: embedding dimension %d, index dimension %d", e.ID, e.Got, e.Want)
}

// Index is an in-memory vector store. It permits concurrent readers; writes
// lock exclusively for the duration of a single operation, so a record is
// either fully visible or absent, never half-written.
type Index struct {
	mu      sync.RWMutex
	records map[string]Record
	dim     int // 0 until the first upsert establishes it
}

// New returns an empty index. The embedding dimension is established by the
// first upsert.
func New() *Index {
	return &Index{records: make(map[string]Record)}
}

// Upsert inserts or replaces a record by identifier. The first record fixes
// the index dimension; later records of a different width are rejected with
// a *DimensionError.
func (ix *Index) Upsert(rec Record) error {
	if len(rec.Embedding) == 0 {
		return fmt.Errorf("record %s: empty embedding", rec.ID)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dim == 0 {
		ix.dim = len(rec.Embedding)
	} else if len(rec.Embedding) != ix.dim {
		return &DimensionError{ID: rec.ID, Got: len(rec.Embedding), Want: ix.dim}
	}

	ix.records[rec.ID] = rec
	return nil
}

// Delete removes a record by identifier. Deleting an absent record is a no-op.
func (ix *Index) Delete(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.records, id)
}

// Clear removes all records. The dimension resets with them.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.records = make(map[string]Record)
	ix.dim = 0
}

// Count returns the number of stored records.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Dimension returns the established embedding width, or 0 for an empty index.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Search returns up to cfg.TopK records most similar to the query embedding,
// highest score first, each scoring at least cfg.MinScore. Equal scores are
// ordered by record identifier so repeated searches return identical results.
func (ix *Index) Search(query []float32, cfg types.SearchConfig) ([]ScoredRecord, error) {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.dim != 0 && len(query) != ix.dim {
		return nil, &DimensionError{ID: "query", Got: len(query), Want: ix.dim}
	}

	queryNorm := norm(query)
	if queryNorm == 0 {
		return nil, nil
	}

	h := &scoredHeap{}
	heap.Init(h)

	for _, rec := range ix.records {
		score := cosine(query, rec.Embedding, queryNorm)
		if score < cfg.MinScore {
			continue
		}
		cand := ScoredRecord{Record: rec, Score: score}
		if h.Len() < topK {
			heap.Push(h, cand)
		} else if better(cand, (*h)[0]) {
			(*h)[0] = cand
			heap.Fix(h, 0)
		}
	}

	results := make([]ScoredRecord, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(h).(ScoredRecord)
	}

	// Map iteration order is random; settle equal-score neighbors by ID.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	return results, nil
}

// better reports whether a should displace b in the result set: higher score
// wins, and on a tie the smaller identifier wins.
func better(a, b ScoredRecord) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

// norm returns the L2 norm of a vector.
func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine computes dot(a,b) / (aNorm * |b|). aNorm is precomputed once per
// search. Mismatched lengths score zero rather than erroring; the caller has
// already validated the query width against the index.
func cosine(a, b []float32, aNorm float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, bSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bSq += float64(b[i]) * float64(b[i])
	}
	bNorm := math.Sqrt(bSq)
	if bNorm == 0 {
		return 0
	}
	return dot / (aNorm * bNorm)
}

// scoredHeap is a min-heap ordered so the weakest candidate sits at the root:
// lowest score first, and among equal scores the largest identifier (which a
// smaller identifier should displace).
type scoredHeap []ScoredRecord

func (h scoredHeap) Len() int { return len(h) }
func (h scoredHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].ID > h[j].ID
}
func (h scoredHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *scoredHeap) Push(x interface{}) { *h = append(*h, x.(ScoredRecord)) }
func (h *scoredHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
