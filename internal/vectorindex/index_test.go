// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vectorindex

import (
	"errors"
	"testing"

	"github.com/yingkitw/anycli/pkg/types"
)

func rec(id string, embedding ...float32) Record {
	return Record{ID: id, Embedding: embedding, Text: "text for " + id}
}

func search(t *testing.T, ix *Index, query []float32, topK int, minScore float64) []ScoredRecord {
	t.Helper()
	results, err := ix.Search(query, types.SearchConfig{TopK: topK, MinScore: minScore})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	return results
}

func TestUpsertEstablishesDimension(t *testing.T) {
	ix := New()

	if err := ix.Upsert(rec("a", 1, 0, 0)); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if ix.Dimension() != 3 {
		t.Fatalf("expected dimension 3, got %d", ix.Dimension())
	}

	err := ix.Upsert(rec("b", 1, 0))
	var dimErr *DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionError, got %v", err)
	}
	if dimErr.Got != 2 || dimErr.Want != 3 {
		t.Fatalf("unexpected error fields: %+v", dimErr)
	}
	if ix.Count() != 1 {
		t.Fatalf("rejected record must not be stored, count=%d", ix.Count())
	}
}

func TestUpsertReplacesByID(t *testing.T) {
	ix := New()
	if err := ix.Upsert(rec("a", 1, 0)); err != nil {
		t.Fatal(err)
	}
	if err := ix.Upsert(rec("a", 0, 1)); err != nil {
		t.Fatal(err)
	}
	if ix.Count() != 1 {
		t.Fatalf("expected 1 record after replace, got %d", ix.Count())
	}

	results := search(t, ix, []float32{0, 1}, 1, 0)
	if len(results) != 1 || results[0].Score < 0.99 {
		t.Fatalf("replacement embedding not used: %+v", results)
	}
}

func TestSearchSelfMatchRanksFirst(t *testing.T) {
	ix := New()
	ix.Upsert(rec("target", 1, 0, 0))
	ix.Upsert(rec("near", 0.9, 0.1, 0))
	ix.Upsert(rec("far", 0, 0, 1))

	results := search(t, ix, []float32{1, 0, 0}, 3, 0)
	if len(results) < 2 {
		t.Fatalf("expected at least two results, got %d", len(results))
	}
	if results[0].ID != "target" {
		t.Fatalf("self-match should rank first, got %s", results[0].ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Fatal("results not in descending score order")
		}
	}
}

func TestSearchTieBreakByID(t *testing.T) {
	ix := New()
	// Identical embeddings: scores tie exactly.
	ix.Upsert(rec("b", 1, 0))
	ix.Upsert(rec("a", 1, 0))
	ix.Upsert(rec("c", 1, 0))

	results := search(t, ix, []float32{1, 0}, 2, 0)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Fatalf("expected tie-break by identifier [a b], got [%s %s]", results[0].ID, results[1].ID)
	}
}

func TestSearchIdempotent(t *testing.T) {
	ix := New()
	ix.Upsert(rec("a", 1, 0, 0))
	ix.Upsert(rec("b", 0.7, 0.7, 0))
	ix.Upsert(rec("c", 0, 1, 0))

	first := search(t, ix, []float32{1, 0.2, 0}, 3, 0)
	second := search(t, ix, []float32{1, 0.2, 0}, 3, 0)

	if len(first) != len(second) {
		t.Fatalf("result lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Score != second[i].Score {
			t.Fatalf("results differ at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestSearchMinScoreFilter(t *testing.T) {
	ix := New()
	ix.Upsert(rec("close", 1, 0))
	ix.Upsert(rec("orthogonal", 0, 1))

	results := search(t, ix, []float32{1, 0}, 5, 0.5)
	if len(results) != 1 || results[0].ID != "close" {
		t.Fatalf("expected only the close record, got %+v", results)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	ix := New()
	results := search(t, ix, []float32{1, 0}, 5, 0)
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestSearchQueryDimensionMismatch(t *testing.T) {
	ix := New()
	ix.Upsert(rec("a", 1, 0, 0))

	_, err := ix.Search([]float32{1, 0}, types.SearchConfig{TopK: 1})
	var dimErr *DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionError, got %v", err)
	}
}

func TestDeleteAndClear(t *testing.T) {
	ix := New()
	ix.Upsert(rec("a", 1, 0))
	ix.Upsert(rec("b", 0, 1))

	ix.Delete("a")
	if ix.Count() != 1 {
		t.Fatalf("expected 1 after delete, got %d", ix.Count())
	}
	ix.Delete("missing") // no-op

	ix.Clear()
	if ix.Count() != 0 || ix.Dimension() != 0 {
		t.Fatalf("clear should reset records and dimension, count=%d dim=%d", ix.Count(), ix.Dimension())
	}

	// Dimension can be re-established after a clear.
	if err := ix.Upsert(rec("c", 1, 0, 0)); err != nil {
		t.Fatalf("upsert after clear: %v", err)
	}
}
