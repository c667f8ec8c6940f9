// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rag turns a free-text query into a bounded documentation context
// for prompt assembly. Retrieval is vector-first with an optional keyword
// fallback for queries the embedding space cannot place.
package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yingkitw/anycli/internal/docstore"
	"github.com/yingkitw/anycli/internal/embed"
	"github.com/yingkitw/anycli/internal/vectorindex"
	"github.com/yingkitw/anycli/pkg/types"
)

const contextHeader = "Relevant CLI documentation:"

// KeywordSearcher answers keyword queries when vector retrieval comes back
// empty. *docstore.Store satisfies it.
type KeywordSearcher interface {
	KeywordSearch(ctx context.Context, query string, limit int) ([]docstore.KeywordHit, error)
}

// Engine embeds queries, searches the vector index, and assembles context
// text within a length budget.
type Engine struct {
	embedder embed.Embedder
	index    *vectorindex.Index
	fallback KeywordSearcher
	cfg      types.RetrievalConfig
}

// New returns an Engine over idx. fallback may be nil.
func New(embedder embed.Embedder, idx *vectorindex.Index, fallback KeywordSearcher, cfg types.RetrievalConfig) *Engine {
	return &Engine{embedder: embedder, index: idx, fallback: fallback, cfg: cfg}
}

// Retrieve embeds the query and searches the index. When the vector search
// finds nothing and a keyword fallback is configured, keyword hits are
// returned instead, in store order with zero scores.
func (e *Engine) Retrieve(ctx context.Context, query string) ([]vectorindex.ScoredRecord, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	vec, err := e.embedder.Embed(query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := e.index.Search(vec, e.cfg.SearchConfig)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(results) > 0 || e.fallback == nil {
		return results, nil
	}

	return e.keywordResults(ctx, query)
}

func (e *Engine) keywordResults(ctx context.Context, query string) ([]vectorindex.ScoredRecord, error) {
	limit := e.cfg.TopK
	if limit <= 0 {
		limit = 5
	}
	hits, err := e.fallback.KeywordSearch(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword fallback: %w", err)
	}
	results := make([]vectorindex.ScoredRecord, 0, len(hits))
	for _, h := range hits {
		results = append(results, vectorindex.ScoredRecord{
			Record: vectorindex.Record{
				ID:   fmt.Sprintf("%s-%04d", h.DocID, h.Seq),
				Text: h.Content,
				Metadata: map[string]string{
					"doc": h.DocID,
				},
			},
		})
	}
	return results, nil
}

// BuildContext concatenates chunk texts in descending score order under a
// header, separated by blank lines. When the assembled text would exceed the
// engine's context budget, whole chunks are dropped lowest score first until
// it fits. Returns "" for an empty result set.
func (e *Engine) BuildContext(results []vectorindex.ScoredRecord) string {
	if len(results) == 0 {
		return ""
	}

	ordered := make([]vectorindex.ScoredRecord, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].ID < ordered[j].ID
	})

	budget := e.cfg.MaxContextLength
	if budget <= 0 {
		budget = 2000
	}

	for len(ordered) > 0 {
		text := renderContext(ordered)
		if len([]rune(text)) <= budget {
			return text
		}
		ordered = ordered[:len(ordered)-1]
	}
	return ""
}

func renderContext(results []vectorindex.ScoredRecord) string {
	var b strings.Builder
	b.WriteString(contextHeader)
	for _, r := range results {
		b.WriteString("\n\n")
		b.WriteString(r.Text)
	}
	return b.String()
}

// EnhancePrompt prepends context to basePrompt. An empty context returns
// basePrompt unmodified.
func (e *Engine) EnhancePrompt(basePrompt, context string) string {
	if context == "" {
		return basePrompt
	}
	return context + "\n---\n" + "Based on the above documentation, " + basePrompt
}
