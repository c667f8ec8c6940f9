// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package learning persists user-confirmed command corrections and answers
// lookups before any generation is attempted.
package learning

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yingkitw/anycli/pkg/types"
)

const defaultFuzzyThreshold = 0.6

// LoadSummary reports what happened while reading the correction log.
type LoadSummary struct {
	Loaded  int
	Skipped int
}

// Store is an append-only correction log with an in-memory latest-wins
// index. Records append as JSON lines; a corrupt line is skipped on load
// without aborting the rest.
type Store struct {
	path      string
	threshold float64

	mu      sync.Mutex
	file    *os.File
	records []types.CorrectionRecord
	byQuery map[string]int
}

// Open loads the correction log at cfg.LogPath, creating it if absent.
// Parse failures on individual lines are counted in the summary and warned
// to w.
func Open(cfg types.LearningConfig, w io.Writer) (*Store, LoadSummary, error) {
	if w == nil {
		w = io.Discard
	}
	threshold := cfg.FuzzyThreshold
	if threshold <= 0 {
		threshold = defaultFuzzyThreshold
	}

	path := cfg.LogPath
	if path == "" {
		return nil, LoadSummary{}, fmt.Errorf("learning: log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, LoadSummary{}, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, LoadSummary{}, fmt.Errorf("open correction log: %w", err)
	}

	s := &Store{
		path:      path,
		threshold: threshold,
		file:      f,
		byQuery:   make(map[string]int),
	}

	summary, err := s.load(w)
	if err != nil {
		f.Close()
		return nil, summary, err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, summary, fmt.Errorf("seek correction log: %w", err)
	}
	return s, summary, nil
}

func (s *Store) load(w io.Writer) (LoadSummary, error) {
	var summary LoadSummary
	scanner := bufio.NewScanner(s.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var rec types.CorrectionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Query == "" || rec.Corrected == "" {
			summary.Skipped++
			fmt.Fprintf(w, "warning: skipping corrupt correction record at %s:%d\n", s.path, line)
			continue
		}
		s.remember(rec)
		summary.Loaded++
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("read correction log: %w", err)
	}
	return summary, nil
}

// remember indexes rec as the newest record for its normalized query.
func (s *Store) remember(rec types.CorrectionRecord) {
	s.records = append(s.records, rec)
	s.byQuery[Normalize(rec.Query)] = len(s.records) - 1
}

// Close closes the underlying log file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// Normalize lowercases, trims, and collapses internal whitespace so lookups
// are insensitive to formatting.
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Record appends a correction. Re-recording an identical query+correction
// pair is a no-op. Appends are serialized; the write is flushed before
// Record returns.
func (s *Store) Record(query, corrected, failed string, provider types.Provider) error {
	if strings.TrimSpace(query) == "" || strings.TrimSpace(corrected) == "" {
		return fmt.Errorf("learning: query and corrected command are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.byQuery[Normalize(query)]; ok && s.records[i].Corrected == corrected {
		return nil
	}

	rec := types.CorrectionRecord{
		Query:      query,
		Failed:     failed,
		Corrected:  corrected,
		Provider:   provider,
		RecordedAt: time.Now().UTC(),
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode correction record: %w", err)
	}
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append correction record: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync correction log: %w", err)
	}

	s.remember(rec)
	return nil
}

// Lookup returns the corrected command for query. Exact normalized matches
// win; otherwise the best fuzzy match at or above the token-overlap
// threshold is returned, newest record breaking ties.
func (s *Store) Lookup(query string) (types.CorrectionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := Normalize(query)
	if i, ok := s.byQuery[normalized]; ok {
		return s.records[i], true
	}

	queryTokens := tokenSet(normalized)
	if len(queryTokens) == 0 {
		return types.CorrectionRecord{}, false
	}

	bestIdx := -1
	bestScore := 0.0
	for key, i := range s.byQuery {
		score := jaccard(queryTokens, tokenSet(key))
		if score < s.threshold {
			continue
		}
		if score > bestScore || (score == bestScore && bestIdx >= 0 && i > bestIdx) {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx < 0 {
		return types.CorrectionRecord{}, false
	}
	return s.records[bestIdx], true
}

// All returns the indexed corrections, newest first.
func (s *Store) All() []types.CorrectionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.CorrectionRecord, 0, len(s.byQuery))
	for _, i := range s.byQuery {
		out = append(out, s.records[i])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	return out
}

// Stats summarizes the store per provider.
func (s *Store) Stats() map[types.Provider]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(map[types.Provider]int)
	for _, i := range s.byQuery {
		stats[s.records[i].Provider]++
	}
	return stats
}

func tokenSet(normalized string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(normalized) {
		set[tok] = true
	}
	return set
}

// jaccard is the token-overlap ratio of two sets.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if b[tok] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
