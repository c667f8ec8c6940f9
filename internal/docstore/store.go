// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docstore keeps a SQLite catalog of indexed corpus documents. The
// catalog remembers which document versions the vector index was built from,
// so unchanged files are skipped on re-index, and mirrors chunk text into an
// FTS5 table used as a keyword fallback when vector retrieval comes up empty.
package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/yingkitw/anycli/pkg/types"
)

const dbFile = "anycli.db"

// Store manages the document catalog database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the catalog database under dir, creating the schema
// if it does not exist.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT,
			provider TEXT,
			source TEXT,
			file_mod_time TEXT,
			chunk_count INTEGER
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='chunks_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		if _, err := s.db.Exec(
			`CREATE VIRTUAL TABLE chunks_fts USING fts5(doc_id UNINDEXED, seq UNINDEXED, content)`,
		); err != nil {
			return fmt.Errorf("creating FTS table: %w", err)
		}
	}

	return nil
}

// ModTime returns the recorded modification time for a document, and whether
// the document is cataloged at all.
func (s *Store) ModTime(ctx context.Context, docID string) (string, bool, error) {
	var modTime string
	err := s.db.QueryRowContext(ctx,
		`SELECT file_mod_time FROM documents WHERE id = ?`, docID,
	).Scan(&modTime)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up document %s: %w", docID, err)
	}
	return modTime, true, nil
}

// ReplaceDocument records a document and its chunk texts, removing any
// previous version first. The whole replacement is one transaction.
func (s *Store) ReplaceDocument(ctx context.Context, doc types.Document, modTime string, chunks []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE doc_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("deleting old chunks: %w", err)
	}

	provider := doc.Metadata["provider"]
	source := doc.Metadata["source"]
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, title, provider, source, file_mod_time, chunk_count)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, provider=excluded.provider, source=excluded.source,
			file_mod_time=excluded.file_mod_time, chunk_count=excluded.chunk_count`,
		doc.ID, doc.Title, provider, source, modTime, len(chunks),
	)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks_fts (doc_id, seq, content) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for seq, content := range chunks {
		if _, err := stmt.ExecContext(ctx, doc.ID, seq, content); err != nil {
			return fmt.Errorf("inserting chunk %d: %w", seq, err)
		}
	}

	return tx.Commit()
}

// KeywordHit is one FTS match: the chunk text and its document of origin.
type KeywordHit struct {
	DocID   string
	Seq     int
	Content string
}

// KeywordSearch returns chunk texts matching the query terms, best rank
// first. The query is reduced to bare word tokens joined with OR, so user
// punctuation cannot break the FTS match syntax. An empty token set returns
// no hits.
func (s *Store) KeywordSearch(ctx context.Context, query string, limit int) ([]KeywordHit, error) {
	if limit <= 0 {
		limit = 5
	}

	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, seq, content FROM chunks_fts WHERE chunks_fts MATCH ? ORDER BY rank LIMIT ?`,
		match, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	var hits []KeywordHit
	for rows.Next() {
		var h KeywordHit
		if err := rows.Scan(&h.DocID, &h.Seq, &h.Content); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ChunkCount returns the recorded chunk count for a document, or 0 when the
// document is not cataloged.
func (s *Store) ChunkCount(ctx context.Context, docID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT chunk_count FROM documents WHERE id = ?`, docID,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("looking up chunk count for %s: %w", docID, err)
	}
	return count, nil
}

// DocumentCount returns the number of cataloged documents.
func (s *Store) DocumentCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&count)
	return count, err
}

// ftsQuery strips a free-text query down to quoted word tokens joined by OR.
func ftsQuery(query string) string {
	var tokens []string
	for _, f := range strings.Fields(query) {
		token := strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
				return r
			default:
				return -1
			}
		}, f)
		if token != "" {
			tokens = append(tokens, `"`+token+`"`)
		}
	}
	return strings.Join(tokens, " OR ")
}
