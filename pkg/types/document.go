// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Document is a raw piece of documentation supplied to the indexer. It is
// never stored whole; the indexer splits it into overlapping chunks first.
type Document struct {
	// ID identifies the document within the corpus (e.g. file stem).
	ID string `json:"id" yaml:"id"`

	// Title is a short human-readable name.
	Title string `json:"title" yaml:"title"`

	// Content is the full document text.
	Content string `json:"content" yaml:"content"`

	// Metadata carries string key/value pairs inherited by every chunk
	// (e.g. provider tag, source URL).
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Query is a retrieval request: free text plus an optional provider hint
// narrowing which CLI the answer should target.
type Query struct {
	Text     string
	Provider Provider
}
