// Package rag defines the retrieval-augmented generation contracts: vector
// storage with metadata filtering, text embedding, and session-scoped
// retrieval. Concrete stores (Qdrant, in-memory) satisfy these interfaces so
// the engine never depends on a specific backend.
package rag

import (
	"context"
	"errors"
	"fmt"
)

// errEmptyFilter guards DeleteByFilter against wiping a whole collection.
var errEmptyFilter = errors.New("rag: refusing to delete with empty filter")

// errCountMismatch reports a docs/embeddings length disagreement in Upsert.
func errCountMismatch(docs, embeddings int) error {
	return fmt.Errorf("rag: %d docs but %d embeddings", docs, embeddings)
}

// Document is a unit of stored or retrieved knowledge: one chunk of an
// ingested source. Documents are immutable once created.
type Document struct {
	// ID is the unique identifier for this chunk record.
	ID string

	// Content is the chunk text.
	Content string

	// Source is the originating document name (e.g. uploaded filename).
	// Invariant: non-empty for every stored record.
	Source string

	// SessionID scopes the chunk to a chat session. Empty means the chunk
	// is visible to every session.
	SessionID string

	// Score is the similarity score assigned during retrieval.
	// Zero when the score was not computed.
	Score float32
}

// Filter restricts store operations to records whose metadata matches every
// set field exactly. The zero Filter matches all records.
type Filter struct {
	// Source matches the record's source metadata when non-empty.
	Source string

	// SessionID matches the record's session metadata when non-empty.
	SessionID string
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Source == "" && f.SessionID == ""
}

// Matches reports whether doc satisfies every set field of the filter.
func (f Filter) Matches(doc Document) bool {
	if f.Source != "" && doc.Source != f.Source {
		return false
	}
	if f.SessionID != "" && doc.SessionID != f.SessionID {
		return false
	}
	return true
}

// VectorStore persists chunk embeddings and serves filtered similarity
// search. Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores a batch of documents with their pre-computed embeddings.
	// embeddings[i] is the vector for docs[i].
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search returns the top-k records ranked by similarity to the query
	// embedding, restricted to records matching filter. An empty result is
	// valid, not an error.
	Search(ctx context.Context, queryEmbedding []float32, topK int, filter Filter) ([]Document, error)

	// DeleteByFilter removes every record matching filter. The delete is
	// all-or-nothing: on error no records are assumed removed.
	DeleteByFilter(ctx context.Context, filter Filter) error

	// Sources returns the distinct source values currently stored. This is
	// an administrative full scan, not a hot path.
	Sources(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
