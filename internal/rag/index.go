package rag

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// defaultTopK is the result count used when a caller passes topK <= 0.
const defaultTopK = 5

// chunkNamespace namespaces deterministic chunk record IDs so re-ingesting
// the same source at the same position overwrites the prior record instead
// of accumulating duplicates.
var chunkNamespace = uuid.MustParse("6ad6f7db-97a4-4632-9c1e-2f7e3a1d45b0")

// Index pairs an Embedder with a VectorStore to form the vector index the
// engine operates on: add embeds-and-persists, search embeds-and-queries.
type Index struct {
	// embedder converts chunk and query text to vectors. May be nil, in
	// which case the index runs in degraded mode: Add is a no-op and
	// Search returns no results.
	embedder Embedder

	// store performs persistence and similarity search.
	store VectorStore
}

// NewIndex constructs an Index. A nil embedder is permitted and puts the
// index into degraded (chat-only) mode; a nil store is a programming error.
func NewIndex(embedder Embedder, store VectorStore) (*Index, error) {
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	return &Index{embedder: embedder, store: store}, nil
}

// Add embeds chunks and persists them under the given source and session
// scope, returning the number of records written. When no embedder is
// available it returns (0, nil): a degraded mode, not an error, because the
// rest of the system must remain usable for direct chat.
func (ix *Index) Add(ctx context.Context, chunks []string, source, sessionID string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	if ix.embedder == nil {
		return 0, nil
	}

	embeddings, err := ix.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("rag: embedding chunks failed: %w", err)
	}

	docs := make([]Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, Document{
			ID:        chunkID(source, i),
			Content:   chunk,
			Source:    source,
			SessionID: sessionID,
		})
	}

	if err := ix.store.Upsert(ctx, docs, embeddings); err != nil {
		return 0, fmt.Errorf("rag: upsert failed: %w", err)
	}
	return len(docs), nil
}

// Search embeds the query and returns the top-k most similar documents
// matching filter. topK <= 0 selects the default of 5.
func (ix *Index) Search(ctx context.Context, query string, topK int, filter Filter) ([]Document, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	if ix.embedder == nil {
		return nil, fmt.Errorf("rag: no embedder configured")
	}

	embeddings, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}

	docs, err := ix.store.Search(ctx, embeddings[0], topK, filter)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}
	return docs, nil
}

// Delete removes every record matching filter.
func (ix *Index) Delete(ctx context.Context, filter Filter) error {
	return ix.store.DeleteByFilter(ctx, filter)
}

// Sources lists the distinct source values currently indexed.
func (ix *Index) Sources(ctx context.Context) ([]string, error) {
	return ix.store.Sources(ctx)
}

// Close releases the underlying store.
func (ix *Index) Close() error {
	return ix.store.Close()
}

// chunkID derives a deterministic UUID for a chunk from its source and
// position, so the same chunk of the same source always maps to one record.
func chunkID(source string, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(source+"#"+strconv.Itoa(index))).String()
}
