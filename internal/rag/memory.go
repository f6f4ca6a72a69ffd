package rag

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process VectorStore backed by a slice and brute-force
// cosine similarity. It exists for tests and for running without a Qdrant
// instance; it makes no persistence guarantees.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []memoryEntry
}

type memoryEntry struct {
	doc Document
	vec []float32
}

// NewMemoryStore returns an empty in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Upsert stores documents with their embeddings, replacing any entry
// that shares an ID.
func (s *MemoryStore) Upsert(_ context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return errCountMismatch(len(docs), len(embeddings))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, doc := range docs {
		vec := make([]float32, len(embeddings[i]))
		copy(vec, embeddings[i])

		replaced := false
		for j := range s.entries {
			if s.entries[j].doc.ID == doc.ID {
				s.entries[j] = memoryEntry{doc: doc, vec: vec}
				replaced = true
				break
			}
		}
		if !replaced {
			s.entries = append(s.entries, memoryEntry{doc: doc, vec: vec})
		}
	}
	return nil
}

// Search returns up to topK documents matching filter, ordered by cosine
// similarity to queryEmbedding.
func (s *MemoryStore) Search(_ context.Context, queryEmbedding []float32, topK int, filter Filter) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []Document
	for _, e := range s.entries {
		if !filter.Matches(e.doc) {
			continue
		}
		doc := e.doc
		doc.Score = cosineSimilarity(queryEmbedding, e.vec)
		scored = append(scored, doc)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// DeleteByFilter removes every stored document matching filter.
func (s *MemoryStore) DeleteByFilter(_ context.Context, filter Filter) error {
	if filter.IsZero() {
		return errEmptyFilter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if !filter.Matches(e.doc) {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}

// Sources returns the distinct source names of all stored documents.
func (s *MemoryStore) Sources(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var sources []string
	for _, e := range s.entries {
		if _, ok := seen[e.doc.Source]; ok {
			continue
		}
		seen[e.doc.Source] = struct{}{}
		sources = append(sources, e.doc.Source)
	}
	return sources, nil
}

// Len reports the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// cosineSimilarity computes the cosine of the angle between a and b.
// Mismatched lengths or zero vectors score 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
