package rag

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// Payload keys used for chunk metadata in Qdrant points.
const (
	payloadContent   = "content"
	payloadSource    = "source"
	payloadSessionID = "session_id"
)

// sourceScanPageSize is the scroll page size used by the Sources scan.
const sourceScanPageSize = 256

// QdrantConfig holds connection parameters for a Qdrant vector store.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the collection name holding the knowledge base.
	Collection string

	// VectorSize is the dimensionality of the stored embeddings.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant collection.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore connects to Qdrant and ensures the target collection
// exists, creating it with cosine distance if necessary.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// Client exposes the underlying gRPC client for readiness probes.
func (s *QdrantStore) Client() *qdrant.Client {
	return s.client
}

// ensureCollection creates the collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}
	return nil
}

// Upsert stores documents with their pre-computed embeddings.
func (s *QdrantStore) Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return errCountMismatch(len(docs), len(embeddings))
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for i, doc := range docs {
		payload := map[string]any{
			payloadContent: doc.Content,
			payloadSource:  doc.Source,
		}
		if doc.SessionID != "" {
			payload[payloadSessionID] = doc.SessionID
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(doc.ID),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}
	return nil
}

// Search performs a cosine similarity search restricted to filter.
func (s *QdrantStore) Search(ctx context.Context, queryEmbedding []float32, topK int, filter Filter) ([]Document, error) {
	limit := uint64(topK)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		Filter:         qdrantFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		doc := Document{
			ID:    r.Id.GetUuid(),
			Score: r.Score,
		}
		fillFromPayload(&doc, r.Payload)
		docs = append(docs, doc)
	}
	return docs, nil
}

// DeleteByFilter removes all points matching filter in a single call, so a
// failed delete removes nothing.
func (s *QdrantStore) DeleteByFilter(ctx context.Context, filter Filter) error {
	qf := qdrantFilter(filter)
	if qf == nil {
		return errEmptyFilter
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points:         qdrant.NewPointsSelectorFilter(qf),
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete failed: %w", err)
	}
	return nil
}

// Sources scrolls the whole collection and returns the distinct source
// payload values. A full scan is acceptable here: listing documents is an
// administrative operation, not a hot path.
func (s *QdrantStore) Sources(ctx context.Context) ([]string, error) {
	limit := uint32(sourceScanPageSize)
	seen := make(map[string]struct{})

	// Pagination uses the server-issued next-page offset. Scroll offsets
	// are inclusive, so resuming from the last returned id would re-read
	// that point on every page.
	var offset *qdrant.PointId
	for {
		points, next, err := s.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: s.cfg.Collection,
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude(payloadSource),
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant: source scan failed: %w", err)
		}
		for _, p := range points {
			if v, ok := p.Payload[payloadSource]; ok {
				if src := v.GetStringValue(); src != "" {
					seen[src] = struct{}{}
				}
			}
		}
		if next == nil {
			break
		}
		offset = next
	}

	sources := make([]string, 0, len(seen))
	for src := range seen {
		sources = append(sources, src)
	}
	return sources, nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// qdrantFilter converts a Filter into Qdrant match conditions.
// Returns nil for the zero filter (match all).
func qdrantFilter(filter Filter) *qdrant.Filter {
	if filter.IsZero() {
		return nil
	}
	var must []*qdrant.Condition
	if filter.Source != "" {
		must = append(must, qdrant.NewMatch(payloadSource, filter.Source))
	}
	if filter.SessionID != "" {
		must = append(must, qdrant.NewMatch(payloadSessionID, filter.SessionID))
	}
	return &qdrant.Filter{Must: must}
}

// fillFromPayload copies the known payload keys into doc.
func fillFromPayload(doc *Document, payload map[string]*qdrant.Value) {
	if payload == nil {
		return
	}
	if v, ok := payload[payloadContent]; ok {
		doc.Content = v.GetStringValue()
	}
	if v, ok := payload[payloadSource]; ok {
		doc.Source = v.GetStringValue()
	}
	if v, ok := payload[payloadSessionID]; ok {
		doc.SessionID = v.GetStringValue()
	}
}
