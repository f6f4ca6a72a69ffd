// Package engine orchestrates document ingestion and retrieval-augmented
// chat. The Engine holds the single active provider configuration and the
// clients resolved from it, rebuilding both atomically when a request
// carries different credentials, and exposes the ingest/list/delete/chat
// operations the HTTP layer calls.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"

	"github.com/docuchat/docuchat/internal/budget"
	"github.com/docuchat/docuchat/internal/chunker"
	"github.com/docuchat/docuchat/internal/extract"
	"github.com/docuchat/docuchat/internal/logging"
	"github.com/docuchat/docuchat/internal/provider"
	"github.com/docuchat/docuchat/internal/rag"
	"github.com/docuchat/docuchat/internal/search"
)

// ErrAuthentication marks failures caused by rejected credentials. The HTTP
// layer maps it to 401; everything else is a generic processing error.
var ErrAuthentication = errors.New("authentication error")

// Searcher is the web search capability used for optional augmentation.
type Searcher interface {
	Search(ctx context.Context, apiKey, query string) ([]search.Result, error)
}

// resolveFunc constructs the chat and embedding clients for a provider
// configuration. Swapped out by tests.
type resolveFunc func(ctx context.Context, cfg provider.Config) (model.ToolCallingChatModel, rag.Embedder, error)

// Options configures a new Engine.
type Options struct {
	// Provider is the default provider configuration. Per-request
	// overrides (api key, model, base URL) layer on top of it.
	Provider provider.Config

	// Store is the vector store backing the index. nil disables retrieval
	// for the lifetime of the engine (chat-only mode).
	Store rag.VectorStore

	// Searcher performs web search augmentation. nil disables it even
	// when a request asks for it.
	Searcher Searcher

	// MaxContextTokens is the history token budget per request.
	// 0 selects budget.DefaultMaxContextTokens.
	MaxContextTokens int
}

// clients is one atomically-swapped resolution of the provider config.
// Requests snapshot a *clients under the lock and never re-read shared
// state mid-flight, so a concurrent rebuild cannot hand a request a
// half-updated configuration.
type clients struct {
	cfg   provider.Config
	chat  model.ToolCallingChatModel
	index *rag.Index
}

// Engine is the facade over ingestion, retrieval and chat. Safe for
// concurrent use; see clients for the snapshot discipline.
type Engine struct {
	mu      sync.Mutex
	base    provider.Config
	current *clients // nil until first use (lazy construction)

	store    rag.VectorStore
	searcher Searcher
	splitter *chunker.Splitter
	resolve  resolveFunc

	maxContextTokens int
}

// New constructs an Engine. No provider clients are built yet — resolution
// is lazy, triggered by the first operation that needs them.
func New(opts Options) *Engine {
	maxTokens := opts.MaxContextTokens
	if maxTokens <= 0 {
		maxTokens = budget.DefaultMaxContextTokens
	}
	return &Engine{
		base:             opts.Provider,
		store:            opts.Store,
		searcher:         opts.Searcher,
		splitter:         chunker.New(chunker.DefaultChunkSize, chunker.DefaultChunkOverlap),
		resolve:          provider.Resolve,
		maxContextTokens: maxTokens,
	}
}

// snapshot returns the clients for the effective configuration, rebuilding
// them first if the configuration differs from the active one. The rebuild
// replaces chat client, embedder and index handle as one unit.
func (e *Engine) snapshot(ctx context.Context, override provider.Config) (*clients, error) {
	effective := e.effectiveConfig(override)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil && e.current.cfg.Equal(effective) {
		return e.current, nil
	}

	log := logging.FromContext(ctx)
	log.Info("resolving provider clients",
		slog.String("provider", string(effective.Normalize().Provider)),
		slog.String("model", effective.Normalize().Model),
	)

	chat, emb, err := e.resolve(ctx, effective)
	if err != nil {
		return nil, classify(err)
	}

	var index *rag.Index
	if e.store != nil && emb != nil {
		index, err = rag.NewIndex(emb, e.store)
		if err != nil {
			// Index construction failing degrades to chat-only mode
			// rather than failing the request.
			log.Warn("vector index unavailable, continuing chat-only", slog.String("error", err.Error()))
			index = nil
		}
	}

	e.current = &clients{cfg: effective, chat: chat, index: index}
	return e.current, nil
}

// effectiveConfig layers non-empty request overrides onto the base config.
func (e *Engine) effectiveConfig(override provider.Config) provider.Config {
	cfg := e.base
	if override.APIKey != "" {
		cfg.APIKey = override.APIKey
	}
	if override.Model != "" {
		cfg.Model = override.Model
	}
	if override.BaseURL != "" {
		cfg.BaseURL = override.BaseURL
	}
	return cfg
}

// IngestText chunks and indexes raw text under the given source, returning
// the number of chunks added. Re-ingesting a source replaces its previous
// index entries. Returns 0 when retrieval is unavailable.
func (e *Engine) IngestText(ctx context.Context, text, source, sessionID string) (int, error) {
	if strings.TrimSpace(source) == "" {
		return 0, fmt.Errorf("engine: source must not be empty")
	}

	snap, err := e.snapshot(ctx, provider.Config{})
	if err != nil {
		return 0, err
	}
	if snap.index == nil {
		logging.FromContext(ctx).Warn("ingest skipped, vector index unavailable", slog.String("source", source))
		return 0, nil
	}

	chunks := e.splitter.Split(text)
	if len(chunks) == 0 {
		return 0, nil
	}

	// Drop stale entries so re-ingesting a source cannot leave orphaned
	// chunks from a longer prior version.
	if err := snap.index.Delete(ctx, rag.Filter{Source: source}); err != nil {
		logging.FromContext(ctx).Warn("stale entry cleanup failed", slog.String("source", source), slog.String("error", err.Error()))
	}

	n, err := snap.index.Add(ctx, chunks, source, sessionID)
	if err != nil {
		return 0, fmt.Errorf("engine: indexing %s: %w", source, err)
	}
	return n, nil
}

// IngestFile extracts text from the file at path and indexes it under the
// declared filename. The extension of the declared filename, not the path,
// selects the extraction strategy. An unreadable or empty document yields
// 0 chunks without error.
func (e *Engine) IngestFile(ctx context.Context, path, filename, sessionID string) (int, error) {
	snap, err := e.snapshot(ctx, provider.Config{})
	if err != nil {
		return 0, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	extractor := extract.New(extract.NewOCRStrategy(snap.chat))
	text, err := extractor.Extract(ctx, path, ext)
	if err != nil {
		return 0, fmt.Errorf("engine: extracting %s: %w", filename, err)
	}
	if strings.TrimSpace(text) == "" {
		logging.FromContext(ctx).Warn("no extractable content", slog.String("source", filename))
		return 0, nil
	}

	return e.IngestText(ctx, text, filename, sessionID)
}

// ListDocuments returns the distinct source names currently indexed.
// An unavailable index yields an empty list, not an error.
func (e *Engine) ListDocuments(ctx context.Context) ([]string, error) {
	snap, err := e.snapshot(ctx, provider.Config{})
	if err != nil {
		return nil, err
	}
	if snap.index == nil {
		return []string{}, nil
	}
	sources, err := snap.index.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: listing documents: %w", err)
	}
	if sources == nil {
		sources = []string{}
	}
	return sources, nil
}

// DeleteDocument removes every index entry for source. The result is a
// boolean, never partial: a failed delete reports false with all records
// assumed still present.
func (e *Engine) DeleteDocument(ctx context.Context, source string) bool {
	snap, err := e.snapshot(ctx, provider.Config{})
	if err != nil || snap.index == nil {
		return false
	}
	if err := snap.index.Delete(ctx, rag.Filter{Source: source}); err != nil {
		logging.FromContext(ctx).Warn("delete failed", slog.String("source", source), slog.String("error", err.Error()))
		return false
	}
	return true
}

// Close releases the vector store connection.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// classify wraps err with ErrAuthentication when the underlying message
// indicates credential rejection. String matching is the only option here:
// provider SDK error types vary and gateway errors arrive as opaque text.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "api key") || strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	return err
}
