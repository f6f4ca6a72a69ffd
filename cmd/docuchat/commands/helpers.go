package commands

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/docuchat/docuchat/internal/embedder"
	"github.com/docuchat/docuchat/internal/provider"
	"github.com/docuchat/docuchat/internal/rag"
)

// getEnvOrDefault returns the env var value or def when unset.
func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the env var parsed as int, or def when unset or invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// providerConfigFromEnv assembles the base provider configuration. The
// MODEL_API_KEY variable is preferred; GOOGLE_API_KEY and GEMINI_API_KEY are
// accepted as fallbacks so an existing Gemini setup works unchanged.
func providerConfigFromEnv() provider.Config {
	apiKey := os.Getenv("MODEL_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	return provider.Config{
		Provider:       provider.Name(os.Getenv("MODEL_PROVIDER")),
		APIKey:         apiKey,
		Model:          os.Getenv("MODEL_NAME"),
		BaseURL:        os.Getenv("MODEL_BASE_URL"),
		EmbeddingModel: os.Getenv("EMBEDDING_MODEL"),
		MaxTokens:      getEnvInt("MODEL_MAX_TOKENS", 0),
	}
}

// buildVectorStore connects to Qdrant using the QDRANT_* env vars. An
// unreachable Qdrant is not fatal: the engine runs in direct-chat mode
// without retrieval, so this returns a nil store with a warning instead
// of an error.
func buildVectorStore(ctx context.Context, providerCfg provider.Config, log *slog.Logger) *rag.QdrantStore {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	collection := getEnvOrDefault("QDRANT_COLLECTION", "docuchat_knowledge")

	dims := getEnvInt("EMBEDDING_DIMENSIONS", 0)
	if dims == 0 {
		dims = embedder.DefaultDimensions(provider.EmbeddingBackend(providerCfg))
	}

	store, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: collection,
		VectorSize: uint64(dims), //nolint:gosec // dimensions are bounded
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		log.Warn("qdrant unavailable, retrieval disabled",
			slog.String("host", host),
			slog.Int("port", port),
			slog.Any("error", err),
		)
		return nil
	}

	log.Info("qdrant store ready",
		slog.String("host", host),
		slog.Int("port", port),
		slog.String("collection", collection),
	)
	return store
}
