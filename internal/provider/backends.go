package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	einoclaude "github.com/cloudwego/eino-ext/components/model/claude"
	einogemini "github.com/cloudwego/eino-ext/components/model/gemini"
	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/docuchat/docuchat/internal/embedder"
	"github.com/docuchat/docuchat/internal/logging"
	"github.com/docuchat/docuchat/internal/rag"
)

// Temperature per branch: the deterministic providers take 0; the generic
// OpenAI-compatible branch asks for 1 because reasoning models (o1, o3,
// some gateway-served models) reject any non-default temperature.
var (
	tempDeterministic float32 = 0
	tempCompatible    float32 = 1
)

// boundedHTTPClient returns the transport for adapters that take a client
// rather than a timeout field. All four chat branches end up bounded by
// chatRequestTimeout.
func boundedHTTPClient() *http.Client {
	return &http.Client{Timeout: chatRequestTimeout}
}

// NewChatModel constructs a chat client for the normalized config. Every
// branch applies a bounded request timeout.
func NewChatModel(ctx context.Context, cfg Config) (model.ToolCallingChatModel, error) {
	cfg = cfg.Normalize()
	switch cfg.Provider {
	case NameGoogle:
		return newGoogle(ctx, cfg)
	case NameAnthropic:
		return newAnthropic(ctx, cfg)
	case NameOllama:
		return newOllama(ctx, cfg)
	case NameOpenAICompatible:
		return newOpenAICompatible(ctx, cfg)
	default:
		return nil, fmt.Errorf("provider: unknown provider %q — valid values: auto, google, anthropic, openai-compatible, ollama", cfg.Provider)
	}
}

// newGoogle constructs a Gemini chat client. Requires an API key.
func newGoogle(ctx context.Context, cfg Config) (model.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider: an API key is required for the google provider")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: boundedHTTPClient(),
	})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create Gemini client: %w", err)
	}
	return einogemini.NewChatModel(ctx, &einogemini.Config{ //nolint:wrapcheck // constructor passthrough
		Client:      client,
		Model:       cfg.Model,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &tempDeterministic,
	})
}

// newAnthropic constructs a native Anthropic chat client. Selected only
// when no custom endpoint is set; claude-named models behind a custom
// endpoint go through the OpenAI-compatible branch instead.
func newAnthropic(ctx context.Context, cfg Config) (model.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider: an API key is required for the anthropic provider")
	}
	return einoclaude.NewChatModel(ctx, &einoclaude.Config{ //nolint:wrapcheck // constructor passthrough
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: &tempDeterministic,
		HTTPClient:  boundedHTTPClient(),
	})
}

// newOpenAICompatible constructs a client for any OpenAI wire-compatible
// endpoint, including OpenRouter and self-hosted gateways.
func newOpenAICompatible(ctx context.Context, cfg Config) (model.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider: an API key is required for the openai-compatible provider")
	}
	return einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &tempCompatible,
		Timeout:     chatRequestTimeout,
	})
}

// newOllama constructs a chat client against a local Ollama instance.
func newOllama(ctx context.Context, cfg Config) (model.ToolCallingChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
		BaseURL: baseURL,
		Model:   cfg.Model,
		Timeout: chatRequestTimeout,
	})
}

// NewEmbedder constructs the embeddings client the key shape selects:
// an OpenAI-style key with no custom endpoint embeds through OpenAI, the
// ollama provider embeds locally, and anything else embeds through Gemini.
// Heuristic and best-effort — an unusual key for a Gemini-keyed deployment
// still resolves, it just needs the key to be valid for the chosen backend.
func NewEmbedder(ctx context.Context, cfg Config) (rag.Embedder, error) {
	cfg = cfg.Normalize()

	// A chat model name in the embedding slot is a common misconfiguration;
	// it resolves but every embed call will fail downstream.
	embedder.WarnIfChatModel(logging.FromContext(ctx), cfg.EmbeddingModel)

	if cfg.Provider == NameOllama {
		return embedder.NewOllamaEmbedder(&embedder.OllamaConfig{
			Host:  cfg.BaseURL,
			Model: cfg.EmbeddingModel,
		}), nil
	}

	if strings.HasPrefix(cfg.APIKey, keyPrefixOpenAI) && cfg.BaseURL == "" {
		return embedder.NewOpenAIEmbedder(&embedder.OpenAIConfig{
			APIKey: cfg.APIKey,
			Model:  cfg.EmbeddingModel,
		}), nil
	}

	emb, err := embedder.NewGeminiEmbedder(ctx, &embedder.GeminiConfig{
		APIKey: cfg.APIKey,
		Model:  cfg.EmbeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: embedder construction failed: %w", err)
	}
	return emb, nil
}

// EmbeddingBackend names the embedding backend the key shape selects, for
// dimension defaults and logging.
func EmbeddingBackend(cfg Config) string {
	cfg = cfg.Normalize()
	switch {
	case cfg.Provider == NameOllama:
		return "ollama"
	case strings.HasPrefix(cfg.APIKey, keyPrefixOpenAI) && cfg.BaseURL == "":
		return "openai"
	default:
		return "gemini"
	}
}

// Resolve constructs both clients for a configuration in one call. The chat
// client is required; an embedder failure is returned separately so callers
// can degrade to chat-only mode instead of failing the whole resolution.
func Resolve(ctx context.Context, cfg Config) (model.ToolCallingChatModel, rag.Embedder, error) {
	chat, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	emb, err := NewEmbedder(ctx, cfg)
	if err != nil {
		logging.FromContext(ctx).Warn("embedder unavailable, retrieval disabled",
			slog.String("backend", EmbeddingBackend(cfg)),
			slog.String("error", err.Error()),
		)
		return chat, nil, nil
	}
	return chat, emb, nil
}
