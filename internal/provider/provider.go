// Package provider resolves LLM and embedding clients from a provider
// configuration. The caller may name a provider explicitly; otherwise the
// package sniffs the provider family from the API key shape and the model
// name prefix. Sniffing is best-effort, not authoritative — an unusual key
// or model name lands in the generic OpenAI-compatible branch.
package provider

import (
	"strings"
	"time"
)

// Name enumerates the supported provider families.
type Name string

const (
	// NameAuto selects the provider by sniffing the key and model name.
	NameAuto Name = "auto"
	// NameGoogle selects the Gemini API.
	NameGoogle Name = "google"
	// NameAnthropic selects the Anthropic API.
	NameAnthropic Name = "anthropic"
	// NameOpenAICompatible selects any OpenAI-compatible endpoint
	// (OpenAI itself, OpenRouter, vLLM, LM Studio, ...).
	NameOpenAICompatible Name = "openai-compatible"
	// NameOllama selects a locally running Ollama instance.
	NameOllama Name = "ollama"
)

// Default chat models per provider family.
const (
	// DefaultGoogleModel is the model assumed when none is configured.
	DefaultGoogleModel = "gemini-1.5-pro"
	// DefaultOpenAIModel replaces the Google default when the API key
	// is recognisably an OpenAI-style key.
	DefaultOpenAIModel = "gpt-4o"
	// DefaultOllamaModel is the model used for the ollama provider when
	// none is configured.
	DefaultOllamaModel = "llama3"
)

const (
	// keyPrefixOpenAI marks OpenAI-style secret keys.
	keyPrefixOpenAI = "sk-"
	// keyPrefixOpenRouter marks OpenRouter keys, which are OpenAI-style
	// keys served from a known gateway endpoint.
	keyPrefixOpenRouter = "sk-or-v1"
	// openRouterBaseURL is auto-filled for OpenRouter keys when no
	// explicit endpoint is configured.
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	// chatRequestTimeout bounds every chat completion call so a stalled
	// provider cannot hang a request indefinitely.
	chatRequestTimeout = 60 * time.Second
	// defaultMaxTokens caps generation length when the caller sets none.
	defaultMaxTokens = 4096
)

// Config identifies a provider and the credentials and tuning for it.
// A Config is resolved (defaults filled, provider detected) before client
// construction; see Normalize.
type Config struct {
	// Provider names the provider family. NameAuto (or empty) enables
	// key/model sniffing.
	Provider Name

	// APIKey is the authentication credential. Unused for ollama.
	APIKey string

	// Model is the chat model name. Empty selects a per-family default.
	Model string

	// BaseURL overrides the provider's default endpoint. Only honoured
	// by the openai-compatible and ollama branches.
	BaseURL string

	// EmbeddingModel overrides the default embedding model of whichever
	// embedding backend the key shape selects.
	EmbeddingModel string

	// MaxTokens caps tokens generated per response. 0 selects a default.
	MaxTokens int
}

// Normalize returns a copy of cfg with defaults applied and the provider
// detected. Identical inputs always normalize identically, so re-resolving
// the same configuration is side-effect free.
func (c Config) Normalize() Config {
	out := c
	if out.Model == "" {
		if out.Provider == NameOllama {
			out.Model = DefaultOllamaModel
		} else {
			out.Model = DefaultGoogleModel
		}
	}

	// An OpenAI-style key with the Google default model means the caller
	// set a key but no model; a Gemini model cannot serve that key.
	if strings.HasPrefix(out.APIKey, keyPrefixOpenAI) && out.Model == DefaultGoogleModel {
		out.Model = DefaultOpenAIModel
	}

	if out.Provider == "" || out.Provider == NameAuto {
		out.Provider = detect(out.Model, out.BaseURL)
	}

	// OpenRouter keys route to the known gateway unless the caller chose
	// an endpoint themselves.
	if out.Provider == NameOpenAICompatible &&
		strings.HasPrefix(out.APIKey, keyPrefixOpenRouter) && out.BaseURL == "" {
		out.BaseURL = openRouterBaseURL
	}

	if out.MaxTokens <= 0 {
		out.MaxTokens = defaultMaxTokens
	}
	return out
}

// detect sniffs the provider family from the model name. A custom endpoint
// forces claude-named models into the generic branch: proxies often serve
// Anthropic models over the OpenAI wire format.
func detect(model, baseURL string) Name {
	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "gemini"):
		return NameGoogle
	case strings.HasPrefix(lower, "claude") && baseURL == "":
		return NameAnthropic
	default:
		return NameOpenAICompatible
	}
}

// Equal reports whether two configs resolve to the same clients. The engine
// uses this to decide whether a request's overrides force a rebuild.
func (c Config) Equal(other Config) bool {
	a, b := c.Normalize(), other.Normalize()
	return a.Provider == b.Provider &&
		a.APIKey == b.APIKey &&
		a.Model == b.Model &&
		a.BaseURL == b.BaseURL &&
		a.EmbeddingModel == b.EmbeddingModel
}
