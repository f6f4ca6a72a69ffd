package embedder

import (
	"log/slog"
	"strings"
)

// knownChatModelFragments contains name fragments identifying chat models
// that are not suitable for embedding. A configured embedding model matching
// one of these is almost certainly a misconfiguration.
var knownChatModelFragments = []string{
	"gpt-4",
	"gpt-3.5",
	"o1",
	"o3",
	"gemini-",
	"llama",
	"mistral",
	"mixtral",
	"gemma",
	"phi-",
	"claude",
	"deepseek",
	"qwen",
}

// looksLikeChatModel reports whether the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, fragment := range knownChatModelFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// WarnIfChatModel logs a warning when the configured embedding model looks
// like a chat model. The embed call would still go through on some backends
// but produce vectors unfit for retrieval, so surface it at configure time.
func WarnIfChatModel(log *slog.Logger, model string) {
	if model == "" || !looksLikeChatModel(model) {
		return
	}
	log.Warn("embedding model looks like a chat model, not an embedding model",
		slog.String("model", model),
		slog.String("hint", "use a dedicated embedding model e.g. text-embedding-3-small, nomic-embed-text"),
	)
}
