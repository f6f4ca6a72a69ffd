package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/docuchat/docuchat/internal/budget"
	"github.com/docuchat/docuchat/internal/logging"
	"github.com/docuchat/docuchat/internal/provider"
	"github.com/docuchat/docuchat/internal/rag"
	"github.com/docuchat/docuchat/internal/search"
)

const (
	// defaultSystemPrompt is used when the caller supplies no instruction.
	defaultSystemPrompt = "You are a helpful assistant."

	// ragDirective tells the model how to treat retrieved context.
	ragDirective = "Use the following pieces of retrieved context to answer " +
		"the question. The context contains information from uploaded files. " +
		"If the context is empty or irrelevant, say that you don't have enough " +
		"information from the uploaded files. " +
		"Use three sentences maximum and keep the answer concise."

	// deepThinkDirective is appended when the caller requests deeper reasoning.
	deepThinkDirective = " Please use a step-by-step reasoning approach and " +
		"think deeply before providing the final answer."

	// retrievalTopK is the number of chunks retrieved per query.
	retrievalTopK = 5
)

// ChatRequest carries one chat turn with its optional per-request overrides.
type ChatRequest struct {
	// Query is the user's message. Required.
	Query string

	// Image is an optional base64 data URL. An attached image disables
	// retrieval for this request and routes through direct chat.
	Image string

	// Model, BaseURL and APIKey override the engine's provider
	// configuration for this and subsequent requests.
	Model   string
	BaseURL string
	APIKey  string

	// History is the prior conversation, oldest first.
	History []Turn

	// DeepThink appends a step-by-step reasoning directive.
	DeepThink bool

	// EnableSearch turns on web search augmentation; SearchAPIKey is the
	// search provider credential. Both must be set for a search to run.
	EnableSearch bool
	SearchAPIKey string

	// SystemInstruction replaces the default system prompt.
	SystemInstruction string

	// SessionID scopes retrieval to chunks ingested under this session.
	SessionID string
}

// Turn is one prior conversation message.
type Turn struct {
	// Role is "user" or "model" ("assistant" is accepted as an alias).
	Role string `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
}

// ChatResponse is the answer to one chat request.
type ChatResponse struct {
	// Answer is the model's reply.
	Answer string `json:"answer"`
	// Sources lists the distinct source documents behind the answer.
	// Empty for direct (non-retrieval) answers.
	Sources []string `json:"sources"`
}

// GetResponse answers a query. Retrieval is attempted opportunistically:
// when the index is available and no image is attached, the top chunks are
// retrieved and stuffed into the prompt; any failure inside that path falls
// back silently to direct chat. Only a direct-chat failure is terminal.
func (e *Engine) GetResponse(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	snap, err := e.snapshot(ctx, provider.Config{
		APIKey:  req.APIKey,
		Model:   req.Model,
		BaseURL: req.BaseURL,
	})
	if err != nil {
		return ChatResponse{}, err
	}

	log := logging.FromContext(ctx)

	searchContext := e.searchContext(ctx, req)

	basePrompt := req.SystemInstruction
	if basePrompt == "" {
		basePrompt = defaultSystemPrompt
	}
	reasoning := ""
	if req.DeepThink {
		reasoning = deepThinkDirective
	}

	history := historyMessages(req.History, req.Query)

	if snap.index != nil && req.Image == "" {
		resp, err := e.respondWithRetrieval(ctx, snap, req, basePrompt, reasoning, searchContext, history)
		if err == nil {
			return resp, nil
		}
		log.Warn("retrieval path failed, falling back to direct chat", slog.String("error", err.Error()))
	}

	resp, err := e.respondDirect(ctx, snap, req, basePrompt, reasoning, searchContext, history)
	if err != nil {
		return ChatResponse{}, classify(err)
	}
	return resp, nil
}

// searchContext runs optional web search augmentation. Failures degrade to
// a marker string so the model knows the attempt happened; augmentation
// never aborts the request.
func (e *Engine) searchContext(ctx context.Context, req ChatRequest) string {
	if !req.EnableSearch || req.SearchAPIKey == "" || e.searcher == nil {
		return ""
	}
	results, err := e.searcher.Search(ctx, req.SearchAPIKey, req.Query)
	if err != nil {
		logging.FromContext(ctx).Warn("web search failed", slog.String("error", err.Error()))
		return search.FailureMarker
	}
	return search.FormatResults(results)
}

// respondWithRetrieval retrieves the top chunks for the query, assembles a
// retrieval prompt and invokes the chat model. Any error here triggers the
// direct-chat fallback in GetResponse.
func (e *Engine) respondWithRetrieval(ctx context.Context, snap *clients, req ChatRequest, basePrompt, reasoning, searchContext string, history []*schema.Message) (ChatResponse, error) {
	filter := rag.Filter{SessionID: req.SessionID}
	docs, err := snap.index.Search(ctx, req.Query, retrievalTopK, filter)
	if err != nil {
		return ChatResponse{}, err
	}

	var contextBlock strings.Builder
	seen := make(map[string]struct{})
	sources := []string{}
	for _, doc := range docs {
		contextBlock.WriteString(doc.Content)
		contextBlock.WriteString("\n\n")
		if _, ok := seen[doc.Source]; !ok && doc.Source != "" {
			seen[doc.Source] = struct{}{}
			sources = append(sources, doc.Source)
		}
	}

	systemPrompt := fmt.Sprintf("%s %s%s\n\n%s%s",
		basePrompt, ragDirective, reasoning, contextBlock.String(), searchContext)

	system := schema.SystemMessage(systemPrompt)
	user := schema.UserMessage(req.Query)
	history = budget.TrimHistory([]*schema.Message{system, user}, history, e.maxContextTokens)

	msgs := make([]*schema.Message, 0, len(history)+2)
	msgs = append(msgs, system)
	msgs = append(msgs, history...)
	msgs = append(msgs, user)

	out, err := snap.chat.Generate(ctx, msgs)
	if err != nil {
		return ChatResponse{}, err
	}
	return ChatResponse{Answer: out.Content, Sources: sources}, nil
}

// respondDirect invokes the chat model without retrieval. The system
// instruction travels as a leading user message for compatibility with
// backends that reject a system role.
func (e *Engine) respondDirect(ctx context.Context, snap *clients, req ChatRequest, basePrompt, reasoning, searchContext string, history []*schema.Message) (ChatResponse, error) {
	instruction := schema.UserMessage(basePrompt + reasoning + "\n" + searchContext)

	current := schema.UserMessage(req.Query)
	if req.Image != "" {
		current = &schema.Message{
			Role: schema.User,
			MultiContent: []schema.ChatMessagePart{
				{Type: schema.ChatMessagePartTypeText, Text: req.Query},
				{
					Type:     schema.ChatMessagePartTypeImageURL,
					ImageURL: &schema.ChatMessageImageURL{URL: req.Image},
				},
			},
		}
	}

	history = budget.TrimHistory([]*schema.Message{instruction, current}, history, e.maxContextTokens)

	msgs := make([]*schema.Message, 0, len(history)+2)
	msgs = append(msgs, instruction)
	msgs = append(msgs, history...)
	msgs = append(msgs, current)

	out, err := snap.chat.Generate(ctx, msgs)
	if err != nil {
		return ChatResponse{}, err
	}
	return ChatResponse{Answer: out.Content, Sources: []string{}}, nil
}

// historyMessages converts prior turns into chat messages, dropping a
// trailing user turn that exactly repeats the current query so it is not
// sent twice.
func historyMessages(turns []Turn, query string) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(turns))
	for i, turn := range turns {
		switch turn.Role {
		case "user":
			if i == len(turns)-1 && turn.Content == query {
				continue
			}
			msgs = append(msgs, schema.UserMessage(turn.Content))
		case "model", "assistant":
			msgs = append(msgs, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return msgs
}
