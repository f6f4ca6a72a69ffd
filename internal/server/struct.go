package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/docuchat/docuchat/internal/engine"
	"github.com/docuchat/docuchat/internal/storage"
	"github.com/docuchat/docuchat/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8000).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// It must cover a full chat round trip to the upstream provider.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on /api/* routes
	// (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Sessions is the chat history store backing the /api/history routes.
	// If nil, those routes return 503.
	Sessions store.SessionStore
	// Files is the upload store backing /api/upload and document download.
	// If nil, those routes return 503.
	Files *storage.Store
	// MetricsRegistry receives the server's Prometheus metrics. Defaults to
	// prometheus.DefaultRegisterer; tests inject a fresh registry.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// responder is the interface the handlers call into. *engine.Engine
// satisfies it; tests inject a fake.
type responder interface {
	// GetResponse answers one chat turn.
	GetResponse(ctx context.Context, req engine.ChatRequest) (engine.ChatResponse, error)
	// IngestText chunks and indexes raw text under source.
	IngestText(ctx context.Context, text, source, sessionID string) (int, error)
	// IngestFile extracts and indexes the file at path under filename.
	IngestFile(ctx context.Context, path, filename, sessionID string) (int, error)
	// ListDocuments returns the distinct indexed source names.
	ListDocuments(ctx context.Context) ([]string, error)
	// DeleteDocument removes all index entries for source.
	DeleteDocument(ctx context.Context, source string) bool
}

// Server is the HTTP server that exposes the chat engine.
type Server struct {
	// engine handles chat, ingestion, and document operations; set to the
	// real engine in production, overridden by a fake in tests.
	engine responder
	// sessions is the chat history store, nil when history is disabled.
	sessions store.SessionStore
	// files is the upload store, nil when uploads are disabled.
	files *storage.Store
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the server's Prometheus instruments.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat. Field names match the
// browser client's payload.
type chatRequest struct {
	// Message is the user's query.
	Message string `json:"message"`
	// Image is an optional base64 data URL attachment.
	Image string `json:"image,omitempty"`
	// APIKey is the upstream provider credential. The x-api-key request
	// header is accepted as a fallback.
	APIKey string `json:"apiKey,omitempty"`
	// Model overrides the configured chat model for this session.
	Model string `json:"model,omitempty"`
	// ProviderURL overrides the provider endpoint. URLs pointing back at
	// this host are ignored.
	ProviderURL string `json:"providerUrl,omitempty"`
	// History is the prior conversation, oldest first.
	History []engine.Turn `json:"history,omitempty"`
	// DeepThink requests step-by-step reasoning.
	DeepThink bool `json:"deepThink,omitempty"`
	// EnableSearch turns on web search augmentation.
	EnableSearch bool `json:"enableSearch,omitempty"`
	// SearchAPIKey is the web search provider credential.
	SearchAPIKey string `json:"searchApiKey,omitempty"`
	// SystemInstruction replaces the default system prompt.
	SystemInstruction string `json:"systemInstruction,omitempty"`
	// SessionID scopes retrieval to this session's uploads.
	SessionID string `json:"sessionId,omitempty"`
}

// chatResponse is the JSON response for POST /api/chat.
type chatResponse struct {
	// Response is the model's answer.
	Response string `json:"response"`
	// Sources lists the documents behind the answer; empty for direct chat.
	Sources []string `json:"sources"`
}

// ingestRequest is the JSON body for POST /api/ingest.
type ingestRequest struct {
	// Text is the raw text to index.
	Text string `json:"text"`
	// Source is the document label (default: "user_upload").
	Source string `json:"source,omitempty"`
	// SessionID scopes the indexed chunks to a chat session.
	SessionID string `json:"sessionId,omitempty"`
}

// ingestResponse is the JSON response for POST /api/ingest.
type ingestResponse struct {
	Status      string `json:"status"`
	ChunksAdded int    `json:"chunks_added"`
}

// uploadResponse is the JSON response for POST /api/upload.
type uploadResponse struct {
	Status      string `json:"status"`
	Filename    string `json:"filename"`
	ChunksAdded int    `json:"chunks_added"`
}

// documentsResponse is the JSON response for GET /api/documents.
type documentsResponse struct {
	Documents []string `json:"documents"`
}

// deleteDocumentResponse is the JSON response for DELETE /api/documents/{filename}.
type deleteDocumentResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
}

// saveHistoryResponse is the JSON response for POST /api/history.
type saveHistoryResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// statusResponse is a minimal status-only JSON response.
type statusResponse struct {
	Status string `json:"status"`
}

// errorResponse is the JSON error body for all /api/* routes.
type errorResponse struct {
	// Detail is the human-readable failure reason.
	Detail string `json:"detail"`
}
