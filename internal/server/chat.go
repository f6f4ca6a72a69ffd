package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/docuchat/docuchat/internal/engine"
	"github.com/docuchat/docuchat/internal/logging"
)

// handleChat handles POST /api/chat. The request may carry per-session
// provider overrides (model, endpoint, credential); the engine rebuilds its
// clients only when those actually change.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		jsonError(w, http.StatusBadRequest, "message is required")
		return
	}

	// The web client may send its provider key in a header instead of the body.
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = r.Header.Get("x-api-key")
	}

	start := time.Now()
	resp, err := s.engine.GetResponse(r.Context(), engine.ChatRequest{
		Query:             req.Message,
		Image:             req.Image,
		Model:             req.Model,
		BaseURL:           filterProviderURL(req.ProviderURL),
		APIKey:            apiKey,
		History:           req.History,
		DeepThink:         req.DeepThink,
		EnableSearch:      req.EnableSearch,
		SearchAPIKey:      req.SearchAPIKey,
		SystemInstruction: req.SystemInstruction,
		SessionID:         req.SessionID,
	})
	elapsed := time.Since(start)

	if err != nil {
		status := engineStatus(err)
		outcome := outcomeError
		if status == http.StatusUnauthorized {
			outcome = outcomeAuth
		}
		s.metrics.observeChat(outcome, elapsed)
		log.Error("chat failed",
			slog.String("model", req.Model),
			slog.Any("error", err),
		)
		jsonError(w, status, err.Error())
		return
	}

	s.metrics.observeChat(outcomeOK, elapsed)

	sources := resp.Sources
	if sources == nil {
		sources = []string{}
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: resp.Answer, Sources: sources})
}

// filterProviderURL drops endpoint overrides that point back at this machine.
// A browser-configured localhost URL would make the server call itself.
func filterProviderURL(raw string) string {
	if raw == "" {
		return ""
	}
	normalized := strings.NewReplacer("http://", "", "https://", "", "/", "").
		Replace(strings.ToLower(raw))
	for _, self := range []string{"localhost", "127.0.0.1", "0.0.0.0"} {
		if strings.Contains(normalized, self) {
			return ""
		}
	}
	return raw
}
