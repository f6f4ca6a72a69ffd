package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/docuchat/docuchat/internal/logging"
	"github.com/docuchat/docuchat/internal/store"
)

// handleHistoryList handles GET /api/history: all saved chat sessions,
// most recently updated first.
func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		jsonError(w, http.StatusServiceUnavailable, "chat history is disabled")
		return
	}

	sessions, err := s.sessions.List(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("history list failed", slog.Any("error", err))
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// handleHistorySave handles POST /api/history: create or update a session.
func (s *Server) handleHistorySave(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		jsonError(w, http.StatusServiceUnavailable, "chat history is disabled")
		return
	}

	var session store.Session
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if session.ID == "" {
		jsonError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := s.sessions.Save(r.Context(), session); err != nil {
		logging.FromContext(r.Context()).Error("history save failed",
			slog.String("session_id", session.ID),
			slog.Any("error", err),
		)
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, saveHistoryResponse{Status: "success", ID: session.ID})
}

// handleHistoryDelete handles DELETE /api/history/{session_id}.
// Deleting an unknown session is a 404, not a silent success.
func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		jsonError(w, http.StatusServiceUnavailable, "chat history is disabled")
		return
	}

	id := r.PathValue("session_id")
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "Session not found")
			return
		}
		logging.FromContext(r.Context()).Error("history delete failed",
			slog.String("session_id", id),
			slog.Any("error", err),
		)
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "deleted"})
}
