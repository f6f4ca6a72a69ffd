package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/docuchat/docuchat/internal/engine"
)

// postChat runs a POST /api/chat request with the given JSON body against s.
func postChat(t *testing.T, s *Server, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.handleChat(w, req)
	return w
}

func TestHandleChat_MissingMessage(t *testing.T) {
	t.Parallel()

	w := postChat(t, newTestServer(), `{"sessionId":"s1"}`, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleChat_InvalidJSON(t *testing.T) {
	t.Parallel()

	w := postChat(t, newTestServer(), `not-json`, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// TestHandleChat_Success verifies that a valid request returns the answer
// and its sources as JSON.
func TestHandleChat_Success(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{answer: engine.ChatResponse{
		Answer:  "the sky is blue",
		Sources: []string{"notes.txt"},
	}}
	s := newFakeTestServer(f)

	w := postChat(t, s, `{"message":"what color is the sky?","sessionId":"s1"}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}

	var resp chatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Response != "the sky is blue" {
		t.Errorf("response: got %q", resp.Response)
	}
	if len(resp.Sources) != 1 || resp.Sources[0] != "notes.txt" {
		t.Errorf("sources: got %v", resp.Sources)
	}
	if f.lastChat.Query != "what color is the sky?" {
		t.Errorf("query passed to engine: got %q", f.lastChat.Query)
	}
	if f.lastChat.SessionID != "s1" {
		t.Errorf("session passed to engine: got %q", f.lastChat.SessionID)
	}
}

// TestHandleChat_NilSourcesBecomeEmptyArray verifies direct answers
// serialize sources as [] rather than null.
func TestHandleChat_NilSourcesBecomeEmptyArray(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{answer: engine.ChatResponse{Answer: "hi"}}
	s := newFakeTestServer(f)

	w := postChat(t, s, `{"message":"hello"}`, nil)

	if !strings.Contains(w.Body.String(), `"sources":[]`) {
		t.Errorf("expected empty sources array, got body: %s", w.Body.String())
	}
}

// TestHandleChat_HeaderKeyFallback verifies the x-api-key header supplies the
// provider credential when the body carries none, and that a body key wins.
func TestHandleChat_HeaderKeyFallback(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{}
	s := newFakeTestServer(f)

	postChat(t, s, `{"message":"hi"}`, map[string]string{"x-api-key": "header-key"})
	if f.lastChat.APIKey != "header-key" {
		t.Errorf("expected header key, got %q", f.lastChat.APIKey)
	}

	postChat(t, s, `{"message":"hi","apiKey":"body-key"}`, map[string]string{"x-api-key": "header-key"})
	if f.lastChat.APIKey != "body-key" {
		t.Errorf("expected body key to win, got %q", f.lastChat.APIKey)
	}
}

// TestHandleChat_LocalProviderURLFiltered verifies that endpoint overrides
// pointing at this host are dropped before reaching the engine.
func TestHandleChat_LocalProviderURLFiltered(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{}
	s := newFakeTestServer(f)

	postChat(t, s, `{"message":"hi","providerUrl":"http://localhost:8000/api"}`, nil)
	if f.lastChat.BaseURL != "" {
		t.Errorf("expected localhost URL dropped, got %q", f.lastChat.BaseURL)
	}

	postChat(t, s, `{"message":"hi","providerUrl":"https://api.example.com/v1"}`, nil)
	if f.lastChat.BaseURL != "https://api.example.com/v1" {
		t.Errorf("expected remote URL kept, got %q", f.lastChat.BaseURL)
	}
}

// TestHandleChat_AuthErrorIs401 verifies that credential rejections surface
// as 401 with a JSON detail body.
func TestHandleChat_AuthErrorIs401(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{chatErr: fmt.Errorf("chat: %w", engine.ErrAuthentication)}
	s := newFakeTestServer(f)

	w := postChat(t, s, `{"message":"hi"}`, nil)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var resp errorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Detail == "" {
		t.Error("expected non-empty detail")
	}
}

// TestHandleChat_GenericErrorIs500 verifies that non-credential failures
// surface as 500.
func TestHandleChat_GenericErrorIs500(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{chatErr: errors.New("connection reset")}
	s := newFakeTestServer(f)

	w := postChat(t, s, `{"message":"hi"}`, nil)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

// TestFilterProviderURL exercises the self-reference filter directly.
func TestFilterProviderURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"http://localhost:11434", ""},
		{"https://127.0.0.1:8000/v1", ""},
		{"http://0.0.0.0:8000", ""},
		{"HTTP://LOCALHOST/api", ""},
		{"https://openrouter.ai/api/v1", "https://openrouter.ai/api/v1"},
		{"https://api.openai.com/v1", "https://api.openai.com/v1"},
	}

	for _, tc := range cases {
		if got := filterProviderURL(tc.in); got != tc.want {
			t.Errorf("filterProviderURL(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
