package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// gatherNames returns the metric family names present in reg.
func gatherNames(t *testing.T, reg *prometheus.Registry) map[string]bool {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

// Test_Metrics_ChatOutcomes verifies that observed chat requests appear in
// the registry under the docuchat_chat_* families.
func Test_Metrics_ChatOutcomes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := newServerMetrics(reg)

	m.observeChat(outcomeOK, 250*time.Millisecond)
	m.observeChat(outcomeAuth, 10*time.Millisecond)

	names := gatherNames(t, reg)
	for _, want := range []string{
		"docuchat_chat_requests_total",
		"docuchat_chat_duration_seconds",
	} {
		if !names[want] {
			t.Errorf("expected metric family %q to be registered", want)
		}
	}
}

// Test_Metrics_InstrumentRecordsRequests verifies the per-handler middleware
// records counter and latency samples labelled by handler name.
func Test_Metrics_InstrumentRecordsRequests(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	s := &Server{metrics: newServerMetrics(reg)}

	h := s.instrument("documents", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	names := gatherNames(t, reg)
	if !names["docuchat_http_requests_total"] {
		t.Error("expected docuchat_http_requests_total after a request")
	}
	if !names["docuchat_http_duration_seconds"] {
		t.Error("expected docuchat_http_duration_seconds after a request")
	}
}

// Test_Metrics_EndpointExposition verifies the promhttp handler serves the
// registered families in text exposition format.
func Test_Metrics_EndpointExposition(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := newServerMetrics(reg)
	m.observeChat(outcomeOK, time.Second)

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/metrics", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "docuchat_chat_requests_total") {
		t.Error("expected chat counter in exposition output")
	}
}
