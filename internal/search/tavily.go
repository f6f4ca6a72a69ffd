// Package search provides live web search augmentation via the Tavily API.
// Search results are formatted into a labeled context block for prompt
// assembly; a failed search degrades to a marker string, never an error
// that aborts the chat request.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// defaultEndpoint is the Tavily search API endpoint.
	defaultEndpoint = "https://api.tavily.com/search"
	// maxResults bounds the context block size.
	maxResults = 3
	// FailureMarker is substituted into the prompt context when search was
	// requested but failed, so the model knows an attempt was made.
	FailureMarker = "\n[Internet Search Attempted but Failed]\n"
)

// Result is a single web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Client calls the Tavily search API. The API key travels per-request, so
// one client serves every caller. Safe for concurrent use.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient constructs a Tavily client against the public endpoint.
func NewClient() *Client {
	return &Client{
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientWithEndpoint constructs a client against a custom endpoint.
// Used by tests.
func NewClientWithEndpoint(endpoint string) *Client {
	c := NewClient()
	c.endpoint = endpoint
	return c
}

// tavilyRequest is the JSON body sent to the search endpoint.
type tavilyRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// tavilyResponse is the JSON body returned from the search endpoint.
type tavilyResponse struct {
	Results []Result `json:"results"`
}

// Search returns up to 3 web results for the query.
func (c *Client) Search(ctx context.Context, apiKey, query string) ([]Result, error) {
	payload, err := json.Marshal(tavilyRequest{Query: query, MaxResults: maxResults})
	if err != nil {
		return nil, fmt.Errorf("search: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("search: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search: HTTP %d", resp.StatusCode)
	}

	var result tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("search: decode response: %w", err)
	}
	if len(result.Results) > maxResults {
		result.Results = result.Results[:maxResults]
	}
	return result.Results, nil
}

// FormatResults renders search hits into the labeled context block used in
// prompt assembly. Empty input renders an empty block, not an empty string,
// so the model can see the search ran and found nothing.
func FormatResults(results []Result) string {
	var b strings.Builder
	b.WriteString("\n\n--- INTERNET SEARCH RESULTS ---\n")
	for _, r := range results {
		fmt.Fprintf(&b, "Source: %s\nContent: %s\n\n", r.URL, r.Content)
	}
	b.WriteString("--- END SEARCH RESULTS ---\n\n")
	return b.String()
}
