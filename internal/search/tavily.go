// Package search implements the web search backend of the assistant's
// search tool.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultEndpoint is the Tavily search API.
const DefaultEndpoint = "https://api.tavily.com/search"

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("web search is not configured")

// Result is one web page returned by a search.
type Result struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	RawContent string  `json:"raw_content,omitempty"`
	Score      float64 `json:"score"`
}

// Response is the answer and the ranked pages of one query.
type Response struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer,omitempty"`
	Results []Result `json:"results"`
}

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string) (*Response, error)
}

// Options tune a Tavily query.
type Options struct {
	MaxResults        int
	SearchDepth       string
	IncludeAnswer     bool
	IncludeRawContent bool
	IncludeImages     bool
}

// DefaultOptions returns the settings the assistant uses.
func DefaultOptions() Options {
	return Options{
		MaxResults:        5,
		SearchDepth:       "advanced",
		IncludeAnswer:     true,
		IncludeRawContent: true,
	}
}

// Tavily is a Searcher backed by the Tavily HTTP API.
type Tavily struct {
	apiKey     string
	endpoint   string
	opts       Options
	httpClient *http.Client
}

// TavilyOption customizes a Tavily client.
type TavilyOption func(*Tavily)

// WithEndpoint overrides the API URL.
func WithEndpoint(url string) TavilyOption {
	return func(t *Tavily) { t.endpoint = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) TavilyOption {
	return func(t *Tavily) { t.httpClient = c }
}

// WithOptions overrides the query options.
func WithOptions(o Options) TavilyOption {
	return func(t *Tavily) { t.opts = o }
}

// NewTavily returns a client authenticated with apiKey.
func NewTavily(apiKey string, opts ...TavilyOption) *Tavily {
	t := &Tavily{
		apiKey:     strings.TrimSpace(apiKey),
		endpoint:   DefaultEndpoint,
		opts:       DefaultOptions(),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type tavilyRequest struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	SearchDepth       string `json:"search_depth"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
	IncludeImages     bool   `json:"include_images"`
}

// Search runs one query.
func (t *Tavily) Search(ctx context.Context, query string) (*Response, error) {
	if t.apiKey == "" {
		return nil, ErrNotConfigured
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query is empty")
	}

	body, err := json.Marshal(tavilyRequest{
		Query:             query,
		MaxResults:        t.opts.MaxResults,
		SearchDepth:       t.opts.SearchDepth,
		IncludeAnswer:     t.opts.IncludeAnswer,
		IncludeRawContent: t.opts.IncludeRawContent,
		IncludeImages:     t.opts.IncludeImages,
	})
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("search failed: status %d: %s", resp.StatusCode, snippet(raw))
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if out.Query == "" {
		out.Query = query
	}
	return &out, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
