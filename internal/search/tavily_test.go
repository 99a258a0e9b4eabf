package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTavilySearch(t *testing.T) {
	t.Parallel()

	var got tavilyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tvly-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":"go generics","answer":"Type parameters.","results":[{"title":"Go blog","url":"https://go.dev/blog","content":"intro","score":0.9}]}`))
	}))
	defer srv.Close()

	resp, err := NewTavily("tvly-key", WithEndpoint(srv.URL), WithHTTPClient(srv.Client())).
		Search(context.Background(), "  go generics ")
	require.NoError(t, err)

	assert.Equal(t, tavilyRequest{
		Query:             "go generics",
		MaxResults:        5,
		SearchDepth:       "advanced",
		IncludeAnswer:     true,
		IncludeRawContent: true,
		IncludeImages:     false,
	}, got)
	assert.Equal(t, "Type parameters.", resp.Answer)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "https://go.dev/blog", resp.Results[0].URL)
}

func TestTavilyErrors(t *testing.T) {
	t.Parallel()

	_, err := NewTavily("").Search(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrNotConfigured))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewTavily("k", WithEndpoint(srv.URL))
	_, err = c.Search(context.Background(), "x")
	assert.ErrorContains(t, err, "status 401")

	_, err = c.Search(context.Background(), "   ")
	assert.ErrorContains(t, err, "empty")
}
