// Package embedding provides the HTTP client that implements
// orchestrator.EmbeddingProvider, the external collaborator the core calls
// through to turn query text into a vector (spec.md §1, §4.6).
//
// The core never talks to an embedding model directly — this package is
// swappable behind the interface, matching any HTTP embedding endpoint that
// accepts a single text and returns a float vector.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Config configures the HTTP embedding client.
type Config struct {
	APIURL  string
	APIPath string
	Model   string
	Timeout time.Duration
}

// DefaultConfig points at a local Ollama-compatible endpoint, matching the
// shape this module's reference deployment runs against.
func DefaultConfig() Config {
	return Config{
		APIURL:  "http://localhost:11434",
		APIPath: "/api/embeddings",
		Model:   "mxbai-embed-large",
		Timeout: 30 * time.Second,
	}
}

// Client is an HTTP embedding provider.
type Client struct {
	config Config
	http   *http.Client
}

// New creates an HTTP embedding client.
func New(config Config) *Client {
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates an embedding vector for a single text string by calling
// the configured HTTP endpoint.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.config.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("vectorcore/embedding: marshal request: %w", err)
	}

	url := c.config.APIURL + c.config.APIPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vectorcore/embedding: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("vectorcore/embedding: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vectorcore/embedding: provider returned %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("vectorcore/embedding: decode response: %w", err)
	}
	return parsed.Embedding, nil
}

// CachedClient wraps any Embed-capable provider with a bounded LRU cache
// keyed by exact text match, so repeated query text (a common case in
// interactive search) skips the network round trip entirely.
type CachedClient struct {
	base interface {
		Embed(ctx context.Context, text string) ([]float32, error)
	}
	cache *lru.Cache[string, []float32]
}

// NewCached wraps base with an LRU cache holding up to maxSize entries.
func NewCached(base *Client, maxSize int) (*CachedClient, error) {
	if maxSize <= 0 {
		maxSize = 10_000
	}
	cache, err := lru.New[string, []float32](maxSize)
	if err != nil {
		return nil, fmt.Errorf("vectorcore/embedding: create cache: %w", err)
	}
	return &CachedClient{base: base, cache: cache}, nil
}

// Embed returns the cached vector for text if present, otherwise calls the
// base provider and caches the result.
func (c *CachedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.Get(text); ok {
		return vec, nil
	}

	vec, err := c.base.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, vec)
	return vec, nil
}
