// Package parley provides the Parley client SDK for Go.
//
// The SDK talks to a Parley agent backend: agent discovery, streamed text
// chat with inline directives, and realtime voice sessions.
package parley

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/vasara-ai/parley/pkg/core"
)

// Client is the main entry point for the SDK.
type Client struct {
	Agents *AgentsService
	Chat   *ChatService
	Live   *LiveService

	// Internal
	baseURL      string
	liveEndpoint string
	httpClient   *http.Client
	logger       *slog.Logger

	keyMu  sync.Mutex
	apiKey string
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		liveEndpoint: defaultLiveEndpoint,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = newDefaultHTTPClient()
	}

	c.Agents = &AgentsService{client: c}
	c.Chat = &ChatService{client: c}
	c.Live = &LiveService{client: c}
	return c
}

// APIKey returns the realtime speech API key, fetching it from the backend on
// first use and caching it for the client's lifetime.
func (c *Client) APIKey(ctx context.Context) (string, error) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	if c.apiKey != "" {
		return c.apiKey, nil
	}

	var payload struct {
		APIKey string `json:"apiKey"`
	}
	if err := c.getJSON(ctx, "/api/key", &payload); err != nil {
		return "", err
	}
	if strings.TrimSpace(payload.APIKey) == "" {
		return "", core.NewConfigError("backend returned an empty API key", "apiKey")
	}
	c.apiKey = payload.APIKey
	return c.apiKey, nil
}

// ResetAPIKey drops the cached key so the next APIKey call refetches it.
// Useful after credential rotation.
func (c *Client) ResetAPIKey() {
	c.keyMu.Lock()
	c.apiKey = ""
	c.keyMu.Unlock()
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return core.NewInvalidRequestError(fmt.Sprintf("build request for %s: %v", path, err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: http.MethodGet, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return core.NewNotFoundError(fmt.Sprintf("%s not found", path))
	case resp.StatusCode != http.StatusOK:
		return core.NewAPIError(fmt.Sprintf("GET %s: unexpected status %d", path, resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.NewAPIError(fmt.Sprintf("GET %s: decode response: %v", path, err))
	}
	return nil
}
