package parley

import (
	"log/slog"
	"net/http"
	"strings"
)

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the logger for the client.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithLiveEndpoint overrides the realtime speech websocket endpoint.
// Primarily useful for tests and proxies.
func WithLiveEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.liveEndpoint = strings.TrimSpace(endpoint)
	}
}

// WithAPIKey pre-seeds the realtime speech API key, skipping the backend
// key fetch.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}
