package parley

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/vasara-ai/parley/pkg/core"
)

func TestAPIKeyIsFetchedOnceAndCached(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/key" {
			t.Errorf("path = %s, want /api/key", r.URL.Path)
		}
		hits.Add(1)
		io.WriteString(w, `{"apiKey":"secret-123"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	for i := 0; i < 3; i++ {
		key, err := client.APIKey(context.Background())
		if err != nil {
			t.Fatalf("APIKey() error = %v", err)
		}
		if key != "secret-123" {
			t.Fatalf("key = %q", key)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("backend hit %d times, want 1", got)
	}

	client.ResetAPIKey()
	if _, err := client.APIKey(context.Background()); err != nil {
		t.Fatalf("APIKey() after reset error = %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("backend hit %d times after reset, want 2", got)
	}
}

func TestAPIKeyEmptyIsConfigError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"apiKey":"  "}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.APIKey(context.Background())
	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Type != core.ErrConfig {
		t.Fatalf("error = %v, want configuration error", err)
	}
}

func TestWithAPIKeySkipsBackendFetch(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", WithAPIKey("pre-seeded"))
	key, err := client.APIKey(context.Background())
	if err != nil {
		t.Fatalf("APIKey() error = %v", err)
	}
	if key != "pre-seeded" {
		t.Fatalf("key = %q, want pre-seeded", key)
	}
}

func TestTransportErrorWrapsAndRedacts(t *testing.T) {
	inner := errors.New("connection refused")
	err := &TransportError{Op: "GET", URL: "wss://host/ws?key=secret", Err: inner}
	if !errors.Is(err, inner) {
		t.Fatalf("TransportError does not unwrap to the inner error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "REDACTED") {
		t.Fatalf("message %q does not redact the key", msg)
	}
	if strings.Contains(msg, "secret") {
		t.Fatalf("message %q leaks the key", msg)
	}
}
