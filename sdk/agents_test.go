package parley

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vasara-ai/parley/pkg/core"
)

func newAgentsTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/agents", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"agents":[{"name":"rani-bhat","displayName":"Rani"},{"name":"max","displayName":"Max"}]}`)
	})
	mux.HandleFunc("/api/agents/rani-bhat/config", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"model":"gemini-2.0-flash","promptTemplate":"You are Rani."}`)
	})
	mux.HandleFunc("/api/agents/rani-bhat/live/config", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"model":"gemini-2.0-flash-live","systemInstruction":"You are Rani.","voiceName":"Aoede"}`)
	})
	mux.HandleFunc("/api/agents/max/live/config", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"model":"gemini-2.0-flash-live","systemInstruction":"You are Max.","voiceName":""}`)
	})
	return httptest.NewServer(mux)
}

func TestAgentsList(t *testing.T) {
	server := newAgentsTestServer(t)
	defer server.Close()

	client := NewClient(server.URL)
	agents, err := client.Agents.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("got %d agents, want 2", len(agents))
	}
	if agents[0].Name != "rani-bhat" || agents[0].DisplayName != "Rani" {
		t.Fatalf("agents[0] = %+v", agents[0])
	}
}

func TestAgentsConfig(t *testing.T) {
	server := newAgentsTestServer(t)
	defer server.Close()

	client := NewClient(server.URL)
	cfg, err := client.Agents.Config(context.Background(), "rani-bhat")
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}
	if cfg.Model != "gemini-2.0-flash" {
		t.Fatalf("model = %q", cfg.Model)
	}
}

func TestAgentsLiveConfig(t *testing.T) {
	server := newAgentsTestServer(t)
	defer server.Close()

	client := NewClient(server.URL)
	cfg, err := client.Agents.LiveConfig(context.Background(), "rani-bhat")
	if err != nil {
		t.Fatalf("LiveConfig() error = %v", err)
	}
	if cfg.VoiceName != "Aoede" {
		t.Fatalf("voice = %q, want Aoede", cfg.VoiceName)
	}
}

func TestAgentsLiveConfigMissingVoiceIsFatal(t *testing.T) {
	server := newAgentsTestServer(t)
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Agents.LiveConfig(context.Background(), "max")
	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Type != core.ErrConfig {
		t.Fatalf("error = %v, want configuration error", err)
	}
	if coreErr.Param != "voiceName" {
		t.Fatalf("param = %q, want voiceName", coreErr.Param)
	}
}

func TestAgentsUnknownAgentIsNotFound(t *testing.T) {
	server := newAgentsTestServer(t)
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Agents.Config(context.Background(), "nobody")
	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Type != core.ErrNotFound {
		t.Fatalf("error = %v, want not-found error", err)
	}
}

func TestAgentsEmptyNameRejected(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	if _, err := client.Agents.Config(context.Background(), "  "); err == nil {
		t.Fatalf("empty agent name was accepted")
	}
}
