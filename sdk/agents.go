package parley

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/vasara-ai/parley/pkg/core"
	"github.com/vasara-ai/parley/pkg/core/types"
)

// AgentsService provides access to agent discovery and configuration.
type AgentsService struct {
	client *Client
}

// List returns the agents the backend exposes.
func (s *AgentsService) List(ctx context.Context) ([]types.AgentInfo, error) {
	var payload struct {
		Agents []types.AgentInfo `json:"agents"`
	}
	if err := s.client.getJSON(ctx, "/api/agents", &payload); err != nil {
		return nil, err
	}
	return payload.Agents, nil
}

// Config returns the chat configuration for the named agent.
func (s *AgentsService) Config(ctx context.Context, name string) (*types.AgentConfig, error) {
	path, err := agentPath(name, "config")
	if err != nil {
		return nil, err
	}
	var cfg types.AgentConfig
	if err := s.client.getJSON(ctx, path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LiveConfig returns the realtime voice configuration for the named agent.
// A config missing its model, voice, or system instruction is rejected here
// rather than surfacing as an opaque websocket failure later.
func (s *AgentsService) LiveConfig(ctx context.Context, name string) (*types.LiveConfig, error) {
	path, err := agentPath(name, "live/config")
	if err != nil {
		return nil, err
	}
	var cfg types.LiveConfig
	if err := s.client.getJSON(ctx, path, &cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, core.NewConfigError(fmt.Sprintf("agent %q live config has no model", name), "model")
	}
	if strings.TrimSpace(cfg.VoiceName) == "" {
		return nil, core.NewConfigError(fmt.Sprintf("agent %q live config has no voice", name), "voiceName")
	}
	if strings.TrimSpace(cfg.SystemInstruction) == "" {
		return nil, core.NewConfigError(fmt.Sprintf("agent %q live config has no system instruction", name), "systemInstruction")
	}
	return &cfg, nil
}

func agentPath(name, suffix string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", core.NewInvalidRequestError("agent name must not be empty")
	}
	return "/api/agents/" + url.PathEscape(name) + "/" + suffix, nil
}
