package parley

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vasara-ai/parley/pkg/core/types"
)

// ChatService provides streamed text chat with an agent.
type ChatService struct {
	client *Client
}

// Stream sends a prompt to the named agent and returns the response stream.
//
// It never returns an error: request construction and transport failures
// surface as a single synthetic unit so the caller renders them as a
// message instead of branching on an error path.
func (s *ChatService) Stream(ctx context.Context, agent string, req *types.ChatStreamRequest) *Stream {
	if strings.TrimSpace(agent) == "" {
		return newErrorStream("Error: no agent selected.")
	}
	if req == nil {
		req = &types.ChatStreamRequest{}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return newErrorStream(fmt.Sprintf("Error: could not encode the request: %v", err))
	}

	endpoint := s.client.baseURL + "/api/agents/" + url.PathEscape(strings.TrimSpace(agent)) + "/chat/stream"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return newErrorStream(fmt.Sprintf("Error: could not build the request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.httpClient.Do(httpReq)
	if err != nil {
		s.client.logger.Warn("chat stream request failed", "agent", agent, "error", err)
		return newErrorStream("Error: could not reach the agent backend.")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		s.client.logger.Warn("chat stream rejected", "agent", agent, "status", resp.StatusCode)
		return newErrorStream(fmt.Sprintf("Error: the agent backend returned status %d.", resp.StatusCode))
	}
	if resp.Body == nil {
		return newErrorStream("Error: the agent backend returned an empty response.")
	}

	return &Stream{
		body:    resp.Body,
		decoder: NewDecoder(s.client.logger),
		raw:     isPlainTextStream(resp.Header.Get("Content-Type")),
	}
}

// isPlainTextStream reports whether the response degrades to plain text,
// where every network chunk is one display unit. Anything JSON-shaped keeps
// the newline-delimited JSON framing.
func isPlainTextStream(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	return mediaType == "text/plain"
}

// Send runs one full chat turn against conv: it records the user prompt,
// streams the agent response, and applies every interpreted event to the
// conversation, honoring message-break pauses. A newer Send on the same
// conversation supersedes this one; the superseded turn stops applying
// events and returns nil.
func (s *ChatService) Send(ctx context.Context, conv *Conversation, agent, prompt string) error {
	if conv == nil {
		return NewInvalidRequestError("conversation must not be nil")
	}

	// Cancelled on return so an early exit also releases the decode pump.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	history := conv.History()
	conv.AddUserMessage(prompt)
	turn := conv.BeginTurn()

	stream := s.Stream(ctx, agent, &types.ChatStreamRequest{Prompt: prompt, History: history})
	defer stream.Close()

	// Decoding is pumped on its own goroutine so break pauses never stall
	// the network read.
	units := make(chan types.StreamResponse, 64)
	go func() {
		defer close(units)
		for {
			unit, err := stream.Next()
			if err == io.EOF {
				return
			}
			select {
			case units <- unit:
			case <-ctx.Done():
				return
			}
		}
	}()

	interp := NewInterpreter()
	for unit := range units {
		for _, ev := range interp.FeedUnit(unit) {
			if done, err := s.apply(ctx, conv, turn, ev); done || err != nil {
				return err
			}
		}
	}
	for _, ev := range interp.Flush() {
		if done, err := s.apply(ctx, conv, turn, ev); done || err != nil {
			return err
		}
	}

	conv.EndTurn(turn)
	return nil
}

// apply feeds one event to the conversation. done reports that this turn was
// superseded and should stop silently.
func (s *ChatService) apply(ctx context.Context, conv *Conversation, turn uint64, ev ChatEvent) (done bool, err error) {
	if !conv.Apply(turn, ev) {
		return true, nil
	}
	if brk, ok := ev.(BreakEvent); ok && brk.Pause > 0 {
		select {
		case <-time.After(brk.Pause):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return false, nil
}
