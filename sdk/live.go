package parley

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vasara-ai/parley/pkg/core"
	"github.com/vasara-ai/parley/pkg/core/live"
	"github.com/vasara-ai/parley/pkg/core/types"
)

const (
	defaultLiveEndpoint       = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	defaultLiveConnectTimeout = 15 * time.Second
)

// LiveService opens realtime voice sessions for agents.
type LiveService struct {
	client *Client
}

// LiveSessionConfig wires a voice session to its local audio endpoints.
type LiveSessionConfig struct {
	Microphone live.Microphone
	Sink       live.BufferSink
	Clock      live.Clock

	// OnMessage receives finalized transcript messages on turn completion.
	OnMessage func(sender types.Sender, text string)

	// OnLevel, when set, receives the RMS energy of each capture block.
	OnLevel func(rms float64)
}

// Controller builds a session controller for the named agent. Start on the
// returned controller fetches the agent's live config, dials the realtime
// endpoint, and runs the session loops.
func (s *LiveService) Controller(agent string, cfg LiveSessionConfig) *live.Controller {
	return live.NewController(live.ControllerConfig{
		Dial: func(ctx context.Context) (live.Transport, error) {
			return s.Connect(ctx, agent)
		},
		Microphone: cfg.Microphone,
		Sink:       cfg.Sink,
		Clock:      cfg.Clock,
		OnMessage:  cfg.OnMessage,
		OnLevel:    cfg.OnLevel,
		Logger:     s.client.logger,
	})
}

// Connect resolves the agent's live config and opens a realtime websocket
// session speaking the bidirectional generate-content protocol.
func (s *LiveService) Connect(ctx context.Context, agent string) (*LiveSession, error) {
	cfg, err := s.client.Agents.LiveConfig(ctx, agent)
	if err != nil {
		return nil, err
	}
	key, err := s.client.APIKey(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := s.client.liveEndpoint + "?key=" + url.QueryEscape(key)

	dialer := websocket.DefaultDialer
	if dialer == nil {
		dialer = &websocket.Dialer{}
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, defaultLiveConnectTimeout)
		defer cancel()
	}

	conn, resp, err := dialer.DialContext(dialCtx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, &TransportError{Op: "GET", URL: endpoint, Err: fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)}
		}
		return nil, &TransportError{Op: "GET", URL: endpoint, Err: err}
	}

	if err := conn.WriteJSON(newLiveSetup(cfg)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send live setup: %w", err)
	}

	session := &LiveSession{
		conn:   conn,
		events: make(chan live.Event, 256),
		done:   make(chan struct{}),
	}
	go session.readLoop()
	return session, nil
}

// LiveSession is a realtime websocket session. It implements live.Transport.
type LiveSession struct {
	conn *websocket.Conn

	events chan live.Event
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

// Events yields the ordered session events: Open once the server finishes
// setup, Message per inbound server frame, then Error or Closed.
func (s *LiveSession) Events() <-chan live.Event {
	if s == nil {
		return nil
	}
	return s.events
}

// SendFrame sends one capture audio frame.
func (s *LiveSession) SendFrame(frame live.Frame) error {
	if s == nil {
		return fmt.Errorf("session must not be nil")
	}
	if s.closed.Load() {
		return fmt.Errorf("live session is closed")
	}
	msg := liveClientMessage{
		RealtimeInput: &liveRealtimeInput{MediaChunks: []liveBlob{{MimeType: frame.MimeType, Data: frame.Data}}},
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(msg)
}

// Close closes the websocket session and waits for the read loop to drain.
func (s *LiveSession) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
	<-s.done
	return nil
}

func (s *LiveSession) readLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.emit(live.ClosedEvent{})
				return
			}
			s.emit(live.ErrorEvent{Err: err})
			return
		}

		event, err := decodeLiveServerFrame(data)
		if err != nil {
			s.emit(live.ErrorEvent{Err: err})
			return
		}
		if event != nil {
			s.emit(event)
		}
	}
}

func (s *LiveSession) emit(event live.Event) {
	select {
	case s.events <- event:
	default:
		// Avoid deadlocking the read loop if the consumer stops draining.
	}
}

// Wire shapes of the bidirectional generate-content protocol. Only the
// fields the client reads and writes are modeled.

type liveClientMessage struct {
	Setup         *liveSetup         `json:"setup,omitempty"`
	RealtimeInput *liveRealtimeInput `json:"realtimeInput,omitempty"`
}

type liveSetup struct {
	Model                    string               `json:"model"`
	GenerationConfig         liveGenerationConfig `json:"generationConfig"`
	SystemInstruction        *liveContent         `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *struct{}            `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}            `json:"outputAudioTranscription,omitempty"`
}

type liveGenerationConfig struct {
	ResponseModalities []string          `json:"responseModalities"`
	SpeechConfig       *liveSpeechConfig `json:"speechConfig,omitempty"`
}

type liveSpeechConfig struct {
	VoiceConfig liveVoiceConfig `json:"voiceConfig"`
}

type liveVoiceConfig struct {
	PrebuiltVoiceConfig livePrebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type livePrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type liveContent struct {
	Parts []livePart `json:"parts"`
}

type livePart struct {
	Text       string    `json:"text,omitempty"`
	InlineData *liveBlob `json:"inlineData,omitempty"`
}

type liveBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type liveRealtimeInput struct {
	MediaChunks []liveBlob `json:"mediaChunks"`
}

type liveServerMessage struct {
	SetupComplete *struct{}          `json:"setupComplete,omitempty"`
	ServerContent *liveServerContent `json:"serverContent,omitempty"`
}

type liveServerContent struct {
	ModelTurn           *liveContent       `json:"modelTurn,omitempty"`
	InputTranscription  *liveTranscription `json:"inputTranscription,omitempty"`
	OutputTranscription *liveTranscription `json:"outputTranscription,omitempty"`
	TurnComplete        bool               `json:"turnComplete,omitempty"`
}

type liveTranscription struct {
	Text string `json:"text"`
}

func newLiveSetup(cfg *types.LiveConfig) liveClientMessage {
	model := strings.TrimSpace(cfg.Model)
	if !strings.Contains(model, "/") {
		model = "models/" + model
	}
	return liveClientMessage{
		Setup: &liveSetup{
			Model: model,
			GenerationConfig: liveGenerationConfig{
				ResponseModalities: []string{"AUDIO"},
				SpeechConfig: &liveSpeechConfig{
					VoiceConfig: liveVoiceConfig{
						PrebuiltVoiceConfig: livePrebuiltVoiceConfig{VoiceName: cfg.VoiceName},
					},
				},
			},
			SystemInstruction:        &liveContent{Parts: []livePart{{Text: cfg.SystemInstruction}}},
			InputAudioTranscription:  &struct{}{},
			OutputAudioTranscription: &struct{}{},
		},
	}
}

// decodeLiveServerFrame maps one inbound frame to a session event. Frames
// the client does not model decode to nil and are dropped.
func decodeLiveServerFrame(data []byte) (live.Event, error) {
	var msg liveServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode live server frame: %w", err)
	}

	if msg.SetupComplete != nil {
		return live.OpenEvent{}, nil
	}
	if msg.ServerContent == nil {
		return nil, nil
	}

	event := live.MessageEvent{TurnComplete: msg.ServerContent.TurnComplete}
	if turn := msg.ServerContent.ModelTurn; turn != nil {
		for _, part := range turn.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			pcm, err := live.DecodeFrameData(part.InlineData.Data)
			if err != nil {
				return nil, core.NewAPIError(fmt.Sprintf("decode inline audio: %v", err))
			}
			event.Audio = append(event.Audio, pcm...)
		}
	}
	if t := msg.ServerContent.InputTranscription; t != nil {
		event.InputTranscript = t.Text
	}
	if t := msg.ServerContent.OutputTranscription; t != nil {
		event.OutputTranscript = t.Text
	}
	return event, nil
}
