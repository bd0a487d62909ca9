// Package types defines the shared data model for the parley client:
// conversation messages, citation sources, and the wire units exchanged
// with the agent backend.
package types

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Source is one citation attached to a bot message. Identity is the URI;
// within one message's source list the URI is unique.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Message is one displayed bubble in the conversation view. Text is mutated
// in place as streamed increments arrive; messages are never deleted, only
// filtered from display when left empty at stream end.
type Message struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Sender   Sender   `json:"sender"`
	Sources  []Source `json:"sources,omitempty"`
	Reaction string   `json:"reaction,omitempty"`
}

// StreamResponse is one decoded increment of backend output. Units are
// totally ordered by arrival.
type StreamResponse struct {
	TextChunk string   `json:"textChunk,omitempty"`
	Sources   []Source `json:"sources,omitempty"`
}

// HistoryPart is one text part of a history turn.
type HistoryPart struct {
	Text string `json:"text"`
}

// HistoryTurn is one prior turn sent to the chat stream endpoint. Role is
// "user" or "model".
type HistoryTurn struct {
	Role  string        `json:"role"`
	Parts []HistoryPart `json:"parts"`
}

// ChatStreamRequest is the body of POST /api/agents/{name}/chat/stream.
type ChatStreamRequest struct {
	Prompt  string        `json:"prompt"`
	History []HistoryTurn `json:"history"`
}

// AgentInfo identifies one agent exposed by the backend.
type AgentInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// AgentConfig is the free-form chat configuration for one agent. Model and
// prompt template are the fields the client reads; unknown fields from the
// backend are ignored.
type AgentConfig struct {
	Model          string `json:"model"`
	PromptTemplate string `json:"promptTemplate,omitempty"`
}

// LiveConfig configures the realtime voice session for one agent. Missing
// SystemInstruction or VoiceName is a fatal configuration error.
type LiveConfig struct {
	Model             string `json:"model"`
	SystemInstruction string `json:"systemInstruction"`
	VoiceName         string `json:"voiceName"`
}
