package live

// Event is one tagged event delivered by a live transport. Events arrive on
// a single ordered channel consumed by one handler loop; there are no
// per-callback code paths.
type Event interface {
	eventType() string
}

// OpenEvent is emitted once when the transport reports the session open.
type OpenEvent struct{}

func (OpenEvent) eventType() string { return "open" }

// MessageEvent carries one inbound server message. Any combination of fields
// may be set.
type MessageEvent struct {
	// Audio is decoded 24 kHz mono PCM16 synthesized speech, if present.
	Audio []byte

	// InputTranscript and OutputTranscript are incremental transcription
	// deltas for the user's speech and the model's speech respectively.
	InputTranscript  string
	OutputTranscript string

	// TurnComplete marks the end of a model turn; accumulated transcriptions
	// are flushed into finalized messages.
	TurnComplete bool
}

func (MessageEvent) eventType() string { return "message" }

// ErrorEvent is emitted when the transport fails. The session tears down
// immediately after.
type ErrorEvent struct {
	Err error
}

func (ErrorEvent) eventType() string { return "error" }

// ClosedEvent is emitted when the transport closes, normally or otherwise.
// It is always the last event.
type ClosedEvent struct{}

func (ClosedEvent) eventType() string { return "closed" }

// Transport is a bidirectional realtime voice connection. Implementations
// deliver events in arrival order on Events and close the channel after
// ClosedEvent.
type Transport interface {
	Events() <-chan Event
	SendFrame(Frame) error
	Close() error
}
