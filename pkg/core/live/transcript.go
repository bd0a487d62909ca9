package live

import "strings"

// TranscriptAccumulator collects incremental input/output transcription
// deltas for the current turn. State is explicit per session rather than
// captured in handler closures so it can be constructed, fed, and inspected
// directly.
type TranscriptAccumulator struct {
	input  strings.Builder
	output strings.Builder
}

// AddInput appends a user-speech transcription delta.
func (a *TranscriptAccumulator) AddInput(delta string) {
	a.input.WriteString(delta)
}

// AddOutput appends a model-speech transcription delta.
func (a *TranscriptAccumulator) AddOutput(delta string) {
	a.output.WriteString(delta)
}

// Input returns the accumulated user transcription so far.
func (a *TranscriptAccumulator) Input() string { return a.input.String() }

// Output returns the accumulated model transcription so far.
func (a *TranscriptAccumulator) Output() string { return a.output.String() }

// Flush returns the accumulated transcriptions and resets the accumulator.
// Called on turnComplete to finalize the turn's messages.
func (a *TranscriptAccumulator) Flush() (input, output string) {
	input = a.input.String()
	output = a.output.String()
	a.input.Reset()
	a.output.Reset()
	return input, output
}
