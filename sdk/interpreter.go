package parley

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/vasara-ai/parley/pkg/core/types"
)

// Inline directives embedded in agent prose. They can arrive split across
// any number of stream units.
const (
	directiveBreak       = "[MSG_BREAK]"
	directiveReactPrefix = "[REACT:"
)

// Break pauses are uniform in [minBreakPause, minBreakPause+breakPauseJitter)
// to mimic a natural typing rhythm between bubbles.
const (
	minBreakPause    = 400 * time.Millisecond
	breakPauseJitter = 500 * time.Millisecond
)

// ChatEvent is one UI-visible effect decoded from the agent's streamed text.
type ChatEvent interface {
	chatEvent()
}

// ProseEvent appends text to the current bot bubble.
type ProseEvent struct {
	Text string
}

// BreakEvent closes the current bot bubble; subsequent prose opens a new
// one. Pause is how long the renderer should wait before the next bubble.
type BreakEvent struct {
	Pause time.Duration
}

// ReactionEvent assigns an emoji reaction to the latest user message.
type ReactionEvent struct {
	Emoji string
}

// SourcesEvent merges grounding sources into the current bot bubble.
type SourcesEvent struct {
	Sources []types.Source
}

func (ProseEvent) chatEvent()    {}
func (BreakEvent) chatEvent()    {}
func (ReactionEvent) chatEvent() {}
func (SourcesEvent) chatEvent()  {}

// Interpreter is a stateful scanner turning streamed agent text into chat
// events. A directive split across chunk boundaries is held back until
// enough text arrives to classify it, so splitting the input at any byte
// boundary yields the same events as feeding it whole.
type Interpreter struct {
	buf   string
	pause func() time.Duration
}

// NewInterpreter creates an interpreter with the default randomized break
// pause.
func NewInterpreter() *Interpreter {
	return &Interpreter{
		pause: func() time.Duration {
			return minBreakPause + time.Duration(rand.Int64N(int64(breakPauseJitter)))
		},
	}
}

// Feed scans one text chunk and returns the events it completed. Text that
// could still become a directive stays buffered.
func (in *Interpreter) Feed(chunk string) []ChatEvent {
	in.buf += chunk

	var events []ChatEvent
	prose := func(text string) {
		if text != "" {
			events = append(events, ProseEvent{Text: text})
		}
	}

	for in.buf != "" {
		i := strings.IndexByte(in.buf, '[')
		if i < 0 {
			prose(in.buf)
			in.buf = ""
			break
		}
		if i > 0 {
			prose(in.buf[:i])
			in.buf = in.buf[i:]
		}
		if ev, n, ok := in.matchDirective(in.buf); ok {
			events = append(events, ev)
			in.buf = in.buf[n:]
			continue
		}
		if couldBeDirective(in.buf) {
			break
		}
		// The bracket cannot start a directive: it is ordinary prose.
		prose("[")
		in.buf = in.buf[1:]
	}
	return events
}

// FeedUnit scans one stream unit: its text chunk plus any attached sources.
func (in *Interpreter) FeedUnit(unit types.StreamResponse) []ChatEvent {
	events := in.Feed(unit.TextChunk)
	if len(unit.Sources) > 0 {
		events = append(events, SourcesEvent{Sources: unit.Sources})
	}
	return events
}

// Flush drains the held-back buffer as prose. Called at end of stream: a
// directive left unterminated is rendered literally rather than dropped.
func (in *Interpreter) Flush() []ChatEvent {
	if in.buf == "" {
		return nil
	}
	text := in.buf
	in.buf = ""
	return []ChatEvent{ProseEvent{Text: text}}
}

// matchDirective matches a complete directive at the start of s, returning
// the event and the number of bytes consumed.
func (in *Interpreter) matchDirective(s string) (ChatEvent, int, bool) {
	if strings.HasPrefix(s, directiveBreak) {
		return BreakEvent{Pause: in.pause()}, len(directiveBreak), true
	}
	if strings.HasPrefix(s, directiveReactPrefix) {
		rest := s[len(directiveReactPrefix):]
		if j := strings.IndexByte(rest, ']'); j >= 0 {
			return ReactionEvent{Emoji: rest[:j]}, len(directiveReactPrefix) + j + 1, true
		}
	}
	return nil, 0, false
}

// couldBeDirective reports whether s, which starts with '[', might still
// grow into a complete directive.
func couldBeDirective(s string) bool {
	if len(s) < len(directiveBreak) && strings.HasPrefix(directiveBreak, s) {
		return true
	}
	if len(s) < len(directiveReactPrefix) && strings.HasPrefix(directiveReactPrefix, s) {
		return true
	}
	// An open reaction directive stays pending until its closing bracket.
	return strings.HasPrefix(s, directiveReactPrefix) && !strings.Contains(s[len(directiveReactPrefix):], "]")
}
