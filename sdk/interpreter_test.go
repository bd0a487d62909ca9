package parley

import (
	"testing"
	"time"
)

func newTestInterpreter() *Interpreter {
	in := NewInterpreter()
	in.pause = func() time.Duration { return 0 }
	return in
}

// collapse reduces an event sequence to a comparable shape: prose joined per
// bubble, plus the reactions seen.
func collapse(events []ChatEvent) (bubbles []string, reactions []string) {
	bubbles = []string{""}
	for _, ev := range events {
		switch e := ev.(type) {
		case ProseEvent:
			bubbles[len(bubbles)-1] += e.Text
		case BreakEvent:
			bubbles = append(bubbles, "")
		case ReactionEvent:
			reactions = append(reactions, e.Emoji)
		}
	}
	return bubbles, reactions
}

func TestInterpreterPlainProse(t *testing.T) {
	in := newTestInterpreter()
	events := in.Feed("just some text")
	events = append(events, in.Flush()...)
	bubbles, reactions := collapse(events)
	if len(bubbles) != 1 || bubbles[0] != "just some text" {
		t.Fatalf("bubbles = %q, want one bubble with the full text", bubbles)
	}
	if len(reactions) != 0 {
		t.Fatalf("reactions = %q, want none", reactions)
	}
}

func TestInterpreterReaction(t *testing.T) {
	in := newTestInterpreter()
	events := in.Feed("hi [REACT:😂] there")
	events = append(events, in.Flush()...)
	bubbles, reactions := collapse(events)
	if len(bubbles) != 1 || bubbles[0] != "hi  there" {
		t.Fatalf("bubbles = %q, want the directive stripped from prose", bubbles)
	}
	if len(reactions) != 1 || reactions[0] != "😂" {
		t.Fatalf("reactions = %q, want [😂]", reactions)
	}
}

func TestInterpreterChunkBoundaryInvariance(t *testing.T) {
	input := "hi [REACT:😂] there"

	for split := 0; split <= len(input); split++ {
		in := newTestInterpreter()
		events := in.Feed(input[:split])
		events = append(events, in.Feed(input[split:])...)
		events = append(events, in.Flush()...)

		bubbles, reactions := collapse(events)
		if len(bubbles) != 1 || bubbles[0] != "hi  there" {
			t.Fatalf("split %d: bubbles = %q, want [\"hi  there\"]", split, bubbles)
		}
		if len(reactions) != 1 || reactions[0] != "😂" {
			t.Fatalf("split %d: reactions = %q, want [😂]", split, reactions)
		}
	}
}

func TestInterpreterMessageBreak(t *testing.T) {
	in := newTestInterpreter()
	events := in.Feed("first[MSG_BREAK]second")
	events = append(events, in.Flush()...)
	bubbles, _ := collapse(events)
	if len(bubbles) != 2 || bubbles[0] != "first" || bubbles[1] != "second" {
		t.Fatalf("bubbles = %q, want [first second]", bubbles)
	}
}

func TestInterpreterMessageBreakSplitAcrossChunks(t *testing.T) {
	directive := "first[MSG_BREAK]second"
	for split := 0; split <= len(directive); split++ {
		in := newTestInterpreter()
		events := in.Feed(directive[:split])
		events = append(events, in.Feed(directive[split:])...)
		events = append(events, in.Flush()...)
		bubbles, _ := collapse(events)
		if len(bubbles) != 2 || bubbles[0] != "first" || bubbles[1] != "second" {
			t.Fatalf("split %d: bubbles = %q, want [first second]", split, bubbles)
		}
	}
}

func TestInterpreterLiteralBracketIsProse(t *testing.T) {
	in := newTestInterpreter()
	events := in.Feed("a [note] b [R] c")
	events = append(events, in.Flush()...)
	bubbles, reactions := collapse(events)
	if len(bubbles) != 1 || bubbles[0] != "a [note] b [R] c" {
		t.Fatalf("bubbles = %q, want the brackets kept verbatim", bubbles)
	}
	if len(reactions) != 0 {
		t.Fatalf("reactions = %q, want none", reactions)
	}
}

func TestInterpreterUnterminatedDirectiveFlushesAsProse(t *testing.T) {
	in := newTestInterpreter()
	events := in.Feed("bye [REACT:😊")
	// Everything from the suspected directive onward is held back.
	bubbles, _ := collapse(events)
	if bubbles[0] != "bye " {
		t.Fatalf("pre-directive prose = %q, want %q", bubbles[0], "bye ")
	}
	flushed, _ := collapse(in.Flush())
	if flushed[0] != "[REACT:😊" {
		t.Fatalf("flushed = %q, want the literal partial directive", flushed[0])
	}
}

func TestInterpreterPauseRange(t *testing.T) {
	in := NewInterpreter()
	for i := 0; i < 100; i++ {
		p := in.pause()
		if p < minBreakPause || p >= minBreakPause+breakPauseJitter {
			t.Fatalf("pause %v outside [%v, %v)", p, minBreakPause, minBreakPause+breakPauseJitter)
		}
	}
}
