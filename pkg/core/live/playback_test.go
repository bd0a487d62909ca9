package live

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type scheduledBuffer struct {
	pcm       []byte
	start     time.Time
	ended     func()
	cancelled bool
}

type fakeSink struct {
	mu      sync.Mutex
	buffers []*scheduledBuffer
}

func (s *fakeSink) ScheduleAt(pcm []byte, start time.Time, ended func()) (func(), error) {
	buf := &scheduledBuffer{pcm: pcm, start: start, ended: ended}
	s.mu.Lock()
	s.buffers = append(s.buffers, buf)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		buf.cancelled = true
		s.mu.Unlock()
		ended()
	}, nil
}

func (s *fakeSink) scheduled() []*scheduledBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*scheduledBuffer(nil), s.buffers...)
}

// pcmOfDuration builds a playback-rate PCM buffer of the given duration.
func pcmOfDuration(d time.Duration) []byte {
	return make([]byte, PlaybackAudioConfig().BytesForDurationMs(int(d.Milliseconds())))
}

func TestSchedulerSequentialStarts(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	sink := &fakeSink{}
	s := NewScheduler(clock, sink)

	d1 := 100 * time.Millisecond
	d2 := 40 * time.Millisecond
	if err := s.Enqueue(pcmOfDuration(d1)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := s.Enqueue(pcmOfDuration(d2)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	bufs := sink.scheduled()
	if len(bufs) != 2 {
		t.Fatalf("scheduled %d buffers, want 2", len(bufs))
	}
	if bufs[0].start.Before(clock.Now()) {
		t.Fatalf("first start %v is before clock %v", bufs[0].start, clock.Now())
	}
	if got, want := bufs[1].start, bufs[0].start.Add(d1); got.Before(want) {
		t.Fatalf("second start %v is before first end %v", got, want)
	}
	if got, want := s.Cursor(), bufs[1].start.Add(d2); !got.Equal(want) {
		t.Fatalf("cursor = %v, want %v", got, want)
	}
}

func TestSchedulerLateArrivalStartsAtClock(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	sink := &fakeSink{}
	s := NewScheduler(clock, sink)

	if err := s.Enqueue(pcmOfDuration(20 * time.Millisecond)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	// The second buffer arrives well after the first finished playing; it
	// starts at the current clock time, not at the stale cursor.
	clock.advance(5 * time.Second)
	if err := s.Enqueue(pcmOfDuration(20 * time.Millisecond)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	bufs := sink.scheduled()
	if !bufs[1].start.Equal(clock.Now()) {
		t.Fatalf("late buffer start = %v, want %v", bufs[1].start, clock.Now())
	}
}

func TestSchedulerEndedRemovesFromLiveSet(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	sink := &fakeSink{}
	s := NewScheduler(clock, sink)

	_ = s.Enqueue(pcmOfDuration(20 * time.Millisecond))
	_ = s.Enqueue(pcmOfDuration(20 * time.Millisecond))
	if got := s.Pending(); got != 2 {
		t.Fatalf("Pending() = %d, want 2", got)
	}

	sink.scheduled()[0].ended()
	if got := s.Pending(); got != 1 {
		t.Fatalf("Pending() after ended = %d, want 1", got)
	}
}

func TestSchedulerStopCancelsAll(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	sink := &fakeSink{}
	s := NewScheduler(clock, sink)

	_ = s.Enqueue(pcmOfDuration(20 * time.Millisecond))
	_ = s.Enqueue(pcmOfDuration(20 * time.Millisecond))

	s.Stop()
	s.Stop() // repeat stop is safe

	for i, buf := range sink.scheduled() {
		if !buf.cancelled {
			t.Fatalf("buffer %d was not cancelled on stop", i)
		}
	}
	if got := s.Pending(); got != 0 {
		t.Fatalf("Pending() after stop = %d, want 0", got)
	}
	if !s.Cursor().IsZero() {
		t.Fatalf("cursor not reset after stop: %v", s.Cursor())
	}
}

func TestSchedulerSkipsEmptyBuffer(t *testing.T) {
	sink := &fakeSink{}
	s := NewScheduler(&fakeClock{now: time.Unix(100, 0)}, sink)
	if err := s.Enqueue(nil); err != nil {
		t.Fatalf("Enqueue(nil) error = %v", err)
	}
	if len(sink.scheduled()) != 0 {
		t.Fatalf("empty buffer was scheduled")
	}
}
