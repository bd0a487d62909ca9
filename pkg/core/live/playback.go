package live

import (
	"sync"
	"time"
)

// Clock provides the playback time base. The system clock is used in
// production; tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall-clock time base.
var SystemClock Clock = systemClock{}

// BufferSink plays scheduled PCM buffers. ScheduleAt must not start playback
// before start, must call ended exactly once when the buffer finishes, and
// returns a cancel that stops the buffer early (ended is still called).
type BufferSink interface {
	ScheduleAt(pcm []byte, start time.Time, ended func()) (cancel func(), err error)
}

// Scheduler chains inbound playback buffers gaplessly. Each buffer starts at
// max(clock.Now(), cursor) and the cursor advances by the buffer's duration,
// so buffers never overlap and never start before the previous one ends.
// Late arrivals trade added latency for continuity.
type Scheduler struct {
	clock Clock
	sink  BufferSink
	cfg   AudioConfig

	mu     sync.Mutex
	cursor time.Time
	live   map[uint64]func()
	nextID uint64
	gen    uint64
}

// NewScheduler creates a playback scheduler for 24 kHz mono PCM16 output.
func NewScheduler(clock Clock, sink BufferSink) *Scheduler {
	if clock == nil {
		clock = SystemClock
	}
	return &Scheduler{
		clock: clock,
		sink:  sink,
		cfg:   PlaybackAudioConfig(),
		live:  make(map[uint64]func()),
	}
}

// Enqueue schedules one decoded buffer for playback. The buffer is tracked
// until its ended signal fires, enabling bulk cancellation on session stop.
func (s *Scheduler) Enqueue(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	dur := s.cfg.Duration(len(pcm))

	s.mu.Lock()
	start := s.clock.Now()
	if s.cursor.After(start) {
		start = s.cursor
	}
	s.cursor = start.Add(dur)
	s.nextID++
	id := s.nextID
	s.live[id] = nil // reserved until the sink hands back a cancel
	gen := s.gen
	s.mu.Unlock()

	ended := func() {
		s.mu.Lock()
		delete(s.live, id)
		s.mu.Unlock()
	}

	cancel, err := s.sink.ScheduleAt(pcm, start, ended)
	if err != nil {
		ended()
		return err
	}

	s.mu.Lock()
	if s.gen != gen {
		// Stop ran while the sink was scheduling; this buffer is stale.
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return nil
	}
	if _, ok := s.live[id]; ok {
		s.live[id] = cancel
	}
	s.mu.Unlock()
	return nil
}

// Cursor returns the tracked end time of the last-scheduled buffer.
func (s *Scheduler) Cursor() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Pending reports how many scheduled buffers have not yet ended.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Stop cancels every scheduled buffer and resets the cursor. Safe to call
// repeatedly.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancels := make([]func(), 0, len(s.live))
	for _, cancel := range s.live {
		if cancel != nil {
			cancels = append(cancels, cancel)
		}
	}
	s.live = make(map[uint64]func())
	s.cursor = time.Time{}
	s.gen++
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
