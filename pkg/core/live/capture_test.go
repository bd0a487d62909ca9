package live

import (
	"context"
	"sync"
	"testing"
)

func TestCaptureDropsFramesWithoutSender(t *testing.T) {
	blocks := make(chan []float32, 2)
	blocks <- []float32{0.1, 0.2}
	blocks <- []float32{0.3}
	close(blocks)

	c := NewCapture(blocks)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// No sender attached: both blocks are silently dropped. Nothing to
	// assert beyond a clean return; queuing would have blocked forever.
}

func TestCaptureForwardsFrames(t *testing.T) {
	blocks := make(chan []float32, 2)
	blocks <- []float32{0.5}
	blocks <- []float32{-0.5}
	close(blocks)

	var mu sync.Mutex
	var frames []Frame
	c := NewCapture(blocks)
	c.SetSender(func(f Frame) error {
		mu.Lock()
		frames = append(frames, f)
		mu.Unlock()
		return nil
	})

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("forwarded %d frames, want 2", len(frames))
	}
	for i, f := range frames {
		if f.MimeType != MimeTypePCMCapture {
			t.Fatalf("frame %d mime type = %q, want %q", i, f.MimeType, MimeTypePCMCapture)
		}
		if f.Data == "" {
			t.Fatalf("frame %d has empty data", i)
		}
	}
}

func TestCaptureReportsLevels(t *testing.T) {
	blocks := make(chan []float32, 1)
	blocks <- []float32{0.5, 0.5}
	close(blocks)

	var levels []float64
	c := NewCapture(blocks)
	c.SetLevelFunc(func(rms float64) { levels = append(levels, rms) })

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(levels) != 1 {
		t.Fatalf("got %d level callbacks, want 1", len(levels))
	}
	if levels[0] < 0.4 || levels[0] > 0.6 {
		t.Fatalf("level = %v, want ~0.5", levels[0])
	}
}

func TestCaptureStopsOnContextCancel(t *testing.T) {
	blocks := make(chan []float32) // never fed, never closed
	c := NewCapture(blocks)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Run(ctx); err != context.Canceled {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}
