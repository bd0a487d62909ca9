package live

import (
	"context"
	"sync"
)

// FrameSender transmits one outbound audio frame.
type FrameSender func(Frame) error

// Microphone yields fixed-size capture blocks of mono float32 samples at
// 16 kHz. Start may fail with a permission error; Stop releases the device
// and closes the block channel.
type Microphone interface {
	Start(ctx context.Context) (<-chan []float32, error)
	Stop() error
}

// Capture pumps microphone blocks into outbound frames. Blocks that arrive
// before a sender is attached are dropped, not queued.
type Capture struct {
	blocks <-chan []float32

	mu      sync.Mutex
	send    FrameSender
	onLevel func(rms float64)
}

// NewCapture creates a capture pump over a block channel.
func NewCapture(blocks <-chan []float32) *Capture {
	return &Capture{blocks: blocks}
}

// SetSender attaches the open session's send primitive. Until this is
// called, captured frames are discarded.
func (c *Capture) SetSender(fn FrameSender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.send = fn
}

// SetLevelFunc attaches an optional input level callback, invoked once per
// block with the block's RMS energy.
func (c *Capture) SetLevelFunc(fn func(rms float64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLevel = fn
}

// Run encodes and forwards blocks until the channel closes or the context is
// cancelled. A send failure stops the pump and is returned to the caller.
func (c *Capture) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case block, ok := <-c.blocks:
			if !ok {
				return nil
			}
			pcm := EncodePCM16(block)

			c.mu.Lock()
			send := c.send
			onLevel := c.onLevel
			c.mu.Unlock()

			if onLevel != nil {
				onLevel(RMSEnergy(pcm))
			}
			if send == nil {
				continue
			}
			if err := send(FrameFromPCM(pcm)); err != nil {
				return err
			}
		}
	}
}
