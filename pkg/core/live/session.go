package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vasara-ai/parley/pkg/core"
	"github.com/vasara-ai/parley/pkg/core/types"
)

// State is the lifecycle state of a live session.
type State int

const (
	// StateIdle is the rest state; no resources are held.
	StateIdle State = iota
	// StateConnecting is entered once the microphone is acquired and the
	// transport dial is in flight.
	StateConnecting
	// StateOpen is entered when the transport reports open; capture frames
	// are forwarded from this point.
	StateOpen
	// StateClosing is the transient teardown state.
	StateClosing
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// ControllerConfig wires a session controller to its collaborators. Dial,
// Microphone, and Sink are required.
type ControllerConfig struct {
	// Dial opens the realtime transport.
	Dial func(ctx context.Context) (Transport, error)

	// Microphone is the capture source. Acquired on Start; denial reverts
	// the controller to idle with a permission error.
	Microphone Microphone

	// Sink plays scheduled output buffers.
	Sink BufferSink

	// Clock is the playback time base. Defaults to the system clock.
	Clock Clock

	// OnMessage receives finalized transcript messages on turn completion.
	OnMessage func(sender types.Sender, text string)

	// OnLevel, when set, receives the RMS energy of each capture block.
	OnLevel func(rms float64)

	Logger *slog.Logger
}

// Controller gates start/stop of one live voice session and guarantees
// resource teardown on every exit path. At most one session is live at a
// time; Start while connecting or open is a no-op.
type Controller struct {
	cfg ControllerConfig

	mu        sync.Mutex
	state     State
	transport Transport
	capture   *Capture
	scheduler *Scheduler
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewController creates an idle session controller.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{cfg: cfg}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start acquires the microphone, dials the transport, and begins the session
// loops. It returns once the session is connecting; the open transition
// happens when the transport reports it. Starting a non-idle controller is a
// no-op.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	if c.cfg.Dial == nil || c.cfg.Microphone == nil || c.cfg.Sink == nil {
		c.toIdle()
		return core.NewInvalidRequestError("live controller requires a dialer, microphone, and sink")
	}

	sessCtx, cancel := context.WithCancel(ctx)

	blocks, err := c.cfg.Microphone.Start(sessCtx)
	if err != nil {
		cancel()
		c.toIdle()
		return core.NewPermissionError(fmt.Sprintf("microphone unavailable: %v", err))
	}

	transport, err := c.cfg.Dial(sessCtx)
	if err != nil {
		_ = c.cfg.Microphone.Stop()
		cancel()
		c.toIdle()
		return err
	}

	capture := NewCapture(blocks)
	if c.cfg.OnLevel != nil {
		capture.SetLevelFunc(c.cfg.OnLevel)
	}
	scheduler := NewScheduler(c.cfg.Clock, c.cfg.Sink)
	done := make(chan struct{})

	c.mu.Lock()
	if c.state != StateConnecting {
		// Stop ran while the dial was in flight; release everything instead
		// of committing a session nobody owns.
		c.mu.Unlock()
		cancel()
		_ = c.cfg.Microphone.Stop()
		_ = transport.Close()
		return nil
	}
	c.transport = transport
	c.capture = capture
	c.scheduler = scheduler
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.run(sessCtx, transport, capture, scheduler, done)
	return nil
}

// Stop tears the session down and waits for its loops to drain. Idempotent:
// stopping twice, or stopping a never-started controller, is safe.
func (c *Controller) Stop() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	c.teardown()
	if done != nil {
		<-done
	}
}

func (c *Controller) run(ctx context.Context, transport Transport, capture *Capture, scheduler *Scheduler, done chan struct{}) {
	defer close(done)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return capture.Run(ctx) })
	g.Go(func() error { return c.consume(ctx, transport, capture, scheduler) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		c.cfg.Logger.Error("live session terminated", "error", err)
	}
	c.teardown()
}

func (c *Controller) consume(ctx context.Context, transport Transport, capture *Capture, scheduler *Scheduler) error {
	var acc TranscriptAccumulator
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-transport.Events():
			if !ok {
				return nil
			}
			switch e := ev.(type) {
			case OpenEvent:
				c.setOpen()
				capture.SetSender(transport.SendFrame)
			case MessageEvent:
				if err := c.handleMessage(e, scheduler, &acc); err != nil {
					return err
				}
			case ErrorEvent:
				return e.Err
			case ClosedEvent:
				return nil
			}
		}
	}
}

// handleMessage applies one inbound message. A panic while handling is
// converted to an error so the session tears down instead of crashing the
// process.
func (c *Controller) handleMessage(e MessageEvent, scheduler *Scheduler, acc *TranscriptAccumulator) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = core.NewAPIError(fmt.Sprintf("live message handling failed: %v", r))
		}
	}()

	if len(e.Audio) > 0 {
		if err := scheduler.Enqueue(e.Audio); err != nil {
			return err
		}
	}
	if e.InputTranscript != "" {
		acc.AddInput(e.InputTranscript)
	}
	if e.OutputTranscript != "" {
		acc.AddOutput(e.OutputTranscript)
	}
	if e.TurnComplete {
		input, output := acc.Flush()
		if c.cfg.OnMessage != nil {
			if strings.TrimSpace(input) != "" {
				c.cfg.OnMessage(types.SenderUser, input)
			}
			if strings.TrimSpace(output) != "" {
				c.cfg.OnMessage(types.SenderBot, output)
			}
		}
	}
	return nil
}

// teardown releases every held resource and returns the controller to idle.
// Handles are nulled under the lock so a second teardown cannot
// double-release; close failures are swallowed since a resource may already
// be gone.
func (c *Controller) teardown() {
	c.mu.Lock()
	if c.state == StateIdle && c.transport == nil && c.capture == nil {
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	transport := c.transport
	scheduler := c.scheduler
	cancel := c.cancel
	c.transport = nil
	c.capture = nil
	c.scheduler = nil
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c.cfg.Microphone != nil {
		_ = c.cfg.Microphone.Stop()
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	if transport != nil {
		_ = transport.Close()
	}

	c.toIdle()
}

func (c *Controller) toIdle() {
	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
}

func (c *Controller) setOpen() {
	c.mu.Lock()
	if c.state == StateConnecting {
		c.state = StateOpen
	}
	c.mu.Unlock()
}
