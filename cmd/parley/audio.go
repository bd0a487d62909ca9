package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/vasara-ai/parley/pkg/core/live"
)

// ffmpegMicrophone captures 16 kHz mono PCM16 from the system microphone by
// spawning ffmpeg and converting its raw output to float32 blocks.
type ffmpegMicrophone struct {
	device      int
	cmdOverride string

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

func newFFmpegMicrophone(device int, cmdOverride string) *ffmpegMicrophone {
	return &ffmpegMicrophone{device: device, cmdOverride: cmdOverride}
}

func (m *ffmpegMicrophone) Start(ctx context.Context) (<-chan []float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd != nil {
		return nil, fmt.Errorf("microphone already started")
	}

	capCtx, cancel := context.WithCancel(ctx)
	var cmd *exec.Cmd
	if m.cmdOverride != "" {
		cmd = exec.CommandContext(capCtx, "/bin/sh", "-lc", m.cmdOverride)
	} else {
		cmd = exec.CommandContext(capCtx, "ffmpeg", m.captureArgs()...)
	}
	cmd.Stderr = io.Discard

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, err
	}
	m.cmd = cmd
	m.cancel = cancel

	cfg := live.CaptureAudioConfig()
	blockBytes := live.CaptureBlockSamples * cfg.BitsPerSample / 8
	blocks := make(chan []float32, 8)
	go func() {
		defer close(blocks)
		reader := bufio.NewReaderSize(stdout, 64*1024)
		frame := make([]byte, blockBytes)
		for {
			if _, err := io.ReadFull(reader, frame); err != nil {
				return
			}
			samples := make([]float32, live.CaptureBlockSamples)
			for i := range samples {
				samples[i] = float32(int16(binary.LittleEndian.Uint16(frame[2*i:]))) / 32768
			}
			select {
			case blocks <- samples:
			case <-capCtx.Done():
				return
			}
		}
	}()
	return blocks, nil
}

func (m *ffmpegMicrophone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd == nil {
		return nil
	}
	m.cancel()
	if m.cmd.Process != nil {
		_ = m.cmd.Process.Kill()
	}
	_ = m.cmd.Wait()
	m.cmd = nil
	m.cancel = nil
	return nil
}

func (m *ffmpegMicrophone) captureArgs() []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	switch runtime.GOOS {
	case "darwin":
		// `none:<index>` avoids opening a video device alongside the mic.
		args = append(args, "-f", "avfoundation", "-i", fmt.Sprintf("none:%d", m.device))
	default:
		args = append(args, "-f", "pulse", "-i", "default")
	}
	return append(args, "-ac", "1", "-ar", "16000", "-f", "s16le", "-")
}

// ffplaySink plays scheduled 24 kHz mono PCM16 buffers through a persistent
// ffplay process. The scheduler serializes buffer starts, so writing each
// buffer at its start time keeps playback gapless.
type ffplaySink struct {
	path   string
	volume int

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func newFFplaySink(path string, volume int) *ffplaySink {
	if path == "" {
		path = "ffplay"
	}
	if volume <= 0 || volume > 100 {
		volume = 80
	}
	return &ffplaySink{path: path, volume: volume}
}

func (s *ffplaySink) ScheduleAt(pcm []byte, start time.Time, ended func()) (func(), error) {
	if err := s.ensureRunning(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer ended()
		if d := time.Until(start); d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		if err := s.write(pcm); err != nil {
			return
		}
		select {
		case <-time.After(live.PlaybackAudioConfig().Duration(len(pcm))):
		case <-ctx.Done():
			// Cancelled mid-play: restart ffplay to drop its buffered audio.
			_ = s.restart()
		}
	}()
	return cancel, nil
}

func (s *ffplaySink) ensureRunning() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

func (s *ffplaySink) startLocked() error {
	if s.cmd != nil && s.cmd.Process != nil {
		return nil
	}
	cfg := live.PlaybackAudioConfig()
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-volume", fmt.Sprintf("%d", s.volume),
		"-nodisp",
		"-f", "s16le",
		"-ch_layout", "mono",
		"-ar", fmt.Sprintf("%d", cfg.SampleRate),
		"-i", "-",
	}
	cmd := exec.Command(s.path, args...)
	if runtime.GOOS == "darwin" && os.Getenv("SDL_AUDIODRIVER") == "" {
		// SDL can pick a silent dummy backend on macOS; prefer CoreAudio.
		cmd.Env = append(os.Environ(), "SDL_AUDIODRIVER=coreaudio")
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return err
	}
	s.cmd = cmd
	s.stdin = stdin
	go func(c *exec.Cmd) {
		_ = c.Wait()
		s.mu.Lock()
		if s.cmd == c {
			s.cmd = nil
			s.stdin = nil
		}
		s.mu.Unlock()
	}(cmd)
	return nil
}

func (s *ffplaySink) write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	s.mu.Lock()
	stdin := s.stdin
	s.mu.Unlock()
	if stdin == nil {
		return fmt.Errorf("ffplay is not running")
	}
	_, err := stdin.Write(p)
	return err
}

func (s *ffplaySink) restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.closeLocked()
	return s.startLocked()
}

func (s *ffplaySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *ffplaySink) closeLocked() error {
	if s.stdin != nil {
		_ = s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.cmd = nil
	s.stdin = nil
	return nil
}
