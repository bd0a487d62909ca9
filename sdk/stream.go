package parley

import (
	"io"
	"sync"

	"github.com/vasara-ai/parley/pkg/core/types"
)

const streamReadChunkSize = 4096

// Stream yields decoded response units from a chat stream.
//
// Failures never escape as errors: a transport failure, a missing body, or a
// mid-stream read error is folded into the stream as a single synthetic unit
// carrying a human-readable message, followed by end of stream. Next only
// ever returns io.EOF as its error.
type Stream struct {
	body    io.ReadCloser
	decoder *Decoder

	// raw switches to plain-text mode: each network chunk becomes one unit.
	raw bool

	pending  []types.StreamResponse
	buf      []byte
	finished bool

	closeOnce sync.Once
}

// newErrorStream builds a stream whose only unit is an error message.
func newErrorStream(message string) *Stream {
	return &Stream{
		pending:  []types.StreamResponse{{TextChunk: message}},
		finished: true,
	}
}

// Next returns the next decoded unit, or io.EOF once the stream is
// exhausted.
func (s *Stream) Next() (types.StreamResponse, error) {
	for {
		if len(s.pending) > 0 {
			unit := s.pending[0]
			s.pending = s.pending[1:]
			return unit, nil
		}
		if s.finished {
			return types.StreamResponse{}, io.EOF
		}
		s.read()
	}
}

func (s *Stream) read() {
	if s.buf == nil {
		s.buf = make([]byte, streamReadChunkSize)
	}
	n, err := s.body.Read(s.buf)
	if n > 0 {
		if s.raw {
			s.pending = append(s.pending, types.StreamResponse{TextChunk: string(s.buf[:n])})
		} else {
			s.pending = append(s.pending, s.decoder.Feed(s.buf[:n])...)
		}
	}
	if err == nil {
		return
	}

	s.finished = true
	s.closeBody()
	if err != io.EOF {
		s.pending = append(s.pending, types.StreamResponse{
			TextChunk: "Error: the response stream was interrupted.",
		})
		return
	}
	if !s.raw {
		if tail, ok := s.decoder.Finish(); ok {
			s.pending = append(s.pending, tail)
		}
	}
}

// Close releases the underlying response body. Safe to call more than once
// and on already-exhausted streams.
func (s *Stream) Close() error {
	s.finished = true
	s.closeBody()
	return nil
}

func (s *Stream) closeBody() {
	s.closeOnce.Do(func() {
		if s.body != nil {
			_ = s.body.Close()
		}
	})
}
