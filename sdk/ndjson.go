package parley

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/vasara-ai/parley/pkg/core/types"
)

// Decoder reassembles newline-delimited JSON stream units from arbitrarily
// split network fragments. Fragments are buffered as raw bytes, so a
// multi-byte character split across two reads is reassembled before any
// decoding happens.
//
// A malformed line is skipped with a warning; the units around it are
// unaffected.
type Decoder struct {
	buf    []byte
	logger *slog.Logger
}

// NewDecoder creates a stream decoder. A nil logger falls back to the
// default logger.
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{logger: logger}
}

// Feed appends one network fragment and returns every complete unit it
// terminated. Trailing bytes without a newline stay buffered for the next
// fragment.
func (d *Decoder) Feed(fragment []byte) []types.StreamResponse {
	d.buf = append(d.buf, fragment...)

	var units []types.StreamResponse
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			return units
		}
		line := d.buf[:i]
		d.buf = d.buf[i+1:]
		if unit, ok := d.decodeLine(line); ok {
			units = append(units, unit)
		}
	}
}

// Finish decodes whatever remains in the buffer as a final unit. Streams
// whose last line has no trailing newline still yield that unit. The decoder
// is reset either way.
func (d *Decoder) Finish() (types.StreamResponse, bool) {
	line := d.buf
	d.buf = nil
	return d.decodeLine(line)
}

func (d *Decoder) decodeLine(line []byte) (types.StreamResponse, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return types.StreamResponse{}, false
	}
	var unit types.StreamResponse
	if err := json.Unmarshal(line, &unit); err != nil {
		d.logger.Warn("skipping malformed stream unit", "error", err)
		return types.StreamResponse{}, false
	}
	return unit, true
}
