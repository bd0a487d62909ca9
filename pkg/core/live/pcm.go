package live

import (
	"encoding/base64"
	"math"
)

// Frame is one fixed-size block of encoded audio, ready to transmit.
type Frame struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

// EncodePCM16 converts floating-point samples in [-1, 1] to 16-bit signed
// little-endian PCM. Samples are scaled by 32768 without clamping, so
// out-of-range input wraps around. This mirrors the wire producer we
// interoperate with; callers feeding synthetic audio should keep samples in
// range.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		s := int16(sample * 32768)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// EncodeFrame packs one capture block into an outbound frame: PCM16 bytes,
// base64-encoded, tagged with the 16 kHz capture MIME type.
func EncodeFrame(samples []float32) Frame {
	return FrameFromPCM(EncodePCM16(samples))
}

// FrameFromPCM packs already-encoded capture PCM into an outbound frame.
func FrameFromPCM(pcm []byte) Frame {
	return Frame{
		Data:     base64.StdEncoding.EncodeToString(pcm),
		MimeType: MimeTypePCMCapture,
	}
}

// DecodeFrameData decodes a base64 PCM payload from an inbound message.
func DecodeFrameData(data string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(data)
}

// RMSEnergy computes the root-mean-square energy of 16-bit signed
// little-endian PCM. Returns a value between 0.0 and 1.0.
func RMSEnergy(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < len(pcm)-1; i += 2 {
		sample := int16(pcm[i]) | int16(pcm[i+1])<<8
		normalized := float64(sample) / 32768.0
		sum += normalized * normalized
	}

	return math.Sqrt(sum / float64(samples))
}
