// ABOUTME: PCM audio encoder
// ABOUTME: Encodes decoded buffers to interleaved 16-bit little-endian PCM bytes
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/harperreed/audition/pkg/audio"
)

// PCMEncoder encodes raw PCM audio
type PCMEncoder struct{}

// NewPCM creates a new PCM encoder
func NewPCM() Encoder {
	return &PCMEncoder{}
}

// Encode converts a decoded buffer to PCM bytes
func (e *PCMEncoder) Encode(buf *audio.Audio) ([]byte, error) {
	if buf == nil {
		return nil, fmt.Errorf("cannot encode nil audio")
	}
	return PCM16From(buf, 0), nil
}

// PCM16From encodes frames [startFrame, Frames) frame-major, channel-minor
func PCM16From(buf *audio.Audio, startFrame int) []byte {
	if startFrame < 0 {
		startFrame = 0
	}
	if startFrame > buf.Frames {
		startFrame = buf.Frames
	}

	output := make([]byte, (buf.Frames-startFrame)*buf.Channels*2)
	offset := 0
	for i := startFrame; i < buf.Frames; i++ {
		for c := 0; c < buf.Channels; c++ {
			sample16 := audio.SampleToInt16(buf.Samples[c][i])
			binary.LittleEndian.PutUint16(output[offset:], uint16(sample16))
			offset += 2
		}
	}
	return output
}
