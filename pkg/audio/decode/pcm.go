// ABOUTME: PCM audio decoder
// ABOUTME: Decodes interleaved 16-bit little-endian PCM into per-channel float samples
package decode

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/harperreed/audition/pkg/audio"
)

// PCMDecoder decodes headerless 16-bit PCM
type PCMDecoder struct {
	sampleRate int
	channels   int
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	if format.BitDepth != 0 && format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
	}

	if format.Channels < 1 {
		return nil, fmt.Errorf("invalid channel count: %d", format.Channels)
	}

	return &PCMDecoder{
		sampleRate: format.SampleRate,
		channels:   format.Channels,
	}, nil
}

// Decode converts PCM bytes to a decoded buffer. It never fails: a trailing
// odd byte or an incomplete final frame is dropped.
func (d *PCMDecoder) Decode(data []byte) (*audio.Audio, error) {
	return PCM16(data, d.sampleRate, d.channels), nil
}

// PCM16 decodes interleaved signed 16-bit little-endian PCM. Sample rate and
// channel count are taken as given. A channel count below 1 yields an empty
// mono buffer.
func PCM16(data []byte, sampleRate, channels int) *audio.Audio {
	if channels < 1 {
		return &audio.Audio{
			SampleRate: sampleRate,
			Channels:   1,
			Samples:    [][]float64{{}},
		}
	}

	frames := len(data) / 2 / channels

	samples := make([][]float64, channels)
	for c := range samples {
		samples[c] = make([]float64, frames)
	}

	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			offset := (i*channels + c) * 2
			sample16 := int16(binary.LittleEndian.Uint16(data[offset:]))
			samples[c][i] = audio.SampleFromInt16(sample16)
		}
	}

	return &audio.Audio{
		SampleRate: sampleRate,
		Channels:   channels,
		Frames:     frames,
		Samples:    samples,
	}
}

// Base64 decodes a base64 PCM payload as delivered by the speech service
func Base64(encoded string, format audio.Format) (*audio.Audio, error) {
	decoder, err := NewPCM(format)
	if err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 audio: %w", err)
	}

	return decoder.Decode(data)
}
