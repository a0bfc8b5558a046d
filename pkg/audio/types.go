// ABOUTME: Audio type definitions
// ABOUTME: Defines audio formats, decoded buffers and 16-bit sample conversion
package audio

import (
	"fmt"
	"math"
)

const (
	// 16-bit range constants
	MaxInt16 = 32767
	MinInt16 = -32768

	// Decoding divides every sample by negativeScale. Encoding multiplies
	// negatives by negativeScale and the rest by positiveScale. Change both or neither.
	negativeScale = 32768.0
	positiveScale = 32767.0
)

// Format describes audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// RemoteFormat is the fixed contract of the speech generation service:
// 16-bit little-endian PCM, mono, 24kHz
var RemoteFormat = Format{
	Codec:      "pcm",
	SampleRate: 24000,
	Channels:   1,
	BitDepth:   16,
}

// Audio is an immutable decoded buffer. Samples holds one slice per channel,
// each exactly Frames long, normalized to [-1.0, 1.0].
type Audio struct {
	SampleRate int
	Channels   int
	Frames     int
	Samples    [][]float64
}

// New builds an Audio from per-channel samples, validating that every channel
// has the same length
func New(sampleRate int, samples [][]float64) (*Audio, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("audio needs at least one channel")
	}

	frames := len(samples[0])
	for c, ch := range samples {
		if len(ch) != frames {
			return nil, fmt.Errorf("channel %d has %d frames, expected %d", c, len(ch), frames)
		}
	}

	return &Audio{
		SampleRate: sampleRate,
		Channels:   len(samples),
		Frames:     frames,
		Samples:    samples,
	}, nil
}

// Seconds returns the playback duration in seconds
func (a *Audio) Seconds() float64 {
	if a == nil || a.SampleRate <= 0 {
		return 0
	}
	return float64(a.Frames) / float64(a.SampleRate)
}

// FrameAt converts a time offset in seconds to a frame index clamped to [0, Frames]
func (a *Audio) FrameAt(seconds float64) int {
	if a == nil || seconds <= 0 {
		return 0
	}
	frame := int(seconds * float64(a.SampleRate))
	if frame > a.Frames {
		return a.Frames
	}
	return frame
}

// Format returns the PCM format of the buffer
func (a *Audio) Format() Format {
	return Format{
		Codec:      "pcm",
		SampleRate: a.SampleRate,
		Channels:   a.Channels,
		BitDepth:   16,
	}
}

// SampleFromInt16 normalizes a 16-bit sample to float.
// -32768 maps to exactly -1.0, 32767 to just below 1.0.
func SampleFromInt16(sample int16) float64 {
	return float64(sample) / negativeScale
}

// SampleToInt16 quantizes a float sample to 16 bits with the asymmetric
// scaling that inverts SampleFromInt16
func SampleToInt16(sample float64) int16 {
	// Clamp to valid range
	if math.IsNaN(sample) {
		return 0
	}
	if sample > 1.0 {
		sample = 1.0
	} else if sample < -1.0 {
		sample = -1.0
	}

	if sample < 0 {
		return int16(math.Floor(sample * negativeScale))
	}
	return int16(math.Floor(sample * positiveScale))
}
