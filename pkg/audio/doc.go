// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Audio types and sample conversion functions
// Package audio provides fundamental audio types for speech audition.
//
// This package defines core types used throughout audition:
//   - Format: Describes audio stream format (codec, sample rate, channels, bit depth)
//   - Audio: An immutable decoded buffer of per-channel float samples
//
// It also provides the 16-bit conversions shared by the decoder and encoder:
//   - SampleFromInt16 divides by 32768
//   - SampleToInt16 clamps, then floors s*32768 for negatives and s*32767 otherwise
//
// Example:
//
//	buf, err := audio.New(24000, [][]float64{samples})
//	seconds := buf.Seconds()
//
//	// Quantize for a 16-bit device
//	s16 := audio.SampleToInt16(buf.Samples[0][0])
package audio
