// ABOUTME: Audio encoder package for exporting decoded buffers
// ABOUTME: Provides Encoder interface and raw PCM and WAV implementations
// Package encode provides audio encoders for decoded buffers.
//
// Supports: raw 16-bit PCM (interleaved, little-endian) and canonical
// 44-byte-header RIFF/WAVE files.
//
// Example:
//
//	data, err := encode.NewWAV().Encode(buf)
//	os.WriteFile("take"+encode.WAVExtension, data, 0644)
package encode
