// ABOUTME: Audio decoder package for speech payloads
// ABOUTME: Provides Decoder interface and the 16-bit PCM implementation
// Package decode turns raw payloads from the speech service into audio.Audio.
//
// Only headerless signed 16-bit little-endian PCM is supported. A clip
// arrives whole and is decoded in one call; there is no streaming decode.
//
// Example:
//
//	decoder, err := decode.NewPCM(audio.RemoteFormat)
//	buf, err := decoder.Decode(payload)
//
//	// Or straight from the service's base64 field
//	buf, err := decode.Base64(encoded, audio.RemoteFormat)
package decode
