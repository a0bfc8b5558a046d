// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for audio encoders consuming audio.Audio buffers
package encode

import "github.com/harperreed/audition/pkg/audio"

// Encoder encodes a decoded buffer to bytes
type Encoder interface {
	// Encode converts a decoded buffer to encoded audio data
	Encode(buf *audio.Audio) ([]byte, error)
}
