// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for audio decoders producing audio.Audio buffers
package decode

import "github.com/harperreed/audition/pkg/audio"

// Decoder decodes a complete encoded payload into a sample buffer
type Decoder interface {
	// Decode converts encoded audio data to a decoded buffer
	Decode(data []byte) (*audio.Audio, error)
}
