// ABOUTME: WAV file encoder
// ABOUTME: Wraps 16-bit PCM in a canonical 44-byte RIFF/WAVE header
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/harperreed/audition/pkg/audio"
)

const (
	// HeaderSize is the size of the canonical WAV header in bytes
	HeaderSize = 44

	// WAVMimeType is served with exported files
	WAVMimeType = "audio/wav"

	// WAVExtension is appended to exported file names
	WAVExtension = ".wav"

	formatPCM     = 1
	bitsPerSample = 16
)

// WAVEncoder encodes WAV files
type WAVEncoder struct{}

// NewWAV creates a new WAV encoder
func NewWAV() Encoder {
	return &WAVEncoder{}
}

// Encode converts a decoded buffer to a complete WAV file
func (e *WAVEncoder) Encode(buf *audio.Audio) ([]byte, error) {
	if buf == nil {
		return nil, fmt.Errorf("cannot encode nil audio")
	}

	header := Header(buf.SampleRate, buf.Channels, buf.Frames)
	return append(header, PCM16From(buf, 0)...), nil
}

// Header builds the 44-byte header for 16-bit PCM with the given shape
func Header(sampleRate, channels, frames int) []byte {
	dataSize := frames * channels * 2
	blockAlign := channels * 2
	byteRate := sampleRate * blockAlign

	header := make([]byte, HeaderSize, HeaderSize+dataSize)

	// RIFF chunk descriptor
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")

	// fmt sub-chunk
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], formatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)

	// data sub-chunk
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	return header
}
