// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for clocked playback devices and their streams
package output

import "github.com/harperreed/audition/pkg/audio"

// Device represents an audio output device with a free-running clock
type Device interface {
	// Now returns the device clock in seconds. It is monotonic and keeps
	// running whether or not anything is playing.
	Now() float64

	// Open prepares a stream that will play buf from offsetSeconds. Nothing
	// is audible until Start is called on the returned stream.
	Open(buf *audio.Audio, offsetSeconds float64) (Stream, error)

	// Close releases device resources
	Close() error
}

// EndReason tells a stream's owner why output ceased
type EndReason int

const (
	// Drained means every sample was handed to the device
	Drained EndReason = iota
	// Stopped means Stop was called or the device was closed
	Stopped
	// Failed means the device reported an error mid-stream
	Failed
)

func (r EndReason) String() string {
	switch r {
	case Drained:
		return "drained"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stream is one prepared run of a buffer on a device
type Stream interface {
	// Start begins output. onEnded is called exactly once, from a device
	// goroutine, when output ceases for any reason.
	Start(onEnded func(EndReason))

	// Stop silences the stream. It does not wait for onEnded.
	Stop()
}
