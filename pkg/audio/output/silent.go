// ABOUTME: Silent audio output for machines without a sound device
// ABOUTME: Keeps real time and reports stream ends without producing sound
package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/audition/pkg/audio"
)

// Silent is a Device that plays nothing but behaves like real hardware:
// its clock runs and streams end after their remaining duration.
type Silent struct {
	start time.Time
}

// NewSilent creates a silent output
func NewSilent() *Silent {
	return &Silent{start: time.Now()}
}

// Now returns seconds since the device was created
func (d *Silent) Now() float64 {
	return time.Since(d.start).Seconds()
}

// Open prepares a timer-backed stream for the rest of buf
func (d *Silent) Open(buf *audio.Audio, offsetSeconds float64) (Stream, error) {
	if buf == nil {
		return nil, fmt.Errorf("cannot open nil audio")
	}

	remaining := buf.Seconds() - offsetSeconds
	if remaining < 0 {
		remaining = 0
	}
	return &silentStream{remaining: time.Duration(remaining * float64(time.Second))}, nil
}

// Close is a no-op
func (d *Silent) Close() error {
	return nil
}

type silentStream struct {
	mu        sync.Mutex
	remaining time.Duration
	timer     *time.Timer
	onEnded   func(EndReason)
	done      bool
}

func (s *silentStream) Start(onEnded func(EndReason)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil || s.done {
		return
	}
	s.onEnded = onEnded
	s.timer = time.AfterFunc(s.remaining, func() { s.end(Drained) })
}

func (s *silentStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer == nil {
		s.done = true
		return
	}
	if s.timer.Stop() {
		// Timer had not fired yet; report the end from another goroutine
		go s.end(Stopped)
	}
}

func (s *silentStream) end(reason EndReason) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	onEnded := s.onEnded
	s.mu.Unlock()

	if onEnded != nil {
		onEnded(reason)
	}
}
