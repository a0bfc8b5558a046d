// ABOUTME: Playback controller driving one decoded buffer against a device clock
// ABOUTME: Implements play, pause, resume, seek and stop with anchored position reporting
package player

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/harperreed/audition/pkg/audio"
	"github.com/harperreed/audition/pkg/audio/output"
)

const (
	// DefaultTickInterval is how often position is published while playing
	DefaultTickInterval = 16 * time.Millisecond

	// endTolerance absorbs clock granularity when deciding whether a run
	// reached the end of its buffer
	endTolerance = 0.1
)

// State is the playback state of the controller
type State int

const (
	Idle State = iota
	Playing
	Paused
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config holds controller configuration
type Config struct {
	// Device is the output the controller plays through (required)
	Device output.Device

	// TickInterval is the position publishing period (default: 16ms)
	TickInterval time.Duration

	// OnPosition is called on every tick while playing and whenever the
	// position is set by pause, seek or completion
	OnPosition func(trackID string, position float64)

	// OnStateChange is called on every state transition
	OnStateChange func(trackID string, state State)

	// OnError is called when output stops on its own before the end
	OnError func(error)
}

// Status is a snapshot of the controller
type Status struct {
	TrackID  string
	State    State
	Position float64
	Duration float64
}

// session is one track loaded into the controller. Each Play replaces it,
// so a pointer to it identifies a single run.
type session struct {
	trackID      string
	buf          *audio.Audio
	state        State
	anchor       float64
	pausedOffset float64
	duration     float64
	stream       output.Stream
	cancel       context.CancelFunc
}

// Controller owns at most one playback session. All state is guarded by mu.
// Notifications are queued under mu in the order the state changed and
// delivered after mu is released, one at a time, by whichever goroutine
// is draining the queue.
type Controller struct {
	config Config
	device output.Device

	mu         sync.Mutex
	session    *session
	position   float64
	pending    []func()
	delivering bool
}

// New creates a playback controller
func New(config Config) (*Controller, error) {
	if config.Device == nil {
		return nil, fmt.Errorf("output device is required")
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}

	return &Controller{
		config: config,
		device: config.Device,
	}, nil
}

// Play starts trackID from offsetSeconds, replacing whatever is loaded.
// If the device cannot open the buffer the controller is left untouched.
func (c *Controller) Play(trackID string, buf *audio.Audio, offsetSeconds float64) error {
	if buf == nil {
		return fmt.Errorf("cannot play nil audio")
	}

	c.mu.Lock()
	err := c.playLocked(trackID, buf, offsetSeconds)
	c.mu.Unlock()

	c.flush()
	return err
}

func (c *Controller) playLocked(trackID string, buf *audio.Audio, offset float64) error {
	duration := buf.Seconds()
	offset = clamp(offset, duration)

	stream, err := c.device.Open(buf, offset)
	if err != nil {
		return fmt.Errorf("failed to open output for track %s: %w", trackID, err)
	}

	c.teardownLocked()

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		trackID:  trackID,
		buf:      buf,
		state:    Playing,
		duration: duration,
		stream:   stream,
		cancel:   cancel,
	}
	c.session = sess

	stream.Start(func(reason output.EndReason) { c.handleEnded(sess, reason) })
	sess.anchor = c.device.Now() - offset
	c.position = offset

	go c.positionLoop(ctx, sess)

	c.queueLocked(
		c.stateNote(trackID, Playing),
		c.positionNote(trackID, offset),
	)
	return nil
}

// teardownLocked silences the live session and stops its position loop
func (c *Controller) teardownLocked() {
	sess := c.session
	if sess == nil {
		return
	}
	if sess.cancel != nil {
		sess.cancel()
	}
	if sess.stream != nil {
		sess.stream.Stop()
	}
}

// positionLoop publishes position until the run passes its duration or is cancelled
func (c *Controller) positionLoop(ctx context.Context, sess *session) {
	ticker := time.NewTicker(c.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.session != sess || sess.state != Playing {
				c.mu.Unlock()
				return
			}
			pos := c.device.Now() - sess.anchor
			if pos > sess.duration {
				c.mu.Unlock()
				return
			}
			c.position = pos
			c.queueLocked(c.positionNote(sess.trackID, pos))
			c.mu.Unlock()

			c.flush()
		}
	}
}

// handleEnded runs when a run's output ceases. It only acts on the live run
// while it is playing; pause, stop and track switches have already moved on.
// A drained stream is a natural end. Any other reason falls back to
// comparing elapsed time with the duration.
func (c *Controller) handleEnded(sess *session, reason output.EndReason) {
	c.mu.Lock()
	defer c.flush()
	defer c.mu.Unlock()

	if c.session != sess || sess.state != Playing {
		return
	}

	sess.cancel()
	elapsed := c.device.Now() - sess.anchor

	if reason == output.Drained || elapsed >= sess.duration-endTolerance {
		sess.state = Ended
		sess.pausedOffset = 0
		c.position = 0
		c.queueLocked(
			c.positionNote(sess.trackID, 0),
			c.stateNote(sess.trackID, Ended),
		)
		log.Printf("Track %s finished", sess.trackID)
		return
	}

	pos := clamp(elapsed, sess.duration)
	sess.state = Paused
	sess.pausedOffset = pos
	c.position = pos
	err := fmt.Errorf("output for track %s %v at %.2fs of %.2fs", sess.trackID, reason, pos, sess.duration)
	c.queueLocked(
		c.positionNote(sess.trackID, pos),
		c.stateNote(sess.trackID, Paused),
		func() { c.notifyError(err) },
	)
}

// Pause stops output and remembers the current position
func (c *Controller) Pause() {
	c.mu.Lock()
	sess := c.session
	if sess == nil || sess.state != Playing {
		c.mu.Unlock()
		return
	}

	pos := clamp(c.device.Now()-sess.anchor, sess.duration)
	sess.pausedOffset = pos
	sess.state = Paused
	c.position = pos
	sess.cancel()
	sess.stream.Stop()
	c.queueLocked(
		c.positionNote(sess.trackID, pos),
		c.stateNote(sess.trackID, Paused),
	)
	c.mu.Unlock()

	c.flush()
}

// Resume plays the loaded track from the paused offset. From Ended it
// restarts at the start unless a seek moved it.
func (c *Controller) Resume() error {
	c.mu.Lock()
	sess := c.session
	if sess == nil {
		c.mu.Unlock()
		return fmt.Errorf("no track loaded")
	}
	if sess.state == Playing {
		c.mu.Unlock()
		return nil
	}

	err := c.playLocked(sess.trackID, sess.buf, sess.pausedOffset)
	c.mu.Unlock()

	c.flush()
	return err
}

// Seek moves the position of the loaded track, clamped to its duration.
// A playing track restarts from the new position.
func (c *Controller) Seek(seconds float64) error {
	c.mu.Lock()
	sess := c.session
	if sess == nil {
		c.mu.Unlock()
		return nil
	}

	seconds = clamp(seconds, sess.duration)
	sess.pausedOffset = seconds
	c.position = seconds
	c.queueLocked(c.positionNote(sess.trackID, seconds))

	var err error
	if sess.state == Playing {
		err = c.playLocked(sess.trackID, sess.buf, seconds)
	}
	c.mu.Unlock()

	c.flush()
	return err
}

// Stop silences output and unloads the track. The position stays where a
// pause would have left it.
func (c *Controller) Stop() {
	c.mu.Lock()
	sess := c.stopLocked()
	c.mu.Unlock()

	if sess != nil {
		log.Printf("Stopped track %s", sess.trackID)
	}
	c.flush()
}

// Clear is Stop, for callers discarding the loaded track
func (c *Controller) Clear() {
	c.Stop()
}

// ClearIf stops playback only when trackID is the loaded track. It reports
// whether anything was cleared.
func (c *Controller) ClearIf(trackID string) bool {
	c.mu.Lock()
	if c.session == nil || c.session.trackID != trackID {
		c.mu.Unlock()
		return false
	}
	sess := c.stopLocked()
	c.mu.Unlock()

	log.Printf("Cleared track %s", sess.trackID)
	c.flush()
	return true
}

// stopLocked tears down and unloads the live session, returning it
func (c *Controller) stopLocked() *session {
	sess := c.session
	if sess == nil {
		return nil
	}

	if sess.state == Playing {
		c.position = clamp(c.device.Now()-sess.anchor, sess.duration)
	}
	c.teardownLocked()
	c.session = nil
	c.queueLocked(c.stateNote(sess.trackID, Idle))
	return sess
}

// Position returns the playback position in seconds, read from the device
// clock while playing
func (c *Controller) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *Controller) positionLocked() float64 {
	sess := c.session
	if sess != nil && sess.state == Playing {
		return clamp(c.device.Now()-sess.anchor, sess.duration)
	}
	return c.position
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Idle
	}
	return c.session.state
}

// TrackID returns the loaded track, or "" when idle
func (c *Controller) TrackID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.trackID
}

// Status returns a snapshot of the controller
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := Status{State: Idle, Position: c.positionLocked()}
	if sess := c.session; sess != nil {
		status.TrackID = sess.trackID
		status.State = sess.state
		status.Duration = sess.duration
	}
	return status
}

// Close stops playback. The device is owned by the caller.
func (c *Controller) Close() error {
	c.Stop()
	return nil
}

func (c *Controller) queueLocked(notes ...func()) {
	c.pending = append(c.pending, notes...)
}

// flush delivers queued notifications outside mu. If another goroutine is
// already delivering, including a callback re-entering the controller, the
// notes are left for it so the order is never broken.
func (c *Controller) flush() {
	c.mu.Lock()
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true

	for len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		c.mu.Unlock()

		next()

		c.mu.Lock()
	}
	c.pending = nil
	c.delivering = false
	c.mu.Unlock()
}

func (c *Controller) positionNote(trackID string, pos float64) func() {
	return func() { c.notifyPosition(trackID, pos) }
}

func (c *Controller) stateNote(trackID string, state State) func() {
	return func() { c.notifyStateChange(trackID, state) }
}

func (c *Controller) notifyPosition(trackID string, pos float64) {
	if c.config.OnPosition != nil {
		c.config.OnPosition(trackID, pos)
	}
}

func (c *Controller) notifyStateChange(trackID string, state State) {
	if c.config.OnStateChange != nil {
		c.config.OnStateChange(trackID, state)
	}
}

// notifyError calls the OnError callback if set
func (c *Controller) notifyError(err error) {
	if c.config.OnError != nil {
		c.config.OnError(err)
	} else {
		log.Printf("Playback error: %v", err)
	}
}

func clamp(seconds, duration float64) float64 {
	if seconds < 0 {
		return 0
	}
	if seconds > duration {
		return duration
	}
	return seconds
}
