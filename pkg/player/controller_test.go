// ABOUTME: Tests for the playback controller
// ABOUTME: Uses a fake device with a settable clock and manually fired stream ends
package player

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/harperreed/audition/pkg/audio"
	"github.com/harperreed/audition/pkg/audio/output"
)

type fakeDevice struct {
	mu      sync.Mutex
	now     float64
	openErr error
	streams []*fakeStream
	events  []string
}

func (d *fakeDevice) Now() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now
}

func (d *fakeDevice) advance(seconds float64) {
	d.mu.Lock()
	d.now += seconds
	d.mu.Unlock()
}

func (d *fakeDevice) Open(buf *audio.Audio, offsetSeconds float64) (output.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.openErr != nil {
		return nil, d.openErr
	}
	s := &fakeStream{device: d, index: len(d.streams), offset: offsetSeconds}
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDevice) Close() error {
	return nil
}

func (d *fakeDevice) record(event string) {
	d.mu.Lock()
	d.events = append(d.events, event)
	d.mu.Unlock()
}

func (d *fakeDevice) stream(i int) *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streams[i]
}

func (d *fakeDevice) streamCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.streams)
}

func (d *fakeDevice) active() int {
	d.mu.Lock()
	streams := append([]*fakeStream(nil), d.streams...)
	d.mu.Unlock()

	n := 0
	for _, s := range streams {
		if s.isActive() {
			n++
		}
	}
	return n
}

type fakeStream struct {
	device  *fakeDevice
	index   int
	offset  float64
	mu      sync.Mutex
	started bool
	stopped bool
	onEnded func(output.EndReason)
}

func (s *fakeStream) Start(onEnded func(output.EndReason)) {
	s.mu.Lock()
	s.started = true
	s.onEnded = onEnded
	s.mu.Unlock()
	s.device.record(fmt.Sprintf("start:%d", s.index))
}

func (s *fakeStream) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.device.record(fmt.Sprintf("stop:%d", s.index))
}

func (s *fakeStream) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}

func (s *fakeStream) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// end fires the completion callback the way a device would
func (s *fakeStream) end(reason output.EndReason) {
	s.mu.Lock()
	onEnded := s.onEnded
	s.mu.Unlock()
	if onEnded != nil {
		onEnded(reason)
	}
}

// note is one delivered notification. Position notes have isState false.
type note struct {
	trackID  string
	isState  bool
	state    State
	position float64
}

type recorder struct {
	mu    sync.Mutex
	notes []note
	errs  []error
}

func (r *recorder) config(dev output.Device) Config {
	return Config{
		Device:       dev,
		TickInterval: time.Hour,
		OnPosition: func(trackID string, pos float64) {
			r.mu.Lock()
			r.notes = append(r.notes, note{trackID: trackID, position: pos})
			r.mu.Unlock()
		},
		OnStateChange: func(trackID string, state State) {
			r.mu.Lock()
			r.notes = append(r.notes, note{trackID: trackID, isState: true, state: state})
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) snapshot() []note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]note(nil), r.notes...)
}

func (r *recorder) states() []State {
	var states []State
	for _, n := range r.snapshot() {
		if n.isState {
			states = append(states, n.state)
		}
	}
	return states
}

func (r *recorder) positions() []float64 {
	var positions []float64
	for _, n := range r.snapshot() {
		if !n.isState {
			positions = append(positions, n.position)
		}
	}
	return positions
}

func (r *recorder) sawState(state State) bool {
	for _, s := range r.states() {
		if s == state {
			return true
		}
	}
	return false
}

func (r *recorder) lastPosition() float64 {
	positions := r.positions()
	if len(positions) == 0 {
		return -1
	}
	return positions[len(positions)-1]
}

func (r *recorder) positionCount() int {
	return len(r.positions())
}

func (r *recorder) errCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

// waitFor polls until cond holds or a second passes
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func testAudio(seconds float64) *audio.Audio {
	const rate = 1000
	frames := int(seconds * rate)
	return &audio.Audio{SampleRate: rate, Channels: 1, Frames: frames, Samples: [][]float64{make([]float64, frames)}}
}

func newTestController(t *testing.T) (*Controller, *fakeDevice, *recorder) {
	t.Helper()
	dev := &fakeDevice{now: 10}
	rec := &recorder{}
	ctrl, err := New(rec.config(dev))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(ctrl.Stop)
	return ctrl, dev, rec
}

func TestNew_RequiresDevice(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without a device")
	}
}

func TestNew_Defaults(t *testing.T) {
	ctrl, err := New(Config{Device: &fakeDevice{}})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if ctrl.config.TickInterval != DefaultTickInterval {
		t.Errorf("expected tick interval %v, got %v", DefaultTickInterval, ctrl.config.TickInterval)
	}
	if ctrl.State() != Idle {
		t.Errorf("expected idle, got %v", ctrl.State())
	}
	if ctrl.TrackID() != "" {
		t.Errorf("expected no track, got %q", ctrl.TrackID())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Idle, "idle"},
		{Playing, "playing"},
		{Paused, "paused"},
		{Ended, "ended"},
		{State(9), "state(9)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestPlay_ClockAnchoring(t *testing.T) {
	ctrl, dev, _ := newTestController(t)

	if err := ctrl.Play("a", testAudio(5), 2.0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	dev.advance(1.0)

	if got := ctrl.Position(); got != 3.0 {
		t.Errorf("expected position 3.0, got %v", got)
	}
	if ctrl.State() != Playing {
		t.Errorf("expected playing, got %v", ctrl.State())
	}
	if offset := dev.stream(0).offset; offset != 2.0 {
		t.Errorf("expected stream opened at 2.0, got %v", offset)
	}
}

func TestPlay_OffsetClamped(t *testing.T) {
	tests := []struct {
		name   string
		offset float64
		want   float64
	}{
		{"negative", -3, 0},
		{"past end", 10, 2},
		{"inside", 1.25, 1.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, dev, _ := newTestController(t)
			if err := ctrl.Play("a", testAudio(2), tt.offset); err != nil {
				t.Fatalf("Play() failed: %v", err)
			}
			if got := dev.stream(0).offset; got != tt.want {
				t.Errorf("expected offset %v, got %v", tt.want, got)
			}
			if got := ctrl.Position(); got != tt.want {
				t.Errorf("expected position %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPlay_NilAudio(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	if err := ctrl.Play("a", nil, 0); err == nil {
		t.Error("expected error for nil audio")
	}
}

func TestPlay_TrackSwitchSilencesPrevious(t *testing.T) {
	ctrl, dev, _ := newTestController(t)

	if err := ctrl.Play("a", testAudio(2), 0); err != nil {
		t.Fatalf("Play(a) failed: %v", err)
	}
	if err := ctrl.Play("b", testAudio(3), 0); err != nil {
		t.Fatalf("Play(b) failed: %v", err)
	}

	if n := dev.active(); n != 1 {
		t.Fatalf("expected exactly one active stream, got %d", n)
	}
	if !dev.stream(0).isStopped() {
		t.Error("expected first stream stopped")
	}
	if ctrl.TrackID() != "b" {
		t.Errorf("expected track b, got %q", ctrl.TrackID())
	}

	dev.mu.Lock()
	events := append([]string(nil), dev.events...)
	dev.mu.Unlock()

	want := []string{"start:0", "stop:0", "start:1"}
	if len(events) != len(want) {
		t.Fatalf("expected events %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("expected events %v, got %v", want, events)
			break
		}
	}
}

func TestPlay_SameTrackRestarts(t *testing.T) {
	ctrl, dev, _ := newTestController(t)
	buf := testAudio(4)

	if err := ctrl.Play("a", buf, 0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	dev.advance(1)
	if err := ctrl.Play("a", buf, 0.5); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}

	if dev.streamCount() != 2 || dev.active() != 1 {
		t.Fatalf("expected restart with one active stream, got %d streams, %d active", dev.streamCount(), dev.active())
	}
	if got := ctrl.Position(); got != 0.5 {
		t.Errorf("expected position 0.5, got %v", got)
	}
}

func TestPlay_DeviceFailureLeavesStateUnchanged(t *testing.T) {
	ctrl, dev, _ := newTestController(t)

	if err := ctrl.Play("a", testAudio(2), 0); err != nil {
		t.Fatalf("Play(a) failed: %v", err)
	}
	dev.advance(0.5)

	openErr := errors.New("device busy")
	dev.mu.Lock()
	dev.openErr = openErr
	dev.mu.Unlock()

	err := ctrl.Play("b", testAudio(3), 0)
	if !errors.Is(err, openErr) {
		t.Fatalf("expected wrapped device error, got %v", err)
	}

	if ctrl.TrackID() != "a" || ctrl.State() != Playing {
		t.Errorf("expected a still playing, got %q %v", ctrl.TrackID(), ctrl.State())
	}
	if dev.stream(0).isStopped() {
		t.Error("expected first stream untouched")
	}
	if got := ctrl.Position(); got != 0.5 {
		t.Errorf("expected position 0.5, got %v", got)
	}
}

func TestNaturalEnd(t *testing.T) {
	ctrl, dev, rec := newTestController(t)

	if err := ctrl.Play("a", testAudio(2), 0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	dev.advance(1.95)
	dev.stream(0).end(output.Drained)

	if ctrl.State() != Ended {
		t.Errorf("expected ended, got %v", ctrl.State())
	}
	if got := ctrl.Position(); got != 0 {
		t.Errorf("expected position reset to 0, got %v", got)
	}
	if got := rec.lastPosition(); got != 0 {
		t.Errorf("expected last published position 0, got %v", got)
	}
	if ctrl.TrackID() != "a" {
		t.Errorf("expected track to stay loaded, got %q", ctrl.TrackID())
	}
}

func TestStopBeforeEnd(t *testing.T) {
	ctrl, dev, rec := newTestController(t)

	if err := ctrl.Play("a", testAudio(2), 0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	dev.advance(1.0)
	ctrl.Stop()

	// The device reports the stop after the fact
	dev.stream(0).end(output.Stopped)

	if ctrl.State() != Idle {
		t.Errorf("expected idle, got %v", ctrl.State())
	}
	if got := ctrl.Position(); got != 1.0 {
		t.Errorf("expected position 1.0, got %v", got)
	}
	if rec.sawState(Ended) {
		t.Error("expected no pass through ended")
	}
	if !dev.stream(0).isStopped() {
		t.Error("expected stream stopped")
	}
	if ctrl.TrackID() != "" {
		t.Errorf("expected buffer released, got track %q", ctrl.TrackID())
	}
}

func TestStaleCallbackIgnored(t *testing.T) {
	ctrl, dev, rec := newTestController(t)

	if err := ctrl.Play("a", testAudio(1), 0); err != nil {
		t.Fatalf("Play(a) failed: %v", err)
	}
	if err := ctrl.Play("b", testAudio(5), 0); err != nil {
		t.Fatalf("Play(b) failed: %v", err)
	}
	dev.advance(1.0)

	// A natural end for a, but a is gone
	dev.stream(0).end(output.Drained)

	if ctrl.State() != Playing || ctrl.TrackID() != "b" {
		t.Errorf("expected b still playing, got %q %v", ctrl.TrackID(), ctrl.State())
	}
	if rec.sawState(Ended) {
		t.Error("expected stale callback to be ignored")
	}
}

func TestStaleCallbackSameTrack(t *testing.T) {
	ctrl, dev, _ := newTestController(t)
	buf := testAudio(2)

	if err := ctrl.Play("a", buf, 0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	if err := ctrl.Seek(1.5); err != nil {
		t.Fatalf("Seek() failed: %v", err)
	}
	dev.advance(0.45)

	// The first run of the same track drains late; only the second run counts
	dev.stream(0).end(output.Drained)

	if ctrl.State() != Playing {
		t.Errorf("expected playing, got %v", ctrl.State())
	}
}

func TestEarlyOutputEnd(t *testing.T) {
	ctrl, dev, rec := newTestController(t)

	if err := ctrl.Play("a", testAudio(2), 0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	dev.advance(0.5)
	dev.stream(0).end(output.Failed)

	if ctrl.State() != Paused {
		t.Errorf("expected paused, got %v", ctrl.State())
	}
	if got := ctrl.Position(); got != 0.5 {
		t.Errorf("expected position 0.5, got %v", got)
	}
	if got := rec.errCount(); got != 1 {
		t.Errorf("expected one error, got %d", got)
	}
}

func TestDrainedEndsEvenWithDeviceLatency(t *testing.T) {
	ctrl, dev, rec := newTestController(t)

	if err := ctrl.Play("a", testAudio(2), 0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	// A backend with a deep buffer reports drained well before the clock
	// reaches the end
	dev.advance(1.7)
	dev.stream(0).end(output.Drained)

	if ctrl.State() != Ended {
		t.Errorf("expected ended, got %v", ctrl.State())
	}
	if got := rec.errCount(); got != 0 {
		t.Errorf("expected no errors, got %d", got)
	}
}

func TestEndWithoutDrainUsesElapsedTime(t *testing.T) {
	tests := []struct {
		name    string
		reason  output.EndReason
		elapsed float64
		want    State
		errs    int
	}{
		{"stopped at end", output.Stopped, 1.95, Ended, 0},
		{"failed at end", output.Failed, 1.92, Ended, 0},
		{"stopped early", output.Stopped, 0.5, Paused, 1},
		{"failed early", output.Failed, 1.5, Paused, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, dev, rec := newTestController(t)

			if err := ctrl.Play("a", testAudio(2), 0); err != nil {
				t.Fatalf("Play() failed: %v", err)
			}
			dev.advance(tt.elapsed)
			dev.stream(0).end(tt.reason)

			if ctrl.State() != tt.want {
				t.Errorf("expected %v, got %v", tt.want, ctrl.State())
			}
			if got := rec.errCount(); got != tt.errs {
				t.Errorf("expected %d errors, got %d", tt.errs, got)
			}
		})
	}
}

func TestPauseResume(t *testing.T) {
	ctrl, dev, rec := newTestController(t)

	if err := ctrl.Play("a", testAudio(4), 0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	dev.advance(1.5)
	ctrl.Pause()

	if ctrl.State() != Paused {
		t.Fatalf("expected paused, got %v", ctrl.State())
	}
	if !dev.stream(0).isStopped() {
		t.Error("expected output stopped on pause")
	}
	if got := rec.lastPosition(); got != 1.5 {
		t.Errorf("expected published position 1.5, got %v", got)
	}

	dev.advance(3)
	if got := ctrl.Position(); got != 1.5 {
		t.Errorf("expected position to hold at 1.5, got %v", got)
	}

	// Late callback from the paused run must not end the track
	dev.stream(0).end(output.Stopped)
	if ctrl.State() != Paused {
		t.Errorf("expected still paused, got %v", ctrl.State())
	}

	if err := ctrl.Resume(); err != nil {
		t.Fatalf("Resume() failed: %v", err)
	}
	if got := dev.stream(1).offset; got != 1.5 {
		t.Errorf("expected resume at 1.5, got %v", got)
	}
	dev.advance(0.5)
	if got := ctrl.Position(); got != 2.0 {
		t.Errorf("expected position 2.0, got %v", got)
	}
}

func TestPause_WhenIdle(t *testing.T) {
	ctrl, _, rec := newTestController(t)
	ctrl.Pause()
	if ctrl.State() != Idle {
		t.Errorf("expected idle, got %v", ctrl.State())
	}
	if states := rec.states(); len(states) != 0 {
		t.Errorf("expected no notifications, got %v", states)
	}
}

func TestResume_NothingLoaded(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	if err := ctrl.Resume(); err == nil {
		t.Error("expected error resuming with nothing loaded")
	}
}

func TestResume_FromEnded(t *testing.T) {
	ctrl, dev, _ := newTestController(t)

	if err := ctrl.Play("a", testAudio(1), 0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	dev.advance(1)
	dev.stream(0).end(output.Drained)

	if err := ctrl.Resume(); err != nil {
		t.Fatalf("Resume() failed: %v", err)
	}
	if got := dev.stream(1).offset; got != 0 {
		t.Errorf("expected restart at 0, got %v", got)
	}
	if ctrl.State() != Playing {
		t.Errorf("expected playing, got %v", ctrl.State())
	}
}

func TestSeek_WhilePaused(t *testing.T) {
	ctrl, dev, rec := newTestController(t)

	if err := ctrl.Play("a", testAudio(2), 0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	dev.advance(1)
	ctrl.Pause()

	if err := ctrl.Seek(0.5); err != nil {
		t.Fatalf("Seek() failed: %v", err)
	}
	if dev.streamCount() != 1 {
		t.Errorf("expected no new output while paused, got %d streams", dev.streamCount())
	}
	if got := rec.lastPosition(); got != 0.5 {
		t.Errorf("expected published position 0.5, got %v", got)
	}

	if err := ctrl.Seek(99); err != nil {
		t.Fatalf("Seek() failed: %v", err)
	}
	if got := ctrl.Position(); got != 2 {
		t.Errorf("expected clamp to 2, got %v", got)
	}

	if err := ctrl.Seek(0.25); err != nil {
		t.Fatalf("Seek() failed: %v", err)
	}
	if err := ctrl.Resume(); err != nil {
		t.Fatalf("Resume() failed: %v", err)
	}
	if got := dev.stream(1).offset; got != 0.25 {
		t.Errorf("expected resume from seek target 0.25, got %v", got)
	}
}

func TestSeek_WhilePlaying(t *testing.T) {
	ctrl, dev, _ := newTestController(t)

	if err := ctrl.Play("a", testAudio(3), 0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	dev.advance(0.5)

	if err := ctrl.Seek(2.0); err != nil {
		t.Fatalf("Seek() failed: %v", err)
	}
	if !dev.stream(0).isStopped() || dev.active() != 1 {
		t.Error("expected old run stopped and new run active")
	}
	if got := dev.stream(1).offset; got != 2.0 {
		t.Errorf("expected new run at 2.0, got %v", got)
	}

	dev.advance(0.25)
	if got := ctrl.Position(); got != 2.25 {
		t.Errorf("expected position 2.25, got %v", got)
	}
}

func TestSeek_NothingLoaded(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	if err := ctrl.Seek(1); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if ctrl.State() != Idle {
		t.Errorf("expected idle, got %v", ctrl.State())
	}
}

func TestStatus(t *testing.T) {
	ctrl, dev, _ := newTestController(t)

	if err := ctrl.Play("a", testAudio(2), 0.5); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	dev.advance(0.5)

	status := ctrl.Status()
	if status.TrackID != "a" || status.State != Playing {
		t.Errorf("expected a playing, got %+v", status)
	}
	if status.Position != 1.0 {
		t.Errorf("expected position 1.0, got %v", status.Position)
	}
	if status.Duration != 2.0 {
		t.Errorf("expected duration 2.0, got %v", status.Duration)
	}
}

func TestCallbacksMayReenter(t *testing.T) {
	dev := &fakeDevice{}
	var ctrl *Controller
	seen := make(chan Status, 4)

	ctrl, err := New(Config{
		Device:       dev,
		TickInterval: time.Hour,
		OnStateChange: func(trackID string, state State) {
			seen <- ctrl.Status()
		},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if err := ctrl.Play("a", testAudio(1), 0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}

	select {
	case status := <-seen:
		if status.State != Playing {
			t.Errorf("expected playing, got %v", status.State)
		}
	case <-time.After(time.Second):
		t.Fatal("expected state change callback")
	}
	ctrl.Stop()
}

func TestPositionLoop(t *testing.T) {
	dev := &fakeDevice{}
	rec := &recorder{}
	config := rec.config(dev)
	config.TickInterval = time.Millisecond

	ctrl, err := New(config)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer ctrl.Stop()

	if err := ctrl.Play("a", testAudio(2), 0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for rec.positionCount() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if rec.positionCount() < 5 {
		t.Fatalf("expected ticks to publish position, got %d", rec.positionCount())
	}

	// Past the end the loop stops itself
	dev.advance(2.5)
	time.Sleep(20 * time.Millisecond)
	settled := rec.positionCount()
	time.Sleep(20 * time.Millisecond)
	if got := rec.positionCount(); got != settled {
		t.Errorf("expected loop to stop past duration, count went %d -> %d", settled, got)
	}
	if got := rec.lastPosition(); got > 2 {
		t.Errorf("expected no position past duration, got %v", got)
	}
}

func TestTrackSwitchPositionsFollowNewTrack(t *testing.T) {
	dev := &fakeDevice{}
	rec := &recorder{}
	config := rec.config(dev)
	config.TickInterval = time.Millisecond

	ctrl, err := New(config)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer ctrl.Stop()

	for i := 0; i < 30; i++ {
		if err := ctrl.Play(fmt.Sprintf("a%d", i), testAudio(5), 0); err != nil {
			t.Fatalf("Play(a) failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
		if err := ctrl.Play(fmt.Sprintf("b%d", i), testAudio(5), 0); err != nil {
			t.Fatalf("Play(b) failed: %v", err)
		}
		time.Sleep(time.Millisecond)
	}
	ctrl.Stop()
	time.Sleep(10 * time.Millisecond)

	// Every position belongs to the track most recently reported playing
	live := ""
	for i, n := range rec.snapshot() {
		if n.isState {
			if n.state == Playing {
				live = n.trackID
			} else {
				live = ""
			}
			continue
		}
		if n.trackID != live {
			t.Fatalf("note %d: position for %q while %q is live", i, n.trackID, live)
		}
	}
}

func TestNoPositionAfterPause(t *testing.T) {
	dev := &fakeDevice{}
	rec := &recorder{}
	config := rec.config(dev)
	config.TickInterval = time.Millisecond

	ctrl, err := New(config)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer ctrl.Stop()

	if err := ctrl.Play("a", testAudio(5), 0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	waitFor(t, func() bool { return rec.positionCount() >= 3 }, "position ticks")

	ctrl.Pause()
	time.Sleep(20 * time.Millisecond)

	notes := rec.snapshot()
	last := notes[len(notes)-1]
	if !last.isState || last.state != Paused {
		t.Errorf("expected paused to be the last notification, got %+v", last)
	}
}

func TestCallbackMayChangeState(t *testing.T) {
	dev := &fakeDevice{}
	var ctrl *Controller
	var states []State

	ctrl, err := New(Config{
		Device:       dev,
		TickInterval: time.Hour,
		OnStateChange: func(trackID string, state State) {
			states = append(states, state)
			if state == Playing {
				ctrl.Pause()
			}
		},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer ctrl.Stop()

	if err := ctrl.Play("a", testAudio(1), 0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}

	if ctrl.State() != Paused {
		t.Errorf("expected paused, got %v", ctrl.State())
	}
	want := []State{Playing, Paused}
	if len(states) != len(want) || states[0] != want[0] || states[1] != want[1] {
		t.Errorf("expected states %v, got %v", want, states)
	}
}

func TestClearIf(t *testing.T) {
	ctrl, dev, rec := newTestController(t)

	if err := ctrl.Play("a", testAudio(2), 0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}

	if ctrl.ClearIf("b") {
		t.Error("expected ClearIf to ignore another track")
	}
	if ctrl.TrackID() != "a" || ctrl.State() != Playing {
		t.Errorf("expected a still playing, got %q %v", ctrl.TrackID(), ctrl.State())
	}

	if !ctrl.ClearIf("a") {
		t.Error("expected ClearIf to clear the loaded track")
	}
	if ctrl.State() != Idle || ctrl.TrackID() != "" {
		t.Errorf("expected idle, got %q %v", ctrl.TrackID(), ctrl.State())
	}
	if !dev.stream(0).isStopped() {
		t.Error("expected stream stopped")
	}
	if !rec.sawState(Idle) {
		t.Error("expected idle notification")
	}

	if ctrl.ClearIf("a") {
		t.Error("expected nothing to clear when idle")
	}
}
