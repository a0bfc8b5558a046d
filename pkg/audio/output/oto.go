// ABOUTME: Oto-based audio output implementation
// ABOUTME: Plays decoded buffers through oto with software volume control
package output

import (
	"bytes"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/harperreed/audition/pkg/audio"
	"github.com/harperreed/audition/pkg/audio/encode"
)

const watchInterval = 10 * time.Millisecond

// Oto output implementation using oto library
type Oto struct {
	mu         sync.Mutex
	start      time.Time
	otoCtx     *oto.Context
	sampleRate int
	channels   int
	volume     int
	muted      bool
	streams    map[*otoStream]struct{}
}

// NewOto creates a new Oto output. Call Init before opening streams.
func NewOto() *Oto {
	return &Oto{
		start:   time.Now(),
		volume:  100,
		streams: make(map[*otoStream]struct{}),
	}
}

// Now returns seconds since the device was created
func (o *Oto) Now() float64 {
	return time.Since(o.start).Seconds()
}

// Open prepares a player for buf starting at offsetSeconds
func (o *Oto) Open(buf *audio.Audio, offsetSeconds float64) (Stream, error) {
	if buf == nil {
		return nil, fmt.Errorf("cannot open nil audio")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx == nil {
		return nil, fmt.Errorf("audio output not initialized")
	}
	// oto only allows one context per process, so the format is fixed by Init
	if o.sampleRate != buf.SampleRate || o.channels != buf.Channels {
		return nil, fmt.Errorf("format change not supported: device is %dHz %dch, buffer is %dHz %dch",
			o.sampleRate, o.channels, buf.SampleRate, buf.Channels)
	}

	body := encode.PCM16From(buf, buf.FrameAt(offsetSeconds))
	player := o.otoCtx.NewPlayer(bytes.NewReader(body))
	player.SetVolume(volumeMultiplier(o.volume, o.muted))

	s := &otoStream{
		owner:  o,
		player: player,
		stop:   make(chan struct{}),
	}
	o.streams[s] = struct{}{}
	return s, nil
}

// Init creates the process-wide oto context and waits for the device to be
// ready. It may block while the audio backend starts, so it runs once at
// startup rather than on the first Open.
func (o *Oto) Init(sampleRate, channels int) error {
	o.mu.Lock()
	if o.otoCtx != nil {
		o.mu.Unlock()
		return fmt.Errorf("audio output already initialized")
	}
	o.mu.Unlock()

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.mu.Lock()
	o.otoCtx = ctx
	o.sampleRate = sampleRate
	o.channels = channels
	o.mu.Unlock()

	log.Printf("Audio output initialized: %dHz, %d channels", sampleRate, channels)
	return nil
}

// Close stops every open stream and suspends the context
func (o *Oto) Close() error {
	o.mu.Lock()
	streams := make([]*otoStream, 0, len(o.streams))
	for s := range o.streams {
		streams = append(streams, s)
	}
	otoCtx := o.otoCtx
	o.mu.Unlock()

	for _, s := range streams {
		s.Stop()
	}

	if otoCtx != nil {
		if err := otoCtx.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend oto context: %w", err)
		}
	}
	return nil
}

// SetVolume sets the volume (0-100)
func (o *Oto) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}

	o.mu.Lock()
	o.volume = volume
	o.applyVolume()
	o.mu.Unlock()

	log.Printf("Volume set to %d", volume)
}

// SetMuted sets mute state
func (o *Oto) SetMuted(muted bool) {
	o.mu.Lock()
	o.muted = muted
	o.applyVolume()
	o.mu.Unlock()

	log.Printf("Muted: %v", muted)
}

// GetVolume returns current volume
func (o *Oto) GetVolume() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// IsMuted returns mute state
func (o *Oto) IsMuted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}

// applyVolume pushes the current volume to every open player. Caller holds o.mu.
func (o *Oto) applyVolume() {
	multiplier := volumeMultiplier(o.volume, o.muted)
	for s := range o.streams {
		s.player.SetVolume(multiplier)
	}
}

func (o *Oto) release(s *otoStream) {
	o.mu.Lock()
	delete(o.streams, s)
	o.mu.Unlock()
}

// otoStream plays one prepared buffer and watches for its end
type otoStream struct {
	owner     *Oto
	player    *oto.Player
	stop      chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
	started   bool
	mu        sync.Mutex
}

// Start begins playback and spawns the end watcher
func (s *otoStream) Start(onEnded func(EndReason)) {
	s.mu.Lock()
	if s.started || s.stopped() {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.player.Play()
	go s.watch(onEnded)
}

// watch polls the player until it drains or the stream is stopped
func (s *otoStream) watch(onEnded func(EndReason)) {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			s.finish(onEnded, Stopped)
			return
		case <-ticker.C:
			if !s.player.IsPlaying() {
				reason := Drained
				if err := s.player.Err(); err != nil {
					log.Printf("Player error: %v", err)
					reason = Failed
				}
				s.finish(onEnded, reason)
				return
			}
		}
	}
}

func (s *otoStream) finish(onEnded func(EndReason), reason EndReason) {
	s.close()
	if onEnded != nil {
		onEnded(reason)
	}
}

// Stop silences the stream
func (s *otoStream) Stop() {
	s.stopOnce.Do(func() {
		s.player.Pause()
		close(s.stop)
	})

	// A stream that never started has no watcher to release it
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		s.close()
	}
}

func (s *otoStream) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *otoStream) close() {
	s.closeOnce.Do(func() {
		if err := s.player.Close(); err != nil {
			log.Printf("Failed to close player: %v", err)
		}
		s.owner.release(s)
	})
}

// volumeMultiplier calculates volume multiplier
func volumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}
