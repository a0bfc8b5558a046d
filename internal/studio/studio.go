// ABOUTME: Studio ties speech generation, history, playback and export together
// ABOUTME: Every playback notification is republished on the event broadcaster
package studio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/harperreed/audition/internal/events"
	"github.com/harperreed/audition/internal/export"
	"github.com/harperreed/audition/internal/history"
	"github.com/harperreed/audition/internal/synth"
	"github.com/harperreed/audition/pkg/audio"
	"github.com/harperreed/audition/pkg/audio/decode"
	"github.com/harperreed/audition/pkg/audio/encode"
	"github.com/harperreed/audition/pkg/audio/output"
	"github.com/harperreed/audition/pkg/player"
)

var (
	// ErrNoAudio is returned when a payload decodes to zero frames
	ErrNoAudio = errors.New("payload contains no audio")

	// ErrNoSynth is returned by Generate when no speech client is configured
	ErrNoSynth = errors.New("speech generation is not configured")

	// ErrNoExportDir is returned by SaveExport when no file store is configured
	ErrNoExportDir = errors.New("export directory is not configured")
)

// Config holds studio configuration
type Config struct {
	// Device plays auditions (required)
	Device output.Device

	// Synth generates speech; Generate fails without it
	Synth synth.Client

	// Exports receives SaveExport files
	Exports *export.FileStore

	// Events receives playback and track notifications (default: new broadcaster)
	Events *events.Broadcaster

	// Voice is used when a request names none
	Voice string

	// TickInterval is the position publishing period
	TickInterval time.Duration
}

// Track describes one history entry
type Track struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Voice      string    `json:"voice"`
	CreatedAt  time.Time `json:"created_at"`
	Duration   float64   `json:"duration"`
	SampleRate int       `json:"sample_rate"`
	Channels   int       `json:"channels"`
}

// Status is a playback snapshot
type Status struct {
	TrackID  string  `json:"track_id"`
	State    string  `json:"state"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
}

// Studio is the application core
type Studio struct {
	config  Config
	history *history.History
	player  *player.Controller
	events  *events.Broadcaster
	wav     encode.Encoder
}

// New creates a studio
func New(config Config) (*Studio, error) {
	if config.Events == nil {
		config.Events = events.NewBroadcaster()
	}

	s := &Studio{
		config:  config,
		history: history.New(),
		events:  config.Events,
		wav:     encode.NewWAV(),
	}

	ctrl, err := player.New(player.Config{
		Device:        config.Device,
		TickInterval:  config.TickInterval,
		OnPosition:    s.onPosition,
		OnStateChange: s.onStateChange,
		OnError:       s.onError,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	s.player = ctrl

	return s, nil
}

// Events returns the broadcaster notifications are published on
func (s *Studio) Events() *events.Broadcaster {
	return s.events
}

// Generate requests speech for text and stores the result
func (s *Studio) Generate(ctx context.Context, text, voice string) (Track, error) {
	if s.config.Synth == nil {
		return Track{}, ErrNoSynth
	}
	if voice == "" {
		voice = s.config.Voice
	}

	result, err := s.config.Synth.Synthesize(ctx, synth.Request{Text: text, Voice: voice})
	if err != nil {
		return Track{}, fmt.Errorf("failed to generate speech: %w", err)
	}

	buf, err := decode.Base64(result.Audio, result.Format)
	if err != nil {
		return Track{}, err
	}

	return s.add(text, voice, buf)
}

// Import stores a base64 PCM payload in the speech service's format
func (s *Studio) Import(text, encoded string) (Track, error) {
	buf, err := decode.Base64(encoded, audio.RemoteFormat)
	if err != nil {
		return Track{}, err
	}
	return s.add(text, "", buf)
}

func (s *Studio) add(text, voice string, buf *audio.Audio) (Track, error) {
	if buf.Frames == 0 {
		return Track{}, ErrNoAudio
	}

	entry := s.history.Add(text, voice, buf)
	log.Printf("Added track %s: %.2fs", entry.ID, buf.Seconds())

	s.events.Publish(events.Event{Type: events.TypeTracks, TrackID: entry.ID})
	return trackFromEntry(entry), nil
}

// Tracks returns all tracks, newest first
func (s *Studio) Tracks() []Track {
	entries := s.history.List()
	tracks := make([]Track, 0, len(entries))
	for _, entry := range entries {
		tracks = append(tracks, trackFromEntry(entry))
	}
	return tracks
}

// Track returns a single track
func (s *Studio) Track(id string) (Track, error) {
	entry, err := s.history.Get(id)
	if err != nil {
		return Track{}, err
	}
	return trackFromEntry(entry), nil
}

// Play auditions a track from offsetSeconds
func (s *Studio) Play(id string, offsetSeconds float64) error {
	entry, err := s.history.Get(id)
	if err != nil {
		return fmt.Errorf("failed to play %s: %w", id, err)
	}
	return s.player.Play(entry.ID, entry.Audio, offsetSeconds)
}

// Pause pauses playback
func (s *Studio) Pause() {
	s.player.Pause()
}

// Resume continues the loaded track
func (s *Studio) Resume() error {
	return s.player.Resume()
}

// Seek moves the playback position
func (s *Studio) Seek(seconds float64) error {
	return s.player.Seek(seconds)
}

// Stop stops playback
func (s *Studio) Stop() {
	s.player.Stop()
}

// Remove deletes a track, clearing playback first if it is loaded
func (s *Studio) Remove(id string) error {
	s.player.ClearIf(id)
	if err := s.history.Remove(id); err != nil {
		return fmt.Errorf("failed to remove %s: %w", id, err)
	}

	log.Printf("Removed track %s", id)
	s.events.Publish(events.Event{Type: events.TypeTracks, TrackID: id})
	return nil
}

// Export encodes a track as WAV and returns the bytes with a safe file name
func (s *Studio) Export(id, filename string) ([]byte, string, error) {
	entry, err := s.history.Get(id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to export %s: %w", id, err)
	}

	data, err := s.wav.Encode(entry.Audio)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode %s: %w", id, err)
	}

	if strings.TrimSpace(filename) == "" {
		filename = defaultFilename(entry)
	}
	return data, export.Filename(filename), nil
}

// SaveExport writes a track to the export directory and returns the path
func (s *Studio) SaveExport(id, filename string) (string, error) {
	if s.config.Exports == nil {
		return "", ErrNoExportDir
	}

	data, name, err := s.Export(id, filename)
	if err != nil {
		return "", err
	}
	return s.config.Exports.Save(data, name)
}

// Status returns a playback snapshot
func (s *Studio) Status() Status {
	st := s.player.Status()
	return Status{
		TrackID:  st.TrackID,
		State:    st.State.String(),
		Position: st.Position,
		Duration: st.Duration,
	}
}

// Close stops playback
func (s *Studio) Close() error {
	return s.player.Close()
}

func (s *Studio) onPosition(trackID string, position float64) {
	s.events.Publish(events.Event{Type: events.TypePosition, TrackID: trackID, Position: position})
}

func (s *Studio) onStateChange(trackID string, state player.State) {
	s.events.Publish(events.Event{Type: events.TypeState, TrackID: trackID, State: state.String()})
}

func (s *Studio) onError(err error) {
	log.Printf("Playback error: %v", err)
	s.events.Publish(events.Event{Type: events.TypeError, Message: err.Error()})
}

func trackFromEntry(entry *history.Entry) Track {
	return Track{
		ID:         entry.ID,
		Text:       entry.Text,
		Voice:      entry.Voice,
		CreatedAt:  entry.CreatedAt,
		Duration:   entry.Duration(),
		SampleRate: entry.Audio.SampleRate,
		Channels:   entry.Audio.Channels,
	}
}

// defaultFilename names an export after the start of its text
func defaultFilename(entry *history.Entry) string {
	words := strings.Fields(entry.Text)
	if len(words) > 5 {
		words = words[:5]
	}
	name := strings.ToLower(strings.Join(words, "-"))
	if name == "" {
		name = export.DefaultName + "-" + entry.ID[:8]
	}
	return name
}
