// ABOUTME: In-memory history of generated speech takes
// ABOUTME: Owns decoded buffers until their entry is removed
package history

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/audition/pkg/audio"
)

// ErrNotFound is returned for unknown entry IDs
var ErrNotFound = errors.New("history entry not found")

// Entry is one generated take
type Entry struct {
	ID        string
	Text      string
	Voice     string
	CreatedAt time.Time
	Audio     *audio.Audio
}

// Duration returns the length of the take in seconds
func (e *Entry) Duration() float64 {
	return e.Audio.Seconds()
}

// History stores entries by ID
type History struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
}

// New creates an empty history
func New() *History {
	return &History{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// Add stores a decoded buffer and returns its entry
func (h *History) Add(text, voice string, buf *audio.Audio) *Entry {
	entry := &Entry{
		ID:        uuid.New().String(),
		Text:      text,
		Voice:     voice,
		CreatedAt: h.now(),
		Audio:     buf,
	}

	h.mu.Lock()
	h.entries[entry.ID] = entry
	h.mu.Unlock()

	return entry
}

// Get returns the entry with the given ID
func (h *History) Get(id string) (*Entry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entry, ok := h.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

// List returns all entries, newest first
func (h *History) List() []*Entry {
	h.mu.RLock()
	list := make([]*Entry, 0, len(h.entries))
	for _, entry := range h.entries {
		list = append(list, entry)
	}
	h.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

// Remove deletes an entry. The buffer is released once no player holds it.
func (h *History) Remove(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.entries[id]; !ok {
		return ErrNotFound
	}
	delete(h.entries, id)
	return nil
}

// Len returns the number of entries
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
