// ABOUTME: Fan-out of playback events to UI subscribers
// ABOUTME: Slow subscribers lose position updates instead of blocking playback
package events

import (
	"sync"
)

// Event types
const (
	TypePosition = "position"
	TypeState    = "state"
	TypeTracks   = "tracks"
	TypeError    = "error"
)

// Event is one notification from the studio
type Event struct {
	Type     string  `json:"type"`
	TrackID  string  `json:"track_id,omitempty"`
	Position float64 `json:"position"`
	State    string  `json:"state,omitempty"`
	Message  string  `json:"message,omitempty"`
}

const subscriberBuffer = 64

// Broadcaster delivers events to every subscriber
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[chan Event]struct{}
	dropped int64
}

// NewBroadcaster creates a broadcaster with no subscribers
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[chan Event]struct{}),
	}
}

// Subscribe registers a new subscriber
func (b *Broadcaster) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	return ch
}

// Unsubscribe removes a subscriber and closes its channel
func (b *Broadcaster) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		if ch == sub {
			delete(b.subs, ch)
			close(ch)
			return
		}
	}
}

// Publish sends an event to all subscribers without blocking. A full
// subscriber misses new position updates; any other event takes the place
// of the oldest queued position update so state changes are not lost.
func (b *Broadcaster) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- event:
			continue
		default:
		}

		if event.Type == TypePosition {
			b.dropped++
			continue
		}

		evicted, room := makeRoom(ch)
		if evicted {
			b.dropped++
		}
		if !room {
			b.dropped++
			continue
		}

		select {
		case ch <- event:
		default:
			b.dropped++
		}
	}
}

// makeRoom removes the oldest position event queued on ch, keeping the order
// of everything else, and reports whether ch now has space. Caller holds the
// broadcaster lock, so nothing else sends on ch meanwhile.
func makeRoom(ch chan Event) (evicted, room bool) {
	queued := make([]Event, 0, len(ch))
drain:
	for len(queued) < cap(ch) {
		select {
		case ev := <-ch:
			queued = append(queued, ev)
		default:
			break drain
		}
	}

	for _, ev := range queued {
		if !evicted && ev.Type == TypePosition {
			evicted = true
			continue
		}
		ch <- ev
	}
	return evicted, evicted || len(queued) < cap(ch)
}

// Count returns the number of subscribers
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped for full subscribers
func (b *Broadcaster) Dropped() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}
