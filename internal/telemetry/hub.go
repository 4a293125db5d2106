// Package telemetry fans finished-episode events out to live observers
// and serves them over HTTP and websockets.
package telemetry

import (
	"sync"
	"time"

	"github.com/vovakirdan/snakeql/internal/games/snake"
	"github.com/vovakirdan/snakeql/internal/session"
)

// Event describes one finished episode.
type Event struct {
	RunID      int64          `json:"run_id"`
	Episode    int            `json:"episode"`
	Mode       string         `json:"mode"`
	Score      int            `json:"score"`
	Steps      int            `json:"steps"`
	Length     int            `json:"length"`
	Stalled    bool           `json:"stalled"`
	DurationMS int64          `json:"duration_ms"`
	Final      snake.Snapshot `json:"final"`
	Time       time.Time      `json:"time"`
}

// EventFromResult converts a session result into an event.
func EventFromResult(runID int64, r session.EpisodeResult) Event {
	return Event{
		RunID:      runID,
		Episode:    r.Episode,
		Mode:       r.Mode.String(),
		Score:      r.Score,
		Steps:      r.Steps,
		Length:     r.Length,
		Stalled:    r.Stalled,
		DurationMS: r.Duration.Milliseconds(),
		Final:      r.Final,
		Time:       time.Now(),
	}
}

// Subscriber receives events from a Hub through a buffered channel.
type Subscriber struct {
	id       uint64
	events   chan Event
	done     chan struct{}
	doneOnce sync.Once
}

func newSubscriber(id uint64, buffer int) *Subscriber {
	if buffer < 1 {
		buffer = 64
	}
	return &Subscriber{
		id:     id,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

// Send delivers evt without blocking.
// If the buffer is full, the oldest event is dropped.
func (s *Subscriber) Send(evt Event) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.events <- evt:
	default:
		// Buffer full, drop oldest and retry
		select {
		case <-s.events:
		default:
		}
		select {
		case s.events <- evt:
		default:
		}
	}
}

// Events returns the channel to receive events from.
func (s *Subscriber) Events() <-chan Event {
	return s.events
}

// Done returns a channel closed when the subscriber is closed.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Close marks the subscriber as done. Safe to call multiple times.
func (s *Subscriber) Close() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}

// Hub broadcasts events to subscribers and keeps a bounded history.
// Safe for concurrent use.
type Hub struct {
	mu        sync.RWMutex
	subs      map[uint64]*Subscriber
	nextID    uint64
	recent    []Event
	history   int
	published int
}

// NewHub creates a hub remembering the last history events.
func NewHub(history int) *Hub {
	if history < 1 {
		history = 100
	}
	return &Hub{
		subs:    make(map[uint64]*Subscriber),
		history: history,
	}
}

// Publish records evt and sends it to every subscriber.
func (h *Hub) Publish(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.published++
	h.recent = append(h.recent, evt)
	if len(h.recent) > h.history {
		h.recent = h.recent[len(h.recent)-h.history:]
	}
	for _, s := range h.subs {
		s.Send(evt)
	}
}

// Subscribe registers a new subscriber and returns it together with the
// history published before it joined.
func (h *Hub) Subscribe(buffer int) (*Subscriber, []Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	s := newSubscriber(h.nextID, buffer)
	h.subs[s.id] = s
	return s, append([]Event(nil), h.recent...)
}

// Unsubscribe removes and closes s.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	delete(h.subs, s.id)
	h.mu.Unlock()
	s.Close()
}

// Recent returns up to limit of the newest events, oldest first.
// A non-positive limit returns the whole history.
func (h *Hub) Recent(limit int) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	events := h.recent
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return append([]Event(nil), events...)
}

// Count returns the number of subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Published returns the number of events published so far.
func (h *Hub) Published() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.published
}
