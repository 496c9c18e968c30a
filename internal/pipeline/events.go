package pipeline

import (
	"sync/atomic"
	"time"

	"inputpipe/internal/metrics"
)

// EventKind names a control action delivered to the tick thread.
type EventKind string

const (
	EventSetFeature    EventKind = "set_feature"
	EventToggleFeature EventKind = "toggle_feature"
	EventMacroRecord   EventKind = "macro_record"
	EventMacroPause    EventKind = "macro_pause"
	EventMacroPlay     EventKind = "macro_play"
	EventMacroTakeover EventKind = "macro_takeover"
	EventMacroTruncate EventKind = "macro_truncate"
	EventMacroSave     EventKind = "macro_save"
	EventMacroLoad     EventKind = "macro_load"
	EventSetFOV        EventKind = "set_fov"
	EventSetChannel    EventKind = "set_channel"
)

// Event is a request from a control surface (HTTP, CLI, key bindings).
type Event struct {
	Kind    EventKind `json:"kind"`
	Feature Feature   `json:"feature,omitempty"`
	Enabled bool      `json:"enabled,omitempty"`
	Name    string    `json:"name,omitempty"`  // macro file name
	Count   int       `json:"count,omitempty"` // truncate count, channel index
	Value   float64   `json:"value,omitempty"` // FOV degrees

	ReceivedAt time.Time `json:"-"`
}

// EventQueue hands events from other goroutines to the tick thread without
// ever blocking the producer. A full queue drops the event.
type EventQueue struct {
	events chan Event

	// Metrics
	enqueued  atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
}

// NewEventQueue creates a queue holding up to size pending events.
func NewEventQueue(size int) *EventQueue {
	if size <= 0 {
		size = 64
	}
	return &EventQueue{events: make(chan Event, size)}
}

// Enqueue adds an event (non-blocking).
// Returns true if enqueued, false if the queue is full.
func (q *EventQueue) Enqueue(ev Event) bool {
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now()
	}
	select {
	case q.events <- ev:
		q.enqueued.Add(1)
		return true
	default:
		q.dropped.Add(1)
		metrics.RecordEventDropped()
		return false
	}
}

// Drain hands every pending event to fn and returns how many were handled.
// Events enqueued while draining wait for the next call.
func (q *EventQueue) Drain(fn func(Event)) int {
	n := len(q.events)
	for i := 0; i < n; i++ {
		fn(<-q.events)
		q.processed.Add(1)
	}
	return n
}

// QueueStats holds queue metrics
type QueueStats struct {
	Enqueued   uint64 `json:"enqueued"`
	Processed  uint64 `json:"processed"`
	Dropped    uint64 `json:"dropped"`
	Pending    int    `json:"pending"`
	BufferSize int    `json:"buffer_size"`
}

// Stats returns current queue statistics
func (q *EventQueue) Stats() QueueStats {
	return QueueStats{
		Enqueued:   q.enqueued.Load(),
		Processed:  q.processed.Load(),
		Dropped:    q.dropped.Load(),
		Pending:    len(q.events),
		BufferSize: cap(q.events),
	}
}
