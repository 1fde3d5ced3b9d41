// Package session tracks live run sessions: one player's simulation, their
// meta profile and the outbound frame queue feeding their viewers.
package session

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cory-johannsen/survivors/internal/game/event"
)

var (
	// ErrOutboxClosed is returned by Push after Close.
	ErrOutboxClosed = errors.New("session: outbox closed")
	// ErrOutboxFull is returned by Push when the buffer is full.
	ErrOutboxFull = errors.New("session: outbox buffer full")
)

// Outbox routes pushed frames to a buffered channel, bridging the session
// to the viewer stream. It never blocks the simulation.
type Outbox struct {
	events  chan []byte
	mu      sync.Mutex
	closed  bool
	dropped atomic.Int64
}

// NewOutbox creates an Outbox holding up to bufferSize frames; a
// non-positive size uses 64.
func NewOutbox(bufferSize int) *Outbox {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Outbox{events: make(chan []byte, bufferSize)}
}

// Push enqueues data without blocking.
//
// Postcondition: returns ErrOutboxClosed or ErrOutboxFull when data was
// not enqueued.
func (o *Outbox) Push(data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrOutboxClosed
	}
	select {
	case o.events <- data:
		return nil
	default:
		o.dropped.Add(1)
		return ErrOutboxFull
	}
}

// Events returns the read side of the queue; it is closed by Close.
func (o *Outbox) Events() <-chan []byte {
	return o.events
}

// Dropped returns how many frames were discarded on a full buffer.
func (o *Outbox) Dropped() int64 { return o.dropped.Load() }

// Close closes the events channel. Safe to call more than once.
func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.events)
	}
	return nil
}

// IsClosed reports whether the outbox has been closed.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// EventFrame is the JSON frame an event is pushed as.
type EventFrame struct {
	Type    string        `json:"type"`
	Kind    event.Kind    `json:"kind"`
	At      time.Duration `json:"at"`
	Subject uint64        `json:"subject,omitempty"`
	Ref     string        `json:"ref,omitempty"`
	X       float64       `json:"x"`
	Y       float64       `json:"y"`
	Value   float64       `json:"value"`
}

// Publish pushes e as an EventFrame; frames that do not fit are dropped.
func (o *Outbox) Publish(e event.Event) {
	data, err := json.Marshal(EventFrame{
		Type: "event", Kind: e.Kind, At: e.At, Subject: e.SubjectID,
		Ref: e.Ref, X: e.Pos.X, Y: e.Pos.Y, Value: e.Value,
	})
	if err != nil {
		return
	}
	_ = o.Push(data)
}
