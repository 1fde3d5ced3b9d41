// Package event defines the fire-and-forget notifications the simulation emits
// to the UI, audio and VFX boundary.
package event

import (
	"sync"
	"time"

	"github.com/cory-johannsen/survivors/internal/game/geom"
)

// Kind names an emitted event. Values are stable strings so scripts and
// remote viewers can match on them.
type Kind string

const (
	EnemyKilled     Kind = "enemy_killed"
	PlayerLeveledUp Kind = "player_leveled_up"
	PlayerDied      Kind = "player_died"
	PlayerRevived   Kind = "player_revived"
	WaveChanged     Kind = "wave_changed"
	BossSpawned     Kind = "boss_spawned"
	WeaponEvolved   Kind = "weapon_evolved"
	RushStarted     Kind = "rush_started"
	ScreenFlash     Kind = "screen_flash"
	UpgradeOffered  Kind = "upgrade_offered"
	PickupCollected Kind = "pickup_collected"
	RunEnded        Kind = "run_ended"
)

// Event is one notification. Only the fields meaningful for Kind are set.
type Event struct {
	Kind Kind
	// At is the run's elapsed simulation time when the event was emitted.
	At time.Duration
	// SubjectID is the actor the event is about (enemy id, pickup id).
	SubjectID uint64
	// Ref is a content id: enemy template, weapon, pickup kind, stage.
	Ref string
	// Pos is where it happened, when that matters.
	Pos geom.Vec2
	// Value carries the numeric payload: experience value, level, wave index.
	Value float64
}

// Sink receives events. Publish must not block and must not call back into
// the simulation synchronously.
type Sink interface {
	Publish(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event)

// Publish calls f(e).
func (f SinkFunc) Publish(e Event) { f(e) }

// Bus fans events out to every subscribed Sink in subscription order.
// It is safe for concurrent use.
type Bus struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewBus creates a Bus with the given initial sinks; nil sinks are dropped.
func NewBus(sinks ...Sink) *Bus {
	b := &Bus{}
	for _, s := range sinks {
		b.Subscribe(s)
	}
	return b
}

// Subscribe appends s to the fan-out list.
func (b *Bus) Subscribe(s Sink) {
	if s == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Publish delivers e to every sink.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	sinks := b.sinks
	b.mu.RUnlock()
	for _, s := range sinks {
		s.Publish(e)
	}
}

// Recorder is a Sink that keeps every event; used by tests and by the
// headless runner to build a run summary.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish appends e.
func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of kind k were recorded.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// Reset discards all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
