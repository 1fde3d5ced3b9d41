package enemy

import (
	"time"

	"github.com/cory-johannsen/survivors/internal/game/geom"
)

// Manager owns every live enemy of one run. It is driven by the single
// simulation goroutine and is not safe for concurrent use.
type Manager struct {
	byID    map[uint64]*Enemy
	ordered []*Enemy
	nextID  uint64
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{byID: make(map[uint64]*Enemy)}
}

// Spawn creates an enemy from tmpl at pos with the given scaled stats.
//
// Precondition: tmpl must be non-nil; hp >= 1.
// Postcondition: the enemy is active, has a unique id and is counted by Count.
func (m *Manager) Spawn(tmpl *Template, pos geom.Vec2, hp, damage float64) *Enemy {
	m.nextID++
	e := newEnemy(m.nextID, tmpl, pos, hp, damage)
	m.byID[e.ID] = e
	m.ordered = append(m.ordered, e)
	return e
}

// Remove destroys and forgets the enemy with id.
//
// Postcondition: returns false if id is unknown; otherwise the enemy is
// inactive, its timers are cancelled and Count no longer includes it.
func (m *Manager) Remove(id uint64) bool {
	e, ok := m.byID[id]
	if !ok {
		return false
	}
	e.Destroy()
	delete(m.byID, id)
	for i, o := range m.ordered {
		if o.ID == id {
			m.ordered = append(m.ordered[:i], m.ordered[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the live enemy with id.
func (m *Manager) Get(id uint64) (*Enemy, bool) {
	e, ok := m.byID[id]
	return e, ok
}

// All returns the live enemies in spawn order. The slice is a copy; the
// enemies are not.
func (m *Manager) All() []*Enemy {
	return append([]*Enemy(nil), m.ordered...)
}

// Count returns the number of live enemies.
func (m *Manager) Count() int { return len(m.ordered) }

// AdvanceTimers advances every enemy's timer set.
func (m *Manager) AdvanceTimers(delta time.Duration) {
	for _, e := range m.All() {
		if e.Active {
			e.Timers.Advance(delta)
		}
	}
}

// Clear destroys every enemy.
//
// Postcondition: Count() == 0.
func (m *Manager) Clear() {
	for _, e := range m.ordered {
		e.Destroy()
	}
	m.byID = make(map[uint64]*Enemy)
	m.ordered = nil
}
