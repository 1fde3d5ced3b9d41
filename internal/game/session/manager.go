package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cory-johannsen/survivors/internal/game/meta"
	"github.com/cory-johannsen/survivors/internal/game/sim"
)

// Manager tracks all live sessions by id and by profile.
// All methods are safe for concurrent use.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*Session // id -> session
	byProfile  map[string]string   // profile -> id
	bufferSize int
}

// NewManager creates an empty Manager whose outboxes hold bufferSize frames.
func NewManager(bufferSize int) *Manager {
	return &Manager{
		sessions:   make(map[string]*Session),
		byProfile:  make(map[string]string),
		bufferSize: bufferSize,
	}
}

// Create registers a session for profile around s. The session's outbox is
// subscribed to s's events; ms is the profile's meta state, shared with s.
//
// Precondition: profile must be non-empty; s and ms must be non-nil, and ms
// must be the state s was built with.
// Postcondition: Returns the session, or an error when profile already has
// a live session.
func (m *Manager) Create(profile string, s *sim.Simulation, ms *meta.State, shop *meta.Catalog) (*Session, error) {
	if profile == "" {
		return nil, fmt.Errorf("session: profile must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byProfile[profile]; exists {
		return nil, fmt.Errorf("session: profile %q already has a live session", profile)
	}
	sess := &Session{
		ID:      uuid.NewString(),
		Profile: profile,
		Outbox:  NewOutbox(m.bufferSize),
		sim:     s,
		meta:    ms,
		shop:    shop,
	}
	s.Subscribe(sess.Outbox)
	m.sessions[sess.ID] = sess
	m.byProfile[profile] = sess.ID
	return sess, nil
}

// Remove deletes session id and closes its outbox.
//
// Postcondition: returns an error if id is unknown.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %q not found", id)
	}
	_ = sess.Outbox.Close()
	delete(m.sessions, id)
	delete(m.byProfile, sess.Profile)
	return nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// ByProfile returns the live session of profile.
func (m *Manager) ByProfile(profile string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byProfile[profile]
	if !ok {
		return nil, false
	}
	return m.sessions[id], true
}

// All returns every session sorted by id.
func (m *Manager) All() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
