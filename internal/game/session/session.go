package session

import (
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/cory-johannsen/survivors/internal/game/geom"
	"github.com/cory-johannsen/survivors/internal/game/meta"
	"github.com/cory-johannsen/survivors/internal/game/sim"
)

// ErrRunInProgress is returned by shop purchases while a run is live.
var ErrRunInProgress = errors.New("session: run in progress")

// Session is one player's live simulation. Every method serialises on the
// session's lock, so commands and ticks from different goroutines never
// interleave inside the simulation.
type Session struct {
	// ID is the session's run id, a UUID.
	ID string
	// Profile names the meta profile the session loads and saves.
	Profile string
	Outbox  *Outbox

	mu   sync.Mutex
	sim  *sim.Simulation
	meta *meta.State
	shop *meta.Catalog
}

// StartRun starts a new run on the session's simulation.
func (s *Session) StartRun(characterID, stageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.StartRun(characterID, stageID)
}

// SetMovement stores movement input.
func (s *Session) SetMovement(v geom.Vec2) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.SetMovement(v)
}

// TogglePause pauses or resumes a live run.
func (s *Session) TogglePause() (sim.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sim.State() == sim.StateIdle {
		return sim.StateIdle, sim.ErrNoRun
	}
	return s.sim.TogglePause(), nil
}

// SubmitChoice answers the open upgrade offer.
func (s *Session) SubmitChoice(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.SubmitChoice(index)
}

// Purchase buys one level of upgradeID between runs.
//
// Postcondition: on error the profile is unchanged.
func (s *Session) Purchase(upgradeID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.sim.State() {
	case sim.StateRunning, sim.StatePaused, sim.StateAwaitingChoice:
		return 0, ErrRunInProgress
	}
	return s.meta.Purchase(s.shop, upgradeID)
}

// Snapshot copies the simulation state.
func (s *Session) Snapshot() sim.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Snapshot()
}

// Meta returns a copy of the profile.
func (s *Session) Meta() meta.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.meta
	cp.Upgrades = maps.Clone(s.meta.Upgrades)
	return cp
}

// ReplaceMeta overwrites the profile, typically with freshly loaded state.
func (s *Session) ReplaceMeta(st meta.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.Upgrades == nil {
		st.Upgrades = make(map[string]int)
	}
	*s.meta = st
}

// Shop returns the permanent upgrade catalog.
func (s *Session) Shop() *meta.Catalog { return s.shop }

// State returns the simulation's lifecycle state.
func (s *Session) State() sim.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.State()
}

// Tick advances the simulation by delta.
//
// Postcondition: ended is true only on the tick that ended the run, with
// the run's result.
func (s *Session) Tick(delta time.Duration) (res sim.Result, ended bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.sim.State()
	s.sim.Update(delta)
	if before != sim.StateEnded && s.sim.State() == sim.StateEnded {
		res, _ = s.sim.Result()
		return res, true
	}
	return sim.Result{}, false
}

// With runs fn with exclusive access to the simulation.
func (s *Session) With(fn func(*sim.Simulation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.sim)
}
