package sim

import (
	"github.com/cory-johannsen/survivors/internal/game/geom"
)

// Autopilot drives a Simulation without a human: it steers away from
// nearby enemies and always takes the first offered upgrade.
type Autopilot struct {
	// Awareness is the radius inside which enemies push the player away.
	Awareness float64
}

// NewAutopilot returns an Autopilot that reacts to enemies within 220 units.
func NewAutopilot() *Autopilot {
	return &Autopilot{Awareness: 220}
}

// Steer sets the player's movement for the next tick and answers any open
// upgrade offer.
func (a *Autopilot) Steer(s *Simulation) error {
	switch s.State() {
	case StateAwaitingChoice:
		return s.SubmitChoice(0)
	case StateRunning:
	default:
		return nil
	}
	p := s.Player()
	var push geom.Vec2
	for _, e := range s.Enemies().All() {
		if !e.Active {
			continue
		}
		away := p.Pos.Sub(e.Pos)
		d := away.Len()
		if d == 0 || d > a.Awareness {
			continue
		}
		push = push.Add(away.Scale((a.Awareness - d) / (a.Awareness * d)))
	}
	return s.SetMovement(push.Normalize())
}
