// Package progression provides experience leveling, weighted upgrade offers
// and once-per-run weapon evolutions.
package progression

import "math"

// Curve is the exponential experience requirement:
// threshold(level) = floor(Base * Growth^(level-1)).
type Curve struct {
	Base   float64
	Growth float64
}

// DefaultCurve starts at 20 experience and grows 10% per level.
func DefaultCurve() Curve {
	return Curve{Base: 20, Growth: 1.1}
}

// Threshold returns the experience needed to go from level to level+1.
//
// Postcondition: result >= 1.
func (c Curve) Threshold(level int) float64 {
	if level < 1 {
		level = 1
	}
	return math.Max(1, math.Floor(c.Base*math.Pow(c.Growth, float64(level-1))))
}

// Tracker accumulates experience and counts levels awaiting an upgrade
// choice.
type Tracker struct {
	Level int
	// Exp is the experience banked toward the next level.
	Exp float64
	// ToNext is the threshold for the current level.
	ToNext float64
	// Pending is the number of level-ups whose upgrade choice is still open.
	Pending int
	curve   Curve
}

// NewTracker starts at level 1 with no experience.
func NewTracker(c Curve) *Tracker {
	return &Tracker{Level: 1, ToNext: c.Threshold(1), curve: c}
}

// Gain adds amount and resolves every level-up it pays for.
//
// Postcondition: Exp < ToNext; returns the number of levels gained, each of
// which added one to Pending.
func (t *Tracker) Gain(amount float64) int {
	if amount > 0 {
		t.Exp += amount
	}
	levels := 0
	for t.Exp >= t.ToNext {
		t.Exp -= t.ToNext
		t.Level++
		t.ToNext = t.curve.Threshold(t.Level)
		t.Pending++
		levels++
	}
	return levels
}

// TakePending consumes one pending choice.
//
// Postcondition: returns false when none was pending.
func (t *Tracker) TakePending() bool {
	if t.Pending <= 0 {
		return false
	}
	t.Pending--
	return true
}
