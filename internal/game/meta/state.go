package meta

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cory-johannsen/survivors/internal/game/stats"
)

var (
	// ErrUnknownUpgrade is returned when purchasing an id not in the catalog.
	ErrUnknownUpgrade = errors.New("meta: unknown upgrade")
	// ErrMaxLevel is returned when the upgrade is already at max level.
	ErrMaxLevel = errors.New("meta: upgrade at max level")
	// ErrInsufficientFunds is returned when currency does not cover the cost.
	ErrInsufficientFunds = errors.New("meta: insufficient funds")
)

// State is the persisted cross-run progression of one profile.
type State struct {
	Currency int
	// Upgrades maps upgrade id to purchased level.
	Upgrades     map[string]int
	GamesPlayed  int
	TotalKills   int
	BestSurvival time.Duration
}

// DefaultState is a fresh profile.
func DefaultState() State {
	return State{Upgrades: make(map[string]int)}
}

// Level returns the purchased level of upgrade id.
func (s *State) Level(id string) int {
	return s.Upgrades[id]
}

// Purchase buys one level of upgrade id.
//
// Postcondition: on error s is unchanged; on success the cost is deducted
// and returned.
func (s *State) Purchase(cat *Catalog, id string) (int, error) {
	u, ok := cat.Get(id)
	if !ok {
		return 0, fmt.Errorf("upgrade %q: %w", id, ErrUnknownUpgrade)
	}
	owned := s.Level(id)
	if owned >= u.MaxLevel {
		return 0, fmt.Errorf("upgrade %q: %w", id, ErrMaxLevel)
	}
	cost := u.Cost(owned)
	if s.Currency < cost {
		return 0, fmt.Errorf("upgrade %q costs %d, have %d: %w", id, cost, s.Currency, ErrInsufficientFunds)
	}
	if s.Upgrades == nil {
		s.Upgrades = make(map[string]int)
	}
	s.Currency -= cost
	s.Upgrades[id] = owned + 1
	return cost, nil
}

// Modifiers returns the base modifiers of every purchased upgrade, sorted by
// upgrade id. Levels of ids missing from the catalog are ignored.
func (s *State) Modifiers(cat *Catalog) []stats.Modifier {
	ids := make([]string, 0, len(s.Upgrades))
	for id := range s.Upgrades {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []stats.Modifier
	for _, id := range ids {
		u, ok := cat.Get(id)
		if !ok {
			continue
		}
		out = append(out, u.Modifier(min(s.Upgrades[id], u.MaxLevel)))
	}
	return out
}

// ApplyToBase folds the purchased upgrades into a character base profile.
//
// Postcondition: the result starts at full health.
func (s *State) ApplyToBase(base stats.Profile, cat *Catalog) stats.Profile {
	out := stats.Recompute(base, base.MaxHealth, s.Modifiers(cat))
	out.CurrentHealth = out.MaxHealth
	return out
}

// RunResult is what a finished run contributes to the profile.
type RunResult struct {
	Currency int
	Kills    int
	Survived time.Duration
}

// RecordRun banks r into the profile.
func (s *State) RecordRun(r RunResult) {
	s.GamesPlayed++
	if r.Currency > 0 {
		s.Currency += r.Currency
	}
	if r.Kills > 0 {
		s.TotalKills += r.Kills
	}
	if r.Survived > s.BestSurvival {
		s.BestSurvival = r.Survived
	}
}
