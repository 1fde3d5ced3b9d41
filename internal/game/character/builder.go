package character

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/survivors/internal/game/passive"
	"github.com/cory-johannsen/survivors/internal/game/player"
	"github.com/cory-johannsen/survivors/internal/game/stats"
	"github.com/cory-johannsen/survivors/internal/game/weapon"
)

// Content resolves loadout ids. Lookups fail soft, returning a fallback.
type Content interface {
	Weapon(id string) *weapon.Definition
	Passive(id string) *passive.Definition
}

// sortedMods turns a stat map into modifiers in key order.
func sortedMods(m map[string]float64, multiplicative bool) []stats.Modifier {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]stats.Modifier, 0, len(keys))
	for _, k := range keys {
		out = append(out, stats.Modifier{Stat: stats.Key(k), Value: m[k], Multiplicative: multiplicative})
	}
	return out
}

// BaseProfile starts from stats.Default, adds the character's modifiers and
// then applies its multipliers.
//
// Postcondition: the profile is at full health.
func BaseProfile(def *Definition) stats.Profile {
	mods := append(sortedMods(def.Modifiers, false), sortedMods(def.Multipliers, true)...)
	p := stats.Recompute(stats.Default(), 0, mods)
	p.CurrentHealth = p.MaxHealth
	return p
}

// Build creates the run's player from def on top of base, granting the
// starting weapon and passives.
//
// Precondition: def and content must be non-nil; base is normally
// BaseProfile(def) with permanent upgrades folded in.
// Postcondition: Returns a player at full health, or a non-nil error when the
// loadout does not fit the slot caps.
func Build(def *Definition, content Content, base stats.Profile, cfg player.Config) (*player.Player, error) {
	if def == nil {
		return nil, errors.New("character must not be nil")
	}
	if content == nil {
		return nil, errors.New("content must not be nil")
	}
	p := player.New(base, cfg)
	if def.Weapon != "" {
		if _, err := p.AddWeapon(content.Weapon(def.Weapon)); err != nil {
			return nil, fmt.Errorf("character %q starting weapon: %w", def.ID, err)
		}
	}
	for _, id := range def.Passives {
		if _, err := p.AddPassive(content.Passive(id)); err != nil {
			return nil, fmt.Errorf("character %q starting passive: %w", def.ID, err)
		}
	}
	p.Stats.CurrentHealth = p.Stats.MaxHealth
	return p, nil
}
