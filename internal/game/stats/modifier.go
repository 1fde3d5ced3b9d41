package stats

import "fmt"

// Modifier alters one stat. Additive modifiers add Value; multiplicative ones
// scale the stat by (1 + Value). A modifier only applies once its source has
// reached MinLevel.
type Modifier struct {
	Stat           Key
	Value          float64
	Multiplicative bool
	// MinLevel is the lowest source level at which the modifier applies.
	MinLevel int
	// Level is the current level of the source (passive, meta upgrade).
	Level int
}

// Applies reports whether the modifier is in effect at its source's level.
func (m Modifier) Applies() bool {
	return m.Level >= m.MinLevel
}

// Apply folds m into p.
//
// Postcondition: p is unchanged when m does not apply or names an unknown stat.
func (m Modifier) Apply(p *Profile) {
	if !m.Applies() {
		return
	}
	f := p.field(m.Stat)
	if f == nil {
		return
	}
	if m.Multiplicative {
		*f *= 1 + m.Value
	} else {
		*f += m.Value
	}
}

// String renders m for logs, e.g. "damage *1.10" or "armor +2".
func (m Modifier) String() string {
	if m.Multiplicative {
		return fmt.Sprintf("%s *%.2f", m.Stat, 1+m.Value)
	}
	return fmt.Sprintf("%s %+g", m.Stat, m.Value)
}

// LeveledValue is the value of a stacking effect at level:
// base + perLevel*(level-1).
//
// Precondition: level >= 1.
func LeveledValue(base, perLevel float64, level int) float64 {
	if level < 1 {
		level = 1
	}
	return base + perLevel*float64(level-1)
}

// Recompute derives a profile from base, the player's current absolute
// health, and mods in acquisition order.
//
// The result is a full reset plus reapply, so calling Recompute again with the
// same arguments yields the same profile. The CurrentHealth modifiers carry is
// ignored: health is always the absolute currentHealth passed in, clamped into
// [0, MaxHealth] of the new profile.
//
// Postcondition: 0 <= CurrentHealth <= MaxHealth; MaxHealth >= 1; count
// stats are >= 0.
func Recompute(base Profile, currentHealth float64, mods []Modifier) Profile {
	out := base
	for _, m := range mods {
		if m.Stat == CurrentHealth {
			continue
		}
		m.Apply(&out)
	}
	if out.MaxHealth < 1 {
		out.MaxHealth = 1
	}
	for _, f := range []*float64{&out.Projectiles, &out.Piercing, &out.Revives, &out.Armor, &out.PickupRadius, &out.HealthRegen} {
		if *f < 0 {
			*f = 0
		}
	}
	out.CurrentHealth = clamp(currentHealth, 0, out.MaxHealth)
	return out
}
