// Package stats holds the player's numeric combat attributes and the pure
// recompute that derives them from a base profile plus stacking modifiers.
package stats

import (
	"fmt"
	"sort"
)

// Key is the stable string id of one stat, as used in content tables.
type Key string

const (
	MaxHealth     Key = "max_health"
	CurrentHealth Key = "current_health"
	HealthRegen   Key = "health_regen"
	MoveSpeed     Key = "move_speed"
	Damage        Key = "damage"
	AttackSpeed   Key = "attack_speed"
	Area          Key = "area"
	Duration      Key = "duration"
	Projectiles   Key = "projectiles"
	Piercing      Key = "piercing"
	Cooldown      Key = "cooldown"
	Experience    Key = "experience"
	PickupRadius  Key = "pickup_radius"
	Luck          Key = "luck"
	Revives       Key = "revives"
	Armor         Key = "armor"
)

var allKeys = []Key{
	MaxHealth, CurrentHealth, HealthRegen, MoveSpeed, Damage, AttackSpeed,
	Area, Duration, Projectiles, Piercing, Cooldown, Experience,
	PickupRadius, Luck, Revives, Armor,
}

// Keys returns every known stat key in declaration order.
func Keys() []Key {
	return append([]Key(nil), allKeys...)
}

// ParseKey validates s as a stat key.
func ParseKey(s string) (Key, error) {
	for _, k := range allKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown stat %q", s)
}

// Profile is the full set of combat attributes. Multiplier fields are 1 when
// neutral; count fields (Projectiles, Piercing, Revives) are bonuses on top of
// weapon values and are truncated to integers where consumed.
type Profile struct {
	MaxHealth     float64 `yaml:"max_health"`
	CurrentHealth float64 `yaml:"current_health"`
	// HealthRegen is health restored per second.
	HealthRegen  float64 `yaml:"health_regen"`
	MoveSpeed    float64 `yaml:"move_speed"`
	Damage       float64 `yaml:"damage"`
	AttackSpeed  float64 `yaml:"attack_speed"`
	Area         float64 `yaml:"area"`
	Duration     float64 `yaml:"duration"`
	Projectiles  float64 `yaml:"projectiles"`
	Piercing     float64 `yaml:"piercing"`
	Cooldown     float64 `yaml:"cooldown"`
	Experience   float64 `yaml:"experience"`
	PickupRadius float64 `yaml:"pickup_radius"`
	Luck         float64 `yaml:"luck"`
	Revives      float64 `yaml:"revives"`
	Armor        float64 `yaml:"armor"`
}

// Default returns a neutral profile: 100 health, every multiplier at 1.
func Default() Profile {
	return Profile{
		MaxHealth:     100,
		CurrentHealth: 100,
		MoveSpeed:     120,
		Damage:        1,
		AttackSpeed:   1,
		Area:          1,
		Duration:      1,
		Cooldown:      1,
		Experience:    1,
		PickupRadius:  40,
		Luck:          1,
	}
}

func (p *Profile) field(k Key) *float64 {
	switch k {
	case MaxHealth:
		return &p.MaxHealth
	case CurrentHealth:
		return &p.CurrentHealth
	case HealthRegen:
		return &p.HealthRegen
	case MoveSpeed:
		return &p.MoveSpeed
	case Damage:
		return &p.Damage
	case AttackSpeed:
		return &p.AttackSpeed
	case Area:
		return &p.Area
	case Duration:
		return &p.Duration
	case Projectiles:
		return &p.Projectiles
	case Piercing:
		return &p.Piercing
	case Cooldown:
		return &p.Cooldown
	case Experience:
		return &p.Experience
	case PickupRadius:
		return &p.PickupRadius
	case Luck:
		return &p.Luck
	case Revives:
		return &p.Revives
	case Armor:
		return &p.Armor
	}
	return nil
}

// Get returns the value of stat k.
//
// Postcondition: Returns (0, false) for an unknown key.
func (p Profile) Get(k Key) (float64, bool) {
	f := p.field(k)
	if f == nil {
		return 0, false
	}
	return *f, true
}

// Set assigns v to stat k.
//
// Postcondition: Returns false and leaves p unchanged for an unknown key.
func (p *Profile) Set(k Key, v float64) bool {
	f := p.field(k)
	if f == nil {
		return false
	}
	*f = v
	return true
}

// Map returns every stat as a key/value map, for snapshots and scripting.
func (p Profile) Map() map[string]float64 {
	out := make(map[string]float64, len(allKeys))
	for _, k := range allKeys {
		v, _ := p.Get(k)
		out[string(k)] = v
	}
	return out
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// HealthFraction returns CurrentHealth / MaxHealth in [0, 1].
func (p Profile) HealthFraction() float64 {
	if p.MaxHealth <= 0 {
		return 0
	}
	return p.CurrentHealth / p.MaxHealth
}

// Heal raises CurrentHealth by amount, capped at MaxHealth.
//
// Postcondition: CurrentHealth is in [0, MaxHealth]; returns the amount
// actually restored.
func (p *Profile) Heal(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	before := p.CurrentHealth
	p.CurrentHealth = clamp(p.CurrentHealth+amount, 0, p.MaxHealth)
	return p.CurrentHealth - before
}

// Hurt lowers CurrentHealth by amount, floored at zero.
//
// Postcondition: CurrentHealth is in [0, MaxHealth]; returns the amount
// actually removed.
func (p *Profile) Hurt(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	before := p.CurrentHealth
	p.CurrentHealth = clamp(p.CurrentHealth-amount, 0, p.MaxHealth)
	return before - p.CurrentHealth
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
