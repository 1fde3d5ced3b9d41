// Package weapon provides data-driven weapon definitions, the per-weapon
// cooldown state machine, targeting strategies and attack patterns.
package weapon

import (
	"errors"
	"fmt"
	"time"
)

// Pattern selects the attack routine a weapon runs when it fires.
type Pattern string

const (
	PatternProjectileBurst Pattern = "projectile_burst"
	PatternMeleeArc        Pattern = "melee_arc"
	PatternOrbitRing       Pattern = "orbit_ring"
	PatternAreaPulse       Pattern = "area_pulse"
	PatternThrownArc       Pattern = "thrown_arc"
)

// Targeting selects how a weapon picks its aim.
type Targeting string

const (
	TargetNearest       Targeting = "nearest"
	TargetRandomInView  Targeting = "random_in_view"
	TargetLowestHealth  Targeting = "lowest_health"
	TargetClusterCenter Targeting = "cluster_center"
	TargetRadial        Targeting = "radial"
	TargetFacing        Targeting = "facing"
)

var (
	knownPatterns = map[Pattern]bool{
		PatternProjectileBurst: true, PatternMeleeArc: true, PatternOrbitRing: true,
		PatternAreaPulse: true, PatternThrownArc: true,
	}
	knownTargeting = map[Targeting]bool{
		TargetNearest: true, TargetRandomInView: true, TargetLowestHealth: true,
		TargetClusterCenter: true, TargetRadial: true, TargetFacing: true,
	}
)

// BaseStats are a weapon's level-1 numbers before player stats apply.
type BaseStats struct {
	Damage      float64       `yaml:"damage"`
	Cooldown    time.Duration `yaml:"cooldown"`
	Projectiles int           `yaml:"projectiles"`
	// Range is the targeting radius; for melee and orbit it is the reach.
	Range    float64 `yaml:"range"`
	Piercing int     `yaml:"piercing"`
	// Area is the hitbox radius in world units.
	Area float64 `yaml:"area"`
	// Duration is the lifetime of each spawned projectile.
	Duration  time.Duration `yaml:"duration"`
	Knockback float64       `yaml:"knockback"`
	Speed     float64       `yaml:"speed"`
	// Spread is the total fan angle in degrees for multi-projectile bursts.
	Spread float64 `yaml:"spread"`
	// HitInterval re-arms the hit-set of lingering projectiles (pulses, orbits).
	HitInterval time.Duration `yaml:"hit_interval"`
}

// LevelEntry is the delta applied when a weapon reaches exactly Level.
type LevelEntry struct {
	Level  int     `yaml:"level"`
	Damage float64 `yaml:"damage"`
	// DamagePercent adds to the level damage multiplier (0.25 = +25%).
	DamagePercent float64       `yaml:"damage_percent"`
	Cooldown      time.Duration `yaml:"cooldown"`
	// CooldownPercent adds to the level cooldown reduction (0.1 = 10% faster).
	CooldownPercent float64 `yaml:"cooldown_percent"`
	Projectiles     int     `yaml:"projectiles"`
	Piercing        int     `yaml:"piercing"`
	AreaPercent     float64 `yaml:"area_percent"`
	DurationPercent float64 `yaml:"duration_percent"`
}

// Definition is the static description of a weapon loaded from YAML.
type Definition struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Pattern     Pattern   `yaml:"pattern"`
	Targeting   Targeting `yaml:"targeting"`
	MaxLevel    int       `yaml:"max_level"`
	// Rarity is the draw weight in upgrade offers; higher is more common.
	Rarity  float64      `yaml:"rarity"`
	Evolved bool         `yaml:"evolved"`
	Base    BaseStats    `yaml:"base"`
	Levels  []LevelEntry `yaml:"levels"`
}

// Validate checks that the definition satisfies its invariants.
//
// Precondition: d is non-nil.
// Postcondition: returns nil iff all fields are valid; otherwise one error
// listing every violation.
func (d *Definition) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if !knownPatterns[d.Pattern] {
		errs = append(errs, fmt.Errorf("unknown pattern %q", d.Pattern))
	}
	if !knownTargeting[d.Targeting] {
		errs = append(errs, fmt.Errorf("unknown targeting %q", d.Targeting))
	}
	if d.MaxLevel < 1 {
		errs = append(errs, errors.New("max_level must be >= 1"))
	}
	if d.Rarity < 0 {
		errs = append(errs, errors.New("rarity must be >= 0"))
	}
	if d.Base.Cooldown <= 0 {
		errs = append(errs, errors.New("base.cooldown must be > 0"))
	}
	if d.Base.Damage < 0 {
		errs = append(errs, errors.New("base.damage must be >= 0"))
	}
	seen := make(map[int]bool, len(d.Levels))
	for _, l := range d.Levels {
		if l.Level < 2 || l.Level > d.MaxLevel {
			errs = append(errs, fmt.Errorf("level entry %d outside 2..%d", l.Level, d.MaxLevel))
		}
		if seen[l.Level] {
			errs = append(errs, fmt.Errorf("duplicate level entry %d", l.Level))
		}
		seen[l.Level] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("weapon %q: %w", d.ID, errors.Join(errs...))
	}
	return nil
}

// entryFor returns the delta for exactly level, if any.
func (d *Definition) entryFor(level int) (LevelEntry, bool) {
	for _, l := range d.Levels {
		if l.Level == level {
			return l, true
		}
	}
	return LevelEntry{}, false
}

// Fallback is the definition substituted for an unknown weapon id.
func Fallback(id string) *Definition {
	return &Definition{
		ID:        id,
		Name:      "Sling",
		Pattern:   PatternProjectileBurst,
		Targeting: TargetNearest,
		MaxLevel:  1,
		Rarity:    0,
		Base: BaseStats{
			Damage:      5,
			Cooldown:    time.Second,
			Projectiles: 1,
			Range:       300,
			Area:        6,
			Duration:    2 * time.Second,
			Speed:       300,
		},
	}
}
