package weapon

import (
	"errors"
	"math"
	"time"

	"github.com/cory-johannsen/survivors/internal/game/stats"
)

// ErrMaxLevel is returned by LevelUp on a weapon already at its max level.
var ErrMaxLevel = errors.New("weapon: already at max level")

// minCooldown bounds how fast any weapon can fire after every reduction.
const minCooldown = 50 * time.Millisecond

// maxCooldownReduction caps the summed level cooldown reduction.
const maxCooldownReduction = 0.9

// levelBonus is the running total of every level entry reached so far.
type levelBonus struct {
	damage          float64
	damagePercent   float64
	cooldown        time.Duration
	cooldownPercent float64
	projectiles     int
	piercing        int
	areaPercent     float64
	durationPercent float64
}

func (b *levelBonus) add(e LevelEntry) {
	b.damage += e.Damage
	b.damagePercent += e.DamagePercent
	b.cooldown += e.Cooldown
	b.cooldownPercent += e.CooldownPercent
	b.projectiles += e.Projectiles
	b.piercing += e.Piercing
	b.areaPercent += e.AreaPercent
	b.durationPercent += e.DurationPercent
}

// Shot is a weapon's effective numbers at the moment it fires.
type Shot struct {
	WeaponID    string
	Pattern     Pattern
	Targeting   Targeting
	Damage      int
	Projectiles int
	Piercing    int
	Range       float64
	Area        float64
	Duration    time.Duration
	Knockback   float64
	Speed       float64
	Spread      float64
	HitInterval time.Duration
}

// Instance is one owned weapon. Remaining is the cooldown left before the
// weapon is ready again; it never goes below zero.
type Instance struct {
	Def       *Definition
	Level     int
	Remaining time.Duration
	bonus     levelBonus
}

// New creates a level-1 weapon that is ready to fire.
//
// Precondition: def is non-nil and valid.
// Postcondition: Level == 1; Remaining == 0.
func New(def *Definition) *Instance {
	return &Instance{Def: def, Level: 1}
}

// ID returns the definition id.
func (w *Instance) ID() string { return w.Def.ID }

// Evolved reports whether this is an evolved weapon.
func (w *Instance) Evolved() bool { return w.Def.Evolved }

// IsMaxed reports whether the weapon is at its definition's max level.
func (w *Instance) IsMaxed() bool { return w.Level >= w.Def.MaxLevel }

// Ready reports whether the cooldown has elapsed.
func (w *Instance) Ready() bool { return w.Remaining <= 0 }

// Tick advances the cooldown by delta.
//
// Postcondition: Remaining >= 0; returns Ready().
func (w *Instance) Tick(delta time.Duration) bool {
	if delta > 0 {
		w.Remaining -= delta
	}
	if w.Remaining < 0 {
		w.Remaining = 0
	}
	return w.Ready()
}

// LevelUp raises the level by one and folds in that level's entry, if any.
//
// Postcondition: returns ErrMaxLevel and leaves w unchanged at max level.
func (w *Instance) LevelUp() error {
	if w.IsMaxed() {
		return ErrMaxLevel
	}
	w.Level++
	if e, ok := w.Def.entryFor(w.Level); ok {
		w.bonus.add(e)
	}
	return nil
}

// Cooldown is the full cooldown after a shot under profile p:
// (base + flat) * (1 - levelReduction) / attackSpeed * cooldownStat.
//
// Postcondition: result >= minCooldown.
func (w *Instance) Cooldown(p stats.Profile) time.Duration {
	base := w.Def.Base.Cooldown + w.bonus.cooldown
	reduction := math.Min(w.bonus.cooldownPercent, maxCooldownReduction)
	attackSpeed := p.AttackSpeed
	if attackSpeed <= 0 {
		attackSpeed = 1
	}
	cdStat := p.Cooldown
	if cdStat <= 0 {
		cdStat = 1
	}
	d := time.Duration(float64(base) * (1 - reduction) / attackSpeed * cdStat)
	if d < minCooldown {
		d = minCooldown
	}
	return d
}

// Effective computes the shot this weapon would fire under profile p.
//
// Postcondition: Damage >= 0; Projectiles >= 1; Piercing >= 0.
func (w *Instance) Effective(p stats.Profile) Shot {
	b := w.Def.Base
	damage := math.Floor((b.Damage + w.bonus.damage) * (1 + w.bonus.damagePercent) * p.Damage)
	if damage < 0 {
		damage = 0
	}
	projectiles := b.Projectiles + w.bonus.projectiles + int(p.Projectiles)
	if projectiles < 1 {
		projectiles = 1
	}
	piercing := b.Piercing + w.bonus.piercing + int(p.Piercing)
	if piercing < 0 {
		piercing = 0
	}
	area := b.Area * (1 + w.bonus.areaPercent) * nonZero(p.Area)
	duration := time.Duration(float64(b.Duration) * (1 + w.bonus.durationPercent) * nonZero(p.Duration))
	return Shot{
		WeaponID:    w.Def.ID,
		Pattern:     w.Def.Pattern,
		Targeting:   w.Def.Targeting,
		Damage:      int(damage),
		Projectiles: projectiles,
		Piercing:    piercing,
		Range:       b.Range,
		Area:        area,
		Duration:    duration,
		Knockback:   b.Knockback,
		Speed:       b.Speed,
		Spread:      b.Spread,
		HitInterval: b.HitInterval,
	}
}

// Fire computes the shot and resets the cooldown. The reset value is not
// reduced by the tick that triggered the shot.
//
// Postcondition: Remaining == Cooldown(p).
func (w *Instance) Fire(p stats.Profile) Shot {
	shot := w.Effective(p)
	w.Remaining = w.Cooldown(p)
	return shot
}

func nonZero(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}
