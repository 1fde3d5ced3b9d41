// Package player provides the player actor: position, derived stats, the
// weapon and passive loadout with slot caps, and damage intake.
package player

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cory-johannsen/survivors/internal/game/geom"
	"github.com/cory-johannsen/survivors/internal/game/passive"
	"github.com/cory-johannsen/survivors/internal/game/stats"
	"github.com/cory-johannsen/survivors/internal/game/weapon"
)

var (
	// ErrSlotsFull is returned when adding beyond a slot cap.
	ErrSlotsFull = errors.New("player: slots full")
	// ErrAlreadyOwned is returned when adding a weapon or passive twice.
	ErrAlreadyOwned = errors.New("player: already owned")
	// ErrNotOwned is returned when an id is not in the loadout.
	ErrNotOwned = errors.New("player: not owned")
)

// Config holds per-run player constants.
type Config struct {
	WeaponSlots  int
	PassiveSlots int
	Radius       float64
	// Invincibility is the window after taking a hit.
	Invincibility time.Duration
	// ReviveInvincibility is the window after a revive.
	ReviveInvincibility time.Duration
}

// DefaultConfig returns six slots of each kind and half-second hit immunity.
func DefaultConfig() Config {
	return Config{
		WeaponSlots:         6,
		PassiveSlots:        6,
		Radius:              12,
		Invincibility:       500 * time.Millisecond,
		ReviveInvincibility: 2 * time.Second,
	}
}

// Player is the single player actor of a run.
type Player struct {
	Pos geom.Vec2
	// Move is the current movement input, at most unit length.
	Move geom.Vec2
	// Facing is the last non-zero movement direction.
	Facing geom.Vec2
	Radius float64
	// Base is fixed at run start: character base plus meta upgrades.
	Base stats.Profile
	// Stats is derived from Base and the owned passives.
	Stats    stats.Profile
	Weapons  []*weapon.Instance
	Passives []*passive.Instance
	// Invincible is the time left in the current immunity window.
	Invincible time.Duration

	cfg Config
}

// New creates a player at the origin with full health.
//
// Postcondition: Stats == Recompute(base) with CurrentHealth == MaxHealth.
func New(base stats.Profile, cfg Config) *Player {
	if cfg.WeaponSlots <= 0 {
		cfg.WeaponSlots = DefaultConfig().WeaponSlots
	}
	if cfg.PassiveSlots <= 0 {
		cfg.PassiveSlots = DefaultConfig().PassiveSlots
	}
	p := &Player{Base: base, Radius: cfg.Radius, Facing: geom.V(1, 0), cfg: cfg}
	p.Stats = stats.Recompute(base, base.MaxHealth, nil)
	return p
}

// Alive reports whether the player has health left.
func (p *Player) Alive() bool { return p.Stats.CurrentHealth > 0 }

// IsInvincible reports whether an immunity window is running.
func (p *Player) IsInvincible() bool { return p.Invincible > 0 }

// WeaponSlotsLeft returns how many more weapons fit.
func (p *Player) WeaponSlotsLeft() int { return p.cfg.WeaponSlots - len(p.Weapons) }

// PassiveSlotsLeft returns how many more passives fit.
func (p *Player) PassiveSlotsLeft() int { return p.cfg.PassiveSlots - len(p.Passives) }

// Weapon returns the owned weapon with id.
func (p *Player) Weapon(id string) (*weapon.Instance, bool) {
	for _, w := range p.Weapons {
		if w.ID() == id {
			return w, true
		}
	}
	return nil, false
}

// Passive returns the owned passive with id.
func (p *Player) Passive(id string) (*passive.Instance, bool) {
	for _, ps := range p.Passives {
		if ps.ID() == id {
			return ps, true
		}
	}
	return nil, false
}

// AddWeapon grants a level-1 instance of def.
//
// Postcondition: on error the loadout is unchanged.
func (p *Player) AddWeapon(def *weapon.Definition) (*weapon.Instance, error) {
	if _, ok := p.Weapon(def.ID); ok {
		return nil, fmt.Errorf("weapon %q: %w", def.ID, ErrAlreadyOwned)
	}
	if p.WeaponSlotsLeft() <= 0 {
		return nil, fmt.Errorf("weapon %q: %w", def.ID, ErrSlotsFull)
	}
	w := weapon.New(def)
	p.Weapons = append(p.Weapons, w)
	return w, nil
}

// RemoveWeapon drops the weapon with id, keeping the order of the rest.
func (p *Player) RemoveWeapon(id string) error {
	for i, w := range p.Weapons {
		if w.ID() == id {
			p.Weapons = append(p.Weapons[:i], p.Weapons[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("weapon %q: %w", id, ErrNotOwned)
}

// ReplaceWeapon swaps the owned weapon id for a level-1 instance of def in
// the same slot.
//
// Postcondition: on error the loadout is unchanged.
func (p *Player) ReplaceWeapon(id string, def *weapon.Definition) (*weapon.Instance, error) {
	if _, ok := p.Weapon(def.ID); ok {
		return nil, fmt.Errorf("weapon %q: %w", def.ID, ErrAlreadyOwned)
	}
	for i, w := range p.Weapons {
		if w.ID() == id {
			p.Weapons[i] = weapon.New(def)
			return p.Weapons[i], nil
		}
	}
	return nil, fmt.Errorf("weapon %q: %w", id, ErrNotOwned)
}

// AddPassive grants a level-1 instance of def and recomputes stats.
//
// Postcondition: on error the loadout and stats are unchanged.
func (p *Player) AddPassive(def *passive.Definition) (*passive.Instance, error) {
	if _, ok := p.Passive(def.ID); ok {
		return nil, fmt.Errorf("passive %q: %w", def.ID, ErrAlreadyOwned)
	}
	if p.PassiveSlotsLeft() <= 0 {
		return nil, fmt.Errorf("passive %q: %w", def.ID, ErrSlotsFull)
	}
	ps := passive.New(def)
	p.Passives = append(p.Passives, ps)
	p.Recompute()
	return ps, nil
}

// LevelPassive raises the owned passive id by one level and recomputes.
func (p *Player) LevelPassive(id string) error {
	ps, ok := p.Passive(id)
	if !ok {
		return fmt.Errorf("passive %q: %w", id, ErrNotOwned)
	}
	if err := ps.LevelUp(); err != nil {
		return err
	}
	p.Recompute()
	return nil
}

// Modifiers returns the passive modifiers in acquisition order.
func (p *Player) Modifiers() []stats.Modifier {
	out := make([]stats.Modifier, 0, len(p.Passives))
	for _, ps := range p.Passives {
		out = append(out, ps.Modifier())
	}
	return out
}

// Recompute rebuilds Stats from Base and the owned passives, keeping the
// current absolute health.
func (p *Player) Recompute() {
	p.Stats = stats.Recompute(p.Base, p.Stats.CurrentHealth, p.Modifiers())
}

// Update moves the player, counts down immunity and applies regeneration.
func (p *Player) Update(delta time.Duration) {
	dt := delta.Seconds()
	if !p.Move.IsZero() {
		p.Facing = p.Move.Normalize()
		p.Pos = p.Pos.Add(p.Move.Scale(p.Stats.MoveSpeed * dt))
	}
	if p.Invincible > 0 {
		p.Invincible = max(p.Invincible-delta, 0)
	}
	if p.Stats.HealthRegen > 0 && p.Alive() {
		p.Stats.Heal(p.Stats.HealthRegen * dt)
	}
}

// SetMovement stores the movement input, clamped to unit length.
func (p *Player) SetMovement(v geom.Vec2) {
	if v.LenSq() > 1 {
		v = v.Normalize()
	}
	p.Move = v
}

// Mitigate applies flat armor to raw damage. Damage is never fully negated.
//
// Postcondition: result >= 1 for raw > 0.
func Mitigate(raw, armor float64) float64 {
	if raw <= 0 {
		return 0
	}
	return math.Max(1, raw-armor)
}

// TakeDamage applies raw incoming damage after armor, unless an immunity
// window is running, and starts a new window on a hit.
//
// Postcondition: 0 <= CurrentHealth <= MaxHealth; died is true when this
// hit brought health to zero.
func (p *Player) TakeDamage(raw float64) (dealt float64, died bool) {
	if p.IsInvincible() || !p.Alive() || raw <= 0 {
		return 0, false
	}
	dealt = p.Stats.Hurt(Mitigate(raw, p.Stats.Armor))
	p.Invincible = p.cfg.Invincibility
	return dealt, !p.Alive()
}

// Heal restores health up to MaxHealth and returns the amount restored.
func (p *Player) Heal(amount float64) float64 {
	return p.Stats.Heal(amount)
}

// TryRevive consumes one revive if any remain, restoring half health and
// granting the revive immunity window.
//
// Postcondition: returns false and leaves p unchanged when no revive is left.
func (p *Player) TryRevive() bool {
	if p.Stats.Revives < 1 {
		return false
	}
	p.Base.Revives--
	p.Recompute()
	p.Stats.CurrentHealth = p.Stats.MaxHealth / 2
	p.Invincible = p.cfg.ReviveInvincibility
	return true
}
