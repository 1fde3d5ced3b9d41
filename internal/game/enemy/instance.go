package enemy

import (
	"math"
	"time"

	"github.com/cory-johannsen/survivors/internal/game/geom"
	"github.com/cory-johannsen/survivors/internal/game/timer"
	"github.com/cory-johannsen/survivors/internal/game/weapon"
)

// knockbackDecay is the fraction of knockback velocity lost per second.
const knockbackDecay = 8.0

// ActionKind is something an enemy asks the simulation to create.
type ActionKind int

const (
	// ActionShoot fires enemy projectiles.
	ActionShoot ActionKind = iota
	// ActionSummon spawns more enemies.
	ActionSummon
)

// Action is a side effect requested by Update.
type Action struct {
	Kind     ActionKind
	SourceID uint64
	From     geom.Vec2
	// Directions are unit vectors, one per projectile.
	Directions []geom.Vec2
	Speed      float64
	Damage     float64
	TemplateID string
	Count      int
}

// Enemy is a live enemy actor. It is owned by a Manager; everything outside
// the simulation reads it through snapshots only.
type Enemy struct {
	ID         uint64
	TemplateID string
	Name       string
	Behavior   Behavior
	Pos        geom.Vec2
	Vel        geom.Vec2
	Radius     float64
	Health     float64
	MaxHealth  float64
	// Damage is the contact damage after difficulty scaling.
	Damage          float64
	Experience      float64
	Speed           float64
	KnockbackResist float64
	PreferredRange  float64
	Abilities       []Ability
	// Cooldowns maps ability id to the time left before it can be used.
	Cooldowns map[string]time.Duration
	Loot      *LootTable
	// Active is false once the enemy has died or despawned.
	Active bool
	// Timers holds delayed effects acting on this enemy; cancelled on Destroy.
	Timers timer.Set

	knock     geom.Vec2
	windingUp bool
	dashing   bool
	dashVel   geom.Vec2
}

// newEnemy creates an active enemy from tmpl with already-scaled health
// and damage.
func newEnemy(id uint64, tmpl *Template, pos geom.Vec2, hp, damage float64) *Enemy {
	e := &Enemy{
		ID:              id,
		TemplateID:      tmpl.ID,
		Name:            tmpl.Name,
		Behavior:        tmpl.Behavior,
		Pos:             pos,
		Radius:          tmpl.Radius,
		Health:          hp,
		MaxHealth:       hp,
		Damage:          damage,
		Experience:      tmpl.Experience,
		Speed:           tmpl.Speed,
		KnockbackResist: tmpl.KnockbackResist,
		PreferredRange:  tmpl.PreferredRange,
		Abilities:       tmpl.Abilities,
		Cooldowns:       make(map[string]time.Duration, len(tmpl.Abilities)),
		Loot:            tmpl.Loot,
		Active:          true,
	}
	for _, a := range tmpl.Abilities {
		e.Cooldowns[a.ID] = a.Cooldown
	}
	return e
}

// IsActive implements timer.Subject.
func (e *Enemy) IsActive() bool { return e.Active }

// IsBoss reports whether the enemy uses the boss behaviour.
func (e *Enemy) IsBoss() bool { return e.Behavior == BehaviorBoss }

// Dashing reports whether a charge dash is in progress.
func (e *Enemy) Dashing() bool { return e.dashing }

// WindingUp reports whether a dash is being telegraphed.
func (e *Enemy) WindingUp() bool { return e.windingUp }

// ApplyDamage subtracts amount from Health, flooring at zero.
//
// Postcondition: Health >= 0; died is true only on the hit that took the
// enemy from positive health to zero. Inactive enemies take no damage.
func (e *Enemy) ApplyDamage(amount float64) (dealt float64, died bool) {
	if !e.Active || amount <= 0 || e.Health <= 0 {
		return 0, false
	}
	dealt = math.Min(amount, e.Health)
	e.Health -= dealt
	return dealt, e.Health <= 0
}

// Knockback pushes the enemy along dir with force, reduced by resistance.
func (e *Enemy) Knockback(dir geom.Vec2, force float64) {
	if !e.Active || force <= 0 {
		return
	}
	e.knock = e.knock.Add(dir.Normalize().Scale(force * (1 - e.KnockbackResist)))
}

// Destroy deactivates the enemy and cancels every timer it owns.
//
// Postcondition: Active is false; no timer callback of e runs again.
func (e *Enemy) Destroy() {
	e.Active = false
	e.Timers.CancelAll()
}

// Update moves the enemy toward or around target and runs abilities whose
// cooldowns have elapsed.
//
// Postcondition: returns the actions the simulation must carry out; an
// inactive enemy does nothing.
func (e *Enemy) Update(delta time.Duration, target geom.Vec2) []Action {
	if !e.Active {
		return nil
	}
	dt := delta.Seconds()
	for id, cd := range e.Cooldowns {
		cd -= delta
		if cd < 0 {
			cd = 0
		}
		e.Cooldowns[id] = cd
	}

	toTarget := target.Sub(e.Pos)
	dist := toTarget.Len()
	dir := toTarget.Normalize()

	switch {
	case e.windingUp:
		e.Vel = geom.Vec2{}
	case e.dashing:
		e.Vel = e.dashVel
	default:
		e.Vel = e.steer(dir, dist)
	}

	var actions []Action
	if !e.windingUp && !e.dashing {
		for _, a := range e.Abilities {
			if e.Cooldowns[a.ID] > 0 {
				continue
			}
			if a.Range > 0 && dist > a.Range {
				continue
			}
			if act, ok := e.use(a, dir); ok {
				actions = append(actions, act)
			}
			e.Cooldowns[a.ID] = a.Cooldown
			if e.windingUp {
				break
			}
		}
	}

	e.Pos = e.Pos.Add(e.Vel.Add(e.knock).Scale(dt))
	e.knock = e.knock.Scale(math.Max(0, 1-knockbackDecay*dt))
	return actions
}

func (e *Enemy) steer(dir geom.Vec2, dist float64) geom.Vec2 {
	switch e.Behavior {
	case BehaviorRanged:
		keep := e.PreferredRange
		if keep <= 0 {
			return dir.Scale(e.Speed)
		}
		switch {
		case dist < keep*0.8:
			return dir.Scale(-e.Speed)
		case dist > keep:
			return dir.Scale(e.Speed)
		default:
			// Strafe around the player while in the comfort band.
			return dir.Rotate(math.Pi / 2).Scale(e.Speed * 0.5)
		}
	default:
		return dir.Scale(e.Speed)
	}
}

func (e *Enemy) use(a Ability, dir geom.Vec2) (Action, bool) {
	switch a.Kind {
	case AbilityDash:
		e.windingUp = true
		e.Vel = geom.Vec2{}
		aim := dir
		e.Timers.AfterFor(e, a.Windup, func() {
			e.windingUp = false
			e.dashing = true
			e.dashVel = aim.Scale(a.Speed)
			e.Timers.AfterFor(e, a.Duration, func() { e.dashing = false })
		})
		return Action{}, false
	case AbilityShoot:
		n := max(a.Count, 1)
		dirs := make([]geom.Vec2, n)
		for i := range dirs {
			spread := (float64(i) - float64(n-1)/2) * 0.2
			dirs[i] = dir.Rotate(spread)
		}
		return Action{Kind: ActionShoot, SourceID: e.ID, From: e.Pos, Directions: dirs, Speed: a.Speed, Damage: a.Damage}, true
	case AbilityNova:
		return Action{Kind: ActionShoot, SourceID: e.ID, From: e.Pos, Directions: weapon.Radial(max(a.Count, 1), 0), Speed: a.Speed, Damage: a.Damage}, true
	case AbilitySummon:
		return Action{Kind: ActionSummon, SourceID: e.ID, From: e.Pos, TemplateID: a.Summon, Count: max(a.Count, 1)}, true
	}
	return Action{}, false
}
