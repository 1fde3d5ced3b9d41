package combat

import (
	"time"

	"github.com/cory-johannsen/survivors/internal/game/enemy"
	"github.com/cory-johannsen/survivors/internal/game/geom"
	"github.com/cory-johannsen/survivors/internal/game/weapon"
)

// hostileRadius is the hitbox of enemy shots.
const hostileRadius = 5.0

// hostileLifetime bounds how long an enemy shot flies.
const hostileLifetime = 4 * time.Second

// World owns the projectiles and pickups of one run. It is driven by the
// simulation goroutine only.
type World struct {
	Projectiles []*Projectile
	Hostile     []*Projectile
	Pickups     []*Pickup
	nextID      uint64
}

// NewWorld creates an empty World.
func NewWorld() *World {
	return &World{}
}

func (w *World) id() uint64 {
	w.nextID++
	return w.nextID
}

// SpawnProjectile instantiates a player projectile from spec.
func (w *World) SpawnProjectile(spec weapon.Spec) *Projectile {
	p := newProjectile(w.id(), spec)
	w.Projectiles = append(w.Projectiles, p)
	return p
}

// SpawnHostile fires an enemy shot from from along dir.
func (w *World) SpawnHostile(from, dir geom.Vec2, speed, damage float64) *Projectile {
	p := newProjectile(w.id(), weapon.Spec{
		WeaponID: "enemy_shot",
		Motion:   weapon.MotionLinear,
		Pos:      from,
		Vel:      dir.Normalize().Scale(speed),
		Radius:   hostileRadius,
		Lifetime: hostileLifetime,
	})
	p.Damage = damage
	p.Hostile = true
	w.Hostile = append(w.Hostile, p)
	return p
}

// Drop places a pickup of kind at pos.
func (w *World) Drop(kind PickupKind, pos geom.Vec2, value float64) *Pickup {
	p := &Pickup{ID: w.id(), Kind: kind, Pos: pos, Value: value, Active: true}
	w.Pickups = append(w.Pickups, p)
	return p
}

// Attract marks every pickup of kind as drifting toward the player.
func (w *World) Attract(kind PickupKind) {
	for _, p := range w.Pickups {
		if p.Active && p.Kind == kind {
			p.Attracted = true
		}
	}
}

// AdvanceTimers advances the timers of every live projectile.
func (w *World) AdvanceTimers(delta time.Duration) {
	for _, p := range w.Projectiles {
		if p.Active {
			p.Timers.Advance(delta)
		}
	}
}

// UpdateProjectiles moves and ages every projectile; anything leaving field
// is destroyed.
func (w *World) UpdateProjectiles(delta time.Duration, owner geom.Vec2, field geom.Rect) {
	for _, set := range [][]*Projectile{w.Projectiles, w.Hostile} {
		for _, p := range set {
			p.Update(delta, owner)
			if p.Active && !field.Contains(p.Pos) {
				p.Destroy()
			}
		}
	}
}

// UpdatePickups drifts pickups toward target.
func (w *World) UpdatePickups(delta time.Duration, target geom.Vec2, radius float64) {
	for _, p := range w.Pickups {
		p.Update(delta, target, radius)
	}
}

// Compact forgets every inactive projectile and pickup.
func (w *World) Compact() {
	w.Projectiles = compactProjectiles(w.Projectiles)
	w.Hostile = compactProjectiles(w.Hostile)
	live := w.Pickups[:0]
	for _, p := range w.Pickups {
		if p.Active {
			live = append(live, p)
		}
	}
	clear(w.Pickups[len(live):])
	w.Pickups = live
}

func compactProjectiles(in []*Projectile) []*Projectile {
	live := in[:0]
	for _, p := range in {
		if p.Active {
			live = append(live, p)
		}
	}
	clear(in[len(live):])
	return live
}

// Clear destroys everything.
func (w *World) Clear() {
	for _, p := range w.Projectiles {
		p.Destroy()
	}
	for _, p := range w.Hostile {
		p.Destroy()
	}
	w.Projectiles, w.Hostile, w.Pickups = nil, nil, nil
}

// DespawnFar removes, without rewards, every enemy farther than dist from
// centre. Bosses are never despawned.
//
// Postcondition: returns how many enemies were removed.
func DespawnFar(enemies *enemy.Manager, centre geom.Vec2, dist float64) int {
	if dist <= 0 {
		return 0
	}
	n := 0
	for _, e := range enemies.All() {
		if e.IsBoss() {
			continue
		}
		if e.Pos.DistSq(centre) > dist*dist {
			enemies.Remove(e.ID)
			n++
		}
	}
	return n
}
