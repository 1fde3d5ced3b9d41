package combat

import (
	"time"

	"github.com/cory-johannsen/survivors/internal/game/geom"
	"github.com/cory-johannsen/survivors/internal/game/timer"
	"github.com/cory-johannsen/survivors/internal/game/weapon"
)

// Projectile is any damaging hitbox: bullets, melee arcs, orbiting blades,
// pulsing areas and enemy shots.
type Projectile struct {
	ID       uint64
	WeaponID string
	Motion   weapon.Motion
	Pos      geom.Vec2
	Vel      geom.Vec2
	Radius   float64
	Damage   float64
	// Piercing is the number of further enemies this projectile may hit;
	// it is destroyed once Piercing drops below zero.
	Piercing  int
	Unlimited bool
	Lifetime  time.Duration
	Knockback float64
	// Hostile projectiles belong to enemies and hurt the player.
	Hostile bool
	// Hits is the set of enemy ids already damaged.
	Hits map[uint64]bool
	// Struck counts every successful hit over the projectile's life.
	Struck int
	Active bool
	Timers timer.Set

	followOwner  bool
	orbitRadius  float64
	orbitAngle   float64
	angularSpeed float64
	gravity      float64
}

func newProjectile(id uint64, s weapon.Spec) *Projectile {
	p := &Projectile{
		ID:           id,
		WeaponID:     s.WeaponID,
		Motion:       s.Motion,
		Pos:          s.Pos,
		Vel:          s.Vel,
		Radius:       s.Radius,
		Damage:       float64(s.Damage),
		Piercing:     s.Piercing,
		Unlimited:    s.Unlimited,
		Lifetime:     s.Lifetime,
		Knockback:    s.Knockback,
		Hits:         make(map[uint64]bool),
		Active:       true,
		followOwner:  s.FollowOwner,
		orbitRadius:  s.OrbitRadius,
		orbitAngle:   s.OrbitAngle,
		angularSpeed: s.AngularSpeed,
		gravity:      s.Gravity,
	}
	if p.Unlimited && s.HitInterval > 0 {
		p.Timers.EveryFor(p, s.HitInterval, func() { clear(p.Hits) })
	}
	return p
}

// IsActive implements timer.Subject.
func (p *Projectile) IsActive() bool { return p.Active }

// Destroy deactivates the projectile and cancels its timers.
func (p *Projectile) Destroy() {
	p.Active = false
	p.Timers.CancelAll()
}

// Hit records enemyID in the hit-set.
//
// Postcondition: returns false, changing nothing, when enemyID was already hit.
func (p *Projectile) Hit(enemyID uint64) bool {
	if p.Hits[enemyID] {
		return false
	}
	p.Hits[enemyID] = true
	p.Struck++
	return true
}

// Spend consumes one piercing charge.
//
// Postcondition: the projectile is destroyed once Piercing < 0; unlimited
// projectiles are unaffected.
func (p *Projectile) Spend() {
	if p.Unlimited {
		return
	}
	p.Piercing--
	if p.Piercing < 0 {
		p.Destroy()
	}
}

// Update moves the projectile and ages it. owner is the player position
// for projectiles anchored to the player.
func (p *Projectile) Update(delta time.Duration, owner geom.Vec2) {
	if !p.Active {
		return
	}
	dt := delta.Seconds()
	switch p.Motion {
	case weapon.MotionOrbit:
		p.orbitAngle += p.angularSpeed * dt
		p.Pos = owner.Add(geom.FromAngle(p.orbitAngle).Scale(p.orbitRadius))
	case weapon.MotionStatic:
		if p.followOwner {
			p.Pos = owner.Add(geom.FromAngle(p.orbitAngle).Scale(p.orbitRadius))
		}
	case weapon.MotionBallistic:
		p.Vel.Y += p.gravity * dt
		p.Pos = p.Pos.Add(p.Vel.Scale(dt))
	default:
		p.Pos = p.Pos.Add(p.Vel.Scale(dt))
	}
	p.Lifetime -= delta
	if p.Lifetime <= 0 {
		p.Destroy()
	}
}
