package weapon

import (
	"math"
	"time"

	"github.com/cory-johannsen/survivors/internal/game/geom"
)

// Motion is how a spawned projectile moves.
type Motion string

const (
	MotionLinear    Motion = "linear"
	MotionOrbit     Motion = "orbit"
	MotionStatic    Motion = "static"
	MotionBallistic Motion = "ballistic"
)

// thrownGravity is the downward acceleration of thrown projectiles.
const thrownGravity = 600.0

// meleeLifetime is how long a melee arc hitbox lingers when the definition
// gives no duration.
const meleeLifetime = 150 * time.Millisecond

// Spec describes one projectile for the combat layer to instantiate.
type Spec struct {
	WeaponID string
	Motion   Motion
	Pos      geom.Vec2
	Vel      geom.Vec2
	Radius   float64
	Damage   int
	Piercing int
	// Unlimited projectiles are never destroyed by piercing; they rely on
	// HitInterval to hit the same enemy again.
	Unlimited   bool
	Lifetime    time.Duration
	Knockback   float64
	HitInterval time.Duration
	// Orbit parameters, relative to the owner.
	OrbitRadius  float64
	OrbitAngle   float64
	AngularSpeed float64
	// Gravity applies to ballistic motion.
	Gravity float64
	// FollowOwner keeps the projectile positioned relative to the player.
	FollowOwner bool
}

// Emit runs the attack pattern of shot from origin along aim.
//
// Postcondition: returns at least one Spec for every known pattern.
func Emit(shot Shot, aim Aim, origin geom.Vec2) []Spec {
	dirs := aim.Directions
	if len(dirs) == 0 {
		dirs = []geom.Vec2{geom.V(1, 0)}
	}
	switch shot.Pattern {
	case PatternMeleeArc:
		return meleeArc(shot, dirs[0], origin)
	case PatternOrbitRing:
		return orbitRing(shot, origin)
	case PatternAreaPulse:
		return areaPulse(shot, aim, origin)
	case PatternThrownArc:
		return thrownArc(shot, dirs[0], origin)
	default:
		return burst(shot, dirs, origin)
	}
}

func newSpec(shot Shot, m Motion, pos geom.Vec2) Spec {
	return Spec{
		WeaponID:    shot.WeaponID,
		Motion:      m,
		Pos:         pos,
		Radius:      shot.Area,
		Damage:      shot.Damage,
		Piercing:    shot.Piercing,
		Lifetime:    shot.Duration,
		Knockback:   shot.Knockback,
		HitInterval: shot.HitInterval,
	}
}

// fan spreads n directions symmetrically around dir over spread degrees.
func fan(dir geom.Vec2, n int, spread float64) []geom.Vec2 {
	if n <= 1 || spread <= 0 {
		out := make([]geom.Vec2, n)
		for i := range out {
			out[i] = dir
		}
		return out
	}
	total := spread * math.Pi / 180
	step := total / float64(n-1)
	start := -total / 2
	out := make([]geom.Vec2, n)
	for i := range out {
		out[i] = dir.Rotate(start + step*float64(i))
	}
	return out
}

func burst(shot Shot, dirs []geom.Vec2, origin geom.Vec2) []Spec {
	var aimed []geom.Vec2
	if len(dirs) > 1 {
		aimed = dirs
	} else {
		aimed = fan(dirs[0], shot.Projectiles, shot.Spread)
	}
	out := make([]Spec, 0, len(aimed))
	for _, d := range aimed {
		s := newSpec(shot, MotionLinear, origin)
		s.Vel = d.Scale(shot.Speed)
		out = append(out, s)
	}
	return out
}

func meleeArc(shot Shot, dir geom.Vec2, origin geom.Vec2) []Spec {
	life := shot.Duration
	if life <= 0 {
		life = meleeLifetime
	}
	out := make([]Spec, 0, shot.Projectiles)
	for i := 0; i < shot.Projectiles; i++ {
		d := dir
		if i%2 == 1 {
			d = dir.Scale(-1)
		}
		s := newSpec(shot, MotionStatic, origin.Add(d.Scale(shot.Range/2)))
		s.Radius = math.Max(shot.Area, shot.Range/2)
		s.Unlimited = true
		s.Lifetime = life
		s.FollowOwner = true
		s.OrbitAngle = d.Angle()
		s.OrbitRadius = shot.Range / 2
		out = append(out, s)
	}
	return out
}

func orbitRing(shot Shot, origin geom.Vec2) []Spec {
	out := make([]Spec, 0, shot.Projectiles)
	step := 2 * math.Pi / float64(shot.Projectiles)
	angular := 0.0
	if shot.Range > 0 {
		angular = shot.Speed / shot.Range
	}
	for i := 0; i < shot.Projectiles; i++ {
		angle := step * float64(i)
		s := newSpec(shot, MotionOrbit, origin.Add(geom.FromAngle(angle).Scale(shot.Range)))
		s.Unlimited = true
		s.FollowOwner = true
		s.OrbitRadius = shot.Range
		s.OrbitAngle = angle
		s.AngularSpeed = angular
		out = append(out, s)
	}
	return out
}

func areaPulse(shot Shot, aim Aim, origin geom.Vec2) []Spec {
	s := newSpec(shot, MotionStatic, aim.Point)
	s.Unlimited = true
	if shot.Targeting == TargetRadial || shot.Targeting == TargetFacing {
		s.Pos = origin
		s.FollowOwner = true
	}
	return []Spec{s}
}

func thrownArc(shot Shot, dir geom.Vec2, origin geom.Vec2) []Spec {
	out := make([]Spec, 0, shot.Projectiles)
	horizontal := 1.0
	if dir.X < 0 {
		horizontal = -1
	}
	for i := 0; i < shot.Projectiles; i++ {
		// Alternate sides and widen with each extra projectile.
		lateral := horizontal * (0.3 + 0.15*float64(i/2))
		if i%2 == 1 {
			lateral = -lateral
		}
		s := newSpec(shot, MotionBallistic, origin)
		s.Vel = geom.V(lateral*shot.Speed, -shot.Speed)
		s.Gravity = thrownGravity
		out = append(out, s)
	}
	return out
}
