package weapon

import (
	"math"

	"github.com/cory-johannsen/survivors/internal/game/dice"
	"github.com/cory-johannsen/survivors/internal/game/geom"
)

// Candidate is an active enemy as seen by targeting.
type Candidate struct {
	ID     uint64
	Pos    geom.Vec2
	Health float64
}

// Context is everything a targeting strategy may look at.
type Context struct {
	Origin geom.Vec2
	// Facing is the player's last non-zero movement vector.
	Facing     geom.Vec2
	View       geom.Rect
	Candidates []Candidate
	Rand       dice.Source
}

// Aim is the outcome of targeting: either a point to attack or a set of
// fixed directions.
type Aim struct {
	Point    geom.Vec2
	TargetID uint64
	// Directions holds unit vectors; Point-based aims have exactly one.
	Directions []geom.Vec2
}

// clusterRadius is the neighbourhood used by cluster-center targeting.
const clusterRadius = 80.0

// Nearest returns the candidate closest to origin within maxRange
// (maxRange <= 0 means unlimited).
func Nearest(origin geom.Vec2, maxRange float64, cands []Candidate) (Candidate, bool) {
	best := -1
	bestD := math.Inf(1)
	for i, c := range cands {
		d := origin.DistSq(c.Pos)
		if maxRange > 0 && d > maxRange*maxRange {
			continue
		}
		if d < bestD {
			best, bestD = i, d
		}
	}
	if best < 0 {
		return Candidate{}, false
	}
	return cands[best], true
}

// RandomInView picks uniformly among candidates inside view.
func RandomInView(src dice.Source, view geom.Rect, cands []Candidate) (Candidate, bool) {
	var in []int
	for i, c := range cands {
		if view.Contains(c.Pos) {
			in = append(in, i)
		}
	}
	if len(in) == 0 {
		return Candidate{}, false
	}
	return cands[in[src.Intn(len(in))]], true
}

// LowestHealth returns the candidate with the least current health within
// radius of origin. Ties go to the earlier candidate.
func LowestHealth(origin geom.Vec2, radius float64, cands []Candidate) (Candidate, bool) {
	best := -1
	for i, c := range cands {
		if radius > 0 && origin.DistSq(c.Pos) > radius*radius {
			continue
		}
		if best < 0 || c.Health < cands[best].Health {
			best = i
		}
	}
	if best < 0 {
		return Candidate{}, false
	}
	return cands[best], true
}

// ClusterCenter finds the candidate with the most neighbours within radius
// and returns the centroid of that neighbourhood (the candidate included).
func ClusterCenter(radius float64, cands []Candidate) (geom.Vec2, bool) {
	if len(cands) == 0 {
		return geom.Vec2{}, false
	}
	r2 := radius * radius
	best, bestN := 0, -1
	for i, c := range cands {
		n := 0
		for j, o := range cands {
			if i != j && c.Pos.DistSq(o.Pos) <= r2 {
				n++
			}
		}
		if n > bestN {
			best, bestN = i, n
		}
	}
	centre := cands[best].Pos
	var sum geom.Vec2
	count := 0
	for _, o := range cands {
		if centre.DistSq(o.Pos) <= r2 {
			sum = sum.Add(o.Pos)
			count++
		}
	}
	return sum.Scale(1 / float64(count)), true
}

// Radial returns n unit vectors evenly spaced around the circle starting at
// offset radians.
func Radial(n int, offset float64) []geom.Vec2 {
	if n < 1 {
		n = 1
	}
	out := make([]geom.Vec2, n)
	step := 2 * math.Pi / float64(n)
	for i := range out {
		out[i] = geom.FromAngle(offset + step*float64(i))
	}
	return out
}

// FacingDirection returns the unit vector of the last movement, or +X when
// the player has never moved.
func FacingDirection(last geom.Vec2) geom.Vec2 {
	if last.IsZero() {
		return geom.V(1, 0)
	}
	return last.Normalize()
}

// Select runs the strategy t for a shot with the given reach and projectile
// count.
//
// Postcondition: returns false only when a target-seeking strategy found no
// candidate; radial and facing always succeed.
func Select(t Targeting, ctx Context, reach float64, count int) (Aim, bool) {
	point := func(p geom.Vec2, id uint64) (Aim, bool) {
		dir := p.Sub(ctx.Origin)
		if dir.IsZero() {
			dir = FacingDirection(ctx.Facing)
		}
		return Aim{Point: p, TargetID: id, Directions: []geom.Vec2{dir.Normalize()}}, true
	}
	switch t {
	case TargetNearest:
		if c, ok := Nearest(ctx.Origin, reach, ctx.Candidates); ok {
			return point(c.Pos, c.ID)
		}
	case TargetRandomInView:
		if ctx.Rand == nil {
			return Aim{}, false
		}
		if c, ok := RandomInView(ctx.Rand, ctx.View, ctx.Candidates); ok {
			return point(c.Pos, c.ID)
		}
	case TargetLowestHealth:
		if c, ok := LowestHealth(ctx.Origin, reach, ctx.Candidates); ok {
			return point(c.Pos, c.ID)
		}
	case TargetClusterCenter:
		var inReach []Candidate
		for _, c := range ctx.Candidates {
			if reach <= 0 || ctx.Origin.DistSq(c.Pos) <= reach*reach {
				inReach = append(inReach, c)
			}
		}
		if p, ok := ClusterCenter(clusterRadius, inReach); ok {
			return point(p, 0)
		}
	case TargetRadial:
		offset := FacingDirection(ctx.Facing).Angle()
		return Aim{Point: ctx.Origin, Directions: Radial(count, offset)}, true
	case TargetFacing:
		return Aim{Point: ctx.Origin, Directions: []geom.Vec2{FacingDirection(ctx.Facing)}}, true
	}
	return Aim{}, false
}
