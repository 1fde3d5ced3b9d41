// Package geom provides the 2D vector and rectangle math shared by the
// simulation packages.
package geom

import "math"

// Vec2 is a point or direction on the playfield.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// V is shorthand for Vec2{X: x, Y: y}.
func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

// Scale returns v * s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{X: v.X * s, Y: v.Y * s} }

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// LenSq returns the squared length of v.
func (v Vec2) LenSq() float64 { return v.X*v.X + v.Y*v.Y }

// Dist returns the Euclidean distance between v and o.
func (v Vec2) Dist(o Vec2) float64 { return v.Sub(o).Len() }

// DistSq returns the squared distance between v and o.
func (v Vec2) DistSq(o Vec2) float64 { return v.Sub(o).LenSq() }

// IsZero reports whether both components are zero.
func (v Vec2) IsZero() bool { return v.X == 0 && v.Y == 0 }

// Normalize returns v scaled to unit length.
//
// Postcondition: Returns the zero vector when v is the zero vector.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

// Angle returns the direction of v in radians.
func (v Vec2) Angle() float64 { return math.Atan2(v.Y, v.X) }

// Rotate returns v rotated by rad radians.
func (v Vec2) Rotate(rad float64) Vec2 {
	s, c := math.Sincos(rad)
	return Vec2{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c}
}

// FromAngle returns the unit vector pointing at rad radians.
func FromAngle(rad float64) Vec2 {
	s, c := math.Sincos(rad)
	return Vec2{X: c, Y: s}
}

// Rect is an axis-aligned rectangle; Min is inclusive, Max exclusive.
type Rect struct {
	Min Vec2
	Max Vec2
}

// RectAround returns a w x h rectangle centred on c.
func RectAround(c Vec2, w, h float64) Rect {
	return Rect{
		Min: Vec2{X: c.X - w/2, Y: c.Y - h/2},
		Max: Vec2{X: c.X + w/2, Y: c.Y + h/2},
	}
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.Min.X && p.X < r.Max.X && p.Y >= r.Min.Y && p.Y < r.Max.Y
}

// Expand returns r grown by m on every side.
func (r Rect) Expand(m float64) Rect {
	return Rect{
		Min: Vec2{X: r.Min.X - m, Y: r.Min.Y - m},
		Max: Vec2{X: r.Max.X + m, Y: r.Max.Y + m},
	}
}

// CirclesOverlap reports whether two circles intersect.
func CirclesOverlap(a Vec2, ra float64, b Vec2, rb float64) bool {
	r := ra + rb
	return a.DistSq(b) <= r*r
}
