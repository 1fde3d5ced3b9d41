// Package combat implements the real-time combat layer: projectiles,
// pickups, the spatial-grid broad-phase and the resolver that applies
// damage, piercing, knockback, drops and deaths.
package combat

import (
	"math"
	"sort"

	"github.com/cory-johannsen/survivors/internal/game/geom"
)

// Body is one circle registered in a Grid. Index refers back into the
// caller's slice.
type Body struct {
	Index  int
	Pos    geom.Vec2
	Radius float64
}

type cell struct{ x, y int }

// Grid is a uniform spatial hash used as the broad-phase. Bodies are
// bucketed by centre; queries widen by the largest inserted radius so no
// overlap is missed.
type Grid struct {
	size      float64
	cells     map[cell][]Body
	maxRadius float64
}

// NewGrid creates an empty grid with square cells of size.
//
// Precondition: size > 0.
func NewGrid(size float64) *Grid {
	if size <= 0 {
		size = 64
	}
	return &Grid{size: size, cells: make(map[cell][]Body)}
}

// Reset removes every body and every bucket, so a grid that follows a
// moving player only holds the cells of the current tick.
func (g *Grid) Reset() {
	clear(g.cells)
	g.maxRadius = 0
}

// Buckets returns the number of occupied cells.
func (g *Grid) Buckets() int { return len(g.cells) }

func (g *Grid) key(p geom.Vec2) cell {
	return cell{x: int(math.Floor(p.X / g.size)), y: int(math.Floor(p.Y / g.size))}
}

// Insert adds b.
func (g *Grid) Insert(b Body) {
	k := g.key(b.Pos)
	g.cells[k] = append(g.cells[k], b)
	if b.Radius > g.maxRadius {
		g.maxRadius = b.Radius
	}
}

// Query returns the indices of bodies whose circles overlap the circle at
// pos with radius, in ascending index order.
func (g *Grid) Query(pos geom.Vec2, radius float64) []int {
	reach := radius + g.maxRadius
	lo := g.key(geom.V(pos.X-reach, pos.Y-reach))
	hi := g.key(geom.V(pos.X+reach, pos.Y+reach))
	var out []int
	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			for _, b := range g.cells[cell{x, y}] {
				if geom.CirclesOverlap(pos, radius, b.Pos, b.Radius) {
					out = append(out, b.Index)
				}
			}
		}
	}
	sort.Ints(out)
	return out
}
