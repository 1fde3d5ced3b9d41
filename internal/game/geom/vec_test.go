package geom_test

import (
	"math"
	"testing"

	"github.com/cory-johannsen/survivors/internal/game/geom"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestVec2_Normalize_Zero(t *testing.T) {
	assert.Equal(t, geom.Vec2{}, geom.Vec2{}.Normalize())
}

func TestVec2_Rotate_QuarterTurn(t *testing.T) {
	r := geom.V(1, 0).Rotate(math.Pi / 2)
	assert.InDelta(t, 0, r.X, 1e-9)
	assert.InDelta(t, 1, r.Y, 1e-9)
}

func TestRect_Contains(t *testing.T) {
	r := geom.RectAround(geom.V(0, 0), 10, 10)
	assert.True(t, r.Contains(geom.V(0, 0)))
	assert.True(t, r.Contains(geom.V(-5, -5)))
	assert.False(t, r.Contains(geom.V(5, 0)))
}

func TestCirclesOverlap(t *testing.T) {
	assert.True(t, geom.CirclesOverlap(geom.V(0, 0), 1, geom.V(2, 0), 1))
	assert.False(t, geom.CirclesOverlap(geom.V(0, 0), 1, geom.V(2.1, 0), 1))
}

func TestVec2_Property_NormalizeIsUnit(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		x := rapid.Float64Range(-1e6, 1e6).Draw(rt, "x")
		y := rapid.Float64Range(-1e6, 1e6).Draw(rt, "y")
		v := geom.V(x, y)
		if v.Len() < 1e-9 {
			return
		}
		assert.InDelta(rt, 1.0, v.Normalize().Len(), 1e-9)
	})
}
