package dice_test

import (
	"testing"

	"github.com/cory-johannsen/survivors/internal/game/dice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

// fixedSource replays a fixed list of floats; Intn derives from the same list.
type fixedSource struct {
	floats []float64
	i      int
}

func (f *fixedSource) Float64() float64 {
	v := f.floats[f.i%len(f.floats)]
	f.i++
	return v
}

func (f *fixedSource) Intn(n int) int { return int(f.Float64() * float64(n)) }

func TestParse_Forms(t *testing.T) {
	e, err := dice.Parse("2d6+3")
	require.NoError(t, err)
	assert.Equal(t, 2, e.Count)
	assert.Equal(t, 6, e.Sides)
	assert.Equal(t, 3, e.Modifier)

	e, err = dice.Parse("d20")
	require.NoError(t, err)
	assert.Equal(t, 1, e.Count)

	_, err = dice.Parse("banana")
	assert.Error(t, err)
}

func TestSeededSource_Deterministic(t *testing.T) {
	a := dice.NewSeededSource(42)
	b := dice.NewSeededSource(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Intn(1000), b.Intn(1000))
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestWeightedIndex_Roulette(t *testing.T) {
	weights := []float64{1, 0, 3}
	// 0.1*4 = 0.4 < 1 -> index 0
	assert.Equal(t, 0, dice.WeightedIndex(&fixedSource{floats: []float64{0.1}}, weights))
	// 0.5*4 = 2.0 -> past index 0, skips zero weight, lands on 2
	assert.Equal(t, 2, dice.WeightedIndex(&fixedSource{floats: []float64{0.5}}, weights))
}

func TestWeightedIndex_NoPositiveWeights(t *testing.T) {
	assert.Equal(t, -1, dice.WeightedIndex(dice.NewSeededSource(1), []float64{0, -2}))
	assert.Equal(t, -1, dice.WeightedIndex(dice.NewSeededSource(1), nil))
}

func TestWeightedIndex_Property_NeverPicksZeroWeight(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		weights := rapid.SliceOfN(rapid.Float64Range(0, 10), 1, 12).Draw(rt, "weights")
		seed := rapid.Uint64().Draw(rt, "seed")
		idx := dice.WeightedIndex(dice.NewSeededSource(seed), weights)
		if idx < 0 {
			for _, w := range weights {
				assert.LessOrEqual(rt, w, 0.0)
			}
			return
		}
		assert.Greater(rt, weights[idx], 0.0)
	})
}

func TestChance_Bounds(t *testing.T) {
	src := dice.NewSeededSource(7)
	for i := 0; i < 100; i++ {
		assert.False(t, dice.Chance(src, 0))
		assert.True(t, dice.Chance(src, 1))
	}
}

func TestRoller_RollExpr_InRange(t *testing.T) {
	r := dice.NewLoggedRoller(dice.NewSeededSource(3), zap.NewNop())
	for i := 0; i < 200; i++ {
		res, err := r.RollExpr("1d3+1")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Total(), 2)
		assert.LessOrEqual(t, res.Total(), 4)
	}
}

func TestBetween_Property_InRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lo := rapid.Float64Range(-100, 100).Draw(rt, "lo")
		span := rapid.Float64Range(0.001, 100).Draw(rt, "span")
		v := dice.Between(dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")), lo, lo+span)
		assert.GreaterOrEqual(rt, v, lo)
		assert.LessOrEqual(rt, v, lo+span)
	})
}
