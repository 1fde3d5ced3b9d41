package stats_test

import (
	"testing"

	"github.com/cory-johannsen/survivors/internal/game/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestProfile_GetSet(t *testing.T) {
	p := stats.Default()
	v, ok := p.Get(stats.Damage)
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	assert.True(t, p.Set(stats.Armor, 3))
	assert.Equal(t, 3.0, p.Armor)

	_, ok = p.Get("nope")
	assert.False(t, ok)
	before := p
	assert.False(t, p.Set("nope", 9))
	assert.Equal(t, before, p)
}

func TestParseKey(t *testing.T) {
	k, err := stats.ParseKey("pickup_radius")
	require.NoError(t, err)
	assert.Equal(t, stats.PickupRadius, k)
	_, err = stats.ParseKey("charisma")
	assert.Error(t, err)
}

func TestRecompute_AdditiveThenMultiplicative(t *testing.T) {
	base := stats.Default()
	mods := []stats.Modifier{
		{Stat: stats.MaxHealth, Value: 20, Level: 1, MinLevel: 1},
		{Stat: stats.Damage, Value: 0.1, Multiplicative: true, Level: 1, MinLevel: 1},
		{Stat: stats.Damage, Value: 0.1, Multiplicative: true, Level: 1, MinLevel: 1},
	}
	got := stats.Recompute(base, 100, mods)
	assert.Equal(t, 120.0, got.MaxHealth)
	assert.Equal(t, 100.0, got.CurrentHealth, "absolute health kept when max grows")
	assert.InDelta(t, 1.21, got.Damage, 1e-9)
}

func TestRecompute_ClampsHealthWhenMaxDrops(t *testing.T) {
	base := stats.Default()
	mods := []stats.Modifier{{Stat: stats.MaxHealth, Value: -0.5, Multiplicative: true, Level: 1}}
	got := stats.Recompute(base, 90, mods)
	assert.Equal(t, 50.0, got.MaxHealth)
	assert.Equal(t, 50.0, got.CurrentHealth)
}

func TestRecompute_MinLevelGate(t *testing.T) {
	base := stats.Default()
	mods := []stats.Modifier{{Stat: stats.Armor, Value: 5, MinLevel: 3, Level: 2}}
	assert.Equal(t, 0.0, stats.Recompute(base, 100, mods).Armor)
	mods[0].Level = 3
	assert.Equal(t, 5.0, stats.Recompute(base, 100, mods).Armor)
}

func TestLeveledValue(t *testing.T) {
	assert.InDelta(t, 0.1, stats.LeveledValue(0.1, 0.05, 1), 1e-12)
	assert.InDelta(t, 0.3, stats.LeveledValue(0.1, 0.05, 5), 1e-12)
}

func TestHealHurt_Clamp(t *testing.T) {
	p := stats.Default()
	assert.Equal(t, 100.0, p.Hurt(250))
	assert.Equal(t, 0.0, p.CurrentHealth)
	assert.Equal(t, 100.0, p.Heal(500))
	assert.Equal(t, 100.0, p.CurrentHealth)
}

func genModifier() *rapid.Generator[stats.Modifier] {
	return rapid.Custom(func(t *rapid.T) stats.Modifier {
		keys := stats.Keys()
		return stats.Modifier{
			Stat:           keys[rapid.IntRange(0, len(keys)-1).Draw(t, "key")],
			Value:          rapid.Float64Range(-0.9, 5).Draw(t, "value"),
			Multiplicative: rapid.Bool().Draw(t, "mult"),
			MinLevel:       rapid.IntRange(0, 3).Draw(t, "min"),
			Level:          rapid.IntRange(1, 8).Draw(t, "level"),
		}
	})
}

func TestRecompute_Property_IdempotentAndHealthInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := stats.Default()
		mods := rapid.SliceOfN(genModifier(), 0, 20).Draw(rt, "mods")
		hp := rapid.Float64Range(-50, 500).Draw(rt, "hp")

		a := stats.Recompute(base, hp, mods)
		b := stats.Recompute(base, hp, mods)
		assert.Equal(rt, a, b)

		c := stats.Recompute(base, a.CurrentHealth, mods)
		assert.Equal(rt, a, c, "recomputing from the derived health is a fixed point")

		assert.GreaterOrEqual(rt, a.CurrentHealth, 0.0)
		assert.LessOrEqual(rt, a.CurrentHealth, a.MaxHealth)
	})
}
