package character_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cory-johannsen/survivors/internal/game/character"
	"github.com/cory-johannsen/survivors/internal/game/passive"
	"github.com/cory-johannsen/survivors/internal/game/player"
	"github.com/cory-johannsen/survivors/internal/game/stats"
	"github.com/cory-johannsen/survivors/internal/game/weapon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type content struct{}

func (content) Weapon(id string) *weapon.Definition { return weapon.Fallback(id) }
func (content) Passive(id string) *passive.Definition {
	return &passive.Definition{ID: id, Name: id, Stat: stats.MoveSpeed, Base: 0.1, PerLevel: 0.1, Multiplicative: true, MaxLevel: 5, Rarity: 1}
}

const knightYAML = `
id: knight
name: Knight
weapon: whip
passives: [boots]
modifiers:
  max_health: 20
  armor: 1
multipliers:
  move_speed: -0.1
`

func TestParse_AndValidate(t *testing.T) {
	def, err := character.Parse([]byte(knightYAML))
	require.NoError(t, err)
	require.NoError(t, def.Validate())
	assert.Equal(t, "whip", def.Weapon)
	assert.Equal(t, []string{"boots"}, def.Passives)

	_, err = character.Parse([]byte("id: x\nname: X\nclass: fighter\n"))
	assert.Error(t, err, "unknown fields are rejected")

	bad := &character.Definition{ID: "x", Modifiers: map[string]float64{"charisma": 1}}
	err = bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
	assert.Contains(t, err.Error(), "charisma")
}

func TestBaseProfile_AppliesModifiersThenMultipliers(t *testing.T) {
	def, err := character.Parse([]byte(knightYAML))
	require.NoError(t, err)
	p := character.BaseProfile(def)
	assert.Equal(t, 120.0, p.MaxHealth)
	assert.Equal(t, 120.0, p.CurrentHealth)
	assert.Equal(t, 1.0, p.Armor)
	assert.InDelta(t, 108.0, p.MoveSpeed, 1e-9)
}

func TestBuild_GrantsLoadout(t *testing.T) {
	def, err := character.Parse([]byte(knightYAML))
	require.NoError(t, err)
	p, err := character.Build(def, content{}, character.BaseProfile(def), player.DefaultConfig())
	require.NoError(t, err)

	_, ok := p.Weapon("whip")
	assert.True(t, ok)
	_, ok = p.Passive("boots")
	assert.True(t, ok)
	assert.InDelta(t, 108.0*1.1, p.Stats.MoveSpeed, 1e-9)
	assert.Equal(t, p.Stats.MaxHealth, p.Stats.CurrentHealth)
}

func TestBuild_RejectsOverfullLoadout(t *testing.T) {
	def := &character.Definition{ID: "hoarder", Name: "Hoarder", Passives: []string{"a", "b", "c"}}
	cfg := player.DefaultConfig()
	cfg.PassiveSlots = 2
	_, err := character.Build(def, content{}, character.BaseProfile(def), cfg)
	assert.ErrorIs(t, err, player.ErrSlotsFull)

	_, err = character.Build(nil, content{}, stats.Default(), cfg)
	assert.Error(t, err)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "knight.yaml"), []byte(knightYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	reg, err := character.LoadDirectory(dir)
	require.NoError(t, err)
	require.Len(t, reg.All(), 1)
	_, ok := reg.Get("knight")
	assert.True(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dup.yaml"), []byte(knightYAML), 0o644))
	_, err = character.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestBaseProfile_Property_FullHealthAndPositiveMax(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		def := &character.Definition{
			ID:   "r",
			Name: "R",
			Modifiers: map[string]float64{
				"max_health": rapid.Float64Range(-500, 500).Draw(rt, "hp"),
			},
		}
		p := character.BaseProfile(def)
		assert.GreaterOrEqual(rt, p.MaxHealth, 1.0)
		assert.Equal(rt, p.MaxHealth, p.CurrentHealth)
	})
}
