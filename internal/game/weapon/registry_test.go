package weapon_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cory-johannsen/survivors/internal/game/weapon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const knifeYAML = `
id: knife
name: Knife
pattern: projectile_burst
targeting: facing
max_level: 8
rarity: 1
base:
  damage: 6
  cooldown: 1s
  projectiles: 1
  range: 400
  area: 5
  duration: 1500ms
  speed: 450
levels:
  - level: 2
    projectiles: 1
  - level: 3
    damage_percent: 0.25
`

func TestParse_ValidDefinition(t *testing.T) {
	def, err := weapon.Parse([]byte(knifeYAML))
	require.NoError(t, err)
	assert.Equal(t, "knife", def.ID)
	assert.Equal(t, time.Second, def.Base.Cooldown)
	assert.Equal(t, 1500*time.Millisecond, def.Base.Duration)
	assert.Len(t, def.Levels, 2)
}

func TestParse_RejectsUnknownFieldsAndBadValues(t *testing.T) {
	_, err := weapon.Parse([]byte("id: x\nname: X\ncolour: red\n"))
	assert.Error(t, err)

	_, err = weapon.Parse([]byte("id: x\nname: X\npattern: laser\ntargeting: nearest\nmax_level: 1\nbase:\n  cooldown: 1s\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "laser")
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "knife.yaml"), []byte(knifeYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	reg, err := weapon.LoadDirectory(dir)
	require.NoError(t, err)
	def, ok := reg.Get("knife")
	require.True(t, ok)
	assert.Equal(t, "Knife", def.Name)
	assert.Len(t, reg.All(), 1)

	require.Error(t, reg.Register(def))
}
