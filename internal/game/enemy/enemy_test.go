package enemy_test

import (
	"testing"
	"time"

	"github.com/cory-johannsen/survivors/internal/game/dice"
	"github.com/cory-johannsen/survivors/internal/game/enemy"
	"github.com/cory-johannsen/survivors/internal/game/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func batTemplate() *enemy.Template {
	return &enemy.Template{
		ID: "bat", Name: "Bat", Behavior: enemy.BehaviorChase,
		MaxHP: 20, Damage: 5, Speed: 100, Radius: 8, Experience: 2,
	}
}

func chargerTemplate() *enemy.Template {
	return &enemy.Template{
		ID: "boar", Name: "Boar", Behavior: enemy.BehaviorCharge,
		MaxHP: 40, Damage: 10, Speed: 50, Radius: 12, Experience: 5,
		Abilities: []enemy.Ability{{
			ID: "gore", Kind: enemy.AbilityDash, Cooldown: time.Second,
			Windup: 200 * time.Millisecond, Duration: 300 * time.Millisecond,
			Range: 500, Speed: 400,
		}},
	}
}

func TestTemplate_Validate(t *testing.T) {
	require.NoError(t, batTemplate().Validate())
	require.NoError(t, chargerTemplate().Validate())

	bad := batTemplate()
	bad.Behavior = "teleport"
	bad.Radius = 0
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teleport")
	assert.Contains(t, err.Error(), "radius")
}

func TestLoadTemplateFromBytes_Loot(t *testing.T) {
	yml := `
id: ghoul
name: Ghoul
behavior: chase
max_hp: 30
damage: 8
speed: 70
radius: 10
experience: 3
loot:
  heal_chance: 0.05
  heal_amount: 20
  currency_chance: 0.1
  currency: 1d3
`
	tmpl, err := enemy.LoadTemplateFromBytes([]byte(yml))
	require.NoError(t, err)
	require.NotNil(t, tmpl.Loot)
	assert.Equal(t, "1d3", tmpl.Loot.Currency)

	_, err = enemy.LoadTemplateFromBytes([]byte(yml + "  currency_typo: 1\n"))
	assert.Error(t, err)
}

func TestGenerateLoot_CertainAndImpossible(t *testing.T) {
	roller := dice.NewLoggedRoller(dice.NewSeededSource(5), nil)
	lt := &enemy.LootTable{HealChance: 1, HealAmount: 10, CurrencyChance: 1, Currency: "2d4", ChestChance: 0}
	for i := 0; i < 50; i++ {
		r := enemy.GenerateLoot(lt, roller, 1)
		assert.Equal(t, 10.0, r.Heal)
		assert.GreaterOrEqual(t, r.Currency, 2)
		assert.LessOrEqual(t, r.Currency, 8)
		assert.False(t, r.Chest)
	}
	assert.True(t, enemy.GenerateLoot(nil, roller, 1).Empty())
}

func TestEnemy_ApplyDamage_DiesOnce(t *testing.T) {
	m := enemy.NewManager()
	e := m.Spawn(batTemplate(), geom.V(0, 0), 20, 5)

	dealt, died := e.ApplyDamage(12)
	assert.Equal(t, 12.0, dealt)
	assert.False(t, died)

	dealt, died = e.ApplyDamage(12)
	assert.Equal(t, 8.0, dealt)
	assert.True(t, died)
	assert.Equal(t, 0.0, e.Health)

	_, died = e.ApplyDamage(12)
	assert.False(t, died, "already dead enemies do not die again")
}

func TestEnemy_ChaseMovesTowardTarget(t *testing.T) {
	m := enemy.NewManager()
	e := m.Spawn(batTemplate(), geom.V(0, 0), 20, 5)
	e.Update(time.Second, geom.V(1000, 0))
	assert.InDelta(t, 100, e.Pos.X, 1e-9)
	assert.InDelta(t, 0, e.Pos.Y, 1e-9)
}

func TestEnemy_ChargeWindsUpThenDashes(t *testing.T) {
	m := enemy.NewManager()
	e := m.Spawn(chargerTemplate(), geom.V(0, 0), 40, 10)
	target := geom.V(300, 0)

	// cooldown starts full
	e.Update(500*time.Millisecond, target)
	assert.False(t, e.WindingUp())
	e.Update(500*time.Millisecond, target)
	require.True(t, e.WindingUp())

	m.AdvanceTimers(200 * time.Millisecond)
	assert.False(t, e.WindingUp())
	assert.True(t, e.Dashing())
	before := e.Pos.X
	e.Update(100*time.Millisecond, target)
	assert.InDelta(t, before+40, e.Pos.X, 1e-9)

	m.AdvanceTimers(300 * time.Millisecond)
	assert.False(t, e.Dashing())
}

func TestEnemy_DestroyCancelsPendingDash(t *testing.T) {
	m := enemy.NewManager()
	e := m.Spawn(chargerTemplate(), geom.V(0, 0), 40, 10)
	e.Update(time.Second, geom.V(100, 0))
	require.True(t, e.WindingUp())

	require.True(t, m.Remove(e.ID))
	assert.False(t, e.Active)
	assert.Equal(t, 0, e.Timers.Len())
	e.Timers.Advance(time.Second)
	assert.False(t, e.Dashing())
	assert.False(t, m.Remove(e.ID))
}

func TestEnemy_RangedKeepsDistanceAndShoots(t *testing.T) {
	tmpl := &enemy.Template{
		ID: "archer", Name: "Archer", Behavior: enemy.BehaviorRanged,
		MaxHP: 10, Speed: 50, Radius: 8, PreferredRange: 200,
		Abilities: []enemy.Ability{{ID: "arrow", Kind: enemy.AbilityShoot, Cooldown: time.Second, Speed: 150, Damage: 4}},
	}
	m := enemy.NewManager()
	e := m.Spawn(tmpl, geom.V(50, 0), 10, 0)
	e.Update(100*time.Millisecond, geom.V(0, 0))
	assert.Greater(t, e.Pos.X, 50.0, "backs away when too close")

	acts := e.Update(time.Second, geom.V(0, 0))
	require.Len(t, acts, 1)
	assert.Equal(t, enemy.ActionShoot, acts[0].Kind)
	require.Len(t, acts[0].Directions, 1)
	assert.Less(t, acts[0].Directions[0].X, 0.0)
}

func TestEnemy_KnockbackRespectsResistance(t *testing.T) {
	m := enemy.NewManager()
	tmpl := batTemplate()
	tmpl.Speed = 0
	tmpl.KnockbackResist = 1
	e := m.Spawn(tmpl, geom.V(0, 0), 20, 5)
	e.Knockback(geom.V(1, 0), 500)
	e.Update(100*time.Millisecond, geom.V(0, 0))
	assert.Equal(t, geom.V(0, 0), e.Pos)
}

func TestManager_Property_CountMatchesLive(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := enemy.NewManager()
		live := map[uint64]bool{}
		ops := rapid.SliceOfN(rapid.Bool(), 1, 60).Draw(rt, "ops")
		for _, spawn := range ops {
			if spawn || len(live) == 0 {
				e := m.Spawn(batTemplate(), geom.V(0, 0), 20, 5)
				assert.False(rt, live[e.ID], "ids are unique")
				live[e.ID] = true
				continue
			}
			for id := range live {
				assert.True(rt, m.Remove(id))
				delete(live, id)
				break
			}
		}
		assert.Equal(rt, len(live), m.Count())
	})
}
