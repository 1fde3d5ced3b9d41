package combat_test

import (
	"math"
	"testing"
	"time"

	"github.com/cory-johannsen/survivors/internal/game/combat"
	"github.com/cory-johannsen/survivors/internal/game/dice"
	"github.com/cory-johannsen/survivors/internal/game/enemy"
	"github.com/cory-johannsen/survivors/internal/game/event"
	"github.com/cory-johannsen/survivors/internal/game/geom"
	"github.com/cory-johannsen/survivors/internal/game/player"
	"github.com/cory-johannsen/survivors/internal/game/stats"
	"github.com/cory-johannsen/survivors/internal/game/weapon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type fixture struct {
	rec      *event.Recorder
	resolver *combat.Resolver
	world    *combat.World
	enemies  *enemy.Manager
	player   *player.Player
}

func newFixture() *fixture {
	rec := &event.Recorder{}
	p := player.New(stats.Default(), player.DefaultConfig())
	p.Pos = geom.V(-1000, -1000)
	return &fixture{
		rec:      rec,
		resolver: combat.NewResolver(dice.NewLoggedRoller(dice.NewSeededSource(1), nil), rec, nil),
		world:    combat.NewWorld(),
		enemies:  enemy.NewManager(),
		player:   p,
	}
}

func dummy() *enemy.Template {
	return &enemy.Template{ID: "dummy", Name: "Dummy", Behavior: enemy.BehaviorChase, MaxHP: 20, Damage: 5, Radius: 10, Experience: 3}
}

func bullet(pos geom.Vec2, dmg, piercing int) weapon.Spec {
	return weapon.Spec{
		WeaponID: "wand", Motion: weapon.MotionLinear, Pos: pos, Radius: 4,
		Damage: dmg, Piercing: piercing, Lifetime: time.Second, Knockback: 50,
	}
}

func (f *fixture) resolve() combat.Outcome {
	return f.resolver.Resolve(0, f.world, f.enemies, f.player)
}

func TestGrid_QueryFindsOverlapsAcrossCells(t *testing.T) {
	g := combat.NewGrid(10)
	g.Insert(combat.Body{Index: 0, Pos: geom.V(0, 0), Radius: 2})
	g.Insert(combat.Body{Index: 1, Pos: geom.V(20, 0), Radius: 12})
	g.Insert(combat.Body{Index: 2, Pos: geom.V(100, 100), Radius: 1})

	assert.Equal(t, []int{0, 1}, g.Query(geom.V(5, 0), 4))
	assert.Empty(t, g.Query(geom.V(60, 60), 1))
	g.Reset()
	assert.Empty(t, g.Query(geom.V(0, 0), 5))
}

func TestGrid_BucketsFollowMovingWorkload(t *testing.T) {
	const bodies = 150
	g := combat.NewGrid(64)
	center := geom.V(0, 0)
	step := geom.V(120.0/60, 0)
	for tick := 0; tick < 3600; tick++ {
		g.Reset()
		center = center.Add(step)
		for i := 0; i < bodies; i++ {
			angle := float64(i) / bodies * 2 * math.Pi
			g.Insert(combat.Body{Index: i, Pos: center.Add(geom.FromAngle(angle).Scale(500)), Radius: 8})
		}
		require.LessOrEqual(t, g.Buckets(), bodies, "tick %d", tick)
	}
	g.Reset()
	assert.Zero(t, g.Buckets())
}

func TestResolve_TwoHitsKillTwentyHPEnemyOnce(t *testing.T) {
	f := newFixture()
	e := f.enemies.Spawn(dummy(), geom.V(0, 0), 20, 5)

	f.world.SpawnProjectile(bullet(geom.V(0, 0), 12, 0))
	out := f.resolve()
	assert.Empty(t, out.Kills)
	assert.Equal(t, 8.0, e.Health)
	assert.Equal(t, 0, f.rec.Count(event.EnemyKilled))

	f.world.SpawnProjectile(bullet(e.Pos, 12, 0))
	out = f.resolve()
	require.Len(t, out.Kills, 1)
	assert.False(t, e.Active)
	assert.Equal(t, 0, f.enemies.Count())
	assert.Equal(t, 1, f.rec.Count(event.EnemyKilled))

	f.resolve()
	assert.Equal(t, 1, f.rec.Count(event.EnemyKilled))

	var gems int
	for _, p := range f.world.Pickups {
		if p.Kind == combat.PickupExperience {
			gems++
			assert.Equal(t, 3.0, p.Value)
		}
	}
	assert.Equal(t, 1, gems)
}

func TestResolve_HitSetPreventsRehitAcrossTicks(t *testing.T) {
	f := newFixture()
	e := f.enemies.Spawn(dummy(), geom.V(0, 0), 100, 5)
	pr := f.world.SpawnProjectile(bullet(geom.V(0, 0), 10, 5))
	for i := 0; i < 5; i++ {
		f.resolve()
	}
	assert.Equal(t, 90.0, e.Health)
	assert.Equal(t, 4, pr.Piercing, "only the first tick spent a charge")
	assert.True(t, pr.Active)
}

func TestResolve_KnockbackOnlyOnSurvive(t *testing.T) {
	f := newFixture()
	tmpl := dummy()
	tmpl.Speed = 0
	survivor := f.enemies.Spawn(tmpl, geom.V(2, 0), 100, 5)
	f.world.SpawnProjectile(bullet(geom.V(0, 0), 10, 0))
	f.resolve()
	survivor.Update(100*time.Millisecond, survivor.Pos)
	assert.Greater(t, survivor.Pos.X, 2.0)
}

func TestResolve_ContactDamageGatedByInvincibility(t *testing.T) {
	f := newFixture()
	f.player.Pos = geom.V(0, 0)
	f.enemies.Spawn(dummy(), geom.V(5, 0), 20, 7)
	f.enemies.Spawn(dummy(), geom.V(-5, 0), 20, 7)

	f.resolve()
	assert.Equal(t, 93.0, f.player.Stats.CurrentHealth, "second enemy blocked by the window")
	f.resolve()
	assert.Equal(t, 93.0, f.player.Stats.CurrentHealth)
	f.player.Update(player.DefaultConfig().Invincibility)
	f.resolve()
	assert.Equal(t, 86.0, f.player.Stats.CurrentHealth)
}

func TestResolve_HostileShotDestroyedAndMitigated(t *testing.T) {
	f := newFixture()
	f.player.Pos = geom.V(0, 0)
	f.player.Stats.Armor = 50
	h := f.world.SpawnHostile(geom.V(0, 0), geom.V(1, 0), 100, 10)
	f.resolve()
	assert.False(t, h.Active)
	assert.Equal(t, 99.0, f.player.Stats.CurrentHealth)
}

func TestResolve_PlayerDeathRevivesThenEndsRun(t *testing.T) {
	f := newFixture()
	f.player.Pos = geom.V(0, 0)
	f.player.Base.Revives = 1
	f.player.Recompute()
	f.enemies.Spawn(dummy(), geom.V(0, 0), 20, 500)

	out := f.resolve()
	assert.True(t, out.Revived)
	assert.False(t, out.PlayerDied)
	assert.Equal(t, 50.0, f.player.Stats.CurrentHealth)
	assert.Equal(t, 1, f.rec.Count(event.PlayerRevived))

	f.player.Invincible = 0
	out = f.resolve()
	assert.True(t, out.PlayerDied)
	assert.Equal(t, 1, f.rec.Count(event.PlayerDied))
}

func TestResolve_CollectsPickups(t *testing.T) {
	f := newFixture()
	f.player.Pos = geom.V(0, 0)
	f.player.Stats.CurrentHealth = 50
	f.world.Drop(combat.PickupExperience, geom.V(1, 0), 4)
	f.world.Drop(combat.PickupHeal, geom.V(0, 1), 30)
	f.world.Drop(combat.PickupCurrency, geom.V(0, 0), 3)
	f.world.Drop(combat.PickupChest, geom.V(0, 0), 1)
	far := f.world.Drop(combat.PickupExperience, geom.V(500, 0), 9)
	f.world.Drop(combat.PickupMagnet, geom.V(0, 0), 1)

	out := f.resolve()
	assert.Equal(t, 4.0, out.Experience)
	assert.Equal(t, 30.0, out.Healed)
	assert.Equal(t, 3, out.Currency)
	assert.Equal(t, 1, out.Chests)
	assert.True(t, far.Attracted, "magnet pulls every gem")
	assert.Equal(t, 5, f.rec.Count(event.PickupCollected))

	f.world.UpdatePickups(10*time.Second, f.player.Pos, f.player.Stats.PickupRadius)
	out = f.resolve()
	assert.Equal(t, 9.0, out.Experience)

	f.world.Compact()
	assert.Empty(t, f.world.Pickups)
}

func TestPickup_DriftsOnlyInsideRadius(t *testing.T) {
	w := combat.NewWorld()
	near := w.Drop(combat.PickupExperience, geom.V(30, 0), 1)
	far := w.Drop(combat.PickupExperience, geom.V(300, 0), 1)
	w.UpdatePickups(50*time.Millisecond, geom.V(0, 0), 40)
	assert.Less(t, near.Pos.X, 30.0)
	assert.Equal(t, 300.0, far.Pos.X)
}

func TestProjectile_LifetimeAndField(t *testing.T) {
	w := combat.NewWorld()
	short := w.SpawnProjectile(bullet(geom.V(0, 0), 1, 0))
	spec := bullet(geom.V(0, 0), 1, 0)
	spec.Vel = geom.V(1000, 0)
	spec.Lifetime = time.Minute
	runaway := w.SpawnProjectile(spec)
	field := geom.RectAround(geom.V(0, 0), 200, 200)

	w.UpdateProjectiles(500*time.Millisecond, geom.V(0, 0), field)
	assert.True(t, short.Active)
	assert.False(t, runaway.Active)
	w.UpdateProjectiles(500*time.Millisecond, geom.V(0, 0), field)
	assert.False(t, short.Active)
	w.Compact()
	assert.Empty(t, w.Projectiles)
}

func TestProjectile_HitIntervalRearmsUnlimited(t *testing.T) {
	f := newFixture()
	e := f.enemies.Spawn(dummy(), geom.V(0, 0), 100, 5)
	spec := bullet(geom.V(0, 0), 10, 0)
	spec.Unlimited = true
	spec.HitInterval = 200 * time.Millisecond
	spec.Knockback = 0
	f.world.SpawnProjectile(spec)

	f.resolve()
	f.resolve()
	assert.Equal(t, 90.0, e.Health)
	f.world.AdvanceTimers(200 * time.Millisecond)
	f.resolve()
	assert.Equal(t, 80.0, e.Health)
}

func TestDespawnFar_SkipsBossesAndGivesNoRewards(t *testing.T) {
	f := newFixture()
	boss := dummy()
	boss.Behavior = enemy.BehaviorBoss
	f.enemies.Spawn(dummy(), geom.V(5000, 0), 20, 5)
	f.enemies.Spawn(boss, geom.V(5000, 0), 20, 5)
	f.enemies.Spawn(dummy(), geom.V(10, 0), 20, 5)

	assert.Equal(t, 1, combat.DespawnFar(f.enemies, geom.V(0, 0), 1000))
	assert.Equal(t, 2, f.enemies.Count())
	assert.Empty(t, f.world.Pickups)
	assert.Equal(t, 0, f.rec.Count(event.EnemyKilled))
}

func TestResolve_Property_PiercingBound(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture()
		k := rapid.IntRange(0, 6).Draw(rt, "piercing")
		n := rapid.IntRange(1, 12).Draw(rt, "enemies")
		for i := 0; i < n; i++ {
			f.enemies.Spawn(dummy(), geom.V(float64(i), 0), 1000, 5)
		}
		spec := bullet(geom.V(0, 0), 5, k)
		spec.Radius = 50
		pr := f.world.SpawnProjectile(spec)
		ticks := rapid.IntRange(1, 5).Draw(rt, "ticks")
		for i := 0; i < ticks; i++ {
			f.resolve()
		}
		assert.LessOrEqual(rt, pr.Struck, k+1)
		assert.Equal(rt, min(n, k+1), pr.Struck)
		assert.Equal(rt, len(pr.Hits), pr.Struck, "hit-set holds each enemy once")
		if n > k {
			assert.False(rt, pr.Active)
		}
	})
}
