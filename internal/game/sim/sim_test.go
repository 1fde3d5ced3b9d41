package sim_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/survivors/internal/game/content"
	"github.com/cory-johannsen/survivors/internal/game/dice"
	"github.com/cory-johannsen/survivors/internal/game/event"
	"github.com/cory-johannsen/survivors/internal/game/geom"
	"github.com/cory-johannsen/survivors/internal/game/meta"
	"github.com/cory-johannsen/survivors/internal/game/sim"
)

const tick = time.Second / 60

func loadContent(t *testing.T) *content.Catalog {
	t.Helper()
	c, err := content.Load("../../../content", zap.NewNop())
	require.NoError(t, err)
	return c
}

func newSim(t *testing.T, seed uint64, ms *meta.State, sinks ...event.Sink) *sim.Simulation {
	t.Helper()
	return sim.New(sim.DefaultConfig(), sim.Deps{
		Content: loadContent(t),
		Source:  dice.NewSeededSource(seed),
		Meta:    ms,
		Logger:  zap.NewNop(),
	}, sinks...)
}

func TestStartRun_BuildsCharacter(t *testing.T) {
	s := newSim(t, 1, nil)
	assert.Equal(t, sim.StateIdle, s.State())
	require.NoError(t, s.StartRun("antonio", "mad_forest"))

	assert.Equal(t, sim.StateRunning, s.State())
	assert.Zero(t, s.Elapsed())
	p := s.Player()
	require.NotNil(t, p)
	require.Len(t, p.Weapons, 1)
	assert.Equal(t, "whip", p.Weapons[0].ID())
	assert.Equal(t, 120.0, p.Stats.MaxHealth)
	assert.Equal(t, p.Stats.MaxHealth, p.Stats.CurrentHealth)
	assert.Equal(t, 1, s.Progression().Tracker.Level)
}

func TestStartRun_UnknownIDsFallBack(t *testing.T) {
	s := newSim(t, 1, nil)
	require.NoError(t, s.StartRun("nobody", "nowhere"))
	assert.Equal(t, sim.StateRunning, s.State())
	assert.Equal(t, "nowhere", s.Director().Stage().ID)
}

func TestStartRun_AppliesMetaUpgrades(t *testing.T) {
	c := loadContent(t)
	up := c.Shop().All()[0]
	ms := meta.DefaultState()
	ms.Upgrades[up.ID] = 1

	plain := newSim(t, 1, nil)
	require.NoError(t, plain.StartRun("antonio", "mad_forest"))
	boosted := newSim(t, 1, &ms)
	require.NoError(t, boosted.StartRun("antonio", "mad_forest"))

	a, _ := plain.Player().Stats.Get(up.Stat)
	b, _ := boosted.Player().Stats.Get(up.Stat)
	assert.NotEqual(t, a, b, "upgrade %s should change %s", up.ID, up.Stat)
}

func TestUpdate_IdleAndPausedDoNotAdvance(t *testing.T) {
	s := newSim(t, 1, nil)
	s.Update(tick)
	assert.Zero(t, s.Elapsed())

	require.NoError(t, s.StartRun("antonio", "mad_forest"))
	s.Update(tick)
	assert.Equal(t, tick, s.Elapsed())

	assert.Equal(t, sim.StatePaused, s.TogglePause())
	s.Update(time.Second)
	assert.Equal(t, tick, s.Elapsed())
	assert.Equal(t, sim.StateRunning, s.TogglePause())
}

func TestUpdate_ClampsLongTicks(t *testing.T) {
	s := newSim(t, 1, nil)
	require.NoError(t, s.StartRun("antonio", "mad_forest"))
	s.Update(10 * time.Second)
	assert.Equal(t, sim.DefaultConfig().MaxDelta, s.Elapsed())
}

func TestUpdate_MovesPlayer(t *testing.T) {
	s := newSim(t, 1, nil)
	require.NoError(t, s.StartRun("antonio", "mad_forest"))
	require.NoError(t, s.SetMovement(geom.V(1, 0)))
	for i := 0; i < 60; i++ {
		s.Update(tick)
	}
	assert.Greater(t, s.Player().Pos.X, 0.0)
	assert.InDelta(t, 0, s.Player().Pos.Y, 1e-9)
}

func TestSetMovement_NoRun(t *testing.T) {
	s := newSim(t, 1, nil)
	assert.ErrorIs(t, s.SetMovement(geom.V(1, 0)), sim.ErrNoRun)
}

func TestLevelUp_OpensChoiceAndFreezesTime(t *testing.T) {
	rec := &event.Recorder{}
	s := newSim(t, 3, nil, rec)
	require.NoError(t, s.StartRun("antonio", "mad_forest"))

	s.Progression().GainExperience(0, 100)
	s.Update(tick)
	require.Equal(t, sim.StateAwaitingChoice, s.State())
	require.NotEmpty(t, s.Choices())
	assert.Equal(t, 1, rec.Count(event.UpgradeOffered))

	frozen := s.Elapsed()
	s.Update(time.Second)
	assert.Equal(t, frozen, s.Elapsed())
	assert.Equal(t, sim.StateAwaitingChoice, s.TogglePause(), "pause is ignored during a choice")

	assert.ErrorIs(t, s.SubmitChoice(len(s.Choices())), sim.ErrBadChoice)
	assert.ErrorIs(t, s.SubmitChoice(-1), sim.ErrBadChoice)

	// 100 experience pays for thresholds 20, 22, 24 and 26.
	answered := 0
	for s.State() == sim.StateAwaitingChoice {
		require.NoError(t, s.SubmitChoice(0))
		answered++
		require.LessOrEqual(t, answered, 4)
	}
	assert.Equal(t, 4, answered)
	assert.Equal(t, sim.StateRunning, s.State())
	assert.Equal(t, 4, rec.Count(event.UpgradeOffered))
	assert.ErrorIs(t, s.SubmitChoice(0), sim.ErrNoChoice)
}

func TestQueueSpawn_AppliedNextTick(t *testing.T) {
	s := newSim(t, 1, nil)
	require.NoError(t, s.StartRun("antonio", "mad_forest"))
	before := s.Enemies().Count()
	s.QueueSpawn("bat", 5)
	assert.Equal(t, before, s.Enemies().Count())
	s.Update(tick)
	assert.GreaterOrEqual(t, s.Enemies().Count(), before+5)
}

func TestQueueHeal_AppliedNextTick(t *testing.T) {
	s := newSim(t, 1, nil)
	require.NoError(t, s.StartRun("antonio", "mad_forest"))
	p := s.Player()
	p.Stats.CurrentHealth = 10
	s.QueueHeal(25)
	s.Update(tick)
	assert.GreaterOrEqual(t, p.Stats.CurrentHealth, 35.0)
}

func TestSnapshot_IsDetachedAndEncodes(t *testing.T) {
	s := newSim(t, 9, nil)
	assert.Equal(t, sim.StateIdle, s.Snapshot().State)

	require.NoError(t, s.StartRun("antonio", "mad_forest"))
	for i := 0; i < 300; i++ {
		s.Update(tick)
	}
	snap := s.Snapshot()
	require.NotNil(t, snap.Player)
	assert.Equal(t, "mad_forest", snap.Stage)
	assert.Len(t, snap.Player.Weapons, len(s.Player().Weapons))

	snap.Player.Weapons[0].Level = 99
	assert.NotEqual(t, 99, s.Player().Weapons[0].Level)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"running"`)
}

func TestSimulation_DeterministicForSeed(t *testing.T) {
	run := func() sim.Snapshot {
		s := newSim(t, 42, nil)
		require.NoError(t, s.StartRun("imelda", "mad_forest"))
		ap := sim.NewAutopilot()
		for i := 0; i < 1200; i++ {
			require.NoError(t, ap.Steer(s))
			s.Update(tick)
		}
		return s.Snapshot()
	}
	assert.Equal(t, run(), run())
}

func TestAutopilot_RunEndsAndIsRecorded(t *testing.T) {
	if testing.Short() {
		t.Skip("plays a full stage")
	}
	rec := &event.Recorder{}
	ms := meta.DefaultState()
	s := newSim(t, 5, &ms, rec)
	require.NoError(t, s.StartRun("antonio", "inlaid_library"))

	ap := sim.NewAutopilot()
	for i := 0; i < 20000 && s.State() != sim.StateEnded; i++ {
		require.NoError(t, ap.Steer(s))
		s.Update(100 * time.Millisecond)
	}
	require.Equal(t, sim.StateEnded, s.State())

	res, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, "inlaid_library", res.Stage)
	assert.LessOrEqual(t, res.Survived, 15*time.Minute)
	assert.Equal(t, res.Completed, res.Survived >= 15*time.Minute)
	assert.Equal(t, 1, rec.Count(event.RunEnded))

	assert.Equal(t, 1, ms.GamesPlayed)
	assert.Equal(t, res.Kills, ms.TotalKills)
	assert.Equal(t, res.Currency, ms.Currency)
	assert.Equal(t, res.Survived, ms.BestSurvival)

	s.Update(tick)
	assert.Equal(t, res.Survived, s.Elapsed(), "an ended run stays frozen")
}
