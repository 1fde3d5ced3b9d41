package spawn

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/survivors/internal/game/dice"
	"github.com/cory-johannsen/survivors/internal/game/enemy"
	"github.com/cory-johannsen/survivors/internal/game/event"
	"github.com/cory-johannsen/survivors/internal/game/geom"
)

// clusterSpread is the radius around a cluster point where its members land.
const clusterSpread = 40.0

// Templates resolves enemy template ids. Implementations fail soft and
// always return a usable template.
type Templates interface {
	Enemy(id string) *enemy.Template
}

// Result lists what one Update did.
type Result struct {
	Spawned     []*enemy.Enemy
	WaveChanged bool
	Boss        *enemy.Enemy
	Rush        bool
}

// Director drives spawning for one run of one stage.
type Director struct {
	stage      *Stage
	templates  Templates
	roller     *dice.Roller
	sink       event.Sink
	logger     *zap.Logger
	wave       int
	elapsed    time.Duration
	acc        time.Duration
	difficulty float64
}

// NewDirector creates a Director before the first segment has started.
//
// Precondition: stage must be valid; templates and roller non-nil. A nil
// sink discards events; a nil logger is replaced with zap.NewNop().
// Postcondition: Wave() == -1; Difficulty() == 1.
func NewDirector(stage *Stage, templates Templates, roller *dice.Roller, sink event.Sink, logger *zap.Logger) *Director {
	if sink == nil {
		sink = event.SinkFunc(func(event.Event) {})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Director{
		stage:      stage,
		templates:  templates,
		roller:     roller,
		sink:       sink,
		logger:     logger,
		wave:       -1,
		difficulty: 1,
	}
}

// Wave returns the index of the last segment entered, or -1.
func (d *Director) Wave() int { return d.wave }

// Elapsed returns the director's run time.
func (d *Director) Elapsed() time.Duration { return d.elapsed }

// Difficulty returns the current multiplier.
func (d *Director) Difficulty() float64 { return d.difficulty }

// HealthBonus returns the current step health bonus.
func (d *Director) HealthBonus() float64 { return HealthBonusAt(d.stage.HealthTiers, d.elapsed) }

// Stage returns the stage being run.
func (d *Director) Stage() *Stage { return d.stage }

// DifficultyAt is 1 + stepBonus*floor(elapsed/stepInterval) plus every
// threshold bonus already reached.
//
// Postcondition: non-decreasing in elapsed for non-negative bonuses.
func DifficultyAt(cfg Difficulty, elapsed time.Duration) float64 {
	m := 1.0
	if cfg.StepInterval > 0 {
		m += cfg.StepBonus * float64(elapsed/cfg.StepInterval)
	}
	for _, th := range cfg.Thresholds {
		if elapsed >= th.After {
			m += th.Bonus
		}
	}
	return m
}

// HealthBonusAt returns the bonus of the latest tier reached, or 1.
func HealthBonusAt(tiers []HealthTier, elapsed time.Duration) float64 {
	bonus := 1.0
	var best time.Duration = -1
	for _, t := range tiers {
		if elapsed >= t.After && t.After > best {
			best, bonus = t.After, t.Bonus
		}
	}
	return bonus
}

// Scale returns a template's health and contact damage for the current
// curve: floor(hp*difficulty*healthBonus), floor(damage*difficulty).
//
// Postcondition: hp >= 1; damage >= 0.
func Scale(tmpl *enemy.Template, difficulty, healthBonus float64) (hp, damage float64) {
	hp = math.Max(1, math.Floor(tmpl.MaxHP*difficulty*healthBonus))
	damage = math.Max(0, math.Floor(tmpl.Damage*difficulty))
	return hp, damage
}

// RingPoint returns a uniform random point on the annulus [min, max]
// around centre.
func RingPoint(src dice.Source, centre geom.Vec2, minR, maxR float64) geom.Vec2 {
	angle := src.Float64() * 2 * math.Pi
	r := dice.Between(src, minR, maxR)
	return centre.Add(geom.FromAngle(angle).Scale(r))
}

// Update advances the director by delta. player is the position spawns are
// placed around; mgr receives new enemies and provides the active count.
func (d *Director) Update(delta time.Duration, player geom.Vec2, mgr *enemy.Manager) Result {
	var res Result
	if delta < 0 {
		delta = 0
	}
	d.elapsed += delta

	if next := DifficultyAt(d.stage.Difficulty, d.elapsed); next > d.difficulty {
		d.difficulty = next
	}

	for d.wave+1 < len(d.stage.Segments) && d.elapsed >= d.stage.Segments[d.wave+1].Start {
		d.wave++
		d.enter(d.stage.Segments[d.wave], player, mgr, &res)
	}

	if d.wave < 0 {
		return res
	}
	seg := d.stage.Segments[d.wave]
	if !seg.Contains(d.elapsed) {
		d.acc = 0
		return res
	}

	threshold := time.Duration(float64(seg.Interval) / d.difficulty)
	d.acc += delta
	if d.acc < threshold {
		return res
	}
	capacity := seg.MaxEnemies - mgr.Count()
	if capacity <= 0 {
		d.acc = threshold
		return res
	}
	d.acc -= threshold
	if d.acc > threshold {
		d.acc = threshold
	}
	count := min(seg.Batch, capacity)
	ids := make([]string, count)
	for i := range ids {
		ids[i] = d.pick(seg)
	}
	res.Spawned = append(res.Spawned, d.place(ids, player, mgr)...)
	return res
}

func (d *Director) enter(seg Segment, player geom.Vec2, mgr *enemy.Manager, res *Result) {
	res.WaveChanged = true
	d.logger.Info("wave changed", zap.String("stage", d.stage.ID), zap.Int("wave", d.wave), zap.Duration("elapsed", d.elapsed))
	d.sink.Publish(event.Event{Kind: event.WaveChanged, At: d.elapsed, Ref: d.stage.ID, Value: float64(d.wave)})

	if seg.Boss != "" {
		boss := d.spawnOne(seg.Boss, RingPoint(d.roller, player, d.stage.SpawnRadiusMin, d.stage.SpawnRadiusMax), mgr)
		res.Boss = boss
		res.Spawned = append(res.Spawned, boss)
		d.sink.Publish(event.Event{Kind: event.BossSpawned, At: d.elapsed, SubjectID: boss.ID, Ref: boss.TemplateID, Pos: boss.Pos})
	}
	if seg.Rush != nil {
		res.Rush = true
		ids := make([]string, seg.Rush.Count)
		for i := range ids {
			ids[i] = seg.Rush.Enemy
		}
		res.Spawned = append(res.Spawned, d.place(ids, player, mgr)...)
		d.sink.Publish(event.Event{Kind: event.RushStarted, At: d.elapsed, Ref: seg.Rush.Enemy, Value: float64(seg.Rush.Count)})
		d.sink.Publish(event.Event{Kind: event.ScreenFlash, At: d.elapsed})
	}
}

// pick draws one enemy id from the segment's roulette.
func (d *Director) pick(seg Segment) string {
	weights := make([]float64, len(seg.Enemies))
	for i, w := range seg.Enemies {
		weights[i] = w.Weight
	}
	idx := d.roller.WeightedIndex(weights)
	if idx < 0 {
		return seg.Enemies[0].Enemy
	}
	return seg.Enemies[idx].Enemy
}

// place spawns ids around player: one ring point each for small batches,
// 2-4 clusters for batches above the stage's cluster threshold.
func (d *Director) place(ids []string, player geom.Vec2, mgr *enemy.Manager) []*enemy.Enemy {
	out := make([]*enemy.Enemy, 0, len(ids))
	threshold := d.stage.ClusterThreshold
	if threshold <= 0 || len(ids) <= threshold {
		for _, id := range ids {
			out = append(out, d.spawnOne(id, RingPoint(d.roller, player, d.stage.SpawnRadiusMin, d.stage.SpawnRadiusMax), mgr))
		}
		return out
	}
	clusters := min(2+d.roller.Intn(3), len(ids))
	centres := make([]geom.Vec2, clusters)
	for i := range centres {
		centres[i] = RingPoint(d.roller, player, d.stage.SpawnRadiusMin, d.stage.SpawnRadiusMax)
	}
	for i, id := range ids {
		pos := RingPoint(d.roller, centres[i%clusters], 0, clusterSpread)
		out = append(out, d.spawnOne(id, pos, mgr))
	}
	return out
}

func (d *Director) spawnOne(id string, pos geom.Vec2, mgr *enemy.Manager) *enemy.Enemy {
	tmpl := d.templates.Enemy(id)
	hp, dmg := Scale(tmpl, d.difficulty, d.HealthBonus())
	return mgr.Spawn(tmpl, pos, hp, dmg)
}

// SpawnAround places count enemies of id around centre outside the normal
// cadence and caps. Used by scripts and boss summons.
func (d *Director) SpawnAround(id string, count int, centre geom.Vec2, mgr *enemy.Manager) []*enemy.Enemy {
	if count < 1 {
		return nil
	}
	ids := make([]string, count)
	for i := range ids {
		ids[i] = id
	}
	return d.place(ids, centre, mgr)
}

// SpawnNear places count enemies of id within a short radius of pos.
func (d *Director) SpawnNear(id string, count int, pos geom.Vec2, mgr *enemy.Manager) []*enemy.Enemy {
	out := make([]*enemy.Enemy, 0, max(count, 0))
	for i := 0; i < count; i++ {
		out = append(out, d.spawnOne(id, RingPoint(d.roller, pos, 0, clusterSpread), mgr))
	}
	return out
}
