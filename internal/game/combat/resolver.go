package combat

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/survivors/internal/game/dice"
	"github.com/cory-johannsen/survivors/internal/game/enemy"
	"github.com/cory-johannsen/survivors/internal/game/event"
	"github.com/cory-johannsen/survivors/internal/game/geom"
	"github.com/cory-johannsen/survivors/internal/game/player"
)

// PairKind names the two actor categories of an overlapping pair.
type PairKind int

const (
	ProjectileEnemy PairKind = iota
	PlayerEnemy
	HostilePlayer
	PlayerPickup
)

// Pair is one overlap found by the broad-phase. A and B index the slices
// the broad-phase was run over: projectiles/enemies, -/enemies,
// hostile/-, -/pickups.
type Pair struct {
	Kind PairKind
	A, B int
}

// Kill records one enemy death.
type Kill struct {
	EnemyID    uint64
	TemplateID string
	Pos        geom.Vec2
	Boss       bool
	Experience float64
}

// Outcome summarises everything one Resolve call changed.
type Outcome struct {
	Kills []Kill
	// Experience is the raw experience collected, before the player's
	// experience multiplier.
	Experience float64
	Currency   int
	Healed     float64
	Chests     int
	Revived    bool
	// PlayerDied is set when the player died with no revive left.
	PlayerDied bool
}

// dropScatter offsets secondary drops from the experience gem.
const dropScatter = 8.0

// Resolver applies the outcome of every overlap in a tick.
type Resolver struct {
	grid   *Grid
	roller *dice.Roller
	sink   event.Sink
	logger *zap.Logger
}

// NewResolver creates a Resolver.
//
// Precondition: roller must be non-nil. A nil sink discards events; a nil
// logger is replaced with zap.NewNop().
func NewResolver(roller *dice.Roller, sink event.Sink, logger *zap.Logger) *Resolver {
	if sink == nil {
		sink = event.SinkFunc(func(event.Event) {})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{grid: NewGrid(64), roller: roller, sink: sink, logger: logger}
}

// BroadPhase returns every overlapping pair, grouped by kind in resolution
// order and, within a kind, ordered by index.
func (r *Resolver) BroadPhase(w *World, enemies []*enemy.Enemy, p *player.Player) []Pair {
	r.grid.Reset()
	for i, e := range enemies {
		if e.Active {
			r.grid.Insert(Body{Index: i, Pos: e.Pos, Radius: e.Radius})
		}
	}
	var pairs []Pair
	for i, pr := range w.Projectiles {
		if !pr.Active {
			continue
		}
		for _, j := range r.grid.Query(pr.Pos, pr.Radius) {
			pairs = append(pairs, Pair{Kind: ProjectileEnemy, A: i, B: j})
		}
	}
	for _, j := range r.grid.Query(p.Pos, p.Radius) {
		pairs = append(pairs, Pair{Kind: PlayerEnemy, A: -1, B: j})
	}
	for i, h := range w.Hostile {
		if h.Active && geom.CirclesOverlap(h.Pos, h.Radius, p.Pos, p.Radius) {
			pairs = append(pairs, Pair{Kind: HostilePlayer, A: i, B: -1})
		}
	}
	for i, pk := range w.Pickups {
		if pk.Active && geom.CirclesOverlap(pk.Pos, pickupRadius, p.Pos, p.Radius) {
			pairs = append(pairs, Pair{Kind: PlayerPickup, A: -1, B: i})
		}
	}
	return pairs
}

// Resolve runs the broad-phase and applies every pair. now stamps emitted
// events.
//
// Postcondition: dead enemies are removed from enemies and their timers
// cancelled; inactive projectiles and pickups remain in w until Compact.
func (r *Resolver) Resolve(now time.Duration, w *World, enemies *enemy.Manager, p *player.Player) Outcome {
	var out Outcome
	list := enemies.All()
	for _, pair := range r.BroadPhase(w, list, p) {
		switch pair.Kind {
		case ProjectileEnemy:
			r.projectileHit(now, w.Projectiles[pair.A], list[pair.B], w, enemies, p, &out)
		case PlayerEnemy:
			r.contact(now, list[pair.B], p, &out)
		case HostilePlayer:
			r.hostileHit(now, w.Hostile[pair.A], p, &out)
		case PlayerPickup:
			r.collect(now, w.Pickups[pair.B], w, p, &out)
		}
		if out.PlayerDied {
			break
		}
	}
	return out
}

func (r *Resolver) projectileHit(now time.Duration, pr *Projectile, e *enemy.Enemy, w *World, enemies *enemy.Manager, p *player.Player, out *Outcome) {
	if !pr.Active || !e.Active {
		return
	}
	if !pr.Hit(e.ID) {
		return
	}
	_, died := e.ApplyDamage(pr.Damage)
	pr.Spend()
	if died {
		r.kill(now, e, w, enemies, p.Stats.Luck, out)
		return
	}
	if pr.Knockback > 0 {
		dir := e.Pos.Sub(pr.Pos)
		if dir.IsZero() {
			dir = pr.Vel
		}
		e.Knockback(dir, pr.Knockback)
	}
}

func (r *Resolver) kill(now time.Duration, e *enemy.Enemy, w *World, enemies *enemy.Manager, luck float64, out *Outcome) {
	r.sink.Publish(event.Event{
		Kind: event.EnemyKilled, At: now, SubjectID: e.ID, Ref: e.TemplateID, Pos: e.Pos, Value: e.Experience,
	})
	out.Kills = append(out.Kills, Kill{
		EnemyID: e.ID, TemplateID: e.TemplateID, Pos: e.Pos, Boss: e.IsBoss(), Experience: e.Experience,
	})
	if e.Experience > 0 {
		w.Drop(PickupExperience, e.Pos, e.Experience)
	}
	loot := enemy.GenerateLoot(e.Loot, r.roller, luck)
	if loot.Heal > 0 {
		w.Drop(PickupHeal, e.Pos.Add(geom.V(dropScatter, 0)), loot.Heal)
	}
	if loot.Currency > 0 {
		w.Drop(PickupCurrency, e.Pos.Add(geom.V(-dropScatter, 0)), float64(loot.Currency))
	}
	if loot.Chest {
		w.Drop(PickupChest, e.Pos.Add(geom.V(0, dropScatter)), 1)
	}
	enemies.Remove(e.ID)
}

func (r *Resolver) contact(now time.Duration, e *enemy.Enemy, p *player.Player, out *Outcome) {
	if !e.Active || e.Damage <= 0 {
		return
	}
	if _, died := p.TakeDamage(e.Damage); died {
		r.playerDown(now, p, out)
	}
}

func (r *Resolver) hostileHit(now time.Duration, h *Projectile, p *player.Player, out *Outcome) {
	if !h.Active {
		return
	}
	h.Destroy()
	if _, died := p.TakeDamage(h.Damage); died {
		r.playerDown(now, p, out)
	}
}

func (r *Resolver) playerDown(now time.Duration, p *player.Player, out *Outcome) {
	if p.TryRevive() {
		out.Revived = true
		r.logger.Info("player revived", zap.Float64("revives_left", p.Stats.Revives))
		r.sink.Publish(event.Event{Kind: event.PlayerRevived, At: now, Pos: p.Pos, Value: p.Stats.Revives})
		return
	}
	out.PlayerDied = true
	r.sink.Publish(event.Event{Kind: event.PlayerDied, At: now, Pos: p.Pos})
}

func (r *Resolver) collect(now time.Duration, pk *Pickup, w *World, p *player.Player, out *Outcome) {
	if !pk.Active {
		return
	}
	pk.Active = false
	switch pk.Kind {
	case PickupExperience:
		out.Experience += pk.Value
	case PickupHeal:
		out.Healed += p.Heal(pk.Value)
	case PickupCurrency:
		out.Currency += int(pk.Value)
	case PickupMagnet:
		w.Attract(PickupExperience)
	case PickupChest:
		out.Chests++
	}
	r.sink.Publish(event.Event{
		Kind: event.PickupCollected, At: now, SubjectID: pk.ID, Ref: string(pk.Kind), Pos: pk.Pos, Value: pk.Value,
	})
}
