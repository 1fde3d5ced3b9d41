package sim

import (
	"time"

	"github.com/cory-johannsen/survivors/internal/game/geom"
)

// ItemView is an owned weapon or passive.
type ItemView struct {
	ID    string `json:"id"`
	Level int    `json:"level"`
}

// PlayerView is the player's observable state.
type PlayerView struct {
	Pos       geom.Vec2  `json:"pos"`
	Facing    geom.Vec2  `json:"facing"`
	Health    float64    `json:"health"`
	MaxHealth float64    `json:"max_health"`
	Level     int        `json:"level"`
	Exp       float64    `json:"exp"`
	ToNext    float64    `json:"to_next"`
	Weapons   []ItemView `json:"weapons"`
	Passives  []ItemView `json:"passives"`
}

// EnemyView is one live enemy.
type EnemyView struct {
	ID       uint64    `json:"id"`
	Template string    `json:"template"`
	Pos      geom.Vec2 `json:"pos"`
	Health   float64   `json:"health"`
	Boss     bool      `json:"boss,omitempty"`
}

// ProjectileView is one live projectile.
type ProjectileView struct {
	ID      uint64    `json:"id"`
	Weapon  string    `json:"weapon,omitempty"`
	Pos     geom.Vec2 `json:"pos"`
	Radius  float64   `json:"radius"`
	Hostile bool      `json:"hostile,omitempty"`
}

// PickupView is one item on the ground.
type PickupView struct {
	ID   uint64    `json:"id"`
	Kind string    `json:"kind"`
	Pos  geom.Vec2 `json:"pos"`
}

// ChoiceView is one option of an open upgrade offer.
type ChoiceView struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Ref   string `json:"ref,omitempty"`
	Level int    `json:"level,omitempty"`
}

// Snapshot is a read-only copy of the run for renderers and remote viewers.
type Snapshot struct {
	State       State            `json:"state"`
	Stage       string           `json:"stage,omitempty"`
	Elapsed     time.Duration    `json:"elapsed"`
	Wave        int              `json:"wave"`
	Difficulty  float64          `json:"difficulty"`
	Kills       int              `json:"kills"`
	Currency    int              `json:"currency"`
	Player      *PlayerView      `json:"player,omitempty"`
	Enemies     []EnemyView      `json:"enemies"`
	Projectiles []ProjectileView `json:"projectiles"`
	Pickups     []PickupView     `json:"pickups"`
	Choices     []ChoiceView     `json:"choices,omitempty"`
}

// Snapshot copies the current state. It never aliases simulation memory.
func (s *Simulation) Snapshot() Snapshot {
	snap := Snapshot{
		State:    s.state,
		Elapsed:  s.elapsed,
		Kills:    s.kills,
		Currency: s.currency,
	}
	if s.player == nil {
		return snap
	}
	snap.Stage = s.director.Stage().ID
	snap.Wave = s.director.Wave()
	snap.Difficulty = s.director.Difficulty()

	p := s.player
	pv := &PlayerView{
		Pos:       p.Pos,
		Facing:    p.Facing,
		Health:    p.Stats.CurrentHealth,
		MaxHealth: p.Stats.MaxHealth,
		Level:     s.prog.Tracker.Level,
		Exp:       s.prog.Tracker.Exp,
		ToNext:    s.prog.Tracker.ToNext,
	}
	for _, w := range p.Weapons {
		pv.Weapons = append(pv.Weapons, ItemView{ID: w.ID(), Level: w.Level})
	}
	for _, ps := range p.Passives {
		pv.Passives = append(pv.Passives, ItemView{ID: ps.Def.ID, Level: ps.Level})
	}
	snap.Player = pv

	for _, e := range s.enemies.All() {
		if !e.Active {
			continue
		}
		snap.Enemies = append(snap.Enemies, EnemyView{
			ID: e.ID, Template: e.TemplateID, Pos: e.Pos, Health: e.Health, Boss: e.IsBoss(),
		})
	}
	for _, pr := range s.world.Projectiles {
		if pr.Active {
			snap.Projectiles = append(snap.Projectiles, ProjectileView{ID: pr.ID, Weapon: pr.WeaponID, Pos: pr.Pos, Radius: pr.Radius})
		}
	}
	for _, pr := range s.world.Hostile {
		if pr.Active {
			snap.Projectiles = append(snap.Projectiles, ProjectileView{ID: pr.ID, Pos: pr.Pos, Radius: pr.Radius, Hostile: true})
		}
	}
	for _, pk := range s.world.Pickups {
		if pk.Active {
			snap.Pickups = append(snap.Pickups, PickupView{ID: pk.ID, Kind: string(pk.Kind), Pos: pk.Pos})
		}
	}
	for _, c := range s.choices {
		snap.Choices = append(snap.Choices, ChoiceView{ID: c.ID, Kind: string(c.Kind), Ref: c.Ref, Level: c.Level})
	}
	return snap
}
