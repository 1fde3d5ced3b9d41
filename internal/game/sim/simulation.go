// Package sim runs one survivors run: it owns every actor and advances the
// subsystems in a fixed phase order once per tick.
package sim

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/survivors/internal/game/character"
	"github.com/cory-johannsen/survivors/internal/game/combat"
	"github.com/cory-johannsen/survivors/internal/game/content"
	"github.com/cory-johannsen/survivors/internal/game/dice"
	"github.com/cory-johannsen/survivors/internal/game/enemy"
	"github.com/cory-johannsen/survivors/internal/game/event"
	"github.com/cory-johannsen/survivors/internal/game/geom"
	"github.com/cory-johannsen/survivors/internal/game/meta"
	"github.com/cory-johannsen/survivors/internal/game/player"
	"github.com/cory-johannsen/survivors/internal/game/progression"
	"github.com/cory-johannsen/survivors/internal/game/spawn"
	"github.com/cory-johannsen/survivors/internal/game/weapon"
)

var (
	// ErrNoRun is returned by commands that need a run in progress.
	ErrNoRun = errors.New("sim: no run in progress")
	// ErrNoChoice is returned by SubmitChoice when no offer is open.
	ErrNoChoice = errors.New("sim: no upgrade choice pending")
	// ErrBadChoice is returned for an index outside the open offer.
	ErrBadChoice = errors.New("sim: choice index out of range")
)

// State is the run's lifecycle state.
type State string

const (
	StateIdle           State = "idle"
	StateRunning        State = "running"
	StatePaused         State = "paused"
	StateAwaitingChoice State = "awaiting_choice"
	StateEnded          State = "ended"
)

// Config tunes the simulation independently of content. The server builds
// it from config.SimulationConfig; zero values are not filled in here.
type Config struct {
	// ViewWidth and ViewHeight are the visible area around the player; it
	// bounds random_in_view targeting.
	ViewWidth  float64
	ViewHeight float64
	// FieldMargin extends the view into the playfield; projectiles leaving
	// it are destroyed.
	FieldMargin float64
	// MaxDelta clamps a single tick so a stalled host cannot tunnel actors.
	MaxDelta    time.Duration
	Player      player.Config
	Progression progression.Config
}

// DefaultConfig returns a 1280x720 view.
func DefaultConfig() Config {
	return Config{
		ViewWidth:   1280,
		ViewHeight:  720,
		FieldMargin: 200,
		MaxDelta:    100 * time.Millisecond,
		Player:      player.DefaultConfig(),
		Progression: progression.DefaultConfig(),
	}
}

// Deps are the collaborators a Simulation is built with.
type Deps struct {
	Content *content.Catalog
	// Source seeds every random draw; nil uses a fresh seeded source.
	Source dice.Source
	// Meta is the profile's permanent progression, applied at run start and
	// credited at run end. Nil runs without permanent upgrades.
	Meta   *meta.State
	Logger *zap.Logger
}

// Result summarises a finished run.
type Result struct {
	Character string
	Stage     string
	Survived  time.Duration
	// Completed is true when the stage time limit was reached alive.
	Completed bool
	Level     int
	Kills     int
	Currency  int
}

// Simulation is one player's run. It is not safe for concurrent use; the
// host serialises every call.
type Simulation struct {
	cfg     Config
	content *content.Catalog
	roller  *dice.Roller
	meta    *meta.State
	logger  *zap.Logger
	bus     *event.Bus

	state     State
	character string
	elapsed   time.Duration
	player    *player.Player
	enemies   *enemy.Manager
	world     *combat.World
	director  *spawn.Director
	resolver  *combat.Resolver
	prog      *progression.System
	choices   []progression.Option
	queued    []func(*Simulation)
	kills     int
	currency  int
	result    *Result
}

// New creates an idle Simulation. Extra sinks receive every event.
//
// Precondition: deps.Content must be non-nil.
func New(cfg Config, deps Deps, sinks ...event.Sink) *Simulation {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	src := deps.Source
	if src == nil {
		src = dice.NewCryptoSource()
	}
	if cfg.MaxDelta <= 0 {
		cfg.MaxDelta = DefaultConfig().MaxDelta
	}
	return &Simulation{
		cfg:     cfg,
		content: deps.Content,
		roller:  dice.NewLoggedRoller(src, logger),
		meta:    deps.Meta,
		logger:  logger,
		bus:     event.NewBus(sinks...),
		state:   StateIdle,
		enemies: enemy.NewManager(),
		world:   combat.NewWorld(),
	}
}

// Subscribe adds a sink to the event fan-out.
func (s *Simulation) Subscribe(sink event.Sink) { s.bus.Subscribe(sink) }

// State returns the lifecycle state.
func (s *Simulation) State() State { return s.state }

// Elapsed returns the run's gameplay time.
func (s *Simulation) Elapsed() time.Duration { return s.elapsed }

// Player returns the run's player, nil while idle.
func (s *Simulation) Player() *player.Player { return s.player }

// Enemies returns the live enemy manager.
func (s *Simulation) Enemies() *enemy.Manager { return s.enemies }

// World returns the projectiles and pickups.
func (s *Simulation) World() *combat.World { return s.world }

// Progression returns the run's leveling system, nil while idle.
func (s *Simulation) Progression() *progression.System { return s.prog }

// Director returns the run's spawn director, nil while idle.
func (s *Simulation) Director() *spawn.Director { return s.director }

// Choices returns the open upgrade offer.
func (s *Simulation) Choices() []progression.Option {
	return append([]progression.Option(nil), s.choices...)
}

// Result returns the summary of an ended run.
func (s *Simulation) Result() (Result, bool) {
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// StartRun discards any previous run and starts characterID on stageID.
// Unknown ids fall back to default content.
//
// Postcondition: on success State() == StateRunning and Elapsed() == 0.
func (s *Simulation) StartRun(characterID, stageID string) error {
	def := s.content.Character(characterID)
	base := character.BaseProfile(def)
	if s.meta != nil {
		base = s.meta.ApplyToBase(base, s.content.Shop())
	}
	p, err := character.Build(def, s.content, base, s.cfg.Player)
	if err != nil {
		return fmt.Errorf("starting run: %w", err)
	}
	stage := s.content.Stage(stageID)

	s.enemies.Clear()
	s.world.Clear()
	s.player = p
	s.character = def.ID
	s.elapsed = 0
	s.kills = 0
	s.currency = 0
	s.choices = nil
	s.queued = nil
	s.result = nil
	s.director = spawn.NewDirector(stage, s.content, s.roller, s.bus, s.logger)
	s.resolver = combat.NewResolver(s.roller, s.bus, s.logger)
	s.prog = progression.NewSystem(s.cfg.Progression, s.content, s.roller, s.bus, s.logger)
	s.state = StateRunning
	s.logger.Info("run started",
		zap.String("character", def.ID),
		zap.String("stage", stage.ID),
		zap.Duration("time_limit", stage.TimeLimit),
	)
	return nil
}

// SetMovement stores the player's movement input; it is clamped to unit
// length.
func (s *Simulation) SetMovement(v geom.Vec2) error {
	if s.player == nil {
		return ErrNoRun
	}
	s.player.SetMovement(v)
	return nil
}

// TogglePause flips between running and paused. It has no effect while an
// upgrade choice is open or the run is over.
//
// Postcondition: returns the resulting state.
func (s *Simulation) TogglePause() State {
	switch s.state {
	case StateRunning:
		s.state = StatePaused
	case StatePaused:
		s.state = StateRunning
	}
	return s.state
}

// SubmitChoice applies option index of the open offer and resumes the run,
// or opens the next offer when more level-ups are pending.
//
// Postcondition: on error the offer stays open and nothing changed.
func (s *Simulation) SubmitChoice(index int) error {
	if s.state != StateAwaitingChoice {
		return ErrNoChoice
	}
	if index < 0 || index >= len(s.choices) {
		return fmt.Errorf("choice %d of %d: %w", index, len(s.choices), ErrBadChoice)
	}
	opt := s.choices[index]
	eff, err := s.prog.Apply(s.elapsed, s.player, opt)
	if err != nil {
		return fmt.Errorf("applying %s: %w", opt.ID, err)
	}
	s.currency += eff.Currency
	s.prog.Tracker.TakePending()
	s.choices = nil
	s.state = StateRunning
	s.offer()
	return nil
}

// Roller is the run's random source. Stage scripts draw from it.
func (s *Simulation) Roller() *dice.Roller { return s.roller }

// QueueSpawn spawns count enemies of id around the player at the start of
// the next tick.
func (s *Simulation) QueueSpawn(id string, count int) {
	s.queued = append(s.queued, func(s *Simulation) {
		s.director.SpawnAround(id, count, s.player.Pos, s.enemies)
	})
}

// QueueHeal heals the player at the start of the next tick.
func (s *Simulation) QueueHeal(amount float64) {
	s.queued = append(s.queued, func(s *Simulation) {
		s.player.Heal(amount)
	})
}

// Update advances the run by delta. Only a running simulation moves; every
// other state freezes gameplay time.
//
// Phases run to completion in order: timers, director, player, enemies,
// pickups, weapons, projectiles, resolver, despawn, progression.
func (s *Simulation) Update(delta time.Duration) {
	if s.state != StateRunning || delta <= 0 {
		return
	}
	if delta > s.cfg.MaxDelta {
		delta = s.cfg.MaxDelta
	}
	s.drainQueue()

	s.enemies.AdvanceTimers(delta)
	s.world.AdvanceTimers(delta)

	s.elapsed += delta
	s.director.Update(delta, s.player.Pos, s.enemies)

	s.player.Update(delta)

	for _, e := range s.enemies.All() {
		for _, act := range e.Update(delta, s.player.Pos) {
			s.perform(act)
		}
	}

	s.world.UpdatePickups(delta, s.player.Pos, s.player.Stats.PickupRadius)

	s.fireWeapons(delta)

	view := geom.RectAround(s.player.Pos, s.cfg.ViewWidth, s.cfg.ViewHeight)
	s.world.UpdateProjectiles(delta, s.player.Pos, view.Expand(s.cfg.FieldMargin))

	out := s.resolver.Resolve(s.elapsed, s.world, s.enemies, s.player)

	combat.DespawnFar(s.enemies, s.player.Pos, s.director.Stage().DespawnDistance)
	s.world.Compact()

	s.progress(out)
}

func (s *Simulation) drainQueue() {
	ops := s.queued
	s.queued = nil
	for _, op := range ops {
		op(s)
	}
}

func (s *Simulation) perform(act enemy.Action) {
	switch act.Kind {
	case enemy.ActionShoot:
		for _, dir := range act.Directions {
			s.world.SpawnHostile(act.From, dir, act.Speed, act.Damage)
		}
	case enemy.ActionSummon:
		s.director.SpawnNear(act.TemplateID, act.Count, act.From, s.enemies)
	}
}

func (s *Simulation) candidates() []weapon.Candidate {
	all := s.enemies.All()
	out := make([]weapon.Candidate, 0, len(all))
	for _, e := range all {
		if e.Active {
			out = append(out, weapon.Candidate{ID: e.ID, Pos: e.Pos, Health: e.Health})
		}
	}
	return out
}

// fireWeapons fires every weapon whose cooldown crossed zero and that found
// an aim. A ready weapon without an aim stays ready.
func (s *Simulation) fireWeapons(delta time.Duration) {
	p := s.player
	ctx := weapon.Context{
		Origin:     p.Pos,
		Facing:     p.Facing,
		View:       geom.RectAround(p.Pos, s.cfg.ViewWidth, s.cfg.ViewHeight),
		Candidates: s.candidates(),
		Rand:       s.roller,
	}
	for _, w := range p.Weapons {
		if !w.Tick(delta) {
			continue
		}
		eff := w.Effective(p.Stats)
		aim, ok := weapon.Select(w.Def.Targeting, ctx, eff.Range, eff.Projectiles)
		if !ok {
			continue
		}
		shot := w.Fire(p.Stats)
		for _, spec := range weapon.Emit(shot, aim, p.Pos) {
			s.world.SpawnProjectile(spec)
		}
	}
}

// progress banks the tick's outcome, then checks for run end and level-ups.
func (s *Simulation) progress(out combat.Outcome) {
	s.kills += len(out.Kills)
	s.currency += out.Currency
	for range out.Chests {
		res := s.prog.OpenChest(s.elapsed, s.player)
		s.currency += res.Currency
	}
	if out.Experience > 0 {
		s.prog.GainExperience(s.elapsed, out.Experience*s.player.Stats.Experience)
	}

	if out.PlayerDied {
		s.end(false)
		return
	}
	if s.elapsed >= s.director.Stage().TimeLimit {
		s.end(true)
		return
	}
	s.offer()
}

// offer opens an upgrade choice when a level-up is pending.
func (s *Simulation) offer() {
	if s.state != StateRunning || s.prog.Tracker.Pending == 0 {
		return
	}
	s.choices = s.prog.Offer(s.player, s.prog.OfferSize())
	s.state = StateAwaitingChoice
	s.bus.Publish(event.Event{
		Kind:  event.UpgradeOffered,
		At:    s.elapsed,
		Value: float64(len(s.choices)),
	})
}

func (s *Simulation) end(completed bool) {
	s.state = StateEnded
	s.choices = nil
	s.result = &Result{
		Character: s.character,
		Stage:     s.director.Stage().ID,
		Survived:  s.elapsed,
		Completed: completed,
		Level:     s.prog.Tracker.Level,
		Kills:     s.kills,
		Currency:  s.currency,
	}
	if s.meta != nil {
		s.meta.RecordRun(meta.RunResult{Currency: s.currency, Kills: s.kills, Survived: s.elapsed})
	}
	s.logger.Info("run ended",
		zap.Bool("completed", completed),
		zap.Duration("survived", s.elapsed),
		zap.Int("kills", s.kills),
		zap.Int("level", s.prog.Tracker.Level),
	)
	ref := "died"
	if completed {
		ref = "completed"
	}
	s.bus.Publish(event.Event{Kind: event.RunEnded, At: s.elapsed, Ref: ref, Value: float64(s.kills)})
}
