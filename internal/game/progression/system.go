package progression

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/survivors/internal/game/dice"
	"github.com/cory-johannsen/survivors/internal/game/event"
	"github.com/cory-johannsen/survivors/internal/game/passive"
	"github.com/cory-johannsen/survivors/internal/game/player"
	"github.com/cory-johannsen/survivors/internal/game/weapon"
)

var (
	// ErrUnknownOption is returned for an option kind or id that does not
	// resolve.
	ErrUnknownOption = errors.New("progression: unknown option")
	// ErrRecipeConsumed is returned when evolving with an already used recipe.
	ErrRecipeConsumed = errors.New("progression: recipe already consumed")
	// ErrNotReady is returned when a recipe's requirements are not met.
	ErrNotReady = errors.New("progression: evolution requirements not met")
)

// OptionKind is the category of an upgrade option.
type OptionKind string

const (
	NewWeapon      OptionKind = "new_weapon"
	UpgradeWeapon  OptionKind = "upgrade_weapon"
	NewPassive     OptionKind = "new_passive"
	UpgradePassive OptionKind = "upgrade_passive"
	Evolution      OptionKind = "evolution"
	FillerHeal     OptionKind = "heal"
	FillerGold     OptionKind = "gold"
	FillerExp      OptionKind = "experience"
)

// Option is one offered upgrade. ID is unique within an offer.
type Option struct {
	ID   string
	Kind OptionKind
	// Ref is the weapon, passive or recipe id the option acts on.
	Ref string
	// Level is the level the item will have after applying the option.
	Level  int
	Weight float64
}

// Catalog is the content the system draws from. Lookups fail soft.
type Catalog interface {
	Weapons() []*weapon.Definition
	Passives() []*passive.Definition
	Recipes() []Recipe
	Weapon(id string) *weapon.Definition
	Passive(id string) *passive.Definition
}

// Config holds the leveling curve and filler magnitudes.
type Config struct {
	Curve Curve
	// Options is the default offer size.
	Options          int
	FillerHeal       float64
	FillerGold       int
	FillerExperience float64
}

// DefaultConfig returns three options per level.
func DefaultConfig() Config {
	return Config{Curve: DefaultCurve(), Options: 3, FillerHeal: 30, FillerGold: 25, FillerExperience: 10}
}

// Effect reports what applying an option produced beyond loadout changes.
type Effect struct {
	Currency int
	Healed   float64
	// Evolved is the result weapon id of an evolution.
	Evolved string
	Levels  int
}

// System owns one run's leveling and upgrade state.
type System struct {
	Tracker  *Tracker
	cfg      Config
	catalog  Catalog
	roller   *dice.Roller
	sink     event.Sink
	logger   *zap.Logger
	consumed map[string]bool
}

// NewSystem creates a System at level 1.
//
// Precondition: catalog and roller must be non-nil.
func NewSystem(cfg Config, catalog Catalog, roller *dice.Roller, sink event.Sink, logger *zap.Logger) *System {
	if cfg.Options <= 0 {
		cfg.Options = DefaultConfig().Options
	}
	if sink == nil {
		sink = event.SinkFunc(func(event.Event) {})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &System{
		Tracker:  NewTracker(cfg.Curve),
		cfg:      cfg,
		catalog:  catalog,
		roller:   roller,
		sink:     sink,
		logger:   logger,
		consumed: make(map[string]bool),
	}
}

// Consumed reports whether recipe id has fired this run.
func (s *System) Consumed(id string) bool { return s.consumed[id] }

// OfferSize returns the configured number of options per choice.
func (s *System) OfferSize() int { return s.cfg.Options }

// GainExperience adds amount and emits one player_leveled_up per level.
func (s *System) GainExperience(now time.Duration, amount float64) int {
	n := s.Tracker.Gain(amount)
	for i := n - 1; i >= 0; i-- {
		s.sink.Publish(event.Event{Kind: event.PlayerLeveledUp, At: now, Value: float64(s.Tracker.Level - i)})
	}
	return n
}

// requiredWeaponLevel resolves a recipe's weapon level requirement.
func (s *System) requiredWeaponLevel(r Recipe) int {
	if r.WeaponLevel > 0 {
		return r.WeaponLevel
	}
	return s.catalog.Weapon(r.Weapon).MaxLevel
}

// ready reports whether p satisfies r right now.
func (s *System) ready(r Recipe, p *player.Player) bool {
	if s.consumed[r.ID] {
		return false
	}
	w, ok := p.Weapon(r.Weapon)
	if !ok || w.Level < s.requiredWeaponLevel(r) {
		return false
	}
	ps, ok := p.Passive(r.Passive)
	if !ok || ps.Level < r.PassiveLevel {
		return false
	}
	_, owned := p.Weapon(r.Result)
	return !owned
}

// ReadyRecipes returns every unconsumed recipe p can evolve now, in
// catalog order.
func (s *System) ReadyRecipes(p *player.Player) []Recipe {
	var out []Recipe
	for _, r := range s.catalog.Recipes() {
		if s.ready(r, p) {
			out = append(out, r)
		}
	}
	return out
}

// superseded reports whether weapon id was consumed by an evolution.
func (s *System) superseded(id string) bool {
	for _, r := range s.catalog.Recipes() {
		if r.Weapon == id && s.consumed[r.ID] {
			return true
		}
	}
	return false
}

// luckWeight raises rare (weight < 1) entries toward 1 by luck.
func luckWeight(w, luck float64) float64 {
	if luck <= 1 || w >= 1 {
		return w
	}
	return math.Min(1, w*luck)
}

// Candidates builds the non-evolution pool for p.
func (s *System) Candidates(p *player.Player) []Option {
	var pool []Option
	luck := p.Stats.Luck
	upgradeWeight := func(rarity float64) float64 {
		if rarity <= 0 {
			return 1
		}
		return luckWeight(rarity, luck)
	}
	for _, w := range p.Weapons {
		if !w.IsMaxed() {
			pool = append(pool, Option{ID: "weapon:" + w.ID(), Kind: UpgradeWeapon, Ref: w.ID(), Level: w.Level + 1, Weight: upgradeWeight(w.Def.Rarity)})
		}
	}
	for _, ps := range p.Passives {
		if !ps.IsMaxed() {
			pool = append(pool, Option{ID: "passive:" + ps.ID(), Kind: UpgradePassive, Ref: ps.ID(), Level: ps.Level + 1, Weight: upgradeWeight(ps.Def.Rarity)})
		}
	}
	if p.WeaponSlotsLeft() > 0 {
		for _, def := range s.catalog.Weapons() {
			if def.Evolved || def.Rarity <= 0 || s.superseded(def.ID) {
				continue
			}
			if _, owned := p.Weapon(def.ID); owned {
				continue
			}
			pool = append(pool, Option{ID: "weapon:" + def.ID, Kind: NewWeapon, Ref: def.ID, Level: 1, Weight: luckWeight(def.Rarity, luck)})
		}
	}
	if p.PassiveSlotsLeft() > 0 {
		for _, def := range s.catalog.Passives() {
			if def.Rarity <= 0 {
				continue
			}
			if _, owned := p.Passive(def.ID); owned {
				continue
			}
			pool = append(pool, Option{ID: "passive:" + def.ID, Kind: NewPassive, Ref: def.ID, Level: 1, Weight: luckWeight(def.Rarity, luck)})
		}
	}
	return pool
}

// Offer returns n options for p: ready evolutions first, then a weighted
// draw without replacement from the candidate pool, then unique fillers.
//
// Postcondition: option ids are unique; len == n whenever the pool plus the
// three fillers can supply n; consumed recipes never appear.
func (s *System) Offer(p *player.Player, n int) []Option {
	if n <= 0 {
		n = s.cfg.Options
	}
	out := make([]Option, 0, n)
	for _, r := range s.ReadyRecipes(p) {
		if len(out) == n {
			break
		}
		out = append(out, Option{ID: "evolve:" + r.ID, Kind: Evolution, Ref: r.ID, Level: 1, Weight: 1})
	}

	pool := s.Candidates(p)
	for len(out) < n && len(pool) > 0 {
		weights := make([]float64, len(pool))
		for i, o := range pool {
			weights[i] = o.Weight
		}
		idx := s.roller.WeightedIndex(weights)
		if idx < 0 {
			break
		}
		out = append(out, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}

	for _, f := range []Option{
		{ID: "filler:heal", Kind: FillerHeal, Weight: 1},
		{ID: "filler:gold", Kind: FillerGold, Weight: 1},
		{ID: "filler:experience", Kind: FillerExp, Weight: 1},
	} {
		if len(out) >= n {
			break
		}
		out = append(out, f)
	}
	s.logger.Debug("upgrade offer", zap.Int("requested", n), zap.Int("offered", len(out)))
	return out
}

// Apply carries out opt on p.
//
// Postcondition: on error p and the system are unchanged.
func (s *System) Apply(now time.Duration, p *player.Player, opt Option) (Effect, error) {
	var eff Effect
	switch opt.Kind {
	case NewWeapon:
		if _, err := p.AddWeapon(s.catalog.Weapon(opt.Ref)); err != nil {
			return eff, err
		}
	case UpgradeWeapon:
		w, ok := p.Weapon(opt.Ref)
		if !ok {
			return eff, fmt.Errorf("weapon %q: %w", opt.Ref, player.ErrNotOwned)
		}
		if err := w.LevelUp(); err != nil {
			return eff, err
		}
	case NewPassive:
		if _, err := p.AddPassive(s.catalog.Passive(opt.Ref)); err != nil {
			return eff, err
		}
	case UpgradePassive:
		if err := p.LevelPassive(opt.Ref); err != nil {
			return eff, err
		}
	case Evolution:
		result, err := s.Evolve(now, p, opt.Ref)
		if err != nil {
			return eff, err
		}
		eff.Evolved = result
	case FillerHeal:
		eff.Healed = p.Heal(s.cfg.FillerHeal)
	case FillerGold:
		eff.Currency = s.cfg.FillerGold
	case FillerExp:
		eff.Levels = s.GainExperience(now, s.cfg.FillerExperience)
	default:
		return eff, fmt.Errorf("%q: %w", opt.Kind, ErrUnknownOption)
	}
	s.logger.Debug("upgrade applied", zap.String("option", opt.ID))
	return eff, nil
}

// Evolve fires recipe id: the source weapon is replaced in its slot by the
// result weapon at level 1. The passive is kept.
//
// Postcondition: on success the recipe is consumed and weapon_evolved is
// emitted; on error nothing changed.
func (s *System) Evolve(now time.Duration, p *player.Player, recipeID string) (string, error) {
	var recipe *Recipe
	for _, r := range s.catalog.Recipes() {
		if r.ID == recipeID {
			recipe = &r
			break
		}
	}
	if recipe == nil {
		return "", fmt.Errorf("recipe %q: %w", recipeID, ErrUnknownOption)
	}
	if s.consumed[recipe.ID] {
		return "", fmt.Errorf("recipe %q: %w", recipe.ID, ErrRecipeConsumed)
	}
	if !s.ready(*recipe, p) {
		return "", fmt.Errorf("recipe %q: %w", recipe.ID, ErrNotReady)
	}
	result := s.catalog.Weapon(recipe.Result)
	if _, err := p.ReplaceWeapon(recipe.Weapon, result); err != nil {
		return "", err
	}
	s.consumed[recipe.ID] = true
	s.logger.Info("weapon evolved", zap.String("recipe", recipe.ID), zap.String("result", result.ID))
	s.sink.Publish(event.Event{Kind: event.WeaponEvolved, At: now, Ref: result.ID})
	return result.ID, nil
}

// ChestResult describes what opening a chest did.
type ChestResult struct {
	Evolved string
	// Leveled is the weapon id levelled when no evolution was ready.
	Leveled  string
	Currency int
}

// OpenChest evolves the first ready recipe; otherwise it levels a random
// owned weapon below max level; otherwise it pays the gold filler.
func (s *System) OpenChest(now time.Duration, p *player.Player) ChestResult {
	for _, r := range s.ReadyRecipes(p) {
		if result, err := s.Evolve(now, p, r.ID); err == nil {
			return ChestResult{Evolved: result}
		}
	}
	var upgradable []*weapon.Instance
	for _, w := range p.Weapons {
		if !w.IsMaxed() {
			upgradable = append(upgradable, w)
		}
	}
	if len(upgradable) > 0 {
		w := upgradable[s.roller.Intn(len(upgradable))]
		if err := w.LevelUp(); err == nil {
			return ChestResult{Leveled: w.ID()}
		}
	}
	return ChestResult{Currency: s.cfg.FillerGold}
}
