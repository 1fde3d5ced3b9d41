// Package content aggregates the data tables a run is built from and
// resolves ids against them. Unknown ids never fail: the lookup logs a
// warning once per id and returns the table's fallback entry.
package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/survivors/internal/game/character"
	"github.com/cory-johannsen/survivors/internal/game/enemy"
	"github.com/cory-johannsen/survivors/internal/game/meta"
	"github.com/cory-johannsen/survivors/internal/game/passive"
	"github.com/cory-johannsen/survivors/internal/game/progression"
	"github.com/cory-johannsen/survivors/internal/game/spawn"
	"github.com/cory-johannsen/survivors/internal/game/weapon"
)

// Layout below the content root.
const (
	WeaponsDir    = "weapons"
	PassivesDir   = "passives"
	EnemiesDir    = "enemies"
	StagesDir     = "stages"
	CharactersDir = "characters"
	ScriptsDir    = "scripts"
	RecipesFile   = "evolutions.yaml"
	UpgradesFile  = "upgrades.yaml"
)

// Catalog is the read-only set of content tables. It is safe for concurrent
// use once built.
type Catalog struct {
	weapons    *weapon.Registry
	passives   *passive.Registry
	enemies    *enemy.Registry
	stages     *spawn.Registry
	characters *character.Registry
	recipes    []progression.Recipe
	shop       *meta.Catalog
	logger     *zap.Logger

	mu     sync.Mutex
	warned map[string]bool
}

// Tables are the pieces a Catalog is assembled from. Nil tables are empty.
type Tables struct {
	Weapons    *weapon.Registry
	Passives   *passive.Registry
	Enemies    *enemy.Registry
	Stages     *spawn.Registry
	Characters *character.Registry
	Recipes    []progression.Recipe
	Shop       *meta.Catalog
}

// New assembles a Catalog and logs every dangling cross-reference.
func New(t Tables, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Catalog{
		weapons:    t.Weapons,
		passives:   t.Passives,
		enemies:    t.Enemies,
		stages:     t.Stages,
		characters: t.Characters,
		recipes:    t.Recipes,
		shop:       t.Shop,
		logger:     logger,
		warned:     make(map[string]bool),
	}
	if c.weapons == nil {
		c.weapons = weapon.NewRegistry()
	}
	if c.passives == nil {
		c.passives = passive.NewRegistry()
	}
	if c.enemies == nil {
		c.enemies = enemy.NewRegistry()
	}
	if c.stages == nil {
		c.stages = spawn.NewRegistry()
	}
	if c.characters == nil {
		c.characters = character.NewRegistry()
	}
	if c.shop == nil {
		c.shop, _ = meta.NewCatalog(nil)
	}
	if err := c.Check(); err != nil {
		logger.Warn("content has dangling references; fallbacks will be used", zap.Error(err))
	}
	return c
}

// Load reads every table under root.
//
// Precondition: root must be a readable directory.
// Postcondition: a missing table directory or file yields an empty table;
// malformed entries fail the load.
func Load(root string, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		t   Tables
		err error
	)
	if t.Weapons, err = loadDir(root, WeaponsDir, weapon.LoadDirectory, weapon.NewRegistry, logger); err != nil {
		return nil, err
	}
	if t.Passives, err = loadDir(root, PassivesDir, passive.LoadDirectory, passive.NewRegistry, logger); err != nil {
		return nil, err
	}
	if t.Enemies, err = loadDir(root, EnemiesDir, enemy.LoadDirectory, enemy.NewRegistry, logger); err != nil {
		return nil, err
	}
	if t.Stages, err = loadDir(root, StagesDir, spawn.LoadDirectory, spawn.NewRegistry, logger); err != nil {
		return nil, err
	}
	if t.Characters, err = loadDir(root, CharactersDir, character.LoadDirectory, character.NewRegistry, logger); err != nil {
		return nil, err
	}
	if t.Recipes, err = loadFile(root, RecipesFile, progression.LoadRecipes, func() []progression.Recipe { return nil }, logger); err != nil {
		return nil, err
	}
	if t.Shop, err = loadFile(root, UpgradesFile, meta.LoadCatalog, func() *meta.Catalog { c, _ := meta.NewCatalog(nil); return c }, logger); err != nil {
		return nil, err
	}
	c := New(t, logger)
	logger.Info("content loaded",
		zap.String("root", root),
		zap.Int("weapons", len(c.weapons.All())),
		zap.Int("passives", len(c.passives.All())),
		zap.Int("enemies", len(c.enemies.All())),
		zap.Int("stages", len(c.stages.All())),
		zap.Int("characters", len(c.characters.All())),
		zap.Int("recipes", len(c.recipes)),
		zap.Int("upgrades", len(c.shop.All())),
	)
	return c, nil
}

func loadDir[T any](root, name string, load func(string) (T, error), empty func() T, logger *zap.Logger) (T, error) {
	dir := filepath.Join(root, name)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("content table missing", zap.String("dir", dir))
		return empty(), nil
	}
	v, err := load(dir)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("loading %s: %w", name, err)
	}
	return v, nil
}

func loadFile[T any](root, name string, load func(string) (T, error), empty func() T, logger *zap.Logger) (T, error) {
	path := filepath.Join(root, name)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("content table missing", zap.String("file", path))
		return empty(), nil
	}
	v, err := load(path)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("loading %s: %w", name, err)
	}
	return v, nil
}

// Check reports every reference to an id that is not in its table.
func (c *Catalog) Check() error {
	var errs []error
	weaponKnown := func(id string) bool { _, ok := c.weapons.Get(id); return ok }
	passiveKnown := func(id string) bool { _, ok := c.passives.Get(id); return ok }
	for _, s := range c.stages.All() {
		for _, id := range s.EnemyIDs() {
			if _, ok := c.enemies.Get(id); !ok {
				errs = append(errs, fmt.Errorf("stage %q: unknown enemy %q", s.ID, id))
			}
		}
	}
	for _, tmpl := range c.enemies.All() {
		for _, a := range tmpl.Abilities {
			if a.Summon == "" {
				continue
			}
			if _, ok := c.enemies.Get(a.Summon); !ok {
				errs = append(errs, fmt.Errorf("enemy %q ability %q: unknown summon %q", tmpl.ID, a.ID, a.Summon))
			}
		}
	}
	for _, r := range c.recipes {
		for _, id := range []string{r.Weapon, r.Result} {
			if !weaponKnown(id) {
				errs = append(errs, fmt.Errorf("recipe %q: unknown weapon %q", r.ID, id))
			}
		}
		if !passiveKnown(r.Passive) {
			errs = append(errs, fmt.Errorf("recipe %q: unknown passive %q", r.ID, r.Passive))
		}
	}
	for _, ch := range c.characters.All() {
		if ch.Weapon != "" && !weaponKnown(ch.Weapon) {
			errs = append(errs, fmt.Errorf("character %q: unknown weapon %q", ch.ID, ch.Weapon))
		}
		for _, id := range ch.Passives {
			if !passiveKnown(id) {
				errs = append(errs, fmt.Errorf("character %q: unknown passive %q", ch.ID, id))
			}
		}
	}
	return errors.Join(errs...)
}

// warnOnce logs a fallback substitution the first time kind/id is missed.
func (c *Catalog) warnOnce(kind, id string) {
	key := kind + ":" + id
	c.mu.Lock()
	seen := c.warned[key]
	c.warned[key] = true
	c.mu.Unlock()
	if !seen {
		c.logger.Warn("unknown content id; using fallback", zap.String("table", kind), zap.String("id", id))
	}
}

// Weapon returns the weapon definition for id, or weapon.Fallback.
func (c *Catalog) Weapon(id string) *weapon.Definition {
	if d, ok := c.weapons.Get(id); ok {
		return d
	}
	c.warnOnce("weapon", id)
	return weapon.Fallback(id)
}

// Passive returns the passive definition for id, or passive.Fallback.
func (c *Catalog) Passive(id string) *passive.Definition {
	if d, ok := c.passives.Get(id); ok {
		return d
	}
	c.warnOnce("passive", id)
	return passive.Fallback(id)
}

// Enemy returns the enemy template for id, or enemy.Fallback.
func (c *Catalog) Enemy(id string) *enemy.Template {
	if t, ok := c.enemies.Get(id); ok {
		return t
	}
	c.warnOnce("enemy", id)
	return enemy.Fallback(id)
}

// Stage returns the stage for id, or a fallback stage spawning the first
// known enemy.
func (c *Catalog) Stage(id string) *spawn.Stage {
	if s, ok := c.stages.Get(id); ok {
		return s
	}
	c.warnOnce("stage", id)
	enemyID := "shade"
	if all := c.enemies.All(); len(all) > 0 {
		enemyID = all[0].ID
	}
	return spawn.Fallback(id, enemyID)
}

// Character returns the character for id, or character.Fallback.
func (c *Catalog) Character(id string) *character.Definition {
	if d, ok := c.characters.Get(id); ok {
		return d
	}
	c.warnOnce("character", id)
	return character.Fallback(id)
}

// Weapons returns every weapon definition sorted by id.
func (c *Catalog) Weapons() []*weapon.Definition { return c.weapons.All() }

// Passives returns every passive definition sorted by id.
func (c *Catalog) Passives() []*passive.Definition { return c.passives.All() }

// Enemies returns every enemy template sorted by id.
func (c *Catalog) Enemies() []*enemy.Template { return c.enemies.All() }

// Stages returns every stage sorted by id.
func (c *Catalog) Stages() []*spawn.Stage { return c.stages.All() }

// Characters returns every character sorted by id.
func (c *Catalog) Characters() []*character.Definition { return c.characters.All() }

// Recipes returns the evolution recipes in file order.
func (c *Catalog) Recipes() []progression.Recipe { return c.recipes }

// Shop returns the permanent upgrade catalog.
func (c *Catalog) Shop() *meta.Catalog { return c.shop }

var (
	_ spawn.Templates     = (*Catalog)(nil)
	_ progression.Catalog = (*Catalog)(nil)
	_ character.Content   = (*Catalog)(nil)
)
