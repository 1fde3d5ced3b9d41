// Package passive provides permanently equipped stat modifiers that stack
// by level.
package passive

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/survivors/internal/game/stats"
)

// ErrMaxLevel is returned by LevelUp on a passive already at its max level.
var ErrMaxLevel = errors.New("passive: already at max level")

// Definition describes one passive: the stat it alters and how the value
// grows with level.
type Definition struct {
	ID             string    `yaml:"id"`
	Name           string    `yaml:"name"`
	Description    string    `yaml:"description"`
	Stat           stats.Key `yaml:"stat"`
	Base           float64   `yaml:"base"`
	PerLevel       float64   `yaml:"per_level"`
	Multiplicative bool      `yaml:"multiplicative"`
	MaxLevel       int       `yaml:"max_level"`
	Rarity         float64   `yaml:"rarity"`
}

// Validate checks the definition's invariants.
//
// Postcondition: returns nil iff all fields are valid.
func (d *Definition) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if _, err := stats.ParseKey(string(d.Stat)); err != nil {
		errs = append(errs, err)
	}
	if d.Stat == stats.CurrentHealth {
		errs = append(errs, errors.New("current_health cannot be a passive stat"))
	}
	if d.MaxLevel < 1 {
		errs = append(errs, errors.New("max_level must be >= 1"))
	}
	if d.Rarity < 0 {
		errs = append(errs, errors.New("rarity must be >= 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("passive %q: %w", d.ID, errors.Join(errs...))
	}
	return nil
}

// Fallback is the definition substituted for an unknown passive id. It has
// no effect.
func Fallback(id string) *Definition {
	return &Definition{ID: id, Name: id, Stat: stats.Luck, MaxLevel: 1}
}

// Instance is one owned passive.
type Instance struct {
	Def   *Definition
	Level int
}

// New creates a level-1 passive.
func New(def *Definition) *Instance {
	return &Instance{Def: def, Level: 1}
}

// ID returns the definition id.
func (p *Instance) ID() string { return p.Def.ID }

// IsMaxed reports whether the passive is at its max level.
func (p *Instance) IsMaxed() bool { return p.Level >= p.Def.MaxLevel }

// LevelUp raises the level by one.
//
// Postcondition: returns ErrMaxLevel and leaves p unchanged at max level.
func (p *Instance) LevelUp() error {
	if p.IsMaxed() {
		return ErrMaxLevel
	}
	p.Level++
	return nil
}

// Value is the effect magnitude at the current level.
func (p *Instance) Value() float64 {
	return stats.LeveledValue(p.Def.Base, p.Def.PerLevel, p.Level)
}

// Modifier returns the stat modifier this passive contributes.
func (p *Instance) Modifier() stats.Modifier {
	return stats.Modifier{
		Stat:           p.Def.Stat,
		Value:          p.Value(),
		Multiplicative: p.Def.Multiplicative,
		MinLevel:       1,
		Level:          p.Level,
	}
}

// Registry holds passive definitions keyed by id.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds def, rejecting duplicate ids.
func (r *Registry) Register(def *Definition) error {
	if _, exists := r.defs[def.ID]; exists {
		return fmt.Errorf("passive: Registry.Register: id %q already registered", def.ID)
	}
	r.defs[def.ID] = def
	return nil
}

// Get returns the definition for id.
func (r *Registry) Get(id string) (*Definition, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns every definition sorted by id.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDirectory reads every *.yaml file in dir as one Definition.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns a populated Registry or the first error.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading passive dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def Definition
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if err := reg.Register(&def); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
