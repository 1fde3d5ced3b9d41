// Package character defines the playable characters: their base stat
// adjustments and starting loadout, and the pure logic that turns one into a
// player at run start.
package character

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

// Definition is one selectable character.
//
// Precondition: ID and Name must be non-empty after loading.
type Definition struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Weapon is the weapon id granted at run start.
	Weapon string `yaml:"weapon"`
	// Passives are passive ids granted at level 1 at run start.
	Passives []string `yaml:"passives"`
	// Modifiers adds per-stat deltas to the default profile.
	Modifiers map[string]float64 `yaml:"modifiers"`
	// Multipliers scales stats by (1 + value) after Modifiers.
	Multipliers map[string]float64 `yaml:"multipliers"`
}

// Validate checks the definition's invariants.
func (d *Definition) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	for _, m := range []map[string]float64{d.Modifiers, d.Multipliers} {
		for key := range m {
			if _, err := stats.ParseKey(key); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("character %q: %w", d.ID, errors.Join(errs...))
	}
	return nil
}

// Fallback is the definition substituted for an unknown character id.
func Fallback(id string) *Definition {
	return &Definition{ID: id, Name: "Survivor"}
}

// Registry holds character definitions keyed by id.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register validates and adds def.
//
// Postcondition: returns an error for an invalid or duplicate definition.
func (r *Registry) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, dup := r.defs[def.ID]; dup {
		return fmt.Errorf("character %q: duplicate id", def.ID)
	}
	r.defs[def.ID] = def
	return nil
}

// Get returns the definition with id.
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

// LoadDirectory reads all .yaml files in dir, one character per file.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns the populated Registry or a non-nil error naming the
// offending file.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		def, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parsing character file %s: %w", path, err)
		}
		if err := reg.Register(def); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return reg, nil
}

// Parse decodes one character definition, rejecting unknown fields.
func Parse(data []byte) (*Definition, error) {
	var d Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}
