// Package enemy provides enemy templates, live enemy actors with movement
// behaviours, loot rolls and the manager that owns every live enemy.
package enemy

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Behavior is an enemy's movement and attack routine.
type Behavior string

const (
	// BehaviorChase walks straight at the player.
	BehaviorChase Behavior = "chase"
	// BehaviorCharge approaches, winds up, then dashes.
	BehaviorCharge Behavior = "charge"
	// BehaviorRanged keeps its distance and shoots.
	BehaviorRanged Behavior = "ranged"
	// BehaviorBoss chases and cycles through its abilities.
	BehaviorBoss Behavior = "boss"
)

// AbilityKind selects what an ability does when its cooldown elapses.
type AbilityKind string

const (
	AbilityDash   AbilityKind = "dash"
	AbilityShoot  AbilityKind = "shoot"
	AbilityNova   AbilityKind = "nova"
	AbilitySummon AbilityKind = "summon"
)

// Ability is a cooldown-gated action.
type Ability struct {
	ID       string        `yaml:"id"`
	Kind     AbilityKind   `yaml:"kind"`
	Cooldown time.Duration `yaml:"cooldown"`
	// Windup delays the effect after the cooldown triggers (dash tells).
	Windup time.Duration `yaml:"windup"`
	// Duration is how long a dash lasts.
	Duration time.Duration `yaml:"duration"`
	// Range is the distance at which the ability is used.
	Range  float64 `yaml:"range"`
	Speed  float64 `yaml:"speed"`
	Damage float64 `yaml:"damage"`
	Count  int     `yaml:"count"`
	// Summon is the template id spawned by summon abilities.
	Summon string `yaml:"summon"`
}

// Template is a reusable enemy archetype loaded from YAML.
type Template struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Behavior   Behavior `yaml:"behavior"`
	MaxHP      float64  `yaml:"max_hp"`
	Damage     float64  `yaml:"damage"`
	Speed      float64  `yaml:"speed"`
	Radius     float64  `yaml:"radius"`
	Experience float64  `yaml:"experience"`
	// KnockbackResist scales incoming knockback down; 1 means immovable.
	KnockbackResist float64 `yaml:"knockback_resist"`
	// PreferredRange is the distance ranged enemies try to hold.
	PreferredRange float64    `yaml:"preferred_range"`
	Abilities      []Ability  `yaml:"abilities"`
	Loot           *LootTable `yaml:"loot"`
}

// Validate checks that the template satisfies its invariants.
//
// Postcondition: returns nil iff every field is valid.
func (t *Template) Validate() error {
	var errs []error
	if t.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if t.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	switch t.Behavior {
	case BehaviorChase, BehaviorCharge, BehaviorRanged, BehaviorBoss:
	default:
		errs = append(errs, fmt.Errorf("unknown behavior %q", t.Behavior))
	}
	if t.MaxHP < 1 {
		errs = append(errs, errors.New("max_hp must be >= 1"))
	}
	if t.Damage < 0 {
		errs = append(errs, errors.New("damage must be >= 0"))
	}
	if t.Radius <= 0 {
		errs = append(errs, errors.New("radius must be > 0"))
	}
	if t.KnockbackResist < 0 || t.KnockbackResist > 1 {
		errs = append(errs, errors.New("knockback_resist must be in [0, 1]"))
	}
	for i, a := range t.Abilities {
		if a.Cooldown <= 0 {
			errs = append(errs, fmt.Errorf("ability[%d] %q: cooldown must be > 0", i, a.ID))
		}
		switch a.Kind {
		case AbilityDash, AbilityShoot, AbilityNova:
		case AbilitySummon:
			if a.Summon == "" {
				errs = append(errs, fmt.Errorf("ability[%d] %q: summon needs a template id", i, a.ID))
			}
		default:
			errs = append(errs, fmt.Errorf("ability[%d] %q: unknown kind %q", i, a.ID, a.Kind))
		}
	}
	if t.Loot != nil {
		if err := t.Loot.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("enemy template %q: %w", t.ID, errors.Join(errs...))
	}
	return nil
}

// Fallback is the template substituted for an unknown enemy id.
func Fallback(id string) *Template {
	return &Template{
		ID:         id,
		Name:       "Shade",
		Behavior:   BehaviorChase,
		MaxHP:      10,
		Damage:     5,
		Speed:      60,
		Radius:     10,
		Experience: 1,
	}
}

// Registry holds templates keyed by id.
type Registry struct {
	templates map[string]*Template
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]*Template)}
}

// Register adds t, rejecting duplicate ids.
func (r *Registry) Register(t *Template) error {
	if _, exists := r.templates[t.ID]; exists {
		return fmt.Errorf("enemy: Registry.Register: id %q already registered", t.ID)
	}
	r.templates[t.ID] = t
	return nil
}

// Get returns the template for id.
func (r *Registry) Get(id string) (*Template, bool) {
	t, ok := r.templates[id]
	return t, ok
}

// All returns every template sorted by id.
func (r *Registry) All() []*Template {
	out := make([]*Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadTemplateFromBytes parses a single template from raw YAML.
//
// Postcondition: returns a validated *Template or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadDirectory reads every *.yaml file in dir as one template.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns a populated Registry or the first error; on error
// the partial result is discarded.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading enemy dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if err := reg.Register(tmpl); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
