package weapon

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry holds every weapon Definition keyed by id.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds def.
//
// Precondition: def is non-nil and valid.
// Postcondition: returns an error if def.ID is already registered.
func (r *Registry) Register(def *Definition) error {
	if _, exists := r.defs[def.ID]; exists {
		return fmt.Errorf("weapon: Registry.Register: id %q already registered", def.ID)
	}
	r.defs[def.ID] = def
	return nil
}

// Get returns the Definition for id.
func (r *Registry) Get(id string) (*Definition, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns every Definition sorted by id.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDirectory parses every *.yaml file in dir as one Definition.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns a populated Registry, or an error naming the first
// file that fails to read, parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading weapon dir %q: %w", dir, err)
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
		def, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if err := reg.Register(def); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Parse decodes and validates a single Definition; unknown fields are errors.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("parsing weapon YAML: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}
