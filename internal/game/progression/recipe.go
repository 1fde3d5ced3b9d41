package progression

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Recipe combines a maxed weapon with a levelled passive into an evolved
// weapon. A recipe fires at most once per run.
type Recipe struct {
	ID     string `yaml:"id"`
	Weapon string `yaml:"weapon"`
	// WeaponLevel is the required weapon level; 0 means the weapon's max level.
	WeaponLevel  int    `yaml:"weapon_level"`
	Passive      string `yaml:"passive"`
	PassiveLevel int    `yaml:"passive_level"`
	Result       string `yaml:"result"`
}

// Validate checks the recipe's invariants.
func (r Recipe) Validate() error {
	var errs []error
	if r.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if r.Weapon == "" || r.Result == "" {
		errs = append(errs, errors.New("weapon and result must not be empty"))
	}
	if r.Weapon == r.Result {
		errs = append(errs, errors.New("result must differ from weapon"))
	}
	if r.Passive == "" {
		errs = append(errs, errors.New("passive must not be empty"))
	}
	if r.PassiveLevel < 1 {
		errs = append(errs, errors.New("passive_level must be >= 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("recipe %q: %w", r.ID, errors.Join(errs...))
	}
	return nil
}

type recipeFile struct {
	Recipes []Recipe `yaml:"recipes"`
}

// ParseRecipes decodes a `recipes:` list and validates every entry.
func ParseRecipes(data []byte) ([]Recipe, error) {
	var f recipeFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing recipes YAML: %w", err)
	}
	seen := make(map[string]bool, len(f.Recipes))
	for _, r := range f.Recipes {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("recipe %q: duplicate id", r.ID)
		}
		seen[r.ID] = true
	}
	return f.Recipes, nil
}

// LoadRecipes reads and parses the recipe file at path.
func LoadRecipes(path string) ([]Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recipes %q: %w", path, err)
	}
	return ParseRecipes(data)
}
