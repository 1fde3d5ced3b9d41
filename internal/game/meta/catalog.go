// Package meta holds the permanent progression carried between runs: the
// upgrade shop catalog, the persisted state and its key/value codec.
package meta

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/survivors/internal/game/stats"
)

// Upgrade is one permanent shop entry. Each purchased level adds PerLevel to
// Stat on the character base at run start.
type Upgrade struct {
	ID             string    `yaml:"id"`
	Name           string    `yaml:"name"`
	Description    string    `yaml:"description"`
	Stat           stats.Key `yaml:"stat"`
	PerLevel       float64   `yaml:"per_level"`
	Multiplicative bool      `yaml:"multiplicative"`
	MaxLevel       int       `yaml:"max_level"`
	BaseCost       int       `yaml:"base_cost"`
	// CostGrowth multiplies the price of every further level.
	CostGrowth float64 `yaml:"cost_growth"`
}

// Validate checks the upgrade's invariants.
func (u *Upgrade) Validate() error {
	var errs []error
	if u.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if _, err := stats.ParseKey(string(u.Stat)); err != nil {
		errs = append(errs, err)
	}
	if u.MaxLevel < 1 {
		errs = append(errs, errors.New("max_level must be >= 1"))
	}
	if u.BaseCost < 0 {
		errs = append(errs, errors.New("base_cost must be >= 0"))
	}
	if u.CostGrowth < 1 {
		errs = append(errs, errors.New("cost_growth must be >= 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("upgrade %q: %w", u.ID, errors.Join(errs...))
	}
	return nil
}

// Cost returns the price of buying level owned+1.
//
// Postcondition: floor(BaseCost * CostGrowth^owned).
func (u *Upgrade) Cost(owned int) int {
	return int(math.Floor(float64(u.BaseCost) * math.Pow(u.CostGrowth, float64(owned))))
}

// Modifier returns the base modifier granted by level purchased levels.
func (u *Upgrade) Modifier(level int) stats.Modifier {
	return stats.Modifier{Stat: u.Stat, Value: u.PerLevel * float64(level), Multiplicative: u.Multiplicative, MinLevel: 1, Level: level}
}

// Catalog is the set of shop upgrades keyed by id.
type Catalog struct {
	upgrades map[string]*Upgrade
}

// NewCatalog builds a Catalog from validated upgrades.
//
// Postcondition: returns an error on the first invalid or duplicate entry.
func NewCatalog(upgrades []*Upgrade) (*Catalog, error) {
	c := &Catalog{upgrades: make(map[string]*Upgrade, len(upgrades))}
	for _, u := range upgrades {
		if err := u.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.upgrades[u.ID]; dup {
			return nil, fmt.Errorf("upgrade %q: duplicate id", u.ID)
		}
		c.upgrades[u.ID] = u
	}
	return c, nil
}

// Get returns the upgrade with id.
func (c *Catalog) Get(id string) (*Upgrade, bool) {
	u, ok := c.upgrades[id]
	return u, ok
}

// All returns every upgrade sorted by id.
func (c *Catalog) All() []*Upgrade {
	out := make([]*Upgrade, 0, len(c.upgrades))
	for _, u := range c.upgrades {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type catalogFile struct {
	Upgrades []*Upgrade `yaml:"upgrades"`
}

// ParseCatalog decodes an `upgrades:` list.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing upgrades YAML: %w", err)
	}
	return NewCatalog(f.Upgrades)
}

// LoadCatalog reads and parses the upgrade file at path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return c, nil
}
