// Package spawn provides stage wave tables and the director that turns
// elapsed time into enemy spawns, bosses, rushes and a difficulty curve.
package spawn

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

// Weighted is one entry of a segment's enemy roulette.
type Weighted struct {
	Enemy  string  `yaml:"enemy"`
	Weight float64 `yaml:"weight"`
}

// Rush is an immediate burst spawned when its segment starts.
type Rush struct {
	Enemy string `yaml:"enemy"`
	Count int    `yaml:"count"`
}

// Segment is a time window [Start, End) with its own spawn cadence.
type Segment struct {
	Start      time.Duration `yaml:"start"`
	End        time.Duration `yaml:"end"`
	Interval   time.Duration `yaml:"interval"`
	Batch      int           `yaml:"batch"`
	MaxEnemies int           `yaml:"max_enemies"`
	Enemies    []Weighted    `yaml:"enemies"`
	// Boss, when set, spawns once as the segment starts.
	Boss string `yaml:"boss"`
	Rush *Rush  `yaml:"rush"`
}

// Contains reports whether elapsed falls inside the segment.
func (s Segment) Contains(elapsed time.Duration) bool {
	return elapsed >= s.Start && elapsed < s.End
}

// Threshold is a one-time difficulty bonus that applies from After on.
type Threshold struct {
	After time.Duration `yaml:"after"`
	Bonus float64       `yaml:"bonus"`
}

// Difficulty configures the step-function multiplier.
type Difficulty struct {
	StepInterval time.Duration `yaml:"step_interval"`
	StepBonus    float64       `yaml:"step_bonus"`
	Thresholds   []Threshold   `yaml:"thresholds"`
}

// HealthTier multiplies enemy health from After on; tiers do not stack, the
// latest reached tier wins.
type HealthTier struct {
	After time.Duration `yaml:"after"`
	Bonus float64       `yaml:"bonus"`
}

// Stage is one playable map's full wave table.
type Stage struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	TimeLimit   time.Duration `yaml:"time_limit"`
	Segments    []Segment     `yaml:"segments"`
	Difficulty  Difficulty    `yaml:"difficulty"`
	HealthTiers []HealthTier  `yaml:"health_tiers"`
	// SpawnRadiusMin and SpawnRadiusMax bound the ring around the player
	// where enemies appear, just outside the visible area.
	SpawnRadiusMin float64 `yaml:"spawn_radius_min"`
	SpawnRadiusMax float64 `yaml:"spawn_radius_max"`
	// ClusterThreshold is the batch size above which spawns are grouped.
	ClusterThreshold int `yaml:"cluster_threshold"`
	// DespawnDistance removes enemies this far from the player, without
	// rewards.
	DespawnDistance float64 `yaml:"despawn_distance"`
}

// Validate checks the stage's invariants.
//
// Postcondition: returns nil iff every field is valid; segments must be
// ordered by Start and must not overlap.
func (s *Stage) Validate() error {
	var errs []error
	if s.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if s.TimeLimit <= 0 {
		errs = append(errs, errors.New("time_limit must be > 0"))
	}
	if len(s.Segments) == 0 {
		errs = append(errs, errors.New("at least one segment is required"))
	}
	for i, seg := range s.Segments {
		if seg.End <= seg.Start {
			errs = append(errs, fmt.Errorf("segment[%d]: end must be after start", i))
		}
		if i > 0 && seg.Start < s.Segments[i-1].End {
			errs = append(errs, fmt.Errorf("segment[%d]: overlaps the previous segment", i))
		}
		if seg.Interval <= 0 {
			errs = append(errs, fmt.Errorf("segment[%d]: interval must be > 0", i))
		}
		if seg.Batch < 1 {
			errs = append(errs, fmt.Errorf("segment[%d]: batch must be >= 1", i))
		}
		if seg.MaxEnemies < 1 {
			errs = append(errs, fmt.Errorf("segment[%d]: max_enemies must be >= 1", i))
		}
		positive := false
		for _, w := range seg.Enemies {
			if w.Weight > 0 {
				positive = true
			}
		}
		if !positive {
			errs = append(errs, fmt.Errorf("segment[%d]: needs at least one positive enemy weight", i))
		}
		if seg.Rush != nil && (seg.Rush.Enemy == "" || seg.Rush.Count < 1) {
			errs = append(errs, fmt.Errorf("segment[%d]: rush needs an enemy and count >= 1", i))
		}
	}
	if s.Difficulty.StepBonus < 0 {
		errs = append(errs, errors.New("difficulty.step_bonus must be >= 0"))
	}
	for i, th := range s.Difficulty.Thresholds {
		if th.Bonus < 0 {
			errs = append(errs, fmt.Errorf("difficulty.thresholds[%d]: bonus must be >= 0", i))
		}
	}
	for i, ht := range s.HealthTiers {
		if ht.Bonus <= 0 {
			errs = append(errs, fmt.Errorf("health_tiers[%d]: bonus must be > 0", i))
		}
	}
	if s.SpawnRadiusMax < s.SpawnRadiusMin {
		errs = append(errs, errors.New("spawn_radius_max must be >= spawn_radius_min"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("stage %q: %w", s.ID, errors.Join(errs...))
	}
	return nil
}

// EnemyIDs returns every enemy template id the stage references, sorted.
func (s *Stage) EnemyIDs() []string {
	set := map[string]bool{}
	for _, seg := range s.Segments {
		for _, w := range seg.Enemies {
			set[w.Enemy] = true
		}
		if seg.Boss != "" {
			set[seg.Boss] = true
		}
		if seg.Rush != nil {
			set[seg.Rush.Enemy] = true
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Fallback is the stage substituted for an unknown stage id: ten minutes
// of a single enemy type.
func Fallback(id string, enemyID string) *Stage {
	return &Stage{
		ID:        id,
		Name:      id,
		TimeLimit: 10 * time.Minute,
		Segments: []Segment{{
			Start: 0, End: 10 * time.Minute, Interval: 2 * time.Second, Batch: 3, MaxEnemies: 60,
			Enemies: []Weighted{{Enemy: enemyID, Weight: 1}},
		}},
		Difficulty:       Difficulty{StepInterval: time.Minute, StepBonus: 0.1},
		SpawnRadiusMin:   400,
		SpawnRadiusMax:   500,
		ClusterThreshold: 5,
		DespawnDistance:  1200,
	}
}

// Registry holds stages keyed by id.
type Registry struct {
	stages map[string]*Stage
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{stages: make(map[string]*Stage)}
}

// Register adds s, rejecting duplicate ids.
func (r *Registry) Register(s *Stage) error {
	if _, exists := r.stages[s.ID]; exists {
		return fmt.Errorf("spawn: Registry.Register: stage %q already registered", s.ID)
	}
	r.stages[s.ID] = s
	return nil
}

// Get returns the stage with id.
func (r *Registry) Get(id string) (*Stage, bool) {
	s, ok := r.stages[id]
	return s, ok
}

// All returns every stage sorted by id.
func (r *Registry) All() []*Stage {
	out := make([]*Stage, 0, len(r.stages))
	for _, s := range r.stages {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ParseStage decodes and validates one stage; unknown fields are errors.
func ParseStage(data []byte) (*Stage, error) {
	var s Stage
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing stage YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadDirectory reads every *.yaml file in dir as one stage.
//
// Precondition: dir must be a readable directory.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading stage dir %q: %w", dir, err)
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
		s, err := ParseStage(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
