package meta

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store persists a profile's flattened meta state. Implementations live in
// internal/storage; a profile with no saved data loads as an empty map.
type Store interface {
	Load(ctx context.Context, profile string) (map[string]string, error)
	Save(ctx context.Context, profile string, kv map[string]string) error
}

// RunRecord is one finished run kept in a profile's history.
type RunRecord struct {
	ID        string
	Profile   string
	Character string
	Stage     string
	Survived  time.Duration
	Completed bool
	Level     int
	Kills     int
	Currency  int
	EndedAt   time.Time
}

// RunLog appends finished runs and lists them newest first.
type RunLog interface {
	Append(ctx context.Context, r RunRecord) error
	Recent(ctx context.Context, profile string, limit int) ([]RunRecord, error)
}

// LoadState reads and decodes the profile's state. Malformed values are
// logged and replaced by defaults.
//
// Postcondition: returns an error only when the store itself fails.
func LoadState(ctx context.Context, store Store, profile string, logger *zap.Logger) (State, error) {
	kv, err := store.Load(ctx, profile)
	if err != nil {
		return DefaultState(), fmt.Errorf("loading meta state for %q: %w", profile, err)
	}
	s, derr := Decode(kv)
	if derr != nil && logger != nil {
		logger.Warn("meta state has malformed values; defaults used",
			zap.String("profile", profile), zap.Error(derr))
	}
	return s, nil
}

// SaveState encodes and writes the profile's state.
func SaveState(ctx context.Context, store Store, profile string, s State) error {
	if err := store.Save(ctx, profile, Encode(s)); err != nil {
		return fmt.Errorf("saving meta state for %q: %w", profile, err)
	}
	return nil
}

// MemoryStore is an in-process Store and RunLog. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]map[string]string
	runs     []RunRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]map[string]string)}
}

// Load returns a copy of the saved pairs.
func (m *MemoryStore) Load(_ context.Context, profile string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.profiles[profile]), nil
}

// Save replaces the profile's pairs with a copy of kv.
func (m *MemoryStore) Save(_ context.Context, profile string, kv map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile] = maps.Clone(kv)
	return nil
}

// Append keeps r in memory.
func (m *MemoryStore) Append(_ context.Context, r RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}

// Recent returns up to limit runs of profile, newest first. A limit of zero
// or less returns all of them.
func (m *MemoryStore) Recent(_ context.Context, profile string, limit int) ([]RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RunRecord
	for _, r := range m.runs {
		if r.Profile == profile {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
