package meta

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Persisted keys.
const (
	KeyCurrency      = "currency"
	KeyGamesPlayed   = "stats.games_played"
	KeyTotalKills    = "stats.total_kills"
	KeyBestSurvival  = "stats.best_survival_ms"
	upgradeKeyPrefix = "upgrade."
)

// Encode flattens s into key/value pairs.
func Encode(s State) map[string]string {
	kv := map[string]string{
		KeyCurrency:     strconv.Itoa(s.Currency),
		KeyGamesPlayed:  strconv.Itoa(s.GamesPlayed),
		KeyTotalKills:   strconv.Itoa(s.TotalKills),
		KeyBestSurvival: strconv.FormatInt(s.BestSurvival.Milliseconds(), 10),
	}
	for id, lvl := range s.Upgrades {
		kv[upgradeKeyPrefix+id] = strconv.Itoa(lvl)
	}
	return kv
}

// Decode rebuilds a State from key/value pairs. Missing keys keep their
// defaults and unknown keys are ignored.
//
// Postcondition: the returned State is always usable; the error joins every
// malformed value, each of which was left at its default.
func Decode(kv map[string]string) (State, error) {
	s := DefaultState()
	var errs []error
	readInt := func(key string, dst *int) {
		raw, ok := kv[key]
		if !ok {
			return
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || v < 0 {
			errs = append(errs, fmt.Errorf("key %q: invalid value %q", key, raw))
			return
		}
		*dst = v
	}
	readInt(KeyCurrency, &s.Currency)
	readInt(KeyGamesPlayed, &s.GamesPlayed)
	readInt(KeyTotalKills, &s.TotalKills)
	var bestMS int
	readInt(KeyBestSurvival, &bestMS)
	s.BestSurvival = time.Duration(bestMS) * time.Millisecond

	for k := range kv {
		id, ok := strings.CutPrefix(k, upgradeKeyPrefix)
		if !ok || id == "" {
			continue
		}
		var lvl int
		readInt(k, &lvl)
		if lvl > 0 {
			s.Upgrades[id] = lvl
		}
	}
	return s, errors.Join(errs...)
}
