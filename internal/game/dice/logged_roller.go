package dice

import (
	"math"

	"go.uber.org/zap"
)

// Roller wraps a Source with a logger. It rolls amount expressions and makes
// the weighted draws used by spawning, loot and upgrade offers.
//
// Roller itself satisfies Source so it can be handed to any consumer.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src must be non-nil. A nil logger is replaced with zap.NewNop().
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Intn delegates to the underlying Source.
//
// Precondition: n > 0.
func (r *Roller) Intn(n int) int { return r.src.Intn(n) }

// Float64 delegates to the underlying Source.
func (r *Roller) Float64() float64 { return r.src.Float64() }

// Roll evaluates expr and logs the dice at debug level.
func (r *Roller) Roll(expr Expression) RollResult {
	result := expr.Roll(r.src)
	r.logger.Debug("amount roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("total", result.Total()),
	)
	return result
}

// RollExpr parses and rolls raw.
//
// Postcondition: Returns a parse error or the logged RollResult.
func (r *Roller) RollExpr(raw string) (RollResult, error) {
	e, err := Parse(raw)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e), nil
}

// Chance reports whether an event with probability p happens.
//
// Postcondition: p <= 0 always returns false; p >= 1 always returns true.
func (r *Roller) Chance(p float64) bool {
	return Chance(r.src, p)
}

// WeightedIndex draws an index from weights with cumulative-weight roulette.
//
// Postcondition: Returns -1 when no weight is positive; otherwise an index
// whose weight is positive.
func (r *Roller) WeightedIndex(weights []float64) int {
	idx := WeightedIndex(r.src, weights)
	r.logger.Debug("weighted draw",
		zap.Int("candidates", len(weights)),
		zap.Int("picked", idx),
	)
	return idx
}

// Chance reports whether an event with probability p happens using src.
//
// Postcondition: p <= 0 always returns false; p >= 1 always returns true.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Float64() < p
}

// Between returns a uniform float in [lo, hi).
//
// Postcondition: Returns lo when hi <= lo.
func Between(src Source, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + src.Float64()*(hi-lo)
}

// WeightedIndex draws an index from weights with cumulative-weight roulette.
// Non-positive and NaN weights are never picked.
//
// Postcondition: Returns -1 when no weight is positive.
func WeightedIndex(src Source, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 && !math.IsInf(w, 0) {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	pick := src.Float64() * total
	last := -1
	for i, w := range weights {
		if !(w > 0) || math.IsInf(w, 0) {
			continue
		}
		last = i
		if pick < w {
			return i
		}
		pick -= w
	}
	// Floating point residue lands on the last positive entry.
	return last
}
