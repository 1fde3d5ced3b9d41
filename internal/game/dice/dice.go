// Package dice provides the injectable randomness abstraction used by every
// simulation subsystem, plus amount expressions for loot and scripts.
package dice

// Source is the randomness provider for amount rolls, weighted draws and
// spawn placement.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float in [0, 1).
	Float64() float64
}
