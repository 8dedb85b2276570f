package adaptive

import "math/rand"

// RandomSource draws the candidate index during selection. *rand.Rand
// satisfies it.
type RandomSource interface {
	// Intn returns a value in [0, n). n is always positive.
	Intn(n int) int
}

type globalSource struct{}

func (globalSource) Intn(n int) int { return rand.Intn(n) }

// DefaultSource returns the process-wide generator, safe for concurrent use.
func DefaultSource() RandomSource {
	return globalSource{}
}
