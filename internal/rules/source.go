package rules

import "math/rand/v2"

// NewSource returns the seeded generator a run draws from. The same seed
// always yields the same sequence.
func NewSource(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}
