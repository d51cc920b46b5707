package util

import "math/rand"

func New(seed int64) *rand.Rand {
	if seed == 0 {
		seed = 1
	}
	src := rand.NewSource(seed)
	return rand.New(src)
}

// Derive spawns an independent stream seeded from the parent, so per-robot
// draws do not perturb the ordering of the match-level stream.
func Derive(parent *rand.Rand) *rand.Rand {
	return New(parent.Int63())
}
