package zmachine

import (
	"math/rand"
	"time"
)

// rng backs the random opcode's two modes: a predictable counter that cycles
// 1..n for "testing" seeds, and Go's PRNG for genuinely random results.
type rng struct {
	predictableCeiling int32 // 0 means not in predictable mode
	predictableNext    int32
	source             *rand.Rand
}

func newRNG(seed int64) *rng {
	return &rng{source: rand.New(rand.NewSource(seed))}
}

// Seed applies the random opcode's seed argument: s == 0 re-randomizes from
// host entropy (a story asking for "real" randomness again); 0 < |s| < 1000
// switches to the predictable counter mode, cycling 1..|s|; any other value
// reseeds the PRNG deterministically from s so repeated runs with the same
// seed are reproducible.
func (r *rng) Seed(s int16) {
	if s == 0 {
		r.predictableCeiling = 0
		r.source = rand.New(rand.NewSource(time.Now().UnixNano()))
		return
	}

	n := int32(s)
	if n < 0 {
		n = -n
	}
	if n < 1000 {
		r.predictableCeiling = n
		r.predictableNext = 1
	} else {
		r.predictableCeiling = 0
		r.source = rand.New(rand.NewSource(int64(s)))
	}
}

// Next returns the next result of random(n): in predictable mode it cycles
// 1..|s| (s being the seed that selected the mode) regardless of n (a testing
// convenience the standard affords interpreters); otherwise it's a uniform
// draw in [1,n].
func (r *rng) Next(n int16) uint16 {
	if n <= 0 {
		return 0
	}
	if r.predictableCeiling > 0 {
		v := r.predictableNext
		r.predictableNext++
		if r.predictableNext > r.predictableCeiling {
			r.predictableNext = 1
		}
		return uint16(v)
	}
	return uint16(r.source.Int31n(int32(n)) + 1)
}
