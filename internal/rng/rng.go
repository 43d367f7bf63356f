// Package rng wraps golang.org/x/exp/rand behind the small surface the
// evolutionary loop needs: uniform draws, Bernoulli chance tests,
// bounded integers, and permutations. A Source is explicitly seeded so a
// run is reproducible; the package never reaches into math/rand's global
// source.
package rng

import (
	"sync"

	"golang.org/x/exp/rand"
)

// Source is a goroutine-safe draw source. The evolutionary loop shares a
// single Source across its dispatched workers, so every method locks.
type Source struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New creates a Source seeded with seed. A seed of 0 is a valid,
// reproducible seed like any other.
func New(seed uint64) *Source {
	return &Source{rnd: rand.New(rand.NewSource(seed))}
}

// Float64 draws a uniform value in [0,1).
func (s *Source) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

// Chance returns true with probability pct/100, per the original's
// percent-valued mutation knobs (e.g. changeChance=60 means 60%).
func (s *Source) Chance(pct float64) bool {
	return s.Float64()*100 < pct
}

// IntN draws a uniform integer in [0, n). It panics if n <= 0, matching
// the precondition every call site already guarantees (an empty range
// is a caller bug, not a runtime condition to recover from).
func (s *Source) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

// IntRange draws a uniform integer in [lo, hi].
func (s *Source) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.IntN(hi-lo+1)
}

// WeightedIndex performs repeated Bernoulli trials of probability
// pct/100 across [0, n), returning the first index that succeeds, or 0
// if none does. This is the "weighed_mutation" parent-selection scheme
// of spec §4.7.
func (s *Source) WeightedIndex(n int, pct float64) int {
	for i := 0; i < n; i++ {
		if s.Chance(pct) {
			return i
		}
	}
	return 0
}

// Permutation returns a random permutation of [0, n).
func (s *Source) Permutation(n int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Perm(n)
}
