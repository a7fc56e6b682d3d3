// Package zrandom implements the Z-machine's random opcode semantics:
// a free-running random mode and a deterministic "predictable" mode
// used by test suites and games that want reproducible behaviour.
package zrandom

import "math/rand"

// Source serves the random opcode's two modes. Create one with New; a
// zero Source has no generator until Reseed is called.
type Source struct {
	rng         *rand.Rand
	predictable bool
	counter     int32
	ceiling     int32
}

// New creates a Source in random mode, seeded with seed. Picking the
// seed (wall-clock time when the host supplies none) is left to the
// caller -- the zvm package does this so the choice isn't buried in
// this package, keeping it free of time.Now() for testability.
func New(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// Reseed re-seeds random mode and switches out of predictable mode,
// used both at startup and by random(0).
func (s *Source) Reseed(seed int64) {
	s.rng = rand.New(rand.NewSource(seed))
	s.predictable = false
}

// StartPredictable switches into predictable mode with cycle length n,
// used by random(-n) for n > 0. The sequence is 1..n, 1..n, ....
func (s *Source) StartPredictable(n int32) {
	s.predictable = true
	s.ceiling = n
	s.counter = 0
}

// Draw implements random(n) per §4.D:
//   - n > 0: a uniform draw in 1..=n (random mode) or the next value
//     of the predictable cycle.
//   - n == 0: re-seed randomly (by the caller-supplied seed function)
//     and return 0.
//   - n < 0: seed the predictable cycle with |n| and return 0.
func (s *Source) Draw(n int16, reseed func() int64) uint16 {
	switch {
	case n > 0:
		if s.predictable {
			s.counter++
			if s.counter > s.ceiling {
				s.counter = 1
			}
			return uint16(s.counter)
		}
		return uint16(s.rng.Int31n(int32(n)) + 1)
	case n == 0:
		s.Reseed(reseed())
		return 0
	default:
		s.StartPredictable(int32(-n))
		return 0
	}
}
