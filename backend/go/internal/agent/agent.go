package agent

import (
	"math/rand/v2"
	"sync"
)

// Rand is the randomness the simulator needs. *rand.Rand from math/rand/v2
// satisfies it but is not safe for concurrent use; wrap it with NewLockedRand.
type Rand interface {
	// IntN returns a non-negative pseudo-random number in [0,n).
	IntN(n int) int
}

// globalRand uses the goroutine-safe top-level math/rand/v2 functions.
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand returns the process-wide random source.
func DefaultRand() Rand { return globalRand{} }

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewLockedRand returns a deterministic, goroutine-safe source seeded with seed.
func NewLockedRand(seed uint64) Rand {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
