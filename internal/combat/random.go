package combat

import (
	"math/rand"
	"sync"
	"time"
)

// Random is the source of randomness used by resolvers.
// *rand.Rand satisfies it.
type Random interface {
	Float64() float64
	Intn(n int) int
}

// NewRandom returns a seeded generator safe for concurrent use.
// A zero seed picks one from the clock.
func NewRandom(seed int64) Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRandom{r: rand.New(rand.NewSource(seed))}
}

type lockedRandom struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRandom) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRandom) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// chance reports whether a roll succeeds with probability p.
func chance(r Random, p float64) bool {
	return r.Float64() < p
}

// between returns a uniform value in [lo, hi).
func between(r Random, lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}
