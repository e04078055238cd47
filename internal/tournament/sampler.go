package tournament

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

// ErrSampleTooLarge is the panic value raised when a sample larger than its
// pool is requested. Callers run ValidateSize first so this never happens.
var ErrSampleTooLarge = errors.New("sample size exceeds pool size")

// Sampler draws brackets from pools. It is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler returns a Sampler seeded from the runtime's random source.
func NewSampler() *Sampler {
	return NewSeededSampler(rand.Uint64(), rand.Uint64())
}

// NewSeededSampler returns a Sampler with a fixed PCG seed, for reproducible draws.
func NewSeededSampler(seed1, seed2 uint64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// Sample returns size distinct videos drawn uniformly from pool, in random
// order. pool is not modified. It panics if size is negative or larger than
// the pool.
func (s *Sampler) Sample(pool []VideoRef, size int) []VideoRef {
	if size < 0 || size > len(pool) {
		panic(fmt.Errorf("%w: size %d, pool %d", ErrSampleTooLarge, size, len(pool)))
	}

	work := make([]VideoRef, len(pool))
	copy(work, pool)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Partial Fisher-Yates: the first size slots end up a uniform random permutation.
	for i := 0; i < size; i++ {
		j := i + s.rng.IntN(len(work)-i)
		work[i], work[j] = work[j], work[i]
	}
	return work[:size:size]
}
