package tournament

import "slices"

// SizeOptions are the bracket sizes a user may pick, ascending.
var SizeOptions = []int{2, 4, 8, 16, 32, 64, 128, 256}

// MinPoolSize is the smallest pool that can produce any bracket.
const MinPoolSize = 2

// AvailableSizes returns the SizeOptions that fit in a pool of poolSize
// videos. The result is empty when poolSize < MinPoolSize.
func AvailableSizes(poolSize int) []int {
	out := make([]int, 0, len(SizeOptions))
	for _, n := range SizeOptions {
		if n <= poolSize {
			out = append(out, n)
		}
	}
	return out
}

// ValidateSize returns requested when it is a legal size for the pool, and
// otherwise the largest legal size. It returns 0 only when no size fits.
func ValidateSize(requested, poolSize int) int {
	if requested <= poolSize && slices.Contains(SizeOptions, requested) {
		return requested
	}
	avail := AvailableSizes(poolSize)
	if len(avail) == 0 {
		return 0
	}
	return avail[len(avail)-1]
}
