package tournament

import (
	"math"
	"regexp"
	"strconv"
)

var durationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseDuration converts a "PT#H#M#S" duration code into whole seconds.
// Absent components count as zero. Anything that does not match the format
// yields 0, which callers treat as an unknown duration.
func ParseDuration(code string) int {
	m := durationPattern.FindStringSubmatch(code)
	if m == nil {
		return 0
	}

	total := 0
	for i, unit := range [...]int{3600, 60, 1} {
		part := m[i+1]
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n > (math.MaxInt-total)/unit {
			return 0
		}
		total += n * unit
	}
	return total
}
