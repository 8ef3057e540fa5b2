package common

import (
	"math"
	"strings"
)

// Normalize returns the lookup key form of a free-text name (city, crop).
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
