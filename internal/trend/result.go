// Package trend produces market and demand estimates per (crop, region).
//
// Providers never return errors. A failure inside a provider yields the
// documented neutral default wrapped in a degraded Result, so callers can tell
// a real estimate from a substituted one without inspecting logs.
package trend

// Result is either a real value or a default substituted for a failure.
type Result[T any] struct {
	Value    T
	Degraded bool
	Reason   string
}

// Ok wraps a successfully computed value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Degrade wraps a fallback value with the reason it was used.
func Degrade[T any](fallback T, reason string) Result[T] {
	return Result[T]{Value: fallback, Degraded: true, Reason: reason}
}
