// Package interval provides the half-open time interval primitives shared by
// slot generation, booking commits, and time-off impact checks.
package interval

import "time"

// Span is a half-open [Start, End) time interval.
type Span struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether [startA, endA) and [startB, endB) intersect.
// Touching boundaries (endA == startB) do not overlap.
func Overlaps(startA, endA, startB, endB time.Time) bool {
	return startA.Before(endB) && startB.Before(endA)
}

// OverlapsSpan reports whether s intersects other.
func (s Span) OverlapsSpan(other Span) bool {
	return Overlaps(s.Start, s.End, other.Start, other.End)
}

// OverlapsAny reports whether s intersects any span in blocked.
func (s Span) OverlapsAny(blocked []Span) bool {
	for _, b := range blocked {
		if s.OverlapsSpan(b) {
			return true
		}
	}
	return false
}

// Valid reports whether the span is non-empty (Start strictly before End).
func (s Span) Valid() bool {
	return s.Start.Before(s.End)
}

// Duration returns End - Start.
func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}
