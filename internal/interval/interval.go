// Package interval provides half-open time-of-day interval arithmetic used by
// slot generation and conflict checks. All intervals are [start, end): touching
// endpoints do not overlap.
package interval

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeOfDay is a clock time expressed as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses a "15:04" clock string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}

	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}

	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Span is a half-open [Start, End) interval within a single day.
type Span struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Valid reports whether the span is non-empty.
func (s Span) Valid() bool {
	return s.Start < s.End
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share any instant.
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && bStart < aEnd
}

// SpansOverlap reports whether two spans share any instant.
func SpansOverlap(a, b Span) bool {
	return Overlaps(a.Start, a.End, b.Start, b.End)
}

// Contains reports whether inner lies fully within outer.
func Contains(outer, inner Span) bool {
	return outer.Start <= inner.Start && inner.End <= outer.End
}

// Subtract removes the cut intervals from base and returns the remaining
// disjoint sub-intervals in ascending order. Cuts may be unordered and may
// extend beyond base; empty remainders are dropped.
func Subtract(base Span, cuts []Span) []Span {
	remaining := []Span{base}

	for _, cut := range cuts {
		if !cut.Valid() {
			continue
		}

		var next []Span
		for _, seg := range remaining {
			if !SpansOverlap(seg, cut) {
				next = append(next, seg)
				continue
			}
			if seg.Start < cut.Start {
				next = append(next, Span{Start: seg.Start, End: cut.Start})
			}
			if cut.End < seg.End {
				next = append(next, Span{Start: cut.End, End: seg.End})
			}
		}
		remaining = next
	}

	return remaining
}
