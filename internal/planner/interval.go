package planner

import (
	"errors"
	"fmt"
	"sort"
)

// TimePoint is a moment on the target day, in minutes since midnight.
type TimePoint int

// MinutesPerDay bounds every valid TimePoint.
const MinutesPerDay = 24 * 60

// String renders the point as "HH:MM", the format the booking service uses.
func (t TimePoint) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Interval is a half-open [Start, End) span on the day.
type Interval struct {
	Start TimePoint
	End   TimePoint
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s-%s", iv.Start, iv.End)
}

// Empty reports whether the interval contains no time at all.
func (iv Interval) Empty() bool {
	return iv.Start >= iv.End
}

// Overlaps reports whether iv and other share any time.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Contains reports whether other lies fully inside iv.
func (iv Interval) Contains(other Interval) bool {
	return iv.Start <= other.Start && other.End <= iv.End
}

// Clip returns the part of iv inside bounds; the result may be empty.
func (iv Interval) Clip(bounds Interval) Interval {
	out := iv
	if out.Start < bounds.Start {
		out.Start = bounds.Start
	}
	if out.End > bounds.End {
		out.End = bounds.End
	}
	return out
}

// Seat identifies one bookable seat by its display name. Seats are
// compared and sorted by this name.
type Seat string

// OwnBooking is a reservation the user already holds. It counts as
// satisfied coverage and must never be re-booked.
type OwnBooking struct {
	Seat     Seat
	Interval Interval
}

var (
	// ErrInvalidInterval flags a malformed input interval: start >= end
	// or endpoints outside the day.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrPlanInvariant flags a reconstructed plan that violates its own
	// invariants. It indicates a logic defect, not a data problem.
	ErrPlanInvariant = errors.New("plan invariant violation")
)

func validateInterval(iv Interval) error {
	if iv.Start >= iv.End {
		return fmt.Errorf("%w: %s (start must precede end)", ErrInvalidInterval, iv)
	}
	if iv.Start < 0 || iv.End > MinutesPerDay {
		return fmt.Errorf("%w: %s (outside day bounds)", ErrInvalidInterval, iv)
	}
	return nil
}

// mergeReservations sorts and coalesces overlapping or touching
// intervals into a minimal non-overlapping sequence.
func mergeReservations(reservations []Interval) []Interval {
	if len(reservations) == 0 {
		return nil
	}
	sorted := make([]Interval, len(reservations))
	copy(sorted, reservations)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// freeWithin complements a merged reservation list against the window,
// emitting the gaps before, between and after the reservations. Zero
// length gaps are dropped.
func freeWithin(window Interval, merged []Interval) []Interval {
	var free []Interval
	cursor := window.Start
	for _, iv := range merged {
		clipped := iv.Clip(window)
		if clipped.Empty() {
			continue
		}
		if cursor < clipped.Start {
			free = append(free, Interval{Start: cursor, End: clipped.Start})
		}
		if clipped.End > cursor {
			cursor = clipped.End
		}
	}
	if cursor < window.End {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}

// subtract removes the merged block list from every interval, keeping
// the parts outside the blocks.
func subtract(ivs []Interval, blocks []Interval) []Interval {
	var out []Interval
	for _, iv := range ivs {
		out = append(out, freeWithin(iv, blocks)...)
	}
	return out
}

// NormalizeAvailability turns raw per-seat reservations (possibly
// overlapping, possibly outside the window) into the maximal free
// sub-intervals of each seat inside the shift window. Seats with no
// free time are omitted from the result.
func NormalizeAvailability(window Interval, reservations map[Seat][]Interval) (map[Seat][]Interval, error) {
	if err := validateInterval(window); err != nil {
		return nil, fmt.Errorf("shift window: %w", err)
	}
	freeBySeat := make(map[Seat][]Interval, len(reservations))
	for seat, booked := range reservations {
		for _, iv := range booked {
			if err := validateInterval(iv); err != nil {
				return nil, fmt.Errorf("seat %s: %w", seat, err)
			}
		}
		free := freeWithin(window, mergeReservations(booked))
		if len(free) > 0 {
			freeBySeat[seat] = free
		}
	}
	return freeBySeat, nil
}
