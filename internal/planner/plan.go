package planner

import "fmt"

// Segment is one planned piece of the shift: a seat and the half-open
// span to reserve on it. Owned segments are already covered by an
// existing booking and need no new reservation call.
type Segment struct {
	Seat  Seat
	Start TimePoint
	End   TimePoint
	Owned bool
}

func (s Segment) String() string {
	if s.Owned {
		return fmt.Sprintf("%s-%s %s (owned)", s.Start, s.End, s.Seat)
	}
	return fmt.Sprintf("%s-%s %s", s.Start, s.End, s.Seat)
}

// Plan is an ordered, gap-free, non-overlapping sequence of segments
// whose union is exactly the shift window.
type Plan struct {
	Window   Interval
	Segments []Segment
}

// NewSegments returns the segments that require a reservation call,
// skipping the already-owned ones.
func (p *Plan) NewSegments() []Segment {
	var out []Segment
	for _, s := range p.Segments {
		if !s.Owned {
			out = append(out, s)
		}
	}
	return out
}

// Switches counts the seat changes a plan implies.
func (p *Plan) Switches() int {
	if len(p.Segments) == 0 {
		return 0
	}
	return len(p.Segments) - 1
}

// Result is the outcome of planning one day. When the full window is
// coverable, Plan is set and Covered equals the window. Otherwise Plan
// is nil and Covered is the contiguous prefix of the window reachable
// before the first gap; Covered.Empty() means not even the shift start
// is available anywhere.
type Result struct {
	Plan    *Plan
	Covered Interval
}

// PlanShift is the planner entry point. It normalizes the raw per-seat
// reservations against the shift window, builds the coverage graph
// including the user's own bookings as zero-weight edges, and finds the
// minimum-switch covering plan. Infeasibility is reported through the
// Result, not as an error; errors mean malformed input or an internal
// consistency defect.
func PlanShift(window Interval, reservations map[Seat][]Interval, own []OwnBooking) (Result, error) {
	freeBySeat, err := NormalizeAvailability(window, reservations)
	if err != nil {
		return Result{}, err
	}
	var ownSpans []Interval
	for _, ob := range own {
		if err := validateInterval(ob.Interval); err != nil {
			return Result{}, fmt.Errorf("own booking on seat %s: %w", ob.Seat, err)
		}
		if clipped := ob.Interval.Clip(window); !clipped.Empty() {
			ownSpans = append(ownSpans, clipped)
		}
	}

	// Time the user already holds is never booked again, on any seat:
	// carve it out of every seat's free intervals and fulfill it through
	// the zero-weight owned edges instead.
	if len(ownSpans) > 0 {
		ownSpans = mergeReservations(ownSpans)
		for seat, free := range freeBySeat {
			remaining := subtract(free, ownSpans)
			if len(remaining) == 0 {
				delete(freeBySeat, seat)
				continue
			}
			freeBySeat[seat] = remaining
		}
	}

	g := buildGraph(window, freeBySeat, own)
	source := g.index[window.Start]
	target := g.index[window.End]
	dist, prev := shortestPath(g, source)

	if dist[target] == unreachable {
		covered := Interval{Start: window.Start, End: window.Start}
		for i, d := range dist {
			if d != unreachable && g.vertices[i] > covered.End {
				covered.End = g.vertices[i]
			}
		}
		return Result{Covered: covered}, nil
	}

	plan, err := reconstruct(window, g, prev, source, target)
	if err != nil {
		return Result{}, err
	}
	return Result{Plan: plan, Covered: window}, nil
}

// reconstruct walks the predecessor chain back from the window end,
// emits the segments in chronological order and merges consecutive
// segments that share seat and ownership. The finished plan is
// validated; a violation is a bug in the graph or the search, never
// silently corrected.
func reconstruct(window Interval, g *coverageGraph, prev []*edge, source, target int) (*Plan, error) {
	var reversed []Segment
	for v := target; v != source; {
		e := prev[v]
		if e == nil {
			return nil, fmt.Errorf("%w: broken predecessor chain at %s", ErrPlanInvariant, g.vertices[v])
		}
		reversed = append(reversed, Segment{Seat: e.seat, Start: e.from, End: e.to, Owned: e.owned})
		v = g.index[e.from]
	}

	var segments []Segment
	for i := len(reversed) - 1; i >= 0; i-- {
		s := reversed[i]
		if n := len(segments); n > 0 {
			last := &segments[n-1]
			if last.Seat == s.Seat && last.Owned == s.Owned && last.End == s.Start {
				last.End = s.End
				continue
			}
		}
		segments = append(segments, s)
	}

	plan := &Plan{Window: window, Segments: segments}
	if err := plan.validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

func (p *Plan) validate() error {
	if len(p.Segments) == 0 {
		return fmt.Errorf("%w: empty plan for window %s", ErrPlanInvariant, p.Window)
	}
	if first := p.Segments[0]; first.Start != p.Window.Start {
		return fmt.Errorf("%w: plan starts at %s, window at %s", ErrPlanInvariant, first.Start, p.Window.Start)
	}
	if last := p.Segments[len(p.Segments)-1]; last.End != p.Window.End {
		return fmt.Errorf("%w: plan ends at %s, window at %s", ErrPlanInvariant, last.End, p.Window.End)
	}
	for i, s := range p.Segments {
		if s.Start >= s.End {
			return fmt.Errorf("%w: segment %s is empty", ErrPlanInvariant, s)
		}
		if i > 0 && p.Segments[i-1].End != s.Start {
			return fmt.Errorf("%w: gap between %s and %s", ErrPlanInvariant, p.Segments[i-1], s)
		}
	}
	return nil
}
