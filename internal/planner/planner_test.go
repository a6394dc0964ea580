package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Shorthand: the canonical 09:00-13:00 window used across tests.
var window = Interval{Start: 9 * 60, End: 13 * 60}

func TestNormalizeAvailability(t *testing.T) {
	tests := []struct {
		name     string
		reserved []Interval
		want     []Interval
	}{
		{
			name:     "no reservations yields whole window",
			reserved: nil,
			want:     []Interval{{540, 780}},
		},
		{
			name:     "fully reserved yields nothing",
			reserved: []Interval{{480, 800}},
			want:     nil,
		},
		{
			name:     "overlapping reservations are merged",
			reserved: []Interval{{600, 660}, {630, 690}},
			want:     []Interval{{540, 600}, {690, 780}},
		},
		{
			name:     "back to back reservations leave no zero length gap",
			reserved: []Interval{{600, 630}, {630, 660}},
			want:     []Interval{{540, 600}, {660, 780}},
		},
		{
			name:     "reservations outside the window are ignored",
			reserved: []Interval{{60, 120}, {800, 900}},
			want:     []Interval{{540, 780}},
		},
		{
			name:     "reservation straddling the window start is clipped",
			reserved: []Interval{{480, 600}},
			want:     []Interval{{600, 780}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			free, err := NormalizeAvailability(window, map[Seat][]Interval{"s1": tt.reserved})
			require.NoError(t, err)
			if tt.want == nil {
				assert.NotContains(t, free, Seat("s1"))
				return
			}
			assert.Equal(t, tt.want, free["s1"])
		})
	}
}

func TestNormalizeAvailabilityRejectsMalformedInput(t *testing.T) {
	_, err := NormalizeAvailability(window, map[Seat][]Interval{"s1": {{660, 600}}})
	require.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NormalizeAvailability(window, map[Seat][]Interval{"s1": {{-10, 60}}})
	require.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NormalizeAvailability(Interval{780, 540}, nil)
	require.ErrorIs(t, err, ErrInvalidInterval)
}

func TestPlanShiftSingleSeatWholeWindow(t *testing.T) {
	res, err := PlanShift(window, map[Seat][]Interval{"s1": nil}, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Plan)
	assert.Equal(t, window, res.Covered)
	assert.Equal(t, []Segment{{Seat: "s1", Start: 540, End: 780}}, res.Plan.Segments)
}

func TestPlanShiftForcedSwitch(t *testing.T) {
	// Seat 1 reaches 11:00, seat 2 starts at 10:30: the minimum-switch
	// plan keeps seat 1 until 11:00 and takes seat 2 for the rest.
	reservations := map[Seat][]Interval{
		"seat1": {{660, 780}}, // free 09:00-11:00
		"seat2": {{540, 630}}, // free 10:30-13:00
	}
	res, err := PlanShift(window, reservations, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Plan)
	assert.Equal(t, []Segment{
		{Seat: "seat1", Start: 540, End: 660},
		{Seat: "seat2", Start: 660, End: 780},
	}, res.Plan.Segments)
}

func TestPlanShiftIgnoresWorseAlternatives(t *testing.T) {
	// Extra seats that only cover strict sub-spans must not change the
	// two-segment outcome or the switch point.
	reservations := map[Seat][]Interval{
		"a": {{660, 780}},             // free 09:00-11:00
		"b": {{540, 660}},             // free 11:00-13:00
		"c": {{540, 570}, {600, 780}}, // free 09:30-10:00 only
		"d": {{540, 690}, {750, 780}}, // free 11:30-12:30 only
	}
	res, err := PlanShift(window, reservations, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Plan)
	require.Len(t, res.Plan.Segments, 2)
	assert.Equal(t, TimePoint(660), res.Plan.Segments[0].End)
	assert.Equal(t, Seat("a"), res.Plan.Segments[0].Seat)
	assert.Equal(t, Seat("b"), res.Plan.Segments[1].Seat)
}

func TestPlanShiftPrefersSingleSeatOverSplit(t *testing.T) {
	reservations := map[Seat][]Interval{
		"full":  nil,           // free all day
		"early": {{660, 780}},  // free 09:00-11:00
		"late":  {{540, 660}},  // free 11:00-13:00
	}
	res, err := PlanShift(window, reservations, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Plan)
	require.Len(t, res.Plan.Segments, 1)
	assert.Equal(t, Seat("full"), res.Plan.Segments[0].Seat)
	assert.Equal(t, 0, res.Plan.Switches())
}

func TestPlanShiftDeterministic(t *testing.T) {
	reservations := map[Seat][]Interval{
		"a": {{690, 780}},
		"b": {{540, 600}},
		"c": {{600, 690}},
		"d": {{540, 570}, {720, 780}},
	}
	own := []OwnBooking{{Seat: "z", Interval: Interval{600, 630}}}

	first, err := PlanShift(window, reservations, own)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := PlanShift(window, reservations, own)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPlanShiftOwnBookingFullCoverage(t *testing.T) {
	// Everything already booked by the user: the plan is entirely owned
	// segments and no reservation call is needed.
	reservations := map[Seat][]Interval{
		"s1": {{540, 780}},
		"s2": {{540, 780}},
	}
	own := []OwnBooking{
		{Seat: "s1", Interval: Interval{540, 660}},
		{Seat: "s2", Interval: Interval{660, 780}},
	}
	res, err := PlanShift(window, reservations, own)
	require.NoError(t, err)
	require.NotNil(t, res.Plan)
	for _, s := range res.Plan.Segments {
		assert.True(t, s.Owned, "segment %s should be owned", s)
	}
	assert.Empty(t, res.Plan.NewSegments())
}

func TestPlanShiftMergesAdjacentOwnedSegments(t *testing.T) {
	reservations := map[Seat][]Interval{"s1": {{540, 780}}}
	own := []OwnBooking{
		{Seat: "s1", Interval: Interval{540, 600}},
		{Seat: "s1", Interval: Interval{600, 780}},
	}
	res, err := PlanShift(window, reservations, own)
	require.NoError(t, err)
	require.NotNil(t, res.Plan)
	assert.Equal(t, []Segment{{Seat: "s1", Start: 540, End: 780, Owned: true}}, res.Plan.Segments)
}

func TestPlanShiftPrefersOwnedOverNewBooking(t *testing.T) {
	// A free seat spans the whole window, but an owned booking covers
	// part of it: reusing the owned time costs nothing, so the plan
	// folds it in instead of booking over it.
	reservations := map[Seat][]Interval{"free": nil}
	own := []OwnBooking{{Seat: "mine", Interval: Interval{600, 690}}}

	res, err := PlanShift(window, reservations, own)
	require.NoError(t, err)
	require.NotNil(t, res.Plan)
	require.Len(t, res.Plan.Segments, 3)
	assert.Equal(t, Segment{Seat: "mine", Start: 600, End: 690, Owned: true}, res.Plan.Segments[1])
	assert.Len(t, res.Plan.NewSegments(), 2)
}

func TestPlanShiftUnreachableReportsCoveredPrefix(t *testing.T) {
	// Nothing covers 11:00-11:15; the result carries the contiguous
	// prefix up to the first gap.
	reservations := map[Seat][]Interval{
		"s1": {{660, 780}}, // free 09:00-11:00
		"s2": {{540, 675}}, // free 11:15-13:00
	}
	res, err := PlanShift(window, reservations, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Plan)
	assert.Equal(t, Interval{Start: 540, End: 660}, res.Covered)
}

func TestPlanShiftUnreachableFromTheStart(t *testing.T) {
	reservations := map[Seat][]Interval{
		"s1": {{540, 600}}, // free only from 10:00
	}
	res, err := PlanShift(window, reservations, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Plan)
	assert.True(t, res.Covered.Empty())
	assert.Equal(t, TimePoint(540), res.Covered.Start)
}

func TestPlanShiftNoSeatsAtAll(t *testing.T) {
	res, err := PlanShift(window, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Plan)
	assert.True(t, res.Covered.Empty())
}

func TestPlanShiftRejectsMalformedOwnBooking(t *testing.T) {
	_, err := PlanShift(window, nil, []OwnBooking{{Seat: "s", Interval: Interval{700, 700}}})
	require.ErrorIs(t, err, ErrInvalidInterval)
}

func TestPlanValidateCatchesViolations(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
	}{
		{"empty plan", Plan{Window: window}},
		{"late start", Plan{Window: window, Segments: []Segment{{Seat: "s", Start: 600, End: 780}}}},
		{"early end", Plan{Window: window, Segments: []Segment{{Seat: "s", Start: 540, End: 700}}}},
		{"gap", Plan{Window: window, Segments: []Segment{
			{Seat: "s", Start: 540, End: 600},
			{Seat: "s", Start: 660, End: 780},
		}}},
		{"empty segment", Plan{Window: window, Segments: []Segment{
			{Seat: "s", Start: 540, End: 540},
			{Seat: "s", Start: 540, End: 780},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.plan.validate(), ErrPlanInvariant)
		})
	}
}

func TestTimePointString(t *testing.T) {
	assert.Equal(t, "09:00", TimePoint(540).String())
	assert.Equal(t, "13:30", TimePoint(810).String())
	assert.Equal(t, "00:05", TimePoint(5).String())
}
