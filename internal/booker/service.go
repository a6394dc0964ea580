package booker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"aulabot/internal/edisu"
	"aulabot/internal/ledger"
	"aulabot/internal/metrics"
	"aulabot/internal/notify"
	"aulabot/internal/planner"
)

// Options describes one booking run.
type Options struct {
	Room       string
	Hall       edisu.Hall
	ShiftStart planner.TimePoint
	ShiftEnd   planner.TimePoint

	// From and To bound the day range, inclusive. When DaysAhead is
	// positive they are recomputed from "today" instead.
	From      time.Time
	To        time.Time
	DaysAhead int

	// ExcludeWeekdays holds ISO weekday digits to skip, "67" for the
	// weekend.
	ExcludeWeekdays string

	DryRun   bool
	Location *time.Location
}

// Outcome labels for one day; they double as metric label values.
const (
	OutcomeBooked         = metrics.OutcomeBooked
	OutcomeAlreadyCovered = metrics.OutcomeAlreadyCovered
	OutcomeUnreachable    = metrics.OutcomeUnreachable
	OutcomeSkipped        = metrics.OutcomeSkipped
	OutcomeError          = metrics.OutcomeError
)

// DayOutcome is the result of handling one day of the range.
type DayOutcome struct {
	Day     time.Time
	Outcome string
	Plan    *planner.Plan
	Covered planner.Interval
	Err     error
}

// Service drives the whole pipeline for a range of days: fetch
// availability, plan the shift, execute the plan.
type Service struct {
	api      ReservationAPI
	recorder Recorder
	metrics  *metrics.Metrics
	notifier *notify.Notifier
	logger   *zerolog.Logger
	now      func() time.Time
}

// New wires a booking service. Recorder, metrics and notifier may be
// nil when the corresponding feature is disabled.
func New(api ReservationAPI, recorder Recorder, m *metrics.Metrics, notifier *notify.Notifier, logger *zerolog.Logger) *Service {
	return &Service{
		api:      api,
		recorder: recorder,
		metrics:  m,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Run plans and books every non-excluded day of the range. Per-day
// failures are recorded in the outcome and never abort the remaining
// days; only context cancellation and malformed options stop the run.
func (s *Service) Run(ctx context.Context, opts Options) ([]DayOutcome, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.ShiftStart >= opts.ShiftEnd {
		return nil, fmt.Errorf("shift start %s must precede end %s", opts.ShiftStart, opts.ShiftEnd)
	}

	today := s.today(opts.Location)
	if opts.DaysAhead > 0 {
		opts.From = today
		opts.To = today.AddDate(0, 0, opts.DaysAhead-1)
	}
	if opts.From.Before(today) {
		s.logger.Warn().
			Str("from", edisu.FormatDay(opts.From)).
			Msg("start date in the past, clamping to today")
		opts.From = today
	}
	if opts.From.After(opts.To) {
		return nil, fmt.Errorf("start date %s after end date %s", edisu.FormatDay(opts.From), edisu.FormatDay(opts.To))
	}

	var outcomes []DayOutcome
	for day := opts.From; !day.After(opts.To); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		outcome := s.handleDay(ctx, day, opts)
		outcomes = append(outcomes, outcome)
		if s.metrics != nil {
			s.metrics.IncDay(outcome.Outcome)
		}
	}
	return outcomes, nil
}

// RunDaemon re-runs the range on an interval until the context ends.
// Meant for DaysAhead-style rolling ranges, where every pass picks up
// newly bookable days.
func (s *Service) RunDaemon(ctx context.Context, opts Options, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Run(ctx, opts); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("booking run failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) handleDay(ctx context.Context, day time.Time, opts Options) DayOutcome {
	dayStr := edisu.FormatDay(day)
	log := s.logger.With().Str("day", dayStr).Logger()

	if excluded(day, opts.ExcludeWeekdays) {
		log.Info().Msg("weekday excluded, skipping")
		return DayOutcome{Day: day, Outcome: OutcomeSkipped}
	}

	window, skip, err := s.dayWindow(ctx, day, opts, &log)
	if err != nil {
		log.Error().Err(err).Msg("day aborted")
		s.notifier.DayFailed(dayStr, err)
		return DayOutcome{Day: day, Outcome: OutcomeError, Err: err}
	}
	if skip {
		return DayOutcome{Day: day, Outcome: OutcomeSkipped}
	}

	own, err := s.fetchOwnBookings(ctx, day, window, opts.Hall)
	if err != nil {
		log.Error().Err(err).Msg("day aborted")
		s.notifier.DayFailed(dayStr, err)
		return DayOutcome{Day: day, Outcome: OutcomeError, Err: err}
	}

	reservations, seatIDs, err := s.fetchAvailability(ctx, day, opts.Hall)
	if err != nil {
		log.Error().Err(err).Msg("day aborted")
		s.notifier.DayFailed(dayStr, err)
		return DayOutcome{Day: day, Outcome: OutcomeError, Err: err}
	}

	started := time.Now()
	result, err := planner.PlanShift(window, reservations, own)
	if s.metrics != nil {
		s.metrics.ObservePlanDuration(time.Since(started).Seconds())
	}
	if err != nil {
		log.Error().Err(err).Msg("planning failed")
		s.notifier.DayFailed(dayStr, err)
		return DayOutcome{Day: day, Outcome: OutcomeError, Err: err}
	}

	if result.Plan == nil {
		log.Error().
			Stringer("covered", result.Covered).
			Msg("requested shift cannot be fully covered on any seat combination")
		s.notifier.DayUnreachable(dayStr, opts.Room, result.Covered)
		return DayOutcome{Day: day, Outcome: OutcomeUnreachable, Covered: result.Covered}
	}

	if s.metrics != nil {
		s.metrics.ObserveSwitches(result.Plan.Switches())
	}

	toBook := result.Plan.NewSegments()
	if len(toBook) == 0 {
		log.Info().Msg("shift already fully covered by existing bookings")
		return DayOutcome{Day: day, Outcome: OutcomeAlreadyCovered, Plan: result.Plan, Covered: window}
	}

	s.execute(ctx, day, opts, toBook, seatIDs, &log)
	s.notifier.PlanBooked(dayStr, opts.Room, result.Plan, opts.DryRun)
	return DayOutcome{Day: day, Outcome: OutcomeBooked, Plan: result.Plan, Covered: window}
}

// dayWindow validates the requested shift against the slots the service
// actually offers that day, clamping with a warning where they differ,
// and clamps today's window to the current slot. skip is set when
// nothing bookable remains.
func (s *Service) dayWindow(ctx context.Context, day time.Time, opts Options, log *zerolog.Logger) (window planner.Interval, skip bool, err error) {
	starts, err := s.api.ValidSlots(ctx, day, opts.Hall)
	if err != nil {
		return planner.Interval{}, false, err
	}
	if len(starts) == 0 {
		return planner.Interval{}, false, fmt.Errorf("no bookable slots offered")
	}

	offered := make(map[planner.TimePoint]struct{}, len(starts))
	first, err := ParseClock(starts[0])
	if err != nil {
		return planner.Interval{}, false, fmt.Errorf("malformed slot list: %w", err)
	}
	last := first
	for _, raw := range starts {
		t, err := ParseClock(raw)
		if err != nil {
			return planner.Interval{}, false, fmt.Errorf("malformed slot list: %w", err)
		}
		offered[t] = struct{}{}
		if t < first {
			first = t
		}
		if t > last {
			last = t
		}
	}

	window = planner.Interval{Start: opts.ShiftStart, End: opts.ShiftEnd}
	if _, ok := offered[window.Start]; !ok {
		window.Start = first
		log.Warn().Stringer("start", window.Start).Msg("requested start not offered, using first available slot")
	}
	if _, ok := offered[window.End-edisu.SlotMinutes]; !ok {
		window.End = last + edisu.SlotMinutes
		log.Warn().Stringer("end", window.End).Msg("requested end not offered, using last available slot")
	}

	now := s.now().In(opts.Location)
	if s.sameDay(day, now) {
		currentSlot := planner.TimePoint(now.Hour()*60 + now.Minute() - now.Minute()%edisu.SlotMinutes)
		if currentSlot > window.Start {
			window.Start = currentSlot
			log.Warn().Stringer("start", window.Start).Msg("first bookable slot today is later than requested")
		}
	}

	if window.Empty() {
		log.Error().Msg("too late to book the requested shift today, skipping day")
		return planner.Interval{}, true, nil
	}
	return window, false, nil
}

func (s *Service) fetchOwnBookings(ctx context.Context, day time.Time, window planner.Interval, hall edisu.Hall) ([]planner.OwnBooking, error) {
	entries, err := s.api.OwnBookings(ctx, day)
	if err != nil {
		return nil, err
	}

	var own []planner.OwnBooking
	for _, e := range entries {
		if !e.Active() || e.HallID != hall.ID {
			continue
		}
		start, err := ParseClock(e.StartTime)
		if err != nil {
			return nil, fmt.Errorf("own booking start: %w", err)
		}
		end, err := ParseClock(e.EndTime)
		if err != nil {
			return nil, fmt.Errorf("own booking end: %w", err)
		}
		iv := planner.Interval{Start: start, End: end}
		if !iv.Overlaps(window) {
			continue
		}
		own = append(own, planner.OwnBooking{Seat: planner.Seat(e.SeatName), Interval: iv})
	}
	return own, nil
}

// fetchAvailability turns the per-seat slot grids into the planner's
// raw reservation map and remembers each seat's service id.
func (s *Service) fetchAvailability(ctx context.Context, day time.Time, hall edisu.Hall) (map[planner.Seat][]planner.Interval, map[planner.Seat]string, error) {
	grids, err := s.api.Seats(ctx, day, hall)
	if err != nil {
		return nil, nil, err
	}

	reservations := make(map[planner.Seat][]planner.Interval, len(grids))
	seatIDs := make(map[planner.Seat]string, len(grids))
	for _, grid := range grids {
		seat := planner.Seat(grid.SeatName)
		seatIDs[seat] = grid.SeatID
		var booked []planner.Interval
		for _, slot := range grid.Slots {
			if !slot.Reserved() {
				continue
			}
			start, err := ParseClock(slot.SlotTime)
			if err != nil {
				return nil, nil, fmt.Errorf("seat %s: %w", grid.SeatName, err)
			}
			booked = append(booked, planner.Interval{Start: start, End: start + edisu.SlotMinutes})
		}
		reservations[seat] = booked
	}
	return reservations, seatIDs, nil
}

// execute issues one reservation per new segment. Failures are logged
// and recorded but do not abort the remaining segments.
func (s *Service) execute(ctx context.Context, day time.Time, opts Options, segments []planner.Segment, seatIDs map[planner.Seat]string, log *zerolog.Logger) {
	for _, seg := range segments {
		entry := ledger.Entry{
			Day:       edisu.FormatDay(day),
			Room:      opts.Room,
			SeatID:    seatIDs[seg.Seat],
			SeatName:  string(seg.Seat),
			StartTime: seg.Start.String(),
			EndTime:   seg.End.String(),
		}

		if opts.DryRun {
			log.Info().Stringer("segment", seg).Msg("dry run, not booking")
			entry.Status = ledger.StatusDryRun
			s.record(ctx, entry, log)
			if s.metrics != nil {
				s.metrics.IncSegment(ledger.StatusDryRun)
			}
			continue
		}

		req := edisu.BookingRequest{
			Date:      entry.Day,
			HallID:    strconv.Itoa(opts.Hall.ID),
			SeatID:    entry.SeatID,
			StartTime: entry.StartTime,
			EndTime:   entry.EndTime,
		}
		if err := s.api.Book(ctx, req); err != nil {
			log.Error().Err(err).Stringer("segment", seg).Msg("booking failed")
			entry.Status = ledger.StatusFailed
			s.record(ctx, entry, log)
			if s.metrics != nil {
				s.metrics.IncSegment(ledger.StatusFailed)
			}
			continue
		}

		log.Info().Stringer("segment", seg).Msg("booked")
		entry.Status = ledger.StatusBooked
		s.record(ctx, entry, log)
		if s.metrics != nil {
			s.metrics.IncSegment(ledger.StatusBooked)
		}
	}
}

func (s *Service) record(ctx context.Context, e ledger.Entry, log *zerolog.Logger) {
	if s.recorder == nil {
		return
	}
	if _, err := s.recorder.Record(ctx, e); err != nil {
		log.Error().Err(err).Msg("failed to record booking in ledger")
	}
}

func (s *Service) today(loc *time.Location) time.Time {
	now := s.now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
}

func (s *Service) sameDay(day, now time.Time) bool {
	y1, m1, d1 := day.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// excluded reports whether the day's ISO weekday (Monday=1..Sunday=7)
// appears in the exclusion digits.
func excluded(day time.Time, weekdays string) bool {
	iso := int(day.Weekday())
	if iso == 0 {
		iso = 7
	}
	return strings.ContainsRune(weekdays, rune('0'+iso))
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(raw string) (planner.TimePoint, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	mins, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	if hours < 0 || hours > 23 || mins < 0 || mins > 59 {
		return 0, fmt.Errorf("time %q out of range", raw)
	}
	return planner.TimePoint(hours*60 + mins), nil
}
