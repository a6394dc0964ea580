package booker

import (
	"context"
	"time"

	"aulabot/internal/edisu"
	"aulabot/internal/ledger"
)

// ReservationAPI is the slice of the reservation-service client the
// booker consumes.
type ReservationAPI interface {
	// ValidSlots returns the slot start times offered on a day.
	ValidSlots(ctx context.Context, day time.Time, hall edisu.Hall) ([]string, error)

	// Seats returns the per-seat availability grids for a day.
	Seats(ctx context.Context, day time.Time, hall edisu.Hall) ([]edisu.SeatGrid, error)

	// OwnBookings lists the user's reservations for a day.
	OwnBookings(ctx context.Context, day time.Time) ([]edisu.BookingEntry, error)

	// Book issues one reservation.
	Book(ctx context.Context, req edisu.BookingRequest) error
}

// Recorder persists issued bookings for auditing and reports.
type Recorder interface {
	Record(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
}
