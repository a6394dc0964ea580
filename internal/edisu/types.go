package edisu

import (
	"strconv"
	"strings"
	"time"
)

// SlotMinutes is the booking granularity of the service: every slot is
// half an hour and every shift boundary falls on one.
const SlotMinutes = 30

// DayFormat is the date layout the service expects, e.g. "25-03-2026".
const DayFormat = "02-01-2006"

// FormatDay renders a day the way the service wants it.
func FormatDay(t time.Time) string {
	return t.Format(DayFormat)
}

// Hall identifies a study room. The web API addresses rooms by a
// compound "NAME (id)" label while the booking API wants the bare id.
type Hall struct {
	Name string
	ID   int
}

// Label returns the "VERDI (6)" form used by the web endpoints.
func (h Hall) Label() string {
	return strings.ToUpper(h.Name) + " (" + strconv.Itoa(h.ID) + ")"
}

type signinResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

type slotsResponse struct {
	Status int `json:"status"`
	Result struct {
		Data struct {
			List []string `json:"list"`
		} `json:"data"`
	} `json:"result"`
	Message  string `json:"message"`
	Messsage string `json:"messsage"` // the API misspells the field under some error paths
}

// SeatSlot is one half-hour cell of a seat's day grid. The service
// encodes booking_status as a string-wrapped number.
type SeatSlot struct {
	SlotTime      string `json:"slot_time"`
	BookingStatus string `json:"booking_status"`
}

// Reserved reports whether the slot is taken by anyone.
func (s SeatSlot) Reserved() bool {
	n, err := strconv.Atoi(s.BookingStatus)
	return err == nil && n > 0
}

// SeatGrid is one seat with its per-slot day grid.
type SeatGrid struct {
	SeatName string     `json:"seat_name"`
	SeatID   string     `json:"seat_id"`
	Slots    []SeatSlot `json:"seat"`
}

type seatsResponse struct {
	Status int `json:"status"`
	Result struct {
		Seats []SeatGrid `json:"seats"`
	} `json:"result"`
	Message  string `json:"message"`
	Messsage string `json:"messsage"`
}

// Booking statuses observed on the wire.
const (
	BookingStatusCancelled = 0
	BookingStatusUpcoming  = 1
	BookingStatusCompleted = 2
	BookingStatusPending   = 4
)

// BookingEntry is one reservation the user holds, as listed by the
// booking-list endpoint. Times are "HH:MM" on the queried day.
type BookingEntry struct {
	BookingStatus int    `json:"booking_status"`
	HallID        int    `json:"hall_id"`
	SeatID        string `json:"seat_id"`
	SeatName      string `json:"seat_name"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

// Active reports whether the entry still occupies its span.
func (b BookingEntry) Active() bool {
	return b.BookingStatus != BookingStatusCancelled
}

type bookingListResponse struct {
	Status int `json:"status"`
	Result struct {
		Slots []BookingEntry `json:"slots"`
	} `json:"result"`
	Message  string `json:"message"`
	Messsage string `json:"messsage"`
}

// BookingRequest is the payload of the custom-booking call. HallID and
// times are strings because that is what the app API accepts.
type BookingRequest struct {
	Date      string `json:"date"`
	HallID    string `json:"hall_id"`
	SeatID    string `json:"seat_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type bookingResponse struct {
	Status   int    `json:"status"`
	Message  string `json:"message"`
	Messsage string `json:"messsage"`
}
