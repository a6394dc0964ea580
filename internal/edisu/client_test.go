package edisu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, counter map[string]int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/sbs/web/signin", func(w http.ResponseWriter, r *http.Request) {
		counter["signin"]++
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("password") != "hunter2" {
			writeJSON(w, map[string]any{"message": "wrong credentials"})
			return
		}
		writeJSON(w, map[string]any{"token": "tok-123"})
	})

	mux.HandleFunc("/sbs/web/student/slots", func(w http.ResponseWriter, r *http.Request) {
		counter["slots"]++
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		writeJSON(w, map[string]any{
			"status": 202,
			"result": map[string]any{"data": map[string]any{
				"list": []string{"09:00 - 09:30", "09:30 - 10:00", "10:00 - 10:30"},
			}},
		})
	})

	mux.HandleFunc("/sbs/web/student/seats", func(w http.ResponseWriter, r *http.Request) {
		counter["seats"]++
		writeJSON(w, map[string]any{
			"status": 202,
			"result": map[string]any{"seats": []map[string]any{
				{
					"seat_name": "A1",
					"seat_id":   "17",
					"seat": []map[string]any{
						{"slot_time": "09:00", "booking_status": "0"},
						{"slot_time": "09:30", "booking_status": "1"},
					},
				},
			}},
		})
	})

	mux.HandleFunc("/sbs/web/studentbookinglist", func(w http.ResponseWriter, r *http.Request) {
		counter["bookinglist"]++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "-1", r.PostForm.Get("filter"))
		writeJSON(w, map[string]any{
			"status": 202,
			"result": map[string]any{"slots": []map[string]any{
				{"booking_status": 1, "hall_id": 6, "start_time": "09:00", "end_time": "10:00", "seat_id": "17", "seat_name": "A1"},
				{"booking_status": 0, "hall_id": 6, "start_time": "10:00", "end_time": "11:00"},
			}},
		})
	})

	mux.HandleFunc("/sbs/booking/custombooking", func(w http.ResponseWriter, r *http.Request) {
		counter["book"]++
		assert.Equal(t, "it", r.Header.Get("Accept-Language"))
		var req BookingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.SeatID == "" {
			writeJSON(w, map[string]any{"status": 400, "messsage": "seat required"})
			return
		}
		writeJSON(w, map[string]any{"status": 202})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c := NewClient(srv.URL+"/sbs", srv.URL+"/sbs", 2*time.Second)
	c.SetRateLimit(1000, 1000)
	return c
}

func TestSignIn(t *testing.T) {
	counter := map[string]int{}
	srv := newTestServer(t, counter)
	c := newTestClient(t, srv)
	ctx := context.Background()

	err := c.SignIn(ctx, "user@example.org", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "wrong credentials", apiErr.Message)

	require.NoError(t, c.SignIn(ctx, "user@example.org", "hunter2"))
}

func TestValidSlotsParsesStartTimes(t *testing.T) {
	counter := map[string]int{}
	srv := newTestServer(t, counter)
	c := newTestClient(t, srv)
	ctx := context.Background()
	require.NoError(t, c.SignIn(ctx, "user@example.org", "hunter2"))

	day := time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC)
	slots, err := c.ValidSlots(ctx, day, Hall{Name: "verdi", ID: 6})
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, slots)
}

func TestSeats(t *testing.T) {
	counter := map[string]int{}
	srv := newTestServer(t, counter)
	c := newTestClient(t, srv)
	ctx := context.Background()
	require.NoError(t, c.SignIn(ctx, "user@example.org", "hunter2"))

	day := time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC)
	seats, err := c.Seats(ctx, day, Hall{Name: "verdi", ID: 6})
	require.NoError(t, err)
	require.Len(t, seats, 1)
	assert.Equal(t, "A1", seats[0].SeatName)
	assert.False(t, seats[0].Slots[0].Reserved())
	assert.True(t, seats[0].Slots[1].Reserved())
}

func TestOwnBookings(t *testing.T) {
	counter := map[string]int{}
	srv := newTestServer(t, counter)
	c := newTestClient(t, srv)
	ctx := context.Background()
	require.NoError(t, c.SignIn(ctx, "user@example.org", "hunter2"))

	day := time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC)
	bookings, err := c.OwnBookings(ctx, day)
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.True(t, bookings[0].Active())
	assert.False(t, bookings[1].Active())
}

func TestBook(t *testing.T) {
	counter := map[string]int{}
	srv := newTestServer(t, counter)
	c := newTestClient(t, srv)
	ctx := context.Background()

	// Booking requires a token.
	err := c.Book(ctx, BookingRequest{})
	require.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, c.SignIn(ctx, "user@example.org", "hunter2"))
	req := BookingRequest{
		Date:      "25-03-2026",
		HallID:    "6",
		SeatID:    "17",
		StartTime: "09:00",
		EndTime:   "11:00",
	}
	require.NoError(t, c.Book(ctx, req))

	// The misspelled error field is still surfaced.
	err = c.Book(ctx, BookingRequest{Date: "25-03-2026"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "seat required", apiErr.Message)
}

func TestAvailabilityCache(t *testing.T) {
	counter := map[string]int{}
	srv := newTestServer(t, counter)
	c := newTestClient(t, srv)
	ctx := context.Background()
	require.NoError(t, c.SignIn(ctx, "user@example.org", "hunter2"))

	mr := miniredis.RunT(t)
	c.UseRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)

	day := time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC)
	hall := Hall{Name: "verdi", ID: 6}

	for i := 0; i < 3; i++ {
		slots, err := c.ValidSlots(ctx, day, hall)
		require.NoError(t, err)
		assert.Len(t, slots, 3)

		seats, err := c.Seats(ctx, day, hall)
		require.NoError(t, err)
		assert.Len(t, seats, 1)
	}

	assert.Equal(t, 1, counter["slots"], "repeated slot listings should hit the cache")
	assert.Equal(t, 1, counter["seats"], "repeated seat listings should hit the cache")
}

func TestHallLabel(t *testing.T) {
	assert.Equal(t, "VERDI (6)", Hall{Name: "verdi", ID: 6}.Label())
	assert.Equal(t, "ORMEA (3)", Hall{Name: "Ormea", ID: 3}.Label())
}
