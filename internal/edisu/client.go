package edisu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// ErrNotAuthenticated is returned when a call needs a token and SignIn
// has not succeeded yet.
var ErrNotAuthenticated = errors.New("not authenticated")

// APIError carries the service's own error message for a failed call.
type APIError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (status=%d)", e.Endpoint, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: status=%d", e.Endpoint, e.Status)
}

// Client talks to the study room reservation service. Listing calls go
// through the web API; the actual booking goes through the mobile app
// API, which is the only one that accepts a seat number and which
// insists on an "Accept-Language: it" header.
type Client struct {
	webBase    string
	bookBase   string
	httpClient *http.Client
	limiter    *rate.Limiter
	token      string

	redis    *redis.Client
	cacheTTL time.Duration

	observe func(endpoint string, seconds float64)
}

// NewClient constructs a client for the given web and booking base
// URLs, e.g. "https://host:8443/sbs" and "https://host/sbs".
func NewClient(webBase, bookBase string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		webBase:    strings.TrimRight(webBase, "/"),
		bookBase:   strings.TrimRight(bookBase, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(2), 4),
	}
}

// SetRateLimit overrides the default request pacing.
func (c *Client) SetRateLimit(perSecond float64, burst int) {
	if perSecond > 0 && burst > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// UseRedisCache enables read caching of the availability endpoints.
// Availability barely changes within a run, so short TTLs are enough.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// SetObserver installs a callback that receives the endpoint name and
// elapsed seconds of every request that actually goes over the wire.
func (c *Client) SetObserver(fn func(endpoint string, seconds float64)) {
	c.observe = fn
}

func (c *Client) observeSince(endpoint string, started time.Time) {
	if c.observe != nil {
		c.observe(endpoint, time.Since(started).Seconds())
	}
}

// SignIn authenticates with email and password and stores the bearer
// token for subsequent calls.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	form := url.Values{"email": {email}, "password": {password}}
	var resp signinResponse
	started := time.Now()
	err := c.postForm(ctx, c.webBase+"/web/signin", form, &resp)
	c.observeSince("signin", started)
	if err != nil {
		return fmt.Errorf("signin: %w", err)
	}
	if resp.Token == "" {
		return &APIError{Endpoint: "signin", Message: resp.Message}
	}
	c.token = resp.Token
	return nil
}

// ValidSlots returns the slot start times ("HH:MM") the service offers
// in the hall on the given day, in the service's order.
func (c *Client) ValidSlots(ctx context.Context, day time.Time, hall Hall) ([]string, error) {
	form := url.Values{"date": {FormatDay(day)}, "hall": {hall.Label()}}
	cacheKey := fmt.Sprintf("slots:%s:%d", FormatDay(day), hall.ID)

	var resp slotsResponse
	if !c.readCache(ctx, cacheKey, &resp) {
		started := time.Now()
		err := c.postForm(ctx, c.webBase+"/web/student/slots", form, &resp)
		c.observeSince("slots", started)
		if err != nil {
			return nil, fmt.Errorf("slots: %w", err)
		}
		if len(resp.Result.Data.List) == 0 {
			return nil, &APIError{Endpoint: "slots", Status: resp.Status, Message: message(resp.Message, resp.Messsage)}
		}
		c.writeCache(ctx, cacheKey, resp)
	}

	// List entries look like "09:00 - 09:30"; only the start matters.
	starts := make([]string, 0, len(resp.Result.Data.List))
	for _, entry := range resp.Result.Data.List {
		starts = append(starts, strings.SplitN(entry, " ", 2)[0])
	}
	return starts, nil
}

// Seats returns the per-seat slot grids for the hall on the given day.
func (c *Client) Seats(ctx context.Context, day time.Time, hall Hall) ([]SeatGrid, error) {
	form := url.Values{"date": {FormatDay(day)}, "hall": {hall.Label()}}
	cacheKey := fmt.Sprintf("seats:%s:%d", FormatDay(day), hall.ID)

	var resp seatsResponse
	if c.readCache(ctx, cacheKey, &resp) {
		return resp.Result.Seats, nil
	}
	started := time.Now()
	err := c.postForm(ctx, c.webBase+"/web/student/seats", form, &resp)
	c.observeSince("seats", started)
	if err != nil {
		return nil, fmt.Errorf("seats: %w", err)
	}
	if len(resp.Result.Seats) == 0 {
		return nil, &APIError{Endpoint: "seats", Status: resp.Status, Message: message(resp.Message, resp.Messsage)}
	}
	c.writeCache(ctx, cacheKey, resp)
	return resp.Result.Seats, nil
}

// OwnBookings lists the user's reservations for the day, including
// cancelled ones; callers filter by Active and hall.
func (c *Client) OwnBookings(ctx context.Context, day time.Time) ([]BookingEntry, error) {
	form := url.Values{"date": {FormatDay(day)}, "filter": {"-1"}}
	var resp bookingListResponse
	started := time.Now()
	err := c.postForm(ctx, c.webBase+"/web/studentbookinglist", form, &resp)
	c.observeSince("booking_list", started)
	if err != nil {
		return nil, fmt.Errorf("booking list: %w", err)
	}
	if resp.Status != http.StatusAccepted {
		return nil, &APIError{Endpoint: "booking list", Status: resp.Status, Message: message(resp.Message, resp.Messsage)}
	}
	return resp.Result.Slots, nil
}

// Book issues one reservation through the app API.
func (c *Client) Book(ctx context.Context, req BookingRequest) error {
	if c.token == "" {
		return ErrNotAuthenticated
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.bookBase+"/booking/custombooking", strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Accept-Language", "it")

	var resp bookingResponse
	started := time.Now()
	err = c.do(httpReq, &resp)
	c.observeSince("booking", started)
	if err != nil {
		return fmt.Errorf("booking: %w", err)
	}
	if resp.Status != http.StatusAccepted {
		return &APIError{Endpoint: "booking", Status: resp.Status, Message: message(resp.Message, resp.Messsage)}
	}
	return nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

// message picks whichever spelling of the error field the API used.
func message(msg, misspelled string) string {
	if msg != "" {
		return msg
	}
	return misspelled
}
