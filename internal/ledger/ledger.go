package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// Entry records one reservation the bot issued (or would have issued
// during a dry run).
type Entry struct {
	ID        string
	Day       string // DD-MM-YYYY, the service's day format
	Room      string
	SeatID    string
	SeatName  string
	StartTime string // HH:MM
	EndTime   string // HH:MM
	Status    string
	CreatedAt time.Time
}

// Entry statuses.
const (
	StatusBooked = "booked"
	StatusDryRun = "dry_run"
	StatusFailed = "failed"
)

// Ledger is the local booking history, kept so runs can be audited and
// reported on without re-querying the service.
type Ledger struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

// Open initializes the ledger database, creating the file and schema
// as needed.
func Open(path string, logger *zerolog.Logger) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to ledger: %w", err)
	}

	l := &Ledger{DB: db, path: path, logger: logger}
	if err := l.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("ledger initialized")
	return l, nil
}

func (l *Ledger) createTables() error {
	const schema = `CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		day TEXT NOT NULL,
		room TEXT NOT NULL,
		seat_id TEXT NOT NULL,
		seat_name TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_bookings_day ON bookings(day);`

	_, err := l.Exec(schema)
	return err
}

// Record inserts one entry, assigning it an id when missing, and
// returns the stored entry.
func (l *Ledger) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := l.ExecContext(ctx,
		`INSERT INTO bookings (id, day, room, seat_id, seat_name, start_time, end_time, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Day, e.Room, e.SeatID, e.SeatName, e.StartTime, e.EndTime, e.Status, e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to record booking: %w", err)
	}
	return e, nil
}

// ForDay returns the entries recorded for one day, oldest first.
func (l *Ledger) ForDay(ctx context.Context, day string) ([]Entry, error) {
	return l.query(ctx,
		`SELECT id, day, room, seat_id, seat_name, start_time, end_time, status, created_at
		 FROM bookings WHERE day = ? ORDER BY created_at, start_time`, day)
}

// All returns every recorded entry, oldest first.
func (l *Ledger) All(ctx context.Context) ([]Entry, error) {
	return l.query(ctx,
		`SELECT id, day, room, seat_id, seat_name, start_time, end_time, status, created_at
		 FROM bookings ORDER BY created_at, day, start_time`)
}

func (l *Ledger) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := l.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Day, &e.Room, &e.SeatID, &e.SeatName, &e.StartTime, &e.EndTime, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
