package logbook

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jlgabriel/IGC2FDR/internal/fdr"
)

const schema = `
CREATE TABLE IF NOT EXISTS flights (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tail TEXT NOT NULL,
	flight_date TEXT NOT NULL,
	pilot TEXT NOT NULL,
	aircraft TEXT NOT NULL,
	start_utc INTEGER NOT NULL,
	end_utc INTEGER NOT NULL,
	duration_seconds INTEGER NOT NULL,
	distance_miles REAL NOT NULL,
	points INTEGER NOT NULL,
	output_path TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_flights_tail ON flights(tail);
`

// Logbook archives converted flights in a sqlite database. All timestamps
// are stored as Unix seconds.
type Logbook struct {
	db *sql.DB
}

// Open opens the logbook at path, creating the file and schema when absent.
func Open(path string) (*Logbook, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open logbook: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("logbook pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("logbook schema: %w", err)
	}
	return &Logbook{db: db}, nil
}

func (l *Logbook) Close() error {
	return l.db.Close()
}

// Entry is one archived conversion.
type Entry struct {
	Tail          string
	FlightDate    string
	Pilot         string
	Aircraft      string
	StartUTC      time.Time
	EndUTC        time.Time
	Duration      time.Duration
	DistanceMiles float64
	Points        int
	OutputPath    string
}

// Record inserts one converted flight.
func (l *Logbook) Record(ctx context.Context, f *fdr.Flight, outputPath string) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO flights (tail, flight_date, pilot, aircraft, start_utc, end_utc,
			duration_seconds, distance_miles, points, output_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Tail,
		f.Date.Format("2006-01-02"),
		f.Meta.Pilot,
		f.Aircraft,
		f.Meta.StartTime.Unix(),
		f.Meta.EndTime.Unix(),
		int64(f.Meta.Duration/time.Second),
		f.Meta.DistanceMiles,
		len(f.Track),
		outputPath,
	)
	if err != nil {
		return fmt.Errorf("record flight: %w", err)
	}
	return nil
}

// Flights returns the archived flights for one tail, most recent first.
func (l *Logbook) Flights(ctx context.Context, tail string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT tail, flight_date, pilot, aircraft, start_utc, end_utc,
			duration_seconds, distance_miles, points, output_path
		FROM flights WHERE tail = ? ORDER BY start_utc DESC, id DESC`, tail)
	if err != nil {
		return nil, fmt.Errorf("query flights: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			start, end int64
			secs       int64
		)
		if err := rows.Scan(&e.Tail, &e.FlightDate, &e.Pilot, &e.Aircraft,
			&start, &end, &secs, &e.DistanceMiles, &e.Points, &e.OutputPath); err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		e.StartUTC = time.Unix(start, 0).UTC()
		e.EndUTC = time.Unix(end, 0).UTC()
		e.Duration = time.Duration(secs) * time.Second
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
