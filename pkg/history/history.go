// Package history keeps a sqlite log of light readings and shade commands.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/itohio/plantguard/pkg/guard"
	"github.com/itohio/plantguard/pkg/telemetry"
	_ "github.com/mattn/go-sqlite3"
)

// CommandEntry is a shade command as sent to the board.
type CommandEntry struct {
	ID        int64         `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Command   guard.Command `json:"-"`
	Action    string        `json:"action"` // "A" or "F"
	Source    string        `json:"source"`
}

// Store wraps the SQLite database connection.
type Store struct {
	db *sql.DB
}

// Open opens the database and initializes the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			percent INTEGER NOT NULL,
			band TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_readings_ts ON readings(timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create readings table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS commands (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			command TEXT NOT NULL,
			source TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_commands_ts ON commands(timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create commands table: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSample appends a reading.
func (s *Store) RecordSample(sample telemetry.Sample) error {
	_, err := s.db.Exec(`INSERT INTO readings (timestamp, percent, band) VALUES (?, ?, ?)`,
		sample.Timestamp.UnixMilli(), sample.Percent, sample.Band.String())
	if err != nil {
		return fmt.Errorf("failed to record reading: %w", err)
	}
	return nil
}

// RecordCommand appends a command sent to the board by source.
func (s *Store) RecordCommand(ts time.Time, cmd guard.Command, source string) error {
	_, err := s.db.Exec(`INSERT INTO commands (timestamp, command, source) VALUES (?, ?, ?)`,
		ts.UnixMilli(), string(rune(cmd)), source)
	if err != nil {
		return fmt.Errorf("failed to record command: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest readings, oldest first.
func (s *Store) Recent(limit int) ([]telemetry.Sample, error) {
	rows, err := s.db.Query(`
		SELECT timestamp, percent FROM (
			SELECT id, timestamp, percent FROM readings
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		) ORDER BY timestamp ASC, id ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// Range returns the readings with start <= timestamp <= end, oldest first.
func (s *Store) Range(start, end time.Time) ([]telemetry.Sample, error) {
	rows, err := s.db.Query(`
		SELECT timestamp, percent FROM readings
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, id ASC
	`, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// Commands returns up to limit of the newest commands, newest first.
func (s *Store) Commands(limit int) ([]CommandEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, timestamp, command, source FROM commands
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer rows.Close()

	var entries []CommandEntry
	for rows.Next() {
		var (
			e      CommandEntry
			ts     int64
			action string
			source sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &action, &source); err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts)
		e.Action = action
		if len(action) == 1 {
			e.Command = guard.Command(action[0])
		}
		e.Source = source.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune removes readings and commands older than retention. It returns the
// number of rows removed.
func (s *Store) Prune(retention time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-retention).UnixMilli()

	var total int64
	for _, table := range []string{"readings", "commands"} {
		result, err := s.db.Exec(`DELETE FROM `+table+` WHERE timestamp < ?`, cutoff)
		if err != nil {
			return total, fmt.Errorf("failed to prune %s: %w", table, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// scanSamples rebuilds samples from (timestamp, percent) rows. Band and
// outputs are recomputed from the fixed band table.
func scanSamples(rows *sql.Rows) ([]telemetry.Sample, error) {
	var samples []telemetry.Sample
	for rows.Next() {
		var ts int64
		var percent int
		if err := rows.Scan(&ts, &percent); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		samples = append(samples, telemetry.Classify(time.UnixMilli(ts), percent))
	}
	return samples, rows.Err()
}
