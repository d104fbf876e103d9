package capture

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const createCapturesTable = `CREATE TABLE IF NOT EXISTS captures (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	ts            TEXT    NOT NULL,
	conn_id       TEXT    NOT NULL,
	remote_addr   TEXT    NOT NULL,
	mode          TEXT    NOT NULL,
	kind          TEXT    NOT NULL,
	payload_len   INTEGER NOT NULL,
	payload_hex   TEXT    NOT NULL,
	payload_ascii TEXT    NOT NULL
)`

const insertCapture = `INSERT INTO captures
	(ts, conn_id, remote_addr, mode, kind, payload_len, payload_hex, payload_ascii)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteSink stores records in a SQLite database.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and prepares the table.
func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createCapturesTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create captures table: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Write inserts rec.
func (s *SQLiteSink) Write(rec Record) error {
	_, err := s.db.Exec(insertCapture,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.ConnID,
		rec.RemoteAddr,
		rec.Mode,
		string(rec.Kind),
		rec.PayloadLen,
		rec.PayloadHex,
		rec.PayloadASCII,
	)
	if err != nil {
		return fmt.Errorf("failed to insert capture: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *SQLiteSink) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM captures").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count captures: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
