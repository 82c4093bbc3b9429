package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sadopc/wiretap/internal/capture"
	_ "modernc.org/sqlite"
)

// Archive persists captured events across runs.
type Archive struct {
	db *sql.DB
}

// Open creates or opens an archive at the given path.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive db: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Archive{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id               TEXT PRIMARY KEY,
			timestamp        TEXT NOT NULL,
			method           TEXT NOT NULL,
			url              TEXT NOT NULL,
			status_code      INTEGER,
			status_text      TEXT,
			elapsed_ns       INTEGER,
			request_headers  TEXT,
			request_body     BLOB,
			response_headers TEXT,
			response_body    BLOB,
			timeline         TEXT,
			error            TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_events_url ON events(url);
	`)
	if err != nil {
		return fmt.Errorf("creating events table: %w", err)
	}
	return nil
}

// Put inserts or replaces one event.
func (a *Archive) Put(e capture.Event) error {
	reqHeaders, err := json.Marshal(e.RequestHeaders)
	if err != nil {
		return fmt.Errorf("encoding request headers: %w", err)
	}
	respHeaders, err := json.Marshal(e.ResponseHeaders)
	if err != nil {
		return fmt.Errorf("encoding response headers: %w", err)
	}
	timeline, err := json.Marshal(e.Timeline)
	if err != nil {
		return fmt.Errorf("encoding timeline: %w", err)
	}

	_, err = a.db.Exec(`
		INSERT OR REPLACE INTO events
			(id, timestamp, method, url, status_code, status_text, elapsed_ns,
			 request_headers, request_body, response_headers, response_body, timeline, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC().Format(time.RFC3339Nano), e.Method, e.URL,
		e.StatusCode, e.StatusText, e.Elapsed.Nanoseconds(),
		string(reqHeaders), e.RequestBody, string(respHeaders), e.ResponseBody,
		string(timeline), e.Err,
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// Get retrieves one event by ID.
func (a *Archive) Get(id string) (capture.Event, error) {
	row := a.db.QueryRow(selectColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return capture.Event{}, fmt.Errorf("event %s not found", id)
	}
	if err != nil {
		return capture.Event{}, fmt.Errorf("loading event: %w", err)
	}
	return e, nil
}

// List returns the most recent events.
func (a *Archive) List(limit, offset int) ([]capture.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.Query(selectColumns+`
		FROM events
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Search returns events whose URL contains the query, most recent first.
func (a *Archive) Search(query string) ([]capture.Event, error) {
	rows, err := a.db.Query(selectColumns+`
		FROM events
		WHERE url LIKE ?
		ORDER BY timestamp DESC
		LIMIT 50`, "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("searching events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Clear removes all archived events.
func (a *Archive) Clear() error {
	_, err := a.db.Exec("DELETE FROM events")
	return err
}

// Close closes the database connection.
func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Follow drains a hub subscription and persists each event until the channel
// closes or the context is canceled. Persistence failures are dropped; the
// archive never affects live capture.
func (a *Archive) Follow(ctx context.Context, events <-chan capture.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			_ = a.Put(e)
		}
	}
}

const selectColumns = `
	SELECT id, timestamp, method, url, status_code, status_text, elapsed_ns,
	       request_headers, request_body, response_headers, response_body, timeline, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (capture.Event, error) {
	var e capture.Event
	var ts string
	var elapsedNs int64
	var reqHeaders, respHeaders, timeline string

	err := row.Scan(&e.ID, &ts, &e.Method, &e.URL, &e.StatusCode, &e.StatusText,
		&elapsedNs, &reqHeaders, &e.RequestBody, &respHeaders, &e.ResponseBody,
		&timeline, &e.Err)
	if err != nil {
		return capture.Event{}, err
	}

	e.Elapsed = time.Duration(elapsedNs)
	e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
	_ = json.Unmarshal([]byte(reqHeaders), &e.RequestHeaders)
	_ = json.Unmarshal([]byte(respHeaders), &e.ResponseHeaders)
	_ = json.Unmarshal([]byte(timeline), &e.Timeline)
	return e, nil
}

func scanEvents(rows *sql.Rows) ([]capture.Event, error) {
	var events []capture.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
