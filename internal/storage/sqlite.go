// Package storage provides durable persistence for the field log: a local
// SQLite store holding per-team status histories and the transmission log,
// plus an optional PostgreSQL incident archive.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"sar_tracker/internal/fieldlog"
)

// ErrNotFound reports that the store's database file does not exist. Callers
// use it to distinguish "never initialized" from "initialized, no data".
var ErrNotFound = errors.New("storage: database file not found")

// schema contains the SQLite table definitions. status_history holds the
// team's full ordered history as a JSON array; current_status and
// current_location are projections recomputed on every append.
const schema = `
CREATE TABLE IF NOT EXISTS team_status (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT UNIQUE NOT NULL,
	status_history   TEXT,
	current_status   TEXT,
	current_location TEXT,
	updated          TEXT
);

CREATE TABLE IF NOT EXISTS transmissions (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT,
	dest      TEXT,
	src       TEXT,
	msg       TEXT
);
`

// Store wraps a SQLite database holding the field log.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the store at the given path, creating parent
// directories and the schema as needed. Safe to call on an existing store.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	// WAL lets a concurrent reader (the state server) coexist with the
	// logging session; the busy timeout waits out transient locks instead of
	// failing. The _pragma form applies to every pooled connection.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path backing this store.
func (s *Store) Path() string {
	return s.path
}

// AppendStatus appends one status entry to its team's stored history and
// overwrites the current-status and current-location projections, creating
// the team row on first sight. History and projections move together inside
// one transaction.
func (s *Store) AppendStatus(entry fieldlog.StatusEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var historyText sql.NullString
	err = tx.QueryRow(`SELECT status_history FROM team_status WHERE name = ?`, entry.Team).Scan(&historyText)
	exists := true
	if err != nil {
		if err != sql.ErrNoRows {
			return fmt.Errorf("lookup team %q: %w", entry.Team, err)
		}
		exists = false
	}

	history := decodeHistory(historyText)
	history = append(history, entry)

	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	currentJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal current status: %w", err)
	}
	updated := time.Now().UTC().Format(time.RFC3339)

	if exists {
		_, err = tx.Exec(`
			UPDATE team_status
			SET status_history = ?, current_status = ?, current_location = ?, updated = ?
			WHERE name = ?
		`, string(historyJSON), string(currentJSON), entry.Location, updated, entry.Team)
	} else {
		_, err = tx.Exec(`
			INSERT INTO team_status (name, status_history, current_status, current_location, updated)
			VALUES (?, ?, ?, ?, ?)
		`, entry.Team, string(historyJSON), string(currentJSON), entry.Location, updated)
	}
	if err != nil {
		return fmt.Errorf("write team %q: %w", entry.Team, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// AppendTransmission inserts one transmission at the end of the traffic log.
func (s *Store) AppendTransmission(t fieldlog.Transmission) error {
	_, err := s.db.Exec(`
		INSERT INTO transmissions (timestamp, dest, src, msg) VALUES (?, ?, ?, ?)
	`, t.Timestamp, t.Dest, t.Src, t.Msg)
	if err != nil {
		return fmt.Errorf("insert transmission: %w", err)
	}
	return nil
}

// ReplaceAll discards every stored row and reinserts from the document, all
// inside one transaction: a full destructive replace, not a merge. Teams
// known only by location get a row with an empty history so a later load
// recovers the location.
func (s *Store) ReplaceAll(doc *fieldlog.Document) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM team_status`); err != nil {
		return fmt.Errorf("clear team_status: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM transmissions`); err != nil {
		return fmt.Errorf("clear transmissions: %w", err)
	}

	updated := time.Now().UTC().Format(time.RFC3339)

	for _, name := range sortedTeams(doc) {
		history := doc.StatusByTeam[name]
		if history == nil {
			history = []fieldlog.StatusEntry{}
		}

		historyJSON, err := json.Marshal(history)
		if err != nil {
			return fmt.Errorf("marshal history for %q: %w", name, err)
		}

		var currentJSON sql.NullString
		currentLoc := doc.LocationByTeam[name]
		if len(history) > 0 {
			last := history[len(history)-1]
			b, err := json.Marshal(last)
			if err != nil {
				return fmt.Errorf("marshal current status for %q: %w", name, err)
			}
			currentJSON = sql.NullString{String: string(b), Valid: true}
			if last.Location != "" {
				currentLoc = last.Location
			}
		}

		_, err = tx.Exec(`
			INSERT INTO team_status (name, status_history, current_status, current_location, updated)
			VALUES (?, ?, ?, ?, ?)
		`, name, string(historyJSON), currentJSON, nullIfEmpty(currentLoc), updated)
		if err != nil {
			return fmt.Errorf("insert team %q: %w", name, err)
		}
	}

	for _, t := range doc.Transmissions {
		_, err := tx.Exec(`
			INSERT INTO transmissions (timestamp, dest, src, msg) VALUES (?, ?, ?, ?)
		`, t.Timestamp, t.Dest, t.Src, t.Msg)
		if err != nil {
			return fmt.Errorf("insert transmission: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// LoadAll reads every stored row back into the document shape. An empty
// store yields a valid document with all collections present and empty. A
// team whose stored history cannot be parsed degrades to an empty history
// rather than failing the whole load.
func (s *Store) LoadAll() (*fieldlog.Document, error) {
	doc := fieldlog.NewDocument()

	rows, err := s.db.Query(`SELECT name, status_history, current_location FROM team_status`)
	if err != nil {
		return nil, fmt.Errorf("query team_status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var name string
		var historyText, currentLoc sql.NullString
		if err := rows.Scan(&name, &historyText, &currentLoc); err != nil {
			return nil, fmt.Errorf("scan team row: %w", err)
		}

		history := decodeHistory(historyText)
		doc.StatusByTeam[name] = history

		// Prefer the stored projection, fall back to the last history entry.
		switch {
		case currentLoc.Valid && currentLoc.String != "":
			doc.LocationByTeam[name] = currentLoc.String
		case len(history) > 0 && history[len(history)-1].Location != "":
			doc.LocationByTeam[name] = history[len(history)-1].Location
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate team rows: %w", err)
	}

	txRows, err := s.db.Query(`SELECT timestamp, dest, src, msg FROM transmissions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query transmissions: %w", err)
	}
	defer func() { _ = txRows.Close() }()

	for txRows.Next() {
		var t fieldlog.Transmission
		var ts, dest, src, msg sql.NullString
		if err := txRows.Scan(&ts, &dest, &src, &msg); err != nil {
			return nil, fmt.Errorf("scan transmission row: %w", err)
		}
		t.Timestamp = ts.String
		t.Dest = dest.String
		t.Src = src.String
		t.Msg = msg.String
		doc.Transmissions = append(doc.Transmissions, t)
	}
	if err := txRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transmission rows: %w", err)
	}

	return doc, nil
}

// Load reads the full document from the store at path. Returns ErrNotFound
// when the database file does not exist, distinct from the empty document an
// initialized-but-unwritten store yields.
func Load(path string) (*fieldlog.Document, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat database file: %w", err)
	}

	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()

	return s.LoadAll()
}

// decodeHistory parses a stored history column, degrading malformed data for
// a single team to an empty history.
func decodeHistory(text sql.NullString) []fieldlog.StatusEntry {
	if !text.Valid || text.String == "" {
		return []fieldlog.StatusEntry{}
	}
	var history []fieldlog.StatusEntry
	if err := json.Unmarshal([]byte(text.String), &history); err != nil {
		return []fieldlog.StatusEntry{}
	}
	if history == nil {
		history = []fieldlog.StatusEntry{}
	}
	return history
}

// sortedTeams returns the union of teams named by either map, sorted so bulk
// rewrites assign row IDs deterministically.
func sortedTeams(doc *fieldlog.Document) []string {
	seen := make(map[string]bool, len(doc.StatusByTeam))
	var names []string
	for name := range doc.StatusByTeam {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range doc.LocationByTeam {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
