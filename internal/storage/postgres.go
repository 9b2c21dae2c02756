package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"sar_tracker/internal/fieldlog"
)

// PostgresConfig holds PostgreSQL connection settings for the incident
// archive.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresDB wraps a PostgreSQL connection pool used to archive incident
// snapshots for cross-incident aggregation.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() {
	d.pool.Close()
}

// CreateSchema creates the archive tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	-- Per-incident team state, mirrored from the local store.
	CREATE TABLE IF NOT EXISTS incident_team_status (
		id               SERIAL PRIMARY KEY,
		incident         TEXT NOT NULL,
		name             TEXT NOT NULL,
		status_history   JSONB NOT NULL DEFAULT '[]',
		current_status   JSONB,
		current_location TEXT,
		archived_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(incident, name)
	);

	CREATE INDEX IF NOT EXISTS idx_incident_team_status_incident ON incident_team_status(incident);

	-- Per-incident transmission traffic, rewritten on each archive run.
	CREATE TABLE IF NOT EXISTS incident_transmissions (
		id        SERIAL PRIMARY KEY,
		incident  TEXT NOT NULL,
		seq       INTEGER NOT NULL,
		timestamp TEXT,
		dest      TEXT,
		src       TEXT,
		msg       TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_incident_transmissions_incident ON incident_transmissions(incident, seq);
	`

	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create archive schema: %w", err)
	}
	return nil
}

// ArchiveSnapshot mirrors a full store document into the archive under the
// given incident name. Team rows are upserted; the incident's transmissions
// are rewritten so repeated archives of the same incident stay idempotent.
func (d *PostgresDB) ArchiveSnapshot(ctx context.Context, incident string, doc *fieldlog.Document) error {
	if incident == "" {
		return fmt.Errorf("incident name required")
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin archive: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, name := range sortedTeams(doc) {
		history := doc.StatusByTeam[name]
		if history == nil {
			history = []fieldlog.StatusEntry{}
		}

		historyJSON, err := json.Marshal(history)
		if err != nil {
			return fmt.Errorf("marshal history for %q: %w", name, err)
		}

		var currentJSON []byte
		if len(history) > 0 {
			currentJSON, err = json.Marshal(history[len(history)-1])
			if err != nil {
				return fmt.Errorf("marshal current status for %q: %w", name, err)
			}
		}

		var currentLoc any
		if loc, ok := doc.LocationByTeam[name]; ok && loc != "" {
			currentLoc = loc
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO incident_team_status (incident, name, status_history, current_status, current_location, archived_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (incident, name) DO UPDATE SET
				status_history = EXCLUDED.status_history,
				current_status = EXCLUDED.current_status,
				current_location = EXCLUDED.current_location,
				archived_at = EXCLUDED.archived_at
		`, incident, name, historyJSON, currentJSON, currentLoc)
		if err != nil {
			return fmt.Errorf("archive team %q: %w", name, err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM incident_transmissions WHERE incident = $1`, incident); err != nil {
		return fmt.Errorf("clear incident transmissions: %w", err)
	}

	for i, t := range doc.Transmissions {
		_, err := tx.Exec(ctx, `
			INSERT INTO incident_transmissions (incident, seq, timestamp, dest, src, msg)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, incident, i, t.Timestamp, t.Dest, t.Src, t.Msg)
		if err != nil {
			return fmt.Errorf("archive transmission: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit archive: %w", err)
	}
	return nil
}

// LoadIncident reads an archived incident back into the document shape. An
// unknown incident yields an empty document; errors are genuine query
// failures.
func (d *PostgresDB) LoadIncident(ctx context.Context, incident string) (*fieldlog.Document, error) {
	doc := fieldlog.NewDocument()

	rows, err := d.pool.Query(ctx, `
		SELECT name, status_history, current_location
		FROM incident_team_status
		WHERE incident = $1
	`, incident)
	if err != nil {
		return nil, fmt.Errorf("query incident teams: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var historyJSON []byte
		var currentLoc *string
		if err := rows.Scan(&name, &historyJSON, &currentLoc); err != nil {
			return nil, fmt.Errorf("scan incident team: %w", err)
		}

		var history []fieldlog.StatusEntry
		if err := json.Unmarshal(historyJSON, &history); err != nil {
			history = nil
		}
		if history == nil {
			history = []fieldlog.StatusEntry{}
		}
		doc.StatusByTeam[name] = history

		switch {
		case currentLoc != nil && *currentLoc != "":
			doc.LocationByTeam[name] = *currentLoc
		case len(history) > 0 && history[len(history)-1].Location != "":
			doc.LocationByTeam[name] = history[len(history)-1].Location
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incident teams: %w", err)
	}

	txRows, err := d.pool.Query(ctx, `
		SELECT timestamp, dest, src, msg
		FROM incident_transmissions
		WHERE incident = $1
		ORDER BY seq
	`, incident)
	if err != nil {
		return nil, fmt.Errorf("query incident transmissions: %w", err)
	}
	defer txRows.Close()

	for txRows.Next() {
		var ts, dest, src, msg *string
		if err := txRows.Scan(&ts, &dest, &src, &msg); err != nil {
			return nil, fmt.Errorf("scan incident transmission: %w", err)
		}
		doc.Transmissions = append(doc.Transmissions, fieldlog.Transmission{
			Timestamp: deref(ts),
			Dest:      deref(dest),
			Src:       deref(src),
			Msg:       deref(msg),
		})
	}
	if err := txRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incident transmissions: %w", err)
	}

	return doc, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
