// Package store persists run history to a local SQLite database. The
// store is a collaborator for presentation and trend commands; the
// analysis engine never reads it.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"cratescope/internal/logging"
)

// RunRecord is one persisted run summary.
type RunRecord struct {
	RunID       string    `json:"runId"`
	Project     string    `json:"project"`
	GeneratedAt time.Time `json:"generatedAt"`
	Packages    int       `json:"packages"`
	Entities    int       `json:"entities"`
	Edges       int       `json:"edges"`
	TopStyle    string    `json:"topStyle,omitempty"`
	Diagnostics int       `json:"diagnostics"`
}

// Store wraps the history database.
type Store struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

// Open opens or creates the history database at <root>/.cratescope/history.db.
func Open(root string, logger *logging.Logger) (*Store, error) {
	dir := filepath.Join(root, ".cratescope")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .cratescope directory: %w", err)
	}
	dbPath := filepath.Join(dir, "history.db")

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{conn: conn, logger: logger.WithComponent("store"), dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id       TEXT PRIMARY KEY,
    project      TEXT NOT NULL,
    generated_at TEXT NOT NULL,
    packages     INTEGER NOT NULL,
    entities     INTEGER NOT NULL,
    edges        INTEGER NOT NULL,
    top_style    TEXT,
    diagnostics  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project, generated_at DESC);
`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// SaveRun inserts one run summary. Duplicate run ids are rejected.
func (s *Store) SaveRun(rec RunRecord) error {
	_, err := s.conn.Exec(
		`INSERT INTO runs (run_id, project, generated_at, packages, entities, edges, top_style, diagnostics)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Project, rec.GeneratedAt.UTC().Format(time.RFC3339),
		rec.Packages, rec.Entities, rec.Edges, rec.TopStyle, rec.Diagnostics,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", rec.RunID, err)
	}
	s.logger.Debug("Run saved", map[string]interface{}{
		"runId":   rec.RunID,
		"project": rec.Project,
	})
	return nil
}

// ListRuns returns the most recent runs for a project, newest first.
// An empty project matches all projects.
func (s *Store) ListRuns(project string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT run_id, project, generated_at, packages, entities, edges, top_style, diagnostics
	          FROM runs`
	args := []interface{}{}
	if project != "" {
		query += " WHERE project = ?"
		args = append(args, project)
	}
	query += " ORDER BY generated_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var generatedAt string
		var topStyle sql.NullString
		if err := rows.Scan(&rec.RunID, &rec.Project, &generatedAt,
			&rec.Packages, &rec.Entities, &rec.Edges, &topStyle, &rec.Diagnostics); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, generatedAt); err == nil {
			rec.GeneratedAt = ts
		}
		rec.TopStyle = topStyle.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}
