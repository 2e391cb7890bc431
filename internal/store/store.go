package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/emberloop/ember/internal/loop"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection holding generation run history.
type Store struct {
	conn *sql.DB
}

// RunRecord is one completed generation run.
type RunRecord struct {
	ID         string
	Board      string
	StartedAt  time.Time
	FinishedAt time.Time
	Success    bool
	Nodes      int
}

// NodeRecord is one node's outcome within a run.
type NodeRecord struct {
	RunID       string
	NodeID      string
	Description string
	Status      string
	Iterations  int
	LastReport  string
}

// Open opens the SQLite database at path, enables WAL mode, and runs migrations.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{conn: conn}, nil
}

func migrate(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			board       TEXT NOT NULL,
			started_at  DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			success     INTEGER NOT NULL DEFAULT 0,
			nodes       INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS nodes (
			run_id      TEXT NOT NULL REFERENCES runs(id),
			node_id     TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL,
			iterations  INTEGER NOT NULL DEFAULT 0,
			last_report TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, node_id)
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// SaveRun records a finished run and all of its node outcomes.
func (s *Store) SaveRun(run *loop.RunResult, boardID string, started, finished time.Time) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	success := 0
	if run.Succeeded() {
		success = 1
	}
	_, err = tx.Exec(`
		INSERT INTO runs (id, board, started_at, finished_at, success, nodes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, boardID,
		started.UTC().Format(time.RFC3339),
		finished.UTC().Format(time.RFC3339),
		success, len(run.Nodes),
	)
	if err != nil {
		return err
	}

	for _, node := range run.Nodes {
		_, err = tx.Exec(`
			INSERT INTO nodes (run_id, node_id, description, status, iterations, last_report)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, node.Spec.ID, node.Spec.Description,
			string(node.Status), len(node.Iterations), node.LastReport,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Runs returns all recorded runs, most recent first.
func (s *Store) Runs() ([]RunRecord, error) {
	rows, err := s.conn.Query(`
		SELECT id, board, started_at, finished_at, success, nodes
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var startedAt, finishedAt string
		var success int
		if err := rows.Scan(&r.ID, &r.Board, &startedAt, &finishedAt, &success, &r.Nodes); err != nil {
			return nil, err
		}
		r.Success = success != 0
		r.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", startedAt, err)
		}
		r.FinishedAt, err = time.Parse(time.RFC3339, finishedAt)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at %q: %w", finishedAt, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// NodesForRun returns the node outcomes recorded for the given run.
// Returns sql.ErrNoRows if the run does not exist.
func (s *Store) NodesForRun(runID string) ([]NodeRecord, error) {
	var exists int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, sql.ErrNoRows
	}

	rows, err := s.conn.Query(`
		SELECT run_id, node_id, description, status, iterations, last_report
		FROM nodes WHERE run_id = ? ORDER BY node_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []NodeRecord
	for rows.Next() {
		var n NodeRecord
		if err := rows.Scan(&n.RunID, &n.NodeID, &n.Description, &n.Status, &n.Iterations, &n.LastReport); err != nil {
			return nil, err
		}
		records = append(records, n)
	}
	return records, rows.Err()
}
