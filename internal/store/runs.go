package store

import (
	"database/sql"
	"fmt"
	"time"
)

// --- Run operations ---

// InsertRun records the start of a run.
func (s *Store) InsertRun(r *Run) error {
	_, err := s.db.Exec(
		"INSERT INTO runs (id, root, started_at, file_count) VALUES (?, ?, ?, ?)",
		r.ID, r.Root, r.StartedAt, r.FileCount,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters of a run and stamps its finish time.
func (s *Store) FinishRun(r *Run) error {
	if r.FinishedAt == nil {
		now := time.Now()
		r.FinishedAt = &now
	}
	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, file_count = ?, indexed = ?, skipped = ?, failed = ?
		 WHERE id = ?`,
		*r.FinishedAt, r.FileCount, r.Indexed, r.Skipped, r.Failed, r.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

const runColumns = "id, root, started_at, finished_at, file_count, indexed, skipped, failed"

func scanRun(scanner interface{ Scan(...any) error }) (*Run, error) {
	r := &Run{}
	var root sql.NullString
	var finished sql.NullTime
	if err := scanner.Scan(&r.ID, &root, &r.StartedAt, &finished,
		&r.FileCount, &r.Indexed, &r.Skipped, &r.Failed); err != nil {
		return nil, err
	}
	r.Root = root.String
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return r, nil
}

// RunByID returns the run with the given ID, or nil if there is none.
func (s *Store) RunByID(id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("run by id: %w", err)
	}
	return r, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()
	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("recent runs: scan: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// --- Metadata ---

// GetMetadata returns the value stored under key, or "" if unset.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %s: %w", key, err)
	}
	return value, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}
