package store

import (
	"database/sql"
	"fmt"
)

const fileColumns = "id, path, language, hash, fingerprint, total_lines, executable_lines, run_id, last_indexed"

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// UpsertFile inserts f, or replaces the stored record with the same path.
// f.ID is set to the row's ID.
func (s *Store) UpsertFile(f *File) (int64, error) {
	if _, err := upsertFileTx(s.db, f); err != nil {
		return 0, err
	}
	// LastInsertId is unreliable for the update branch of an upsert.
	if err := s.db.QueryRow("SELECT id FROM files WHERE path = ?", f.Path).Scan(&f.ID); err != nil {
		return 0, fmt.Errorf("upsert file: lookup id: %w", err)
	}
	return f.ID, nil
}

func upsertFileTx(ex execer, f *File) (sql.Result, error) {
	var runID any
	if f.RunID != "" {
		runID = f.RunID
	}
	res, err := ex.Exec(
		`INSERT INTO files (path, language, hash, fingerprint, total_lines, executable_lines, run_id, last_indexed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   language = excluded.language,
		   hash = excluded.hash,
		   fingerprint = excluded.fingerprint,
		   total_lines = excluded.total_lines,
		   executable_lines = excluded.executable_lines,
		   run_id = excluded.run_id,
		   last_indexed = excluded.last_indexed`,
		f.Path, f.Language, f.Hash, f.Fingerprint, f.TotalLines, f.ExecutableLines, runID, f.LastIndexed,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert file %s: %w", f.Path, err)
	}
	return res, nil
}

// ScanFile reads one row selected with FileColumns.
func ScanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var hash, fingerprint, runID sql.NullString
	var lastIndexed sql.NullTime
	if err := scanner.Scan(&f.ID, &f.Path, &f.Language, &hash, &fingerprint, &f.TotalLines,
		&f.ExecutableLines, &runID, &lastIndexed); err != nil {
		return nil, err
	}
	f.Hash = hash.String
	f.Fingerprint = fingerprint.String
	f.RunID = runID.String
	if lastIndexed.Valid {
		f.LastIndexed = lastIndexed.Time
	}
	return f, nil
}

// FileColumns is the column list ScanFile expects, in order.
func FileColumns() string {
	return fileColumns
}

// FileByPath returns the stored record for path, or nil if there is none.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := ScanFile(s.db.QueryRow("SELECT "+fileColumns+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Stamp is what change detection compares for a stored file.
type Stamp struct {
	Hash        string
	Fingerprint string
}

// FileStamps returns path -> Stamp for every stored file whose path is in paths.
func (s *Store) FileStamps(paths []string) (map[string]Stamp, error) {
	stamps := make(map[string]Stamp, len(paths))
	for start := 0; start < len(paths); start += maxParams {
		chunk := paths[start:min(start+maxParams, len(paths))]
		rows, err := s.db.Query(
			"SELECT path, hash, fingerprint FROM files WHERE path IN ("+placeholderList(len(chunk))+")",
			stringsToArgs(chunk)...,
		)
		if err != nil {
			return nil, fmt.Errorf("file stamps: %w", err)
		}
		for rows.Next() {
			var path string
			var hash, fingerprint sql.NullString
			if err := rows.Scan(&path, &hash, &fingerprint); err != nil {
				rows.Close()
				return nil, fmt.Errorf("file stamps: scan: %w", err)
			}
			stamps[path] = Stamp{Hash: hash.String, Fingerprint: fingerprint.String}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("file stamps: rows: %w", err)
		}
		rows.Close()
	}
	return stamps, nil
}

// CountStale returns how many stored files were classified with settings
// other than fingerprint. Rows with no fingerprint count as stale.
func (s *Store) CountStale(fingerprint string) (int, error) {
	var n int
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM files WHERE fingerprint IS NOT ?", fingerprint,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count stale: %w", err)
	}
	return n, nil
}

// PathsUnder returns the stored paths that start with prefix.
func (s *Store) PathsUnder(prefix string) ([]string, error) {
	rows, err := s.db.Query(
		"SELECT path FROM files WHERE path LIKE ? ESCAPE '\\' ORDER BY path",
		EscapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("paths under: %w", err)
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("paths under: scan: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// DeleteFiles removes the records for the given paths.
func (s *Store) DeleteFiles(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("delete files: begin: %w", err)
	}
	defer tx.Rollback()

	for start := 0; start < len(paths); start += maxParams {
		chunk := paths[start:min(start+maxParams, len(paths))]
		if _, err := tx.Exec(
			"DELETE FROM files WHERE path IN ("+placeholderList(len(chunk))+")",
			stringsToArgs(chunk)...,
		); err != nil {
			return fmt.Errorf("delete files: %w", err)
		}
	}
	return tx.Commit()
}
