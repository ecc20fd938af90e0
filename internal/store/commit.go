package store

import "fmt"

// CommitBatch upserts every buffered record within a single transaction.
// Either all records are written or none are.
func (s *Store) CommitBatch(batch *Batch) error {
	files := batch.Files()
	if len(files) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	for i := range files {
		if _, err := upsertFileTx(tx, &files[i]); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: commit: %w", err)
	}
	return nil
}
