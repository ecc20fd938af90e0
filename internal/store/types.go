package store

import "time"

// File is the stored classification of one source file.
type File struct {
	ID              int64
	Path            string
	Language        string
	Hash            string
	Fingerprint     string // classifier settings that produced the counts
	TotalLines      int
	ExecutableLines int
	RunID           string
	LastIndexed     time.Time
}

// Run is one pass of the indexer over a set of files.
type Run struct {
	ID         string
	Root       string
	StartedAt  time.Time
	FinishedAt *time.Time
	FileCount  int
	Indexed    int
	Skipped    int
	Failed     int
}
