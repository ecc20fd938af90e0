package main

import "time"

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIReport is the outcome for one classified file.
type CLIReport struct {
	Path            string           `json:"path"`
	TotalLines      int              `json:"total_lines"`
	ExecutableLines int              `json:"executable_lines"`
	Percent         float64          `json:"percent"`
	Rating          string           `json:"rating"`
	Remark          string           `json:"remark,omitempty"`
	Blank           bool             `json:"blank"`
	Message         string           `json:"message"`
	Lines           []CLILineVerdict `json:"lines,omitempty"`
}

// CLILineVerdict is one line of a --trace listing.
type CLILineVerdict struct {
	Line          int    `json:"line"`
	Text          string `json:"text"`
	Executable    bool   `json:"executable"`
	InTripleQuote bool   `json:"in_triple_quote"`
}

// CLIFile is a JSON-friendly stored file.
type CLIFile struct {
	ID              int64   `json:"id"`
	Path            string  `json:"path"`
	Language        string  `json:"language"`
	TotalLines      int     `json:"total_lines"`
	ExecutableLines int     `json:"executable_lines"`
	Percent         float64 `json:"percent"`
	Rating          string  `json:"rating"`
	RunID           string  `json:"run_id,omitempty"`
}

// CLILanguageStats provides per-language breakdown.
type CLILanguageStats struct {
	Language        string `json:"language"`
	FileCount       int    `json:"file_count"`
	TotalLines      int    `json:"total_lines"`
	ExecutableLines int    `json:"executable_lines"`
}

// CLISummary is the JSON form of a project summary.
type CLISummary struct {
	FileCount       int                `json:"file_count"`
	BlankFiles      int                `json:"blank_files"`
	TotalLines      int                `json:"total_lines"`
	ExecutableLines int                `json:"executable_lines"`
	Percent         float64            `json:"percent"`
	Ratings         map[string]int     `json:"ratings"`
	Languages       []CLILanguageStats `json:"languages"`
}

// CLIRun is one indexing run.
type CLIRun struct {
	ID         string     `json:"id"`
	Root       string     `json:"root,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	FileCount  int        `json:"file_count"`
	Indexed    int        `json:"indexed"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
}
