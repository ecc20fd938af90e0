package execscan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jward/execscan/internal/store"
)

// QueryBuilder provides read access to stored classification results.
type QueryBuilder struct {
	store      *store.Store
	thresholds Thresholds
}

// NewQueryBuilder creates a QueryBuilder over s that rates files with the
// default thresholds.
func NewQueryBuilder(s *Store) *QueryBuilder {
	return &QueryBuilder{store: s, thresholds: DefaultThresholds()}
}

// WithThresholds returns a copy of q that rates files with t.
func (q *QueryBuilder) WithThresholds(t Thresholds) *QueryBuilder {
	cp := *q
	cp.thresholds = t
	return &cp
}

// --- Common Types ---

// Pagination controls offset+limit paging on list results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// SortField specifies how to order results.
type SortField string

const (
	SortByPath       SortField = "path"
	SortByTotal      SortField = "total"
	SortByExecutable SortField = "executable"
	SortByPercent    SortField = "percent"
)

// SortOrder specifies ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort controls result ordering.
type Sort struct {
	Field SortField
	Order SortOrder
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int // total matching results (before pagination)
}

// normalizePathPrefix ensures a path prefix ends with "/" for correct LIKE matching.
// "src/app" -> "src/app/" to prevent matching "src/app_utils/".
func normalizePathPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

// fileSortColumn returns the SQL ORDER BY expression for file queries.
// Blank files sort below every non-blank file by percentage.
// Falls back to "path" for unknown fields.
func fileSortColumn(field SortField) string {
	switch field {
	case SortByTotal:
		return "total_lines"
	case SortByExecutable:
		return "executable_lines"
	case SortByPercent:
		return "CASE WHEN total_lines = 0 THEN -1 ELSE executable_lines * 100.0 / total_lines END"
	default:
		return "path"
	}
}

// sortDirection returns "ASC" or "DESC".
func sortDirection(order SortOrder) string {
	if order == Desc {
		return "DESC"
	}
	return "ASC"
}

// --- Enumeration Endpoints ---

// Files lists stored files, optionally restricted to those under pathPrefix.
func (q *QueryBuilder) Files(pathPrefix string, sort Sort, page Pagination) (*PagedResult[File], error) {
	page = page.normalize()

	var where []string
	var args []any

	if pathPrefix != "" {
		prefix := normalizePathPrefix(pathPrefix)
		where = append(where, "path LIKE ? ESCAPE '\\'")
		args = append(args, store.EscapeLike(prefix)+"%")
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	// Count
	var totalCount int
	if err := q.store.DB().QueryRow("SELECT COUNT(*) FROM files "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("files: count: %w", err)
	}

	// Data
	orderCol := fileSortColumn(sort.Field)
	orderDir := sortDirection(sort.Order)

	dataSQL := fmt.Sprintf(
		`SELECT %s FROM files %s ORDER BY %s %s, path ASC LIMIT ? OFFSET ?`,
		store.FileColumns(), whereClause, orderCol, orderDir,
	)
	dataArgs := append(append([]any{}, args...), page.Limit, page.Offset)

	rows, err := q.store.DB().Query(dataSQL, dataArgs...)
	if err != nil {
		return nil, fmt.Errorf("files: query: %w", err)
	}
	defer rows.Close()

	items := []File{}
	for rows.Next() {
		f, err := store.ScanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("files: scan: %w", err)
		}
		items = append(items, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("files: rows: %w", err)
	}

	return &PagedResult[File]{Items: items, TotalCount: totalCount}, nil
}

// FileByPath returns the stored record for path, or nil if it was never indexed.
func (q *QueryBuilder) FileByPath(path string) (*File, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Report builds the Report for a stored file using the builder's thresholds.
func (q *QueryBuilder) Report(f *File) Report {
	return NewReport(f.Path, Result{Total: f.TotalLines, Executable: f.ExecutableLines}, q.thresholds)
}

// Runs returns up to limit runs, newest first.
func (q *QueryBuilder) Runs(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	runs, err := q.store.RecentRuns(min(limit, maxLimit))
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	if runs == nil {
		runs = []*Run{}
	}
	return runs, nil
}

// --- Digest Endpoints ---

// LanguageStats provides per-language breakdown for ProjectSummary.
type LanguageStats struct {
	Language        string `json:"language"`
	FileCount       int    `json:"file_count"`
	TotalLines      int    `json:"total_lines"`
	ExecutableLines int    `json:"executable_lines"`
}

// ProjectSummary aggregates every stored file.
type ProjectSummary struct {
	FileCount       int             `json:"file_count"`
	BlankFiles      int             `json:"blank_files"`
	TotalLines      int             `json:"total_lines"`
	ExecutableLines int             `json:"executable_lines"`
	Percent         float64         `json:"percent"`
	Ratings         map[Rating]int  `json:"ratings"`
	Languages       []LanguageStats `json:"languages"`
}

// Result returns the summed counts across all files.
func (s *ProjectSummary) Result() Result {
	return Result{Total: s.TotalLines, Executable: s.ExecutableLines}
}

// Summary returns a high-level overview of the indexed files. Each file is
// rated individually; the aggregate percentage is over the summed line counts.
func (q *QueryBuilder) Summary() (*ProjectSummary, error) {
	summary := &ProjectSummary{
		Ratings: map[Rating]int{
			RatingEfficient:    0,
			RatingNeutral:      0,
			RatingCommentHeavy: 0,
			RatingBlank:        0,
		},
		Languages: []LanguageStats{},
	}

	langRows, err := q.store.DB().Query(
		`SELECT language, COUNT(*), COALESCE(SUM(total_lines), 0), COALESCE(SUM(executable_lines), 0)
		 FROM files GROUP BY language`,
	)
	if err != nil {
		return nil, fmt.Errorf("summary: languages: %w", err)
	}
	defer langRows.Close()
	for langRows.Next() {
		var ls LanguageStats
		if err := langRows.Scan(&ls.Language, &ls.FileCount, &ls.TotalLines, &ls.ExecutableLines); err != nil {
			return nil, fmt.Errorf("summary: scan language: %w", err)
		}
		summary.Languages = append(summary.Languages, ls)
		summary.FileCount += ls.FileCount
		summary.TotalLines += ls.TotalLines
		summary.ExecutableLines += ls.ExecutableLines
	}
	if err := langRows.Err(); err != nil {
		return nil, fmt.Errorf("summary: language rows: %w", err)
	}
	sort.Slice(summary.Languages, func(i, j int) bool {
		return summary.Languages[i].Language < summary.Languages[j].Language
	})

	// Rate in Go so the bands match Report exactly.
	countRows, err := q.store.DB().Query(
		`SELECT total_lines, executable_lines, COUNT(*) FROM files GROUP BY total_lines, executable_lines`,
	)
	if err != nil {
		return nil, fmt.Errorf("summary: ratings: %w", err)
	}
	defer countRows.Close()
	for countRows.Next() {
		var res Result
		var n int
		if err := countRows.Scan(&res.Total, &res.Executable, &n); err != nil {
			return nil, fmt.Errorf("summary: scan rating: %w", err)
		}
		pct, ok := res.Percent()
		if !ok {
			summary.BlankFiles += n
			summary.Ratings[RatingBlank] += n
			continue
		}
		summary.Ratings[q.thresholds.Rate(pct)] += n
	}
	if err := countRows.Err(); err != nil {
		return nil, fmt.Errorf("summary: rating rows: %w", err)
	}

	if pct, ok := summary.Result().Percent(); ok {
		summary.Percent = pct
	}
	return summary, nil
}
