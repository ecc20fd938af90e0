package execscan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/execscan/internal/store"
)

// seedFiles stores one record per entry without touching the filesystem.
func seedFiles(t *testing.T, e *Engine, files map[string]Result) {
	t.Helper()
	for path, res := range files {
		_, err := e.Store().UpsertFile(&store.File{
			Path:            path,
			Language:        languageFor(path),
			Hash:            path,
			TotalLines:      res.Total,
			ExecutableLines: res.Executable,
			LastIndexed:     time.Now(),
		})
		require.NoError(t, err)
	}
}

func paths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestPagination_Normalize(t *testing.T) {
	assert.Equal(t, Pagination{Offset: 0, Limit: defaultLimit}, Pagination{Offset: -3}.normalize())
	assert.Equal(t, Pagination{Offset: 2, Limit: maxLimit}, Pagination{Offset: 2, Limit: 10000}.normalize())
	assert.Equal(t, Pagination{Offset: 1, Limit: 7}, Pagination{Offset: 1, Limit: 7}.normalize())
}

func TestNormalizePathPrefix(t *testing.T) {
	assert.Equal(t, "", normalizePathPrefix(""))
	assert.Equal(t, "src/app/", normalizePathPrefix("src/app"))
	assert.Equal(t, "src/app/", normalizePathPrefix("src/app/"))
}

func TestFiles_SortAndPage(t *testing.T) {
	e := newTestEngine(t)
	seedFiles(t, e, map[string]Result{
		"/repo/a.py": {Total: 10, Executable: 9},
		"/repo/b.py": {Total: 4, Executable: 1},
		"/repo/c.py": {Total: 0, Executable: 0},
		"/repo/d.py": {Total: 2, Executable: 1},
	})
	q := e.Query()

	res, err := q.Files("", Sort{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalCount)
	assert.Equal(t, []string{"/repo/a.py", "/repo/b.py", "/repo/c.py", "/repo/d.py"}, paths(res.Items))

	res, err = q.Files("", Sort{Field: SortByPercent, Order: Desc}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{"/repo/a.py", "/repo/d.py", "/repo/b.py", "/repo/c.py"}, paths(res.Items))

	res, err = q.Files("", Sort{Field: SortByTotal, Order: Asc}, Pagination{Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalCount, "total count ignores paging")
	assert.Equal(t, []string{"/repo/d.py", "/repo/b.py"}, paths(res.Items))

	res, err = q.Files("", Sort{Field: SortByExecutable, Order: Desc}, Pagination{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"/repo/a.py"}, paths(res.Items))
}

func TestFiles_PathPrefix(t *testing.T) {
	e := newTestEngine(t)
	seedFiles(t, e, map[string]Result{
		"/repo/app/a.py":       {Total: 1, Executable: 1},
		"/repo/app_utils/b.py": {Total: 1, Executable: 1},
		"/repo/other/c.py":     {Total: 1, Executable: 1},
	})

	res, err := e.Query().Files("/repo/app", Sort{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalCount)
	assert.Equal(t, []string{"/repo/app/a.py"}, paths(res.Items))
}

func TestFiles_Empty(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.Query().Files("", Sort{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalCount)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
}

func TestQueryFileByPath(t *testing.T) {
	e := newTestEngine(t)
	seedFiles(t, e, map[string]Result{"/repo/a.py": {Total: 4, Executable: 3}})
	q := e.Query()

	f, err := q.FileByPath("/repo/a.py")
	require.NoError(t, err)
	require.NotNil(t, f)
	rep := q.Report(f)
	assert.Equal(t, RatingNeutral, rep.Rating)
	assert.Equal(t, "75.0%", rep.PercentText())

	f, err = q.FileByPath("/repo/missing.py")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestSummary(t *testing.T) {
	e := newTestEngine(t)
	seedFiles(t, e, map[string]Result{
		"/repo/a.py":  {Total: 10, Executable: 9}, // efficient
		"/repo/b.py":  {Total: 4, Executable: 3},  // neutral at the bound
		"/repo/c.py":  {Total: 10, Executable: 1}, // comment heavy
		"/repo/d.py":  {Total: 0, Executable: 0},  // blank
		"/repo/e.pyi": {Total: 6, Executable: 3},  // neutral
	})

	s, err := e.Query().Summary()
	require.NoError(t, err)
	assert.Equal(t, 5, s.FileCount)
	assert.Equal(t, 1, s.BlankFiles)
	assert.Equal(t, 30, s.TotalLines)
	assert.Equal(t, 16, s.ExecutableLines)
	assert.InDelta(t, 16.0/30.0*100, s.Percent, 1e-9)
	assert.Equal(t, map[Rating]int{
		RatingEfficient:    1,
		RatingNeutral:      2,
		RatingCommentHeavy: 1,
		RatingBlank:        1,
	}, s.Ratings)
	require.Len(t, s.Languages, 1)
	assert.Equal(t, "python", s.Languages[0].Language)
	assert.Equal(t, 5, s.Languages[0].FileCount)
}

func TestSummary_CustomThresholds(t *testing.T) {
	e := newTestEngine(t, WithThresholds(Thresholds{High: 95, Low: 5}))
	seedFiles(t, e, map[string]Result{"/repo/a.py": {Total: 10, Executable: 9}})

	s, err := e.Query().Summary()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Ratings[RatingNeutral])

	s, err = e.Query().WithThresholds(DefaultThresholds()).Summary()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Ratings[RatingEfficient])
}

func TestSummary_Empty(t *testing.T) {
	e := newTestEngine(t)
	s, err := e.Query().Summary()
	require.NoError(t, err)
	assert.Equal(t, 0, s.FileCount)
	assert.Zero(t, s.Percent)
	assert.Empty(t, s.Languages)
}

func TestRuns_Empty(t *testing.T) {
	e := newTestEngine(t)
	runs, err := e.Query().Runs(0)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestNewQueryBuilder_DefaultThresholds(t *testing.T) {
	e := newTestEngine(t, WithThresholds(Thresholds{High: 10, Low: 5}))
	qb := NewQueryBuilder(e.Store())

	rep := qb.Report(&File{Path: "a.py", TotalLines: 4, ExecutableLines: 2})
	assert.Equal(t, RatingNeutral, rep.Rating)
	assert.Equal(t, RatingEfficient, e.Query().Report(&File{Path: "a.py", TotalLines: 4, ExecutableLines: 2}).Rating)
}
