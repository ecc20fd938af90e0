package execscan

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/jward/execscan/internal/store"
)

const defaultCacheSize = 4096

// Engine orchestrates batch classification: file discovery, change
// detection, classification and persistence of per-file results.
type Engine struct {
	store      *store.Store
	logger     *zap.Logger
	extensions map[string]bool

	matchingQuotes bool
	thresholds     Thresholds
	cacheSize      int
	workers        int

	// cache maps content hashes to results for the Engine's lifetime.
	cache *lru.Cache[string, Result]

	// useParallel enables the parallel classification pipeline.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtensions restricts which file extensions the Engine will process.
func WithExtensions(exts ...string) Option {
	return func(e *Engine) {
		e.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			if ext = normalizeExtension(ext); ext != "" {
				e.extensions[ext] = true
			}
		}
	}
}

// WithParallel controls parallel classification. When true (default),
// IndexFiles uses a worker pool with a single writer committing one batch.
// Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers sets the worker pool size. Zero means one worker per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithQuoteMatching toggles the classifier's WithMatchingQuotes option.
func WithQuoteMatching(enabled bool) Option {
	return func(e *Engine) {
		e.matchingQuotes = enabled
	}
}

// WithThresholds sets the bands the Query API rates files with.
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) {
		e.thresholds = t
	}
}

// WithLogger sets the logger used for per-file diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCacheSize sets how many content hashes the result cache remembers.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		e.cacheSize = n
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("execscan: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("execscan: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		logger:      zap.NewNop(),
		thresholds:  DefaultThresholds(),
		cacheSize:   defaultCacheSize,
		useParallel: true, // default to parallel classification
	}
	WithExtensions(DefaultExtensions()...)(e)
	for _, opt := range opts {
		opt(e)
	}

	if e.cacheSize <= 0 {
		e.cacheSize = defaultCacheSize
	}
	e.cache, err = lru.New[string, Result](e.cacheSize)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("execscan: create cache: %w", err)
	}

	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store, thresholds: e.thresholds}
}

// fingerprint encodes the classifier settings that affect results.
func (e *Engine) fingerprint() string {
	return "matching_quotes=" + strconv.FormatBool(e.matchingQuotes)
}

// OptionsChanged reports whether any stored result was produced with
// classifier settings other than this Engine's. Each record carries its own
// fingerprint, so such files are reclassified whenever a run reaches them,
// however many runs that takes. An empty database counts as unchanged.
func (e *Engine) OptionsChanged() bool {
	n, err := e.store.CountStale(e.fingerprint())
	if err != nil {
		return true
	}
	return n > 0
}

func (e *Engine) classifyOptions() []ClassifyOption {
	if e.matchingQuotes {
		return []ClassifyOption{WithMatchingQuotes()}
	}
	return nil
}

// accepts reports whether path has one of the Engine's extensions.
func (e *Engine) accepts(path string) bool {
	return e.extensions[strings.ToLower(filepath.Ext(path))]
}

// languageFor names the language recorded for path.
func languageFor(path string) string {
	if lang, ok := LanguageForFile(path); ok {
		return lang
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// classifyContent classifies content, consulting the result cache by hash.
func (e *Engine) classifyContent(hash string, content []byte) Result {
	if res, ok := e.cache.Get(hash); ok {
		return res
	}
	// Reading from memory cannot fail.
	res, _ := ClassifyReader(bytes.NewReader(content), e.classifyOptions()...)
	e.cache.Add(hash, res)
	return res
}

func contentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// IndexFiles classifies the given file paths and stores the results.
// When WithParallel is enabled, uses a worker pool with one batched write.
// Otherwise falls back to the serial path.
//
// For each file:
// 1. Skip files whose extension is not configured
// 2. Skip unchanged files (same content hash, same classifier settings)
// 3. Classify and store the result
//
// Errors on individual files are logged and skipped; processing continues.
// The returned Run is non-nil whenever the run record could be created.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) (*Run, error) {
	return e.indexFiles(ctx, "", paths)
}

func (e *Engine) indexFiles(ctx context.Context, root string, paths []string) (*Run, error) {
	var accepted []string
	for _, p := range paths {
		if e.accepts(p) {
			accepted = append(accepted, p)
		}
	}

	run := &Run{
		ID:        uuid.NewString(),
		Root:      root,
		StartedAt: time.Now(),
		FileCount: len(accepted),
	}
	if err := e.store.InsertRun(run); err != nil {
		return nil, fmt.Errorf("execscan: start run: %w", err)
	}
	e.logger.Debug("run started",
		zap.String("run", run.ID),
		zap.String("root", root),
		zap.Int("files", len(accepted)),
		zap.Bool("parallel", e.useParallel))

	var err error
	if e.useParallel {
		err = e.indexFilesParallel(ctx, run, accepted)
	} else {
		err = e.indexFilesSerial(ctx, run, accepted)
	}

	if ferr := e.store.FinishRun(run); ferr != nil && err == nil {
		err = fmt.Errorf("execscan: finish run: %w", ferr)
	}
	e.logger.Debug("run finished",
		zap.String("run", run.ID),
		zap.Int("indexed", run.Indexed),
		zap.Int("skipped", run.Skipped),
		zap.Int("failed", run.Failed))
	return run, err
}

func (e *Engine) indexFilesSerial(ctx context.Context, run *Run, paths []string) error {
	existing, err := e.store.FileStamps(paths)
	if err != nil {
		return fmt.Errorf("execscan: lookup files: %w", err)
	}

	var errs []error
	for _, path := range paths {
		// After cancellation every remaining file fails without being read.
		var (
			f    *File
			skip bool
		)
		err := ctx.Err()
		if err == nil {
			f, skip, err = e.classifyPath(path, existing, run.ID)
		}
		switch {
		case err != nil:
			run.Failed++
			e.logger.Warn("classify failed", zap.String("path", path), zap.Error(err))
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		case skip:
			run.Skipped++
		default:
			if _, err := e.store.UpsertFile(f); err != nil {
				run.Failed++
				errs = append(errs, fmt.Errorf("store %s: %w", path, err))
				continue
			}
			run.Indexed++
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// classifyPath reads, hashes and classifies one file. skip is true when the
// stored record has the same hash and was produced with the same settings.
func (e *Engine) classifyPath(path string, existing map[string]store.Stamp, runID string) (*File, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read file: %w", err)
	}
	hash := contentHash(content)
	fingerprint := e.fingerprint()
	if old, ok := existing[path]; ok && old.Hash == hash && old.Fingerprint == fingerprint {
		return nil, true, nil // unchanged
	}

	res := e.classifyContent(hash, content)
	e.logger.Debug("classified",
		zap.String("path", path),
		zap.Int("total", res.Total),
		zap.Int("executable", res.Executable))

	return &File{
		Path:            path,
		Language:        languageFor(path),
		Hash:            hash,
		Fingerprint:     fingerprint,
		TotalLines:      res.Total,
		ExecutableLines: res.Executable,
		RunID:           runID,
		LastIndexed:     time.Now(),
	}, false, nil
}

// skipDirs lists directories that are excluded from indexing.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"venv":         true,
}

// IndexDirectory walks root and indexes all files with configured extensions.
// If root is inside a git repository, uses git ls-files to respect .gitignore.
// Falls back to filesystem walk (skipping hidden dirs, node_modules, vendor,
// __pycache__, venv) if git is unavailable. Stored records for files under
// root that no longer exist are removed.
func (e *Engine) IndexDirectory(ctx context.Context, root string) (*Run, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("execscan: resolve %s: %w", root, err)
	}
	paths, err := e.gitListFiles(abs)
	if err != nil {
		e.logger.Debug("git ls-files unavailable, walking", zap.String("root", abs), zap.Error(err))
		paths, err = e.walkListFiles(abs)
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(paths)

	if err := e.pruneMissing(abs, paths); err != nil {
		return nil, err
	}
	return e.indexFiles(ctx, abs, paths)
}

// pruneMissing deletes stored records under root that were not discovered.
func (e *Engine) pruneMissing(root string, discovered []string) error {
	stored, err := e.store.PathsUnder(strings.TrimSuffix(root, string(filepath.Separator)) + string(filepath.Separator))
	if err != nil {
		return fmt.Errorf("execscan: list stored files: %w", err)
	}
	seen := make(map[string]bool, len(discovered))
	for _, p := range discovered {
		seen[p] = true
	}
	var gone []string
	for _, p := range stored {
		if !seen[p] {
			gone = append(gone, p)
		}
	}
	if len(gone) == 0 {
		return nil
	}
	e.logger.Debug("pruning missing files", zap.Int("count", len(gone)))
	if err := e.store.DeleteFiles(gone); err != nil {
		return fmt.Errorf("execscan: prune: %w", err)
	}
	return nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to configured extensions.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if !e.accepts(absPath) {
			continue
		}
		// ls-files --cached lists deleted-but-tracked files too.
		if _, err := os.Stat(absPath); err != nil {
			continue
		}
		paths = append(paths, absPath)
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if e.accepts(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
