package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/execscan"
	"github.com/jward/execscan/internal/config"
	"github.com/jward/execscan/internal/logging"
	"github.com/jward/execscan/internal/tui"
)

var (
	flagDB           string
	flagFormat       string
	flagConfig       string
	flagVerbose      bool
	flagRemarkScript string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// Resolved by the root PersistentPreRunE before any subcommand runs.
var (
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
	logger           = zap.NewNop()
	cfg              = config.Default()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "execscan",
	Short:         "Measure how much of a Python file actually runs",
	Long:          "Execscan counts the lines of Python source files, separates executable lines from comments, blank lines and docstrings, and reports the executable percentage.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !tui.IsInteractive() {
			return cmd.Help()
		}
		return runUI(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .execscan/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .execscan.yaml at repo root)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging to stderr")
	rootCmd.PersistentFlags().StringVar(&flagRemarkScript, "remark-script", "", "Risor script that picks the remark")

	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(uiCmd)
}

// setup validates global flags, builds the logger and loads the config for
// the repository containing the working directory.
func setup(cmd *cobra.Command) error {
	out = cmd.OutOrStdout()
	errOut = cmd.ErrOrStderr()

	if err := validateFormat(flagFormat); err != nil {
		return err
	}

	l, err := logging.New(flagVerbose)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	logger = l

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	c, err := loadConfig(findRepoRoot(cwd))
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// loadConfig resolves settings in increasing precedence: defaults, the config
// file, .env, then EXECSCAN_* variables and finally flags.
func loadConfig(repoRoot string) (*config.Config, error) {
	if err := config.LoadDotEnv(repoRoot); err != nil {
		return nil, err
	}

	var (
		c   *config.Config
		err error
	)
	if flagConfig != "" {
		c, err = config.LoadFile(flagConfig)
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("config file not found: %s", flagConfig)
		}
	} else {
		c, err = config.LoadOrDefault(repoRoot)
	}
	if err != nil {
		return nil, err
	}

	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if flagRemarkScript != "" {
		c.RemarkScript = flagRemarkScript
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("config loaded",
		zap.String("repo_root", repoRoot),
		zap.Float64("high", c.Thresholds.High),
		zap.Float64("low", c.Thresholds.Low),
		zap.Bool("matching_quotes", c.MatchingQuotes))
	return c, nil
}

func thresholds() execscan.Thresholds {
	return execscan.Thresholds{High: cfg.Thresholds.High, Low: cfg.Thresholds.Low}
}

var (
	flagForce      bool
	flagExtensions string
	flagWorkers    int
	flagSerial     bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Classify every Python file under a directory",
	Long:  "Walks the directory (respecting .gitignore inside git repositories), classifies changed files and writes the counts to the SQLite database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().StringVar(&flagExtensions, "extensions", "", "comma-separated extension filter (e.g. .py,.pyw)")
	indexCmd.Flags().IntVar(&flagWorkers, "workers", 0, "classification workers (default: config or NumCPU)")
	indexCmd.Flags().BoolVar(&flagSerial, "serial", false, "classify files one at a time")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dbDir, err)
	}

	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(errOut, "Cleared database: %s\n", dbPath)
	}

	engine, err := execscan.New(dbPath, engineOptions()...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	if engine.OptionsChanged() {
		fmt.Fprintln(errOut, "Classifier settings changed; reclassifying every file")
	}

	run, err := engine.IndexDirectory(cmd.Context(), targetDir)
	if run != nil {
		fmt.Fprintf(errOut, "Indexed %s in %s (%d files: %d classified, %d unchanged, %d failed)\n",
			targetDir,
			time.Since(start).Round(time.Millisecond),
			run.FileCount, run.Indexed, run.Skipped, run.Failed,
		)
		fmt.Fprintf(errOut, "Database: %s\n", dbPath)
	}
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	return nil
}

// engineOptions merges config values and index flags into Engine options.
func engineOptions() []execscan.Option {
	opts := []execscan.Option{
		execscan.WithLogger(logger),
		execscan.WithThresholds(thresholds()),
		execscan.WithQuoteMatching(cfg.MatchingQuotes),
		execscan.WithParallel(!flagSerial),
	}

	exts := cfg.Extensions
	if flagExtensions != "" {
		exts = splitList(flagExtensions)
	}
	if len(exts) > 0 {
		opts = append(opts, execscan.WithExtensions(exts...))
	}

	workers := cfg.Workers
	if flagWorkers > 0 {
		workers = flagWorkers
	}
	if workers > 0 {
		opts = append(opts, execscan.WithWorkers(workers))
	}
	return opts
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

var uiCmd = &cobra.Command{
	Use:   "ui [dir]",
	Short: "Pick a file interactively and show its report",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	if !tui.IsInteractive() {
		return errors.New("ui requires an interactive terminal (use 'execscan count <file>' instead)")
	}
	dir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	a := newAnalyzer(logger)
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = execscan.DefaultExtensions()
	}
	m := tui.New(cmd.Context(), dir, exts, a.Classify)
	return tui.Run(cmd.Context(), m)
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag, the config or
// the default, in that order.
func resolveDBPath(repoRoot string) string {
	db := flagDB
	if db == "" {
		db = cfg.DB
	}
	if db != "" {
		if filepath.IsAbs(db) {
			return db
		}
		return filepath.Join(repoRoot, db)
	}
	return filepath.Join(repoRoot, ".execscan", "index.db")
}
