package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/execscan"
	"github.com/jward/execscan/internal/store"
)

var (
	flagLimit  int
	flagOffset int
	flagSort   string
	flagOrder  string
	flagPrefix string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the classification index",
	Long:  "Run queries against an indexed directory. Run 'execscan index' first.",
}

func init() {
	queryCmd.PersistentFlags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	queryCmd.PersistentFlags().IntVar(&flagOffset, "offset", 0, "pagination offset")
	queryCmd.PersistentFlags().StringVar(&flagSort, "sort", "", "sort field: path|total|executable|percent")
	queryCmd.PersistentFlags().StringVar(&flagOrder, "order", "asc", "sort order: asc|desc")

	filesCmd.Flags().StringVar(&flagPrefix, "prefix", "", "filter by path prefix")

	queryCmd.AddCommand(filesCmd)
	queryCmd.AddCommand(fileCmd)
	queryCmd.AddCommand(summaryCmd)
	queryCmd.AddCommand(runsCmd)
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List classified files",
	RunE:  runFiles,
}

func runFiles(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("files", err)
	}
	defer s.Close()

	prefix := flagPrefix
	if prefix != "" {
		if prefix, err = resolveFilePath(prefix); err != nil {
			return outputError("files", err)
		}
	}

	qb := queryBuilder(s)
	result, err := qb.Files(prefix, buildSort(), buildPagination())
	if err != nil {
		return outputError("files", err)
	}

	cliFiles := make([]CLIFile, len(result.Items))
	for i := range result.Items {
		cliFiles[i] = fileToCLI(qb, &result.Items[i])
	}

	return outputResult(CLIResult{
		Command:    "files",
		Results:    cliFiles,
		TotalCount: &result.TotalCount,
	})
}

var fileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Show the stored report for one file",
	Args:  cobra.ExactArgs(1),
	RunE:  runFile,
}

func runFile(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("file", err)
	}
	defer s.Close()

	path, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("file", err)
	}

	qb := queryBuilder(s)
	f, err := qb.FileByPath(path)
	if err != nil {
		return outputError("file", err)
	}
	if f == nil {
		return outputError("file", fmt.Errorf("file not indexed: %s", args[0]))
	}

	return outputResult(CLIResult{
		Command: "file",
		Results: reportToCLI(qb.Report(f)),
	})
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show project-level line statistics",
	RunE:  runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("summary", err)
	}
	defer s.Close()

	summary, err := queryBuilder(s).Summary()
	if err != nil {
		return outputError("summary", err)
	}

	cliSummary := CLISummary{
		FileCount:       summary.FileCount,
		BlankFiles:      summary.BlankFiles,
		TotalLines:      summary.TotalLines,
		ExecutableLines: summary.ExecutableLines,
		Percent:         summary.Percent,
		Ratings:         make(map[string]int, len(summary.Ratings)),
		Languages:       make([]CLILanguageStats, len(summary.Languages)),
	}
	for rating, n := range summary.Ratings {
		cliSummary.Ratings[string(rating)] = n
	}
	for i, ls := range summary.Languages {
		cliSummary.Languages[i] = CLILanguageStats{
			Language:        ls.Language,
			FileCount:       ls.FileCount,
			TotalLines:      ls.TotalLines,
			ExecutableLines: ls.ExecutableLines,
		}
	}

	return outputResult(CLIResult{
		Command: "summary",
		Results: cliSummary,
	})
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent indexing runs, newest first",
	RunE:  runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("runs", err)
	}
	defer s.Close()

	runs, err := queryBuilder(s).Runs(flagLimit)
	if err != nil {
		return outputError("runs", err)
	}

	cliRuns := make([]CLIRun, len(runs))
	for i, r := range runs {
		cliRuns[i] = runToCLI(r)
	}

	return outputResult(CLIResult{
		Command: "runs",
		Results: cliRuns,
	})
}

// --- Helpers ---

// openStore opens the Store from the --db flag path (or default).
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	repoRoot := findRepoRoot(cwd)
	dbPath := resolveDBPath(repoRoot)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'execscan index' first)", dbPath)
	}

	return store.NewStore(dbPath)
}

func queryBuilder(s *store.Store) *execscan.QueryBuilder {
	return execscan.NewQueryBuilder(s).WithThresholds(thresholds())
}

// resolveFilePath converts a file argument to an absolute path.
// If the path is already absolute, it's returned as-is.
// Otherwise, it's resolved relative to the current working directory.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(errOut, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// buildPagination creates a Pagination from CLI flags.
func buildPagination() execscan.Pagination {
	return execscan.Pagination{
		Limit:  flagLimit,
		Offset: flagOffset,
	}
}

// buildSort creates a Sort from CLI flags.
func buildSort() execscan.Sort {
	var field execscan.SortField
	switch flagSort {
	case "total":
		field = execscan.SortByTotal
	case "executable":
		field = execscan.SortByExecutable
	case "percent":
		field = execscan.SortByPercent
	default:
		field = execscan.SortByPath
	}

	var order execscan.SortOrder
	switch flagOrder {
	case "desc":
		order = execscan.Desc
	default:
		order = execscan.Asc
	}

	return execscan.Sort{Field: field, Order: order}
}

func fileToCLI(qb *execscan.QueryBuilder, f *execscan.File) CLIFile {
	rep := qb.Report(f)
	return CLIFile{
		ID:              f.ID,
		Path:            f.Path,
		Language:        f.Language,
		TotalLines:      f.TotalLines,
		ExecutableLines: f.ExecutableLines,
		Percent:         rep.Percent,
		Rating:          string(rep.Rating),
		RunID:           f.RunID,
	}
}

func reportToCLI(rep execscan.Report) CLIReport {
	return CLIReport{
		Path:            rep.Path,
		TotalLines:      rep.Total,
		ExecutableLines: rep.Executable,
		Percent:         rep.Percent,
		Rating:          string(rep.Rating),
		Remark:          rep.Remark,
		Blank:           rep.Blank,
		Message:         rep.Message(),
	}
}

func runToCLI(r *execscan.Run) CLIRun {
	return CLIRun{
		ID:         r.ID,
		Root:       r.Root,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		FileCount:  r.FileCount,
		Indexed:    r.Indexed,
		Skipped:    r.Skipped,
		Failed:     r.Failed,
	}
}
