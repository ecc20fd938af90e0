package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
)

// formatReportsText prints each report's message, separated by blank lines.
// Reports carrying a trace get a per-line table first.
func formatReportsText(w io.Writer, reports []CLIReport) {
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if len(reports) > 1 || len(r.Lines) > 0 {
			fmt.Fprintf(w, "%s\n", r.Path)
		}
		if len(r.Lines) > 0 {
			formatTraceText(w, r.Lines)
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, r.Message)
	}
}

// formatTraceText prints one row per line: number, verdict, text.
func formatTraceText(w io.Writer, lines []CLILineVerdict) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tEXEC\tQUOTED\tTEXT")
	for _, l := range lines {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", l.Line, yesNo(l.Executable), yesNo(l.InTripleQuote), l.Text)
	}
	tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tTOTAL\tEXECUTABLE\tPERCENT\tRATING")
	for _, f := range files {
		pct := "-"
		if f.TotalLines > 0 {
			pct = fmt.Sprintf("%.1f%%", f.Percent)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n",
			f.Path, f.TotalLines, f.ExecutableLines, pct, f.Rating)
	}
	tw.Flush()
}

// formatSummaryText formats CLISummary as readable text.
func formatSummaryText(w io.Writer, summary CLISummary) {
	fmt.Fprintln(w, "Project Summary")
	fmt.Fprintln(w, "===============")
	fmt.Fprintf(w, "Files: %d (%d blank)\n", summary.FileCount, summary.BlankFiles)
	fmt.Fprintf(w, "Lines: %d total, %d executable", summary.TotalLines, summary.ExecutableLines)
	if summary.TotalLines > 0 {
		fmt.Fprintf(w, " (%.1f%%)", summary.Percent)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	if len(summary.Ratings) > 0 {
		fmt.Fprintln(w, "Ratings:")
		ratings := make([]string, 0, len(summary.Ratings))
		for r := range summary.Ratings {
			ratings = append(ratings, r)
		}
		sort.Strings(ratings)
		for _, r := range ratings {
			fmt.Fprintf(w, "  %s: %d\n", r, summary.Ratings[r])
		}
		fmt.Fprintln(w)
	}

	if len(summary.Languages) > 0 {
		fmt.Fprintln(w, "Languages:")
		for _, lang := range summary.Languages {
			fmt.Fprintf(w, "  %s: %d files, %d of %d lines executable\n",
				lang.Language, lang.FileCount, lang.ExecutableLines, lang.TotalLines)
		}
	}
}

// formatRunsText formats CLIRun results as aligned columns.
func formatRunsText(w io.Writer, runs []CLIRun) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tFILES\tCLASSIFIED\tUNCHANGED\tFAILED\tROOT")
	for _, r := range runs {
		duration := "running"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Format(time.DateTime), duration,
			r.FileCount, r.Indexed, r.Skipped, r.Failed, r.Root)
	}
	tw.Flush()
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(result CLIResult) error {
	w := out

	switch v := result.Results.(type) {
	case []CLIReport:
		formatReportsText(w, v)
	case CLIReport:
		formatReportsText(w, []CLIReport{v})
	case []CLIFile:
		formatFilesText(w, v)
	case CLISummary:
		formatSummaryText(w, v)
	case []CLIRun:
		formatRunsText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	// Pagination footer.
	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}

	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLIReport:
		return len(r)
	case []CLIFile:
		return len(r)
	case []CLIRun:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
