package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/execscan"
	"github.com/jward/execscan/internal/runtime"
	"github.com/jward/execscan/scripts"
)

var (
	flagTrace          bool
	flagMatchingQuotes bool
)

var countCmd = &cobra.Command{
	Use:   "count <file>...",
	Short: "Report total and executable lines for Python files",
	Long:  "Classifies each file without touching the database and prints its line counts, executable percentage and remark.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCount,
}

func init() {
	countCmd.Flags().BoolVar(&flagTrace, "trace", false, "include the verdict for every line")
	countCmd.Flags().BoolVar(&flagMatchingQuotes, "matching-quotes", false, "only identical quote characters form a triple quote")
}

func runCount(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("matching-quotes") {
		cfg.MatchingQuotes = flagMatchingQuotes
	}
	a := newAnalyzer(logger)

	reports := make([]CLIReport, 0, len(args))
	for _, arg := range args {
		path, err := resolveFilePath(arg)
		if err != nil {
			return outputError("count", err)
		}

		var (
			rep   execscan.Report
			lines []CLILineVerdict
		)
		if flagTrace {
			rep, lines, err = a.Trace(cmd.Context(), path)
		} else {
			rep, err = a.Classify(cmd.Context(), path)
		}
		if err != nil {
			return outputError("count", err)
		}

		r := reportToCLI(rep)
		r.Lines = lines
		reports = append(reports, r)
	}

	return outputResult(CLIResult{
		Command: "count",
		Results: reports,
	})
}

// analyzer turns a file into a Report: classification, rating and the remark,
// which a Risor script may override.
type analyzer struct {
	opts       []execscan.ClassifyOption
	thresholds execscan.Thresholds
	rt         *runtime.Runtime
	script     string
	logger     *zap.Logger
}

// newAnalyzer builds an analyzer from the loaded config. No script runs
// unless remark_script or scripts_dir is set.
func newAnalyzer(l *zap.Logger) *analyzer {
	a := &analyzer{
		thresholds: thresholds(),
		logger:     l,
	}
	if cfg.MatchingQuotes {
		a.opts = append(a.opts, execscan.WithMatchingQuotes())
	}

	if cfg.RemarkScript == "" && cfg.ScriptsDir == "" {
		return a
	}
	a.script = cfg.RemarkScript
	if a.script == "" {
		a.script = runtime.DefaultRemarkScript
	}
	if cfg.ScriptsDir != "" {
		a.rt = runtime.NewRuntime(cfg.ScriptsDir, runtime.WithLogger(l))
	} else {
		a.rt = runtime.NewRuntime("", runtime.WithRuntimeFS(scripts.FS), runtime.WithLogger(l))
	}
	return a
}

// Classify reports on the file at path. Its signature matches tui.ClassifyFunc.
func (a *analyzer) Classify(ctx context.Context, path string) (execscan.Report, error) {
	res, err := execscan.ClassifyFile(path, a.opts...)
	if err != nil {
		return execscan.Report{}, err
	}
	return a.report(ctx, path, res), nil
}

// Trace is Classify plus the verdict for every line.
func (a *analyzer) Trace(ctx context.Context, path string) (execscan.Report, []CLILineVerdict, error) {
	f, err := os.Open(path)
	if err != nil {
		return execscan.Report{}, nil, fmt.Errorf("execscan: open %s: %w", path, err)
	}
	defer f.Close()

	verdicts, res, err := execscan.TraceReader(f, a.opts...)
	if err != nil {
		return execscan.Report{}, nil, fmt.Errorf("execscan: read %s: %w", path, err)
	}

	lines := make([]CLILineVerdict, len(verdicts))
	for i, v := range verdicts {
		lines[i] = CLILineVerdict{
			Line:          v.Number,
			Text:          v.Text,
			Executable:    v.Executable,
			InTripleQuote: v.InTripleQuote,
		}
	}
	return a.report(ctx, path, res), lines, nil
}

// report rates res and asks the remark script, if any, for the remark. A
// failing script is logged and the built-in remark is kept.
func (a *analyzer) report(ctx context.Context, path string, res execscan.Result) execscan.Report {
	rep := execscan.NewReport(path, res, a.thresholds)
	if a.rt == nil || rep.Blank {
		return rep
	}

	remark, err := a.rt.Remark(ctx, a.script, runtime.RemarkInput{
		Path:       path,
		Total:      rep.Total,
		Executable: rep.Executable,
		Percent:    rep.Percent,
		High:       a.thresholds.High,
		Low:        a.thresholds.Low,
	})
	if err != nil {
		a.logger.Warn("remark script failed; using built-in remark",
			zap.String("script", a.script),
			zap.String("path", path),
			zap.Error(err))
		return rep
	}
	rep.Remark = remark
	return rep
}
