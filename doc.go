// Package execscan measures how much of a Python source file is executable.
//
// Every line is counted. A line counts as executable unless it is blank, a
// comment, or part of a triple-quoted block. The classifier is a small state
// machine fed one line at a time; whether it is inside a triple-quoted block
// is the only state carried between lines.
//
// # Pipeline
//
// Single files are classified in memory:
//
//	res, err := execscan.ClassifyFile("app.py")
//	if err != nil { ... }
//	rep := execscan.NewReport("app.py", res, execscan.DefaultThresholds())
//	fmt.Println(rep.Message())
//
// Directories go through an Engine, which stores one row per file in SQLite
// and reclassifies only files whose content hash changed:
//
//	e, err := execscan.New(".execscan/index.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	run, err := e.IndexDirectory(ctx, "path/to/project")
//	summary, err := e.Query().Summary()
//
// # Reports
//
// A Report rates the executable percentage against Thresholds. Above High
// is efficient, below Low is comment heavy, and both bounds are neutral. A
// source with no lines is blank and never gets a percentage.
package execscan
