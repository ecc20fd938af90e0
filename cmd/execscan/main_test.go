package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jward/execscan/internal/config"
)

const mixedSource = "# comment\nx = 1\n\"\"\"doc\nstill doc\n\"\"\"\ny = 2\n"

// execute runs the root command in-process with fresh flag values.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetGlobals()
	for _, key := range []string{
		config.EnvDB, config.EnvWorkers, config.EnvMatchingQuotes,
		config.EnvRemarkScript, config.EnvHigh, config.EnvLow,
	} {
		t.Setenv(key, "")
	}

	var o, e bytes.Buffer
	rootCmd.SetOut(&o)
	rootCmd.SetErr(&e)
	rootCmd.SetArgs(args)
	err = rootCmd.ExecuteContext(context.Background())
	return o.String(), e.String(), err
}

func resetGlobals() {
	flagDB, flagFormat, flagConfig, flagRemarkScript = "", "text", "", ""
	flagVerbose = false
	flagForce, flagExtensions, flagWorkers, flagSerial = false, "", 0, false
	flagTrace, flagMatchingQuotes = false, false
	flagLimit, flagOffset, flagSort, flagOrder, flagPrefix = 50, 0, "", "asc", ""
	errorHandled = false
	logger = zap.NewNop()
	cfg = config.Default()
	clearChanged(rootCmd)
}

// clearChanged forgets which flags earlier executions set.
func clearChanged(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) { f.Changed = false }
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		clearChanged(sub)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func decode(t *testing.T, stdout string) map[string]any {
	t.Helper()
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &result), "invalid JSON output: %s", stdout)
	return result
}

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	got := findRepoRoot(root)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	deep := filepath.Join(root, "sub", "deep")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}

	got := findRepoRoot(deep)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	// TempDir has no .git directory anywhere in its ancestry
	// (unless /tmp itself is a repo, which would be unusual).
	dir := t.TempDir()

	got := findRepoRoot(dir)
	assert.Equal(t, dir, got)
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	err := validateFormat("yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestResolveDBPath(t *testing.T) {
	resetGlobals()
	t.Cleanup(resetGlobals)
	root := "/repo"

	assert.Equal(t, filepath.Join(root, ".execscan", "index.db"), resolveDBPath(root))

	cfg.DB = "custom/index.db"
	assert.Equal(t, filepath.Join(root, "custom", "index.db"), resolveDBPath(root))

	flagDB = "/abs/other.db"
	assert.Equal(t, "/abs/other.db", resolveDBPath(root), "flag wins over config")
}

func TestSplitList(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{".py", ".pyw"}, splitList(" .py, ,.pyw "))
	assert.Nil(t, splitList(""))
}

func TestCount_Text(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mixed.py")
	writeFile(t, path, mixedSource)

	stdout, _, err := execute(t, "count", path)
	require.NoError(t, err)
	assert.Equal(t,
		"Your code has a total of 6 lines, but only 3 are run by the computer!\nThat's only 50.0%!\n",
		stdout)
}

func TestCount_JSON(t *testing.T) {
	dir := t.TempDir()
	lean := filepath.Join(dir, "lean.py")
	blank := filepath.Join(dir, "blank.py")
	writeFile(t, lean, "x = 1\ny = 2\n")
	writeFile(t, blank, "")

	stdout, _, err := execute(t, "--format", "json", "count", lean, blank)
	require.NoError(t, err)

	result := decode(t, stdout)
	assert.Equal(t, "count", result["command"])
	reports, ok := result["results"].([]any)
	require.True(t, ok)
	require.Len(t, reports, 2)

	first := reports[0].(map[string]any)
	assert.Equal(t, lean, first["path"])
	assert.EqualValues(t, 2, first["total_lines"])
	assert.EqualValues(t, 100, first["percent"])
	assert.Equal(t, "efficient", first["rating"])
	assert.Equal(t, "Now THAT's some efficient code!", first["remark"])

	second := reports[1].(map[string]any)
	assert.Equal(t, true, second["blank"])
	assert.Equal(t, "The file you chose is blank.", second["message"])
}

func TestCount_Trace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mixed.py")
	writeFile(t, path, mixedSource)

	stdout, _, err := execute(t, "--format", "json", "count", "--trace", path)
	require.NoError(t, err)

	reports := decode(t, stdout)["results"].([]any)
	lines := reports[0].(map[string]any)["lines"].([]any)
	require.Len(t, lines, 6)

	var executable []float64
	for _, l := range lines {
		line := l.(map[string]any)
		if line["executable"].(bool) {
			executable = append(executable, line["line"].(float64))
		}
	}
	assert.Equal(t, []float64{2, 5, 6}, executable)
	assert.Equal(t, true, lines[3].(map[string]any)["in_triple_quote"])
}

func TestCount_MatchingQuotesFlagOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mixed.py")
	writeFile(t, path, "s = \"'\"\ny = 2\n")
	cfgPath := filepath.Join(dir, "execscan.yaml")
	writeFile(t, cfgPath, "matching_quotes: true\n")

	stdout, _, err := execute(t, "--config", cfgPath, "count", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "total of 2 lines, but only 2 are run")

	stdout, _, err = execute(t, "--config", cfgPath, "count", "--matching-quotes=false", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "total of 2 lines, but only 0 are run")

	stdout, _, err = execute(t, "count", "--matching-quotes", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "total of 2 lines, but only 2 are run")
}

func TestCount_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.py")

	stdout, _, err := execute(t, "--format", "json", "count", missing)
	require.Error(t, err)
	assert.True(t, errorHandled)

	result := decode(t, stdout)
	assert.Equal(t, "count", result["command"])
	assert.Contains(t, result["error"], "nope.py")
}

func TestCount_RemarkScript(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lean.py")
	writeFile(t, path, "x = 1\n")
	scriptsDir := filepath.Join(dir, "scripts")
	writeFile(t, filepath.Join(scriptsDir, "shout.risor"), `"ran " + fmt_percent(percent)`)

	cfgPath := filepath.Join(dir, "execscan.yaml")
	writeFile(t, cfgPath, "scripts_dir: "+scriptsDir+"\nremark_script: shout.risor\n")

	stdout, _, err := execute(t, "--config", cfgPath, "count", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ran 100.0%")
	assert.NotContains(t, stdout, "efficient code")
}

func TestCount_BrokenRemarkScriptKeepsDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lean.py")
	writeFile(t, path, "x = 1\n")

	stdout, _, err := execute(t, "--remark-script", "remark/missing.risor", "count", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Now THAT's some efficient code!")
}

func TestConfig_InvalidThresholds(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "execscan.yaml")
	writeFile(t, cfgPath, "thresholds:\n  high: 20\n  low: 80\n")

	_, _, err := execute(t, "--config", cfgPath, "count", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thresholds")
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "--format", "xml", "count", "x.py")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestIndexAndQuery(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(t.TempDir(), "index.db")
	writeFile(t, filepath.Join(dir, "app", "main.py"), "x = 1\ny = 2\n")
	writeFile(t, filepath.Join(dir, "app", "notes.py"), "# a\n# b\n# c\nz = 3\n")
	writeFile(t, filepath.Join(dir, "empty.py"), "")
	writeFile(t, filepath.Join(dir, "README.md"), "# not python\n")

	_, stderr, err := execute(t, "--db", db, "index", "--serial", dir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "3 files: 3 classified, 0 unchanged, 0 failed")

	_, stderr, err = execute(t, "--db", db, "index", dir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "3 files: 0 classified, 3 unchanged, 0 failed")

	t.Run("files", func(t *testing.T) {
		stdout, _, err := execute(t, "--db", db, "--format", "json", "query", "files", "--sort", "percent", "--order", "desc")
		require.NoError(t, err)
		result := decode(t, stdout)
		assert.EqualValues(t, 3, result["total_count"])
		files := result["results"].([]any)
		require.Len(t, files, 3)
		assert.Equal(t, filepath.Join(dir, "app", "main.py"), files[0].(map[string]any)["path"])
		assert.Equal(t, "neutral", files[1].(map[string]any)["rating"], "25% is the neutral lower bound")
		assert.Equal(t, "blank", files[2].(map[string]any)["rating"])
	})

	t.Run("files prefix and paging", func(t *testing.T) {
		stdout, _, err := execute(t, "--db", db, "query", "files", "--prefix", filepath.Join(dir, "app"), "--limit", "1")
		require.NoError(t, err)
		assert.Contains(t, stdout, "main.py")
		assert.NotContains(t, stdout, "notes.py")
		assert.Contains(t, stdout, "Showing 1 of 2 results")
	})

	t.Run("file", func(t *testing.T) {
		stdout, _, err := execute(t, "--db", db, "query", "file", filepath.Join(dir, "app", "notes.py"))
		require.NoError(t, err)
		assert.Contains(t, stdout, "Your code has a total of 4 lines, but only 1 are run by the computer!")
		assert.Contains(t, stdout, "That's only 25.0%!")
	})

	t.Run("file not indexed", func(t *testing.T) {
		_, stderr, err := execute(t, "--db", db, "query", "file", filepath.Join(dir, "README.md"))
		require.Error(t, err)
		assert.Contains(t, stderr, "file not indexed")
	})

	t.Run("summary", func(t *testing.T) {
		stdout, _, err := execute(t, "--db", db, "--format", "json", "query", "summary")
		require.NoError(t, err)
		summary := decode(t, stdout)["results"].(map[string]any)
		assert.EqualValues(t, 3, summary["file_count"])
		assert.EqualValues(t, 1, summary["blank_files"])
		assert.EqualValues(t, 6, summary["total_lines"])
		assert.EqualValues(t, 3, summary["executable_lines"])
		ratings := summary["ratings"].(map[string]any)
		assert.EqualValues(t, 1, ratings["efficient"])
		assert.EqualValues(t, 1, ratings["neutral"])
		assert.EqualValues(t, 1, ratings["blank"])
	})

	t.Run("runs", func(t *testing.T) {
		stdout, _, err := execute(t, "--db", db, "--format", "json", "query", "runs")
		require.NoError(t, err)
		runs := decode(t, stdout)["results"].([]any)
		require.Len(t, runs, 2)
		for _, r := range runs {
			assert.Equal(t, dir, r.(map[string]any)["root"])
		}
	})
}

func TestQuery_MissingDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "none.db")

	stdout, _, err := execute(t, "--db", db, "--format", "json", "query", "summary")
	require.Error(t, err)
	assert.Contains(t, decode(t, stdout)["error"], "database not found")
}
