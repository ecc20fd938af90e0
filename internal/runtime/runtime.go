package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"go.uber.org/zap"
)

// DefaultRemarkScript is the bundled remark script, relative to the scripts root.
const DefaultRemarkScript = "remark/default.risor"

// Runtime embeds a Risor VM and evaluates remark scripts against the counts
// of a classified file.
type Runtime struct {
	scriptsDir string
	fsys       fs.FS
	logger     *zap.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithLogger routes the scripts' log object to l.
func WithLogger(l *zap.Logger) RuntimeOption {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRuntime creates a Runtime reading scripts from scriptsDir.
// Accepts optional RuntimeOptions for configuration such as fs.FS-based script loading.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		scriptsDir: scriptsDir,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RemarkInput is what a remark script sees as globals.
type RemarkInput struct {
	Path       string
	Total      int
	Executable int
	Percent    float64
	High       float64
	Low        float64
}

// Remark loads the script at scriptPath and returns the remark it computes.
// An empty string means the script chose no remark.
func (r *Runtime) Remark(ctx context.Context, scriptPath string, in RemarkInput) (string, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return "", err
	}
	return r.remark(ctx, src, scriptPath, in)
}

// RemarkSource evaluates Risor source code directly. Useful for testing
// without script files.
func (r *Runtime) RemarkSource(ctx context.Context, source string, in RemarkInput) (string, error) {
	return r.remark(ctx, source, "<inline>", in)
}

func (r *Runtime) remark(ctx context.Context, source, label string, in RemarkInput) (string, error) {
	result, err := r.eval(ctx, source, label, in.globals())
	if err != nil {
		return "", err
	}
	switch v := result.(type) {
	case *object.String:
		return v.Value(), nil
	case *object.NilType:
		return "", nil
	default:
		return "", fmt.Errorf("runtime: script %s: remark must be a string or nil, got %s", label, result.Type())
	}
}

func (in RemarkInput) globals() map[string]any {
	return map[string]any{
		"path":       in.Path,
		"total":      in.Total,
		"executable": in.Executable,
		"percent":    in.Percent,
		"high":       in.High,
		"low":        in.Low,
	}
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) (object.Object, error) {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return result, nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		// For fs.FS, strip any leading path separator so the path is
		// relative within the FS (e.g., "/remark/default.risor" -> "remark/default.risor").
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"log":         mustProxy(&logObject{logger: r.logger.Named("script")}),
		"fmt_percent": makeFmtPercentFn(),
	}
	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
