// Package runtime is the scripted traversal driver. It embeds a Risor VM and
// exposes tree-sitter helpers and index event functions to extraction
// scripts, so languages without a built-in driver (and hand-written test
// fixtures) can feed the same aggregate.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/xref/internal/extract"
	"github.com/jward/xref/internal/slogutil"
)

// Runtime runs Risor extraction scripts.
type Runtime struct {
	logger     *slog.Logger
	scriptsDir string
	fsys       fs.FS
	sources    *sourceStore
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithFS loads scripts, and resolves their imports, from fsys instead of
// scriptsDir.
func WithFS(fsys fs.FS) Option {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithLogger sets the logger behind the scripts' log object.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = l
	}
}

// New creates a Runtime that loads scripts from scriptsDir. scriptsDir may be
// empty when WithFS is used or when only inline sources are run.
func New(scriptsDir string, opts ...Option) *Runtime {
	r := &Runtime{
		logger:     slogutil.NewDiscardLogger(),
		scriptsDir: scriptsDir,
		sources:    newSourceStore(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and executes a script with the standard globals plus extra.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extra map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extra)
}

// RunSource executes Risor source directly. Useful for testing without script
// files.
func (r *Runtime) RunSource(ctx context.Context, source string, extra map[string]any) error {
	return r.eval(ctx, source, "<inline>", extra)
}

// Extract runs the extraction script at scriptPath over one source file. The
// script sees the file as the globals path and source, and reports symbols
// through the event functions (declare, define, use, call, ...), which feed
// sink.
func (r *Runtime) Extract(ctx context.Context, scriptPath, path string, src []byte, sink extract.Sink) (extract.Result, error) {
	script, err := r.LoadScript(scriptPath)
	if err != nil {
		return extract.Result{}, err
	}
	return r.extract(ctx, script, scriptPath, path, src, sink)
}

// ExtractSource is Extract with the script given inline.
func (r *Runtime) ExtractSource(ctx context.Context, script, path string, src []byte, sink extract.Sink) (extract.Result, error) {
	return r.extract(ctx, script, "<inline>", path, src, sink)
}

func (r *Runtime) extract(ctx context.Context, script, label, path string, src []byte, sink extract.Sink) (extract.Result, error) {
	b := &eventBinding{path: path, sink: sink, logger: r.logger}
	globals := b.globals()
	globals["path"] = path
	globals["source"] = string(src)

	err := r.eval(ctx, script, label, globals)
	res := extract.Result{Language: "risor", Events: b.events, Dropped: b.dropped}
	if err != nil {
		return res, err
	}
	r.logger.Debug("script extracted", "path", path, "script", label, "events", b.events, "dropped", b.dropped)
	return res, nil
}

func (r *Runtime) eval(ctx context.Context, source, label string, extra map[string]any) error {
	globals := r.buildGlobals(extra)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns an importer for the configured script source, or nil
// when there is none.
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

// LoadScript reads a .risor file from the configured fs.FS, or relative to
// scriptsDir on disk.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
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

// HasScript reports whether an extraction script exists for path's extension.
func (r *Runtime) HasScript(path string) bool {
	_, err := r.LoadScript(ExtractionScriptPath(path))
	return err == nil
}

// ExtractionScriptPath returns the script that extracts files like path:
// extract/<ext>.risor, keyed by the extension without its dot.
func ExtractionScriptPath(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return filepath.Join("extract", ext+".risor")
}

// buildGlobals constructs the full set of globals exposed to scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"parse":      makeParseFn(r.sources),
		"parse_src":  makeParseSrcFn(r.sources),
		"node_text":  makeNodeTextFn(r.sources),
		"node_child": makeNodeChildFn(),
		"query":      makeQueryFn(r.sources),
		"log":        mustProxy(&logObject{logger: r.logger}),
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
