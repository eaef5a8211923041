package xref

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jward/xref/internal/extract"
	"github.com/jward/xref/internal/index"
	"github.com/jward/xref/internal/runtime"
	"github.com/jward/xref/internal/slogutil"
	"github.com/jward/xref/internal/store"
)

var (
	// ErrUnsupportedFile is returned by IndexFile for a path that no driver
	// handles, or whose language is filtered out.
	ErrUnsupportedFile = errors.New("xref: unsupported file")
	// ErrNoStore is returned by Commit when the Engine has no store.
	ErrNoStore = errors.New("xref: no store configured")
)

// Engine orchestrates indexing: file discovery, driver selection, one index
// aggregate per unit, and an optional SQLite sink.
type Engine struct {
	store     *store.Store
	ownsStore bool

	extractor  *extract.Extractor
	scriptsDir string
	scriptsFS  fs.FS
	languages  map[string]bool // nil means all languages

	useParallel bool
	workers     int
	uniqueUses  bool
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts which languages the Engine will process. Built-in
// languages are "c" and "cpp"; scripted ones are named by file extension.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			e.languages[lang] = true
		}
	}
}

// WithParallel controls parallel extraction. When true (default), IndexFiles
// extracts in a worker pool and commits through a single writer. Set to false
// for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers caps the extraction worker pool. Zero or less means one worker
// per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithLogger sets the logger for the Engine and its drivers.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithStore makes IndexFiles commit every unit to s. The caller keeps
// ownership of s.
func WithStore(s *store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithScriptsDir enables the scripted driver with extraction scripts under
// dir (extract/<ext>.risor).
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithScriptsFS enables the scripted driver with scripts loaded from fsys
// instead of from disk. This enables embedding scripts via go:embed.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithUniqueUses makes the built-in driver skip repeated uses at the same
// location.
func WithUniqueUses(unique bool) Option {
	return func(e *Engine) {
		e.uniqueUses = unique
	}
}

// New creates an Engine. Without WithStore, indexed units stay in memory.
func New(opts ...Option) *Engine {
	e := &Engine{
		useParallel: true,
		logger:      slogutil.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.extractor = extract.New(extract.WithLogger(e.logger), extract.WithUniqueUses(e.uniqueUses))
	return e
}

// Open creates an Engine backed by a SQLite database at dbPath, migrating the
// schema if needed. Close releases the database.
func Open(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("xref: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("xref: migrate: %w", err)
	}
	e := New(append(opts, WithStore(s))...)
	e.ownsStore = true
	return e, nil
}

// Close releases the database when the Engine opened it.
func (e *Engine) Close() error {
	if e.ownsStore && e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Store returns the configured Store, or nil.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a QueryBuilder over one unit.
func (e *Engine) Query(u *Unit) *QueryBuilder {
	return &QueryBuilder{unit: u.File}
}

// driver says how a file is indexed.
type driver struct {
	lang     string
	scripted bool
}

// driverFor picks the built-in driver for C and C++ and an extraction script
// for anything else. ok is false when neither applies or the language is
// filtered out.
func (e *Engine) driverFor(path string) (driver, bool) {
	if lang, ok := extract.LanguageForFile(path); ok {
		return driver{lang: lang}, e.allowed(lang)
	}
	if e.scriptsDir == "" && e.scriptsFS == nil {
		return driver{}, false
	}
	lang := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if lang == "" || !e.allowed(lang) {
		return driver{}, false
	}
	if !e.newRuntime().HasScript(path) {
		return driver{}, false
	}
	return driver{lang: lang, scripted: true}, true
}

func (e *Engine) allowed(lang string) bool {
	return e.languages == nil || e.languages[lang]
}

// newRuntime returns a fresh script runtime. Runtimes cache parsed trees, so
// each unit gets its own.
func (e *Engine) newRuntime() *runtime.Runtime {
	opts := []runtime.Option{runtime.WithLogger(e.logger)}
	if e.scriptsFS != nil {
		opts = append(opts, runtime.WithFS(e.scriptsFS))
	}
	return runtime.New(e.scriptsDir, opts...)
}

// IndexFile reads path and builds its unit. The store is not touched; see
// Commit.
func (e *Engine) IndexFile(ctx context.Context, path string) (*Unit, error) {
	d, ok := e.driverFor(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.index(ctx, d, path, src)
}

// IndexSource builds the unit for in-memory source, choosing the driver from
// path as IndexFile does.
func (e *Engine) IndexSource(ctx context.Context, path string, src []byte) (*Unit, error) {
	d, ok := e.driverFor(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
	return e.index(ctx, d, path, src)
}

func (e *Engine) index(ctx context.Context, d driver, path string, src []byte) (*Unit, error) {
	agg := index.NewFile(path)

	var (
		res extract.Result
		err error
	)
	if d.scripted {
		res, err = e.newRuntime().Extract(ctx, runtime.ExtractionScriptPath(path), path, src, agg)
	} else {
		res, err = e.extractor.ExtractLanguage(ctx, d.lang, path, src, agg)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}

	u := &Unit{
		File:         agg,
		Language:     d.lang,
		Hash:         store.ContentHash(src),
		Events:       res.Events,
		Dropped:      res.Dropped,
		SyntaxErrors: res.SyntaxErrors,
	}
	e.logUnit(u)
	return u, nil
}

func (e *Engine) logUnit(u *Unit) {
	for _, c := range u.Conditions() {
		if c.Code == index.ConflictingDefinition {
			e.logger.Warn("index condition", "unit", u.Path, "code", c.Code, "usr", c.USR,
				"kept", c.Kept.String(), "got", c.Got.String())
		} else {
			e.logger.Debug("index condition", "unit", u.Path, "code", c.Code, "usr", c.USR, "msg", c.Message)
		}
	}
	st := u.Stats()
	e.logger.Debug("unit indexed", "unit", u.Path, "lang", u.Language,
		"types", st.Types, "funcs", st.Funcs, "vars", st.Vars,
		"events", u.Events, "dropped", u.Dropped)
}

// Commit writes a completed unit to the configured store, replacing any
// earlier unit with the same path.
func (e *Engine) Commit(ctx context.Context, u *Unit) (*StoredUnit, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	su, err := e.store.CommitUnit(ctx, u.File, store.UnitInfo{Language: u.Language, Hash: u.Hash})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("unit committed", "unit", u.Path, "run", su.RunID)
	return su, nil
}

// IndexFiles indexes the given file paths and returns their units in input
// order. Unsupported paths are skipped. With a store configured, each unit is
// committed as soon as it is built.
//
// Errors on individual files are collected and do not stop the others; the
// returned error summarizes them alongside the units that succeeded.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) ([]*Unit, error) {
	if e.useParallel {
		return e.indexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) ([]*Unit, error) {
	var (
		units []*Unit
		errs  []error
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return units, err
		}
		item, skip, err := e.prepareFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		u, err := e.index(ctx, item.driver, item.path, item.src)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := e.commitIfStored(ctx, u); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", path, err))
			continue
		}
		units = append(units, u)
	}
	if len(errs) > 0 {
		return units, fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return units, nil
}

func (e *Engine) commitIfStored(ctx context.Context, u *Unit) error {
	if e.store == nil {
		return nil
	}
	_, err := e.Commit(ctx, u)
	return err
}

// skipDirs are directories excluded from the filesystem walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"build":        true,
}

// IndexDirectory indexes all supported files under root. If root is inside a
// git repository, uses git ls-files to respect .gitignore. Falls back to a
// filesystem walk (skipping hidden dirs, node_modules, vendor and build) if
// git is unavailable.
func (e *Engine) IndexDirectory(ctx context.Context, root string) ([]*Unit, error) {
	paths, err := e.gitListFiles(root)
	if err != nil {
		e.logger.Debug("git ls-files unavailable, walking", "root", root, "err", err)
		paths, err = e.walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	return e.IndexFiles(ctx, paths)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported files.
func (e *Engine) gitListFiles(root string) ([]string, error) {
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
		if _, ok := e.driverFor(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem.
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
		if _, ok := e.driverFor(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
