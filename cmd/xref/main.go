package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/xref"
	"github.com/jward/xref/internal/config"
	"github.com/jward/xref/internal/slogutil"
	"github.com/jward/xref/scripts"
)

var (
	flagDB         string
	flagFormat     string
	flagConfig     string
	flagVerbose    int
	flagQuiet      bool
	flagScriptsDir string
	flagLanguages  string
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// Loaded by the root command before any subcommand runs.
var (
	cfg    *config.Config
	logger *slog.Logger
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "xref",
	Version:       version,
	Short:         "Cross-reference index for C and C++ sources",
	Long:          "xref parses source files with tree-sitter, builds a per-unit cross-reference index of types, functions and variables, and stores it in SQLite or exports it as SCIP.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return setup(cmd.ErrOrStderr())
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: output.db from config, relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text|yaml")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .xref/config.* in the repo root)")
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "disable logging")
	rootCmd.PersistentFlags().StringVar(&flagScriptsDir, "scripts-dir", "", "load extraction scripts from disk instead of the bundled ones")
	rootCmd.PersistentFlags().StringVar(&flagLanguages, "languages", "", "comma-separated language filter (e.g. c,cpp)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(unitsCmd)
	rootCmd.AddCommand(lookupCmd)
}

// setup loads the config and builds the logger. Command-line verbosity wins
// over the configured level.
func setup(stderr io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	cfg, err = config.Load(findRepoRoot(cwd), flagConfig)
	if err != nil {
		return err
	}

	level := slogutil.LevelFromString(cfg.Logging.Level)
	if flagVerbose > 0 || flagQuiet {
		level = slogutil.LevelFromVerbosity(flagVerbose, flagQuiet)
	}
	logger = slogutil.New(stderr, cfg.Logging.Format, level)
	return nil
}

// engineOptions turns the config and flags into Engine options.
func engineOptions() []xref.Option {
	opts := []xref.Option{
		xref.WithLogger(logger),
		xref.WithParallel(cfg.Parallel),
		xref.WithWorkers(cfg.Workers),
		xref.WithUniqueUses(cfg.Index.DedupUses),
	}

	langs := cfg.Languages
	if flagLanguages != "" {
		langs = strings.Split(flagLanguages, ",")
		for i := range langs {
			langs[i] = strings.TrimSpace(langs[i])
		}
	}
	if len(langs) > 0 {
		opts = append(opts, xref.WithLanguages(langs...))
	}

	// Script source: --scripts-dir, then index.scripts, then the bundled FS.
	switch {
	case flagScriptsDir != "":
		opts = append(opts, xref.WithScriptsDir(flagScriptsDir))
	case cfg.Index.Scripts != "":
		opts = append(opts, xref.WithScriptsDir(cfg.Index.Scripts))
	default:
		opts = append(opts, xref.WithScriptsFS(scripts.FS))
	}
	return opts
}

// indexOne builds the in-memory unit for a single file.
func indexOne(ctx context.Context, file string) (*xref.Engine, *xref.Unit, error) {
	path, err := resolveFilePath(file)
	if err != nil {
		return nil, nil, err
	}
	e := xref.New(engineOptions()...)
	u, err := e.IndexFile(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("indexing %s: %w", path, err)
	}
	return e, u, nil
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

// resolveFilePath converts a file argument to an absolute path.
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

// resolveDBPath returns the database path from the --db flag, or output.db
// from the config, relative to repoRoot.
func resolveDBPath(repoRoot string) string {
	p := cfg.Output.DB
	if flagDB != "" {
		p = flagDB
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(repoRoot, p)
}
