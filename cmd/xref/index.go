package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/xref"
	"github.com/jward/xref/internal/export"
	"github.com/jward/xref/internal/index"
)

var (
	flagForce    bool
	flagSCIP     string
	flagCompress bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a directory into the database",
	Long:  "Parses every supported source file under path, builds one index unit per file, and commits the units to the SQLite database. Optionally writes a SCIP index as well.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().StringVar(&flagSCIP, "scip", "", "also write a SCIP index to this path (default: output.scip from config)")
	indexCmd.Flags().BoolVar(&flagCompress, "compress", false, "zstd-compress the SCIP index")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()
	stderr := cmd.ErrOrStderr()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(stderr, "Cleared database: %s\n", dbPath)
	}

	engine, err := xref.Open(dbPath, engineOptions()...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	ctx := context.Background()
	units, indexErr := engine.IndexDirectory(ctx, targetDir)
	if indexErr != nil {
		if len(units) == 0 {
			return fmt.Errorf("indexing: %w", indexErr)
		}
		logger.Warn("some files failed to index", "err", indexErr)
	}

	scipPath := flagSCIP
	compress := flagCompress
	if scipPath == "" && cfg.Output.SCIP != "" {
		scipPath = cfg.Output.SCIP
		compress = compress || cfg.Output.Compress
		if !filepath.IsAbs(scipPath) {
			scipPath = filepath.Join(repoRoot, scipPath)
		}
	}
	if scipPath != "" {
		if err := writeSCIP(scipPath, targetDir, units, compress); err != nil {
			return err
		}
	}

	var st index.Stats
	for _, u := range units {
		s := u.Stats()
		st.Types += s.Types
		st.Funcs += s.Funcs
		st.Vars += s.Vars
		st.Placeholders += s.Placeholders
		st.Conditions += s.Conditions
	}

	fmt.Fprintf(stderr, "Indexed %d units from %s in %s\n", len(units), targetDir, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(stderr, "Symbols: %d types, %d funcs, %d vars (%d placeholders, %d conditions)\n",
		st.Types, st.Funcs, st.Vars, st.Placeholders, st.Conditions)
	fmt.Fprintf(stderr, "Database: %s\n", dbPath)
	if scipPath != "" {
		fmt.Fprintf(stderr, "SCIP: %s\n", scipPath)
	}
	return nil
}

func writeSCIP(path, root string, units []*xref.Unit, compress bool) error {
	files := make([]*index.File, len(units))
	for i, u := range units {
		files[i] = u.File
	}
	idx := export.BuildSCIP(files, export.SCIPOptions{
		ProjectRoot: "file://" + filepath.ToSlash(root),
		ToolVersion: version,
	})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := export.WriteSCIP(f, idx, compress); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
