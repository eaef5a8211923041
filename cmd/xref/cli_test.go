package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jward/xref/internal/export"
)

// These tests drive rootCmd in-process. Flags are package globals, so they
// run serially.

func resetFlags() {
	flagDB, flagFormat, flagConfig = "", "json", ""
	flagVerbose, flagQuiet = 0, false
	flagScriptsDir, flagLanguages = "", ""
	flagForce, flagSCIP, flagCompress = false, "", false
	flagInteresting, flagDepth, flagDirection = false, 5, "callees"
	flagCallers = false
	errorHandled = false
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// decodeResults unmarshals the results field of a JSON CLIResult into v.
func decodeResults(t *testing.T, out string, v any) {
	t.Helper()
	var envelope struct {
		Command string          `json:"command"`
		Results json.RawMessage `json:"results"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &envelope), out)
	require.Empty(t, envelope.Error)
	require.NoError(t, json.Unmarshal(envelope.Results, v))
}

const cliShapesCC = `class Shape {
public:
  virtual int area();
};

class Square : public Shape {
public:
  int area() override;
  int side;
};

int Square::area() { return side * side; }

int total(Shape *s) { return s->area(); }

int twice(Shape *s) { return total(s) + total(s); }
`

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(src), 0o644))
	return p
}

// =============================================================================
// index / units / lookup
// =============================================================================

func TestCLI_IndexUnitsLookup(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "util.c", "int square(int x) { return x * x; }\n")
	writeSource(t, dir, "main.c", "int square(int x);\nint main(void) { return square(2); }\n")
	dbPath := filepath.Join(t.TempDir(), "index.db")
	scipPath := filepath.Join(t.TempDir(), "index.scip")

	_, stderr, err := runCLI(t, "index", dir, "--db", dbPath, "--scip", scipPath, "--compress")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Indexed 2 units")

	out, _, err := runCLI(t, "units", "--db", dbPath)
	require.NoError(t, err)
	var units []CLIUnit
	decodeResults(t, out, &units)
	require.Len(t, units, 2)
	for _, u := range units {
		assert.Equal(t, "c", u.Language)
		assert.NotEmpty(t, u.RunID)
	}

	out, _, err = runCLI(t, "lookup", "c:@F@square#", "--db", dbPath)
	require.NoError(t, err)
	var syms []CLIStoredSymbol
	decodeResults(t, out, &syms)
	require.Len(t, syms, 2)

	out, _, err = runCLI(t, "lookup", "c:@F@square#", "--callers", "--db", dbPath)
	require.NoError(t, err)
	var calls []CLIStoredCall
	decodeResults(t, out, &calls)
	require.Len(t, calls, 1)
	assert.Equal(t, "c:@F@main#", calls[0].Caller)
	assert.Equal(t, 2, calls[0].At.Line)

	f, err := os.Open(scipPath)
	require.NoError(t, err)
	defer f.Close()
	idx, err := export.ReadSCIP(f, true)
	require.NoError(t, err)
	assert.Len(t, idx.Documents, 2)
}

func TestCLI_UnitsMissingDatabase(t *testing.T) {
	out, _, err := runCLI(t, "units", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Contains(t, out, "database not found")
}

func TestCLI_InvalidFormat(t *testing.T) {
	_, _, err := runCLI(t, "units", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

// =============================================================================
// dump
// =============================================================================

func TestCLI_Dump(t *testing.T) {
	path := writeSource(t, t.TempDir(), "shapes.cc", cliShapesCC)

	out, _, err := runCLI(t, "dump", path)
	require.NoError(t, err)
	var d export.Dump
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, path, d.Path)
	assert.NotEmpty(t, d.Types)

	out, _, err = runCLI(t, "dump", path, "--format", "yaml")
	require.NoError(t, err)
	var y map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &y))
	assert.Equal(t, path, y["path"])

	out, _, err = runCLI(t, "dump", path, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "c:@S@Square")
}

func TestCLI_DumpBundledGoScript(t *testing.T) {
	path := writeSource(t, t.TempDir(), "hello.go", "package hello\n\nfunc Hello() {}\n")

	out, _, err := runCLI(t, "dump", path, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "go:hello.Hello()")

	_, _, err = runCLI(t, "dump", path, "--languages", "c")
	require.Error(t, err)
}

// =============================================================================
// query
// =============================================================================

func TestCLI_QueryDefinitionAndReferences(t *testing.T) {
	path := writeSource(t, t.TempDir(), "shapes.cc", cliShapesCC)

	out, _, err := runCLI(t, "query", "definition", path, "c:@F@total#")
	require.NoError(t, err)
	var locs []CLILocation
	decodeResults(t, out, &locs)
	require.Len(t, locs, 1)
	assert.Equal(t, CLILocation{File: path, Line: 14, Col: 5}, locs[0])

	out, _, err = runCLI(t, "query", "references", path, "c:@F@total#", "--interesting")
	require.NoError(t, err)
	locs = nil
	decodeResults(t, out, &locs)
	assert.Len(t, locs, 2)
}

func TestCLI_QueryCalls(t *testing.T) {
	path := writeSource(t, t.TempDir(), "shapes.cc", cliShapesCC)

	out, _, err := runCLI(t, "query", "callers", path, "c:@F@total#")
	require.NoError(t, err)
	var sites []CLICallSite
	decodeResults(t, out, &sites)
	require.Len(t, sites, 2)
	assert.Equal(t, "c:@F@twice#", sites[0].Symbol.USR)

	out, _, err = runCLI(t, "query", "call-graph", path, "c:@S@Shape@F@area#", "--direction", "callers", "--depth", "3")
	require.NoError(t, err)
	var g CLICallGraph
	decodeResults(t, out, &g)
	assert.Equal(t, 2, g.Depth)
	assert.Len(t, g.Nodes, 3)

	out, _, err = runCLI(t, "query", "callees", path, "c:@F@twice#", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "c:@F@total#")
}

func TestCLI_QueryHierarchy(t *testing.T) {
	path := writeSource(t, t.TempDir(), "shapes.cc", cliShapesCC)

	out, _, err := runCLI(t, "query", "hierarchy", path, "c:@S@Square")
	require.NoError(t, err)
	var h CLITypeHierarchy
	decodeResults(t, out, &h)
	require.Len(t, h.Parents, 1)
	assert.Equal(t, "c:@S@Shape", h.Parents[0].USR)
	require.Len(t, h.Fields, 1)
	assert.Equal(t, "c:@S@Square@FI@side", h.Fields[0].USR)

	out, _, err = runCLI(t, "query", "overrides", path, "c:@S@Square@F@area#")
	require.NoError(t, err)
	var m CLIMethodHierarchy
	decodeResults(t, out, &m)
	require.Len(t, m.Bases, 1)
	assert.Equal(t, "c:@S@Shape@F@area#", m.Bases[0].USR)

	out, _, err = runCLI(t, "query", "hierarchy", path, "c:@S@Shape", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Derived:")
}

func TestCLI_QuerySymbolAt(t *testing.T) {
	path := writeSource(t, t.TempDir(), "shapes.cc", cliShapesCC)

	out, _, err := runCLI(t, "query", "symbol-at", path, "16", "30")
	require.NoError(t, err)
	var sym CLISymbol
	decodeResults(t, out, &sym)
	assert.Equal(t, "c:@F@total#", sym.USR)

	_, _, err = runCLI(t, "query", "symbol-at", path, "0", "1")
	require.Error(t, err)
}

func TestCLI_QueryUnknownSymbol(t *testing.T) {
	path := writeSource(t, t.TempDir(), "shapes.cc", cliShapesCC)

	out, _, err := runCLI(t, "query", "callers", path, "c:@F@nope#")
	require.Error(t, err)
	var envelope CLIResult
	require.NoError(t, json.Unmarshal([]byte(out), &envelope))
	assert.Equal(t, "callers", envelope.Command)
	assert.Contains(t, envelope.Error, "c:@F@nope#")
}
