package main

// CLIResult is the top-level envelope for all query commands.
type CLIResult struct {
	Command string `json:"command" yaml:"command"`
	Results any    `json:"results" yaml:"results"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLILocation is a resolved source position. Line and Col are 1-based.
type CLILocation struct {
	File        string `json:"file" yaml:"file"`
	Line        int    `json:"line" yaml:"line"`
	Col         int    `json:"col" yaml:"col"`
	Interesting bool   `json:"interesting,omitempty" yaml:"interesting,omitempty"`
}

// CLISymbol is one symbol of an in-memory unit.
type CLISymbol struct {
	Kind          string       `json:"kind" yaml:"kind"`
	ID            int          `json:"id" yaml:"id"`
	USR           string       `json:"usr" yaml:"usr"`
	Name          string       `json:"name,omitempty" yaml:"name,omitempty"`
	QualifiedName string       `json:"qualified_name,omitempty" yaml:"qualified_name,omitempty"`
	Placeholder   bool         `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Definition    *CLILocation `json:"definition,omitempty" yaml:"definition,omitempty"`
}

// CLICallSite is one call edge seen from the queried function.
type CLICallSite struct {
	Symbol CLISymbol   `json:"symbol" yaml:"symbol"`
	At     CLILocation `json:"at" yaml:"at"`
}

// CLICallGraph is a transitive call graph.
type CLICallGraph struct {
	Root  string         `json:"root" yaml:"root"`
	Depth int            `json:"depth" yaml:"depth"`
	Nodes []CLIGraphNode `json:"nodes" yaml:"nodes"`
	Edges []CLIGraphEdge `json:"edges" yaml:"edges"`
}

type CLIGraphNode struct {
	Symbol CLISymbol `json:"symbol" yaml:"symbol"`
	Depth  int       `json:"depth" yaml:"depth"`
}

type CLIGraphEdge struct {
	Caller string      `json:"caller" yaml:"caller"`
	Callee string      `json:"callee" yaml:"callee"`
	At     CLILocation `json:"at" yaml:"at"`
}

// CLITypeHierarchy mirrors xref.TypeHierarchy.
type CLITypeHierarchy struct {
	Symbol  CLISymbol   `json:"symbol" yaml:"symbol"`
	AliasOf *CLISymbol  `json:"alias_of,omitempty" yaml:"alias_of,omitempty"`
	Parents []CLISymbol `json:"parents" yaml:"parents"`
	Derived []CLISymbol `json:"derived" yaml:"derived"`
	Types   []CLISymbol `json:"types" yaml:"types"`
	Methods []CLISymbol `json:"methods" yaml:"methods"`
	Fields  []CLISymbol `json:"fields" yaml:"fields"`
}

// CLIMethodHierarchy mirrors xref.MethodHierarchy.
type CLIMethodHierarchy struct {
	Symbol        CLISymbol   `json:"symbol" yaml:"symbol"`
	DeclaringType *CLISymbol  `json:"declaring_type,omitempty" yaml:"declaring_type,omitempty"`
	Bases         []CLISymbol `json:"bases" yaml:"bases"`
	Overrides     []CLISymbol `json:"overrides" yaml:"overrides"`
}

// CLIUnit is a committed unit.
type CLIUnit struct {
	ID        int64  `json:"id" yaml:"id"`
	RunID     string `json:"run_id" yaml:"run_id"`
	Path      string `json:"path" yaml:"path"`
	Language  string `json:"language" yaml:"language"`
	Hash      string `json:"hash" yaml:"hash"`
	IndexedAt string `json:"indexed_at" yaml:"indexed_at"`
}

// CLIStoredSymbol is a symbol record read back from the database.
type CLIStoredSymbol struct {
	Unit          string `json:"unit" yaml:"unit"`
	Kind          string `json:"kind" yaml:"kind"`
	USR           string `json:"usr" yaml:"usr"`
	Name          string `json:"name,omitempty" yaml:"name,omitempty"`
	QualifiedName string `json:"qualified_name,omitempty" yaml:"qualified_name,omitempty"`
	Placeholder   bool   `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Definition    string `json:"definition,omitempty" yaml:"definition,omitempty"`
	Declaration   string `json:"declaration,omitempty" yaml:"declaration,omitempty"`
}

// CLIStoredCall is a call site read back from the database.
type CLIStoredCall struct {
	Unit   string      `json:"unit" yaml:"unit"`
	Caller string      `json:"caller" yaml:"caller"`
	Name   string      `json:"name,omitempty" yaml:"name,omitempty"`
	At     CLILocation `json:"at" yaml:"at"`
}
