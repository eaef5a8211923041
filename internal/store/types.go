package store

import "time"

// Edge kinds stored in the edges table. Each row points from the symbol named
// first to the one named second.
const (
	EdgeParent   = "parent"   // type -> base type
	EdgeAlias    = "alias"    // alias type -> aliased type
	EdgeNested   = "nested"   // type -> nested type
	EdgeMethod   = "method"   // type -> method
	EdgeField    = "field"    // type -> field
	EdgeOverride = "override" // method -> overridden base method
	EdgeCall     = "call"     // caller -> callee, with the call site
	EdgeLocal    = "local"    // function -> local variable
	EdgeVarType  = "var_type" // variable -> its type
)

type Unit struct {
	ID        int64
	RunID     string
	Path      string
	Language  string
	Hash      string
	IndexedAt time.Time
}

// UnitInfo is the metadata CommitUnit records next to the aggregate.
type UnitInfo struct {
	Language string
	Hash     string
}

type Symbol struct {
	ID            int64
	UnitID        int64
	UnitPath      string
	Kind          string
	USR           string
	ShortName     string
	QualifiedName string
	Placeholder   bool
	Definition    string
	Declaration   string
}

type Use struct {
	SymbolID    int64
	Path        string
	Line        int
	Col         int
	Interesting bool
}

// CallSite is one call edge seen from the callee's side.
type CallSite struct {
	UnitPath   string
	CallerUSR  string
	CallerName string
	Path       string
	Line       int
	Col        int
}

type Condition struct {
	UnitID  int64
	Code    string
	Kind    string
	USR     string
	Kept    string
	Got     string
	Message string
}
