package xref

import (
	"github.com/jward/xref/internal/index"
	"github.com/jward/xref/internal/store"
)

// Public type aliases for the internal types that appear in the Engine API.

type Store = store.Store
type StoredUnit = store.Unit
type SymbolKind = index.SymbolKind

const (
	KindType = index.KindType
	KindFunc = index.KindFunc
	KindVar  = index.KindVar
)

// Unit is one indexed compilation unit: the completed aggregate plus what the
// driver reported while building it.
type Unit struct {
	*index.File

	Language string
	Hash     string

	// Events counts visitation events; Dropped those the aggregate rejected.
	Events  int
	Dropped int

	SyntaxErrors bool
}
