package index

import (
	"errors"
	"fmt"
)

// ErrMalformedIdentity is returned when a function or variable is looked up by
// an empty identity string.
var ErrMalformedIdentity = errors.New("index: empty identity string")

// entityStore holds one record per identity string of a single kind, indexed
// by ID. Records live by value in a growable slice, so pointers handed out by
// at are only valid until the next insertion.
type entityStore[K any, R any] struct {
	kind       SymbolKind
	ids        *Allocator[K]
	records    []R
	allowEmpty bool
	newRecord  func(id ID[K], usr string) R
}

// getOrCreate returns the ID for usr, inserting a placeholder record the first
// time usr is seen.
func (s *entityStore[K, R]) getOrCreate(usr string) (ID[K], error) {
	if usr == "" && !s.allowEmpty {
		return ID[K]{n: -1}, fmt.Errorf("%w: %s", ErrMalformedIdentity, s.kind)
	}
	id, fresh := s.ids.Intern(usr)
	if fresh {
		s.records = append(s.records, s.newRecord(id, usr))
	}
	return id, nil
}

func (s *entityStore[K, R]) lookup(usr string) (ID[K], bool) {
	return s.ids.Lookup(usr)
}

// at returns the record for id. An ID minted by another aggregate is a
// programming error.
func (s *entityStore[K, R]) at(id ID[K]) *R {
	if !s.ids.owns(id) {
		panic(fmt.Sprintf("index: %s id %d does not belong to this unit", s.kind, id.n))
	}
	return &s.records[id.n]
}

func (s *entityStore[K, R]) len() int { return len(s.records) }

func newTypeStore(ids *Allocator[typeKind]) *entityStore[typeKind, TypeDef] {
	return &entityStore[typeKind, TypeDef]{
		kind:       KindType,
		ids:        ids,
		allowEmpty: true,
		newRecord: func(id TypeID, usr string) TypeDef {
			return TypeDef{Def: newDef(usr), ID: id}
		},
	}
}

func newFuncStore(ids *Allocator[funcKind]) *entityStore[funcKind, FuncDef] {
	return &entityStore[funcKind, FuncDef]{
		kind: KindFunc,
		ids:  ids,
		newRecord: func(id FuncID, usr string) FuncDef {
			return FuncDef{Def: newDef(usr), ID: id}
		},
	}
}

func newVarStore(ids *Allocator[varKind]) *entityStore[varKind, VarDef] {
	return &entityStore[varKind, VarDef]{
		kind: KindVar,
		ids:  ids,
		newRecord: func(id VarID, usr string) VarDef {
			return VarDef{Def: newDef(usr), ID: id}
		},
	}
}
