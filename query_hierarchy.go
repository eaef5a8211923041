package xref

import (
	"github.com/jward/xref/internal/index"
)

// TypeHierarchy is the inheritance and containment view of a single type.
type TypeHierarchy struct {
	Symbol  SymbolResult  // the queried type
	AliasOf *SymbolResult // set when the type is an alias
	Parents []SymbolResult
	Derived []SymbolResult
	Types   []SymbolResult // nested types
	Methods []SymbolResult
	Fields  []SymbolResult
}

// TypeHierarchy returns the immediate parents and derived types of usr plus
// what is declared inside it. Returns nil if usr is not a type of the unit.
func (q *QueryBuilder) TypeHierarchy(usr string) *TypeHierarchy {
	id, ok := q.unit.LookupType(usr)
	if !ok {
		return nil
	}
	t := q.unit.Type(id)
	h := &TypeHierarchy{
		Symbol:  q.result(symbolRef{index.KindType, id.Raw()}),
		Parents: q.results(index.KindType, rawIDs(t.Parents)),
		Derived: q.results(index.KindType, rawIDs(t.Derived)),
		Types:   q.results(index.KindType, rawIDs(t.Types)),
		Methods: q.results(index.KindFunc, rawIDs(t.Funcs)),
		Fields:  q.results(index.KindVar, rawIDs(t.Vars)),
	}
	if t.AliasOf != nil {
		sr := q.result(symbolRef{index.KindType, t.AliasOf.Raw()})
		h.AliasOf = &sr
	}
	return h
}

// MethodHierarchy is the override view of a single function.
type MethodHierarchy struct {
	Symbol        SymbolResult
	DeclaringType *SymbolResult

	// Bases is the chain of overridden methods, nearest first.
	Bases []SymbolResult
	// Overrides lists methods that directly override this one.
	Overrides []SymbolResult
}

// MethodHierarchy returns the override chain of usr. Returns nil if usr is not
// a function of the unit.
func (q *QueryBuilder) MethodHierarchy(usr string) *MethodHierarchy {
	id, ok := q.unit.LookupFunc(usr)
	if !ok {
		return nil
	}
	f := q.unit.Func(id)
	h := &MethodHierarchy{
		Symbol:    q.result(symbolRef{index.KindFunc, id.Raw()}),
		Overrides: q.results(index.KindFunc, rawIDs(f.Derived)),
	}
	if f.DeclaringType != nil {
		sr := q.result(symbolRef{index.KindType, f.DeclaringType.Raw()})
		h.DeclaringType = &sr
	}

	funcs := q.unit.Funcs()
	seen := map[int]bool{id.Raw(): true}
	for base := f.Base; base != nil && !seen[base.Raw()]; base = funcs[base.Raw()].Base {
		seen[base.Raw()] = true
		h.Bases = append(h.Bases, q.result(symbolRef{index.KindFunc, base.Raw()}))
	}
	return h
}

func rawIDs[K any](ids []index.ID[K]) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = id.Raw()
	}
	return out
}
