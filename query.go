package xref

import (
	"github.com/jward/xref/internal/index"
)

// QueryBuilder navigates one completed unit. Symbols are addressed by USR.
type QueryBuilder struct {
	unit *index.File
}

// Location is a resolved source position. Line and Col are 1-based.
type Location struct {
	File        string
	Line        int
	Col         int
	Interesting bool
}

// SymbolResult is a symbol in query output.
type SymbolResult struct {
	Kind          SymbolKind
	ID            int // the unit's record id for Kind
	USR           string
	Name          string
	QualifiedName string
	Placeholder   bool
	Definition    *Location
}

// CallSite is one call edge seen from either end.
type CallSite struct {
	Symbol SymbolResult // the other end of the edge
	At     Location
}

// symbolRef locates a record by kind and raw id.
type symbolRef struct {
	kind index.SymbolKind
	id   int
}

func (q *QueryBuilder) def(ref symbolRef) *index.Def {
	switch ref.kind {
	case index.KindType:
		return &q.unit.Types()[ref.id].Def
	case index.KindFunc:
		return &q.unit.Funcs()[ref.id].Def
	default:
		return &q.unit.Vars()[ref.id].Def
	}
}

// lookup finds usr among types, then functions, then variables.
func (q *QueryBuilder) lookup(usr string) (symbolRef, bool) {
	if id, ok := q.unit.LookupType(usr); ok {
		return symbolRef{index.KindType, id.Raw()}, true
	}
	if id, ok := q.unit.LookupFunc(usr); ok {
		return symbolRef{index.KindFunc, id.Raw()}, true
	}
	if id, ok := q.unit.LookupVar(usr); ok {
		return symbolRef{index.KindVar, id.Raw()}, true
	}
	return symbolRef{}, false
}

func (q *QueryBuilder) result(ref symbolRef) SymbolResult {
	d := q.def(ref)
	sr := SymbolResult{
		Kind:          ref.kind,
		ID:            ref.id,
		USR:           d.USR,
		Name:          d.ShortName,
		QualifiedName: d.QualifiedName,
		Placeholder:   d.Placeholder,
	}
	if d.Definition != nil {
		loc := q.resolve(*d.Definition)
		sr.Definition = &loc
	}
	return sr
}

func (q *QueryBuilder) results(kind index.SymbolKind, ids []int) []SymbolResult {
	if len(ids) == 0 {
		return nil
	}
	out := make([]SymbolResult, len(ids))
	for i, id := range ids {
		out[i] = q.result(symbolRef{kind, id})
	}
	return out
}

// resolve turns a unit location into a path-based one.
func (q *QueryBuilder) resolve(loc index.Location) Location {
	out := Location{Line: loc.Line, Col: loc.Column, Interesting: loc.Interesting}
	files := q.unit.Files()
	if n := loc.File.Raw(); n >= 0 && n < len(files) {
		out.File = files[n]
	}
	return out
}

func (q *QueryBuilder) resolveAll(locs []index.Location) []Location {
	if len(locs) == 0 {
		return nil
	}
	out := make([]Location, len(locs))
	for i, l := range locs {
		out[i] = q.resolve(l)
	}
	return out
}

// Symbol returns the record for usr, or nil if the unit never saw it.
func (q *QueryBuilder) Symbol(usr string) *SymbolResult {
	ref, ok := q.lookup(usr)
	if !ok {
		return nil
	}
	sr := q.result(ref)
	return &sr
}

// DefinitionOf returns where usr is defined, or nil when the unit has no
// definition for it.
func (q *QueryBuilder) DefinitionOf(usr string) *Location {
	ref, ok := q.lookup(usr)
	if !ok {
		return nil
	}
	d := q.def(ref)
	if d.Definition == nil {
		return nil
	}
	loc := q.resolve(*d.Definition)
	return &loc
}

// DeclarationsOf returns the forward declarations of a function or the
// declaration of a variable. Types keep no declaration sites.
func (q *QueryBuilder) DeclarationsOf(usr string) []Location {
	ref, ok := q.lookup(usr)
	if !ok {
		return nil
	}
	switch ref.kind {
	case index.KindFunc:
		return q.resolveAll(q.unit.Funcs()[ref.id].Declarations)
	case index.KindVar:
		if d := q.unit.Vars()[ref.id].Declaration; d != nil {
			return []Location{q.resolve(*d)}
		}
	}
	return nil
}

// ReferencesTo returns every use of usr in visitation order, definition and
// declarations included. With interestingOnly, incidental uses are dropped.
func (q *QueryBuilder) ReferencesTo(usr string, interestingOnly bool) []Location {
	ref, ok := q.lookup(usr)
	if !ok {
		return nil
	}
	var out []Location
	for _, l := range q.def(ref).Uses {
		if interestingOnly && !l.Interesting {
			continue
		}
		out = append(out, q.resolve(l))
	}
	return out
}

// Callers returns the functions calling usr, one entry per call site.
func (q *QueryBuilder) Callers(usr string) []CallSite {
	id, ok := q.unit.LookupFunc(usr)
	if !ok {
		return nil
	}
	return q.callSites(q.unit.Func(id).Callers)
}

// Callees returns the functions usr calls, one entry per call site.
func (q *QueryBuilder) Callees(usr string) []CallSite {
	id, ok := q.unit.LookupFunc(usr)
	if !ok {
		return nil
	}
	return q.callSites(q.unit.Func(id).Callees)
}

func (q *QueryBuilder) callSites(refs []index.FuncRef) []CallSite {
	if len(refs) == 0 {
		return nil
	}
	out := make([]CallSite, len(refs))
	for i, r := range refs {
		out[i] = CallSite{Symbol: q.result(symbolRef{index.KindFunc, r.ID.Raw()}), At: q.resolve(r.Loc)}
	}
	return out
}

// SymbolAt finds the symbol used at (file, line, col): the use whose name
// spans col on that line. Interesting uses win over incidental ones. Returns
// nil if nothing is there.
func (q *QueryBuilder) SymbolAt(file string, line, col int) *SymbolResult {
	var (
		best     *symbolRef
		bestLoc  index.Location
		consider = func(ref symbolRef, d *index.Def) {
			for _, l := range d.Uses {
				if l.Line != line || l.Column > col || col >= l.Column+max(1, len(d.ShortName)) {
					continue
				}
				if p := q.resolve(l).File; p != file {
					continue
				}
				better := best == nil ||
					(l.Interesting && !bestLoc.Interesting) ||
					(l.Interesting == bestLoc.Interesting && l.Column > bestLoc.Column)
				if better {
					r := ref
					best, bestLoc = &r, l
				}
			}
		}
	)
	for i := range q.unit.Types() {
		consider(symbolRef{index.KindType, i}, &q.unit.Types()[i].Def)
	}
	for i := range q.unit.Funcs() {
		consider(symbolRef{index.KindFunc, i}, &q.unit.Funcs()[i].Def)
	}
	for i := range q.unit.Vars() {
		consider(symbolRef{index.KindVar, i}, &q.unit.Vars()[i].Def)
	}
	if best == nil {
		return nil
	}
	sr := q.result(*best)
	return &sr
}

// DefinitionAt is go-to-definition: the definition of the symbol used at
// (file, line, col), or nil.
func (q *QueryBuilder) DefinitionAt(file string, line, col int) *Location {
	sym := q.SymbolAt(file, line, col)
	if sym == nil {
		return nil
	}
	return sym.Definition
}
