package index

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

// Kind markers. Each instantiates its own identifier namespace, so an ID of one
// kind can never be compared with or passed as an ID of another.
type (
	fileKind struct{}
	typeKind struct{}
	funcKind struct{}
	varKind  struct{}
)

// ID is an opaque identifier scoped to one symbol kind and one aggregate.
//
// The raw value is the allocation order within the aggregate that minted it.
// The unit tag ties the ID to that aggregate; looking it up in any other
// aggregate panics instead of silently returning an unrelated record.
type ID[K any] struct {
	unit uint32
	n    int32
}

type (
	FileID = ID[fileKind]
	TypeID = ID[typeKind]
	FuncID = ID[funcKind]
	VarID  = ID[varKind]
)

// Raw*ID build untagged identifiers from raw values. Only decoders that re-key
// serialized data should need them; untagged IDs cannot be resolved against an
// aggregate. A value outside [-1, math.MaxInt32] panics.
func RawFileID(n int) FileID { return FileID{n: rawValue(n)} }
func RawTypeID(n int) TypeID { return TypeID{n: rawValue(n)} }
func RawFuncID(n int) FuncID { return FuncID{n: rawValue(n)} }
func RawVarID(n int) VarID   { return VarID{n: rawValue(n)} }

func rawValue(n int) int32 {
	if n < -1 || n > math.MaxInt32 {
		panic(fmt.Sprintf("index: raw id %d out of range", n))
	}
	return int32(n)
}

// Raw returns the allocation-order value. -1 means unknown.
func (id ID[K]) Raw() int { return int(id.n) }

// Valid reports whether the ID refers to an allocated slot.
func (id ID[K]) Valid() bool { return id.n >= 0 }

// Compare orders IDs by allocation order only.
func (id ID[K]) Compare(o ID[K]) int { return cmp.Compare(id.n, o.n) }

func (id ID[K]) String() string { return strconv.Itoa(int(id.n)) }

// unitSeq mints the tags that distinguish aggregates from each other.
var unitSeq atomic.Uint32

func nextUnit() uint32 { return unitSeq.Add(1) }

// Allocator interns identity strings into IDs of a single kind. Allocation is
// monotonic: the first distinct string gets 0, the next 1, and so on.
type Allocator[K any] struct {
	unit  uint32
	byKey map[string]ID[K]
	keys  []string
}

func newAllocator[K any](unit uint32) *Allocator[K] {
	return &Allocator[K]{unit: unit, byKey: make(map[string]ID[K])}
}

// Intern returns the ID for key, allocating one on first sight. The bool is
// true when the ID was freshly allocated.
func (a *Allocator[K]) Intern(key string) (ID[K], bool) {
	if id, ok := a.byKey[key]; ok {
		return id, false
	}
	id := ID[K]{unit: a.unit, n: int32(len(a.keys))}
	a.byKey[key] = id
	a.keys = append(a.keys, key)
	return id, true
}

// Lookup returns the ID previously allocated for key.
func (a *Allocator[K]) Lookup(key string) (ID[K], bool) {
	id, ok := a.byKey[key]
	return id, ok
}

// Key returns the identity string an ID was allocated for.
func (a *Allocator[K]) Key(id ID[K]) (string, bool) {
	if !a.owns(id) {
		return "", false
	}
	return a.keys[id.n], true
}

// Len returns the number of allocated IDs.
func (a *Allocator[K]) Len() int { return len(a.keys) }

func (a *Allocator[K]) owns(id ID[K]) bool {
	return id.unit == a.unit && id.n >= 0 && int(id.n) < len(a.keys)
}

// Ref is a mention of a symbol at a specific place.
type Ref[K any] struct {
	ID  ID[K]
	Loc Location
}

type (
	TypeRef = Ref[typeKind]
	FuncRef = Ref[funcKind]
	VarRef  = Ref[varKind]
)

// Equal reports whether both refs name the same symbol at the same place.
// Location interest is ignored.
func (r Ref[K]) Equal(o Ref[K]) bool {
	return r.ID == o.ID && r.Loc.Equal(o.Loc)
}

// Compare orders refs by ID, then by location.
func (r Ref[K]) Compare(o Ref[K]) int {
	if c := r.ID.Compare(o.ID); c != 0 {
		return c
	}
	return r.Loc.Compare(o.Loc)
}
