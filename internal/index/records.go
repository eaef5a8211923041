package index

import "slices"

// SymbolKind names the three entity kinds.
type SymbolKind int

const (
	KindType SymbolKind = iota
	KindFunc
	KindVar
)

func (k SymbolKind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindFunc:
		return "func"
	case KindVar:
		return "var"
	default:
		return "unknown"
	}
}

// ParseSymbolKind accepts "type", "func"/"function" and "var"/"variable".
func ParseSymbolKind(s string) (SymbolKind, bool) {
	switch s {
	case "type":
		return KindType, true
	case "func", "function":
		return KindFunc, true
	case "var", "variable":
		return KindVar, true
	default:
		return 0, false
	}
}

// Metadata is the naming information a declaration or definition carries.
type Metadata struct {
	ShortName     string
	QualifiedName string
}

// Def holds what every entity record has in common.
type Def struct {
	USR           string
	ShortName     string
	QualifiedName string

	// Definition is the first definition site observed.
	Definition *Location

	// Uses lists every use site in visitation order, definitions included.
	Uses []Location

	// Placeholder stays true until declaration or definition content is merged.
	Placeholder bool
}

func newDef(usr string) Def {
	return Def{USR: usr, Placeholder: true}
}

// AddUsage appends loc to the use list. With unique set, loc is skipped when an
// equal location (interest ignored) is already present.
func (d *Def) AddUsage(loc Location, unique bool) {
	if unique && slices.ContainsFunc(d.Uses, loc.Equal) {
		return
	}
	d.Uses = append(d.Uses, loc)
}

// mergeNames fills empty name fields and marks the record as real.
func (d *Def) mergeNames(meta Metadata) {
	if d.ShortName == "" {
		d.ShortName = meta.ShortName
	}
	if d.QualifiedName == "" {
		d.QualifiedName = meta.QualifiedName
	}
	d.Placeholder = false
}

// mergeDefinition keeps the first definition. It returns the kept location and
// false when loc disagrees with it.
func (d *Def) mergeDefinition(loc Location) (Location, bool) {
	d.Placeholder = false
	if d.Definition == nil {
		d.Definition = &loc
		return loc, true
	}
	return *d.Definition, d.Definition.Equal(loc)
}

// TypeDef is the canonical record of a type.
type TypeDef struct {
	Def
	ID TypeID

	// AliasOf is set when this type is a typedef/using alias.
	AliasOf *TypeID

	// Immediate parent and derived types.
	Parents []TypeID
	Derived []TypeID

	// Types, functions and variables declared inside this type.
	Types []TypeID
	Funcs []FuncID
	Vars  []VarID
}

// FuncDef is the canonical record of a function or method.
type FuncDef struct {
	Def
	ID FuncID

	// DeclaringType is set for methods.
	DeclaringType *TypeID

	// Base is the method this one overrides.
	Base *FuncID

	// Derived lists methods that directly override this one.
	Derived []FuncID

	Locals []VarID

	// Callees are the functions this one calls; Callers the inverse.
	Callees []FuncRef
	Callers []FuncRef

	// Declarations lists forward-declaration sites.
	Declarations []Location
}

// VarDef is the canonical record of a variable, field or parameter.
type VarDef struct {
	Def
	ID VarID

	Declaration *Location

	VariableType  *TypeID
	DeclaringType *TypeID
}

func appendUnique[T comparable](s []T, v T) []T {
	if slices.Contains(s, v) {
		return s
	}
	return append(s, v)
}
