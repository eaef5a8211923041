package index

// File is the index aggregate of one compilation unit. It owns the identity
// cache and the three entity stores, and is not safe for concurrent use.
//
// Pointers returned by Type, Func and Var stay valid only until the next
// record of the same kind is created. Hold IDs, not pointers.
type File struct {
	// Path is the main source file of the unit.
	Path string

	resolver   *Resolver
	types      *entityStore[typeKind, TypeDef]
	funcs      *entityStore[funcKind, FuncDef]
	vars       *entityStore[varKind, VarDef]
	conditions []Condition
}

// NewFile returns an empty aggregate for the unit rooted at path. The path is
// registered first, so it always gets FileID 0.
func NewFile(path string) *File {
	r := NewResolver()
	f := &File{
		Path:     path,
		resolver: r,
		types:    newTypeStore(r.types),
		funcs:    newFuncStore(r.funcs),
		vars:     newVarStore(r.vars),
	}
	if path != "" {
		r.FileID(path)
	}
	return f
}

// Resolver returns the unit's identity cache.
func (f *File) Resolver() *Resolver { return f.resolver }

// Resolve normalizes a position against this unit's file table.
func (f *File) Resolve(p Position, interesting bool) Location {
	return f.resolver.Resolve(p, interesting)
}

// ToTypeID returns the ID for usr, creating a placeholder record on first
// sight. Anonymous types may use an empty usr.
func (f *File) ToTypeID(usr string) TypeID {
	id, _ := f.types.getOrCreate(usr)
	return id
}

// ToFuncID returns the ID for usr, creating a placeholder record on first
// sight. An empty usr fails with ErrMalformedIdentity.
func (f *File) ToFuncID(usr string) (FuncID, error) {
	return f.funcs.getOrCreate(usr)
}

// ToVarID returns the ID for usr, creating a placeholder record on first
// sight. An empty usr fails with ErrMalformedIdentity.
func (f *File) ToVarID(usr string) (VarID, error) {
	return f.vars.getOrCreate(usr)
}

// LookupType returns the ID of a type seen before, without creating one.
func (f *File) LookupType(usr string) (TypeID, bool) { return f.types.lookup(usr) }

// LookupFunc returns the ID of a function seen before, without creating one.
func (f *File) LookupFunc(usr string) (FuncID, bool) { return f.funcs.lookup(usr) }

// LookupVar returns the ID of a variable seen before, without creating one.
func (f *File) LookupVar(usr string) (VarID, bool) { return f.vars.lookup(usr) }

// Type resolves a type ID minted by this unit.
func (f *File) Type(id TypeID) *TypeDef { return f.types.at(id) }

// Func resolves a function ID minted by this unit.
func (f *File) Func(id FuncID) *FuncDef { return f.funcs.at(id) }

// Var resolves a variable ID minted by this unit.
func (f *File) Var(id VarID) *VarDef { return f.vars.at(id) }

// Types returns every type record in ID order. The slice is a read-only view.
func (f *File) Types() []TypeDef { return f.types.records }

// Funcs returns every function record in ID order. The slice is a read-only view.
func (f *File) Funcs() []FuncDef { return f.funcs.records }

// Vars returns every variable record in ID order. The slice is a read-only view.
func (f *File) Vars() []VarDef { return f.vars.records }

// Files returns the unit's file paths in FileID order.
func (f *File) Files() []string { return f.resolver.Files() }

// FilePath returns the path for a FileID of this unit.
func (f *File) FilePath(id FileID) (string, bool) { return f.resolver.FilePath(id) }

// Conditions returns the anomalies recorded so far.
func (f *File) Conditions() []Condition { return f.conditions }

// Record appends a condition.
func (f *File) Record(c Condition) { f.conditions = append(f.conditions, c) }

// Stats counts records per kind.
type Stats struct {
	Files, Types, Funcs, Vars, Placeholders, Conditions int
}

// Stats summarizes the unit.
func (f *File) Stats() Stats {
	s := Stats{
		Files:      f.resolver.files.Len(),
		Types:      f.types.len(),
		Funcs:      f.funcs.len(),
		Vars:       f.vars.len(),
		Conditions: len(f.conditions),
	}
	types, funcs, vars := f.Placeholders()
	s.Placeholders = len(types) + len(funcs) + len(vars)
	return s
}

// Placeholders lists records that were only ever referenced.
func (f *File) Placeholders() (types []TypeID, funcs []FuncID, vars []VarID) {
	for i := range f.types.records {
		if f.types.records[i].Placeholder {
			types = append(types, f.types.records[i].ID)
		}
	}
	for i := range f.funcs.records {
		if f.funcs.records[i].Placeholder {
			funcs = append(funcs, f.funcs.records[i].ID)
		}
	}
	for i := range f.vars.records {
		if f.vars.records[i].Placeholder {
			vars = append(vars, f.vars.records[i].ID)
		}
	}
	return types, funcs, vars
}

// --- Declaration and definition merges ---

// DeclareType merges naming metadata into a type and records loc as a use.
// Types keep no separate declaration site.
func (f *File) DeclareType(id TypeID, loc Location, meta Metadata) {
	t := f.types.at(id)
	t.mergeNames(meta)
	f.addSite(&t.Def, loc)
}

// DefineType merges a type definition. A differing second definition is
// recorded as ConflictingDefinition and otherwise ignored.
func (f *File) DefineType(id TypeID, loc Location, meta Metadata) {
	t := f.types.at(id)
	t.mergeNames(meta)
	f.mergeDefinition(KindType, &t.Def, loc)
}

// DeclareFunc merges a forward declaration of a function.
func (f *File) DeclareFunc(id FuncID, loc Location, meta Metadata) {
	fn := f.funcs.at(id)
	fn.mergeNames(meta)
	if !loc.IsUnknown() && !containsLocation(fn.Declarations, loc) {
		fn.Declarations = append(fn.Declarations, loc)
	}
	f.addSite(&fn.Def, loc)
}

// DefineFunc merges a function definition.
func (f *File) DefineFunc(id FuncID, loc Location, meta Metadata) {
	fn := f.funcs.at(id)
	fn.mergeNames(meta)
	f.mergeDefinition(KindFunc, &fn.Def, loc)
}

// DeclareVar merges a variable declaration. The first declaration site is kept.
func (f *File) DeclareVar(id VarID, loc Location, meta Metadata) {
	v := f.vars.at(id)
	v.mergeNames(meta)
	if v.Declaration == nil && !loc.IsUnknown() {
		v.Declaration = &loc
	}
	f.addSite(&v.Def, loc)
}

// DefineVar merges a variable definition.
func (f *File) DefineVar(id VarID, loc Location, meta Metadata) {
	v := f.vars.at(id)
	v.mergeNames(meta)
	f.mergeDefinition(KindVar, &v.Def, loc)
}

func (f *File) addSite(d *Def, loc Location) {
	if loc.IsUnknown() {
		return
	}
	d.AddUsage(loc, true)
}

func (f *File) mergeDefinition(kind SymbolKind, d *Def, loc Location) {
	if loc.IsUnknown() {
		d.Placeholder = false
		return
	}
	kept, ok := d.mergeDefinition(loc)
	if !ok {
		f.Record(Condition{Code: ConflictingDefinition, Kind: kind, USR: d.USR, Kept: kept, Got: loc})
		return
	}
	d.AddUsage(loc, true)
}

func containsLocation(locs []Location, loc Location) bool {
	for _, l := range locs {
		if l.Equal(loc) {
			return true
		}
	}
	return false
}

// --- Relationship edges ---

// AddParent links child to an immediate parent type on both sides.
func (f *File) AddParent(child, parent TypeID) {
	c := f.types.at(child)
	c.Parents = appendUnique(c.Parents, parent)
	p := f.types.at(parent)
	p.Derived = appendUnique(p.Derived, child)
}

// SetAlias marks alias as another name for target. The first target wins.
func (f *File) SetAlias(alias, target TypeID) {
	f.types.at(target) // ownership check
	a := f.types.at(alias)
	if a.AliasOf == nil {
		a.AliasOf = &target
	}
}

// AddNestedType records inner as declared inside outer.
func (f *File) AddNestedType(outer, inner TypeID) {
	f.types.at(inner)
	o := f.types.at(outer)
	o.Types = appendUnique(o.Types, inner)
}

// AddMethod records fn as declared inside owner.
func (f *File) AddMethod(owner TypeID, fn FuncID) {
	m := f.funcs.at(fn)
	if m.DeclaringType == nil {
		m.DeclaringType = &owner
	}
	o := f.types.at(owner)
	o.Funcs = appendUnique(o.Funcs, fn)
}

// AddField records v as declared inside owner.
func (f *File) AddField(owner TypeID, v VarID) {
	vr := f.vars.at(v)
	if vr.DeclaringType == nil {
		vr.DeclaringType = &owner
	}
	o := f.types.at(owner)
	o.Vars = appendUnique(o.Vars, v)
}

// AddCall records that caller calls callee at loc. The callee edge on caller
// and the caller edge on callee are appended together.
func (f *File) AddCall(caller, callee FuncID, loc Location) {
	from := f.funcs.at(caller)
	to := f.funcs.at(callee)
	from.Callees = append(from.Callees, FuncRef{ID: callee, Loc: loc})
	to.Callers = append(to.Callers, FuncRef{ID: caller, Loc: loc})
}

// SetBase records that method overrides base. The first base wins; base gains
// method as a derived override.
func (f *File) SetBase(method, base FuncID) {
	if method == base {
		return
	}
	m := f.funcs.at(method)
	b := f.funcs.at(base)
	if m.Base != nil && *m.Base != base {
		return
	}
	m.Base = &base
	b.Derived = appendUnique(b.Derived, method)
}

// AddLocal records v as a local variable of fn.
func (f *File) AddLocal(fn FuncID, v VarID) {
	f.vars.at(v)
	r := f.funcs.at(fn)
	r.Locals = appendUnique(r.Locals, v)
}

// SetVariableType records the declared type of v. The first type wins.
func (f *File) SetVariableType(v VarID, t TypeID) {
	f.types.at(t)
	vr := f.vars.at(v)
	if vr.VariableType == nil {
		vr.VariableType = &t
	}
}
