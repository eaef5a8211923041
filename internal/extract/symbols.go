package extract

import (
	"slices"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// maxDepth bounds walks over base-class chains, which may be cyclic in
// malformed input.
const maxDepth = 32

type typeSym struct {
	usr  string
	name string
	qual string

	// Declaration context, for resolving base and alias names.
	ns    []string
	owner *typeSym
	fn    *funcSym

	baseNames []string
	bases     []*typeSym
	aliasName string
	aliasOf   *typeSym

	methods map[string]*funcSym
	fields  map[string]*varSym

	defined bool
}

func newTypeSym(usr, name, qual string) *typeSym {
	return &typeSym{
		usr:     usr,
		name:    name,
		qual:    qual,
		methods: make(map[string]*funcSym),
		fields:  make(map[string]*varSym),
	}
}

// underlying follows typedef chains to the aliased type.
func (t *typeSym) underlying() *typeSym {
	for i := 0; t != nil && t.aliasOf != nil && i < maxDepth; i++ {
		t = t.aliasOf
	}
	return t
}

func (t *typeSym) method(name string) *funcSym {
	if m := t.methods[name]; m != nil {
		return m
	}
	m := &funcSym{usr: t.usr + "@F@" + name + "#", name: name, qual: t.qual + "::" + name, owner: t}
	t.methods[name] = m
	return m
}

func (t *typeSym) field(name string) *varSym {
	if v := t.fields[name]; v != nil {
		return v
	}
	v := &varSym{usr: t.usr + "@FI@" + name, name: name, qual: t.qual + "::" + name, owner: t}
	t.fields[name] = v
	return v
}

func (t *typeSym) findField(name string, depth int) *varSym {
	t = t.underlying()
	if t == nil || depth > maxDepth {
		return nil
	}
	if v := t.fields[name]; v != nil {
		return v
	}
	for _, b := range t.bases {
		if v := b.findField(name, depth+1); v != nil {
			return v
		}
	}
	return nil
}

func (t *typeSym) findMethod(name string, depth int) *funcSym {
	t = t.underlying()
	if t == nil || depth > maxDepth {
		return nil
	}
	if m := t.methods[name]; m != nil {
		return m
	}
	for _, b := range t.bases {
		if m := b.findMethod(name, depth+1); m != nil {
			return m
		}
	}
	return nil
}

type funcSym struct {
	usr   string
	name  string
	qual  string
	owner *typeSym

	virtual  bool
	override bool
	base     *funcSym
}

type varSym struct {
	usr   string
	name  string
	qual  string
	owner *typeSym

	typeName string
	ns       []string
	fn       *funcSym
	typ      *typeSym
	resolved bool
}

// symbols is the per-unit table built by the collection pass. Tag types
// (struct, class, union, enum) and typedef names live in separate maps, as
// they do in C.
type symbols struct {
	tags       map[string]*typeSym
	typedefs   map[string]*typeSym
	funcs      map[string]*funcSym
	vars       map[string]*varSym
	namespaces map[string]bool

	// Keyed by the start byte of the declaring node, so the emission pass
	// finds exactly what the collection pass registered.
	typeAt map[uint32]*typeSym
	funcAt map[uint32]*funcSym
	varAt  map[uint32]*varSym

	all []*typeSym
}

func newSymbols() *symbols {
	return &symbols{
		tags:       make(map[string]*typeSym),
		typedefs:   make(map[string]*typeSym),
		funcs:      make(map[string]*funcSym),
		vars:       make(map[string]*varSym),
		namespaces: make(map[string]bool),
		typeAt:     make(map[uint32]*typeSym),
		funcAt:     make(map[uint32]*funcSym),
		varAt:      make(map[uint32]*varSym),
	}
}

func qualify(ns []string, name string) string {
	if len(ns) == 0 {
		return name
	}
	return strings.Join(ns, "::") + "::" + name
}

func nsUSR(ns []string) string {
	var b strings.Builder
	b.WriteString("c:")
	for _, n := range ns {
		b.WriteString("@N@")
		b.WriteString(n)
	}
	return b.String()
}

// scopeUSR is the prefix for symbols declared in the given context.
func scopeUSR(ns []string, owner *typeSym, fn *funcSym) string {
	switch {
	case owner != nil:
		return owner.usr
	case fn != nil:
		return fn.usr
	default:
		return nsUSR(ns)
	}
}

func scopeQual(ns []string, owner *typeSym, fn *funcSym, name string) string {
	switch {
	case owner != nil:
		return owner.qual + "::" + name
	case fn != nil:
		return fn.qual + "::" + name
	default:
		return qualify(ns, name)
	}
}

func splitQualified(name string) (scope, base string) {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[:i], name[i+2:]
	}
	return "", name
}

func (s *symbols) register(m map[string]*typeSym, t *typeSym) *typeSym {
	m[t.qual] = t
	s.all = append(s.all, t)
	return t
}

func (s *symbols) isNamespace(ns []string, name string) bool {
	name = strings.TrimPrefix(name, "::")
	for i := len(ns); i >= 0; i-- {
		if s.namespaces[qualify(ns[:i], name)] {
			return true
		}
	}
	return false
}

// lookupIn resolves name from the given context outward: enclosing function,
// enclosing classes, then the namespace chain up to global scope.
func lookupIn[T any](m map[string]*T, ns []string, owner *typeSym, fn *funcSym, name string) *T {
	name = strings.TrimPrefix(name, "::")
	if fn != nil {
		if v := m[fn.qual+"::"+name]; v != nil {
			return v
		}
		if owner == nil {
			owner = fn.owner
		}
	}
	for o := owner; o != nil; o = o.owner {
		if v := m[o.qual+"::"+name]; v != nil {
			return v
		}
		if o.owner == nil && len(o.ns) > len(ns) {
			ns = o.ns
		}
	}
	for i := len(ns); i >= 0; i-- {
		if v := m[qualify(ns[:i], name)]; v != nil {
			return v
		}
	}
	return nil
}

func (s *symbols) lookupType(ns []string, owner *typeSym, fn *funcSym, name string) *typeSym {
	if t := lookupIn(s.typedefs, ns, owner, fn, name); t != nil {
		return t
	}
	return lookupIn(s.tags, ns, owner, fn, name)
}

func (s *symbols) lookupTag(ns []string, owner *typeSym, fn *funcSym, name string) *typeSym {
	return lookupIn(s.tags, ns, owner, fn, name)
}

func (s *symbols) lookupFunc(ns []string, name string) *funcSym {
	return lookupIn(s.funcs, ns, nil, nil, name)
}

func (s *symbols) lookupVar(ns []string, name string) *varSym {
	return lookupIn(s.vars, ns, nil, nil, name)
}

// defineTag returns the tag type name declared in the given scope, creating it
// when absent.
func (s *symbols) defineTag(ns []string, owner *typeSym, fn *funcSym, name, tag string) *typeSym {
	qual := scopeQual(ns, owner, fn, name)
	if t := s.tags[qual]; t != nil {
		return t
	}
	t := newTypeSym(scopeUSR(ns, owner, fn)+tag+strings.ReplaceAll(name, "::", tag), lastSegment(name), qual)
	t.ns, t.owner, t.fn = ns, owner, fn
	return s.register(s.tags, t)
}

// referTag resolves an elaborated reference such as "struct A". An unknown
// tag is declared in the current scope.
func (s *symbols) referTag(ns []string, owner *typeSym, fn *funcSym, name, tag string) *typeSym {
	if t := s.lookupTag(ns, owner, fn, name); t != nil {
		return t
	}
	return s.defineTag(ns, owner, fn, name, tag)
}

func (s *symbols) anonymousTag(ns []string, owner *typeSym, fn *funcSym, n *sitter.Node, typedefName, tag string) *typeSym {
	var t *typeSym
	if typedefName != "" {
		t = newTypeSym(scopeUSR(ns, owner, fn)+tag+"A@"+typedefName, typedefName, scopeQual(ns, owner, fn, typedefName))
	} else {
		t = newTypeSym(scopeUSR(ns, owner, fn)+tag+"a@"+strconv.Itoa(int(n.StartByte())), "", scopeQual(ns, owner, fn, "(anonymous)"))
	}
	t.ns, t.owner, t.fn = ns, owner, fn
	s.all = append(s.all, t)
	return t
}

func (s *symbols) defineTypedef(ns []string, owner *typeSym, fn *funcSym, name string) *typeSym {
	qual := scopeQual(ns, owner, fn, name)
	if t := s.typedefs[qual]; t != nil {
		return t
	}
	t := newTypeSym(scopeUSR(ns, owner, fn)+"@T@"+name, name, qual)
	t.ns, t.owner, t.fn = ns, owner, fn
	return s.register(s.typedefs, t)
}

// external synthesizes a type known only by reference. Qualifiers that are
// not known namespaces are taken to be classes.
func (s *symbols) external(name, tag string) *typeSym {
	name = strings.TrimPrefix(name, "::")
	if t := s.tags[name]; t != nil {
		return t
	}
	if t := s.typedefs[name]; t != nil {
		return t
	}
	segs := strings.Split(name, "::")
	var b strings.Builder
	b.WriteString("c:")
	for i, seg := range segs[:len(segs)-1] {
		if s.namespaces[strings.Join(segs[:i+1], "::")] {
			b.WriteString("@N@")
		} else {
			b.WriteString("@S@")
		}
		b.WriteString(seg)
	}
	b.WriteString(tag)
	b.WriteString(segs[len(segs)-1])
	t := newTypeSym(b.String(), segs[len(segs)-1], name)
	if tag == "@T@" {
		return s.register(s.typedefs, t)
	}
	return s.register(s.tags, t)
}

func externalFuncUSR(s *symbols, name string) string {
	name = strings.TrimPrefix(name, "::")
	scope, base := splitQualified(name)
	if scope == "" {
		return "c:@F@" + base + "#"
	}
	if !s.namespaces[scope] {
		return s.external(scope, "@S@").usr + "@F@" + base + "#"
	}
	return nsUSR(strings.Split(scope, "::")) + "@F@" + base + "#"
}

// declareFunc registers a function or method declared or defined in the
// given context. Out-of-line definitions ("A::m") attach to their class.
func (s *symbols) declareFunc(ns []string, owner *typeSym, name string) *funcSym {
	if owner != nil {
		return owner.method(name)
	}
	if scope, base := splitQualified(name); scope != "" && !s.isNamespace(ns, scope) {
		t := s.lookupType(ns, nil, nil, scope)
		if t == nil {
			t = s.external(qualify(ns, scope), "@S@")
		}
		return t.underlying().method(base)
	}
	qual := qualify(ns, strings.TrimPrefix(name, "::"))
	if f := s.funcs[qual]; f != nil {
		return f
	}
	segs := strings.Split(qual, "::")
	f := &funcSym{
		usr:  nsUSR(segs[:len(segs)-1]) + "@F@" + segs[len(segs)-1] + "#",
		name: segs[len(segs)-1],
		qual: qual,
	}
	s.funcs[qual] = f
	return f
}

// declareVar registers a namespace-scope variable or an out-of-line static
// member definition ("int A::count").
func (s *symbols) declareVar(ns []string, name string) *varSym {
	if scope, base := splitQualified(name); scope != "" && !s.isNamespace(ns, scope) {
		if t := s.lookupType(ns, nil, nil, scope); t != nil {
			return t.underlying().field(base)
		}
	}
	qual := qualify(ns, strings.TrimPrefix(name, "::"))
	if v := s.vars[qual]; v != nil {
		return v
	}
	segs := strings.Split(qual, "::")
	v := &varSym{
		usr:  nsUSR(segs[:len(segs)-1]) + "@" + segs[len(segs)-1],
		name: segs[len(segs)-1],
		qual: qual,
	}
	s.vars[qual] = v
	return v
}

// varType resolves the declared type of v on first use.
func (s *symbols) varType(v *varSym) *typeSym {
	if v == nil {
		return nil
	}
	if !v.resolved {
		v.resolved = true
		if v.typeName != "" {
			v.typ = s.lookupType(v.ns, v.owner, v.fn, v.typeName)
		}
	}
	return v.typ
}

// finalize links base classes, typedef targets and overrides once every
// declaration in the unit has been collected.
func (s *symbols) finalize() {
	for i := 0; i < len(s.all); i++ {
		t := s.all[i]
		for _, name := range t.baseNames {
			b := s.lookupType(t.ns, t.owner, t.fn, name)
			if b == nil {
				b = s.external(name, "@S@")
			}
			t.bases = append(t.bases, b)
		}
		if t.aliasName != "" && t.aliasOf == nil {
			target := s.lookupType(t.ns, t.owner, t.fn, t.aliasName)
			if target == nil {
				target = s.external(t.aliasName, "@T@")
			}
			if target != t {
				t.aliasOf = target
			}
		}
	}
	for _, t := range s.all {
		if len(t.bases) == 0 {
			continue
		}
		names := make([]string, 0, len(t.methods))
		for name := range t.methods {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			t.methods[name].base = s.overridden(t, name, 0)
		}
	}
}

// overridden returns the nearest virtual method named name in t's bases.
func (s *symbols) overridden(t *typeSym, name string, depth int) *funcSym {
	if depth > maxDepth {
		return nil
	}
	for _, b := range t.underlying().bases {
		if m := s.virtualIn(b, name, depth+1); m != nil {
			return m
		}
	}
	return nil
}

func (s *symbols) virtualIn(t *typeSym, name string, depth int) *funcSym {
	t = t.underlying()
	if t == nil || depth > maxDepth {
		return nil
	}
	if m := t.methods[name]; m != nil {
		if m.virtual || m.override || s.overridden(t, name, depth+1) != nil {
			return m
		}
		return nil
	}
	return s.overridden(t, name, depth)
}

func lastSegment(name string) string {
	_, base := splitQualified(name)
	return base
}

// --- Node helpers ---

func declarators(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) == "declarator" {
			out = append(out, n.Child(i))
		}
	}
	return out
}

// unwrapDeclarator finds the declared name inside a declarator. fn is the
// function declarator when the name declares a function (not a pointer to
// one).
func unwrapDeclarator(n *sitter.Node) (name, fn *sitter.Node) {
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier", "type_identifier", "qualified_identifier",
			"destructor_name", "operator_name", "namespace_identifier":
			return n, fn
		case "function_declarator":
			if fn == nil {
				fn = n
			}
			n = n.ChildByFieldName("declarator")
		case "pointer_declarator", "reference_declarator", "parenthesized_declarator":
			// Inside a function declarator these make a function pointer.
			fn = nil
			n = innerDeclarator(n)
		default:
			n = innerDeclarator(n)
		}
	}
	return nil, fn
}

// leafName is the unqualified name node of a possibly qualified identifier.
func leafName(n *sitter.Node) *sitter.Node {
	for i := 0; n != nil && n.Type() == "qualified_identifier" && i < maxDepth; i++ {
		name := n.ChildByFieldName("name")
		if name == nil {
			break
		}
		n = name
	}
	return n
}

func innerDeclarator(n *sitter.Node) *sitter.Node {
	if d := n.ChildByFieldName("declarator"); d != nil {
		return d
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		switch ch.Type() {
		case "type_qualifier", "attribute_specifier", "ms_pointer_modifier", "comment":
			continue
		}
		return ch
	}
	return nil
}

// hasKeyword reports whether a direct child of n is the keyword word, as a
// token or a specifier node wrapping it.
func hasKeyword(n *sitter.Node, src []byte, word string) bool {
	if n == nil {
		return false
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		if ch.Type() == word {
			return true
		}
		if ch.ChildCount() <= 1 && ch.Content(src) == word {
			return true
		}
	}
	return false
}

func stripTemplate(name string) string {
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// typeName is the name a type node refers to, or "" for builtin and
// anonymous types.
func typeName(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "type_identifier", "qualified_identifier":
		return stripTemplate(n.Content(src))
	case "template_type":
		return typeName(n.ChildByFieldName("name"), src)
	case "struct_specifier", "class_specifier", "union_specifier", "enum_specifier":
		if name := n.ChildByFieldName("name"); name != nil {
			return stripTemplate(name.Content(src))
		}
	case "type_descriptor":
		return typeName(n.ChildByFieldName("type"), src)
	}
	return ""
}

func specifierTag(kind string) string {
	switch kind {
	case "union_specifier":
		return "@U@"
	case "enum_specifier":
		return "@E@"
	default:
		return "@S@"
	}
}

func isSpecifier(kind string) bool {
	switch kind {
	case "struct_specifier", "class_specifier", "union_specifier", "enum_specifier":
		return true
	}
	return false
}

// baseNodes lists the base class names of a class specifier in source order.
func baseNodes(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		if clause.Type() != "base_class_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			switch b := clause.NamedChild(j); b.Type() {
			case "type_identifier", "qualified_identifier", "template_type":
				out = append(out, b)
			}
		}
	}
	return out
}
