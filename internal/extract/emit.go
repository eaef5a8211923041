package extract

import (
	"slices"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/xref/internal/index"
)

// emitter is the second pass: it walks the tree in source order and reports
// declarations, definitions, uses and edges to the sink.
type emitter struct {
	x    *Extractor
	path string
	src  []byte
	syms *symbols
	sink Sink

	events  int
	dropped int

	// Function context. class is the type whose members resolve implicitly.
	fn     *funcSym
	class  *typeSym
	scopes []map[string]*varSym
	seen   map[string]int
}

func (e *emitter) text(n *sitter.Node) string { return n.Content(e.src) }

func (e *emitter) pos(n *sitter.Node) index.Position {
	if n == nil {
		return nil
	}
	return index.NodePosition{Path: e.path, Node: n}
}

func (e *emitter) emit(ev index.Event) {
	if ev.Role == index.RoleReference || ev.Role == index.RoleCall {
		ev.Unique = e.x.uniqueUses
	}
	e.events++
	if err := e.sink.Handle(ev); err != nil {
		e.dropped++
		e.x.logger.Debug("event dropped",
			"path", e.path, "role", ev.Role.String(), "usr", ev.USR, "err", err)
	}
}

func ownerUSR(t *typeSym) string {
	if t == nil {
		return ""
	}
	return t.usr
}

func (e *emitter) define(kind index.SymbolKind, role index.Role, usr, short, qual string, at *sitter.Node, parent string) {
	e.emit(index.Event{
		Kind:          kind,
		Role:          role,
		USR:           usr,
		Pos:           e.pos(at),
		ShortName:     short,
		QualifiedName: qual,
		ParentUSR:     parent,
	})
}

func (e *emitter) reference(kind index.SymbolKind, usr string, at *sitter.Node, interesting bool) {
	e.emit(index.Event{Kind: kind, Role: index.RoleReference, USR: usr, Pos: e.pos(at), Interesting: interesting})
}

func (e *emitter) push() { e.scopes = append(e.scopes, make(map[string]*varSym)) }

func (e *emitter) pop() {
	if len(e.scopes) > 0 {
		e.scopes = e.scopes[:len(e.scopes)-1]
	}
}

func (e *emitter) walkChildren(n *sitter.Node, ns []string, owner *typeSym) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		e.walk(n.NamedChild(i), ns, owner)
	}
}

func (e *emitter) walk(n *sitter.Node, ns []string, owner *typeSym) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "namespace_definition":
		inner := ns
		if name := n.ChildByFieldName("name"); name != nil {
			inner = append(slices.Clip(ns), e.text(name))
		}
		if body := n.ChildByFieldName("body"); body != nil {
			e.walkChildren(body, inner, owner)
		}
	case "struct_specifier", "class_specifier", "union_specifier", "enum_specifier":
		e.record(n, ns, owner)
	case "type_definition":
		e.typedef(n, ns, owner)
	case "alias_declaration":
		e.alias(n, ns, owner)
	case "function_definition":
		e.function(n, ns, owner)
	case "declaration", "field_declaration":
		e.declaration(n, ns, owner)
	case "call_expression":
		e.call(n, ns)
	case "field_expression":
		e.fieldRef(n, ns)
	case "field_initializer":
		e.fieldInitializer(n, ns)
	case "identifier":
		e.identifier(n, ns)
	case "qualified_identifier":
		e.qualified(n, ns)
	case "type_identifier", "template_type":
		e.typeRef(n, ns, owner)
	case "for_range_loop":
		e.rangeLoop(n, ns)
	case "compound_statement", "for_statement", "if_statement", "while_statement", "catch_clause":
		e.push()
		e.walkChildren(n, ns, owner)
		e.pop()
	case "friend_declaration", "comment", "preproc_include", "preproc_def", "preproc_function_def",
		"preproc_call", "string_literal", "char_literal", "number_literal", "primitive_type",
		"field_identifier", "namespace_identifier", "statement_identifier":
	default:
		e.walkChildren(n, ns, owner)
	}
}

// typeNode reports the type part of a declaration.
func (e *emitter) typeNode(n *sitter.Node, ns []string, owner *typeSym) {
	if n == nil {
		return
	}
	if n.Type() == "qualified_identifier" {
		e.typeRef(n, ns, owner)
		return
	}
	e.walk(n, ns, owner)
}

// --- Types ---

func (e *emitter) record(n *sitter.Node, ns []string, owner *typeSym) {
	t := e.syms.typeAt[n.StartByte()]
	if t == nil {
		return
	}
	name := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")

	if body == nil {
		if isForwardDeclaration(n) {
			e.define(index.KindType, index.RoleDeclaration, t.usr, t.name, t.qual, name, "")
			return
		}
		e.reference(index.KindType, t.usr, name, true)
		return
	}

	at := name
	if at == nil {
		at = n
	}
	e.define(index.KindType, index.RoleDefinition, t.usr, t.name, t.qual, at, ownerUSR(owner))

	for i, b := range baseNodes(n) {
		if i >= len(t.bases) {
			break
		}
		e.emit(index.Event{
			Kind:        index.KindType,
			Role:        index.RoleParent,
			USR:         t.usr,
			ParentUSR:   t.bases[i].usr,
			Pos:         e.pos(b),
			Interesting: true,
		})
	}

	if n.Type() == "enum_specifier" {
		e.enumerators(body, ns, t)
		return
	}
	e.walkChildren(body, ns, t)
}

func isForwardDeclaration(n *sitter.Node) bool {
	p := n.Parent()
	if p == nil {
		return false
	}
	switch p.Type() {
	case "declaration", "field_declaration":
		return len(declarators(p)) == 0
	case "translation_unit", "declaration_list", "field_declaration_list", "compound_statement":
		return true
	}
	return false
}

func (e *emitter) enumerators(body *sitter.Node, ns []string, t *typeSym) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		en := body.NamedChild(i)
		if en.Type() != "enumerator" {
			continue
		}
		name := en.ChildByFieldName("name")
		if name == nil {
			continue
		}
		v := e.syms.varAt[name.StartByte()]
		if v == nil {
			continue
		}
		e.define(index.KindVar, index.RoleDefinition, v.usr, v.name, v.qual, name, t.usr)
		e.emit(index.Event{Kind: index.KindVar, Role: index.RoleVarType, USR: v.usr, TargetUSR: t.usr})
		e.walk(en.ChildByFieldName("value"), ns, nil)
	}
}

func (e *emitter) typedef(n *sitter.Node, ns []string, owner *typeSym) {
	e.typeNode(n.ChildByFieldName("type"), ns, owner)
	for _, d := range declarators(n) {
		name, _ := unwrapDeclarator(d)
		if name == nil {
			continue
		}
		td := e.syms.typeAt[name.StartByte()]
		if td == nil {
			continue
		}
		e.define(index.KindType, index.RoleDefinition, td.usr, td.name, td.qual, name, ownerUSR(owner))
		if td.aliasOf != nil {
			e.emit(index.Event{Kind: index.KindType, Role: index.RoleAlias, USR: td.usr, TargetUSR: td.aliasOf.usr})
		}
	}
}

func (e *emitter) alias(n *sitter.Node, ns []string, owner *typeSym) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	if td := e.syms.typeAt[name.StartByte()]; td != nil {
		e.define(index.KindType, index.RoleDefinition, td.usr, td.name, td.qual, name, ownerUSR(owner))
		if td.aliasOf != nil {
			e.emit(index.Event{Kind: index.KindType, Role: index.RoleAlias, USR: td.usr, TargetUSR: td.aliasOf.usr})
		}
	}
	e.typeNode(n.ChildByFieldName("type"), ns, owner)
}

func (e *emitter) typeRef(n *sitter.Node, ns []string, owner *typeSym) {
	name := typeName(n, e.src)
	if name == "" {
		e.walkChildren(n, ns, owner)
		return
	}
	if owner == nil {
		owner = e.class
	}
	t := e.syms.lookupType(ns, owner, e.fn, name)
	if t == nil {
		t = e.syms.external(name, "@T@")
	}
	at := n
	if n.Type() == "template_type" {
		if nm := n.ChildByFieldName("name"); nm != nil {
			at = nm
		}
	}
	e.reference(index.KindType, t.usr, at, true)
	if n.Type() == "template_type" {
		e.walk(n.ChildByFieldName("arguments"), ns, owner)
	}
}

// --- Functions and variables ---

func (e *emitter) function(n *sitter.Node, ns []string, owner *typeSym) {
	name, fnDecl := unwrapDeclarator(n.ChildByFieldName("declarator"))
	if name == nil {
		return
	}
	f := e.syms.funcAt[name.StartByte()]
	if f == nil {
		return
	}
	e.typeNode(n.ChildByFieldName("type"), ns, owner)
	e.define(index.KindFunc, index.RoleDefinition, f.usr, f.name, f.qual, leafName(name), ownerUSR(f.owner))
	e.override(f)

	savedFn, savedClass, savedScopes, savedSeen := e.fn, e.class, e.scopes, e.seen
	e.fn, e.class, e.scopes, e.seen = f, f.owner, nil, make(map[string]int)
	e.push()
	if fnDecl != nil {
		e.params(fnDecl, ns, true)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if ch := n.NamedChild(i); ch.Type() == "field_initializer_list" {
			e.walk(ch, ns, nil)
		}
	}
	e.walk(n.ChildByFieldName("body"), ns, nil)
	e.fn, e.class, e.scopes, e.seen = savedFn, savedClass, savedScopes, savedSeen
}

func (e *emitter) override(f *funcSym) {
	if f.base == nil {
		return
	}
	e.emit(index.Event{Kind: index.KindFunc, Role: index.RoleOverride, USR: f.usr, ParentUSR: f.base.usr})
}

// params reports parameter types and, for definitions, the parameters
// themselves as locals.
func (e *emitter) params(fnDecl *sitter.Node, ns []string, locals bool) {
	list := fnDecl.ChildByFieldName("parameters")
	if list == nil {
		return
	}
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		switch p.Type() {
		case "parameter_declaration", "optional_parameter_declaration":
		default:
			continue
		}
		typeNode := p.ChildByFieldName("type")
		e.typeNode(typeNode, ns, nil)
		if locals {
			if name, _ := unwrapDeclarator(p.ChildByFieldName("declarator")); name != nil {
				e.local(name, typeNode, ns)
			}
		}
		e.walk(p.ChildByFieldName("default_value"), ns, nil)
	}
}

// local defines a function-local variable or parameter. Shadowing
// declarations of the same name get an ordinal suffix.
func (e *emitter) local(name, typeNode *sitter.Node, ns []string) *varSym {
	text := e.text(name)
	usr := e.fn.usr + "@" + text
	if k := e.seen[text]; k > 0 {
		usr += "@" + strconv.Itoa(k+1)
	}
	e.seen[text]++

	v := &varSym{usr: usr, name: text, qual: text, resolved: true}
	if typeNode != nil {
		if isSpecifier(typeNode.Type()) && typeNode.ChildByFieldName("body") != nil {
			v.typ = e.syms.typeAt[typeNode.StartByte()]
		} else if tn := typeName(typeNode, e.src); tn != "" {
			v.typ = e.syms.lookupType(ns, e.class, e.fn, tn)
		}
	}

	e.define(index.KindVar, index.RoleDefinition, v.usr, v.name, e.fn.qual+"::"+text, name, "")
	e.emit(index.Event{Kind: index.KindVar, Role: index.RoleLocal, USR: v.usr, ParentUSR: e.fn.usr})
	if v.typ != nil {
		e.emit(index.Event{Kind: index.KindVar, Role: index.RoleVarType, USR: v.usr, TargetUSR: v.typ.usr})
	}
	if len(e.scopes) == 0 {
		e.push()
	}
	e.scopes[len(e.scopes)-1][text] = v
	return v
}

func (e *emitter) declaration(n *sitter.Node, ns []string, owner *typeSym) {
	typeNode := n.ChildByFieldName("type")
	e.typeNode(typeNode, ns, owner)
	extern := hasKeyword(n, e.src, "extern")
	local := e.fn != nil && owner == nil

	for _, d := range declarators(n) {
		name, fnDecl := unwrapDeclarator(d)
		if name == nil {
			continue
		}
		switch {
		case fnDecl != nil:
			if f := e.syms.funcAt[name.StartByte()]; f != nil {
				e.define(index.KindFunc, index.RoleDeclaration, f.usr, f.name, f.qual, leafName(name), ownerUSR(f.owner))
				e.override(f)
			}
			e.params(fnDecl, ns, false)
		case local:
			e.local(name, typeNode, ns)
		default:
			v := e.syms.varAt[name.StartByte()]
			if v == nil {
				break
			}
			role := index.RoleDefinition
			if extern {
				role = index.RoleDeclaration
			}
			e.define(index.KindVar, role, v.usr, v.name, v.qual, leafName(name), ownerUSR(v.owner))
			if t := e.syms.varType(v); t != nil {
				e.emit(index.Event{Kind: index.KindVar, Role: index.RoleVarType, USR: v.usr, TargetUSR: t.usr})
			}
		}
		if d.Type() == "init_declarator" {
			e.walk(d.ChildByFieldName("value"), ns, nil)
		}
	}
	e.walk(n.ChildByFieldName("default_value"), ns, nil)
}

func (e *emitter) rangeLoop(n *sitter.Node, ns []string) {
	e.push()
	defer e.pop()
	typeNode := n.ChildByFieldName("type")
	e.typeNode(typeNode, ns, nil)
	e.walk(n.ChildByFieldName("right"), ns, nil)
	if name, _ := unwrapDeclarator(n.ChildByFieldName("declarator")); name != nil && e.fn != nil {
		e.local(name, typeNode, ns)
	}
	e.walk(n.ChildByFieldName("body"), ns, nil)
}

// --- Expressions ---

// lookupVar resolves a plain name in expression context. implicit is set for
// members reached through an implicit this.
func (e *emitter) lookupVar(name string, ns []string) (v *varSym, implicit bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if v := e.scopes[i][name]; v != nil {
			return v, false
		}
	}
	if e.class != nil {
		if v := e.class.findField(name, 0); v != nil {
			return v, true
		}
	}
	return e.syms.lookupVar(ns, name), false
}

func (e *emitter) lookupFunc(name string, ns []string) (f *funcSym, implicit bool) {
	if e.class != nil {
		if m := e.class.findMethod(name, 0); m != nil {
			return m, true
		}
	}
	return e.syms.lookupFunc(ns, name), false
}

func (e *emitter) identifier(n *sitter.Node, ns []string) {
	name := e.text(n)
	if v, implicit := e.lookupVar(name, ns); v != nil {
		e.reference(index.KindVar, v.usr, n, !implicit)
		return
	}
	if f, implicit := e.lookupFunc(name, ns); f != nil {
		e.reference(index.KindFunc, f.usr, n, !implicit)
	}
}

func (e *emitter) qualified(n *sitter.Node, ns []string) {
	name := strings.TrimPrefix(stripTemplate(e.text(n)), "::")
	at := leafName(n)
	if v := e.syms.lookupVar(ns, name); v != nil {
		e.reference(index.KindVar, v.usr, at, true)
		return
	}
	if scope, base := splitQualified(name); scope != "" && !e.syms.isNamespace(ns, scope) {
		if t := e.syms.lookupType(ns, e.class, e.fn, scope); t != nil {
			if v := t.findField(base, 0); v != nil {
				e.reference(index.KindVar, v.usr, at, true)
				return
			}
			if m := t.findMethod(base, 0); m != nil {
				e.reference(index.KindFunc, m.usr, at, true)
				return
			}
		}
	}
	if f := e.syms.lookupFunc(ns, name); f != nil {
		e.reference(index.KindFunc, f.usr, at, true)
		return
	}
	if t := e.syms.lookupType(ns, e.class, e.fn, name); t != nil {
		e.reference(index.KindType, t.usr, at, true)
	}
}

// typeOf infers the class type of an expression used as a member access base.
func (e *emitter) typeOf(n *sitter.Node, ns []string) *typeSym {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier":
		v, _ := e.lookupVar(e.text(n), ns)
		return e.syms.varType(v)
	case "this":
		return e.class
	case "qualified_identifier":
		return e.syms.varType(e.syms.lookupVar(ns, strings.TrimPrefix(e.text(n), "::")))
	case "field_expression":
		base := e.typeOf(n.ChildByFieldName("argument"), ns)
		field := n.ChildByFieldName("field")
		if base == nil || field == nil {
			return nil
		}
		return e.syms.varType(base.findField(e.text(field), 0))
	case "pointer_expression", "subscript_expression":
		return e.typeOf(n.ChildByFieldName("argument"), ns)
	case "parenthesized_expression":
		if n.NamedChildCount() > 0 {
			return e.typeOf(n.NamedChild(0), ns)
		}
	}
	return nil
}

func (e *emitter) fieldRef(n *sitter.Node, ns []string) {
	arg := n.ChildByFieldName("argument")
	e.walk(arg, ns, nil)
	field := n.ChildByFieldName("field")
	t := e.typeOf(arg, ns)
	if t == nil || field == nil {
		return
	}
	name := e.text(field)
	if v := t.findField(name, 0); v != nil {
		e.reference(index.KindVar, v.usr, field, true)
		return
	}
	if m := t.findMethod(name, 0); m != nil {
		e.reference(index.KindFunc, m.usr, field, true)
	}
}

func (e *emitter) fieldInitializer(n *sitter.Node, ns []string) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		if ch.Type() == "field_identifier" {
			if e.class != nil {
				if v := e.class.findField(e.text(ch), 0); v != nil {
					e.reference(index.KindVar, v.usr, ch, true)
				}
			}
			continue
		}
		e.walk(ch, ns, nil)
	}
}

func (e *emitter) call(n *sitter.Node, ns []string) {
	target, at := e.callee(n.ChildByFieldName("function"), ns)
	if target != "" {
		caller := ""
		if e.fn != nil {
			caller = e.fn.usr
		}
		e.emit(index.Event{
			Kind:        index.KindFunc,
			Role:        index.RoleCall,
			USR:         caller,
			TargetUSR:   target,
			Pos:         e.pos(at),
			Interesting: true,
		})
	}
	e.walk(n.ChildByFieldName("arguments"), ns, nil)
}

// callee resolves the function expression of a call to the identity string of
// the called function. Calls through variables (function pointers) report a
// variable use instead and return "".
func (e *emitter) callee(n *sitter.Node, ns []string) (string, *sitter.Node) {
	if n == nil {
		return "", nil
	}
	switch n.Type() {
	case "identifier":
		name := e.text(n)
		if v, _ := e.lookupVar(name, ns); v != nil {
			e.identifier(n, ns)
			return "", nil
		}
		if f, _ := e.lookupFunc(name, ns); f != nil {
			return f.usr, n
		}
		return externalFuncUSR(e.syms, name), n

	case "field_expression":
		arg := n.ChildByFieldName("argument")
		e.walk(arg, ns, nil)
		field := n.ChildByFieldName("field")
		t := e.typeOf(arg, ns)
		if t == nil || field == nil {
			return "", nil
		}
		name := e.text(field)
		if m := t.findMethod(name, 0); m != nil {
			return m.usr, field
		}
		if v := t.findField(name, 0); v != nil {
			e.reference(index.KindVar, v.usr, field, true)
			return "", nil
		}
		return t.underlying().usr + "@F@" + name + "#", field

	case "qualified_identifier":
		name := strings.TrimPrefix(stripTemplate(e.text(n)), "::")
		at := leafName(n)
		if scope, base := splitQualified(name); scope != "" && !e.syms.isNamespace(ns, scope) {
			if t := e.syms.lookupType(ns, e.class, e.fn, scope); t != nil {
				if m := t.findMethod(base, 0); m != nil {
					return m.usr, at
				}
				return t.underlying().usr + "@F@" + base + "#", at
			}
		}
		if f := e.syms.lookupFunc(ns, name); f != nil {
			return f.usr, at
		}
		return externalFuncUSR(e.syms, name), at

	case "template_function":
		e.walk(n.ChildByFieldName("arguments"), ns, nil)
		return e.callee(n.ChildByFieldName("name"), ns)
	}
	e.walk(n, ns, nil)
	return "", nil
}
