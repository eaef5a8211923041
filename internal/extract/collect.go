package extract

import (
	"slices"

	sitter "github.com/smacker/go-tree-sitter"
)

// collector is the first pass: it registers every type, function and
// namespace-scope variable so the second pass can resolve uses that precede
// their declarations (methods defined inline, members used before they are
// declared).
type collector struct {
	src  []byte
	syms *symbols
	fn   *funcSym
}

func (c *collector) text(n *sitter.Node) string { return n.Content(c.src) }

func (c *collector) walkChildren(n *sitter.Node, ns []string, owner *typeSym) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c.walk(n.NamedChild(i), ns, owner)
	}
}

func (c *collector) walk(n *sitter.Node, ns []string, owner *typeSym) {
	switch n.Type() {
	case "namespace_definition":
		inner := ns
		if name := n.ChildByFieldName("name"); name != nil {
			inner = append(slices.Clip(ns), c.text(name))
			c.syms.namespaces[qualify(ns, c.text(name))] = true
		}
		if body := n.ChildByFieldName("body"); body != nil {
			c.walkChildren(body, inner, owner)
		}
	case "struct_specifier", "class_specifier", "union_specifier", "enum_specifier":
		c.record(n, ns, owner, "")
	case "type_definition":
		c.typedef(n, ns, owner)
	case "alias_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			td := c.syms.defineTypedef(ns, owner, c.fn, c.text(name))
			td.aliasName = typeName(n.ChildByFieldName("type"), c.src)
			c.syms.typeAt[name.StartByte()] = td
		}
	case "function_definition":
		c.function(n, ns, owner)
	case "declaration", "field_declaration":
		c.declaration(n, ns, owner)
	case "friend_declaration", "comment", "preproc_include", "preproc_def",
		"preproc_function_def", "preproc_call":
	default:
		c.walkChildren(n, ns, owner)
	}
}

func (c *collector) record(n *sitter.Node, ns []string, owner *typeSym, typedefName string) *typeSym {
	body := n.ChildByFieldName("body")
	tag := specifierTag(n.Type())

	var t *typeSym
	switch name := n.ChildByFieldName("name"); {
	case name != nil && body != nil:
		t = c.syms.defineTag(ns, owner, c.fn, c.text(name), tag)
	case name != nil:
		t = c.syms.referTag(ns, owner, c.fn, c.text(name), tag)
	case body != nil:
		t = c.syms.anonymousTag(ns, owner, c.fn, n, typedefName, tag)
	default:
		return nil
	}
	c.syms.typeAt[n.StartByte()] = t
	if body == nil {
		return t
	}

	first := !t.defined
	t.defined = true
	if n.Type() == "enum_specifier" {
		if first {
			c.enumerators(body, ns, owner, t)
		}
		return t
	}
	if first {
		for _, b := range baseNodes(n) {
			t.baseNames = append(t.baseNames, typeName(b, c.src))
		}
	}
	c.walkChildren(body, ns, t)
	return t
}

// enumerators registers the constants of an enum in the enclosing scope and,
// qualified, under the enum itself.
func (c *collector) enumerators(body *sitter.Node, ns []string, owner *typeSym, t *typeSym) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		e := body.NamedChild(i)
		if e.Type() != "enumerator" {
			continue
		}
		name := e.ChildByFieldName("name")
		if name == nil {
			continue
		}
		text := c.text(name)
		v := &varSym{
			usr:      t.usr + "@" + text,
			name:     text,
			qual:     t.qual + "::" + text,
			typ:      t,
			resolved: true,
		}
		c.syms.vars[v.qual] = v
		if owner == nil && c.fn == nil {
			c.syms.vars[qualify(ns, text)] = v
		}
		c.syms.varAt[name.StartByte()] = v
	}
}

func (c *collector) typedef(n *sitter.Node, ns []string, owner *typeSym) {
	decls := declarators(n)
	first := ""
	if len(decls) > 0 {
		if name, _ := unwrapDeclarator(decls[0]); name != nil {
			first = c.text(name)
		}
	}

	typeNode := n.ChildByFieldName("type")
	var target *typeSym
	if typeNode != nil && isSpecifier(typeNode.Type()) {
		target = c.record(typeNode, ns, owner, first)
	}

	for _, d := range decls {
		name, _ := unwrapDeclarator(d)
		if name == nil {
			continue
		}
		td := c.syms.defineTypedef(ns, owner, c.fn, c.text(name))
		if target != nil && target != td {
			td.aliasOf = target
		} else if target == nil {
			td.aliasName = typeName(typeNode, c.src)
		}
		c.syms.typeAt[name.StartByte()] = td
	}
}

func (c *collector) function(n *sitter.Node, ns []string, owner *typeSym) {
	name, fnDecl := unwrapDeclarator(n.ChildByFieldName("declarator"))
	if name == nil {
		return
	}
	f := c.syms.declareFunc(ns, owner, c.text(name))
	f.virtual = f.virtual || hasKeyword(n, c.src, "virtual")
	f.override = f.override || hasKeyword(fnDecl, c.src, "override")
	c.syms.funcAt[name.StartByte()] = f
	c.specifier(n.ChildByFieldName("type"), ns, owner)
	c.signature(fnDecl, ns, owner)

	if body := n.ChildByFieldName("body"); body != nil {
		saved := c.fn
		c.fn = f
		c.walkChildren(body, ns, nil)
		c.fn = saved
	}
}

func (c *collector) declaration(n *sitter.Node, ns []string, owner *typeSym) {
	typeNode := n.ChildByFieldName("type")
	var inline *typeSym
	if typeNode != nil && isSpecifier(typeNode.Type()) {
		inline = c.record(typeNode, ns, owner, "")
		if typeNode.ChildByFieldName("body") == nil {
			inline = nil
		}
	}
	// Locals are registered by the emission pass, in scope order.
	if c.fn != nil && owner == nil {
		for _, d := range declarators(n) {
			if _, fnDecl := unwrapDeclarator(d); fnDecl != nil {
				c.signature(fnDecl, ns, owner)
			}
		}
		return
	}

	tname := typeName(typeNode, c.src)
	for _, d := range declarators(n) {
		name, fnDecl := unwrapDeclarator(d)
		if name == nil {
			continue
		}
		if fnDecl != nil {
			f := c.syms.declareFunc(ns, owner, c.text(name))
			f.virtual = f.virtual || hasKeyword(n, c.src, "virtual")
			f.override = f.override || hasKeyword(fnDecl, c.src, "override")
			c.syms.funcAt[name.StartByte()] = f
			c.signature(fnDecl, ns, owner)
			continue
		}

		var v *varSym
		if owner != nil {
			v = owner.field(c.text(name))
		} else {
			v = c.syms.declareVar(ns, c.text(name))
		}
		if !v.resolved && v.typeName == "" {
			v.ns, v.fn = ns, c.fn
			if inline != nil {
				v.typ, v.resolved = inline, true
			} else {
				v.typeName = tname
			}
		}
		c.syms.varAt[name.StartByte()] = v
	}
}

// specifier registers an elaborated type (struct S, enum E) written in a type
// position outside a declaration statement.
func (c *collector) specifier(n *sitter.Node, ns []string, owner *typeSym) {
	if n != nil && isSpecifier(n.Type()) {
		c.record(n, ns, owner, "")
	}
}

// signature registers the elaborated parameter types of a function declarator.
func (c *collector) signature(fnDecl *sitter.Node, ns []string, owner *typeSym) {
	if fnDecl == nil {
		return
	}
	list := fnDecl.ChildByFieldName("parameters")
	if list == nil {
		return
	}
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		switch p.Type() {
		case "parameter_declaration", "optional_parameter_declaration":
			c.specifier(p.ChildByFieldName("type"), ns, owner)
		}
	}
}
