package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/xref/internal/extract"
	"github.com/jward/xref/internal/index"
)

// eventBinding connects the event host functions of one script run to a
// sink. Risor scripts cannot build Go structs, so every function takes a map
// of primitive values and assembles the index.Event on the Go side.
//
// Common keys: kind ("type", "func", "var"), usr, and a position given either
// as node (a tree-sitter node) or as line and col, optionally with file.
type eventBinding struct {
	path   string
	sink   extract.Sink
	logger *slog.Logger

	events  int
	dropped int
}

func (b *eventBinding) globals() map[string]any {
	return map[string]any{
		"declare":   b.builtin("declare", b.declaration(index.RoleDeclaration)),
		"define":    b.builtin("define", b.declaration(index.RoleDefinition)),
		"use":       b.builtin("use", b.use),
		"call":      b.builtin("call", b.call),
		"extends":   b.builtin("extends", b.extends),
		"overrides": b.builtin("overrides", b.overrides),
		"alias":     b.builtin("alias", b.alias),
		"member":    b.builtin("member", b.member),
		"local":     b.builtin("local", b.local),
		"var_type":  b.builtin("var_type", b.varType),
	}
}

// builtin wraps an event constructor as a host function. It returns true when
// the aggregate accepted the event and false when it rejected it; malformed
// arguments raise a script error.
func (b *eventBinding) builtin(name string, build func(m map[string]object.Object) (index.Event, error)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		ev, err := build(m)
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		b.events++
		if err := b.sink.Handle(ev); err != nil {
			b.dropped++
			b.logger.Debug("script event dropped", "path", b.path, "fn", name, "usr", ev.USR, "err", err)
			return object.False
		}
		return object.True
	})
}

func (b *eventBinding) declaration(role index.Role) func(map[string]object.Object) (index.Event, error) {
	return func(m map[string]object.Object) (index.Event, error) {
		kind, err := kindArg(m)
		if err != nil {
			return index.Event{}, err
		}
		return index.Event{
			Kind:          kind,
			Role:          role,
			USR:           getString(m, "usr"),
			Pos:           b.position(m),
			ShortName:     getString(m, "name"),
			QualifiedName: getString(m, "qualified"),
			ParentUSR:     getString(m, "parent"),
		}, nil
	}
}

func (b *eventBinding) use(m map[string]object.Object) (index.Event, error) {
	kind, err := kindArg(m)
	if err != nil {
		return index.Event{}, err
	}
	return index.Event{
		Kind:        kind,
		Role:        index.RoleReference,
		USR:         getString(m, "usr"),
		Pos:         b.position(m),
		Interesting: getBoolDefault(m, "interesting", true),
		Unique:      getBool(m, "unique"),
	}, nil
}

// call reports {caller, callee}. An empty caller is a call at file scope.
func (b *eventBinding) call(m map[string]object.Object) (index.Event, error) {
	return index.Event{
		Kind:        index.KindFunc,
		Role:        index.RoleCall,
		USR:         getString(m, "caller"),
		TargetUSR:   getString(m, "callee"),
		Pos:         b.position(m),
		Interesting: getBoolDefault(m, "interesting", true),
		Unique:      getBool(m, "unique"),
	}, nil
}

func (b *eventBinding) extends(m map[string]object.Object) (index.Event, error) {
	return index.Event{
		Kind:        index.KindType,
		Role:        index.RoleParent,
		USR:         getString(m, "usr"),
		ParentUSR:   getString(m, "parent"),
		Pos:         b.position(m),
		Interesting: true,
	}, nil
}

func (b *eventBinding) overrides(m map[string]object.Object) (index.Event, error) {
	return index.Event{
		Kind:      index.KindFunc,
		Role:      index.RoleOverride,
		USR:       getString(m, "usr"),
		ParentUSR: getString(m, "parent"),
	}, nil
}

func (b *eventBinding) alias(m map[string]object.Object) (index.Event, error) {
	return index.Event{
		Kind:        index.KindType,
		Role:        index.RoleAlias,
		USR:         getString(m, "usr"),
		TargetUSR:   getString(m, "target"),
		Pos:         b.position(m),
		Interesting: true,
	}, nil
}

func (b *eventBinding) member(m map[string]object.Object) (index.Event, error) {
	kind, err := kindArg(m)
	if err != nil {
		return index.Event{}, err
	}
	return index.Event{
		Kind:      kind,
		Role:      index.RoleMember,
		USR:       getString(m, "usr"),
		ParentUSR: getString(m, "parent"),
	}, nil
}

func (b *eventBinding) local(m map[string]object.Object) (index.Event, error) {
	return index.Event{
		Kind:      index.KindVar,
		Role:      index.RoleLocal,
		USR:       getString(m, "usr"),
		ParentUSR: getString(m, "parent"),
	}, nil
}

func (b *eventBinding) varType(m map[string]object.Object) (index.Event, error) {
	return index.Event{
		Kind:        index.KindVar,
		Role:        index.RoleVarType,
		USR:         getString(m, "usr"),
		TargetUSR:   getString(m, "target"),
		Pos:         b.position(m),
		Interesting: true,
	}, nil
}

// position reads node, or line/col/file, from m. Without either the event has
// no position.
func (b *eventBinding) position(m map[string]object.Object) index.Position {
	if p, ok := m["node"].(*object.Proxy); ok {
		if n, ok := p.Interface().(*sitter.Node); ok && n != nil {
			return index.NodePosition{Path: b.path, Node: n}
		}
	}
	line := getInt(m, "line")
	if line <= 0 {
		return nil
	}
	return index.SourcePosition{
		Path:   getStringDefault(m, "file", b.path),
		Line:   line,
		Column: getInt(m, "col"),
	}
}

func kindArg(m map[string]object.Object) (index.SymbolKind, error) {
	s := getString(m, "kind")
	kind, ok := index.ParseSymbolKind(s)
	if !ok {
		return 0, fmt.Errorf("unknown kind %q", s)
	}
	return kind, nil
}

// --- Map helpers ---

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	if s, ok := m[key].(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getStringDefault(m map[string]object.Object, key, def string) string {
	if v := getString(m, key); v != "" {
		return v
	}
	return def
}

func getInt(m map[string]object.Object, key string) int {
	switch v := m[key].(type) {
	case *object.Int:
		return int(v.Value())
	case *object.Float:
		return int(v.Value())
	}
	return 0
}

func getBool(m map[string]object.Object, key string) bool {
	return getBoolDefault(m, key, false)
}

func getBoolDefault(m map[string]object.Object, key string, def bool) bool {
	if v, ok := m[key].(*object.Bool); ok {
		return v.Value()
	}
	return def
}
