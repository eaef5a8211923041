package index

import (
	"errors"
	"fmt"
)

// ErrInvalidEvent is returned for an event whose role does not apply to its
// symbol kind.
var ErrInvalidEvent = errors.New("index: invalid event")

// Role says what a visitation event reports about its symbol.
type Role int

const (
	// RoleDeclaration: a declaration without body (prototype, extern, in-class
	// method declaration). ParentUSR is the declaring type, if any.
	RoleDeclaration Role = iota
	// RoleDefinition: the defining occurrence. ParentUSR is the declaring type.
	RoleDefinition
	// RoleReference: a use of the symbol.
	RoleReference
	// RoleCall: USR (a function, possibly empty at file scope) calls TargetUSR.
	RoleCall
	// RoleParent: type USR directly derives from type ParentUSR.
	RoleParent
	// RoleOverride: method USR overrides method ParentUSR.
	RoleOverride
	// RoleAlias: type USR is another name for type TargetUSR.
	RoleAlias
	// RoleMember: USR is declared inside type ParentUSR.
	RoleMember
	// RoleLocal: variable USR is a local of function ParentUSR.
	RoleLocal
	// RoleVarType: variable USR is declared with type TargetUSR.
	RoleVarType
)

var roleNames = [...]string{
	RoleDeclaration: "declaration",
	RoleDefinition:  "definition",
	RoleReference:   "reference",
	RoleCall:        "call",
	RoleParent:      "parent",
	RoleOverride:    "override",
	RoleAlias:       "alias",
	RoleMember:      "member",
	RoleLocal:       "local",
	RoleVarType:     "var_type",
}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return fmt.Sprintf("Role(%d)", int(r))
	}
	return roleNames[r]
}

// ParseRole is the inverse of Role.String.
func ParseRole(s string) (Role, bool) {
	for i, name := range roleNames {
		if name == s {
			return Role(i), true
		}
	}
	return 0, false
}

// Event is one report from a traversal driver.
type Event struct {
	Kind SymbolKind
	Role Role
	USR  string

	// Pos is where the event happened. Nil resolves to UnknownLocation.
	Pos         Position
	Interesting bool

	// Unique drops a use whose location is already recorded on the symbol.
	Unique bool

	ShortName     string
	QualifiedName string

	// ParentUSR is the declaring type, base type, overridden method or
	// enclosing function, depending on Role.
	ParentUSR string
	// TargetUSR is the callee, aliased type or variable type, depending on Role.
	TargetUSR string
}

func (e Event) meta() Metadata {
	return Metadata{ShortName: e.ShortName, QualifiedName: e.QualifiedName}
}

// Handle applies one event to the aggregate. An event with an unusable
// identity string (ErrMalformedIdentity) or a role that does not fit its kind
// (ErrInvalidEvent) fails and is also recorded as a MalformedEvent condition.
// The aggregate stays consistent either way.
func (f *File) Handle(ev Event) error {
	err := f.handle(ev)
	if errors.Is(err, ErrMalformedIdentity) || errors.Is(err, ErrInvalidEvent) {
		f.Record(Condition{
			Code:    MalformedEvent,
			Kind:    ev.Kind,
			USR:     ev.USR,
			Got:     f.Resolve(ev.Pos, ev.Interesting),
			Message: fmt.Sprintf("%s: %v", ev.Role, err),
		})
	}
	return err
}

func (f *File) handle(ev Event) error {
	loc := f.Resolve(ev.Pos, ev.Interesting)

	switch ev.Role {
	case RoleDeclaration, RoleDefinition:
		return f.handleDecl(ev, loc)

	case RoleReference:
		return f.recordUse(ev.Kind, ev.USR, loc, ev.Unique)

	case RoleCall:
		if ev.Kind != KindFunc {
			return fmt.Errorf("%w: %s on %s", ErrInvalidEvent, ev.Role, ev.Kind)
		}
		callee, err := f.ToFuncID(ev.TargetUSR)
		if err != nil {
			return fmt.Errorf("call target: %w", err)
		}
		f.Func(callee).AddUsage(loc, ev.Unique)
		if ev.USR == "" {
			return nil
		}
		caller, err := f.ToFuncID(ev.USR)
		if err != nil {
			return err
		}
		f.AddCall(caller, callee, loc)
		return nil

	case RoleParent:
		if ev.Kind != KindType {
			return fmt.Errorf("%w: %s on %s", ErrInvalidEvent, ev.Role, ev.Kind)
		}
		child := f.ToTypeID(ev.USR)
		parent := f.ToTypeID(ev.ParentUSR)
		f.AddParent(child, parent)
		if !loc.IsUnknown() {
			f.Type(parent).AddUsage(loc, ev.Unique)
		}
		return nil

	case RoleOverride:
		if ev.Kind != KindFunc {
			return fmt.Errorf("%w: %s on %s", ErrInvalidEvent, ev.Role, ev.Kind)
		}
		method, err := f.ToFuncID(ev.USR)
		if err != nil {
			return err
		}
		base, err := f.ToFuncID(ev.ParentUSR)
		if err != nil {
			return fmt.Errorf("overridden method: %w", err)
		}
		f.SetBase(method, base)
		return nil

	case RoleAlias:
		if ev.Kind != KindType {
			return fmt.Errorf("%w: %s on %s", ErrInvalidEvent, ev.Role, ev.Kind)
		}
		alias := f.ToTypeID(ev.USR)
		target := f.ToTypeID(ev.TargetUSR)
		f.SetAlias(alias, target)
		if !loc.IsUnknown() {
			f.Type(target).AddUsage(loc, ev.Unique)
		}
		return nil

	case RoleMember:
		return f.attach(ev.Kind, ev.USR, ev.ParentUSR)

	case RoleLocal:
		if ev.Kind != KindVar {
			return fmt.Errorf("%w: %s on %s", ErrInvalidEvent, ev.Role, ev.Kind)
		}
		v, err := f.ToVarID(ev.USR)
		if err != nil {
			return err
		}
		fn, err := f.ToFuncID(ev.ParentUSR)
		if err != nil {
			return fmt.Errorf("enclosing function: %w", err)
		}
		f.AddLocal(fn, v)
		return nil

	case RoleVarType:
		if ev.Kind != KindVar {
			return fmt.Errorf("%w: %s on %s", ErrInvalidEvent, ev.Role, ev.Kind)
		}
		v, err := f.ToVarID(ev.USR)
		if err != nil {
			return err
		}
		t := f.ToTypeID(ev.TargetUSR)
		f.SetVariableType(v, t)
		if !loc.IsUnknown() {
			f.Type(t).AddUsage(loc, ev.Unique)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown role %s", ErrInvalidEvent, ev.Role)
}

func (f *File) handleDecl(ev Event, loc Location) error {
	def := ev.Role == RoleDefinition
	switch ev.Kind {
	case KindType:
		id := f.ToTypeID(ev.USR)
		if def {
			f.DefineType(id, loc, ev.meta())
		} else {
			f.DeclareType(id, loc, ev.meta())
		}
	case KindFunc:
		id, err := f.ToFuncID(ev.USR)
		if err != nil {
			return err
		}
		if def {
			f.DefineFunc(id, loc, ev.meta())
		} else {
			f.DeclareFunc(id, loc, ev.meta())
		}
	case KindVar:
		id, err := f.ToVarID(ev.USR)
		if err != nil {
			return err
		}
		if def {
			f.DefineVar(id, loc, ev.meta())
		} else {
			f.DeclareVar(id, loc, ev.meta())
		}
	default:
		return fmt.Errorf("%w: kind %s", ErrInvalidEvent, ev.Kind)
	}
	if ev.ParentUSR == "" {
		return nil
	}
	return f.attach(ev.Kind, ev.USR, ev.ParentUSR)
}

func (f *File) attach(kind SymbolKind, usr, ownerUSR string) error {
	owner := f.ToTypeID(ownerUSR)
	switch kind {
	case KindType:
		f.AddNestedType(owner, f.ToTypeID(usr))
	case KindFunc:
		id, err := f.ToFuncID(usr)
		if err != nil {
			return err
		}
		f.AddMethod(owner, id)
	case KindVar:
		id, err := f.ToVarID(usr)
		if err != nil {
			return err
		}
		f.AddField(owner, id)
	default:
		return fmt.Errorf("%w: kind %s", ErrInvalidEvent, kind)
	}
	return nil
}

func (f *File) recordUse(kind SymbolKind, usr string, loc Location, unique bool) error {
	switch kind {
	case KindType:
		f.Type(f.ToTypeID(usr)).AddUsage(loc, unique)
	case KindFunc:
		id, err := f.ToFuncID(usr)
		if err != nil {
			return err
		}
		f.Func(id).AddUsage(loc, unique)
	case KindVar:
		id, err := f.ToVarID(usr)
		if err != nil {
			return err
		}
		f.Var(id).AddUsage(loc, unique)
	default:
		return fmt.Errorf("%w: kind %s", ErrInvalidEvent, kind)
	}
	return nil
}
