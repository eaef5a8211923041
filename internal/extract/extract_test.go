package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/xref/internal/index"
)

func extractFile(t *testing.T, path, src string) *index.File {
	t.Helper()
	f := index.NewFile(path)
	res, err := New().Extract(context.Background(), path, []byte(src), f)
	require.NoError(t, err)
	require.False(t, res.SyntaxErrors, "fixture should parse cleanly")
	require.Zero(t, res.Dropped, "conditions: %v", f.Conditions())
	return f
}

func mustType(t *testing.T, f *index.File, usr string) (index.TypeID, *index.TypeDef) {
	t.Helper()
	id, ok := f.LookupType(usr)
	require.True(t, ok, "type %s", usr)
	return id, f.Type(id)
}

func mustFunc(t *testing.T, f *index.File, usr string) (index.FuncID, *index.FuncDef) {
	t.Helper()
	id, ok := f.LookupFunc(usr)
	require.True(t, ok, "func %s", usr)
	return id, f.Func(id)
}

func mustVar(t *testing.T, f *index.File, usr string) (index.VarID, *index.VarDef) {
	t.Helper()
	id, ok := f.LookupVar(usr)
	require.True(t, ok, "var %s", usr)
	return id, f.Var(id)
}

// =============================================================================
// C
// =============================================================================

const cFunctions = `int counter;
extern int limit;

static int helper(int x);

int helper(int x) {
  return x + counter;
}

int main(void) {
  int total = helper(limit);
  puts("hi");
  return total;
}
`

func TestExtract_CFunctionsAndCalls(t *testing.T) {
	t.Parallel()
	f := extractFile(t, "main.c", cFunctions)

	mainID, main := mustFunc(t, f, "c:@F@main#")
	helperID, helper := mustFunc(t, f, "c:@F@helper#")
	putsID, puts := mustFunc(t, f, "c:@F@puts#")

	assert.False(t, main.Placeholder)
	require.NotNil(t, main.Definition)
	assert.Equal(t, "0:10:5", main.Definition.String())

	assert.False(t, helper.Placeholder)
	require.NotNil(t, helper.Definition)
	assert.Equal(t, "0:6:5", helper.Definition.String())
	require.Len(t, helper.Declarations, 1)
	assert.Equal(t, "0:4:12", helper.Declarations[0].String())

	assert.True(t, puts.Placeholder, "called but never declared")

	require.Len(t, main.Callees, 2)
	assert.Equal(t, helperID, main.Callees[0].ID)
	assert.Equal(t, "*0:11:15", main.Callees[0].Loc.String())
	assert.Equal(t, putsID, main.Callees[1].ID)
	require.Len(t, helper.Callers, 1)
	assert.Equal(t, mainID, helper.Callers[0].ID)
}

func TestExtract_CGlobalsAndLocals(t *testing.T) {
	t.Parallel()
	f := extractFile(t, "main.c", cFunctions)

	_, counter := mustVar(t, f, "c:@counter")
	assert.False(t, counter.Placeholder)
	require.NotNil(t, counter.Definition)
	require.Len(t, counter.Uses, 2)
	assert.False(t, counter.Uses[0].Interesting)
	assert.Equal(t, "*0:7:14", counter.Uses[1].String())

	_, limit := mustVar(t, f, "c:@limit")
	assert.Nil(t, limit.Definition, "extern is only a declaration")
	require.NotNil(t, limit.Declaration)
	assert.Len(t, limit.Uses, 2)

	_, helper := mustFunc(t, f, "c:@F@helper#")
	x, xDef := mustVar(t, f, "c:@F@helper#@x")
	assert.Equal(t, []index.VarID{x}, helper.Locals)
	assert.Len(t, xDef.Uses, 2)

	_, main := mustFunc(t, f, "c:@F@main#")
	total, _ := mustVar(t, f, "c:@F@main#@total")
	assert.Equal(t, []index.VarID{total}, main.Locals)
}

func TestExtract_CStructsAndTypedefs(t *testing.T) {
	t.Parallel()
	f := extractFile(t, "geom.c", `typedef unsigned long word_t;
struct point { int x; int y; };
typedef struct point point_t;

int norm(point_t *p) {
  return p->x * p->y;
}
`)

	_, size := mustType(t, f, "c:@T@word_t")
	assert.False(t, size.Placeholder)

	pointID, point := mustType(t, f, "c:@S@point")
	x, xDef := mustVar(t, f, "c:@S@point@FI@x")
	y, _ := mustVar(t, f, "c:@S@point@FI@y")
	assert.Equal(t, []index.VarID{x, y}, point.Vars)
	assert.Equal(t, pointID, *xDef.DeclaringType)

	aliasID, alias := mustType(t, f, "c:@T@point_t")
	require.NotNil(t, alias.AliasOf)
	assert.Equal(t, pointID, *alias.AliasOf)

	// struct point: definition plus the reference in the typedef.
	assert.Len(t, point.Uses, 2)

	require.Len(t, xDef.Uses, 2)
	assert.Equal(t, "*0:6:13", xDef.Uses[1].String())

	_, p := mustVar(t, f, "c:@F@norm#@p")
	require.NotNil(t, p.VariableType)
	assert.Equal(t, aliasID, *p.VariableType)
}

func TestExtract_CElaboratedTypesInSignatures(t *testing.T) {
	t.Parallel()
	f := extractFile(t, "sig.c", `struct S { int x; };
int h(struct S *s) { return s->x; }
struct S *make(void);
enum mode { ON };
void set(enum mode m);
`)

	sID, s := mustType(t, f, "c:@S@S")
	require.Len(t, s.Uses, 3)
	assert.Equal(t, "0:1:8", s.Uses[0].String())
	assert.Equal(t, "*0:2:14", s.Uses[1].String())
	assert.Equal(t, "*0:3:8", s.Uses[2].String())

	_, param := mustVar(t, f, "c:@F@h#@s")
	require.NotNil(t, param.VariableType)
	assert.Equal(t, sID, *param.VariableType)

	_, x := mustVar(t, f, "c:@S@S@FI@x")
	require.Len(t, x.Uses, 2)
	assert.Equal(t, "*0:2:32", x.Uses[1].String())

	_, mode := mustType(t, f, "c:@E@mode")
	require.Len(t, mode.Uses, 2)
	assert.Equal(t, "*0:5:15", mode.Uses[1].String())
	assert.False(t, mode.Placeholder)
}

func TestExtract_CShadowedLocals(t *testing.T) {
	t.Parallel()
	f := extractFile(t, "shadow.c", `void f(void) {
  int i = 0;
  { int i = 1; i++; }
  i--;
}
`)

	_, fn := mustFunc(t, f, "c:@F@f#")
	outer, outerDef := mustVar(t, f, "c:@F@f#@i")
	inner, innerDef := mustVar(t, f, "c:@F@f#@i@2")
	assert.Equal(t, []index.VarID{outer, inner}, fn.Locals)

	require.Len(t, outerDef.Uses, 2)
	assert.Equal(t, "*0:4:3", outerDef.Uses[1].String())
	require.Len(t, innerDef.Uses, 2)
	assert.Equal(t, "*0:3:16", innerDef.Uses[1].String())
}

func TestExtract_CFunctionPointerCall(t *testing.T) {
	t.Parallel()
	f := extractFile(t, "fp.c", `void (*handler)(int);
void run(void) { handler(1); }
`)

	_, run := mustFunc(t, f, "c:@F@run#")
	assert.Empty(t, run.Callees)
	_, handler := mustVar(t, f, "c:@handler")
	assert.Len(t, handler.Uses, 2)
	_, ok := f.LookupFunc("c:@F@handler#")
	assert.False(t, ok)
}

// =============================================================================
// C++
// =============================================================================

const cppShapes = `namespace geo {
class Shape {
public:
  virtual double area() const;
  int id;
};

class Circle : public Shape {
public:
  double area() const override;
  double r;
};

double Circle::area() const {
  return r * r * id;
}
}

double total(geo::Shape *s) {
  return s->area();
}
`

func TestExtract_CppHierarchy(t *testing.T) {
	t.Parallel()
	f := extractFile(t, "shapes.cc", cppShapes)

	shapeID, shape := mustType(t, f, "c:@N@geo@S@Shape")
	circleID, circle := mustType(t, f, "c:@N@geo@S@Circle")
	assert.Equal(t, "geo::Shape", shape.QualifiedName)
	assert.Equal(t, []index.TypeID{shapeID}, circle.Parents)
	assert.Equal(t, []index.TypeID{circleID}, shape.Derived)

	baseArea, baseDef := mustFunc(t, f, "c:@N@geo@S@Shape@F@area#")
	derivedArea, derivedDef := mustFunc(t, f, "c:@N@geo@S@Circle@F@area#")
	require.NotNil(t, derivedDef.Base)
	assert.Equal(t, baseArea, *derivedDef.Base)
	assert.Equal(t, []index.FuncID{derivedArea}, baseDef.Derived)

	assert.Equal(t, []index.FuncID{baseArea}, shape.Funcs)
	assert.Equal(t, []index.FuncID{derivedArea}, circle.Funcs)

	// Declared in the class, defined out of line.
	require.Len(t, derivedDef.Declarations, 1)
	require.NotNil(t, derivedDef.Definition)
	assert.Equal(t, "0:14:16", derivedDef.Definition.String())
	assert.Equal(t, circleID, *derivedDef.DeclaringType)
}

func TestExtract_CppImplicitMembers(t *testing.T) {
	t.Parallel()
	f := extractFile(t, "shapes.cc", cppShapes)

	_, r := mustVar(t, f, "c:@N@geo@S@Circle@FI@r")
	_, id := mustVar(t, f, "c:@N@geo@S@Shape@FI@id")

	// Two implicit uses of r plus its declaration.
	assert.Len(t, r.Uses, 3)
	require.Len(t, id.Uses, 2)
	for _, u := range id.Uses {
		assert.False(t, u.Interesting, "%s", u)
	}
}

func TestExtract_CppVirtualCallThroughPointer(t *testing.T) {
	t.Parallel()
	f := extractFile(t, "shapes.cc", cppShapes)

	baseArea, _ := mustFunc(t, f, "c:@N@geo@S@Shape@F@area#")
	_, total := mustFunc(t, f, "c:@F@total#")
	require.Len(t, total.Callees, 1)
	assert.Equal(t, baseArea, total.Callees[0].ID)
	assert.True(t, total.Callees[0].Loc.Interesting)

	shapeID, _ := mustType(t, f, "c:@N@geo@S@Shape")
	_, s := mustVar(t, f, "c:@F@total#@s")
	require.NotNil(t, s.VariableType)
	assert.Equal(t, shapeID, *s.VariableType)
}

func TestExtract_CppUnknownBaseIsPlaceholder(t *testing.T) {
	t.Parallel()
	f := extractFile(t, "w.cpp", `class Widget : public Object {
  void draw();
};
`)
	objID, obj := mustType(t, f, "c:@S@Object")
	assert.True(t, obj.Placeholder)
	_, w := mustType(t, f, "c:@S@Widget")
	assert.Equal(t, []index.TypeID{objID}, w.Parents)
	mustFunc(t, f, "c:@S@Widget@F@draw#")
}

// =============================================================================
// Driver behavior
// =============================================================================

type failingSink struct{ n int }

func (s *failingSink) Handle(index.Event) error {
	s.n++
	return errors.New("rejected")
}

func TestExtract_DroppedEventsAreCounted(t *testing.T) {
	t.Parallel()
	sink := &failingSink{}
	res, err := New().Extract(context.Background(), "main.c", []byte(cFunctions), sink)
	require.NoError(t, err)
	assert.Positive(t, res.Events)
	assert.Equal(t, res.Events, res.Dropped)
	assert.Equal(t, sink.n, res.Events)
	assert.Equal(t, "c", res.Language)
}

func TestExtract_UnknownExtension(t *testing.T) {
	t.Parallel()
	_, err := New().Extract(context.Background(), "notes.txt", []byte("hello"), index.NewFile("notes.txt"))
	require.Error(t, err)
}

func TestExtract_SyntaxErrorsAreTolerated(t *testing.T) {
	t.Parallel()
	f := index.NewFile("bad.c")
	res, err := New().Extract(context.Background(), "bad.c", []byte("int ok(void) { return 1; }\nint broken( {\n"), f)
	require.NoError(t, err)
	assert.True(t, res.SyntaxErrors)
	mustFunc(t, f, "c:@F@ok#")
}

func TestExtract_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Extract(ctx, "main.c", []byte(cFunctions), index.NewFile("main.c"))
	require.Error(t, err)
}

func TestLanguageForFile(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"a.c", "c", true},
		{"inc/a.H", "c", true},
		{"a.cc", "cpp", true},
		{"a.hpp", "cpp", true},
		{"a.go", "", false},
	}
	for _, tt := range tests {
		got, ok := LanguageForFile(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}
