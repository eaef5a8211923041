package xref

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shapesCC = `namespace geo {
class Shape {
public:
  virtual double area() const;
};

class Circle : public Shape {
public:
  double area() const override;
  double r;
};

double Circle::area() const {
  return r * r;
}
}

double total(geo::Shape *s) {
  return s->area();
}

double twice(geo::Shape *s) {
  return total(s) + total(s);
}
`

const (
	usrShape      = "c:@N@geo@S@Shape"
	usrCircle     = "c:@N@geo@S@Circle"
	usrShapeArea  = "c:@N@geo@S@Shape@F@area#"
	usrCircleArea = "c:@N@geo@S@Circle@F@area#"
	usrCircleR    = "c:@N@geo@S@Circle@FI@r"
	usrTotal      = "c:@F@total#"
	usrTwice      = "c:@F@twice#"
)

func newShapesQuery(t *testing.T) *QueryBuilder {
	t.Helper()
	e := New()
	u, err := e.IndexSource(context.Background(), "shapes.cc", []byte(shapesCC))
	require.NoError(t, err)
	require.False(t, u.SyntaxErrors)
	require.Empty(t, u.Conditions())
	return e.Query(u)
}

func usrsOf(results []SymbolResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.USR
	}
	return out
}

// =============================================================================
// Symbol lookups
// =============================================================================

func TestSymbol(t *testing.T) {
	t.Parallel()
	q := newShapesQuery(t)

	sym := q.Symbol(usrCircle)
	require.NotNil(t, sym)
	assert.Equal(t, KindType, sym.Kind)
	assert.Equal(t, "Circle", sym.Name)
	assert.Equal(t, "geo::Circle", sym.QualifiedName)
	assert.False(t, sym.Placeholder)
	require.NotNil(t, sym.Definition)
	assert.Equal(t, Location{File: "shapes.cc", Line: 7, Col: 7}, *sym.Definition)

	fn := q.Symbol(usrTotal)
	require.NotNil(t, fn)
	assert.Equal(t, KindFunc, fn.Kind)

	assert.Nil(t, q.Symbol("c:@F@nope#"))
}

func TestDefinitionOf(t *testing.T) {
	t.Parallel()
	q := newShapesQuery(t)

	loc := q.DefinitionOf(usrCircleArea)
	require.NotNil(t, loc)
	assert.Equal(t, "shapes.cc", loc.File)
	assert.Equal(t, 13, loc.Line)
	assert.Equal(t, 16, loc.Col)

	assert.Nil(t, q.DefinitionOf(usrShapeArea), "declared only")
	assert.Nil(t, q.DefinitionOf("c:@F@nope#"))
}

func TestDeclarationsOf(t *testing.T) {
	t.Parallel()
	q := newShapesQuery(t)

	decls := q.DeclarationsOf(usrCircleArea)
	require.Len(t, decls, 1)
	assert.Equal(t, 9, decls[0].Line)
	assert.Equal(t, 10, decls[0].Col)

	assert.Nil(t, q.DeclarationsOf(usrShape), "types keep no declarations")
}

func TestReferencesTo(t *testing.T) {
	t.Parallel()
	q := newShapesQuery(t)

	all := q.ReferencesTo(usrTotal, false)
	require.Len(t, all, 3)
	assert.Equal(t, 18, all[0].Line, "definition comes first")
	assert.False(t, all[0].Interesting)

	calls := q.ReferencesTo(usrTotal, true)
	require.Len(t, calls, 2)
	assert.Equal(t, Location{File: "shapes.cc", Line: 23, Col: 10, Interesting: true}, calls[0])
	assert.Equal(t, Location{File: "shapes.cc", Line: 23, Col: 21, Interesting: true}, calls[1])

	assert.Nil(t, q.ReferencesTo("c:@F@nope#", false))
}

// =============================================================================
// Calls
// =============================================================================

func TestCallersAndCallees(t *testing.T) {
	t.Parallel()
	q := newShapesQuery(t)

	callers := q.Callers(usrTotal)
	require.Len(t, callers, 2, "one per call site")
	for _, c := range callers {
		assert.Equal(t, usrTwice, c.Symbol.USR)
		assert.Equal(t, 23, c.At.Line)
	}

	callees := q.Callees(usrTotal)
	require.Len(t, callees, 1)
	assert.Equal(t, usrShapeArea, callees[0].Symbol.USR, "virtual call binds to the static type")
	assert.Equal(t, 19, callees[0].At.Line)

	assert.Empty(t, q.Callers(usrTwice))
	assert.Nil(t, q.Callees(usrShape), "not a function")
}

// =============================================================================
// Position lookups
// =============================================================================

func TestSymbolAt(t *testing.T) {
	t.Parallel()
	q := newShapesQuery(t)

	tests := []struct {
		name string
		line int
		col  int
		want string
	}{
		{"call start", 23, 10, usrTotal},
		{"call middle", 23, 13, usrTotal},
		{"second call", 23, 21, usrTotal},
		{"definition name", 18, 8, usrTotal},
		{"class name", 7, 9, usrCircle},
		{"base name", 7, 23, usrShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sym := q.SymbolAt("shapes.cc", tt.line, tt.col)
			require.NotNil(t, sym)
			assert.Equal(t, tt.want, sym.USR)
		})
	}

	assert.Nil(t, q.SymbolAt("shapes.cc", 23, 3), "keyword")
	assert.Nil(t, q.SymbolAt("other.cc", 23, 10), "wrong file")
}

func TestDefinitionAt(t *testing.T) {
	t.Parallel()
	q := newShapesQuery(t)

	loc := q.DefinitionAt("shapes.cc", 23, 11)
	require.NotNil(t, loc)
	assert.Equal(t, 18, loc.Line)
	assert.Equal(t, 8, loc.Col)

	assert.Nil(t, q.DefinitionAt("shapes.cc", 1, 1))
}
