package scripts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/xref/internal/index"
	"github.com/jward/xref/internal/runtime"
	"github.com/jward/xref/scripts"
)

// extractGoSource runs the bundled extract/go.risor over src.
func extractGoSource(t *testing.T, src string) *index.File {
	t.Helper()
	rt := runtime.New("", runtime.WithFS(scripts.FS))
	f := index.NewFile("shapes.go")
	res, err := rt.Extract(context.Background(), runtime.ExtractionScriptPath("shapes.go"), "shapes.go", []byte(src), f)
	require.NoError(t, err)
	require.Zero(t, res.Dropped, "conditions: %v", f.Conditions())
	return f
}

const shapesGo = `package shapes

type Shape struct {
	Name string
}

func NewShape(name string) *Shape {
	return &Shape{Name: name}
}

func (s *Shape) Describe() string {
	return describe(s.Name)
}

func describe(n string) string {
	return n
}

type Alias = Shape
`

func TestGoExtract_Types(t *testing.T) {
	t.Parallel()
	f := extractGoSource(t, shapesGo)

	shapeID, ok := f.LookupType("go:shapes.Shape")
	require.True(t, ok)
	shape := f.Type(shapeID)
	assert.False(t, shape.Placeholder)
	require.NotNil(t, shape.Definition)
	assert.Equal(t, "0:3:6", shape.Definition.String())
	assert.Equal(t, "shapes.Shape", shape.QualifiedName)

	nameID, ok := f.LookupVar("go:shapes.Shape.Name")
	require.True(t, ok)
	assert.Equal(t, "0:4:2", f.Var(nameID).Definition.String())
	require.NotNil(t, f.Var(nameID).DeclaringType)
	assert.Equal(t, shapeID, *f.Var(nameID).DeclaringType)

	aliasID, ok := f.LookupType("go:shapes.Alias")
	require.True(t, ok)
	require.NotNil(t, f.Type(aliasID).AliasOf)
	assert.Equal(t, shapeID, *f.Type(aliasID).AliasOf)
}

func TestGoExtract_FunctionsAndMethods(t *testing.T) {
	t.Parallel()
	f := extractGoSource(t, shapesGo)

	newID, ok := f.LookupFunc("go:shapes.NewShape()")
	require.True(t, ok)
	assert.Equal(t, "0:7:6", f.Func(newID).Definition.String())
	assert.Empty(t, f.Func(newID).Callees)

	shapeID, _ := f.LookupType("go:shapes.Shape")
	descID, ok := f.LookupFunc("go:shapes.Shape.Describe()")
	require.True(t, ok)
	desc := f.Func(descID)
	assert.Equal(t, "0:11:17", desc.Definition.String())
	require.NotNil(t, desc.DeclaringType)
	assert.Equal(t, shapeID, *desc.DeclaringType)
	assert.Equal(t, []index.FuncID{descID}, f.Type(shapeID).Funcs)
}

func TestGoExtract_Calls(t *testing.T) {
	t.Parallel()
	f := extractGoSource(t, shapesGo)

	descID, _ := f.LookupFunc("go:shapes.Shape.Describe()")
	helperID, ok := f.LookupFunc("go:shapes.describe()")
	require.True(t, ok)

	callees := f.Func(descID).Callees
	require.Len(t, callees, 1)
	assert.Equal(t, helperID, callees[0].ID)
	assert.Equal(t, "*0:12:9", callees[0].Loc.String())
	assert.False(t, f.Func(helperID).Placeholder)
}

func TestGoExtract_DefaultPackage(t *testing.T) {
	t.Parallel()
	f := extractGoSource(t, "func main() {\n\tprintln(\"hi\")\n}\n")

	mainID, ok := f.LookupFunc("go:main.main()")
	require.True(t, ok)
	printID, ok := f.LookupFunc("go:main.println()")
	require.True(t, ok)
	assert.True(t, f.Func(printID).Placeholder, "builtins are never defined")
	assert.Len(t, f.Func(mainID).Callees, 1)
}
