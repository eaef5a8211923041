package export

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sourcegraph/scip/bindings/go/scip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jward/xref/internal/extract"
	"github.com/jward/xref/internal/index"
)

const shapes = `class Shape {
public:
  virtual int area();
};

class Square : public Shape {
public:
  int area() override;
  int side;
};

int Square::area() { return side * side; }

int total(Shape *s) { return s->area() + missing(); }
`

func indexUnit(t *testing.T, path, src string) *index.File {
	t.Helper()
	f := index.NewFile(path)
	_, err := extract.New().Extract(context.Background(), path, []byte(src), f)
	require.NoError(t, err)
	return f
}

func findFunc(t *testing.T, d *Dump, usr string) FuncDump {
	t.Helper()
	for _, f := range d.Funcs {
		if f.USR == usr {
			return f
		}
	}
	require.FailNow(t, "func not dumped", usr)
	return FuncDump{}
}

// =============================================================================
// Dump
// =============================================================================

func TestNewDump_RecordsAndRelations(t *testing.T) {
	t.Parallel()
	u := indexUnit(t, "shapes.cc", shapes)
	d := NewDump(u)

	assert.Equal(t, "shapes.cc", d.Path)
	assert.Equal(t, []string{"shapes.cc"}, d.Files)
	require.Len(t, d.Types, 2)
	assert.Equal(t, "c:@S@Shape", d.Types[0].USR)
	assert.Equal(t, []int{0}, d.Types[1].Parents)
	assert.Equal(t, []int{1}, d.Types[0].Derived)

	area := findFunc(t, d, "c:@S@Square@F@area#")
	require.NotNil(t, area.Base)
	require.NotNil(t, area.DeclaringType)
	assert.Equal(t, 1, *area.DeclaringType)
	assert.Equal(t, "0:12:13", area.Definition)
	assert.Len(t, area.Declarations, 1)

	missing := findFunc(t, d, "c:@F@missing#")
	assert.True(t, missing.Placeholder)
	assert.Empty(t, missing.Definition)
	require.Len(t, missing.Callers, 1)
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()
	u := indexUnit(t, "shapes.cc", shapes)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, u))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "shapes.cc", got["path"])
	types := got["types"].([]any)
	first := types[0].(map[string]any)
	assert.Equal(t, "c:@S@Shape", first["usr"], "embedded fields are flattened")
	assert.Equal(t, "Shape", first["shortName"])
}

func TestWriteYAML(t *testing.T) {
	t.Parallel()
	u := indexUnit(t, "shapes.cc", shapes)

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, u))

	var got Dump
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "shapes.cc", got.Path)
	require.Len(t, got.Types, 2)
	assert.Equal(t, "c:@S@Square", got.Types[1].USR)
	assert.Contains(t, buf.String(), "usr: c:@S@Shape")
}

func TestWriteText(t *testing.T) {
	t.Parallel()
	u := indexUnit(t, "shapes.cc", shapes)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, u))
	out := buf.String()
	assert.Contains(t, out, "shapes.cc: 1 files, 2 types")
	assert.Contains(t, out, "type 0 c:@S@Shape Shape (def 0:1:7")
	assert.Contains(t, out, "func ")
	assert.Contains(t, out, "c:@F@missing# - (placeholder, 1 uses)")
}

func TestDump_Conditions(t *testing.T) {
	t.Parallel()
	f := index.NewFile("c.c")
	id := f.ToTypeID("c:@S@T")
	f.DefineType(id, index.NewLocation(true, index.RawFileID(0), 1, 8), index.Metadata{ShortName: "T"})
	f.DefineType(id, index.NewLocation(true, index.RawFileID(0), 4, 8), index.Metadata{ShortName: "T"})

	d := NewDump(f)
	require.Len(t, d.Conditions, 1)
	assert.Equal(t, "CONFLICTING_DEFINITION", d.Conditions[0].Code)
	assert.Equal(t, "*0:1:8", d.Conditions[0].Kept)
	assert.Equal(t, "*0:4:8", d.Conditions[0].Got)
}

// =============================================================================
// SCIP
// =============================================================================

func TestSCIPSymbol(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "xref . . . `c:@S@Shape`#", SCIPSymbol(index.KindType, "c:@S@Shape"))
	assert.Equal(t, "xref . . . `c:@F@main#`().", SCIPSymbol(index.KindFunc, "c:@F@main#"))
	assert.Equal(t, "xref . . . `a``b`.", SCIPSymbol(index.KindVar, "a`b"))
}

func TestBuildSCIP_DocumentsAndSymbols(t *testing.T) {
	t.Parallel()
	u := indexUnit(t, "shapes.cc", shapes)
	idx := BuildSCIP([]*index.File{u}, SCIPOptions{ProjectRoot: "file:///src", ToolVersion: "test"})

	require.NotNil(t, idx.Metadata)
	assert.Equal(t, "xref", idx.Metadata.ToolInfo.Name)
	require.Len(t, idx.Documents, 1)
	doc := idx.Documents[0]
	assert.Equal(t, "shapes.cc", doc.RelativePath)
	assert.Equal(t, "cpp", doc.Language)

	infos := map[string]*scip.SymbolInformation{}
	for _, s := range doc.Symbols {
		infos[s.Symbol] = s
	}
	area := infos[SCIPSymbol(index.KindFunc, "c:@S@Square@F@area#")]
	require.NotNil(t, area)
	assert.Equal(t, scip.SymbolInformation_Method, area.Kind)
	assert.Equal(t, SCIPSymbol(index.KindType, "c:@S@Square"), area.EnclosingSymbol)
	require.Len(t, area.Relationships, 1)
	assert.Equal(t, SCIPSymbol(index.KindFunc, "c:@S@Shape@F@area#"), area.Relationships[0].Symbol)
	assert.True(t, area.Relationships[0].IsImplementation)

	square := infos[SCIPSymbol(index.KindType, "c:@S@Square")]
	require.NotNil(t, square)
	require.Len(t, square.Relationships, 1)
	assert.True(t, square.Relationships[0].IsImplementation)

	require.Len(t, idx.ExternalSymbols, 1)
	assert.Equal(t, SCIPSymbol(index.KindFunc, "c:@F@missing#"), idx.ExternalSymbols[0].Symbol)

	var defs int
	for _, occ := range doc.Occurrences {
		if occ.SymbolRoles&int32(scip.SymbolRole_Definition) != 0 {
			defs++
		}
		require.Len(t, occ.Range, 3)
	}
	assert.Positive(t, defs)
	for i := 1; i < len(doc.Occurrences); i++ {
		assert.LessOrEqual(t, doc.Occurrences[i-1].Range[0], doc.Occurrences[i].Range[0])
	}
}

func TestBuildSCIP_SharedPathsMerge(t *testing.T) {
	t.Parallel()
	a := indexUnit(t, "a.c", "int shared(void);\nint a(void) { return shared(); }\n")
	b := indexUnit(t, "b.c", "int shared(void) { return 1; }\n")
	idx := BuildSCIP([]*index.File{b, a}, SCIPOptions{})

	require.Len(t, idx.Documents, 2)
	assert.Equal(t, "a.c", idx.Documents[0].RelativePath)
	assert.Equal(t, "b.c", idx.Documents[1].RelativePath)

	var count int
	for _, d := range idx.Documents {
		for _, s := range d.Symbols {
			if s.Symbol == SCIPSymbol(index.KindFunc, "c:@F@shared#") {
				count++
			}
		}
	}
	assert.Equal(t, 1, count, "symbol information is emitted once")
	assert.Empty(t, idx.ExternalSymbols)
}

func TestWriteSCIP_RoundTrip(t *testing.T) {
	t.Parallel()
	u := indexUnit(t, "shapes.cc", shapes)
	idx := BuildSCIP([]*index.File{u}, SCIPOptions{})

	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, WriteSCIP(&buf, idx, compress))
		got, err := ReadSCIP(&buf, compress)
		require.NoError(t, err, "compress=%v", compress)
		require.Len(t, got.Documents, 1)
		assert.Equal(t, len(idx.Documents[0].Occurrences), len(got.Documents[0].Occurrences))
	}
}

func TestReadSCIP_Garbage(t *testing.T) {
	t.Parallel()
	_, err := ReadSCIP(bytes.NewReader([]byte("not zstd")), true)
	require.Error(t, err)
}
