package export

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"github.com/jward/xref/internal/extract"
	"github.com/jward/xref/internal/index"
)

// SCIPOptions describes the emitted index.
type SCIPOptions struct {
	ProjectRoot string
	ToolVersion string

	// Compress frames the protobuf payload with zstd.
	Compress bool
}

// BuildSCIP converts units into one SCIP index. Documents are keyed by file
// path, so a header seen by several units yields one document. Symbols that
// no unit declares or defines are listed as external symbols.
func BuildSCIP(units []*index.File, opts SCIPOptions) *scip.Index {
	b := &scipBuilder{
		docs:     make(map[string]*scip.Document),
		seen:     make(map[string]bool),
		external: make(map[string]*scip.SymbolInformation),
	}
	for _, u := range units {
		b.addUnit(u)
	}

	idx := &scip.Index{
		Metadata: &scip.Metadata{
			Version:              scip.ProtocolVersion_UnspecifiedProtocolVersion,
			ToolInfo:             &scip.ToolInfo{Name: "xref", Version: opts.ToolVersion},
			ProjectRoot:          opts.ProjectRoot,
			TextDocumentEncoding: scip.TextEncoding_UTF8,
		},
	}
	paths := make([]string, 0, len(b.docs))
	for p := range b.docs {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	for _, p := range paths {
		doc := b.docs[p]
		slices.SortStableFunc(doc.Occurrences, func(x, y *scip.Occurrence) int {
			return slices.Compare(x.Range, y.Range)
		})
		idx.Documents = append(idx.Documents, doc)
	}
	ext := make([]string, 0, len(b.external))
	for sym := range b.external {
		if !b.seen[sym] {
			ext = append(ext, sym)
		}
	}
	slices.Sort(ext)
	for _, sym := range ext {
		idx.ExternalSymbols = append(idx.ExternalSymbols, b.external[sym])
	}
	return idx
}

// WriteSCIP marshals idx to w.
func WriteSCIP(w io.Writer, idx *scip.Index, compress bool) error {
	data, err := proto.Marshal(idx)
	if err != nil {
		return fmt.Errorf("export scip: marshal: %w", err)
	}
	if !compress {
		_, err = w.Write(data)
		return err
	}
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("export scip: zstd: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return fmt.Errorf("export scip: zstd: %w", err)
	}
	return enc.Close()
}

// ReadSCIP reads an index written by WriteSCIP.
func ReadSCIP(r io.Reader, compressed bool) (*scip.Index, error) {
	if compressed {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("read scip: zstd: %w", err)
		}
		defer dec.Close()
		r = dec
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read scip: %w", err)
	}
	var idx scip.Index
	if err := proto.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("read scip: %w", err)
	}
	return &idx, nil
}

type scipBuilder struct {
	docs     map[string]*scip.Document
	seen     map[string]bool
	external map[string]*scip.SymbolInformation
}

func (b *scipBuilder) doc(path string) *scip.Document {
	d, ok := b.docs[path]
	if !ok {
		d = &scip.Document{RelativePath: path, Language: languageOf(path)}
		b.docs[path] = d
	}
	return d
}

func (b *scipBuilder) addUnit(u *index.File) {
	files := u.Files()
	types, funcs, vars := u.Types(), u.Funcs(), u.Vars()
	typeSym := func(id index.TypeID) string { return SCIPSymbol(index.KindType, types[id.Raw()].USR) }
	funcSym := func(id index.FuncID) string { return SCIPSymbol(index.KindFunc, funcs[id.Raw()].USR) }

	for i := range types {
		t := &types[i]
		info := b.info(index.KindType, &t.Def)
		for _, p := range t.Parents {
			info.Relationships = append(info.Relationships, &scip.Relationship{Symbol: typeSym(p), IsImplementation: true})
		}
		if t.AliasOf != nil {
			info.Relationships = append(info.Relationships, &scip.Relationship{Symbol: typeSym(*t.AliasOf), IsTypeDefinition: true})
		}
		b.place(files, u.Path, &t.Def, info)
	}
	for i := range funcs {
		f := &funcs[i]
		info := b.info(index.KindFunc, &f.Def)
		if f.DeclaringType != nil {
			info.Kind = scip.SymbolInformation_Method
			info.EnclosingSymbol = typeSym(*f.DeclaringType)
		}
		if f.Base != nil {
			info.Relationships = append(info.Relationships, &scip.Relationship{
				Symbol: funcSym(*f.Base), IsImplementation: true, IsReference: true,
			})
		}
		b.place(files, u.Path, &f.Def, info)
	}
	for i := range vars {
		v := &vars[i]
		info := b.info(index.KindVar, &v.Def)
		if v.DeclaringType != nil {
			info.Kind = scip.SymbolInformation_Field
			info.EnclosingSymbol = typeSym(*v.DeclaringType)
		}
		if v.VariableType != nil {
			info.Relationships = append(info.Relationships, &scip.Relationship{Symbol: typeSym(*v.VariableType), IsTypeDefinition: true})
		}
		b.place(files, u.Path, &v.Def, info)
	}
}

func (b *scipBuilder) info(kind index.SymbolKind, d *index.Def) *scip.SymbolInformation {
	info := &scip.SymbolInformation{
		Symbol:      SCIPSymbol(kind, d.USR),
		DisplayName: d.ShortName,
	}
	switch kind {
	case index.KindType:
		info.Kind = scip.SymbolInformation_Type
	case index.KindFunc:
		info.Kind = scip.SymbolInformation_Function
	case index.KindVar:
		info.Kind = scip.SymbolInformation_Variable
	}
	if d.QualifiedName != "" && d.QualifiedName != d.ShortName {
		info.Documentation = []string{d.QualifiedName}
	}
	return info
}

// place emits d's occurrences and attaches info to the document holding its
// definition. Placeholders become external symbols.
func (b *scipBuilder) place(files []string, unitPath string, d *index.Def, info *scip.SymbolInformation) {
	for _, loc := range d.Uses {
		path, ok := filePath(files, loc.File)
		if !ok {
			continue
		}
		occ := &scip.Occurrence{Range: scipRange(loc, d.ShortName), Symbol: info.Symbol}
		if d.Definition != nil && d.Definition.Equal(loc) {
			occ.SymbolRoles = int32(scip.SymbolRole_Definition)
		}
		doc := b.doc(path)
		doc.Occurrences = append(doc.Occurrences, occ)
	}

	if d.Placeholder {
		if _, ok := b.external[info.Symbol]; !ok {
			b.external[info.Symbol] = info
		}
		return
	}
	if b.seen[info.Symbol] {
		return
	}
	home := unitPath
	if d.Definition != nil {
		if p, ok := filePath(files, d.Definition.File); ok {
			home = p
		}
	} else if len(d.Uses) > 0 {
		if p, ok := filePath(files, d.Uses[0].File); ok {
			home = p
		}
	}
	doc := b.doc(home)
	doc.Symbols = append(doc.Symbols, info)
	b.seen[info.Symbol] = true
}

// filePath maps a location's file ordinal through the unit's file list. Raw
// ordinals work too, so decoded locations resolve the same way.
func filePath(files []string, id index.FileID) (string, bool) {
	n := id.Raw()
	if n < 0 || n >= len(files) {
		return "", false
	}
	return files[n], true
}

// scipRange is the zero-based single-line range [line, start, end] of a name
// starting at loc.
func scipRange(loc index.Location, name string) []int32 {
	line, col := int32(loc.Line-1), int32(loc.Column-1)
	return []int32{line, col, col + int32(len(name))}
}

// SCIPSymbol renders a USR as a SCIP global symbol with the "xref" scheme and
// an empty package. The USR is one backtick-escaped descriptor whose suffix
// follows the kind: "#" for types, "()." for functions, "." for variables.
func SCIPSymbol(kind index.SymbolKind, usr string) string {
	suffix := "."
	switch kind {
	case index.KindType:
		suffix = "#"
	case index.KindFunc:
		suffix = "()."
	}
	return "xref . . . `" + strings.ReplaceAll(usr, "`", "``") + "`" + suffix
}

func languageOf(path string) string {
	lang, _ := extract.LanguageForFile(path)
	return lang
}
