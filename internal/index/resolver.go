package index

import (
	"bytes"

	sitter "github.com/smacker/go-tree-sitter"
)

// Position is any external description of a point in a file. Every
// representation reduces to (path, 1-based line, 1-based column) and then goes
// through Resolver.Resolve, so they cannot normalize differently.
type Position interface {
	coords() (path string, line, column int)
}

// SourcePosition is a raw 1-based line/column position.
type SourcePosition struct {
	Path   string
	Line   int
	Column int
}

func (p SourcePosition) coords() (string, int, int) { return p.Path, p.Line, p.Column }

// IndexPosition is a byte offset into a file's contents, the form indexing
// callbacks usually report.
type IndexPosition struct {
	Path   string
	Source []byte
	Offset int
}

func (p IndexPosition) coords() (string, int, int) {
	if p.Offset < 0 || p.Offset > len(p.Source) {
		return p.Path, -1, -1
	}
	head := p.Source[:p.Offset]
	line := bytes.Count(head, []byte{'\n'}) + 1
	col := p.Offset - (bytes.LastIndexByte(head, '\n') + 1) + 1
	return p.Path, line, col
}

// PointPosition is a tree-sitter point (0-based row and byte column).
type PointPosition struct {
	Path  string
	Point sitter.Point
}

func (p PointPosition) coords() (string, int, int) {
	return p.Path, int(p.Point.Row) + 1, int(p.Point.Column) + 1
}

// NodePosition is the start of a tree-sitter node.
type NodePosition struct {
	Path string
	Node *sitter.Node
}

func (p NodePosition) coords() (string, int, int) {
	if p.Node == nil {
		return p.Path, -1, -1
	}
	return PointPosition{Path: p.Path, Point: p.Node.StartPoint()}.coords()
}

// Resolver is the identity cache of one compilation unit: identity string to
// ID maps for every symbol kind, plus file path to FileID.
type Resolver struct {
	unit  uint32
	files *Allocator[fileKind]
	types *Allocator[typeKind]
	funcs *Allocator[funcKind]
	vars  *Allocator[varKind]
}

// NewResolver returns an empty resolver with its own ID namespace.
func NewResolver() *Resolver {
	unit := nextUnit()
	return &Resolver{
		unit:  unit,
		files: newAllocator[fileKind](unit),
		types: newAllocator[typeKind](unit),
		funcs: newAllocator[funcKind](unit),
		vars:  newAllocator[varKind](unit),
	}
}

// Resolve turns any Position into a canonical Location, assigning a FileID to
// the path on first sight. A nil position resolves to UnknownLocation.
func (r *Resolver) Resolve(p Position, interesting bool) Location {
	if p == nil {
		return UnknownLocation.WithInteresting(interesting)
	}
	path, line, col := p.coords()
	return r.resolve(path, line, col, interesting)
}

func (r *Resolver) resolve(path string, line, col int, interesting bool) Location {
	file := FileID{n: -1}
	if path != "" {
		file, _ = r.files.Intern(path)
	}
	return Location{Interesting: interesting, File: file, Line: line, Column: col}
}

// ResolveSource resolves a raw line/column position.
func (r *Resolver) ResolveSource(p SourcePosition, interesting bool) Location {
	return r.Resolve(p, interesting)
}

// ResolveIndex resolves a byte-offset position.
func (r *Resolver) ResolveIndex(p IndexPosition, interesting bool) Location {
	return r.Resolve(p, interesting)
}

// ResolvePoint resolves a tree-sitter point in path.
func (r *Resolver) ResolvePoint(path string, pt sitter.Point, interesting bool) Location {
	return r.Resolve(PointPosition{Path: path, Point: pt}, interesting)
}

// ResolveNode resolves the start of a tree-sitter node in path.
func (r *Resolver) ResolveNode(path string, n *sitter.Node, interesting bool) Location {
	return r.Resolve(NodePosition{Path: path, Node: n}, interesting)
}

// FileID returns the ID for path, allocating one on first sight.
func (r *Resolver) FileID(path string) FileID {
	id, _ := r.files.Intern(path)
	return id
}

// FilePath returns the path a FileID was assigned to.
func (r *Resolver) FilePath(id FileID) (string, bool) {
	return r.files.Key(id)
}

// Files returns every known path in FileID order.
func (r *Resolver) Files() []string {
	out := make([]string, len(r.files.keys))
	copy(out, r.files.keys)
	return out
}

// TypeUSR returns the identity string of a type ID.
func (r *Resolver) TypeUSR(id TypeID) (string, bool) { return r.types.Key(id) }

// FuncUSR returns the identity string of a function ID.
func (r *Resolver) FuncUSR(id FuncID) (string, bool) { return r.funcs.Key(id) }

// VarUSR returns the identity string of a variable ID.
func (r *Resolver) VarUSR(id VarID) (string, bool) { return r.vars.Key(id) }
