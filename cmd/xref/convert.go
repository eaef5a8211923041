package main

import (
	"time"

	"github.com/jward/xref"
	"github.com/jward/xref/internal/store"
)

func locationToCLI(loc xref.Location) CLILocation {
	return CLILocation{File: loc.File, Line: loc.Line, Col: loc.Col, Interesting: loc.Interesting}
}

func locationsToCLI(locs []xref.Location) []CLILocation {
	out := make([]CLILocation, len(locs))
	for i, l := range locs {
		out[i] = locationToCLI(l)
	}
	return out
}

func symbolToCLI(sr xref.SymbolResult) CLISymbol {
	s := CLISymbol{
		Kind:          sr.Kind.String(),
		ID:            sr.ID,
		USR:           sr.USR,
		Name:          sr.Name,
		QualifiedName: sr.QualifiedName,
		Placeholder:   sr.Placeholder,
	}
	if sr.Definition != nil {
		loc := locationToCLI(*sr.Definition)
		s.Definition = &loc
	}
	return s
}

func symbolPtrToCLI(sr *xref.SymbolResult) *CLISymbol {
	if sr == nil {
		return nil
	}
	s := symbolToCLI(*sr)
	return &s
}

func symbolsToCLI(srs []xref.SymbolResult) []CLISymbol {
	out := make([]CLISymbol, len(srs))
	for i, sr := range srs {
		out[i] = symbolToCLI(sr)
	}
	return out
}

func callSitesToCLI(sites []xref.CallSite) []CLICallSite {
	out := make([]CLICallSite, len(sites))
	for i, c := range sites {
		out[i] = CLICallSite{Symbol: symbolToCLI(c.Symbol), At: locationToCLI(c.At)}
	}
	return out
}

func callGraphToCLI(g *xref.CallGraph) CLICallGraph {
	out := CLICallGraph{
		Root:  g.Root,
		Depth: g.Depth,
		Nodes: make([]CLIGraphNode, len(g.Nodes)),
		Edges: make([]CLIGraphEdge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = CLIGraphNode{Symbol: symbolToCLI(n.Symbol), Depth: n.Depth}
	}
	for i, e := range g.Edges {
		out.Edges[i] = CLIGraphEdge{Caller: e.Caller, Callee: e.Callee, At: locationToCLI(e.At)}
	}
	return out
}

func typeHierarchyToCLI(h *xref.TypeHierarchy) CLITypeHierarchy {
	return CLITypeHierarchy{
		Symbol:  symbolToCLI(h.Symbol),
		AliasOf: symbolPtrToCLI(h.AliasOf),
		Parents: symbolsToCLI(h.Parents),
		Derived: symbolsToCLI(h.Derived),
		Types:   symbolsToCLI(h.Types),
		Methods: symbolsToCLI(h.Methods),
		Fields:  symbolsToCLI(h.Fields),
	}
}

func methodHierarchyToCLI(h *xref.MethodHierarchy) CLIMethodHierarchy {
	return CLIMethodHierarchy{
		Symbol:        symbolToCLI(h.Symbol),
		DeclaringType: symbolPtrToCLI(h.DeclaringType),
		Bases:         symbolsToCLI(h.Bases),
		Overrides:     symbolsToCLI(h.Overrides),
	}
}

func unitToCLI(u *store.Unit) CLIUnit {
	return CLIUnit{
		ID:        u.ID,
		RunID:     u.RunID,
		Path:      u.Path,
		Language:  u.Language,
		Hash:      u.Hash,
		IndexedAt: u.IndexedAt.UTC().Format(time.RFC3339),
	}
}

func storedSymbolToCLI(s *store.Symbol) CLIStoredSymbol {
	return CLIStoredSymbol{
		Unit:          s.UnitPath,
		Kind:          s.Kind,
		USR:           s.USR,
		Name:          s.ShortName,
		QualifiedName: s.QualifiedName,
		Placeholder:   s.Placeholder,
		Definition:    s.Definition,
		Declaration:   s.Declaration,
	}
}

func storedCallToCLI(c *store.CallSite) CLIStoredCall {
	return CLIStoredCall{
		Unit:   c.UnitPath,
		Caller: c.CallerUSR,
		Name:   c.CallerName,
		At:     CLILocation{File: c.Path, Line: c.Line, Col: c.Col},
	}
}
