// Package xref builds cross-reference indexes of C and C++ sources.
//
// # Pipeline
//
// Each source file is one compilation unit. A traversal driver walks the
// unit's syntax tree and reports visitation events (declarations,
// definitions, references, calls, inheritance) keyed by unified symbol
// resolution strings (USRs). The unit's index aggregate turns those events
// into three entity stores, types, functions and variables, with every
// relation held as a typed, unit-scoped identifier.
//
// Two drivers exist:
//
//  1. The built-in tree-sitter driver for C and C++ (internal/extract).
//  2. Risor extraction scripts, one per file extension, for anything else
//     (internal/runtime). Scripts feed the same aggregate through event
//     functions such as define, use and call.
//
// # Usage
//
//	e, err := xref.Open("xref.db", xref.WithParallel(true))
//	if err != nil { ... }
//	defer e.Close()
//
//	units, err := e.IndexDirectory(ctx, "path/to/project")
//
//	q := e.Query(units[0])
//	loc := q.DefinitionOf("c:@F@main#")
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] navigates one unit:
//
//   - [QueryBuilder.DefinitionOf] and [QueryBuilder.DeclarationsOf]
//   - [QueryBuilder.ReferencesTo]
//   - [QueryBuilder.Callers] and [QueryBuilder.Callees], plus their
//     transitive forms
//   - [QueryBuilder.TypeHierarchy] and [QueryBuilder.MethodHierarchy]
//   - [QueryBuilder.SymbolAt], go-to-definition from a source position
//
// Committed units can also be read back from SQLite through [Engine.Store].
package xref
