package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jward/xref/internal/index"
)

// CommitUnit writes one completed aggregate within a single transaction,
// replacing any earlier unit with the same path. Per-unit ids (file ordinals
// and the dense type, func and var ids) are remapped to real row ids and every
// relation is rewritten through those mappings.
//
// Insert order respects FK dependencies:
//  1. Unit
//  2. Files
//  3. Symbols, all three kinds
//  4. Uses
//  5. Edges
//  6. Conditions
func (s *Store) CommitUnit(ctx context.Context, unit *index.File, info UnitInfo) (*Unit, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("commit unit: begin: %w", err)
	}
	defer tx.Rollback()

	if err := deleteUnitTx(tx, unit.Path); err != nil {
		return nil, fmt.Errorf("commit unit %s: replace: %w", unit.Path, err)
	}

	u := &Unit{
		RunID:     uuid.NewString(),
		Path:      unit.Path,
		Language:  info.Language,
		Hash:      info.Hash,
		IndexedAt: time.Now().UTC().Truncate(time.Second),
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO units (run_id, path, language, hash, indexed_at) VALUES (?, ?, ?, ?, ?)",
		u.RunID, u.Path, u.Language, u.Hash, u.IndexedAt)
	if err != nil {
		return nil, fmt.Errorf("commit unit %s: %w", unit.Path, err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("commit unit %s: %w", unit.Path, err)
	}

	w := &unitWriter{ctx: ctx, tx: tx, unitID: u.ID, fileReal: make(map[int]int64)}
	if err := w.write(unit); err != nil {
		return nil, fmt.Errorf("commit unit %s: %w", unit.Path, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit unit %s: %w", unit.Path, err)
	}
	return u, nil
}

// unitWriter holds the per-unit to real id mappings of one commit.
type unitWriter struct {
	ctx    context.Context
	tx     *sql.Tx
	unitID int64

	fileReal map[int]int64
	typeReal []int64
	funcReal []int64
	varReal  []int64
}

func (w *unitWriter) write(unit *index.File) error {
	// 2. Files
	for i, path := range unit.Files() {
		res, err := w.tx.ExecContext(w.ctx,
			"INSERT INTO files (unit_id, ordinal, path) VALUES (?, ?, ?)", w.unitID, i, path)
		if err != nil {
			return fmt.Errorf("file %q: %w", path, err)
		}
		if w.fileReal[i], err = res.LastInsertId(); err != nil {
			return err
		}
	}

	// 3. Symbols
	types, funcs, vars := unit.Types(), unit.Funcs(), unit.Vars()
	w.typeReal = make([]int64, len(types))
	for i := range types {
		id, err := w.insertSymbol(index.KindType, &types[i].Def, nil)
		if err != nil {
			return err
		}
		w.typeReal[types[i].ID.Raw()] = id
	}
	w.funcReal = make([]int64, len(funcs))
	for i := range funcs {
		var decl *index.Location
		if len(funcs[i].Declarations) > 0 {
			decl = &funcs[i].Declarations[0]
		}
		id, err := w.insertSymbol(index.KindFunc, &funcs[i].Def, decl)
		if err != nil {
			return err
		}
		w.funcReal[funcs[i].ID.Raw()] = id
	}
	w.varReal = make([]int64, len(vars))
	for i := range vars {
		id, err := w.insertSymbol(index.KindVar, &vars[i].Def, vars[i].Declaration)
		if err != nil {
			return err
		}
		w.varReal[vars[i].ID.Raw()] = id
	}

	// 4. Uses
	for i := range types {
		if err := w.insertUses(w.typeReal[types[i].ID.Raw()], types[i].Uses); err != nil {
			return err
		}
	}
	for i := range funcs {
		if err := w.insertUses(w.funcReal[funcs[i].ID.Raw()], funcs[i].Uses); err != nil {
			return err
		}
	}
	for i := range vars {
		if err := w.insertUses(w.varReal[vars[i].ID.Raw()], vars[i].Uses); err != nil {
			return err
		}
	}

	// 5. Edges
	for i := range types {
		if err := w.typeEdges(&types[i]); err != nil {
			return err
		}
	}
	for i := range funcs {
		if err := w.funcEdges(&funcs[i]); err != nil {
			return err
		}
	}
	for i := range vars {
		v := &vars[i]
		if v.VariableType != nil {
			if err := w.insertEdge(EdgeVarType, w.varReal[v.ID.Raw()], w.typeReal[v.VariableType.Raw()], nil); err != nil {
				return err
			}
		}
	}

	// 6. Conditions
	for _, c := range unit.Conditions() {
		_, err := w.tx.ExecContext(w.ctx,
			"INSERT INTO conditions (unit_id, code, kind, usr, kept, got, message) VALUES (?, ?, ?, ?, ?, ?, ?)",
			w.unitID, string(c.Code), c.Kind.String(), c.USR, c.Kept.String(), c.Got.String(), c.Message)
		if err != nil {
			return fmt.Errorf("condition %s: %w", c.Code, err)
		}
	}
	return nil
}

func (w *unitWriter) insertSymbol(kind index.SymbolKind, d *index.Def, decl *index.Location) (int64, error) {
	res, err := w.tx.ExecContext(w.ctx,
		`INSERT INTO symbols (unit_id, kind, usr, short_name, qualified_name, placeholder, definition, declaration)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.unitID, kind.String(), d.USR, d.ShortName, d.QualifiedName, d.Placeholder,
		locationText(d.Definition), locationText(decl))
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", kind, d.USR, err)
	}
	return res.LastInsertId()
}

func (w *unitWriter) insertUses(symbolID int64, uses []index.Location) error {
	for _, loc := range uses {
		_, err := w.tx.ExecContext(w.ctx,
			"INSERT INTO uses (symbol_id, file_id, line, col, interesting) VALUES (?, ?, ?, ?, ?)",
			symbolID, w.fileID(loc), loc.Line, loc.Column, loc.Interesting)
		if err != nil {
			return fmt.Errorf("use %s: %w", loc, err)
		}
	}
	return nil
}

func (w *unitWriter) typeEdges(t *index.TypeDef) error {
	from := w.typeReal[t.ID.Raw()]
	for _, p := range t.Parents {
		if err := w.insertEdge(EdgeParent, from, w.typeReal[p.Raw()], nil); err != nil {
			return err
		}
	}
	if t.AliasOf != nil {
		if err := w.insertEdge(EdgeAlias, from, w.typeReal[t.AliasOf.Raw()], nil); err != nil {
			return err
		}
	}
	for _, n := range t.Types {
		if err := w.insertEdge(EdgeNested, from, w.typeReal[n.Raw()], nil); err != nil {
			return err
		}
	}
	for _, m := range t.Funcs {
		if err := w.insertEdge(EdgeMethod, from, w.funcReal[m.Raw()], nil); err != nil {
			return err
		}
	}
	for _, v := range t.Vars {
		if err := w.insertEdge(EdgeField, from, w.varReal[v.Raw()], nil); err != nil {
			return err
		}
	}
	return nil
}

func (w *unitWriter) funcEdges(f *index.FuncDef) error {
	from := w.funcReal[f.ID.Raw()]
	if f.Base != nil {
		if err := w.insertEdge(EdgeOverride, from, w.funcReal[f.Base.Raw()], nil); err != nil {
			return err
		}
	}
	for _, c := range f.Callees {
		if err := w.insertEdge(EdgeCall, from, w.funcReal[c.ID.Raw()], &c.Loc); err != nil {
			return err
		}
	}
	for _, v := range f.Locals {
		if err := w.insertEdge(EdgeLocal, from, w.varReal[v.Raw()], nil); err != nil {
			return err
		}
	}
	return nil
}

func (w *unitWriter) insertEdge(kind string, from, to int64, loc *index.Location) error {
	var fileID, line, col any
	if loc != nil {
		fileID, line, col = w.fileID(*loc), loc.Line, loc.Column
	}
	_, err := w.tx.ExecContext(w.ctx,
		"INSERT INTO edges (unit_id, kind, from_symbol_id, to_symbol_id, file_id, line, col) VALUES (?, ?, ?, ?, ?, ?, ?)",
		w.unitID, kind, from, to, fileID, line, col)
	if err != nil {
		return fmt.Errorf("%s edge %d -> %d: %w", kind, from, to, err)
	}
	return nil
}

// fileID maps a location's file ordinal to its row id, or NULL for unknown
// locations.
func (w *unitWriter) fileID(loc index.Location) any {
	if id, ok := w.fileReal[loc.File.Raw()]; ok {
		return id
	}
	return nil
}
