package store

import (
	"database/sql"
	"fmt"
)

// Units lists committed units ordered by path.
func (s *Store) Units() ([]*Unit, error) {
	rows, err := s.db.Query("SELECT id, run_id, path, language, hash, indexed_at FROM units ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}
	defer rows.Close()
	var out []*Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("units: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UnitByPath returns the unit committed for path, or nil if there is none.
func (s *Store) UnitByPath(path string) (*Unit, error) {
	row := s.db.QueryRow("SELECT id, run_id, path, language, hash, indexed_at FROM units WHERE path = ?", path)
	u, err := scanUnit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unit %s: %w", path, err)
	}
	return u, nil
}

func scanUnit(row interface{ Scan(...any) error }) (*Unit, error) {
	var u Unit
	var hash sql.NullString
	if err := row.Scan(&u.ID, &u.RunID, &u.Path, &u.Language, &hash, &u.IndexedAt); err != nil {
		return nil, err
	}
	u.Hash = hash.String
	return &u, nil
}

// UnitFiles returns the file paths of a unit indexed by their ordinal, the
// file number inside stored location strings.
func (s *Store) UnitFiles(unitID int64) ([]string, error) {
	rows, err := s.db.Query("SELECT path FROM files WHERE unit_id = ? ORDER BY ordinal", unitID)
	if err != nil {
		return nil, fmt.Errorf("unit files: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("unit files: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SymbolsByUSR returns every record of usr across units. A symbol that several
// units see (a shared header type, a library function) has one row per unit.
func (s *Store) SymbolsByUSR(usr string) ([]*Symbol, error) {
	rows, err := s.db.Query(`SELECT `+symbolColumns+`
		FROM symbols s JOIN units u ON u.id = s.unit_id
		WHERE s.usr = ? ORDER BY u.path, s.kind`, usr)
	if err != nil {
		return nil, fmt.Errorf("symbols by usr: %w", err)
	}
	syms, err := scanSymbols(rows)
	if err != nil {
		return nil, fmt.Errorf("symbols by usr: %w", err)
	}
	return syms, nil
}

// SymbolsByName returns symbols whose short or qualified name is name.
func (s *Store) SymbolsByName(name string) ([]*Symbol, error) {
	rows, err := s.db.Query(`SELECT `+symbolColumns+`
		FROM symbols s JOIN units u ON u.id = s.unit_id
		WHERE s.short_name = ? OR s.qualified_name = ? ORDER BY u.path, s.kind, s.usr`, name, name)
	if err != nil {
		return nil, fmt.Errorf("symbols by name: %w", err)
	}
	syms, err := scanSymbols(rows)
	if err != nil {
		return nil, fmt.Errorf("symbols by name: %w", err)
	}
	return syms, nil
}

// UsesOf returns the use sites of one symbol row in stored order.
func (s *Store) UsesOf(symbolID int64) ([]*Use, error) {
	rows, err := s.db.Query(`SELECT us.symbol_id, COALESCE(f.path, ''), us.line, us.col, us.interesting
		FROM uses us LEFT JOIN files f ON f.id = us.file_id
		WHERE us.symbol_id = ? ORDER BY us.id`, symbolID)
	if err != nil {
		return nil, fmt.Errorf("uses of %d: %w", symbolID, err)
	}
	defer rows.Close()
	var out []*Use
	for rows.Next() {
		var u Use
		if err := rows.Scan(&u.SymbolID, &u.Path, &u.Line, &u.Col, &u.Interesting); err != nil {
			return nil, fmt.Errorf("uses of %d: %w", symbolID, err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

// CallersOf returns every recorded call of the function usr across units.
func (s *Store) CallersOf(usr string) ([]*CallSite, error) {
	rows, err := s.db.Query(`SELECT u.path, caller.usr, COALESCE(caller.qualified_name, ''),
			COALESCE(f.path, ''), COALESCE(e.line, -1), COALESCE(e.col, -1)
		FROM edges e
		JOIN symbols callee ON callee.id = e.to_symbol_id
		JOIN symbols caller ON caller.id = e.from_symbol_id
		JOIN units u ON u.id = e.unit_id
		LEFT JOIN files f ON f.id = e.file_id
		WHERE e.kind = ? AND callee.usr = ? AND callee.kind = 'func'
		ORDER BY u.path, e.id`, EdgeCall, usr)
	if err != nil {
		return nil, fmt.Errorf("callers of %s: %w", usr, err)
	}
	defer rows.Close()
	var out []*CallSite
	for rows.Next() {
		var c CallSite
		if err := rows.Scan(&c.UnitPath, &c.CallerUSR, &c.CallerName, &c.Path, &c.Line, &c.Col); err != nil {
			return nil, fmt.Errorf("callers of %s: %w", usr, err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// EdgeTargets returns the USRs that symbol row from points to through edges of
// kind, in insertion order.
func (s *Store) EdgeTargets(kind string, from int64) ([]string, error) {
	rows, err := s.db.Query(`SELECT t.usr FROM edges e JOIN symbols t ON t.id = e.to_symbol_id
		WHERE e.kind = ? AND e.from_symbol_id = ? ORDER BY e.id`, kind, from)
	if err != nil {
		return nil, fmt.Errorf("%s edges of %d: %w", kind, from, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var usr string
		if err := rows.Scan(&usr); err != nil {
			return nil, fmt.Errorf("%s edges of %d: %w", kind, from, err)
		}
		out = append(out, usr)
	}
	return out, rows.Err()
}

// Conditions returns the anomalies recorded for a unit.
func (s *Store) Conditions(unitID int64) ([]*Condition, error) {
	rows, err := s.db.Query(`SELECT unit_id, code, kind, COALESCE(usr, ''), COALESCE(kept, ''),
			COALESCE(got, ''), COALESCE(message, '')
		FROM conditions WHERE unit_id = ? ORDER BY id`, unitID)
	if err != nil {
		return nil, fmt.Errorf("conditions: %w", err)
	}
	defer rows.Close()
	var out []*Condition
	for rows.Next() {
		var c Condition
		if err := rows.Scan(&c.UnitID, &c.Code, &c.Kind, &c.USR, &c.Kept, &c.Got, &c.Message); err != nil {
			return nil, fmt.Errorf("conditions: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
