package store

import (
	"database/sql"

	"github.com/jward/xref/internal/index"
)

// locationText encodes loc for a TEXT column, or NULL when loc is nil.
func locationText(loc *index.Location) any {
	if loc == nil {
		return nil
	}
	return loc.String()
}

// scanSymbols reads rows selected with symbolColumns.
func scanSymbols(rows *sql.Rows) ([]*Symbol, error) {
	defer rows.Close()
	var out []*Symbol
	for rows.Next() {
		var sym Symbol
		var short, qualified, def, decl sql.NullString
		if err := rows.Scan(&sym.ID, &sym.UnitID, &sym.UnitPath, &sym.Kind, &sym.USR,
			&short, &qualified, &sym.Placeholder, &def, &decl); err != nil {
			return nil, err
		}
		sym.ShortName = short.String
		sym.QualifiedName = qualified.String
		sym.Definition = def.String
		sym.Declaration = decl.String
		out = append(out, &sym)
	}
	return out, rows.Err()
}

const symbolColumns = `s.id, s.unit_id, u.path, s.kind, s.usr, s.short_name, s.qualified_name,
  s.placeholder, s.definition, s.declaration`
