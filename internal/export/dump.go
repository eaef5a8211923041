// Package export renders completed index units: a JSON or YAML dump of the
// aggregate, a plain text listing, and SCIP indexes.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jward/xref/internal/index"
)

// Dump is the serializable form of one unit. Ids are the unit's dense record
// ids; locations use their "[*]file:line:col" text form.
type Dump struct {
	Path       string          `json:"path" yaml:"path"`
	Files      []string        `json:"files" yaml:"files"`
	Types      []TypeDump      `json:"types" yaml:"types"`
	Funcs      []FuncDump      `json:"funcs" yaml:"funcs"`
	Vars       []VarDump       `json:"vars" yaml:"vars"`
	Conditions []ConditionDump `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

type SymbolDump struct {
	ID            int      `json:"id" yaml:"id"`
	USR           string   `json:"usr" yaml:"usr"`
	ShortName     string   `json:"shortName,omitempty" yaml:"shortName,omitempty"`
	QualifiedName string   `json:"qualifiedName,omitempty" yaml:"qualifiedName,omitempty"`
	Placeholder   bool     `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Definition    string   `json:"definition,omitempty" yaml:"definition,omitempty"`
	Uses          []string `json:"uses,omitempty" yaml:"uses,omitempty"`
}

type TypeDump struct {
	SymbolDump `yaml:",inline"`
	AliasOf    *int  `json:"aliasOf,omitempty" yaml:"aliasOf,omitempty"`
	Parents    []int `json:"parents,omitempty" yaml:"parents,omitempty"`
	Derived    []int `json:"derived,omitempty" yaml:"derived,omitempty"`
	Types      []int `json:"types,omitempty" yaml:"types,omitempty"`
	Funcs      []int `json:"funcs,omitempty" yaml:"funcs,omitempty"`
	Vars       []int `json:"vars,omitempty" yaml:"vars,omitempty"`
}

type FuncDump struct {
	SymbolDump    `yaml:",inline"`
	Declarations  []string  `json:"declarations,omitempty" yaml:"declarations,omitempty"`
	DeclaringType *int      `json:"declaringType,omitempty" yaml:"declaringType,omitempty"`
	Base          *int      `json:"base,omitempty" yaml:"base,omitempty"`
	Derived       []int     `json:"derived,omitempty" yaml:"derived,omitempty"`
	Locals        []int     `json:"locals,omitempty" yaml:"locals,omitempty"`
	Callees       []RefDump `json:"callees,omitempty" yaml:"callees,omitempty"`
	Callers       []RefDump `json:"callers,omitempty" yaml:"callers,omitempty"`
}

type VarDump struct {
	SymbolDump    `yaml:",inline"`
	Declaration   string `json:"declaration,omitempty" yaml:"declaration,omitempty"`
	VariableType  *int   `json:"variableType,omitempty" yaml:"variableType,omitempty"`
	DeclaringType *int   `json:"declaringType,omitempty" yaml:"declaringType,omitempty"`
}

type RefDump struct {
	ID  int    `json:"id" yaml:"id"`
	Loc string `json:"loc" yaml:"loc"`
}

type ConditionDump struct {
	Code    string `json:"code" yaml:"code"`
	Kind    string `json:"kind" yaml:"kind"`
	USR     string `json:"usr" yaml:"usr"`
	Kept    string `json:"kept,omitempty" yaml:"kept,omitempty"`
	Got     string `json:"got,omitempty" yaml:"got,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// NewDump converts a unit. Records keep their id order.
func NewDump(unit *index.File) *Dump {
	d := &Dump{Path: unit.Path, Files: unit.Files()}
	for _, t := range unit.Types() {
		d.Types = append(d.Types, TypeDump{
			SymbolDump: symbolDump(t.ID.Raw(), &t.Def),
			AliasOf:    rawPtr(t.AliasOf),
			Parents:    raws(t.Parents),
			Derived:    raws(t.Derived),
			Types:      raws(t.Types),
			Funcs:      raws(t.Funcs),
			Vars:       raws(t.Vars),
		})
	}
	for _, f := range unit.Funcs() {
		d.Funcs = append(d.Funcs, FuncDump{
			SymbolDump:    symbolDump(f.ID.Raw(), &f.Def),
			Declarations:  locations(f.Declarations),
			DeclaringType: rawPtr(f.DeclaringType),
			Base:          rawPtr(f.Base),
			Derived:       raws(f.Derived),
			Locals:        raws(f.Locals),
			Callees:       refs(f.Callees),
			Callers:       refs(f.Callers),
		})
	}
	for _, v := range unit.Vars() {
		vd := VarDump{
			SymbolDump:    symbolDump(v.ID.Raw(), &v.Def),
			VariableType:  rawPtr(v.VariableType),
			DeclaringType: rawPtr(v.DeclaringType),
		}
		if v.Declaration != nil {
			vd.Declaration = v.Declaration.String()
		}
		d.Vars = append(d.Vars, vd)
	}
	for _, c := range unit.Conditions() {
		cd := ConditionDump{Code: string(c.Code), Kind: c.Kind.String(), USR: c.USR, Message: c.Message}
		if c.Code == index.ConflictingDefinition {
			cd.Kept, cd.Got = c.Kept.String(), c.Got.String()
		}
		d.Conditions = append(d.Conditions, cd)
	}
	return d
}

func symbolDump(id int, d *index.Def) SymbolDump {
	s := SymbolDump{
		ID:            id,
		USR:           d.USR,
		ShortName:     d.ShortName,
		QualifiedName: d.QualifiedName,
		Placeholder:   d.Placeholder,
		Uses:          locations(d.Uses),
	}
	if d.Definition != nil {
		s.Definition = d.Definition.String()
	}
	return s
}

func raws[K any](ids []index.ID[K]) []int {
	if len(ids) == 0 {
		return nil
	}
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = id.Raw()
	}
	return out
}

func rawPtr[K any](id *index.ID[K]) *int {
	if id == nil {
		return nil
	}
	n := id.Raw()
	return &n
}

func locations(locs []index.Location) []string {
	if len(locs) == 0 {
		return nil
	}
	out := make([]string, len(locs))
	for i, l := range locs {
		out[i] = l.String()
	}
	return out
}

func refs(rs []index.FuncRef) []RefDump {
	if len(rs) == 0 {
		return nil
	}
	out := make([]RefDump, len(rs))
	for i, r := range rs {
		out[i] = RefDump{ID: r.ID.Raw(), Loc: r.Loc.String()}
	}
	return out
}

// WriteJSON writes the unit's dump as indented JSON.
func WriteJSON(w io.Writer, unit *index.File) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDump(unit)); err != nil {
		return fmt.Errorf("export json %s: %w", unit.Path, err)
	}
	return nil
}

// WriteYAML writes the unit's dump as YAML.
func WriteYAML(w io.Writer, unit *index.File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDump(unit)); err != nil {
		return fmt.Errorf("export yaml %s: %w", unit.Path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("export yaml %s: %w", unit.Path, err)
	}
	return nil
}

// WriteText writes one line per record, types first, in the form
//
//	type 0 c:@S@point point (def 0:2:8, 3 uses)
//
// with placeholders marked.
func WriteText(w io.Writer, unit *index.File) error {
	st := unit.Stats()
	if _, err := fmt.Fprintf(w, "%s: %d files, %d types, %d funcs, %d vars, %d placeholders, %d conditions\n",
		unit.Path, st.Files, st.Types, st.Funcs, st.Vars, st.Placeholders, st.Conditions); err != nil {
		return err
	}
	for _, t := range unit.Types() {
		if err := writeTextLine(w, index.KindType, t.ID.Raw(), &t.Def); err != nil {
			return err
		}
	}
	for _, f := range unit.Funcs() {
		if err := writeTextLine(w, index.KindFunc, f.ID.Raw(), &f.Def); err != nil {
			return err
		}
	}
	for _, v := range unit.Vars() {
		if err := writeTextLine(w, index.KindVar, v.ID.Raw(), &v.Def); err != nil {
			return err
		}
	}
	for _, c := range unit.Conditions() {
		if _, err := fmt.Fprintf(w, "condition %s\n", c); err != nil {
			return err
		}
	}
	return nil
}

func writeTextLine(w io.Writer, kind index.SymbolKind, id int, d *index.Def) error {
	name := d.QualifiedName
	if name == "" {
		name = d.ShortName
	}
	if name == "" {
		name = "-"
	}
	def := "placeholder"
	if d.Definition != nil {
		def = "def " + d.Definition.String()
	} else if !d.Placeholder {
		def = "declared"
	}
	_, err := fmt.Fprintf(w, "%s %d %s %s (%s, %d uses)\n", kind, id, d.USR, name, def, len(d.Uses))
	return err
}
