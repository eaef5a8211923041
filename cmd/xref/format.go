package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text", "yaml"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be one of %s", format, strings.Join(validFormats, ", "))
}

// outputResult writes a CLIResult to w in the selected format.
func outputResult(w io.Writer, result CLIResult) error {
	switch flagFormat {
	case "text":
		return outputResultText(w, result)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In text mode it goes to stderr; otherwise it is
// written to w as a CLIResult envelope.
func outputError(w, stderr io.Writer, command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return err
	}
	_ = outputResult(w, CLIResult{Command: command, Error: err.Error()})
	return err
}

func (l CLILocation) String() string {
	s := fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
	if l.Interesting {
		s = "*" + s
	}
	return s
}

func symbolName(s CLISymbol) string {
	if s.QualifiedName != "" {
		return s.QualifiedName
	}
	if s.Name != "" {
		return s.Name
	}
	return "-"
}

func formatLocationsText(w io.Writer, locs []CLILocation) {
	for _, loc := range locs {
		fmt.Fprintln(w, loc)
	}
}

func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME\tUSR\tDEFINITION")
	for _, s := range syms {
		def := "-"
		switch {
		case s.Definition != nil:
			def = s.Definition.String()
		case s.Placeholder:
			def = "(placeholder)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Kind, symbolName(s), s.USR, def)
	}
	tw.Flush()
}

func formatCallSitesText(w io.Writer, sites []CLICallSite) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FUNCTION\tUSR\tAT")
	for _, c := range sites {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", symbolName(c.Symbol), c.Symbol.USR, c.At)
	}
	tw.Flush()
}

func formatCallGraphText(w io.Writer, g CLICallGraph) {
	fmt.Fprintf(w, "%s (depth %d)\n", g.Root, g.Depth)
	for _, n := range g.Nodes[1:] {
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", n.Depth), n.Symbol.USR)
	}
	if len(g.Edges) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CALLER\tCALLEE\tAT")
		for _, e := range g.Edges {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Caller, e.Callee, e.At)
		}
		tw.Flush()
	}
}

func formatSection(w io.Writer, title string, syms []CLISymbol) {
	if len(syms) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, s := range syms {
		fmt.Fprintf(w, "  %s (%s)\n", symbolName(s), s.USR)
	}
}

func formatTypeHierarchyText(w io.Writer, h CLITypeHierarchy) {
	fmt.Fprintf(w, "Type: %s (%s)\n", symbolName(h.Symbol), h.Symbol.USR)
	if h.AliasOf != nil {
		fmt.Fprintf(w, "Alias of: %s (%s)\n", symbolName(*h.AliasOf), h.AliasOf.USR)
	}
	formatSection(w, "Parents", h.Parents)
	formatSection(w, "Derived", h.Derived)
	formatSection(w, "Nested types", h.Types)
	formatSection(w, "Methods", h.Methods)
	formatSection(w, "Fields", h.Fields)
}

func formatMethodHierarchyText(w io.Writer, h CLIMethodHierarchy) {
	fmt.Fprintf(w, "Method: %s (%s)\n", symbolName(h.Symbol), h.Symbol.USR)
	if h.DeclaringType != nil {
		fmt.Fprintf(w, "Declared in: %s\n", symbolName(*h.DeclaringType))
	}
	formatSection(w, "Overrides", h.Bases)
	formatSection(w, "Overridden by", h.Overrides)
}

func formatUnitsText(w io.Writer, units []CLIUnit) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tLANGUAGE\tINDEXED")
	for _, u := range units {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Path, u.Language, u.IndexedAt)
	}
	tw.Flush()
}

func formatStoredSymbolsText(w io.Writer, syms []CLIStoredSymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UNIT\tKIND\tNAME\tDEFINITION\tDECLARATION")
	for _, s := range syms {
		name := s.QualifiedName
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Unit, s.Kind, name, orDash(s.Definition), orDash(s.Declaration))
	}
	tw.Flush()
}

func formatStoredCallsText(w io.Writer, calls []CLIStoredCall) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UNIT\tCALLER\tAT")
	for _, c := range calls {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Unit, c.Caller, c.At)
	}
	tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLILocation:
		formatLocationsText(w, v)
	case CLILocation:
		formatLocationsText(w, []CLILocation{v})
	case []CLISymbol:
		formatSymbolsText(w, v)
	case CLISymbol:
		formatSymbolsText(w, []CLISymbol{v})
	case []CLICallSite:
		formatCallSitesText(w, v)
	case CLICallGraph:
		formatCallGraphText(w, v)
	case CLITypeHierarchy:
		formatTypeHierarchyText(w, v)
	case CLIMethodHierarchy:
		formatMethodHierarchyText(w, v)
	case []CLIUnit:
		formatUnitsText(w, v)
	case []CLIStoredSymbol:
		formatStoredSymbolsText(w, v)
	case []CLIStoredCall:
		formatStoredCallsText(w, v)
	case nil:
		// No output for nil results (e.g., symbol-at with no match).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}
