package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/xref"
)

var (
	flagInteresting bool
	flagDepth       int
	flagDirection   string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the index of a single file",
	Long:  "Index one file in memory and navigate it. Symbols are named by USR; lines and columns are 1-based.",
}

func init() {
	referencesCmd.Flags().BoolVar(&flagInteresting, "interesting", false, "only uses written in the source")
	callGraphCmd.Flags().IntVar(&flagDepth, "depth", 5, "maximum traversal depth (capped at 100)")
	callGraphCmd.Flags().StringVar(&flagDirection, "direction", "callees", "callers|callees")

	queryCmd.AddCommand(symbolCmd)
	queryCmd.AddCommand(symbolAtCmd)
	queryCmd.AddCommand(definitionCmd)
	queryCmd.AddCommand(declarationsCmd)
	queryCmd.AddCommand(referencesCmd)
	queryCmd.AddCommand(callersCmd)
	queryCmd.AddCommand(calleesCmd)
	queryCmd.AddCommand(callGraphCmd)
	queryCmd.AddCommand(hierarchyCmd)
	queryCmd.AddCommand(overridesCmd)
}

// usrQuery builds a "<file> <usr>" subcommand.
func usrQuery(use, short string, run func(q *xref.QueryBuilder, usr string) (any, error)) *cobra.Command {
	name := use
	return &cobra.Command{
		Use:   use + " <file> <usr>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
			e, u, err := indexOne(context.Background(), args[0])
			if err != nil {
				return outputError(w, stderr, name, err)
			}
			results, err := run(e.Query(u), args[1])
			if err != nil {
				return outputError(w, stderr, name, err)
			}
			return outputResult(w, CLIResult{Command: name, Results: results})
		},
	}
}

func notFound(usr string) error {
	return fmt.Errorf("symbol not found: %s", usr)
}

var symbolCmd = usrQuery("symbol", "Show one symbol", func(q *xref.QueryBuilder, usr string) (any, error) {
	sym := q.Symbol(usr)
	if sym == nil {
		return nil, notFound(usr)
	}
	return symbolToCLI(*sym), nil
})

var definitionCmd = usrQuery("definition", "Where a symbol is defined", func(q *xref.QueryBuilder, usr string) (any, error) {
	if q.Symbol(usr) == nil {
		return nil, notFound(usr)
	}
	if loc := q.DefinitionOf(usr); loc != nil {
		return []CLILocation{locationToCLI(*loc)}, nil
	}
	return []CLILocation{}, nil
})

var declarationsCmd = usrQuery("declarations", "Forward declarations of a function or variable", func(q *xref.QueryBuilder, usr string) (any, error) {
	if q.Symbol(usr) == nil {
		return nil, notFound(usr)
	}
	return locationsToCLI(q.DeclarationsOf(usr)), nil
})

var referencesCmd = usrQuery("references", "Every use of a symbol", func(q *xref.QueryBuilder, usr string) (any, error) {
	if q.Symbol(usr) == nil {
		return nil, notFound(usr)
	}
	return locationsToCLI(q.ReferencesTo(usr, flagInteresting)), nil
})

var callersCmd = usrQuery("callers", "Functions calling a function", func(q *xref.QueryBuilder, usr string) (any, error) {
	if q.Symbol(usr) == nil {
		return nil, notFound(usr)
	}
	return callSitesToCLI(q.Callers(usr)), nil
})

var calleesCmd = usrQuery("callees", "Functions a function calls", func(q *xref.QueryBuilder, usr string) (any, error) {
	if q.Symbol(usr) == nil {
		return nil, notFound(usr)
	}
	return callSitesToCLI(q.Callees(usr)), nil
})

var callGraphCmd = usrQuery("call-graph", "Transitive callers or callees of a function", func(q *xref.QueryBuilder, usr string) (any, error) {
	var (
		g   *xref.CallGraph
		err error
	)
	switch flagDirection {
	case "callers":
		g, err = q.TransitiveCallers(usr, flagDepth)
	case "callees":
		g, err = q.TransitiveCallees(usr, flagDepth)
	default:
		return nil, fmt.Errorf("invalid direction %q: must be callers or callees", flagDirection)
	}
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, notFound(usr)
	}
	return callGraphToCLI(g), nil
})

var hierarchyCmd = usrQuery("hierarchy", "Parents, derived types and members of a type", func(q *xref.QueryBuilder, usr string) (any, error) {
	h := q.TypeHierarchy(usr)
	if h == nil {
		return nil, fmt.Errorf("type not found: %s", usr)
	}
	return typeHierarchyToCLI(h), nil
})

var overridesCmd = usrQuery("overrides", "Override chain of a method", func(q *xref.QueryBuilder, usr string) (any, error) {
	h := q.MethodHierarchy(usr)
	if h == nil {
		return nil, fmt.Errorf("function not found: %s", usr)
	}
	return methodHierarchyToCLI(h), nil
})

var symbolAtCmd = &cobra.Command{
	Use:   "symbol-at <file> <line> <col>",
	Short: "Symbol used at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
		line, err := parsePositionArg(args[1], "line")
		if err != nil {
			return outputError(w, stderr, "symbol-at", err)
		}
		col, err := parsePositionArg(args[2], "col")
		if err != nil {
			return outputError(w, stderr, "symbol-at", err)
		}
		e, u, err := indexOne(context.Background(), args[0])
		if err != nil {
			return outputError(w, stderr, "symbol-at", err)
		}
		result := CLIResult{Command: "symbol-at"}
		if sym := e.Query(u).SymbolAt(u.Path, line, col); sym != nil {
			result.Results = symbolToCLI(*sym)
		}
		return outputResult(w, result)
	},
}

// parsePositionArg parses a 1-based line or column argument.
func parsePositionArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, value)
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid %s %q: must be at least 1", name, value)
	}
	return n, nil
}
