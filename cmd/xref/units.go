package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/xref/internal/store"
)

var flagCallers bool

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "List units in the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
		s, err := openStore()
		if err != nil {
			return outputError(w, stderr, "units", err)
		}
		defer s.Close()

		units, err := s.Units()
		if err != nil {
			return outputError(w, stderr, "units", err)
		}
		out := make([]CLIUnit, len(units))
		for i, u := range units {
			out[i] = unitToCLI(u)
		}
		return outputResult(w, CLIResult{Command: "units", Results: out})
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <usr>",
	Short: "Find a symbol across every unit in the database",
	Long:  "Lists the record each committed unit holds for usr. With --callers, lists the call sites that reach it instead.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
		s, err := openStore()
		if err != nil {
			return outputError(w, stderr, "lookup", err)
		}
		defer s.Close()

		if flagCallers {
			calls, err := s.CallersOf(args[0])
			if err != nil {
				return outputError(w, stderr, "lookup", err)
			}
			out := make([]CLIStoredCall, len(calls))
			for i, c := range calls {
				out[i] = storedCallToCLI(c)
			}
			return outputResult(w, CLIResult{Command: "lookup", Results: out})
		}

		syms, err := s.SymbolsByUSR(args[0])
		if err != nil {
			return outputError(w, stderr, "lookup", err)
		}
		out := make([]CLIStoredSymbol, len(syms))
		for i, sym := range syms {
			out[i] = storedSymbolToCLI(sym)
		}
		return outputResult(w, CLIResult{Command: "lookup", Results: out})
	},
}

func init() {
	lookupCmd.Flags().BoolVar(&flagCallers, "callers", false, "list call sites instead of symbol records")
}

// openStore opens the Store from the --db flag path (or the configured one).
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'xref index' first)", dbPath)
	}
	return store.NewStore(dbPath)
}
