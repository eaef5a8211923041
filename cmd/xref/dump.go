package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jward/xref/internal/export"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Index one file and print its complete unit",
	Long:  "Builds the index unit for a single file in memory and prints every type, function, variable and condition it holds. Nothing is written to the database.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, u, err := indexOne(context.Background(), args[0])
		if err != nil {
			return outputError(cmd.OutOrStdout(), cmd.ErrOrStderr(), "dump", err)
		}
		w := cmd.OutOrStdout()
		switch flagFormat {
		case "text":
			return export.WriteText(w, u.File)
		case "yaml":
			return export.WriteYAML(w, u.File)
		default:
			return export.WriteJSON(w, u.File)
		}
	},
}
