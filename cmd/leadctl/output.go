package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// printResult writes v as indented JSON when --json is set, otherwise it
// calls human.
func printResult(cmd *cobra.Command, v any, human func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human(w)
	return nil
}
