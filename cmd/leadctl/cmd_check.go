package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check local storage and backend reachability",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, _ []string) error {
	r := application.Check(cmd.Context())
	err := printResult(cmd, r, func(w io.Writer) {
		names := make([]string, 0, len(r.Dependencies))
		for name := range r.Dependencies {
			names = append(names, name)
		}
		sort.Strings(names)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DEPENDENCY\tSTATUS\tERROR")
		for _, name := range names {
			d := r.Dependencies[name]
			fmt.Fprintf(tw, "%s\t%s\t%s\n", name, d.Status, d.Error)
		}
		tw.Flush()
		fmt.Fprintf(w, "\nBackend: %s\n", application.API.BaseURL())
	})
	if err != nil {
		return err
	}
	if !r.Healthy() {
		return errors.New("one or more dependencies are unhealthy")
	}
	return nil
}
