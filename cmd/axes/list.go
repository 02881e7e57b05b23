package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/axesdev/axes/internal/identity"
)

// listCmd prints a flat dump of every registered project. Pretty
// tree-printing is explicitly out of scope (see DESIGN.md); this is a
// plain tabular listing for scripting against.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list every registered project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintln(w, "UUID\tNAME\tPARENT\tPATH")
		for _, e := range store.List() {
			parent := ""
			if e.HasParent {
				parent = e.Parent.String()
			}
			name := e.Name
			if e.UUID == identity.Root {
				name = "(root)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.UUID, name, parent, e.Path)
		}
		return nil
	},
}
