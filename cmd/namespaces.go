package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var namespacesCmd = &cobra.Command{
	Use:   "namespaces",
	Short: "List catalogued namespaces and their owning repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, cleanup, err := newManager(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		cat := m.Catalog()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAMESPACE\tOWNER\tNODE TYPES")
		for _, ns := range cat.Namespaces() {
			owner, _ := cat.Owner(ns)
			fmt.Fprintf(w, "%s\t%s\t%d\n", ns, owner, len(cat.NodeTypes(ns)))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if warnings := cat.Warnings(); len(warnings) > 0 {
			fmt.Fprintln(os.Stderr)
			for _, warn := range warnings {
				fmt.Fprintf(os.Stderr, "warning: %v\n", warn)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(namespacesCmd)
}
