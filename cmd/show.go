package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <namespace::name>",
	Short: "Show every loaded version of one node type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, name, err := splitTypeArg(args[0])
		if err != nil {
			return err
		}

		m, cleanup, err := newManager(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		nt, ok := m.Catalog().NodeType(namespace, name)
		if !ok {
			return fmt.Errorf("node type %s::%s not found", namespace, name)
		}

		fmt.Printf("%s::%s (%s)\n\n", nt.Namespace, nt.Name, nt.Category)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tSOURCE\tINSTALLED\tPATH")
		for _, v := range nt.Versions() {
			state := ""
			if v.Installed {
				state = "yes"
			}
			source := v.Repository
			if v.Writable {
				source = "editable"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.Name.Version, source, state, v.Path)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
