package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <namespace::name>",
	Short: "Show the publish history of a node type, newest first",
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

		store, err := m.History()
		if err != nil {
			return err
		}

		entries, err := store.Query(cmd.Context(), namespace, name)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Printf("no publish history for %s::%s\n", namespace, name)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tFROM\tAUTHOR\tDATE\tCOMMENT")
		for _, e := range entries {
			from := "-"
			if e.Predecessor != nil {
				from = e.Predecessor.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				e.Name.Version, from, e.Author,
				e.Timestamp.Format(time.DateTime), e.Comment)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
