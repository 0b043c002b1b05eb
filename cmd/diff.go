package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/j0nc0x/hdamanager/internal/edit"
)

var diffCmd = &cobra.Command{
	Use:   "diff <namespace::name>",
	Short: "Diff the editable copy against its published source",
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

		s, err := edit.Resume(cmd.Context(), m, namespace, name)
		if err != nil {
			return err
		}

		diff, err := s.Diff()
		if err != nil {
			return err
		}
		fmt.Print(diff)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
