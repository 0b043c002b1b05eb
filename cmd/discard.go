package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/j0nc0x/hdamanager/internal/edit"
)

var discardCmd = &cobra.Command{
	Use:   "discard <namespace::name>",
	Short: "Discard the editable copy of a node type",
	Long: `Discard the editable copy: the file is moved to the backup directory
and the previously published version is reinstalled.`,
	Args: cobra.ExactArgs(1),
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

		if err := s.Discard(cmd.Context()); err != nil {
			return err
		}

		fmt.Printf("discarded editable copy of %s::%s\n", namespace, name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discardCmd)
}
