package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/j0nc0x/hdamanager/internal/edit"
)

var editCmd = &cobra.Command{
	Use:   "edit <namespace::name>",
	Short: "Check out an editable copy of a node type",
	Long: `Check out an editable copy of the latest published version.

The published definition file is copied into the editable workspace and
installed in place of the published version. At most one editable copy
exists per node type.

Examples:
  hdamanager edit rebellion.pipeline::amazinghda`,
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

		s, err := edit.Begin(cmd.Context(), m, namespace, name)
		if err != nil {
			return err
		}

		fmt.Printf("checked out %s\n  editable copy: %s\n", s.Name(), s.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
}
