package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/j0nc0x/hdamanager/internal/catalog"
	"github.com/j0nc0x/hdamanager/internal/edit"
)

var statusCmd = &cobra.Command{
	Use:   "status <namespace::name>",
	Short: "Show the edit state of a node type",
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

		res, err := m.Resolve(namespace, name)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return fmt.Errorf("node type %s::%s not found", namespace, name)
			}
			return err
		}

		if res.Published != nil {
			fmt.Printf("published: %s (%s)\n", res.Published.Name, res.Published.Path)
		} else {
			fmt.Println("published: none")
		}

		if res.Editable == nil {
			fmt.Println("editable:  none")
			return nil
		}

		s, err := edit.Resume(cmd.Context(), m, namespace, name)
		if err != nil {
			return err
		}
		fmt.Printf("editable:  %s (%s)\n", s.Name(), s.Path())

		modified, err := s.Modified()
		if err != nil {
			return err
		}
		if modified {
			fmt.Println("state:     modified since checkout")
		} else {
			fmt.Println("state:     unchanged since checkout")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
