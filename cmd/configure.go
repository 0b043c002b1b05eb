package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/j0nc0x/hdamanager/internal/edit"
	hdaversion "github.com/j0nc0x/hdamanager/internal/version"
)

var (
	confNamespace string
	confName      string
	confBump      string
	confVersion   string
	confNewNS     bool
)

var configureCmd = &cobra.Command{
	Use:   "configure <namespace::name>",
	Short: "Reconfigure the identity of an editable copy",
	Long: `Reconfigure the namespace, name or candidate version of an editable copy.

Renaming into a namespace the manager does not recognize is rejected
unless --confirm-new-namespace is given.

Examples:
  hdamanager configure rebellion.pipeline::amazinghda --bump major
  hdamanager configure rebellion.pipeline::amazinghda --name betterhda
  hdamanager configure rebellion.pipeline::amazinghda --namespace rebellion.newshow --confirm-new-namespace`,
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

		opts := edit.ConfigureOptions{
			Namespace:           confNamespace,
			Name:                confName,
			Bump:                confBump,
			ConfirmNewNamespace: confNewNS,
		}
		if confVersion != "" {
			v, err := hdaversion.Parse(confVersion)
			if err != nil {
				return err
			}
			opts.Version = &v
		}

		if err := s.Configure(cmd.Context(), opts); err != nil {
			return err
		}

		fmt.Printf("configured %s\n  editable copy: %s\n", s.Name(), s.Path())
		return nil
	},
}

func init() {
	configureCmd.Flags().StringVar(&confNamespace, "namespace", "", "New namespace")
	configureCmd.Flags().StringVar(&confName, "name", "", "New node type name")
	configureCmd.Flags().StringVar(&confBump, "bump", "", "Bump the candidate version: major, minor or patch")
	configureCmd.Flags().StringVar(&confVersion, "set-version", "", "Set an explicit candidate version")
	configureCmd.Flags().BoolVar(&confNewNS, "confirm-new-namespace", false, "Allow a namespace the manager does not recognize")
	rootCmd.AddCommand(configureCmd)
}
