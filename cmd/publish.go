package cmd

import (
	"fmt"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/j0nc0x/hdamanager/internal/edit"
)

var (
	pubAuthor  string
	pubComment string
	pubNewNS   bool
)

var publishCmd = &cobra.Command{
	Use:   "publish <namespace::name>",
	Short: "Validate and publish the editable copy as a new version",
	Long: `Validate the editable copy and, if every validator passes, publish it
as a new immutable version in the owning package's next version
directory. The publish is recorded in history, the editable copy is
backed up, and the published version is installed in its place.

Examples:
  hdamanager publish rebellion.pipeline::amazinghda --comment "major rework"`,
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
		if pubNewNS {
			// A confirmation given to configure lives in that invocation;
			// publishing into a brand-new namespace re-states it.
			s.AllowNamespace(s.Name().Namespace)
		}

		// Validation runs in the same invocation so the result is always
		// fresh for the publish.
		report, err := s.Validate(cmd.Context())
		if err != nil {
			return err
		}
		printReport(report)

		author := pubAuthor
		if author == "" {
			if u, err := user.Current(); err == nil {
				author = u.Username
			}
		}

		pub, err := s.Publish(cmd.Context(), author, pubComment)
		if err != nil {
			return err
		}

		fmt.Printf("published %s\n  file: %s\n  package: %s %s\n",
			pub.Name, pub.Path, pub.Target.PackageName, pub.Target.PackageVersion)
		if pub.Target.HandOff {
			fmt.Println("  staged for external packaging (no owning package found)")
		}
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVar(&pubAuthor, "author", "", "Publish author (default: current user)")
	publishCmd.Flags().StringVarP(&pubComment, "comment", "m", "", "Publish comment")
	publishCmd.Flags().BoolVar(&pubNewNS, "confirm-new-namespace", false, "Allow publishing into a namespace the manager does not recognize")
	rootCmd.AddCommand(publishCmd)
}
