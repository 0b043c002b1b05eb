package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/j0nc0x/hdamanager/internal/edit"
	"github.com/j0nc0x/hdamanager/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate <namespace::name>",
	Short: "Validate the editable copy of a node type",
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

		report, err := s.Validate(cmd.Context())
		if err != nil {
			return err
		}

		printReport(report)
		if !report.Pass() {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}

func printReport(report *validate.Report) {
	for _, res := range report.Results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
		}
		fmt.Printf("%s  %s\n", status, res.Validator)
		for _, msg := range res.Messages {
			fmt.Printf("      %s\n", msg)
		}
	}
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
