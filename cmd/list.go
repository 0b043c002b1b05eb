package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/j0nc0x/hdamanager/internal/nodetype"
)

var (
	listNamespace string
	listJSON      bool
)

// nodeTypeRow is the JSON shape of one listed node type.
type nodeTypeRow struct {
	Namespace string   `json:"namespace"`
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	Latest    string   `json:"latest,omitempty"`
	Editable  bool     `json:"editable"`
	Versions  []string `json:"versions"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogued node types",
	Long: `List every node type in the catalog with its loaded versions.

Use --namespace to restrict the listing to one namespace.

Examples:
  hdamanager list
  hdamanager list --namespace rebellion.pipeline
  hdamanager list --json | jq '.[].latest'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, cleanup, err := newManager(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		var nodeTypes []*nodetype.NodeType
		if listNamespace != "" {
			nodeTypes = m.Catalog().NodeTypes(listNamespace)
		} else {
			nodeTypes = m.Catalog().All()
		}

		rows := make([]nodeTypeRow, 0, len(nodeTypes))
		for _, nt := range nodeTypes {
			row := nodeTypeRow{
				Namespace: nt.Namespace,
				Name:      nt.Name,
				Category:  nt.Category,
				Editable:  nt.Editable() != nil,
			}
			if latest := nt.Latest(); latest != nil {
				row.Latest = latest.Name.Version.String()
			}
			for _, v := range nt.Versions() {
				row.Versions = append(row.Versions, v.Name.Version.String())
			}
			rows = append(rows, row)
		}

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAMESPACE\tNAME\tCATEGORY\tLATEST\tEDITABLE\tVERSIONS")
		for _, row := range rows {
			editable := ""
			if row.Editable {
				editable = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
				row.Namespace, row.Name, row.Category, row.Latest, editable, len(row.Versions))
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().StringVarP(&listNamespace, "namespace", "n", "", "Filter by namespace")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(listCmd)
}
