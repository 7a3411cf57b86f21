package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newToolsCmd(d Deps) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the processing tools",
		Example: `  dochubctl tools
  dochubctl tools --output yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			entries := d.Tools.Entries()
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{string(e.ID), e.Name, string(e.Family), strings.Join(e.Accepts, ", ")})
			}
			return render(out(cmd), format, entries, []string{"ID", "NAME", "FAMILY", "ACCEPTS"}, rows)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "Output format: table, yaml or json")
	return cmd
}
