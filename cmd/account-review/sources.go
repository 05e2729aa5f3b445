package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scottbrown/account-review/acctreview"
)

var sourcesWidth int

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the available data sources and reports",
	Long:  `Display every data source with the system that supplies it, its payload format and its columns, followed by the reports.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := sourcesTable()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), t.Text(sourcesWidth))
		fmt.Fprintln(cmd.OutOrStdout())
		for _, r := range acctreview.Reports() {
			sheets := make([]string, len(r.Sheets))
			for i, s := range r.Sheets {
				sheets[i] = s.Source
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", r.Name, strings.Join(sheets, ", "))
		}
		return nil
	},
}

func init() {
	sourcesCmd.Flags().IntVarP(&sourcesWidth, "width", "w", 0, "Line width of the table (0: unlimited)")
}

func sourcesTable() (*acctreview.Table, error) {
	specs := acctreview.Sources()
	rows := make([][]any, 0, len(specs))
	for _, s := range specs {
		rows = append(rows, []any{
			s.Descriptor.Slug,
			s.System,
			s.Descriptor.Format.String(),
			strings.Join(s.Descriptor.Fields, ", "),
		})
	}
	return acctreview.NewTable([]string{"Source", "System", "Format", "Columns"}, rows)
}
