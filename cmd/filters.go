package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/finlens/internal/analysis"
	"github.com/KaramelBytes/finlens/internal/dataset"
)

var filtersJSON bool

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "List the selectable industries, countries and company sizes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(cmd.Context())
		if err != nil {
			return err
		}
		out := make(map[string][]string, len(dataset.Dimensions))
		for _, dim := range dataset.Dimensions {
			vals, err := analysis.Distinct(ds, dim)
			if err != nil {
				return err
			}
			out[string(dim)] = vals
		}
		w := cmd.OutOrStdout()
		if filtersJSON {
			return printJSON(w, out)
		}
		for _, dim := range dataset.Dimensions {
			fmt.Fprintf(w, "%s: %s\n", dim, strings.Join(out[string(dim)], ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(filtersCmd)
	filtersCmd.Flags().BoolVar(&filtersJSON, "json", false, "print JSON")
}
