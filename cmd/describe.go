package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/finlens/internal/analysis"
	"github.com/KaramelBytes/finlens/internal/dataset"
)

var (
	describeFilters   filterFlags
	describeColumns   []string
	describeThreshold float64
	describeJSON      bool
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Summary statistics and robust outlier counts for numeric columns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cols := make([]dataset.Column, 0, len(describeColumns))
		for _, name := range describeColumns {
			col, err := numericColumn(name)
			if err != nil {
				return err
			}
			cols = append(cols, col)
		}
		_, view, err := loadView(cmd.Context(), &describeFilters)
		if err != nil {
			return err
		}
		stats, err := analysis.Describe(view, cols, describeThreshold)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if describeJSON {
			return printJSON(w, stats)
		}
		fmt.Fprint(w, analysis.StatsMarkdown(stats))
		fmt.Fprintf(w, "\nNúmero de empresas mostradas: %d\n", view.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeFilters.register(describeCmd)
	describeCmd.Flags().StringSliceVar(&describeColumns, "column", nil, "numeric columns to describe (default all)")
	describeCmd.Flags().Float64Var(&describeThreshold, "outlier-threshold", analysis.DefaultOutlierThreshold, "robust |z| threshold for outliers (MAD-based)")
	describeCmd.Flags().BoolVar(&describeJSON, "json", false, "print JSON")
}
