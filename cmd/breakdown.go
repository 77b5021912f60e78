package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/finlens/internal/analysis"
	"github.com/KaramelBytes/finlens/internal/dataset"
)

var (
	breakdownFilters filterFlags
	breakdownValue   string
	breakdownBy      string
	breakdownJSON    bool
)

var breakdownCmd = &cobra.Command{
	Use:   "breakdown",
	Short: "Sum a numeric column per industry, country or company size",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := numericColumn(breakdownValue)
		if err != nil {
			return err
		}
		by, err := dimensionColumn(breakdownBy)
		if err != nil {
			return err
		}
		_, view, err := loadView(cmd.Context(), &breakdownFilters)
		if err != nil {
			return err
		}
		groups, err := analysis.SumBy(view, by, value)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if breakdownJSON {
			return printJSON(w, groups)
		}
		if len(groups) == 0 {
			fmt.Fprintln(w, "(sin datos)")
			return nil
		}
		total := analysis.Total(groups)
		fmt.Fprintf(w, "%s por %s\n", value, by)
		for _, g := range groups {
			share := "n/a"
			if total != 0 {
				share = fmt.Sprintf("%.1f%%", float64(g.Sum)*100/total)
			}
			fmt.Fprintf(w, "- %s: %s (%s, %d empresas)\n", g.Key, dataset.FormatNumber(float64(g.Sum), 2), share, g.Count)
		}
		fmt.Fprintf(w, "Total: %s\n", dataset.FormatNumber(total, 2))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(breakdownCmd)
	breakdownFilters.register(breakdownCmd)
	breakdownCmd.Flags().StringVar(&breakdownValue, "value", string(dataset.ColTotalRevenueMillions), "numeric column to sum")
	breakdownCmd.Flags().StringVar(&breakdownBy, "by", string(dataset.ColIndustry), "dimension to group by")
	breakdownCmd.Flags().BoolVar(&breakdownJSON, "json", false, "print JSON")
}
