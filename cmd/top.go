package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/finlens/internal/dashboard"
	"github.com/KaramelBytes/finlens/internal/dataset"
)

var (
	topFilters filterFlags
	topColumn  string
	topN       int
	topJSON    bool
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the top-N companies by a numeric column",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		col, err := numericColumn(topColumn)
		if err != nil {
			return err
		}
		if topN < 0 {
			return fmt.Errorf("--limit must be >= 0, got %d", topN)
		}
		_, view, err := loadView(cmd.Context(), &topFilters)
		if err != nil {
			return err
		}
		r, err := dashboard.BuildRanking(view, col, fmt.Sprintf("Top %d empresas por %s", topN, col), topN)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if topJSON {
			return printJSON(w, r)
		}
		if len(r.Rows) == 0 {
			fmt.Fprintln(w, "(sin datos)")
			return nil
		}
		for i, row := range r.Rows {
			fmt.Fprintf(w, "%d. %s  %s  (%s, %s)\n", i+1, row.CompanyID, dataset.FormatNumber(float64(row.Value), 2), row.Industry, row.Country)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(topCmd)
	topFilters.register(topCmd)
	topCmd.Flags().StringVar(&topColumn, "column", string(dataset.ColTotalRevenueMillions), "numeric column to rank by")
	topCmd.Flags().IntVarP(&topN, "limit", "n", dashboard.TopN, "number of companies")
	topCmd.Flags().BoolVar(&topJSON, "json", false, "print JSON")
}
