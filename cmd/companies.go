package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/finlens/internal/dataset"
)

var (
	companiesFilters filterFlags
	companiesJSON    bool
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List the companies matching the filters, with derived indicators",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, view, err := loadView(cmd.Context(), &companiesFilters)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if companiesJSON {
			return printJSON(w, struct {
				SnapshotID string            `json:"snapshot_id"`
				Count      int               `json:"count"`
				Companies  []dataset.Company `json:"companies"`
			}{ds.ID(), view.Len(), view.Records()})
		}
		fmt.Fprintln(w, "| Company_ID | Industry | Country | Company_Size | Total_Revenue_Millions | Equity_Millions | Current_Ratio | Debt_to_Equity_Ratio | Coverage |")
		fmt.Fprintln(w, "|---|---|---|---|---:|---:|---:|---:|---:|")
		for _, c := range view.Records() {
			fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
				c.ID, c.Industry, c.Country, c.Size,
				dataset.FormatNumber(c.TotalRevenueMillions(), 2),
				dataset.FormatNumber(c.EquityMillions(), 2),
				dataset.FormatNumber(c.CurrentRatio, 2),
				dataset.FormatNumber(c.DebtToEquity, 2),
				dataset.FormatNumber(c.CoverageRatio(), 2))
		}
		fmt.Fprintf(w, "\nNúmero de empresas mostradas: %d\n", view.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(companiesCmd)
	companiesFilters.register(companiesCmd)
	companiesCmd.Flags().BoolVar(&companiesJSON, "json", false, "print JSON")
}
