package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/finlens/internal/dashboard"
	"github.com/KaramelBytes/finlens/internal/utils"
)

var (
	reportFilters filterFlags
	reportJSON    bool
	reportOutput  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the full dashboard for the filters as text or JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(cmd.Context())
		if err != nil {
			return err
		}
		d, err := dashboard.Build(ds, reportFilters.predicates())
		if err != nil {
			return err
		}
		var out []byte
		if reportJSON {
			if out, err = utils.PrettyJSON(d); err != nil {
				return err
			}
			out = append(out, '\n')
		} else {
			out = []byte(d.Markdown())
		}
		if reportOutput != "" {
			if err := writeOutput(reportOutput, out); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "✓ Wrote report to %s\n", reportOutput)
			return nil
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportFilters.register(reportCmd)
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the dashboard as JSON")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "write the report to a file instead of stdout")
}
