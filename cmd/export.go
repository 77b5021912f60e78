package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/finlens/internal/dataset"
)

var (
	exportFilters filterFlags
	exportOutput  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the filtered companies to CSV, Parquet or XLSX",
	Long: `Write the filtered companies, including the derived indicator columns.
The format follows the output extension: .csv, .parquet or .xlsx.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportOutput == "" {
			return errors.New("--output is required")
		}
		_, view, err := loadView(cmd.Context(), &exportFilters)
		if err != nil {
			return err
		}
		if err := dataset.ExportFile(exportOutput, view); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Exported %d companies to %s\n", view.Len(), exportOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportFilters.register(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (.csv, .parquet, .xlsx)")
}
