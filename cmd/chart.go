package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/finlens/internal/chart"
	"github.com/KaramelBytes/finlens/internal/dashboard"
	"github.com/KaramelBytes/finlens/internal/dataset"
)

var (
	chartFilters filterFlags
	chartOutput  string
	chartBy      string
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render dashboard charts as PNG files",
}

var chartBarCmd = &cobra.Command{
	Use:   "bar <column>",
	Short: "Bar chart of one numeric column per company, sorted descending",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		col, err := numericColumn(args[0])
		if err != nil {
			return err
		}
		_, view, err := loadView(cmd.Context(), &chartFilters)
		if err != nil {
			return err
		}
		series, err := dashboard.BuildBars(view, col)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		skipped, err := chart.RenderBarSeries(&buf, series)
		if skipped > 0 {
			fmt.Fprintf(os.Stderr, "⚠ Warning: %d non-finite value(s) not drawn\n", skipped)
		}
		return saveChart(&buf, err, chartPath(col, "bar"))
	},
}

var chartPieCmd = &cobra.Command{
	Use:   "pie <column>",
	Short: "Pie chart of one numeric column summed per dimension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		col, err := numericColumn(args[0])
		if err != nil {
			return err
		}
		by, err := dimensionColumn(chartBy)
		if err != nil {
			return err
		}
		_, view, err := loadView(cmd.Context(), &chartFilters)
		if err != nil {
			return err
		}
		pie, err := dashboard.BuildPie(view, col, by)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		return saveChart(&buf, chart.RenderPie(&buf, pie), chartPath(col, "pie"))
	},
}

func chartPath(col dataset.Column, kind string) string {
	if chartOutput != "" {
		return chartOutput
	}
	return fmt.Sprintf("%s_%s.png", col, kind)
}

func saveChart(buf *bytes.Buffer, renderErr error, path string) error {
	if errors.Is(renderErr, chart.ErrNoData) {
		fmt.Fprintln(os.Stderr, "⚠ Warning: no data for the selected filters; nothing written")
		return nil
	}
	if renderErr != nil {
		return renderErr
	}
	if err := writeOutput(path, buf.Bytes()); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote chart to %s\n", path)
	return nil
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.AddCommand(chartBarCmd)
	chartCmd.AddCommand(chartPieCmd)
	chartFilters.registerPersistent(chartCmd)
	chartCmd.PersistentFlags().StringVarP(&chartOutput, "output", "o", "", "PNG output path (default <column>_<kind>.png)")
	chartPieCmd.Flags().StringVar(&chartBy, "by", string(dataset.ColIndustry), "dimension to group by")
}
