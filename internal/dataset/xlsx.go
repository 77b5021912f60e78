package dataset

import (
	"fmt"
	"io"
	"math"
	"path"
	"strconv"

	"github.com/xuri/excelize/v2"
)

type xlsxDecoder struct{}

func (xlsxDecoder) CanDecode(name string) bool { return path.Ext(name) == ".xlsx" }

// Decode reads the first worksheet; row 1 is the header.
func (xlsxDecoder) Decode(r io.Reader) ([]Company, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty: no header row", sheets[0])
	}
	return parseTable(rows[0], sliceRows(rows[1:]))
}

const xlsxSheet = "Companies"

// WriteXLSX writes records with derived columns to a single worksheet.
// Non-finite values are stored as text since the format has no encoding for them.
func WriteXLSX(w io.Writer, records []Company) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]any, len(ExportColumns))
	for i, c := range ExportColumns {
		header[i] = string(c)
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, c := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			c.ID, c.Industry, c.Country, c.Size,
			xlsxNum(c.TotalRevenue), xlsxNum(c.FinancialExpenses), xlsxNum(c.Equity),
			xlsxNum(c.CurrentRatio), xlsxNum(c.DebtToEquity),
			xlsxNum(c.CoverageRatio()), xlsxNum(c.EquityMillions()), xlsxNum(c.TotalRevenueMillions()),
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func xlsxNum(v float64) any {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return v
}
