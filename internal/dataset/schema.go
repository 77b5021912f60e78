package dataset

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// headerIndex maps each required column to its position in header.
// Extra columns are ignored; matching is exact after trimming whitespace
// and a UTF-8 BOM on the first cell.
func headerIndex(header []string) (map[Column]int, error) {
	idx := make(map[Column]int, len(RequiredColumns))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		for _, c := range RequiredColumns {
			if string(c) == name {
				if _, dup := idx[c]; !dup {
					idx[c] = i
				}
			}
		}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, string(c))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// rowFunc yields the next row, or io.EOF when exhausted.
type rowFunc func() ([]string, error)

// sliceRows adapts an in-memory table to a rowFunc.
func sliceRows(rows [][]string) rowFunc {
	i := 0
	return func() ([]string, error) {
		if i >= len(rows) {
			return nil, io.EOF
		}
		r := rows[i]
		i++
		return r, nil
	}
}

// parseTable validates header once and converts every following row.
// Row numbers in errors are 1-based data rows (the header is row 0).
func parseTable(header []string, next rowFunc) ([]Company, error) {
	idx, err := headerIndex(header)
	if err != nil {
		return nil, err
	}
	var out []Company
	seen := make(map[string]int)
	for row := 1; ; row++ {
		rec, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if isBlank(rec) {
			continue
		}
		c, err := companyFromRow(rec, idx, row)
		if err != nil {
			return nil, err
		}
		if err := checkRecord(seen, c, row); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func companyFromRow(rec []string, idx map[Column]int, row int) (Company, error) {
	cell := func(c Column) (string, error) {
		i := idx[c]
		if i >= len(rec) {
			return "", fmt.Errorf("row %d: short row (%d cells), column %s absent", row, len(rec), c)
		}
		return strings.TrimSpace(rec[i]), nil
	}
	num := func(c Column) (float64, error) {
		s, err := cell(c)
		if err != nil {
			return 0, err
		}
		v, err := parseNumeric(s)
		if err != nil {
			return 0, fmt.Errorf("row %d, column %s: %w", row, c, err)
		}
		return v, nil
	}

	var c Company
	var err error
	if c.ID, err = cell(ColCompanyID); err != nil {
		return c, err
	}
	if c.Industry, err = cell(ColIndustry); err != nil {
		return c, err
	}
	if c.Country, err = cell(ColCountry); err != nil {
		return c, err
	}
	if c.Size, err = cell(ColCompanySize); err != nil {
		return c, err
	}
	if c.TotalRevenue, err = num(ColTotalRevenue); err != nil {
		return c, err
	}
	if c.FinancialExpenses, err = num(ColFinExpenses); err != nil {
		return c, err
	}
	if c.Equity, err = num(ColEquity); err != nil {
		return c, err
	}
	if c.CurrentRatio, err = num(ColCurrentRatio); err != nil {
		return c, err
	}
	if c.DebtToEquity, err = num(ColDebtToEquity); err != nil {
		return c, err
	}
	return c, nil
}

func parseNumeric(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("empty numeric cell")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// checkRecord enforces the per-row invariants every decoder shares:
// Company_ID is non-empty and unique, and source numerics are finite.
// seen maps IDs to the row they first appeared on.
func checkRecord(seen map[string]int, c Company, row int) error {
	if c.ID == "" {
		return fmt.Errorf("row %d: empty %s", row, ColCompanyID)
	}
	if first, dup := seen[c.ID]; dup {
		return fmt.Errorf("row %d: duplicate %s %q (first seen on row %d)", row, ColCompanyID, c.ID, first)
	}
	seen[c.ID] = row
	for _, f := range []struct {
		col Column
		v   float64
	}{
		{ColTotalRevenue, c.TotalRevenue},
		{ColFinExpenses, c.FinancialExpenses},
		{ColEquity, c.Equity},
		{ColCurrentRatio, c.CurrentRatio},
		{ColDebtToEquity, c.DebtToEquity},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("row %d, column %s: non-finite value %v", row, f.col, f.v)
		}
	}
	return nil
}

func isBlank(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// sourceRow renders c in RequiredColumns order followed by the derived columns.
func sourceRow(c Company) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		c.ID, c.Industry, c.Country, c.Size,
		f(c.TotalRevenue), f(c.FinancialExpenses), f(c.Equity), f(c.CurrentRatio), f(c.DebtToEquity),
		f(c.CoverageRatio()), f(c.EquityMillions()), f(c.TotalRevenueMillions()),
	}
}

// ExportColumns is the header written by every exporter.
var ExportColumns = append(append([]Column{}, RequiredColumns...),
	ColCoverageRatio, ColEquityMillions, ColTotalRevenueMillions)
