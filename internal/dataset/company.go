package dataset

import (
	"fmt"
	"strings"
)

// Column names a field of a company record, using the dataset's header spelling.
type Column string

const (
	ColCompanyID    Column = "Company_ID"
	ColIndustry     Column = "Industry"
	ColCountry      Column = "Country"
	ColCompanySize  Column = "Company_Size"
	ColTotalRevenue Column = "Total_Revenue"
	ColFinExpenses  Column = "Financial_Expenses"
	ColEquity       Column = "Equity"
	ColCurrentRatio Column = "Current_Ratio"
	ColDebtToEquity Column = "Debt_to_Equity_Ratio"

	// Derived columns.
	ColCoverageRatio        Column = "Financial_Expenses_Coverage_Ratio"
	ColEquityMillions       Column = "Equity_Millions"
	ColTotalRevenueMillions Column = "Total_Revenue_Millions"
)

// RequiredColumns is the fixed input schema, in canonical order.
var RequiredColumns = []Column{
	ColCompanyID, ColIndustry, ColCountry, ColCompanySize,
	ColTotalRevenue, ColFinExpenses, ColEquity, ColCurrentRatio, ColDebtToEquity,
}

// Dimensions are the categorical columns usable for filtering and grouping.
var Dimensions = []Column{ColIndustry, ColCountry, ColCompanySize}

// NumericColumns lists source and derived numeric columns.
var NumericColumns = []Column{
	ColTotalRevenue, ColFinExpenses, ColEquity, ColCurrentRatio, ColDebtToEquity,
	ColCoverageRatio, ColEquityMillions, ColTotalRevenueMillions,
}

// IsNumeric reports whether c is a numeric (source or derived) column.
func (c Column) IsNumeric() bool {
	for _, n := range NumericColumns {
		if n == c {
			return true
		}
	}
	return false
}

// IsDimension reports whether c is one of the categorical dimensions.
func (c Column) IsDimension() bool {
	for _, d := range Dimensions {
		if d == c {
			return true
		}
	}
	return false
}

// ParseColumn resolves a column name case-insensitively.
// Unknown names yield ErrInvalidColumn.
func ParseColumn(name string) (Column, error) {
	n := strings.TrimSpace(name)
	all := append(append([]Column{ColCompanyID}, Dimensions...), NumericColumns...)
	for _, c := range all {
		if strings.EqualFold(string(c), n) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidColumn, name)
}

// Company is one row of the dataset. Derived facts are methods so they are
// always consistent with the source fields they are computed from.
type Company struct {
	ID                string
	Industry          string
	Country           string
	Size              string
	TotalRevenue      float64
	FinancialExpenses float64
	Equity            float64
	CurrentRatio      float64
	DebtToEquity      float64
}

// CoverageRatio is Total_Revenue / Financial_Expenses. A zero denominator
// yields +Inf, -Inf or NaN and is intentionally left uncorrected.
func (c Company) CoverageRatio() float64 { return c.TotalRevenue / c.FinancialExpenses }

// EquityMillions is Equity expressed in millions.
func (c Company) EquityMillions() float64 { return c.Equity / 1_000_000 }

// TotalRevenueMillions is Total_Revenue expressed in millions.
func (c Company) TotalRevenueMillions() float64 { return c.TotalRevenue / 1_000_000 }

// Value returns the numeric value of col.
func (c Company) Value(col Column) (float64, error) {
	switch col {
	case ColTotalRevenue:
		return c.TotalRevenue, nil
	case ColFinExpenses:
		return c.FinancialExpenses, nil
	case ColEquity:
		return c.Equity, nil
	case ColCurrentRatio:
		return c.CurrentRatio, nil
	case ColDebtToEquity:
		return c.DebtToEquity, nil
	case ColCoverageRatio:
		return c.CoverageRatio(), nil
	case ColEquityMillions:
		return c.EquityMillions(), nil
	case ColTotalRevenueMillions:
		return c.TotalRevenueMillions(), nil
	}
	return 0, fmt.Errorf("%w: %q is not numeric", ErrInvalidColumn, string(col))
}

// Category returns the value of a categorical dimension.
func (c Company) Category(col Column) (string, error) {
	switch col {
	case ColIndustry:
		return c.Industry, nil
	case ColCountry:
		return c.Country, nil
	case ColCompanySize:
		return c.Size, nil
	}
	return "", fmt.Errorf("%w: %q is not a dimension", ErrInvalidColumn, string(col))
}
