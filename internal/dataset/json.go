package dataset

import (
	"encoding/json"
	"math"
	"strconv"
)

// Number is a float64 that encodes non-finite values as JSON null.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// FormatNumber renders v for tables: ∞, -∞ and n/a for non-finite values,
// otherwise prec decimals.
func FormatNumber(v float64, prec int) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, 1):
		return "∞"
	case math.IsInf(v, -1):
		return "-∞"
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

type companyJSON struct {
	CompanyID            string `json:"Company_ID"`
	Industry             string `json:"Industry"`
	Country              string `json:"Country"`
	CompanySize          string `json:"Company_Size"`
	TotalRevenue         Number `json:"Total_Revenue"`
	FinancialExpenses    Number `json:"Financial_Expenses"`
	Equity               Number `json:"Equity"`
	CurrentRatio         Number `json:"Current_Ratio"`
	DebtToEquity         Number `json:"Debt_to_Equity_Ratio"`
	CoverageRatio        Number `json:"Financial_Expenses_Coverage_Ratio"`
	EquityMillions       Number `json:"Equity_Millions"`
	TotalRevenueMillions Number `json:"Total_Revenue_Millions"`
}

// MarshalJSON emits source and derived columns under their dataset names.
func (c Company) MarshalJSON() ([]byte, error) {
	return json.Marshal(companyJSON{
		CompanyID:            c.ID,
		Industry:             c.Industry,
		Country:              c.Country,
		CompanySize:          c.Size,
		TotalRevenue:         Number(c.TotalRevenue),
		FinancialExpenses:    Number(c.FinancialExpenses),
		Equity:               Number(c.Equity),
		CurrentRatio:         Number(c.CurrentRatio),
		DebtToEquity:         Number(c.DebtToEquity),
		CoverageRatio:        Number(c.CoverageRatio()),
		EquityMillions:       Number(c.EquityMillions()),
		TotalRevenueMillions: Number(c.TotalRevenueMillions()),
	})
}
