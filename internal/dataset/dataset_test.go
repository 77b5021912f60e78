package dataset

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivedColumns(t *testing.T) {
	c := Company{ID: "C1", TotalRevenue: 2_000_000, FinancialExpenses: 500_000, Equity: 2_000_000}
	assert.Equal(t, 4.0, c.CoverageRatio())
	assert.Equal(t, 2.0, c.EquityMillions())
	assert.Equal(t, 2.0, c.TotalRevenueMillions())

	v, err := c.Value(ColCoverageRatio)
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)
}

func TestCoverageRatioZeroExpensesIsKept(t *testing.T) {
	pos := Company{TotalRevenue: 10, FinancialExpenses: 0}
	neg := Company{TotalRevenue: -10, FinancialExpenses: 0}
	zero := Company{}
	assert.True(t, math.IsInf(pos.CoverageRatio(), 1))
	assert.True(t, math.IsInf(neg.CoverageRatio(), -1))
	assert.True(t, math.IsNaN(zero.CoverageRatio()))

	b, err := json.Marshal(pos)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	v, ok := m["Financial_Expenses_Coverage_Ratio"]
	require.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, 10.0, m["Total_Revenue"])
}

func TestParseColumn(t *testing.T) {
	c, err := ParseColumn("equity_millions")
	require.NoError(t, err)
	assert.Equal(t, ColEquityMillions, c)

	_, err = ParseColumn("Profit")
	assert.True(t, errors.Is(err, ErrInvalidColumn))
}

func TestValueAndCategoryRejectWrongKind(t *testing.T) {
	c := Company{Industry: "Tech"}
	_, err := c.Value(ColIndustry)
	assert.ErrorIs(t, err, ErrInvalidColumn)
	_, err = c.Category(ColEquity)
	assert.ErrorIs(t, err, ErrInvalidColumn)
	got, err := c.Category(ColIndustry)
	require.NoError(t, err)
	assert.Equal(t, "Tech", got)
}

func TestDatasetIsImmutable(t *testing.T) {
	in := []Company{{ID: "A"}, {ID: "B"}}
	ds := New("mem", in)
	in[0].ID = "mutated"
	assert.Equal(t, "A", ds.At(0).ID)

	recs := ds.Records()
	recs[1].ID = "mutated"
	assert.Equal(t, "B", ds.At(1).ID)

	view := ds.Where(func(c Company) bool { return c.ID == "B" })
	assert.Equal(t, 1, view.Len())
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, ds.ID(), view.ID())
	assert.NotEmpty(t, ds.ID())
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "∞", FormatNumber(math.Inf(1), 2))
	assert.Equal(t, "-∞", FormatNumber(math.Inf(-1), 2))
	assert.Equal(t, "n/a", FormatNumber(math.NaN(), 2))
	assert.Equal(t, "4.00", FormatNumber(4, 2))
}

func TestUnavailableErrorMatchesSentinel(t *testing.T) {
	err := error(&UnavailableError{Source: "x", Err: errors.New("boom")})
	assert.ErrorIs(t, err, ErrDataUnavailable)
	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "x", ue.Source)
	assert.Contains(t, err.Error(), "boom")
}
