package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/finlens/internal/dataset"
)

// TopN returns up to n records sorted descending by column. Ties keep
// dataset order; NaN sorts after every number.
func TopN(ds *dataset.Dataset, column dataset.Column, n int) ([]dataset.Company, error) {
	sorted, err := SortDesc(ds, column)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []dataset.Company{}, nil
	}
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted, nil
}

// SortDesc returns every record ordered descending by column (stable).
func SortDesc(ds *dataset.Dataset, column dataset.Column) ([]dataset.Company, error) {
	if !column.IsNumeric() {
		return nil, invalidNumeric(column)
	}
	recs := ds.Records()
	if recs == nil {
		recs = []dataset.Company{}
	}
	vals := make([]float64, len(recs))
	for i, c := range recs {
		vals[i], _ = c.Value(column)
	}
	idx := make([]int, len(recs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return descLess(vals[idx[a]], vals[idx[b]])
	})
	out := make([]dataset.Company, len(recs))
	for i, j := range idx {
		out[i] = recs[j]
	}
	return out, nil
}

func descLess(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a > b
}

func invalidNumeric(c dataset.Column) error {
	return fmt.Errorf("%w: %q is not a numeric column", dataset.ErrInvalidColumn, string(c))
}

func invalidDimension(c dataset.Column) error {
	return fmt.Errorf("%w: %q is not a categorical dimension", dataset.ErrInvalidColumn, string(c))
}
