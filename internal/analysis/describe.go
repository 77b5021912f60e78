package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/finlens/internal/dataset"
)

// DefaultOutlierThreshold is the robust |z| above which a value counts as an outlier.
const DefaultOutlierThreshold = 3.5

// minOutlierSample is the smallest finite sample scored for outliers.
const minOutlierSample = 8

// ColumnStats summarises one numeric column over a view. Non-finite values
// are counted but excluded from every statistic.
type ColumnStats struct {
	Column    dataset.Column `json:"column"`
	Count     int            `json:"count"`
	NonFinite int            `json:"non_finite"`
	Min       dataset.Number `json:"min"`
	Max       dataset.Number `json:"max"`
	Mean      dataset.Number `json:"mean"`
	Std       dataset.Number `json:"std"`
	Median    dataset.Number `json:"median"`
	// Outliers counts values whose robust z-score (MAD based) exceeds
	// Threshold. It stays zero below eight finite values or when MAD is 0.
	Outliers  int            `json:"outliers"`
	MaxAbsZ   dataset.Number `json:"max_abs_z"`
	Threshold float64        `json:"threshold"`
}

// Describe computes ColumnStats for each numeric column in cols, or for every
// numeric column when cols is empty. threshold <= 0 selects the default.
func Describe(ds *dataset.Dataset, cols []dataset.Column, threshold float64) ([]ColumnStats, error) {
	if len(cols) == 0 {
		cols = dataset.NumericColumns
	}
	if threshold <= 0 {
		threshold = DefaultOutlierThreshold
	}
	out := make([]ColumnStats, 0, len(cols))
	for _, col := range cols {
		if !col.IsNumeric() {
			return nil, invalidNumeric(col)
		}
		out = append(out, describeColumn(ds, col, threshold))
	}
	return out, nil
}

func describeColumn(ds *dataset.Dataset, col dataset.Column, threshold float64) ColumnStats {
	s := ColumnStats{Column: col, Threshold: threshold}
	vals := make([]float64, 0, ds.Len())
	var mean, m2 float64
	for i := 0; i < ds.Len(); i++ {
		v, _ := ds.At(i).Value(col)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			s.NonFinite++
			continue
		}
		vals = append(vals, v)
		// Welford's online update
		n := float64(len(vals))
		d := v - mean
		mean += d / n
		m2 += d * (v - mean)
	}
	s.Count = len(vals)
	if s.Count == 0 {
		nan := dataset.Number(math.NaN())
		s.Min, s.Max, s.Mean, s.Std, s.Median = nan, nan, nan, nan, nan
		return s
	}
	sort.Float64s(vals)
	s.Min = dataset.Number(vals[0])
	s.Max = dataset.Number(vals[len(vals)-1])
	s.Mean = dataset.Number(mean)
	if s.Count > 1 {
		s.Std = dataset.Number(math.Sqrt(m2 / float64(s.Count-1)))
	}
	median, mad := medianMAD(vals)
	s.Median = dataset.Number(median)
	if s.Count >= minOutlierSample && mad > 0 {
		for _, v := range vals {
			az := math.Abs(0.6745 * (v - median) / mad)
			if az > threshold {
				s.Outliers++
			}
			if az > float64(s.MaxAbsZ) {
				s.MaxAbsZ = dataset.Number(az)
			}
		}
	}
	return s
}

// medianMAD returns the median and the median absolute deviation of sorted.
func medianMAD(sorted []float64) (median, mad float64) {
	if len(sorted) == 0 {
		return 0, 0
	}
	median = quantile(sorted, 0.5)
	dev := make([]float64, len(sorted))
	for i, v := range sorted {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	return median, quantile(dev, 0.5)
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo, hi := int(math.Floor(pos)), int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// StatsMarkdown renders stats as a compact table.
func StatsMarkdown(stats []ColumnStats) string {
	var b strings.Builder
	b.WriteString("| Column | Count | Min | Max | Mean | Std | Median | Outliers |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, s := range stats {
		count := fmt.Sprintf("%d", s.Count)
		if s.NonFinite > 0 {
			count += fmt.Sprintf(" (+%d non-finite)", s.NonFinite)
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %d |\n",
			s.Column, count,
			dataset.FormatNumber(float64(s.Min), 2),
			dataset.FormatNumber(float64(s.Max), 2),
			dataset.FormatNumber(float64(s.Mean), 2),
			dataset.FormatNumber(float64(s.Std), 2),
			dataset.FormatNumber(float64(s.Median), 2),
			s.Outliers))
	}
	return b.String()
}
