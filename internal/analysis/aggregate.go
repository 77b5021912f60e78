package analysis

import (
	"github.com/KaramelBytes/finlens/internal/dataset"
)

// GroupSum is the total of a numeric column over one group.
type GroupSum struct {
	Key   string         `json:"key"`
	Sum   dataset.Number `json:"sum"`
	Count int            `json:"count"`
}

// SumBy totals value per distinct groupKey. Groups appear in the order their
// key is first seen in ds, and only keys present in ds produce a group.
func SumBy(ds *dataset.Dataset, groupKey, value dataset.Column) ([]GroupSum, error) {
	if !groupKey.IsDimension() {
		return nil, invalidDimension(groupKey)
	}
	if !value.IsNumeric() {
		return nil, invalidNumeric(value)
	}
	pos := make(map[string]int)
	out := []GroupSum{}
	for i := 0; i < ds.Len(); i++ {
		c := ds.At(i)
		k, _ := c.Category(groupKey)
		v, _ := c.Value(value)
		j, ok := pos[k]
		if !ok {
			j = len(out)
			pos[k] = j
			out = append(out, GroupSum{Key: k})
		}
		out[j].Sum += dataset.Number(v)
		out[j].Count++
	}
	return out, nil
}

// Sums returns groups as a key to sum mapping.
func Sums(groups []GroupSum) map[string]float64 {
	m := make(map[string]float64, len(groups))
	for _, g := range groups {
		m[g.Key] = float64(g.Sum)
	}
	return m
}

// Total adds the sums of all groups.
func Total(groups []GroupSum) float64 {
	var t float64
	for _, g := range groups {
		t += float64(g.Sum)
	}
	return t
}
