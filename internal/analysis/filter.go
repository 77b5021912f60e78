package analysis

import (
	"strings"

	"github.com/KaramelBytes/finlens/internal/dataset"
)

// Predicates holds the allowed values per dimension. A nil or empty slice
// places no constraint on that dimension.
type Predicates struct {
	Industry    []string `json:"industry,omitempty"`
	Country     []string `json:"country,omitempty"`
	CompanySize []string `json:"size,omitempty"`
}

// For returns the allowed values for dim.
func (p Predicates) For(dim dataset.Column) []string {
	switch dim {
	case dataset.ColIndustry:
		return p.Industry
	case dataset.ColCountry:
		return p.Country
	case dataset.ColCompanySize:
		return p.CompanySize
	}
	return nil
}

// NewPredicates builds predicates from raw flag or query values. Each value may
// hold several comma-separated entries; blanks are dropped.
func NewPredicates(industry, country, size []string) Predicates {
	return Predicates{
		Industry:    SplitValues(industry),
		Country:     SplitValues(country),
		CompanySize: SplitValues(size),
	}
}

// SplitValues flattens comma-separated entries, trimming blanks.
func SplitValues(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, v := range strings.Split(r, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// IsEmpty reports whether no dimension is constrained.
func (p Predicates) IsEmpty() bool {
	return len(p.Industry) == 0 && len(p.Country) == 0 && len(p.CompanySize) == 0
}

// Filter keeps records matching every constrained dimension; within a
// dimension any listed value matches. Matching is exact.
func Filter(ds *dataset.Dataset, p Predicates) *dataset.Dataset {
	out := ds
	for _, dim := range dataset.Dimensions {
		out = FilterDimension(out, dim, p.For(dim))
	}
	return out
}

// FilterDimension applies a single dimension's predicate. Empty values or a
// non-categorical dim return ds unchanged.
func FilterDimension(ds *dataset.Dataset, dim dataset.Column, values []string) *dataset.Dataset {
	if len(values) == 0 || !dim.IsDimension() {
		return ds
	}
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	return ds.Where(func(c dataset.Company) bool {
		v, _ := c.Category(dim)
		_, ok := allowed[v]
		return ok
	})
}

// Distinct lists the values of dim in first-seen order.
func Distinct(ds *dataset.Dataset, dim dataset.Column) ([]string, error) {
	if !dim.IsDimension() {
		return nil, invalidDimension(dim)
	}
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < ds.Len(); i++ {
		v, _ := ds.At(i).Category(dim)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}
