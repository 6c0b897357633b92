package cleaning

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tidycsv/internal/table"
)

// FillMean replaces absent cells with the mean of the column's present values.
// Categorical columns, here and in FillMedian, take their most frequent level.
func FillMean(t *table.Table) (*table.Table, error) {
	return fillColumnwise(t, func(vals []float64) float64 { return stat.Mean(vals, nil) })
}

// FillMedian replaces absent cells with the median of the column's present
// values; even counts average the two middle values.
func FillMedian(t *table.Table) (*table.Table, error) {
	return fillColumnwise(t, median)
}

func fillColumnwise(t *table.Table, center func([]float64) float64) (*table.Table, error) {
	out := t.Clone()
	for j := 0; j < out.Cols(); j++ {
		c := out.ColumnAt(j)
		missing := c.Missing()
		if missing == 0 {
			continue
		}
		if missing == out.Rows() {
			return nil, &InsufficientDataError{Column: c.Name, Reason: "column has no values to fill from"}
		}
		present := make([]float64, 0, out.Rows()-missing)
		for _, v := range c.Values {
			if !table.IsAbsent(v) {
				present = append(present, v)
			}
		}
		var fill float64
		if c.Kind == table.KindCategorical {
			fill = mostFrequent(present)
		} else {
			fill = center(present)
		}
		for r, v := range c.Values {
			if table.IsAbsent(v) {
				c.Values[r] = fill
			}
		}
	}
	return out, nil
}

func median(vals []float64) float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// mostFrequent returns the commonest code; ties go to the lowest code, which is
// the level seen first on load.
func mostFrequent(codes []float64) float64 {
	counts := make(map[float64]int, len(codes))
	for _, c := range codes {
		counts[c]++
	}
	best, bestN := 0.0, -1
	for c, n := range counts {
		if n > bestN || (n == bestN && c < best) {
			best, bestN = c, n
		}
	}
	return best
}
