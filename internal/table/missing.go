package table

import "sort"

// ColumnMissing is one entry of a missingness report.
type ColumnMissing struct {
	Name    string  `yaml:"name"`
	Missing int     `yaml:"missing"`
	Ratio   float64 `yaml:"ratio"`
}

// Missingness reports the absent count and ratio of every column, in table order.
func Missingness(t *Table) []ColumnMissing {
	out := make([]ColumnMissing, 0, t.Cols())
	for _, c := range t.cols {
		m := c.Missing()
		ratio := 0.0
		if t.rows > 0 {
			ratio = float64(m) / float64(t.rows)
		}
		out = append(out, ColumnMissing{Name: c.Name, Missing: m, Ratio: ratio})
	}
	return out
}

// ProcessingOrder lists columns with at least one absent cell, least missing
// first. Ties keep table order.
func ProcessingOrder(t *Table) []string {
	rep := Missingness(t)
	cand := make([]ColumnMissing, 0, len(rep))
	for _, m := range rep {
		if m.Ratio > 0 {
			cand = append(cand, m)
		}
	}
	sort.SliceStable(cand, func(i, j int) bool { return cand[i].Ratio < cand[j].Ratio })
	out := make([]string, len(cand))
	for i, m := range cand {
		out[i] = m.Name
	}
	return out
}
