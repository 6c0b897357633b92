package table

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// RobustZThreshold is the |z| above which inspect counts a value as a likely
// outlier, using the MAD-based z-score 0.6745*(x-median)/MAD.
const RobustZThreshold = 3.5

// Markdown renders a compact dataset summary: shape, per-column kind and the
// missing ratio table shown before choosing an imputation method.
func Markdown(name string, t *Table) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", t.Rows()))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", t.Cols()))

	b.WriteString("[SCHEMA]\n")
	for _, c := range t.cols {
		nonNull := t.Rows() - c.Missing()
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d)", safeVal(c.Name), c.Kind, nonNull))
		switch c.Kind {
		case KindNumeric:
			if lo, hi, ok := bounds(c.Values); ok {
				b.WriteString(fmt.Sprintf(" — min %.4g, max %.4g", lo, hi))
			}
			if n, maxZ, ok := robustOutliers(c.Values, RobustZThreshold); ok {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", n, RobustZThreshold))
				if maxZ > 0 {
					b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", maxZ))
				}
			}
		case KindCategorical:
			if len(c.Levels) > 0 {
				shown := c.Levels
				if len(shown) > 8 {
					shown = shown[:8]
				}
				vals := make([]string, len(shown))
				for i, l := range shown {
					vals[i] = safeVal(l)
				}
				b.WriteString(" — levels: " + strings.Join(vals, ", "))
				if len(c.Levels) > len(shown) {
					b.WriteString(fmt.Sprintf("; unique=%d", len(c.Levels)))
				}
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\n[MISSING RATIO]\n")
	b.WriteString("| Column | Missing Ratio |\n")
	b.WriteString("| --- | --- |\n")
	for _, m := range Missingness(t) {
		b.WriteString(fmt.Sprintf("| %s | %.4f |\n", safeVal(m.Name), m.Ratio))
	}
	if order := ProcessingOrder(t); len(order) > 0 {
		b.WriteString("\n[NOTES]\n")
		b.WriteString("- MatImpute fill order: " + strings.Join(order, " → ") + "\n")
	}
	return b.String()
}

func bounds(vals []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if IsAbsent(v) {
			continue
		}
		ok = true
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, ok
}

// robustOutliers counts present values whose MAD z-score exceeds thr. It needs
// at least 8 values and a non-zero MAD.
func robustOutliers(vals []float64, thr float64) (count int, maxAbsZ float64, ok bool) {
	present := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !IsAbsent(v) {
			present = append(present, v)
		}
	}
	if len(present) < 8 {
		return 0, 0, false
	}
	median, mad := medianMAD(present)
	if mad == 0 {
		return 0, 0, false
	}
	for _, v := range present {
		z := math.Abs(0.6745 * (v - median) / mad)
		if z > maxAbsZ {
			maxAbsZ = z
		}
		if z > thr {
			count++
		}
	}
	return count, maxAbsZ, true
}

func medianMAD(vals []float64) (median, mad float64) {
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	median = midpoint(cp)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	return median, midpoint(dev)
}

// midpoint is the median of sorted values.
func midpoint(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
