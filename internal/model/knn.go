package model

import (
	"math"
	"sort"
)

// Weighting selects how neighbour values are combined.
type Weighting string

const (
	WeightUniform  Weighting = "uniform"
	WeightDistance Weighting = "distance"
)

// KNNImputer fills NaN cells from the K nearest rows that have the cell
// present. Distances are nan-euclidean: squared differences over coordinates
// present in both rows, scaled up by total/present coordinates.
type KNNImputer struct {
	K       int
	Weights Weighting
}

// NewKNNImputer returns a distance-weighted imputer with k neighbours.
func NewKNNImputer(k int) *KNNImputer {
	if k <= 0 {
		k = 5
	}
	return &KNNImputer{K: k, Weights: WeightDistance}
}

// Transform returns a filled copy of X. Donor values always come from the
// input, so fills never feed other fills. A cell with no reachable donor gets
// the column mean; a column with no present value stays NaN.
func (m *KNNImputer) Transform(X [][]float64) [][]float64 {
	n := len(X)
	out := make([][]float64, n)
	for i := range X {
		out[i] = append([]float64(nil), X[i]...)
	}
	if n == 0 {
		return out
	}
	p := len(X[0])

	// distances are only needed from rows that have something to fill
	dist := make(map[int][]float64)
	rowDist := func(i int) []float64 {
		if d, ok := dist[i]; ok {
			return d
		}
		d := make([]float64, n)
		for r := 0; r < n; r++ {
			d[r] = nanEuclidean(X[i], X[r])
		}
		dist[i] = d
		return d
	}

	for j := 0; j < p; j++ {
		var donors []int
		var colSum float64
		for r := 0; r < n; r++ {
			if !math.IsNaN(X[r][j]) {
				donors = append(donors, r)
				colSum += X[r][j]
			}
		}
		if len(donors) == 0 || len(donors) == n {
			continue
		}
		colMean := colSum / float64(len(donors))
		for i := 0; i < n; i++ {
			if !math.IsNaN(X[i][j]) {
				continue
			}
			d := rowDist(i)
			nb := make([]neighbour, 0, len(donors))
			for _, r := range donors {
				if math.IsNaN(d[r]) {
					continue
				}
				nb = append(nb, neighbour{d: d[r], v: X[r][j]})
			}
			if len(nb) == 0 {
				out[i][j] = colMean
				continue
			}
			sort.SliceStable(nb, func(a, b int) bool { return nb[a].d < nb[b].d })
			if len(nb) > m.K {
				nb = nb[:m.K]
			}
			out[i][j] = m.combine(nb)
		}
	}
	return out
}

type neighbour struct {
	d float64
	v float64
}

func (m *KNNImputer) combine(nb []neighbour) float64 {
	if m.Weights != WeightDistance {
		var s float64
		for _, x := range nb {
			s += x.v
		}
		return s / float64(len(nb))
	}
	// exact matches take all the weight
	var zs float64
	var zn int
	for _, x := range nb {
		if x.d == 0 {
			zs += x.v
			zn++
		}
	}
	if zn > 0 {
		return zs / float64(zn)
	}
	var num, den float64
	for _, x := range nb {
		w := 1 / x.d
		num += w * x.v
		den += w
	}
	return num / den
}

// nanEuclidean returns NaN when a and b share no present coordinate.
func nanEuclidean(a, b []float64) float64 {
	var sum float64
	present := 0
	for k := range a {
		if math.IsNaN(a[k]) || math.IsNaN(b[k]) {
			continue
		}
		d := a[k] - b[k]
		sum += d * d
		present++
	}
	if present == 0 {
		return math.NaN()
	}
	return math.Sqrt(float64(len(a)) / float64(present) * sum)
}
