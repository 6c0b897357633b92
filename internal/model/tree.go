package model

import (
	"math"
	"math/rand"
	"sort"
)

// Splitter selects how a tree picks thresholds.
type Splitter string

const (
	// SplitBest scans every midpoint between distinct values (CART).
	SplitBest Splitter = "best"
	// SplitRandom draws one uniform threshold per candidate feature (extremely randomized trees).
	SplitRandom Splitter = "random"
)

// RegressionTree is a CART regressor that grows splits by variance reduction.
type RegressionTree struct {
	MaxDepth        int // 0 => unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 => all features
	Splitter        Splitter
	RandomState     int64

	root  *rtNode
	width int
}

type rtNode struct {
	leaf      bool
	value     float64
	n         int
	feature   int
	threshold float64 // x <= threshold => left
	left      *rtNode
	right     *rtNode
}

// TreeOption configures a RegressionTree.
type TreeOption func(*RegressionTree)

func WithTreeMaxDepth(d int) TreeOption        { return func(t *RegressionTree) { t.MaxDepth = d } }
func WithTreeMinSamplesLeaf(n int) TreeOption  { return func(t *RegressionTree) { t.MinSamplesLeaf = n } }
func WithTreeMinSamplesSplit(n int) TreeOption { return func(t *RegressionTree) { t.MinSamplesSplit = n } }
func WithTreeMaxFeatures(k int) TreeOption     { return func(t *RegressionTree) { t.MaxFeatures = k } }
func WithSplitter(s Splitter) TreeOption       { return func(t *RegressionTree) { t.Splitter = s } }
func WithTreeRandomState(seed int64) TreeOption {
	return func(t *RegressionTree) { t.RandomState = seed }
}

// NewRegressionTree returns a fully grown best-split tree unless overridden.
func NewRegressionTree(opts ...TreeOption) *RegressionTree {
	t := &RegressionTree{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Splitter:        SplitBest,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Fit trains the tree on every row of X.
func (t *RegressionTree) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(X, y)
	if err != nil {
		return err
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.fitIndices(X, y, idx, p, rand.New(rand.NewSource(t.RandomState)))
	return nil
}

// fitIndices grows the tree on the rows named by idx; duplicates are allowed
// so bootstrap samples can be passed without copying X.
func (t *RegressionTree) fitIndices(X [][]float64, y []float64, idx []int, p int, rnd *rand.Rand) {
	t.width = p
	t.root = t.build(X, y, idx, 0, rnd)
}

// Predict returns one prediction per row of X.
func (t *RegressionTree) Predict(X [][]float64) ([]float64, error) {
	if t.root == nil {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, t.width); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i := range X {
		out[i] = t.predictOne(X[i])
	}
	return out, nil
}

func (t *RegressionTree) predictOne(x []float64) float64 {
	node := t.root
	for !node.leaf {
		v := x[node.feature]
		switch {
		case math.IsNaN(v):
			// missing: follow the heavier branch
			if node.left.n >= node.right.n {
				node = node.left
			} else {
				node = node.right
			}
		case v <= node.threshold:
			node = node.left
		default:
			node = node.right
		}
	}
	return node.value
}

type split struct {
	feature   int
	threshold float64
	sse       float64
	left      []int
	right     []int
}

func (t *RegressionTree) build(X [][]float64, y []float64, idx []int, depth int, rnd *rand.Rand) *rtNode {
	n := len(idx)
	var sum, sumSq float64
	for _, i := range idx {
		sum += y[i]
		sumSq += y[i] * y[i]
	}
	node := &rtNode{leaf: true, n: n, value: sum / float64(n)}
	parentSSE := sumSq - sum*sum/float64(n)

	minSplit := t.MinSamplesSplit
	if minSplit < 2 {
		minSplit = 2
	}
	if n < minSplit || (t.MaxDepth > 0 && depth >= t.MaxDepth) || parentSSE <= 1e-12*math.Max(1, sumSq) {
		return node
	}

	feats := make([]int, t.width)
	for j := range feats {
		feats[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < t.width {
		rnd.Shuffle(len(feats), func(a, b int) { feats[a], feats[b] = feats[b], feats[a] })
		feats = feats[:t.MaxFeatures]
	}

	best := split{feature: -1, sse: parentSSE}
	for _, f := range feats {
		var s split
		if t.Splitter == SplitRandom {
			s = t.randomSplit(X, y, idx, f, rnd)
		} else {
			s = t.bestSplit(X, y, idx, f)
		}
		if s.feature >= 0 && s.sse < best.sse {
			best = s
		}
	}
	if best.feature < 0 {
		return node
	}
	if best.left == nil {
		for _, i := range idx {
			if X[i][best.feature] <= best.threshold {
				best.left = append(best.left, i)
			} else {
				best.right = append(best.right, i)
			}
		}
	}
	node.leaf = false
	node.feature = best.feature
	node.threshold = best.threshold
	node.left = t.build(X, y, best.left, depth+1, rnd)
	node.right = t.build(X, y, best.right, depth+1, rnd)
	return node
}

// bestSplit scans sorted values of feature f with running sums.
func (t *RegressionTree) bestSplit(X [][]float64, y []float64, idx []int, f int) split {
	res := split{feature: -1, sse: math.Inf(1)}
	order := append([]int(nil), idx...)
	sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

	n := len(order)
	var total, totalSq float64
	for _, i := range order {
		total += y[i]
		totalSq += y[i] * y[i]
	}
	minLeaf := max(t.MinSamplesLeaf, 1)
	var lSum, lSq float64
	for s := 1; s < n; s++ {
		yi := y[order[s-1]]
		lSum += yi
		lSq += yi * yi
		if s < minLeaf || n-s < minLeaf {
			continue
		}
		lo, hi := X[order[s-1]][f], X[order[s]][f]
		if lo == hi {
			continue
		}
		rSum, rSq := total-lSum, totalSq-lSq
		sse := (lSq - lSum*lSum/float64(s)) + (rSq - rSum*rSum/float64(n-s))
		if sse < res.sse {
			res.feature = f
			res.sse = sse
			res.threshold = (lo + hi) / 2
			res.left = nil
			res.right = nil
		}
	}
	return res
}

// randomSplit draws one threshold uniformly between the feature's min and max.
func (t *RegressionTree) randomSplit(X [][]float64, y []float64, idx []int, f int, rnd *rand.Rand) split {
	res := split{feature: -1, sse: math.Inf(1)}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, i := range idx {
		v := X[i][f]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if !(hi > lo) {
		return res
	}
	thr := lo + rnd.Float64()*(hi-lo)
	if thr >= hi {
		thr = lo
	}
	var left, right []int
	var lSum, lSq, rSum, rSq float64
	for _, i := range idx {
		if X[i][f] <= thr {
			left = append(left, i)
			lSum += y[i]
			lSq += y[i] * y[i]
		} else {
			right = append(right, i)
			rSum += y[i]
			rSq += y[i] * y[i]
		}
	}
	minLeaf := max(t.MinSamplesLeaf, 1)
	if len(left) < minLeaf || len(right) < minLeaf {
		return res
	}
	res.feature = f
	res.threshold = thr
	res.sse = (lSq - lSum*lSum/float64(len(left))) + (rSq - rSum*rSum/float64(len(right)))
	res.left = left
	res.right = right
	return res
}
