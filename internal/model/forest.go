package model

import (
	"math/rand"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Forest averages an ensemble of regression trees. ExtraTrees and RandomForest
// are both Forests; they differ in sampling and split selection.
type Forest struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Bootstrap       bool
	Splitter        Splitter
	RandomState     int64

	trees []*RegressionTree
	width int
}

// ForestOption configures a Forest.
type ForestOption func(*Forest)

func WithNEstimators(n int) ForestOption    { return func(f *Forest) { f.NEstimators = n } }
func WithMaxDepth(d int) ForestOption       { return func(f *Forest) { f.MaxDepth = d } }
func WithMinSamplesLeaf(n int) ForestOption { return func(f *Forest) { f.MinSamplesLeaf = n } }
func WithMaxFeatures(k int) ForestOption    { return func(f *Forest) { f.MaxFeatures = k } }
func WithRandomState(seed int64) ForestOption {
	return func(f *Forest) { f.RandomState = seed }
}

// NewExtraTrees returns an extremely randomized trees regressor: every tree
// sees the whole training set and draws random thresholds.
func NewExtraTrees(opts ...ForestOption) *Forest {
	f := &Forest{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       false,
		Splitter:        SplitRandom,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// NewRandomForest returns a bagging regressor: every tree is grown with best
// splits on a bootstrap sample.
func NewRandomForest(opts ...ForestOption) *Forest {
	f := &Forest{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		Splitter:        SplitBest,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fit grows NEstimators trees in parallel. Tree i is seeded with
// RandomState+i, so results do not depend on scheduling.
func (f *Forest) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(X, y)
	if err != nil {
		return err
	}
	nTrees := f.NEstimators
	if nTrees <= 0 {
		nTrees = 1
	}
	n := len(X)
	trees := make([]*RegressionTree, nTrees)
	wp := pool.New().WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for i := 0; i < nTrees; i++ {
		i := i
		wp.Go(func() {
			seed := f.RandomState + int64(i)
			rnd := rand.New(rand.NewSource(seed))
			sample := make([]int, n)
			for j := range sample {
				if f.Bootstrap {
					sample[j] = rnd.Intn(n)
				} else {
					sample[j] = j
				}
			}
			tree := NewRegressionTree(
				WithTreeMaxDepth(f.MaxDepth),
				WithTreeMinSamplesSplit(f.MinSamplesSplit),
				WithTreeMinSamplesLeaf(f.MinSamplesLeaf),
				WithTreeMaxFeatures(f.MaxFeatures),
				WithSplitter(f.Splitter),
				WithTreeRandomState(seed),
			)
			tree.fitIndices(X, y, sample, p, rnd)
			trees[i] = tree
		})
	}
	wp.Wait()
	f.trees = trees
	f.width = p
	return nil
}

// Predict returns the mean tree prediction for every row of X.
func (f *Forest) Predict(X [][]float64) ([]float64, error) {
	if len(f.trees) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, f.width); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		var s float64
		for _, t := range f.trees {
			s += t.predictOne(x)
		}
		out[i] = s / float64(len(f.trees))
	}
	return out, nil
}
