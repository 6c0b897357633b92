package cleaning

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tidycsv/internal/model"
	"github.com/KaramelBytes/tidycsv/internal/table"
)

var nan = math.NaN()

// recorder predicts the training mean and remembers every matrix it saw.
type recorder struct {
	mean   float64
	fitX   [][]float64
	predX  [][]float64
	fitted bool
}

func (r *recorder) Fit(X [][]float64, y []float64) error {
	r.fitX = X
	var s float64
	for _, v := range y {
		s += v
	}
	r.mean = s / float64(len(y))
	r.fitted = true
	return nil
}

func (r *recorder) Predict(X [][]float64) ([]float64, error) {
	if !r.fitted {
		return nil, model.ErrNotFitted
	}
	r.predX = X
	out := make([]float64, len(X))
	for i := range out {
		out[i] = r.mean
	}
	return out, nil
}

func smallForest(seed int64) model.Factory {
	return func() model.Regressor {
		return model.NewExtraTrees(model.WithNEstimators(15), model.WithRandomState(seed))
	}
}

// relatedTable builds columns that are noisy functions of two full columns and
// punches the given number of holes into a and b.
func relatedTable(t *testing.T, rows, missA, missB int, seed int64) *table.Table {
	t.Helper()
	rnd := rand.New(rand.NewSource(seed))
	x1 := make([]float64, rows)
	x2 := make([]float64, rows)
	a := make([]float64, rows)
	b := make([]float64, rows)
	for i := 0; i < rows; i++ {
		x1[i] = rnd.Float64() * 10
		x2[i] = rnd.Float64() * 10
		a[i] = 2*x1[i] + rnd.NormFloat64()*0.1
		b[i] = x1[i] - x2[i] + rnd.NormFloat64()*0.1
	}
	for _, i := range rnd.Perm(rows)[:missA] {
		a[i] = nan
	}
	for _, i := range rnd.Perm(rows)[:missB] {
		b[i] = nan
	}
	tb, err := table.New([]string{"x1", "a", "x2", "b"}, [][]float64{x1, a, x2, b})
	require.NoError(t, err)
	return tb
}

func TestMatImputeFillsEverythingAndLeavesCompleteColumnsAlone(t *testing.T) {
	src := relatedTable(t, 60, 6, 18, 11)
	before := src.Clone()

	imp := NewMatImputer(ImputeOptions{NewModel: smallForest(3)})
	out, err := imp.Impute(context.Background(), src)
	require.NoError(t, err)

	assert.False(t, out.HasAbsent())
	assert.Equal(t, src.Names(), out.Names())
	for _, name := range []string{"x1", "x2"} {
		got, _ := out.Column(name)
		want, _ := src.Column(name)
		assert.Equal(t, want.Values, got.Values, name)
	}
	for _, name := range []string{"a", "b"} {
		got, _ := out.Column(name)
		orig, _ := before.Column(name)
		for r, v := range orig.Values {
			if !table.IsAbsent(v) {
				assert.Equal(t, v, got.Values[r], "%s[%d] was present and must not change", name, r)
			}
		}
	}
	// the caller's table keeps its gaps
	assert.True(t, src.HasAbsent())

	// fills should track the generating relation a = 2*x1
	a, _ := out.Column("a")
	x1, _ := out.Column("x1")
	orig, _ := before.Column("a")
	for r, v := range orig.Values {
		if table.IsAbsent(v) {
			assert.InDelta(t, 2*x1.Values[r], a.Values[r], 3.0)
		}
	}
}

func TestMatImputeLeastMissingColumnFeedsLaterColumns(t *testing.T) {
	const rows = 12
	x := make([]float64, rows)
	a := make([]float64, rows)
	b := make([]float64, rows)
	for r := 0; r < rows; r++ {
		x[r] = float64(r)
		a[r] = 10 * float64(r)
		b[r] = float64(r * r)
	}
	a[0], a[1] = nan, nan
	for r := 1; r <= 5; r++ {
		b[r] = nan
	}
	// b is listed first but is more damaged, so a must be filled first
	src, err := table.New([]string{"x", "b", "a"}, [][]float64{x, b, a})
	require.NoError(t, err)

	var order []string
	var models []*recorder
	imp := NewMatImputer(ImputeOptions{
		NewModel: func() model.Regressor {
			r := &recorder{}
			models = append(models, r)
			return r
		},
		Progress: func(col string, _, _ int) { order = append(order, col) },
	})
	out, err := imp.Impute(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, order)
	require.Len(t, models, 2)

	// a is filled with the mean of its 10 present values
	aOut, _ := out.Column("a")
	assert.Equal(t, 65.0, aOut.Values[1])

	// b's model sees a's model-filled value at row 1, not the KNN estimate
	// features for b are [x, a]; row 1 is the first row to predict
	bModel := models[1]
	require.NotEmpty(t, bModel.predX)
	assert.Equal(t, 65.0, bModel.predX[0][1])

	helper, err := FilledExceptColumn(src, "b", model.NewKNNImputer(5))
	require.NoError(t, err)
	knnA, _ := helper.Column("a")
	assert.Greater(t, math.Abs(knnA.Values[1]-65.0), 10.0, "ordering must change what b is predicted from")

	for _, row := range bModel.fitX {
		for _, v := range row {
			assert.False(t, math.IsNaN(v))
		}
	}
}

func TestFilledExceptColumnKeepsTargetGaps(t *testing.T) {
	src := relatedTable(t, 30, 5, 5, 2)
	helper, err := FilledExceptColumn(src, "b", model.NewKNNImputer(5))
	require.NoError(t, err)

	a, _ := helper.Column("a")
	assert.Equal(t, 0, a.Missing())
	b, _ := helper.Column("b")
	orig, _ := src.Column("b")
	assert.Equal(t, orig.Missing(), b.Missing())

	_, err = FilledExceptColumn(src, "nope", model.NewKNNImputer(5))
	assert.Error(t, err)
}

func TestMatImputeEmptyColumnIsInsufficientData(t *testing.T) {
	src, err := table.New(
		[]string{"x", "y", "empty"},
		[][]float64{{1, 2, 3, 4}, {1, nan, 3, 4}, {nan, nan, nan, nan}},
	)
	require.NoError(t, err)

	_, err = NewMatImputer(ImputeOptions{NewModel: smallForest(1)}).Impute(context.Background(), src)
	var ide *InsufficientDataError
	require.True(t, errors.As(err, &ide), "got %v", err)
	assert.Equal(t, "empty", ide.Column)
}

func TestMatImputeHonoursCancellation(t *testing.T) {
	src := relatedTable(t, 20, 2, 2, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMatImputer(ImputeOptions{NewModel: smallForest(1)}).Impute(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFillMeanAndMedian(t *testing.T) {
	src, err := table.New(
		[]string{"a", "b"},
		[][]float64{{1, nan, 2, 9}, {5, 6, 7, 8}},
	)
	require.NoError(t, err)

	mean, err := FillMean(src)
	require.NoError(t, err)
	a, _ := mean.Column("a")
	assert.Equal(t, []float64{1, 4, 2, 9}, a.Values)

	med, err := FillMedian(src)
	require.NoError(t, err)
	a, _ = med.Column("a")
	assert.Equal(t, []float64{1, 2, 2, 9}, a.Values)
	b, _ := med.Column("b")
	assert.Equal(t, []float64{5, 6, 7, 8}, b.Values)

	empty, err := table.New([]string{"a"}, [][]float64{{nan, nan}})
	require.NoError(t, err)
	_, err = FillMedian(empty)
	var ide *InsufficientDataError
	assert.ErrorAs(t, err, &ide)
}

func TestFillMeanUsesMostFrequentLevelForCategoricals(t *testing.T) {
	src, err := table.FromColumns(
		table.Column{Name: "size", Kind: table.KindCategorical, Levels: []string{"S", "M", "XL"}, Values: []float64{0, 2, 2, nan, 0, 2}},
		table.Column{Name: "tie", Kind: table.KindCategorical, Levels: []string{"a", "b"}, Values: []float64{1, 0, nan, 1, 0, nan}},
		table.Column{Name: "n", Values: []float64{1, 2, 3, 4, 5, nan}},
	)
	require.NoError(t, err)

	for name, fill := range map[string]func(*table.Table) (*table.Table, error){"mean": FillMean, "median": FillMedian} {
		t.Run(name, func(t *testing.T) {
			out, err := fill(src)
			require.NoError(t, err)
			size, _ := out.Column("size")
			// the mean of the codes would round to M, a level no row has
			assert.Equal(t, "XL", size.Label(3))
			tie, _ := out.Column("tie")
			assert.Equal(t, "a", tie.Label(2))
			assert.Equal(t, "a", tie.Label(5))
			n, _ := out.Column("n")
			assert.Equal(t, 3.0, n.Values[5])
		})
	}
}
