package cleaning

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tidycsv/internal/logging"
	"github.com/KaramelBytes/tidycsv/internal/model"
	"github.com/KaramelBytes/tidycsv/internal/table"
)

const (
	// StdResidualCutoff flags rows with |standardized residual| at or above it.
	StdResidualCutoff = 1.7
	// LeverageCutoff flags remaining rows whose hat-matrix diagonal exceeds it.
	LeverageCutoff = 0.2

	// rankTolerance is the smallest |Rᵢᵢ|, relative to ‖X‖_F, still counted
	// as full rank.
	rankTolerance = 1e-12
)

// OutlierOptions controls RemoveOutliers.
type OutlierOptions struct {
	// NewModel returns the regressor fitted once per iteration.
	NewModel model.Factory
	// Progress, if set, is called after each iteration.
	Progress func(it Iteration)
}

// DefaultOutlierOptions uses a 100-tree RandomForest.
func DefaultOutlierOptions() OutlierOptions {
	return OutlierOptions{
		NewModel: func() model.Regressor { return model.NewRandomForest() },
	}
}

// Iteration summarises one fit-and-prune pass.
type Iteration struct {
	Index        int     `yaml:"index"`
	RowsBefore   int     `yaml:"rows_before"`
	RowsAfter    int     `yaml:"rows_after"`
	Residual     int     `yaml:"residual_flagged"`
	HighLeverage int     `yaml:"leverage_flagged"`
	ResidualStd  float64 `yaml:"residual_std"`
}

// RemoveOutliers drops rows inconsistent with a model of target from the other
// columns until at most floor(rows*(1-threshold)) rows remain. The final pass
// may remove more rows than needed; no partial trimming is done.
//
// Every column must be free of absent values. The returned trace has one entry
// per pass; with threshold 0 it is empty and the table is returned unchanged.
func RemoveOutliers(ctx context.Context, t *table.Table, target string, threshold float64, opt OutlierOptions) (*table.Table, []Iteration, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, nil, &ConfigurationError{Field: "threshold", Reason: fmt.Sprintf("%v is outside [0, 1]", threshold)}
	}
	ti, ok := t.Index(target)
	if !ok {
		return nil, nil, &ConfigurationError{Field: "target_column", Reason: fmt.Sprintf("%q is not a column", target)}
	}
	if t.Cols() < 2 {
		return nil, nil, &ConfigurationError{Field: "target_column", Reason: "at least one feature column besides the target is required"}
	}
	for j := 0; j < t.Cols(); j++ {
		if c := t.ColumnAt(j); c.Missing() > 0 {
			return nil, nil, &InsufficientDataError{Column: c.Name, Reason: "absent values must be imputed before outlier removal"}
		}
	}
	if opt.NewModel == nil {
		opt.NewModel = DefaultOutlierOptions().NewModel
	}

	n0 := t.Rows()
	nKeep := int(math.Floor(float64(n0) * (1 - threshold)))
	log := logging.L()
	work := t.Clone()
	var trace []Iteration

	for work.Rows() > nKeep {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		it := Iteration{Index: len(trace) + 1, RowsBefore: work.Rows()}
		feats := work.FeatureIndexes(target)
		X := work.Matrix(nil, feats)
		y := append([]float64(nil), work.ColumnAt(ti).Values...)

		reg := opt.NewModel()
		if err := reg.Fit(X, y); err != nil {
			return nil, nil, fmt.Errorf("fit outlier model: %w", err)
		}
		pred, err := reg.Predict(X)
		if err != nil {
			return nil, nil, fmt.Errorf("predict outlier model: %w", err)
		}
		stdRes := StandardizedResiduals(y, pred)
		if len(y) > 1 {
			it.ResidualStd = stat.StdDev(residuals(y, pred), nil)
		}
		lev, err := Leverage(X)
		if err != nil {
			return nil, nil, err
		}

		keep := make([]int, 0, work.Rows())
		for r := range y {
			switch {
			case math.Abs(stdRes[r]) >= StdResidualCutoff:
				it.Residual++
			case lev[r] > LeverageCutoff:
				it.HighLeverage++
			default:
				keep = append(keep, r)
			}
		}
		if len(keep) == work.Rows() {
			return nil, nil, &NoOutliersFoundError{Iteration: it.Index, Rows: work.Rows(), Target: nKeep}
		}
		work = work.SelectRows(keep)
		it.RowsAfter = work.Rows()
		trace = append(trace, it)
		log.Debug("outlier pass",
			zap.Int("iteration", it.Index),
			zap.Int("rows_before", it.RowsBefore),
			zap.Int("rows_after", it.RowsAfter),
			zap.Int("residual_flagged", it.Residual),
			zap.Int("leverage_flagged", it.HighLeverage),
		)
		if opt.Progress != nil {
			opt.Progress(it)
		}
	}
	return work, trace, nil
}

func residuals(y, pred []float64) []float64 {
	out := make([]float64, len(y))
	for i := range y {
		out[i] = y[i] - pred[i]
	}
	return out
}

// StandardizedResiduals divides y-pred by the sample standard deviation of the
// residuals. A zero (or undefined) deviation yields all zeros.
func StandardizedResiduals(y, pred []float64) []float64 {
	res := residuals(y, pred)
	out := make([]float64, len(res))
	if len(res) < 2 {
		return out
	}
	sd := stat.StdDev(res, nil)
	if sd == 0 || math.IsNaN(sd) {
		return out
	}
	for i, r := range res {
		out[i] = r / sd
	}
	return out
}

// Leverage returns the diagonal of the hat matrix X (XᵀX)⁻¹ Xᵀ for the raw
// feature rows of X, without an intercept column.
func Leverage(X [][]float64) ([]float64, error) {
	n := len(X)
	p := 0
	if n > 0 {
		p = len(X[0])
	}
	if n == 0 || p == 0 {
		return nil, &SingularMatrixError{Rows: n, Cols: p}
	}
	flat := make([]float64, 0, n*p)
	for _, row := range X {
		flat = append(flat, row...)
	}
	xm := mat.NewDense(n, p, flat)
	if n < p {
		return nil, &SingularMatrixError{Rows: n, Cols: p, Err: errors.New("fewer rows than features")}
	}

	// With X = QR, H = Q₁Q₁ᵀ and Q₁ = XR⁻¹. Working on X instead of XᵀX keeps
	// mixed-unit columns from squaring the condition number.
	var qr mat.QR
	qr.Factorize(xm)
	var r mat.Dense
	qr.RTo(&r)
	tol := rankTolerance * mat.Norm(xm, 2)
	rt := mat.NewTriDense(p, mat.Upper, nil)
	for i := 0; i < p; i++ {
		if math.Abs(r.At(i, i)) <= tol {
			return nil, &SingularMatrixError{Rows: n, Cols: p, Err: fmt.Errorf("feature %d is a linear combination of the others", i)}
		}
		for j := i; j < p; j++ {
			rt.SetTri(i, j, r.At(i, j))
		}
	}
	var rinv mat.TriDense
	if err := rinv.InverseTri(rt); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, &SingularMatrixError{Rows: n, Cols: p, Err: err}
		}
	}
	var q1 mat.Dense
	q1.Mul(xm, &rinv)

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		row := q1.RawRowView(i)
		out[i] = floats.Dot(row, row)
	}
	return out, nil
}
