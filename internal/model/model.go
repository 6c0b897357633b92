// Package model provides the regressors used by the cleaning core: CART
// regression trees, the ExtraTrees and RandomForest ensembles built on them,
// and a nearest-neighbour imputer.
package model

import "errors"

// Regressor is the fit/predict capability shared by every model here.
// X is row-major; every row must have the same width.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// Factory returns a fresh, unfitted Regressor.
type Factory func() Regressor

var (
	// ErrNotFitted is returned by Predict before a successful Fit.
	ErrNotFitted = errors.New("model: not fitted")
	// ErrEmpty is returned by Fit when X has no rows.
	ErrEmpty = errors.New("model: empty X")
)

// checkXY validates a training set and returns its feature width.
func checkXY(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmpty
	}
	if len(y) != len(X) {
		return 0, errors.New("model: X and y length mismatch")
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return 0, errors.New("model: inconsistent number of features in X rows")
		}
	}
	return p, nil
}

func checkWidth(X [][]float64, p int) error {
	for i := range X {
		if len(X[i]) != p {
			return errors.New("model: feature width differs from training data")
		}
	}
	return nil
}
