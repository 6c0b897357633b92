package cleaning

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tidycsv/internal/logging"
	"github.com/KaramelBytes/tidycsv/internal/model"
	"github.com/KaramelBytes/tidycsv/internal/table"
)

// ImputeOptions controls MatImputer.
type ImputeOptions struct {
	// Neighbors used by the KNN helper fill.
	Neighbors int
	// NewModel returns the regressor fitted once per filled column.
	NewModel model.Factory
	// Progress, if set, is called before each column is filled.
	Progress func(column string, done, total int)
}

// DefaultImputeOptions uses 5 neighbours and a 100-tree ExtraTrees model.
func DefaultImputeOptions() ImputeOptions {
	return ImputeOptions{
		Neighbors: 5,
		NewModel:  func() model.Regressor { return model.NewExtraTrees() },
	}
}

// MatImputer fills every absent cell using per-column model prediction.
type MatImputer struct {
	opt ImputeOptions
	knn *model.KNNImputer
}

// NewMatImputer returns an imputer; zero fields of opt fall back to defaults.
func NewMatImputer(opt ImputeOptions) *MatImputer {
	def := DefaultImputeOptions()
	if opt.Neighbors <= 0 {
		opt.Neighbors = def.Neighbors
	}
	if opt.NewModel == nil {
		opt.NewModel = def.NewModel
	}
	return &MatImputer{opt: opt, knn: model.NewKNNImputer(opt.Neighbors)}
}

// Impute returns a copy of t with no absent cells. Columns are filled in
// ProcessingOrder; each fill sees the values written by earlier fills.
// Columns without absent cells are never modified.
func (m *MatImputer) Impute(ctx context.Context, t *table.Table) (*table.Table, error) {
	order := table.ProcessingOrder(t)
	work := t.Clone()
	log := logging.L()
	for i, col := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m.opt.Progress != nil {
			m.opt.Progress(col, i, len(order))
		}
		filled, err := FillWithModel(work, col, m.opt.NewModel(), m.knn)
		if err != nil {
			return nil, err
		}
		work = filled
		log.Debug("imputed column", zap.String("column", col), zap.Int("step", i+1), zap.Int("of", len(order)))
	}
	return work, nil
}

// FilledExceptColumn densifies every column of t with KNN imputation, then
// restores col to its original values so only col keeps its gaps.
func FilledExceptColumn(t *table.Table, col string, knn *model.KNNImputer) (*table.Table, error) {
	ci, ok := t.Index(col)
	if !ok {
		return nil, fmt.Errorf("unknown column %q", col)
	}
	all := make([]int, t.Cols())
	for i := range all {
		all[i] = i
	}
	dense := knn.Transform(t.Matrix(nil, all))
	helper := t.Clone()
	for r, row := range dense {
		for j, v := range row {
			if j == ci {
				continue
			}
			helper.Set(r, j, v)
		}
	}
	return helper, nil
}

// FillWithModel fills the absent cells of col with predictions from reg,
// trained on the rows of the KNN helper table that are fully present. Only the
// originally absent cells of col change in the returned copy.
func FillWithModel(t *table.Table, col string, reg model.Regressor, knn *model.KNNImputer) (*table.Table, error) {
	helper, err := FilledExceptColumn(t, col, knn)
	if err != nil {
		return nil, err
	}
	ci, _ := t.Index(col)
	target := t.ColumnAt(ci).Values
	feats := helper.FeatureIndexes(col)

	var train, miss []int
	for r := 0; r < t.Rows(); r++ {
		if table.IsAbsent(target[r]) {
			miss = append(miss, r)
			continue
		}
		if !helper.RowHasAbsent(r) {
			train = append(train, r)
		}
	}
	if len(miss) == 0 {
		return t.Clone(), nil
	}
	if len(train) == 0 {
		for _, j := range feats {
			if c := helper.ColumnAt(j); c.Missing() == t.Rows() {
				return nil, &InsufficientDataError{Column: c.Name, Reason: fmt.Sprintf("column is empty, cannot predict %q from it", col)}
			}
		}
		return nil, &InsufficientDataError{Column: col, Reason: "no complete rows left to train on"}
	}

	X := helper.Matrix(train, feats)
	y := make([]float64, len(train))
	for k, r := range train {
		y[k] = target[r]
	}
	if err := reg.Fit(X, y); err != nil {
		return nil, fmt.Errorf("fit model for %q: %w", col, err)
	}

	pred, err := reg.Predict(helper.Matrix(miss, feats))
	if err != nil {
		return nil, fmt.Errorf("predict %q: %w", col, err)
	}

	out := t.Clone()
	for k, r := range miss {
		out.Set(r, ci, pred[k])
	}
	logging.L().Debug("model fill",
		zap.String("column", col),
		zap.Int("train_rows", len(train)),
		zap.Int("predicted_rows", len(miss)),
	)
	return out, nil
}
