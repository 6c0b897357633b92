package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tidycsv/internal/cleaning"
	"github.com/KaramelBytes/tidycsv/internal/logging"
	"github.com/KaramelBytes/tidycsv/internal/model"
	"github.com/KaramelBytes/tidycsv/internal/table"
	"github.com/KaramelBytes/tidycsv/internal/utils"
)

const (
	defaultEstimators = 100
	defaultNeighbors  = 5
)

// Result is the outcome of a successful Run.
type Result struct {
	Table      *table.Table
	OutputPath string
	Report     *Report
}

// Run loads cfg.InputPath, applies the selected steps and writes
// <stem>_processed.csv. Nothing is written unless every step succeeds.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	warnings, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	method, _ := ParseMethod(cfg.Method)
	if cfg.Estimators == 0 {
		cfg.Estimators = defaultEstimators
	}
	if cfg.Neighbors == 0 {
		cfg.Neighbors = defaultNeighbors
	}

	started := time.Now()
	rep := &Report{
		RunID:     uuid.NewString(),
		Input:     cfg.InputPath,
		Method:    string(method),
		StartedAt: started.UTC(),
		Warnings:  warnings,
	}
	log := logging.L().With(zap.String("run_id", rep.RunID))
	for _, w := range warnings {
		log.Warn(w)
	}

	t, err := table.Load(cfg.InputPath, cfg.Table)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.InputPath, err)
	}
	if err := cfg.CheckTable(t); err != nil {
		return nil, err
	}
	rep.RowsIn = t.Rows()
	rep.Columns = t.Cols()
	rep.Missing = table.Missingness(t)
	log.Debug("loaded table", zap.String("path", cfg.InputPath), zap.Int("rows", t.Rows()), zap.Int("cols", t.Cols()))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch method {
	case MethodMatImpute:
		rep.FillOrder = table.ProcessingOrder(t)
		imp := cleaning.NewMatImputer(cleaning.ImputeOptions{
			Neighbors: cfg.Neighbors,
			NewModel:  extraTrees(cfg),
			Progress:  cfg.OnImpute,
		})
		t, err = imp.Impute(ctx, t)
	case MethodMean:
		t, err = cleaning.FillMean(t)
	case MethodMedian:
		t, err = cleaning.FillMedian(t)
	}
	if err != nil {
		return nil, err
	}

	if cfg.OutliersEnabled {
		th, _ := cfg.threshold()
		var trace []cleaning.Iteration
		t, trace, err = cleaning.RemoveOutliers(ctx, t, cfg.TargetColumn, th, cleaning.OutlierOptions{
			NewModel: randomForest(cfg),
			Progress: cfg.OnOutlierPass,
		})
		if err != nil {
			return nil, err
		}
		rep.Outliers = &OutlierSummary{Target: cfg.TargetColumn, Threshold: th, Iterations: trace}
	}

	out := utils.OutputPath(cfg.InputPath, cfg.OutputDir)
	if err := table.WriteCSV(out, t, utils.SafeWriteFile); err != nil {
		return nil, err
	}
	rep.Output = out
	rep.RowsOut = t.Rows()
	rep.Duration = time.Since(started).Round(time.Millisecond).String()
	log.Info("processed table",
		zap.String("output", out),
		zap.Int("rows_in", rep.RowsIn),
		zap.Int("rows_out", rep.RowsOut),
	)
	return &Result{Table: t, OutputPath: out, Report: rep}, nil
}

func forestOptions(cfg Config) []model.ForestOption {
	return []model.ForestOption{
		model.WithNEstimators(cfg.Estimators),
		model.WithRandomState(cfg.Seed),
		model.WithMaxDepth(cfg.MaxDepth),
		model.WithMinSamplesLeaf(cfg.MinSamplesLeaf),
		model.WithMaxFeatures(cfg.MaxFeatures),
	}
}

func extraTrees(cfg Config) model.Factory {
	return func() model.Regressor { return model.NewExtraTrees(forestOptions(cfg)...) }
}

func randomForest(cfg Config) model.Factory {
	return func() model.Regressor { return model.NewRandomForest(forestOptions(cfg)...) }
}
