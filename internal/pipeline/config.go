// Package pipeline validates user input and drives a full cleaning run: load,
// impute, optionally remove outliers, then write the processed table.
package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tidycsv/internal/cleaning"
	"github.com/KaramelBytes/tidycsv/internal/table"
)

// Method selects how absent cells are filled.
type Method string

const (
	MethodMatImpute Method = "MatImpute"
	MethodMean      Method = "Mean"
	MethodMedian    Method = "Median"
)

// Methods lists the accepted imputation methods in display order.
var Methods = []Method{MethodMatImpute, MethodMean, MethodMedian}

// ThresholdWarnAbove is the largest threshold accepted without a warning.
const ThresholdWarnAbove = 0.1

// ParseMethod matches s case-insensitively against Methods.
func ParseMethod(s string) (Method, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &cleaning.ConfigurationError{Field: "method", Reason: "no imputation method selected"}
	}
	for _, m := range Methods {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	names := make([]string, len(Methods))
	for i, m := range Methods {
		names[i] = string(m)
	}
	return "", &cleaning.ConfigurationError{Field: "method", Reason: fmt.Sprintf("%q is not one of %s", s, strings.Join(names, ", "))}
}

// Config is everything a run needs. Threshold is kept as the raw user text so
// that parse failures are reported like any other input error.
type Config struct {
	InputPath string
	// OutputDir defaults to the input's directory.
	OutputDir string
	Method    string

	OutliersEnabled bool
	TargetColumn    string
	Threshold       string

	Estimators int
	Neighbors  int
	Seed       int64

	// Tree growth limits shared by both forests; zero leaves a limit off.
	MaxDepth       int
	MinSamplesLeaf int
	MaxFeatures    int

	Table table.Options

	// OnImpute and OnOutlierPass report progress; both are optional.
	OnImpute      func(column string, done, total int)
	OnOutlierPass func(it cleaning.Iteration)
}

// Validate checks the settings that do not depend on the table contents. It
// returns non-fatal warnings alongside a *cleaning.ConfigurationError.
func (c Config) Validate() ([]string, error) {
	if strings.TrimSpace(c.InputPath) == "" {
		return nil, &cleaning.ConfigurationError{Field: "input", Reason: "no input file selected"}
	}
	if _, err := ParseMethod(c.Method); err != nil {
		return nil, err
	}
	if c.Estimators < 0 {
		return nil, &cleaning.ConfigurationError{Field: "estimators", Reason: fmt.Sprintf("%d must not be negative", c.Estimators)}
	}
	if c.Neighbors < 0 {
		return nil, &cleaning.ConfigurationError{Field: "neighbors", Reason: fmt.Sprintf("%d must not be negative", c.Neighbors)}
	}
	for _, lim := range []struct {
		field string
		v     int
	}{{"max_depth", c.MaxDepth}, {"min_samples_leaf", c.MinSamplesLeaf}, {"max_features", c.MaxFeatures}} {
		if lim.v < 0 {
			return nil, &cleaning.ConfigurationError{Field: lim.field, Reason: fmt.Sprintf("%d must not be negative", lim.v)}
		}
	}
	if !c.OutliersEnabled {
		return nil, nil
	}
	if strings.TrimSpace(c.TargetColumn) == "" {
		return nil, &cleaning.ConfigurationError{Field: "target_column", Reason: "outlier removal needs a target column"}
	}
	th, err := c.threshold()
	if err != nil {
		return nil, err
	}
	var warnings []string
	if th > ThresholdWarnAbove {
		warnings = append(warnings, fmt.Sprintf("threshold %g discards more than %g of the rows; values above %g are not recommended", th, ThresholdWarnAbove, ThresholdWarnAbove))
	}
	return warnings, nil
}

// CheckTable verifies the target column against a loaded table.
func (c Config) CheckTable(t *table.Table) error {
	if !c.OutliersEnabled {
		return nil
	}
	if _, ok := t.Index(c.TargetColumn); !ok {
		return &cleaning.ConfigurationError{
			Field:  "target_column",
			Reason: fmt.Sprintf("%q is not a column (have: %s)", c.TargetColumn, strings.Join(t.Names(), ", ")),
		}
	}
	return nil
}

func (c Config) threshold() (float64, error) {
	raw := strings.TrimSpace(c.Threshold)
	th, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(th) {
		return 0, &cleaning.ConfigurationError{Field: "threshold", Reason: fmt.Sprintf("%q is not a number", raw)}
	}
	if th < 0 || th > 1 {
		return 0, &cleaning.ConfigurationError{Field: "threshold", Reason: fmt.Sprintf("%g must be between 0 and 1", th)}
	}
	return th, nil
}
