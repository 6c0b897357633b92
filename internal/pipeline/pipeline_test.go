package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tidycsv/internal/cleaning"
	"github.com/KaramelBytes/tidycsv/internal/logging"
	"github.com/KaramelBytes/tidycsv/internal/model"
	"github.com/KaramelBytes/tidycsv/internal/table"
)

func TestValidate(t *testing.T) {
	base := Config{InputPath: "in.csv", Method: "MatImpute", OutliersEnabled: true, TargetColumn: "y", Threshold: "0.05"}
	cases := []struct {
		name  string
		mod   func(c *Config)
		field string
		msg   string
	}{
		{"no file", func(c *Config) { c.InputPath = "" }, "input", "no input file selected"},
		{"no method", func(c *Config) { c.Method = " " }, "method", "no imputation method selected"},
		{"unknown method", func(c *Config) { c.Method = "Mode" }, "method", `"Mode" is not one of`},
		{"text threshold", func(c *Config) { c.Threshold = "abc" }, "threshold", "is not a number"},
		{"nan threshold", func(c *Config) { c.Threshold = "NaN" }, "threshold", "is not a number"},
		{"high threshold", func(c *Config) { c.Threshold = "1.5" }, "threshold", "between 0 and 1"},
		{"negative threshold", func(c *Config) { c.Threshold = "-0.2" }, "threshold", "between 0 and 1"},
		{"no target", func(c *Config) { c.TargetColumn = "" }, "target_column", "needs a target column"},
		{"negative estimators", func(c *Config) { c.Estimators = -1 }, "estimators", "must not be negative"},
		{"negative depth", func(c *Config) { c.MaxDepth = -2 }, "max_depth", "must not be negative"},
		{"negative max features", func(c *Config) { c.MaxFeatures = -1 }, "max_features", "must not be negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mod(&c)
			_, err := c.Validate()
			var ce *cleaning.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.field, ce.Field)
			assert.Contains(t, ce.Error(), tc.msg)
		})
	}

	warn, err := base.Validate()
	require.NoError(t, err)
	assert.Empty(t, warn)

	c := base
	c.Threshold = "0.2"
	warn, err = c.Validate()
	require.NoError(t, err)
	require.Len(t, warn, 1)
	assert.Contains(t, warn[0], "0.2")

	// threshold is ignored when outlier removal is off
	c = base
	c.OutliersEnabled = false
	c.Threshold = "abc"
	_, err = c.Validate()
	assert.NoError(t, err)
}

func TestForestFactoriesCarryLimits(t *testing.T) {
	cfg := Config{Estimators: 12, Seed: 9, MaxDepth: 6, MinSamplesLeaf: 3, MaxFeatures: 2}
	for name, factory := range map[string]model.Factory{"extratrees": extraTrees(cfg), "randomforest": randomForest(cfg)} {
		t.Run(name, func(t *testing.T) {
			f, ok := factory().(*model.Forest)
			require.True(t, ok)
			assert.Equal(t, 12, f.NEstimators)
			assert.Equal(t, int64(9), f.RandomState)
			assert.Equal(t, 6, f.MaxDepth)
			assert.Equal(t, 3, f.MinSamplesLeaf)
			assert.Equal(t, 2, f.MaxFeatures)
		})
	}
	assert.False(t, extraTrees(cfg)().(*model.Forest).Bootstrap)
	assert.True(t, randomForest(cfg)().(*model.Forest).Bootstrap)
}

func TestParseMethodIsCaseInsensitive(t *testing.T) {
	m, err := ParseMethod("median")
	require.NoError(t, err)
	assert.Equal(t, MethodMedian, m)
}

// writeScenario writes the 100-row table used by the end-to-end run: x1 has
// 5 gaps, x2 has 30, and the first six rows carry gross errors in y.
func writeScenario(t *testing.T, dir string) string {
	t.Helper()
	rnd := rand.New(rand.NewSource(9))
	gaps1 := map[int]bool{}
	for _, r := range rnd.Perm(100)[:5] {
		gaps1[r] = true
	}
	gaps2 := map[int]bool{}
	for _, r := range rnd.Perm(100)[:30] {
		gaps2[r] = true
	}
	cell := func(v float64, gap bool) string {
		if gap {
			return ""
		}
		return fmt.Sprintf("%.4f", v)
	}
	var b strings.Builder
	b.WriteString("x1,x2,x3,y\n")
	for r := 0; r < 100; r++ {
		x1, x2, x3 := rnd.Float64()*10, rnd.Float64()*10, rnd.Float64()*10
		y := x1 + x2 + 0.5*x3 + rnd.NormFloat64()*0.5
		if r < 6 {
			y += 60
		}
		fmt.Fprintf(&b, "%s,%s,%s,%.4f\n", cell(x1, gaps1[r]), cell(x2, gaps2[r]), cell(x3, false), y)
	}
	path := filepath.Join(dir, "scenario.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestRunMatImputeWithOutliers(t *testing.T) {
	dir := t.TempDir()
	in := writeScenario(t, dir)

	var filled []string
	var passes []cleaning.Iteration
	res, err := Run(context.Background(), Config{
		InputPath:       in,
		Method:          "MatImpute",
		OutliersEnabled: true,
		TargetColumn:    "y",
		Threshold:       "0.05",
		Estimators:      30,
		Seed:            42,
		Table:           table.DefaultOptions(),
		OnImpute:        func(col string, _, _ int) { filled = append(filled, col) },
		OnOutlierPass:   func(it cleaning.Iteration) { passes = append(passes, it) },
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"x1", "x2"}, filled)
	assert.NotEmpty(t, passes)
	assert.False(t, res.Table.HasAbsent())
	assert.GreaterOrEqual(t, res.Table.Rows(), 90)
	assert.LessOrEqual(t, res.Table.Rows(), 95)
	assert.Equal(t, filepath.Join(dir, "scenario_processed.csv"), res.OutputPath)

	written, err := table.LoadCSV(res.OutputPath, table.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"x1", "x2", "x3", "y"}, written.Names())
	assert.Equal(t, res.Table.Rows(), written.Rows())
	assert.False(t, written.HasAbsent())

	rep := res.Report
	assert.Equal(t, 100, rep.RowsIn)
	assert.Equal(t, res.Table.Rows(), rep.RowsOut)
	assert.Equal(t, []string{"x1", "x2"}, rep.FillOrder)
	require.NotNil(t, rep.Outliers)
	assert.Equal(t, passes, rep.Outliers.Iterations)
	_, err = uuid.Parse(rep.RunID)
	assert.NoError(t, err)
}

func TestRunMedianWritesReport(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "small.csv")
	require.NoError(t, os.WriteFile(in, []byte("a,b,c\n1,x,\n3,y,4\n,x,6\n10,,8\n"), 0o644))

	res, err := Run(context.Background(), Config{InputPath: in, Method: "Median", Table: table.DefaultOptions()})
	require.NoError(t, err)
	assert.Nil(t, res.Report.Outliers)
	assert.Empty(t, res.Report.FillOrder)

	b, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "a,b,c\n1,x,6\n3,y,4\n3,x,6\n10,x,8\n", string(b))

	repPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, WriteReport(repPath, res.Report))
	raw, err := os.ReadFile(repPath)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &back))
	assert.Equal(t, res.Report.RunID, back["run_id"])
	assert.Equal(t, "Median", back["method"])
	assert.Equal(t, 4, back["rows_out"])
}

func TestRunWritesNothingOnFailure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(in, []byte("a,empty\n1,\n2,\n3,\n"), 0o644))
	out := filepath.Join(dir, "bad_processed.csv")

	_, err := Run(context.Background(), Config{InputPath: in, Method: "Mean", Table: table.DefaultOptions()})
	var ide *cleaning.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, "empty", ide.Column)
	assert.NoFileExists(t, out)

	_, err = Run(context.Background(), Config{
		InputPath: in, Method: "Mean", OutliersEnabled: true, TargetColumn: "nope", Threshold: "0.05",
		Table: table.DefaultOptions(),
	})
	var ce *cleaning.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Error(), `"nope" is not a column`)
	assert.NoFileExists(t, out)

	_, err = Run(context.Background(), Config{InputPath: filepath.Join(dir, "missing.csv"), Method: "Mean"})
	assert.Error(t, err)
}

func TestRunHonoursCancellation(t *testing.T) {
	dir := t.TempDir()
	in := writeScenario(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Config{InputPath: in, Method: "MatImpute", Estimators: 5, Table: table.DefaultOptions()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(dir, "scenario_processed.csv"))
}

func TestRunLogsWithRunID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(nil) })

	dir := t.TempDir()
	in := filepath.Join(dir, "tiny.csv")
	require.NoError(t, os.WriteFile(in, []byte("a,b\n1,2\n,4\n3,6\n"), 0o644))

	res, err := Run(context.Background(), Config{InputPath: in, Method: "Mean", Table: table.DefaultOptions()})
	require.NoError(t, err)

	done := logs.FilterMessage("processed table").All()
	require.Len(t, done, 1)
	fields := done[0].ContextMap()
	assert.Equal(t, res.Report.RunID, fields["run_id"])
	assert.EqualValues(t, 3, fields["rows_out"])
}
