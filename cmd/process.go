package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tidycsv/internal/cleaning"
	"github.com/KaramelBytes/tidycsv/internal/pipeline"
	"github.com/KaramelBytes/tidycsv/internal/table"
)

// processFlags is shared by process and process-batch.
type processFlags struct {
	method     string
	outliers   bool
	target     string
	threshold  string
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
	estimators int
	neighbors  int
	seed       int64
	maxDepth   int
	minLeaf    int
	maxFeat    int
	outDir     string
	report     string
	quiet      bool
}

var prc processFlags

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Impute missing values (and optionally remove outliers) in one CSV/TSV/XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		pc, err := prc.config(cmd, args[0])
		if err != nil {
			return err
		}
		res, err := runOne(ctx, pc, &prc, prc.report)
		if err != nil {
			return err
		}
		if !prc.quiet {
			fmt.Printf("✓ Wrote %s (%d rows, %d columns)\n", res.OutputPath, res.Table.Rows(), res.Table.Cols())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
	bindProcessFlags(processCmd, &prc)
	processCmd.Flags().StringVar(&prc.report, "report", "", "optional path to write a YAML run report")
}

func bindProcessFlags(c *cobra.Command, f *processFlags) {
	c.Flags().StringVarP(&f.method, "method", "m", "MatImpute", "imputation method: MatImpute | Mean | Median")
	c.Flags().BoolVar(&f.outliers, "outliers", false, "remove outliers of --target after imputation")
	c.Flags().StringVarP(&f.target, "target", "t", "", "target column for outlier removal")
	c.Flags().StringVar(&f.threshold, "threshold", "0.05", "fraction of rows outlier removal may discard (0..1)")
	c.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	c.Flags().StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'|'auto' (default '.')")
	c.Flags().StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	c.Flags().StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to process")
	c.Flags().IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	c.Flags().IntVar(&f.estimators, "estimators", 100, "trees per ensemble model")
	c.Flags().IntVar(&f.neighbors, "neighbors", 5, "neighbours for the KNN helper fill")
	c.Flags().Int64Var(&f.seed, "seed", 42, "random seed for the ensemble models")
	c.Flags().IntVar(&f.maxDepth, "max-depth", 0, "maximum tree depth (0 = unlimited)")
	c.Flags().IntVar(&f.minLeaf, "min-samples-leaf", 1, "minimum rows per tree leaf")
	c.Flags().IntVar(&f.maxFeat, "max-features", 0, "features tried per split (0 = all)")
	c.Flags().StringVarP(&f.outDir, "out-dir", "o", "", "directory for <name>_processed.csv (default: next to the input)")
	c.Flags().BoolVar(&f.quiet, "quiet", false, "suppress progress and non-essential output")
}

// config merges flags with the loaded configuration; explicit flags win.
func (f *processFlags) config(cmd *cobra.Command, path string) (pipeline.Config, error) {
	pc := pipeline.Config{
		InputPath:       path,
		OutputDir:       f.outDir,
		Method:          f.method,
		OutliersEnabled: f.outliers,
		TargetColumn:    f.target,
		Threshold:       f.threshold,
		Estimators:      f.estimators,
		Neighbors:       f.neighbors,
		Seed:            f.seed,
		MaxDepth:        f.maxDepth,
		MinSamplesLeaf:  f.minLeaf,
		MaxFeatures:     f.maxFeat,
	}
	delimiter := f.delimiter
	flags := cmd.Flags()
	if cfg != nil {
		if !flags.Changed("method") && cfg.Method != "" {
			pc.Method = cfg.Method
		}
		if !flags.Changed("threshold") {
			pc.Threshold = fmt.Sprint(cfg.Threshold)
		}
		if !flags.Changed("estimators") && cfg.Estimators > 0 {
			pc.Estimators = cfg.Estimators
		}
		if !flags.Changed("neighbors") && cfg.Neighbors > 0 {
			pc.Neighbors = cfg.Neighbors
		}
		if !flags.Changed("seed") {
			pc.Seed = cfg.Seed
		}
		if !flags.Changed("delimiter") && cfg.Delimiter != "" {
			delimiter = cfg.Delimiter
		}
	}

	opt, err := tableOptions(delimiter, f.decimal, f.thousands)
	if err != nil {
		return pc, err
	}
	opt.SheetName = f.sheetName
	opt.SheetIndex = f.sheetIndex
	pc.Table = opt
	return pc, nil
}

func tableOptions(delimiter, decimal, thousands string) (table.Options, error) {
	opt := table.DefaultOptions()
	switch delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case "", ".", "dot":
		opt.DecimalSeparator = '.'
	case "auto":
		// guessed per cell: the later of ',' and '.' is the decimal mark
		opt.DecimalSeparator = 0
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma'|'auto')", decimal)
	}
	switch strings.ToLower(strings.TrimSpace(thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", thousands)
	}
	return opt, nil
}

// runOne executes the pipeline with progress printing and an optional report.
func runOne(ctx context.Context, pc pipeline.Config, f *processFlags, reportPath string) (*pipeline.Result, error) {
	warnings, err := pc.Validate()
	if err != nil {
		return nil, err
	}
	if !f.quiet {
		for _, w := range warnings {
			fmt.Printf("⚠ Warning: %s\n", w)
		}
		pc.OnImpute = func(col string, done, total int) {
			fmt.Printf("  [%d/%d] Imputing %s...\n", done+1, total, col)
		}
		pc.OnOutlierPass = func(it cleaning.Iteration) {
			fmt.Printf("  Outlier pass %d: %d → %d rows\n", it.Index, it.RowsBefore, it.RowsAfter)
		}
	}
	res, err := pipeline.Run(ctx, pc)
	if err != nil {
		return nil, err
	}
	if reportPath != "" {
		if err := pipeline.WriteReport(reportPath, res.Report); err != nil {
			return nil, err
		}
		if !f.quiet {
			fmt.Printf("✓ Wrote run report to %s\n", filepath.Base(reportPath))
		}
	}
	return res, nil
}
