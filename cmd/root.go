package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tidycsv/internal/cleaning"
	cfgpkg "github.com/KaramelBytes/tidycsv/internal/config"
	"github.com/KaramelBytes/tidycsv/internal/logging"
)

var (
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "tidycsv",
	Short: "tidycsv: fill missing values and strip outliers from tabular data",
	Long: `tidycsv cleans a CSV/TSV/XLSX table: it imputes missing values (MatImpute, Mean or Median),
optionally removes rows that a model of a target column cannot explain, and writes <name>_processed.csv.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig, setupLogging)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tidycsv/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging on stderr")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: flags still carry usable defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
}

func setupLogging() {
	if !debug {
		return
	}
	l, err := logging.NewDebug()
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: debug logging unavailable: %v\n", err)
		return
	}
	logging.SetLogger(l)
}

// describeError gives each failure kind its own user-facing line.
func describeError(err error) string {
	var (
		ce *cleaning.ConfigurationError
		ie *cleaning.InsufficientDataError
		se *cleaning.SingularMatrixError
		ne *cleaning.NoOutliersFoundError
	)
	switch {
	case errors.As(err, &ce):
		return "✗ Configuration error: " + err.Error()
	case errors.As(err, &ie):
		return "✗ Not enough data: " + err.Error()
	case errors.As(err, &se):
		return "✗ Leverage undefined: " + err.Error() + "\n  Hint: drop duplicated or constant feature columns"
	case errors.As(err, &ne):
		return "✗ Outlier removal stalled: " + err.Error() + "\n  Hint: lower --threshold"
	default:
		return "✗ Error: " + err.Error()
	}
}
