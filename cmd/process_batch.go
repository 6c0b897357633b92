package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tidycsv/internal/utils"
)

var (
	pb        processFlags
	pbReports bool
)

var processBatchCmd = &cobra.Command{
	Use:   "process-batch <files...>",
	Short: "Process multiple CSV/TSV/XLSX files with the same options, stopping at the first failure",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := utils.ExpandInputs(args)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		total := len(files)
		for i, path := range files {
			if !pb.quiet {
				fmt.Printf("[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			pc, err := pb.config(cmd, path)
			if err != nil {
				return err
			}
			reportPath := ""
			if pbReports {
				out := utils.OutputPath(path, pb.outDir)
				reportPath = strings.TrimSuffix(out, ".csv") + ".report.yaml"
			}
			res, err := runOne(ctx, pc, &pb, reportPath)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			if !pb.quiet {
				fmt.Printf("✓ Wrote %s (%d rows)\n", filepath.Base(res.OutputPath), res.Table.Rows())
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processBatchCmd)
	bindProcessFlags(processBatchCmd, &pb)
	processBatchCmd.Flags().BoolVar(&pbReports, "reports", false, "write <name>_processed.report.yaml next to each output")
}
