package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tidycsv/internal/table"
	"github.com/KaramelBytes/tidycsv/internal/utils"
)

var (
	insOutputPath string
	insDelimiter  string
	insDecimal    string
	insThousands  string
	insSheetName  string
	insSheetIndex int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Summarize a CSV/TSV/XLSX file: schema, missing ratios and MatImpute fill order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt, err := tableOptions(insDelimiter, insDecimal, insThousands)
		if err != nil {
			return err
		}
		opt.SheetName = insSheetName
		opt.SheetIndex = insSheetIndex

		t, err := table.Load(path, opt)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		md := table.Markdown(filepath.Base(path), t)
		if insOutputPath != "" {
			if err := utils.SafeWriteFile(insOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote summary to %s\n", insOutputPath)
			return nil
		}
		fmt.Println(md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&insOutputPath, "output", "o", "", "optional path to write the summary (Markdown)")
	inspectCmd.Flags().StringVar(&insDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	inspectCmd.Flags().StringVar(&insDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma'|'auto' (default '.')")
	inspectCmd.Flags().StringVar(&insThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	inspectCmd.Flags().StringVar(&insSheetName, "sheet-name", "", "XLSX: sheet name to inspect")
	inspectCmd.Flags().IntVar(&insSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}
