package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/tidycsv/internal/config"
	"github.com/KaramelBytes/tidycsv/internal/pipeline"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set tidycsv defaults",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("method: %s\n", cfg.Method)
		fmt.Printf("threshold: %g\n", cfg.Threshold)
		if cfg.Delimiter != "" {
			fmt.Printf("delimiter: %q\n", cfg.Delimiter)
		}
		fmt.Printf("estimators: %d\n", cfg.Estimators)
		fmt.Printf("neighbors: %d\n", cfg.Neighbors)
		fmt.Printf("seed: %d\n", cfg.Seed)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "method":
			m, err := pipeline.ParseMethod(val)
			if err != nil {
				return err
			}
			cfg.Method = string(m)
		case "threshold":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f < 0 || f > 1 {
				return fmt.Errorf("invalid threshold: %v (use a number between 0 and 1)", val)
			}
			cfg.Threshold = f
		case "delimiter":
			if _, err := tableOptions(val, "", ""); err != nil {
				return err
			}
			cfg.Delimiter = val
		case "estimators":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for estimators: %v", val)
			}
			cfg.Estimators = i
		case "neighbors":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for neighbors: %v", val)
			}
			cfg.Neighbors = i
		case "seed":
			i, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid int for seed: %w", err)
			}
			cfg.Seed = i
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
