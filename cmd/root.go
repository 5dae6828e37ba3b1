package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/scheme-cli/internal/config"
)

var cfg *config.Config

var schemaPath string

var rootCmd = &cobra.Command{
	Use:   "scheme-cli",
	Short: "Build, inspect and sample building mapping schemes",
	Long:  "Ingests classified building surveys into per-zone statistics trees over a building taxonomy, persists them as mapping scheme documents, and samples synthetic exposure records from them.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if schemaPath != "" {
			c.Schema.Path = schemaPath
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "taxonomy reference data (overrides schema.path)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
