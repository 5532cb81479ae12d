package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/one-labs/streets-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "streets-cli",
	Short: "Urban-planning GIS data acquisition and conversion",
	Long:  "Downloads census boundaries and ACS estimates, reclassifies land-cover rasters, filters blocks by poverty tracts, and converts between GIS file formats.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
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

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
