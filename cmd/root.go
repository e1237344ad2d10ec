package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geoplot/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geoplot",
	Short: "Plot tabular data on boundary maps",
	Long:  "Loads a CSV or XLSX dataset and GeoJSON or shapefile boundaries, draws a point or choropleth map, and exports it as SVG or PNG.",
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
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
