package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matlycreative/seo-prospects/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "seo-prospects",
	Short: "Local-business lead prospecting pipeline",
	Long:  "Finds local businesses via OpenStreetMap, resolves their websites through a confidence-ordered waterfall, filters them, and pushes new leads onto an outreach board.",
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
