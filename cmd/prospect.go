package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	prospectLimit   int
	prospectCity    string
	prospectCountry string
	prospectHops    int
)

var prospectCmd = &cobra.Command{
	Use:   "prospect",
	Short: "Run one prospecting pass and push new leads to the board",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if prospectLimit > 0 {
			cfg.Pipeline.DailyLimit = prospectLimit
		}
		if prospectCity != "" {
			cfg.Cities.ForceCity = prospectCity
		}
		if prospectCountry != "" {
			cfg.Cities.ForceCountry = prospectCountry
		}
		if prospectHops > 0 {
			cfg.Cities.Hops = prospectHops
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		cities := selectCities(cfg.Cities)
		zap.L().Info("run starting",
			zap.Int("cities", len(cities)),
			zap.Int("daily_limit", cfg.Pipeline.DailyLimit))

		stats, err := env.Pipeline.Run(ctx, cities)
		if err != nil {
			return err
		}

		zap.L().Info("seen set",
			zap.String("path", cfg.Pipeline.SeenFile),
			zap.Int("domains", env.Seen.Len()))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	prospectCmd.Flags().IntVar(&prospectLimit, "limit", 0, "daily lead limit (default from config)")
	prospectCmd.Flags().StringVar(&prospectCity, "city", "", "force a single city")
	prospectCmd.Flags().StringVar(&prospectCountry, "country", "", "force a single country")
	prospectCmd.Flags().IntVar(&prospectHops, "hops", 0, "max cities to visit (default from config)")
	rootCmd.AddCommand(prospectCmd)
}
