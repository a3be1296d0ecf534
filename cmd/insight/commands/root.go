package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joywufn/portfolio-insight/backend/pkg/config"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "insight",
	Short: "Portfolio Insight - Taiwan and US market portfolio backend",
	Long: `Portfolio Insight Unified CLI

REST + WebSocket backend for watchlists, portfolios and price alerts,
with Taiwan limit-up/limit-down scanning.

Usage:
  go run ./cmd/insight [command]

Examples:
  go run ./cmd/insight api
  go run ./cmd/insight scan --json
  go run ./cmd/insight quote 2330.TW
  go run ./cmd/insight session --exchange TWSE`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file loaded before .env")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig applies the global flags on top of config.Load
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", configFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}
