// Command powermon plots monitor series and lists outages from a terminal
package main

import (
	"fmt"
	"os"

	"github.com/jat99/PowerMonitor/internal/config"
	"github.com/jat99/PowerMonitor/internal/utils"
	"github.com/spf13/cobra"
)

var (
	configPath string
	jsonOutput bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "powermon",
		Short:         "Inspect supply voltage, current, power and outages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the configuration directory")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	root.AddCommand(newSeriesCmd(), newOutagesCmd(), newTokenCmd())
	return root
}

// loadEnv loads the configuration and a logger quiet enough for a terminal
func loadEnv() (*config.Config, *utils.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg := cfg.Log
	logCfg.OutputPath = "stderr"
	logCfg.Format = "console"
	if logCfg.Level != "debug" && logCfg.Level != "error" {
		logCfg.Level = "warn"
	}
	logger, err := utils.NewLogger(&logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}
