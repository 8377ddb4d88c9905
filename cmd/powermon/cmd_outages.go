package main

import (
	"fmt"
	"time"

	"github.com/jat99/PowerMonitor/internal/outage"
	"github.com/jat99/PowerMonitor/internal/outageclient"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newOutagesCmd() *cobra.Command {
	var (
		date      string
		startDate string
		endDate   string
		baseURL   string
	)

	cmd := &cobra.Command{
		Use:   "outages",
		Short: "List outages from a PowerMonitor server",
		Long: `List outages newest first.

Filter to one day with --date, or to an inclusive range with --start-date and
--end-date. Dates use YYYY-MM-DD in the configured monitor timezone.`,
		Example: `  powermon outages
  powermon outages --date 2024-01-15
  powermon outages --start-date 2024-01-10 --end-date 2024-01-15 --url http://meter.local:8001/api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			q, err := outage.ParseQuery(date, startDate, endDate)
			if err != nil {
				return err
			}

			loc, err := cfg.Monitor.Location()
			if err != nil {
				return err
			}

			sourceCfg := cfg.Source
			if baseURL != "" {
				sourceCfg.BaseURL = baseURL
			}
			client, err := outageclient.NewClient(&sourceCfg, loc, logger)
			if err != nil {
				return err
			}

			views, err := outage.NewRegistry(client, loc).List(cmd.Context(), q)
			if err != nil {
				logger.Debug("Failed to list outages", zap.Error(err))
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), views)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), renderOutages(views, time.Now()))
			return err
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "single day to list (YYYY-MM-DD)")
	cmd.Flags().StringVar(&startDate, "start-date", "", "first day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "last day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&baseURL, "url", "", "API base URL, overrides source.base_url")
	cmd.MarkFlagsRequiredTogether("start-date", "end-date")
	cmd.MarkFlagsMutuallyExclusive("date", "start-date")
	return cmd
}
