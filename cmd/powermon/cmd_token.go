package main

import (
	"fmt"
	"time"

	"github.com/jat99/PowerMonitor/internal/api/middleware"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <device-id>",
		Short: "Issue a device token for the write endpoints",
		Long: `Issue a JWT that lets a meter post measurements and outage changes.

The token is signed with the configured jwt.secret, so it must match the
server's configuration.`,
		Example: `  powermon token meter-1
  powermon token meter-1 --ttl 720h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			token, err := middleware.IssueDeviceToken(&cfg.JWT, args[0], ttl)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"device_id": args[0], "token": token})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, 0 for jwt.expiration_hours")
	return cmd
}
