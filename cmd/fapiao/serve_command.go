package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fapiao/internal/daemon"
	"fapiao/internal/logging"
)

// newServeCommand runs the HTTP API daemon in the foreground. It is the
// same loop fapiaod runs, exposed here for ad-hoc use.
func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the fapiao API daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			d, err := daemon.New(cfg, ctx.configPath, logger)
			if err != nil {
				return err
			}
			return d.Run(cmd.Context())
		},
	}
}
