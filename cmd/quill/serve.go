package main

import (
	"github.com/spf13/cobra"

	"quill/cmd/internal/app"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server. The session signing secret is read from
QUILL_SESSION_SECRET and must be at least 32 bytes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *configFile)
			if err != nil {
				return err
			}
			return app.Serve(cmd.Context(), cfg)
		},
	}
}
