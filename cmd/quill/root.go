package main

import (
	"github.com/spf13/cobra"

	"quill/cmd/internal/app"
)

// NewRootCmd creates the root command. Running it bare starts the server.
func NewRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:          "quill",
		Short:        "Quill - a small blog API",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file path")
	app.RegisterFlags(cmd.PersistentFlags())

	serve := NewServeCmd(&configFile)
	cmd.RunE = serve.RunE

	cmd.AddCommand(serve)
	cmd.AddCommand(NewMigrateCmd(&configFile))

	return cmd
}

func loadConfig(cmd *cobra.Command, configFile string) (app.Config, error) {
	return app.LoadConfig(cmd.Flags(), configFile)
}
