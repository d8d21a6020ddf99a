package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-auth-service/internal/app"
	"go-auth-service/internal/config"
)

// NewRootCmd runs the server when invoked without a subcommand.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "auth-server",
		Short:         "Credential issuance and validation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. Pending database migrations are applied
before the listener opens.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	installLogger(cfg.LogLevel)

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return application.Run()
}
