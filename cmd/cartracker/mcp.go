package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/cartracker/cartracker/internal/config"
	"github.com/cartracker/cartracker/internal/logger"
	"github.com/cartracker/cartracker/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Long:  "Start the Model Context Protocol server for cartracker on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New("cartracker-mcp", cfg.LogLevel, "json", os.Stderr)

			server := mcp.NewServer(app.Garage, version, mcp.WithLogger(log))
			return server.Run(ctx)
		},
	}

	return cmd
}
