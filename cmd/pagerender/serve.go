package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagerender/pagerender/internal/config"
	"github.com/pagerender/pagerender/internal/server"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the render HTTP server",
	Long: `Start an HTTP server that renders uploaded documents.
Settings are read from PAGERENDER_* environment variables (a .env file is loaded if present);
--port overrides PAGERENDER_PORT.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from PAGERENDER_PORT or 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewServerConfig()
	if err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
