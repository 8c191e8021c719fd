package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/labsight/labsight/internal/config"
	"github.com/labsight/labsight/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Labsight server",
	Long: `Start the Labsight HTTP server.

The server provides:
  - /health              - Basic server health check
  - /status              - Provider and configuration status
  - /parse-report        - Extract biomarkers from a lab report PDF
  - /analyze-food        - Analyze the nutrition of a food photo
  - /generate-workout    - Generate a personalized workout plan
  - /generate-nutrition  - Generate a personalized daily meal plan

Configuration is hot-reloaded when the config file changes.

Examples:
  labsight serve                    # Start on default port 8080
  labsight serve --port 3000        # Start on custom port
  labsight serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfgMgr.WatchConfig()

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: cfgMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
