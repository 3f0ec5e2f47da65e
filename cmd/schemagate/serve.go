package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/schemagate/bootstrap"
	"github.com/artpar/schemagate/config"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the schema registry server",
	Long: `Start the schemagate registry server.

The server will:
  - Load configuration from schemagate.yaml (or --config)
  - Or load configuration from SCHEMAGATE_* environment variables
  - Discover schema versions under the storage directory
  - Serve schemas, resolved documents, and payload validation over HTTP

Environment variables (for Docker deployments):
  SCHEMAGATE_SCHEMAS_DIR     - Schema storage root (default: schemas)
  SCHEMAGATE_BASE_URL        - Base URL for schema identifiers
  SCHEMAGATE_SERVER_PORT     - Server port (default: 8000)
  SCHEMAGATE_SCHEMAS_WATCH   - Watch storage for changes
  SCHEMAGATE_LOG_LEVEL       - Log level: debug, info, warn, error
  SCHEMAGATE_METRICS_ENABLED - Enable /metrics endpoint

Examples:
  schemagate serve
  schemagate serve --config /etc/schemagate/config.yaml
  schemagate serve --hot-reload=false

  # Docker (env vars only):
  SCHEMAGATE_SCHEMAS_DIR=/srv/schemas schemagate serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		// Hot reload only works with a config file
		app, err = bootstrap.NewWithHotReload(cfgFile)
	} else {
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}

		if !hasConfigFile {
			fmt.Println("Running with environment variables (no config file)")
		}

		app, err = bootstrap.New(cfg)
	}

	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
