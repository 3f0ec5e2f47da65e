package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "schemagate",
	Short: "Versioned JSON Schema registry with reference resolution and validation",
	Long: `Schemagate serves versioned JSON Schemas from a flat file tree.

It discovers schema versions on disk, normalizes identifiers against the
serving host, inlines references on demand, and validates payloads.

Quick start:
  schemagate serve            # Start the registry server
  schemagate schemas list     # List schema families

Management:
  schemagate schemas          # Inspect schemas from the local store
  schemagate validate         # Validate a payload against a schema
  schemagate export           # Export resolved schemas for documentation`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "schemagate.yaml", "config file path")
}
