package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export resolved schemas for documentation",
	Long: `Export the latest version of every schema family, fully resolved
and stripped of registry-internal URLs, to a directory of standalone
JSON files. Documentation renderers consume the output directly.

Examples:
  schemagate export
  schemagate export --out build/schemas`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "build/schemas", "output directory")
}

func runExport(cmd *cobra.Command, args []string) error {
	svc, _, err := newLocalService()
	if err != nil {
		return err
	}

	exported, err := svc.Export(exportOut)
	if err != nil {
		return err
	}

	for _, e := range exported {
		fmt.Printf("  %s %s %s -> %s\n", checkMark, e.Name, e.Version, e.Path)
	}
	fmt.Printf("Exported %d schemas to %s\n", len(exported), exportOut)
	return nil
}
