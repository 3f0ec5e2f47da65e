package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/artpar/schemagate/registry"
)

var validateVersion string

var validateCmd = &cobra.Command{
	Use:   "validate <schema-name> <payload-file>",
	Short: "Validate a JSON payload against a schema",
	Long: `Validate a JSON payload against a schema from the local store.

Reads the payload from a file, or from stdin when the file is "-".

Examples:
  schemagate validate user payload.json
  schemagate validate user --version v1.2.0 payload.json
  cat payload.json | schemagate validate user -`,
	Args: cobra.ExactArgs(2),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateVersion, "version", registry.Latest, "schema version to validate against")
}

func runValidate(cmd *cobra.Command, args []string) error {
	name, payloadFile := args[0], args[1]

	var data []byte
	var err error
	if payloadFile == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(payloadFile)
	}
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("payload is not valid JSON: %w", err)
	}

	_, validator, err := newLocalService()
	if err != nil {
		return err
	}

	result, found := validator.Validate(name, validateVersion, payload)
	if !found {
		return fmt.Errorf("schema %q version %q not found", name, validateVersion)
	}

	if result.Valid {
		fmt.Printf("%s Payload valid against %s\n", checkMark, result.Schema)
		return nil
	}

	fmt.Printf("%s Payload invalid against %s\n", crossMark, result.Schema)
	for _, e := range result.Errors {
		fmt.Printf("    %s\n", e)
	}
	os.Exit(1)
	return nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
