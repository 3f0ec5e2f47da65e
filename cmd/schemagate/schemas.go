package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/schemagate/app"
	"github.com/artpar/schemagate/config"
	"github.com/artpar/schemagate/domain/resolve"
	"github.com/artpar/schemagate/registry"
)

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "Inspect schemas in the local store",
}

var schemasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schema families and their versions",
	RunE:  runSchemasList,
}

var schemasGetCmd = &cobra.Command{
	Use:   "get <name> [version]",
	Short: "Print one schema version as stored (identifiers normalized)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSchemasGet,
}

var schemasResolveCmd = &cobra.Command{
	Use:   "resolve <name> [version]",
	Short: "Print one schema version with every reference inlined",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSchemasResolve,
}

func init() {
	rootCmd.AddCommand(schemasCmd)
	schemasCmd.AddCommand(schemasListCmd)
	schemasCmd.AddCommand(schemasGetCmd)
	schemasCmd.AddCommand(schemasResolveCmd)
}

// newLocalService builds the service stack over the local schema store,
// without an HTTP server. Used by the management subcommands.
func newLocalService() (*app.SchemaService, *app.Validator, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()

	ix := registry.New(registry.Config{
		Dir:     cfg.Schemas.Dir,
		BaseURL: cfg.Schemas.BaseURL,
		Logger:  logger,
	})

	opts := resolve.Options{
		MaxDepth:      cfg.Resolver.MaxDepth,
		StripPrefixes: cfg.Resolver.StripPrefixes,
	}
	return app.NewSchemaService(ix, opts, logger, nil),
		app.NewValidator(ix, logger, nil),
		nil
}

func runSchemasList(cmd *cobra.Command, args []string) error {
	svc, _, err := newLocalService()
	if err != nil {
		return err
	}

	summaries := svc.List()
	if len(summaries) == 0 {
		fmt.Println("No schemas found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tLATEST\tVERSIONS")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%d\n", s.Name, s.LatestVersion, s.TotalVersions)
	}
	return w.Flush()
}

func runSchemasGet(cmd *cobra.Command, args []string) error {
	svc, _, err := newLocalService()
	if err != nil {
		return err
	}

	selector := registry.Latest
	if len(args) == 2 {
		selector = args[1]
	}

	rec, ok := svc.Get(args[0], selector)
	if !ok {
		return fmt.Errorf("schema %q version %q not found", args[0], selector)
	}

	return printJSON(rec.Document)
}

func runSchemasResolve(cmd *cobra.Command, args []string) error {
	svc, _, err := newLocalService()
	if err != nil {
		return err
	}

	selector := registry.Latest
	if len(args) == 2 {
		selector = args[1]
	}

	_, resolved, ok := svc.Resolve(args[0], selector)
	if !ok {
		return fmt.Errorf("schema %q version %q not found", args[0], selector)
	}

	return printJSON(resolved)
}

func printJSON(doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
