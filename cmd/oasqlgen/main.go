// Package main provides the CLI entry point for oasqlgen, a tool that
// translates the schemas of an OpenAPI document into the artifact document
// a SQL model emitter consumes.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/oasql/oasql"
)

func main() {
	var output string
	var checkOnly bool

	rootCmd := &cobra.Command{
		Use:   "oasqlgen [flags] <openapi.yaml|openapi.json>",
		Short: "Generate SQL model artifacts from an OpenAPI document",
		Long: `oasqlgen reads the schemas under components.schemas of an OpenAPI
document, validates them, normalizes references, composition and
relationships, and writes the resulting model artifact document as JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, args []string) error {
			return run(args[0], output, checkOnly)
		},
	}

	rootCmd.Flags().StringVarP(&output, "output", "o", "", "write the artifact document to a file instead of stdout")
	rootCmd.Flags().BoolVar(&checkOnly, "check", false, "only report validation verdicts, do not generate")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(specPath, output string, checkOnly bool) error {
	oasql.ResetRemoteStore()

	var schemas oasql.Schemas
	var err error
	switch strings.ToLower(filepath.Ext(specPath)) {
	case ".json":
		schemas, err = oasql.LoadSpecJSON(specPath)
	case ".yaml", ".yml":
		schemas, err = oasql.LoadSpecYAML(specPath)
	default:
		return fmt.Errorf("unsupported specification extension: %s", specPath)
	}
	if err != nil {
		return err
	}

	reportVerdicts(oasql.CheckModels(schemas))
	if checkOnly {
		return nil
	}

	facade := oasql.NewFacade()
	if err := oasql.Normalize(schemas, facade); err != nil {
		return err
	}

	document, err := oasql.BuildArtifactDocument(schemas)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(output, data, 0o644)
}

// reportVerdicts prints the schemas the pipeline will not manage, and why.
func reportVerdicts(results map[string]oasql.ModelResult) {
	if len(results) == 0 {
		return
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	warn := color.New(color.FgYellow).SprintFunc()
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "%s %s: %s\n", warn("unmanaged"), name, results[name].Result.Reason)
	}
}
