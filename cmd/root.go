/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"os"

	"github.com/samwightt/gqlfunc/pkg/config"
	"github.com/samwightt/gqlfunc/pkg/logging"
	"github.com/samwightt/gqlfunc/pkg/render"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	configFilePath string
	outputFormat   render.Format
	settings       *viper.Viper
	logger         *logrus.Logger
)

func formatFlag() string {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return string(render.FormatPretty)
	}
	return string(render.FormatText)
}

// NewRootCmd creates and returns the root command with all subcommands attached.
// This function creates a fresh command tree, ensuring no state leaks between invocations.
func NewRootCmd() *cobra.Command {
	settings = viper.New()
	logger = logging.Discard()

	cmd := &cobra.Command{
		Use:   "gqlfunc",
		Short: "Generate Go functions from GraphQL operations",
		Long: `gqlfunc turns a GraphQL operations document into a Go file with one
function per named query, mutation and subscription.

The schema is fetched for an application from the schema service, or read
from a local SDL file with -s. Operations are read from
netlify/netligraph/operations.graphql and the generated file is written to
netlify/functions/netligraph/netligraph.go unless configured otherwise.

Settings come from gqlfunc.yaml in the working directory, GQLFUNC_*
environment variables (SITE_ID and NETLIFY_API_TOKEN are honoured as well)
and flags, in increasing order of precedence. A .env file is loaded first.

Output can be formatted as pretty tables (default in terminals), plain text
(default when piping), or JSON for integration with other tools.`,
		Example: `  # Generate functions for the site's application
  SITE_ID=abc NETLIFY_API_TOKEN=xyz gqlfunc generate

  # Generate against a local schema, failing on any schema mismatch
  gqlfunc generate -s schema.graphql --validation strict

  # Check the operations document without writing anything
  gqlfunc validate -s schema.graphql

  # List the functions that would be generated, with their parameters
  gqlfunc functions

  # Pipe JSON output to other tools
  gqlfunc functions -f json | jq '.[].name'`,
	}

	// Persistent flags
	cmd.PersistentFlags().StringVarP(&configFilePath, "config", "c", "", "Config file (default: ./gqlfunc.yaml if present)")

	var formatStr string
	cmd.PersistentFlags().StringVarP(&formatStr, "format", "f", formatFlag(), "Output format: json, text, pretty (default: pretty if interactive, text otherwise)")

	cmd.PersistentFlags().StringP("schema", "s", "", "Read the schema from this SDL file instead of the schema service")
	cmd.PersistentFlags().StringP("operations", "o", "", "File path of the GraphQL operations document")
	cmd.PersistentFlags().String("app-id", "", "Application whose schema is fetched (default: the site id)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().String("log-format", "", "Log format: text, json")
	bindFlags(cmd.PersistentFlags(), map[string]string{
		"schema_file":     "schema",
		"operations_path": "operations",
		"app_id":          "app-id",
		"log_level":       "log-level",
		"log_format":      "log-format",
	})

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		outputFormat, err = render.ParseFormat(formatStr)
		if err != nil {
			return err
		}
		config.LoadEnv(logger)
		return nil
	}

	// Add all subcommands
	cmd.AddCommand(NewGenerateCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewFunctionsCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// ExecuteWithArgs runs the CLI with the given arguments and returns stdout, stderr, and any error.
// This is useful for testing.
func ExecuteWithArgs(args []string) (stdout string, stderr string, err error) {
	return ExecuteWithArgsAndStdin(args, nil)
}

// ExecuteWithArgsAndStdin runs the CLI with the given arguments and stdin, returns stdout, stderr, and any error.
// This is useful for testing commands that read from stdin.
func ExecuteWithArgsAndStdin(args []string, stdin *bytes.Buffer) (stdout string, stderr string, err error) {
	cmd := NewRootCmd()

	stdoutBuf := new(bytes.Buffer)
	stderrBuf := new(bytes.Buffer)

	cmd.SetOut(stdoutBuf)
	cmd.SetErr(stderrBuf)
	cmd.SetArgs(args)
	if stdin != nil {
		cmd.SetIn(stdin)
	}

	err = cmd.Execute()

	return stdoutBuf.String(), stderrBuf.String(), err
}
