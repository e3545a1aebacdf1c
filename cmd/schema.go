/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"fmt"

	"github.com/samwightt/gqlfunc/pkg/codegen"
	"github.com/spf13/cobra"
	"github.com/vektah/gqlparser/v2/formatter"
)

type schemaOptions struct {
	write string
}

func NewSchemaCmd() *cobra.Command {
	opts := &schemaOptions{}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the schema operations are generated against",
		Long: `Fetches the schema the same way generate does and prints it as SDL.

Useful for editor tooling and for pinning a schema file that later runs can
read with -s.`,
		Example: `  # Print the application's schema
  SITE_ID=abc gqlfunc schema

  # Save it for offline generation
  gqlfunc schema --write schema.graphql`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.write, "write", "w", "", "Write the SDL to this file instead of stdout")

	return cmd
}

func runSchema(cmd *cobra.Command, opts *schemaOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	schema, err := loadCliForSchema(cmd, cfg)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchema(schema)

	if opts.write == "" {
		fmt.Fprint(cmd.OutOrStdout(), buf.String())
		return nil
	}
	if err := codegen.WriteFile(opts.write, buf.Bytes()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote schema to %s\n", opts.write)
	return nil
}
