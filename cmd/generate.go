/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samwightt/gqlfunc/pkg/codegen"
	"github.com/samwightt/gqlfunc/pkg/config"
	"github.com/samwightt/gqlfunc/pkg/diagnostic"
	"github.com/samwightt/gqlfunc/pkg/operations"
	"github.com/samwightt/gqlfunc/pkg/pipeline"
	"github.com/samwightt/gqlfunc/pkg/render"
	"github.com/samwightt/gqlfunc/pkg/signature"
	"github.com/spf13/cobra"
)

func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the Go functions file from the operations document",
		Long: `Fetches the schema, reads the operations document and writes a Go file
with one function per named operation.

Each function takes a context, an Executor and, when the operation declares
variables, a struct of those variables. It returns the decoded response.

An empty operations document produces a single PlaceholderQuery function
unless --empty-operations is set to fail. Selections are checked against the
schema according to --validation:
  off     no checks; unknown fields become json.RawMessage
  warn    problems are reported and generation continues (default)
  strict  any problem fails the run

The previous file is only replaced when every step succeeds.`,
		Example: `  # Generate for a Netlify site
  SITE_ID=abc NETLIFY_API_TOKEN=xyz gqlfunc generate

  # Generate from a local schema into a custom package
  gqlfunc generate -s schema.graphql --output internal/graph/graph.go --package graph

  # Only the GitHub and npm services
  gqlfunc generate --service GITHUB --service NPM`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runGenerateCmd,
	}

	cmd.Flags().String("output", "", "File path of the generated Go file")
	cmd.Flags().String("package", "", "Package name of the generated Go file")
	cmd.Flags().String("validation", "", "Schema validation: off, warn, strict")
	cmd.Flags().String("empty-operations", "", "Empty operations document: placeholder, warn, fail")
	cmd.Flags().StringSlice("service", nil, "Enable an upstream service (repeatable; default: the services enabled on the app)")
	cmd.Flags().String("site-id", "", "Site registered as an application before fetching the schema")
	cmd.Flags().String("serve-url", "", "Base URL of the schema service")
	bindFlags(cmd.Flags(), map[string]string{
		"output_path":      "output",
		"package":          "package",
		"validation":       "validation",
		"empty_operations": "empty-operations",
		"services":         "service",
		"site_id":          "site-id",
		"serve_url":        "serve-url",
	})

	return cmd
}

func runGenerateCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	result, err := pipeline.Run(cmd.Context(), cfg, pipeline.NewDeps(cfg, logger))
	if err != nil {
		if outputFormat != render.FormatJSON {
			fmt.Fprint(cmd.ErrOrStderr(), formatBuildError(err, cfg))
		}
		return err
	}

	info := GenerateInfo{
		Path:        result.Artifact.Path,
		Placeholder: result.Placeholder,
		Functions:   pluckFunctions(result.Functions),
		Warnings:    result.Warnings,
	}

	if outputFormat != render.FormatJSON {
		source := operationsSource(cfg, result.Placeholder)
		for _, w := range result.Warnings {
			fmt.Fprint(cmd.ErrOrStderr(), warningDiagnostic(w, cfg).Render(source))
		}
	}

	output, err := render.Value[GenerateInfo]{
		Data:         info,
		TextFormat:   formatGenerateText,
		PrettyFormat: formatGeneratePretty,
	}.Render(outputFormat)
	if err != nil {
		return fmt.Errorf("error rendering output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

func pluckFunctions(fns []signature.FunctionDescriptor) []FunctionInfo {
	infos := make([]FunctionInfo, 0, len(fns))
	for _, fn := range fns {
		infos = append(infos, functionToInfo(fn))
	}
	return infos
}

func generateHeadline(info GenerateInfo) string {
	noun := "functions"
	if len(info.Functions) == 1 {
		noun = "function"
	}
	headline := fmt.Sprintf("✓ Generated %d %s in %s", len(info.Functions), noun, info.Path)
	if info.Placeholder {
		headline += " (operations document is empty)"
	}
	return headline
}

func formatGenerateText(info GenerateInfo) string {
	lines := []string{generateHeadline(info)}
	for _, fn := range info.Functions {
		lines = append(lines, "  "+formatFunctionText(fn))
	}
	return strings.Join(lines, "\n")
}

func formatGeneratePretty(info GenerateInfo) string {
	return generateHeadline(info) + "\n" + formatFunctionsPretty(info.Functions)
}

// operationsSource returns the text diagnostics point into.
func operationsSource(cfg *config.Config, placeholder bool) string {
	if placeholder {
		return operations.Placeholder
	}
	content, err := operations.Store{Path: cfg.OperationsPath}.Read()
	if err != nil {
		return ""
	}
	return content
}

func warningDiagnostic(w codegen.Warning, cfg *config.Config) diagnostic.Diagnostic {
	return diagnostic.Diagnostic{
		Severity: diagnostic.SeverityWarning,
		File:     cfg.OperationsPath,
		Line:     w.Line,
		Column:   w.Column,
		Message:  w.Message,
	}
}

// formatBuildError renders errors that point into the operations document
// as source snippets. Other errors are left to the caller.
func formatBuildError(err error, cfg *config.Config) string {
	var (
		syntaxErr     *operations.SyntaxError
		validationErr *codegen.ValidationError
		anonymousErr  *signature.AnonymousOperationError
		conflictErr   *signature.NamingConflictError
	)

	switch {
	case errors.As(err, &syntaxErr):
		source := operationsSource(cfg, false)
		return diagnostic.Diagnostic{
			File:    cfg.OperationsPath,
			Line:    syntaxErr.Line,
			Column:  syntaxErr.Column,
			Message: syntaxErr.Message,
		}.Render(source)
	case errors.As(err, &validationErr):
		source := operationsSource(cfg, false)
		var b strings.Builder
		for _, problem := range validationErr.Problems {
			d := warningDiagnostic(problem, cfg)
			d.Severity = diagnostic.SeverityError
			d.Length = errorSpanLength(ValidationError{Message: problem.Message, Rule: problem.Rule})
			b.WriteString(d.Render(source))
		}
		return b.String()
	case errors.As(err, &anonymousErr):
		return diagnostic.Diagnostic{
			File:    cfg.OperationsPath,
			Line:    anonymousErr.Line,
			Column:  anonymousErr.Column,
			Message: anonymousErr.Error(),
		}.Render(operationsSource(cfg, false))
	case errors.As(err, &conflictErr) && len(conflictErr.Lines) == 2:
		return diagnostic.Diagnostic{
			File:    cfg.OperationsPath,
			Line:    conflictErr.Lines[1],
			Column:  1,
			Message: conflictErr.Error(),
			Help:    "rename one of the operations",
		}.Render(operationsSource(cfg, false))
	}
	return ""
}
