/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/samwightt/gqlfunc/pkg/diagnostic"
	"github.com/samwightt/gqlfunc/pkg/operations"
	"github.com/samwightt/gqlfunc/pkg/signature"
	"github.com/spf13/cobra"
	gqlparser "github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// ErrValidationFailed is returned when the operations document fails validation.
// This is a sentinel error that indicates the document is invalid,
// not that the command itself failed.
var ErrValidationFailed = errors.New("validation failed")

func convertGQLErrors(errs gqlerror.List) []ValidationError {
	var result []ValidationError
	for _, err := range errs {
		valErr := ValidationError{
			Message: err.Message,
			Rule:    err.Rule,
		}
		for _, loc := range err.Locations {
			valErr.Locations = append(valErr.Locations, Location{
				Line:   loc.Line,
				Column: loc.Column,
			})
		}
		result = append(result, valErr)
	}
	return result
}

func at(line, column int) []Location {
	if line == 0 {
		return nil
	}
	return []Location{{Line: line, Column: column}}
}

// convertExtractError turns a signature error into a validation error so it
// is reported like schema problems are.
func convertExtractError(err error) ValidationError {
	var (
		anonymousErr *signature.AnonymousOperationError
		conflictErr  *signature.NamingConflictError
		fragmentErr  *signature.UnknownFragmentError
	)
	switch {
	case errors.As(err, &anonymousErr):
		return ValidationError{Message: err.Error(), Rule: "AnonymousOperation", Locations: at(anonymousErr.Line, anonymousErr.Column)}
	case errors.As(err, &conflictErr):
		valErr := ValidationError{Message: err.Error(), Rule: "NamingConflict"}
		if len(conflictErr.Lines) > 0 {
			valErr.Locations = at(conflictErr.Lines[len(conflictErr.Lines)-1], 1)
		}
		return valErr
	case errors.As(err, &fragmentErr):
		return ValidationError{Message: err.Error(), Rule: "UnknownFragment", Locations: at(fragmentErr.Line, 1)}
	}
	return ValidationError{Message: err.Error()}
}

// validateOperations checks the document the way generate would: syntax first,
// then the schema, then whether every operation can become a function.
func validateOperations(sourceName string, content string, schema *ast.Schema) *ValidationResult {
	doc, err := operations.Parse(sourceName, content)
	if err != nil {
		var syntaxErr *operations.SyntaxError
		if errors.As(err, &syntaxErr) {
			return &ValidationResult{Valid: false, Errors: []ValidationError{{
				Message:   syntaxErr.Message,
				Rule:      "Syntax",
				Locations: at(syntaxErr.Line, syntaxErr.Column),
			}}}
		}
		return &ValidationResult{Valid: false, Errors: []ValidationError{{Message: err.Error()}}}
	}

	if _, errs := gqlparser.LoadQuery(schema, content); len(errs) > 0 {
		return &ValidationResult{Valid: false, Errors: convertGQLErrors(errs)}
	}

	fns, err := signature.Extract(doc)
	if err != nil {
		return &ValidationResult{Valid: false, Errors: []ValidationError{convertExtractError(err)}}
	}

	return &ValidationResult{Valid: true, Functions: pluck(fns, func(fn signature.FunctionDescriptor) string { return fn.Name })}
}

// Validation Error Display
//
// gqlparser returns errors with a Rule name (e.g., "FieldsOnCorrectType") and
// Location (line, column). However, the Location only has start position - no
// end position or span length.
//
// For known rules, we parse the error message to extract relevant info
// (field name, type name) and use that to calculate span length and suggestions.
// For unknown rules, we fall back to a single caret (^).

// Example: Cannot query field "badField" on type "Query".
var fieldsOnCorrectTypeRegex = regexp.MustCompile(`Cannot query field "([^"]+)" on type "([^"]+)"`)

// Example: Unknown argument "limt" on field "User.friends".
var knownArgumentNamesRegex = regexp.MustCompile(`Unknown argument "([^"]+)" on field "([^".]+)\.([^"]+)"`)

// parseFieldsOnCorrectTypeError extracts field name and type name from the error message.
// Returns empty strings if the message doesn't match.
func parseFieldsOnCorrectTypeError(message string) (fieldName, typeName string) {
	matches := fieldsOnCorrectTypeRegex.FindStringSubmatch(message)
	if len(matches) == 3 {
		return matches[1], matches[2]
	}
	return "", ""
}

func parseKnownArgumentNamesError(message string) (argName, typeName, fieldName string) {
	matches := knownArgumentNamesRegex.FindStringSubmatch(message)
	if len(matches) == 4 {
		return matches[1], matches[2], matches[3]
	}
	return "", "", ""
}

// errorSpanLength returns the length to underline for a given error.
// For known rules, it calculates the actual span. Otherwise returns 1.
func errorSpanLength(err ValidationError) int {
	switch err.Rule {
	case "FieldsOnCorrectType":
		if fieldName, _ := parseFieldsOnCorrectTypeError(err.Message); fieldName != "" {
			return len(fieldName)
		}
	case "KnownArgumentNames":
		if argName, _, _ := parseKnownArgumentNamesError(err.Message); argName != "" {
			return len(argName)
		}
	}
	return 1
}

// detectZshEscapeIssue checks if a parse error might be caused by zsh's history
// expansion escaping `!` as `\!`. Returns a help message if detected.
func detectZshEscapeIssue(err ValidationError, sourceContent string, sourceName string) string {
	if sourceName != "stdin" || !strings.Contains(sourceContent, `\!`) || len(err.Locations) == 0 {
		return ""
	}
	loc := err.Locations[0]
	lines := strings.Split(sourceContent, "\n")
	if loc.Line < 1 || loc.Line > len(lines) {
		return ""
	}
	line := lines[loc.Line-1]
	col := loc.Column - 1
	if col >= 0 && col < len(line)-1 && line[col] == '\\' && line[col+1] == '!' {
		return "it looks like zsh escaped `!` as `\\!`. Try using a heredoc instead:\n" +
			"       cat <<'EOF' | gqlfunc validate -\n" +
			"       query GetUser($id: ID!) { ... }\n" +
			"       EOF"
	}
	return ""
}

// errorSuggestion returns a "did you mean" suggestion for the error, if applicable.
func errorSuggestion(err ValidationError, schema *ast.Schema) string {
	var name string
	var candidates []string

	switch err.Rule {
	case "FieldsOnCorrectType":
		fieldName, typeName := parseFieldsOnCorrectTypeError(err.Message)
		typeDef := schema.Types[typeName]
		if fieldName == "" || typeDef == nil {
			return ""
		}
		name = fieldName
		candidates = pluck(typeDef.Fields, func(f *ast.FieldDefinition) string { return f.Name })
	case "KnownArgumentNames":
		argName, typeName, fieldName := parseKnownArgumentNamesError(err.Message)
		typeDef := schema.Types[typeName]
		if argName == "" || typeDef == nil {
			return ""
		}
		field := typeDef.Fields.ForName(fieldName)
		if field == nil {
			return ""
		}
		name = argName
		candidates = pluck(field.Arguments, func(a *ast.ArgumentDefinition) string { return a.Name })
	case "AnonymousOperation":
		return "give the operation a name; it becomes the function name"
	case "NamingConflict":
		return "function names are operation names with the first letter capitalised; rename one operation"
	default:
		return ""
	}

	if closest := findClosest(name, candidates); closest != "" {
		return fmt.Sprintf("did you mean `%s`?", closest)
	}
	return ""
}

func formatValidationResultText(result *ValidationResult, sourceName string, sourceContent string, schema *ast.Schema) string {
	if result.Valid {
		noun := "functions"
		if len(result.Functions) == 1 {
			noun = "function"
		}
		return fmt.Sprintf("✓ Operations are valid (%d %s: %s)\n", len(result.Functions), noun, strings.Join(result.Functions, ", "))
	}

	var output strings.Builder
	if len(result.Errors) == 1 {
		output.WriteString("✗ Operations have 1 error:\n")
	} else {
		fmt.Fprintf(&output, "✗ Operations have %d errors:\n", len(result.Errors))
	}

	for _, err := range result.Errors {
		d := diagnostic.Diagnostic{
			File:    sourceName,
			Length:  errorSpanLength(err),
			Message: err.Message,
		}
		if len(err.Locations) > 0 {
			d.Line = err.Locations[0].Line
			d.Column = err.Locations[0].Column
		}
		if zshHelp := detectZshEscapeIssue(err, sourceContent, sourceName); zshHelp != "" {
			d.Help = zshHelp
		} else {
			d.Help = errorSuggestion(err, schema)
		}
		output.WriteString(d.Render(sourceContent))
	}

	return output.String()
}

func formatValidationResultJSON(result *ValidationResult) (string, error) {
	bytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check the operations document against the schema",
		Long: `Validates the operations document against the schema without writing anything.

Besides GraphQL validation, every operation must have a name and no two
operations may produce the same function name.

The document defaults to the configured operations file. Pass a file path as
an argument, or - to read stdin.

Exit codes:
  0 - Operations are valid
  1 - Operations have validation or parse errors

Output formats:
  text    Human-readable error messages with locations
  json    {"valid": bool, "functions": [...], "errors": [...]}`,
		Example: `  # Validate the configured operations file against a local schema
  gqlfunc validate -s schema.graphql

  # Validate from stdin
  echo 'query Me { me { id } }' | gqlfunc validate - -s schema.graphql

  # JSON output for CI integration
  gqlfunc validate operations.graphql -f json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runValidateCmd,
	}

	return cmd
}

func runValidateCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	schema, err := loadCliForSchema(cmd, cfg)
	if err != nil {
		return err
	}

	document, err := loadOperations(cmd, args, cfg)
	if err != nil {
		return err
	}
	if document.Placeholder {
		fmt.Fprintf(cmd.ErrOrStderr(), "Operations document %s is empty, validating the %s placeholder.\n", document.Name, operations.PlaceholderName)
	}

	result := validateOperations(document.Name, document.Source, schema)

	switch outputFormat {
	case "json":
		output, err := formatValidationResultJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), output)
	default:
		fmt.Fprint(cmd.OutOrStdout(), formatValidationResultText(result, document.Name, document.Source, schema))
	}

	// Return error if validation failed (causes exit code 1)
	if !result.Valid {
		return ErrValidationFailed
	}

	return nil
}
