/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/samwightt/gqlfunc/pkg/config"
	"github.com/samwightt/gqlfunc/pkg/render"
	"github.com/samwightt/gqlfunc/pkg/signature"
	"github.com/spf13/cobra"
	"github.com/vektah/gqlparser/v2/ast"
)

type functionsOptions struct {
	kind      string
	hasParam  []string
	required  bool
	noParams  bool
	name      string
	nameRegex string
}

func functionToInfo(fn signature.FunctionDescriptor) FunctionInfo {
	info := FunctionInfo{
		Name:       fn.Name,
		Operation:  fn.OperationName,
		Kind:       string(fn.Kind),
		Parameters: []ParamInfo{},
	}
	for _, p := range fn.Parameters {
		info.Parameters = append(info.Parameters, ParamInfo{
			Name:         p.Name,
			Type:         p.GraphQLType(),
			Required:     p.Required,
			DefaultValue: p.DefaultValue,
		})
	}
	return info
}

func formatParamText(p ParamInfo) string {
	text := p.Name + ": " + p.Type
	if p.DefaultValue != "" {
		text += " = " + p.DefaultValue
	}
	return text
}

func formatFunctionText(fn FunctionInfo) string {
	return fmt.Sprintf("%s %s(%s)", fn.Kind, fn.Name, strings.Join(pluck(fn.Parameters, formatParamText), ", "))
}

func formatFunctionsPretty(fns []FunctionInfo) string {
	t := render.NewTable("function", "kind", "operation", "parameters")
	for _, fn := range fns {
		t.Row(fn.Name, fn.Kind, fn.Operation, strings.Join(pluck(fn.Parameters, formatParamText), ", "))
	}
	return t.String()
}

func formatParamRowText(p ParamInfo) string {
	required := ""
	if p.Required {
		required = " (required)"
	}
	return fmt.Sprintf("%s.%s%s", p.Function, formatParamText(p), required)
}

func formatParamsPretty(params []ParamInfo) string {
	t := render.NewTable("parameter", "type", "required", "default")
	for _, p := range params {
		required := "no"
		if p.Required {
			required = "yes"
		}
		t.Row(p.Function+"."+p.Name, p.Type, required, p.DefaultValue)
	}
	return t.String()
}

func matchesFunctionFilters(fn FunctionInfo, opts *functionsOptions, nameRegex *regexp.Regexp) bool {
	if opts.kind != "" && fn.Kind != opts.kind {
		return false
	}
	for _, name := range opts.hasParam {
		if len(filterSlice(fn.Parameters, func(p ParamInfo) bool { return p.Name == name })) == 0 {
			return false
		}
	}
	if opts.required && len(filterSlice(fn.Parameters, func(p ParamInfo) bool { return p.Required })) == 0 {
		return false
	}
	if opts.noParams && len(fn.Parameters) > 0 {
		return false
	}
	if opts.name != "" {
		if matched, _ := filepath.Match(opts.name, fn.Name); !matched {
			return false
		}
	}
	if nameRegex != nil && !nameRegex.MatchString(fn.Name) {
		return false
	}
	return true
}

func NewFunctionsCmd() *cobra.Command {
	opts := &functionsOptions{}

	cmd := &cobra.Command{
		Use:   "functions [function]",
		Short: "Lists the functions the operations document generates.",
		Long: `Lists the functions that generate would write, without fetching the schema.

Each named operation becomes one function. Its variables become parameters;
a parameter is required when the variable is non-null and has no default.

If a function is given, its parameters are listed instead.`,
		Example: `  # All functions
  gqlfunc functions

  # Mutations that take an id
  gqlfunc functions --kind mutation --has-param id

  # Parameters of one function
  gqlfunc functions GetUser`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}
			fns, err := extractFunctions(cmd, cfg)
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}
			var names []string
			for _, fn := range fns {
				if strings.HasPrefix(strings.ToLower(fn.Name), strings.ToLower(toComplete)) {
					names = append(names, fn.Name)
				}
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFunctions(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.kind, "kind", "", "Filter to one operation kind: query, mutation, subscription")
	cmd.Flags().StringArrayVar(&opts.hasParam, "has-param", nil, "Filter to functions with a parameter of this name (repeatable)")
	cmd.Flags().BoolVar(&opts.required, "required", false, "Filter to functions with at least one required parameter")
	cmd.Flags().BoolVar(&opts.noParams, "no-params", false, "Filter to functions without parameters")
	cmd.Flags().StringVar(&opts.name, "name", "", "Filter functions by name using a glob pattern (e.g., Get*)")
	cmd.Flags().StringVar(&opts.nameRegex, "name-regex", "", "Filter functions by name using a regex pattern")

	return cmd
}

// extractFunctions derives the descriptors of the configured operations
// document. The schema is not needed.
func extractFunctions(cmd *cobra.Command, cfg *config.Config) ([]signature.FunctionDescriptor, error) {
	document, err := loadOperations(cmd, nil, cfg)
	if err != nil {
		return nil, err
	}
	doc, err := document.Parse()
	if err != nil {
		return nil, err
	}
	return signature.Extract(doc)
}

func runFunctions(cmd *cobra.Command, args []string, opts *functionsOptions) error {
	if opts.required && opts.noParams {
		return fmt.Errorf("--required and --no-params cannot be used together")
	}
	switch ast.Operation(opts.kind) {
	case "", ast.Query, ast.Mutation, ast.Subscription:
	default:
		return fmt.Errorf("invalid kind: %s (valid: query, mutation, subscription)", opts.kind)
	}

	var nameRegex *regexp.Regexp
	if opts.nameRegex != "" {
		var err error
		nameRegex, err = regexp.Compile(opts.nameRegex)
		if err != nil {
			return fmt.Errorf("invalid regex pattern for --name-regex: %w", err)
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fns, err := extractFunctions(cmd, cfg)
	if err != nil {
		return err
	}
	infos := pluckFunctions(fns)

	if len(args) == 1 {
		return renderParams(cmd, args[0], infos)
	}

	infos = filterSlice(infos, func(fn FunctionInfo) bool {
		return matchesFunctionFilters(fn, opts, nameRegex)
	})
	if len(infos) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No functions found that match the filters.")
	}

	renderer := render.Renderer[FunctionInfo]{
		Data:         infos,
		TextFormat:   formatFunctionText,
		PrettyFormat: formatFunctionsPretty,
	}
	output, err := renderer.Render(outputFormat)
	if err != nil {
		return fmt.Errorf("error rendering output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

func renderParams(cmd *cobra.Command, name string, infos []FunctionInfo) error {
	matches := filterSlice(infos, func(fn FunctionInfo) bool { return fn.Name == name })
	if len(matches) == 0 {
		names := pluck(infos, func(fn FunctionInfo) string { return fn.Name })
		if suggestion := findClosest(name, names); suggestion != "" {
			return fmt.Errorf("function '%s' does not exist, did you mean '%s'?", name, suggestion)
		}
		return fmt.Errorf("function '%s' does not exist", name)
	}

	params := matches[0].Parameters
	for i := range params {
		params[i].Function = name
	}
	if len(params) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Function '%s' takes no parameters.\n", name)
	}

	renderer := render.Renderer[ParamInfo]{
		Data:         params,
		TextFormat:   formatParamRowText,
		PrettyFormat: formatParamsPretty,
	}
	output, err := renderer.Render(outputFormat)
	if err != nil {
		return fmt.Errorf("error rendering output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}
