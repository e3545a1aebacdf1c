package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agnivade/levenshtein"
	"github.com/samwightt/gqlfunc/pkg/config"
	"github.com/samwightt/gqlfunc/pkg/logging"
	"github.com/samwightt/gqlfunc/pkg/operations"
	"github.com/samwightt/gqlfunc/pkg/pipeline"
	"github.com/samwightt/gqlfunc/pkg/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vektah/gqlparser/v2/ast"
)

const maxSuggestionDistance = 5

func findClosest(input string, candidates []string) string {
	minDist := -1
	closest := ""
	for _, c := range candidates {
		dist := levenshtein.ComputeDistance(input, c)
		if minDist == -1 || dist < minDist {
			minDist = dist
			closest = c
		}
	}
	if minDist > maxSuggestionDistance {
		return ""
	}
	return closest
}

// pluck maps items to one string each.
func pluck[T any](items []T, f func(T) string) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		result = append(result, f(item))
	}
	return result
}

// filterSlice returns a new slice containing only the elements that satisfy the predicate.
func filterSlice[T any](items []T, predicate func(T) bool) []T {
	var result []T
	for _, item := range items {
		if predicate(item) {
			result = append(result, item)
		}
	}
	return result
}

// bindFlags binds config keys to flags so that a flag, when set, overrides
// the file and the environment.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for key, flag := range keys {
		if err := settings.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}
}

// loadConfig resolves the configuration and replaces the logger with one
// configured from it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(settings, configFilePath)
	if err != nil {
		return nil, err
	}

	logger, err = logging.NewLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadCliForSchema(cmd *cobra.Command, cfg *config.Config) (*ast.Schema, error) {
	if cfg.SchemaFile == "" && cfg.AppID == "" {
		return nil, fmt.Errorf("no schema: pass --schema or set an app id (SITE_ID, GQLFUNC_APP_ID or --app-id)")
	}

	s, err := pipeline.FetchSchema(cmd.Context(), cfg, pipeline.NewDeps(cfg, logger))
	if err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("schema file does not exist: %s", cfg.SchemaFile)
		case errors.Is(err, schema.ErrUnauthorized):
			return nil, fmt.Errorf("%w (check NETLIFY_API_TOKEN)", err)
		}
		return nil, err
	}
	return s, nil
}

// readOperations reads the operations document named by args, stdin for "-",
// or the configured operations file.
func readOperations(cmd *cobra.Command, args []string, cfg *config.Config) (name string, content string, err error) {
	switch {
	case len(args) == 1 && args[0] == "-":
		bytes, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return "stdin", string(bytes), nil
	case len(args) == 1:
		bytes, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", fmt.Errorf("failed to read operations file: %w", err)
		}
		return args[0], string(bytes), nil
	default:
		content, err := operations.Store{Path: cfg.OperationsPath}.Read()
		if err != nil {
			return "", "", err
		}
		return filepath.Base(cfg.OperationsPath), content, nil
	}
}

// loadOperations reads the operations document and applies the configured
// empty-document policy.
func loadOperations(cmd *cobra.Command, args []string, cfg *config.Config) (*operations.Document, error) {
	policy, err := cfg.EmptyPolicy()
	if err != nil {
		return nil, err
	}
	name, content, err := readOperations(cmd, args, cfg)
	if err != nil {
		return nil, err
	}
	return operations.NewDocument(name, content, policy)
}
