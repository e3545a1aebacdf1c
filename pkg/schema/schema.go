// Package schema obtains the GraphQL schema that operations are generated
// against, either from the schema service or from a local SDL file.
package schema

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	gqlparser "github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// ErrUnauthorized is wrapped by SchemaFetchError when the schema service
// rejects the credentials.
var ErrUnauthorized = errors.New("schema service rejected the credentials")

// Provider returns the schema of an application with the given upstream
// services enabled.
type Provider interface {
	FetchSchema(ctx context.Context, appID string, services []string) (*ast.Schema, error)
}

// SchemaFetchError wraps any failure to obtain a usable schema: transport
// errors, rejected credentials and malformed schema documents alike.
type SchemaFetchError struct {
	AppID  string
	Source string
	Err    error
}

func (e *SchemaFetchError) Error() string {
	if e.AppID == "" {
		return fmt.Sprintf("failed to fetch schema from %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("failed to fetch schema for app %s from %s: %v", e.AppID, e.Source, e.Err)
}

func (e *SchemaFetchError) Unwrap() error {
	return e.Err
}

// Load builds a schema from SDL text.
func Load(name, sdl string) (*ast.Schema, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: sdl})
	if err != nil {
		return nil, err
	}
	return schema, nil
}

// FileProvider reads the schema from an SDL file. The application and
// services are ignored.
type FileProvider struct {
	Path string
}

func (p FileProvider) FetchSchema(ctx context.Context, appID string, services []string) (*ast.Schema, error) {
	path, err := filepath.Abs(p.Path)
	if err != nil {
		return nil, &SchemaFetchError{AppID: appID, Source: p.Path, Err: err}
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("schema file does not exist: %w", err)
		}
		return nil, &SchemaFetchError{AppID: appID, Source: p.Path, Err: err}
	}

	schema, err := Load(filepath.Base(path), string(bytes))
	if err != nil {
		return nil, &SchemaFetchError{AppID: appID, Source: p.Path, Err: err}
	}
	return schema, nil
}
