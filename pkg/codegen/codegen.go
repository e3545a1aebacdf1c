// Package codegen emits the Go source file that exposes one function per
// GraphQL operation.
//
// The emitted file is self-describing: it embeds the operations document
// verbatim, declares the Go shape of every enum, input object and custom
// scalar the operations touch, and one result struct per operation derived
// from its selection set. Emission is deterministic, so regenerating with the
// same schema and operations yields identical bytes.
package codegen

import (
	"fmt"
	"go/format"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	gqlparser "github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/samwightt/gqlfunc/pkg/operations"
	"github.com/samwightt/gqlfunc/pkg/signature"
)

// DefaultPackage is the package name of the generated file.
const DefaultPackage = "netligraph"

// Strictness controls how selections are checked against the schema before
// emission.
type Strictness string

const (
	// StrictnessOff skips schema validation. Fields missing from the schema
	// are emitted as json.RawMessage.
	StrictnessOff Strictness = "off"
	// StrictnessWarn reports validation findings as warnings.
	StrictnessWarn Strictness = "warn"
	// StrictnessStrict fails emission on any validation finding.
	StrictnessStrict Strictness = "strict"
)

var ValidStrictness = []Strictness{StrictnessOff, StrictnessWarn, StrictnessStrict}

func ParseStrictness(s string) (Strictness, error) {
	switch strings.ToLower(s) {
	case "off":
		return StrictnessOff, nil
	case "", "warn":
		return StrictnessWarn, nil
	case "strict":
		return StrictnessStrict, nil
	default:
		return "", fmt.Errorf("invalid validation level: %s (valid: off, warn, strict)", s)
	}
}

// scalarTargets are the Go types a custom scalar may be mapped to. The
// generated file imports nothing beyond context and encoding/json.
var scalarTargets = map[string]bool{
	"any":             true,
	"bool":            true,
	"float32":         true,
	"float64":         true,
	"int":             true,
	"int32":           true,
	"int64":           true,
	"string":          true,
	"json.RawMessage": true,
}

// Warning is a non-fatal finding surfaced to the caller.
type Warning struct {
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("%d:%d: %s", w.Line, w.Column, w.Message)
	}
	return w.Message
}

// ValidationError is returned in strict mode when the operations do not
// conform to the schema.
type ValidationError struct {
	Problems []Warning
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "operations do not match the schema: " + e.Problems[0].String()
	}
	return fmt.Sprintf("operations do not match the schema: %d problems, first: %s", len(e.Problems), e.Problems[0].String())
}

// WriteError is returned when the artifact cannot be persisted. The previous
// artifact, if any, is left as it was.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Artifact is a generated source file.
type Artifact struct {
	Path      string
	Source    []byte
	Functions []string
}

// Emitter renders and writes the generated file.
type Emitter struct {
	// Package is the Go package name of the generated file.
	Package string
	// Endpoint is the GraphQL endpoint the generated functions target.
	Endpoint string
	// Scalars maps custom scalar names to Go types. Unmapped custom scalars
	// become json.RawMessage.
	Scalars    map[string]string
	Validation Strictness
}

// Emit renders the artifact and writes it to path, replacing any previous
// file atomically.
func (e *Emitter) Emit(path string, schema *ast.Schema, operationsText string, fns []signature.FunctionDescriptor) (*Artifact, []Warning, error) {
	source, warnings, err := e.Render(schema, operationsText, fns)
	if err != nil {
		return nil, warnings, err
	}

	if err := WriteFile(path, source); err != nil {
		return nil, warnings, err
	}

	names := make([]string, len(fns))
	for i, fn := range fns {
		names[i] = fn.Name
	}
	return &Artifact{Path: path, Source: source, Functions: names}, warnings, nil
}

// Render produces the formatted source of the artifact without writing it.
func (e *Emitter) Render(schema *ast.Schema, operationsText string, fns []signature.FunctionDescriptor) ([]byte, []Warning, error) {
	pkg := e.Package
	if pkg == "" {
		pkg = DefaultPackage
	}
	if !token.IsIdentifier(pkg) || token.IsKeyword(pkg) {
		return nil, nil, fmt.Errorf("invalid package name: %q", pkg)
	}

	for name, goType := range e.Scalars {
		if !scalarTargets[goType] {
			return nil, nil, fmt.Errorf("scalar %s maps to unsupported Go type %q", name, goType)
		}
	}

	strictness := e.Validation
	if strictness == "" {
		strictness = StrictnessWarn
	}

	// The document is parsed again so annotations made here never leak into
	// the caller's AST.
	doc, err := operations.Parse("operations.graphql", operationsText)
	if err != nil {
		return nil, nil, err
	}

	var warnings []Warning
	if strictness != StrictnessOff {
		_, errs := gqlparser.LoadQuery(schema, operationsText)
		var problems []Warning
		for _, gqlErr := range errs {
			problem := Warning{Message: gqlErr.Message, Rule: gqlErr.Rule}
			if len(gqlErr.Locations) > 0 {
				problem.Line = gqlErr.Locations[0].Line
				problem.Column = gqlErr.Locations[0].Column
			}
			problems = append(problems, problem)
		}
		if len(problems) > 0 && strictness == StrictnessStrict {
			return nil, problems, &ValidationError{Problems: problems}
		}
		warnings = append(warnings, problems...)
	}

	g := newGenerator(schema, doc, e.Scalars, strictness == StrictnessOff)
	if err := g.build(fns); err != nil {
		return nil, warnings, err
	}
	warnings = append(warnings, g.warnings...)

	raw := g.write(pkg, e.Endpoint, operationsText)
	source, err := format.Source(raw)
	if err != nil {
		return nil, warnings, fmt.Errorf("generated source is not valid Go: %w", err)
	}
	return source, warnings, nil
}

// WriteFile replaces path with data. The parent directory is created if
// needed; the data goes to a temporary file that is renamed over path, so a
// failed write never leaves a partial artifact behind.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
